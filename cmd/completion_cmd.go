package cmd

import (
	"strings"

	"github.com/daedaleanai/cobra"

	"github.com/daedaleanai/pylintmark/config"
)

var completionCmd = &cobra.Command{
	Use:   "completion bash|zsh|fish",
	Short: "Generate completion script",
	Long: `To load completions:
Bash:
  $ source <(pylintmark completion bash)
  # To load completions for each session, execute once:
  # Linux:
  $ pylintmark completion bash > /etc/bash_completion.d/pylintmark
  # macOS:
  $ pylintmark completion bash > /usr/local/etc/bash_completion.d/pylintmark
Zsh:
  # If shell completion is not already enabled in your environment,
  # you will need to enable it.  You can execute the following once:
  $ echo "autoload -U compinit; compinit" >> ~/.zshrc
  # To load completions for each session, execute once:
  $ pylintmark completion zsh > "${fpath[1]}/_pylintmark"
  # You will need to start a new shell for this setup to take effect.
fish:
  $ pylintmark completion fish | source
  # To load completions for each session, execute once:
  $ pylintmark completion fish > ~/.config/fish/completions/pylintmark.fish
`,
	DisableFlagsInUseLine: true,
	ValidArgs:             []string{"bash", "zsh", "fish"},
	Args:                  cobra.ExactValidArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		switch args[0] {
		case "bash":
			cmd.Root().GenBashCompletion(cmd.OutOrStdout())
		case "zsh":
			cmd.Root().GenZshCompletion(cmd.OutOrStdout())
		case "fish":
			cmd.Root().GenFishCompletion(cmd.OutOrStdout(), true)
		}
	},
	Hidden: true,
}

// Completes python sources
func completePythonFiles(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	return []string{"py"}, cobra.ShellCompDirectiveFilterFileExt
}

// Completes the codes of the resolution table
func completeCodes(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	cfg, err := config.Load(fConfigPath)
	if err != nil {
		return nil, cobra.ShellCompDirectiveError
	}
	table, err := cfg.Table()
	if err != nil {
		return nil, cobra.ShellCompDirectiveError
	}
	var res []string
	for _, code := range table.Codes() {
		if strings.HasPrefix(code, strings.ToUpper(toComplete)) {
			res = append(res, code)
		}
	}
	return res, cobra.ShellCompDirectiveNoFileComp
}

// Registers the completion subcommand and the completions of the other commands
func init() {
	rootCmd.AddCommand(completionCmd)
	lintCmd.ValidArgsFunction = completePythonFiles
	codesCmd.ValidArgsFunction = completeCodes
}
