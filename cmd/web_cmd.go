package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/daedaleanai/cobra"

	"github.com/daedaleanai/pylintmark/config"
	"github.com/daedaleanai/pylintmark/web"
)

var webAddr *string

var webCmd = &cobra.Command{
	Use:   "web",
	Short: "Starts a local web server linting buffers for editors",
	Long: `Starts a local web server. Editors POST buffers to /lint and get the diagnostics
back as JSON; /view shows a file with its diagnostics; /metrics exposes Prometheus
metrics.`,
	Args: cobra.NoArgs,
	RunE: RunAndHandleError(runWebCmd),
}

// Starts the web server listening on the supplied address:port
func runWebCmd(command *cobra.Command, args []string) error {
	if err := setupConfiguration(); err != nil {
		return err
	}
	linter, err := newLinter(pylintmarkConfig)
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return web.Serve(ctx, pylintmarkConfig, linter, *webAddr)
}

// Registers the web command
func init() {
	webAddr = webCmd.PersistentFlags().String("addr", config.WebAddr, "The ip:port where to serve.")
	rootCmd.AddCommand(webCmd)
}
