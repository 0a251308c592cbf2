package cmd

import (
	"io"
	"io/ioutil"
	"os"

	"github.com/daedaleanai/cobra"
	"github.com/pkg/errors"

	"github.com/daedaleanai/pylintmark/config"
	"github.com/daedaleanai/pylintmark/matcher"
	"github.com/daedaleanai/pylintmark/pylint"
	"github.com/daedaleanai/pylintmark/refine"
	"github.com/daedaleanai/pylintmark/report"
)

var (
	fParseSymbols bool
	fParseFormat  string
	fParsePath    string
)

var parseCmd = &cobra.Command{
	Use:   "parse [FILE]",
	Short: "Parses captured pylint output",
	Long: `Parses the output of a previous pylint run, read from FILE or from the standard
input, and prints the diagnostics with their refined locations. pylint must have been
run with --msg-template='` + matcher.MessageTemplate + `', or with the symbol
template when --symbols is given.`,
	Args: cobra.MaximumNArgs(1),
	RunE: RunAndHandleError(runParse),
}

// the run command for parse
func runParse(command *cobra.Command, args []string) error {
	if err := setupConfiguration(); err != nil {
		return err
	}
	format, err := parseFormat(fParseFormat)
	if err != nil {
		return err
	}
	table, err := pylintmarkConfig.Table()
	if err != nil {
		return err
	}

	var in io.Reader = command.InOrStdin()
	if len(args) == 1 {
		f, err := os.Open(args[0])
		if err != nil {
			return errors.Wrap(err, "open pylint output")
		}
		defer f.Close()
		in = f
	}
	output, err := ioutil.ReadAll(in)
	if err != nil {
		return errors.Wrap(err, "read pylint output")
	}

	base := pylintmarkConfig.Base
	m := matcher.New(base, fParseSymbols || pylintmarkConfig.Options.Symbols)
	diags := pylint.Process(string(output), m, refine.NewRefiner(table), fParsePath)

	out := command.OutOrStdout()
	opts := report.DefaultOptions()
	opts.Base = base
	opts.Color = report.IsTerminal(out)
	opts.Style = config.SourceStyle
	return report.Write(out, format, diags, opts)
}

// Registers the parse command
func init() {
	parseCmd.Flags().BoolVar(&fParseSymbols, "symbols", false, "The output carries the symbolic name of the messages.")
	parseCmd.Flags().StringVar(&fParseFormat, "format", string(report.FormatText), "Output format: text, json, yaml or lsp.")
	parseCmd.Flags().StringVar(&fParsePath, "path", "", "Path of the linted file, attached to every diagnostic.")
	rootCmd.AddCommand(parseCmd)
}
