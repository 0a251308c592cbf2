package cmd

import (
	"fmt"
	"os"
	"reflect"
	"runtime"
	"strings"

	"github.com/daedaleanai/cobra"
	"github.com/pkg/errors"

	"github.com/daedaleanai/pylintmark/config"
	"github.com/daedaleanai/pylintmark/logging"
	"github.com/daedaleanai/pylintmark/report"
	"github.com/daedaleanai/pylintmark/util"
)

var log = logging.Log

var rootCmd = &cobra.Command{
	Use:   "pylintmark",
	Short: "pylintmark runs pylint and pinpoints its diagnostics.",
	Long: `pylintmark runs pylint on Python sources and reports every diagnostic with the
location an editor needs to underline it. pylint only reports a usable column for
some of its messages; for the others the location is recovered from the message
text using a resolution table.`,
	Version: util.Version.String(),
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logging.Init(fVerbose)
	},
}

var (
	fVerbose    bool
	fConfigPath string
)

var pylintmarkConfig *config.Config

// Sets up the global pylintmarkConfig variable
func setupConfiguration() error {
	cfg, err := config.Load(fConfigPath)
	if err != nil {
		return errors.Wrap(err, "load configuration")
	}
	if cfg.Path != "" {
		log.Debug("Using configuration %s", cfg.Path)
	}
	pylintmarkConfig = &cfg
	return nil
}

// parseFormat validates the value of a --format flag
func parseFormat(s string) (report.Format, error) {
	format, err := report.ParseFormat(s)
	if err != nil {
		names := make([]string, len(report.Formats))
		for i, f := range report.Formats {
			names[i] = string(f)
		}
		return "", errors.Wrapf(err, "expected one of %s", strings.Join(names, ", "))
	}
	return format, nil
}

// Initializes the root command flags
func init() {
	rootCmd.PersistentFlags().BoolVarP(&fVerbose, "verbose", "v", false, "Enable verbose logs.")
	rootCmd.PersistentFlags().StringVar(&fConfigPath, "config", "", "Path of the configuration file, by default "+config.FileName+" at the repository root or in the current directory.")
}

// RunRootCommand runs the root command
func RunRootCommand() error {
	return rootCmd.Execute()
}

// RunAndHandleError returns a RunE function that runs the specified RunE
// function and exits if it returns an error.
func RunAndHandleError(runE func(cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		// Cobra does not tell apart errors returned by RunE from argument parsing errors,
		// so errors are reported here with an appropriate exit code.
		// See https://github.com/spf13/cobra/issues/914
		if errRun := runE(cmd, args); errRun != nil {
			// For example: "github.com/daedaleanai/pylintmark/cmd.runLint"
			s := runtime.FuncForPC(reflect.ValueOf(runE).Pointer()).Name()
			s = s[strings.LastIndex(s, "/")+1:]
			fmt.Fprintln(os.Stderr, errors.Wrap(errRun, s))
			os.Exit(1)
		}
		return nil
	}
}
