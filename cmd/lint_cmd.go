package cmd

import (
	"context"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"

	"github.com/daedaleanai/cobra"
	"github.com/fsnotify/fsnotify"
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/daedaleanai/pylintmark/config"
	"github.com/daedaleanai/pylintmark/diagnostics"
	"github.com/daedaleanai/pylintmark/pylint"
	"github.com/daedaleanai/pylintmark/report"
)

var (
	fLintFormat  string
	fLintContext bool
	fLintJobs    int
	fLintStrict  bool
	fLintWatch   bool
)

var lintCmd = &cobra.Command{
	Use:   "lint FILE...",
	Short: "Runs pylint on the given files",
	Long: `Runs pylint on every file, concurrently, and prints the diagnostics with their
refined locations. Files failing to lint are reported after the diagnostics of the
others.`,
	Args: cobra.MinimumNArgs(1),
	RunE: RunAndHandleError(runLint),
}

// newLinter builds the linter of a run from the configuration
var newLinter = func(cfg *config.Config) (*pylint.Linter, error) {
	return cfg.NewLinter()
}

// the run command for lint
func runLint(command *cobra.Command, args []string) error {
	if err := setupConfiguration(); err != nil {
		return err
	}
	format, err := parseFormat(fLintFormat)
	if err != nil {
		return err
	}
	linter, err := newLinter(pylintmarkConfig)
	if err != nil {
		return err
	}

	out := command.OutOrStdout()
	opts := report.DefaultOptions()
	opts.Base = linter.Base
	opts.Context = fLintContext
	opts.Color = report.IsTerminal(out)
	opts.Style = config.SourceStyle

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if fLintWatch {
		return watchFiles(ctx, args, func(paths []string) {
			// Sources change between runs
			opts.Source = report.CachedSource(report.ReadSource)
			if _, err := lintAndReport(ctx, out, linter, paths, format, opts); err != nil {
				log.Error("%s", err)
			}
		})
	}

	diags, err := lintAndReport(ctx, out, linter, args, format, opts)
	if err != nil {
		return err
	}
	if fLintStrict {
		if n := countErrors(diags); n > 0 {
			return errors.Errorf("%d error diagnostics", n)
		}
	}
	return nil
}

// lintAndReport lints the files and writes the diagnostics of those that succeeded. The
// failures of the others are returned together.
func lintAndReport(ctx context.Context, w io.Writer, linter *pylint.Linter, paths []string, format report.Format, opts report.Options) ([]diagnostics.Diagnostic, error) {
	diags, lintErr := lintFiles(ctx, linter, paths, fLintJobs)
	if err := report.Write(w, format, diags, opts); err != nil {
		return diags, errors.Wrap(err, "write report")
	}
	return diags, lintErr
}

// lintFiles lints the files with at most jobs concurrent pylint processes. The diagnostics
// keep the order of the files.
func lintFiles(ctx context.Context, linter *pylint.Linter, paths []string, jobs int) ([]diagnostics.Diagnostic, error) {
	if jobs <= 0 {
		jobs = runtime.NumCPU()
	}
	results := make([][]diagnostics.Diagnostic, len(paths))
	failures := make([]error, len(paths))

	var g errgroup.Group
	g.SetLimit(jobs)
	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			results[i], failures[i] = linter.LintFile(ctx, path)
			return failures[i]
		})
	}
	// The group only reports the first failure, every file is still linted
	failed := g.Wait() != nil

	var diags []diagnostics.Diagnostic
	for i := range paths {
		diags = append(diags, results[i]...)
	}
	if !failed {
		return diags, nil
	}
	var errs *multierror.Error
	for _, err := range failures {
		if err != nil {
			errs = multierror.Append(errs, err)
		}
	}
	return diags, errs.ErrorOrNil()
}

func countErrors(diags []diagnostics.Diagnostic) int {
	n := 0
	for _, d := range diags {
		if d.Severity == diagnostics.SeverityError {
			n++
		}
	}
	return n
}

// watchFiles calls lint with all paths, then with every path written to, until the context is
// done. The directories are watched rather than the files, editors often replace a file when
// saving it.
func watchFiles(ctx context.Context, paths []string, lint func(paths []string)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "create watcher")
	}
	defer watcher.Close()

	watched := make(map[string]string)
	dirs := make(map[string]bool)
	for _, path := range paths {
		abs, err := filepath.Abs(path)
		if err != nil {
			return err
		}
		watched[abs] = path
		dirs[filepath.Dir(abs)] = true
	}
	for dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			return errors.Wrapf(err, "watch %s", dir)
		}
	}

	lint(paths)
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			path, ok := watched[event.Name]
			if !ok || event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			log.Debug("%s changed", path)
			lint([]string{path})
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Warning("Watching files: %s", err)
		}
	}
}

// Registers the lint command
func init() {
	lintCmd.Flags().StringVar(&fLintFormat, "format", string(report.FormatText), "Output format: text, json, yaml or lsp.")
	lintCmd.Flags().BoolVar(&fLintContext, "context", false, "Show the offending source line under every diagnostic.")
	lintCmd.Flags().IntVarP(&fLintJobs, "jobs", "j", 0, "Number of files linted concurrently, by default the number of CPUs.")
	lintCmd.Flags().BoolVar(&fLintStrict, "strict", false, "Exit with error if any error or fatal diagnostic is reported.")
	lintCmd.Flags().BoolVar(&fLintWatch, "watch", false, "Lint the files again every time they are written.")
	rootCmd.AddCommand(lintCmd)
}
