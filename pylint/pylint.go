/*
Runs pylint on a file or an in-memory buffer and turns its output into refined diagnostics.

The work is a two stage pipeline: the matcher extracts raw diagnostics from stdout, then the
refiner decides their final location. stderr does not carry diagnostics; after removing the
known noise anything left in it means pylint failed.
*/

package pylint

import (
	"bytes"
	"context"
	"io"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/pkg/errors"

	"github.com/daedaleanai/pylintmark/diagnostics"
	"github.com/daedaleanai/pylintmark/linepipes"
	"github.com/daedaleanai/pylintmark/logging"
	"github.com/daedaleanai/pylintmark/matcher"
	"github.com/daedaleanai/pylintmark/refine"
)

var log = logging.Log

// DefaultTimeout bounds a single pylint run
const DefaultTimeout = 60 * time.Second

// Suffix of the temporary files in-memory buffers are written to
const tempfileSuffix = ".py"

// A Runner executes a program and captures its output, see linepipes.Capture.
type Runner func(ctx context.Context, stdin io.Reader, prog string, args ...string) (stdout, stderr string, err error)

// A Linter runs pylint. It is safe for concurrent use, every run has its own buffers.
type Linter struct {
	Options Options
	// Base is the numbering convention of the lines and columns pylint reports
	Base    diagnostics.Base
	Refiner refine.Refiner
	// CheckVersion enables the version check before the first run
	CheckVersion       bool
	VersionRequirement string
	Timeout            time.Duration
	Runner             Runner

	versionMu   sync.Mutex
	versionDone bool
	version     *semver.Version
	versionErr  error
}

// New returns a linter with the default table, numbering and runner.
func New(opts Options) *Linter {
	return &Linter{
		Options:            opts,
		Base:               diagnostics.ToolBase,
		Refiner:            refine.NewRefiner(nil),
		CheckVersion:       true,
		VersionRequirement: DefaultVersionRequirement,
		Timeout:            DefaultTimeout,
		Runner:             linepipes.Capture,
	}
}

// Process runs the pipeline over captured pylint output: every matching line becomes a
// diagnostic, refined and attributed to path. Order is preserved.
func Process(output string, m *matcher.Matcher, r refine.Refiner, path string) []diagnostics.Diagnostic {
	diags := refine.RefineAll(r, m.Match(output))
	for i := range diags {
		diags[i].Path = path
	}
	return diags
}

// Version returns the version of the configured pylint, querying it on first use. A query that
// could not run pylint, because the context ended or the program is missing, is retried by the
// next call; a parsed version, or the lack of one in pylint's banner, is kept.
func (l *Linter) Version(ctx context.Context) (*semver.Version, error) {
	l.versionMu.Lock()
	defer l.versionMu.Unlock()
	if l.versionDone {
		return l.version, l.versionErr
	}

	ctx, cancel := context.WithTimeout(ctx, l.timeout())
	defer cancel()
	stdout, stderr, err := l.Runner(ctx, nil, l.Options.Executable, "--version")
	if err != nil {
		var exitErr *linepipes.ExitError
		if !errors.As(err, &exitErr) {
			return nil, errors.Wrapf(err, "querying the version of `%s`", l.Options.Executable)
		}
	}
	l.version, l.versionErr = ParseVersion(stdout + "\n" + stderr)
	l.versionDone = true
	return l.version, l.versionErr
}

func (l *Linter) timeout() time.Duration {
	if l.Timeout <= 0 {
		return DefaultTimeout
	}
	return l.Timeout
}

func (l *Linter) checkVersion(ctx context.Context) error {
	if !l.CheckVersion {
		return nil
	}
	v, err := l.Version(ctx)
	if errors.Is(err, ErrNoVersion) {
		log.Warning("Could not determine the version of %s, continuing", l.Options.Executable)
		return nil
	}
	if err != nil {
		return err
	}
	requirement := l.VersionRequirement
	if requirement == "" {
		requirement = DefaultVersionRequirement
	}
	return CheckVersion(v, requirement)
}

// LintFile runs pylint on a file on disk. Inline overrides are read from the file.
func (l *Linter) LintFile(ctx context.Context, path string) ([]diagnostics.Diagnostic, error) {
	src, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read source")
	}
	return l.lint(ctx, path, path, string(src))
}

// LintSource runs pylint on an in-memory buffer. The buffer is written to a temporary file,
// diagnostics are reported against filename.
func (l *Linter) LintSource(ctx context.Context, filename string, src []byte) ([]diagnostics.Diagnostic, error) {
	dir, err := ioutil.TempDir("", "pylintmark")
	if err != nil {
		return nil, errors.Wrap(err, "create temporary directory")
	}
	defer os.RemoveAll(dir)

	name := filepath.Base(filename)
	if name == "." || name == string(filepath.Separator) || name == "" {
		name = "buffer"
	}
	if !strings.HasSuffix(name, tempfileSuffix) {
		name += tempfileSuffix
	}
	tmp := filepath.Join(dir, name)
	if err := ioutil.WriteFile(tmp, src, 0644); err != nil {
		return nil, errors.Wrap(err, "write temporary file")
	}
	return l.lint(ctx, tmp, filename, string(src))
}

func (l *Linter) lint(ctx context.Context, file, reported, src string) ([]diagnostics.Diagnostic, error) {
	if err := l.checkVersion(ctx); err != nil {
		return nil, err
	}

	opts := l.Options
	if ov := ParseOverrides(src); !ov.Empty() {
		log.Debug("%s: inline overrides enable=%v disable=%v", reported, ov.Enable, ov.Disable)
		opts = opts.WithOverrides(ov)
	}
	argv, err := opts.Command(file)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, l.timeout())
	defer cancel()

	stdout, stderr, err := l.Runner(ctx, bytes.NewReader(nil), argv[0], argv[1:]...)
	if err != nil {
		// pylint encodes the classes of the emitted messages in its exit status
		var exitErr *linepipes.ExitError
		if !errors.As(err, &exitErr) {
			return nil, errors.Wrapf(err, "linting %s", reported)
		}
		log.Debug("%s: pylint exited with status %d", reported, exitErr.Code)
	}
	if rest := FilterStderr(stderr); rest != "" {
		return nil, &ToolError{Path: reported, Stderr: rest}
	}

	m := matcher.New(l.Base, opts.Symbols)
	return Process(stdout, m, l.Refiner, reported), nil
}
