package pylint

import (
	"context"
	"errors"
	"io"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daedaleanai/pylintmark/diagnostics"
	"github.com/daedaleanai/pylintmark/linepipes"
	"github.com/daedaleanai/pylintmark/matcher"
	"github.com/daedaleanai/pylintmark/refine"
)

const sampleOutput = "************* Module example\n" +
	"12:0:E0712: Catching an exception which doesn't inherit from BaseException: MyError\n" +
	"5:0:C1001: old-style class defined\n" +
	"8:0:C0301: Line too long (120/100)\n" +
	"3:4:R0903: Too few public methods (1/2)\n" +
	"9:0:X9999: some unknown future code\n" +
	"9:0:W9999: some unknown future code\n" +
	"10:7:W9998: another unknown code\r\n" +
	"\n" +
	"Your code has been rated at 2.00/10\n"

// fakePylint records its invocations and answers with canned output
type fakePylint struct {
	mu       sync.Mutex
	calls    [][]string
	version  string
	stdout   string
	stderr   string
	exitCode int
	err      error
	seen     map[string]string
}

func (f *fakePylint) run(ctx context.Context, stdin io.Reader, prog string, args ...string) (string, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, append([]string{prog}, args...))
	if len(args) == 1 && args[0] == "--version" {
		return f.version, "", nil
	}
	if f.seen != nil {
		file := args[len(args)-1]
		data, _ := ioutil.ReadFile(file)
		f.seen[file] = string(data)
	}
	if f.err != nil {
		return "", "", f.err
	}
	if f.exitCode != 0 {
		return f.stdout, f.stderr, &linepipes.ExitError{Prog: prog, Code: f.exitCode}
	}
	return f.stdout, f.stderr, nil
}

func newTestLinter(f *fakePylint) *Linter {
	l := New(Options{Executable: "pylint"})
	l.Runner = f.run
	return l
}

func TestProcess_Pipeline(t *testing.T) {
	m := matcher.New(diagnostics.ToolBase, false)
	diags := Process(sampleOutput, m, refine.NewRefiner(nil), "example.py")

	want := []diagnostics.Diagnostic{
		{Path: "example.py", Line: 12, Code: "E0712", Severity: diagnostics.SeverityError,
			Message: "Catching an exception which doesn't inherit from BaseException: MyError", Near: "MyError"},
		{Path: "example.py", Line: 5, Code: "C1001", Severity: diagnostics.SeverityWarning,
			Message: "old-style class defined", Near: "class"},
		{Path: "example.py", Line: 8, Column: diagnostics.Col(100), Code: "C0301", Severity: diagnostics.SeverityWarning,
			Message: "Line too long (120/100)"},
		{Path: "example.py", Line: 3, Code: "R0903", Severity: diagnostics.SeverityWarning,
			Message: "Too few public methods (1/2)"},
		{Path: "example.py", Line: 9, Code: "W9999", Severity: diagnostics.SeverityWarning,
			Message: "some unknown future code"},
		{Path: "example.py", Line: 10, Column: diagnostics.Col(7), Code: "W9998", Severity: diagnostics.SeverityWarning,
			Message: "another unknown code"},
	}
	require.Len(t, diags, len(want))
	for i := range want {
		assert.True(t, want[i].Equal(diags[i]), "want %v, got %v", want[i], diags[i])
	}
}

func TestLintFile(t *testing.T) {
	f := &fakePylint{version: "pylint 2.17.4\nastroid 2.15.5\nPython 3.11.4", stdout: sampleOutput, exitCode: 30}
	l := newTestLinter(f)

	dir := t.TempDir()
	path := filepath.Join(dir, "example.py")
	require.NoError(t, ioutil.WriteFile(path, []byte("import os\n"), 0644))

	diags, err := l.LintFile(context.Background(), path)
	require.NoError(t, err)
	assert.Len(t, diags, 6)
	for _, d := range diags {
		assert.Equal(t, path, d.Path)
	}

	require.Len(t, f.calls, 2)
	assert.Equal(t, []string{"pylint", "--version"}, f.calls[0])
	assert.Equal(t, path, f.calls[1][len(f.calls[1])-1])
	assert.Contains(t, f.calls[1], "--msg-template={line}:{column}:{msg_id}: {msg}")

	// the version is queried once
	_, err = l.LintFile(context.Background(), path)
	require.NoError(t, err)
	assert.Len(t, f.calls, 3)
}

func TestLintFile_Missing(t *testing.T) {
	l := newTestLinter(&fakePylint{version: "pylint 2.0.0"})
	_, err := l.LintFile(context.Background(), filepath.Join(t.TempDir(), "missing.py"))
	assert.Error(t, err)
}

func TestLintSource(t *testing.T) {
	f := &fakePylint{version: "pylint 2.17.4", stdout: "1:0:W0611: Unused import os\n", seen: make(map[string]string)}
	l := newTestLinter(f)

	src := "import os  # pylintmark: disable=C0111\n"
	diags, err := l.LintSource(context.Background(), "pkg/module", []byte(src))
	require.NoError(t, err)
	require.Len(t, diags, 1)
	assert.Equal(t, "pkg/module", diags[0].Path)
	assert.Equal(t, "os", diags[0].Near)

	require.Len(t, f.seen, 1)
	for file, content := range f.seen {
		assert.Equal(t, "module.py", filepath.Base(file))
		assert.Equal(t, src, content)
		_, err := os.Stat(filepath.Dir(file))
		assert.True(t, os.IsNotExist(err), "temporary directory was not removed")
	}
	assert.Contains(t, f.calls[1], "--disable=C0111")
}

func TestLint_StderrNoiseIsSuccess(t *testing.T) {
	f := &fakePylint{version: "pylint 1.9.2,", stderr: "No config file found, using default configuration\n"}
	l := newTestLinter(f)
	diags, err := l.LintSource(context.Background(), "a.py", []byte("x = 1\n"))
	require.NoError(t, err)
	assert.Empty(t, diags)
}

func TestLint_StderrFailure(t *testing.T) {
	f := &fakePylint{
		version:  "pylint 2.17.4",
		stderr:   "Traceback (most recent call last):\n  File \"x\", line 1\nImportError: no module named astroid\n",
		exitCode: 1,
	}
	l := newTestLinter(f)
	_, err := l.LintSource(context.Background(), "a.py", []byte("x = 1\n"))
	require.Error(t, err)
	var toolErr *ToolError
	require.True(t, errors.As(err, &toolErr))
	assert.Equal(t, "a.py", toolErr.Path)
	assert.True(t, strings.HasPrefix(toolErr.Stderr, "Traceback"))
}

func TestLint_RunnerFailure(t *testing.T) {
	f := &fakePylint{version: "pylint 2.17.4", err: errors.New("exec: not found")}
	_, err := newTestLinter(f).LintSource(context.Background(), "a.py", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestLint_Version(t *testing.T) {
	f := &fakePylint{version: "pylint 0.28.0"}
	_, err := newTestLinter(f).LintSource(context.Background(), "a.py", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not satisfy")

	// an unrecognised banner only warns
	f = &fakePylint{version: "something else entirely"}
	_, err = newTestLinter(f).LintSource(context.Background(), "a.py", nil)
	assert.NoError(t, err)

	f = &fakePylint{version: "pylint 0.28.0"}
	l := newTestLinter(f)
	l.CheckVersion = false
	_, err = l.LintSource(context.Background(), "a.py", nil)
	assert.NoError(t, err)
	assert.Len(t, f.calls, 1)
}

func TestVersion_RetriedAfterCancelledRun(t *testing.T) {
	f := &fakePylint{version: "pylint 2.17.4", stdout: "1:0:W0611: Unused import os\n"}
	l := newTestLinter(f)
	l.Runner = func(ctx context.Context, stdin io.Reader, prog string, args ...string) (string, string, error) {
		if err := ctx.Err(); err != nil {
			return "", "", err
		}
		return f.run(ctx, stdin, prog, args...)
	}

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := l.LintSource(cancelled, "a.py", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)

	diags, err := l.LintSource(context.Background(), "a.py", nil)
	require.NoError(t, err)
	require.Len(t, diags, 1)
	assert.Equal(t, "os", diags[0].Near)

	// the first answer is kept
	v, err := l.Version(cancelled)
	require.NoError(t, err)
	assert.Equal(t, "2.17.4", v.String())
}

func TestVersion_Timeout(t *testing.T) {
	l := New(Options{Executable: "pylint"})
	l.Timeout = 50 * time.Millisecond
	calls := 0
	l.Runner = func(ctx context.Context, stdin io.Reader, prog string, args ...string) (string, string, error) {
		calls++
		<-ctx.Done()
		return "", "", ctx.Err()
	}

	for i := 0; i < 2; i++ {
		_, err := l.LintSource(context.Background(), "a.py", nil)
		require.Error(t, err)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	}
	assert.Equal(t, 2, calls)
}

func TestLint_Symbols(t *testing.T) {
	f := &fakePylint{version: "pylint 2.17.4", stdout: "3:4:R0903: Too few public methods (1/2) (too-few-public-methods)\n"}
	l := newTestLinter(f)
	l.Options.Symbols = true
	diags, err := l.LintSource(context.Background(), "a.py", nil)
	require.NoError(t, err)
	require.Len(t, diags, 1)
	assert.Equal(t, "too-few-public-methods", diags[0].Symbol)
	assert.Nil(t, diags[0].Column)
}
