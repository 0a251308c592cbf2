package pylint

import (
	"fmt"
	"os"
	"strings"

	"github.com/google/shlex"
	"github.com/pkg/errors"

	"github.com/daedaleanai/pylintmark/matcher"
)

// EnvExecutable names the environment variable overriding the pylint executable
const EnvExecutable = "PYLINTMARK_PYLINT"

// Flags passed on every invocation. Reports and the persistent cache are disabled, every file
// is accepted as a module whatever its name.
var fixedFlags = []string{"--module-rgx=.*", "--reports=n", "--persistent=n"}

// Flags that change the shape of the output the matcher parses, refused in Args
var reservedFlags = []string{"--msg-template", "--output-format"}

// Options control how pylint is invoked
type Options struct {
	// Executable is the pylint program, looked up in PATH when not absolute
	Executable string
	// RCFile is the pylint configuration file, empty for pylint's own lookup
	RCFile string
	// Codes or symbols to enable and disable
	Enable  []string
	Disable []string
	// Paths are prepended to sys.path through an init hook
	Paths []string
	// Args are extra arguments, split with shell quoting rules
	Args string
	// Symbols asks pylint to append the symbolic name to every message
	Symbols bool
}

// DefaultOptions returns the options used without configuration.
func DefaultOptions() Options {
	executable := os.Getenv(EnvExecutable)
	if executable == "" {
		executable = "pylint"
	}
	return Options{Executable: executable}
}

// WithOverrides returns a copy of the options with the codes of the inline overrides added
func (o Options) WithOverrides(ov Overrides) Options {
	res := o
	res.Enable = append(append([]string{}, o.Enable...), ov.Enable...)
	res.Disable = append(append([]string{}, o.Disable...), ov.Disable...)
	return res
}

// Template returns the message template matching the options
func (o Options) Template() string {
	if o.Symbols {
		return matcher.MessageTemplateWithSymbol
	}
	return matcher.MessageTemplate
}

// InitHook returns the python statement extending sys.path, or the empty string when no paths
// are configured.
func (o Options) InitHook() string {
	if len(o.Paths) == 0 {
		return ""
	}
	quoted := make([]string, len(o.Paths))
	for i, p := range o.Paths {
		quoted[i] = fmt.Sprintf("%q", p)
	}
	return fmt.Sprintf("import sys; sys.path[0:0] = [%s]", strings.Join(quoted, ", "))
}

// Command returns the argv linting the given file. The first element is the executable.
func (o Options) Command(file string) ([]string, error) {
	extra, err := shlex.Split(o.Args)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid pylint arguments `%s`", o.Args)
	}
	for _, arg := range extra {
		for _, flag := range reservedFlags {
			if arg == flag || strings.HasPrefix(arg, flag+"=") {
				return nil, errors.Errorf("pylint argument `%s` is set by pylintmark and cannot be overridden", flag)
			}
		}
	}

	argv := []string{o.Executable, "--msg-template=" + o.Template()}
	argv = append(argv, fixedFlags...)
	if o.RCFile != "" {
		argv = append(argv, "--rcfile="+o.RCFile)
	}
	if len(o.Disable) > 0 {
		argv = append(argv, "--disable="+strings.Join(o.Disable, ","))
	}
	if len(o.Enable) > 0 {
		argv = append(argv, "--enable="+strings.Join(o.Enable, ","))
	}
	if hook := o.InitHook(); hook != "" {
		argv = append(argv, "--init-hook="+hook)
	}
	argv = append(argv, extra...)
	return append(argv, file), nil
}
