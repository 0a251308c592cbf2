package pylint

import (
	"fmt"
	"strings"

	"github.com/peterebden/go-deferred-regex"
)

// Lines pylint and the python interpreter write to stderr on successful runs
var noise = []*deferredregex.DeferredRegex{
	{Re: `^No config file found, using default configuration$`},
	{Re: `^Using config file `},
	{Re: `^(?:pylint|astroid)\S* \d+\.\d+`},
	{Re: `^Python \d+\.\d+`},
	{Re: `^\[GCC |^\[Clang `},
}

// A python warning. The interpreter follows it with the offending source line, indented.
var rePythonWarning = deferredregex.DeferredRegex{
	Re: `^\S.*:\d+: (?:Deprecation|PendingDeprecation|Future|User)Warning: `,
}

// FilterStderr removes the lines pylint writes to stderr without having failed. Anything left
// is a genuine failure.
func FilterStderr(s string) string {
	var kept []string
	skipIndented := false
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimRight(line, "\r")
		if skipIndented && (strings.HasPrefix(line, " ") || strings.HasPrefix(line, "\t")) {
			skipIndented = false
			continue
		}
		skipIndented = false
		if strings.TrimSpace(line) == "" {
			continue
		}
		if rePythonWarning.FindStringSubmatch(line) != nil {
			skipIndented = true
			continue
		}
		if isNoise(line) {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}

func isNoise(line string) bool {
	for _, re := range noise {
		if re.FindStringSubmatch(line) != nil {
			return true
		}
	}
	return false
}

// A ToolError reports pylint failing to lint a file
type ToolError struct {
	Path   string
	Stderr string
}

func (e *ToolError) Error() string {
	return fmt.Sprintf("pylint failed on %s:\n%s", e.Path, e.Stderr)
}
