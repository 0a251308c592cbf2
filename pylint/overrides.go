package pylint

import (
	"strings"

	"github.com/peterebden/go-deferred-regex"
)

// Comment carrying per-buffer settings, e.g. `# pylintmark: enable=W0612 disable=C0111,W0611`
var reOverride = deferredregex.DeferredRegex{Re: `#\s*pylintmark:\s*(?P<settings>.*?)\s*$`}

// Overrides are extra codes to enable or disable for a single buffer
type Overrides struct {
	Enable  []string
	Disable []string
}

// Empty returns true if the overrides change nothing
func (o Overrides) Empty() bool {
	return len(o.Enable) == 0 && len(o.Disable) == 0
}

// ParseOverrides collects the inline overrides found anywhere in the source. Unknown settings
// are logged and ignored.
func ParseOverrides(src string) Overrides {
	var res Overrides
	for _, line := range strings.Split(src, "\n") {
		if !strings.Contains(line, "pylintmark:") {
			continue
		}
		matches := reOverride.FindStringSubmatch(strings.TrimRight(line, "\r"))
		if matches == nil {
			continue
		}
		for _, setting := range strings.Fields(matches[1]) {
			key, value, found := strings.Cut(setting, "=")
			if !found {
				log.Warning("Ignoring inline setting without value: %s", setting)
				continue
			}
			codes := splitCodes(value)
			switch key {
			case "enable":
				res.Enable = append(res.Enable, codes...)
			case "disable":
				res.Disable = append(res.Disable, codes...)
			default:
				log.Warning("Ignoring unknown inline setting `%s`", key)
			}
		}
	}
	return res
}

func splitCodes(value string) []string {
	var codes []string
	for _, code := range strings.Split(value, ",") {
		if code = strings.TrimSpace(code); code != "" {
			codes = append(codes, code)
		}
	}
	return codes
}
