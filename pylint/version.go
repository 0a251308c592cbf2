package pylint

import (
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/peterebden/go-deferred-regex"
	"github.com/pkg/errors"
)

// DefaultVersionRequirement is the oldest pylint whose message template support we rely on
const DefaultVersionRequirement = ">= 1.0"

// The first line of `pylint --version`, e.g. `pylint 2.17.4` or `pylint.py 1.9.2,`
var reVersion = deferredregex.DeferredRegex{Re: `^pylint\S* (\d+\.\d+\.\d+)`}

// ErrNoVersion is returned when the output of `pylint --version` has no recognisable banner
var ErrNoVersion = errors.New("no pylint version in output")

// ParseVersion extracts the pylint version from the output of `pylint --version`
func ParseVersion(output string) (*semver.Version, error) {
	for _, line := range strings.Split(output, "\n") {
		matches := reVersion.FindStringSubmatch(strings.TrimSpace(line))
		if matches == nil {
			continue
		}
		v, err := semver.NewVersion(matches[1])
		if err != nil {
			return nil, errors.Wrapf(err, "invalid pylint version `%s`", matches[1])
		}
		return v, nil
	}
	return nil, ErrNoVersion
}

// CheckVersion verifies that the version satisfies the requirement, e.g. `>= 1.0`
func CheckVersion(v *semver.Version, requirement string) error {
	c, err := semver.NewConstraint(requirement)
	if err != nil {
		return errors.Wrapf(err, "invalid version requirement `%s`", requirement)
	}
	if !c.Check(v) {
		return errors.Errorf("pylint %s does not satisfy the requirement `%s`", v, requirement)
	}
	return nil
}
