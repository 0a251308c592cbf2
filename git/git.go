package git

import (
	"path/filepath"
	"sync"

	"github.com/pkg/errors"

	"github.com/daedaleanai/pylintmark/linepipes"
)

var (
	topLevels   = make(map[string]string)
	topLevelsMu sync.Mutex
)

// TopLevel returns the root of the work tree containing dir. Bare repositories have no work
// tree and are reported as errors.
func TopLevel(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	topLevelsMu.Lock()
	defer topLevelsMu.Unlock()
	if path, ok := topLevels[abs]; ok {
		return path, nil
	}

	// See details about "working directory" in https://git-scm.com/docs/githooks
	bare, err := linepipes.Single(linepipes.Run("git", "-C", abs, "rev-parse", "--is-bare-repository"))
	if err != nil {
		return "", errors.Wrapf(err, "`%s` is not in a git repository", abs)
	}
	if bare == "true" {
		return "", errors.Errorf("`%s` is a bare repository", abs)
	}

	toplevel, err := linepipes.Single(linepipes.Run("git", "-C", abs, "rev-parse", "--show-toplevel"))
	if err != nil {
		return "", errors.Wrap(err, "find work tree root")
	}
	topLevels[abs] = toplevel
	return toplevel, nil
}
