package git

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTopLevel(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git is not installed")
	}
	dir := t.TempDir()
	require.NoError(t, exec.Command("git", "init", "-q", dir).Run())
	sub := filepath.Join(dir, "pkg", "sub")
	require.NoError(t, os.MkdirAll(sub, 0755))

	want, err := filepath.EvalSymlinks(dir)
	require.NoError(t, err)

	got, err := TopLevel(sub)
	require.NoError(t, err)
	got, err = filepath.EvalSymlinks(got)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	// cached
	again, err := TopLevel(sub)
	require.NoError(t, err)
	again, _ = filepath.EvalSymlinks(again)
	assert.Equal(t, got, again)
}

func TestTopLevel_NotARepository(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git is not installed")
	}
	dir := t.TempDir()
	// keep git from finding a repository above the temporary directory
	os.Setenv("GIT_CEILING_DIRECTORIES", filepath.Dir(dir))
	defer os.Unsetenv("GIT_CEILING_DIRECTORIES")

	_, err := TopLevel(dir)
	assert.Error(t, err)
}
