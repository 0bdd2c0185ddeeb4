package scmfiles

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDiscover_FindsScmFilesRecursively(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "nested"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.scm"), []byte(""), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "nested", "b.scm"), []byte(""), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ignore.txt"), []byte(""), 0o644))

	got, err := Discover([]string{dir})
	require.NoError(t, err)
	require.Len(t, got, 2)
}

func TestDiscover_BreaksSymlinkLoop(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks require elevated privileges on windows")
	}
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.scm"), []byte(""), 0o644))
	require.NoError(t, os.Symlink(dir, filepath.Join(dir, "loop")))

	got, err := Discover([]string{dir})
	require.NoError(t, err)
	require.Len(t, got, 1)
}
