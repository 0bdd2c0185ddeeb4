package formatdriver

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRun_CheckModeReportsMismatchWithoutWriting(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "q.scm")
	original := "(a)@b"
	require.NoError(t, os.WriteFile(path, []byte(original), 0o644))

	var diffs bytes.Buffer
	code, results, err := Run(context.Background(), []string{dir}, ModeCheck, &diffs)
	require.NoError(t, err)
	require.Equal(t, 1, code)
	require.Len(t, results, 1)
	require.True(t, results[0].Mismatch)

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, original, string(got)) // check mode never writes
}

func TestRun_WriteModeRewritesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "q.scm")
	require.NoError(t, os.WriteFile(path, []byte("(a)@b"), 0o644))

	var diffs bytes.Buffer
	code, results, err := Run(context.Background(), []string{dir}, ModeWrite, &diffs)
	require.NoError(t, err)
	require.Equal(t, 0, code)
	require.Len(t, results, 1)

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NotEqual(t, "(a)@b", string(got))
}

func TestRun_NoFilesIsSuccess(t *testing.T) {
	dir := t.TempDir()
	var diffs bytes.Buffer
	code, results, err := Run(context.Background(), []string{dir}, ModeCheck, &diffs)
	require.NoError(t, err)
	require.Equal(t, 0, code)
	require.Empty(t, results)
}
