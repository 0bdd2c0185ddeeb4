// Package scmfiles enumerates .scm query files beneath a set of
// directories for the batch formatter. Symlinks are followed once; a
// symlink loop (a directory realpath already visited on the current walk)
// terminates rather than recursing forever.
package scmfiles

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
)

const pattern = "*.scm"

// Discover returns every regular file with extension .scm found beneath
// roots, sorted for deterministic batch processing. A root that is itself
// a .scm file is included directly.
func Discover(roots []string) ([]string, error) {
	var out []string
	for _, root := range roots {
		if err := walk(root, map[string]bool{}, &out); err != nil {
			return nil, err
		}
	}
	return dedupSorted(out), nil
}

// walk visits dir (or a single file), following symlinked directories once
// each; visited tracks realpaths of directories already descended into on
// this walk so a symlink cycle terminates instead of recursing forever.
func walk(path string, visited map[string]bool, out *[]string) error {
	info, err := os.Lstat(path)
	if err != nil {
		return err
	}

	resolved := path
	if info.Mode()&os.ModeSymlink != 0 {
		real, err := filepath.EvalSymlinks(path)
		if err != nil {
			return err
		}
		resolved = real
		info, err = os.Stat(resolved)
		if err != nil {
			return err
		}
	}

	if !info.IsDir() {
		if matched, err := doublestar.Match(pattern, filepath.Base(resolved)); err == nil && matched {
			*out = append(*out, path)
		}
		return nil
	}

	abs, err := filepath.Abs(resolved)
	if err != nil {
		return err
	}
	if visited[abs] {
		return nil
	}
	visited[abs] = true

	entries, err := os.ReadDir(path)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if err := walk(filepath.Join(path, entry.Name()), visited, out); err != nil {
			return err
		}
	}
	return nil
}

func dedupSorted(paths []string) []string {
	seen := make(map[string]bool, len(paths))
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}
