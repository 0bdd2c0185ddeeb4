// Package formatdriver implements the standalone query-file formatter's
// batch mode: enumerate, format in parallel, then either rewrite atomically
// or diff and report.
package formatdriver

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	sitter "github.com/alexaandru/go-tree-sitter-bare"
	"golang.org/x/sync/errgroup"

	"github.com/shinyvision/queryls/internal/format"
	"github.com/shinyvision/queryls/internal/metaquery"
	"github.com/shinyvision/queryls/internal/qtree"
	"github.com/shinyvision/queryls/internal/scmfiles"
	"github.com/shinyvision/queryls/internal/unifieddiff"
)

// Mode selects the driver's behavior once a file has been reformatted.
type Mode int

const (
	// ModeWrite rewrites each mismatched file in place.
	ModeWrite Mode = iota
	// ModeCheck prints a unified diff for each mismatched file and never
	// writes; the caller is expected to treat any mismatch as a failure.
	ModeCheck
)

// FileResult is the outcome of formatting a single file. Original and
// Formatted are only populated when Mismatch is true, so the caller can
// print a diff without reformatting.
type FileResult struct {
	Path      string
	Mismatch  bool
	Original  string
	Formatted string
	Err       error
}

// Run enumerates every .scm file beneath dirs, formats each one in
// parallel, and applies mode's behavior. diffOut receives unified diffs in
// ModeCheck; it is ignored in ModeWrite. The returned exit code is 0 on
// full success, 1 if any file mismatched (check mode), failed to read, or
// failed to write.
func Run(ctx context.Context, dirs []string, mode Mode, diffOut io.Writer) (int, []FileResult, error) {
	files, err := scmfiles.Discover(dirs)
	if err != nil {
		return 1, nil, fmt.Errorf("formatdriver: discover: %w", err)
	}

	rulesEngine, err := format.CompileRules(qtree.QueryLanguage())
	if err != nil {
		return 1, nil, fmt.Errorf("formatdriver: compile format rules: %w", err)
	}

	results := make([]FileResult, len(files))
	g, gctx := errgroup.WithContext(ctx)
	for i, path := range files {
		i, path := i, path
		g.Go(func() error {
			results[i] = formatOne(gctx, path, rulesEngine)
			return nil
		})
	}
	_ = g.Wait() // per-file errors are carried in results, not propagated

	failed := false
	for i := range results {
		r := &results[i]
		if r.Err != nil {
			fmt.Fprintf(os.Stderr, "queryfmt: %s: %v\n", r.Path, r.Err)
			failed = true
			continue
		}
		if !r.Mismatch {
			continue
		}
		switch mode {
		case ModeCheck:
			failed = true
			fmt.Fprintf(diffOut, "--- %s\n+++ %s\n", r.Path, r.Path)
			unifieddiff.Print(diffOut, r.Original, r.Formatted)
		case ModeWrite:
			if err := writeAtomic(r.Path, []byte(r.Formatted)); err != nil {
				r.Err = fmt.Errorf("write: %w", err)
				fmt.Fprintf(os.Stderr, "queryfmt: %s: write: %v\n", r.Path, err)
				failed = true
			}
		}
	}

	if failed {
		return 1, results, nil
	}
	return 0, results, nil
}

func formatOne(ctx context.Context, path string, rulesEngine *metaquery.Engine) FileResult {
	original, err := os.ReadFile(path)
	if err != nil {
		return FileResult{Path: path, Err: fmt.Errorf("read: %w", err)}
	}

	parser := sitter.NewParser()
	if ok := parser.SetLanguage(qtree.QueryLanguage()); !ok {
		return FileResult{Path: path, Err: fmt.Errorf("set language: unsupported language")}
	}
	tree, err := parser.ParseString(ctx, nil, original)
	if err != nil {
		return FileResult{Path: path, Err: fmt.Errorf("parse: %w", err)}
	}
	defer tree.Close()

	rules := format.BuildRuleMap(rulesEngine, tree.RootNode(), original)
	formatted := format.New().Format(tree.RootNode(), original, rules)

	if formatted == string(original) {
		return FileResult{Path: path}
	}
	return FileResult{Path: path, Mismatch: true, Original: string(original), Formatted: formatted}
}

// writeAtomic writes data to a temp file in the same directory as path,
// then renames it over path, so a crash or concurrent reader never
// observes a partially written file.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".queryfmt-*.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	info, err := os.Stat(path)
	if err == nil {
		_ = os.Chmod(tmpPath, info.Mode())
	}
	return os.Rename(tmpPath, path)
}
