// Package unifieddiff prints a colored unified diff between two texts to an
// io.Writer, for the batch formatter's --check mode. Hunk headers are cyan,
// deletions red, additions green; equal lines are omitted entirely (no
// context). Hunk-header line counts are computed directly from each hunk's
// line slices, and nothing beyond the diff itself is printed.
package unifieddiff

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/sergi/go-diff/diffmatchpatch"
)

var (
	hunkColor = color.New(color.FgCyan)
	delColor  = color.New(color.FgRed)
	insColor  = color.New(color.FgGreen)
)

// hunk is a contiguous run of changed lines: the lines deleted from left
// starting at old (1-based) and the lines inserted into right starting at
// new (1-based).
type hunk struct {
	old, new int
	oldLines []string
	newLines []string
}

// Print writes a unified diff transforming left into right to w. It
// returns true if there were any differences to print.
func Print(w io.Writer, left, right string) bool {
	hunks := computeHunks(left, right)
	for _, h := range hunks {
		printHunk(w, h)
	}
	return len(hunks) > 0
}

func computeHunks(left, right string) []hunk {
	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToChars(left, right)
	diffs := dmp.DiffMain(a, b, false)
	diffs = dmp.DiffCharsToLines(diffs, lines)

	var hunks []hunk
	oldLine, newLine := 1, 1
	var cur *hunk

	flush := func() {
		if cur != nil {
			hunks = append(hunks, *cur)
			cur = nil
		}
	}

	for _, d := range diffs {
		ls := splitLines(d.Text)
		switch d.Type {
		case diffmatchpatch.DiffEqual:
			flush()
			oldLine += len(ls)
			newLine += len(ls)
		case diffmatchpatch.DiffDelete:
			if cur == nil {
				cur = &hunk{old: oldLine, new: newLine}
			}
			cur.oldLines = append(cur.oldLines, ls...)
			oldLine += len(ls)
		case diffmatchpatch.DiffInsert:
			if cur == nil {
				cur = &hunk{old: oldLine, new: newLine}
			}
			cur.newLines = append(cur.newLines, ls...)
			newLine += len(ls)
		}
	}
	flush()
	return hunks
}

// splitLines splits a DiffLinesToChars chunk back into its constituent
// lines, dropping the single trailing empty element a trailing newline
// produces.
func splitLines(text string) []string {
	if text == "" {
		return nil
	}
	lines := strings.Split(text, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

func printHunk(w io.Writer, h hunk) {
	header := fmt.Sprintf("@@ -%d,%d +%d,%d @@", h.old, len(h.oldLines), h.new, len(h.newLines))
	_, _ = hunkColor.Fprintln(w, header)
	for _, line := range h.oldLines {
		_, _ = delColor.Fprintln(w, "-"+line)
	}
	for _, line := range h.newLines {
		_, _ = insColor.Fprintln(w, "+"+line)
	}
}
