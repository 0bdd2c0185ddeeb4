// Package texteditdiff computes the minimal LSP TextEdit script that turns
// one document's text into another. It walks a diffmatchpatch diff
// left-to-right over the original string, fuses adjacent delete+insert
// pairs into a single range-replace, and converts each edit's byte range to
// LSP positions through internal/positionmap over the original rope.
package texteditdiff

import (
	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/shinyvision/queryls/internal/positionmap"
	"github.com/shinyvision/queryls/internal/rope"
)

// Edit is a single text replacement expressed in LSP positions, over the
// range [Start, End) of the *original* document.
type Edit struct {
	Start   positionmap.Position
	End     positionmap.Position
	NewText string
}

// Compute returns the edit script that transforms left into right.
// Applying the returned edits in order (tracked against the original left
// text) reproduces right exactly.
func Compute(left, right string) ([]Edit, error) {
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(left, right, false)
	diffs = dmp.DiffCleanupSemantic(diffs)

	r := rope.NewFromString(left)

	var edits []Edit
	offset := 0
	i := 0
	for i < len(diffs) {
		d := diffs[i]
		switch d.Type {
		case diffmatchpatch.DiffEqual:
			offset += len(d.Text)
			i++
		case diffmatchpatch.DiffDelete:
			delLen := len(d.Text)
			insText := ""
			consumed := 1
			if i+1 < len(diffs) && diffs[i+1].Type == diffmatchpatch.DiffInsert {
				insText = diffs[i+1].Text
				consumed = 2
			}
			start, err := positionmap.ByteToLSP(r, offset)
			if err != nil {
				return nil, err
			}
			end, err := positionmap.ByteToLSP(r, offset+delLen)
			if err != nil {
				return nil, err
			}
			edits = append(edits, Edit{Start: start, End: end, NewText: insText})
			offset += delLen
			i += consumed
		case diffmatchpatch.DiffInsert:
			start, err := positionmap.ByteToLSP(r, offset)
			if err != nil {
				return nil, err
			}
			edits = append(edits, Edit{Start: start, End: start, NewText: d.Text})
			i++
		}
	}
	return edits, nil
}
