// Package positionmap converts between the three coordinate systems a
// document needs to support: byte offsets, LSP positions (0-based line,
// UTF-16 code unit column), and grammar points (0-based row, byte column).
// It is pure arithmetic over an *rope.Rope; it holds no state of its own.
package positionmap

import (
	"fmt"
	"unicode/utf8"

	"github.com/shinyvision/queryls/internal/rope"
)

// Position is an LSP position: 0-based line, UTF-16 code-unit character.
type Position struct {
	Line      uint32
	Character uint32
}

// Point is a tree-sitter grammar point: 0-based row, byte column within the
// row.
type Point struct {
	Row    uint32
	Column uint32
}

// ByteToLSP converts a byte offset to an LSP position. offset == r.Len() is
// the valid synthetic "one past end" position.
func ByteToLSP(r *rope.Rope, offset int) (Position, error) {
	if offset < 0 || offset > r.Len() {
		return Position{}, fmt.Errorf("positionmap: offset %d out of range [0,%d]", offset, r.Len())
	}
	line := r.LineOf(offset)
	lineStart, ok := r.LineStartByte(line)
	if !ok {
		return Position{}, fmt.Errorf("positionmap: line %d has no start", line)
	}
	char := utf16Len(r.Slice(lineStart, offset))
	return Position{Line: uint32(line), Character: uint32(char)}, nil
}

// LSPToByte converts an LSP position to a byte offset. Fails if line or
// character is out of range of the document.
func LSPToByte(r *rope.Rope, pos Position) (int, error) {
	lineStart, ok := r.LineStartByte(int(pos.Line))
	if !ok {
		return 0, fmt.Errorf("positionmap: line %d out of range", pos.Line)
	}
	lineEnd, ok := r.LineEndByte(int(pos.Line))
	if !ok {
		lineEnd = r.Len()
	}
	content := r.Slice(lineStart, lineEnd)

	offset := lineStart
	remaining := int(pos.Character)
	for remaining > 0 {
		if len(content) == 0 {
			return 0, fmt.Errorf("positionmap: character %d beyond end of line %d", pos.Character, pos.Line)
		}
		ch, size := utf8.DecodeRune(content)
		units := 1
		if ch >= 0x10000 {
			units = 2
		}
		if units > remaining {
			// position falls in the middle of a surrogate pair; land on the
			// rune's first byte, matching the "never panic, clamp to start"
			// rule for mid-character offsets.
			break
		}
		offset += size
		content = content[size:]
		remaining -= units
	}
	return offset, nil
}

// ByteToPoint converts a byte offset to a grammar point (row, byte column).
func ByteToPoint(r *rope.Rope, offset int) (Point, error) {
	if offset < 0 || offset > r.Len() {
		return Point{}, fmt.Errorf("positionmap: offset %d out of range [0,%d]", offset, r.Len())
	}
	line := r.LineOf(offset)
	lineStart, ok := r.LineStartByte(line)
	if !ok {
		return Point{}, fmt.Errorf("positionmap: line %d has no start", line)
	}
	return Point{Row: uint32(line), Column: uint32(offset - lineStart)}, nil
}

// PointToByte converts a grammar point back to a byte offset.
func PointToByte(r *rope.Rope, p Point) (int, error) {
	lineStart, ok := r.LineStartByte(int(p.Row))
	if !ok {
		return 0, fmt.Errorf("positionmap: row %d out of range", p.Row)
	}
	return lineStart + int(p.Column), nil
}

// PointToLSP converts a grammar point to an LSP position.
func PointToLSP(r *rope.Rope, p Point) (Position, error) {
	offset, err := PointToByte(r, p)
	if err != nil {
		return Position{}, err
	}
	return ByteToLSP(r, offset)
}

// InsertEndPoint computes the post-edit end point for an insertion of
// newText starting at startPoint: row = startPoint's row + newlines in the
// insert, column = bytes after the last newline in the insert (or, if the
// insert has no newline, startPoint's column plus len(newText)).
func InsertEndPoint(startPoint Point, newText []byte) Point {
	lines := 0
	lastNewline := -1
	for i, b := range newText {
		if b == '\n' {
			lines++
			lastNewline = i
		}
	}
	if lines == 0 {
		return Point{Row: startPoint.Row, Column: startPoint.Column + uint32(len(newText))}
	}
	return Point{Row: startPoint.Row + uint32(lines), Column: uint32(len(newText) - lastNewline - 1)}
}

func utf16Len(b []byte) int {
	n := 0
	for len(b) > 0 {
		r, size := utf8.DecodeRune(b)
		if r >= 0x10000 {
			n += 2
		} else {
			n++
		}
		b = b[size:]
	}
	return n
}
