// Package rope provides the document text buffer used by the rest of the
// server: a byte slice with a lazily built, binary-searchable line-start
// index, mutated in place by Splice and re-parsed incrementally by the
// query-tree store.
package rope

import "sort"

// Rope wraps a document's UTF-8 bytes and caches line-start offsets so that
// line/byte lookups are O(log n) once the index has been built. The index is
// dropped on every Splice and rebuilt lazily on next access, trading a full
// O(n) rebuild per edit for a much smaller implementation than a balanced
// tree; see DESIGN.md for why that trade was made.
type Rope struct {
	buf       []byte
	lineStart []int // byte offset of the start of line i; lineStart[0] == 0
}

// New constructs a Rope from the given text. The caller's slice is copied so
// the Rope owns its storage.
func New(text []byte) *Rope {
	r := &Rope{buf: append([]byte(nil), text...)}
	r.buildIndex()
	return r
}

// NewFromString constructs a Rope from a string.
func NewFromString(text string) *Rope {
	return New([]byte(text))
}

func (r *Rope) buildIndex() {
	r.lineStart = make([]int, 1, 16)
	r.lineStart[0] = 0
	for i, b := range r.buf {
		if b == '\n' {
			r.lineStart = append(r.lineStart, i+1)
		}
	}
}

func (r *Rope) ensureIndex() {
	if r.lineStart == nil {
		r.buildIndex()
	}
}

// Bytes returns the rope's current contents. Callers must not mutate the
// returned slice.
func (r *Rope) Bytes() []byte { return r.buf }

// String returns the rope's current contents as a string.
func (r *Rope) String() string { return string(r.buf) }

// Len returns the byte length of the document.
func (r *Rope) Len() int { return len(r.buf) }

// LineCount returns the number of lines in the document. A document with no
// trailing newline still has at least one line.
func (r *Rope) LineCount() int {
	r.ensureIndex()
	return len(r.lineStart)
}

// LineStartByte returns the byte offset of the start of the given 0-based
// line. Returns (len(buf), true) if line is one past the last line, and
// (0, false) if line is negative or further out of range.
func (r *Rope) LineStartByte(line int) (int, bool) {
	r.ensureIndex()
	if line < 0 {
		return 0, false
	}
	if line == len(r.lineStart) {
		return len(r.buf), true
	}
	if line > len(r.lineStart) {
		return 0, false
	}
	return r.lineStart[line], true
}

// LineEndByte returns the byte offset just past the given line's content,
// excluding its trailing newline if any.
func (r *Rope) LineEndByte(line int) (int, bool) {
	start, ok := r.LineStartByte(line)
	if !ok {
		return 0, false
	}
	r.ensureIndex()
	var end int
	if line+1 < len(r.lineStart) {
		end = r.lineStart[line+1] - 1 // exclude '\n'
	} else {
		end = len(r.buf)
	}
	if end < start {
		end = start
	}
	return end, true
}

// LineOf returns the 0-based line index containing the given byte offset.
// offset == Len() maps to the last line (the synthetic "one past end"
// position a document's final cursor location needs).
func (r *Rope) LineOf(offset int) int {
	r.ensureIndex()
	// sort.Search finds the first lineStart > offset; the enclosing line is
	// one before that.
	i := sort.Search(len(r.lineStart), func(i int) bool {
		return r.lineStart[i] > offset
	})
	return i - 1
}

// Slice returns a copy of the bytes in [start, end).
func (r *Rope) Slice(start, end int) []byte {
	if start < 0 {
		start = 0
	}
	if end > len(r.buf) {
		end = len(r.buf)
	}
	if start >= end {
		return nil
	}
	out := make([]byte, end-start)
	copy(out, r.buf[start:end])
	return out
}

// Splice replaces buf[start:end] with newText and invalidates the cached
// line index. start and end are clamped to the buffer before replacing.
func (r *Rope) Splice(start, end int, newText []byte) {
	if start < 0 {
		start = 0
	}
	if end > len(r.buf) {
		end = len(r.buf)
	}
	if start > end {
		start = end
	}
	out := make([]byte, 0, len(r.buf)-(end-start)+len(newText))
	out = append(out, r.buf[:start]...)
	out = append(out, newText...)
	out = append(out, r.buf[end:]...)
	r.buf = out
	r.lineStart = nil
}

// Clone returns an independent copy of the rope, suitable for use as a
// pre-edit snapshot before an incremental edit is applied.
func (r *Rope) Clone() *Rope {
	clone := &Rope{buf: append([]byte(nil), r.buf...)}
	if r.lineStart != nil {
		clone.lineStart = append([]int(nil), r.lineStart...)
	}
	return clone
}
