package texteditdiff

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/shinyvision/queryls/internal/positionmap"
	"github.com/shinyvision/queryls/internal/rope"
)

// applyEdits reproduces the client-side invariant: applying the edits in
// order, offsets tracked against the original, must yield right exactly.
func applyEdits(t *testing.T, left string, edits []Edit) string {
	t.Helper()
	r := newRope(left)
	out := []byte(left)
	// apply from the end backwards so earlier offsets stay valid
	for i := len(edits) - 1; i >= 0; i-- {
		e := edits[i]
		start, err := positionmap.LSPToByte(r, e.Start)
		require.NoError(t, err)
		end, err := positionmap.LSPToByte(r, e.End)
		require.NoError(t, err)
		var next []byte
		next = append(next, out[:start]...)
		next = append(next, []byte(e.NewText)...)
		next = append(next, out[end:]...)
		out = next
	}
	return string(out)
}

func TestCompute_RoundTrip(t *testing.T) {
	cases := []struct {
		left, right string
	}{
		{"(a) @b", "(foo) @b"},
		{"hello\nworld\n", "hello\nthere\nworld\n"},
		{"", "fresh content"},
		{"stale content", ""},
		{"(identifier) @x", "(identifier) @x"},
		{"line one\nline two\nline three\n", "line one\nline TWO\nline three\n"},
	}
	for _, c := range cases {
		edits, err := Compute(c.left, c.right)
		require.NoError(t, err)
		got := applyEdits(t, c.left, edits)
		require.Equal(t, c.right, got)
	}
}

func newRope(s string) *rope.Rope { return rope.NewFromString(s) }
