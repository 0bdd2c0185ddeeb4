package positionmap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shinyvision/queryls/internal/rope"
)

func TestByteLSPRoundTrip(t *testing.T) {
	r := rope.NewFromString("hello\nworld\n")
	for offset := 0; offset <= r.Len(); offset++ {
		pos, err := ByteToLSP(r, offset)
		require.NoError(t, err)
		back, err := LSPToByte(r, pos)
		require.NoError(t, err)
		assert.Equal(t, offset, back, "offset %d", offset)
	}
}

func TestBytePointRoundTrip(t *testing.T) {
	r := rope.NewFromString("hello\nworld\n")
	for offset := 0; offset <= r.Len(); offset++ {
		pt, err := ByteToPoint(r, offset)
		require.NoError(t, err)
		back, err := PointToByte(r, pt)
		require.NoError(t, err)
		assert.Equal(t, offset, back, "offset %d", offset)
	}
}

func TestUTF16Column(t *testing.T) {
	// "𝔘" is a single rune above the BMP, encoded as a UTF-16 surrogate
	// pair, so the LSP character after it is 2, not 1.
	r := rope.NewFromString("𝔘nicode")
	pos, err := ByteToLSP(r, len("𝔘"))
	require.NoError(t, err)
	assert.Equal(t, uint32(2), pos.Character)

	offset, err := LSPToByte(r, Position{Line: 0, Character: 2})
	require.NoError(t, err)
	assert.Equal(t, len("𝔘"), offset)
}

func TestOnePastEndIsValid(t *testing.T) {
	r := rope.NewFromString("abc")
	pos, err := ByteToLSP(r, r.Len())
	require.NoError(t, err)
	offset, err := LSPToByte(r, pos)
	require.NoError(t, err)
	assert.Equal(t, r.Len(), offset)
}

func TestInsertEndPointNoNewline(t *testing.T) {
	p := InsertEndPoint(Point{Row: 2, Column: 4}, []byte("abc"))
	assert.Equal(t, Point{Row: 2, Column: 7}, p)
}

func TestInsertEndPointWithNewlines(t *testing.T) {
	p := InsertEndPoint(Point{Row: 2, Column: 4}, []byte("abc\ndef\ngh"))
	assert.Equal(t, Point{Row: 4, Column: 2}, p)
}

func TestLSPToByteOutOfRange(t *testing.T) {
	r := rope.NewFromString("abc")
	_, err := LSPToByte(r, Position{Line: 5, Character: 0})
	assert.Error(t, err)
}
