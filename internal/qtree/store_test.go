package qtree

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shinyvision/queryls/internal/positionmap"
)

func TestOpenThenSnapshot(t *testing.T) {
	s := NewDocumentStore()
	ctx := context.Background()

	_, err := s.Open(ctx, "file:///a.scm", []byte("(a) @b"))
	require.NoError(t, err)

	snap, ok := s.Snapshot("file:///a.scm")
	require.True(t, ok)
	assert.Equal(t, "(a) @b", snap.Rope.String())
	require.NotNil(t, snap.Tree)
	assert.Equal(t, "program", snap.Tree.RootNode().Type())
}

func TestIncrementalChangeRoundTrip(t *testing.T) {
	s := NewDocumentStore()
	ctx := context.Background()

	_, err := s.Open(ctx, "file:///a.scm", []byte("(a) @b"))
	require.NoError(t, err)

	// Replace "a" with "foo".
	err = s.Change(ctx, "file:///a.scm", []Change{{
		Range: &Range{
			Start: positionmap.Position{Line: 0, Character: 1},
			End:   positionmap.Position{Line: 0, Character: 2},
		},
		NewText: "foo",
	}})
	require.NoError(t, err)

	snap, ok := s.Snapshot("file:///a.scm")
	require.True(t, ok)
	assert.Equal(t, "(foo) @b", snap.Rope.String())
	assert.Equal(t, "program", snap.Tree.RootNode().Type())
	assert.False(t, snap.Tree.RootNode().HasError())
}

func TestCloseDropsDocument(t *testing.T) {
	s := NewDocumentStore()
	ctx := context.Background()
	_, err := s.Open(ctx, "file:///a.scm", []byte("(a) @b"))
	require.NoError(t, err)

	s.Close("file:///a.scm")

	_, ok := s.Snapshot("file:///a.scm")
	assert.False(t, ok)
}

func TestDistinctURIsIndependent(t *testing.T) {
	s := NewDocumentStore()
	ctx := context.Background()
	_, err := s.Open(ctx, "file:///a.scm", []byte("(a) @x"))
	require.NoError(t, err)
	_, err = s.Open(ctx, "file:///b.scm", []byte("(b) @y"))
	require.NoError(t, err)

	snapA, _ := s.Snapshot("file:///a.scm")
	snapB, _ := s.Snapshot("file:///b.scm")
	assert.Equal(t, "(a) @x", snapA.Rope.String())
	assert.Equal(t, "(b) @y", snapB.Rope.String())
}
