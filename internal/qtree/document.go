// Package qtree holds the incremental document + syntax-tree store:
// Document wraps a single URI's rope, parse tree, and optional
// target-grammar info; DocumentStore is the concurrent URI-keyed map of
// them.
package qtree

import (
	"context"
	"fmt"
	"sync"

	queryforest "github.com/alexaandru/go-sitter-forest/query"
	sitter "github.com/alexaandru/go-tree-sitter-bare"

	"github.com/shinyvision/queryls/internal/langinfo"
	"github.com/shinyvision/queryls/internal/positionmap"
	"github.com/shinyvision/queryls/internal/rope"
)

// queryLanguage is the single, fixed grammar every document in this server
// is parsed with: the tree-sitter query DSL itself. The *target* grammar a
// query validates against is a separate, dynamically resolved LanguageInfo
// (see internal/loader), never used to parse the document text.
func queryLanguage() *sitter.Language {
	return sitter.NewLanguage(queryforest.GetLanguage())
}

// QueryLanguage exposes the query-DSL grammar used to parse every document
// this server handles, for callers outside this package that need to
// compile their own queries against it (the diagnostics engine, the
// formatter's tag-query, the batch formatter's standalone pipeline).
func QueryLanguage() *sitter.Language {
	return queryLanguage()
}

// Document holds one open document's rope, parse tree, and (once resolved)
// target-grammar vocabulary. The pair (rope, tree) is only ever swapped
// together, under mu, so a reader never observes a rope/tree mismatch.
type Document struct {
	mu     sync.RWMutex
	uri    string
	parser *sitter.Parser
	rope   *rope.Rope
	tree   *sitter.Tree
	lang   *langinfo.LanguageInfo
}

// NewDocument constructs an empty Document for the given URI. Call Open to
// give it initial content.
func NewDocument(uri string) *Document {
	p := sitter.NewParser()
	_ = p.SetLanguage(queryLanguage())
	return &Document{uri: uri, parser: p}
}

// Open replaces the document's content wholesale and parses it fresh.
func (d *Document) Open(ctx context.Context, text []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.rope = rope.New(text)
	if d.tree != nil {
		d.tree.Close()
		d.tree = nil
	}
	tree, err := d.parser.ParseString(ctx, nil, d.rope.Bytes())
	if err != nil {
		return fmt.Errorf("qtree: parse %s: %w", d.uri, err)
	}
	d.tree = tree
	return nil
}

// Change is a single LSP content change: either a full-text replacement
// (Range == nil) or an incremental range replacement.
type Change struct {
	Range   *Range
	NewText string
}

// Range is a byte-offset-free LSP range: start/end in LSP line/character
// coordinates, matching the wire format changes arrive in.
type Range struct {
	Start positionmap.Position
	End   positionmap.Position
}

// ApplyChanges applies a sequence of content changes in order:
//  1. snapshot the pre-edit rope (for old-end-byte translation)
//  2. splice the rope (or replace it wholesale, for a rangeless change)
//  3. build an InputEdit from pre-edit start/old-end and post-edit new-end
//  4. edit the tree and reparse with the tree as previous tree
func (d *Document) ApplyChanges(ctx context.Context, changes []Change) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, ch := range changes {
		if err := d.applyOneLocked(ctx, ch); err != nil {
			return err
		}
	}
	return nil
}

func (d *Document) applyOneLocked(ctx context.Context, ch Change) error {
	if d.rope == nil {
		d.rope = rope.New(nil)
	}
	preEdit := d.rope // snapshot: old-end positions are computed against this

	if ch.Range == nil {
		d.rope = rope.New([]byte(ch.NewText))
		if d.tree != nil {
			d.tree.Close()
			d.tree = nil
		}
		tree, err := d.parser.ParseString(ctx, nil, d.rope.Bytes())
		if err != nil {
			return fmt.Errorf("qtree: reparse %s: %w", d.uri, err)
		}
		d.tree = tree
		return nil
	}

	startByte, err := positionmap.LSPToByte(preEdit, ch.Range.Start)
	if err != nil {
		return fmt.Errorf("qtree: change start: %w", err)
	}
	oldEndByte, err := positionmap.LSPToByte(preEdit, ch.Range.End)
	if err != nil {
		return fmt.Errorf("qtree: change end: %w", err)
	}
	startPoint, err := positionmap.ByteToPoint(preEdit, startByte)
	if err != nil {
		return err
	}
	oldEndPoint, err := positionmap.ByteToPoint(preEdit, oldEndByte)
	if err != nil {
		return err
	}

	d.rope = preEdit.Clone()
	d.rope.Splice(startByte, oldEndByte, []byte(ch.NewText))

	newEndByte := startByte + len(ch.NewText)
	newEndPoint := positionmap.InsertEndPoint(startPoint, []byte(ch.NewText))

	edit := sitter.InputEdit{
		StartIndex:  uint(startByte),
		OldEndIndex: uint(oldEndByte),
		NewEndIndex: uint(newEndByte),
		StartPoint: sitter.Point{
			Row:    uint(startPoint.Row),
			Column: uint(startPoint.Column),
		},
		OldEndPoint: sitter.Point{
			Row:    uint(oldEndPoint.Row),
			Column: uint(oldEndPoint.Column),
		},
		NewEndPoint: sitter.Point{
			Row:    uint(newEndPoint.Row),
			Column: uint(newEndPoint.Column),
		},
	}

	if d.tree != nil {
		d.tree.Edit(edit)
	}
	newTree, err := d.parser.ParseString(ctx, d.tree, d.rope.Bytes())
	if err != nil {
		return fmt.Errorf("qtree: incremental reparse %s: %w", d.uri, err)
	}
	if d.tree != nil {
		d.tree.Close()
	}
	d.tree = newTree
	return nil
}

// Close releases the tree-sitter resources owned by this document.
func (d *Document) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.tree != nil {
		d.tree.Close()
		d.tree = nil
	}
}

// SetLanguageInfo atomically replaces the resolved target-grammar
// vocabulary. Readers observe either the old value or the new one, never a
// partial update.
func (d *Document) SetLanguageInfo(info *langinfo.LanguageInfo) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.lang = info
}

// Snapshot is a consistent, read-only view of a document's rope, tree, and
// language info.
type Snapshot struct {
	URI  string
	Rope *rope.Rope
	Tree *sitter.Tree
	Lang *langinfo.LanguageInfo
}

// Snapshot returns a consistent read-only view under the document's shared
// lock. The returned rope is cloned so callers may read it without holding
// any lock; the tree is shared (tree-sitter trees are safe for concurrent
// read-only traversal) and must not be mutated by the caller.
func (d *Document) Snapshot() Snapshot {
	d.mu.RLock()
	defer d.mu.RUnlock()
	var r *rope.Rope
	if d.rope != nil {
		r = d.rope.Clone()
	}
	return Snapshot{URI: d.uri, Rope: r, Tree: d.tree, Lang: d.lang}
}
