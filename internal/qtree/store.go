package qtree

import (
	"context"
	"sync"
)

// DocumentStore is the concurrent URI→Document map. Distinct URIs never
// block each other: the store's own lock only guards the map itself
// (insert/delete/lookup), while each Document serializes its own edits and
// reads via its internal lock.
type DocumentStore struct {
	mu   sync.RWMutex
	docs map[string]*Document
}

// NewDocumentStore constructs an empty store.
func NewDocumentStore() *DocumentStore {
	return &DocumentStore{docs: make(map[string]*Document)}
}

// Open creates (or replaces) the document at uri with the given initial
// text.
func (s *DocumentStore) Open(ctx context.Context, uri string, text []byte) (*Document, error) {
	doc := NewDocument(uri)
	if err := doc.Open(ctx, text); err != nil {
		return nil, err
	}

	s.mu.Lock()
	if old, ok := s.docs[uri]; ok {
		old.Close()
	}
	s.docs[uri] = doc
	s.mu.Unlock()

	return doc, nil
}

// Change applies a batch of content changes to the document at uri, in
// order. A no-op if the document is not open.
func (s *DocumentStore) Change(ctx context.Context, uri string, changes []Change) error {
	doc, ok := s.Get(uri)
	if !ok {
		return nil
	}
	return doc.ApplyChanges(ctx, changes)
}

// Close drops the entry for uri, releasing its tree-sitter resources.
func (s *DocumentStore) Close(uri string) {
	s.mu.Lock()
	doc, ok := s.docs[uri]
	delete(s.docs, uri)
	s.mu.Unlock()

	if ok {
		doc.Close()
	}
}

// Get returns the document at uri, if open.
func (s *DocumentStore) Get(uri string) (*Document, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[uri]
	return doc, ok
}

// Snapshot returns a consistent read-only view of the document at uri.
func (s *DocumentStore) Snapshot(uri string) (Snapshot, bool) {
	doc, ok := s.Get(uri)
	if !ok {
		return Snapshot{}, false
	}
	return doc.Snapshot(), true
}

// URIs returns the URIs of all currently open documents.
func (s *DocumentStore) URIs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	uris := make([]string, 0, len(s.docs))
	for uri := range s.docs {
		uris = append(uris, uri)
	}
	return uris
}
