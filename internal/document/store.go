package document

import (
	"errors"
	"fmt"
	"sync"
)

var ErrDocumentNotFound = errors.New("document is not opened on the server")

// Store looks up open documents by URI.
type Store interface {
	Get(uri string) (*Document, bool)
	Insert(uri string, doc *Document)
	Remove(uri string)
}

// Find returns the document for uri or an error wrapping ErrDocumentNotFound.
func Find(store Store, uri string) (*Document, error) {
	doc, ok := store.Get(uri)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrDocumentNotFound, uri)
	}
	return doc, nil
}

// MapStore is a Store backed by a map. It is safe for concurrent use.
type MapStore struct {
	mu   sync.RWMutex
	docs map[string]*Document
}

func NewMapStore() *MapStore {
	return &MapStore{
		docs: make(map[string]*Document),
	}
}

func (s *MapStore) Get(uri string) (*Document, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[uri]
	return doc, ok
}

// Insert adds or replaces the document for uri.
func (s *MapStore) Insert(uri string, doc *Document) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[uri] = doc
}

func (s *MapStore) Remove(uri string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.docs, uri)
}
