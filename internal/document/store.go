package document

import (
	"fmt"
	"sort"
	"sync"
)

// Store owns every open document, keyed by URI. Mutation happens only through
// Open, Apply and Close; edits are serialized by the store lock, so a version
// is never half-applied when a reader takes a snapshot.
type Store struct {
	mu   sync.RWMutex
	docs map[string]*Document
}

func NewStore() *Store {
	return &Store{docs: make(map[string]*Document)}
}

func (s *Store) Open(uri, languageID, text string, version int32) Document {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := &Document{
		URI:        uri,
		LanguageID: languageID,
		Text:       text,
		Version:    version,
	}
	s.docs[uri] = doc
	return *doc
}

// Get returns a snapshot of the document, if open.
func (s *Store) Get(uri string) (Document, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.docs[uri]
	if !ok {
		return Document{}, false
	}
	return *doc, true
}

// Apply applies the content changes in order and bumps the document to the
// given version. It returns a snapshot of the result.
func (s *Store) Apply(uri string, version int32, changes []Change) (Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.docs[uri]
	if !ok {
		return Document{}, fmt.Errorf("document not open: %s", uri)
	}

	for _, change := range changes {
		doc.apply(change)
	}
	doc.Version = version
	return *doc, nil
}

// All returns a snapshot of every open document, sorted by URI.
func (s *Store) All() []Document {
	s.mu.RLock()
	defer s.mu.RUnlock()

	docs := make([]Document, 0, len(s.docs))
	for _, doc := range s.docs {
		docs = append(docs, *doc)
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].URI < docs[j].URI })
	return docs
}

func (s *Store) Close(uri string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.docs, uri)
}

// Version returns the current version of the document, if open.
func (s *Store) Version(uri string) (int32, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.docs[uri]
	if !ok {
		return 0, false
	}
	return doc.Version, true
}
