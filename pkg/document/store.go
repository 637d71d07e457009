package document

import (
	"errors"
	"sort"
	"sync"

	"github.com/nimburion/taskboard/pkg/identifier"
)

// ErrConflict is returned by the conditional writes when another document
// already matches the conflict query.
var ErrConflict = errors.New("document: conflicting document exists")

// Store keeps named, ordered collections of documents in memory.
// It is safe for concurrent use; a single store-wide lock guards every
// find-then-mutate sequence.
type Store struct {
	mu             sync.RWMutex
	collections    map[string][]Document
	autoGenerateID bool
	ids            identifier.Generator
}

// Option configures a Store.
type Option func(*Store)

// WithAutoGenerateID controls whether AddDocument assigns an id to documents
// that lack one. Enabled by default.
func WithAutoGenerateID(enabled bool) Option {
	return func(s *Store) {
		s.autoGenerateID = enabled
	}
}

// WithIDGenerator replaces the default UUID generator.
func WithIDGenerator(g identifier.Generator) Option {
	return func(s *Store) {
		if g != nil {
			s.ids = g
		}
	}
}

// New creates an empty store.
func New(opts ...Option) *Store {
	s := &Store{
		collections:    make(map[string][]Document),
		autoGenerateID: true,
		ids:            identifier.UUID{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// EnsureCollection creates the named collection if it does not exist yet.
func (s *Store) EnsureCollection(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureLocked(name)
}

// GetCollection returns a copy of every document in the collection, in
// insertion order. Unknown collections are created empty.
func (s *Store) GetCollection(name string) []Document {
	var out []Document
	s.read(name, func(docs []Document) {
		out = cloneAll(docs)
	})
	return out
}

// AddDocument appends a copy of doc to the collection and returns another copy.
// When auto-generation is enabled and the document has no truthy id, a new id
// is assigned. Duplicate ids are not rejected.
func (s *Store) AddDocument(name string, doc Document) Document {
	stored := s.prepare(doc)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.collections[name] = append(s.ensureLocked(name), stored)
	return stored.Clone()
}

// AddDocumentUnless behaves like AddDocument, except that nothing is inserted
// and ErrConflict is returned when a document matching conflict already exists.
// The check and the insert happen under one lock.
func (s *Store) AddDocumentUnless(name string, conflict Query, doc Document) (Document, error) {
	stored := s.prepare(doc)

	s.mu.Lock()
	defer s.mu.Unlock()
	docs := s.ensureLocked(name)
	if indexOf(docs, conflict) >= 0 {
		return nil, ErrConflict
	}
	s.collections[name] = append(docs, stored)
	return stored.Clone(), nil
}

func (s *Store) prepare(doc Document) Document {
	stored := doc.Clone()
	if stored == nil {
		stored = Document{}
	}
	if s.autoGenerateID && !stored.HasID() {
		stored[IDField] = s.ids.Generate()
	}
	return stored
}

// GetDocument returns a copy of the first document matching q.
func (s *Store) GetDocument(name string, q Query) (Document, bool) {
	var (
		out   Document
		found bool
	)
	s.read(name, func(docs []Document) {
		if i := indexOf(docs, q); i >= 0 {
			out, found = docs[i].Clone(), true
		}
	})
	return out, found
}

// GetDocuments returns copies of every document matching q, in insertion order.
// The empty query returns the whole collection.
func (s *Store) GetDocuments(name string, q Query) []Document {
	out := []Document{}
	s.read(name, func(docs []Document) {
		if q.IsEmpty() {
			out = cloneAll(docs)
			return
		}
		for _, doc := range docs {
			if q.Matches(doc) {
				out = append(out, doc.Clone())
			}
		}
	})
	return out
}

// UpdateDocument merges u onto the first document matching q and returns a
// copy of the merged document. Fields missing from u are left untouched.
func (s *Store) UpdateDocument(name string, q Query, u Update) (Document, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	docs := s.ensureLocked(name)
	i := indexOf(docs, q)
	if i < 0 {
		return nil, false
	}
	docs[i].merge(u)
	return docs[i].Clone(), true
}

// UpdateDocumentUnless merges u onto the first document matching q unless a
// different document matches conflict, in which case nothing changes and
// ErrConflict is returned. A missing target reports false before any conflict.
func (s *Store) UpdateDocumentUnless(name string, q, conflict Query, u Update) (Document, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	docs := s.ensureLocked(name)
	i := indexOf(docs, q)
	if i < 0 {
		return nil, false, nil
	}
	for j, doc := range docs {
		if j != i && conflict.Matches(doc) {
			return nil, true, ErrConflict
		}
	}
	docs[i].merge(u)
	return docs[i].Clone(), true, nil
}

// UpdateDocuments merges u onto every document matching q.
// It reports whether at least one document matched.
func (s *Store) UpdateDocuments(name string, q Query, u Update) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	updated := false
	for _, doc := range s.ensureLocked(name) {
		if q.Matches(doc) {
			doc.merge(u)
			updated = true
		}
	}
	return updated
}

// DeleteDocument removes the first document matching q and returns it.
// The relative order of the remaining documents is preserved.
func (s *Store) DeleteDocument(name string, q Query) (Document, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	docs := s.ensureLocked(name)
	i := indexOf(docs, q)
	if i < 0 {
		return nil, false
	}
	removed := docs[i]
	s.collections[name] = append(docs[:i:i], docs[i+1:]...)
	return removed.Clone(), true
}

// DeleteDocuments removes every document matching q and reports whether any
// matched. The match set is fixed before removal starts, so removing one
// document never causes another match to be skipped.
func (s *Store) DeleteDocuments(name string, q Query) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	docs := s.ensureLocked(name)
	matched := make(map[int]struct{})
	for i, doc := range docs {
		if q.Matches(doc) {
			matched[i] = struct{}{}
		}
	}
	if len(matched) == 0 {
		return false
	}

	kept := make([]Document, 0, len(docs)-len(matched))
	for i, doc := range docs {
		if _, drop := matched[i]; !drop {
			kept = append(kept, doc)
		}
	}
	s.collections[name] = kept
	return true
}

// Collections returns the names of the existing collections, sorted.
func (s *Store) Collections() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.collections))
	for name := range s.collections {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// read runs fn against the collection under the read lock, falling back to
// the write lock when the collection has to be created first.
func (s *Store) read(name string, fn func([]Document)) {
	s.mu.RLock()
	if docs, ok := s.collections[name]; ok {
		fn(docs)
		s.mu.RUnlock()
		return
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.ensureLocked(name))
}

func (s *Store) ensureLocked(name string) []Document {
	docs, ok := s.collections[name]
	if !ok {
		docs = []Document{}
		s.collections[name] = docs
	}
	return docs
}

func indexOf(docs []Document, q Query) int {
	for i, doc := range docs {
		if q.Matches(doc) {
			return i
		}
	}
	return -1
}
