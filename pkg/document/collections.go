package document

import "context"

// Collections is the context-aware view of a document store consumed by
// repositories. Both the in-memory Store and the MongoDB adapter satisfy it.
type Collections interface {
	EnsureCollection(ctx context.Context, name string) error
	GetCollection(ctx context.Context, name string) ([]Document, error)
	AddDocument(ctx context.Context, name string, doc Document) (Document, error)
	// AddDocumentUnless inserts doc unless a document matches conflict (ErrConflict).
	AddDocumentUnless(ctx context.Context, name string, conflict Query, doc Document) (Document, error)
	GetDocument(ctx context.Context, name string, q Query) (Document, bool, error)
	GetDocuments(ctx context.Context, name string, q Query) ([]Document, error)
	UpdateDocument(ctx context.Context, name string, q Query, u Update) (Document, bool, error)
	// UpdateDocumentUnless updates the first match of q unless another document
	// matches conflict (ErrConflict).
	UpdateDocumentUnless(ctx context.Context, name string, q, conflict Query, u Update) (Document, bool, error)
	UpdateDocuments(ctx context.Context, name string, q Query, u Update) (bool, error)
	DeleteDocument(ctx context.Context, name string, q Query) (Document, bool, error)
	DeleteDocuments(ctx context.Context, name string, q Query) (bool, error)
}

// MemoryCollections adapts a Store to the Collections interface.
// Apart from ErrConflict, the only error it returns is the context's own.
type MemoryCollections struct {
	store *Store
}

// NewMemoryCollections wraps store.
func NewMemoryCollections(store *Store) *MemoryCollections {
	return &MemoryCollections{store: store}
}

// Store returns the wrapped store.
func (m *MemoryCollections) Store() *Store {
	return m.store
}

func (m *MemoryCollections) EnsureCollection(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.store.EnsureCollection(name)
	return nil
}

func (m *MemoryCollections) GetCollection(ctx context.Context, name string) ([]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return m.store.GetCollection(name), nil
}

func (m *MemoryCollections) AddDocument(ctx context.Context, name string, doc Document) (Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return m.store.AddDocument(name, doc), nil
}

func (m *MemoryCollections) AddDocumentUnless(ctx context.Context, name string, conflict Query, doc Document) (Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return m.store.AddDocumentUnless(name, conflict, doc)
}

func (m *MemoryCollections) GetDocument(ctx context.Context, name string, q Query) (Document, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	doc, ok := m.store.GetDocument(name, q)
	return doc, ok, nil
}

func (m *MemoryCollections) GetDocuments(ctx context.Context, name string, q Query) ([]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return m.store.GetDocuments(name, q), nil
}

func (m *MemoryCollections) UpdateDocument(ctx context.Context, name string, q Query, u Update) (Document, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	doc, ok := m.store.UpdateDocument(name, q, u)
	return doc, ok, nil
}

func (m *MemoryCollections) UpdateDocumentUnless(ctx context.Context, name string, q, conflict Query, u Update) (Document, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	return m.store.UpdateDocumentUnless(name, q, conflict, u)
}

func (m *MemoryCollections) UpdateDocuments(ctx context.Context, name string, q Query, u Update) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return m.store.UpdateDocuments(name, q, u), nil
}

func (m *MemoryCollections) DeleteDocument(ctx context.Context, name string, q Query) (Document, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	doc, ok := m.store.DeleteDocument(name, q)
	return doc, ok, nil
}

func (m *MemoryCollections) DeleteDocuments(ctx context.Context, name string, q Query) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return m.store.DeleteDocuments(name, q), nil
}

// HealthCheck always succeeds for the in-memory store.
func (m *MemoryCollections) HealthCheck(ctx context.Context) error {
	return ctx.Err()
}

// Close is a no-op; the store lives as long as the process.
func (m *MemoryCollections) Close() error {
	return nil
}
