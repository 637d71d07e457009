package boards

import (
	"context"
	"sort"

	"github.com/nimburion/taskboard/pkg/document"
	"github.com/nimburion/taskboard/pkg/repository"
)

// DocumentRepository stores boards and columns in the Board and Column collections.
type DocumentRepository struct {
	store document.Collections
}

// NewDocumentRepository creates a repository over store.
func NewDocumentRepository(store document.Collections) *DocumentRepository {
	return &DocumentRepository{store: store}
}

func (r *DocumentRepository) List(ctx context.Context, page repository.Pagination) ([]Board, error) {
	docs, err := r.store.GetCollection(ctx, BoardCollection)
	if err != nil {
		return nil, err
	}
	boards := make([]Board, 0, len(docs))
	for _, doc := range repository.Paginate(docs, page) {
		boards = append(boards, *boardFromDocument(doc))
	}
	return boards, nil
}

func (r *DocumentRepository) Get(ctx context.Context, id string) (*Board, error) {
	doc, ok, err := r.store.GetDocument(ctx, BoardCollection, document.ByID(id))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotFound
	}
	return boardFromDocument(doc), nil
}

func (r *DocumentRepository) Create(ctx context.Context, b *Board) error {
	added, err := r.store.AddDocument(ctx, BoardCollection, boardToDocument(b))
	if err != nil {
		return err
	}
	b.ID = added.ID()
	return nil
}

func (r *DocumentRepository) Update(ctx context.Context, b *Board) error {
	_, ok, err := r.store.UpdateDocument(ctx, BoardCollection, document.ByID(b.ID), document.Update{"title": b.Title})
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}

func (r *DocumentRepository) Delete(ctx context.Context, id string) error {
	_, ok, err := r.store.DeleteDocument(ctx, BoardCollection, document.ByID(id))
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}

func columnOf(boardID, id string) document.Query {
	return document.Match(document.Eq(document.IDField, id), document.Eq("boardId", boardID))
}

// ListColumns returns the board's columns sorted by order.
func (r *DocumentRepository) ListColumns(ctx context.Context, boardID string) ([]Column, error) {
	docs, err := r.store.GetDocuments(ctx, ColumnCollection, document.Match(document.Eq("boardId", boardID)))
	if err != nil {
		return nil, err
	}
	columns := make([]Column, 0, len(docs))
	for _, doc := range docs {
		columns = append(columns, columnFromDocument(doc))
	}
	sort.SliceStable(columns, func(i, j int) bool { return columns[i].Order < columns[j].Order })
	return columns, nil
}

func (r *DocumentRepository) GetColumn(ctx context.Context, boardID, id string) (*Column, error) {
	doc, ok, err := r.store.GetDocument(ctx, ColumnCollection, columnOf(boardID, id))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotFound
	}
	c := columnFromDocument(doc)
	return &c, nil
}

func (r *DocumentRepository) CreateColumn(ctx context.Context, c *Column) error {
	added, err := r.store.AddDocument(ctx, ColumnCollection, columnToDocument(c))
	if err != nil {
		return err
	}
	c.ID = added.ID()
	return nil
}

func (r *DocumentRepository) UpdateColumn(ctx context.Context, c *Column) error {
	fields := document.Update{"title": c.Title, "order": c.Order}
	_, ok, err := r.store.UpdateDocument(ctx, ColumnCollection, columnOf(c.BoardID, c.ID), fields)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}

func (r *DocumentRepository) DeleteColumn(ctx context.Context, boardID, id string) error {
	_, ok, err := r.store.DeleteDocument(ctx, ColumnCollection, columnOf(boardID, id))
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}

func (r *DocumentRepository) DeleteColumns(ctx context.Context, boardID string) (int64, error) {
	q := document.Match(document.Eq("boardId", boardID))
	docs, err := r.store.GetDocuments(ctx, ColumnCollection, q)
	if err != nil || len(docs) == 0 {
		return 0, err
	}
	if _, err := r.store.DeleteDocuments(ctx, ColumnCollection, q); err != nil {
		return 0, err
	}
	return int64(len(docs)), nil
}
