package tasks

import (
	"context"

	"github.com/nimburion/taskboard/pkg/document"
	"github.com/nimburion/taskboard/pkg/repository"
)

// DocumentRepository stores tasks in the Task collection of a document store.
type DocumentRepository struct {
	store document.Collections
}

// NewDocumentRepository creates a repository over store.
func NewDocumentRepository(store document.Collections) *DocumentRepository {
	return &DocumentRepository{store: store}
}

func inBoard(boardID, id string) document.Query {
	return document.Match(document.Eq(document.IDField, id), document.Eq("boardId", boardID))
}

func (r *DocumentRepository) ListByBoard(ctx context.Context, boardID string, page repository.Pagination) ([]Task, error) {
	docs, err := r.store.GetDocuments(ctx, Collection, document.Match(document.Eq("boardId", boardID)))
	if err != nil {
		return nil, err
	}
	tasks := make([]Task, 0, len(docs))
	for _, doc := range repository.Paginate(docs, page) {
		tasks = append(tasks, *fromDocument(doc))
	}
	return tasks, nil
}

func (r *DocumentRepository) Get(ctx context.Context, boardID, id string) (*Task, error) {
	doc, ok, err := r.store.GetDocument(ctx, Collection, inBoard(boardID, id))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotFound
	}
	return fromDocument(doc), nil
}

func (r *DocumentRepository) Create(ctx context.Context, t *Task) error {
	added, err := r.store.AddDocument(ctx, Collection, toDocument(t))
	if err != nil {
		return err
	}
	t.ID = added.ID()
	return nil
}

func (r *DocumentRepository) Update(ctx context.Context, boardID string, t *Task) error {
	fields := document.Update(toDocument(t))
	delete(fields, document.IDField)
	_, ok, err := r.store.UpdateDocument(ctx, Collection, inBoard(boardID, t.ID), fields)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}

func (r *DocumentRepository) Delete(ctx context.Context, boardID, id string) error {
	_, ok, err := r.store.DeleteDocument(ctx, Collection, inBoard(boardID, id))
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}

func (r *DocumentRepository) DeleteByBoard(ctx context.Context, boardID string) (int64, error) {
	q := document.Match(document.Eq("boardId", boardID))
	docs, err := r.store.GetDocuments(ctx, Collection, q)
	if err != nil || len(docs) == 0 {
		return 0, err
	}
	if _, err := r.store.DeleteDocuments(ctx, Collection, q); err != nil {
		return 0, err
	}
	return int64(len(docs)), nil
}

func (r *DocumentRepository) UnassignUser(ctx context.Context, userID string) (int64, error) {
	q := document.Match(document.Eq("userId", userID))
	docs, err := r.store.GetDocuments(ctx, Collection, q)
	if err != nil || len(docs) == 0 {
		return 0, err
	}
	if _, err := r.store.UpdateDocuments(ctx, Collection, q, document.Update{"userId": nil}); err != nil {
		return 0, err
	}
	return int64(len(docs)), nil
}
