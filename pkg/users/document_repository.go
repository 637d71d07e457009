package users

import (
	"context"
	"errors"

	"github.com/nimburion/taskboard/pkg/document"
	"github.com/nimburion/taskboard/pkg/repository"
)

// DocumentRepository stores users in the User collection of a document store.
type DocumentRepository struct {
	store document.Collections
}

// NewDocumentRepository creates a repository over store.
func NewDocumentRepository(store document.Collections) *DocumentRepository {
	return &DocumentRepository{store: store}
}

func (r *DocumentRepository) List(ctx context.Context, page repository.Pagination) ([]User, error) {
	docs, err := r.store.GetCollection(ctx, Collection)
	if err != nil {
		return nil, err
	}
	users := make([]User, 0, len(docs))
	for _, doc := range repository.Paginate(docs, page) {
		users = append(users, *fromDocument(doc))
	}
	return users, nil
}

func (r *DocumentRepository) Get(ctx context.Context, id string) (*User, error) {
	return r.findOne(ctx, document.ByID(id))
}

func (r *DocumentRepository) FindByLogin(ctx context.Context, login string) (*User, error) {
	return r.findOne(ctx, byLogin(login))
}

func (r *DocumentRepository) findOne(ctx context.Context, q document.Query) (*User, error) {
	doc, ok, err := r.store.GetDocument(ctx, Collection, q)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotFound
	}
	return fromDocument(doc), nil
}

func byLogin(login string) document.Query {
	return document.Match(document.Eq("login", login))
}

// Create inserts u. The login check and the insert are one store operation.
func (r *DocumentRepository) Create(ctx context.Context, u *User) error {
	added, err := r.store.AddDocumentUnless(ctx, Collection, byLogin(u.Login), toDocument(u))
	if errors.Is(err, document.ErrConflict) {
		return ErrLoginTaken
	}
	if err != nil {
		return err
	}
	u.ID = added.ID()
	return nil
}

func (r *DocumentRepository) Update(ctx context.Context, u *User) error {
	fields := document.Update(toDocument(u))
	delete(fields, document.IDField)
	_, ok, err := r.store.UpdateDocumentUnless(ctx, Collection, document.ByID(u.ID), byLogin(u.Login), fields)
	if errors.Is(err, document.ErrConflict) {
		return ErrLoginTaken
	}
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}

func (r *DocumentRepository) Delete(ctx context.Context, id string) error {
	_, ok, err := r.store.DeleteDocument(ctx, Collection, document.ByID(id))
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}
