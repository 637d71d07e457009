package users

import (
	"context"
	"errors"

	"github.com/nimburion/taskboard/pkg/repository"
)

var (
	// ErrNotFound is returned when no user has the requested id.
	ErrNotFound = repository.ErrNotFound
	// ErrLoginTaken is returned when another user already owns the login.
	ErrLoginTaken = errors.New("login already taken")
)

// Repository persists users.
type Repository interface {
	List(ctx context.Context, page repository.Pagination) ([]User, error)
	Get(ctx context.Context, id string) (*User, error)
	// FindByLogin returns ErrNotFound when no user owns login.
	FindByLogin(ctx context.Context, login string) (*User, error)
	Create(ctx context.Context, u *User) error
	// Update replaces every field of the stored user with u.
	Update(ctx context.Context, u *User) error
	Delete(ctx context.Context, id string) error
}

// TaskUnassigner clears the assignee of every task assigned to a user.
type TaskUnassigner interface {
	UnassignUser(ctx context.Context, userID string) (int64, error)
}
