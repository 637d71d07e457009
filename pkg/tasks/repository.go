package tasks

import (
	"context"

	"github.com/nimburion/taskboard/pkg/repository"
)

// ErrNotFound is returned when no task of the board has the requested id.
var ErrNotFound = repository.ErrNotFound

// Repository persists tasks. Lookups are scoped to a board.
type Repository interface {
	ListByBoard(ctx context.Context, boardID string, page repository.Pagination) ([]Task, error)
	Get(ctx context.Context, boardID, id string) (*Task, error)
	Create(ctx context.Context, t *Task) error
	// Update replaces the task stored under boardID with t.
	Update(ctx context.Context, boardID string, t *Task) error
	Delete(ctx context.Context, boardID, id string) error
	// DeleteByBoard removes every task of the board and returns how many were removed.
	DeleteByBoard(ctx context.Context, boardID string) (int64, error)
	// UnassignUser clears userId on every task of the user and returns how many changed.
	UnassignUser(ctx context.Context, userID string) (int64, error)
}

// BoardLookup reports whether a board exists.
type BoardLookup interface {
	Exists(ctx context.Context, boardID string) (bool, error)
}
