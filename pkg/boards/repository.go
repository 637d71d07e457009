package boards

import (
	"context"

	"github.com/nimburion/taskboard/pkg/repository"
)

// ErrNotFound is returned when no board or column has the requested id.
var ErrNotFound = repository.ErrNotFound

// Repository persists boards and their columns. Board values it returns
// carry no columns; the service loads them separately.
type Repository interface {
	List(ctx context.Context, page repository.Pagination) ([]Board, error)
	Get(ctx context.Context, id string) (*Board, error)
	Create(ctx context.Context, b *Board) error
	Update(ctx context.Context, b *Board) error
	Delete(ctx context.Context, id string) error

	ListColumns(ctx context.Context, boardID string) ([]Column, error)
	GetColumn(ctx context.Context, boardID, id string) (*Column, error)
	CreateColumn(ctx context.Context, c *Column) error
	UpdateColumn(ctx context.Context, c *Column) error
	DeleteColumn(ctx context.Context, boardID, id string) error
	// DeleteColumns removes every column of the board and returns how many were removed.
	DeleteColumns(ctx context.Context, boardID string) (int64, error)
}

// TaskCleaner removes the tasks of a deleted board.
type TaskCleaner interface {
	DeleteByBoard(ctx context.Context, boardID string) (int64, error)
}
