package boards

import (
	"context"

	"github.com/nimburion/taskboard/pkg/repository"
)

// SQL tables.
const (
	BoardTable  = "board"
	ColumnTable = "board_column"
)

// PostgresRepository stores boards in the board table and columns in board_column.
type PostgresRepository struct {
	boards  *repository.GenericCrudRepository[Board, string]
	columns *repository.GenericCrudRepository[Column, string]
}

// NewPostgresRepository creates a repository over executor.
func NewPostgresRepository(executor repository.SQLExecutor) *PostgresRepository {
	return &PostgresRepository{
		boards: repository.NewGenericCrudRepository[Board, string](
			executor, BoardTable, "id", repository.NewReflectionMapper[Board, string]("ID"),
		),
		columns: repository.NewGenericCrudRepository[Column, string](
			executor, ColumnTable, "id", repository.NewReflectionMapper[Column, string]("ID"),
		),
	}
}

func (r *PostgresRepository) List(ctx context.Context, page repository.Pagination) ([]Board, error) {
	boards, err := r.boards.FindAll(ctx, repository.QueryOptions{
		Sort:       repository.Sort{Field: "title", Order: repository.SortAsc},
		Pagination: page,
	})
	if err != nil {
		return nil, err
	}
	for i := range boards {
		boards[i].Columns = []Column{}
	}
	return boards, nil
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (*Board, error) {
	b, err := r.boards.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	b.Columns = []Column{}
	return b, nil
}

func (r *PostgresRepository) Create(ctx context.Context, b *Board) error {
	return r.boards.Create(ctx, b)
}

func (r *PostgresRepository) Update(ctx context.Context, b *Board) error {
	return r.boards.Update(ctx, b)
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	return r.boards.Delete(ctx, id)
}

func (r *PostgresRepository) ListColumns(ctx context.Context, boardID string) ([]Column, error) {
	return r.columns.FindAll(ctx, repository.QueryOptions{
		Filter: repository.Filter{"boardId": boardID},
		Sort:   repository.Sort{Field: "order", Order: repository.SortAsc},
	})
}

func (r *PostgresRepository) GetColumn(ctx context.Context, boardID, id string) (*Column, error) {
	return r.columns.FindOne(ctx, repository.Filter{"id": id, "boardId": boardID})
}

func (r *PostgresRepository) CreateColumn(ctx context.Context, c *Column) error {
	return r.columns.Create(ctx, c)
}

func (r *PostgresRepository) UpdateColumn(ctx context.Context, c *Column) error {
	n, err := r.columns.UpdateWhere(ctx,
		repository.Filter{"id": c.ID, "boardId": c.BoardID},
		map[string]interface{}{"title": c.Title, "order": c.Order},
	)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) DeleteColumn(ctx context.Context, boardID, id string) error {
	n, err := r.columns.DeleteWhere(ctx, repository.Filter{"id": id, "boardId": boardID})
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) DeleteColumns(ctx context.Context, boardID string) (int64, error) {
	return r.columns.DeleteWhere(ctx, repository.Filter{"boardId": boardID})
}
