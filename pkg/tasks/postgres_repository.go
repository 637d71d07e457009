package tasks

import (
	"context"
	"database/sql"

	"github.com/nimburion/taskboard/pkg/repository"
)

// Table is the SQL table holding tasks.
const Table = "task"

var columns = []string{"id", "title", "order", "description", "userId", "boardId", "columnId"}

// taskMapper scans the nullable references through sql.NullString.
type taskMapper struct{}

func (taskMapper) Columns() []string { return columns }

func (taskMapper) ToRow(t *Task) ([]string, []interface{}, error) {
	return columns, []interface{}{
		t.ID, t.Title, t.Order, t.Description,
		nullString(t.UserID), nullString(t.BoardID), nullString(t.ColumnID),
	}, nil
}

func (taskMapper) FromRow(rows *sql.Rows) (*Task, error) {
	t := &Task{}
	var userID, boardID, columnID sql.NullString
	if err := rows.Scan(&t.ID, &t.Title, &t.Order, &t.Description, &userID, &boardID, &columnID); err != nil {
		return nil, err
	}
	t.UserID = stringPtr(userID)
	t.BoardID = stringPtr(boardID)
	t.ColumnID = stringPtr(columnID)
	return t, nil
}

func (taskMapper) GetID(t *Task) string { return t.ID }

func (taskMapper) SetID(t *Task, id string) { t.ID = id }

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func stringPtr(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	return &s.String
}

// PostgresRepository stores tasks in the task table.
type PostgresRepository struct {
	crud *repository.GenericCrudRepository[Task, string]
}

// NewPostgresRepository creates a repository over executor.
func NewPostgresRepository(executor repository.SQLExecutor) *PostgresRepository {
	return &PostgresRepository{
		crud: repository.NewGenericCrudRepository[Task, string](executor, Table, "id", taskMapper{}),
	}
}

func (r *PostgresRepository) ListByBoard(ctx context.Context, boardID string, page repository.Pagination) ([]Task, error) {
	return r.crud.FindAll(ctx, repository.QueryOptions{
		Filter:     repository.Filter{"boardId": boardID},
		Sort:       repository.Sort{Field: "order", Order: repository.SortAsc},
		Pagination: page,
	})
}

func (r *PostgresRepository) Get(ctx context.Context, boardID, id string) (*Task, error) {
	return r.crud.FindOne(ctx, repository.Filter{"id": id, "boardId": boardID})
}

func (r *PostgresRepository) Create(ctx context.Context, t *Task) error {
	return r.crud.Create(ctx, t)
}

// Update writes every column of t when the stored task still belongs to boardID.
func (r *PostgresRepository) Update(ctx context.Context, boardID string, t *Task) error {
	_, values, err := taskMapper{}.ToRow(t)
	if err != nil {
		return err
	}
	set := make(map[string]interface{}, len(columns)-1)
	for i, col := range columns[1:] {
		set[col] = values[i+1]
	}
	n, err := r.crud.UpdateWhere(ctx, repository.Filter{"id": t.ID, "boardId": boardID}, set)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) Delete(ctx context.Context, boardID, id string) error {
	n, err := r.crud.DeleteWhere(ctx, repository.Filter{"id": id, "boardId": boardID})
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) DeleteByBoard(ctx context.Context, boardID string) (int64, error) {
	return r.crud.DeleteWhere(ctx, repository.Filter{"boardId": boardID})
}

func (r *PostgresRepository) UnassignUser(ctx context.Context, userID string) (int64, error) {
	return r.crud.UpdateWhere(ctx, repository.Filter{"userId": userID}, map[string]interface{}{"userId": nil})
}
