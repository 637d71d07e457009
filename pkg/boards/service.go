package boards

import (
	"context"
	"errors"
	"fmt"

	"github.com/nimburion/taskboard/pkg/controller"
	"github.com/nimburion/taskboard/pkg/identifier"
	"github.com/nimburion/taskboard/pkg/observability/logger"
	"github.com/nimburion/taskboard/pkg/observability/metrics"
	"github.com/nimburion/taskboard/pkg/repository"
)

// Service holds the board and column business rules.
type Service struct {
	repo  Repository
	tasks TaskCleaner
	tx    repository.TransactionManager
	log   logger.Logger
}

// NewService creates a board service. tx wraps the multi-step writes.
func NewService(repo Repository, tasks TaskCleaner, tx repository.TransactionManager, log logger.Logger) *Service {
	if tx == nil {
		tx = repository.NoTransaction{}
	}
	return &Service{repo: repo, tasks: tasks, tx: tx, log: log}
}

func notFound(id string) error {
	return controller.NewNotFoundError(fmt.Sprintf("Board with the id %s is not found", id))
}

func columnNotFound(id string) error {
	return controller.NewNotFoundError(fmt.Sprintf("Column with the id %s is not found", id))
}

func newColumn(boardID string, in ColumnInput) *Column {
	id := in.ID
	if !identifier.IsValid(id) {
		id = identifier.New()
	}
	return &Column{ID: id, Title: in.Title, Order: in.Order, BoardID: boardID}
}

// List returns one page of boards with their columns.
func (s *Service) List(ctx context.Context, page repository.Pagination) ([]Board, error) {
	boards, err := s.repo.List(ctx, page)
	if err != nil {
		return nil, err
	}
	for i := range boards {
		if boards[i].Columns, err = s.repo.ListColumns(ctx, boards[i].ID); err != nil {
			return nil, err
		}
	}
	return boards, nil
}

// Get returns the board with its columns.
func (s *Service) Get(ctx context.Context, id string) (*Board, error) {
	b, err := s.repo.Get(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, notFound(id)
	}
	if err != nil {
		return nil, err
	}
	if b.Columns, err = s.repo.ListColumns(ctx, id); err != nil {
		return nil, err
	}
	return b, nil
}

// Exists reports whether a board with id exists.
func (s *Service) Exists(ctx context.Context, id string) (bool, error) {
	_, err := s.repo.Get(ctx, id)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, ErrNotFound):
		return false, nil
	default:
		return false, err
	}
}

// Create stores a board and its initial columns.
func (s *Service) Create(ctx context.Context, req *CreateBoardRequest) (*Board, error) {
	b := &Board{ID: identifier.New(), Title: req.Title}
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, b); err != nil {
			return err
		}
		columns, err := s.createColumns(ctx, b.ID, req.Columns)
		b.Columns = columns
		return err
	})
	if err != nil {
		return nil, err
	}
	s.log.WithContext(ctx).Info("board created", "board_id", b.ID, "columns", len(b.Columns))
	return b, nil
}

func (s *Service) createColumns(ctx context.Context, boardID string, inputs []ColumnInput) ([]Column, error) {
	columns := make([]Column, 0, len(inputs))
	for _, in := range inputs {
		c := newColumn(boardID, in)
		if err := s.repo.CreateColumn(ctx, c); err != nil {
			return nil, err
		}
		columns = append(columns, *c)
	}
	return columns, nil
}

// Update renames the board. When req carries columns they replace the board's column set.
func (s *Service) Update(ctx context.Context, id string, req *UpdateBoardRequest) (*Board, error) {
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		b, err := s.repo.Get(ctx, id)
		if err != nil {
			return err
		}
		if req.Title != nil {
			b.Title = *req.Title
			if err := s.repo.Update(ctx, b); err != nil {
				return err
			}
		}
		if !req.SetColumns {
			return nil
		}
		if _, err := s.repo.DeleteColumns(ctx, id); err != nil {
			return err
		}
		_, err = s.createColumns(ctx, id, req.Columns)
		return err
	})
	if errors.Is(err, ErrNotFound) {
		return nil, notFound(id)
	}
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

// Delete removes the board together with its columns and tasks.
func (s *Service) Delete(ctx context.Context, id string) error {
	var removedTasks int64
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		n, err := s.tasks.DeleteByBoard(ctx, id)
		if err != nil {
			return fmt.Errorf("delete board tasks: %w", err)
		}
		if _, err := s.repo.DeleteColumns(ctx, id); err != nil {
			return fmt.Errorf("delete board columns: %w", err)
		}
		if err := s.repo.Delete(ctx, id); err != nil {
			return err
		}
		// Second sweep for tasks inserted while the board was still visible.
		// Later inserts find the board gone and remove themselves.
		late, err := s.tasks.DeleteByBoard(ctx, id)
		if err != nil {
			return fmt.Errorf("delete board tasks: %w", err)
		}
		removedTasks = n + late
		return nil
	})
	if errors.Is(err, ErrNotFound) {
		return notFound(id)
	}
	if err != nil {
		return err
	}

	metrics.RecordCascade("board_tasks", removedTasks)
	s.log.WithContext(ctx).Info("board deleted", "board_id", id, "removed_tasks", removedTasks)
	return nil
}

// ListColumns returns the columns of an existing board.
func (s *Service) ListColumns(ctx context.Context, boardID string) ([]Column, error) {
	b, err := s.Get(ctx, boardID)
	if err != nil {
		return nil, err
	}
	return b.Columns, nil
}

// GetColumn returns a column of the board.
func (s *Service) GetColumn(ctx context.Context, boardID, id string) (*Column, error) {
	c, err := s.repo.GetColumn(ctx, boardID, id)
	if errors.Is(err, ErrNotFound) {
		return nil, columnNotFound(id)
	}
	return c, err
}

// CreateColumn adds a column to an existing board.
func (s *Service) CreateColumn(ctx context.Context, boardID string, req *CreateColumnRequest) (*Column, error) {
	ok, err := s.Exists(ctx, boardID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, notFound(boardID)
	}
	c := newColumn(boardID, req.ColumnInput)
	if err := s.repo.CreateColumn(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// UpdateColumn applies the fields present in req.
func (s *Service) UpdateColumn(ctx context.Context, boardID, id string, req *UpdateColumnRequest) (*Column, error) {
	c, err := s.GetColumn(ctx, boardID, id)
	if err != nil {
		return nil, err
	}
	if req.Title != nil {
		c.Title = *req.Title
	}
	if req.Order != nil {
		c.Order = *req.Order
	}
	if err := s.repo.UpdateColumn(ctx, c); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, columnNotFound(id)
		}
		return nil, err
	}
	return c, nil
}

// DeleteColumn removes a column of the board. Tasks keep their columnId.
func (s *Service) DeleteColumn(ctx context.Context, boardID, id string) error {
	err := s.repo.DeleteColumn(ctx, boardID, id)
	if errors.Is(err, ErrNotFound) {
		return columnNotFound(id)
	}
	return err
}
