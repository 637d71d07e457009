package tasks

import (
	"context"
	"errors"
	"fmt"

	"github.com/nimburion/taskboard/pkg/controller"
	"github.com/nimburion/taskboard/pkg/identifier"
	"github.com/nimburion/taskboard/pkg/observability/logger"
	"github.com/nimburion/taskboard/pkg/repository"
)

// Service holds the task business rules.
type Service struct {
	repo   Repository
	boards BoardLookup
	log    logger.Logger
}

// NewService creates a task service.
func NewService(repo Repository, boards BoardLookup, log logger.Logger) *Service {
	return &Service{repo: repo, boards: boards, log: log}
}

func notFound(id string) error {
	return controller.NewNotFoundError(fmt.Sprintf("Task with id %s not found", id))
}

func boardNotFound(id string) error {
	return controller.NewNotFoundError(fmt.Sprintf("Board with the id %s is not found", id))
}

func (s *Service) requireBoard(ctx context.Context, boardID string) error {
	ok, err := s.boards.Exists(ctx, boardID)
	if err != nil {
		return err
	}
	if !ok {
		return boardNotFound(boardID)
	}
	return nil
}

// List returns one page of the board's tasks.
func (s *Service) List(ctx context.Context, boardID string, page repository.Pagination) ([]Task, error) {
	if err := s.requireBoard(ctx, boardID); err != nil {
		return nil, err
	}
	return s.repo.ListByBoard(ctx, boardID, page)
}

// Get returns the task with id on the board.
func (s *Service) Get(ctx context.Context, boardID, id string) (*Task, error) {
	t, err := s.repo.Get(ctx, boardID, id)
	if errors.Is(err, ErrNotFound) {
		return nil, notFound(id)
	}
	return t, err
}

// Create adds a task to the board named by the path.
func (s *Service) Create(ctx context.Context, boardID string, req *CreateTaskRequest) (*Task, error) {
	if err := s.requireBoard(ctx, boardID); err != nil {
		return nil, err
	}
	t := &Task{
		ID:          identifier.New(),
		Title:       req.Title,
		Order:       req.Order,
		Description: req.Description,
		UserID:      req.UserID,
		BoardID:     &boardID,
		ColumnID:    req.ColumnID,
	}
	if err := s.repo.Create(ctx, t); err != nil {
		return nil, err
	}
	// The board may have been deleted after the first check, past its
	// cascade. Take the task back out so it is not left orphaned.
	if err := s.requireBoard(ctx, boardID); err != nil {
		if delErr := s.repo.Delete(ctx, boardID, t.ID); delErr != nil && !errors.Is(delErr, ErrNotFound) {
			s.log.WithContext(ctx).Error("failed to remove task of deleted board", "task_id", t.ID, "board_id", boardID, "error", delErr)
		}
		return nil, err
	}
	s.log.WithContext(ctx).Debug("task created", "task_id", t.ID, "board_id", boardID)
	return t, nil
}

// Update applies the fields present in req. Moving the task to another board
// requires that board to exist.
func (s *Service) Update(ctx context.Context, boardID, id string, req *UpdateTaskRequest) (*Task, error) {
	t, err := s.Get(ctx, boardID, id)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		t.Title = *req.Title
	}
	if req.Order != nil {
		t.Order = *req.Order
	}
	if req.Description != nil {
		t.Description = *req.Description
	}
	req.UserID.apply(&t.UserID)
	req.ColumnID.apply(&t.ColumnID)
	if req.BoardID.Set && req.BoardID.Value != nil && *req.BoardID.Value != boardID {
		if err := s.requireBoard(ctx, *req.BoardID.Value); err != nil {
			return nil, err
		}
	}
	req.BoardID.apply(&t.BoardID)

	if err := s.repo.Update(ctx, boardID, t); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, notFound(id)
		}
		return nil, err
	}
	return t, nil
}

// Delete removes the task from the board.
func (s *Service) Delete(ctx context.Context, boardID, id string) error {
	err := s.repo.Delete(ctx, boardID, id)
	if errors.Is(err, ErrNotFound) {
		return notFound(id)
	}
	return err
}

// DeleteByBoard removes every task of a deleted board.
func (s *Service) DeleteByBoard(ctx context.Context, boardID string) (int64, error) {
	return s.repo.DeleteByBoard(ctx, boardID)
}

// UnassignUser clears the assignee of the tasks of a deleted user.
func (s *Service) UnassignUser(ctx context.Context, userID string) (int64, error) {
	return s.repo.UnassignUser(ctx, userID)
}
