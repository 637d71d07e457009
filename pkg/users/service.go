package users

import (
	"context"
	"errors"
	"fmt"

	"github.com/nimburion/taskboard/pkg/auth"
	"github.com/nimburion/taskboard/pkg/controller"
	"github.com/nimburion/taskboard/pkg/identifier"
	"github.com/nimburion/taskboard/pkg/observability/logger"
	"github.com/nimburion/taskboard/pkg/observability/metrics"
	"github.com/nimburion/taskboard/pkg/repository"
)

// Error messages returned to clients.
const (
	MsgInvalidID  = "User ID is not valid."
	MsgLoginTaken = "User with this login already exists"
)

// Default account seeded into empty document stores.
const (
	AdminLogin    = "admin"
	AdminPassword = "admin"
)

// Service holds the user business rules.
type Service struct {
	repo  Repository
	tasks TaskUnassigner
	tx    repository.TransactionManager
	log   logger.Logger
}

// NewService creates a user service. tx wraps the delete and the task
// unassignment; repository.NoTransaction serves backends without transactions.
func NewService(repo Repository, tasks TaskUnassigner, tx repository.TransactionManager, log logger.Logger) *Service {
	if tx == nil {
		tx = repository.NoTransaction{}
	}
	return &Service{repo: repo, tasks: tasks, tx: tx, log: log}
}

func notFound(id string) error {
	return controller.NewNotFoundError(fmt.Sprintf("User with the id %s is not found", id))
}

func conflict(login string) error {
	return controller.NewConflictError(MsgLoginTaken, map[string]interface{}{"login": login})
}

// List returns one page of users.
func (s *Service) List(ctx context.Context, page repository.Pagination) ([]User, error) {
	return s.repo.List(ctx, page)
}

// Get returns the user with id.
func (s *Service) Get(ctx context.Context, id string) (*User, error) {
	u, err := s.repo.Get(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, notFound(id)
	}
	return u, err
}

// Create registers a user with a hashed password. The login must be unused.
func (s *Service) Create(ctx context.Context, req *CreateUserRequest) (*User, error) {
	if _, err := s.repo.FindByLogin(ctx, req.Login); err == nil {
		return nil, conflict(req.Login)
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, controller.NewInternalError("failed to hash password", err)
	}

	u := &User{ID: identifier.New(), Name: req.Name, Login: req.Login, Password: hash}
	if err := s.repo.Create(ctx, u); err != nil {
		if errors.Is(err, ErrLoginTaken) {
			return nil, conflict(req.Login)
		}
		return nil, err
	}
	s.log.WithContext(ctx).Info("user created", "user_id", u.ID)
	return u, nil
}

// Update applies the fields present in req. A new password is hashed.
func (s *Service) Update(ctx context.Context, id string, req *UpdateUserRequest) (*User, error) {
	u, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Login != nil && *req.Login != u.Login {
		owner, err := s.repo.FindByLogin(ctx, *req.Login)
		switch {
		case err == nil && owner.ID != id:
			return nil, conflict(*req.Login)
		case err != nil && !errors.Is(err, ErrNotFound):
			return nil, err
		}
		u.Login = *req.Login
	}
	if req.Name != nil {
		u.Name = *req.Name
	}
	if req.Password != nil {
		hash, err := auth.HashPassword(*req.Password)
		if err != nil {
			return nil, controller.NewInternalError("failed to hash password", err)
		}
		u.Password = hash
	}

	if err := s.repo.Update(ctx, u); err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			return nil, notFound(id)
		case errors.Is(err, ErrLoginTaken):
			return nil, conflict(u.Login)
		}
		return nil, err
	}
	return u, nil
}

// Delete removes the user and unassigns their tasks in one transaction.
func (s *Service) Delete(ctx context.Context, id string) error {
	var unassigned int64
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.Delete(ctx, id); err != nil {
			return err
		}
		n, err := s.tasks.UnassignUser(ctx, id)
		if err != nil {
			return fmt.Errorf("unassign tasks: %w", err)
		}
		unassigned = n
		return nil
	})
	if errors.Is(err, ErrNotFound) {
		return notFound(id)
	}
	if err != nil {
		return err
	}

	metrics.RecordCascade("user_tasks", unassigned)
	s.log.WithContext(ctx).Info("user deleted", "user_id", id, "unassigned_tasks", unassigned)
	return nil
}

// EnsureAdmin creates the admin/admin account when no user owns the admin login.
// Postgres deployments get the same account from the initial migration.
func (s *Service) EnsureAdmin(ctx context.Context) error {
	_, err := s.repo.FindByLogin(ctx, AdminLogin)
	if err == nil {
		return nil
	}
	if !errors.Is(err, ErrNotFound) {
		return err
	}
	if _, err := s.Create(ctx, &CreateUserRequest{Name: AdminLogin, Login: AdminLogin, Password: AdminPassword}); err != nil {
		return fmt.Errorf("seed admin user: %w", err)
	}
	return nil
}
