// Package migrate applies the versioned PostgreSQL schema of the board service.
package migrate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/nimburion/taskboard/pkg/observability/logger"
)

const defaultTimeout = 60 * time.Second

// Migrate actions.
const (
	ActionUp     = "up"
	ActionDown   = "down"
	ActionStatus = "status"
)

// ErrUsage is returned for an unknown action.
var ErrUsage = errors.New("usage: migrate [up|down|status] [steps]")

// Command is a parsed migrate invocation. Steps only applies to down.
type Command struct {
	Action string
	Steps  int
}

// ParseArgs parses [up|down|status] [steps]. No arguments means up;
// down without steps reverts one migration.
func ParseArgs(args []string) (Command, error) {
	cmd := Command{Action: ActionUp, Steps: 1}
	if len(args) > 0 {
		cmd.Action = args[0]
	}
	switch cmd.Action {
	case ActionUp, ActionDown, ActionStatus:
	default:
		return Command{}, ErrUsage
	}

	if len(args) > 1 {
		steps, err := strconv.Atoi(args[1])
		if err != nil {
			return Command{}, fmt.Errorf("invalid down steps %q", args[1])
		}
		if steps <= 0 {
			return Command{}, fmt.Errorf("down steps must be greater than zero, got %d", steps)
		}
		cmd.Steps = steps
	}
	return cmd, nil
}

// PendingMigration is an embedded migration not yet applied.
type PendingMigration struct {
	Version int64
	Name    string
}

// Status is what "migrate status" reports.
type Status struct {
	AppliedVersions []int64
	Pending         []PendingMigration
}

// Migrator applies and reverts a migration set. SQLManager is the postgres one.
type Migrator interface {
	Up(ctx context.Context) (int, error)
	Down(ctx context.Context, steps int) (int, error)
	Status(ctx context.Context) (*Status, error)
}

// Execute runs cmd against m, bounded by timeout (60s when zero), and logs
// the outcome.
func Execute(ctx context.Context, m Migrator, cmd Command, timeout time.Duration, log logger.Logger) error {
	if m == nil {
		return errors.New("migrator is required")
	}
	if log == nil {
		return errors.New("migration logger is required")
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	switch cmd.Action {
	case ActionUp:
		applied, err := m.Up(ctx)
		if err != nil {
			return err
		}
		log.Info("migrations applied", "count", applied)
	case ActionDown:
		if cmd.Steps <= 0 {
			return errors.New("steps must be greater than zero")
		}
		reverted, err := m.Down(ctx, cmd.Steps)
		if err != nil {
			return err
		}
		log.Info("migrations reverted", "count", reverted, "steps", cmd.Steps)
	case ActionStatus:
		status, err := m.Status(ctx)
		if err != nil {
			return err
		}
		log.Info("migration status", "applied", len(status.AppliedVersions), "pending", len(status.Pending))
		for _, version := range status.AppliedVersions {
			log.Info("migration applied", "version", version)
		}
		for _, pending := range status.Pending {
			log.Info("migration pending", "version", pending.Version, "name", pending.Name)
		}
	default:
		return ErrUsage
	}
	return nil
}

// RunWithDB executes cmd against the embedded board schema on db.
func RunWithDB(ctx context.Context, db *sql.DB, cmd Command, timeout time.Duration, log logger.Logger) error {
	if db == nil {
		return errors.New("database handle is required")
	}
	manager, err := NewBoardManager(db)
	if err != nil {
		return err
	}
	return Execute(ctx, manager, cmd, timeout, log)
}

// AutoMigrate applies every pending embedded migration. It is called on
// startup when database.auto_migrate is set.
func AutoMigrate(ctx context.Context, db *sql.DB, log logger.Logger) error {
	manager, err := NewBoardManager(db)
	if err != nil {
		return err
	}
	applied, err := manager.Up(ctx)
	if err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	if applied > 0 {
		log.Info("database schema migrated", "applied", applied)
	}
	return nil
}
