package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/nimburion/taskboard/pkg/config"
	"github.com/nimburion/taskboard/pkg/health"
	"github.com/nimburion/taskboard/pkg/migrate"
	"github.com/nimburion/taskboard/pkg/observability/logger"
	"github.com/nimburion/taskboard/pkg/store"
)

const migrationTimeout = 2 * time.Minute

// RunServer is the serve command.
func RunServer(ctx context.Context, cfg *config.Config, log logger.Logger) error {
	a, err := New(cfg, log)
	if err != nil {
		return err
	}
	return a.Serve(ctx)
}

// RunMigrations is the migrate command. Only postgres has a schema to migrate.
func RunMigrations(ctx context.Context, cfg *config.Config, log logger.Logger, direction string, args []string) error {
	if !strings.EqualFold(cfg.Database.Type, config.DatabaseTypePostgres) {
		return fmt.Errorf("migrations require database.type %q, got %q", config.DatabaseTypePostgres, cfg.Database.Type)
	}
	cmd, err := migrate.ParseArgs(append([]string{direction}, args...))
	if err != nil {
		return err
	}

	backend, err := store.Open(cfg.Database, log)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer func() {
		if closeErr := backend.Close(); closeErr != nil {
			log.Error("failed to close database", "error", closeErr)
		}
	}()

	log.Info("running migrations", "service", cfg.Service.Name, "action", cmd.Action)
	return migrate.RunWithDB(ctx, backend.DB, cmd, migrationTimeout, log)
}

// CheckDependencies is the healthcheck command: it runs every readiness
// check once and fails when any dependency is unhealthy.
func CheckDependencies(ctx context.Context, cfg *config.Config, log logger.Logger) error {
	a, err := New(cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := a.Close(); closeErr != nil {
			log.Error("failed to close dependencies", "error", closeErr)
		}
	}()

	result := a.Health.Check(ctx)
	var failed []string
	for _, check := range result.Checks {
		if check.Status == health.StatusHealthy {
			log.Info("dependency healthy", "check", check.Name, "duration", check.Duration)
			continue
		}
		log.Error("dependency unhealthy", "check", check.Name, "status", check.Status, "error", check.Error)
		failed = append(failed, check.Name)
	}
	if len(failed) > 0 {
		return fmt.Errorf("unhealthy dependencies: %s", strings.Join(failed, ", "))
	}
	return nil
}
