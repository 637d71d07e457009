package migrate

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

//go:embed migrations/*.sql
var embedded embed.FS

// Dir is the directory of the embedded board schema migrations.
const Dir = "migrations"

// lockID keys the advisory lock held while migrations run, so replicas that
// auto-migrate on startup apply each version once.
const lockID int64 = 0x7461736b626f6172

var migrationNamePattern = regexp.MustCompile(`^(\d+)_([a-zA-Z0-9_\-]+)\.(up|down)\.sql$`)

// Migration represents a database migration with up and down SQL scripts.
type Migration struct {
	Version int64
	Name    string
	UpSQL   string
	DownSQL string
}

// SQLManager applies versioned migrations and records them in schema_migrations.
type SQLManager struct {
	db         *sql.DB
	migrations []Migration
}

// NewBoardManager returns a manager for the embedded board schema.
func NewBoardManager(db *sql.DB) (*SQLManager, error) {
	return NewSQLManager(db, embedded, Dir)
}

// NewSQLManager loads the migrations in migrationsDir of migrationFiles.
func NewSQLManager(db *sql.DB, migrationFiles fs.FS, migrationsDir string) (*SQLManager, error) {
	if db == nil {
		return nil, fmt.Errorf("database handle is required")
	}
	if migrationFiles == nil {
		return nil, fmt.Errorf("migration files filesystem is required")
	}
	if strings.TrimSpace(migrationsDir) == "" {
		return nil, fmt.Errorf("migration directory is required")
	}

	migrations, err := loadMigrations(migrationFiles, migrationsDir)
	if err != nil {
		return nil, err
	}
	return &SQLManager{db: db, migrations: migrations}, nil
}

// Migrations returns the loaded migrations in version order.
func (m *SQLManager) Migrations() []Migration {
	return append([]Migration(nil), m.migrations...)
}

// Up applies all pending migrations in order.
func (m *SQLManager) Up(ctx context.Context) (int, error) {
	appliedCount := 0
	err := m.locked(ctx, func(conn *sql.Conn) error {
		applied, err := appliedSet(ctx, conn)
		if err != nil {
			return err
		}
		for _, migration := range m.migrations {
			if _, already := applied[migration.Version]; already {
				continue
			}
			err := inTx(ctx, conn, func(tx *sql.Tx) error {
				if _, err := tx.ExecContext(ctx, migration.UpSQL); err != nil {
					return fmt.Errorf("apply migration %d_%s: %w", migration.Version, migration.Name, err)
				}
				if _, err := tx.ExecContext(ctx, `INSERT INTO schema_migrations (version, applied_at) VALUES ($1, NOW())`, migration.Version); err != nil {
					return fmt.Errorf("record migration %d: %w", migration.Version, err)
				}
				return nil
			})
			if err != nil {
				return err
			}
			appliedCount++
		}
		return nil
	})
	return appliedCount, err
}

// Down rolls back the last steps applied migrations.
func (m *SQLManager) Down(ctx context.Context, steps int) (int, error) {
	if steps <= 0 {
		steps = 1
	}

	reverted := 0
	err := m.locked(ctx, func(conn *sql.Conn) error {
		applied, err := appliedVersionsDesc(ctx, conn)
		if err != nil {
			return err
		}
		if steps > len(applied) {
			steps = len(applied)
		}
		for _, version := range applied[:steps] {
			migration, ok := m.migrationByVersion(version)
			if !ok {
				return fmt.Errorf("migration definition not found for applied version %d", version)
			}
			if strings.TrimSpace(migration.DownSQL) == "" {
				return fmt.Errorf("down migration missing for version %d", version)
			}
			err := inTx(ctx, conn, func(tx *sql.Tx) error {
				if _, err := tx.ExecContext(ctx, migration.DownSQL); err != nil {
					return fmt.Errorf("rollback migration %d_%s: %w", migration.Version, migration.Name, err)
				}
				if _, err := tx.ExecContext(ctx, `DELETE FROM schema_migrations WHERE version = $1`, version); err != nil {
					return fmt.Errorf("delete migration record %d: %w", version, err)
				}
				return nil
			})
			if err != nil {
				return err
			}
			reverted++
		}
		return nil
	})
	return reverted, err
}

// Status lists applied versions and the migrations still pending.
func (m *SQLManager) Status(ctx context.Context) (*Status, error) {
	if _, err := m.db.ExecContext(ctx, metadataTableSQL); err != nil {
		return nil, fmt.Errorf("ensure schema_migrations table: %w", err)
	}
	applied, err := appliedSet(ctx, m.db)
	if err != nil {
		return nil, err
	}

	appliedVersions := make([]int64, 0, len(applied))
	for version := range applied {
		appliedVersions = append(appliedVersions, version)
	}
	sort.Slice(appliedVersions, func(i, j int) bool {
		return appliedVersions[i] < appliedVersions[j]
	})

	pending := make([]PendingMigration, 0)
	for _, migration := range m.migrations {
		if _, exists := applied[migration.Version]; !exists {
			pending = append(pending, PendingMigration{Version: migration.Version, Name: migration.Name})
		}
	}
	return &Status{AppliedVersions: appliedVersions, Pending: pending}, nil
}

const metadataTableSQL = `CREATE TABLE IF NOT EXISTS schema_migrations (
	version BIGINT PRIMARY KEY,
	applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

// locked runs fn on a dedicated connection holding the migration advisory lock.
func (m *SQLManager) locked(ctx context.Context, fn func(conn *sql.Conn) error) (err error) {
	conn, err := m.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("acquire migration connection: %w", err)
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, `SELECT pg_advisory_lock($1)`, lockID); err != nil {
		return fmt.Errorf("acquire migration lock: %w", err)
	}
	defer func() {
		if _, unlockErr := conn.ExecContext(context.WithoutCancel(ctx), `SELECT pg_advisory_unlock($1)`, lockID); unlockErr != nil && err == nil {
			err = fmt.Errorf("release migration lock: %w", unlockErr)
		}
	}()

	if _, err := conn.ExecContext(ctx, metadataTableSQL); err != nil {
		return fmt.Errorf("ensure schema_migrations table: %w", err)
	}
	return fn(conn)
}

func inTx(ctx context.Context, conn *sql.Conn, fn func(tx *sql.Tx) error) error {
	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migration transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit migration: %w", err)
	}
	return nil
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func appliedSet(ctx context.Context, q querier) (map[int64]struct{}, error) {
	versions, err := queryVersions(ctx, q, `SELECT version FROM schema_migrations`)
	if err != nil {
		return nil, err
	}
	set := make(map[int64]struct{}, len(versions))
	for _, v := range versions {
		set[v] = struct{}{}
	}
	return set, nil
}

func appliedVersionsDesc(ctx context.Context, q querier) ([]int64, error) {
	return queryVersions(ctx, q, `SELECT version FROM schema_migrations ORDER BY version DESC`)
}

func queryVersions(ctx context.Context, q querier, query string) ([]int64, error) {
	rows, err := q.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("load applied migrations: %w", err)
	}
	defer rows.Close()

	versions := make([]int64, 0)
	for rows.Next() {
		var version int64
		if err := rows.Scan(&version); err != nil {
			return nil, fmt.Errorf("scan applied migration version: %w", err)
		}
		versions = append(versions, version)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate applied migrations: %w", err)
	}
	return versions, nil
}

func (m *SQLManager) migrationByVersion(version int64) (Migration, bool) {
	for _, migration := range m.migrations {
		if migration.Version == version {
			return migration, true
		}
	}
	return Migration{}, false
}

func loadMigrations(migrationFiles fs.FS, migrationsDir string) ([]Migration, error) {
	entries, err := fs.ReadDir(migrationFiles, migrationsDir)
	if err != nil {
		return nil, fmt.Errorf("read migration files: %w", err)
	}

	byVersion := make(map[int64]*Migration)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		matches := migrationNamePattern.FindStringSubmatch(name)
		if len(matches) != 4 {
			continue
		}

		version, err := strconv.ParseInt(matches[1], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse migration version %q: %w", matches[1], err)
		}
		payload, err := fs.ReadFile(migrationFiles, migrationsDir+"/"+name)
		if err != nil {
			return nil, fmt.Errorf("read migration file %q: %w", name, err)
		}

		item, ok := byVersion[version]
		if !ok {
			item = &Migration{Version: version, Name: matches[2]}
			byVersion[version] = item
		}
		if matches[3] == "up" {
			item.UpSQL = string(payload)
		} else {
			item.DownSQL = string(payload)
		}
	}

	migrations := make([]Migration, 0, len(byVersion))
	for _, item := range byVersion {
		if strings.TrimSpace(item.UpSQL) == "" {
			return nil, fmt.Errorf("missing up migration for version %d", item.Version)
		}
		migrations = append(migrations, *item)
	}
	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})
	return migrations, nil
}
