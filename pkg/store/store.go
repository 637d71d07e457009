// Package store opens the persistence backend named by configuration.
package store

import (
	"context"
	"database/sql"

	"github.com/nimburion/taskboard/pkg/document"
	"github.com/nimburion/taskboard/pkg/repository"
)

// Adapter is the minimal lifecycle and health contract for storage adapters.
type Adapter interface {
	HealthCheck(ctx context.Context) error
	Close() error
}

// Backend is an opened persistence backend. Exactly one of Documents and SQL
// is set: the memory and mongodb backends expose collections, postgres a SQL executor.
type Backend struct {
	Type      string
	Documents document.Collections
	SQL       repository.SQLExecutor
	// DB is the raw pool behind SQL, used by migrations.
	DB *sql.DB
	Tx repository.TransactionManager

	adapter Adapter
}

// HealthCheck reports whether the backend is reachable.
func (b *Backend) HealthCheck(ctx context.Context) error {
	return b.adapter.HealthCheck(ctx)
}

// Close releases the backend connections.
func (b *Backend) Close() error {
	return b.adapter.Close()
}

// IsSQL reports whether repositories should use the SQL implementations.
func (b *Backend) IsSQL() bool {
	return b.SQL != nil
}
