package repository

import (
	"context"
	"database/sql"
)

// ErrNotFound is returned when no row matches the requested id or filter.
// It is sql.ErrNoRows so callers can use errors.Is with either name.
var ErrNotFound = sql.ErrNoRows

// Reader provides read operations for entities
type Reader[T any, ID comparable] interface {
	FindByID(ctx context.Context, id ID) (*T, error)
	FindAll(ctx context.Context, opts QueryOptions) ([]T, error)
	Count(ctx context.Context, filter Filter) (int64, error)
}

// Writer provides write operations for entities
type Writer[T any, ID comparable] interface {
	Create(ctx context.Context, entity *T) error
	Update(ctx context.Context, entity *T) error
	Delete(ctx context.Context, id ID) error
}

// Repository combines Reader and Writer interfaces for complete CRUD operations
type Repository[T any, ID comparable] interface {
	Reader[T, ID]
	Writer[T, ID]
}

// BulkWriter updates or deletes every row matching a filter.
type BulkWriter interface {
	UpdateWhere(ctx context.Context, filter Filter, set map[string]interface{}) (int64, error)
	DeleteWhere(ctx context.Context, filter Filter) (int64, error)
}

// QueryOptions encapsulates filtering, sorting, and pagination options for queries
type QueryOptions struct {
	Filter     Filter
	Sort       Sort
	Pagination Pagination
}

// Filter represents field-based equality criteria. A nil value matches NULL.
type Filter map[string]interface{}

// Sort specifies field and direction for sorting results
type Sort struct {
	Field string
	Order SortOrder
}

// SortOrder defines the sort direction for queries.
type SortOrder string

// Sort order constants
const (
	// SortAsc sorts in ascending order
	SortAsc SortOrder = "asc"
	// SortDesc sorts in descending order
	SortDesc SortOrder = "desc"
)

// Pagination specifies limit/offset pagination. A zero Limit disables paging.
type Pagination struct {
	Limit  int
	Offset int
}

// Enabled reports whether a LIMIT clause should be applied.
func (p Pagination) Enabled() bool {
	return p.Limit > 0
}

// Normalized clamps negative offsets to zero.
func (p Pagination) Normalized() Pagination {
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}

// Paginate applies p to an in-memory result set, for backends that cannot page natively.
func Paginate[T any](items []T, p Pagination) []T {
	p = p.Normalized()
	if p.Offset >= len(items) {
		return []T{}
	}
	items = items[p.Offset:]
	if p.Enabled() && p.Limit < len(items) {
		items = items[:p.Limit]
	}
	return items
}
