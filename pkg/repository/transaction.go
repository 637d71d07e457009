package repository

import "context"

// TransactionManager provides transaction management capabilities
type TransactionManager interface {
	// WithTransaction executes the given function within a transaction
	// If the function returns an error, the transaction is rolled back
	// Otherwise, the transaction is committed
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// Transaction represents an active database transaction
type Transaction interface {
	Commit() error
	Rollback() error
	// Context returns the context carrying the transaction
	Context() context.Context
}

// NoTransaction runs fn directly. Backends without multi-statement
// transactions, such as the in-memory document store, use it.
type NoTransaction struct{}

// WithTransaction calls fn with ctx unchanged.
func (NoTransaction) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
