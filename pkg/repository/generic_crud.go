package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/lib/pq"
)

// SQLExecutor defines the interface for executing SQL queries
// This can be a *sql.DB, *sql.Tx, or any adapter that provides these methods
type SQLExecutor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// GenericCrudRepository provides a generic implementation of CRUD operations for SQL databases.
// Table and column names are always quoted, so reserved words such as "user" or "order" are safe.
type GenericCrudRepository[T any, ID comparable] struct {
	executor  SQLExecutor
	tableName string
	idColumn  string
	mapper    EntityMapper[T, ID]
}

// EntityMapper defines how to map between entities and database rows
type EntityMapper[T any, ID comparable] interface {
	// Columns lists the selected columns in the order FromRow scans them
	Columns() []string

	// ToRow converts an entity to column names and values for INSERT/UPDATE
	ToRow(entity *T) (columns []string, values []interface{}, err error)

	// FromRow scans a database row into an entity
	FromRow(rows *sql.Rows) (*T, error)

	// GetID extracts the ID from an entity
	GetID(entity *T) ID

	// SetID sets the ID on an entity
	SetID(entity *T, id ID)
}

// NewGenericCrudRepository creates a new generic CRUD repository
func NewGenericCrudRepository[T any, ID comparable](
	executor SQLExecutor,
	tableName string,
	idColumn string,
	mapper EntityMapper[T, ID],
) *GenericCrudRepository[T, ID] {
	return &GenericCrudRepository[T, ID]{
		executor:  executor,
		tableName: tableName,
		idColumn:  idColumn,
		mapper:    mapper,
	}
}

// WithExecutor returns a copy of the repository bound to another executor, typically a *sql.Tx.
func (r *GenericCrudRepository[T, ID]) WithExecutor(executor SQLExecutor) *GenericCrudRepository[T, ID] {
	clone := *r
	clone.executor = executor
	return &clone
}

// Create inserts a new entity into the database
func (r *GenericCrudRepository[T, ID]) Create(ctx context.Context, entity *T) error {
	if entity == nil {
		return errors.New("entity cannot be nil")
	}

	columns, values, err := r.mapper.ToRow(entity)
	if err != nil {
		return fmt.Errorf("failed to map entity to row: %w", err)
	}

	placeholders := make([]string, len(columns))
	for i := range placeholders {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}

	query := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s)",
		r.table(),
		quoteAll(columns),
		strings.Join(placeholders, ", "),
	)

	if _, err := r.executor.ExecContext(ctx, query, values...); err != nil {
		return fmt.Errorf("failed to create entity: %w", err)
	}
	return nil
}

// FindByID retrieves an entity by its ID. Returns ErrNotFound when no row matches.
func (r *GenericCrudRepository[T, ID]) FindByID(ctx context.Context, id ID) (*T, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s = $1", r.selectList(), r.table(), pq.QuoteIdentifier(r.idColumn))

	rows, err := r.executor.QueryContext(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query entity: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("error iterating rows: %w", err)
		}
		return nil, ErrNotFound
	}

	entity, err := r.mapper.FromRow(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to scan entity: %w", err)
	}

	return entity, nil
}

// FindOne returns the first entity matching filter, or ErrNotFound.
func (r *GenericCrudRepository[T, ID]) FindOne(ctx context.Context, filter Filter) (*T, error) {
	entities, err := r.FindAll(ctx, QueryOptions{Filter: filter, Pagination: Pagination{Limit: 1}})
	if err != nil {
		return nil, err
	}
	if len(entities) == 0 {
		return nil, ErrNotFound
	}
	return &entities[0], nil
}

// FindAll retrieves entities matching the query options with support for filtering, sorting, and pagination.
// Filters are combined with AND logic. Returns an empty slice if no entities match.
func (r *GenericCrudRepository[T, ID]) FindAll(ctx context.Context, opts QueryOptions) ([]T, error) {
	query := fmt.Sprintf("SELECT %s FROM %s", r.selectList(), r.table())
	where, args := buildWhere(opts.Filter, 1)
	query += where

	if opts.Sort.Field != "" {
		order := "ASC"
		if opts.Sort.Order == SortDesc {
			order = "DESC"
		}
		query += fmt.Sprintf(" ORDER BY %s %s", pq.QuoteIdentifier(opts.Sort.Field), order)
	}

	if page := opts.Pagination.Normalized(); page.Enabled() {
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
		args = append(args, page.Limit, page.Offset)
	}

	rows, err := r.executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query entities: %w", err)
	}
	defer rows.Close()

	entities := []T{}
	for rows.Next() {
		entity, err := r.mapper.FromRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan entity: %w", err)
		}
		entities = append(entities, *entity)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return entities, nil
}

// Count returns the number of entities matching the filter
func (r *GenericCrudRepository[T, ID]) Count(ctx context.Context, filter Filter) (int64, error) {
	where, args := buildWhere(filter, 1)
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s%s", r.table(), where)

	var count int64
	if err := r.executor.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count entities: %w", err)
	}

	return count, nil
}

// Update writes every mapped column except the id. Returns ErrNotFound if the entity doesn't exist.
func (r *GenericCrudRepository[T, ID]) Update(ctx context.Context, entity *T) error {
	if entity == nil {
		return errors.New("entity cannot be nil")
	}

	id := r.mapper.GetID(entity)
	columns, values, err := r.mapper.ToRow(entity)
	if err != nil {
		return fmt.Errorf("failed to map entity to row: %w", err)
	}

	setClauses := make([]string, 0, len(columns))
	args := make([]interface{}, 0, len(values)+1)
	for i, col := range columns {
		if col == r.idColumn {
			continue
		}
		args = append(args, values[i])
		setClauses = append(setClauses, fmt.Sprintf("%s = $%d", pq.QuoteIdentifier(col), len(args)))
	}
	args = append(args, id)

	query := fmt.Sprintf(
		"UPDATE %s SET %s WHERE %s = $%d",
		r.table(),
		strings.Join(setClauses, ", "),
		pq.QuoteIdentifier(r.idColumn),
		len(args),
	)

	affected, err := r.exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update entity: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateWhere sets the given columns on every row matching filter and returns the affected row count.
func (r *GenericCrudRepository[T, ID]) UpdateWhere(ctx context.Context, filter Filter, set map[string]interface{}) (int64, error) {
	if len(set) == 0 {
		return 0, errors.New("update set cannot be empty")
	}

	columns := sortedKeys(set)
	setClauses := make([]string, len(columns))
	args := make([]interface{}, len(columns))
	for i, col := range columns {
		setClauses[i] = fmt.Sprintf("%s = $%d", pq.QuoteIdentifier(col), i+1)
		args[i] = set[col]
	}

	where, whereArgs := buildWhere(filter, len(args)+1)
	query := fmt.Sprintf("UPDATE %s SET %s%s", r.table(), strings.Join(setClauses, ", "), where)

	affected, err := r.exec(ctx, query, append(args, whereArgs...)...)
	if err != nil {
		return 0, fmt.Errorf("failed to update entities: %w", err)
	}
	return affected, nil
}

// Delete removes an entity from the database by its ID
func (r *GenericCrudRepository[T, ID]) Delete(ctx context.Context, id ID) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE %s = $1", r.table(), pq.QuoteIdentifier(r.idColumn))

	affected, err := r.exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete entity: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteWhere removes every row matching filter and returns the affected row count.
// An empty filter is rejected rather than truncating the table.
func (r *GenericCrudRepository[T, ID]) DeleteWhere(ctx context.Context, filter Filter) (int64, error) {
	if len(filter) == 0 {
		return 0, errors.New("delete filter cannot be empty")
	}

	where, args := buildWhere(filter, 1)
	query := fmt.Sprintf("DELETE FROM %s%s", r.table(), where)

	affected, err := r.exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to delete entities: %w", err)
	}
	return affected, nil
}

func (r *GenericCrudRepository[T, ID]) exec(ctx context.Context, query string, args ...interface{}) (int64, error) {
	result, err := r.executor.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return affected, nil
}

func (r *GenericCrudRepository[T, ID]) table() string {
	return pq.QuoteIdentifier(r.tableName)
}

func (r *GenericCrudRepository[T, ID]) selectList() string {
	columns := r.mapper.Columns()
	if len(columns) == 0 {
		return "*"
	}
	return quoteAll(columns)
}

// buildWhere renders filter as an AND-ed WHERE clause with placeholders starting at $start.
// Keys are sorted so the generated SQL is stable.
func buildWhere(filter Filter, start int) (string, []interface{}) {
	if len(filter) == 0 {
		return "", nil
	}

	clauses := make([]string, 0, len(filter))
	args := make([]interface{}, 0, len(filter))
	for _, field := range sortedKeys(filter) {
		value := filter[field]
		if value == nil {
			clauses = append(clauses, fmt.Sprintf("%s IS NULL", pq.QuoteIdentifier(field)))
			continue
		}
		args = append(args, value)
		clauses = append(clauses, fmt.Sprintf("%s = $%d", pq.QuoteIdentifier(field), start+len(args)-1))
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func quoteAll(columns []string) string {
	quoted := make([]string, len(columns))
	for i, col := range columns {
		quoted[i] = pq.QuoteIdentifier(col)
	}
	return strings.Join(quoted, ", ")
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ReflectionMapper maps struct fields to columns through their db tags.
// Fields without a tag use the lowercased field name; db:"-" skips a field.
type ReflectionMapper[T any, ID comparable] struct {
	idField string
}

// NewReflectionMapper creates a new reflection-based entity mapper
func NewReflectionMapper[T any, ID comparable](idField string) *ReflectionMapper[T, ID] {
	return &ReflectionMapper[T, ID]{
		idField: idField,
	}
}

// Columns lists the mapped column names in field order.
func (m *ReflectionMapper[T, ID]) Columns() []string {
	t := reflect.TypeOf((*T)(nil)).Elem()
	columns := []string{}
	for i := 0; i < t.NumField(); i++ {
		if name := columnName(t.Field(i)); name != "-" {
			columns = append(columns, name)
		}
	}
	return columns
}

// ToRow converts an entity to column names and values using reflection
func (m *ReflectionMapper[T, ID]) ToRow(entity *T) ([]string, []interface{}, error) {
	v := reflect.ValueOf(entity).Elem()
	t := v.Type()

	columns := []string{}
	values := []interface{}{}

	for i := 0; i < t.NumField(); i++ {
		name := columnName(t.Field(i))
		if name == "-" {
			continue
		}

		columns = append(columns, name)
		values = append(values, v.Field(i).Interface())
	}

	return columns, values, nil
}

// FromRow scans a database row into an entity using reflection
func (m *ReflectionMapper[T, ID]) FromRow(rows *sql.Rows) (*T, error) {
	entity := new(T)
	v := reflect.ValueOf(entity).Elem()
	t := v.Type()

	// Get column names from the result set
	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to get columns: %w", err)
	}

	scanDest := make([]interface{}, len(columns))
	columnMap := make(map[string]int)
	for i, col := range columns {
		columnMap[col] = i
		scanDest[i] = new(interface{})
	}

	if err := rows.Scan(scanDest...); err != nil {
		return nil, fmt.Errorf("failed to scan row: %w", err)
	}

	for i := 0; i < t.NumField(); i++ {
		name := columnName(t.Field(i))
		if name == "-" {
			continue
		}

		if colIndex, ok := columnMap[name]; ok {
			value := *(scanDest[colIndex].(*interface{}))
			if value != nil {
				v.Field(i).Set(reflect.ValueOf(value).Convert(v.Field(i).Type()))
			}
		}
	}

	return entity, nil
}

// GetID extracts the ID from an entity using reflection
func (m *ReflectionMapper[T, ID]) GetID(entity *T) ID {
	v := reflect.ValueOf(entity).Elem()
	t := v.Type()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if field.Name == m.idField {
			return v.Field(i).Interface().(ID)
		}
	}

	var zero ID
	return zero
}

// SetID sets the ID on an entity using reflection
func (m *ReflectionMapper[T, ID]) SetID(entity *T, id ID) {
	v := reflect.ValueOf(entity).Elem()
	t := v.Type()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if field.Name == m.idField {
			v.Field(i).Set(reflect.ValueOf(id))
			return
		}
	}
}

func columnName(field reflect.StructField) string {
	if name := field.Tag.Get("db"); name != "" {
		return name
	}
	return strings.ToLower(field.Name)
}
