package users

import (
	"context"
	"errors"

	"github.com/lib/pq"

	"github.com/nimburion/taskboard/pkg/repository"
)

// Table is the SQL table holding users.
const Table = "user"

const uniqueViolation = "23505"

// PostgresRepository stores users in the "user" table.
type PostgresRepository struct {
	crud *repository.GenericCrudRepository[User, string]
}

// NewPostgresRepository creates a repository over executor. Passing the
// postgres adapter lets the repository join a transaction carried by ctx.
func NewPostgresRepository(executor repository.SQLExecutor) *PostgresRepository {
	return &PostgresRepository{
		crud: repository.NewGenericCrudRepository[User, string](
			executor, Table, "id", repository.NewReflectionMapper[User, string]("ID"),
		),
	}
}

func (r *PostgresRepository) List(ctx context.Context, page repository.Pagination) ([]User, error) {
	return r.crud.FindAll(ctx, repository.QueryOptions{
		Sort:       repository.Sort{Field: "login", Order: repository.SortAsc},
		Pagination: page,
	})
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (*User, error) {
	return r.crud.FindByID(ctx, id)
}

func (r *PostgresRepository) FindByLogin(ctx context.Context, login string) (*User, error) {
	return r.crud.FindOne(ctx, repository.Filter{"login": login})
}

func (r *PostgresRepository) Create(ctx context.Context, u *User) error {
	return translate(r.crud.Create(ctx, u))
}

func (r *PostgresRepository) Update(ctx context.Context, u *User) error {
	return translate(r.crud.Update(ctx, u))
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	return r.crud.Delete(ctx, id)
}

// translate maps the unique index on login to ErrLoginTaken.
func translate(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return ErrLoginTaken
	}
	return err
}
