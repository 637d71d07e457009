package repository

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

// testCard is a test entity stored in a table whose name is a reserved word.
type testCard struct {
	ID      string
	Title   string
	Order   int
	OwnerID *string
}

type testCardMapper struct{}

func (m *testCardMapper) Columns() []string {
	return []string{"id", "title", "order", "ownerId"}
}

func (m *testCardMapper) ToRow(card *testCard) ([]string, []interface{}, error) {
	return m.Columns(), []interface{}{card.ID, card.Title, card.Order, card.OwnerID}, nil
}

func (m *testCardMapper) FromRow(rows *sql.Rows) (*testCard, error) {
	card := &testCard{}
	var owner sql.NullString
	if err := rows.Scan(&card.ID, &card.Title, &card.Order, &owner); err != nil {
		return nil, err
	}
	if owner.Valid {
		card.OwnerID = &owner.String
	}
	return card, nil
}

func (m *testCardMapper) GetID(card *testCard) string { return card.ID }

func (m *testCardMapper) SetID(card *testCard, id string) { card.ID = id }

func newCardRepo(t *testing.T) (*GenericCrudRepository[testCard, string], sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock: %v", err)
	}
	repo := NewGenericCrudRepository[testCard, string](db, "user", "id", &testCardMapper{})
	return repo, mock, func() { db.Close() }
}

func cardRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "title", "order", "ownerId"})
}

func TestGenericCrudRepository_Create(t *testing.T) {
	tests := []struct {
		name    string
		entity  *testCard
		wantErr bool
		setup   func(mock sqlmock.Sqlmock)
	}{
		{
			name:   "successful create",
			entity: &testCard{ID: "c1", Title: "Todo", Order: 1},
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "user" ("id", "title", "order", "ownerId") VALUES ($1, $2, $3, $4)`)).
					WithArgs("c1", "Todo", 1, nil).
					WillReturnResult(sqlmock.NewResult(1, 1))
			},
		},
		{
			name:    "nil entity",
			entity:  nil,
			wantErr: true,
			setup:   func(mock sqlmock.Sqlmock) {},
		},
		{
			name:    "database error",
			entity:  &testCard{ID: "c1", Title: "Todo"},
			wantErr: true,
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`INSERT INTO "user"`).WillReturnError(errors.New("database error"))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock, done := newCardRepo(t)
			defer done()
			tt.setup(mock)

			err := repo.Create(context.Background(), tt.entity)
			if (err != nil) != tt.wantErr {
				t.Errorf("Create() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err := mock.ExpectationsWereMet(); err != nil {
				t.Errorf("unfulfilled expectations: %v", err)
			}
		})
	}
}

func TestGenericCrudRepository_FindByID(t *testing.T) {
	query := regexp.QuoteMeta(`SELECT "id", "title", "order", "ownerId" FROM "user" WHERE "id" = $1`)

	t.Run("found", func(t *testing.T) {
		repo, mock, done := newCardRepo(t)
		defer done()
		mock.ExpectQuery(query).WithArgs("c1").WillReturnRows(cardRows().AddRow("c1", "Todo", 2, "u1"))

		card, err := repo.FindByID(context.Background(), "c1")
		if err != nil {
			t.Fatalf("FindByID() error = %v", err)
		}
		if card.Title != "Todo" || card.Order != 2 || card.OwnerID == nil || *card.OwnerID != "u1" {
			t.Errorf("unexpected card %+v", card)
		}
	})

	t.Run("not found", func(t *testing.T) {
		repo, mock, done := newCardRepo(t)
		defer done()
		mock.ExpectQuery(query).WithArgs("missing").WillReturnRows(cardRows())

		_, err := repo.FindByID(context.Background(), "missing")
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("FindByID() error = %v, want ErrNotFound", err)
		}
	})
}

func TestGenericCrudRepository_FindAll(t *testing.T) {
	tests := []struct {
		name  string
		opts  QueryOptions
		query string
		args  []interface{}
	}{
		{
			name:  "no options",
			query: `SELECT "id", "title", "order", "ownerId" FROM "user"`,
		},
		{
			name: "filter sort and page",
			opts: QueryOptions{
				Filter:     Filter{"title": "Todo", "ownerId": "u1"},
				Sort:       Sort{Field: "order", Order: SortDesc},
				Pagination: Pagination{Limit: 10, Offset: 20},
			},
			query: `SELECT "id", "title", "order", "ownerId" FROM "user" WHERE "ownerId" = $1 AND "title" = $2 ORDER BY "order" DESC LIMIT $3 OFFSET $4`,
			args:  []interface{}{"u1", "Todo", 10, 20},
		},
		{
			name:  "null filter",
			opts:  QueryOptions{Filter: Filter{"ownerId": nil}, Sort: Sort{Field: "order"}},
			query: `SELECT "id", "title", "order", "ownerId" FROM "user" WHERE "ownerId" IS NULL ORDER BY "order" ASC`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock, done := newCardRepo(t)
			defer done()

			expect := mock.ExpectQuery(regexp.QuoteMeta(tt.query))
			if len(tt.args) > 0 {
				values := make([]driver.Value, len(tt.args))
				for i, a := range tt.args {
					values[i] = a
				}
				expect = expect.WithArgs(values...)
			}
			expect.WillReturnRows(cardRows().AddRow("c1", "Todo", 1, nil).AddRow("c2", "Done", 2, nil))

			cards, err := repo.FindAll(context.Background(), tt.opts)
			if err != nil {
				t.Fatalf("FindAll() error = %v", err)
			}
			if len(cards) != 2 {
				t.Errorf("FindAll() returned %d cards, want 2", len(cards))
			}
			if err := mock.ExpectationsWereMet(); err != nil {
				t.Errorf("unfulfilled expectations: %v", err)
			}
		})
	}
}

func TestGenericCrudRepository_FindOne(t *testing.T) {
	repo, mock, done := newCardRepo(t)
	defer done()

	mock.ExpectQuery(regexp.QuoteMeta(`FROM "user" WHERE "title" = $1 LIMIT $2 OFFSET $3`)).
		WithArgs("nope", 1, 0).
		WillReturnRows(cardRows())

	if _, err := repo.FindOne(context.Background(), Filter{"title": "nope"}); !errors.Is(err, ErrNotFound) {
		t.Errorf("FindOne() error = %v, want ErrNotFound", err)
	}
}

func TestGenericCrudRepository_Update(t *testing.T) {
	query := regexp.QuoteMeta(`UPDATE "user" SET "title" = $1, "order" = $2, "ownerId" = $3 WHERE "id" = $4`)

	tests := []struct {
		name     string
		affected int64
		wantErr  error
	}{
		{name: "updated", affected: 1},
		{name: "missing", affected: 0, wantErr: ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock, done := newCardRepo(t)
			defer done()
			mock.ExpectExec(query).WithArgs("Renamed", 3, nil, "c1").WillReturnResult(sqlmock.NewResult(0, tt.affected))

			err := repo.Update(context.Background(), &testCard{ID: "c1", Title: "Renamed", Order: 3})
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Update() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestGenericCrudRepository_UpdateWhere(t *testing.T) {
	repo, mock, done := newCardRepo(t)
	defer done()

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "user" SET "ownerId" = $1 WHERE "ownerId" = $2`)).
		WithArgs(nil, "u1").
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := repo.UpdateWhere(context.Background(), Filter{"ownerId": "u1"}, map[string]interface{}{"ownerId": nil})
	if err != nil || n != 3 {
		t.Fatalf("UpdateWhere() = %d, %v; want 3, nil", n, err)
	}

	if _, err := repo.UpdateWhere(context.Background(), Filter{}, nil); err == nil {
		t.Error("UpdateWhere() with empty set should fail")
	}
}

func TestGenericCrudRepository_Delete(t *testing.T) {
	repo, mock, done := newCardRepo(t)
	defer done()

	query := regexp.QuoteMeta(`DELETE FROM "user" WHERE "id" = $1`)
	mock.ExpectExec(query).WithArgs("c1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(query).WithArgs("c1").WillReturnResult(sqlmock.NewResult(0, 0))

	if err := repo.Delete(context.Background(), "c1"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := repo.Delete(context.Background(), "c1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Delete() error = %v, want ErrNotFound", err)
	}
}

func TestGenericCrudRepository_DeleteWhere(t *testing.T) {
	repo, mock, done := newCardRepo(t)
	defer done()

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "user" WHERE "ownerId" = $1`)).
		WithArgs("u1").
		WillReturnResult(sqlmock.NewResult(0, 2))

	n, err := repo.DeleteWhere(context.Background(), Filter{"ownerId": "u1"})
	if err != nil || n != 2 {
		t.Fatalf("DeleteWhere() = %d, %v; want 2, nil", n, err)
	}

	if _, err := repo.DeleteWhere(context.Background(), nil); err == nil {
		t.Error("DeleteWhere() without filter should fail")
	}
}

func TestGenericCrudRepository_Count(t *testing.T) {
	repo, mock, done := newCardRepo(t)
	defer done()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM "user" WHERE "title" = $1`)).
		WithArgs("Todo").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(4))

	n, err := repo.Count(context.Background(), Filter{"title": "Todo"})
	if err != nil || n != 4 {
		t.Fatalf("Count() = %d, %v; want 4, nil", n, err)
	}
}

func TestGenericCrudRepository_WithExecutor(t *testing.T) {
	repo, _, done := newCardRepo(t)
	defer done()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	mock.ExpectExec(`DELETE FROM "user"`).WillReturnResult(sqlmock.NewResult(0, 1))
	if err := repo.WithExecutor(db).Delete(context.Background(), "c1"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("bound executor not used: %v", err)
	}
}

type reflectedUser struct {
	ID       string `db:"id"`
	Login    string `db:"login"`
	Password string `db:"password"`
	Scratch  string `db:"-"`
}

func TestReflectionMapper(t *testing.T) {
	mapper := NewReflectionMapper[reflectedUser, string]("ID")

	if got := mapper.Columns(); len(got) != 3 || got[2] != "password" {
		t.Fatalf("Columns() = %v", got)
	}

	u := &reflectedUser{ID: "1", Login: "admin", Password: "hash", Scratch: "x"}
	columns, values, err := mapper.ToRow(u)
	if err != nil || len(columns) != 3 || values[1] != "admin" {
		t.Fatalf("ToRow() = %v, %v, %v", columns, values, err)
	}

	mapper.SetID(u, "2")
	if mapper.GetID(u) != "2" {
		t.Errorf("GetID() = %s, want 2", mapper.GetID(u))
	}

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	mock.ExpectQuery("SELECT").WillReturnRows(sqlmock.NewRows([]string{"id", "login", "password"}).AddRow("9", "root", "h"))

	repo := NewGenericCrudRepository[reflectedUser, string](db, "user", "id", mapper)
	got, err := repo.FindByID(context.Background(), "9")
	if err != nil || got.Login != "root" {
		t.Fatalf("FindByID() = %+v, %v", got, err)
	}
}
