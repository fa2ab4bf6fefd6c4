package pagination_test

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/BradenHooton/adminpanel/internal/models"
	"github.com/BradenHooton/adminpanel/internal/pagination"
	sq "github.com/Masterminds/squirrel"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sqliteSchema = `
CREATE TABLE users (
	id                     TEXT PRIMARY KEY,
	email                  TEXT NOT NULL UNIQUE,
	password_hash          TEXT NOT NULL,
	first_name             TEXT NOT NULL,
	last_name              TEXT NOT NULL,
	birthdate              DATE NOT NULL,
	role                   TEXT NOT NULL,
	password_reset_token   TEXT,
	password_reset_expires TIMESTAMP,
	created_at             TIMESTAMP NOT NULL,
	updated_at             TIMESTAMP NOT NULL
)`

// sqliteSource runs page queries against an in-memory SQLite database
type sqliteSource struct {
	db *sql.DB
}

func newSQLiteSource(t *testing.T, users []*models.User) *sqliteSource {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(sqliteSchema)
	require.NoError(t, err)

	for _, u := range users {
		insert := sq.Insert(pagination.UsersTable).
			Columns(pagination.UserColumns...).
			Values(u.ID, u.Email, u.PasswordHash, u.FirstName, u.LastName, u.Birthdate, string(u.Role),
				u.PasswordResetToken, u.PasswordResetExpires, u.CreatedAt, u.UpdatedAt)
		query, args, err := insert.ToSql()
		require.NoError(t, err)
		_, err = db.Exec(query, args...)
		require.NoError(t, err)
	}

	return &sqliteSource{db: db}
}

func scanUser(scan func(dest ...any) error) (*models.User, error) {
	var u models.User
	var role string
	err := scan(&u.ID, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName, &u.Birthdate, &role,
		&u.PasswordResetToken, &u.PasswordResetExpires, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	u.Role = models.Role(role)
	return &u, nil
}

func (s *sqliteSource) GetByID(ctx context.Context, id string) (*models.User, error) {
	query, args, err := sq.Select(pagination.UserColumns...).
		From(pagination.UsersTable).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, err
	}

	u, err := scanUser(s.db.QueryRowContext(ctx, query, args...).Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	return u, err
}

func (s *sqliteSource) Fetch(ctx context.Context, b sq.SelectBuilder) ([]*models.User, error) {
	query, args, err := b.PlaceholderFormat(sq.Question).ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		u, err := scanUser(rows.Scan)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// fixtureUsers builds a population where every sortable field has ties and
// ids are not correlated with any sort value
func fixtureUsers() []*models.User {
	firstNames := []string{"Alice", "Bob", "Carol"}
	lastNames := []string{"Smith", "Jones"}
	created := []time.Time{day(2024, 1, 1), day(2024, 1, 2), day(2024, 1, 2), day(2024, 1, 3)}
	updated := []time.Time{day(2024, 2, 1), day(2024, 2, 1), day(2024, 2, 5)}
	births := []time.Time{day(1990, 5, 17), day(1985, 1, 1), day(1990, 5, 17)}

	var users []*models.User
	for i := 0; i < 13; i++ {
		users = append(users, &models.User{
			ID:           fmt.Sprintf("id-%02d", (i*7)%13),
			Email:        fmt.Sprintf("user%02d@example.com", (i*5)%13),
			PasswordHash: "hash",
			FirstName:    firstNames[i%len(firstNames)],
			LastName:     lastNames[i%len(lastNames)],
			Birthdate:    births[i%len(births)],
			Role:         models.RoleUser,
			CreatedAt:    created[i%len(created)],
			UpdatedAt:    updated[i%len(updated)],
		})
	}
	return users
}

func compareValues(a, b any) int {
	switch av := a.(type) {
	case time.Time:
		return av.Compare(b.(time.Time))
	case string:
		return strings.Compare(av, b.(string))
	}
	panic("unsupported sort value")
}

// expectedOrder sorts ids by (field, id) in the requested direction
func expectedOrder(users []*models.User, field models.SortField, order models.SortOrder) []string {
	sorted := append([]*models.User(nil), users...)
	sort.Slice(sorted, func(i, j int) bool {
		c := compareValues(field.ValueOf(sorted[i]), field.ValueOf(sorted[j]))
		if c == 0 {
			c = strings.Compare(sorted[i].ID, sorted[j].ID)
		}
		if order == models.SortDesc {
			return c > 0
		}
		return c < 0
	})

	ids := make([]string, len(sorted))
	for i, u := range sorted {
		ids[i] = u.ID
	}
	return ids
}

// walk pages from the start until hasMore is false
func walk(t *testing.T, src pagination.Source, req models.PageRequest) ([]string, []*models.UserPage) {
	t.Helper()

	var ids []string
	var pages []*models.UserPage
	for i := 0; i < 100; i++ {
		page, err := pagination.FindPage(context.Background(), src, req)
		require.NoError(t, err)
		pages = append(pages, page)
		for _, u := range page.Data {
			ids = append(ids, u.ID)
		}
		if !page.HasMore {
			return ids, pages
		}
		require.NotNil(t, page.NextCursor)
		req.Cursor = *page.NextCursor
	}
	t.Fatal("pagination did not terminate")
	return nil, nil
}

func TestFindPage_VisitsEveryRowExactlyOnce(t *testing.T) {
	users := fixtureUsers()
	src := newSQLiteSource(t, users)

	fields := []models.SortField{
		models.SortByCreatedAt, models.SortByUpdatedAt, models.SortByFirstName,
		models.SortByLastName, models.SortByEmail, models.SortByBirthdate,
	}

	for _, field := range fields {
		for _, order := range []models.SortOrder{models.SortAsc, models.SortDesc} {
			for _, limit := range []int{1, 2, 3, 5, 13, 50} {
				name := fmt.Sprintf("%s_%s_limit%d", field, order, limit)
				t.Run(name, func(t *testing.T) {
					ids, _ := walk(t, src, models.PageRequest{Limit: limit, SortBy: field, SortOrder: order})

					assert.Equal(t, expectedOrder(users, field, order), ids)
				})
			}
		}
	}
}

func TestFindPage_SameCursorSamePage(t *testing.T) {
	src := newSQLiteSource(t, fixtureUsers())
	req := models.PageRequest{Limit: 4, SortBy: models.SortByCreatedAt, SortOrder: models.SortDesc}

	first, err := pagination.FindPage(context.Background(), src, req)
	require.NoError(t, err)
	require.NotNil(t, first.NextCursor)

	req.Cursor = *first.NextCursor
	a, err := pagination.FindPage(context.Background(), src, req)
	require.NoError(t, err)
	b, err := pagination.FindPage(context.Background(), src, req)
	require.NoError(t, err)

	assert.Equal(t, a, b)
}

func TestFindPage_HasMore(t *testing.T) {
	users := fixtureUsers()
	n := len(users)
	src := newSQLiteSource(t, users)

	for _, limit := range []int{1, 4, n - 1, n, n + 1} {
		t.Run(fmt.Sprintf("limit%d", limit), func(t *testing.T) {
			_, pages := walk(t, src, models.PageRequest{Limit: limit})

			seen := 0
			for i, page := range pages {
				assert.Equal(t, limit, page.Limit)
				assert.Equal(t, len(page.Data), page.Count)
				seen += page.Count

				last := i == len(pages)-1
				assert.Equal(t, n-seen > 0, page.HasMore)
				if last {
					assert.False(t, page.HasMore)
					assert.Nil(t, page.NextCursor)
				} else {
					require.NotNil(t, page.NextCursor)
					assert.Equal(t, page.Data[len(page.Data)-1].ID, *page.NextCursor)
				}
			}
			assert.Equal(t, n, seen)
		})
	}
}

func TestFindPage_TiedCreatedAtDescending(t *testing.T) {
	users := []*models.User{
		{ID: "A", Email: "a@example.com", FirstName: "Ann", LastName: "Able", Birthdate: day(1990, 1, 1), Role: models.RoleUser, CreatedAt: day(2024, 1, 1), UpdatedAt: day(2024, 1, 1)},
		{ID: "B", Email: "b@example.com", FirstName: "Ben", LastName: "Best", Birthdate: day(1990, 1, 1), Role: models.RoleUser, CreatedAt: day(2024, 1, 2), UpdatedAt: day(2024, 1, 2)},
		{ID: "C", Email: "c@example.com", FirstName: "Cat", LastName: "Cole", Birthdate: day(1990, 1, 1), Role: models.RoleUser, CreatedAt: day(2024, 1, 2), UpdatedAt: day(2024, 1, 2)},
	}
	src := newSQLiteSource(t, users)

	ids, pages := walk(t, src, models.PageRequest{Limit: 1, SortBy: models.SortByCreatedAt, SortOrder: models.SortDesc})

	assert.Equal(t, []string{"C", "B", "A"}, ids)
	require.Len(t, pages, 3)
	assert.Equal(t, "C", *pages[0].NextCursor)
	assert.Equal(t, "B", *pages[1].NextCursor)
	assert.Nil(t, pages[2].NextCursor)
}

func TestFindPage_UnknownCursorStartsFromBeginning(t *testing.T) {
	src := newSQLiteSource(t, fixtureUsers())
	req := models.PageRequest{Limit: 3}

	fromStart, err := pagination.FindPage(context.Background(), src, req)
	require.NoError(t, err)

	req.Cursor = "no-such-id"
	withBadCursor, err := pagination.FindPage(context.Background(), src, req)
	require.NoError(t, err)

	assert.Equal(t, fromStart, withBadCursor)
}

func TestFindPage_Filters(t *testing.T) {
	users := []*models.User{
		{ID: "1", Email: "alice@corp.io", FirstName: "Alice", LastName: "Smith", Birthdate: day(1990, 1, 1), Role: models.RoleUser, CreatedAt: day(2024, 1, 1), UpdatedAt: day(2024, 1, 1)},
		{ID: "2", Email: "bob@corp.io", FirstName: "Bob", LastName: "Malice", Birthdate: day(1990, 1, 1), Role: models.RoleUser, CreatedAt: day(2024, 1, 2), UpdatedAt: day(2024, 1, 2)},
		{ID: "3", Email: "carol@home.net", FirstName: "Carol", LastName: "Smithers", Birthdate: day(1990, 1, 1), Role: models.RoleAdmin, CreatedAt: day(2024, 1, 3), UpdatedAt: day(2024, 1, 3)},
		{ID: "4", Email: "dan_smith@corp.io", FirstName: "Dan", LastName: "Brown", Birthdate: day(1990, 1, 1), Role: models.RoleUser, CreatedAt: day(2024, 1, 4), UpdatedAt: day(2024, 1, 4)},
	}
	src := newSQLiteSource(t, users)

	tests := []struct {
		name    string
		filters models.UserFilters
		want    []string
	}{
		{"search matches any field", models.UserFilters{Search: "ALICE"}, []string{"1", "2"}},
		{"search ignores field filters", models.UserFilters{Search: "smith", FirstName: "nobody"}, []string{"1", "3", "4"}},
		{"last name", models.UserFilters{LastName: "smith"}, []string{"1", "3"}},
		{"fields are ANDed", models.UserFilters{LastName: "smith", Email: "corp"}, []string{"1"}},
		{"no match", models.UserFilters{Email: "example.org"}, []string{}},
		{"underscore is literal", models.UserFilters{Search: "_"}, []string{"4"}},
		{"percent is literal", models.UserFilters{Search: "%"}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ids, _ := walk(t, src, models.PageRequest{
				Limit:     2,
				SortBy:    models.SortByCreatedAt,
				SortOrder: models.SortAsc,
				Filters:   tt.filters,
			})
			if len(tt.want) == 0 {
				assert.Empty(t, ids)
				return
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}

type stubSource struct {
	getErr   error
	fetchErr error
}

func (s *stubSource) GetByID(ctx context.Context, id string) (*models.User, error) {
	return nil, s.getErr
}

func (s *stubSource) Fetch(ctx context.Context, b sq.SelectBuilder) ([]*models.User, error) {
	return nil, s.fetchErr
}

func TestFindPage_Errors(t *testing.T) {
	dbErr := errors.New("connection reset")

	_, err := pagination.FindPage(context.Background(), &stubSource{getErr: dbErr}, models.PageRequest{Cursor: "x"})
	assert.ErrorIs(t, err, dbErr)

	_, err = pagination.FindPage(context.Background(), &stubSource{fetchErr: dbErr}, models.PageRequest{})
	assert.ErrorIs(t, err, dbErr)

	page, err := pagination.FindPage(context.Background(), &stubSource{getErr: models.ErrBadRequest}, models.PageRequest{Cursor: "not-a-uuid"})
	require.NoError(t, err)
	assert.NotNil(t, page.Data)
	assert.Zero(t, page.Count)
	assert.False(t, page.HasMore)
	assert.Nil(t, page.NextCursor)
	assert.Equal(t, models.DefaultPageLimit, page.Limit)
}
