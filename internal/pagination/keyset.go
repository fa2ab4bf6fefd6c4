package pagination

import (
	"strings"

	"github.com/BradenHooton/adminpanel/internal/models"
	sq "github.com/Masterminds/squirrel"
)

// UsersTable is the table user pages are read from
const UsersTable = "users"

// UserColumns is the select list for a full user row. Scanners must read
// columns in this order.
var UserColumns = []string{
	"id", "email", "password_hash", "first_name", "last_name", "birthdate", "role",
	"password_reset_token", "password_reset_expires", "created_at", "updated_at",
}

// Keyset is the position a page resumes after: the sort value and id of the
// last row already returned
type Keyset struct {
	Value any
	ID    string
}

// KeysetOf captures the position of u under the given sort field
func KeysetOf(u *models.User, field models.SortField) *Keyset {
	return &Keyset{Value: field.ValueOf(u), ID: u.ID}
}

// BuildQuery returns the query for one page of users. It selects limit+1 rows
// so the caller can tell whether another page follows. The placeholder format
// is left to the caller.
func BuildQuery(req models.PageRequest, after *Keyset) sq.SelectBuilder {
	req = req.Normalize()
	col := req.SortBy.Column()
	dir := string(req.SortOrder)

	query := sq.Select(UserColumns...).From(UsersTable)
	query = applyFilters(query, req.Filters)

	if after != nil {
		query = query.Where(cursorPredicate(col, req.SortOrder, after))
	}

	return query.
		OrderBy(col+" "+dir, "id "+dir).
		Limit(uint64(req.Limit) + 1)
}

// applyFilters adds the case-insensitive substring filters. A search term
// matches any of email, first name or last name and suppresses the
// per-field filters.
func applyFilters(query sq.SelectBuilder, f models.UserFilters) sq.SelectBuilder {
	if f.Search != "" {
		return query.Where(sq.Or{
			containsFold("email", f.Search),
			containsFold("first_name", f.Search),
			containsFold("last_name", f.Search),
		})
	}

	if f.FirstName != "" {
		query = query.Where(containsFold("first_name", f.FirstName))
	}
	if f.LastName != "" {
		query = query.Where(containsFold("last_name", f.LastName))
	}
	if f.Email != "" {
		query = query.Where(containsFold("email", f.Email))
	}
	return query
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsFold matches term as a literal, case-insensitive substring of col
func containsFold(col, term string) sq.Sqlizer {
	return sq.Expr("LOWER("+col+") LIKE ? ESCAPE '\\'", containsPattern(term))
}

func containsPattern(term string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(term)) + "%"
}

// cursorPredicate resumes strictly after the keyset row under the
// (col, id) ordering: (col op V) OR (col = V AND id op cursorID)
func cursorPredicate(col string, order models.SortOrder, after *Keyset) sq.Sqlizer {
	if order == models.SortAsc {
		return sq.Or{
			sq.Gt{col: after.Value},
			sq.And{sq.Eq{col: after.Value}, sq.Gt{"id": after.ID}},
		}
	}
	return sq.Or{
		sq.Lt{col: after.Value},
		sq.And{sq.Eq{col: after.Value}, sq.Lt{"id": after.ID}},
	}
}
