package pagination

import (
	"context"
	"errors"
	"fmt"

	"github.com/BradenHooton/adminpanel/internal/models"
	sq "github.com/Masterminds/squirrel"
)

// Source is the store a page is read from
type Source interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	Fetch(ctx context.Context, query sq.SelectBuilder) ([]*models.User, error)
}

// FindPage returns one page of users. The cursor is the id of the last row
// of the previous page; an id that no longer resolves starts from the
// beginning.
func FindPage(ctx context.Context, src Source, req models.PageRequest) (*models.UserPage, error) {
	req = req.Normalize()

	var after *Keyset
	if req.Cursor != "" {
		row, err := src.GetByID(ctx, req.Cursor)
		switch {
		case err == nil:
			after = KeysetOf(row, req.SortBy)
		case errors.Is(err, models.ErrNotFound), errors.Is(err, models.ErrBadRequest):
			// unknown or malformed cursor: scan from the start
		default:
			return nil, fmt.Errorf("resolve cursor: %w", err)
		}
	}

	rows, err := src.Fetch(ctx, BuildQuery(req, after))
	if err != nil {
		return nil, fmt.Errorf("fetch page: %w", err)
	}

	page := &models.UserPage{Limit: req.Limit}
	if len(rows) > req.Limit {
		page.HasMore = true
		rows = rows[:req.Limit]
	}
	if rows == nil {
		rows = []*models.User{}
	}
	page.Data = rows
	page.Count = len(rows)

	if page.HasMore && len(rows) > 0 {
		last := rows[len(rows)-1].ID
		page.NextCursor = &last
	}

	return page, nil
}
