package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/hojomatch/hojocrawl/internal/domain"
)

// DefaultQueryLimit bounds page reads when the caller does not specify
// a limit.
const DefaultQueryLimit = 40

// QueryRepository serves the read path consumed by the recommend surface.
// It never writes.
type QueryRepository struct {
	db *sqlx.DB
}

// NewQueryRepository creates a new query repository.
func NewQueryRepository(db *sqlx.DB) *QueryRepository {
	return &QueryRepository{db: db}
}

// Search returns the most recently fetched pages, optionally filtered by
// a full-text query against the tokens index (simple dictionary). The
// projection is the full page record including last_fetched.
func (r *QueryRepository) Search(ctx context.Context, query string, limit int) ([]domain.Page, error) {
	if limit <= 0 {
		limit = DefaultQueryLimit
	}

	var (
		pages []domain.Page
		err   error
	)

	if query != "" {
		stmt := `SELECT ` + pageSelectColumns + `
			FROM pages
			WHERE tokens @@ plainto_tsquery('simple', $1)
			ORDER BY last_fetched DESC
			LIMIT $2`
		err = r.db.SelectContext(ctx, &pages, stmt, query, limit)
	} else {
		stmt := `SELECT ` + pageSelectColumns + `
			FROM pages
			ORDER BY last_fetched DESC
			LIMIT $1`
		err = r.db.SelectContext(ctx, &pages, stmt, limit)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to search pages: %w", err)
	}

	return pages, nil
}
