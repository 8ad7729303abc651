package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/hojomatch/hojocrawl/internal/domain"
	"github.com/hojomatch/hojocrawl/internal/textnorm"
)

// pageSelectColumns lists columns for SELECT queries on pages.
const pageSelectColumns = `url, title, summary, rate, cap, target, cost_items, deadline,
	fiscal_year, call_no, scheme_type, period_from, period_to, content_hash, last_fetched`

// PageRepository handles database operations for the URL-keyed page store.
type PageRepository struct {
	db *sqlx.DB
}

// NewPageRepository creates a new page repository.
func NewPageRepository(db *sqlx.DB) *PageRepository {
	return &PageRepository{db: db}
}

// Upsert writes a page record with content-hash change detection. Returns
// false without touching the row (including last_fetched) when the stored
// record carries an identical content hash, true when the row was written.
func (r *PageRepository) Upsert(ctx context.Context, page *domain.Page) (bool, error) {
	page.ContentHash = textnorm.ContentHash(page)

	var prev string

	err := r.db.GetContext(ctx, &prev, `SELECT content_hash FROM pages WHERE url = $1`, page.URL)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return false, fmt.Errorf("failed to read page hash: %w", err)
	}

	if err == nil && prev == page.ContentHash {
		return false, nil // unchanged
	}

	query := `
		INSERT INTO pages (url, title, summary, rate, cap, target, cost_items, deadline,
			fiscal_year, call_no, scheme_type, period_from, period_to, content_hash)
		VALUES (:url, :title, :summary, :rate, :cap, :target, :cost_items, :deadline,
			:fiscal_year, :call_no, :scheme_type, :period_from, :period_to, :content_hash)
		ON CONFLICT (url) DO UPDATE SET
			title = EXCLUDED.title, summary = EXCLUDED.summary, rate = EXCLUDED.rate,
			cap = EXCLUDED.cap, target = EXCLUDED.target, cost_items = EXCLUDED.cost_items,
			deadline = EXCLUDED.deadline, fiscal_year = EXCLUDED.fiscal_year,
			call_no = EXCLUDED.call_no, scheme_type = EXCLUDED.scheme_type,
			period_from = EXCLUDED.period_from, period_to = EXCLUDED.period_to,
			content_hash = EXCLUDED.content_hash, last_fetched = now()
	`

	if _, execErr := r.db.NamedExecContext(ctx, query, page); execErr != nil {
		return false, fmt.Errorf("failed to upsert page: %w", execErr)
	}

	return true, nil
}

// Get returns the stored page for a URL, or sql.ErrNoRows.
func (r *PageRepository) Get(ctx context.Context, url string) (*domain.Page, error) {
	var page domain.Page

	query := `SELECT ` + pageSelectColumns + ` FROM pages WHERE url = $1`
	if err := r.db.GetContext(ctx, &page, query, url); err != nil {
		return nil, fmt.Errorf("failed to select page: %w", err)
	}

	return &page, nil
}

// PickDeficient returns up to n URLs whose records need repair: an
// untitled placeholder title or an empty summary. Oldest fetches first so
// the backfill loop rotates through the whole backlog. The sentinel row
// is excluded.
func (r *PageRepository) PickDeficient(ctx context.Context, n int) ([]string, error) {
	query := `
		SELECT url
		FROM pages
		WHERE position($1 in url) = 0
		  AND (title = $2 OR coalesce(summary, '') = '')
		ORDER BY last_fetched ASC NULLS FIRST
		LIMIT $3
	`

	var urls []string
	if err := r.db.SelectContext(ctx, &urls, query, domain.SentinelURL, domain.UntitledTitle, n); err != nil {
		return nil, fmt.Errorf("failed to pick deficient pages: %w", err)
	}

	return urls, nil
}

// CountNonSentinel counts stored pages excluding the sentinel row.
func (r *PageRepository) CountNonSentinel(ctx context.Context) (int, error) {
	var count int

	query := `SELECT count(*) FROM pages WHERE position($1 in url) = 0`
	if err := r.db.GetContext(ctx, &count, query, domain.SentinelURL); err != nil {
		return 0, fmt.Errorf("failed to count pages: %w", err)
	}

	return count, nil
}
