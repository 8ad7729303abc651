package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/hojomatch/hojocrawl/internal/domain"
)

// HTTPCacheRepository handles database operations for per-URL conditional
// request metadata (ETag / Last-Modified).
type HTTPCacheRepository struct {
	db *sqlx.DB
}

// NewHTTPCacheRepository creates a new HTTP cache repository.
func NewHTTPCacheRepository(db *sqlx.DB) *HTTPCacheRepository {
	return &HTTPCacheRepository{db: db}
}

// Upsert writes the cache entry for a URL. last_checked_at always
// advances; last_changed_at advances only when the incoming etag or
// last_modified differs from the stored values, preserving the stored
// change time otherwise. Implemented as a single statement so concurrent
// workers cannot interleave read-modify-write.
func (r *HTTPCacheRepository) Upsert(
	ctx context.Context,
	url string,
	etag, lastModified *string,
	status int,
) error {
	query := `
		INSERT INTO http_cache (url, etag, last_modified, last_status, last_checked_at, last_changed_at)
		VALUES ($1, $2, $3, $4, now(),
			CASE WHEN $5 <> coalesce((SELECT etag FROM http_cache WHERE url = $6), '')
			       OR $7 <> coalesce((SELECT last_modified FROM http_cache WHERE url = $8), '')
			     THEN now()
			     ELSE coalesce((SELECT last_changed_at FROM http_cache WHERE url = $9), now())
			END)
		ON CONFLICT (url) DO UPDATE SET
			etag = EXCLUDED.etag,
			last_modified = EXCLUDED.last_modified,
			last_status = EXCLUDED.last_status,
			last_checked_at = now(),
			last_changed_at = EXCLUDED.last_changed_at
	`

	_, err := r.db.ExecContext(
		ctx, query,
		url, etag, lastModified, status,
		orEmpty(etag), url, orEmpty(lastModified), url, url,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert http cache: %w", err)
	}

	return nil
}

// Get returns the stored validators for a URL. A URL never seen before
// yields (nil, nil, nil).
func (r *HTTPCacheRepository) Get(ctx context.Context, url string) (etag, lastModified *string, err error) {
	var entry domain.HTTPCacheEntry

	query := `SELECT url, etag, last_modified, last_status, last_checked_at, last_changed_at
		FROM http_cache WHERE url = $1`

	getErr := r.db.GetContext(ctx, &entry, query, url)
	if errors.Is(getErr, sql.ErrNoRows) {
		return nil, nil, nil
	}

	if getErr != nil {
		return nil, nil, fmt.Errorf("failed to select http cache: %w", getErr)
	}

	return entry.ETag, entry.LastModified, nil
}

func orEmpty(s *string) string {
	if s == nil {
		return ""
	}

	return *s
}
