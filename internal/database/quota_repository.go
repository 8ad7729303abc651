package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// QuotaRepository handles the monthly API usage counters backing the
// budget gate. Rows are keyed (month, api) with month as "YYYY-MM" UTC.
type QuotaRepository struct {
	db *sqlx.DB
}

// NewQuotaRepository creates a new quota repository.
func NewQuotaRepository(db *sqlx.DB) *QuotaRepository {
	return &QuotaRepository{db: db}
}

// SetMonthlyLimit upserts the limit for (month, api) without touching the
// used counter.
func (r *QuotaRepository) SetMonthlyLimit(ctx context.Context, month, api string, limit int) error {
	query := `
		INSERT INTO api_quota (month, api, used, quota_limit)
		VALUES ($1, $2, 0, $3)
		ON CONFLICT (month, api) DO UPDATE SET quota_limit = EXCLUDED.quota_limit
	`

	if _, err := r.db.ExecContext(ctx, query, month, api, limit); err != nil {
		return fmt.Errorf("failed to set monthly limit: %w", err)
	}

	return nil
}

// Usage returns (used, limit) for (month, api); (0, 0) when no row exists.
func (r *QuotaRepository) Usage(ctx context.Context, month, api string) (used, limit int, err error) {
	row := struct {
		Used  int `db:"used"`
		Limit int `db:"quota_limit"`
	}{}

	query := `SELECT used, quota_limit FROM api_quota WHERE month = $1 AND api = $2`

	getErr := r.db.GetContext(ctx, &row, query, month, api)
	if errors.Is(getErr, sql.ErrNoRows) {
		return 0, 0, nil
	}

	if getErr != nil {
		return 0, 0, fmt.Errorf("failed to select quota usage: %w", getErr)
	}

	return row.Used, row.Limit, nil
}

// AddUsage atomically increments the used counter by n, creating the
// month row (with an unconfigured limit) when absent.
func (r *QuotaRepository) AddUsage(ctx context.Context, month, api string, n int) error {
	query := `
		INSERT INTO api_quota (month, api, used, quota_limit)
		VALUES ($1, $2, $3, 0)
		ON CONFLICT (month, api) DO UPDATE SET used = api_quota.used + EXCLUDED.used
	`

	if _, err := r.db.ExecContext(ctx, query, month, api, n); err != nil {
		return fmt.Errorf("failed to add quota usage: %w", err)
	}

	return nil
}
