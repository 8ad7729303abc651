package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/hojomatch/hojocrawl/internal/domain"
)

// FetchLogRepository appends to and aggregates the fetch_log event stream.
// The table doubles as event bus and audit log: structured counters travel
// in the error column by convention (key=value, ...), and every row written
// during a run is prefixed "run=<id>; " so summaries can aggregate by
// substring containment.
type FetchLogRepository struct {
	db *sqlx.DB
}

// NewFetchLogRepository creates a new fetch log repository.
func NewFetchLogRepository(db *sqlx.DB) *FetchLogRepository {
	return &FetchLogRepository{db: db}
}

// Append inserts a log row. An empty note is stored as NULL.
func (r *FetchLogRepository) Append(
	ctx context.Context,
	url string,
	status domain.FetchStatus,
	tookMS int,
	note string,
) error {
	query := `INSERT INTO fetch_log (url, status, took_ms, error) VALUES ($1, $2, $3, NULLIF($4, ''))`

	if _, err := r.db.ExecContext(ctx, query, url, status.String(), tookMS, note); err != nil {
		return fmt.Errorf("failed to append fetch log: %w", err)
	}

	return nil
}

// CountByStatus aggregates the rows tagged with the given run id,
// matching the "run=<id>; " prefix by substring containment.
func (r *FetchLogRepository) CountByStatus(ctx context.Context, runID string) (map[string]int, error) {
	query := `
		SELECT status, count(*) AS n
		FROM fetch_log
		WHERE position('run=' || $1 || ';' in coalesce(error, '')) > 0
		GROUP BY status
	`

	rows, err := r.db.QueryxContext(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to count fetch log: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)

	for rows.Next() {
		var (
			status string
			n      int
		)

		if scanErr := rows.Scan(&status, &n); scanErr != nil {
			return nil, fmt.Errorf("failed to scan fetch log count: %w", scanErr)
		}

		counts[status] = n
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, fmt.Errorf("failed to iterate fetch log counts: %w", rowsErr)
	}

	return counts, nil
}
