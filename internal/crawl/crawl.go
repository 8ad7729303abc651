// Package crawl drives a single crawler run: RSS ingestion, seed
// expansion with a parallel worker pool, optional discovery, and the
// run summary, all under a hard wall-clock deadline.
package crawl

import (
	"context"
	"time"

	"github.com/hojomatch/hojocrawl/internal/domain"
	"github.com/hojomatch/hojocrawl/internal/fetcher"
)

// deadlineThreshold is the minimum remaining wall-clock time a step
// needs before it is allowed to start network or DB work.
const deadlineThreshold = 5 * time.Second

// PageStore is the pages-table surface the lanes need.
type PageStore interface {
	Upsert(ctx context.Context, page *domain.Page) (bool, error)
	CountNonSentinel(ctx context.Context) (int, error)
}

// CacheStore reads and writes the conditional-request metadata.
type CacheStore interface {
	Get(ctx context.Context, url string) (etag, lastModified *string, err error)
	Upsert(ctx context.Context, url string, etag, lastModified *string, status int) error
}

// LogStore appends to and aggregates the fetch_log stream.
type LogStore interface {
	Append(ctx context.Context, url string, status domain.FetchStatus, tookMS int, note string) error
	CountByStatus(ctx context.Context, runID string) (map[string]int, error)
}

// Fetcher issues conditional GET requests.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string, etag, lastModified *string) (*fetcher.Result, error)
}

// timeLeft reports the remaining time before the context deadline. A
// context without a deadline never runs out.
func timeLeft(ctx context.Context) time.Duration {
	deadline, ok := ctx.Deadline()
	if !ok {
		return time.Duration(1<<63 - 1)
	}

	return time.Until(deadline)
}
