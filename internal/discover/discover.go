// Package discover builds candidate URL lists for a crawl run: anchor
// extraction from list pages, regex harvesting over raw bodies, and
// adapters for external search/research providers.
package discover

import (
	"context"

	"github.com/hojomatch/hojocrawl/internal/domain"
)

// Searcher proposes candidate records for a query, restricted to the
// provider's allowed domains.
type Searcher interface {
	Name() string
	Discover(ctx context.Context, query string) ([]domain.Candidate, error)
}

// TextFetcher extracts the readable main text of a URL through an
// external provider. An empty string with a nil error means the
// provider had nothing usable.
type TextFetcher interface {
	FetchText(ctx context.Context, pageURL string, maxChars int) (string, error)
}
