package crawl

import (
	"context"
	"fmt"

	"github.com/hojomatch/hojocrawl/internal/domain"
)

// Summary aggregates one run's fetch_log rows by status, plus the
// non-sentinel page count after the run.
type Summary struct {
	RunID            string
	Counts           map[string]int
	PagesNonSentinel int
}

// BuildSummary queries the per-run status counts and the page total.
func BuildSummary(ctx context.Context, logs LogStore, pages PageStore, runID string) (*Summary, error) {
	counts, err := logs.CountByStatus(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate run log: %w", err)
	}

	total, err := pages.CountNonSentinel(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count pages: %w", err)
	}

	return &Summary{RunID: runID, Counts: counts, PagesNonSentinel: total}, nil
}

// String renders the single stdout summary line.
func (s *Summary) String() string {
	return fmt.Sprintf(
		"SUMMARY run=%s: ok=%d, 304=%d, skip=%d, ng=%d, list=%d, seed=%d, pages_non_sentinel=%d",
		s.RunID,
		s.Counts[domain.StatusOK.String()],
		s.Counts[domain.StatusNotModified.String()],
		s.Counts[domain.StatusSkip.String()],
		s.Counts[domain.StatusNG.String()],
		s.Counts[domain.StatusList.String()],
		s.Counts[domain.StatusSeed.String()],
		s.PagesNonSentinel,
	)
}
