package crawl

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hojomatch/hojocrawl/internal/config"
	"github.com/hojomatch/hojocrawl/internal/domain"
	"github.com/hojomatch/hojocrawl/internal/hostlimit"
	"github.com/hojomatch/hojocrawl/internal/logger"
	"github.com/hojomatch/hojocrawl/internal/seeds"
)

type memLogStore struct {
	urls     []string
	statuses []domain.FetchStatus
	notes    []string
}

func (s *memLogStore) Append(_ context.Context, url string, status domain.FetchStatus, _ int, note string) error {
	s.urls = append(s.urls, url)
	s.statuses = append(s.statuses, status)
	s.notes = append(s.notes, note)

	return nil
}

func (s *memLogStore) CountByStatus(context.Context, string) (map[string]int, error) {
	return map[string]int{}, nil
}

func TestProcessURL_DeadlineSkipNote(t *testing.T) {
	store := &memLogStore{}
	cfg := config.CrawlConfig{MaxPagesPerRun: 60, MaxPerDomain: 25, ParallelWorkers: 1}

	lane := NewCrawlLane(
		cfg, &seeds.File{}, nil, hostlimit.NewRegistry(1),
		nil, nil, NewRunLog(store, "t1", logger.NewNoOp()),
		nil, nil, nil, logger.NewNoOp(),
	)

	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()

	lane.processURL(ctx, "https://www.allowed.example/koubo/late.html")

	require.Len(t, store.notes, 1)
	assert.Equal(t, domain.StatusSkip, store.statuses[0])
	assert.Equal(t, "run=t1; reason=deadline", store.notes[0])
}
