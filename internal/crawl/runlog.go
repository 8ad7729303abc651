package crawl

import (
	"context"

	"github.com/hojomatch/hojocrawl/internal/domain"
	"github.com/hojomatch/hojocrawl/internal/logger"
)

// RunLog tags every fetch_log row with the current run so the summary
// can aggregate per-run totals by substring containment. Appends are
// best-effort: a failed log write must not fail the fetch it describes.
type RunLog struct {
	store LogStore
	runID string
	log   logger.Interface
}

// NewRunLog creates a run-scoped log writer.
func NewRunLog(store LogStore, runID string, log logger.Interface) *RunLog {
	return &RunLog{store: store, runID: runID, log: log.WithRun(runID)}
}

// RunID returns the run identifier.
func (l *RunLog) RunID() string {
	return l.runID
}

// Append writes a log row with the "run=<id>; " prefix.
func (l *RunLog) Append(ctx context.Context, url string, status domain.FetchStatus, tookMS int, note string) {
	prefixed := "run=" + l.runID + "; " + note

	if err := l.store.Append(ctx, url, status, tookMS, prefixed); err != nil {
		l.log.Warn("failed to append fetch log", "url", url, "status", status, "error", err)
	}

	l.log.Debug("fetch logged", "url", url, "status", status, "took_ms", tookMS, "note", note)
}
