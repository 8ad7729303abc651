package backfill

import (
	"context"
	"fmt"
	"time"

	"github.com/hojomatch/hojocrawl/internal/logger"
)

// deadlineThreshold mirrors the orchestrator's per-step gate.
const deadlineThreshold = 5 * time.Second

// Lane repairs a batch of deficient rows as one orchestrator stage.
type Lane struct {
	repairer *Repairer
	pages    PageStore
	batch    int
	log      logger.Interface
}

// NewLane creates the backfill lane.
func NewLane(repairer *Repairer, pages PageStore, batch int, log logger.Interface) *Lane {
	if batch <= 0 {
		batch = DefaultBatch
	}

	return &Lane{repairer: repairer, pages: pages, batch: batch, log: log.WithComponent("backfill")}
}

// Name identifies the lane in orchestrator logs.
func (l *Lane) Name() string {
	return "backfill"
}

// Run repairs one batch.
func (l *Lane) Run(ctx context.Context) error {
	_, _, err := l.RunBatch(ctx)
	return err
}

// RunBatch picks the oldest deficient rows and walks each through the
// ladder, reporting how many were processed and how many changed.
func (l *Lane) RunBatch(ctx context.Context) (processed, updated int, err error) {
	urls, err := l.pages.PickDeficient(ctx, l.batch)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to pick deficient rows: %w", err)
	}

	for _, url := range urls {
		if remaining(ctx) < deadlineThreshold {
			l.log.Info("deadline reached, stopping repairs", "processed", processed)
			break
		}

		processed++
		if l.repairer.ProcessOne(ctx, url) {
			updated++
		}
	}

	l.log.Info("batch done", "picked", len(urls), "processed", processed, "updated", updated)

	return processed, updated, nil
}

func remaining(ctx context.Context) time.Duration {
	deadline, ok := ctx.Deadline()
	if !ok {
		return time.Duration(1<<63 - 1)
	}

	return time.Until(deadline)
}
