package crawl

import (
	"context"
	"fmt"
	"time"

	"github.com/hojomatch/hojocrawl/internal/logger"
)

// Lane is one stage of a crawl run.
type Lane interface {
	Name() string
	Run(ctx context.Context) error
}

// Orchestrator sequences the lanes under the hard wall-clock deadline
// and emits the run summary.
type Orchestrator struct {
	hardKill     time.Duration
	ensureSchema func(ctx context.Context) error
	lanes        []Lane
	logs         LogStore
	pages        PageStore
	runID        string
	log          logger.Interface
}

// NewOrchestrator creates a run driver. Lanes execute in the given
// order; a failing lane is logged and the run continues.
func NewOrchestrator(
	hardKill time.Duration,
	ensureSchema func(ctx context.Context) error,
	lanes []Lane,
	logs LogStore,
	pages PageStore,
	runID string,
	log logger.Interface,
) *Orchestrator {
	return &Orchestrator{
		hardKill:     hardKill,
		ensureSchema: ensureSchema,
		lanes:        lanes,
		logs:         logs,
		pages:        pages,
		runID:        runID,
		log:          log.WithComponent("orchestrator").WithRun(runID),
	}
}

// Run executes the lanes and returns the run summary. The summary is
// built even when the deadline cut the run short.
func (o *Orchestrator) Run(ctx context.Context) (*Summary, error) {
	start := time.Now()

	runCtx, cancel := context.WithDeadline(ctx, start.Add(o.hardKill))
	defer cancel()

	if err := o.ensureSchema(runCtx); err != nil {
		return nil, fmt.Errorf("failed to ensure schema: %w", err)
	}

	for _, lane := range o.lanes {
		if timeLeft(runCtx) < deadlineThreshold {
			o.log.Info("deadline reached, skipping remaining lanes", "lane", lane.Name())
			break
		}

		o.log.Info("lane start", "lane", lane.Name())
		if err := lane.Run(runCtx); err != nil {
			o.log.Error("lane failed", "lane", lane.Name(), "error", err)
			continue
		}
		o.log.Info("lane done", "lane", lane.Name(), "elapsed", time.Since(start))
	}

	// The summary must come out even when the run deadline has passed.
	summary, err := BuildSummary(context.WithoutCancel(runCtx), o.logs, o.pages, o.runID)
	if err != nil {
		return nil, err
	}

	o.log.Info("run complete", "elapsed", time.Since(start), "pages_non_sentinel", summary.PagesNonSentinel)

	return summary, nil
}
