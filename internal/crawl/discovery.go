package crawl

import (
	"context"
	"fmt"

	"github.com/hojomatch/hojocrawl/internal/discover"
	"github.com/hojomatch/hojocrawl/internal/domain"
	"github.com/hojomatch/hojocrawl/internal/logger"
)

// DefaultDiscoveryQuery seeds the provider search when a run has no
// explicit query configured.
const DefaultDiscoveryQuery = "公募 補助金 申請 2025"

// DiscoveryLane asks the external providers for new candidate records
// and upserts whatever they return, one budgeted call per provider.
type DiscoveryLane struct {
	searchers []discover.Searcher
	query     string
	pages     PageStore
	runlog    *RunLog
	gate      SpendGate
	log       logger.Interface
}

// NewDiscoveryLane creates the provider discovery lane.
func NewDiscoveryLane(
	searchers []discover.Searcher,
	query string,
	pages PageStore,
	runlog *RunLog,
	gate SpendGate,
	log logger.Interface,
) *DiscoveryLane {
	if query == "" {
		query = DefaultDiscoveryQuery
	}

	return &DiscoveryLane{
		searchers: searchers,
		query:     query,
		pages:     pages,
		runlog:    runlog,
		gate:      gate,
		log:       log.WithComponent("discovery"),
	}
}

// Name identifies the lane in orchestrator logs.
func (l *DiscoveryLane) Name() string {
	return "discovery"
}

// Run queries each provider under the budget gate.
func (l *DiscoveryLane) Run(ctx context.Context) error {
	for _, searcher := range l.searchers {
		if timeLeft(ctx) < deadlineThreshold {
			l.log.Info("deadline reached, stopping discovery")
			return nil
		}

		l.runProvider(ctx, searcher)
	}

	return nil
}

func (l *DiscoveryLane) runProvider(ctx context.Context, searcher discover.Searcher) {
	logURL := searcher.Name() + ":discovery"

	allowed, err := l.gate.CanSpend(ctx, searcher.Name(), 1)
	if err != nil {
		l.log.Warn("budget check failed", "provider", searcher.Name(), "error", err)
		return
	}
	if !allowed {
		l.log.Info("discovery denied by budget", "provider", searcher.Name())
		return
	}

	candidates, err := searcher.Discover(ctx, l.query)
	if err != nil {
		l.runlog.Append(ctx, logURL, domain.StatusNG, 0, "api error: "+err.Error())
		return
	}

	if spendErr := l.gate.Spend(ctx, searcher.Name(), 1); spendErr != nil {
		l.log.Warn("failed to record spend", "provider", searcher.Name(), "error", spendErr)
	}

	saved := 0
	for _, candidate := range candidates {
		changed, upsertErr := l.pages.Upsert(ctx, pageFromCandidate(candidate))
		if upsertErr != nil {
			l.runlog.Append(ctx, candidate.URL, domain.StatusNG, 0, "upsert error: "+upsertErr.Error())
			continue
		}

		if changed {
			saved++
		}

		l.runlog.Append(ctx, candidate.URL, statusFor(changed), 0, "dr")
	}

	l.runlog.Append(ctx, logURL, domain.StatusList, 0,
		fmt.Sprintf("candidates=%d; saved=%d", len(candidates), saved))
}

// pageFromCandidate converts provider-extracted fields to a page record.
func pageFromCandidate(c domain.Candidate) *domain.Page {
	page := &domain.Page{
		URL:        c.URL,
		Title:      c.Title,
		Summary:    optional(c.Summary),
		Rate:       optional(c.Rate),
		Cap:        optional(c.Cap),
		FiscalYear: optional(c.FiscalYear),
		CallNo:     optional(c.CallNo),
	}
	if page.Title == "" {
		page.Title = domain.UntitledTitle
	}

	return page
}
