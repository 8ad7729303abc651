// Package budget enforces per-API monthly call quotas. An unconfigured
// quota denies spending, so new APIs are opt-in.
package budget

import (
	"context"
	"fmt"
	"time"

	"github.com/hojomatch/hojocrawl/internal/logger"
)

// QuotaStore is the persistence surface the gate needs.
type QuotaStore interface {
	SetMonthlyLimit(ctx context.Context, month, api string, limit int) error
	Usage(ctx context.Context, month, api string) (used, limit int, err error)
	AddUsage(ctx context.Context, month, api string, n int) error
}

// Gate answers whether an API call fits the current month's quota.
type Gate struct {
	store QuotaStore
	log   logger.Interface
	now   func() time.Time
}

// New creates a budget gate.
func New(store QuotaStore, log logger.Interface) *Gate {
	return &Gate{store: store, log: log.WithComponent("budget"), now: time.Now}
}

// month is the quota row key, "YYYY-MM" in UTC.
func (g *Gate) month() string {
	return g.now().UTC().Format("2006-01")
}

// SetMonthlyLimit configures this month's limit for an API.
func (g *Gate) SetMonthlyLimit(ctx context.Context, api string, limit int) error {
	if err := g.store.SetMonthlyLimit(ctx, g.month(), api, limit); err != nil {
		return fmt.Errorf("failed to set %s limit: %w", api, err)
	}

	return nil
}

// CanSpend reports whether spending n more calls keeps the API within
// this month's limit. A zero (unconfigured) limit denies.
func (g *Gate) CanSpend(ctx context.Context, api string, n int) (bool, error) {
	used, limit, err := g.store.Usage(ctx, g.month(), api)
	if err != nil {
		return false, fmt.Errorf("failed to read %s usage: %w", api, err)
	}
	if limit == 0 {
		g.log.Debug("quota unconfigured, denying", "api", api)
		return false, nil
	}

	ok := used+n <= limit
	if !ok {
		g.log.Info("quota exhausted", "api", api, "used", used, "limit", limit, "requested", n)
	}

	return ok, nil
}

// Spend records n calls against this month's counter.
func (g *Gate) Spend(ctx context.Context, api string, n int) error {
	if err := g.store.AddUsage(ctx, g.month(), api, n); err != nil {
		return fmt.Errorf("failed to record %s usage: %w", api, err)
	}

	return nil
}
