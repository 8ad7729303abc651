// Package common wires the shared dependencies the subcommands need:
// configuration, logging, the database pool and repositories, the HTTP
// client, the budget gate and the optional discovery providers.
package common

import (
	"context"
	"fmt"
	"os"

	"github.com/jmoiron/sqlx"

	"github.com/hojomatch/hojocrawl/internal/budget"
	"github.com/hojomatch/hojocrawl/internal/config"
	"github.com/hojomatch/hojocrawl/internal/crawl"
	"github.com/hojomatch/hojocrawl/internal/database"
	"github.com/hojomatch/hojocrawl/internal/discover"
	"github.com/hojomatch/hojocrawl/internal/fetcher"
	"github.com/hojomatch/hojocrawl/internal/logger"
)

// Deps holds everything a subcommand needs to run.
type Deps struct {
	Config *config.Config
	Log    logger.Interface
	DB     *sqlx.DB

	Pages *database.PageRepository
	Cache *database.HTTPCacheRepository
	Logs  *database.FetchLogRepository
	Quota *database.QuotaRepository
	Query *database.QueryRepository

	Fetch *fetcher.Client
	Gate  *budget.Gate

	// Providers are nil when the corresponding API key is unset.
	Tavily   *discover.Tavily
	Research *discover.Research
}

// Build resolves configuration and connects the dependency graph.
// Callers must Close the result.
func Build() (*Deps, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	log, err := logger.New(&cfg.Logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}

	fetch := fetcher.New(fetcher.Config{
		ConnectTimeout:     cfg.Fetcher.ConnectTimeout,
		ReadTimeout:        cfg.Fetcher.ReadTimeout,
		HeadConnectTimeout: cfg.Fetcher.HeadConnectTimeout,
		HeadReadTimeout:    cfg.Fetcher.HeadReadTimeout,
		HostReadTimeouts:   cfg.Fetcher.HostReadTimeouts,
	})
	fetch.SetForceRefresh(cfg.Crawl.ForceRefresh)

	deps := &Deps{
		Config: cfg,
		Log:    log,
		DB:     db,
		Pages:  database.NewPageRepository(db),
		Cache:  database.NewHTTPCacheRepository(db),
		Logs:   database.NewFetchLogRepository(db),
		Quota:  database.NewQuotaRepository(db),
		Query:  database.NewQueryRepository(db),
		Fetch:  fetch,
	}
	deps.Gate = budget.New(deps.Quota, log)

	if cfg.Providers.TavilyAPIKey != "" {
		deps.Tavily = discover.NewTavily(&discover.TavilyConfig{APIKey: cfg.Providers.TavilyAPIKey}, log)
	}
	if cfg.Providers.OpenAIAPIKey != "" {
		deps.Research = discover.NewResearch(&discover.ResearchConfig{
			APIKey:         cfg.Providers.OpenAIAPIKey,
			Model:          cfg.Providers.ResearchModel,
			AllowedDomains: cfg.Providers.ResearchDomains,
			MaxItems:       cfg.Providers.ResearchMaxItems,
			Timeout:        cfg.Providers.ResearchTimeout,
		}, log)
	}

	return deps, nil
}

// Close releases the database pool.
func (d *Deps) Close() {
	if err := d.DB.Close(); err != nil {
		d.Log.Warn("failed to close database", "error", err)
	}
}

// Searchers returns the configured discovery providers keyed by the name
// seed sources reference them with.
func (d *Deps) Searchers() map[string]discover.Searcher {
	searchers := map[string]discover.Searcher{}
	if d.Tavily != nil {
		searchers[d.Tavily.Name()] = d.Tavily
	}
	if d.Research != nil {
		searchers[d.Research.Name()] = d.Research
	}

	return searchers
}

// DiscoverySearchers returns the providers the discovery lane queries,
// in a stable order.
func (d *Deps) DiscoverySearchers() []discover.Searcher {
	var searchers []discover.Searcher
	if d.Research != nil {
		searchers = append(searchers, d.Research)
	}
	if d.Tavily != nil {
		searchers = append(searchers, d.Tavily)
	}

	return searchers
}

// CrawlText returns the raw-content fallback used when a page body
// cannot be fetched directly, or nil when Tavily is unconfigured.
func (d *Deps) CrawlText() discover.TextFetcher {
	if d.Tavily == nil {
		return nil
	}

	return d.Tavily
}

// ResearchText returns the deep-research text provider the repair ladder
// falls back to, or nil when OpenAI is unconfigured.
func (d *Deps) ResearchText() discover.TextFetcher {
	if d.Research == nil {
		return nil
	}

	return d.Research
}

// PrintRunSummary writes the per-run counter line to stdout. Every
// subcommand emits it before exiting.
func (d *Deps) PrintRunSummary(ctx context.Context, runID string) {
	summary, err := crawl.BuildSummary(ctx, d.Logs, d.Pages, runID)
	if err != nil {
		d.Log.Warn("failed to build run summary", "error", err)
		return
	}

	fmt.Fprintln(os.Stdout, summary.String())
}
