// Package crawl implements the crawl command: one full incremental run
// over the seed list, bounded by the run's wall-clock deadline.
package crawl

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/hojomatch/hojocrawl/cmd/common"
	"github.com/hojomatch/hojocrawl/internal/backfill"
	crawler "github.com/hojomatch/hojocrawl/internal/crawl"
	"github.com/hojomatch/hojocrawl/internal/database"
	"github.com/hojomatch/hojocrawl/internal/hostlimit"
	"github.com/hojomatch/hojocrawl/internal/seeds"
)

// Command returns the crawl command.
func Command() *cobra.Command {
	return &cobra.Command{
		Use:   "crawl",
		Short: "Run one incremental crawl over the seed list",
		Long: `Run one incremental crawl: RSS ingestion, seed expansion with a
parallel worker pool, optionally one backfill repair, then provider
discovery. The run stops at the hard wall-clock deadline and always
prints the SUMMARY line.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			deps, err := common.Build()
			if err != nil {
				return err
			}
			defer deps.Close()

			start := time.Now()

			summary, err := Execute(cmd.Context(), deps, deps.Config.Crawl.RunID)
			if err != nil {
				return err
			}

			fmt.Fprintln(os.Stdout, summary.String())
			fmt.Fprintf(os.Stdout, "Done in %d sec\n", int(time.Since(start).Seconds()))

			return nil
		},
	}
}

// Execute performs one crawl run under runID and returns its summary.
// The schedule command reuses it with a fresh run id per tick.
func Execute(ctx context.Context, deps *common.Deps, runID string) (*crawler.Summary, error) {
	cfg := deps.Config

	seedFile, err := seeds.Load(cfg.SeedsFile)
	if err != nil {
		return nil, err
	}

	runlog := crawler.NewRunLog(deps.Logs, runID, deps.Log)
	hosts := hostlimit.NewRegistry(cfg.Crawl.PerHostLimit)

	lanes := []crawler.Lane{
		crawler.NewRSSLane(crawler.DefaultFeeds, deps.Fetch, deps.Cache, deps.Pages, runlog, deps.Log),
		crawler.NewCrawlLane(
			cfg.Crawl, seedFile, deps.Fetch, hosts,
			deps.Pages, deps.Cache, runlog,
			deps.Searchers(), deps.CrawlText(), deps.Gate, deps.Log,
		),
	}

	if cfg.Backfill.One {
		repairer := backfill.NewRepairer(
			cfg.Backfill, deps.Fetch, deps.Pages, deps.Cache, runlog, deps.ResearchText(), deps.Log,
		)
		lanes = append(lanes, backfill.NewLane(repairer, deps.Pages, 1, deps.Log))
	}

	lanes = append(lanes, crawler.NewDiscoveryLane(
		deps.DiscoverySearchers(), "", deps.Pages, runlog, deps.Gate, deps.Log,
	))

	ensureSchema := func(ctx context.Context) error {
		return database.EnsureSchema(ctx, deps.DB)
	}

	orch := crawler.NewOrchestrator(
		cfg.Crawl.HardKill, ensureSchema, lanes, deps.Logs, deps.Pages, runID, deps.Log,
	)

	return orch.Run(ctx)
}
