// Package run implements the run command: a bounded batch of repairs
// over records whose title or summary is still missing.
package run

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/hojomatch/hojocrawl/cmd/common"
	"github.com/hojomatch/hojocrawl/internal/backfill"
	crawler "github.com/hojomatch/hojocrawl/internal/crawl"
	"github.com/hojomatch/hojocrawl/internal/database"
)

// failOnSeedZeroExitCode signals that nothing was eligible for
// processing, for schedulers that alert on empty batches.
const failOnSeedZeroExitCode = 3

// Command returns the run command.
func Command() *cobra.Command {
	var (
		lane           string
		batch          int
		failOnSeedZero bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Repair a batch of records with missing title or summary",
		RunE: func(cmd *cobra.Command, _ []string) error {
			deps, err := common.Build()
			if err != nil {
				return err
			}
			defer deps.Close()

			start := time.Now()

			ctx, cancel := context.WithDeadline(cmd.Context(), start.Add(deps.Config.Crawl.HardKill))
			defer cancel()

			if schemaErr := database.EnsureSchema(ctx, deps.DB); schemaErr != nil {
				return schemaErr
			}

			runlog := crawler.NewRunLog(deps.Logs, deps.Config.Crawl.RunID, deps.Log)
			repairer := backfill.NewRepairer(
				deps.Config.Backfill, deps.Fetch, deps.Pages, deps.Cache,
				runlog, deps.ResearchText(), deps.Log,
			)

			deps.Log.Info("starting repair batch", "lane", lane, "batch", batch)

			processed, updated, err := backfill.NewLane(repairer, deps.Pages, batch, deps.Log).RunBatch(ctx)
			if err != nil {
				return err
			}

			deps.Log.Info("repair batch done", "processed", processed, "updated", updated)

			deps.PrintRunSummary(context.WithoutCancel(ctx), deps.Config.Crawl.RunID)
			fmt.Fprintf(os.Stdout, "Done in %d sec\n", int(time.Since(start).Seconds()))

			if failOnSeedZero && processed == 0 {
				return common.NewExitError(failOnSeedZeroExitCode, errors.New("no records eligible for repair"))
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&lane, "lane", "night", "lane label for logs (serial, night, deep)")
	cmd.Flags().IntVar(&batch, "batch", backfill.DefaultBatch, "number of records to repair")
	cmd.Flags().BoolVar(&failOnSeedZero, "fail-on-seed-zero", false,
		"exit non-zero when no records were eligible")

	return cmd
}
