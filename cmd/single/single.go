// Package single implements the single command: run one URL through
// the repair ladder.
package single

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
)

// Command returns the single command.
func Command() *cobra.Command {
	return &cobra.Command{
		Use:   "single <url>",
		Short: "Run one URL through the repair ladder",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
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

			changed := repairer.ProcessOne(ctx, args[0])
			deps.Log.Info("single done", "url", args[0], "changed", changed)

			deps.PrintRunSummary(context.WithoutCancel(ctx), deps.Config.Crawl.RunID)
			fmt.Fprintf(os.Stdout, "Done in %d sec\n", int(time.Since(start).Seconds()))

			return nil
		},
	}
}
