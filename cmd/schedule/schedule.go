// Package schedule implements the schedule command: recurring crawl
// runs driven by a cron expression.
package schedule

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/hojomatch/hojocrawl/cmd/common"
	crawlcmd "github.com/hojomatch/hojocrawl/cmd/crawl"
)

// defaultCronSpec runs the crawl nightly, off the hour to avoid the
// top-of-hour load spike on the crawled sites.
const defaultCronSpec = "17 3 * * *"

// Command returns the schedule command.
func Command() *cobra.Command {
	var spec string

	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Run the crawl on a cron schedule",
		RunE: func(cmd *cobra.Command, _ []string) error {
			deps, err := common.Build()
			if err != nil {
				return err
			}
			defer deps.Close()

			// Standard 5-field parser (minute hour dom month dow).
			parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
			scheduler := cron.New(cron.WithParser(parser), cron.WithChain(cron.Recover(cron.DefaultLogger)))

			_, err = scheduler.AddFunc(spec, func() {
				// Each tick is its own run.
				runID := strconv.FormatInt(time.Now().Unix(), 10)

				summary, runErr := crawlcmd.Execute(context.Background(), deps, runID)
				if runErr != nil {
					deps.Log.Error("scheduled crawl failed", "run_id", runID, "error", runErr)
					return
				}

				fmt.Fprintln(os.Stdout, summary.String())
			})
			if err != nil {
				return fmt.Errorf("invalid cron expression %q: %w", spec, err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			deps.Log.Info("scheduler started", "cron", spec)
			scheduler.Start()

			<-ctx.Done()

			// Let an in-flight run finish before exiting.
			<-scheduler.Stop().Done()
			deps.Log.Info("scheduler stopped")

			return nil
		},
	}

	cmd.Flags().StringVar(&spec, "cron", defaultCronSpec, "crawl schedule (minute hour dom month dow)")

	return cmd
}
