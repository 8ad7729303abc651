// Package cmd implements the hojocrawl command-line interface.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hojomatch/hojocrawl/cmd/budget"
	"github.com/hojomatch/hojocrawl/cmd/common"
	"github.com/hojomatch/hojocrawl/cmd/crawl"
	"github.com/hojomatch/hojocrawl/cmd/run"
	"github.com/hojomatch/hojocrawl/cmd/schedule"
	"github.com/hojomatch/hojocrawl/cmd/search"
	"github.com/hojomatch/hojocrawl/cmd/selfcheck"
	"github.com/hojomatch/hojocrawl/cmd/serve"
	"github.com/hojomatch/hojocrawl/cmd/single"
	"github.com/hojomatch/hojocrawl/internal/config"
)

// rootCmd is the entry point for all subcommands.
var rootCmd = &cobra.Command{
	Use:   "hojocrawl",
	Short: "An incremental crawler for subsidy announcement pages",
	Long: `hojocrawl crawls government subsidy announcement pages
incrementally: conditional GETs against an HTTP validator cache, polite
per-host limits, budget-gated discovery providers, and a repair ladder
for records whose title or summary is still missing.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return cmd.Help()
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(crawl.Command())
	rootCmd.AddCommand(run.Command())
	rootCmd.AddCommand(single.Command())
	rootCmd.AddCommand(selfcheck.Command())
	rootCmd.AddCommand(serve.Command())
	rootCmd.AddCommand(schedule.Command())
	rootCmd.AddCommand(search.Command())
	rootCmd.AddCommand(budget.Command())
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	config.Init()

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		var exitErr *common.ExitError
		if errors.As(err, &exitErr) {
			return exitErr.Code
		}

		fmt.Fprintf(os.Stderr, "Error: %v\n", err)

		return 1
	}

	return 0
}
