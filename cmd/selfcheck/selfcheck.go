// Package selfcheck implements the selfcheck command: report which
// credentials are present and verify database connectivity.
package selfcheck

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hojomatch/hojocrawl/cmd/common"
	"github.com/hojomatch/hojocrawl/internal/database"
)

// dbErrorExitCode is returned when the database is unreachable, so
// deploy pipelines can gate on connectivity.
const dbErrorExitCode = 2

// Command returns the selfcheck command.
func Command() *cobra.Command {
	return &cobra.Command{
		Use:   "selfcheck",
		Short: "Check env and database connectivity",
		RunE: func(_ *cobra.Command, _ []string) error {
			start := time.Now()

			dsn := viper.GetString("database_url")

			fmt.Fprintf(os.Stdout, "[SELF CHECK] DB_URL=%s TAVILY=%t DR=%t\n",
				presence(dsn),
				viper.GetString("tavily_api_key") != "",
				viper.GetString("openai_api_key") != "",
			)

			db, err := database.Connect(dsn)
			if err != nil {
				fmt.Fprintf(os.Stdout, "[SELF CHECK] DB error: %v\n", err)
				fmt.Fprintf(os.Stdout, "Done in %d sec\n", int(time.Since(start).Seconds()))

				return common.NewExitError(dbErrorExitCode, err)
			}
			defer db.Close()

			fmt.Fprintln(os.Stdout, "[SELF CHECK] DB ok")
			fmt.Fprintf(os.Stdout, "Done in %d sec\n", int(time.Since(start).Seconds()))

			return nil
		},
	}
}

func presence(s string) string {
	if s == "" {
		return "missing"
	}

	return "set"
}
