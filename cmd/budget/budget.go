// Package budget implements the budget command: inspect and set the
// monthly call quotas for the paid discovery APIs.
package budget

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/hojomatch/hojocrawl/cmd/common"
	"github.com/hojomatch/hojocrawl/internal/database"
)

// Command returns the budget command with its subcommands.
func Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "budget",
		Short: "Manage monthly API call quotas",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	cmd.AddCommand(setCommand(), showCommand())

	return cmd
}

func setCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "set <api> <limit>",
		Short: "Set this month's call limit for an API",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			limit, err := strconv.Atoi(args[1])
			if err != nil || limit < 0 {
				return fmt.Errorf("invalid limit %q", args[1])
			}

			deps, err := common.Build()
			if err != nil {
				return err
			}
			defer deps.Close()

			if schemaErr := database.EnsureSchema(cmd.Context(), deps.DB); schemaErr != nil {
				return schemaErr
			}

			if setErr := deps.Gate.SetMonthlyLimit(cmd.Context(), args[0], limit); setErr != nil {
				return setErr
			}

			fmt.Fprintf(os.Stdout, "%s: limit=%d\n", args[0], limit)

			return nil
		},
	}
}

func showCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show <api>",
		Short: "Show this month's usage for an API",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, err := common.Build()
			if err != nil {
				return err
			}
			defer deps.Close()

			month := time.Now().UTC().Format("2006-01")

			used, limit, err := deps.Quota.Usage(cmd.Context(), month, args[0])
			if err != nil {
				return err
			}

			fmt.Fprintf(os.Stdout, "%s %s: used=%d limit=%d\n", month, args[0], used, limit)

			return nil
		},
	}
}
