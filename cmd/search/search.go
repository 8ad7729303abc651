// Package search implements the search command: query stored pages and
// render the results as a table.
package search

import (
	"fmt"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/hojomatch/hojocrawl/cmd/common"
	"github.com/hojomatch/hojocrawl/internal/database"
	"github.com/hojomatch/hojocrawl/internal/domain"
)

const (
	// titleColumnWidth bounds the title column; Japanese titles run long.
	titleColumnWidth = 48
	// urlColumnWidth bounds the URL column.
	urlColumnWidth = 64
	// summaryPreviewLength bounds the one-line summary preview.
	summaryPreviewLength = 60
)

// Command returns the search command.
func Command() *cobra.Command {
	var (
		query string
		size  int
	)

	cmd := &cobra.Command{
		Use:   "search",
		Short: "Search stored pages",
		Long: `Search crawled pages by full-text query and print the newest
matches as a table. With no query the newest pages are listed.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			deps, err := common.Build()
			if err != nil {
				return err
			}
			defer deps.Close()

			pages, err := deps.Query.Search(cmd.Context(), query, size)
			if err != nil {
				return fmt.Errorf("search failed: %w", err)
			}

			if len(pages) == 0 {
				fmt.Fprintf(os.Stdout, "No results found for query: %s\n", query)
				return nil
			}

			renderResults(pages, query)

			return nil
		},
	}

	cmd.Flags().StringVarP(&query, "query", "q", "", "query string to search for")
	cmd.Flags().IntVarP(&size, "size", "s", database.DefaultQueryLimit, "number of results to return")

	return cmd
}

func renderResults(pages []domain.Page, query string) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleRounded)
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, WidthMax: titleColumnWidth},
		{Number: 3, WidthMax: urlColumnWidth},
	})

	t.AppendHeader(table.Row{"#", "Title", "URL", "Deadline", "Summary"})

	for i, page := range pages {
		t.AppendRow(table.Row{
			i + 1,
			page.Title,
			page.URL,
			stringOrDash(page.Deadline),
			preview(page.Summary),
		})
	}

	t.AppendFooter(table.Row{"Total", len(pages), fmt.Sprintf("Query: %s", query)})
	t.Render()
}

func stringOrDash(s *string) string {
	if s == nil || *s == "" {
		return "-"
	}

	return *s
}

// preview flattens a summary to a single truncated line.
func preview(s *string) string {
	if s == nil {
		return "-"
	}

	flat := strings.Join(strings.Fields(*s), " ")
	runes := []rune(flat)
	if len(runes) <= summaryPreviewLength {
		return flat
	}

	return string(runes[:summaryPreviewLength]) + "..."
}
