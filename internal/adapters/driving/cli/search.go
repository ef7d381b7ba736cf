package cli

import (
	"strings"

	"github.com/spf13/cobra"
)

var (
	searchLimit  int
	searchOffset int
)

var searchCmd = &cobra.Command{
	Use:   "search <index> <query...>",
	Short: "Search one index from the command line",
	Args:  cobra.MinimumNArgs(2),
	RunE:  runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "l", 10, "maximum number of results")
	searchCmd.Flags().IntVar(&searchOffset, "offset", 0, "number of results to skip")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	if err := loadServices(); err != nil {
		return err
	}

	index := args[0]
	query := strings.Join(args[1:], " ")

	result, err := queryService.Search(cmd.Context(), index, query, int64(searchLimit), int64(searchOffset))
	if err != nil {
		return err
	}

	if len(result.Hits) == 0 {
		cmd.Printf("No results for %q in %s.\n", query, index)
		return nil
	}

	cmd.Printf("%d of %d results for %q in %s:\n\n", len(result.Hits), result.TotalHits, query, index)
	for i, hit := range result.Hits {
		cmd.Printf("%2d. %s", i+1, hit.SourcePath)
		if hit.Score > 0 {
			cmd.Printf("  (%.2f)", hit.Score)
		}
		cmd.Println()
		if snippet := makeSnippet(hit.Text, 160); snippet != "" {
			cmd.Printf("    %s\n", snippet)
		}
	}
	return nil
}

// makeSnippet collapses whitespace and truncates the text for display.
func makeSnippet(text string, max int) string {
	snippet := strings.Join(strings.Fields(text), " ")
	runes := []rune(snippet)
	if len(runes) > max {
		return string(runes[:max]) + "…"
	}
	return snippet
}
