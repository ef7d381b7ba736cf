package cli

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var refreshCmd = &cobra.Command{
	Use:   "refresh <destination>=<staged-path> [...]",
	Short: "Atomically replace destination folders with staged trees",
	Long: `Swaps a staged directory tree into place for each named top-level
folder and reconciles the index: new and changed files are written, documents
for files gone from the new tree are removed.

Example:
  meiliwatch refresh guides=/tmp/staging/guides notes=/tmp/staging/notes`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRefresh,
}

func init() {
	rootCmd.AddCommand(refreshCmd)
}

func runRefresh(cmd *cobra.Command, args []string) error {
	staged, err := parseRefreshArgs(args)
	if err != nil {
		return err
	}

	if err := loadServices(); err != nil {
		return err
	}
	if err := checkStore(cmd); err != nil {
		return err
	}

	results, err := refreshService.RefreshAll(cmd.Context(), staged)

	destinations := make([]string, 0, len(results))
	for destination := range results {
		destinations = append(destinations, destination)
	}
	sort.Strings(destinations)
	for _, destination := range destinations {
		stats := results[destination]
		cmd.Printf("%s: %d added, %d updated, %d removed, %d errors (%s)\n",
			destination, stats.Added, stats.Updated, stats.Removed, stats.Errors, stats.Duration.Round(time.Millisecond))
	}

	return err
}

// parseRefreshArgs turns destination=path pairs into the staged map.
func parseRefreshArgs(args []string) (map[string]string, error) {
	staged := make(map[string]string, len(args))
	for _, arg := range args {
		destination, path, ok := strings.Cut(arg, "=")
		if !ok || destination == "" || path == "" {
			return nil, fmt.Errorf("invalid refresh argument %q, want destination=staged-path", arg)
		}
		if _, dup := staged[destination]; dup {
			return nil, errors.New("duplicate destination " + destination)
		}
		staged[destination] = path
	}
	return staged, nil
}
