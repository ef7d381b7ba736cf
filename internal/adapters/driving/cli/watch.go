package cli

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch the root directory and keep indexes in sync",
	Long: `Performs a full synchronisation of the watched tree, then keeps
observing filesystem events until interrupted. Each top-level folder maps to
one index.`,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, _ []string) error {
	if err := loadServices(); err != nil {
		return err
	}
	if err := checkStore(cmd); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cmd.Printf("Watching %s\n", cfg.RootDir)
	if err := watchService.Run(ctx); err != nil && ctx.Err() == nil {
		return err
	}

	status := watchService.Status()
	cmd.Printf("Stopped after indexing %d files (%d errors).\n", status.FilesIndexed, status.Errors)
	return nil
}
