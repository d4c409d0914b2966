package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "prakriti: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prakriti",
		Short: "Waste cleanup reporting and verification service",
		Long: `Prakriti collects geotagged before/after photos of waste sites from citizens,
pairs them by location and lets officials approve or reject each cleanup.

Configuration is read from the environment (LISTEN_ADDR, DB_DRIVER, DB_PATH, ...).`,
		SilenceUsage: true,
	}
	cmd.AddCommand(
		newServeCmd(),
		newWorkerCmd(),
		newMigrateCmd(),
		newSeedCmd(),
		newPairCmd(),
	)
	return cmd
}
