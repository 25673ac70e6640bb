package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Remove expired cache entries and stale jobs",
	Long: `Remove expired cache entries and jobs past their TTL.

The engine never sweeps on its own; run this from cron or before backups.

Examples:
  attrib sweep`,
	Run: runSweep,
}

func init() {
	rootCmd.AddCommand(sweepCmd)
}

func runSweep(cmd *cobra.Command, args []string) {
	cfg := mustLoadConfig()
	logger := newLogger(cfg)
	eng := mustEngine(cfg, logger)
	defer func() { _ = eng.Close() }()

	cacheRemoved, jobsRemoved, err := eng.Sweep()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error sweeping: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Removed %d expired cache entries and %d stale jobs\n", cacheRemoved, jobsRemoved)
}
