package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tsukumogami/squatwatch/internal/store"
)

var workerOnce bool

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run queued typosquat checks",
	Long: `Poll the job queue and run typosquat checks as they arrive, until
interrupted. Failed checks are retried with exponential backoff and marked
dead after worker.max_retries attempts.`,
	Example: `  squatwatch worker
  squatwatch worker --once`,
	Args: exactArgs(0),
	RunE: runWorker,
}

func init() {
	workerCmd.Flags().BoolVar(&workerOnce, "once", false, "Run every job that is due, then exit")
	rootCmd.AddCommand(workerCmd)
}

func runWorker(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := openApp(ctx, cfg, nil, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	if !workerOnce {
		return a.runner.Run(ctx)
	}

	summary, err := a.runner.RunPending(ctx)
	if err != nil {
		return err
	}
	printInfof("ran %d job(s): %d succeeded, %d retried, %d dead\n",
		summary.Total(), summary.Succeeded, summary.Retried, summary.Dead)
	return printQueue(ctx, a.store)
}

func printQueue(ctx context.Context, s *store.Store) error {
	counts, err := s.CountJobs(ctx)
	if err != nil {
		return err
	}
	if n := counts[store.JobPending]; n > 0 {
		printInfof("%d job(s) waiting\n", n)
	}
	if n := counts[store.JobDead]; n > 0 {
		warnColor.Fprintf(stdout, "%d dead job(s)\n", n)
	}
	return nil
}
