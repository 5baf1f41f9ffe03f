package main

import (
	"github.com/spf13/cobra"

	"github.com/tsukumogami/squatwatch/internal/jobs"
	"github.com/tsukumogami/squatwatch/internal/worker"
)

var enqueueCmd = &cobra.Command{
	Use:   "enqueue <package>...",
	Short: "Queue typosquat checks for newly published packages",
	Long: `Queue a typosquat check for each package. A running worker picks the
checks up; 'squatwatch worker --once' drains the queue and exits.`,
	Example: `  squatwatch enqueue serd tokio-utils2`,
	Args:    minimumArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		s, err := openStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer s.Close()

		for _, name := range args {
			id, err := worker.Enqueue(ctx, s, jobs.NewCheckTyposquat(name))
			if err != nil {
				return err
			}
			logger.Info("Enqueued typosquat check", "name", name, "job", id)
			printInfof("queued %s (%s)\n", name, id)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(enqueueCmd)
}
