package cli

import (
	"fmt"
	"slices"
	"time"

	"github.com/spf13/cobra"

	"github.com/sandeepkv93/attendance-session-service/internal/di"
)

func newReapCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "reap",
		Short: "Run one reaper sweep and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := loadConfig(opts)
			if err != nil {
				return err
			}
			core, err := di.InitializeCore(cfg, logger)
			if err != nil {
				return err
			}
			defer core.Stop()

			res, err := core.Reaper.Sweep(cmd.Context())
			if waitErr := core.Notifier.Wait(cmd.Context()); waitErr != nil {
				logger.Warn("notification drain interrupted", "error", waitErr)
			}
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if res.Skipped {
				fmt.Fprintln(out, "skipped: another sweep holds the lock")
				return nil
			}
			thresholds := make([]time.Duration, 0, len(res.Closed))
			for t := range res.Closed {
				thresholds = append(thresholds, t)
			}
			slices.Sort(thresholds)
			for _, t := range thresholds {
				fmt.Fprintf(out, "threshold=%s closed=%d\n", t, res.Closed[t])
			}
			fmt.Fprintf(out, "total closed=%d\n", res.Total())
			return nil
		},
	}
}
