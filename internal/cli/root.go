package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/sandeepkv93/attendance-session-service/internal/config"
	"github.com/sandeepkv93/attendance-session-service/internal/observability"
)

type options struct {
	envFile string
}

func NewRootCommand() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:           "attendance",
		Short:         "Attendance session service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "dotenv file loaded before the environment is parsed")
	cmd.AddCommand(
		newServeCommand(opts),
		newMigrateCommand(opts),
		newReapCommand(opts),
		newTokenCommand(opts),
		newReportCommand(opts),
	)
	return cmd
}

// Execute runs the root command and maps failures to a non-zero exit.
func Execute(ctx context.Context) int {
	cmd := NewRootCommand()
	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return 1
	}
	return 0
}

func loadConfig(opts *options) (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(opts.envFile)
	if err != nil {
		return nil, nil, err
	}
	return cfg, observability.NewLogger(os.Stderr, cfg.LogLevel, nil), nil
}
