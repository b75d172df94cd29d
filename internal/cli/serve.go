package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sandeepkv93/attendance-session-service/internal/di"
	"github.com/sandeepkv93/attendance-session-service/internal/observability"
)

func newServeCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the background reaper",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, bootLogger, err := loadConfig(opts)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			runtime, err := observability.InitRuntime(ctx, cfg, bootLogger)
			if err != nil {
				return fmt.Errorf("init observability: %w", err)
			}
			logger := observability.NewLogger(os.Stdout, cfg.LogLevel, runtime.LoggerProvider).With("service", cfg.OTELServiceName)

			a, err := di.InitializeApp(cfg, logger, runtime)
			if err != nil {
				_ = runtime.Shutdown(context.WithoutCancel(ctx))
				return fmt.Errorf("initialize app: %w", err)
			}
			return a.Run(ctx)
		},
	}
}
