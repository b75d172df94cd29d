package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sandeepkv93/attendance-session-service/internal/config"
	"github.com/sandeepkv93/attendance-session-service/internal/health"
	"github.com/sandeepkv93/attendance-session-service/internal/notify"
	"github.com/sandeepkv93/attendance-session-service/internal/observability"
	"github.com/sandeepkv93/attendance-session-service/internal/reaper"
)

// App owns the HTTP server and the background reaper and tears both down,
// in order, when the run context ends.
type App struct {
	Config        *config.Config
	Logger        *slog.Logger
	Server        *http.Server
	Reaper        *reaper.Reaper
	Notifier      *notify.AsyncNotifier
	Observability *observability.Runtime
	Readiness     *health.ProbeRunner

	ShutdownTimeout              time.Duration
	ShutdownHTTPDrainTimeout     time.Duration
	ShutdownObservabilityTimeout time.Duration

	stopBackgroundTasks func()
}

func New(
	cfg *config.Config,
	logger *slog.Logger,
	server *http.Server,
	rp *reaper.Reaper,
	notifier *notify.AsyncNotifier,
	runtime *observability.Runtime,
	readiness *health.ProbeRunner,
	stop func(),
) *App {
	return &App{
		Config:                       cfg,
		Logger:                       logger,
		Server:                       server,
		Reaper:                       rp,
		Notifier:                     notifier,
		Observability:                runtime,
		Readiness:                    readiness,
		ShutdownTimeout:              cfg.ShutdownTimeout,
		ShutdownHTTPDrainTimeout:     cfg.ShutdownHTTPDrainTimeout,
		ShutdownObservabilityTimeout: cfg.ShutdownObservabilityTimeout,
		stopBackgroundTasks:          stop,
	}
}

// StopBackgroundTasks releases resources held outside the server, such as
// database and Redis connections.
func (a *App) StopBackgroundTasks() {
	if a.stopBackgroundTasks != nil {
		a.stopBackgroundTasks()
	}
}

func (a *App) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", a.Server.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", a.Server.Addr, err)
	}
	return a.Serve(ctx, ln)
}

// Serve runs until ctx is cancelled or the server fails, then shuts down.
func (a *App) Serve(ctx context.Context, ln net.Listener) error {
	g, gctx := errgroup.WithContext(ctx)

	if a.Reaper != nil {
		if err := a.Reaper.Start(gctx); err != nil {
			_ = ln.Close()
			return err
		}
	}

	g.Go(func() error {
		a.Logger.Info("http server listening", "addr", ln.Addr().String())
		if err := a.Server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		return a.shutdown()
	})
	return g.Wait()
}

func (a *App) shutdown() error {
	a.Logger.Info("shutting down")
	total := a.ShutdownTimeout
	if total <= 0 {
		total = 20 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), total)
	defer cancel()

	var errs []error
	drainCtx, drainCancel := boundedContext(ctx, a.ShutdownHTTPDrainTimeout)
	if err := a.Server.Shutdown(drainCtx); err != nil {
		errs = append(errs, fmt.Errorf("http shutdown: %w", err))
	}
	drainCancel()

	if a.Reaper != nil {
		if err := a.Reaper.Stop(ctx); err != nil {
			errs = append(errs, fmt.Errorf("reaper stop: %w", err))
		}
	}
	if a.Notifier != nil {
		if err := a.Notifier.Wait(ctx); err != nil {
			errs = append(errs, fmt.Errorf("notifier drain: %w", err))
		}
	}
	a.StopBackgroundTasks()

	obsCtx, obsCancel := boundedContext(ctx, a.ShutdownObservabilityTimeout)
	if err := a.Observability.Shutdown(obsCtx); err != nil {
		errs = append(errs, fmt.Errorf("observability shutdown: %w", err))
	}
	obsCancel()

	if len(errs) > 0 {
		a.Logger.Error("shutdown finished with errors", "error", errors.Join(errs...))
	} else {
		a.Logger.Info("shutdown complete")
	}
	return errors.Join(errs...)
}

func boundedContext(parent context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(parent)
	}
	return context.WithTimeout(parent, d)
}
