package reaper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/sandeepkv93/attendance-session-service/internal/domain"
	"github.com/sandeepkv93/attendance-session-service/internal/observability"
	"github.com/sandeepkv93/attendance-session-service/internal/service"
)

const lockName = "reaper"

// Closer is the capped close the reaper drives. AttendanceService satisfies
// it.
type Closer interface {
	AutoCloseExpired(ctx context.Context, threshold time.Duration, source string) ([]domain.AttendanceSession, error)
}

type Config struct {
	Schedule   string
	Thresholds []time.Duration
	LockTTL    time.Duration
	// Timeout bounds a single sweep. Zero means no bound beyond LockTTL.
	Timeout time.Duration
}

// Result summarises one sweep.
type Result struct {
	Skipped bool
	Closed  map[time.Duration]int
}

func (r Result) Total() int {
	n := 0
	for _, c := range r.Closed {
		n += c
	}
	return n
}

// Reaper force-closes stale sessions on a cron schedule. Ticks carry no
// state between them; a failed tick is logged and the next one retries.
type Reaper struct {
	closer Closer
	lock   service.SweepLock
	cfg    Config
	logger *slog.Logger

	mu   sync.Mutex
	cron *cron.Cron
}

func New(closer Closer, lock service.SweepLock, cfg Config, logger *slog.Logger) (*Reaper, error) {
	if closer == nil {
		return nil, errors.New("reaper: closer is required")
	}
	for _, t := range cfg.Thresholds {
		if t <= 0 {
			return nil, fmt.Errorf("reaper: threshold must be positive, got %s", t)
		}
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 5 * time.Minute
	}
	if lock == nil {
		lock = service.NewNoopSweepLock()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Reaper{closer: closer, lock: lock, cfg: cfg, logger: logger}, nil
}

// Sweep runs every configured threshold once, in order. It returns the
// joined errors of failed passes; passes after a failure still run.
func (r *Reaper) Sweep(ctx context.Context) (Result, error) {
	started := time.Now()
	res := Result{Closed: make(map[time.Duration]int, len(r.cfg.Thresholds))}

	timeout := r.cfg.Timeout
	if timeout <= 0 {
		timeout = r.cfg.LockTTL
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	release, acquired, err := r.lock.TryAcquire(ctx, lockName, r.cfg.LockTTL)
	if err != nil {
		observability.RecordReaperSweep(ctx, "lock_error", time.Since(started))
		return res, fmt.Errorf("acquire sweep lock: %w", err)
	}
	if !acquired {
		res.Skipped = true
		observability.RecordReaperSweep(ctx, "skipped", time.Since(started))
		r.logger.DebugContext(ctx, "reaper sweep skipped, lock held elsewhere")
		return res, nil
	}
	defer func() {
		if err := release(context.WithoutCancel(ctx)); err != nil {
			r.logger.WarnContext(ctx, "release sweep lock failed", "error", err)
		}
	}()

	var errs []error
	for _, threshold := range r.cfg.Thresholds {
		closed, err := r.closer.AutoCloseExpired(ctx, threshold, service.CloseSourceReaper)
		res.Closed[threshold] += len(closed)
		if err != nil {
			errs = append(errs, fmt.Errorf("threshold %s: %w", threshold, err))
		}
	}

	outcome := "success"
	if len(errs) > 0 {
		outcome = "error"
	}
	observability.RecordReaperSweep(ctx, outcome, time.Since(started))
	return res, errors.Join(errs...)
}

func (r *Reaper) tick(ctx context.Context) {
	res, err := r.Sweep(ctx)
	if err != nil {
		r.logger.ErrorContext(ctx, "reaper sweep failed", "closed", res.Total(), "error", err)
		return
	}
	if res.Total() > 0 {
		r.logger.InfoContext(ctx, "reaper sweep closed sessions", "closed", res.Total())
	}
}

// Start schedules sweeps. ctx is the parent of every tick; cancelling it
// aborts an in-flight sweep but does not unschedule. Call Stop for that.
func (r *Reaper) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cron != nil {
		return errors.New("reaper already started")
	}
	c := cron.New(cron.WithLocation(time.UTC), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := c.AddFunc(r.cfg.Schedule, func() { r.tick(ctx) }); err != nil {
		return fmt.Errorf("schedule reaper %q: %w", r.cfg.Schedule, err)
	}
	c.Start()
	r.cron = c
	r.logger.Info("reaper started", "schedule", r.cfg.Schedule, "thresholds", fmt.Sprint(r.cfg.Thresholds))
	return nil
}

// Stop unschedules and waits for an in-flight sweep, or for ctx.
func (r *Reaper) Stop(ctx context.Context) error {
	r.mu.Lock()
	c := r.cron
	r.cron = nil
	r.mu.Unlock()
	if c == nil {
		return nil
	}
	select {
	case <-c.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
