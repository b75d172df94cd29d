package observability

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/sandeepkv93/attendance-session-service/internal/config"
)

const instrumentationName = "attendance-session-service"

type AppMetrics struct {
	attendanceEvents     metric.Int64Counter
	autoClosed           metric.Int64Counter
	sessionHours         metric.Float64Histogram
	reaperSweeps         metric.Int64Counter
	reaperSweepDuration  metric.Float64Histogram
	repositoryOperations metric.Int64Counter
	reportCache          metric.Int64Counter
	notifications        metric.Int64Counter
	tokenValidations     metric.Int64Counter
	rateLimitDecisions   metric.Int64Counter
}

var (
	metricsMu  sync.RWMutex
	appMetrics *AppMetrics
)

func InitMetrics(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*sdkmetric.MeterProvider, error) {
	if !cfg.OTELMetricsEnabled {
		mp := sdkmetric.NewMeterProvider()
		otel.SetMeterProvider(mp)
		logger.Info("otel metrics disabled")
		return mp, nil
	}

	opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(cfg.OTELExporterOTLPEndpoint)}
	if cfg.OTELExporterOTLPInsecure {
		opts = append(opts, otlpmetricgrpc.WithInsecure())
	}
	exporter, err := otlpmetricgrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create otlp metric exporter: %w", err)
	}
	res, err := newResource(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create metric resource: %w", err)
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(cfg.OTELMetricsExportInterval))
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(reader),
	)
	otel.SetMeterProvider(mp)

	m, err := newAppMetrics(mp.Meter(instrumentationName))
	if err != nil {
		return nil, err
	}
	metricsMu.Lock()
	appMetrics = m
	metricsMu.Unlock()

	logger.Info("otel metrics initialized", "endpoint", cfg.OTELExporterOTLPEndpoint)
	return mp, nil
}

func newAppMetrics(meter metric.Meter) (*AppMetrics, error) {
	var (
		m   AppMetrics
		err error
	)
	if m.attendanceEvents, err = meter.Int64Counter("attendance.events"); err != nil {
		return nil, err
	}
	if m.autoClosed, err = meter.Int64Counter("attendance.auto_closed"); err != nil {
		return nil, err
	}
	if m.sessionHours, err = meter.Float64Histogram("attendance.session.hours"); err != nil {
		return nil, err
	}
	if m.reaperSweeps, err = meter.Int64Counter("reaper.sweeps"); err != nil {
		return nil, err
	}
	if m.reaperSweepDuration, err = meter.Float64Histogram("reaper.sweep.duration", metric.WithUnit("s")); err != nil {
		return nil, err
	}
	if m.repositoryOperations, err = meter.Int64Counter("repository.operations"); err != nil {
		return nil, err
	}
	if m.reportCache, err = meter.Int64Counter("report.cache.events"); err != nil {
		return nil, err
	}
	if m.notifications, err = meter.Int64Counter("notification.deliveries"); err != nil {
		return nil, err
	}
	if m.tokenValidations, err = meter.Int64Counter("auth.access_token.validations"); err != nil {
		return nil, err
	}
	if m.rateLimitDecisions, err = meter.Int64Counter("http.rate_limit.decisions"); err != nil {
		return nil, err
	}
	return &m, nil
}

func current() *AppMetrics {
	metricsMu.RLock()
	defer metricsMu.RUnlock()
	return appMetrics
}

// RecordAttendanceEvent counts check_in/check_out attempts by outcome.
func RecordAttendanceEvent(ctx context.Context, event, outcome string) {
	m := current()
	if m == nil {
		return
	}
	m.attendanceEvents.Add(ctx, 1, metric.WithAttributes(
		attribute.String("event", event),
		attribute.String("outcome", outcome),
	))
}

func RecordSessionClosed(ctx context.Context, source string, duration time.Duration) {
	m := current()
	if m == nil {
		return
	}
	m.sessionHours.Record(ctx, duration.Hours(), metric.WithAttributes(attribute.String("source", source)))
}

func RecordAutoClosed(ctx context.Context, source string, threshold time.Duration, count int) {
	m := current()
	if m == nil || count == 0 {
		return
	}
	m.autoClosed.Add(ctx, int64(count), metric.WithAttributes(
		attribute.String("source", source),
		attribute.String("threshold", threshold.String()),
	))
}

func RecordReaperSweep(ctx context.Context, outcome string, elapsed time.Duration) {
	m := current()
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("outcome", outcome))
	m.reaperSweeps.Add(ctx, 1, attrs)
	m.reaperSweepDuration.Record(ctx, elapsed.Seconds(), attrs)
}

func RecordRepositoryOperation(ctx context.Context, repo, op, outcome string) {
	m := current()
	if m == nil {
		return
	}
	m.repositoryOperations.Add(ctx, 1, metric.WithAttributes(
		attribute.String("repository", repo),
		attribute.String("operation", op),
		attribute.String("outcome", outcome),
	))
}

func RecordReportCacheEvent(ctx context.Context, report, outcome string) {
	m := current()
	if m == nil {
		return
	}
	m.reportCache.Add(ctx, 1, metric.WithAttributes(
		attribute.String("report", report),
		attribute.String("outcome", outcome),
	))
}

func RecordNotification(ctx context.Context, channel, outcome string) {
	m := current()
	if m == nil {
		return
	}
	m.notifications.Add(ctx, 1, metric.WithAttributes(
		attribute.String("channel", channel),
		attribute.String("outcome", outcome),
	))
}

func RecordAccessTokenValidation(ctx context.Context, outcome, source string) {
	m := current()
	if m == nil {
		return
	}
	m.tokenValidations.Add(ctx, 1, metric.WithAttributes(
		attribute.String("outcome", outcome),
		attribute.String("source", source),
	))
}

func RecordRateLimitDecision(ctx context.Context, scope, outcome string) {
	m := current()
	if m == nil {
		return
	}
	m.rateLimitDecisions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("scope", scope),
		attribute.String("outcome", outcome),
	))
}
