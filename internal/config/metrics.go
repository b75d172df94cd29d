package config

import (
	"context"
	"strings"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	loadMetricsOnce sync.Once
	loadCounter     metric.Int64Counter
)

// areaPrefixes maps an environment key prefix to the config area reported
// on load failures. First match wins.
var areaPrefixes = []struct {
	prefix string
	area   string
}{
	{"DATABASE_", "database"},
	{"JWT_", "auth"},
	{"REAPER_", "reaper"},
	{"AUTO_CHECKOUT_", "reaper"},
	{"REPORT_", "report"},
	{"EVIDENCE_", "evidence"},
	{"CLOUDINARY_", "evidence"},
	{"SMTP_", "notify"},
	{"OTEL_", "observability"},
}

func recordConfigLoad(ctx context.Context, profile, outcome, area string) {
	loadMetricsOnce.Do(func() {
		counter, err := otel.Meter("attendance-session-service").Int64Counter(
			"attendance.config.loads",
			metric.WithDescription("Configuration load attempts by outcome and failing area"),
		)
		if err == nil {
			loadCounter = counter
		}
	})
	if loadCounter == nil {
		return
	}
	loadCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("profile", normalizeProfile(profile)),
		attribute.String("outcome", outcome),
		attribute.String("area", area),
	))
}

func normalizeProfile(profile string) string {
	v := strings.TrimSpace(strings.ToLower(profile))
	if v == "" {
		return "unknown"
	}
	return v
}

// failureArea names the config area behind a Load error. Parse and env file
// failures are reported as such; validation failures by the first key named.
func failureArea(err error) string {
	if err == nil {
		return "none"
	}
	msg := err.Error()
	switch {
	case strings.HasPrefix(msg, "load env file"):
		return "env_file"
	case strings.HasPrefix(msg, "parse environment"):
		return "parse"
	}
	first, idx := "", -1
	for _, p := range areaPrefixes {
		if i := strings.Index(msg, p.prefix); i >= 0 && (idx < 0 || i < idx) {
			first, idx = p.area, i
		}
	}
	if first == "" {
		return "other"
	}
	return first
}
