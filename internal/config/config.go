package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
)

type Config struct {
	AppEnv   string `env:"APP_ENV" envDefault:"development"`
	HTTPAddr string `env:"HTTP_ADDR" envDefault:":8080"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	DatabaseDriver      string `env:"DATABASE_DRIVER" envDefault:"postgres"`
	DatabaseURL         string `env:"DATABASE_URL"`
	DatabaseAutoMigrate bool   `env:"DATABASE_AUTO_MIGRATE" envDefault:"true"`

	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	JWTIssuer       string        `env:"JWT_ISSUER" envDefault:"attendance-session-service"`
	JWTAudience     string        `env:"JWT_AUDIENCE" envDefault:"attendance-clients"`
	JWTAccessSecret string        `env:"JWT_ACCESS_SECRET"`
	JWTAccessTTL    time.Duration `env:"JWT_ACCESS_TTL" envDefault:"12h"`

	// AutoCheckoutMaxDuration caps sessions closed by the admin trigger and,
	// when ReaperEnforceMaxDuration is set, by the reaper.
	AutoCheckoutMaxDuration  time.Duration `env:"AUTO_CHECKOUT_MAX_DURATION" envDefault:"9h"`
	ReaperEnabled            bool          `env:"REAPER_ENABLED" envDefault:"true"`
	ReaperSchedule           string        `env:"REAPER_SCHEDULE" envDefault:"*/10 * * * *"`
	ReaperStaleAfter         time.Duration `env:"REAPER_STALE_AFTER" envDefault:"2h"`
	ReaperEnforceMaxDuration bool          `env:"REAPER_ENFORCE_MAX_DURATION" envDefault:"true"`
	ReaperLockTTL            time.Duration `env:"REAPER_LOCK_TTL" envDefault:"5m"`

	ReportTimezone string        `env:"REPORT_TIMEZONE" envDefault:"UTC"`
	ReportCacheTTL time.Duration `env:"REPORT_CACHE_TTL" envDefault:"2m"`

	EvidenceBackend  string `env:"EVIDENCE_BACKEND" envDefault:"local"`
	EvidenceDir      string `env:"EVIDENCE_DIR" envDefault:"./uploads"`
	EvidenceMaxBytes int64  `env:"EVIDENCE_MAX_BYTES" envDefault:"5242880"`
	CloudinaryURL    string `env:"CLOUDINARY_URL"`
	CloudinaryFolder string `env:"CLOUDINARY_FOLDER" envDefault:"attendance"`

	SMTPHost      string        `env:"SMTP_HOST"`
	SMTPPort      int           `env:"SMTP_PORT" envDefault:"587"`
	SMTPUsername  string        `env:"SMTP_USERNAME"`
	SMTPPassword  string        `env:"SMTP_PASSWORD"`
	SMTPFrom      string        `env:"SMTP_FROM"`
	NotifyTimeout time.Duration `env:"NOTIFY_TIMEOUT" envDefault:"10s"`

	APIRateLimitRPM     int `env:"API_RATE_LIMIT_RPM" envDefault:"600"`
	CheckInRateLimitRPM int `env:"CHECKIN_RATE_LIMIT_RPM" envDefault:"30"`

	OTELServiceName           string        `env:"OTEL_SERVICE_NAME" envDefault:"attendance-session-service"`
	OTELEnvironment           string        `env:"OTEL_ENVIRONMENT" envDefault:"development"`
	OTELExporterOTLPEndpoint  string        `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4317"`
	OTELExporterOTLPInsecure  bool          `env:"OTEL_EXPORTER_OTLP_INSECURE" envDefault:"true"`
	OTELMetricsEnabled        bool          `env:"OTEL_METRICS_ENABLED" envDefault:"false"`
	OTELTracingEnabled        bool          `env:"OTEL_TRACING_ENABLED" envDefault:"false"`
	OTELLogsEnabled           bool          `env:"OTEL_LOGS_ENABLED" envDefault:"false"`
	OTELHTTPEnabled           bool          `env:"OTEL_HTTP_ENABLED" envDefault:"false"`
	OTELMetricsExportInterval time.Duration `env:"OTEL_METRICS_EXPORT_INTERVAL" envDefault:"15s"`
	OTELTraceSamplingRatio    float64       `env:"OTEL_TRACE_SAMPLING_RATIO" envDefault:"1.0"`

	ShutdownTimeout              time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"20s"`
	ShutdownHTTPDrainTimeout     time.Duration `env:"SHUTDOWN_HTTP_DRAIN_TIMEOUT" envDefault:"10s"`
	ShutdownObservabilityTimeout time.Duration `env:"SHUTDOWN_OBSERVABILITY_TIMEOUT" envDefault:"5s"`

	reportLocation *time.Location
}

// Load reads envFile (when present) into the process environment without
// overriding variables that are already set, then parses and validates.
func Load(envFile string) (*Config, error) {
	cfg, err := load(envFile)
	profile := os.Getenv("APP_ENV")
	if err != nil {
		recordConfigLoad(context.Background(), profile, "error", failureArea(err))
		return nil, err
	}
	recordConfigLoad(context.Background(), cfg.AppEnv, "success", "none")
	return cfg, nil
}

func load(envFile string) (*Config, error) {
	if envFile != "" {
		if _, err := os.Stat(envFile); err == nil {
			if err := godotenv.Load(envFile); err != nil {
				return nil, fmt.Errorf("load env file: %w", err)
			}
		}
	}
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	c.DatabaseDriver = strings.ToLower(strings.TrimSpace(c.DatabaseDriver))
	switch c.DatabaseDriver {
	case "postgres", "sqlite":
	default:
		errs = append(errs, fmt.Errorf("DATABASE_DRIVER must be postgres or sqlite, got %q", c.DatabaseDriver))
	}
	if strings.TrimSpace(c.DatabaseURL) == "" {
		errs = append(errs, errors.New("DATABASE_URL is required"))
	}
	if len(c.JWTAccessSecret) < 32 {
		errs = append(errs, errors.New("JWT_ACCESS_SECRET must be at least 32 bytes"))
	}
	if c.JWTAccessTTL <= 0 {
		errs = append(errs, errors.New("JWT_ACCESS_TTL must be positive"))
	}
	if c.AutoCheckoutMaxDuration <= 0 {
		errs = append(errs, errors.New("AUTO_CHECKOUT_MAX_DURATION must be positive"))
	}
	if c.ReaperStaleAfter < 0 {
		errs = append(errs, errors.New("REAPER_STALE_AFTER must not be negative"))
	}
	if c.ReaperEnabled {
		if _, err := cron.ParseStandard(c.ReaperSchedule); err != nil {
			errs = append(errs, fmt.Errorf("REAPER_SCHEDULE is invalid: %w", err))
		}
	}
	loc, err := time.LoadLocation(c.ReportTimezone)
	if err != nil {
		errs = append(errs, fmt.Errorf("REPORT_TIMEZONE is invalid: %w", err))
	} else {
		c.reportLocation = loc
	}
	switch c.EvidenceBackend {
	case "local":
		if strings.TrimSpace(c.EvidenceDir) == "" {
			errs = append(errs, errors.New("EVIDENCE_DIR is required for the local evidence backend"))
		}
	case "cloudinary":
		if strings.TrimSpace(c.CloudinaryURL) == "" {
			errs = append(errs, errors.New("CLOUDINARY_URL is required for the cloudinary evidence backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("EVIDENCE_BACKEND must be local or cloudinary, got %q", c.EvidenceBackend))
	}
	if c.EvidenceMaxBytes <= 0 {
		errs = append(errs, errors.New("EVIDENCE_MAX_BYTES must be positive"))
	}
	if c.SMTPEnabled() && strings.TrimSpace(c.SMTPFrom) == "" {
		errs = append(errs, errors.New("SMTP_FROM is required when SMTP_HOST is set"))
	}
	if c.OTELTraceSamplingRatio < 0 || c.OTELTraceSamplingRatio > 1 {
		errs = append(errs, errors.New("OTEL_TRACE_SAMPLING_RATIO must be within [0,1]"))
	}
	return errors.Join(errs...)
}

// ReportLocation is the zone month boundaries and hour-of-day analytics are
// computed in.
func (c *Config) ReportLocation() *time.Location {
	if c.reportLocation == nil {
		return time.UTC
	}
	return c.reportLocation
}

func (c *Config) SMTPEnabled() bool {
	return strings.TrimSpace(c.SMTPHost) != ""
}

func (c *Config) RedisEnabled() bool {
	return strings.TrimSpace(c.RedisAddr) != ""
}

// ReaperThresholds returns the reaper passes in execution order: the max
// duration cap first, then the staleness threshold.
func (c *Config) ReaperThresholds() []time.Duration {
	var out []time.Duration
	if c.ReaperEnforceMaxDuration && c.AutoCheckoutMaxDuration > 0 {
		out = append(out, c.AutoCheckoutMaxDuration)
	}
	if c.ReaperStaleAfter > 0 {
		out = append(out, c.ReaperStaleAfter)
	}
	return out
}
