package di

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/sandeepkv93/attendance-session-service/internal/app"
	"github.com/sandeepkv93/attendance-session-service/internal/config"
	"github.com/sandeepkv93/attendance-session-service/internal/database"
	"github.com/sandeepkv93/attendance-session-service/internal/evidence"
	"github.com/sandeepkv93/attendance-session-service/internal/health"
	"github.com/sandeepkv93/attendance-session-service/internal/http/handler"
	"github.com/sandeepkv93/attendance-session-service/internal/http/router"
	"github.com/sandeepkv93/attendance-session-service/internal/notify"
	"github.com/sandeepkv93/attendance-session-service/internal/observability"
	"github.com/sandeepkv93/attendance-session-service/internal/reaper"
	"github.com/sandeepkv93/attendance-session-service/internal/repository"
	"github.com/sandeepkv93/attendance-session-service/internal/security"
	"github.com/sandeepkv93/attendance-session-service/internal/service"
)

const redisKeyPrefix = "attendance"

// StopFunc releases connections opened while building the graph.
type StopFunc func()

// ScheduledReaper is the reaper the server runs on its cron schedule. It is
// nil when REAPER_ENABLED is false.
type ScheduledReaper *reaper.Reaper

// Core is the graph shared by the server and the one-shot CLI commands.
type Core struct {
	Config     *config.Config
	DB         *gorm.DB
	Redis      redis.UniversalClient
	Users      repository.UserRepository
	Attendance *service.AttendanceService
	Reports    *service.ReportService
	Leaves     *service.LeaveService
	Reaper     *reaper.Reaper
	Notifier   *notify.AsyncNotifier
	Stop       StopFunc
}

func provideDB(cfg *config.Config, logger *slog.Logger) (*gorm.DB, error) {
	db, err := database.Open(cfg, logger)
	if err != nil {
		return nil, err
	}
	if cfg.DatabaseAutoMigrate {
		if err := database.Migrate(db); err != nil {
			return nil, err
		}
	}
	return db, nil
}

func provideRedis(cfg *config.Config) redis.UniversalClient {
	if !cfg.RedisEnabled() {
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
}

func provideReportCacheStore(client redis.UniversalClient) service.ReportCacheStore {
	if client == nil {
		return service.NewInMemoryReportCacheStore()
	}
	return service.NewRedisReportCacheStore(client, redisKeyPrefix+":report")
}

func provideReportCache(cfg *config.Config, store service.ReportCacheStore, logger *slog.Logger) *service.ReportCache {
	return service.NewReportCache(store, cfg.ReportCacheTTL, logger)
}

func provideSweepLock(client redis.UniversalClient) service.SweepLock {
	if client == nil {
		return service.NewNoopSweepLock()
	}
	return service.NewRedisSweepLock(client, redisKeyPrefix+":lock")
}

func provideNotifier(cfg *config.Config, logger *slog.Logger) *notify.AsyncNotifier {
	if cfg.SMTPEnabled() {
		mailer := notify.NewSMTPMailer(notify.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
		})
		return notify.NewAsyncNotifier(mailer, "smtp", cfg.NotifyTimeout, logger)
	}
	return notify.NewAsyncNotifier(notify.NewLogNotifier(logger), "log", cfg.NotifyTimeout, logger)
}

func provideEvidenceStore(cfg *config.Config) (service.EvidenceStore, error) {
	return evidence.New(cfg)
}

func provideJWTManager(cfg *config.Config) *security.JWTManager {
	return security.NewJWTManager(cfg.JWTIssuer, cfg.JWTAudience, cfg.JWTAccessSecret)
}

func provideClock() service.Clock {
	return service.SystemClock()
}

func provideAttendancePolicy(cfg *config.Config) service.AttendancePolicy {
	return service.AttendancePolicy{MaxDuration: cfg.AutoCheckoutMaxDuration}
}

func provideAuditRecorder(repo repository.AuditRepository, clock service.Clock, logger *slog.Logger) *service.AuditRecorder {
	return service.NewAuditRecorder(repo, clock, logger)
}

func provideAttendanceService(
	sessions repository.AttendanceRepository,
	users repository.UserRepository,
	cache *service.ReportCache,
	notifier *notify.AsyncNotifier,
	audit *service.AuditRecorder,
	clock service.Clock,
	policy service.AttendancePolicy,
	logger *slog.Logger,
) *service.AttendanceService {
	return service.NewAttendanceService(sessions, users, cache, notifier, audit, clock, policy, logger)
}

func provideReportService(
	cfg *config.Config,
	sessions repository.AttendanceRepository,
	users repository.UserRepository,
	cache *service.ReportCache,
	audit *service.AuditRecorder,
	clock service.Clock,
	logger *slog.Logger,
) *service.ReportService {
	return service.NewReportService(sessions, users, cache, audit, clock, cfg.ReportLocation(), logger)
}

func provideLeaveService(
	leaves repository.LeaveRepository,
	audit *service.AuditRecorder,
	notifier *notify.AsyncNotifier,
	logger *slog.Logger,
) *service.LeaveService {
	return service.NewLeaveService(leaves, audit, notifier, logger)
}

// NewReaper builds a reaper regardless of REAPER_ENABLED, for the one-shot
// reap command.
func NewReaper(cfg *config.Config, attendance *service.AttendanceService, lock service.SweepLock, logger *slog.Logger) (*reaper.Reaper, error) {
	return reaper.New(attendance, lock, reaper.Config{
		Schedule:   cfg.ReaperSchedule,
		Thresholds: cfg.ReaperThresholds(),
		LockTTL:    cfg.ReaperLockTTL,
		Timeout:    cfg.ReaperLockTTL,
	}, logger.With("component", "reaper"))
}

func provideScheduledReaper(cfg *config.Config, attendance *service.AttendanceService, lock service.SweepLock, logger *slog.Logger) (ScheduledReaper, error) {
	if !cfg.ReaperEnabled {
		return nil, nil
	}
	rp, err := NewReaper(cfg, attendance, lock, logger)
	if err != nil {
		return nil, fmt.Errorf("build reaper: %w", err)
	}
	return rp, nil
}

func provideReadiness(db *gorm.DB, client redis.UniversalClient) *health.ProbeRunner {
	checkers := []health.Checker{health.DBChecker(db)}
	if client != nil {
		checkers = append(checkers, health.RedisChecker(client))
	}
	return health.NewProbeRunner(2*time.Second, 2*time.Second, checkers...)
}

func provideAttendanceHandler(
	cfg *config.Config,
	attendance *service.AttendanceService,
	reports *service.ReportService,
	store service.EvidenceStore,
) *handler.AttendanceHandler {
	return handler.NewAttendanceHandler(attendance, reports, store, cfg.EvidenceMaxBytes, cfg.ReportLocation())
}

func provideLeaveHandler(leaves *service.LeaveService) *handler.LeaveHandler {
	return handler.NewLeaveHandler(leaves)
}

func provideRouter(
	cfg *config.Config,
	attendanceHandler *handler.AttendanceHandler,
	leaveHandler *handler.LeaveHandler,
	jwtManager *security.JWTManager,
	readiness *health.ProbeRunner,
	logger *slog.Logger,
) http.Handler {
	return router.NewRouter(router.Dependencies{
		AttendanceHandler:   attendanceHandler,
		LeaveHandler:        leaveHandler,
		JWTManager:          jwtManager,
		Readiness:           readiness,
		Logger:              logger,
		APIRateLimitRPM:     cfg.APIRateLimitRPM,
		CheckInRateLimitRPM: cfg.CheckInRateLimitRPM,
		EnableOTelHTTP:      cfg.OTELHTTPEnabled,
	})
}

func provideHTTPServer(cfg *config.Config, h http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}

func provideStop(db *gorm.DB, client redis.UniversalClient, logger *slog.Logger) StopFunc {
	return func() {
		if client != nil {
			if err := client.Close(); err != nil {
				logger.Warn("redis close failed", "error", err)
			}
		}
		if sqlDB, err := db.DB(); err == nil {
			if err := sqlDB.Close(); err != nil {
				logger.Warn("database close failed", "error", err)
			}
		}
	}
}

func provideCore(
	cfg *config.Config,
	db *gorm.DB,
	client redis.UniversalClient,
	users repository.UserRepository,
	attendance *service.AttendanceService,
	reports *service.ReportService,
	leaves *service.LeaveService,
	notifier *notify.AsyncNotifier,
	lock service.SweepLock,
	logger *slog.Logger,
	stop StopFunc,
) (*Core, error) {
	rp, err := NewReaper(cfg, attendance, lock, logger)
	if err != nil {
		return nil, err
	}
	return &Core{
		Config:     cfg,
		DB:         db,
		Redis:      client,
		Users:      users,
		Attendance: attendance,
		Reports:    reports,
		Leaves:     leaves,
		Reaper:     rp,
		Notifier:   notifier,
		Stop:       stop,
	}, nil
}

func provideApp(
	cfg *config.Config,
	logger *slog.Logger,
	server *http.Server,
	rp ScheduledReaper,
	notifier *notify.AsyncNotifier,
	runtime *observability.Runtime,
	readiness *health.ProbeRunner,
	stop StopFunc,
) *app.App {
	return app.New(cfg, logger, server, rp, notifier, runtime, readiness, stop)
}
