//go:build wireinject

package di

import (
	"log/slog"

	"github.com/google/wire"

	"github.com/sandeepkv93/attendance-session-service/internal/app"
	"github.com/sandeepkv93/attendance-session-service/internal/config"
	"github.com/sandeepkv93/attendance-session-service/internal/observability"
	"github.com/sandeepkv93/attendance-session-service/internal/repository"
)

var infraSet = wire.NewSet(
	provideDB,
	provideRedis,
	provideReportCacheStore,
	provideReportCache,
	provideSweepLock,
	provideNotifier,
	provideClock,
	provideStop,
)

var repositorySet = wire.NewSet(
	repository.NewUserRepository,
	repository.NewAttendanceRepository,
	repository.NewLeaveRepository,
	repository.NewAuditRepository,
)

var serviceSet = wire.NewSet(
	provideAttendancePolicy,
	provideAuditRecorder,
	provideAttendanceService,
	provideReportService,
	provideLeaveService,
)

var httpSet = wire.NewSet(
	provideEvidenceStore,
	provideJWTManager,
	provideReadiness,
	provideAttendanceHandler,
	provideLeaveHandler,
	provideRouter,
	provideHTTPServer,
)

func InitializeCore(cfg *config.Config, logger *slog.Logger) (*Core, error) {
	wire.Build(infraSet, repositorySet, serviceSet, provideCore)
	return nil, nil
}

func InitializeApp(cfg *config.Config, logger *slog.Logger, runtime *observability.Runtime) (*app.App, error) {
	wire.Build(infraSet, repositorySet, serviceSet, httpSet, provideScheduledReaper, provideApp)
	return nil, nil
}
