package service

import (
	"context"
	"io"
	"time"

	"github.com/sandeepkv93/attendance-session-service/internal/domain"
	"github.com/sandeepkv93/attendance-session-service/internal/notify"
	"github.com/sandeepkv93/attendance-session-service/internal/report"
	"github.com/sandeepkv93/attendance-session-service/internal/repository"
)

// Notifier delivers out-of-band messages. Callers never fail on its error.
type Notifier interface {
	Notify(ctx context.Context, msg notify.Message) error
}

// EvidenceStore persists check-in photos and returns an opaque reference.
type EvidenceStore interface {
	Save(ctx context.Context, filename string, r io.Reader) (string, error)
	Delete(ctx context.Context, ref string) error
}

type AttendanceServiceInterface interface {
	CheckIn(ctx context.Context, actor Actor, in CheckInInput) (*domain.AttendanceSession, error)
	CheckOut(ctx context.Context, actor Actor) (*domain.AttendanceSession, error)
	AutoCloseExpired(ctx context.Context, threshold time.Duration, source string) ([]domain.AttendanceSession, error)
	TriggerAutoCheckout(ctx context.Context, actor Actor, threshold time.Duration) ([]domain.AttendanceSession, error)
}

type ReportServiceInterface interface {
	History(ctx context.Context, actor Actor, r report.DateRange) ([]domain.AttendanceSession, error)
	AdminHistory(ctx context.Context, actor Actor, page repository.PageRequest) (repository.PageResult[domain.AttendanceSession], error)
	MonthlySummary(ctx context.Context, actor Actor, month, year int) (report.Summary, error)
	OrgSummary(ctx context.Context, actor Actor, month, year int) (report.OrgSummary, error)
	Calendar(ctx context.Context, actor Actor, target *domain.UserID, month, year int) (report.Calendar, error)
	MissingCheckouts(ctx context.Context, actor Actor, day *time.Time) ([]report.MissingCheckout, error)
	Analytics(ctx context.Context, actor Actor, month, year int) (report.Analytics, error)
	Dashboard(ctx context.Context, actor Actor, month, year int) (*DashboardView, error)
	Export(ctx context.Context, actor Actor, month, year int, w io.Writer) (string, error)
}

type LeaveServiceInterface interface {
	Request(ctx context.Context, actor Actor, in LeaveInput) (*domain.LeaveRequest, error)
	ListMine(ctx context.Context, actor Actor) ([]domain.LeaveRequest, error)
	ListAll(ctx context.Context, actor Actor) ([]domain.LeaveRequest, error)
	SetStatus(ctx context.Context, actor Actor, id uint, status domain.LeaveStatus) (*domain.LeaveRequest, error)
}
