package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/sandeepkv93/attendance-session-service/internal/domain"
	"github.com/sandeepkv93/attendance-session-service/internal/export"
	"github.com/sandeepkv93/attendance-session-service/internal/observability"
	"github.com/sandeepkv93/attendance-session-service/internal/report"
	"github.com/sandeepkv93/attendance-session-service/internal/repository"
)

type DashboardView struct {
	Profile *domain.User `json:"profile"`
	report.Dashboard
}

// ReportService loads session sets from storage and hands them to the pure
// aggregation functions in package report. It never mutates.
type ReportService struct {
	sessions repository.AttendanceRepository
	users    repository.UserRepository
	cache    *ReportCache
	audit    *AuditRecorder
	clock    Clock
	loc      *time.Location
	logger   *slog.Logger
}

func NewReportService(
	sessions repository.AttendanceRepository,
	users repository.UserRepository,
	cache *ReportCache,
	audit *AuditRecorder,
	clock Clock,
	loc *time.Location,
	logger *slog.Logger,
) *ReportService {
	if loc == nil {
		loc = time.UTC
	}
	return &ReportService{
		sessions: sessions,
		users:    users,
		cache:    cache,
		audit:    audit,
		clock:    clock,
		loc:      loc,
		logger:   logger,
	}
}

func (s *ReportService) History(ctx context.Context, actor Actor, r report.DateRange) ([]domain.AttendanceSession, error) {
	if err := actor.requireUser(); err != nil {
		return nil, err
	}
	if r.From != nil && r.To != nil && r.From.After(*r.To) {
		return nil, ErrInvalidDateRange
	}
	filter := repository.AttendanceFilter{UserID: &actor.UserID, CheckInFrom: r.From}
	if r.To != nil {
		// Repository upper bounds are exclusive.
		before := r.To.Add(time.Nanosecond)
		filter.CheckInBefore = &before
	}
	sessions, err := s.sessions.List(ctx, filter)
	if err != nil {
		return nil, storageError("load history", err)
	}
	return report.PersonalHistory(sessions, actor.UserID, r), nil
}

func (s *ReportService) AdminHistory(ctx context.Context, actor Actor, page repository.PageRequest) (repository.PageResult[domain.AttendanceSession], error) {
	if err := actor.requireAdmin(); err != nil {
		return repository.PageResult[domain.AttendanceSession]{}, err
	}
	result, err := s.sessions.ListPaged(ctx, page)
	if err != nil {
		return repository.PageResult[domain.AttendanceSession]{}, storageError("load org history", err)
	}
	return result, nil
}

func (s *ReportService) MonthlySummary(ctx context.Context, actor Actor, month, year int) (report.Summary, error) {
	if err := actor.requireUser(); err != nil {
		return report.Summary{}, err
	}
	p, err := s.period(month, year)
	if err != nil {
		return report.Summary{}, err
	}
	params := fmt.Sprintf("%d:%s", actor.UserID, p)
	return cachedReport(ctx, s.cache, "monthly_summary", params, func(ctx context.Context) (report.Summary, error) {
		sessions, err := s.monthSessions(ctx, &actor.UserID, p, repository.SessionStateClosed, false)
		if err != nil {
			return report.Summary{}, err
		}
		return report.MonthlySummary(sessions, actor.UserID, p), nil
	})
}

func (s *ReportService) OrgSummary(ctx context.Context, actor Actor, month, year int) (report.OrgSummary, error) {
	if err := actor.requireAdmin(); err != nil {
		return nil, err
	}
	p, err := s.period(month, year)
	if err != nil {
		return nil, err
	}
	return cachedReport(ctx, s.cache, "org_summary", p.String(), func(ctx context.Context) (report.OrgSummary, error) {
		sessions, err := s.monthSessions(ctx, nil, p, repository.SessionStateClosed, true)
		if err != nil {
			return nil, err
		}
		return report.OrgMonthlySummary(sessions, p), nil
	})
}

// Calendar serves the caller's own calendar. Admins may name another user;
// the target is ignored for everyone else.
func (s *ReportService) Calendar(ctx context.Context, actor Actor, target *domain.UserID, month, year int) (report.Calendar, error) {
	if err := actor.requireUser(); err != nil {
		return nil, err
	}
	p, err := s.period(month, year)
	if err != nil {
		return nil, err
	}
	userID := actor.UserID
	if actor.IsAdmin() && target != nil && *target != 0 {
		userID = *target
	}
	sessions, err := s.monthSessions(ctx, &userID, p, repository.SessionStateAny, false)
	if err != nil {
		return nil, err
	}
	return report.CalendarView(sessions, userID, p), nil
}

// MissingCheckouts defaults to today in the report location.
func (s *ReportService) MissingCheckouts(ctx context.Context, actor Actor, day *time.Time) ([]report.MissingCheckout, error) {
	if err := actor.requireAdmin(); err != nil {
		return nil, err
	}
	asOf := s.clock.Now()
	if day != nil {
		asOf = *day
	}
	start, end := report.DayRange(asOf, s.loc)
	sessions, err := s.sessions.List(ctx, repository.AttendanceFilter{
		CheckInFrom:   &start,
		CheckInBefore: &end,
		State:         repository.SessionStateOpen,
		WithUser:      true,
	})
	if err != nil {
		return nil, storageError("load missing checkouts", err)
	}
	return report.MissingCheckouts(sessions, asOf, s.loc), nil
}

func (s *ReportService) Analytics(ctx context.Context, actor Actor, month, year int) (report.Analytics, error) {
	if err := actor.requireAdmin(); err != nil {
		return nil, err
	}
	p, err := s.period(month, year)
	if err != nil {
		return nil, err
	}
	return cachedReport(ctx, s.cache, "analytics", p.String(), func(ctx context.Context) (report.Analytics, error) {
		sessions, err := s.monthSessions(ctx, nil, p, repository.SessionStateClosed, true)
		if err != nil {
			return nil, err
		}
		return report.BuildAnalytics(sessions, p), nil
	})
}

func (s *ReportService) Dashboard(ctx context.Context, actor Actor, month, year int) (*DashboardView, error) {
	if err := actor.requireUser(); err != nil {
		return nil, err
	}
	p, err := s.period(month, year)
	if err != nil {
		return nil, err
	}
	profile, err := s.users.FindByID(ctx, actor.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, storageError("load profile", err)
	}
	sessions, err := s.monthSessions(ctx, &actor.UserID, p, repository.SessionStateClosed, false)
	if err != nil {
		return nil, err
	}
	return &DashboardView{Profile: profile, Dashboard: report.BuildDashboard(sessions, actor.UserID, p)}, nil
}

// Export writes every session of the month, open ones included, as CSV and
// returns the suggested file name.
func (s *ReportService) Export(ctx context.Context, actor Actor, month, year int, w io.Writer) (string, error) {
	if err := actor.requireAdmin(); err != nil {
		return "", err
	}
	p, err := s.period(month, year)
	if err != nil {
		return "", err
	}
	ctx, span := observability.StartSpan(ctx, "attendance.export")
	defer span.End()

	sessions, err := s.monthSessions(ctx, nil, p, repository.SessionStateAny, true)
	if err != nil {
		return "", err
	}
	rows := make([]export.Row, 0, len(sessions))
	for i := len(sessions) - 1; i >= 0; i-- {
		rows = append(rows, export.RowFromSession(sessions[i]))
	}
	if err := export.WriteCSV(w, rows); err != nil {
		return "", fmt.Errorf("write csv: %w", err)
	}
	s.audit.Record(ctx, actor.UserID, "Attendance exported", "AttendanceSession", nil, map[string]any{
		"period": p.String(),
		"rows":   len(rows),
	})
	return export.FileName(month, year), nil
}

func (s *ReportService) period(month, year int) (report.Period, error) {
	if month == 0 || year == 0 {
		return report.Period{}, ErrMonthYearRequired
	}
	p, err := report.NewPeriod(month, year, s.loc)
	if err != nil {
		return report.Period{}, validationError(ErrInvalidPeriod.Code, ErrInvalidPeriod.Message, err)
	}
	return p, nil
}

func (s *ReportService) monthSessions(ctx context.Context, userID *domain.UserID, p report.Period, state repository.SessionState, withUser bool) ([]domain.AttendanceSession, error) {
	start, end := p.Start(), p.End()
	sessions, err := s.sessions.List(ctx, repository.AttendanceFilter{
		UserID:        userID,
		CheckInFrom:   &start,
		CheckInBefore: &end,
		State:         state,
		WithUser:      withUser,
	})
	if err != nil {
		return nil, storageError("load sessions", err)
	}
	return sessions, nil
}
