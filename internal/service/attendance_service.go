package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/sandeepkv93/attendance-session-service/internal/domain"
	"github.com/sandeepkv93/attendance-session-service/internal/notify"
	"github.com/sandeepkv93/attendance-session-service/internal/observability"
	"github.com/sandeepkv93/attendance-session-service/internal/repository"
)

const (
	CloseSourceManual = "manual"
	CloseSourceAdmin  = "admin"
	CloseSourceReaper = "reaper"
)

type CheckInInput struct {
	Location *domain.GeoPoint
	PhotoRef *string
}

// AttendancePolicy holds the cap the admin trigger applies when the caller
// does not name one.
type AttendancePolicy struct {
	MaxDuration time.Duration
}

type AttendanceService struct {
	sessions repository.AttendanceRepository
	users    repository.UserRepository
	cache    *ReportCache
	notifier Notifier
	audit    *AuditRecorder
	clock    Clock
	policy   AttendancePolicy
	logger   *slog.Logger
}

func NewAttendanceService(
	sessions repository.AttendanceRepository,
	users repository.UserRepository,
	cache *ReportCache,
	notifier Notifier,
	audit *AuditRecorder,
	clock Clock,
	policy AttendancePolicy,
	logger *slog.Logger,
) *AttendanceService {
	return &AttendanceService{
		sessions: sessions,
		users:    users,
		cache:    cache,
		notifier: notifier,
		audit:    audit,
		clock:    clock,
		policy:   policy,
		logger:   logger,
	}
}

func (s *AttendanceService) CheckIn(ctx context.Context, actor Actor, in CheckInInput) (*domain.AttendanceSession, error) {
	ctx, span := observability.StartSpan(ctx, "attendance.check_in")
	defer span.End()

	if err := actor.requireUser(); err != nil {
		return nil, err
	}
	if in.Location != nil && !validLocation(*in.Location) {
		observability.RecordAttendanceEvent(ctx, "check_in", "invalid")
		return nil, ErrInvalidLocation
	}
	session := &domain.AttendanceSession{
		UserID:      actor.UserID,
		CheckInTime: s.clock.Now().UTC(),
	}
	if in.PhotoRef != nil && strings.TrimSpace(*in.PhotoRef) != "" {
		ref := *in.PhotoRef
		session.PhotoRef = &ref
	}
	session.SetLocation(in.Location)

	if err := s.sessions.CreateOpen(ctx, session); err != nil {
		if errors.Is(err, repository.ErrOpenSessionExists) {
			observability.RecordAttendanceEvent(ctx, "check_in", "conflict")
			return nil, ErrAlreadyCheckedIn
		}
		if errors.Is(err, repository.ErrUserNotFound) {
			observability.RecordAttendanceEvent(ctx, "check_in", "unknown_user")
			return nil, ErrUserNotFound
		}
		observability.RecordAttendanceEvent(ctx, "check_in", "error")
		return nil, storageError("check in", err)
	}
	s.cache.Invalidate(ctx)
	observability.RecordAttendanceEvent(ctx, "check_in", "success")
	s.logger.InfoContext(ctx, "checked in", "user_id", actor.UserID, "session_id", session.ID)
	return session, nil
}

// CheckOut closes the caller's open session at the current time. Losing a
// race against an auto-close reports ErrNoOpenSession.
func (s *AttendanceService) CheckOut(ctx context.Context, actor Actor) (*domain.AttendanceSession, error) {
	ctx, span := observability.StartSpan(ctx, "attendance.check_out")
	defer span.End()

	if err := actor.requireUser(); err != nil {
		return nil, err
	}
	open, err := s.sessions.FindOpenByUser(ctx, actor.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrAttendanceNotFound) {
			observability.RecordAttendanceEvent(ctx, "check_out", "conflict")
			return nil, ErrNoOpenSession
		}
		observability.RecordAttendanceEvent(ctx, "check_out", "error")
		return nil, storageError("check out", err)
	}

	checkOut := s.clock.Now().UTC()
	if checkOut.Before(open.CheckInTime) {
		checkOut = open.CheckInTime
	}
	closed, err := s.sessions.Close(ctx, open.ID, checkOut)
	if err != nil {
		observability.RecordAttendanceEvent(ctx, "check_out", "error")
		return nil, storageError("check out", err)
	}
	if !closed {
		observability.RecordAttendanceEvent(ctx, "check_out", "conflict")
		return nil, ErrNoOpenSession
	}
	open.CheckOutTime = &checkOut
	open.OpenUserID = nil

	s.cache.Invalidate(ctx)
	observability.RecordAttendanceEvent(ctx, "check_out", "success")
	observability.RecordSessionClosed(ctx, CloseSourceManual, open.Duration())
	s.logger.InfoContext(ctx, "checked out", "user_id", actor.UserID, "session_id", open.ID, "duration", open.Duration().String())
	return open, nil
}

// AutoCloseExpired closes every open session whose age has reached threshold,
// stamping check-out at check-in plus threshold rather than now. Sessions
// closed concurrently by someone else are skipped.
func (s *AttendanceService) AutoCloseExpired(ctx context.Context, threshold time.Duration, source string) ([]domain.AttendanceSession, error) {
	ctx, span := observability.StartSpan(ctx, "attendance.auto_close",
		attribute.String("source", source),
		attribute.String("threshold", threshold.String()),
	)
	defer span.End()

	if threshold <= 0 {
		return nil, ErrInvalidThreshold
	}
	now := s.clock.Now().UTC()
	candidates, err := s.sessions.ListOpenCheckedInBy(ctx, now.Add(-threshold))
	if err != nil {
		return nil, storageError("auto close", err)
	}

	closed := make([]domain.AttendanceSession, 0, len(candidates))
	var errs []error
	for _, c := range candidates {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		checkOut := c.CheckInTime.Add(threshold)
		ok, err := s.sessions.Close(ctx, c.ID, checkOut)
		if err != nil {
			errs = append(errs, fmt.Errorf("session %d: %w", c.ID, err))
			continue
		}
		if !ok {
			continue
		}
		c.CheckOutTime = &checkOut
		c.OpenUserID = nil
		closed = append(closed, c)
		observability.RecordSessionClosed(ctx, source, threshold)
		s.logger.InfoContext(ctx, "session auto-closed",
			"source", source,
			"session_id", c.ID,
			"user_id", c.UserID,
			"check_in", c.CheckInTime,
			"check_out", checkOut,
		)
	}

	if len(closed) > 0 {
		s.cache.Invalidate(ctx)
		observability.RecordAutoClosed(ctx, source, threshold, len(closed))
		s.notifyAutoClosed(ctx, closed, threshold)
	}
	if len(errs) > 0 {
		return closed, storageError("auto close", errors.Join(errs...))
	}
	return closed, nil
}

// TriggerAutoCheckout is the admin entry point. A zero threshold uses the
// configured maximum duration.
func (s *AttendanceService) TriggerAutoCheckout(ctx context.Context, actor Actor, threshold time.Duration) ([]domain.AttendanceSession, error) {
	if err := actor.requireAdmin(); err != nil {
		return nil, err
	}
	if threshold == 0 {
		threshold = s.policy.MaxDuration
	}
	closed, err := s.AutoCloseExpired(ctx, threshold, CloseSourceAdmin)
	ids := make([]uint, 0, len(closed))
	for _, c := range closed {
		ids = append(ids, c.ID)
	}
	if err == nil || len(closed) > 0 {
		s.audit.Record(ctx, actor.UserID, "Auto checkout", "AttendanceSession", nil, map[string]any{
			"threshold":   threshold.String(),
			"closed":      len(closed),
			"session_ids": ids,
		})
	}
	return closed, err
}

func (s *AttendanceService) notifyAutoClosed(ctx context.Context, closed []domain.AttendanceSession, threshold time.Duration) {
	if s.notifier == nil || s.users == nil {
		return
	}
	seen := make(map[domain.UserID]bool, len(closed))
	ids := make([]domain.UserID, 0, len(closed))
	for _, c := range closed {
		if !seen[c.UserID] {
			seen[c.UserID] = true
			ids = append(ids, c.UserID)
		}
	}
	users, err := s.users.FindByIDs(ctx, ids)
	if err != nil {
		s.logger.WarnContext(ctx, "auto-close notification lookup failed", "error", err)
		return
	}
	byID := make(map[domain.UserID]domain.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}
	for _, c := range closed {
		u, ok := byID[c.UserID]
		if !ok || u.Email == "" {
			continue
		}
		msg := notify.Message{
			To:      u.Email,
			Subject: "You were automatically checked out",
			Body: fmt.Sprintf("Hi %s,\n\nYour attendance session that started at %s was still open after %s and has been closed at %s.\nPlease contact your administrator if this is incorrect.\n",
				u.Name,
				c.CheckInTime.UTC().Format(time.RFC3339),
				threshold,
				c.CheckOutTime.UTC().Format(time.RFC3339),
			),
		}
		if err := s.notifier.Notify(ctx, msg); err != nil {
			s.logger.WarnContext(ctx, "auto-close notification failed", "user_id", u.ID, "error", err)
		}
	}
}

func validLocation(p domain.GeoPoint) bool {
	return p.Latitude >= -90 && p.Latitude <= 90 && p.Longitude >= -180 && p.Longitude <= 180
}
