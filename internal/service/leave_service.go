package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sandeepkv93/attendance-session-service/internal/domain"
	"github.com/sandeepkv93/attendance-session-service/internal/notify"
	"github.com/sandeepkv93/attendance-session-service/internal/repository"
)

type LeaveInput struct {
	StartDate time.Time
	EndDate   time.Time
	Reason    string
}

type LeaveService struct {
	leaves   repository.LeaveRepository
	audit    *AuditRecorder
	notifier Notifier
	logger   *slog.Logger
}

func NewLeaveService(leaves repository.LeaveRepository, audit *AuditRecorder, notifier Notifier, logger *slog.Logger) *LeaveService {
	return &LeaveService{leaves: leaves, audit: audit, notifier: notifier, logger: logger}
}

func (s *LeaveService) Request(ctx context.Context, actor Actor, in LeaveInput) (*domain.LeaveRequest, error) {
	if err := actor.requireUser(); err != nil {
		return nil, err
	}
	if in.StartDate.IsZero() || in.EndDate.IsZero() || in.EndDate.Before(in.StartDate) {
		return nil, ErrInvalidLeave
	}
	leave := &domain.LeaveRequest{
		UserID:    actor.UserID,
		StartDate: in.StartDate.UTC(),
		EndDate:   in.EndDate.UTC(),
		Reason:    strings.TrimSpace(in.Reason),
		Status:    domain.LeaveStatusPending,
	}
	if err := s.leaves.Create(ctx, leave); err != nil {
		return nil, storageError("request leave", err)
	}
	return leave, nil
}

func (s *LeaveService) ListMine(ctx context.Context, actor Actor) ([]domain.LeaveRequest, error) {
	if err := actor.requireUser(); err != nil {
		return nil, err
	}
	leaves, err := s.leaves.ListByUser(ctx, actor.UserID)
	if err != nil {
		return nil, storageError("list leaves", err)
	}
	return leaves, nil
}

func (s *LeaveService) ListAll(ctx context.Context, actor Actor) ([]domain.LeaveRequest, error) {
	if err := actor.requireAdmin(); err != nil {
		return nil, err
	}
	leaves, err := s.leaves.ListAll(ctx)
	if err != nil {
		return nil, storageError("list leaves", err)
	}
	return leaves, nil
}

// SetStatus approves or rejects a leave request, then audits and emails the
// requester. Audit and email failures are logged only.
func (s *LeaveService) SetStatus(ctx context.Context, actor Actor, id uint, status domain.LeaveStatus) (*domain.LeaveRequest, error) {
	if err := actor.requireAdmin(); err != nil {
		return nil, err
	}
	if status != domain.LeaveStatusApproved && status != domain.LeaveStatusRejected {
		return nil, ErrInvalidLeaveState
	}
	leave, err := s.leaves.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrLeaveNotFound) {
			return nil, ErrLeaveNotFound
		}
		return nil, storageError("load leave", err)
	}
	if err := s.leaves.UpdateStatus(ctx, id, status); err != nil {
		if errors.Is(err, repository.ErrLeaveNotFound) {
			return nil, ErrLeaveNotFound
		}
		return nil, storageError("update leave", err)
	}
	leave.Status = status

	details := map[string]any{
		"user_id":    leave.UserID,
		"reason":     leave.Reason,
		"start_date": leave.StartDate.Format(time.DateOnly),
		"end_date":   leave.EndDate.Format(time.DateOnly),
	}
	if leave.User != nil {
		details["user"] = leave.User.Name
	}
	targetID := leave.ID
	s.audit.Record(ctx, actor.UserID, "Leave "+string(status), "LeaveRequest", &targetID, details)

	if s.notifier != nil && leave.User != nil && leave.User.Email != "" {
		msg := notify.Message{
			To:      leave.User.Email,
			Subject: fmt.Sprintf("Your leave request has been %s", status),
			Body: fmt.Sprintf("Hi %s,\n\nYour leave request from %s to %s has been %s.\n",
				leave.User.Name,
				leave.StartDate.Format(time.DateOnly),
				leave.EndDate.Format(time.DateOnly),
				status,
			),
		}
		if err := s.notifier.Notify(ctx, msg); err != nil {
			s.logger.WarnContext(ctx, "leave notification failed", "leave_id", leave.ID, "error", err)
		}
	}
	return leave, nil
}
