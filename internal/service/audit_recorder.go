package service

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/sandeepkv93/attendance-session-service/internal/domain"
	"github.com/sandeepkv93/attendance-session-service/internal/repository"
)

// AuditRecorder appends audit entries. A failed append is logged and never
// reaches the caller.
type AuditRecorder struct {
	repo   repository.AuditRepository
	clock  Clock
	logger *slog.Logger
}

func NewAuditRecorder(repo repository.AuditRepository, clock Clock, logger *slog.Logger) *AuditRecorder {
	return &AuditRecorder{repo: repo, clock: clock, logger: logger}
}

func (a *AuditRecorder) Record(ctx context.Context, actor domain.UserID, action, target string, targetID *uint, details map[string]any) {
	if a == nil || a.repo == nil {
		return
	}
	raw, err := json.Marshal(details)
	if err != nil {
		raw = []byte("{}")
	}
	entry := &domain.AuditLog{
		ActorID:   actor,
		Action:    action,
		Target:    target,
		TargetID:  targetID,
		Details:   string(raw),
		Timestamp: a.clock.Now().UTC(),
	}
	if err := a.repo.Append(ctx, entry); err != nil {
		a.logger.WarnContext(ctx, "audit append failed", "action", action, "target", target, "error", err)
	}
}
