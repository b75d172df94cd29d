package repository

import (
	"context"

	"github.com/sandeepkv93/attendance-session-service/internal/domain"
	"github.com/sandeepkv93/attendance-session-service/internal/observability"

	"gorm.io/gorm"
)

// AuditRepository is append-only; there is no update or delete.
type AuditRepository interface {
	Append(ctx context.Context, entry *domain.AuditLog) error
	ListRecent(ctx context.Context, limit int) ([]domain.AuditLog, error)
}

type GormAuditRepository struct{ db *gorm.DB }

func NewAuditRepository(db *gorm.DB) AuditRepository { return &GormAuditRepository{db: db} }

func (r *GormAuditRepository) Append(ctx context.Context, entry *domain.AuditLog) error {
	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		observability.RecordRepositoryOperation(ctx, "audit", "append", "error")
		return err
	}
	observability.RecordRepositoryOperation(ctx, "audit", "append", "success")
	return nil
}

func (r *GormAuditRepository) ListRecent(ctx context.Context, limit int) ([]domain.AuditLog, error) {
	if limit <= 0 || limit > MaxPageSize {
		limit = DefaultPageSize
	}
	var entries []domain.AuditLog
	if err := r.db.WithContext(ctx).Order("timestamp DESC").Order("id DESC").Limit(limit).Find(&entries).Error; err != nil {
		observability.RecordRepositoryOperation(ctx, "audit", "list_recent", "error")
		return nil, err
	}
	observability.RecordRepositoryOperation(ctx, "audit", "list_recent", "success")
	return entries, nil
}
