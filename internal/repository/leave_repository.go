package repository

import (
	"context"
	"errors"

	"github.com/sandeepkv93/attendance-session-service/internal/domain"
	"github.com/sandeepkv93/attendance-session-service/internal/observability"

	"gorm.io/gorm"
)

var ErrLeaveNotFound = errors.New("leave request not found")

type LeaveRepository interface {
	Create(ctx context.Context, l *domain.LeaveRequest) error
	FindByID(ctx context.Context, id uint) (*domain.LeaveRequest, error)
	ListByUser(ctx context.Context, userID domain.UserID) ([]domain.LeaveRequest, error)
	ListAll(ctx context.Context) ([]domain.LeaveRequest, error)
	UpdateStatus(ctx context.Context, id uint, status domain.LeaveStatus) error
}

type GormLeaveRepository struct{ db *gorm.DB }

func NewLeaveRepository(db *gorm.DB) LeaveRepository { return &GormLeaveRepository{db: db} }

func (r *GormLeaveRepository) Create(ctx context.Context, l *domain.LeaveRequest) error {
	if err := r.db.WithContext(ctx).Create(l).Error; err != nil {
		observability.RecordRepositoryOperation(ctx, "leave", "create", "error")
		return err
	}
	observability.RecordRepositoryOperation(ctx, "leave", "create", "success")
	return nil
}

func (r *GormLeaveRepository) FindByID(ctx context.Context, id uint) (*domain.LeaveRequest, error) {
	var l domain.LeaveRequest
	err := r.db.WithContext(ctx).Preload("User").First(&l, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			observability.RecordRepositoryOperation(ctx, "leave", "find_by_id", "not_found")
			return nil, ErrLeaveNotFound
		}
		observability.RecordRepositoryOperation(ctx, "leave", "find_by_id", "error")
		return nil, err
	}
	observability.RecordRepositoryOperation(ctx, "leave", "find_by_id", "success")
	return &l, nil
}

func (r *GormLeaveRepository) ListByUser(ctx context.Context, userID domain.UserID) ([]domain.LeaveRequest, error) {
	var leaves []domain.LeaveRequest
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at DESC").Order("id DESC").Find(&leaves).Error
	if err != nil {
		observability.RecordRepositoryOperation(ctx, "leave", "list_by_user", "error")
		return nil, err
	}
	observability.RecordRepositoryOperation(ctx, "leave", "list_by_user", "success")
	return leaves, nil
}

func (r *GormLeaveRepository) ListAll(ctx context.Context) ([]domain.LeaveRequest, error) {
	var leaves []domain.LeaveRequest
	err := r.db.WithContext(ctx).Preload("User").Order("created_at DESC").Order("id DESC").Find(&leaves).Error
	if err != nil {
		observability.RecordRepositoryOperation(ctx, "leave", "list_all", "error")
		return nil, err
	}
	observability.RecordRepositoryOperation(ctx, "leave", "list_all", "success")
	return leaves, nil
}

func (r *GormLeaveRepository) UpdateStatus(ctx context.Context, id uint, status domain.LeaveStatus) error {
	res := r.db.WithContext(ctx).Model(&domain.LeaveRequest{}).Where("id = ?", id).Update("status", status)
	if res.Error != nil {
		observability.RecordRepositoryOperation(ctx, "leave", "update_status", "error")
		return res.Error
	}
	if res.RowsAffected == 0 {
		observability.RecordRepositoryOperation(ctx, "leave", "update_status", "not_found")
		return ErrLeaveNotFound
	}
	observability.RecordRepositoryOperation(ctx, "leave", "update_status", "success")
	return nil
}
