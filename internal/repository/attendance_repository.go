package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sandeepkv93/attendance-session-service/internal/domain"
	"github.com/sandeepkv93/attendance-session-service/internal/observability"

	"gorm.io/gorm"
)

var (
	ErrAttendanceNotFound = errors.New("attendance session not found")
	ErrOpenSessionExists  = errors.New("user already has an open attendance session")
)

type SessionState int

const (
	SessionStateAny SessionState = iota
	SessionStateOpen
	SessionStateClosed
)

// AttendanceFilter selects sessions by check-in time. CheckInFrom is
// inclusive and CheckInBefore exclusive; nil bounds are open-ended.
type AttendanceFilter struct {
	UserID        *domain.UserID
	CheckInFrom   *time.Time
	CheckInBefore *time.Time
	State         SessionState
	WithUser      bool
	Limit         int
}

type AttendanceRepository interface {
	CreateOpen(ctx context.Context, s *domain.AttendanceSession) error
	FindByID(ctx context.Context, id uint) (*domain.AttendanceSession, error)
	FindOpenByUser(ctx context.Context, userID domain.UserID) (*domain.AttendanceSession, error)
	Close(ctx context.Context, id uint, checkOut time.Time) (bool, error)
	List(ctx context.Context, filter AttendanceFilter) ([]domain.AttendanceSession, error)
	ListOpenCheckedInBy(ctx context.Context, cutoff time.Time) ([]domain.AttendanceSession, error)
	ListPaged(ctx context.Context, req PageRequest) (PageResult[domain.AttendanceSession], error)
}

type GormAttendanceRepository struct{ db *gorm.DB }

func NewAttendanceRepository(db *gorm.DB) AttendanceRepository {
	return &GormAttendanceRepository{db: db}
}

// CreateOpen inserts s as the user's open session. The unique open_user_id
// index rejects the insert when one already exists.
func (r *GormAttendanceRepository) CreateOpen(ctx context.Context, s *domain.AttendanceSession) error {
	if s.CheckOutTime != nil {
		observability.RecordRepositoryOperation(ctx, "attendance", "create_open", "error")
		return errors.New("create open session: check-out time must be empty")
	}
	owner := s.UserID
	s.OpenUserID = &owner
	s.CheckInTime = s.CheckInTime.UTC()
	if err := r.db.WithContext(ctx).Create(s).Error; err != nil {
		s.OpenUserID = nil
		if isDuplicateKey(err) {
			observability.RecordRepositoryOperation(ctx, "attendance", "create_open", "conflict")
			return ErrOpenSessionExists
		}
		if isForeignKeyViolation(err) {
			observability.RecordRepositoryOperation(ctx, "attendance", "create_open", "not_found")
			return ErrUserNotFound
		}
		observability.RecordRepositoryOperation(ctx, "attendance", "create_open", "error")
		return err
	}
	observability.RecordRepositoryOperation(ctx, "attendance", "create_open", "success")
	return nil
}

func (r *GormAttendanceRepository) FindByID(ctx context.Context, id uint) (*domain.AttendanceSession, error) {
	var s domain.AttendanceSession
	err := r.db.WithContext(ctx).First(&s, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			observability.RecordRepositoryOperation(ctx, "attendance", "find_by_id", "not_found")
			return nil, ErrAttendanceNotFound
		}
		observability.RecordRepositoryOperation(ctx, "attendance", "find_by_id", "error")
		return nil, err
	}
	observability.RecordRepositoryOperation(ctx, "attendance", "find_by_id", "success")
	return &s, nil
}

func (r *GormAttendanceRepository) FindOpenByUser(ctx context.Context, userID domain.UserID) (*domain.AttendanceSession, error) {
	var s domain.AttendanceSession
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND check_out_time IS NULL", userID).
		Order("check_in_time DESC").
		First(&s).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			observability.RecordRepositoryOperation(ctx, "attendance", "find_open_by_user", "not_found")
			return nil, ErrAttendanceNotFound
		}
		observability.RecordRepositoryOperation(ctx, "attendance", "find_open_by_user", "error")
		return nil, err
	}
	observability.RecordRepositoryOperation(ctx, "attendance", "find_open_by_user", "success")
	return &s, nil
}

// Close sets the check-out time only while the session is still open. It
// reports false when another writer closed the session first.
func (r *GormAttendanceRepository) Close(ctx context.Context, id uint, checkOut time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&domain.AttendanceSession{}).
		Where("id = ? AND check_out_time IS NULL AND check_in_time <= ?", id, checkOut.UTC()).
		Updates(map[string]any{"check_out_time": checkOut.UTC(), "open_user_id": nil})
	if res.Error != nil {
		observability.RecordRepositoryOperation(ctx, "attendance", "close", "error")
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		observability.RecordRepositoryOperation(ctx, "attendance", "close", "noop")
		return false, nil
	}
	observability.RecordRepositoryOperation(ctx, "attendance", "close", "success")
	return true, nil
}

func (r *GormAttendanceRepository) List(ctx context.Context, filter AttendanceFilter) ([]domain.AttendanceSession, error) {
	q := r.db.WithContext(ctx).Model(&domain.AttendanceSession{})
	if filter.UserID != nil {
		q = q.Where("user_id = ?", *filter.UserID)
	}
	if filter.CheckInFrom != nil {
		q = q.Where("check_in_time >= ?", filter.CheckInFrom.UTC())
	}
	if filter.CheckInBefore != nil {
		q = q.Where("check_in_time < ?", filter.CheckInBefore.UTC())
	}
	switch filter.State {
	case SessionStateOpen:
		q = q.Where("check_out_time IS NULL")
	case SessionStateClosed:
		q = q.Where("check_out_time IS NOT NULL")
	}
	if filter.WithUser {
		q = q.Preload("User")
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	var sessions []domain.AttendanceSession
	if err := q.Order("check_in_time DESC").Order("id DESC").Find(&sessions).Error; err != nil {
		observability.RecordRepositoryOperation(ctx, "attendance", "list", "error")
		return nil, err
	}
	observability.RecordRepositoryOperation(ctx, "attendance", "list", "success")
	return sessions, nil
}

// ListOpenCheckedInBy returns open sessions whose check-in is at or before
// cutoff, oldest first.
func (r *GormAttendanceRepository) ListOpenCheckedInBy(ctx context.Context, cutoff time.Time) ([]domain.AttendanceSession, error) {
	var sessions []domain.AttendanceSession
	err := r.db.WithContext(ctx).
		Where("check_out_time IS NULL AND check_in_time <= ?", cutoff.UTC()).
		Order("check_in_time ASC").
		Find(&sessions).Error
	if err != nil {
		observability.RecordRepositoryOperation(ctx, "attendance", "list_open_by", "error")
		return nil, err
	}
	observability.RecordRepositoryOperation(ctx, "attendance", "list_open_by", "success")
	return sessions, nil
}

func (r *GormAttendanceRepository) ListPaged(ctx context.Context, req PageRequest) (PageResult[domain.AttendanceSession], error) {
	req = normalizePageRequest(req)
	result := PageResult[domain.AttendanceSession]{
		Page:     req.Page,
		PageSize: req.PageSize,
	}
	base := r.db.WithContext(ctx).Model(&domain.AttendanceSession{})
	if err := base.Session(&gorm.Session{}).Count(&result.Total).Error; err != nil {
		observability.RecordRepositoryOperation(ctx, "attendance", "list_paged", "error")
		return PageResult[domain.AttendanceSession]{}, err
	}
	offset := (req.Page - 1) * req.PageSize
	err := base.Preload("User").
		Order("check_in_time DESC").Order("id DESC").
		Offset(offset).Limit(req.PageSize).
		Find(&result.Items).Error
	if err != nil {
		observability.RecordRepositoryOperation(ctx, "attendance", "list_paged", "error")
		return PageResult[domain.AttendanceSession]{}, err
	}
	result.TotalPages = calcTotalPages(result.Total, req.PageSize)
	observability.RecordRepositoryOperation(ctx, "attendance", "list_paged", "success")
	return result, nil
}

func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || strings.Contains(msg, "duplicate key")
}

// isForeignKeyViolation reports a session row pointing at a missing user.
func isForeignKeyViolation(err error) bool {
	if errors.Is(err, gorm.ErrForeignKeyViolated) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "foreign key")
}
