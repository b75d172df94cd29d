package domain

import "time"

type LeaveStatus string

const (
	LeaveStatusPending  LeaveStatus = "pending"
	LeaveStatusApproved LeaveStatus = "approved"
	LeaveStatusRejected LeaveStatus = "rejected"
)

type LeaveRequest struct {
	ID        uint        `gorm:"primaryKey" json:"id"`
	UserID    UserID      `gorm:"index;not null" json:"user_id"`
	User      *User       `gorm:"foreignKey:UserID" json:"user,omitempty"`
	StartDate time.Time   `gorm:"not null" json:"start_date"`
	EndDate   time.Time   `gorm:"not null" json:"end_date"`
	Reason    string      `gorm:"size:1024" json:"reason"`
	Status    LeaveStatus `gorm:"size:32;index;not null;default:pending" json:"status"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}
