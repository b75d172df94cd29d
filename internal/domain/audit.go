package domain

import "time"

// AuditLog rows are insert-only.
type AuditLog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ActorID   UserID    `gorm:"index;not null" json:"actor_id"`
	Action    string    `gorm:"size:128;not null" json:"action"`
	Target    string    `gorm:"size:64" json:"target"`
	TargetID  *uint     `json:"target_id,omitempty"`
	Details   string    `gorm:"type:text" json:"details"`
	Timestamp time.Time `gorm:"index;not null" json:"timestamp"`
}
