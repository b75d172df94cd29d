package domain

import "time"

type Role string

const (
	RoleAdmin    Role = "admin"
	RoleStandard Role = "standard"
)

func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleStandard
}

// User is the identity record attendance reports are joined against.
// Credentials live with the identity provider, not here.
type User struct {
	ID        UserID    `gorm:"primaryKey" json:"id"`
	Email     string    `gorm:"size:255;uniqueIndex;not null" json:"email"`
	Name      string    `gorm:"size:255;not null" json:"name"`
	Role      Role      `gorm:"size:32;not null;default:standard" json:"role"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
