package service

import "github.com/sandeepkv93/attendance-session-service/internal/domain"

// Actor is the authenticated caller as asserted by the identity layer.
type Actor struct {
	UserID domain.UserID
	Role   domain.Role
}

func (a Actor) IsAdmin() bool { return a.Role == domain.RoleAdmin }

func (a Actor) requireUser() error {
	if a.UserID == 0 {
		return ErrUnauthenticated
	}
	return nil
}

func (a Actor) requireAdmin() error {
	if err := a.requireUser(); err != nil {
		return err
	}
	if !a.IsAdmin() {
		return ErrAdminOnly
	}
	return nil
}
