package report

import (
	"sort"
	"time"

	"github.com/sandeepkv93/attendance-session-service/internal/domain"
)

type MissingCheckout struct {
	SessionID   uint          `json:"session_id"`
	UserID      domain.UserID `json:"user_id"`
	Name        string        `json:"name"`
	Email       string        `json:"email"`
	CheckInTime time.Time     `json:"check_in_time"`
}

// MissingCheckouts lists sessions that checked in on day (in loc) and are
// still open, earliest first.
func MissingCheckouts(sessions []domain.AttendanceSession, day time.Time, loc *time.Location) []MissingCheckout {
	start, end := DayRange(day, loc)
	out := make([]MissingCheckout, 0)
	for i := range sessions {
		s := &sessions[i]
		if !s.IsOpen() || s.CheckInTime.Before(start) || !s.CheckInTime.Before(end) {
			continue
		}
		name, email := identity(s)
		out = append(out, MissingCheckout{
			SessionID:   s.ID,
			UserID:      s.UserID,
			Name:        name,
			Email:       email,
			CheckInTime: s.CheckInTime,
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CheckInTime.Before(out[j].CheckInTime) })
	return out
}
