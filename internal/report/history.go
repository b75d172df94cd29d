package report

import (
	"sort"
	"time"

	"github.com/sandeepkv93/attendance-session-service/internal/domain"
)

// DateRange bounds are inclusive; nil means unbounded.
type DateRange struct {
	From *time.Time
	To   *time.Time
}

func (r DateRange) Contains(t time.Time) bool {
	if r.From != nil && t.Before(*r.From) {
		return false
	}
	if r.To != nil && t.After(*r.To) {
		return false
	}
	return true
}

// PersonalHistory returns the user's sessions in r, newest check-in first.
func PersonalHistory(sessions []domain.AttendanceSession, userID domain.UserID, r DateRange) []domain.AttendanceSession {
	out := make([]domain.AttendanceSession, 0, len(sessions))
	for _, s := range sessions {
		if s.UserID == userID && r.Contains(s.CheckInTime) {
			out = append(out, s)
		}
	}
	sortNewestFirst(out)
	return out
}

const recentSessionLimit = 5

type Dashboard struct {
	Summary        Summary                    `json:"summary"`
	RecentSessions []domain.AttendanceSession `json:"recent_sessions"`
}

// BuildDashboard pairs the monthly summary with up to five of the period's
// closed sessions, newest first.
func BuildDashboard(sessions []domain.AttendanceSession, userID domain.UserID, p Period) Dashboard {
	recent := make([]domain.AttendanceSession, 0, recentSessionLimit)
	for _, s := range sessions {
		if s.UserID == userID && closedIn(&s, p) {
			recent = append(recent, s)
		}
	}
	sortNewestFirst(recent)
	if len(recent) > recentSessionLimit {
		recent = recent[:recentSessionLimit]
	}
	return Dashboard{
		Summary:        MonthlySummary(sessions, userID, p),
		RecentSessions: recent,
	}
}

func sortNewestFirst(sessions []domain.AttendanceSession) {
	sort.SliceStable(sessions, func(i, j int) bool {
		if sessions[i].CheckInTime.Equal(sessions[j].CheckInTime) {
			return sessions[i].ID > sessions[j].ID
		}
		return sessions[i].CheckInTime.After(sessions[j].CheckInTime)
	})
}
