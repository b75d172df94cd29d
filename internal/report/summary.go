package report

import (
	"sort"
	"time"

	"github.com/sandeepkv93/attendance-session-service/internal/domain"
)

type Summary struct {
	Month      int   `json:"month"`
	Year       int   `json:"year"`
	TotalDays  int   `json:"total_days"`
	TotalHours Hours `json:"total_hours"`
}

type UserSummary struct {
	UserID     domain.UserID `json:"user_id"`
	Name       string        `json:"name"`
	Email      string        `json:"email"`
	TotalDays  int           `json:"total_days"`
	TotalHours Hours         `json:"total_hours"`
}

type OrgSummary map[domain.UserID]UserSummary

// MonthlySummary totals the user's closed sessions that checked in during p.
func MonthlySummary(sessions []domain.AttendanceSession, userID domain.UserID, p Period) Summary {
	out := Summary{Month: int(p.Month), Year: p.Year}
	var total time.Duration
	for i := range sessions {
		s := &sessions[i]
		if s.UserID != userID || !closedIn(s, p) {
			continue
		}
		out.TotalDays++
		total += s.Duration()
	}
	out.TotalHours = HoursOf(total)
	return out
}

// OrgMonthlySummary groups every user's closed sessions in p. Name and email
// come from the preloaded User when present.
func OrgMonthlySummary(sessions []domain.AttendanceSession, p Period) OrgSummary {
	out := make(OrgSummary)
	totals := make(map[domain.UserID]time.Duration)
	for i := range sessions {
		s := &sessions[i]
		if !closedIn(s, p) {
			continue
		}
		entry, ok := out[s.UserID]
		if !ok {
			entry = UserSummary{UserID: s.UserID}
			entry.Name, entry.Email = identity(s)
		}
		entry.TotalDays++
		totals[s.UserID] += s.Duration()
		out[s.UserID] = entry
	}
	for id, d := range totals {
		entry := out[id]
		entry.TotalHours = HoursOf(d)
		out[id] = entry
	}
	return out
}

// Sorted returns the entries ordered by user id.
func (o OrgSummary) Sorted() []UserSummary {
	out := make([]UserSummary, 0, len(o))
	for _, v := range o {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out
}

func closedIn(s *domain.AttendanceSession, p Period) bool {
	return !s.IsOpen() && p.Contains(s.CheckInTime)
}

func identity(s *domain.AttendanceSession) (string, string) {
	if s.User == nil {
		return "", ""
	}
	return s.User.Name, s.User.Email
}
