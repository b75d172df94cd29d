package report

import (
	"sort"
	"time"

	"github.com/sandeepkv93/attendance-session-service/internal/domain"
)

type DayStatus string

const (
	StatusPresent       DayStatus = "Present"
	StatusCheckedInOnly DayStatus = "CheckedInOnly"
)

type CalendarEntry struct {
	CheckIn  time.Time  `json:"check_in"`
	CheckOut *time.Time `json:"check_out"`
	Status   DayStatus  `json:"status"`
}

// Calendar is keyed by ISO date (YYYY-MM-DD) in the period's location.
type Calendar map[string]CalendarEntry

// CalendarView builds one entry per day with a session in p. Sessions are
// visited in check-in order, so on a day with several sessions the latest
// check-in wins. Multi-session days are not otherwise summarised.
func CalendarView(sessions []domain.AttendanceSession, userID domain.UserID, p Period) Calendar {
	picked := make([]*domain.AttendanceSession, 0, len(sessions))
	for i := range sessions {
		s := &sessions[i]
		if s.UserID == userID && p.Contains(s.CheckInTime) {
			picked = append(picked, s)
		}
	}
	sort.SliceStable(picked, func(i, j int) bool {
		return picked[i].CheckInTime.Before(picked[j].CheckInTime)
	})

	out := make(Calendar, len(picked))
	loc := p.location()
	for _, s := range picked {
		entry := CalendarEntry{CheckIn: s.CheckInTime, CheckOut: s.CheckOutTime, Status: StatusCheckedInOnly}
		if !s.IsOpen() {
			entry.Status = StatusPresent
		}
		out[s.CheckInTime.In(loc).Format(time.DateOnly)] = entry
	}
	return out
}
