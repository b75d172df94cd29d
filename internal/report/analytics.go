package report

import (
	"sort"
	"time"

	"github.com/sandeepkv93/attendance-session-service/internal/domain"
)

type UserAnalytics struct {
	UserID          domain.UserID `json:"user_id"`
	Name            string        `json:"name"`
	Email           string        `json:"email"`
	TotalDays       int           `json:"total_days"`
	TotalHours      Hours         `json:"total_hours"`
	AvgCheckInHour  Hours         `json:"avg_check_in_hour"`
	AvgCheckOutHour Hours         `json:"avg_check_out_hour"`
}

type Analytics map[domain.UserID]UserAnalytics

// BuildAnalytics averages check-in and check-out hour-of-day (hour +
// minute/60, in the period's location) over each user's closed sessions in p.
func BuildAnalytics(sessions []domain.AttendanceSession, p Period) Analytics {
	type acc struct {
		entry     UserAnalytics
		total     time.Duration
		checkIns  []float64
		checkOuts []float64
	}
	loc := p.location()
	accs := make(map[domain.UserID]*acc)
	for i := range sessions {
		s := &sessions[i]
		if !closedIn(s, p) {
			continue
		}
		a, ok := accs[s.UserID]
		if !ok {
			a = &acc{entry: UserAnalytics{UserID: s.UserID}}
			a.entry.Name, a.entry.Email = identity(s)
			accs[s.UserID] = a
		}
		a.entry.TotalDays++
		a.total += s.Duration()
		a.checkIns = append(a.checkIns, hourOfDay(s.CheckInTime, loc))
		a.checkOuts = append(a.checkOuts, hourOfDay(*s.CheckOutTime, loc))
	}

	out := make(Analytics, len(accs))
	for id, a := range accs {
		a.entry.TotalHours = HoursOf(a.total)
		a.entry.AvgCheckInHour = Hours(mean(a.checkIns))
		a.entry.AvgCheckOutHour = Hours(mean(a.checkOuts))
		out[id] = a.entry
	}
	return out
}

func (a Analytics) Sorted() []UserAnalytics {
	out := make([]UserAnalytics, 0, len(a))
	for _, v := range a {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out
}
