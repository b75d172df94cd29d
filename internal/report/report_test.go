package report

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/sandeepkv93/attendance-session-service/internal/domain"
)

func utc(month time.Month, day, hour, minute int) time.Time {
	return time.Date(2024, month, day, hour, minute, 0, 0, time.UTC)
}

func closedSession(id uint, user domain.UserID, in, out time.Time) domain.AttendanceSession {
	return domain.AttendanceSession{ID: id, UserID: user, CheckInTime: in, CheckOutTime: &out}
}

func openSession(id uint, user domain.UserID, in time.Time) domain.AttendanceSession {
	return domain.AttendanceSession{ID: id, UserID: user, CheckInTime: in}
}

func mustPeriod(t *testing.T, month, year int, loc *time.Location) Period {
	t.Helper()
	p, err := NewPeriod(month, year, loc)
	if err != nil {
		t.Fatalf("new period: %v", err)
	}
	return p
}

func TestMonthlySummarySingleSessionRendersTwoDecimals(t *testing.T) {
	sessions := []domain.AttendanceSession{
		closedSession(1, 7, utc(time.March, 1, 9, 0), utc(time.March, 1, 17, 30)),
	}
	got := MonthlySummary(sessions, 7, mustPeriod(t, 3, 2024, time.UTC))
	if got.TotalDays != 1 || got.TotalHours.String() != "8.50" {
		t.Fatalf("unexpected summary: days=%d hours=%s", got.TotalDays, got.TotalHours)
	}
	raw, err := json.Marshal(got)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if want := `{"month":3,"year":2024,"total_days":1,"total_hours":"8.50"}`; string(raw) != want {
		t.Fatalf("json = %s, want %s", raw, want)
	}
}

func TestMonthlySummaryOnlyCountsClosedSessionsInsideMonth(t *testing.T) {
	sessions := []domain.AttendanceSession{
		closedSession(1, 7, utc(time.March, 1, 0, 0), utc(time.March, 1, 8, 0)),
		closedSession(2, 7, utc(time.March, 31, 23, 0), utc(time.April, 1, 1, 15)),
		closedSession(3, 7, utc(time.February, 29, 22, 0), utc(time.March, 1, 2, 0)),
		closedSession(4, 7, utc(time.April, 1, 0, 0), utc(time.April, 1, 9, 0)),
		openSession(5, 7, utc(time.March, 15, 9, 0)),
		closedSession(6, 8, utc(time.March, 10, 9, 0), utc(time.March, 10, 10, 0)),
	}
	got := MonthlySummary(sessions, 7, mustPeriod(t, 3, 2024, time.UTC))
	if got.TotalDays != 2 {
		t.Fatalf("expected 2 closed sessions in March, got %d", got.TotalDays)
	}
	if got.TotalHours != HoursOf(8*time.Hour+2*time.Hour+15*time.Minute) {
		t.Fatalf("expected 10.25h, got %s", got.TotalHours)
	}
}

func TestOrgMonthlySummaryGroupsByUser(t *testing.T) {
	alice := &domain.User{ID: 1, Name: "Alice", Email: "alice@example.com"}
	s1 := closedSession(1, 1, utc(time.March, 4, 9, 0), utc(time.March, 4, 17, 0))
	s1.User = alice
	s2 := closedSession(2, 1, utc(time.March, 5, 9, 0), utc(time.March, 5, 13, 30))
	s2.User = alice
	s3 := closedSession(3, 2, utc(time.March, 5, 10, 0), utc(time.March, 5, 11, 0))
	s4 := openSession(4, 3, utc(time.March, 6, 9, 0))

	got := OrgMonthlySummary([]domain.AttendanceSession{s1, s2, s3, s4}, mustPeriod(t, 3, 2024, time.UTC))
	if len(got) != 2 {
		t.Fatalf("expected 2 users, got %d", len(got))
	}
	a := got[1]
	if a.Name != "Alice" || a.TotalDays != 2 || a.TotalHours.String() != "12.50" {
		t.Fatalf("unexpected alice summary: %+v", a)
	}
	if _, ok := got[3]; ok {
		t.Fatal("user with only an open session must not appear")
	}
	sorted := got.Sorted()
	if sorted[0].UserID != 1 || sorted[1].UserID != 2 {
		t.Fatalf("expected sorted by user id, got %+v", sorted)
	}
}

func TestCalendarViewStatusesAndSameDayOrdering(t *testing.T) {
	sessions := []domain.AttendanceSession{
		openSession(3, 7, utc(time.March, 5, 14, 0)),
		closedSession(2, 7, utc(time.March, 5, 8, 0), utc(time.March, 5, 12, 0)),
		closedSession(1, 7, utc(time.March, 4, 9, 0), utc(time.March, 4, 17, 0)),
		closedSession(4, 9, utc(time.March, 4, 9, 0), utc(time.March, 4, 17, 0)),
	}
	cal := CalendarView(sessions, 7, mustPeriod(t, 3, 2024, time.UTC))
	if len(cal) != 2 {
		t.Fatalf("expected 2 days, got %d", len(cal))
	}
	if cal["2024-03-04"].Status != StatusPresent {
		t.Fatalf("expected Present on 03-04, got %+v", cal["2024-03-04"])
	}
	day5 := cal["2024-03-05"]
	if day5.Status != StatusCheckedInOnly || !day5.CheckIn.Equal(utc(time.March, 5, 14, 0)) || day5.CheckOut != nil {
		t.Fatalf("expected latest check-in to win on 03-05, got %+v", day5)
	}
}

func TestCalendarViewUsesPeriodLocationForDayKeys(t *testing.T) {
	loc := time.FixedZone("UTC+5", 5*60*60)
	sessions := []domain.AttendanceSession{
		closedSession(1, 7, utc(time.March, 4, 20, 0), utc(time.March, 4, 23, 0)),
	}
	cal := CalendarView(sessions, 7, mustPeriod(t, 3, 2024, loc))
	if _, ok := cal["2024-03-05"]; !ok {
		t.Fatalf("expected local date key 2024-03-05, got %v", cal)
	}
}

func TestMissingCheckoutsSelectsOpenSessionsForDay(t *testing.T) {
	bob := &domain.User{ID: 2, Name: "Bob", Email: "bob@example.com"}
	late := openSession(2, 2, utc(time.March, 4, 11, 0))
	late.User = bob
	sessions := []domain.AttendanceSession{
		late,
		openSession(1, 1, utc(time.March, 4, 8, 0)),
		openSession(3, 3, utc(time.March, 3, 23, 59)),
		openSession(4, 4, utc(time.March, 5, 0, 0)),
		closedSession(5, 5, utc(time.March, 4, 9, 0), utc(time.March, 4, 10, 0)),
	}
	got := MissingCheckouts(sessions, utc(time.March, 4, 15, 0), time.UTC)
	if len(got) != 2 {
		t.Fatalf("expected 2 missing checkouts, got %+v", got)
	}
	if got[0].UserID != 1 || got[1].Name != "Bob" {
		t.Fatalf("unexpected order or identity: %+v", got)
	}
}

func TestBuildAnalyticsAveragesHourOfDay(t *testing.T) {
	sessions := []domain.AttendanceSession{
		closedSession(1, 7, utc(time.March, 4, 9, 0), utc(time.March, 4, 17, 0)),
		closedSession(2, 7, utc(time.March, 5, 9, 30), utc(time.March, 5, 18, 0)),
		openSession(3, 7, utc(time.March, 6, 6, 0)),
	}
	got := BuildAnalytics(sessions, mustPeriod(t, 3, 2024, time.UTC))
	a, ok := got[7]
	if !ok {
		t.Fatal("expected analytics for user 7")
	}
	if a.AvgCheckInHour != 9.25 || a.AvgCheckOutHour != 17.5 {
		t.Fatalf("unexpected averages: in=%v out=%v", a.AvgCheckInHour, a.AvgCheckOutHour)
	}
	if a.TotalDays != 2 || a.TotalHours.String() != "16.50" {
		t.Fatalf("unexpected totals: %+v", a)
	}
	if len(BuildAnalytics(nil, mustPeriod(t, 3, 2024, time.UTC))) != 0 {
		t.Fatal("expected empty analytics for no sessions")
	}
}

func TestPersonalHistoryFiltersInclusiveRangeNewestFirst(t *testing.T) {
	sessions := []domain.AttendanceSession{
		closedSession(1, 7, utc(time.March, 1, 9, 0), utc(time.March, 1, 17, 0)),
		closedSession(2, 7, utc(time.March, 2, 9, 0), utc(time.March, 2, 17, 0)),
		openSession(3, 7, utc(time.March, 3, 9, 0)),
		closedSession(4, 8, utc(time.March, 2, 9, 0), utc(time.March, 2, 17, 0)),
	}
	all := PersonalHistory(sessions, 7, DateRange{})
	if len(all) != 3 || all[0].ID != 3 || all[2].ID != 1 {
		t.Fatalf("unexpected unfiltered history: %+v", all)
	}
	from, to := utc(time.March, 2, 9, 0), utc(time.March, 3, 9, 0)
	ranged := PersonalHistory(sessions, 7, DateRange{From: &from, To: &to})
	if len(ranged) != 2 || ranged[0].ID != 3 || ranged[1].ID != 2 {
		t.Fatalf("expected inclusive bounds, got %+v", ranged)
	}
}

func TestBuildDashboardLimitsRecentSessions(t *testing.T) {
	var sessions []domain.AttendanceSession
	for day := 1; day <= 7; day++ {
		sessions = append(sessions, closedSession(uint(day), 7, utc(time.March, day, 9, 0), utc(time.March, day, 17, 0)))
	}
	sessions = append(sessions, openSession(99, 7, utc(time.March, 8, 9, 0)))

	d := BuildDashboard(sessions, 7, mustPeriod(t, 3, 2024, time.UTC))
	if d.Summary.TotalDays != 7 || d.Summary.TotalHours.String() != "56.00" {
		t.Fatalf("unexpected summary: %+v", d.Summary)
	}
	if len(d.RecentSessions) != 5 || d.RecentSessions[0].ID != 7 || d.RecentSessions[4].ID != 3 {
		t.Fatalf("unexpected recent sessions: %+v", d.RecentSessions)
	}
}

func TestNewPeriodBoundaries(t *testing.T) {
	p := mustPeriod(t, 12, 2024, time.UTC)
	if !p.End().Equal(time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected December end: %v", p.End())
	}
	if p.Contains(p.End()) || !p.Contains(p.Start()) {
		t.Fatal("expected half-open range")
	}
	for _, tc := range []struct{ month, year int }{{0, 2024}, {13, 2024}, {3, 0}} {
		if _, err := NewPeriod(tc.month, tc.year, nil); !errors.Is(err, ErrInvalidPeriod) {
			t.Fatalf("NewPeriod(%d,%d) err = %v", tc.month, tc.year, err)
		}
	}
}

func FuzzNewPeriodHalfOpenRange(f *testing.F) {
	f.Add(1, 2024)
	f.Add(12, 1999)
	f.Add(0, 2024)
	f.Add(2, 2100)

	f.Fuzz(func(t *testing.T, month, year int) {
		p, err := NewPeriod(month, year, time.UTC)
		if err != nil {
			if !errors.Is(err, ErrInvalidPeriod) {
				t.Fatalf("unexpected error type: %v", err)
			}
			return
		}
		start, end := p.Start(), p.End()
		if !start.Before(end) {
			t.Fatalf("start %v must precede end %v", start, end)
		}
		if start.Day() != 1 || end.Day() != 1 {
			t.Fatalf("bounds must be month starts: %v %v", start, end)
		}
		if !p.Contains(start) || p.Contains(end) || !p.Contains(end.Add(-time.Nanosecond)) {
			t.Fatalf("expected [start,end) semantics for %s", p)
		}
	})
}
