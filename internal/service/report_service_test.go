package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"testing"
	"time"

	"github.com/sandeepkv93/attendance-session-service/internal/domain"
	"github.com/sandeepkv93/attendance-session-service/internal/report"
	"github.com/sandeepkv93/attendance-session-service/internal/repository"
)

func TestMonthlySummaryEightAndAHalfHours(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "Alice", domain.RoleStandard)

	f.session(t, alice, march1At9, time.Date(2024, time.March, 1, 17, 30, 0, 0, time.UTC))
	got, err := f.reports.MonthlySummary(context.Background(), alice, 3, 2024)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if got.TotalDays != 1 || got.TotalHours.String() != "8.50" {
		t.Fatalf("expected {1, 8.50}, got %+v", got)
	}
}

func TestMonthlySummaryExcludesOpenAndOutOfRangeSessions(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "Alice", domain.RoleStandard)

	f.session(t, alice, time.Date(2024, time.February, 29, 20, 0, 0, 0, time.UTC), time.Date(2024, time.March, 1, 1, 0, 0, 0, time.UTC))
	f.session(t, alice, time.Date(2024, time.March, 4, 9, 0, 0, 0, time.UTC), time.Date(2024, time.March, 4, 12, 15, 0, 0, time.UTC))
	f.session(t, alice, time.Date(2024, time.March, 31, 22, 0, 0, 0, time.UTC), time.Date(2024, time.April, 1, 2, 0, 0, 0, time.UTC))
	f.session(t, alice, time.Date(2024, time.April, 1, 9, 0, 0, 0, time.UTC), time.Time{})

	got, err := f.reports.MonthlySummary(context.Background(), alice, 3, 2024)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if got.TotalDays != 2 || got.TotalHours.String() != "7.25" {
		t.Fatalf("expected {2, 7.25}, got %+v", got)
	}
}

func TestReportsRequireMonthAndYear(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "Alice", domain.RoleStandard)
	ctx := context.Background()

	if _, err := f.reports.MonthlySummary(ctx, alice, 0, 2024); !errors.Is(err, ErrMonthYearRequired) || KindOf(err) != KindValidation {
		t.Fatalf("expected ErrMonthYearRequired, got %v", err)
	}
	if _, err := f.reports.Dashboard(ctx, alice, 3, 0); !errors.Is(err, ErrMonthYearRequired) {
		t.Fatalf("expected ErrMonthYearRequired, got %v", err)
	}
	if _, err := f.reports.Calendar(ctx, alice, nil, 13, 2024); !errors.Is(err, ErrInvalidPeriod) || KindOf(err) != KindValidation {
		t.Fatalf("expected ErrInvalidPeriod, got %v", err)
	}
}

func TestAdminOnlyReportsRejectStandardUsers(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "Alice", domain.RoleStandard)
	f.session(t, alice, march1At9, march1At9.Add(time.Hour))
	ctx := context.Background()

	summary, err := f.reports.OrgSummary(ctx, alice, 3, 2024)
	if !errors.Is(err, ErrAdminOnly) || KindOf(err) != KindAuthorization || summary != nil {
		t.Fatalf("expected authorization error without data, got %v %v", summary, err)
	}
	if _, err := f.reports.Analytics(ctx, alice, 3, 2024); !errors.Is(err, ErrAdminOnly) {
		t.Fatalf("analytics: expected ErrAdminOnly, got %v", err)
	}
	if _, err := f.reports.MissingCheckouts(ctx, alice, nil); !errors.Is(err, ErrAdminOnly) {
		t.Fatalf("missing checkouts: expected ErrAdminOnly, got %v", err)
	}
	if _, err := f.reports.AdminHistory(ctx, alice, repository.PageRequest{}); !errors.Is(err, ErrAdminOnly) {
		t.Fatalf("admin history: expected ErrAdminOnly, got %v", err)
	}
	var buf bytes.Buffer
	if _, err := f.reports.Export(ctx, alice, 3, 2024, &buf); !errors.Is(err, ErrAdminOnly) || buf.Len() != 0 {
		t.Fatalf("export: expected ErrAdminOnly and no output, got %v (%d bytes)", err, buf.Len())
	}
}

func TestOrgSummaryAndAnalytics(t *testing.T) {
	f := newFixture(t)
	admin := f.user(t, "Root", domain.RoleAdmin)
	alice := f.user(t, "Alice", domain.RoleStandard)
	bob := f.user(t, "Bob", domain.RoleStandard)
	ctx := context.Background()

	f.session(t, alice, time.Date(2024, time.March, 4, 9, 0, 0, 0, time.UTC), time.Date(2024, time.March, 4, 17, 0, 0, 0, time.UTC))
	f.session(t, alice, time.Date(2024, time.March, 5, 9, 30, 0, 0, time.UTC), time.Date(2024, time.March, 5, 18, 0, 0, 0, time.UTC))
	f.session(t, bob, time.Date(2024, time.March, 5, 10, 0, 0, 0, time.UTC), time.Time{})

	summary, err := f.reports.OrgSummary(ctx, admin, 3, 2024)
	if err != nil {
		t.Fatalf("org summary: %v", err)
	}
	if len(summary) != 1 {
		t.Fatalf("expected only alice in summary, got %+v", summary)
	}
	a := summary[alice.UserID]
	if a.Name != "Alice" || a.Email != "alice@example.com" || a.TotalDays != 2 || a.TotalHours.String() != "16.50" {
		t.Fatalf("unexpected alice summary: %+v", a)
	}

	analytics, err := f.reports.Analytics(ctx, admin, 3, 2024)
	if err != nil {
		t.Fatalf("analytics: %v", err)
	}
	if got := analytics[alice.UserID].AvgCheckInHour; got != 9.25 {
		t.Fatalf("expected avg check-in 9.25, got %v", got)
	}

	cached, err := f.reports.Analytics(ctx, admin, 3, 2024)
	if err != nil || cached[alice.UserID].AvgCheckOutHour != 17.5 {
		t.Fatalf("expected cached analytics round trip, got %+v err=%v", cached, err)
	}
}

func TestCalendarTargetOnlyHonouredForAdmins(t *testing.T) {
	f := newFixture(t)
	admin := f.user(t, "Root", domain.RoleAdmin)
	alice := f.user(t, "Alice", domain.RoleStandard)
	bob := f.user(t, "Bob", domain.RoleStandard)
	ctx := context.Background()

	f.session(t, alice, time.Date(2024, time.March, 4, 9, 0, 0, 0, time.UTC), time.Date(2024, time.March, 4, 17, 0, 0, 0, time.UTC))
	f.session(t, bob, time.Date(2024, time.March, 6, 9, 0, 0, 0, time.UTC), time.Time{})

	own, err := f.reports.Calendar(ctx, alice, &bob.UserID, 3, 2024)
	if err != nil {
		t.Fatalf("calendar: %v", err)
	}
	if _, ok := own["2024-03-04"]; !ok || len(own) != 1 {
		t.Fatalf("standard user must get own calendar, got %+v", own)
	}
	other, err := f.reports.Calendar(ctx, admin, &bob.UserID, 3, 2024)
	if err != nil {
		t.Fatalf("calendar: %v", err)
	}
	if entry, ok := other["2024-03-06"]; !ok || entry.Status != report.StatusCheckedInOnly {
		t.Fatalf("admin must get bob's calendar, got %+v", other)
	}
}

func TestMissingCheckoutsDefaultsToToday(t *testing.T) {
	f := newFixture(t)
	admin := f.user(t, "Root", domain.RoleAdmin)
	alice := f.user(t, "Alice", domain.RoleStandard)
	bob := f.user(t, "Bob", domain.RoleStandard)
	ctx := context.Background()

	f.session(t, alice, time.Date(2024, time.March, 4, 8, 0, 0, 0, time.UTC), time.Time{})
	f.session(t, bob, time.Date(2024, time.March, 4, 9, 0, 0, 0, time.UTC), time.Date(2024, time.March, 4, 10, 0, 0, 0, time.UTC))
	f.clock.Set(time.Date(2024, time.March, 4, 20, 0, 0, 0, time.UTC))

	missing, err := f.reports.MissingCheckouts(ctx, admin, nil)
	if err != nil {
		t.Fatalf("missing checkouts: %v", err)
	}
	if len(missing) != 1 || missing[0].UserID != alice.UserID || missing[0].Email != "alice@example.com" {
		t.Fatalf("unexpected missing checkouts: %+v", missing)
	}
	yesterday := time.Date(2024, time.March, 3, 12, 0, 0, 0, time.UTC)
	none, err := f.reports.MissingCheckouts(ctx, admin, &yesterday)
	if err != nil || len(none) != 0 {
		t.Fatalf("expected none for previous day, got %+v err=%v", none, err)
	}
}

func TestHistoryAndDashboard(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "Alice", domain.RoleStandard)
	bob := f.user(t, "Bob", domain.RoleStandard)
	ctx := context.Background()

	for day := 1; day <= 6; day++ {
		in := time.Date(2024, time.March, day, 9, 0, 0, 0, time.UTC)
		f.session(t, alice, in, in.Add(8*time.Hour))
	}
	f.session(t, bob, march1At9, march1At9.Add(time.Hour))

	all, err := f.reports.History(ctx, alice, report.DateRange{})
	if err != nil || len(all) != 6 || all[0].CheckInTime.Day() != 6 {
		t.Fatalf("unexpected history: %d err=%v", len(all), err)
	}
	from := time.Date(2024, time.March, 2, 9, 0, 0, 0, time.UTC)
	to := time.Date(2024, time.March, 3, 9, 0, 0, 0, time.UTC)
	ranged, err := f.reports.History(ctx, alice, report.DateRange{From: &from, To: &to})
	if err != nil || len(ranged) != 2 {
		t.Fatalf("expected inclusive range of 2, got %d err=%v", len(ranged), err)
	}
	if _, err := f.reports.History(ctx, alice, report.DateRange{From: &to, To: &from}); !errors.Is(err, ErrInvalidDateRange) {
		t.Fatalf("expected ErrInvalidDateRange, got %v", err)
	}

	dash, err := f.reports.Dashboard(ctx, alice, 3, 2024)
	if err != nil {
		t.Fatalf("dashboard: %v", err)
	}
	if dash.Profile == nil || dash.Profile.Email != "alice@example.com" {
		t.Fatalf("expected profile, got %+v", dash.Profile)
	}
	if dash.Summary.TotalDays != 6 || len(dash.RecentSessions) != 5 || dash.RecentSessions[0].CheckInTime.Day() != 6 {
		t.Fatalf("unexpected dashboard: %+v", dash.Dashboard)
	}
}

func TestExportWritesCSVAndAudits(t *testing.T) {
	f := newFixture(t)
	admin := f.user(t, "Root", domain.RoleAdmin)
	alice := f.user(t, "Alice", domain.RoleStandard)
	ctx := context.Background()

	f.session(t, alice, time.Date(2024, time.March, 4, 9, 0, 0, 0, time.UTC), time.Date(2024, time.March, 4, 17, 0, 0, 0, time.UTC))
	f.session(t, alice, time.Date(2024, time.March, 5, 9, 0, 0, 0, time.UTC), time.Time{})

	var buf bytes.Buffer
	name, err := f.reports.Export(ctx, admin, 3, 2024, &buf)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if name != "attendance-3-2024.csv" {
		t.Fatalf("unexpected file name %q", name)
	}
	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("parse csv: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected header + 2 rows including open session, got %d", len(records))
	}
	if records[1][0] != "Alice" || records[1][2] != "2024-03-04T09:00:00Z" || records[2][3] != "" || records[2][6] != "N/A" {
		t.Fatalf("unexpected rows: %v", records[1:])
	}

	entries, err := f.audits.ListRecent(ctx, 5)
	if err != nil || len(entries) != 1 || entries[0].Action != "Attendance exported" {
		t.Fatalf("expected export audit entry, got %+v err=%v", entries, err)
	}
}

func TestAdminHistoryPaginates(t *testing.T) {
	f := newFixture(t)
	admin := f.user(t, "Root", domain.RoleAdmin)
	alice := f.user(t, "Alice", domain.RoleStandard)

	for day := 1; day <= 3; day++ {
		in := time.Date(2024, time.March, day, 9, 0, 0, 0, time.UTC)
		f.session(t, alice, in, in.Add(time.Hour))
	}
	page, err := f.reports.AdminHistory(context.Background(), admin, repository.PageRequest{Page: 1, PageSize: 2})
	if err != nil {
		t.Fatalf("admin history: %v", err)
	}
	if page.Total != 3 || len(page.Items) != 2 || page.Items[0].User == nil || page.Items[0].User.Name != "Alice" {
		t.Fatalf("unexpected page: %+v", page)
	}
}
