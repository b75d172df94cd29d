package handler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sandeepkv93/attendance-session-service/internal/domain"
	"github.com/sandeepkv93/attendance-session-service/internal/evidence"
	"github.com/sandeepkv93/attendance-session-service/internal/http/middleware"
	"github.com/sandeepkv93/attendance-session-service/internal/report"
	"github.com/sandeepkv93/attendance-session-service/internal/security"
	"github.com/sandeepkv93/attendance-session-service/internal/service"
)

type stubAttendance struct {
	service.AttendanceServiceInterface
	got service.CheckInInput
	err error
}

func (s *stubAttendance) CheckIn(_ context.Context, actor service.Actor, in service.CheckInInput) (*domain.AttendanceSession, error) {
	s.got = in
	if s.err != nil {
		return nil, s.err
	}
	session := &domain.AttendanceSession{ID: 1, UserID: actor.UserID, CheckInTime: time.Now().UTC(), PhotoRef: in.PhotoRef}
	session.SetLocation(in.Location)
	return session, nil
}

type stubEvidence struct {
	name    string
	body    string
	err     error
	deleted []string
}

func (s *stubEvidence) Delete(_ context.Context, ref string) error {
	s.deleted = append(s.deleted, ref)
	return nil
}

func (s *stubEvidence) Save(_ context.Context, filename string, r io.Reader) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	b, _ := io.ReadAll(r)
	s.name, s.body = filename, string(b)
	return "photos/abc.jpg", nil
}

func withActor(req *http.Request, id domain.UserID, role domain.Role) *http.Request {
	claims := &security.Claims{Role: role}
	claims.Subject = fmt.Sprintf("%d", id)
	return req.WithContext(context.WithValue(req.Context(), middleware.ClaimsContextKey, claims))
}

func multipartCheckIn(t *testing.T, fields map[string]string, photoName, photo string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	if photoName != "" {
		part, err := mw.CreateFormFile("photo", photoName)
		if err != nil {
			t.Fatalf("create file: %v", err)
		}
		_, _ = part.Write([]byte(photo))
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/attendance/check-in", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return withActor(req, 5, domain.RoleStandard)
}

func TestCheckInMultipartStoresPhoto(t *testing.T) {
	att := &stubAttendance{}
	ev := &stubEvidence{}
	h := NewAttendanceHandler(att, nil, ev, 1<<20, time.UTC)

	rr := httptest.NewRecorder()
	h.CheckIn(rr, multipartCheckIn(t, map[string]string{"latitude": "12.9", "longitude": "77.6"}, "me.jpg", "jpeg-bytes"))

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d %s", rr.Code, rr.Body.String())
	}
	if ev.name != "me.jpg" || ev.body != "jpeg-bytes" {
		t.Fatalf("evidence not saved: %+v", ev)
	}
	if att.got.PhotoRef == nil || *att.got.PhotoRef != "photos/abc.jpg" {
		t.Fatalf("photo ref not passed to service: %+v", att.got)
	}
	if att.got.Location == nil || att.got.Location.Latitude != 12.9 || att.got.Location.Longitude != 77.6 {
		t.Fatalf("location not passed to service: %+v", att.got.Location)
	}
}

func TestCheckInMultipartWithoutPhoto(t *testing.T) {
	att := &stubAttendance{}
	h := NewAttendanceHandler(att, nil, &stubEvidence{}, 1<<20, time.UTC)

	rr := httptest.NewRecorder()
	h.CheckIn(rr, multipartCheckIn(t, nil, "", ""))
	if rr.Code != http.StatusCreated || att.got.PhotoRef != nil || att.got.Location != nil {
		t.Fatalf("expected bare check-in, got %d %+v", rr.Code, att.got)
	}
}

func TestCheckInMultipartRejectsBadInput(t *testing.T) {
	cases := []struct {
		name   string
		fields map[string]string
		photo  string
		ev     *stubEvidence
		status int
	}{
		{"non numeric latitude", map[string]string{"latitude": "north", "longitude": "1"}, "", &stubEvidence{}, http.StatusBadRequest},
		{"unsupported type", nil, "me.gif", &stubEvidence{err: evidence.ErrUnsupportedType}, http.StatusBadRequest},
		{"too large", nil, "me.jpg", &stubEvidence{err: evidence.ErrTooLarge}, http.StatusRequestEntityTooLarge},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			att := &stubAttendance{}
			h := NewAttendanceHandler(att, nil, tc.ev, 1<<20, time.UTC)
			rr := httptest.NewRecorder()
			h.CheckIn(rr, multipartCheckIn(t, tc.fields, tc.photo, "x"))
			if rr.Code != tc.status {
				t.Fatalf("expected %d, got %d %s", tc.status, rr.Code, rr.Body.String())
			}
		})
	}
}

func TestWriteErrorMapsKinds(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{service.ErrMonthYearRequired, http.StatusBadRequest},
		{service.ErrAlreadyCheckedIn, http.StatusConflict},
		{service.ErrAdminOnly, http.StatusForbidden},
		{service.ErrLeaveNotFound, http.StatusNotFound},
		{service.ErrUnauthenticated, http.StatusUnauthorized},
		{fmt.Errorf("wrapped: %w", service.ErrNoOpenSession), http.StatusConflict},
		{errors.New("connection refused"), http.StatusServiceUnavailable},
	}
	for _, tc := range cases {
		rr := httptest.NewRecorder()
		writeError(rr, httptest.NewRequest(http.MethodGet, "/", nil), tc.err)
		if rr.Code != tc.status {
			t.Fatalf("%v: expected %d, got %d", tc.err, tc.status, rr.Code)
		}
	}
}

func TestParseInstant(t *testing.T) {
	got, err := parseInstant("2024-03-05", true, time.UTC)
	if err != nil || !got.Equal(time.Date(2024, time.March, 5, 23, 59, 59, 999999999, time.UTC)) {
		t.Fatalf("unexpected end of day %v err=%v", got, err)
	}
	got, err = parseInstant("2024-03-05T10:00:00+02:00", false, time.UTC)
	if err != nil || !got.Equal(time.Date(2024, time.March, 5, 8, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected rfc3339 %v err=%v", got, err)
	}
	if _, err := parseInstant("05/03/2024", false, time.UTC); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

var eastern = time.FixedZone("EST", -5*60*60)

func TestParseInstantResolvesDatesInReportZone(t *testing.T) {
	start, err := parseInstant("2024-03-05", false, eastern)
	if err != nil || !start.Equal(time.Date(2024, time.March, 5, 0, 0, 0, 0, eastern)) {
		t.Fatalf("unexpected start %v err=%v", start, err)
	}
	if !start.Equal(time.Date(2024, time.March, 5, 5, 0, 0, 0, time.UTC)) {
		t.Fatalf("expected 05:00 UTC, got %v", start.UTC())
	}
	end, err := parseInstant("2024-03-05", true, eastern)
	if err != nil || !end.Equal(time.Date(2024, time.March, 6, 5, 0, 0, 0, time.UTC).Add(-time.Nanosecond)) {
		t.Fatalf("unexpected end %v err=%v", end, err)
	}
}

type stubReports struct {
	service.ReportServiceInterface
	day   *time.Time
	rng   report.DateRange
	calls int
}

func (s *stubReports) MissingCheckouts(_ context.Context, _ service.Actor, day *time.Time) ([]report.MissingCheckout, error) {
	s.day = day
	s.calls++
	return []report.MissingCheckout{}, nil
}

func (s *stubReports) History(_ context.Context, _ service.Actor, r report.DateRange) ([]domain.AttendanceSession, error) {
	s.rng = r
	s.calls++
	return []domain.AttendanceSession{}, nil
}

func TestDateQueryValuesUseHandlerZone(t *testing.T) {
	reports := &stubReports{}
	h := NewAttendanceHandler(nil, reports, nil, 0, eastern)

	rr := httptest.NewRecorder()
	h.MissingCheckouts(rr, withActor(httptest.NewRequest(http.MethodGet, "/?date=2024-03-05", nil), 1, domain.RoleAdmin))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d %s", rr.Code, rr.Body.String())
	}
	start, _ := report.DayRange(*reports.day, eastern)
	if !start.Equal(time.Date(2024, time.March, 5, 0, 0, 0, 0, eastern)) {
		t.Fatalf("missing checkouts resolved to the wrong day: %v", start)
	}

	rr = httptest.NewRecorder()
	h.History(rr, withActor(httptest.NewRequest(http.MethodGet, "/?from=2024-03-05&to=2024-03-05", nil), 1, domain.RoleStandard))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d %s", rr.Code, rr.Body.String())
	}
	lateEvening := time.Date(2024, time.March, 5, 23, 0, 0, 0, eastern)
	previousEvening := time.Date(2024, time.March, 4, 23, 0, 0, 0, eastern)
	if !reports.rng.Contains(lateEvening) || reports.rng.Contains(previousEvening) {
		t.Fatalf("history range %v..%v does not cover 2024-03-05 in EST", reports.rng.From, reports.rng.To)
	}
}

func TestParseMaxHours(t *testing.T) {
	if d, err := parseMaxHours("0.5"); err != nil || d != 30*time.Minute {
		t.Fatalf("expected 30m, got %v %v", d, err)
	}
	for _, raw := range []string{"0", "-2", "1e-12", "NaN", "Inf", "-Inf", "1e300", "abc"} {
		if d, err := parseMaxHours(raw); err == nil {
			t.Fatalf("parseMaxHours(%q) accepted as %v", raw, d)
		}
	}
}

type stubTrigger struct {
	service.AttendanceServiceInterface
	called bool
}

func (s *stubTrigger) TriggerAutoCheckout(context.Context, service.Actor, time.Duration) ([]domain.AttendanceSession, error) {
	s.called = true
	return nil, nil
}

func TestTriggerAutoCheckoutRejectsSubNanosecondHours(t *testing.T) {
	att := &stubTrigger{}
	h := NewAttendanceHandler(att, nil, nil, 0, time.UTC)
	rr := httptest.NewRecorder()
	h.TriggerAutoCheckout(rr, withActor(httptest.NewRequest(http.MethodPost, "/?max_hours=1e-12", nil), 1, domain.RoleAdmin))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
	if att.called {
		t.Fatal("service must not run with a truncated threshold")
	}
}

func TestCheckInConflictDiscardsStoredPhoto(t *testing.T) {
	att := &stubAttendance{err: service.ErrAlreadyCheckedIn}
	ev := &stubEvidence{}
	h := NewAttendanceHandler(att, nil, ev, 1<<20, time.UTC)

	rr := httptest.NewRecorder()
	h.CheckIn(rr, multipartCheckIn(t, nil, "me.jpg", "jpeg-bytes"))
	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d %s", rr.Code, rr.Body.String())
	}
	if len(ev.deleted) != 1 || ev.deleted[0] != "photos/abc.jpg" {
		t.Fatalf("expected stored photo discarded, got %v", ev.deleted)
	}
}

func TestQueryParams(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?month=3&year=2024&page=2&page_size=50&user_id=9", nil)
	month, year, err := monthYear(req)
	if err != nil || month != 3 || year != 2024 {
		t.Fatalf("month/year: %d %d %v", month, year, err)
	}
	page, err := pageParam(req)
	if err != nil || page.Page != 2 || page.PageSize != 50 {
		t.Fatalf("page: %+v %v", page, err)
	}
	id, err := userIDParam(req, "user_id")
	if err != nil || id == nil || *id != 9 {
		t.Fatalf("user id: %v %v", id, err)
	}
	if _, err := userIDParam(httptest.NewRequest(http.MethodGet, "/?user_id=-1", nil), "user_id"); err == nil {
		t.Fatal("expected error for negative user id")
	}
	month, year, err = monthYear(httptest.NewRequest(http.MethodGet, "/", nil))
	if err != nil || month != 0 || year != 0 {
		t.Fatal("absent month/year must be zero without error")
	}
}

func FuzzParseInstant(f *testing.F) {
	f.Add("2024-03-05")
	f.Add("2024-03-05T10:00:00Z")
	f.Add("")
	f.Fuzz(func(t *testing.T, raw string) {
		start, err := parseInstant(raw, false, eastern)
		if err != nil {
			return
		}
		end, err := parseInstant(raw, true, eastern)
		if err != nil || end.Before(start) {
			t.Fatalf("end of day before start for %q: %v %v", raw, start, end)
		}
		if strings.TrimSpace(raw) == "" {
			t.Fatalf("empty input parsed: %q", raw)
		}
	})
}
