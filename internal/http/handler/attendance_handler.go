package handler

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/sandeepkv93/attendance-session-service/internal/domain"
	"github.com/sandeepkv93/attendance-session-service/internal/http/middleware"
	"github.com/sandeepkv93/attendance-session-service/internal/http/response"
	"github.com/sandeepkv93/attendance-session-service/internal/observability"
	"github.com/sandeepkv93/attendance-session-service/internal/report"
	"github.com/sandeepkv93/attendance-session-service/internal/service"
)

type checkInRequest struct {
	Latitude  *float64 `json:"latitude" validate:"required_with=Longitude,omitempty,latitude"`
	Longitude *float64 `json:"longitude" validate:"required_with=Latitude,omitempty,longitude"`
}

func (c checkInRequest) location() *domain.GeoPoint {
	if c.Latitude == nil || c.Longitude == nil {
		return nil
	}
	return &domain.GeoPoint{Latitude: *c.Latitude, Longitude: *c.Longitude}
}

type AttendanceHandler struct {
	attendance    service.AttendanceServiceInterface
	reports       service.ReportServiceInterface
	evidence      service.EvidenceStore
	maxPhotoBytes int64
	// loc resolves date-only query values to calendar days.
	loc *time.Location
}

func NewAttendanceHandler(
	attendance service.AttendanceServiceInterface,
	reports service.ReportServiceInterface,
	evidence service.EvidenceStore,
	maxPhotoBytes int64,
	loc *time.Location,
) *AttendanceHandler {
	if maxPhotoBytes <= 0 {
		maxPhotoBytes = 5 << 20
	}
	if loc == nil {
		loc = time.UTC
	}
	return &AttendanceHandler{attendance: attendance, reports: reports, evidence: evidence, maxPhotoBytes: maxPhotoBytes, loc: loc}
}

// MaxRequestBytes is the body limit the check-in route needs: one photo plus
// form overhead.
func (h *AttendanceHandler) MaxRequestBytes() int64 {
	return h.maxPhotoBytes + 1<<20
}

func actorOrReject(w http.ResponseWriter, r *http.Request) (service.Actor, bool) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing auth context", nil)
	}
	return actor, ok
}

// CheckIn accepts either a JSON body or a multipart form with latitude,
// longitude and an optional photo file.
func (h *AttendanceHandler) CheckIn(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorOrReject(w, r)
	if !ok {
		return
	}
	var (
		req   checkInRequest
		input service.CheckInInput
	)
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(h.maxPhotoBytes); err != nil {
			badRequest(w, r, "INVALID_FORM", "malformed multipart form")
			return
		}
		defer func() { _ = r.MultipartForm.RemoveAll() }()
		var err error
		if req.Latitude, err = formFloat(r, "latitude"); err != nil {
			badRequest(w, r, "INVALID_LOCATION", "latitude must be a number")
			return
		}
		if req.Longitude, err = formFloat(r, "longitude"); err != nil {
			badRequest(w, r, "INVALID_LOCATION", "longitude must be a number")
			return
		}
		if err := validate.Struct(req); err != nil {
			writeError(w, r, err)
			return
		}
		ref, err := h.savePhoto(r)
		if err != nil {
			writeError(w, r, err)
			return
		}
		input.PhotoRef = ref
	} else if err := decodeJSON(r, &req); err != nil {
		if errors.Is(err, errMalformedBody) {
			badRequest(w, r, "INVALID_BODY", err.Error())
			return
		}
		writeError(w, r, err)
		return
	}
	input.Location = req.location()

	session, err := h.attendance.CheckIn(r.Context(), actor, input)
	if err != nil {
		if input.PhotoRef != nil {
			h.discardPhoto(r, *input.PhotoRef)
		}
		writeError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusCreated, session)
}

// discardPhoto removes evidence stored for a check-in that did not happen.
func (h *AttendanceHandler) discardPhoto(r *http.Request, ref string) {
	ctx := context.WithoutCancel(r.Context())
	if err := h.evidence.Delete(ctx, ref); err != nil {
		slog.WarnContext(ctx, "discard evidence failed", "ref", ref, "error", err)
	}
}

func (h *AttendanceHandler) savePhoto(r *http.Request) (*string, error) {
	file, header, err := r.FormFile("photo")
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer file.Close()
	if h.evidence == nil {
		return nil, errors.New("photo evidence is not configured")
	}
	ref, err := h.evidence.Save(r.Context(), header.Filename, file)
	if err != nil {
		return nil, err
	}
	return &ref, nil
}

func formFloat(r *http.Request, name string) (*float64, error) {
	raw := strings.TrimSpace(r.FormValue(name))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (h *AttendanceHandler) CheckOut(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorOrReject(w, r)
	if !ok {
		return
	}
	session, err := h.attendance.CheckOut(r.Context(), actor)
	if err != nil {
		writeError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, session)
}

func (h *AttendanceHandler) History(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorOrReject(w, r)
	if !ok {
		return
	}
	from, err := timeParam(r, "from", false, h.loc)
	if err != nil {
		badRequest(w, r, "INVALID_PARAMETER", "from must be RFC3339 or YYYY-MM-DD")
		return
	}
	to, err := timeParam(r, "to", true, h.loc)
	if err != nil {
		badRequest(w, r, "INVALID_PARAMETER", "to must be RFC3339 or YYYY-MM-DD")
		return
	}
	sessions, err := h.reports.History(r.Context(), actor, report.DateRange{From: from, To: to})
	if err != nil {
		writeError(w, r, err)
		return
	}
	response.List(w, r, http.StatusOK, sessions)
}

// monthly wraps the month/year report endpoints that only differ in the
// service call.
func monthly[T any](fn func(r *http.Request, actor service.Actor, month, year int) (T, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := actorOrReject(w, r)
		if !ok {
			return
		}
		month, year, err := monthYear(r)
		if err != nil {
			badRequest(w, r, "INVALID_PARAMETER", "month and year must be integers")
			return
		}
		out, err := fn(r, actor, month, year)
		if err != nil {
			writeError(w, r, err)
			return
		}
		response.JSON(w, r, http.StatusOK, out)
	}
}

func (h *AttendanceHandler) Summary(w http.ResponseWriter, r *http.Request) {
	monthly(func(r *http.Request, actor service.Actor, month, year int) (report.Summary, error) {
		return h.reports.MonthlySummary(r.Context(), actor, month, year)
	})(w, r)
}

func (h *AttendanceHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	monthly(func(r *http.Request, actor service.Actor, month, year int) (*service.DashboardView, error) {
		return h.reports.Dashboard(r.Context(), actor, month, year)
	})(w, r)
}

func (h *AttendanceHandler) OrgSummary(w http.ResponseWriter, r *http.Request) {
	monthly(func(r *http.Request, actor service.Actor, month, year int) ([]report.UserSummary, error) {
		summary, err := h.reports.OrgSummary(r.Context(), actor, month, year)
		if err != nil {
			return nil, err
		}
		return summary.Sorted(), nil
	})(w, r)
}

func (h *AttendanceHandler) Analytics(w http.ResponseWriter, r *http.Request) {
	monthly(func(r *http.Request, actor service.Actor, month, year int) ([]report.UserAnalytics, error) {
		analytics, err := h.reports.Analytics(r.Context(), actor, month, year)
		if err != nil {
			return nil, err
		}
		return analytics.Sorted(), nil
	})(w, r)
}

func (h *AttendanceHandler) Calendar(w http.ResponseWriter, r *http.Request) {
	target, err := userIDParam(r, "user_id")
	if err != nil {
		badRequest(w, r, "INVALID_PARAMETER", "user_id must be a positive integer")
		return
	}
	monthly(func(r *http.Request, actor service.Actor, month, year int) (report.Calendar, error) {
		return h.reports.Calendar(r.Context(), actor, target, month, year)
	})(w, r)
}

func (h *AttendanceHandler) AdminHistory(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorOrReject(w, r)
	if !ok {
		return
	}
	page, err := pageParam(r)
	if err != nil {
		badRequest(w, r, "INVALID_PARAMETER", "page and page_size must be integers")
		return
	}
	result, err := h.reports.AdminHistory(r.Context(), actor, page)
	if err != nil {
		writeError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, result)
}

func (h *AttendanceHandler) MissingCheckouts(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorOrReject(w, r)
	if !ok {
		return
	}
	day, err := timeParam(r, "date", false, h.loc)
	if err != nil {
		badRequest(w, r, "INVALID_PARAMETER", "date must be RFC3339 or YYYY-MM-DD")
		return
	}
	missing, err := h.reports.MissingCheckouts(r.Context(), actor, day)
	if err != nil {
		writeError(w, r, err)
		return
	}
	response.List(w, r, http.StatusOK, missing)
}

func (h *AttendanceHandler) Export(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorOrReject(w, r)
	if !ok {
		return
	}
	month, year, err := monthYear(r)
	if err != nil {
		badRequest(w, r, "INVALID_PARAMETER", "month and year must be integers")
		return
	}
	var buf bytes.Buffer
	name, err := h.reports.Export(r.Context(), actor, month, year, &buf)
	if err != nil {
		writeError(w, r, err)
		return
	}
	observability.Audit(r, actor.UserID, "attendance.export", "file", name)
	response.Attachment(w, "text/csv; charset=utf-8", name, buf.Bytes())
}

// TriggerAutoCheckout closes sessions older than max_hours, or the
// configured cap when omitted.
func (h *AttendanceHandler) TriggerAutoCheckout(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorOrReject(w, r)
	if !ok {
		return
	}
	var threshold time.Duration
	if raw := strings.TrimSpace(r.URL.Query().Get("max_hours")); raw != "" {
		var err error
		if threshold, err = parseMaxHours(raw); err != nil {
			badRequest(w, r, "INVALID_PARAMETER", "max_hours must be a positive number of hours")
			return
		}
	}
	closed, err := h.attendance.TriggerAutoCheckout(r.Context(), actor, threshold)
	if err != nil {
		writeError(w, r, err)
		return
	}
	observability.Audit(r, actor.UserID, "attendance.auto_checkout", "closed", len(closed))
	response.JSON(w, r, http.StatusOK, map[string]any{"closed": len(closed), "sessions": closed})
}
