package handler

import (
	"errors"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/sandeepkv93/attendance-session-service/internal/domain"
	"github.com/sandeepkv93/attendance-session-service/internal/repository"
)

var errBadParam = errors.New("malformed query parameter")

// intParam returns 0 when name is absent so services can report the
// missing parameter themselves.
func intParam(r *http.Request, name string) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errBadParam
	}
	return v, nil
}

func monthYear(r *http.Request) (int, int, error) {
	month, err := intParam(r, "month")
	if err != nil {
		return 0, 0, err
	}
	year, err := intParam(r, "year")
	if err != nil {
		return 0, 0, err
	}
	return month, year, nil
}

// parseInstant accepts RFC3339 or a bare YYYY-MM-DD. A bare date is the
// midnight that starts that day in loc; used as an upper bound it covers the
// whole day.
func parseInstant(raw string, endOfDay bool, loc *time.Location) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), nil
	}
	if loc == nil {
		loc = time.UTC
	}
	d, err := time.ParseInLocation(time.DateOnly, raw, loc)
	if err != nil {
		return time.Time{}, errBadParam
	}
	if endOfDay {
		d = d.AddDate(0, 0, 1).Add(-time.Nanosecond)
	}
	return d, nil
}

func timeParam(r *http.Request, name string, endOfDay bool, loc *time.Location) (*time.Time, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return nil, nil
	}
	t, err := parseInstant(raw, endOfDay, loc)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// maxHoursLimit bounds max_hours so the conversion to time.Duration cannot
// overflow.
const maxHoursLimit = float64(math.MaxInt64 / int64(time.Hour))

// parseMaxHours converts a fractional hour count to a positive duration.
func parseMaxHours(raw string) (time.Duration, error) {
	hours, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(hours) || hours <= 0 || hours > maxHoursLimit {
		return 0, errBadParam
	}
	d := time.Duration(hours * float64(time.Hour))
	if d <= 0 {
		return 0, errBadParam
	}
	return d, nil
}

func userIDParam(r *http.Request, name string) (*domain.UserID, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || v == 0 {
		return nil, errBadParam
	}
	id := domain.UserID(v)
	return &id, nil
}

func pageParam(r *http.Request) (repository.PageRequest, error) {
	page, err := intParam(r, "page")
	if err != nil {
		return repository.PageRequest{}, err
	}
	size, err := intParam(r, "page_size")
	if err != nil {
		return repository.PageRequest{}, err
	}
	return repository.PageRequest{Page: page, PageSize: size}, nil
}
