package report

import (
	"errors"
	"fmt"
	"time"
)

var ErrInvalidPeriod = errors.New("invalid report period")

// Period is a calendar month in a fixed location. Sessions belong to the
// period when their check-in lies in [Start, End).
type Period struct {
	Month    time.Month
	Year     int
	Location *time.Location
}

func NewPeriod(month, year int, loc *time.Location) (Period, error) {
	if month < 1 || month > 12 {
		return Period{}, fmt.Errorf("%w: month %d out of range", ErrInvalidPeriod, month)
	}
	if year < 1970 || year > 9999 {
		return Period{}, fmt.Errorf("%w: year %d out of range", ErrInvalidPeriod, year)
	}
	if loc == nil {
		loc = time.UTC
	}
	return Period{Month: time.Month(month), Year: year, Location: loc}, nil
}

func (p Period) Start() time.Time {
	return time.Date(p.Year, p.Month, 1, 0, 0, 0, 0, p.location())
}

func (p Period) End() time.Time {
	return p.Start().AddDate(0, 1, 0)
}

func (p Period) Contains(t time.Time) bool {
	return !t.Before(p.Start()) && t.Before(p.End())
}

func (p Period) String() string {
	return fmt.Sprintf("%04d-%02d", p.Year, int(p.Month))
}

func (p Period) location() *time.Location {
	if p.Location == nil {
		return time.UTC
	}
	return p.Location
}

// DayRange returns [midnight, next midnight) of the calendar day containing t
// in loc.
func DayRange(t time.Time, loc *time.Location) (time.Time, time.Time) {
	if loc == nil {
		loc = time.UTC
	}
	local := t.In(loc)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 0, 1)
}
