package report

import (
	"math"
	"strconv"
	"time"
)

// Hours is a fractional hour count. It is kept unrounded for arithmetic and
// rendered with two decimals.
type Hours float64

func HoursOf(d time.Duration) Hours {
	return Hours(d.Hours())
}

func (h Hours) Rounded() float64 {
	return math.Round(float64(h)*100) / 100
}

func (h Hours) String() string {
	return strconv.FormatFloat(h.Rounded(), 'f', 2, 64)
}

func (h Hours) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(h.String())), nil
}

func (h *Hours) UnmarshalJSON(b []byte) error {
	s := string(b)
	if unquoted, err := strconv.Unquote(s); err == nil {
		s = unquoted
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return err
	}
	*h = Hours(f)
	return nil
}

// hourOfDay is hour + minute/60 in loc; seconds are ignored.
func hourOfDay(t time.Time, loc *time.Location) float64 {
	local := t.In(loc)
	return float64(local.Hour()) + float64(local.Minute())/60
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
