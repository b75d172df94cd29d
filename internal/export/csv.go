package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/sandeepkv93/attendance-session-service/internal/domain"
)

const notAvailable = "N/A"

var header = []string{"Name", "Email", "CheckIn", "CheckOut", "Latitude", "Longitude", "Photo"}

// Row is one exported session. Empty optional values render as blank cells,
// except Photo which renders as N/A.
type Row struct {
	Name      string
	Email     string
	CheckIn   time.Time
	CheckOut  *time.Time
	Latitude  *float64
	Longitude *float64
	PhotoRef  *string
}

func RowFromSession(s domain.AttendanceSession) Row {
	row := Row{
		CheckIn:   s.CheckInTime,
		CheckOut:  s.CheckOutTime,
		Latitude:  s.Latitude,
		Longitude: s.Longitude,
		PhotoRef:  s.PhotoRef,
	}
	if s.User != nil {
		row.Name, row.Email = s.User.Name, s.User.Email
	}
	return row
}

func FileName(month, year int) string {
	return fmt.Sprintf("attendance-%d-%d.csv", month, year)
}

func WriteCSV(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, r := range rows {
		record := []string{
			r.Name,
			r.Email,
			r.CheckIn.UTC().Format(time.RFC3339),
			formatTime(r.CheckOut),
			formatFloat(r.Latitude),
			formatFloat(r.Longitude),
			notAvailable,
		}
		if r.PhotoRef != nil && *r.PhotoRef != "" {
			record[6] = *r.PhotoRef
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func formatFloat(f *float64) string {
	if f == nil {
		return ""
	}
	return strconv.FormatFloat(*f, 'f', -1, 64)
}
