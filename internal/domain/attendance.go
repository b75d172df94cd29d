package domain

import "time"

// UserID identifies a user across attendance records, leave requests and
// report groupings.
type UserID uint

// AttendanceSession is one check-in/check-out interval. A nil CheckOutTime
// means the session is still open.
//
// OpenUserID mirrors UserID while the session is open and is cleared on
// close; its unique index is what keeps a user down to one open session.
type AttendanceSession struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	UserID       UserID     `gorm:"index;not null" json:"user_id"`
	User         *User      `gorm:"foreignKey:UserID" json:"user,omitempty"`
	OpenUserID   *UserID    `gorm:"uniqueIndex" json:"-"`
	CheckInTime  time.Time  `gorm:"index;not null" json:"check_in_time"`
	CheckOutTime *time.Time `gorm:"index" json:"check_out_time,omitempty"`
	Latitude     *float64   `json:"latitude,omitempty"`
	Longitude    *float64   `json:"longitude,omitempty"`
	PhotoRef     *string    `gorm:"size:512" json:"photo_ref,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// GeoPoint is a latitude/longitude pair captured at check-in.
type GeoPoint struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

func (s *AttendanceSession) IsOpen() bool {
	return s.CheckOutTime == nil
}

// Location reports the captured check-in location. A location is present only
// when both coordinates were supplied.
func (s *AttendanceSession) Location() (GeoPoint, bool) {
	if s.Latitude == nil || s.Longitude == nil {
		return GeoPoint{}, false
	}
	return GeoPoint{Latitude: *s.Latitude, Longitude: *s.Longitude}, true
}

// SetLocation stores p, or clears both coordinates when p is nil.
func (s *AttendanceSession) SetLocation(p *GeoPoint) {
	if p == nil {
		s.Latitude, s.Longitude = nil, nil
		return
	}
	lat, lon := p.Latitude, p.Longitude
	s.Latitude, s.Longitude = &lat, &lon
}

// Duration is zero for open sessions.
func (s *AttendanceSession) Duration() time.Duration {
	if s.CheckOutTime == nil {
		return 0
	}
	return s.CheckOutTime.Sub(s.CheckInTime)
}
