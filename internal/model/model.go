package model

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"
)

// FlexString accepts either a JSON string or a JSON number. The LMS is not
// consistent about identifiers and zip codes.
type FlexString string

func (f *FlexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = FlexString(n.String())
	return nil
}

// Session is one instructor-led-training session as delivered by the LMS.
//
// The raw fields mirror the JSON of /enrolled_ilt_sessions. StartDate,
// EndDate and Color are derived once at load time by Annotate.
type Session struct {
	ID         FlexString `json:"id"`
	StartAt    string     `json:"start_at"`
	EndAt      string     `json:"end_at"`
	Timezone   string     `json:"timezone,omitempty"`
	Duration   *float64   `json:"duration,omitempty"`
	Title      string     `json:"title,omitempty"`
	Course     string     `json:"course,omitempty"`
	Instructor string     `json:"instructor,omitempty"`
	Location   string     `json:"location,omitempty"`
	Address    string     `json:"address,omitempty"`
	ZipCode    FlexString `json:"zip_code,omitempty"`
	City       string     `json:"city,omitempty"`
	AreaRegion string     `json:"area_region,omitempty"`
	LocationID FlexString `json:"location_id,omitempty"`
	URL        string     `json:"url,omitempty"`
	Enrolled   bool       `json:"enrolled"`
	Seats      int        `json:"seats_available,omitempty"`

	// Derived.
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
	Color     string    `json:"color,omitempty"`
}

// Key returns the session key used for enrollment and ICS export.
func (s Session) Key() string {
	return strings.TrimSpace(string(s.ID))
}

// StartDay is the calendar date of StartDate in the session's own zone.
func (s Session) StartDay() Day { return DayOf(s.StartDate) }

// EndDay is the calendar date of EndDate in the session's own zone.
func (s Session) EndDay() Day { return DayOf(s.EndDate) }

// OffsetHours is the session zone's UTC offset at the session start.
func (s Session) OffsetHours() float64 {
	_, off := s.StartDate.Zone()
	return float64(off) / 3600
}

// Payload is the response shape of GET /enrolled_ilt_sessions.
type Payload struct {
	Enrolled  []Session `json:"ilt_sessions"`
	Available []Session `json:"open_ilt_sessions"`
}
