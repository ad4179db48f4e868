package ics

import (
	"net/url"
	"regexp"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"iltcal/internal/model"
)

// ProductID identifies calendar files produced by this service.
const ProductID = "-//iltcal//ILT Sessions//EN"

// UTCLayout is the millisecond ISO form used for converted timestamps.
const UTCLayout = "2006-01-02T15:04:05.000Z"

var utcLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04Z07:00",
}

// ToUTC converts a session wall-clock timestamp authored at a fixed UTC
// offset into UTC. The input is read as if it were UTC (a "Z" is appended
// when missing) and then shifted back by offsetHours.
func ToUTC(wallClock string, offsetHours float64) (time.Time, error) {
	s := strings.TrimSpace(wallClock)
	if s == "" {
		return time.Time{}, errors.New("empty timestamp")
	}
	s = strings.Replace(s, " ", "T", 1)
	if !strings.HasSuffix(s, "Z") {
		s += "Z"
	}

	var (
		t   time.Time
		err error
	)
	for _, layout := range utcLayouts {
		if t, err = time.Parse(layout, s); err == nil {
			break
		}
	}
	if err != nil {
		return time.Time{}, errors.Wrapf(err, "parse %q", wallClock)
	}
	shift := time.Duration(offsetHours * float64(time.Hour))
	return t.Add(-shift).UTC(), nil
}

// FormatUTC renders t as 2006-01-02T15:04:05.000Z.
func FormatUTC(t time.Time) string {
	return t.UTC().Format(UTCLayout)
}

// UIDFromURL returns the trailing path segment of a session URL, which is
// the LMS session slug. It returns "" when there is none.
func UIDFromURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	path := raw
	if u, err := url.Parse(raw); err == nil {
		path = u.Path
	}
	path = strings.TrimRight(path, "/")
	if i := strings.LastIndex(path, "/"); i >= 0 {
		path = path[i+1:]
	}
	return path
}

// SessionUID picks the VEVENT UID: URL slug, then session key, then a
// random UUID.
func SessionUID(s model.Session) string {
	if uid := UIDFromURL(s.URL); uid != "" {
		return uid
	}
	if key := s.Key(); key != "" {
		return key
	}
	return uuid.NewString()
}

// BuildSessionCalendar serializes a single enrolled session as an
// iCalendar document. Start and end are converted to UTC using the
// session's fixed offset.
func BuildSessionCalendar(s model.Session, now time.Time) (string, error) {
	offset := s.OffsetHours()
	start, err := ToUTC(s.StartAt, offset)
	if err != nil {
		return "", errors.Wrapf(err, "session %s start", s.Key())
	}
	end := start
	if strings.TrimSpace(s.EndAt) != "" {
		end, err = ToUTC(s.EndAt, offset)
		if err != nil {
			return "", errors.Wrapf(err, "session %s end", s.Key())
		}
	}

	cal := ical.NewCalendar()
	cal.SetProductId(ProductID)
	cal.SetMethod(ical.MethodPublish)

	ev := cal.AddEvent(SessionUID(s))
	ev.SetDtStampTime(now.UTC())
	ev.SetStartAt(start)
	ev.SetEndAt(end)
	ev.SetSummary(strings.TrimSpace(s.Title))
	if course := strings.TrimSpace(s.Course); course != "" {
		ev.SetDescription(course)
	}
	if loc := locationLine(s); loc != "" {
		ev.SetLocation(loc)
	}
	if s.URL != "" {
		ev.SetURL(s.URL)
	}

	return cal.Serialize(), nil
}

func locationLine(s model.Session) string {
	parts := make([]string, 0, 4)
	for _, p := range []string{s.Location, s.Address, string(s.ZipCode), s.City} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

var unsafeFilename = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// Filename is the download name of a session's calendar file.
func Filename(s model.Session) string {
	name := unsafeFilename.ReplaceAllString(SessionUID(s), "_")
	if name == "" || name == "_" {
		name = "session"
	}
	return name + ".ics"
}
