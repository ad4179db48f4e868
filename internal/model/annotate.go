package model

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// DefaultPalette is used when the config does not provide one.
var DefaultPalette = []string{"blue", "green", "orange", "purple", "red", "teal"}

var wallClockLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
}

// ResolveLocation maps a session timezone to a *time.Location. It accepts
// IANA names, "UTC"/"GMT" and numeric offsets in hours or [+-]HH:MM form,
// optionally prefixed by "UTC" or "GMT". An empty value resolves to UTC.
func ResolveLocation(tz string) (*time.Location, error) {
	tz = strings.TrimSpace(tz)
	switch strings.ToUpper(tz) {
	case "", "UTC", "GMT", "Z":
		return time.UTC, nil
	}

	if hours, ok := parseOffsetHours(tz); ok {
		secs := int(math.Round(hours * 3600))
		return time.FixedZone(offsetName(secs), secs), nil
	}

	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, errors.Wrapf(err, "unknown timezone %q", tz)
	}
	return loc, nil
}

func parseOffsetHours(tz string) (float64, bool) {
	s := strings.ToUpper(tz)
	s = strings.TrimPrefix(s, "UTC")
	s = strings.TrimPrefix(s, "GMT")
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}

	sign := 1.0
	switch s[0] {
	case '+':
		s = s[1:]
	case '-':
		sign = -1
		s = s[1:]
	}
	if s == "" {
		return 0, false
	}

	// HH:MM or HHMM
	if h, m, ok := strings.Cut(s, ":"); ok {
		hh, err1 := strconv.Atoi(h)
		mm, err2 := strconv.Atoi(m)
		if err1 != nil || err2 != nil || mm < 0 || mm >= 60 {
			return 0, false
		}
		return sign * (float64(hh) + float64(mm)/60), true
	}
	if len(s) == 4 && !strings.Contains(s, ".") {
		hh, err1 := strconv.Atoi(s[:2])
		mm, err2 := strconv.Atoi(s[2:])
		if err1 != nil || err2 != nil || mm >= 60 {
			return 0, false
		}
		return sign * (float64(hh) + float64(mm)/60), true
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f > 14 {
		return 0, false
	}
	return sign * f, true
}

func offsetName(secs int) string {
	sign := '+'
	if secs < 0 {
		sign = '-'
		secs = -secs
	}
	return fmt.Sprintf("UTC%c%02d:%02d", sign, secs/3600, (secs%3600)/60)
}

// ParseWallClock parses an ISO-like wall-clock timestamp in loc. A trailing
// "Z" forces UTC regardless of loc.
func ParseWallClock(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, errors.New("empty timestamp")
	}
	if loc == nil {
		loc = time.UTC
	}
	if strings.HasSuffix(s, "Z") {
		s = strings.TrimSuffix(s, "Z")
		loc = time.UTC
	}
	for _, layout := range wallClockLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, errors.Errorf("unrecognized timestamp %q", s)
}

// Palette hands out display colors in order and remembers them per
// session key so a session keeps its color across reloads.
type Palette struct {
	colors   []string
	assigned map[string]string
	next     int
}

func NewPalette(colors []string) *Palette {
	if len(colors) == 0 {
		colors = DefaultPalette
	}
	return &Palette{
		colors:   append([]string(nil), colors...),
		assigned: make(map[string]string),
	}
}

func (p *Palette) ColorFor(key string) string {
	if c, ok := p.assigned[key]; ok {
		return c
	}
	c := p.colors[p.next%len(p.colors)]
	p.next++
	if key != "" {
		p.assigned[key] = c
	}
	return c
}

// Annotate derives StartDate/EndDate/Color for every session in the payload
// and normalizes the Enrolled flag by list membership. Records that cannot
// be parsed are dropped and reported in errs; the rest are returned in
// their original order.
func Annotate(p Payload, pal *Palette) (enrolled, available []Session, errs []error) {
	if pal == nil {
		pal = NewPalette(nil)
	}
	enrolled = make([]Session, 0, len(p.Enrolled))
	available = make([]Session, 0, len(p.Available))

	for _, s := range p.Enrolled {
		s.Enrolled = true
		if err := annotateOne(&s, pal); err != nil {
			errs = append(errs, err)
			continue
		}
		enrolled = append(enrolled, s)
	}
	for _, s := range p.Available {
		s.Enrolled = false
		if err := annotateOne(&s, pal); err != nil {
			errs = append(errs, err)
			continue
		}
		available = append(available, s)
	}
	return enrolled, available, errs
}

// AnnotateSession derives the date fields of a single session. The color
// is left untouched.
func AnnotateSession(s *Session) error {
	loc, err := ResolveLocation(s.Timezone)
	if err != nil {
		return errors.Wrapf(err, "session %s", s.Key())
	}
	start, err := ParseWallClock(s.StartAt, loc)
	if err != nil {
		return errors.Wrapf(err, "session %s: start_at", s.Key())
	}
	end := start
	if strings.TrimSpace(s.EndAt) != "" {
		end, err = ParseWallClock(s.EndAt, loc)
		if err != nil {
			return errors.Wrapf(err, "session %s: end_at", s.Key())
		}
	}
	if end.Before(start) {
		return errors.Errorf("session %s: end_at %s is before start_at %s", s.Key(), s.EndAt, s.StartAt)
	}
	s.StartDate = start
	s.EndDate = end
	return nil
}

func annotateOne(s *Session, pal *Palette) error {
	if err := AnnotateSession(s); err != nil {
		return err
	}
	s.Color = pal.ColorFor(s.Key())
	return nil
}
