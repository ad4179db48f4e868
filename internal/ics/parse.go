package ics

import (
	"bytes"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/pkg/errors"

	appLog "iltcal/internal/log"
)

// FeedEvent is a VEVENT of a feed before recurrence expansion.
type FeedEvent struct {
	Feed Feed

	UID         string
	Summary     string
	Description string
	Location    string
	URL         string

	Start  time.Time
	End    time.Time
	AllDay bool

	RRule      string
	ExDates    []time.Time
	Recurrence *time.Time
}

// IsOverride reports whether the event replaces one recurring instance.
func (e FeedEvent) IsOverride() bool { return e.Recurrence != nil }

// ParseFeed parses a feed body. Events that cannot be read are logged and
// skipped.
func ParseFeed(feed Feed, body []byte) ([]FeedEvent, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, errors.Errorf("feed %s: empty body", feed.ID)
	}
	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrapf(err, "feed %s: parse", feed.ID)
	}

	out := make([]FeedEvent, 0)
	for _, ve := range cal.Events() {
		ev, err := parseVEvent(feed, ve)
		if err != nil {
			appLog.Warn("feed event skipped", "id", feed.ID, "reason", err)
			continue
		}
		out = append(out, ev)
	}
	appLog.Debug("feed parsed", "id", feed.ID, "events", len(out))
	return out, nil
}

func propValue(ve *ical.VEvent, p ical.ComponentProperty) string {
	if prop := ve.GetProperty(p); prop != nil {
		return prop.Value
	}
	return ""
}

func parseVEvent(feed Feed, ve *ical.VEvent) (FeedEvent, error) {
	ev := FeedEvent{
		Feed:        feed,
		UID:         propValue(ve, ical.ComponentPropertyUniqueId),
		Summary:     propValue(ve, ical.ComponentPropertySummary),
		Description: propValue(ve, ical.ComponentPropertyDescription),
		Location:    propValue(ve, ical.ComponentPropertyLocation),
		URL:         propValue(ve, ical.ComponentPropertyUrl),
		RRule:       propValue(ve, ical.ComponentPropertyRrule),
	}
	if ev.UID == "" {
		return ev, errors.New("missing UID")
	}

	start, err := ve.GetStartAt()
	if err != nil {
		return ev, errors.Wrapf(err, "event %s: DTSTART", ev.UID)
	}
	end, err := ve.GetEndAt()
	if err != nil {
		end = start
	}
	ev.Start, ev.End = start, end

	if dt := ve.GetProperty(ical.ComponentPropertyDtStart); dt != nil {
		if vs := dt.ICalParameters["VALUE"]; len(vs) > 0 && strings.EqualFold(vs[0], "DATE") {
			ev.AllDay = true
		}
		if !strings.Contains(dt.Value, "T") {
			ev.AllDay = true
		}
	}
	if ev.AllDay && !ev.End.After(ev.Start) {
		ev.End = ev.Start.Add(24 * time.Hour)
	}

	for _, p := range ve.GetProperties(ical.ComponentPropertyExdate) {
		for _, part := range strings.Split(p.Value, ",") {
			if t, err := parseICSTime(part, start.Location()); err == nil {
				ev.ExDates = append(ev.ExDates, t)
			}
		}
	}
	if rid := ve.GetProperty(ical.ComponentProperty("RECURRENCE-ID")); rid != nil {
		if t, err := parseICSTime(rid.Value, start.Location()); err == nil {
			ev.Recurrence = &t
		}
	}
	return ev, nil
}

// parseICSTime reads the basic DATE / DATE-TIME forms used by EXDATE and
// RECURRENCE-ID. Floating values are placed in loc.
func parseICSTime(v string, loc *time.Location) (time.Time, error) {
	v = strings.TrimSpace(v)
	switch {
	case v == "":
		return time.Time{}, errors.New("empty time value")
	case strings.HasSuffix(v, "Z"):
		return time.Parse("20060102T150405Z", v)
	case strings.Contains(v, "T"):
		return time.ParseInLocation("20060102T150405", v, loc)
	default:
		return time.ParseInLocation("20060102", v, loc)
	}
}
