package render

import (
	"strings"

	"iltcal/internal/locale"
	"iltcal/internal/model"
)

type ActionKind string

const (
	ActionAddToCalendar ActionKind = "add_to_calendar"
	ActionEnroll        ActionKind = "enroll"
)

// Action is the trailing button of a card.
type Action struct {
	Kind  ActionKind `json:"kind"`
	Label string     `json:"label"`
	Href  string     `json:"href"`
	// Seats and SeatsLabel are only set for enroll actions.
	Seats      int    `json:"seats,omitempty"`
	SeatsLabel string `json:"seats_label,omitempty"`
}

// Card is the rich carousel card of one session on one day. Empty strings
// mean the corresponding line is hidden.
type Card struct {
	Key         string    `json:"key"`
	Day         model.Day `json:"day"`
	DayName     string    `json:"day_name"`
	DayNumber   int       `json:"day_number"`
	Title       string    `json:"title"`
	Course      string    `json:"course"`
	TimeRange   string    `json:"time_range"`
	Duration    string    `json:"duration"`
	Instructor  string    `json:"instructor"`
	Location    string    `json:"location"`
	LocationURL string    `json:"location_url"`
	Address     string    `json:"address"`
	ZipCity     string    `json:"zip_city"`
	AreaRegion  string    `json:"area_region"`
	Color       string    `json:"color"`
	URL         string    `json:"url"`
	Enrolled    bool      `json:"enrolled"`
	Action      Action    `json:"action"`
}

// CompactCard is the title-and-swatch entry of the day popover.
type CompactCard struct {
	Key   string `json:"key"`
	Title string `json:"title"`
	Color string `json:"color"`
}

// Links builds the hrefs of card actions.
type Links struct {
	ICS    func(key string) string
	Enroll func(key string) string
}

func (l Links) ics(key string) string {
	if l.ICS == nil {
		return ""
	}
	return l.ICS(key)
}

func (l Links) enroll(key string) string {
	if l.Enroll == nil {
		return ""
	}
	return l.Enroll(key)
}

// BuildCard derives the card of session s shown on day d. It never fails;
// absent optional fields leave their line empty.
func BuildCard(s model.Session, d model.Day, l *locale.Locale, links Links) Card {
	c := Card{
		Key:        s.Key(),
		Day:        d,
		DayName:    l.WeekdayShort(d.Weekday()),
		DayNumber:  d.Day,
		Title:      strings.TrimSpace(s.Title),
		Course:     strings.TrimSpace(s.Course),
		Address:    strings.TrimSpace(s.Address),
		ZipCity:    ZipCity(string(s.ZipCode), s.City, l),
		AreaRegion: strings.TrimSpace(s.AreaRegion),
		Color:      s.Color,
		URL:        s.URL,
		Enrolled:   s.Enrolled,
	}
	if !s.StartDate.IsZero() {
		c.TimeRange = FormatTimeRange(s.StartDate, s.EndDate, l)
	}
	if s.Duration != nil && *s.Duration > 0 {
		c.Duration = l.Duration(*s.Duration)
	}
	if name := strings.TrimSpace(s.Instructor); name != "" {
		c.Instructor = l.T(locale.MsgInstructor, map[string]any{"Name": name})
	}
	if loc := strings.TrimSpace(s.Location); loc != "" {
		c.Location = loc
		if href, ok := LocationLink(loc); ok {
			c.LocationURL = href
		}
	}

	if s.Enrolled {
		c.Action = Action{
			Kind:  ActionAddToCalendar,
			Label: l.T(locale.MsgAddToCalendar),
			Href:  links.ics(c.Key),
		}
	} else {
		c.Action = Action{
			Kind:       ActionEnroll,
			Label:      l.T(locale.MsgEnroll),
			Href:       links.enroll(c.Key),
			Seats:      s.Seats,
			SeatsLabel: l.Seats(s.Seats),
		}
	}
	return c
}

func BuildCompactCard(s model.Session) CompactCard {
	return CompactCard{Key: s.Key(), Title: strings.TrimSpace(s.Title), Color: s.Color}
}
