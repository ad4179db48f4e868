package render

import (
	"regexp"
	"strings"
	"time"

	"iltcal/internal/locale"
	"iltcal/internal/model"
)

// FormatTimeRange renders "HH:mm - HH:mm" when both ends fall on the same
// calendar day, and "MM/DD HH:mm - MM/DD HH:mm" otherwise (DD/MM for
// day-first locales). Times are shown as wall clock of start's zone.
func FormatTimeRange(start, end time.Time, l *locale.Locale) string {
	end = end.In(start.Location())
	if model.DayOf(start) == model.DayOf(end) {
		return start.Format("15:04") + " - " + end.Format("15:04")
	}
	layout := "01/02 15:04"
	if l != nil && l.DayFirst() {
		layout = "02/01 15:04"
	}
	return start.Format(layout) + " - " + end.Format(layout)
}

var locationURLPattern = regexp.MustCompile(`(?i)^(https?://|www\.)\S+$`)

// LocationLink returns an href when the location looks like a URL, which
// is how virtual sessions carry their meeting link.
func LocationLink(location string) (string, bool) {
	loc := strings.TrimSpace(location)
	if !locationURLPattern.MatchString(loc) {
		return "", false
	}
	if strings.HasPrefix(strings.ToLower(loc), "www.") {
		return "https://" + loc, true
	}
	return loc, true
}

// ZipCity joins zip code and city in the locale's order. Missing parts are
// skipped.
func ZipCity(zip, city string, l *locale.Locale) string {
	zip, city = strings.TrimSpace(zip), strings.TrimSpace(city)
	parts := []string{city, zip}
	if l != nil && l.ZipFirst() {
		parts = []string{zip, city}
	}
	out := make([]string, 0, 2)
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, " ")
}
