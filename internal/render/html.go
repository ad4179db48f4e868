package render

import (
	"embed"
	"html/template"
	"io"

	"iltcal/internal/calendar"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var pageTemplate = template.Must(template.ParseFS(templateFS, "templates/calendar.html.tmpl"))

// Page is everything the calendar page shows at once.
type Page struct {
	Lang     string
	Month    calendar.MonthView
	Day      *DayView
	Upcoming ListView
	PrevHref string
	NextHref string
}

// WritePage renders the calendar page. The root element carries
// data-ready="true" so headless captures know rendering has finished.
func WritePage(w io.Writer, p Page) error {
	return pageTemplate.ExecuteTemplate(w, "calendar.html.tmpl", p)
}
