package render

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"iltcal/internal/calendar"
	"iltcal/internal/locale"
	"iltcal/internal/model"
)

func TestWritePage(t *testing.T) {
	l := locale.New("en")
	g := calendar.NewGrid(calendar.Options{
		Locale:   l,
		Location: time.UTC,
		Now:      func() time.Time { return time.Date(2024, time.May, 2, 8, 0, 0, 0, time.UTC) },
	})
	mine := session(t, model.Session{ID: "a", Title: "Forklift", StartAt: "2024-05-02 09:00:00", EndAt: "2024-05-02 10:00:00", Enrolled: true, Location: "https://meet.example.com/x"})
	open := session(t, model.Session{ID: "b", Title: "Ladders", StartAt: "2024-05-03 09:00:00", EndAt: "2024-05-03 10:00:00", Seats: 2})
	g.SetEvents([]model.Session{mine}, []model.Session{open})

	r := NewRenderer(l, nil, Links{
		ICS:    func(k string) string { return "/api/sessions/" + k + "/ics" },
		Enroll: func(k string) string { return "/api/sessions/" + k + "/enroll" },
	})
	d := model.Day{Year: 2024, Month: time.May, Day: 2}
	dayView := r.DrawDay(d, g.OpenDay(d))

	var buf bytes.Buffer
	require.NoError(t, WritePage(&buf, Page{
		Lang:     l.Tag(),
		Month:    g.View(),
		Day:      &dayView,
		Upcoming: r.DrawAllEvents(g.AllEvents(), d),
		PrevHref: "?nav=prev",
		NextHref: "?nav=next",
	}))
	html := buf.String()

	assert.Contains(t, html, `data-ready="true"`)
	assert.Contains(t, html, "May 2024")
	assert.Contains(t, html, `class="day today has-event active"`)
	assert.Contains(t, html, `class="day has-open-event"`)
	assert.Contains(t, html, `href="/api/sessions/a/ics"`)
	assert.Contains(t, html, `action="/api/sessions/b/enroll"`)
	assert.Contains(t, html, "2 seats available")
	assert.Contains(t, html, `<a href="https://meet.example.com/x"`)
	assert.Contains(t, html, `class="course hidden"`)
	assert.Equal(t, 1, strings.Count(html, `<div class="details"`))
}
