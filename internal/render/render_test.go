package render

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"iltcal/internal/locale"
	"iltcal/internal/model"
)

func day(y int, m time.Month, d int) model.Day { return model.Day{Year: y, Month: m, Day: d} }

func session(t *testing.T, s model.Session) model.Session {
	t.Helper()
	require.NoError(t, model.AnnotateSession(&s))
	return s
}

func TestFormatTimeRange(t *testing.T) {
	at := func(d, h int) time.Time { return time.Date(2024, time.May, d, h, 0, 0, 0, time.UTC) }

	assert.Equal(t, "09:00 - 11:00", FormatTimeRange(at(1, 9), at(1, 11), locale.New("en")))
	assert.Equal(t, "05/01 09:00 - 05/03 11:00", FormatTimeRange(at(1, 9), at(3, 11), locale.New("en")))
	assert.Equal(t, "01/05 09:00 - 03/05 11:00", FormatTimeRange(at(1, 9), at(3, 11), locale.New("fr")))
	assert.Equal(t, "09:00 - 11:00", FormatTimeRange(at(1, 9), at(1, 11), locale.New("fr")))
}

func TestExpandUpcomingSkipsPastDays(t *testing.T) {
	workshop := session(t, model.Session{ID: "w", StartAt: "2024-05-01 09:00:00", EndAt: "2024-05-03 17:00:00"})
	today := day(2024, time.May, 2)

	items := ExpandUpcoming([]model.Session{workshop}, today)
	require.Len(t, items, 2)
	assert.Equal(t, day(2024, time.May, 2), items[0].Day)
	assert.Equal(t, day(2024, time.May, 3), items[1].Day)
}

func TestExpandUpcomingBoundaries(t *testing.T) {
	past := session(t, model.Session{ID: "p", StartAt: "2024-04-28 09:00:00", EndAt: "2024-04-30 09:00:00"})
	single := session(t, model.Session{ID: "s", StartAt: "2024-05-01 09:00:00", EndAt: "2024-05-01 10:00:00"})
	// Crosses a month boundary.
	cross := session(t, model.Session{ID: "c", StartAt: "2024-05-30 09:00:00", EndAt: "2024-06-01 09:00:00"})
	later := session(t, model.Session{ID: "l", StartAt: "2024-05-01 08:00:00", EndAt: "2024-05-01 08:30:00"})

	items := ExpandUpcoming([]model.Session{past, single, cross, later}, day(2024, time.May, 1))

	var got []string
	for _, it := range items {
		got = append(got, it.Session.Key()+"@"+it.Day.String())
	}
	assert.Equal(t, []string{
		"l@2024-05-01",
		"s@2024-05-01",
		"c@2024-05-30",
		"c@2024-05-31",
		"c@2024-06-01",
	}, got)
}

func TestCarouselOptions(t *testing.T) {
	one := OptionsFor(1)
	assert.False(t, one.Loop)
	assert.False(t, one.NextEnabled)

	two := OptionsFor(2)
	assert.True(t, two.Loop)
	assert.True(t, two.NextEnabled)
	assert.True(t, two.Pagination)
}

func TestSwiperReinitializesOnEveryReplace(t *testing.T) {
	sw := NewSwiper()
	r := NewRenderer(locale.New("en"), sw, Links{})
	a := session(t, model.Session{ID: "a", StartAt: "2024-05-01 09:00:00", EndAt: "2024-05-01 10:00:00", Enrolled: true})
	b := session(t, model.Session{ID: "b", StartAt: "2024-05-01 11:00:00", EndAt: "2024-05-01 12:00:00", Enrolled: true})

	v := r.DrawDay(day(2024, time.May, 1), []model.Session{a})
	assert.False(t, v.Carousel.Loop)
	assert.Equal(t, 1, sw.State().Generation)

	v = r.DrawDay(day(2024, time.May, 1), []model.Session{a, b})
	assert.True(t, v.Carousel.Loop)
	st := sw.State()
	assert.Equal(t, 2, st.Generation)
	assert.Len(t, st.Cards, 2)
	assert.True(t, st.Options.NextEnabled)
}

func TestBuildCardEnrolled(t *testing.T) {
	hours := 2.0
	s := session(t, model.Session{
		ID: "S1", Title: " Safety ", Course: "Onboarding",
		StartAt: "2024-05-01 09:00:00", EndAt: "2024-05-01 11:00:00",
		Duration: &hours, Instructor: "Ada", Location: "https://meet.example.com/abc",
		ZipCode: "75001", City: "Paris", Enrolled: true, Color: "blue",
	})
	links := Links{ICS: func(k string) string { return "/api/sessions/" + k + "/ics" }}

	c := BuildCard(s, day(2024, time.May, 1), locale.New("en"), links)

	assert.Equal(t, "Safety", c.Title)
	assert.Equal(t, "Wed", c.DayName)
	assert.Equal(t, 1, c.DayNumber)
	assert.Equal(t, "09:00 - 11:00", c.TimeRange)
	assert.Equal(t, "2 hours", c.Duration)
	assert.Equal(t, "Instructor: Ada", c.Instructor)
	assert.Equal(t, "https://meet.example.com/abc", c.LocationURL)
	assert.Equal(t, "Paris 75001", c.ZipCity)
	assert.Equal(t, ActionAddToCalendar, c.Action.Kind)
	assert.Equal(t, "/api/sessions/S1/ics", c.Action.Href)
}

func TestBuildCardAvailableFrench(t *testing.T) {
	s := session(t, model.Session{
		ID: "S2", Title: "Secourisme", StartAt: "2024-05-01 09:00:00", EndAt: "2024-05-02 11:00:00",
		Location: "Salle 4", ZipCode: "75001", City: "Paris", Seats: 1,
	})

	c := BuildCard(s, day(2024, time.May, 2), locale.New("fr"), Links{})

	assert.Equal(t, "01/05 09:00 - 02/05 11:00", c.TimeRange)
	assert.Equal(t, "jeu.", c.DayName)
	assert.Equal(t, "Salle 4", c.Location)
	assert.Empty(t, c.LocationURL)
	assert.Equal(t, "75001 Paris", c.ZipCity)
	assert.Equal(t, ActionEnroll, c.Action.Kind)
	assert.Equal(t, "1 place disponible", c.Action.SeatsLabel)
}

func TestBuildCardMalformedDegrades(t *testing.T) {
	c := BuildCard(model.Session{ID: "x"}, day(2024, time.May, 1), locale.New("en"), Links{})
	assert.Empty(t, c.TimeRange)
	assert.Empty(t, c.Duration)
	assert.Empty(t, c.Instructor)
	assert.Empty(t, c.ZipCity)
	assert.Equal(t, "0 seats available", c.Action.SeatsLabel)
}

func TestEmptyMessages(t *testing.T) {
	r := NewRenderer(locale.New("en"), nil, Links{})
	assert.Equal(t, "No Events", r.DrawDay(day(2024, time.May, 1), nil).Empty)
	assert.Equal(t, "No sessions available", r.DrawAllEvents(nil, day(2024, time.May, 1)).Empty)
}

func TestLocationLink(t *testing.T) {
	href, ok := LocationLink("www.example.com/room")
	assert.True(t, ok)
	assert.Equal(t, "https://www.example.com/room", href)

	_, ok = LocationLink("Building A, https://x")
	assert.False(t, ok)
}
