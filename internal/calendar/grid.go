package calendar

import (
	"fmt"
	"strings"
	"time"

	"iltcal/internal/locale"
	"iltcal/internal/model"
)

// DisplayType selects whether available sessions are shown next to the
// viewer's own sessions.
type DisplayType string

const (
	DisplayAll DisplayType = "all"
	DisplayMy  DisplayType = "my"
)

// ParseDisplayType accepts "all" and "my"; anything else is an error.
func ParseDisplayType(s string) (DisplayType, error) {
	switch DisplayType(strings.ToLower(strings.TrimSpace(s))) {
	case DisplayAll:
		return DisplayAll, nil
	case DisplayMy:
		return DisplayMy, nil
	default:
		return "", fmt.Errorf("unknown display type %q", s)
	}
}

// Cell is one day square of the month grid.
type Cell struct {
	Day          model.Day `json:"day"`
	Number       int       `json:"number"`
	InMonth      bool      `json:"in_month"`
	IsToday      bool      `json:"is_today"`
	HasEvent     bool      `json:"has_event"`
	HasOpenEvent bool      `json:"has_open_event"`
	Active       bool      `json:"active"`
}

// Classes returns the CSS classes of the cell.
func (c Cell) Classes() string {
	classes := []string{"day"}
	if !c.InMonth {
		classes = append(classes, "other")
	}
	if c.IsToday {
		classes = append(classes, "today")
	}
	switch {
	case c.HasEvent:
		classes = append(classes, "has-event")
	case c.HasOpenEvent:
		classes = append(classes, "has-open-event")
	}
	if c.Active {
		classes = append(classes, "active")
	}
	return strings.Join(classes, " ")
}

// MonthView is the drawn state of one month.
type MonthView struct {
	Year        int         `json:"year"`
	Month       time.Month  `json:"month"`
	Title       string      `json:"title"`
	DayNames    []string    `json:"day_names"`
	Weeks       [][]Cell    `json:"weeks"`
	DisplayType DisplayType `json:"display_type"`
}

// Options configures a Grid.
type Options struct {
	Locale *locale.Locale
	// WeekStart overrides the locale's first weekday when set.
	WeekStart *time.Weekday
	// Location is the viewer's zone, used to decide which day is today.
	Location    *time.Location
	Now         func() time.Time
	DisplayType DisplayType
}

// Grid is the month calendar. It is not safe for concurrent use; the
// owning widget serializes access.
type Grid struct {
	current     model.Day
	displayType DisplayType
	weekStart   time.Weekday
	locale      *locale.Locale
	loc         *time.Location
	now         func() time.Time

	enrolled  []model.Session
	available []model.Session
	selected  model.Day

	view MonthView
}

func NewGrid(opts Options) *Grid {
	if opts.Locale == nil {
		opts.Locale = locale.New("en")
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.DisplayType == "" {
		opts.DisplayType = DisplayAll
	}
	weekStart := opts.Locale.FirstWeekday()
	if opts.WeekStart != nil {
		weekStart = *opts.WeekStart
	}

	g := &Grid{
		displayType: opts.DisplayType,
		weekStart:   weekStart,
		locale:      opts.Locale,
		loc:         opts.Location,
		now:         opts.Now,
	}
	g.current = g.TodayDay().FirstOfMonth()
	g.view = g.Draw()
	return g
}

// TodayDay returns today's date in the viewer's zone.
func (g *Grid) TodayDay() model.Day {
	return model.DayOf(g.now().In(g.loc))
}

// Current returns the first day of the displayed month.
func (g *Grid) Current() model.Day { return g.current }

func (g *Grid) DisplayType() DisplayType { return g.displayType }

// SetDisplayType switches between all and my sessions. The displayed
// month is kept.
func (g *Grid) SetDisplayType(t DisplayType) MonthView {
	g.displayType = t
	return g.swap(g.current)
}

// SetEvents replaces the session sets and redraws the current month.
func (g *Grid) SetEvents(enrolled, available []model.Session) MonthView {
	g.enrolled = enrolled
	g.available = available
	return g.swap(g.current)
}

// Enrolled returns the viewer's sessions.
func (g *Grid) Enrolled() []model.Session { return g.enrolled }

// Available returns the sessions open for enrollment.
func (g *Grid) Available() []model.Session { return g.available }

// AllEvents is the set day clicks filter over: enrolled sessions, plus the
// available ones when the display type is all.
func (g *Grid) AllEvents() []model.Session {
	out := make([]model.Session, 0, len(g.enrolled)+len(g.available))
	out = append(out, g.enrolled...)
	if g.displayType == DisplayAll {
		out = append(out, g.available...)
	}
	return out
}

// View returns the month currently on display.
func (g *Grid) View() MonthView { return g.view }

func (g *Grid) NextMonth() MonthView { return g.navigate(g.current.AddMonths(1)) }
func (g *Grid) PrevMonth() MonthView { return g.navigate(g.current.AddMonths(-1)) }
func (g *Grid) Today() MonthView     { return g.navigate(g.TodayDay().FirstOfMonth()) }

// SetMonth jumps to the given month. Out-of-range months roll over into
// the neighbouring year, so SetMonth(2024, 13) shows January 2025.
func (g *Grid) SetMonth(year int, month time.Month) MonthView {
	return g.navigate(model.Day{Year: year, Month: month, Day: 1}.AddMonths(0))
}

func (g *Grid) navigate(to model.Day) MonthView {
	g.selected = model.Day{}
	return g.swap(to)
}

// swap draws the target month completely before it replaces the previous
// view, so callers never observe a half-switched grid.
func (g *Grid) swap(to model.Day) MonthView {
	g.current = to
	next := g.Draw()
	g.view = next
	return next
}

// OpenDay marks d as the active cell and returns the sessions on that day.
func (g *Grid) OpenDay(d model.Day) []model.Session {
	g.selected = d
	// Greyed cells of the adjacent months are clickable too.
	g.view = g.Draw()
	return FilterEventsByDay(g.AllEvents(), d)
}

// Selected returns the active day, or the zero Day when none is open.
func (g *Grid) Selected() model.Day { return g.selected }

// Draw renders the month at the cursor. It has no side effects.
func (g *Grid) Draw() MonthView {
	first := g.current
	today := g.TodayDay()

	lead := (int(first.Weekday()) - int(g.weekStart) + 7) % 7
	total := lead + first.DaysInMonth()
	rows := (total + 6) / 7

	names := make([]string, 7)
	for i := range names {
		names[i] = g.locale.WeekdayShort(time.Weekday((int(g.weekStart) + i) % 7))
	}

	weeks := make([][]Cell, rows)
	day := first.AddDays(-lead)
	for r := 0; r < rows; r++ {
		week := make([]Cell, 7)
		for c := 0; c < 7; c++ {
			cell := Cell{
				Day:      day,
				Number:   day.Day,
				InMonth:  day.Month == first.Month && day.Year == first.Year,
				IsToday:  day == today,
				HasEvent: anyInDay(g.enrolled, day),
				Active:   !g.selected.IsZero() && day == g.selected,
			}
			if g.displayType == DisplayAll {
				cell.HasOpenEvent = anyInDay(g.available, day)
			}
			week[c] = cell
			day = day.AddDays(1)
		}
		weeks[r] = week
	}

	return MonthView{
		Year:        first.Year,
		Month:       first.Month,
		Title:       g.locale.MonthTitle(first.Month, first.Year),
		DayNames:    names,
		Weeks:       weeks,
		DisplayType: g.displayType,
	}
}
