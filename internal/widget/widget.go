package widget

import (
	"context"
	"errors"
	"sync"
	"time"

	"iltcal/internal/calendar"
	"iltcal/internal/ics"
	"iltcal/internal/lms"
	"iltcal/internal/locale"
	appLog "iltcal/internal/log"
	"iltcal/internal/model"
	"iltcal/internal/notify"
	"iltcal/internal/render"
)

var (
	ErrUnmounted      = errors.New("widget: not mounted")
	ErrEnrollInFlight = errors.New("widget: enrollment already in progress")
	ErrNotFound       = errors.New("widget: session not found")
	ErrNotEnrolled    = errors.New("widget: session is not enrolled")
)

// Source is the LMS side of the widget.
type Source interface {
	FetchSessions(ctx context.Context) (model.Payload, error)
	Enroll(ctx context.Context, r lms.EnrollRequest) error
}

// FeedLoader supplies sessions from published calendar feeds.
type FeedLoader interface {
	LoadFeeds(ctx context.Context) model.Payload
}

type Options struct {
	Locale   *locale.Locale
	Source   Source
	Feeds    FeedLoader
	Notifier notify.Notifier
	Carousel render.Carousel
	Links    render.Links
	Palette  *model.Palette

	Location  *time.Location
	WeekStart *time.Weekday
	Now       func() time.Time
}

// Calendar is one mounted ILT calendar: the month grid, the details panel
// of the selected day and the upcoming list, over the viewer's enrolled
// and available sessions.
type Calendar struct {
	mu sync.Mutex

	locale   *locale.Locale
	source   Source
	feeds    FeedLoader
	notifier notify.Notifier
	palette  *model.Palette
	now      func() time.Time

	grid     *calendar.Grid
	renderer *render.Renderer

	mounted    bool
	generation uint64
	inFlight   map[string]bool
	loadedAt   time.Time
}

func New(opts Options) *Calendar {
	if opts.Locale == nil {
		opts.Locale = locale.New("en")
	}
	if opts.Palette == nil {
		opts.Palette = model.NewPalette(nil)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Notifier == nil {
		opts.Notifier = discard{}
	}
	return &Calendar{
		locale:   opts.Locale,
		source:   opts.Source,
		feeds:    opts.Feeds,
		notifier: opts.Notifier,
		palette:  opts.Palette,
		now:      opts.Now,
		grid: calendar.NewGrid(calendar.Options{
			Locale:    opts.Locale,
			WeekStart: opts.WeekStart,
			Location:  opts.Location,
			Now:       opts.Now,
		}),
		renderer: render.NewRenderer(opts.Locale, opts.Carousel, opts.Links),
		inFlight: make(map[string]bool),
	}
}

type discard struct{}

func (discard) Success(string) {}
func (discard) Error(string)   {}

// Locale returns the widget's locale.
func (c *Calendar) Locale() *locale.Locale { return c.locale }

// Mount installs an initial payload and shows the current month.
func (c *Calendar) Mount(p model.Payload) calendar.MonthView {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mounted = true
	c.applyLocked(p)
	return c.grid.View()
}

// Unmount detaches the widget. Pending reloads are discarded when they
// return.
func (c *Calendar) Unmount() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mounted = false
	c.generation++
}

func (c *Calendar) Mounted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mounted
}

// LoadedAt is when session data was last applied.
func (c *Calendar) LoadedAt() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loadedAt
}

// applyLocked annotates p and replaces both session sets.
func (c *Calendar) applyLocked(p model.Payload) {
	enrolled, available, errs := model.Annotate(p, c.palette)
	for _, err := range errs {
		appLog.Warn("session skipped", "reason", err)
	}
	calendar.SortByStart(enrolled)
	calendar.SortByStart(available)
	c.grid.SetEvents(enrolled, available)
	c.loadedAt = c.now()
}

// Reload fetches both session lists and the feeds. When the fetch fails
// the previous sessions stay on display. A response that is overtaken by
// a newer Reload, or that returns after Unmount, is dropped.
func (c *Calendar) Reload(ctx context.Context) error {
	c.mu.Lock()
	if !c.mounted {
		c.mu.Unlock()
		return ErrUnmounted
	}
	c.generation++
	gen := c.generation
	c.mu.Unlock()

	p, err := c.load(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.generation || !c.mounted {
		appLog.Debug("stale reload discarded", "generation", gen)
		return nil
	}
	if err != nil {
		appLog.Error("session reload failed", err)
		c.notifier.Error(c.locale.T(locale.MsgReloadError))
		return err
	}
	c.applyLocked(p)
	return nil
}

func (c *Calendar) load(ctx context.Context) (model.Payload, error) {
	var p model.Payload
	if c.source != nil {
		fetched, err := c.source.FetchSessions(ctx)
		if err != nil {
			return p, err
		}
		p = fetched
	}
	if c.feeds != nil {
		fp := c.feeds.LoadFeeds(ctx)
		p.Enrolled = append(p.Enrolled, fp.Enrolled...)
		p.Available = append(p.Available, fp.Available...)
	}
	return p, nil
}

// Enroll enrolls the viewer in an available session. While a request for
// key is pending further calls fail with ErrEnrollInFlight. On success the
// session moves to the enrolled set, one success notification is shown
// and a full reload follows. On failure an error notification is shown
// and the error is returned.
func (c *Calendar) Enroll(ctx context.Context, key string, info lms.RequestInfo) error {
	c.mu.Lock()
	if !c.mounted {
		c.mu.Unlock()
		return ErrUnmounted
	}
	if c.inFlight[key] {
		c.mu.Unlock()
		return ErrEnrollInFlight
	}
	s, ok := c.findLocked(key)
	if !ok {
		c.mu.Unlock()
		return ErrNotFound
	}
	if s.Enrolled {
		c.mu.Unlock()
		return nil
	}
	c.inFlight[key] = true
	source := c.source
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.inFlight, key)
		c.mu.Unlock()
	}()

	var err error
	if source == nil {
		err = errors.New("widget: no session source")
	} else {
		err = source.Enroll(ctx, lms.EnrollRequest{Session: key, RequestInfo: info})
	}
	if err != nil {
		appLog.Error("enroll failed", err, "session", key)
		c.notifier.Error(c.locale.T(locale.MsgEnrollError))
		return err
	}

	c.mu.Lock()
	if !c.moveToEnrolledLocked(key) {
		appLog.Debug("enrolled session no longer listed as available", "session", key)
	}
	c.mu.Unlock()
	appLog.Info("enrolled", "session", key)
	c.notifier.Success(c.locale.T(locale.MsgEnrollSuccess, map[string]any{"Title": s.Title}))

	if err := c.Reload(ctx); err != nil && !errors.Is(err, ErrUnmounted) {
		appLog.Warn("reload after enroll failed", "session", key, "cause", err)
	}
	return nil
}

func (c *Calendar) findLocked(key string) (model.Session, bool) {
	for _, s := range c.grid.Enrolled() {
		if s.Key() == key {
			return s, true
		}
	}
	for _, s := range c.grid.Available() {
		if s.Key() == key {
			return s, true
		}
	}
	return model.Session{}, false
}

// moveToEnrolledLocked moves the available session key into the enrolled
// set. It reports false when key is not available.
func (c *Calendar) moveToEnrolledLocked(key string) bool {
	available := c.grid.Available()
	rest := make([]model.Session, 0, len(available))
	var (
		moved model.Session
		found bool
	)
	for _, s := range available {
		if !found && s.Key() == key {
			moved, found = s, true
			continue
		}
		rest = append(rest, s)
	}
	if !found {
		return false
	}
	moved.Enrolled = true
	enrolled := append(append([]model.Session(nil), c.grid.Enrolled()...), moved)
	calendar.SortByStart(enrolled)
	c.grid.SetEvents(enrolled, rest)
	return true
}

// ExportICS returns the calendar file of an enrolled session and its
// download name.
func (c *Calendar) ExportICS(key string) (body, filename string, err error) {
	c.mu.Lock()
	s, ok := c.findLocked(key)
	now := c.now()
	c.mu.Unlock()
	if !ok {
		return "", "", ErrNotFound
	}
	if !s.Enrolled {
		return "", "", ErrNotEnrolled
	}
	body, err = ics.BuildSessionCalendar(s, now)
	if err != nil {
		return "", "", err
	}
	return body, ics.Filename(s), nil
}

func (c *Calendar) Month() calendar.MonthView {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.grid.View()
}

func (c *Calendar) Next() calendar.MonthView {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.grid.NextMonth()
}

func (c *Calendar) Prev() calendar.MonthView {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.grid.PrevMonth()
}

func (c *Calendar) Today() calendar.MonthView {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.grid.Today()
}

func (c *Calendar) SetMonth(year int, month time.Month) calendar.MonthView {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.grid.SetMonth(year, month)
}

// DisplayView is what a display type switch redraws.
type DisplayView struct {
	Month    calendar.MonthView `json:"month"`
	Upcoming render.ListView    `json:"upcoming"`
}

// SetDisplayType switches between all sessions and the viewer's own. The
// month is redrawn and the upcoming list is rebuilt for the new set.
func (c *Calendar) SetDisplayType(t calendar.DisplayType) DisplayView {
	c.mu.Lock()
	defer c.mu.Unlock()
	month := c.grid.SetDisplayType(t)
	return DisplayView{
		Month:    month,
		Upcoming: c.renderer.DrawAllEvents(c.grid.AllEvents(), c.grid.TodayDay()),
	}
}

// OpenDay selects d and renders its sessions.
func (c *Calendar) OpenDay(d model.Day) render.DayView {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.renderer.DrawDay(d, c.grid.OpenDay(d))
}

// Selected returns the open day's view, or nil when no day is open.
func (c *Calendar) Selected() *render.DayView {
	c.mu.Lock()
	defer c.mu.Unlock()
	d := c.grid.Selected()
	if d.IsZero() {
		return nil
	}
	v := c.renderer.DrawDay(d, calendar.FilterEventsByDay(c.grid.AllEvents(), d))
	return &v
}

// Upcoming renders every session that has not ended before today.
func (c *Calendar) Upcoming() render.ListView {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.renderer.DrawAllEvents(c.grid.AllEvents(), c.grid.TodayDay())
}
