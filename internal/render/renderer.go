package render

import (
	"iltcal/internal/locale"
	"iltcal/internal/model"
)

// DayView is what a day click shows: the compact popover and the rich
// carousel of the same sessions.
type DayView struct {
	Day      model.Day       `json:"day"`
	Popover  []CompactCard   `json:"popover"`
	Cards    []Card          `json:"cards"`
	Carousel CarouselOptions `json:"carousel"`
	// Empty holds the "no events" message when nothing is scheduled.
	Empty string `json:"empty,omitempty"`
}

// ListView is the upcoming sessions carousel.
type ListView struct {
	Cards    []Card          `json:"cards"`
	Carousel CarouselOptions `json:"carousel"`
	Empty    string          `json:"empty,omitempty"`
}

// Renderer builds cards and pushes them into the carousel.
type Renderer struct {
	locale   *locale.Locale
	carousel Carousel
	links    Links
}

func NewRenderer(l *locale.Locale, c Carousel, links Links) *Renderer {
	if l == nil {
		l = locale.New("en")
	}
	if c == nil {
		c = NewSwiper()
	}
	return &Renderer{locale: l, carousel: c, links: links}
}

func (r *Renderer) Locale() *locale.Locale { return r.locale }

// DrawDay renders the sessions of one selected day.
func (r *Renderer) DrawDay(d model.Day, sessions []model.Session) DayView {
	v := DayView{
		Day:     d,
		Popover: make([]CompactCard, 0, len(sessions)),
		Cards:   make([]Card, 0, len(sessions)),
	}
	for _, s := range sessions {
		v.Popover = append(v.Popover, BuildCompactCard(s))
		v.Cards = append(v.Cards, BuildCard(s, d, r.locale, r.links))
	}
	if len(sessions) == 0 {
		v.Empty = r.locale.T(locale.MsgNoEvents)
	}
	v.Carousel = r.mount(v.Cards)
	return v
}

// DrawAllEvents renders the upcoming list: one card per remaining day of
// every session that has not ended before today.
func (r *Renderer) DrawAllEvents(sessions []model.Session, today model.Day) ListView {
	items := ExpandUpcoming(sessions, today)
	v := ListView{Cards: make([]Card, 0, len(items))}
	for _, it := range items {
		v.Cards = append(v.Cards, BuildCard(it.Session, it.Day, r.locale, r.links))
	}
	if len(v.Cards) == 0 {
		v.Empty = r.locale.T(locale.MsgNoSessions)
	}
	v.Carousel = r.mount(v.Cards)
	return v
}

func (r *Renderer) mount(cards []Card) CarouselOptions {
	opts := OptionsFor(len(cards))
	r.carousel.SetItems(cards, opts)
	return opts
}
