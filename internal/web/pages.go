package web

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	appLog "iltcal/internal/log"
	"iltcal/internal/model"
	"iltcal/internal/widget"
)

const pageCookie = "iltcal_page"

// NewCalendarFunc builds the widget of a new page session.
type NewCalendarFunc func(pageID string) *widget.Calendar

type pageEntry struct {
	cal      *widget.Calendar
	lastSeen time.Time
}

// pages keeps one mounted calendar per browser page session.
type pages struct {
	mu      sync.Mutex
	entries map[string]*pageEntry
	newCal  NewCalendarFunc
	now     func() time.Time
	onOpen  func(pageID string)
	onDrop  func(pageID string)
}

func newPages(newCal NewCalendarFunc, onOpen, onDrop func(string)) *pages {
	return &pages{
		entries: make(map[string]*pageEntry),
		newCal:  newCal,
		now:     time.Now,
		onOpen:  onOpen,
		onDrop:  onDrop,
	}
}

// get returns the calendar for pageID, creating and loading one when the
// id is unknown. created reports whether a new page was started.
func (p *pages) get(ctx context.Context, pageID string) (cal *widget.Calendar, created bool) {
	p.mu.Lock()
	e, ok := p.entries[pageID]
	if ok {
		e.lastSeen = p.now()
		p.mu.Unlock()
		return e.cal, false
	}
	if p.onOpen != nil {
		p.onOpen(pageID)
	}
	cal = p.newCal(pageID)
	cal.Mount(model.Payload{})
	p.entries[pageID] = &pageEntry{cal: cal, lastSeen: p.now()}
	p.mu.Unlock()

	if err := cal.Reload(ctx); err != nil {
		// The page still renders with the empty-state messages.
		appLog.Warn("initial load failed", "page", pageID, "cause", err)
	}
	appLog.Debug("page mounted", "page", pageID)
	return cal, true
}

// lookup returns an existing page without creating one.
func (p *pages) lookup(pageID string) (*widget.Calendar, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	e, ok := p.entries[pageID]
	if !ok {
		return nil, false
	}
	e.lastSeen = p.now()
	return e.cal, true
}

// all returns every mounted calendar.
func (p *pages) all() []*widget.Calendar {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]*widget.Calendar, 0, len(p.entries))
	for _, e := range p.entries {
		out = append(out, e.cal)
	}
	return out
}

func (p *pages) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.entries)
}

// sweep unmounts pages idle for longer than idle and returns how many
// were removed.
func (p *pages) sweep(idle time.Duration) int {
	cutoff := p.now().Add(-idle)
	p.mu.Lock()
	var dropped []string
	for id, e := range p.entries {
		if e.lastSeen.Before(cutoff) {
			e.cal.Unmount()
			delete(p.entries, id)
			if p.onDrop != nil {
				p.onDrop(id)
			}
			dropped = append(dropped, id)
		}
	}
	p.mu.Unlock()

	for _, id := range dropped {
		appLog.Debug("page unmounted", "page", id)
	}
	return len(dropped)
}

// pageID reads the page cookie, issuing a new id when it is missing.
func pageID(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(pageCookie); err == nil {
		if _, err := uuid.Parse(c.Value); err == nil {
			return c.Value
		}
	}
	id := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     pageCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return id
}
