package notify

import (
	"encoding/json"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	appLog "iltcal/internal/log"
)

type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

// keep is how many notifications each page retains for polling.
const keep = 20

// Notification is one toast shown to a page.
type Notification struct {
	ID      string    `json:"id"`
	Level   Level     `json:"level"`
	Message string    `json:"message"`
	Time    time.Time `json:"time"`
}

// Notifier shows user-facing notifications.
type Notifier interface {
	Success(message string)
	Error(message string)
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

func newClient(conn *websocket.Conn) *client {
	c := &client{
		conn: conn,
		send: make(chan []byte, 16),
	}
	go c.writePump()
	return c
}

func (c *client) writePump() {
	defer c.conn.Close()
	for msg := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
}

type page struct {
	clients map[*client]bool
	recent  []Notification
}

// Hub fans notifications out to the websocket clients of each page and
// keeps the latest ones for clients that poll.
type Hub struct {
	mu       sync.RWMutex
	pages    map[string]*page
	upgrader websocket.Upgrader
	now      func() time.Time
}

func NewHub() *Hub {
	return &Hub{
		pages: make(map[string]*page),
		upgrader: websocket.Upgrader{
			CheckOrigin: sameOrigin,
		},
		now: time.Now,
	}
}

// Open registers a page. Notifications and websocket clients for pages
// that are not open are discarded.
func (h *Hub) Open(pageID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.pages[pageID]; !ok {
		h.pages[pageID] = &page{clients: make(map[*client]bool)}
	}
}

// Has reports whether pageID is open.
func (h *Hub) Has(pageID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.pages[pageID]
	return ok
}

// For returns the Notifier of one page.
func (h *Hub) For(pageID string) Notifier {
	return pageNotifier{hub: h, pageID: pageID}
}

type pageNotifier struct {
	hub    *Hub
	pageID string
}

func (n pageNotifier) Success(message string) { n.hub.Publish(n.pageID, LevelSuccess, message) }
func (n pageNotifier) Error(message string)   { n.hub.Publish(n.pageID, LevelError, message) }

// Publish records a notification for an open page and pushes it to every
// connected client. Slow clients are disconnected.
func (h *Hub) Publish(pageID string, level Level, message string) Notification {
	n := Notification{
		ID:      uuid.NewString(),
		Level:   level,
		Message: message,
		Time:    h.now().UTC(),
	}
	data, err := json.Marshal(n)
	if err != nil {
		appLog.Error("notification marshal failed", err, "page", pageID)
		return n
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	p, ok := h.pages[pageID]
	if !ok {
		appLog.Debug("notification for closed page discarded", "page", pageID)
		return n
	}
	p.recent = append(p.recent, n)
	if len(p.recent) > keep {
		p.recent = append([]Notification(nil), p.recent[len(p.recent)-keep:]...)
	}
	// Sends never block, so they happen under the lock and cannot race a
	// concurrent close.
	for c := range p.clients {
		select {
		case c.send <- data:
		default:
			appLog.Warn("ws client too slow, disconnecting", "page", pageID)
			delete(p.clients, c)
			close(c.send)
		}
	}
	return n
}

// Recent returns the retained notifications of a page, oldest first.
func (h *Hub) Recent(pageID string) []Notification {
	h.mu.RLock()
	defer h.mu.RUnlock()
	p, ok := h.pages[pageID]
	if !ok {
		return []Notification{}
	}
	return append([]Notification(nil), p.recent...)
}

// Drop disconnects the page's clients and forgets its notifications.
func (h *Hub) Drop(pageID string) {
	h.mu.Lock()
	p, ok := h.pages[pageID]
	delete(h.pages, pageID)
	h.mu.Unlock()
	if !ok {
		return
	}
	for c := range p.clients {
		close(c.send)
	}
}

// ClientCount reports the websocket clients connected for a page.
func (h *Hub) ClientCount(pageID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if p, ok := h.pages[pageID]; ok {
		return len(p.clients)
	}
	return 0
}

// ServeWS upgrades the request and attaches the connection to pageID
// until the peer goes away. Unknown pages get a 404; a page dropped
// during the upgrade gets its connection closed.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, pageID string) {
	if !h.Has(pageID) {
		http.Error(w, "unknown page", http.StatusNotFound)
		return
	}
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		appLog.Error("ws upgrade failed", err, "remote", r.RemoteAddr)
		return
	}

	h.mu.Lock()
	p, ok := h.pages[pageID]
	if !ok {
		h.mu.Unlock()
		appLog.Debug("ws page closed during upgrade", "page", pageID)
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "page closed"))
		_ = conn.Close()
		return
	}
	c := newClient(conn)
	p.clients[c] = true
	h.mu.Unlock()
	appLog.Debug("ws client connected", "page", pageID, "remote", r.RemoteAddr)

	go func() {
		defer func() {
			h.removeClient(pageID, c)
			appLog.Debug("ws client disconnected", "page", pageID)
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (h *Hub) removeClient(pageID string, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	p, ok := h.pages[pageID]
	if !ok {
		return
	}
	if _, ok := p.clients[c]; ok {
		delete(p.clients, c)
		close(c.send)
	}
}

// sameOrigin accepts requests without an Origin header and those whose
// Origin host matches the request host.
func sameOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return u.Host == r.Host
}
