package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"iltcal/internal/calendar"
	"iltcal/internal/config"
	"iltcal/internal/lms"
	"iltcal/internal/locale"
	appLog "iltcal/internal/log"
	"iltcal/internal/model"
	"iltcal/internal/notify"
	"iltcal/internal/render"
	"iltcal/internal/widget"
)

// Options wires a Server.
type Options struct {
	Config      *config.Config
	Hub         *notify.Hub
	NewCalendar NewCalendarFunc
	Debug       bool
}

// Server serves the calendar page, its JSON API and the notification
// socket. Every browser page gets its own mounted calendar, keyed by a
// cookie.
type Server struct {
	cfg   *config.Config
	debug bool
	mux   *http.ServeMux
	hub   *notify.Hub
	pages *pages
}

// NewServer constructs a new Server.
func NewServer(opts Options) *Server {
	if opts.Config == nil {
		opts.Config = config.DefaultConfig()
	}
	if opts.Hub == nil {
		opts.Hub = notify.NewHub()
	}
	s := &Server{
		cfg:   opts.Config,
		debug: opts.Debug,
		mux:   http.NewServeMux(),
		hub:   opts.Hub,
	}
	newCal := opts.NewCalendar
	if newCal == nil {
		newCal = func(pageID string) *widget.Calendar {
			return widget.New(widget.Options{Notifier: s.hub.For(pageID), Links: Links})
		}
	}
	s.pages = newPages(newCal, s.hub.Open, s.hub.Drop)
	s.registerRoutes()
	return s
}

// Links points card actions at this server's session routes.
var Links = render.Links{
	ICS:    func(key string) string { return "/api/sessions/" + url.PathEscape(key) + "/ics" },
	Enroll: func(key string) string { return "/api/sessions/" + url.PathEscape(key) + "/enroll" },
}

// Handler returns the underlying http.Handler for this server.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		return s.basicAuthMiddleware(h)
	}
	return h
}

// ReloadAll refreshes every mounted page calendar.
func (s *Server) ReloadAll(ctx context.Context) {
	cals := s.pages.all()
	for _, cal := range cals {
		if err := cal.Reload(ctx); err != nil && !errors.Is(err, widget.ErrUnmounted) {
			appLog.Warn("scheduled reload failed", "cause", err)
		}
	}
	appLog.Debug("scheduled reload done", "pages", len(cals))
}

// Sweep unmounts pages idle for longer than the configured limit.
func (s *Server) Sweep() int {
	n := s.pages.sweep(time.Duration(s.cfg.PageIdleMinutes) * time.Minute)
	if n > 0 {
		appLog.Info("idle pages unmounted", "count", n, "remaining", s.pages.count())
	}
	return n
}

// StartServer serves on listen until ctx is cancelled, then shuts down
// gracefully.
func StartServer(ctx context.Context, s *Server, listen string) error {
	srv := &http.Server{
		Addr:              listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+listen, "debug", s.debug)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		appLog.Info("shutting down HTTP server")
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/calendar", http.StatusFound)
	})
	s.mux.HandleFunc("GET /calendar", s.handleCalendar)
	s.mux.HandleFunc("GET /api/month", s.handleMonth)
	s.mux.HandleFunc("GET /api/day", s.handleDay)
	s.mux.HandleFunc("GET /api/upcoming", s.handleUpcoming)
	s.mux.HandleFunc("POST /api/display-type", s.handleDisplayType)
	s.mux.HandleFunc("POST /api/reload", s.handleReload)
	s.mux.HandleFunc("GET /api/sessions/{key}/ics", s.handleICS)
	s.mux.HandleFunc("POST /api/sessions/{key}/enroll", s.handleEnroll)
	s.mux.HandleFunc("GET /api/notifications", s.handleNotifications)
	s.mux.HandleFunc("GET /ws", s.handleWS)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func (s *Server) calendarFor(w http.ResponseWriter, r *http.Request) *widget.Calendar {
	cal, _ := s.pages.get(r.Context(), pageID(w, r))
	return cal
}

// navigate applies the nav and month query parameters.
func navigate(cal *widget.Calendar, q url.Values) (calendar.MonthView, error) {
	if m := q.Get("month"); m != "" {
		t, err := time.Parse("2006-01", m)
		if err != nil {
			return calendar.MonthView{}, errors.New("month must be YYYY-MM")
		}
		cal.SetMonth(t.Year(), t.Month())
	}
	switch q.Get("nav") {
	case "":
		return cal.Month(), nil
	case "next":
		return cal.Next(), nil
	case "prev":
		return cal.Prev(), nil
	case "today":
		return cal.Today(), nil
	default:
		return calendar.MonthView{}, errors.New("nav must be next, prev or today")
	}
}

// handleCalendar renders the HTML page.
//
// GET /calendar?month=2024-05&date=2024-05-10
//   - month: month to show
//   - date:  day whose details are opened; also selects its month
func (s *Server) handleCalendar(w http.ResponseWriter, r *http.Request) {
	cal := s.calendarFor(w, r)
	q := r.URL.Query()

	if _, err := navigate(cal, q); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if ds := q.Get("date"); ds != "" {
		d, err := model.ParseDay(ds)
		if err != nil {
			writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
			return
		}
		cal.SetMonth(d.Year, d.Month)
		cal.OpenDay(d)
	}

	month := cal.Month()
	first := model.Day{Year: month.Year, Month: month.Month, Day: 1}
	page := render.Page{
		Lang:     cal.Locale().Tag(),
		Month:    month,
		Day:      cal.Selected(),
		Upcoming: cal.Upcoming(),
		PrevHref: "?month=" + monthParam(first.AddMonths(-1)),
		NextHref: "?month=" + monthParam(first.AddMonths(1)),
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := render.WritePage(w, page); err != nil {
		appLog.Error("failed to render calendar page", err)
	}
}

func monthParam(d model.Day) string {
	return d.Time(time.UTC).Format("2006-01")
}

func (s *Server) handleMonth(w http.ResponseWriter, r *http.Request) {
	cal := s.calendarFor(w, r)
	view, err := navigate(cal, r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleDay(w http.ResponseWriter, r *http.Request) {
	cal := s.calendarFor(w, r)
	d, err := model.ParseDay(r.URL.Query().Get("date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}
	writeJSON(w, http.StatusOK, cal.OpenDay(d))
}

func (s *Server) handleUpcoming(w http.ResponseWriter, r *http.Request) {
	cal := s.calendarFor(w, r)
	writeJSON(w, http.StatusOK, cal.Upcoming())
}

type displayTypeRequest struct {
	DisplayType string `json:"display_type"`
}

func (s *Server) handleDisplayType(w http.ResponseWriter, r *http.Request) {
	cal := s.calendarFor(w, r)

	var req displayTypeRequest
	if isJSON(r) {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
	} else {
		req.DisplayType = r.FormValue("display_type")
	}
	t, err := calendar.ParseDisplayType(req.DisplayType)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, cal.SetDisplayType(t))
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	id := pageID(w, r)
	cal, created := s.pages.get(r.Context(), id)
	if !created {
		if err := cal.Reload(r.Context()); err != nil {
			writeError(w, http.StatusBadGateway, cal.Locale().T(locale.MsgReloadError))
			return
		}
	}
	writeJSON(w, http.StatusOK, cal.Month())
}

func (s *Server) handleICS(w http.ResponseWriter, r *http.Request) {
	cal := s.calendarFor(w, r)
	body, filename, err := cal.ExportICS(r.PathValue("key"))
	switch {
	case errors.Is(err, widget.ErrNotFound):
		writeError(w, http.StatusNotFound, "session not found")
		return
	case errors.Is(err, widget.ErrNotEnrolled):
		writeError(w, http.StatusConflict, "session is not enrolled")
		return
	case err != nil:
		appLog.Error("ics export failed", err, "session", r.PathValue("key"))
		writeError(w, http.StatusInternalServerError, "failed to build calendar file")
		return
	}
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(body))
}

// handleEnroll accepts the enrollment dialog as JSON (API clients) or as
// a form post (the HTML page, which is redirected back afterwards).
func (s *Server) handleEnroll(w http.ResponseWriter, r *http.Request) {
	cal := s.calendarFor(w, r)
	key := r.PathValue("key")
	form := !isJSON(r)

	var info lms.RequestInfo
	if form {
		info = lms.RequestInfo{
			Accommodation:  r.FormValue("accommodation"),
			Comment:        r.FormValue("comment"),
			NumberOfOneWay: r.FormValue("number_of_one_way"),
			NumberOfReturn: r.FormValue("number_of_return"),
		}
	} else if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&info); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
	}

	req := lms.EnrollRequest{Session: key, RequestInfo: info}
	if err := req.Validate(); err != nil {
		if fields := lms.FieldErrors(err); fields != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid enrollment request", Fields: fields})
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	err := cal.Enroll(r.Context(), req.Session, req.RequestInfo)
	if form && err == nil {
		http.Redirect(w, r, "/calendar", http.StatusSeeOther)
		return
	}
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]bool{"enrolled": true})
	case errors.Is(err, widget.ErrNotFound):
		writeError(w, http.StatusNotFound, "session not found")
	case errors.Is(err, widget.ErrEnrollInFlight):
		writeError(w, http.StatusConflict, "enrollment already in progress")
	default:
		writeError(w, http.StatusBadGateway, cal.Locale().T(locale.MsgEnrollError))
	}
}

func (s *Server) handleNotifications(w http.ResponseWriter, r *http.Request) {
	id := pageID(w, r)
	writeJSON(w, http.StatusOK, s.hub.Recent(id))
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	c, err := r.Cookie(pageCookie)
	if err != nil {
		writeError(w, http.StatusBadRequest, "page cookie required")
		return
	}
	if _, ok := s.pages.lookup(c.Value); !ok {
		writeError(w, http.StatusNotFound, "unknown page")
		return
	}
	s.hub.ServeWS(w, r, c.Value)
}

func isJSON(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "application/json")
}

type errorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
