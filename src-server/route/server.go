// Package route serves the pages of the web tier.
package route

import (
	"net/http"
	"time"

	"attendex/src-server/scheduler"
	"attendex/src-server/utils"
	"attendex/src-server/view"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Server struct {
	as     *utils.AppState
	poller *scheduler.LivePoller
	views  *view.Views
	now    func() time.Time
}

func NewServer(as *utils.AppState, poller *scheduler.LivePoller, views *view.Views) *Server {
	return &Server{as: as, poller: poller, views: views, now: time.Now}
}

// WithClock replaces the clock used for access decisions and sessions.
func (s *Server) WithClock(now func() time.Time) *Server {
	s.now = now
	return s
}

func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(requestLog)
	r.Use(chimw.Recoverer)

	r.Handle("/static/*", http.StripPrefix("/static", view.Static()))
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(s.loadSession)
		r.Use(s.enforceAccess)

		// access rules redirect "/" for anyone signed in
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, s.as.Policy.LoginURL(false), http.StatusSeeOther)
		})
		Auth(r, s)
		Events(r, s)
		Ical(r, s)
		Attendees(r, s)
		Live(r, s)
		Orphans(r, s)
		Accounts(r, s)
		Admin(r, s)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		s.renderError(w, r, http.StatusNotFound, "Not found", "This page does not exist.")
	})
	return r
}

// renderError is for code that runs before a page exists, such as
// middleware. Handlers use (*page).renderError so collected toasts survive.
func (s *Server) renderError(w http.ResponseWriter, r *http.Request, status int, heading, message string) {
	s.page(w, r).renderError(status, heading, message)
}

type errorContent struct {
	Heading string
	Message string
}
