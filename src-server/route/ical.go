package route

import (
	"bytes"
	"log/slog"
	"net/http"

	"attendex/src-server/ical"

	"github.com/go-chi/chi/v5"
)

func Ical(r chi.Router, s *Server) {
	r.Get("/dashboard/events/{eventID}/calendar.ics", s.handle(func(p *page) {
		id := chi.URLParam(p.r, "eventID")
		event, err := p.hooks().Events().Get(p.ctx(), id)
		if err != nil {
			s.exportFailed(p, id, err)
			return
		}

		var buf bytes.Buffer
		if err := ical.WriteEvent(&buf, event, s.as.Config.GetLocation(), s.now()); err != nil {
			slog.Error("can't write calendar", "event", id, "error", err)
			http.Error(p.w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		// write the ical calendar
		p.w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
		p.w.Header().Set("Content-Disposition", `attachment; filename="`+fileSlug(event.Name)+`.ics"`)
		p.w.WriteHeader(http.StatusOK)
		if _, err := buf.WriteTo(p.w); err != nil {
			slog.Warn("can't write to response", "where", "route/ical.go", "err", err)
		}
	}))
}
