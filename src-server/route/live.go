package route

import (
	"log/slog"
	"net/http"
	"time"

	"attendex/src-server/datatable"
	"attendex/src-server/entity"
	"attendex/src-server/schedule"

	"github.com/go-chi/chi/v5"
)

type liveContent struct {
	Event    entity.Event
	Path     string
	Totals   entity.AnalyticsTotals
	Table    datatable.View
	LastPoll time.Time
	Interval time.Duration
}

type analyticsContent struct {
	Event       entity.Event
	Path        string
	Totals      entity.AnalyticsTotals
	ByAttribute []entity.AttributeBreakdown
	ByDay       []entity.DailyBreakdown
}

func punctualityTone(p string) datatable.Tone {
	switch p {
	case "ON_TIME":
		return datatable.ToneSuccess
	case "LATE":
		return datatable.ToneWarning
	case "EARLY_DEPARTURE":
		return datatable.ToneInfo
	}
	return datatable.ToneNeutral
}

func attendanceTable(loc *time.Location) *datatable.Table[entity.AttendanceRecord] {
	at := func(t *time.Time) time.Time {
		if t == nil {
			return time.Time{}
		}
		return t.In(loc)
	}
	t := datatable.New(func(a entity.AttendanceRecord) string { return a.AttendeeID },
		datatable.Text("name", "Name", func(a entity.AttendanceRecord) string { return a.Name }).Sortable(),
		datatable.Text("identifier", "Identifier", func(a entity.AttendanceRecord) string { return a.Identifier }).Sortable(),
		datatable.Date("arrivedAt", "Arrived", "Jan 2 15:04", func(a entity.AttendanceRecord) time.Time { return at(a.ArrivedAt) }).Sortable(),
		datatable.Date("departedAt", "Departed", "Jan 2 15:04", func(a entity.AttendanceRecord) time.Time { return at(a.DepartedAt) }).Sortable(),
		datatable.Badge("punctuality", "Punctuality", func(a entity.AttendanceRecord) (string, datatable.Tone) {
			return a.Punctuality, punctualityTone(a.Punctuality)
		}).Filterable("ON_TIME", "LATE", "EARLY_DEPARTURE"),
	)
	t.EmptyMessage = "Nobody has been scanned yet."
	return t
}

func Live(r chi.Router, s *Server) {
	r.Get("/dashboard/events/{eventID}/live", s.handle(func(p *page) {
		id := chi.URLParam(p.r, "eventID")
		hooks := p.hooks()
		event, err := hooks.Events().Get(p.ctx(), id)
		if err != nil {
			if !p.expired(err) {
				p.loadFailed(err, "event")
			}
			return
		}
		if err := s.poller.Watch(p.ctx(), id, p.viewer.session.Secret); err != nil {
			slog.Error("can't register live watch", "event", id, "error", err)
		}

		content := liveContent{
			Event:    event,
			Path:     eventPath(id),
			LastPoll: s.poller.LastPoll(),
			Interval: s.poller.Interval(),
		}
		analytics := hooks.Analytics()
		if summary, err := analytics.Event(p.ctx(), id); err == nil {
			content.Totals = summary.Totals
		} else if p.expired(err) {
			return
		}

		t := attendanceTable(s.as.Config.GetLocation())
		q := p.r.URL.Query()
		state := t.StateFrom(q)
		if !q.Has("sort") {
			state.SortBy, state.SortDesc = "arrivedAt", true
		}
		res, err := analytics.Attendance(p.ctx(), id, listQuery(state))
		if err != nil && p.expired(err) {
			return
		}
		t.SetPage(res, state)
		content.Table = t.View(eventPath(id) + "/live")

		p.renderLive(max(1, int(s.poller.Interval().Seconds())), "live", event.Name+" · Live", content)
	}))

	r.Get("/dashboard/events/{eventID}/analytics", s.handle(func(p *page) {
		id := chi.URLParam(p.r, "eventID")
		hooks := p.hooks()
		event, err := hooks.Events().Get(p.ctx(), id)
		if err != nil {
			if !p.expired(err) {
				p.loadFailed(err, "event")
			}
			return
		}
		content := analyticsContent{Event: event, Path: eventPath(id)}
		summary, err := hooks.Analytics().Event(p.ctx(), id)
		if err != nil && p.expired(err) {
			return
		}
		content.Totals = summary.Totals
		content.ByAttribute = summary.ByAttribute
		if content.ByDay, err = schedule.Fill(event.StartDate, event.EndDate, summary.ByDay); err != nil {
			slog.Debug("can't expand event days", "event", id, "error", err)
			content.ByDay = summary.ByDay
		}
		p.render(http.StatusOK, "analytics", event.Name+" · Analytics", content)
	}))
}
