package route

import (
	"net/http"
	"net/url"
	"time"

	"attendex/src-server/datatable"
	"attendex/src-server/entity"
	"attendex/src-server/form"

	"github.com/go-chi/chi/v5"
)

const dateLayout = "Jan 2, 2006"

func eventPath(id string) string {
	return "/dashboard/events/" + url.PathEscape(id)
}

func eventTone(status entity.EventStatus) datatable.Tone {
	switch status {
	case entity.EventStatusActive:
		return datatable.ToneSuccess
	case entity.EventStatusDraft:
		return datatable.ToneInfo
	case entity.EventStatusCancelled:
		return datatable.ToneDanger
	}
	return datatable.ToneNeutral
}

func Events(r chi.Router, s *Server) {
	const base = "/dashboard"
	events := &crud[entity.Event, entity.EventRequest]{
		title:      "Events",
		idParam:    "eventID",
		singular:   "event",
		listPath:   func(*http.Request) string { return base },
		actionPath: func(*http.Request) string { return base + "/events" },
		hook: func(p *page) crudHook[entity.Event, entity.EventRequest] {
			return p.hooks().Events()
		},
		dialog: func(p *page, action string, existing *entity.Event) (*form.Dialog[entity.EventRequest], error) {
			return form.EventDialog(s.as.Dates, action, existing), nil
		},
	}
	events.table = func(p *page) *datatable.Table[entity.Event] {
		t := datatable.New(func(e entity.Event) string { return e.ID },
			datatable.Select[entity.Event](),
			datatable.Text("name", "Name", func(e entity.Event) string { return e.Name }).Sortable(),
			datatable.Date("startDate", "Starts", dateLayout, func(e entity.Event) time.Time { return e.StartDate.Time }).Sortable(),
			datatable.Date("endDate", "Ends", dateLayout, func(e entity.Event) time.Time { return e.EndDate.Time }).Sortable(),
			datatable.Text("location", "Location", func(e entity.Event) string { return e.Location }),
			datatable.Badge("status", "Status", func(e entity.Event) (string, datatable.Tone) {
				return string(e.Status), eventTone(e.Status)
			}).Sortable().Filterable(
				string(entity.EventStatusDraft),
				string(entity.EventStatusActive),
				string(entity.EventStatusCompleted),
				string(entity.EventStatusCancelled),
			),
			datatable.Actions(func(e entity.Event) []datatable.Action {
				return append([]datatable.Action{
					{Label: "Open", Href: eventPath(e.ID), Method: http.MethodGet},
					{Label: "Live", Href: eventPath(e.ID) + "/live", Method: http.MethodGet},
				}, events.rowActions(p.r, e.ID)...)
			}),
		)
		t.EmptyMessage = "No events yet."
		t.Bulk = events.bulkActions(p.r)
		return t
	}
	events.mount(r, s, base, base+"/events")
}
