package route

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"

	"attendex/src-server/datatable"
	"attendex/src-server/entity"
	"attendex/src-server/form"
	"attendex/src-server/notify"
	"attendex/src-server/resource"
	"attendex/src-server/roster"
	"attendex/src-server/schedule"

	"github.com/go-chi/chi/v5"
)

type eventContent struct {
	Event      entity.Event
	Days       int
	Path       string
	ImportPath string
}

func Attendees(r chi.Router, s *Server) {
	eventID := func(r *http.Request) string { return chi.URLParam(r, "eventID") }
	attendees := &crud[entity.Attendee, entity.AttendeeRequest]{
		title:      "Roster",
		singular:   "attendee",
		template:   "event",
		listPath:   func(r *http.Request) string { return eventPath(eventID(r)) },
		actionPath: func(r *http.Request) string { return eventPath(eventID(r)) + "/attendees" },
		hook: func(p *page) crudHook[entity.Attendee, entity.AttendeeRequest] {
			return p.hooks().Attendees(eventID(p.r))
		},
		dialog: func(p *page, action string, existing *entity.Attendee) (*form.Dialog[entity.AttendeeRequest], error) {
			attrs, err := p.hooks().Attributes().All(p.ctx(), resource.ListQuery{})
			if err != nil {
				return nil, err
			}
			return form.AttendeeDialog(action, attrs, existing), nil
		},
		extra: func(p *page) (any, error) {
			event, err := p.hooks().Events().Get(p.ctx(), eventID(p.r))
			if err != nil {
				return nil, err
			}
			content := eventContent{Event: event, Path: eventPath(event.ID), ImportPath: eventPath(event.ID) + "/import"}
			if days, err := schedule.Days(event.StartDate, event.EndDate); err == nil {
				content.Days = len(days)
			}
			return content, nil
		},
	}
	attendees.table = func(p *page) *datatable.Table[entity.Attendee] {
		columns := []datatable.Column[entity.Attendee]{
			datatable.Select[entity.Attendee](),
			datatable.Text("identifier", "Identifier", func(a entity.Attendee) string { return a.Identifier }).Sortable(),
			datatable.Text("firstName", "First name", func(a entity.Attendee) string { return a.FirstName }).Sortable(),
			datatable.Text("lastName", "Last name", func(a entity.Attendee) string { return a.LastName }).Sortable(),
			datatable.Text("email", "Email", func(a entity.Attendee) string { return a.Email }),
		}
		// a failed attribute lookup only costs the extra columns
		attrs, _ := p.hooks().Attributes().All(p.ctx(), resource.ListQuery{})
		for _, attr := range attrs {
			name := attr.Name
			col := datatable.Text(name, name, func(a entity.Attendee) string { return a.Attributes[name] })
			if attr.Type == entity.AttributeTypeSelect {
				col = col.Filterable(attr.Options...)
			}
			columns = append(columns, col)
		}
		columns = append(columns, datatable.Actions(func(a entity.Attendee) []datatable.Action {
			return attendees.rowActions(p.r, a.ID)
		}))
		t := datatable.New(func(a entity.Attendee) string { return a.ID }, columns...)
		t.EmptyMessage = "No attendees yet. Add one or import a roster."
		t.Bulk = attendees.bulkActions(p.r)
		return t
	}
	attendees.mount(r, s, "/dashboard/events/{eventID}", "/dashboard/events/{eventID}/attendees")

	r.Post("/dashboard/events/{eventID}/import", s.handle(func(p *page) {
		id := eventID(p.r)
		defer p.redirect(eventPath(id))

		p.r.Body = http.MaxBytesReader(p.w, p.r.Body, roster.MaxUploadBytes)
		file, header, err := p.r.FormFile("file")
		if err != nil {
			p.notify(notify.Error("Choose a roster file of at most 10 MB"))
			return
		}
		defer file.Close()

		name := filepath.Base(header.Filename)
		var body io.Reader = file
		switch {
		case roster.IsSpreadsheet(name):
			csv, err := roster.ToCSV(file)
			if err != nil {
				slog.Debug("can't convert roster", "file", name, "error", err)
				p.notify(notify.Error("Could not read the spreadsheet"))
				return
			}
			name, body = roster.CSVName(name), bytes.NewReader(csv)
		case strings.EqualFold(filepath.Ext(name), ".csv"):
		default:
			p.notify(notify.Error("Upload a .csv or .xlsx file"))
			return
		}

		if _, err := p.hooks().Attendees(id).Import(p.ctx(), name, body); err != nil {
			slog.Debug("roster import failed", "event", id, "error", err)
		}
	}))

	r.Get("/dashboard/events/{eventID}/roster.xlsx", s.handle(func(p *page) {
		id := eventID(p.r)
		hooks := p.hooks()
		export := roster.Export{Location: s.as.Config.GetLocation()}
		var err error
		if export.Event, err = hooks.Events().Get(p.ctx(), id); err != nil {
			s.exportFailed(p, id, err)
			return
		}
		if export.Attributes, err = hooks.Attributes().All(p.ctx(), resource.ListQuery{}); err != nil {
			s.exportFailed(p, id, err)
			return
		}
		if export.Attendees, err = hooks.Attendees(id).All(p.ctx(), resource.ListQuery{Sort: "lastName"}); err != nil {
			s.exportFailed(p, id, err)
			return
		}
		if export.Attendance, err = allAttendance(p, id); err != nil {
			s.exportFailed(p, id, err)
			return
		}

		var buf bytes.Buffer
		if err := export.WriteXLSX(&buf); err != nil {
			slog.Error("can't write roster workbook", "event", id, "error", err)
			http.Error(p.w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		p.w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		p.w.Header().Set("Content-Disposition", `attachment; filename="`+fileSlug(export.Event.Name)+`-roster.xlsx"`)
		if _, err := buf.WriteTo(p.w); err != nil {
			slog.Warn("can't write to response", "error", err)
		}
	}))
}

// allAttendance walks every attendance page of an event.
func allAttendance(p *page, eventID string) ([]entity.AttendanceRecord, error) {
	analytics := p.hooks().Analytics()
	var out []entity.AttendanceRecord
	q := resource.ListQuery{Size: 100, Sort: "name"}
	for {
		res, err := analytics.Attendance(p.ctx(), eventID, q)
		if err != nil {
			return nil, err
		}
		out = append(out, res.Content...)
		if len(res.Content) == 0 || q.Page+1 >= datatable.PageCount(res.TotalElements, q.Size) {
			return out, nil
		}
		q.Page++
	}
}

func (s *Server) exportFailed(p *page, eventID string, err error) {
	if p.expired(err) {
		return
	}
	p.redirect(eventPath(eventID))
}

// fileSlug keeps a download name to letters, digits and dashes.
func fileSlug(name string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
	}
	out := strings.TrimSuffix(b.String(), "-")
	if out == "" {
		return "event"
	}
	return out
}
