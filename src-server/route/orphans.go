package route

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"attendex/src-server/datatable"
	"attendex/src-server/entity"
	"attendex/src-server/form"
	"attendex/src-server/notify"
	"attendex/src-server/resource"

	"github.com/go-chi/chi/v5"
)

type orphansContent struct {
	Event  entity.Event
	Path   string
	Table  datatable.View
	Dialog *form.DialogView
}

func orphansPath(eventID string) string {
	return eventPath(eventID) + "/orphans"
}

func Orphans(r chi.Router, s *Server) {
	const pattern = "/dashboard/events/{eventID}/orphans"

	table := func(p *page, base string) *datatable.Table[entity.OrphanedEntry] {
		loc := s.as.Config.GetLocation()
		t := datatable.New(func(o entity.OrphanedEntry) string { return o.ID },
			datatable.Select[entity.OrphanedEntry](),
			datatable.Text("identifier", "Scanned identifier", func(o entity.OrphanedEntry) string { return o.Identifier }).Sortable(),
			datatable.Date("scannedAt", "Scanned at", "Jan 2 15:04:05", func(o entity.OrphanedEntry) time.Time { return o.ScannedAt.In(loc) }).Sortable(),
			datatable.Badge("direction", "Direction", func(o entity.OrphanedEntry) (string, datatable.Tone) {
				if o.Direction == entity.DirectionDeparture {
					return string(o.Direction), datatable.ToneInfo
				}
				return string(o.Direction), datatable.ToneNeutral
			}).Filterable(string(entity.DirectionArrival), string(entity.DirectionDeparture)),
			datatable.Text("reason", "Reason", func(o entity.OrphanedEntry) string { return o.Reason }),
			datatable.Actions(func(o entity.OrphanedEntry) []datatable.Action {
				return []datatable.Action{
					{Label: "Recover", Href: base + "?" + url.Values{"recover": {o.ID}}.Encode(), Method: http.MethodGet},
					{Label: "Delete", Href: base + "/" + url.PathEscape(o.ID) + "/delete", Method: http.MethodPost,
						Confirm: "Delete this entry?", Danger: true},
				}
			}),
		)
		t.EmptyMessage = "No orphaned scans."
		t.Bulk = []datatable.BulkAction{
			{Label: "Recover selected", Action: base + "/bulk-recover"},
			{Label: "Delete selected", Action: base + "/bulk-delete", Confirm: "Delete the selected entries?", Danger: true},
		}
		return t
	}

	render := func(p *page, status int, dialog *form.DialogView) {
		id := chi.URLParam(p.r, "eventID")
		hooks := p.hooks()
		event, err := hooks.Events().Get(p.ctx(), id)
		if err != nil {
			if !p.expired(err) {
				p.loadFailed(err, "event")
			}
			return
		}
		base := orphansPath(id)
		t := table(p, base)
		q := p.r.URL.Query()
		state := t.StateFrom(q)
		res, err := hooks.Orphans(id).List(p.ctx(), listQuery(state))
		if err != nil && p.expired(err) {
			return
		}
		t.SetPage(res, state)
		if err == nil && status == http.StatusOK && dialog == nil && pastLastPage(p, t, base) {
			return
		}
		if q.Get("select") == "all" {
			t.SelectAll()
		}
		p.render(status, "orphans", event.Name+" · Orphaned scans", orphansContent{
			Event:  event,
			Path:   eventPath(id),
			Table:  t.View(base),
			Dialog: dialog,
		})
	}

	recoverDialog := func(p *page, orphan entity.OrphanedEntry) *form.Dialog[string] {
		base := orphansPath(chi.URLParam(p.r, "eventID"))
		return form.RecoverDialog(base+"/"+url.PathEscape(orphan.ID)+"/recover", orphan)
	}

	r.Get(pattern, s.handle(func(p *page) {
		var dialog *form.DialogView
		if id := p.r.URL.Query().Get("recover"); id != "" {
			orphan, err := p.hooks().Orphans(chi.URLParam(p.r, "eventID")).Get(p.ctx(), id)
			if err != nil && p.expired(err) {
				return
			}
			if err == nil {
				d := recoverDialog(p, orphan)
				d.Open = true
				v := d.View()
				v.Cancel = orphansPath(chi.URLParam(p.r, "eventID"))
				dialog = &v
			}
		}
		render(p, http.StatusOK, dialog)
	}))

	r.Post(pattern+"/{id}/recover", s.handle(func(p *page) {
		eventID, id := chi.URLParam(p.r, "eventID"), chi.URLParam(p.r, "id")
		orphans := p.hooks().Orphans(eventID)
		orphan, err := orphans.Get(p.ctx(), id)
		if err != nil {
			if !p.expired(err) {
				p.redirect(orphansPath(eventID))
			}
			return
		}
		d := recoverDialog(p, orphan)
		values, err := form.ValuesFromRequest(p.r, d.Fields)
		if err != nil {
			http.Error(p.w, "Bad Request", http.StatusBadRequest)
			return
		}
		submitted, err := d.Submit(p.ctx(), values, func(ctx context.Context, identifier string) error {
			return orphans.Recover(ctx, id, identifier)
		})
		if !submitted {
			v := d.View()
			v.Cancel = orphansPath(eventID)
			render(p, http.StatusUnprocessableEntity, &v)
			return
		}
		if err != nil {
			if p.expired(err) {
				return
			}
			slog.Debug("recover failed", "entry", id, "error", err)
		}
		p.redirect(orphansPath(eventID))
	}))

	r.Post(pattern+"/{id}/delete", s.handle(func(p *page) {
		eventID := chi.URLParam(p.r, "eventID")
		if err := p.hooks().Orphans(eventID).Delete(p.ctx(), chi.URLParam(p.r, "id")); err != nil && p.expired(err) {
			return
		}
		p.redirect(orphansPath(eventID))
	}))

	bulk := func(run func(o *resource.Orphans, ctx context.Context, ids []string) resource.BulkResult) http.HandlerFunc {
		return s.handle(func(p *page) {
			eventID := chi.URLParam(p.r, "eventID")
			ids := selectedIDs(p.r)
			if len(ids) == 0 {
				p.notify(notify.Info("Nothing selected"))
				p.redirect(orphansPath(eventID))
				return
			}
			if bulkExpired(p, run(p.hooks().Orphans(eventID), p.ctx(), ids)) {
				return
			}
			p.redirect(orphansPath(eventID))
		})
	}
	r.Post(pattern+"/bulk-recover", bulk((*resource.Orphans).BulkRecover))
	r.Post(pattern+"/bulk-delete", bulk(func(o *resource.Orphans, ctx context.Context, ids []string) resource.BulkResult {
		return o.BulkDelete(ctx, ids)
	}))
}
