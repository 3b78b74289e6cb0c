package route

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"

	"attendex/src-server/datatable"
	"attendex/src-server/entity"
	"attendex/src-server/form"
	"attendex/src-server/notify"
	"attendex/src-server/resource"
	"attendex/src-server/view"

	"github.com/go-chi/chi/v5"
)

// crudHook is the part of a resource hook a table page drives.
type crudHook[T, In any] interface {
	List(context.Context, resource.ListQuery) (entity.Page[T], error)
	Get(context.Context, string) (T, error)
	Create(context.Context, In) (T, error)
	Update(context.Context, string, In) (T, error)
	Delete(context.Context, string) error
	BulkDelete(context.Context, []string) resource.BulkResult
}

// crud serves a table page with create, edit and delete dialogs:
//
//	GET  list            table; ?new=1 and ?edit=<id> open a dialog
//	POST action          create
//	POST action/{id}     update
//	POST action/{id}/delete
//	POST action/bulk-delete
//
// Invalid submissions re-render the page with the dialog open and never
// reach the API.
type crud[T, In any] struct {
	title    string
	singular string
	template string

	listPath   func(r *http.Request) string
	actionPath func(r *http.Request) string

	hook   func(p *page) crudHook[T, In]
	table  func(p *page) *datatable.Table[T]
	dialog func(p *page, action string, existing *T) (*form.Dialog[In], error)
	// extra feeds view.List.Extra, e.g. the event a roster belongs to
	extra func(p *page) (any, error)

	// idParam names the row id route parameter; "id" when empty. Routes
	// sharing a path segment must share the name.
	idParam string
}

func (c *crud[T, In]) param() string {
	if c.idParam == "" {
		return "id"
	}
	return c.idParam
}

func (c *crud[T, In]) rowID(r *http.Request) string {
	return chi.URLParam(r, c.param())
}

func (c *crud[T, In]) mount(r chi.Router, s *Server, listPattern, actionPattern string) {
	r.Get(listPattern, s.handle(c.list))
	r.Post(actionPattern, s.handle(c.create))
	r.Post(actionPattern+"/bulk-delete", s.handle(c.bulkDelete))
	r.Post(actionPattern+"/{"+c.param()+"}", s.handle(c.update))
	r.Post(actionPattern+"/{"+c.param()+"}/delete", s.handle(c.remove))
}

func (c *crud[T, In]) editLink(r *http.Request, id string) string {
	return c.listPath(r) + "?" + url.Values{"edit": {id}}.Encode()
}

func (c *crud[T, In]) deleteLink(r *http.Request, id string) string {
	return c.actionPath(r) + "/" + url.PathEscape(id) + "/delete"
}

// rowActions are the edit and delete buttons of one row.
func (c *crud[T, In]) rowActions(r *http.Request, id string) []datatable.Action {
	return []datatable.Action{
		{Label: "Edit", Href: c.editLink(r, id), Method: http.MethodGet},
		{Label: "Delete", Href: c.deleteLink(r, id), Method: http.MethodPost,
			Confirm: "Delete this " + c.singular + "?", Danger: true},
	}
}

func (c *crud[T, In]) bulkActions(r *http.Request) []datatable.BulkAction {
	return []datatable.BulkAction{{
		Label:   "Delete selected",
		Action:  c.actionPath(r) + "/bulk-delete",
		Confirm: "Delete the selected rows?",
		Danger:  true,
	}}
}

func listQuery(s datatable.State) resource.ListQuery {
	return resource.ListQuery{
		Page:    s.PageIndex,
		Size:    s.PageSize,
		Sort:    s.SortBy,
		Desc:    s.SortDesc,
		Search:  s.Query,
		Filters: s.Filters,
	}
}

func (c *crud[T, In]) list(p *page) {
	q := p.r.URL.Query()
	var dialog *form.DialogView
	switch {
	case q.Has("new"):
		d, err := c.dialog(p, c.actionPath(p.r), nil)
		if err != nil {
			if p.expired(err) {
				return
			}
			break
		}
		d.Open = true
		dialog = c.dialogView(p, d.View())
	case q.Get("edit") != "":
		id := q.Get("edit")
		item, err := c.hook(p).Get(p.ctx(), id)
		if err != nil {
			if p.expired(err) {
				return
			}
			break
		}
		d, err := c.dialog(p, c.actionPath(p.r)+"/"+url.PathEscape(id), &item)
		if err != nil {
			if p.expired(err) {
				return
			}
			break
		}
		d.Open = true
		dialog = c.dialogView(p, d.View())
	}
	c.render(p, http.StatusOK, dialog)
}

// pastLastPage sends the browser one page back when a page past the first
// comes back empty, as it does after deleting the last rows of the last page.
func pastLastPage[T any](p *page, t *datatable.Table[T], path string) bool {
	if len(t.Rows) > 0 || t.State.PageIndex == 0 {
		return false
	}
	p.redirect(t.PrevPage().Link(path))
	return true
}

func (c *crud[T, In]) dialogView(p *page, v form.DialogView) *form.DialogView {
	v.Cancel = c.listPath(p.r)
	return &v
}

func (c *crud[T, In]) render(p *page, status int, dialog *form.DialogView) {
	t := c.table(p)
	q := p.r.URL.Query()
	state := t.StateFrom(q)
	res, err := c.hook(p).List(p.ctx(), listQuery(state))
	if err != nil && p.expired(err) {
		return
	}
	t.SetPage(res, state)
	if err == nil && status == http.StatusOK && dialog == nil && pastLastPage(p, t, c.listPath(p.r)) {
		return
	}
	if q.Get("select") == "all" {
		t.SelectAll()
	}

	content := view.List{
		Heading:  c.title,
		NewLabel: "New " + c.singular,
		NewHref:  c.listPath(p.r) + "?new=1",
		Table:    t.View(c.listPath(p.r)),
		Dialog:   dialog,
	}
	if c.extra != nil {
		extra, err := c.extra(p)
		if err != nil {
			if p.expired(err) {
				return
			}
			p.loadFailed(err, c.singular+" list")
			return
		}
		content.Extra = extra
	}
	template := c.template
	if template == "" {
		template = "list"
	}
	p.render(status, template, c.title, content)
}

func (c *crud[T, In]) create(p *page) {
	d, err := c.dialog(p, c.actionPath(p.r), nil)
	if err != nil {
		if !p.expired(err) {
			p.redirect(c.listPath(p.r))
		}
		return
	}
	c.submit(p, d, func(ctx context.Context, in In) error {
		_, err := c.hook(p).Create(ctx, in)
		return err
	})
}

func (c *crud[T, In]) update(p *page) {
	id := c.rowID(p.r)
	hook := c.hook(p)
	existing, err := hook.Get(p.ctx(), id)
	if err != nil {
		if !p.expired(err) {
			p.redirect(c.listPath(p.r))
		}
		return
	}
	d, err := c.dialog(p, c.actionPath(p.r)+"/"+url.PathEscape(id), &existing)
	if err != nil {
		if !p.expired(err) {
			p.redirect(c.listPath(p.r))
		}
		return
	}
	c.submit(p, d, func(ctx context.Context, in In) error {
		_, err := hook.Update(ctx, id, in)
		return err
	})
}

func (c *crud[T, In]) submit(p *page, d *form.Dialog[In], save func(context.Context, In) error) {
	values, err := form.ValuesFromRequest(p.r, d.Fields)
	if err != nil {
		http.Error(p.w, "Bad Request", http.StatusBadRequest)
		return
	}
	submitted, saveErr := d.Submit(p.ctx(), values, save)
	if !submitted {
		c.render(p, http.StatusUnprocessableEntity, c.dialogView(p, d.View()))
		return
	}
	if saveErr != nil {
		if p.expired(saveErr) {
			return
		}
		slog.Debug("save failed", "what", c.singular, "error", saveErr)
	}
	p.redirect(c.listPath(p.r))
}

func (c *crud[T, In]) remove(p *page) {
	if err := c.hook(p).Delete(p.ctx(), c.rowID(p.r)); err != nil && p.expired(err) {
		return
	}
	p.redirect(c.listPath(p.r))
}

func (c *crud[T, In]) bulkDelete(p *page) {
	ids := selectedIDs(p.r)
	if len(ids) == 0 {
		p.notify(notify.Info("Nothing selected"))
		p.redirect(c.listPath(p.r))
		return
	}
	res := c.hook(p).BulkDelete(p.ctx(), ids)
	if bulkExpired(p, res) {
		return
	}
	p.redirect(c.listPath(p.r))
}

// selectedIDs reads the row checkboxes of a bulk form.
func selectedIDs(r *http.Request) []string {
	if err := r.ParseForm(); err != nil {
		return nil
	}
	var out []string
	seen := map[string]bool{}
	for _, id := range r.PostForm["id"] {
		if id != "" && !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

func bulkExpired(p *page, res resource.BulkResult) bool {
	for _, err := range res.Failed {
		if p.expired(err) {
			return true
		}
	}
	return false
}
