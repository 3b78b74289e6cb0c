package view_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"attendex/src-server/datatable"
	"attendex/src-server/entity"
	"attendex/src-server/form"
	"attendex/src-server/notify"
	"attendex/src-server/view"
)

func TestRenderList(t *testing.T) {
	views, err := view.New()
	if err != nil {
		t.Fatal(err)
	}

	table := datatable.New(func(e entity.Event) string { return e.ID },
		datatable.Select[entity.Event](),
		datatable.Text("name", "Name", func(e entity.Event) string { return e.Name }).Sortable(),
	)
	table.SetPage(entity.Page[entity.Event]{
		Content:       []entity.Event{{ID: "e1", Name: "Fish & Chips night"}},
		TotalElements: 1,
	}, datatable.State{PageSize: 50, SortBy: "name", SortDesc: true})

	d := form.LoginDialog("/login")
	d.Values = form.Values{"username": "<ada>"}
	dialog := d.View()

	rec := httptest.NewRecorder()
	views.Render(rec, http.StatusUnprocessableEntity, "list", view.Page{
		Title:  "Events",
		Viewer: &view.Viewer{Name: "ada", Organizer: true},
		Nav:    []view.NavItem{{Label: "Events", Href: "/dashboard", Active: true}},
		Toasts: []notify.Toast{notify.Success("Event created")},
		Content: view.List{
			Heading: "Events",
			Table:   table.View("/dashboard"),
			Dialog:  &dialog,
		},
	})

	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("content type = %q", ct)
	}
	body := rec.Body.String()
	for _, want := range []string{
		"<title>Events · AttendEx</title>",
		"Fish &amp; Chips night",
		`value="e1" form="bulk"`,
		"Event created",
		`class="active"`,
		`value="&lt;ada&gt;"`,
		"Page 1 of 1",
		`<input type="hidden" name="sort" value="name">`,
		`<input type="hidden" name="dir" value="desc">`,
		`<input type="hidden" name="size" value="50">`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("missing %q", want)
		}
	}
}

func TestRenderUnknownTemplate(t *testing.T) {
	views, err := view.New()
	if err != nil {
		t.Fatal(err)
	}
	rec := httptest.NewRecorder()
	views.Render(rec, http.StatusOK, "nope", view.Page{})
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}

func TestStatic(t *testing.T) {
	rec := httptest.NewRecorder()
	view.Static().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/app.css", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), ".toast") {
		t.Errorf("status = %d", rec.Code)
	}
}
