// Package view renders the server-side HTML pages.
package view

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"strings"

	"attendex/src-server/datatable"
	"attendex/src-server/form"
	"attendex/src-server/notify"
)

//go:embed templates/*.html
var templatesFS embed.FS

//go:embed static
var staticFS embed.FS

// Static serves the embedded stylesheet and script.
func Static() http.Handler {
	sub, _ := fs.Sub(staticFS, "static")
	return http.FileServer(http.FS(sub))
}

type NavItem struct {
	Label  string
	Href   string
	Active bool
}

type Viewer struct {
	Name      string
	Steward   bool
	Organizer bool
}

// Page is what every template receives.
type Page struct {
	Title   string
	Viewer  *Viewer
	Nav     []NavItem
	Toasts  []notify.Toast
	Refresh int // seconds; zero disables the meta refresh
	Content any
}

// List is the content of a plain table page.
type List struct {
	Heading  string
	NewLabel string
	NewHref  string
	Table    datatable.View
	Dialog   *form.DialogView
	Extra    any
}

var funcs = template.FuncMap{
	"percent": func(part, whole int64) string {
		if whole == 0 {
			return "0%"
		}
		return fmt.Sprintf("%.0f%%", float64(part)*100/float64(whole))
	},
}

var pages = []string{
	"list.html",
	"login.html",
	"change_password.html",
	"event.html",
	"live.html",
	"analytics.html",
	"orphans.html",
	"organization.html",
	"credentials.html",
	"error.html",
}

type Views struct {
	templates map[string]*template.Template
}

func New() (*Views, error) {
	v := &Views{templates: make(map[string]*template.Template, len(pages))}
	for _, page := range pages {
		t, err := template.New(page).Funcs(funcs).ParseFS(templatesFS,
			"templates/layout.html",
			"templates/partials.html",
			"templates/"+page,
		)
		if err != nil {
			return nil, fmt.Errorf("view.New: %s: %w", page, err)
		}
		v.templates[strings.TrimSuffix(page, ".html")] = t
	}
	return v, nil
}

// Render writes the named page with status. The page is rendered to a
// buffer first so a template error never leaves half a page.
func (v *Views) Render(w http.ResponseWriter, status int, name string, page Page) {
	t, ok := v.templates[name]
	if !ok {
		slog.Error("unknown template", "template", name)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", page); err != nil {
		slog.Error("can't render template", "template", name, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if _, err := buf.WriteTo(w); err != nil {
		slog.Debug("can't write response", "error", err)
	}
}
