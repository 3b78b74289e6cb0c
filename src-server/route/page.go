package route

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"attendex/src-server/apiclient"
	"attendex/src-server/jwt"
	"attendex/src-server/notify"
	"attendex/src-server/resource"
	"attendex/src-server/view"
)

// page is one request being served. Toasts raised by hooks are collected
// and either rendered or carried over a redirect as a flash.
type page struct {
	s      *Server
	w      http.ResponseWriter
	r      *http.Request
	viewer *viewer
	toasts *notify.Collector
}

func (s *Server) page(w http.ResponseWriter, r *http.Request) *page {
	p := &page{s: s, w: w, r: r, viewer: viewerFrom(r.Context()), toasts: &notify.Collector{}}
	for _, t := range notify.ReadFlash(w, r, s.as.Config.GetSecureCookies()) {
		p.toasts.Notify(t)
	}
	return p
}

// handle adapts a page handler to net/http.
func (s *Server) handle(fn func(p *page)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		fn(s.page(w, r))
	}
}

func (p *page) ctx() context.Context {
	return p.r.Context()
}

func (p *page) hooks() *resource.Hooks {
	return resource.Bind(p.s.as.API, p.s.as.Cache, resource.Session{
		Scope: p.viewer.session.UserID,
		Token: p.viewer.session.Token,
	}, p.toasts)
}

func (p *page) notify(t notify.Toast) {
	p.toasts.Notify(t)
}

func (p *page) render(status int, name, title string, content any) {
	p.s.views.Render(p.w, status, name, view.Page{
		Title:   title,
		Viewer:  p.viewerView(),
		Nav:     p.nav(),
		Toasts:  p.toasts.Toasts(),
		Content: content,
	})
}

func (p *page) renderError(status int, heading, message string) {
	p.render(status, "error", heading, errorContent{Heading: heading, Message: message})
}

// loadFailed renders the error page for a load that failed for a reason
// other than an expired token.
func (p *page) loadFailed(err error, what string) {
	if apiclient.IsNotFound(err) {
		p.renderError(http.StatusNotFound, "Not found", "This "+what+" is not available.")
		return
	}
	p.renderError(http.StatusBadGateway, "Something went wrong", "This "+what+" could not be loaded.")
}

// renderLive is render with a meta refresh every refresh seconds.
func (p *page) renderLive(refresh int, name, title string, content any) {
	p.s.views.Render(p.w, http.StatusOK, name, view.Page{
		Title:   title,
		Viewer:  p.viewerView(),
		Nav:     p.nav(),
		Toasts:  p.toasts.Toasts(),
		Refresh: refresh,
		Content: content,
	})
}

// redirect ends a form post: pending toasts travel as a flash cookie.
func (p *page) redirect(location string) {
	notify.WriteFlash(p.w, p.toasts.Toasts(), p.s.as.Config.GetSecureCookies())
	http.Redirect(p.w, p.r, location, http.StatusSeeOther)
}

// expired reports whether err is the API rejecting the token. When it is,
// the session is already gone and the browser is sent to the login page.
func (p *page) expired(err error) bool {
	if !errors.Is(err, apiclient.ErrUnauthorized) {
		return false
	}
	p.s.clearSessionCookie(p.w)
	http.Redirect(p.w, p.r, p.s.as.Policy.LoginURL(true), http.StatusSeeOther)
	return true
}

func (p *page) viewerView() *view.Viewer {
	if p.viewer == nil || p.viewer.payload.ForcePasswordChange {
		return nil
	}
	return &view.Viewer{
		Name:      p.viewer.payload.Subject,
		Steward:   p.viewer.payload.IsSteward(),
		Organizer: p.viewer.payload.HasRole(jwt.RoleOrganizer),
	}
}

var (
	organizerNav = []view.NavItem{
		{Label: "Events", Href: "/dashboard"},
		{Label: "Attributes", Href: "/dashboard/attributes"},
		{Label: "Organizers", Href: "/dashboard/organizers"},
		{Label: "Scanners", Href: "/dashboard/scanners"},
	}
	stewardNav = []view.NavItem{
		{Label: "Organizations", Href: "/admin"},
		{Label: "Stewards", Href: "/admin/stewards"},
	}
)

// nav lists the sections of the viewer's roles; the longest prefix of the
// current path is active.
func (p *page) nav() []view.NavItem {
	v := p.viewerView()
	if v == nil {
		return nil
	}
	var items []view.NavItem
	if v.Steward {
		items = append(items, stewardNav...)
	}
	if v.Organizer {
		items = append(items, organizerNav...)
	}
	active := -1
	for i, item := range items {
		path := p.r.URL.Path
		if path == item.Href || strings.HasPrefix(path, item.Href+"/") {
			if active < 0 || len(item.Href) > len(items[active].Href) {
				active = i
			}
		}
	}
	if active >= 0 {
		items[active].Active = true
	}
	return items
}
