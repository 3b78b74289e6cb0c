package route

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"attendex/src-server/datatable"
	"attendex/src-server/entity"
	"attendex/src-server/form"
	"attendex/src-server/resource"

	"github.com/go-chi/chi/v5"
)

func enabledBadge(enabled bool) (string, datatable.Tone) {
	if enabled {
		return "ENABLED", datatable.ToneSuccess
	}
	return "DISABLED", datatable.ToneNeutral
}

func fixedPath(path string) func(*http.Request) string {
	return func(*http.Request) string { return path }
}

type credentialsContent struct {
	Username string
	Password string
	Back     string
}

func Accounts(r chi.Router, s *Server) {
	attributes := &crud[entity.Attribute, entity.AttributeRequest]{
		title:      "Attributes",
		singular:   "attribute",
		listPath:   fixedPath("/dashboard/attributes"),
		actionPath: fixedPath("/dashboard/attributes"),
		hook: func(p *page) crudHook[entity.Attribute, entity.AttributeRequest] {
			return p.hooks().Attributes()
		},
		dialog: func(p *page, action string, existing *entity.Attribute) (*form.Dialog[entity.AttributeRequest], error) {
			return form.AttributeDialog(action, existing), nil
		},
	}
	attributes.table = func(p *page) *datatable.Table[entity.Attribute] {
		t := datatable.New(func(a entity.Attribute) string { return a.ID },
			datatable.Select[entity.Attribute](),
			datatable.Text("name", "Name", func(a entity.Attribute) string { return a.Name }).Sortable(),
			datatable.Badge("type", "Type", func(a entity.Attribute) (string, datatable.Tone) {
				return string(a.Type), datatable.ToneNeutral
			}).Filterable(
				string(entity.AttributeTypeText),
				string(entity.AttributeTypeNumber),
				string(entity.AttributeTypeBoolean),
				string(entity.AttributeTypeSelect),
			),
			datatable.Text("required", "Required", func(a entity.Attribute) string {
				if a.Required {
					return "Yes"
				}
				return "No"
			}),
			datatable.Text("options", "Options", func(a entity.Attribute) string { return strings.Join(a.Options, ", ") }),
			datatable.Actions(func(a entity.Attribute) []datatable.Action {
				return attributes.rowActions(p.r, a.ID)
			}),
		)
		t.EmptyMessage = "No attributes defined."
		t.Bulk = attributes.bulkActions(p.r)
		return t
	}
	attributes.mount(r, s, "/dashboard/attributes", "/dashboard/attributes")

	organizers := &crud[entity.Organizer, entity.OrganizerRequest]{
		title:      "Organizers",
		singular:   "organizer",
		listPath:   fixedPath("/dashboard/organizers"),
		actionPath: fixedPath("/dashboard/organizers"),
		hook: func(p *page) crudHook[entity.Organizer, entity.OrganizerRequest] {
			return p.hooks().Organizers()
		},
		dialog: func(p *page, action string, existing *entity.Organizer) (*form.Dialog[entity.OrganizerRequest], error) {
			return form.OrganizerDialog(action, existing), nil
		},
	}
	organizers.table = func(p *page) *datatable.Table[entity.Organizer] {
		t := datatable.New(func(o entity.Organizer) string { return o.ID },
			datatable.Select[entity.Organizer](),
			datatable.Text("username", "Username", func(o entity.Organizer) string { return o.Username }).Sortable(),
			datatable.Text("firstName", "First name", func(o entity.Organizer) string { return o.FirstName }).Sortable(),
			datatable.Text("lastName", "Last name", func(o entity.Organizer) string { return o.LastName }).Sortable(),
			datatable.Text("email", "Email", func(o entity.Organizer) string { return o.Email }),
			datatable.Badge("enabled", "Status", func(o entity.Organizer) (string, datatable.Tone) { return enabledBadge(o.Enabled) }),
			datatable.Actions(func(o entity.Organizer) []datatable.Action {
				return organizers.rowActions(p.r, o.ID)
			}),
		)
		t.EmptyMessage = "No organizers yet."
		t.Bulk = organizers.bulkActions(p.r)
		return t
	}
	organizers.mount(r, s, "/dashboard/organizers", "/dashboard/organizers")

	scanners := &crud[entity.Scanner, entity.ScannerRequest]{
		title:      "Scanners",
		singular:   "scanner",
		listPath:   fixedPath("/dashboard/scanners"),
		actionPath: fixedPath("/dashboard/scanners"),
		hook: func(p *page) crudHook[entity.Scanner, entity.ScannerRequest] {
			return p.hooks().Scanners()
		},
		dialog: func(p *page, action string, existing *entity.Scanner) (*form.Dialog[entity.ScannerRequest], error) {
			events, err := p.hooks().Events().All(p.ctx(), resource.ListQuery{Sort: "startDate", Desc: true})
			if err != nil {
				return nil, err
			}
			return form.ScannerDialog(action, events, existing), nil
		},
	}
	scanners.table = func(p *page) *datatable.Table[entity.Scanner] {
		loc := s.as.Config.GetLocation()
		t := datatable.New(func(sc entity.Scanner) string { return sc.ID },
			datatable.Select[entity.Scanner](),
			datatable.Text("name", "Name", func(sc entity.Scanner) string { return sc.Name }).Sortable(),
			datatable.Text("username", "Username", func(sc entity.Scanner) string { return sc.Username }).Sortable(),
			datatable.Badge("enabled", "Status", func(sc entity.Scanner) (string, datatable.Tone) { return enabledBadge(sc.Enabled) }),
			datatable.Date("lastSeenAt", "Last seen", "Jan 2 15:04", func(sc entity.Scanner) time.Time {
				if sc.LastSeenAt == nil {
					return time.Time{}
				}
				return sc.LastSeenAt.In(loc)
			}).Sortable(),
			datatable.Actions(func(sc entity.Scanner) []datatable.Action {
				return append([]datatable.Action{{
					Label:   "Reset credentials",
					Href:    "/dashboard/scanners/" + url.PathEscape(sc.ID) + "/reset-credentials",
					Method:  http.MethodPost,
					Confirm: "Issue a new password for this scanner?",
				}}, scanners.rowActions(p.r, sc.ID)...)
			}),
		)
		t.EmptyMessage = "No scanners yet."
		t.Bulk = scanners.bulkActions(p.r)
		return t
	}
	scanners.mount(r, s, "/dashboard/scanners", "/dashboard/scanners")

	r.Post("/dashboard/scanners/{id}/reset-credentials", s.handle(func(p *page) {
		creds, err := p.hooks().Scanners().ResetCredentials(p.ctx(), chi.URLParam(p.r, "id"))
		if err != nil {
			if !p.expired(err) {
				p.redirect("/dashboard/scanners")
			}
			return
		}
		// the password is shown once and must not end up in a cookie or cache
		p.w.Header().Set("Cache-Control", "no-store")
		p.render(http.StatusOK, "credentials", "Scanner credentials", credentialsContent{
			Username: creds.Username,
			Password: creds.Password,
			Back:     "/dashboard/scanners",
		})
	}))
}
