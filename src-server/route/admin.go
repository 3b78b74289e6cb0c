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

func organizationPath(id string) string {
	return "/admin/organizations/" + url.PathEscape(id)
}

func subscriptionTone(status entity.SubscriptionStatus) datatable.Tone {
	switch status {
	case entity.SubscriptionActive:
		return datatable.ToneSuccess
	case entity.SubscriptionExpired:
		return datatable.ToneWarning
	case entity.SubscriptionCancelled:
		return datatable.ToneDanger
	}
	return datatable.ToneNeutral
}

func Admin(r chi.Router, s *Server) {
	organizations := &crud[entity.Organization, entity.OrganizationRequest]{
		title:      "Organizations",
		singular:   "organization",
		idParam:    "orgID",
		listPath:   fixedPath("/admin"),
		actionPath: fixedPath("/admin/organizations"),
		hook: func(p *page) crudHook[entity.Organization, entity.OrganizationRequest] {
			return p.hooks().Organizations()
		},
		dialog: func(p *page, action string, existing *entity.Organization) (*form.Dialog[entity.OrganizationRequest], error) {
			return form.OrganizationDialog(action, existing), nil
		},
	}
	organizations.table = func(p *page) *datatable.Table[entity.Organization] {
		t := datatable.New(func(o entity.Organization) string { return o.ID },
			datatable.Select[entity.Organization](),
			datatable.Text("name", "Name", func(o entity.Organization) string { return o.Name }).Sortable(),
			datatable.Text("slug", "Slug", func(o entity.Organization) string { return o.Slug }).Sortable(),
			datatable.Text("contactEmail", "Contact", func(o entity.Organization) string { return o.ContactEmail }),
			datatable.Badge("active", "Status", func(o entity.Organization) (string, datatable.Tone) {
				if o.Active {
					return "ACTIVE", datatable.ToneSuccess
				}
				return "INACTIVE", datatable.ToneNeutral
			}),
			datatable.Badge("plan", "Plan", func(o entity.Organization) (string, datatable.Tone) {
				if o.Subscription == nil {
					return "NONE", datatable.ToneNeutral
				}
				return o.Subscription.Plan, subscriptionTone(o.Subscription.Status)
			}),
			datatable.Actions(func(o entity.Organization) []datatable.Action {
				return append([]datatable.Action{
					{Label: "Subscriptions", Href: organizationPath(o.ID), Method: http.MethodGet},
				}, organizations.rowActions(p.r, o.ID)...)
			}),
		)
		t.EmptyMessage = "No organizations yet."
		t.Bulk = organizations.bulkActions(p.r)
		return t
	}
	organizations.mount(r, s, "/admin", "/admin/organizations")

	orgID := func(r *http.Request) string { return chi.URLParam(r, "orgID") }
	subscriptions := &crud[entity.Subscription, entity.SubscriptionRequest]{
		title:      "Subscriptions",
		singular:   "subscription",
		template:   "organization",
		listPath:   func(r *http.Request) string { return organizationPath(orgID(r)) },
		actionPath: func(r *http.Request) string { return organizationPath(orgID(r)) + "/subscriptions" },
		hook: func(p *page) crudHook[entity.Subscription, entity.SubscriptionRequest] {
			return p.hooks().Subscriptions(orgID(p.r))
		},
		dialog: func(p *page, action string, existing *entity.Subscription) (*form.Dialog[entity.SubscriptionRequest], error) {
			return form.SubscriptionDialog(s.as.Dates, action, existing), nil
		},
		extra: func(p *page) (any, error) {
			return p.hooks().Organizations().Get(p.ctx(), orgID(p.r))
		},
	}
	subscriptions.table = func(p *page) *datatable.Table[entity.Subscription] {
		base := subscriptions.actionPath(p.r)
		t := datatable.New(func(sub entity.Subscription) string { return sub.ID },
			datatable.Select[entity.Subscription](),
			datatable.Badge("plan", "Plan", func(sub entity.Subscription) (string, datatable.Tone) {
				return sub.Plan, datatable.ToneInfo
			}).Sortable(),
			datatable.Date("startDate", "Starts", dateLayout, func(sub entity.Subscription) time.Time { return sub.StartDate.Time }).Sortable(),
			datatable.Date("endDate", "Ends", dateLayout, func(sub entity.Subscription) time.Time { return sub.EndDate.Time }).Sortable(),
			datatable.Badge("status", "Status", func(sub entity.Subscription) (string, datatable.Tone) {
				return string(sub.Status), subscriptionTone(sub.Status)
			}).Filterable(
				string(entity.SubscriptionActive),
				string(entity.SubscriptionExpired),
				string(entity.SubscriptionCancelled),
			),
			datatable.Actions(func(sub entity.Subscription) []datatable.Action {
				var actions []datatable.Action
				item := base + "/" + url.PathEscape(sub.ID)
				switch sub.Status {
				case entity.SubscriptionActive:
					actions = append(actions, datatable.Action{Label: "Cancel", Href: item + "/cancel", Method: http.MethodPost,
						Confirm: "Cancel this subscription?", Danger: true})
				default:
					actions = append(actions, datatable.Action{Label: "Renew", Href: item + "/renew", Method: http.MethodPost})
				}
				return append(actions, subscriptions.rowActions(p.r, sub.ID)...)
			}),
		)
		t.EmptyMessage = "This organization has no subscriptions."
		t.Bulk = subscriptions.bulkActions(p.r)
		return t
	}
	subscriptions.mount(r, s, "/admin/organizations/{orgID}", "/admin/organizations/{orgID}/subscriptions")

	subscriptionAction := func(run func(p *page, id string) error) http.HandlerFunc {
		return s.handle(func(p *page) {
			if err := run(p, chi.URLParam(p.r, "id")); err != nil && p.expired(err) {
				return
			}
			p.redirect(organizationPath(orgID(p.r)))
		})
	}
	r.Post("/admin/organizations/{orgID}/subscriptions/{id}/cancel", subscriptionAction(func(p *page, id string) error {
		return p.hooks().Subscriptions(orgID(p.r)).Cancel(p.ctx(), id)
	}))
	r.Post("/admin/organizations/{orgID}/subscriptions/{id}/renew", subscriptionAction(func(p *page, id string) error {
		return p.hooks().Subscriptions(orgID(p.r)).Renew(p.ctx(), id)
	}))

	stewards := &crud[entity.Steward, entity.StewardRequest]{
		title:      "Stewards",
		singular:   "steward",
		listPath:   fixedPath("/admin/stewards"),
		actionPath: fixedPath("/admin/stewards"),
		hook: func(p *page) crudHook[entity.Steward, entity.StewardRequest] {
			return p.hooks().Stewards()
		},
		dialog: func(p *page, action string, existing *entity.Steward) (*form.Dialog[entity.StewardRequest], error) {
			return form.StewardDialog(action, existing), nil
		},
	}
	stewards.table = func(p *page) *datatable.Table[entity.Steward] {
		t := datatable.New(func(st entity.Steward) string { return st.ID },
			datatable.Select[entity.Steward](),
			datatable.Text("username", "Username", func(st entity.Steward) string { return st.Username }).Sortable(),
			datatable.Text("firstName", "First name", func(st entity.Steward) string { return st.FirstName }).Sortable(),
			datatable.Text("lastName", "Last name", func(st entity.Steward) string { return st.LastName }).Sortable(),
			datatable.Text("email", "Email", func(st entity.Steward) string { return st.Email }),
			datatable.Actions(func(st entity.Steward) []datatable.Action {
				return stewards.rowActions(p.r, st.ID)
			}),
		)
		t.EmptyMessage = "No stewards."
		t.Bulk = stewards.bulkActions(p.r)
		return t
	}
	stewards.mount(r, s, "/admin/stewards", "/admin/stewards")
}
