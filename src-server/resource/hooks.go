package resource

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"attendex/src-server/apiclient"
	"attendex/src-server/entity"
	"attendex/src-server/notify"
	"attendex/src-server/querycache"
)

// Hooks hands out resource hooks bound to one signed-in user and one
// notification channel, normally the collector of the current request.
type Hooks struct {
	deps
}

func Bind(client *apiclient.Client, cache *querycache.Cache, session Session, notifier notify.Notifier) *Hooks {
	if notifier == nil {
		notifier = notify.Discard
	}
	return &Hooks{deps{client: client, cache: cache, session: session, notifier: notifier}}
}

func (h *Hooks) root(parts ...string) querycache.Key {
	return querycache.Key{h.session.Scope}.With(parts...)
}

func (h *Hooks) Events() *Resource[entity.Event, entity.EventRequest] {
	r := newResource[entity.Event, entity.EventRequest](h.deps, "event", "/api/v1/events", h.root("events"), messagesFor("Event"))
	r.related = []querycache.Key{h.root("analytics")}
	return r
}

type Attendees struct {
	*Resource[entity.Attendee, entity.AttendeeRequest]
	eventID string
}

func (h *Hooks) Attendees(eventID string) *Attendees {
	r := newResource[entity.Attendee, entity.AttendeeRequest](h.deps, "attendee",
		"/api/v1/events/"+url.PathEscape(eventID)+"/attendees",
		h.root("events", eventID, "attendees"), messagesFor("Attendee"))
	r.related = []querycache.Key{h.root("analytics", eventID)}
	return &Attendees{Resource: r, eventID: eventID}
}

// Import uploads a CSV roster. The counts are reported as one toast.
func (a *Attendees) Import(ctx context.Context, filename string, csv io.Reader) (entity.ImportResult, error) {
	var out entity.ImportResult
	err := a.client.Upload(ctx, apiclient.Request{
		Method: http.MethodPost,
		Path:   a.path + "/import",
		Token:  a.session.Token,
	}, "file", filename, csv, &out)
	if err != nil {
		a.fail(err, "Could not import attendees")
		return out, fmt.Errorf("(*Attendees).Import: %w", err)
	}
	msg := fmt.Sprintf("Imported %d %s", out.SuccessCount, plural("attendee", out.SuccessCount))
	if out.FailureCount > 0 {
		a.notifier.Notify(notify.Warning(fmt.Sprintf("%s; %d %s failed", msg, out.FailureCount, plural("row", out.FailureCount))))
		a.invalidate()
		return out, nil
	}
	a.succeed(msg)
	return out, nil
}

func (h *Hooks) Attributes() *Resource[entity.Attribute, entity.AttributeRequest] {
	r := newResource[entity.Attribute, entity.AttributeRequest](h.deps, "attribute", "/api/v1/attributes", h.root("attributes"), messagesFor("Attribute"))
	// attendee rows render attribute columns
	r.related = []querycache.Key{h.root("events")}
	return r
}

func (h *Hooks) Organizers() *Resource[entity.Organizer, entity.OrganizerRequest] {
	return newResource[entity.Organizer, entity.OrganizerRequest](h.deps, "organizer", "/api/v1/organizers", h.root("organizers"), messagesFor("Organizer"))
}

type Scanners struct {
	*Resource[entity.Scanner, entity.ScannerRequest]
}

func (h *Hooks) Scanners() *Scanners {
	return &Scanners{newResource[entity.Scanner, entity.ScannerRequest](h.deps, "scanner", "/api/v1/scanners", h.root("scanners"), messagesFor("Scanner"))}
}

// ResetCredentials issues a new scanner password. The password is only
// returned once.
func (s *Scanners) ResetCredentials(ctx context.Context, id string) (entity.ScannerCredentials, error) {
	var out entity.ScannerCredentials
	err := s.action(ctx, http.MethodPost, "/"+url.PathEscape(id)+"/reset-credentials", nil, &out,
		"Scanner credentials reset", "Could not reset scanner credentials")
	return out, err
}

type Orphans struct {
	*Resource[entity.OrphanedEntry, struct{}]
	eventID string
}

func (h *Hooks) Orphans(eventID string) *Orphans {
	msgs := messagesFor("Orphaned entry")
	r := newResource[entity.OrphanedEntry, struct{}](h.deps, "orphaned entry", "/api/v1/capture/orphans",
		h.root("events", eventID, "orphans"), msgs)
	r.related = []querycache.Key{h.root("analytics", eventID), h.root("events", eventID, "attendance")}
	return &Orphans{Resource: r, eventID: eventID}
}

func (o *Orphans) List(ctx context.Context, q ListQuery) (entity.Page[entity.OrphanedEntry], error) {
	q.Filters = withFilter(q.Filters, "eventId", o.eventID)
	return o.Resource.List(ctx, q)
}

// Recover reassigns an orphaned scan to an attendee of the event.
func (o *Orphans) Recover(ctx context.Context, id string, identifier string) error {
	return o.action(ctx, http.MethodPost, "/"+url.PathEscape(id)+"/recover",
		entity.RecoverRequest{EventID: o.eventID, Identifier: identifier}, nil,
		"Entry recovered", "Could not recover entry")
}

// BulkRecover recovers every id against the identifier each entry was
// scanned with.
func (o *Orphans) BulkRecover(ctx context.Context, ids []string) BulkResult {
	res := runBulk(ctx, ids, func(ctx context.Context, id string) error {
		var entry entity.OrphanedEntry
		if err := o.do(ctx, http.MethodGet, o.path+"/"+url.PathEscape(id), nil, nil, &entry); err != nil {
			return fmt.Errorf("(*Orphans).BulkRecover %s: %w", id, err)
		}
		if entry.Identifier == "" {
			return fmt.Errorf("(*Orphans).BulkRecover %s: entry has no scanned identifier", id)
		}
		return o.do(ctx, http.MethodPost, o.path+"/"+url.PathEscape(id)+"/recover",
			nil, entity.RecoverRequest{EventID: o.eventID, Identifier: entry.Identifier}, nil)
	})
	o.reportBulk(res, "Recovered", "recover")
	return res
}

func (h *Hooks) Organizations() *Resource[entity.Organization, entity.OrganizationRequest] {
	return newResource[entity.Organization, entity.OrganizationRequest](h.deps, "organization", "/api/v1/admin/organizations", h.root("organizations"), messagesFor("Organization"))
}

type Subscriptions struct {
	*Resource[entity.Subscription, entity.SubscriptionRequest]
}

func (h *Hooks) Subscriptions(organizationID string) *Subscriptions {
	r := newResource[entity.Subscription, entity.SubscriptionRequest](h.deps, "subscription",
		"/api/v1/admin/organizations/"+url.PathEscape(organizationID)+"/subscriptions",
		h.root("organizations", organizationID, "subscriptions"), messagesFor("Subscription"))
	// organization rows show the current subscription
	r.related = []querycache.Key{h.root("organizations")}
	return &Subscriptions{r}
}

func (s *Subscriptions) Cancel(ctx context.Context, id string) error {
	return s.action(ctx, http.MethodPost, "/"+url.PathEscape(id)+"/cancel", nil, nil,
		"Subscription cancelled", "Could not cancel subscription")
}

func (s *Subscriptions) Renew(ctx context.Context, id string) error {
	return s.action(ctx, http.MethodPost, "/"+url.PathEscape(id)+"/renew", nil, nil,
		"Subscription renewed", "Could not renew subscription")
}

func (h *Hooks) Stewards() *Resource[entity.Steward, entity.StewardRequest] {
	return newResource[entity.Steward, entity.StewardRequest](h.deps, "steward", "/api/v1/admin/stewards", h.root("stewards"), messagesFor("Steward"))
}

// Analytics is read only.
type Analytics struct {
	deps
	key querycache.Key
}

func (h *Hooks) Analytics() *Analytics {
	return &Analytics{deps: h.deps, key: h.root("analytics")}
}

func (a *Analytics) Event(ctx context.Context, eventID string) (entity.Analytics, error) {
	out, err := querycache.Fetch(ctx, a.cache, a.key.With(eventID, "summary"), func(ctx context.Context) (entity.Analytics, error) {
		var out entity.Analytics
		err := a.do(ctx, http.MethodGet, "/api/v1/analytics/events/"+url.PathEscape(eventID), nil, nil, &out)
		return out, err
	})
	if err != nil {
		a.notifier.Notify(notify.Error(apiclient.Message(err, "Could not load analytics")))
		return out, fmt.Errorf("(*Analytics).Event: %w", err)
	}
	return out, nil
}

// AttendanceKey is invalidated by the live poller on every cycle.
func (a *Analytics) AttendanceKey(eventID string) querycache.Key {
	return querycache.Key{a.session.Scope}.With("events", eventID, "attendance")
}

// Refresh drops the cached summary and attendance pages of one event.
func (a *Analytics) Refresh(eventID string) {
	a.cache.Invalidate(a.key.With(eventID))
	a.cache.Invalidate(a.AttendanceKey(eventID))
}

func (a *Analytics) Attendance(ctx context.Context, eventID string, q ListQuery) (entity.Page[entity.AttendanceRecord], error) {
	values := q.Values()
	out, err := querycache.Fetch(ctx, a.cache, a.AttendanceKey(eventID).With(values.Encode()), func(ctx context.Context) (entity.Page[entity.AttendanceRecord], error) {
		var out entity.Page[entity.AttendanceRecord]
		err := a.do(ctx, http.MethodGet, "/api/v1/analytics/events/"+url.PathEscape(eventID)+"/attendance", values, nil, &out)
		return out, err
	})
	if err != nil {
		a.notifier.Notify(notify.Error(apiclient.Message(err, "Could not load attendance")))
		return out, fmt.Errorf("(*Analytics).Attendance: %w", err)
	}
	return out, nil
}

func withFilter(filters map[string]string, k, v string) map[string]string {
	out := make(map[string]string, len(filters)+1)
	for fk, fv := range filters {
		out[fk] = fv
	}
	out[k] = v
	return out
}
