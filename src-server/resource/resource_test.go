package resource_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"attendex/src-server/apiclient"
	"attendex/src-server/entity"
	"attendex/src-server/notify"
	"attendex/src-server/querycache"
	"attendex/src-server/resource"
)

// fakeAPI is an in-memory organizer collection.
type fakeAPI struct {
	mu         sync.Mutex
	organizers map[string]entity.Organizer
	listCalls  int
	failIDs    map[string]bool
	nextID     int
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")

	id := strings.TrimPrefix(r.URL.Path, "/api/v1/organizers")
	id = strings.TrimPrefix(id, "/")
	switch {
	case r.Method == http.MethodGet && id == "":
		f.listCalls++
		page := entity.Page[entity.Organizer]{Size: 20, TotalElements: int64(len(f.organizers))}
		for _, o := range f.organizers {
			page.Content = append(page.Content, o)
		}
		json.NewEncoder(w).Encode(page)
	case r.Method == http.MethodPost:
		var in entity.OrganizerRequest
		json.NewDecoder(r.Body).Decode(&in)
		if in.Username == "taken" {
			w.WriteHeader(http.StatusConflict)
			fmt.Fprint(w, `{"status":409,"error":"Conflict","message":"Username already exists","path":"/api/v1/organizers"}`)
			return
		}
		f.nextID++
		o := entity.Organizer{ID: fmt.Sprint(f.nextID), Username: in.Username}
		f.organizers[o.ID] = o
		json.NewEncoder(w).Encode(o)
	case r.Method == http.MethodPut:
		var in entity.OrganizerRequest
		json.NewDecoder(r.Body).Decode(&in)
		o := f.organizers[id]
		o.Username = in.Username
		f.organizers[id] = o
		json.NewEncoder(w).Encode(o)
	case r.Method == http.MethodDelete:
		if f.failIDs[id] {
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprint(w, `{"status":400,"message":"Organizer owns events"}`)
			return
		}
		delete(f.organizers, id)
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (f *fakeAPI) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listCalls
}

type fixture struct {
	api       *fakeAPI
	client    *apiclient.Client
	cache     *querycache.Cache
	collector *notify.Collector
	hooks     *resource.Hooks

	mu          sync.Mutex
	invalidated map[string]int
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	api := &fakeAPI{organizers: map[string]entity.Organizer{}, failIDs: map[string]bool{}}
	f := newFixtureWith(t, api)
	f.api = api
	return f
}

// newFixtureWith binds hooks to an arbitrary fake API.
func newFixtureWith(t *testing.T, h http.Handler) *fixture {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	client, err := apiclient.New(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	f := &fixture{
		client:      client,
		cache:       querycache.New(64, time.Minute),
		collector:   &notify.Collector{},
		invalidated: map[string]int{},
	}
	f.cache.OnInvalidate(func(k querycache.Key) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.invalidated[k.String()]++
	})
	f.hooks = resource.Bind(client, f.cache, resource.Session{Scope: "user-1", Token: "tok"}, f.collector)
	return f
}

func (f *fixture) invalidations(k querycache.Key) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.invalidated[k.String()]
}

func TestListIsCachedUntilMutation(t *testing.T) {
	f := newFixture(t)
	organizers := f.hooks.Organizers()
	ctx := context.Background()

	for range 2 {
		if _, err := organizers.List(ctx, resource.ListQuery{Size: 20}); err != nil {
			t.Fatal(err)
		}
	}
	if n := f.api.calls(); n != 1 {
		t.Fatalf("list calls = %d, want 1", n)
	}

	if _, err := organizers.Create(ctx, entity.OrganizerRequest{Username: "ann"}); err != nil {
		t.Fatal(err)
	}
	page, err := organizers.List(ctx, resource.ListQuery{Size: 20})
	if err != nil {
		t.Fatal(err)
	}
	if n := f.api.calls(); n != 2 || len(page.Content) != 1 {
		t.Errorf("list calls = %d content = %d, want refetch after create", n, len(page.Content))
	}
}

func TestMutationsInvalidateListKeyOnce(t *testing.T) {
	f := newFixture(t)
	organizers := f.hooks.Organizers()
	ctx := context.Background()

	created, err := organizers.Create(ctx, entity.OrganizerRequest{Username: "ann"})
	if err != nil {
		t.Fatal(err)
	}
	if n := f.invalidations(organizers.Key()); n != 1 {
		t.Fatalf("after create: %d invalidations, want 1", n)
	}

	if _, err := organizers.Update(ctx, created.ID, entity.OrganizerRequest{Username: "anne"}); err != nil {
		t.Fatal(err)
	}
	if n := f.invalidations(organizers.Key()); n != 2 {
		t.Fatalf("after update: %d invalidations, want 2", n)
	}

	if err := organizers.Delete(ctx, created.ID); err != nil {
		t.Fatal(err)
	}
	if n := f.invalidations(organizers.Key()); n != 3 {
		t.Fatalf("after delete: %d invalidations, want 3", n)
	}

	toasts := f.collector.Toasts()
	want := []string{"Organizer created", "Organizer updated", "Organizer deleted"}
	if len(toasts) != len(want) {
		t.Fatalf("toasts = %+v", toasts)
	}
	for i, msg := range want {
		if toasts[i].Message != msg || toasts[i].Kind != notify.KindSuccess {
			t.Errorf("toast %d = %+v, want %q", i, toasts[i], msg)
		}
	}
}

func TestFailedMutationNotifiesWithoutInvalidating(t *testing.T) {
	f := newFixture(t)
	organizers := f.hooks.Organizers()

	if _, err := organizers.Create(context.Background(), entity.OrganizerRequest{Username: "taken"}); err == nil {
		t.Fatal("expected error")
	}
	if n := f.invalidations(organizers.Key()); n != 0 {
		t.Errorf("%d invalidations after failure, want 0", n)
	}
	toasts := f.collector.Toasts()
	if len(toasts) != 1 || toasts[0].Kind != notify.KindError || toasts[0].Message != "Username already exists" {
		t.Errorf("toasts = %+v", toasts)
	}
}

func TestBulkDeleteReportsAggregate(t *testing.T) {
	f := newFixture(t)
	organizers := f.hooks.Organizers()
	ctx := context.Background()
	var ids []string
	for _, name := range []string{"a", "b", "c"} {
		o, err := organizers.Create(ctx, entity.OrganizerRequest{Username: name})
		if err != nil {
			t.Fatal(err)
		}
		ids = append(ids, o.ID)
	}
	f.api.mu.Lock()
	f.api.failIDs[ids[1]] = true
	f.api.mu.Unlock()
	before := f.invalidations(organizers.Key())
	f.collector = &notify.Collector{}
	organizers = resource.Bind(f.client, f.cache, resource.Session{Scope: "user-1", Token: "tok"}, f.collector).Organizers()

	res := organizers.BulkDelete(ctx, ids)
	if len(res.Succeeded) != 2 || len(res.Failed) != 1 {
		t.Fatalf("result = %+v", res)
	}
	if _, ok := res.Failed[ids[1]]; !ok {
		t.Errorf("failed = %v, want %s", res.Failed, ids[1])
	}
	if n := f.invalidations(organizers.Key()) - before; n != 1 {
		t.Errorf("%d invalidations for bulk delete, want 1", n)
	}
	toasts := f.collector.Toasts()
	if len(toasts) != 1 || toasts[0].Kind != notify.KindWarning || toasts[0].Message != "Deleted 2 of 3 organizers; 1 failed" {
		t.Errorf("toasts = %+v", toasts)
	}
}

func TestListQueryValues(t *testing.T) {
	q := resource.ListQuery{Page: 2, Size: 50, Sort: "name", Desc: true, Search: "ann", Filters: map[string]string{"status": "ACTIVE", "empty": ""}}
	v := q.Values()
	if v.Get("page") != "2" || v.Get("size") != "50" || v.Get("sort") != "name,desc" || v.Get("search") != "ann" || v.Get("status") != "ACTIVE" {
		t.Errorf("values = %v", v)
	}
	if v.Has("empty") {
		t.Error("empty filters should be omitted")
	}
}
