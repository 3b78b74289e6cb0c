package scheduler_test

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"attendex/src-server/apiclient"
	"attendex/src-server/entity"
	"attendex/src-server/model"
	"attendex/src-server/querycache"
	"attendex/src-server/scheduler"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

type fakeAnnouncer struct {
	mu    sync.Mutex
	calls [][]entity.AttendanceRecord
}

func (f *fakeAnnouncer) Announce(_ context.Context, _ entity.Event, arrivals []entity.AttendanceRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, arrivals)
	return nil
}

type fakeAPI struct {
	mu      sync.Mutex
	records []entity.AttendanceRecord
}

func (f *fakeAPI) arrive(name string, at time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	// newest first, like the API with sort=arrivedAt,desc
	f.records = append([]entity.AttendanceRecord{{AttendeeID: name, Identifier: name, Name: name, ArrivedAt: &at}}, f.records...)
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")
	switch r.URL.Path {
	case "/api/v1/analytics/events/e1/attendance":
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		size, _ := strconv.Atoi(r.URL.Query().Get("size"))
		if size <= 0 {
			size = 20
		}
		start, end := min(page*size, len(f.records)), min((page+1)*size, len(f.records))
		_ = json.NewEncoder(w).Encode(entity.Page[entity.AttendanceRecord]{
			Content: f.records[start:end], TotalElements: int64(len(f.records)), Size: size, Number: page,
		})
	case "/api/v1/events/e1":
		_ = json.NewEncoder(w).Encode(entity.Event{ID: "e1", Name: "Orientation"})
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func setup(t *testing.T) (*bun.DB, *fakeAPI, *apiclient.Client) {
	t.Helper()
	sqldb, err := sql.Open(sqliteshim.ShimName, ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	sqldb.SetMaxOpenConns(1)
	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { db.Close() })
	if err := model.CreateSchema(context.Background(), db); err != nil {
		t.Fatal(err)
	}
	session := &model.Session{Secret: "s1", UserID: "u1", Token: "tok", ExpiresAt: time.Now().Add(time.Hour), CreatedAt: time.Now()}
	if err := session.Insert(context.Background(), db); err != nil {
		t.Fatal(err)
	}

	api := &fakeAPI{}
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)
	client, err := apiclient.New(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	return db, api, client
}

func TestCycleAnnouncesOnlyNewArrivals(t *testing.T) {
	ctx := context.Background()
	db, api, client := setup(t)
	cache := querycache.New(64, time.Minute)
	announcer := &fakeAnnouncer{}
	poller := scheduler.NewLivePoller(db, client, cache, time.Minute, announcer)

	var invalidated []querycache.Key
	var mu sync.Mutex
	cache.OnInvalidate(func(k querycache.Key) {
		mu.Lock()
		defer mu.Unlock()
		invalidated = append(invalidated, k)
	})

	base := time.Now().Add(-time.Hour).UTC().Truncate(time.Second)
	api.arrive("early", base)

	if err := poller.Watch(ctx, "e1", "s1"); err != nil {
		t.Fatal(err)
	}
	// first cycle only sets the cursor
	if err := poller.Cycle(ctx); err != nil {
		t.Fatal(err)
	}
	if len(announcer.calls) != 0 {
		t.Fatalf("announced on first sighting: %v", announcer.calls)
	}

	api.arrive("ana", base.Add(time.Minute))
	api.arrive("ben", base.Add(2*time.Minute))
	if err := poller.Cycle(ctx); err != nil {
		t.Fatal(err)
	}
	if len(announcer.calls) != 1 || len(announcer.calls[0]) != 2 {
		t.Fatalf("calls = %v", announcer.calls)
	}
	if announcer.calls[0][0].Name != "ana" {
		t.Fatalf("arrivals not oldest first: %v", announcer.calls[0])
	}

	// nothing new
	if err := poller.Cycle(ctx); err != nil {
		t.Fatal(err)
	}
	if len(announcer.calls) != 1 {
		t.Fatalf("repeated announcement: %v", announcer.calls)
	}

	cursor, err := model.FindArrivalCursor(ctx, db, "e1")
	if err != nil {
		t.Fatal(err)
	}
	if cursor.Announced != 2 {
		t.Fatalf("announced = %d, want 2", cursor.Announced)
	}
	mu.Lock()
	defer mu.Unlock()
	if len(invalidated) != 6 {
		t.Fatalf("invalidations = %d, want 2 per cycle", len(invalidated))
	}
	if poller.LastPoll().IsZero() {
		t.Fatal("last poll not recorded")
	}
}

func (f *fakeAnnouncer) announced() [][]entity.AttendanceRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func TestCycleAnnouncesBacklogBeyondOnePage(t *testing.T) {
	ctx := context.Background()
	db, api, client := setup(t)
	announcer := &fakeAnnouncer{}
	poller := scheduler.NewLivePoller(db, client, querycache.New(64, time.Minute), time.Minute, announcer)

	base := time.Now().Add(-time.Hour).UTC().Truncate(time.Second)
	api.arrive("early", base)
	if err := poller.Watch(ctx, "e1", "s1"); err != nil {
		t.Fatal(err)
	}
	if err := poller.Cycle(ctx); err != nil {
		t.Fatal(err)
	}

	for i := range 120 {
		api.arrive(fmt.Sprintf("s%03d", i), base.Add(time.Duration(i+1)*time.Second))
	}
	if err := poller.Cycle(ctx); err != nil {
		t.Fatal(err)
	}
	calls := announcer.announced()
	if len(calls) != 1 || len(calls[0]) != 120 {
		t.Fatalf("announced %d calls, want one with 120 arrivals", len(calls))
	}
	if calls[0][0].Name != "s000" || calls[0][119].Name != "s119" {
		t.Errorf("arrivals not oldest first: %s .. %s", calls[0][0].Name, calls[0][119].Name)
	}
	for _, r := range calls[0] {
		if r.Name == "early" {
			t.Fatal("arrival before the cursor was announced again")
		}
	}
}

func TestCycleAnnouncesArrivalsTiedWithCursor(t *testing.T) {
	ctx := context.Background()
	db, api, client := setup(t)
	announcer := &fakeAnnouncer{}
	poller := scheduler.NewLivePoller(db, client, querycache.New(64, time.Minute), time.Minute, announcer)

	base := time.Now().Add(-time.Hour).UTC().Truncate(time.Second)
	api.arrive("early", base)
	if err := poller.Watch(ctx, "e1", "s1"); err != nil {
		t.Fatal(err)
	}
	if err := poller.Cycle(ctx); err != nil {
		t.Fatal(err)
	}

	// case: same instant as the cursor, different attendee
	api.arrive("twin", base)
	if err := poller.Cycle(ctx); err != nil {
		t.Fatal(err)
	}
	calls := announcer.announced()
	if len(calls) != 1 || len(calls[0]) != 1 || calls[0][0].Name != "twin" {
		t.Fatalf("calls = %v", calls)
	}

	if err := poller.Cycle(ctx); err != nil {
		t.Fatal(err)
	}
	if n := len(announcer.announced()); n != 1 {
		t.Fatalf("tied arrival announced %d times", n)
	}
	cursor, err := model.FindArrivalCursor(ctx, db, "e1")
	if err != nil {
		t.Fatal(err)
	}
	if ids := cursor.SeenIDs(); len(ids) != 2 {
		t.Errorf("seen ids = %v, want early and twin", ids)
	}
}

func TestCycleWithoutWatchers(t *testing.T) {
	db, _, client := setup(t)
	cache := querycache.New(8, time.Minute)
	poller := scheduler.NewLivePoller(db, client, cache, time.Minute, nil)
	if err := poller.Cycle(context.Background()); err != nil {
		t.Fatal(err)
	}
	if cache.Stats().Invalidations != 0 {
		t.Fatal("idle cycle invalidated the cache")
	}
}

func TestArrivalEmbeds(t *testing.T) {
	at := time.Date(2025, time.March, 10, 1, 5, 0, 0, time.UTC)
	var arrivals []entity.AttendanceRecord
	for range 30 {
		arrivals = append(arrivals, entity.AttendanceRecord{Name: "Ana", Identifier: "S-1", ArrivedAt: &at, Punctuality: "ON_TIME"})
	}
	embeds := scheduler.ArrivalEmbeds(entity.Event{Name: "Orientation"}, arrivals, time.FixedZone("UTC+7", 7*3600))
	if len(embeds) != 2 || len(embeds[0].Fields) != 25 || len(embeds[1].Fields) != 5 {
		t.Fatalf("embeds = %d", len(embeds))
	}
	if embeds[0].Title != "Orientation: 30 new arrivals" {
		t.Fatalf("title = %q", embeds[0].Title)
	}
	if got := embeds[0].Fields[0].Value; got != "08:05 · on time" {
		t.Fatalf("field = %q", got)
	}
}
