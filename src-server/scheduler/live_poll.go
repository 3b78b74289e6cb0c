package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"attendex/src-server/apiclient"
	"attendex/src-server/entity"
	"attendex/src-server/metric"
	"attendex/src-server/model"
	"attendex/src-server/notify"
	"attendex/src-server/querycache"
	"attendex/src-server/resource"

	"github.com/uptrace/bun"
)

const (
	WORKER_COUNT = 4

	// a watch counts while its page has refreshed within this many intervals
	watchIntervals = 3
	arrivalsPage   = 50
	// a backlog beyond this many pages is announced in part
	maxArrivalPages = 20
)

// LivePoller refreshes the attendance of every event someone has open on the
// live page, at a fixed interval with no backoff.
type LivePoller struct {
	db        *bun.DB
	client    *apiclient.Client
	cache     *querycache.Cache
	interval  time.Duration
	announcer Announcer
	now       func() time.Time

	mu       sync.Mutex
	lastPoll time.Time
}

// NewLivePoller returns a poller; announcer may be nil.
func NewLivePoller(db *bun.DB, client *apiclient.Client, cache *querycache.Cache, interval time.Duration, announcer Announcer) *LivePoller {
	return &LivePoller{
		db:        db,
		client:    client,
		cache:     cache,
		interval:  interval,
		announcer: announcer,
		now:       time.Now,
	}
}

func (p *LivePoller) Interval() time.Duration {
	return p.interval
}

// LastPoll is when the latest cycle finished.
func (p *LivePoller) LastPoll() time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastPoll
}

// Watch registers that session is looking at the live page of eventID.
func (p *LivePoller) Watch(ctx context.Context, eventID, sessionSecret string) error {
	w := &model.LiveWatch{EventID: eventID, SessionSecret: sessionSecret, LastSeenAt: p.now()}
	if err := w.Touch(ctx, p.db); err != nil {
		return fmt.Errorf("(*LivePoller).Watch: %w", err)
	}
	return nil
}

// Run polls until ctx is done.
func (p *LivePoller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			slog.Debug("live poller stopped")
			return
		case <-ticker.C:
			if err := p.Cycle(ctx); err != nil {
				slog.Error("live poll failed", "error", err)
			}
		}
	}
}

// Cycle runs one poll over every watched event.
func (p *LivePoller) Cycle(ctx context.Context) error {
	now := p.now()
	watches, err := model.ActiveWatches(ctx, p.db, now.Add(-watchIntervals*p.interval), now)
	if err != nil {
		metric.PollCycles.WithLabelValues("error").Inc()
		return fmt.Errorf("(*LivePoller).Cycle: %w", err)
	}
	if len(watches) == 0 {
		metric.PollCycles.WithLabelValues("idle").Inc()
		p.finish(now)
		return nil
	}

	byEvent := make(map[string][]model.LiveWatch)
	for _, w := range watches {
		byEvent[w.EventID] = append(byEvent[w.EventID], w)
	}

	jobs := make(chan []model.LiveWatch, len(byEvent))
	var wg sync.WaitGroup
	for range min(WORKER_COUNT, len(byEvent)) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for group := range jobs {
				if err := p.refresh(ctx, group); err != nil {
					slog.Warn("can't refresh live event", "event", group[0].EventID, "error", err)
				}
			}
		}()
	}
	for _, group := range byEvent {
		jobs <- group
	}
	close(jobs)
	wg.Wait()

	metric.PollCycles.WithLabelValues("ok").Inc()
	p.finish(now)
	return nil
}

func (p *LivePoller) finish(now time.Time) {
	p.mu.Lock()
	p.lastPoll = now
	p.mu.Unlock()
}

func (p *LivePoller) hooks(w model.LiveWatch) *resource.Hooks {
	return resource.Bind(p.client, p.cache, resource.Session{Scope: w.Session.UserID, Token: w.Session.Token}, notify.Discard)
}

// refresh invalidates the event's attendance for every watcher and, when an
// announcer is set, posts arrivals newer than the stored cursor.
func (p *LivePoller) refresh(ctx context.Context, group []model.LiveWatch) error {
	eventID := group[0].EventID
	for _, w := range group {
		p.hooks(w).Analytics().Refresh(eventID)
	}
	if p.announcer == nil {
		return nil
	}

	hooks := p.hooks(group[0])
	cursor, err := model.FindArrivalCursor(ctx, p.db, eventID)
	if err != nil {
		return fmt.Errorf("(*LivePoller).refresh: %w", err)
	}
	records, err := arrivalsSince(ctx, hooks.Analytics(), eventID, cursor.LastSeen)
	if err != nil {
		return fmt.Errorf("(*LivePoller).refresh: %w", err)
	}

	fresh, latest, latestIDs := newArrivals(records, cursor.LastSeen, cursor.SeenIDs())
	if latest.IsZero() {
		return nil
	}
	// the first sighting of an event only sets the cursor
	if !cursor.LastSeen.IsZero() && len(fresh) > 0 {
		event, err := hooks.Events().Get(ctx, eventID)
		if err != nil {
			return fmt.Errorf("(*LivePoller).refresh: %w", err)
		}
		if err := p.announcer.Announce(ctx, event, fresh); err != nil {
			return fmt.Errorf("(*LivePoller).refresh: %w", err)
		}
		metric.ArrivalNotifications.Add(float64(len(fresh)))
		cursor.Announced += int64(len(fresh))
	}
	cursor.LastSeen = latest
	cursor.SetSeenIDs(latestIDs)
	cursor.UpdatedAt = p.now()
	if err := cursor.Upsert(ctx, p.db); err != nil {
		return fmt.Errorf("(*LivePoller).refresh: %w", err)
	}
	return nil
}

// arrivalsSince pages through attendance newest first until a page reaches
// past since. An unset cursor only needs the first page.
func arrivalsSince(ctx context.Context, analytics *resource.Analytics, eventID string, since time.Time) ([]entity.AttendanceRecord, error) {
	var records []entity.AttendanceRecord
	for page := range maxArrivalPages {
		res, err := analytics.Attendance(ctx, eventID, resource.ListQuery{Page: page, Size: arrivalsPage, Sort: "arrivedAt", Desc: true})
		if err != nil {
			return nil, err
		}
		records = append(records, res.Content...)
		if since.IsZero() || len(res.Content) < arrivalsPage {
			return records, nil
		}
		if last := res.Content[len(res.Content)-1]; last.ArrivedAt == nil || last.ArrivedAt.Before(since) {
			return records, nil
		}
	}
	slog.Warn("arrival backlog exceeds page limit", "event", eventID, "pages", maxArrivalPages)
	return records, nil
}

// newArrivals returns the records not yet announced, oldest first, and the
// cursor after them: the latest arrival time and who arrived exactly then.
// Records are ordered newest first and may repeat across pages.
func newArrivals(records []entity.AttendanceRecord, since time.Time, seen []string) ([]entity.AttendanceRecord, time.Time, []string) {
	var fresh []entity.AttendanceRecord
	latest, latestIDs := since, slices.Clone(seen)
	taken := map[arrivalKey]bool{}
	for i := len(records) - 1; i >= 0; i-- {
		r := records[i]
		if r.ArrivedAt == nil {
			continue
		}
		at, id := *r.ArrivedAt, arrivalID(r)
		if at.Before(since) || (at.Equal(since) && slices.Contains(seen, id)) {
			continue
		}
		key := arrivalKey{id, at.UnixNano()}
		if taken[key] {
			continue
		}
		taken[key] = true
		fresh = append(fresh, r)
		switch {
		case at.After(latest):
			latest, latestIDs = at, []string{id}
		case at.Equal(latest) && !slices.Contains(latestIDs, id):
			latestIDs = append(latestIDs, id)
		}
	}
	return fresh, latest, latestIDs
}

type arrivalKey struct {
	id string
	at int64
}

func arrivalID(r entity.AttendanceRecord) string {
	if r.AttendeeID != "" {
		return r.AttendeeID
	}
	return r.Identifier
}
