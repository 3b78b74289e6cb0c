package metric

import (
	"context"
	"log/slog"
	"time"

	"github.com/uptrace/bun"
)

// WatchSessionStore samples the latency of an empty session store read every
// interval until ctx is done.
func WatchSessionStore(ctx context.Context, db *bun.DB, interval time.Duration) {
	SessionStoreRead.Set(0)
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				slog.Debug("attendex_session_store_read_microsec sampling stopped")
				return
			case <-ticker.C:
				latency, err := sessionStoreLatency(ctx, db)
				if err != nil {
					slog.Error("can't get session store latency", "error", err)
					continue
				}
				SessionStoreRead.Set(float64(latency.Microseconds()))
			}
		}
	}()
}

func sessionStoreLatency(ctx context.Context, db *bun.DB) (time.Duration, error) {
	start := time.Now()
	if _, err := db.NewSelect().
		TableExpr("sessions").
		Where("secret = ?", "").
		Exists(ctx); err != nil {
		return 0, err
	}
	return time.Since(start), nil
}
