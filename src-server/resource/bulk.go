package resource

import (
	"context"
	"fmt"
	"sync"

	"attendex/src-server/notify"

	"golang.org/x/sync/errgroup"
)

// bulk requests go out in parallel but never more than this many at once
const bulkConcurrency = 8

// BulkResult lists which ids succeeded and which failed. Partial success is
// kept: nothing is rolled back.
type BulkResult struct {
	Succeeded []string
	Failed    map[string]error
}

func runBulk(ctx context.Context, ids []string, fn func(context.Context, string) error) BulkResult {
	res := BulkResult{Failed: make(map[string]error)}
	var mu sync.Mutex

	// errgroup without WithContext so one failure doesn't cancel its siblings
	var g errgroup.Group
	g.SetLimit(bulkConcurrency)
	for _, id := range ids {
		g.Go(func() error {
			err := fn(ctx, id)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				res.Failed[id] = err
				return nil
			}
			res.Succeeded = append(res.Succeeded, id)
			return nil
		})
	}
	_ = g.Wait()
	return res
}

func (r *Resource[T, In]) reportBulk(res BulkResult, pastVerb, verb string) {
	total := len(res.Succeeded) + len(res.Failed)
	if total == 0 {
		return
	}
	switch {
	case len(res.Failed) == 0:
		r.notifier.Notify(notify.Success(fmt.Sprintf("%s %d %s", pastVerb, total, plural(r.name, total))))
	case len(res.Succeeded) == 0:
		r.notifier.Notify(notify.Error(fmt.Sprintf("Could not %s %d %s", verb, total, plural(r.name, total))))
	default:
		r.notifier.Notify(notify.Warning(fmt.Sprintf("%s %d of %d %s; %d failed",
			pastVerb, len(res.Succeeded), total, plural(r.name, total), len(res.Failed))))
	}
	if len(res.Succeeded) > 0 {
		r.invalidate()
	}
}

func plural(name string, n int) string {
	if n == 1 {
		return name
	}
	if len(name) > 0 && name[len(name)-1] == 'y' {
		return name[:len(name)-1] + "ies"
	}
	return name + "s"
}
