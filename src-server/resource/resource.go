// Package resource binds the list/detail queries and create/update/delete
// mutations of one API resource into a single value used by page handlers.
//
// Mutations never patch cached data: on success they notify and then
// invalidate the resource's cache key exactly once; on failure they notify
// with the most specific message the API returned.
package resource

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"attendex/src-server/apiclient"
	"attendex/src-server/entity"
	"attendex/src-server/notify"
	"attendex/src-server/querycache"
)

// Session is what a hook needs to know about the signed-in user.
type Session struct {
	// Scope partitions cached queries between users.
	Scope string
	Token string
}

// Messages are the toasts raised by a resource's mutations.
type Messages struct {
	Created      string
	Updated      string
	Deleted      string
	CreateFailed string
	UpdateFailed string
	DeleteFailed string
	LoadFailed   string
}

func messagesFor(singular string) Messages {
	lower := strings.ToLower(singular)
	return Messages{
		Created:      singular + " created",
		Updated:      singular + " updated",
		Deleted:      singular + " deleted",
		CreateFailed: "Could not create " + lower,
		UpdateFailed: "Could not update " + lower,
		DeleteFailed: "Could not delete " + lower,
		LoadFailed:   "Could not load " + lower + " data",
	}
}

// ListQuery is the server-side pagination, sorting and filtering request.
type ListQuery struct {
	Page    int
	Size    int
	Sort    string
	Desc    bool
	Search  string
	Filters map[string]string
}

func (q ListQuery) Values() url.Values {
	v := url.Values{}
	v.Set("page", strconv.Itoa(q.Page))
	if q.Size > 0 {
		v.Set("size", strconv.Itoa(q.Size))
	}
	if q.Sort != "" {
		dir := "asc"
		if q.Desc {
			dir = "desc"
		}
		v.Set("sort", q.Sort+","+dir)
	}
	if q.Search != "" {
		v.Set("search", q.Search)
	}
	for k, val := range q.Filters {
		if val != "" {
			v.Set(k, val)
		}
	}
	return v
}

type deps struct {
	client   *apiclient.Client
	cache    *querycache.Cache
	session  Session
	notifier notify.Notifier
}

func (d deps) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	return d.client.Do(ctx, apiclient.Request{
		Method: method,
		Path:   path,
		Query:  query,
		Body:   body,
		Token:  d.session.Token,
	}, out)
}

// Resource is the hook for one REST collection.
type Resource[T, In any] struct {
	deps
	name     string
	path     string
	key      querycache.Key
	related  []querycache.Key
	messages Messages
}

func newResource[T, In any](d deps, name, path string, key querycache.Key, messages Messages) *Resource[T, In] {
	return &Resource[T, In]{deps: d, name: name, path: path, key: key, messages: messages}
}

// Key is the list cache key; every query of the resource lives below it.
func (r *Resource[T, In]) Key() querycache.Key {
	return r.key
}

func (r *Resource[T, In]) List(ctx context.Context, q ListQuery) (entity.Page[T], error) {
	values := q.Values()
	page, err := querycache.Fetch(ctx, r.cache, r.key.With("list", values.Encode()), func(ctx context.Context) (entity.Page[T], error) {
		var page entity.Page[T]
		err := r.do(ctx, http.MethodGet, r.path, values, nil, &page)
		return page, err
	})
	if err != nil {
		r.fail(err, r.messages.LoadFailed)
		return entity.Page[T]{}, fmt.Errorf("(*Resource).List %s: %w", r.name, err)
	}
	return page, nil
}

// All walks every page of the collection. Used by exports.
func (r *Resource[T, In]) All(ctx context.Context, q ListQuery) ([]T, error) {
	if q.Size <= 0 {
		q.Size = 100
	}
	var out []T
	for q.Page = 0; ; q.Page++ {
		page, err := r.List(ctx, q)
		if err != nil {
			return nil, err
		}
		out = append(out, page.Content...)
		if len(page.Content) == 0 || q.Page+1 >= pageCount(page) {
			return out, nil
		}
	}
}

func (r *Resource[T, In]) Get(ctx context.Context, id string) (T, error) {
	item, err := querycache.Fetch(ctx, r.cache, r.key.With("detail", id), func(ctx context.Context) (T, error) {
		var item T
		err := r.do(ctx, http.MethodGet, r.path+"/"+url.PathEscape(id), nil, nil, &item)
		return item, err
	})
	if err != nil {
		r.fail(err, r.messages.LoadFailed)
		var zero T
		return zero, fmt.Errorf("(*Resource).Get %s %s: %w", r.name, id, err)
	}
	return item, nil
}

func (r *Resource[T, In]) Create(ctx context.Context, in In) (T, error) {
	var out T
	if err := r.do(ctx, http.MethodPost, r.path, nil, in, &out); err != nil {
		r.fail(err, r.messages.CreateFailed)
		return out, fmt.Errorf("(*Resource).Create %s: %w", r.name, err)
	}
	r.succeed(r.messages.Created)
	return out, nil
}

func (r *Resource[T, In]) Update(ctx context.Context, id string, in In) (T, error) {
	var out T
	if err := r.do(ctx, http.MethodPut, r.path+"/"+url.PathEscape(id), nil, in, &out); err != nil {
		r.fail(err, r.messages.UpdateFailed)
		return out, fmt.Errorf("(*Resource).Update %s %s: %w", r.name, id, err)
	}
	r.succeed(r.messages.Updated)
	return out, nil
}

func (r *Resource[T, In]) Delete(ctx context.Context, id string) error {
	if err := r.deleteOne(ctx, id); err != nil {
		r.fail(err, r.messages.DeleteFailed)
		return err
	}
	r.succeed(r.messages.Deleted)
	return nil
}

func (r *Resource[T, In]) deleteOne(ctx context.Context, id string) error {
	if err := r.do(ctx, http.MethodDelete, r.path+"/"+url.PathEscape(id), nil, nil, nil); err != nil {
		return fmt.Errorf("(*Resource).Delete %s %s: %w", r.name, id, err)
	}
	return nil
}

// BulkDelete deletes ids concurrently and reports one aggregate toast.
func (r *Resource[T, In]) BulkDelete(ctx context.Context, ids []string) BulkResult {
	res := runBulk(ctx, ids, r.deleteOne)
	r.reportBulk(res, "Deleted", "delete")
	return res
}

// action runs a non-CRUD mutation such as recover or cancel under the same
// notify-then-invalidate contract as Create/Update/Delete.
func (r *Resource[T, In]) action(ctx context.Context, method, subpath string, body, out any, ok, failed string) error {
	if err := r.do(ctx, method, r.path+subpath, nil, body, out); err != nil {
		r.fail(err, failed)
		return fmt.Errorf("%s %s%s: %w", method, r.path, subpath, err)
	}
	r.succeed(ok)
	return nil
}

func (r *Resource[T, In]) succeed(message string) {
	if message != "" {
		r.notifier.Notify(notify.Success(message))
	}
	r.invalidate()
}

func (r *Resource[T, In]) invalidate() {
	r.cache.Invalidate(r.key)
	for _, k := range r.related {
		r.cache.Invalidate(k)
	}
}

func (r *Resource[T, In]) fail(err error, fallback string) {
	r.notifier.Notify(notify.Error(apiclient.Message(err, fallback)))
}

func pageCount[T any](p entity.Page[T]) int {
	if p.Size <= 0 {
		return p.TotalPages
	}
	return int((p.TotalElements + int64(p.Size) - 1) / int64(p.Size))
}
