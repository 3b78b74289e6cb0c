package datatable

import (
	"maps"
	"net/url"
	"slices"
	"strconv"
	"strings"
)

const (
	DefaultPageSize = 20
	filterPrefix    = "f."
)

// PageSizes are the sizes a user may pick; anything else falls back to
// DefaultPageSize.
var PageSizes = []int{10, 20, 50, 100}

// State is what the table asks its caller to fetch. It is a value: every
// transition returns a new State.
type State struct {
	PageIndex int
	PageSize  int
	SortBy    string
	SortDesc  bool
	Query     string
	Filters   map[string]string
}

func DefaultState() State {
	return State{PageSize: DefaultPageSize}
}

func clampSize(n int) int {
	if slices.Contains(PageSizes, n) {
		return n
	}
	return DefaultPageSize
}

// StateFromQuery reads page (1-based), size, sort, dir, q and f.<column>.
func StateFromQuery(q url.Values) State {
	s := DefaultState()
	if page, err := strconv.Atoi(q.Get("page")); err == nil && page > 1 {
		s.PageIndex = page - 1
	}
	if size, err := strconv.Atoi(q.Get("size")); err == nil {
		s.PageSize = clampSize(size)
	}
	s.SortBy = q.Get("sort")
	s.SortDesc = s.SortBy != "" && q.Get("dir") == "desc"
	s.Query = strings.TrimSpace(q.Get("q"))
	for key, values := range q {
		column, ok := strings.CutPrefix(key, filterPrefix)
		if !ok || column == "" || len(values) == 0 || strings.TrimSpace(values[0]) == "" {
			continue
		}
		if s.Filters == nil {
			s.Filters = map[string]string{}
		}
		s.Filters[column] = strings.TrimSpace(values[0])
	}
	return s
}

// Values is the inverse of StateFromQuery. Defaults are omitted so links stay
// short.
func (s State) Values() url.Values {
	v := url.Values{}
	if s.PageIndex > 0 {
		v.Set("page", strconv.Itoa(s.PageIndex+1))
	}
	if size := clampSize(s.PageSize); size != DefaultPageSize {
		v.Set("size", strconv.Itoa(size))
	}
	if s.SortBy != "" {
		v.Set("sort", s.SortBy)
		if s.SortDesc {
			v.Set("dir", "desc")
		}
	}
	if s.Query != "" {
		v.Set("q", s.Query)
	}
	for column, value := range s.Filters {
		if value != "" {
			v.Set(filterPrefix+column, value)
		}
	}
	return v
}

// Link renders s as a link relative to path.
func (s State) Link(path string) string {
	if q := s.Values().Encode(); q != "" {
		return path + "?" + q
	}
	return path
}

func (s State) clone() State {
	s.Filters = maps.Clone(s.Filters)
	return s
}

func (s State) GoTo(pageIndex int) State {
	s = s.clone()
	s.PageIndex = max(pageIndex, 0)
	return s
}

func (s State) Next() State { return s.GoTo(s.PageIndex + 1) }
func (s State) Prev() State { return s.GoTo(s.PageIndex - 1) }

// WithPageSize changes the page size and returns to the first page.
func (s State) WithPageSize(size int) State {
	s = s.clone()
	s.PageSize = clampSize(size)
	s.PageIndex = 0
	return s
}

// ToggleSort sorts by column ascending, flips direction when already sorted by
// it, and returns to the first page.
func (s State) ToggleSort(column string) State {
	s = s.clone()
	if s.SortBy == column {
		s.SortDesc = !s.SortDesc
	} else {
		s.SortBy = column
		s.SortDesc = false
	}
	s.PageIndex = 0
	return s
}

// WithFilter sets (or with an empty value clears) one column filter.
func (s State) WithFilter(column, value string) State {
	s = s.clone()
	if value == "" {
		delete(s.Filters, column)
	} else {
		if s.Filters == nil {
			s.Filters = map[string]string{}
		}
		s.Filters[column] = value
	}
	s.PageIndex = 0
	return s
}

// PageCount is ceil(total/size). A non-positive size counts as
// DefaultPageSize.
func PageCount(total int64, size int) int {
	if total <= 0 {
		return 0
	}
	if size <= 0 {
		size = DefaultPageSize
	}
	return int((total + int64(size) - 1) / int64(size))
}
