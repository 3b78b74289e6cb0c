// Package datatable renders one page of records as a sortable, filterable,
// selectable table. It never fetches: state changes are handed back to the
// caller as new State values and as links.
package datatable

import (
	"slices"

	"attendex/src-server/entity"

	"golang.org/x/text/language"
)

type Table[T any] struct {
	Columns []Column[T]
	Rows    []T
	Loading bool
	Total   int64
	State   State

	// EmptyMessage is shown in place of rows when the page is empty.
	EmptyMessage string
	Bulk         []BulkAction

	rowID    func(T) string
	selected map[string]bool
	onChange []func(State)
}

// BulkAction posts the selected row ids (field "id") to Action.
type BulkAction struct {
	Label   string
	Action  string
	Confirm string
	Danger  bool
}

func New[T any](rowID func(T) string, columns ...Column[T]) *Table[T] {
	return &Table[T]{
		Columns:      columns,
		State:        DefaultState(),
		EmptyMessage: "No records found.",
		rowID:        rowID,
		selected:     map[string]bool{},
	}
}

// SetPage replaces the rendered rows. Moving to another page or size clears
// the selection.
func (t *Table[T]) SetPage(page entity.Page[T], state State) {
	if state.PageIndex != t.State.PageIndex || state.PageSize != t.State.PageSize {
		t.ClearSelection()
	}
	t.State = t.sanitize(state)
	t.Rows = page.Content
	t.Total = page.TotalElements
	t.Loading = false
	t.retainSelection()
}

// sanitize drops sort and filter keys that no column allows.
func (t *Table[T]) sanitize(s State) State {
	s = s.clone()
	s.PageSize = clampSize(s.PageSize)
	if s.SortBy != "" && !t.sortable(s.SortBy) {
		s.SortBy, s.SortDesc = "", false
	}
	for key := range s.Filters {
		if !t.filterable(key) {
			delete(s.Filters, key)
		}
	}
	return s
}

func (t *Table[T]) sortable(key string) bool {
	return slices.ContainsFunc(t.Columns, func(c Column[T]) bool { return c.Key == key && c.IsSortable() })
}

func (t *Table[T]) filterable(key string) bool {
	return slices.ContainsFunc(t.Columns, func(c Column[T]) bool { return c.Key == key && c.IsFilterable() })
}

// StateFrom is StateFromQuery restricted to this table's columns.
func (t *Table[T]) StateFrom(q map[string][]string) State {
	return t.sanitize(StateFromQuery(q))
}

func (t *Table[T]) PageCount() int {
	return PageCount(t.Total, t.State.PageSize)
}

// OnStateChange registers fn to receive every requested transition.
func (t *Table[T]) OnStateChange(fn func(State)) {
	t.onChange = append(t.onChange, fn)
}

// Request hands next to the registered listeners and returns it.
func (t *Table[T]) Request(next State) State {
	next = t.sanitize(next)
	for _, fn := range t.onChange {
		fn(next)
	}
	return next
}

func (t *Table[T]) NextPage() State {
	if t.State.PageIndex+1 >= t.PageCount() {
		return t.State
	}
	return t.Request(t.State.Next())
}

func (t *Table[T]) PrevPage() State {
	if t.State.PageIndex == 0 {
		return t.State
	}
	return t.Request(t.State.Prev())
}

func (t *Table[T]) GoTo(pageIndex int) State {
	if n := t.PageCount(); n > 0 && pageIndex >= n {
		pageIndex = n - 1
	}
	return t.Request(t.State.GoTo(pageIndex))
}

func (t *Table[T]) SetPageSize(size int) State {
	return t.Request(t.State.WithPageSize(size))
}

func (t *Table[T]) ToggleSort(column string) State {
	if !t.sortable(column) {
		return t.State
	}
	return t.Request(t.State.ToggleSort(column))
}

func (t *Table[T]) SetFilter(column, value string) State {
	if !t.filterable(column) {
		return t.State
	}
	return t.Request(t.State.WithFilter(column, value))
}

// SelectAll selects exactly the rows on the current page.
func (t *Table[T]) SelectAll() {
	t.selected = make(map[string]bool, len(t.Rows))
	for _, row := range t.Rows {
		t.selected[t.rowID(row)] = true
	}
}

func (t *Table[T]) ClearSelection() {
	t.selected = map[string]bool{}
}

// Toggle flips one row; ids not on the current page are ignored.
func (t *Table[T]) Toggle(id string) {
	if !t.onPage(id) {
		return
	}
	if t.selected[id] {
		delete(t.selected, id)
		return
	}
	t.selected[id] = true
}

// Select replaces the selection with ids, keeping only rows on this page.
func (t *Table[T]) Select(ids ...string) {
	t.ClearSelection()
	for _, id := range ids {
		if t.onPage(id) {
			t.selected[id] = true
		}
	}
}

func (t *Table[T]) IsSelected(id string) bool {
	return t.selected[id]
}

func (t *Table[T]) SelectedIDs() []string {
	var out []string
	for _, row := range t.Rows {
		if id := t.rowID(row); t.selected[id] {
			out = append(out, id)
		}
	}
	return out
}

func (t *Table[T]) onPage(id string) bool {
	return slices.ContainsFunc(t.Rows, func(row T) bool { return t.rowID(row) == id })
}

func (t *Table[T]) retainSelection() {
	for id := range t.selected {
		if !t.onPage(id) {
			delete(t.selected, id)
		}
	}
}

// View formats the table for the template at path, using English number and
// title formatting.
func (t *Table[T]) View(path string) View {
	return t.ViewIn(path, language.English)
}
