package datatable

import (
	"strconv"

	"golang.org/x/text/language"
)

type View struct {
	Path    string
	Headers []HeaderView
	Rows    []RowView
	Colspan int
	Filters []FilterView
	Query   string
	// Keep is the sort and page size the filter form resubmits.
	Keep      []Hidden
	Selection SelectionView
	Bulk      []BulkAction
	Pager     PagerView
}

type Hidden struct {
	Name  string
	Value string
}

type HeaderView struct {
	Label    string
	Kind     Kind
	Sortable bool
	SortLink string
	Sorted   bool
	Desc     bool
}

type FilterView struct {
	Key     string
	Label   string
	Value   string
	Options []string
}

// RowView is either a data row or, with Placeholder set, a single cell
// spanning the table.
type RowView struct {
	ID          string
	Cells       []Cell
	Placeholder string
	Loading     bool
}

type SelectionView struct {
	Enabled       bool
	Count         int
	AllSelected   bool
	SelectAllLink string
	ClearLink     string
}

type PagerView struct {
	Page      int // 1-based
	PageCount int
	Total     string
	HasPrev   bool
	HasNext   bool
	PrevLink  string
	NextLink  string
	Pages     []PageLink
	Sizes     []SizeLink
}

type PageLink struct {
	Number  int
	Link    string
	Current bool
}

type SizeLink struct {
	Size    int
	Link    string
	Current bool
}

// pagerWindow is how many page links surround the current page.
const pagerWindow = 2

func (t *Table[T]) ViewIn(path string, tag language.Tag) View {
	f := newFormatter(tag)
	v := View{Path: path, Colspan: len(t.Columns), Query: t.State.Query, Bulk: t.Bulk}
	kept := t.State.Values()
	for _, name := range []string{"sort", "dir", "size"} {
		if value := kept.Get(name); value != "" {
			v.Keep = append(v.Keep, Hidden{Name: name, Value: value})
		}
	}

	for _, c := range t.Columns {
		h := HeaderView{Label: c.Header, Kind: c.Kind, Sortable: c.IsSortable()}
		if h.Sortable {
			h.SortLink = t.State.ToggleSort(c.Key).Link(path)
			h.Sorted = t.State.SortBy == c.Key
			h.Desc = h.Sorted && t.State.SortDesc
		}
		if c.Kind == KindSelect {
			v.Selection.Enabled = true
		}
		v.Headers = append(v.Headers, h)
		if c.IsFilterable() {
			v.Filters = append(v.Filters, FilterView{Key: c.Key, Label: c.Header, Value: t.State.Filters[c.Key], Options: c.options})
		}
	}

	switch {
	case t.Loading:
		v.Rows = []RowView{{Placeholder: "Loading…", Loading: true}}
	case len(t.Rows) == 0:
		v.Rows = []RowView{{Placeholder: t.EmptyMessage}}
	default:
		for _, row := range t.Rows {
			id := t.rowID(row)
			r := RowView{ID: id}
			for _, c := range t.Columns {
				cell := c.format(f, row)
				cell.RowID = id
				cell.Checked = cell.Kind == KindSelect && t.selected[id]
				r.Cells = append(r.Cells, cell)
			}
			v.Rows = append(v.Rows, r)
		}
	}

	if v.Selection.Enabled {
		v.Selection.Count = len(t.SelectedIDs())
		v.Selection.AllSelected = len(t.Rows) > 0 && v.Selection.Count == len(t.Rows)
		link := t.State.Values()
		link.Set("select", "all")
		v.Selection.SelectAllLink = path + "?" + link.Encode()
		v.Selection.ClearLink = t.State.Link(path)
	}

	pages := t.PageCount()
	p := PagerView{
		Page:      t.State.PageIndex + 1,
		PageCount: pages,
		Total:     f.number(t.Total),
		HasPrev:   t.State.PageIndex > 0,
		HasNext:   t.State.PageIndex+1 < pages,
	}
	if p.HasPrev {
		p.PrevLink = t.State.Prev().Link(path)
	}
	if p.HasNext {
		p.NextLink = t.State.Next().Link(path)
	}
	for i := max(0, t.State.PageIndex-pagerWindow); i < pages && i <= t.State.PageIndex+pagerWindow; i++ {
		p.Pages = append(p.Pages, PageLink{Number: i + 1, Link: t.State.GoTo(i).Link(path), Current: i == t.State.PageIndex})
	}
	for _, size := range PageSizes {
		p.Sizes = append(p.Sizes, SizeLink{Size: size, Link: t.State.WithPageSize(size).Link(path), Current: size == clampSize(t.State.PageSize)})
	}
	v.Pager = p
	return v
}

// Summary is e.g. "Page 2 of 5".
func (p PagerView) Summary() string {
	if p.PageCount == 0 {
		return "No pages"
	}
	return "Page " + strconv.Itoa(p.Page) + " of " + strconv.Itoa(p.PageCount)
}
