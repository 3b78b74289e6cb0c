package datatable

import (
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

type Kind int

const (
	KindText Kind = iota
	KindNumber
	KindDate
	KindBadge
	KindSelect
	KindActions
)

func (k Kind) String() string {
	switch k {
	case KindNumber:
		return "number"
	case KindDate:
		return "date"
	case KindBadge:
		return "badge"
	case KindSelect:
		return "select"
	case KindActions:
		return "actions"
	}
	return "text"
}

// Tone colours a badge.
type Tone string

const (
	ToneNeutral Tone = "neutral"
	ToneSuccess Tone = "success"
	ToneWarning Tone = "warning"
	ToneDanger  Tone = "danger"
	ToneInfo    Tone = "info"
)

// Action is one per-row button. Method POST renders a form; GET renders a link.
type Action struct {
	Label   string
	Href    string
	Method  string
	Confirm string
	Danger  bool
}

// Cell is a formatted value ready for the template.
type Cell struct {
	Kind    Kind
	Text    string
	Tone    Tone
	Actions []Action
	RowID   string
	Checked bool
}

// Column describes one column. Build it with Text, Number, Date, Badge,
// Select or Actions, then chain Sortable and Filterable.
type Column[T any] struct {
	Key        string
	Header     string
	Kind       Kind
	sortable   bool
	filterable bool
	options    []string
	format     func(*formatter, T) Cell
}

func (c Column[T]) Sortable() Column[T] {
	c.sortable = true
	return c
}

// Filterable enables a filter input; with options it renders a select.
func (c Column[T]) Filterable(options ...string) Column[T] {
	c.filterable = true
	c.options = options
	return c
}

func (c Column[T]) IsSortable() bool   { return c.sortable && c.Key != "" }
func (c Column[T]) IsFilterable() bool { return c.filterable && c.Key != "" }

func Text[T any](key, header string, value func(T) string) Column[T] {
	return Column[T]{Key: key, Header: header, Kind: KindText, format: func(_ *formatter, row T) Cell {
		return Cell{Kind: KindText, Text: value(row)}
	}}
}

func Number[T any](key, header string, value func(T) int64) Column[T] {
	return Column[T]{Key: key, Header: header, Kind: KindNumber, format: func(f *formatter, row T) Cell {
		return Cell{Kind: KindNumber, Text: f.number(value(row))}
	}}
}

// Date formats with layout; zero times render empty.
func Date[T any](key, header, layout string, value func(T) time.Time) Column[T] {
	return Column[T]{Key: key, Header: header, Kind: KindDate, format: func(_ *formatter, row T) Cell {
		t := value(row)
		if t.IsZero() {
			return Cell{Kind: KindDate}
		}
		return Cell{Kind: KindDate, Text: t.Format(layout)}
	}}
}

// Badge renders an enum-like value title-cased ("CANCELLED" -> "Cancelled").
func Badge[T any](key, header string, value func(T) (string, Tone)) Column[T] {
	return Column[T]{Key: key, Header: header, Kind: KindBadge, format: func(f *formatter, row T) Cell {
		label, tone := value(row)
		return Cell{Kind: KindBadge, Text: f.title(label), Tone: tone}
	}}
}

// Select is the row checkbox column.
func Select[T any]() Column[T] {
	return Column[T]{Kind: KindSelect, format: func(*formatter, T) Cell {
		return Cell{Kind: KindSelect}
	}}
}

func Actions[T any](actions func(T) []Action) Column[T] {
	return Column[T]{Header: "", Kind: KindActions, format: func(_ *formatter, row T) Cell {
		return Cell{Kind: KindActions, Actions: actions(row)}
	}}
}

type formatter struct {
	printer *message.Printer
	caser   cases.Caser
}

func newFormatter(tag language.Tag) *formatter {
	return &formatter{printer: message.NewPrinter(tag), caser: cases.Title(tag)}
}

func (f *formatter) number(n int64) string {
	return f.printer.Sprintf("%d", n)
}

func (f *formatter) title(s string) string {
	return f.caser.String(strings.ReplaceAll(strings.ToLower(s), "_", " "))
}
