// Package validate declares form rules as data and checks a value against
// them before anything is sent to the API.
//
//	schema := validate.New[EventInput]().
//		Field("name", func(in EventInput) string { return in.Name }, validate.Required("Name is required")).
//		Refine("endDate", "End date must be on or after start date", endAfterStart)
//	in, err := schema.Validate(input)
package validate

import (
	"fmt"
	"maps"
	"net/mail"
	"regexp"
	"slices"
	"sort"
	"strings"
	"unicode/utf8"
)

// Errors maps a field name to its first failing message.
type Errors map[string]string

func (e Errors) Error() string {
	fields := slices.Collect(maps.Keys(e))
	sort.Strings(fields)
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, fmt.Sprintf("%s: %s", f, e[f]))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Rule checks one string value and returns a message when it fails.
type Rule func(value string) (message string, ok bool)

type field[T any] struct {
	name  string
	get   func(T) string
	rules []Rule
}

type refinement[T any] struct {
	field   string
	message string
	ok      func(T) bool
}

type Schema[T any] struct {
	fields      []field[T]
	refinements []refinement[T]
}

func New[T any]() *Schema[T] {
	return &Schema[T]{}
}

// Field adds rules for one field. Rules run in order; the first failure wins.
func (s *Schema[T]) Field(name string, get func(T) string, rules ...Rule) *Schema[T] {
	s.fields = append(s.fields, field[T]{name: name, get: get, rules: rules})
	return s
}

// Refine adds a cross-field check reported on field. Refinements only run
// once every field rule passes.
func (s *Schema[T]) Refine(field, message string, ok func(T) bool) *Schema[T] {
	s.refinements = append(s.refinements, refinement[T]{field: field, message: message, ok: ok})
	return s
}

// Validate returns v unchanged, or an Errors value listing each failing field.
func (s *Schema[T]) Validate(v T) (T, error) {
	errs := Errors{}
	for _, f := range s.fields {
		value := f.get(v)
		for _, rule := range f.rules {
			if msg, ok := rule(value); !ok {
				errs[f.name] = msg
				break
			}
		}
	}
	if len(errs) == 0 {
		for _, r := range s.refinements {
			if _, failed := errs[r.field]; failed {
				continue
			}
			if !r.ok(v) {
				errs[r.field] = r.message
			}
		}
	}
	if len(errs) > 0 {
		return v, errs
	}
	return v, nil
}

func Required(message string) Rule {
	return func(value string) (string, bool) {
		return message, strings.TrimSpace(value) != ""
	}
}

func MinLen(n int, message string) Rule {
	return func(value string) (string, bool) {
		return message, utf8.RuneCountInString(strings.TrimSpace(value)) >= n
	}
}

func MaxLen(n int, message string) Rule {
	return func(value string) (string, bool) {
		return message, utf8.RuneCountInString(strings.TrimSpace(value)) <= n
	}
}

func Matches(re *regexp.Regexp, message string) Rule {
	return func(value string) (string, bool) {
		return message, re.MatchString(strings.TrimSpace(value))
	}
}

func Email(message string) Rule {
	return func(value string) (string, bool) {
		value = strings.TrimSpace(value)
		addr, err := mail.ParseAddress(value)
		return message, err == nil && addr.Address == value
	}
}

func OneOf(message string, allowed ...string) Rule {
	return func(value string) (string, bool) {
		return message, slices.Contains(allowed, strings.TrimSpace(value))
	}
}

// Check adapts a parse function into a rule.
func Check(message string, parse func(string) error) Rule {
	return func(value string) (string, bool) {
		return message, parse(strings.TrimSpace(value)) == nil
	}
}

// Optional skips rules when the value is blank.
func Optional(rules ...Rule) Rule {
	return func(value string) (string, bool) {
		if strings.TrimSpace(value) == "" {
			return "", true
		}
		for _, rule := range rules {
			if msg, ok := rule(value); !ok {
				return msg, false
			}
		}
		return "", true
	}
}
