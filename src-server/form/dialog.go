// Package form defines the create/edit dialogs of every page. A dialog
// validates submitted values synchronously and only then calls the caller's
// save function; it closes on submit whatever the network outcome, because
// failures reach the user through toasts.
package form

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"attendex/src-server/validate"
)

// Values are raw submitted form values keyed by field name.
type Values map[string]string

func (v Values) Get(name string) string {
	return strings.TrimSpace(v[name])
}

func (v Values) Bool(name string) bool {
	switch strings.ToLower(v.Get(name)) {
	case "on", "true", "1", "yes":
		return true
	}
	return false
}

// ValuesFromRequest reads the posted form fields listed in fields.
func ValuesFromRequest(r *http.Request, fields []Field) (Values, error) {
	if err := r.ParseForm(); err != nil {
		return nil, fmt.Errorf("ValuesFromRequest: %w", err)
	}
	values := Values{}
	for _, f := range fields {
		values[f.Name] = r.PostForm.Get(f.Name)
	}
	return values, nil
}

type FieldType string

const (
	TypeText     FieldType = "text"
	TypeTextarea FieldType = "textarea"
	TypeEmail    FieldType = "email"
	TypePassword FieldType = "password"
	TypeDate     FieldType = "date"
	TypeTime     FieldType = "time"
	TypeNumber   FieldType = "number"
	TypeSelect   FieldType = "select"
	TypeCheckbox FieldType = "checkbox"
)

type Option struct {
	Value string
	Label string
}

type Field struct {
	Name     string
	Label    string
	Type     FieldType
	Required bool
	Hint     string
	Options  []Option
}

// FieldView is one field ready to render.
type FieldView struct {
	Field
	Value   string
	Error   string
	Checked bool
}

type Dialog[In any] struct {
	Title       string
	Action      string
	SubmitLabel string
	Fields      []Field

	Open   bool
	Values Values
	Errors validate.Errors

	schema  *validate.Schema[Values]
	convert func(Values) (In, error)
}

func (d *Dialog[In]) Views() []FieldView {
	out := make([]FieldView, 0, len(d.Fields))
	for _, f := range d.Fields {
		v := FieldView{Field: f, Value: d.Values[f.Name], Error: d.Errors[f.Name]}
		if f.Type == TypeCheckbox {
			v.Checked = d.Values.Bool(f.Name)
		}
		out = append(out, v)
	}
	return out
}

// Validate runs the dialog's rules and converts values into the API request.
func (d *Dialog[In]) Validate(values Values) (In, error) {
	var in In
	if _, err := d.schema.Validate(values); err != nil {
		return in, err
	}
	in, err := d.convert(values)
	if err != nil {
		return in, err
	}
	return in, nil
}

// Submit validates values and, when they pass, closes the dialog and calls
// save. It reports whether save was called; saveErr is whatever save
// returned and is for logging only.
func (d *Dialog[In]) Submit(ctx context.Context, values Values, save func(context.Context, In) error) (submitted bool, saveErr error) {
	d.Values = values
	in, err := d.Validate(values)
	if err != nil {
		var errs validate.Errors
		if !errors.As(err, &errs) {
			errs = validate.Errors{"": err.Error()}
		}
		d.Errors = errs
		d.Open = true
		return false, nil
	}
	d.Errors = nil
	d.Open = false
	return true, save(ctx, in)
}

// FormError returns the message not tied to any field, if any.
func (d *Dialog[In]) FormError() string {
	return d.Errors[""]
}

// DialogView is a dialog ready to render, whatever its request type.
type DialogView struct {
	Title       string
	Action      string
	SubmitLabel string
	Open        bool
	Fields      []FieldView
	FormError   string
	Multipart   bool
	// Cancel is where the cancel link goes; empty closes the dialog in place.
	Cancel string
}

func (d *Dialog[In]) View() DialogView {
	return DialogView{
		Title:       d.Title,
		Action:      d.Action,
		SubmitLabel: d.SubmitLabel,
		Open:        d.Open,
		Fields:      d.Views(),
		FormError:   d.FormError(),
	}
}
