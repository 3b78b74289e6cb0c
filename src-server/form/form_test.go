package form_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"attendex/src-server/entity"
	"attendex/src-server/form"
	"attendex/src-server/validate"
)

func parser() *form.DateParser {
	now := time.Date(2025, time.March, 5, 9, 30, 0, 0, time.UTC)
	return form.NewDateParser(time.UTC).WithClock(func() time.Time { return now })
}

func TestEventDialogEndBeforeStart(t *testing.T) {
	d := form.EventDialog(parser(), "/dashboard/events", nil)
	called := false
	submitted, err := d.Submit(context.Background(), form.Values{
		"name":      "Orientation",
		"startDate": "2025-03-10",
		"endDate":   "2025-03-05",
	}, func(context.Context, entity.EventRequest) error {
		called = true
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if submitted || called {
		t.Fatal("save called for an invalid event")
	}
	if got := d.Errors["endDate"]; got != "End date must be on or after the start date" {
		t.Fatalf("endDate error = %q", got)
	}
	if len(d.Errors) != 1 {
		t.Fatalf("errors = %v, want only endDate", d.Errors)
	}
	if !d.Open {
		t.Fatal("dialog closed on validation failure")
	}
}

func TestEventDialogSubmit(t *testing.T) {
	d := form.EventDialog(parser(), "/dashboard/events", nil)
	var got entity.EventRequest
	saveErr := errors.New("API down")
	submitted, err := d.Submit(context.Background(), form.Values{
		"name":        "Orientation",
		"startDate":   "tomorrow",
		"endDate":     "2025-03-07",
		"arrivalTime": "08:00",
	}, func(_ context.Context, in entity.EventRequest) error {
		got = in
		return saveErr
	})
	if !submitted {
		t.Fatalf("not submitted: %v", d.Errors)
	}
	if !errors.Is(err, saveErr) {
		t.Fatalf("err = %v, want save error passed through", err)
	}
	if d.Open {
		t.Fatal("dialog stays open after submit")
	}
	if got.StartDate.String() != "2025-03-06" || got.EndDate.String() != "2025-03-07" {
		t.Fatalf("dates = %s..%s", got.StartDate, got.EndDate)
	}
	if got.ArrivalTime != "08:00" {
		t.Fatalf("arrival = %q", got.ArrivalTime)
	}
}

func TestEventDialogBadTimes(t *testing.T) {
	d := form.EventDialog(parser(), "", nil)
	_, err := d.Validate(form.Values{
		"name":          "Assembly",
		"startDate":     "2025-03-10",
		"endDate":       "2025-03-10",
		"arrivalTime":   "09:00",
		"departureTime": "08:30",
	})
	if err == nil {
		t.Fatal("expected departure before arrival to fail")
	}
	_, err = d.Validate(form.Values{
		"name":        "Assembly",
		"startDate":   "2025-03-10",
		"endDate":     "2025-03-10",
		"arrivalTime": "25:00",
	})
	if err == nil {
		t.Fatal("expected 25:00 to fail")
	}
}

func TestAttendeeDialogRequiresFirstName(t *testing.T) {
	attrs := []entity.Attribute{
		{Name: "Grade", Type: entity.AttributeTypeSelect, Options: []string{"10", "11", "12"}, Required: true},
		{Name: "Boarder", Type: entity.AttributeTypeBoolean},
	}
	d := form.AttendeeDialog("/x", attrs, nil)
	called := false
	save := func(context.Context, entity.AttendeeRequest) error {
		called = true
		return nil
	}
	submitted, _ := d.Submit(context.Background(), form.Values{
		"identifier": "S-1001",
		"firstName":  "",
		"lastName":   "Reyes",
		"attr.Grade": "11",
	}, save)
	if submitted || called {
		t.Fatal("save called with empty first name")
	}
	if d.Errors["firstName"] == "" {
		t.Fatalf("errors = %v, want firstName", d.Errors)
	}

	var got entity.AttendeeRequest
	submitted, _ = d.Submit(context.Background(), form.Values{
		"identifier":   "S-1001",
		"firstName":    "Ana",
		"lastName":     "Reyes",
		"attr.Grade":   "11",
		"attr.Boarder": "on",
	}, func(_ context.Context, in entity.AttendeeRequest) error {
		got = in
		return nil
	})
	if !submitted {
		t.Fatalf("not submitted: %v", d.Errors)
	}
	if got.Attributes["Grade"] != "11" || got.Attributes["Boarder"] != "true" {
		t.Fatalf("attributes = %v", got.Attributes)
	}
}

func TestAttendeeDialogSelectOption(t *testing.T) {
	attrs := []entity.Attribute{{Name: "Grade", Type: entity.AttributeTypeSelect, Options: []string{"10", "11"}}}
	d := form.AttendeeDialog("/x", attrs, nil)
	_, err := d.Validate(form.Values{"identifier": "S-1", "firstName": "A", "lastName": "B", "attr.Grade": "9"})
	if err == nil {
		t.Fatal("expected unknown option to fail")
	}
}

func TestPasswordOnlyRequiredOnCreate(t *testing.T) {
	values := form.Values{"username": "jdoe", "firstName": "J", "lastName": "Doe", "email": "j@example.com"}

	if _, err := form.OrganizerDialog("/x", nil).Validate(values); err == nil {
		t.Fatal("create without password should fail")
	}
	if _, err := form.OrganizerDialog("/x", &entity.Organizer{ID: "1"}).Validate(values); err != nil {
		t.Fatalf("edit without password: %v", err)
	}
	values["password"] = "short"
	if _, err := form.OrganizerDialog("/x", &entity.Organizer{ID: "1"}).Validate(values); err == nil {
		t.Fatal("short password accepted on edit")
	}
}

func TestPasswordsAreNotTrimmed(t *testing.T) {
	values := form.Values{"username": "jdoe", "firstName": "J", "lastName": "Doe", "email": "j@example.com", "password": "  open sesame "}

	organizer, err := form.OrganizerDialog("/x", nil).Validate(values)
	if err != nil {
		t.Fatal(err)
	}
	if organizer.Password != "  open sesame " {
		t.Errorf("organizer password = %q", organizer.Password)
	}
	if organizer.Username != "jdoe" {
		t.Errorf("username = %q", organizer.Username)
	}

	steward, err := form.StewardDialog("/x", nil).Validate(values)
	if err != nil {
		t.Fatal(err)
	}
	if steward.Password != "  open sesame " {
		t.Errorf("steward password = %q", steward.Password)
	}

	// case: a blank password on edit keeps the current one
	values["password"] = "   "
	organizer, err = form.OrganizerDialog("/x", &entity.Organizer{ID: "1"}).Validate(values)
	if err != nil {
		t.Fatal(err)
	}
	if organizer.Password != "" {
		t.Errorf("blank password sent as %q", organizer.Password)
	}
}

func TestAttributeDialogSelectNeedsOptions(t *testing.T) {
	d := form.AttributeDialog("/x", nil)
	if _, err := d.Validate(form.Values{"name": "Grade", "type": "SELECT", "options": "10"}); err == nil {
		t.Fatal("select with one option accepted")
	}
	in, err := d.Validate(form.Values{"name": "Grade", "type": "SELECT", "options": "10, 11 ,,12"})
	if err != nil {
		t.Fatal(err)
	}
	if len(in.Options) != 3 {
		t.Fatalf("options = %q", in.Options)
	}
}

func TestChangePasswordDialog(t *testing.T) {
	d := form.ChangePasswordDialog("/change-password")
	_, err := d.Validate(form.Values{"currentPassword": "old-secret", "newPassword": "new-secret", "confirmPassword": "new-secre"})
	var errs validate.Errors
	if !errors.As(err, &errs) || errs["confirmPassword"] != "Passwords do not match" {
		t.Fatalf("err = %v, want confirmPassword mismatch", err)
	}
}

func TestViewsKeepValuesAndErrors(t *testing.T) {
	d := form.OrganizationDialog("/admin", nil)
	d.Submit(context.Background(), form.Values{"name": "Springfield High", "slug": "Bad Slug", "contactEmail": "a@b.co", "active": "on"},
		func(context.Context, entity.OrganizationRequest) error { return nil })
	for _, v := range d.Views() {
		switch v.Name {
		case "slug":
			if v.Value != "Bad Slug" || v.Error == "" {
				t.Fatalf("slug view = %+v", v)
			}
		case "active":
			if !v.Checked {
				t.Fatal("active not checked")
			}
		}
	}
}

func TestDateParser(t *testing.T) {
	p := parser()
	cases := map[string]string{
		"2025-04-01":       "2025-04-01",
		"2025-04-01 18:00": "2025-04-01",
		"tomorrow":         "2025-03-06",
	}
	for in, want := range cases {
		got, err := p.ParseDate(in)
		if err != nil {
			t.Fatalf("ParseDate(%q): %v", in, err)
		}
		if got.String() != want {
			t.Fatalf("ParseDate(%q) = %s, want %s", in, got, want)
		}
	}
	if _, err := p.ParseDate("whenever"); err == nil {
		t.Fatal("expected gibberish to fail")
	}
}
