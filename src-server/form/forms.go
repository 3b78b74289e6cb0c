package form

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"attendex/src-server/entity"
	"attendex/src-server/validate"
)

var (
	identifierRe = regexp.MustCompile(`^[A-Za-z0-9._-]{1,64}$`)
	usernameRe   = regexp.MustCompile(`^[A-Za-z0-9._@-]{3,50}$`)
	slugRe       = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)
	clockRe      = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)
	attrNameRe   = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9 _-]{0,59}$`)
)

func get(name string) func(Values) string {
	return func(v Values) string { return v.Get(name) }
}

// password is never trimmed: surrounding spaces are part of the secret.
// A blank field means no password.
func password(v Values) string {
	if strings.TrimSpace(v["password"]) == "" {
		return ""
	}
	return v["password"]
}

func newDialog[In any](title, action, submit string, fields []Field, schema *validate.Schema[Values], convert func(Values) (In, error)) *Dialog[In] {
	return &Dialog[In]{
		Title:       title,
		Action:      action,
		SubmitLabel: submit,
		Fields:      fields,
		Values:      Values{},
		schema:      schema,
		convert:     convert,
	}
}

func verb(editing bool) (string, string) {
	if editing {
		return "Edit", "Save"
	}
	return "New", "Create"
}

// dateOrder reports whether end is on or after start. Unparseable values are
// left to the field rules.
func dateOrder(p *DateParser, startField, endField string) func(Values) bool {
	return func(v Values) bool {
		start, err1 := p.ParseDate(v.Get(startField))
		end, err2 := p.ParseDate(v.Get(endField))
		if err1 != nil || err2 != nil {
			return true
		}
		return !end.Before(start.Time)
	}
}

func EventDialog(p *DateParser, action string, existing *entity.Event) *Dialog[entity.EventRequest] {
	title, submit := verb(existing != nil)
	fields := []Field{
		{Name: "name", Label: "Name", Type: TypeText, Required: true},
		{Name: "description", Label: "Description", Type: TypeTextarea},
		{Name: "location", Label: "Location", Type: TypeText},
		{Name: "startDate", Label: "Start date", Type: TypeText, Required: true, Hint: "2025-03-10 or \"next monday\""},
		{Name: "endDate", Label: "End date", Type: TypeText, Required: true},
		{Name: "arrivalTime", Label: "Arrival time", Type: TypeTime, Hint: "HH:MM"},
		{Name: "departureTime", Label: "Departure time", Type: TypeTime, Hint: "HH:MM"},
	}
	schema := validate.New[Values]().
		Field("name", get("name"), validate.Required("Name is required"), validate.MaxLen(120, "Name must be at most 120 characters")).
		Field("description", get("description"), validate.MaxLen(1000, "Description must be at most 1000 characters")).
		Field("location", get("location"), validate.MaxLen(200, "Location must be at most 200 characters")).
		Field("startDate", get("startDate"), validate.Required("Start date is required"), validate.Check("Start date is not a valid date", p.check)).
		Field("endDate", get("endDate"), validate.Required("End date is required"), validate.Check("End date is not a valid date", p.check)).
		Field("arrivalTime", get("arrivalTime"), validate.Optional(validate.Matches(clockRe, "Arrival time must be HH:MM"))).
		Field("departureTime", get("departureTime"), validate.Optional(validate.Matches(clockRe, "Departure time must be HH:MM"))).
		Refine("endDate", "End date must be on or after the start date", dateOrder(p, "startDate", "endDate")).
		Refine("departureTime", "Departure time must be after arrival time on single-day events", func(v Values) bool {
			arrival, departure := v.Get("arrivalTime"), v.Get("departureTime")
			if arrival == "" || departure == "" {
				return true
			}
			start, err1 := p.ParseDate(v.Get("startDate"))
			end, err2 := p.ParseDate(v.Get("endDate"))
			if err1 != nil || err2 != nil || !start.Equal(end.Time) {
				return true
			}
			// HH:MM compares lexically
			return departure > arrival
		})

	d := newDialog(title+" event", action, submit, fields, schema, func(v Values) (entity.EventRequest, error) {
		start, err := p.ParseDate(v.Get("startDate"))
		if err != nil {
			return entity.EventRequest{}, validate.Errors{"startDate": "Start date is not a valid date"}
		}
		end, err := p.ParseDate(v.Get("endDate"))
		if err != nil {
			return entity.EventRequest{}, validate.Errors{"endDate": "End date is not a valid date"}
		}
		return entity.EventRequest{
			Name:          v.Get("name"),
			Description:   v.Get("description"),
			Location:      v.Get("location"),
			StartDate:     start,
			EndDate:       end,
			ArrivalTime:   v.Get("arrivalTime"),
			DepartureTime: v.Get("departureTime"),
		}, nil
	})
	if existing != nil {
		d.Values = Values{
			"name":          existing.Name,
			"description":   existing.Description,
			"location":      existing.Location,
			"startDate":     existing.StartDate.String(),
			"endDate":       existing.EndDate.String(),
			"arrivalTime":   existing.ArrivalTime,
			"departureTime": existing.DepartureTime,
		}
	}
	return d
}

func attributeFieldName(name string) string {
	return "attr." + name
}

// AttendeeDialog adds one field per organization attribute.
func AttendeeDialog(action string, attributes []entity.Attribute, existing *entity.Attendee) *Dialog[entity.AttendeeRequest] {
	title, submit := verb(existing != nil)
	fields := []Field{
		{Name: "identifier", Label: "Identifier", Type: TypeText, Required: true, Hint: "Badge or student number"},
		{Name: "firstName", Label: "First name", Type: TypeText, Required: true},
		{Name: "lastName", Label: "Last name", Type: TypeText, Required: true},
		{Name: "email", Label: "Email", Type: TypeEmail},
	}
	schema := validate.New[Values]().
		Field("identifier", get("identifier"), validate.Required("Identifier is required"), validate.Matches(identifierRe, "Identifier may only contain letters, digits, '.', '_' and '-'")).
		Field("firstName", get("firstName"), validate.Required("First name is required"), validate.MaxLen(100, "First name must be at most 100 characters")).
		Field("lastName", get("lastName"), validate.Required("Last name is required"), validate.MaxLen(100, "Last name must be at most 100 characters")).
		Field("email", get("email"), validate.Optional(validate.Email("Email is invalid")))

	for _, attr := range attributes {
		name := attributeFieldName(attr.Name)
		f := Field{Name: name, Label: attr.Name, Required: attr.Required}
		var rules []Rule
		switch attr.Type {
		case entity.AttributeTypeNumber:
			f.Type = TypeNumber
			rules = append(rules, validate.Optional(validate.Check(attr.Name+" must be a number", func(s string) error {
				_, err := strconv.ParseFloat(s, 64)
				return err
			})))
		case entity.AttributeTypeBoolean:
			f.Type = TypeCheckbox
		case entity.AttributeTypeSelect:
			f.Type = TypeSelect
			f.Options = []Option{{Value: "", Label: "(none)"}}
			for _, o := range attr.Options {
				f.Options = append(f.Options, Option{Value: o, Label: o})
			}
			rules = append(rules, validate.Optional(validate.OneOf(attr.Name+" must be one of the listed options", attr.Options...)))
		default:
			f.Type = TypeText
			rules = append(rules, validate.MaxLen(255, attr.Name+" must be at most 255 characters"))
		}
		if attr.Required && attr.Type != entity.AttributeTypeBoolean {
			rules = append([]Rule{validate.Required(attr.Name + " is required")}, rules...)
		}
		fields = append(fields, f)
		schema.Field(name, get(name), rules...)
	}

	d := newDialog(title+" attendee", action, submit, fields, schema, func(v Values) (entity.AttendeeRequest, error) {
		req := entity.AttendeeRequest{
			Identifier: v.Get("identifier"),
			FirstName:  v.Get("firstName"),
			LastName:   v.Get("lastName"),
			Email:      v.Get("email"),
		}
		for _, attr := range attributes {
			value := v.Get(attributeFieldName(attr.Name))
			if attr.Type == entity.AttributeTypeBoolean {
				value = strconv.FormatBool(v.Bool(attributeFieldName(attr.Name)))
			}
			if value == "" {
				continue
			}
			if req.Attributes == nil {
				req.Attributes = map[string]string{}
			}
			req.Attributes[attr.Name] = value
		}
		return req, nil
	})
	if existing != nil {
		d.Values = Values{
			"identifier": existing.Identifier,
			"firstName":  existing.FirstName,
			"lastName":   existing.LastName,
			"email":      existing.Email,
		}
		for k, v := range existing.Attributes {
			d.Values[attributeFieldName(k)] = v
		}
	}
	return d
}

// Rule is re-exported so attribute rules can be assembled here.
type Rule = validate.Rule

var attributeTypes = []string{
	string(entity.AttributeTypeText),
	string(entity.AttributeTypeNumber),
	string(entity.AttributeTypeBoolean),
	string(entity.AttributeTypeSelect),
}

func splitOptions(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func AttributeDialog(action string, existing *entity.Attribute) *Dialog[entity.AttributeRequest] {
	title, submit := verb(existing != nil)
	typeOptions := make([]Option, 0, len(attributeTypes))
	for _, t := range attributeTypes {
		typeOptions = append(typeOptions, Option{Value: t, Label: t})
	}
	fields := []Field{
		{Name: "name", Label: "Name", Type: TypeText, Required: true},
		{Name: "type", Label: "Type", Type: TypeSelect, Required: true, Options: typeOptions},
		{Name: "options", Label: "Options", Type: TypeText, Hint: "Comma separated, for SELECT attributes"},
		{Name: "required", Label: "Required", Type: TypeCheckbox},
	}
	schema := validate.New[Values]().
		Field("name", get("name"), validate.Required("Name is required"), validate.Matches(attrNameRe, "Name must start with a letter and be at most 60 characters")).
		Field("type", get("type"), validate.Required("Type is required"), validate.OneOf("Type is invalid", attributeTypes...)).
		Refine("options", "Select attributes need at least two options", func(v Values) bool {
			return v.Get("type") != string(entity.AttributeTypeSelect) || len(splitOptions(v.Get("options"))) >= 2
		})

	d := newDialog(title+" attribute", action, submit, fields, schema, func(v Values) (entity.AttributeRequest, error) {
		req := entity.AttributeRequest{
			Name:     v.Get("name"),
			Type:     entity.AttributeType(v.Get("type")),
			Required: v.Bool("required"),
		}
		if req.Type == entity.AttributeTypeSelect {
			req.Options = splitOptions(v.Get("options"))
		}
		return req, nil
	})
	if existing != nil {
		d.Values = Values{
			"name":     existing.Name,
			"type":     string(existing.Type),
			"options":  strings.Join(existing.Options, ", "),
			"required": strconv.FormatBool(existing.Required),
		}
	}
	return d
}

func passwordRules(editing bool) []Rule {
	minLen := validate.MinLen(8, "Password must be at least 8 characters")
	if editing {
		return []Rule{validate.Optional(minLen)}
	}
	return []Rule{validate.Required("Password is required"), minLen}
}

func OrganizerDialog(action string, existing *entity.Organizer) *Dialog[entity.OrganizerRequest] {
	editing := existing != nil
	title, submit := verb(editing)
	fields := []Field{
		{Name: "username", Label: "Username", Type: TypeText, Required: true},
		{Name: "firstName", Label: "First name", Type: TypeText, Required: true},
		{Name: "lastName", Label: "Last name", Type: TypeText, Required: true},
		{Name: "email", Label: "Email", Type: TypeEmail, Required: true},
		{Name: "password", Label: "Password", Type: TypePassword, Required: !editing},
	}
	if editing {
		fields[4].Hint = "Leave blank to keep the current password"
	}
	schema := validate.New[Values]().
		Field("username", get("username"), validate.Required("Username is required"), validate.Matches(usernameRe, "Username must be 3-50 letters, digits or . _ @ -")).
		Field("firstName", get("firstName"), validate.Required("First name is required")).
		Field("lastName", get("lastName"), validate.Required("Last name is required")).
		Field("email", get("email"), validate.Required("Email is required"), validate.Email("Email is invalid")).
		Field("password", get("password"), passwordRules(editing)...)

	d := newDialog(title+" organizer", action, submit, fields, schema, func(v Values) (entity.OrganizerRequest, error) {
		return entity.OrganizerRequest{
			Username:  v.Get("username"),
			FirstName: v.Get("firstName"),
			LastName:  v.Get("lastName"),
			Email:     v.Get("email"),
			Password:  password(v),
		}, nil
	})
	if editing {
		d.Values = Values{
			"username":  existing.Username,
			"firstName": existing.FirstName,
			"lastName":  existing.LastName,
			"email":     existing.Email,
		}
	}
	return d
}

func ScannerDialog(action string, events []entity.Event, existing *entity.Scanner) *Dialog[entity.ScannerRequest] {
	editing := existing != nil
	title, submit := verb(editing)
	eventOptions := []Option{{Value: "", Label: "Any event"}}
	for _, e := range events {
		eventOptions = append(eventOptions, Option{Value: e.ID, Label: e.Name})
	}
	fields := []Field{
		{Name: "name", Label: "Name", Type: TypeText, Required: true, Hint: "e.g. Main entrance"},
		{Name: "username", Label: "Username", Type: TypeText, Required: true},
		{Name: "password", Label: "Password", Type: TypePassword, Required: !editing},
		{Name: "eventId", Label: "Event", Type: TypeSelect, Options: eventOptions},
		{Name: "enabled", Label: "Enabled", Type: TypeCheckbox},
	}
	schema := validate.New[Values]().
		Field("name", get("name"), validate.Required("Name is required"), validate.MaxLen(80, "Name must be at most 80 characters")).
		Field("username", get("username"), validate.Required("Username is required"), validate.Matches(usernameRe, "Username must be 3-50 letters, digits or . _ @ -")).
		Field("password", get("password"), passwordRules(editing)...)

	d := newDialog(title+" scanner", action, submit, fields, schema, func(v Values) (entity.ScannerRequest, error) {
		return entity.ScannerRequest{
			Name:     v.Get("name"),
			Username: v.Get("username"),
			Password: password(v),
			EventID:  v.Get("eventId"),
			Enabled:  v.Bool("enabled"),
		}, nil
	})
	d.Values = Values{"enabled": "true"}
	if editing {
		d.Values = Values{
			"name":     existing.Name,
			"username": existing.Username,
			"eventId":  existing.EventID,
			"enabled":  strconv.FormatBool(existing.Enabled),
		}
	}
	return d
}

func OrganizationDialog(action string, existing *entity.Organization) *Dialog[entity.OrganizationRequest] {
	title, submit := verb(existing != nil)
	fields := []Field{
		{Name: "name", Label: "Name", Type: TypeText, Required: true},
		{Name: "slug", Label: "Slug", Type: TypeText, Required: true, Hint: "lowercase-with-dashes"},
		{Name: "contactEmail", Label: "Contact email", Type: TypeEmail, Required: true},
		{Name: "active", Label: "Active", Type: TypeCheckbox},
	}
	schema := validate.New[Values]().
		Field("name", get("name"), validate.Required("Name is required"), validate.MaxLen(120, "Name must be at most 120 characters")).
		Field("slug", get("slug"), validate.Required("Slug is required"), validate.Matches(slugRe, "Slug may only contain lowercase letters, digits and single dashes")).
		Field("contactEmail", get("contactEmail"), validate.Required("Contact email is required"), validate.Email("Contact email is invalid"))

	d := newDialog(title+" organization", action, submit, fields, schema, func(v Values) (entity.OrganizationRequest, error) {
		return entity.OrganizationRequest{
			Name:         v.Get("name"),
			Slug:         v.Get("slug"),
			ContactEmail: v.Get("contactEmail"),
			Active:       v.Bool("active"),
		}, nil
	})
	d.Values = Values{"active": "true"}
	if existing != nil {
		d.Values = Values{
			"name":         existing.Name,
			"slug":         existing.Slug,
			"contactEmail": existing.ContactEmail,
			"active":       strconv.FormatBool(existing.Active),
		}
	}
	return d
}

var subscriptionPlans = []string{"BASIC", "STANDARD", "PREMIUM"}

func SubscriptionDialog(p *DateParser, action string, existing *entity.Subscription) *Dialog[entity.SubscriptionRequest] {
	title, submit := verb(existing != nil)
	planOptions := make([]Option, 0, len(subscriptionPlans))
	for _, plan := range subscriptionPlans {
		planOptions = append(planOptions, Option{Value: plan, Label: plan})
	}
	fields := []Field{
		{Name: "plan", Label: "Plan", Type: TypeSelect, Required: true, Options: planOptions},
		{Name: "startDate", Label: "Start date", Type: TypeText, Required: true},
		{Name: "endDate", Label: "End date", Type: TypeText, Required: true},
	}
	schema := validate.New[Values]().
		Field("plan", get("plan"), validate.Required("Plan is required"), validate.OneOf("Plan is invalid", subscriptionPlans...)).
		Field("startDate", get("startDate"), validate.Required("Start date is required"), validate.Check("Start date is not a valid date", p.check)).
		Field("endDate", get("endDate"), validate.Required("End date is required"), validate.Check("End date is not a valid date", p.check)).
		Refine("endDate", "End date must be on or after the start date", dateOrder(p, "startDate", "endDate"))

	d := newDialog(title+" subscription", action, submit, fields, schema, func(v Values) (entity.SubscriptionRequest, error) {
		start, err := p.ParseDate(v.Get("startDate"))
		if err != nil {
			return entity.SubscriptionRequest{}, fmt.Errorf("startDate: %w", err)
		}
		end, err := p.ParseDate(v.Get("endDate"))
		if err != nil {
			return entity.SubscriptionRequest{}, fmt.Errorf("endDate: %w", err)
		}
		return entity.SubscriptionRequest{Plan: v.Get("plan"), StartDate: start, EndDate: end}, nil
	})
	if existing != nil {
		d.Values = Values{
			"plan":      existing.Plan,
			"startDate": existing.StartDate.String(),
			"endDate":   existing.EndDate.String(),
		}
	}
	return d
}

func StewardDialog(action string, existing *entity.Steward) *Dialog[entity.StewardRequest] {
	editing := existing != nil
	title, submit := verb(editing)
	fields := []Field{
		{Name: "username", Label: "Username", Type: TypeText, Required: true},
		{Name: "email", Label: "Email", Type: TypeEmail, Required: true},
		{Name: "firstName", Label: "First name", Type: TypeText, Required: true},
		{Name: "lastName", Label: "Last name", Type: TypeText, Required: true},
		{Name: "password", Label: "Password", Type: TypePassword, Required: !editing},
	}
	schema := validate.New[Values]().
		Field("username", get("username"), validate.Required("Username is required"), validate.Matches(usernameRe, "Username must be 3-50 letters, digits or . _ @ -")).
		Field("email", get("email"), validate.Required("Email is required"), validate.Email("Email is invalid")).
		Field("firstName", get("firstName"), validate.Required("First name is required")).
		Field("lastName", get("lastName"), validate.Required("Last name is required")).
		Field("password", get("password"), passwordRules(editing)...)

	d := newDialog(title+" steward", action, submit, fields, schema, func(v Values) (entity.StewardRequest, error) {
		return entity.StewardRequest{
			Username:  v.Get("username"),
			Email:     v.Get("email"),
			FirstName: v.Get("firstName"),
			LastName:  v.Get("lastName"),
			Password:  password(v),
		}, nil
	})
	if editing {
		d.Values = Values{
			"username":  existing.Username,
			"email":     existing.Email,
			"firstName": existing.FirstName,
			"lastName":  existing.LastName,
		}
	}
	return d
}

// RecoverDialog assigns an orphaned scan to an attendee identifier.
func RecoverDialog(action string, orphan entity.OrphanedEntry) *Dialog[string] {
	fields := []Field{
		{Name: "identifier", Label: "Attendee identifier", Type: TypeText, Required: true,
			Hint: fmt.Sprintf("Scanned as %q at %s", orphan.Identifier, orphan.ScannedAt.Format(time.DateTime))},
	}
	schema := validate.New[Values]().
		Field("identifier", get("identifier"), validate.Required("Identifier is required"), validate.Matches(identifierRe, "Identifier may only contain letters, digits, '.', '_' and '-'"))
	d := newDialog("Recover entry", action, "Recover", fields, schema, func(v Values) (string, error) {
		return v.Get("identifier"), nil
	})
	d.Values = Values{"identifier": orphan.Identifier}
	return d
}

func LoginDialog(action string) *Dialog[entity.LoginRequest] {
	fields := []Field{
		{Name: "username", Label: "Username", Type: TypeText, Required: true},
		{Name: "password", Label: "Password", Type: TypePassword, Required: true},
	}
	schema := validate.New[Values]().
		Field("username", get("username"), validate.Required("Username is required")).
		Field("password", get("password"), validate.Required("Password is required"))
	d := newDialog("Sign in", action, "Sign in", fields, schema, func(v Values) (entity.LoginRequest, error) {
		return entity.LoginRequest{Username: v.Get("username"), Password: v["password"]}, nil
	})
	d.Open = true
	return d
}

func ChangePasswordDialog(action string) *Dialog[entity.ChangePasswordRequest] {
	fields := []Field{
		{Name: "currentPassword", Label: "Current password", Type: TypePassword, Required: true},
		{Name: "newPassword", Label: "New password", Type: TypePassword, Required: true},
		{Name: "confirmPassword", Label: "Confirm new password", Type: TypePassword, Required: true},
	}
	schema := validate.New[Values]().
		Field("currentPassword", get("currentPassword"), validate.Required("Current password is required")).
		Field("newPassword", get("newPassword"), validate.Required("New password is required"), validate.MinLen(8, "Password must be at least 8 characters")).
		Field("confirmPassword", get("confirmPassword"), validate.Required("Please confirm the new password")).
		Refine("confirmPassword", "Passwords do not match", func(v Values) bool {
			return v["newPassword"] == v["confirmPassword"]
		}).
		Refine("newPassword", "New password must differ from the current one", func(v Values) bool {
			return v["newPassword"] != v["currentPassword"]
		})
	d := newDialog("Change password", action, "Change password", fields, schema, func(v Values) (entity.ChangePasswordRequest, error) {
		return entity.ChangePasswordRequest{CurrentPassword: v["currentPassword"], NewPassword: v["newPassword"]}, nil
	})
	d.Open = true
	return d
}
