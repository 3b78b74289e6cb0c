package validate_test

import (
	"errors"
	"regexp"
	"strings"
	"testing"

	"attendex/src-server/validate"
)

type person struct {
	FirstName string
	Email     string
	Code      string
	Password  string
	Confirm   string
}

var schema = validate.New[person]().
	Field("firstName", func(p person) string { return p.FirstName },
		validate.Required("First name is required"),
		validate.MaxLen(5, "First name is too long")).
	Field("email", func(p person) string { return p.Email },
		validate.Optional(validate.Email("Email is invalid"))).
	Field("code", func(p person) string { return p.Code },
		validate.Optional(validate.Matches(regexp.MustCompile(`^[A-Z]{2}\d+$`), "Code is invalid"))).
	Refine("confirm", "Passwords do not match", func(p person) bool { return p.Password == p.Confirm })

func TestValidate(t *testing.T) {
	cases := []struct {
		name string
		in   person
		want validate.Errors
	}{
		{"valid", person{FirstName: "Ann", Email: "ann@example.com", Code: "AB12"}, nil},
		{"blank optional fields", person{FirstName: "Ann"}, nil},
		{"required", person{FirstName: "  "}, validate.Errors{"firstName": "First name is required"}},
		{"first rule wins", person{FirstName: "Annabelle"}, validate.Errors{"firstName": "First name is too long"}},
		{"email", person{FirstName: "Ann", Email: "Ann <ann@example.com>"}, validate.Errors{"email": "Email is invalid"}},
		{"regex", person{FirstName: "Ann", Code: "ab"}, validate.Errors{"code": "Code is invalid"}},
		{"refinement", person{FirstName: "Ann", Password: "a", Confirm: "b"}, validate.Errors{"confirm": "Passwords do not match"}},
		{"refinement waits for fields", person{Password: "a", Confirm: "b"}, validate.Errors{"firstName": "First name is required"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := schema.Validate(tc.in)
			if tc.want == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			var errs validate.Errors
			if !errors.As(err, &errs) {
				t.Fatalf("err = %v, want validate.Errors", err)
			}
			if len(errs) != len(tc.want) {
				t.Fatalf("errs = %v, want %v", errs, tc.want)
			}
			for k, v := range tc.want {
				if errs[k] != v {
					t.Errorf("errs[%q] = %q, want %q", k, errs[k], v)
				}
			}
		})
	}
}

func TestErrorsMessageIsStable(t *testing.T) {
	err := validate.Errors{"b": "two", "a": "one"}
	if got := err.Error(); !strings.HasPrefix(got, "validation failed: a: one; b: two") {
		t.Errorf("Error() = %q", got)
	}
}

func TestOneOf(t *testing.T) {
	rule := validate.OneOf("bad", "TEXT", "NUMBER")
	if _, ok := rule("NUMBER"); !ok {
		t.Error("NUMBER should pass")
	}
	if msg, ok := rule("DATE"); ok || msg != "bad" {
		t.Error("DATE should fail")
	}
}
