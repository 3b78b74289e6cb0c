package access_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"attendex/src-server/access"
	"attendex/src-server/jwt"
)

var now = time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC)

func payload(roles ...string) *jwt.Payload {
	return &jwt.Payload{Subject: "u-1", OrganizationID: "o-1", Roles: roles, ExpiresAt: now.Add(time.Hour)}
}

func TestDecide(t *testing.T) {
	p := access.Default()

	expired := payload(jwt.RoleOrganizer)
	expired.ExpiresAt = now.Add(-time.Second)
	forced := payload(jwt.RoleOrganizer)
	forced.ForcePasswordChange = true
	steward := &jwt.Payload{Subject: "s-1", Roles: []string{jwt.RoleAdmin}, ExpiresAt: now.Add(time.Hour)}
	scanner := payload(jwt.RoleScanner)

	cases := []struct {
		name    string
		path    string
		payload *jwt.Payload
		want    access.Decision
	}{
		{"public login", "/login", nil, access.Decision{Outcome: access.Allow}},
		{"static", "/static/app.css", nil, access.Decision{Outcome: access.Allow}},
		{"anonymous", "/dashboard", nil, access.Decision{Outcome: access.Redirect, Location: "/login"}},
		{"expired", "/dashboard/events/1", expired, access.Decision{Outcome: access.Redirect, Location: "/login?expired=1"}},
		{"forced change", "/dashboard", forced, access.Decision{Outcome: access.Redirect, Location: "/change-password"}},
		{"forced change page", "/change-password", forced, access.Decision{Outcome: access.Allow}},
		{"forced logout", "/logout", forced, access.Decision{Outcome: access.Allow}},
		{"organizer root", "/", payload(jwt.RoleOrganizer), access.Decision{Outcome: access.Redirect, Location: "/dashboard"}},
		{"steward root", "/", steward, access.Decision{Outcome: access.Redirect, Location: "/admin"}},
		{"organizer dashboard", "/dashboard/events/1/live", payload(jwt.RoleOrganizer), access.Decision{Outcome: access.Allow}},
		{"organizer in admin", "/admin/stewards", payload(jwt.RoleOrganizer), access.Decision{Outcome: access.Redirect, Location: "/dashboard"}},
		{"steward in dashboard", "/dashboard", steward, access.Decision{Outcome: access.Redirect, Location: "/admin"}},
		{"prefix is not substring", "/administrators", payload(jwt.RoleOrganizer), access.Decision{Outcome: access.Allow}},
		{"signed in login", "/login", payload(jwt.RoleOrganizer), access.Decision{Outcome: access.Redirect, Location: "/dashboard"}},
		{"scanner has no home", "/dashboard", scanner, access.Decision{Outcome: access.Forbidden}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := p.Decide(tc.path, tc.payload, now); got != tc.want {
				t.Fatalf("Decide(%q) = %+v, want %+v", tc.path, got, tc.want)
			}
		})
	}
}

func TestLoadOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.yaml")
	if err := os.WriteFile(path, []byte(`
login: /signin
changePassword: /password
public: [/signin]
home:
  - role: ROLE_ORGANIZER
    path: /events
rules:
  - prefix: /events
    roles: [ROLE_ORGANIZER]
`), 0o600); err != nil {
		t.Fatal(err)
	}
	p, err := access.Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if got := p.Decide("/events", nil, now); got.Location != "/signin" {
		t.Fatalf("anonymous redirect = %+v", got)
	}
	if got := p.Decide("/", payload(jwt.RoleOrganizer), now); got.Location != "/events" {
		t.Fatalf("home redirect = %+v", got)
	}
}

func TestParseRejectsIncompleteRules(t *testing.T) {
	if _, err := access.Parse([]byte("login: /login\nchangePassword: /pw\nrules:\n  - prefix: /x\n")); err == nil {
		t.Fatal("rule without roles accepted")
	}
	if _, err := access.Parse([]byte("changePassword: /pw\n")); err == nil {
		t.Fatal("policy without login accepted")
	}
}
