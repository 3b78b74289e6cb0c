// Package access decides, from the decoded bearer token alone, whether a
// request may reach its page or where it should be redirected instead.
package access

import (
	_ "embed"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"attendex/src-server/jwt"

	"gopkg.in/yaml.v3"
)

//go:embed policy.yaml
var defaultPolicy []byte

type Home struct {
	Role string `yaml:"role"`
	Path string `yaml:"path"`
}

type Rule struct {
	Prefix string   `yaml:"prefix"`
	Roles  []string `yaml:"roles"`
}

type Policy struct {
	Login                string   `yaml:"login"`
	ChangePassword       string   `yaml:"changePassword"`
	Public               []string `yaml:"public"`
	DuringPasswordChange []string `yaml:"duringPasswordChange"`
	Home                 []Home   `yaml:"home"`
	Rules                []Rule   `yaml:"rules"`
}

// Default returns the embedded policy.
func Default() *Policy {
	p, err := Parse(defaultPolicy)
	if err != nil {
		panic(fmt.Sprintf("access: embedded policy: %v", err))
	}
	return p
}

// Load reads the policy at path, or the embedded one when path is empty.
func Load(path string) (*Policy, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("Load: %w", err)
	}
	p, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("Load: %s: %w", path, err)
	}
	return p, nil
}

func Parse(data []byte) (*Policy, error) {
	p := new(Policy)
	if err := yaml.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("Parse: %w", err)
	}
	if p.Login == "" {
		return nil, fmt.Errorf("Parse: login path is required")
	}
	if p.ChangePassword == "" {
		return nil, fmt.Errorf("Parse: changePassword path is required")
	}
	for i, r := range p.Rules {
		if r.Prefix == "" || len(r.Roles) == 0 {
			return nil, fmt.Errorf("Parse: rule %d needs a prefix and at least one role", i)
		}
	}
	return p, nil
}

type Outcome int

const (
	Allow Outcome = iota
	Redirect
	Forbidden
)

type Decision struct {
	Outcome  Outcome
	Location string
}

func allow() Decision { return Decision{Outcome: Allow} }

func redirect(location string) Decision {
	return Decision{Outcome: Redirect, Location: location}
}

func matches(path, prefix string) bool {
	if prefix == "/" {
		return true
	}
	return path == prefix || strings.HasPrefix(path, strings.TrimSuffix(prefix, "/")+"/")
}

func matchesAny(path string, prefixes []string) bool {
	for _, prefix := range prefixes {
		if matches(path, prefix) {
			return true
		}
	}
	return false
}

// HomeFor returns the landing page of the first role in the home list that
// the token holds.
func (p *Policy) HomeFor(payload *jwt.Payload) (string, bool) {
	if payload == nil {
		return "", false
	}
	for _, h := range p.Home {
		if payload.HasRole(h.Role) {
			return h.Path, true
		}
	}
	return "", false
}

// LoginURL is the login page, flagged when the previous session expired.
func (p *Policy) LoginURL(expired bool) string {
	if !expired {
		return p.Login
	}
	return p.Login + "?" + url.Values{"expired": {"1"}}.Encode()
}

// Decide routes a request for path by a token payload, which is nil when no
// one is signed in.
func (p *Policy) Decide(path string, payload *jwt.Payload, now time.Time) Decision {
	signedIn := payload != nil && !payload.Expired(now)

	if matchesAny(path, p.Public) {
		// a signed-in user has no business on the login page
		if signedIn && path == p.Login && !payload.ForcePasswordChange {
			if home, ok := p.HomeFor(payload); ok {
				return redirect(home)
			}
		}
		return allow()
	}
	if payload == nil {
		return redirect(p.LoginURL(false))
	}
	if payload.Expired(now) {
		return redirect(p.LoginURL(true))
	}
	if payload.ForcePasswordChange {
		if matchesAny(path, p.DuringPasswordChange) {
			return allow()
		}
		return redirect(p.ChangePassword)
	}

	home, hasHome := p.HomeFor(payload)
	if path == "/" {
		if hasHome {
			return redirect(home)
		}
		return Decision{Outcome: Forbidden}
	}

	var rule *Rule
	for i := range p.Rules {
		r := &p.Rules[i]
		if matches(path, r.Prefix) && (rule == nil || len(r.Prefix) > len(rule.Prefix)) {
			rule = r
		}
	}
	if rule == nil {
		return allow()
	}
	for _, role := range rule.Roles {
		if payload.HasRole(role) {
			return allow()
		}
	}
	if hasHome && !matches(path, home) {
		return redirect(home)
	}
	return Decision{Outcome: Forbidden}
}
