package jwt

import (
	"slices"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
)

const (
	RoleAdmin     = "ROLE_ADMIN"
	RoleOrganizer = "ROLE_ORGANIZER"
	RoleScanner   = "ROLE_SCANNER"
)

// Payload is the decoded body of a bearer token issued by the API.
type Payload struct {
	Subject             string    `json:"sub"`
	OrganizationID      string    `json:"organizationId,omitempty"` // empty for stewards
	ForcePasswordChange bool      `json:"forcePasswordChange"`
	Roles               []string  `json:"roles"`
	ExpiresAt           time.Time `json:"-"`
	IssuedAt            time.Time `json:"-"`
}

func (p *Payload) Expired(now time.Time) bool {
	return !p.ExpiresAt.IsZero() && !now.Before(p.ExpiresAt)
}

func (p *Payload) HasRole(role string) bool {
	return slices.Contains(p.Roles, role)
}

// IsSteward reports whether the token belongs to a platform administrator.
func (p *Payload) IsSteward() bool {
	return p.HasRole(RoleAdmin) && p.OrganizationID == ""
}

type claims struct {
	gojwt.RegisteredClaims
	OrganizationID      string   `json:"organizationId,omitempty"`
	ForcePasswordChange bool     `json:"forcePasswordChange"`
	Roles               []string `json:"roles"`
}
