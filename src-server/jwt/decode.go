package jwt

import (
	"fmt"
	"strings"

	gojwt "github.com/golang-jwt/jwt/v5"
)

// Decode reads the payload of a bearer token without verifying its signature.
// The API verifies tokens on every request; the web tier only needs the claims
// to route the user.
func Decode(token string) (*Payload, error) {
	token = strings.TrimSpace(strings.TrimPrefix(token, "Bearer "))
	if token == "" {
		return nil, fmt.Errorf("Decode: token is blank")
	}

	var c claims
	if _, _, err := gojwt.NewParser().ParseUnverified(token, &c); err != nil {
		return nil, fmt.Errorf("Decode: %w", err)
	}
	if c.Subject == "" {
		return nil, fmt.Errorf("Decode: token has no subject")
	}

	payload := &Payload{
		Subject:             c.Subject,
		OrganizationID:      c.OrganizationID,
		ForcePasswordChange: c.ForcePasswordChange,
		Roles:               c.Roles,
	}
	if c.ExpiresAt != nil {
		payload.ExpiresAt = c.ExpiresAt.Time
	}
	if c.IssuedAt != nil {
		payload.IssuedAt = c.IssuedAt.Time
	}
	return payload, nil
}
