package jwt_test

import (
	"testing"
	"time"

	"attendex/src-server/jwt"

	gojwt "github.com/golang-jwt/jwt/v5"
)

func sign(t *testing.T, c gojwt.MapClaims) string {
	t.Helper()
	token, err := gojwt.NewWithClaims(gojwt.SigningMethodHS256, c).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatal(err)
	}
	return token
}

func TestDecode(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	token := sign(t, gojwt.MapClaims{
		"sub":                 "organizer@example.com",
		"organizationId":      "org-1",
		"forcePasswordChange": true,
		"roles":               []string{jwt.RoleOrganizer},
		"exp":                 exp.Unix(),
	})

	payload, err := jwt.Decode(token)
	if err != nil {
		t.Fatal(err)
	}
	if payload.Subject != "organizer@example.com" {
		t.Errorf("subject = %q", payload.Subject)
	}
	if payload.OrganizationID != "org-1" {
		t.Errorf("organizationId = %q", payload.OrganizationID)
	}
	if !payload.ForcePasswordChange {
		t.Error("forcePasswordChange should be true")
	}
	if !payload.HasRole(jwt.RoleOrganizer) || payload.HasRole(jwt.RoleAdmin) {
		t.Errorf("roles = %v", payload.Roles)
	}
	if !payload.ExpiresAt.Equal(exp) {
		t.Errorf("expiresAt = %v, want %v", payload.ExpiresAt, exp)
	}
	if payload.Expired(time.Now()) {
		t.Error("token should not be expired")
	}
	if !payload.Expired(exp.Add(time.Second)) {
		t.Error("token should be expired after exp")
	}
}

func TestDecodeSteward(t *testing.T) {
	payload, err := jwt.Decode("Bearer " + sign(t, gojwt.MapClaims{
		"sub":   "root",
		"roles": []string{jwt.RoleAdmin},
	}))
	if err != nil {
		t.Fatal(err)
	}
	if !payload.IsSteward() {
		t.Error("admin token without organization should be a steward")
	}
	if payload.Expired(time.Now()) {
		t.Error("token without exp never expires on the client")
	}
}

func TestDecodeInvalid(t *testing.T) {
	for name, token := range map[string]string{
		"blank":      "",
		"garbage":    "not-a-token",
		"no subject": sign(t, gojwt.MapClaims{"roles": []string{jwt.RoleAdmin}}),
	} {
		if _, err := jwt.Decode(token); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}
