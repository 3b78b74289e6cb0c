package resource

import (
	"context"
	"fmt"
	"net/http"

	"attendex/src-server/apiclient"
	"attendex/src-server/entity"
)

// Auth wraps the token endpoints. These calls are never cached.
type Auth struct {
	client *apiclient.Client
}

func NewAuth(client *apiclient.Client) *Auth {
	return &Auth{client: client}
}

func (a *Auth) Login(ctx context.Context, username, password string) (string, error) {
	var out entity.TokenResponse
	if err := a.client.Do(ctx, apiclient.Request{
		Method: http.MethodPost,
		Path:   "/api/v1/auth/login",
		Body:   entity.LoginRequest{Username: username, Password: password},
	}, &out); err != nil {
		return "", fmt.Errorf("(*Auth).Login: %w", err)
	}
	if out.Token == "" {
		return "", fmt.Errorf("(*Auth).Login: api returned no token")
	}
	return out.Token, nil
}

// ChangePassword returns the replacement token; the old one carries the
// forcePasswordChange claim.
func (a *Auth) ChangePassword(ctx context.Context, token, current, next string) (string, error) {
	var out entity.TokenResponse
	if err := a.client.Do(ctx, apiclient.Request{
		Method: http.MethodPost,
		Path:   "/api/v1/auth/change-password",
		Body:   entity.ChangePasswordRequest{CurrentPassword: current, NewPassword: next},
		Token:  token,
	}, &out); err != nil {
		return "", fmt.Errorf("(*Auth).ChangePassword: %w", err)
	}
	if out.Token == "" {
		return token, nil
	}
	return out.Token, nil
}

func (a *Auth) Logout(ctx context.Context, token string) error {
	if err := a.client.Do(ctx, apiclient.Request{
		Method: http.MethodPost,
		Path:   "/api/v1/auth/logout",
		Token:  token,
	}, nil); err != nil {
		return fmt.Errorf("(*Auth).Logout: %w", err)
	}
	return nil
}
