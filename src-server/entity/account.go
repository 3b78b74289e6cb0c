package entity

import "time"

type Organizer struct {
	ID             string `json:"id"`
	Username       string `json:"username"`
	FirstName      string `json:"firstName"`
	LastName       string `json:"lastName"`
	Email          string `json:"email"`
	OrganizationID string `json:"organizationId"`
	Enabled        bool   `json:"enabled"`
}

type OrganizerRequest struct {
	Username  string `json:"username"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Password  string `json:"password,omitempty"`
}

type Scanner struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Username   string     `json:"username"`
	EventID    string     `json:"eventId,omitempty"`
	Enabled    bool       `json:"enabled"`
	LastSeenAt *time.Time `json:"lastSeenAt,omitempty"`
}

type ScannerRequest struct {
	Name     string `json:"name"`
	Username string `json:"username"`
	Password string `json:"password,omitempty"`
	EventID  string `json:"eventId,omitempty"`
	Enabled  bool   `json:"enabled"`
}

// ScannerCredentials is returned once when a scanner password is reset.
type ScannerCredentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Steward is a platform-level administrator account.
type Steward struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

type StewardRequest struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Password  string `json:"password,omitempty"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type TokenResponse struct {
	Token string `json:"token"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}
