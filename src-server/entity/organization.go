package entity

type Organization struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	Slug         string        `json:"slug"`
	ContactEmail string        `json:"contactEmail"`
	Active       bool          `json:"active"`
	Subscription *Subscription `json:"subscription,omitempty"`
}

type OrganizationRequest struct {
	Name         string `json:"name"`
	Slug         string `json:"slug"`
	ContactEmail string `json:"contactEmail"`
	Active       bool   `json:"active"`
}

type SubscriptionStatus string

const (
	SubscriptionActive    SubscriptionStatus = "ACTIVE"
	SubscriptionExpired   SubscriptionStatus = "EXPIRED"
	SubscriptionCancelled SubscriptionStatus = "CANCELLED"
)

type Subscription struct {
	ID             string             `json:"id"`
	OrganizationID string             `json:"organizationId"`
	Plan           string             `json:"plan"`
	StartDate      Date               `json:"startDate"`
	EndDate        Date               `json:"endDate"`
	Status         SubscriptionStatus `json:"status"`
}

type SubscriptionRequest struct {
	Plan      string `json:"plan"`
	StartDate Date   `json:"startDate"`
	EndDate   Date   `json:"endDate"`
}
