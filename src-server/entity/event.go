package entity

import "time"

type EventStatus string

const (
	EventStatusDraft     EventStatus = "DRAFT"
	EventStatusActive    EventStatus = "ACTIVE"
	EventStatusCompleted EventStatus = "COMPLETED"
	EventStatusCancelled EventStatus = "CANCELLED"
)

type Event struct {
	ID             string      `json:"id"`
	Name           string      `json:"name"`
	Description    string      `json:"description,omitempty"`
	Location       string      `json:"location,omitempty"`
	StartDate      Date        `json:"startDate"`
	EndDate        Date        `json:"endDate"`
	ArrivalTime    string      `json:"arrivalTime,omitempty"`   // HH:MM
	DepartureTime  string      `json:"departureTime,omitempty"` // HH:MM
	Status         EventStatus `json:"status"`
	OrganizationID string      `json:"organizationId"`
	CreatedAt      time.Time   `json:"createdAt"`
}

type EventRequest struct {
	Name          string `json:"name"`
	Description   string `json:"description,omitempty"`
	Location      string `json:"location,omitempty"`
	StartDate     Date   `json:"startDate"`
	EndDate       Date   `json:"endDate"`
	ArrivalTime   string `json:"arrivalTime,omitempty"`
	DepartureTime string `json:"departureTime,omitempty"`
}
