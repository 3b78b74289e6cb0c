package entity

import "time"

type Direction string

const (
	DirectionArrival   Direction = "ARRIVAL"
	DirectionDeparture Direction = "DEPARTURE"
)

// OrphanedEntry is a scan that could not be matched to an active event or
// attendee at capture time.
type OrphanedEntry struct {
	ID         string    `json:"id"`
	EventID    string    `json:"eventId,omitempty"`
	Identifier string    `json:"identifier"`
	ScannedAt  time.Time `json:"scannedAt"`
	ScannerID  string    `json:"scannerId"`
	Direction  Direction `json:"direction"`
	Reason     string    `json:"reason,omitempty"`
}

type RecoverRequest struct {
	EventID    string `json:"eventId"`
	Identifier string `json:"identifier"`
}

type AttendanceRecord struct {
	AttendeeID  string     `json:"attendeeId"`
	Identifier  string     `json:"identifier"`
	Name        string     `json:"name"`
	ArrivedAt   *time.Time `json:"arrivedAt,omitempty"`
	DepartedAt  *time.Time `json:"departedAt,omitempty"`
	Punctuality string     `json:"punctuality,omitempty"` // ON_TIME, LATE, EARLY_DEPARTURE
}

type AnalyticsTotals struct {
	Registered int64 `json:"registered"`
	Arrived    int64 `json:"arrived"`
	Departed   int64 `json:"departed"`
	Absent     int64 `json:"absent"`
	Late       int64 `json:"late"`
}

type AttributeBreakdown struct {
	Attribute string           `json:"attribute"`
	Values    []BreakdownValue `json:"values"`
}

type BreakdownValue struct {
	Value    string `json:"value"`
	Arrived  int64  `json:"arrived"`
	Absent   int64  `json:"absent"`
	Late     int64  `json:"late"`
	Departed int64  `json:"departed"`
}

type DailyBreakdown struct {
	Date     Date  `json:"date"`
	Arrived  int64 `json:"arrived"`
	Departed int64 `json:"departed"`
	Late     int64 `json:"late"`
}

type Analytics struct {
	EventID     string               `json:"eventId"`
	Totals      AnalyticsTotals      `json:"totals"`
	ByAttribute []AttributeBreakdown `json:"byAttribute,omitempty"`
	ByDay       []DailyBreakdown     `json:"byDay,omitempty"`
}
