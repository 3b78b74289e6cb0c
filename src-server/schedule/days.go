// Package schedule expands an event's date range into its individual days.
package schedule

import (
	"fmt"
	"time"

	"attendex/src-server/entity"

	"github.com/xyedo/rrule"
)

// MaxDays bounds the expansion of very long events.
const MaxDays = 366

// Days returns every calendar day from start to end inclusive.
func Days(start, end entity.Date) ([]entity.Date, error) {
	if start.IsZero() || end.IsZero() {
		return nil, fmt.Errorf("Days: start and end are required")
	}
	if end.Before(start.Time) {
		return nil, fmt.Errorf("Days: end %s is before start %s", end, start)
	}
	if end.Sub(start.Time) >= MaxDays*24*time.Hour {
		return nil, fmt.Errorf("Days: events are limited to %d days", MaxDays)
	}
	r, err := rrule.StrToRRule(fmt.Sprintf(
		"FREQ=DAILY;DTSTART=%s;UNTIL=%s",
		start.UTC().Format("20060102T150405Z"),
		end.UTC().Format("20060102T150405Z"),
	))
	if err != nil {
		return nil, fmt.Errorf("Days: %w", err)
	}
	occurrences := r.All()
	days := make([]entity.Date, 0, len(occurrences))
	for _, t := range occurrences {
		t = t.UTC()
		days = append(days, entity.NewDate(t.Year(), t.Month(), t.Day()))
	}
	return days, nil
}

// At combines a day with an "HH:MM" clock time in loc. An empty clock
// yields the start of the day.
func At(day entity.Date, clock string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	hour, minute := 0, 0
	if clock != "" {
		t, err := time.Parse("15:04", clock)
		if err != nil {
			return time.Time{}, fmt.Errorf("At: %w", err)
		}
		hour, minute = t.Hour(), t.Minute()
	}
	return time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, loc), nil
}

// Fill returns one DailyBreakdown per event day, taking counts from known
// and zero for days without activity.
func Fill(start, end entity.Date, known []entity.DailyBreakdown) ([]entity.DailyBreakdown, error) {
	days, err := Days(start, end)
	if err != nil {
		return nil, err
	}
	byDay := make(map[string]entity.DailyBreakdown, len(known))
	for _, k := range known {
		byDay[k.Date.String()] = k
	}
	out := make([]entity.DailyBreakdown, 0, len(days))
	for _, d := range days {
		row, ok := byDay[d.String()]
		if !ok {
			row = entity.DailyBreakdown{Date: d}
		}
		out = append(out, row)
	}
	return out, nil
}
