// Package ical exports events as iCalendar files with one VEVENT per event
// day.
package ical

import (
	"fmt"
	"io"
	"time"

	"attendex/src-server/entity"
	"attendex/src-server/schedule"
)

const ProdID = "-//AttendEx//Event Export//EN"

// Convert a time to a string in iCalendar UTC format: YYYYMMDDTHHMMSSZ
func timeToIcalDatetime(t time.Time) string {
	return t.UTC().Format("20060102T150405Z")
}

func dateToIcal(d entity.Date) string {
	return d.Format("20060102")
}

// WriteEvent writes e as a VCALENDAR. Days with an arrival time become timed
// VEVENTs in loc ending at the departure time (or one hour later); events
// without times become all-day VEVENTs.
func WriteEvent(w io.Writer, e entity.Event, loc *time.Location, stamp time.Time) error {
	days, err := schedule.Days(e.StartDate, e.EndDate)
	if err != nil {
		return fmt.Errorf("WriteEvent: %w", err)
	}

	f := &foldWriter{w: w}
	f.line("BEGIN:VCALENDAR")
	f.line("VERSION:2.0")
	f.line("PRODID:" + ProdID)
	f.line("CALSCALE:GREGORIAN")
	f.line("METHOD:PUBLISH")
	f.line("X-WR-CALNAME:" + escapeText(e.Name))

	for i, day := range days {
		f.line("BEGIN:VEVENT")
		f.line(fmt.Sprintf("UID:%s-%s@attendex", e.ID, dateToIcal(day)))
		f.line("DTSTAMP:" + timeToIcalDatetime(stamp))

		if e.ArrivalTime == "" {
			f.line("DTSTART;VALUE=DATE:" + dateToIcal(day))
			f.line("DTEND;VALUE=DATE:" + day.AddDate(0, 0, 1).Format("20060102"))
		} else {
			start, err := schedule.At(day, e.ArrivalTime, loc)
			if err != nil {
				return fmt.Errorf("WriteEvent: arrival time: %w", err)
			}
			end := start.Add(time.Hour)
			if e.DepartureTime != "" {
				if end, err = schedule.At(day, e.DepartureTime, loc); err != nil {
					return fmt.Errorf("WriteEvent: departure time: %w", err)
				}
				if !end.After(start) {
					end = start.Add(time.Hour)
				}
			}
			f.line("DTSTART:" + timeToIcalDatetime(start))
			f.line("DTEND:" + timeToIcalDatetime(end))
		}

		summary := e.Name
		if len(days) > 1 {
			summary = fmt.Sprintf("%s (day %d of %d)", e.Name, i+1, len(days))
		}
		f.line("SUMMARY:" + escapeText(summary))
		if e.Description != "" {
			f.line("DESCRIPTION:" + escapeText(e.Description))
		}
		if e.Location != "" {
			f.line("LOCATION:" + escapeText(e.Location))
		}
		switch e.Status {
		case entity.EventStatusCancelled:
			f.line("STATUS:CANCELLED")
		case entity.EventStatusDraft:
			f.line("STATUS:TENTATIVE")
		default:
			f.line("STATUS:CONFIRMED")
		}
		f.line("END:VEVENT")
	}
	f.line("END:VCALENDAR")

	if f.err != nil {
		return fmt.Errorf("WriteEvent: %w", f.err)
	}
	return nil
}
