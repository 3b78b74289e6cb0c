package ical_test

import (
	"strings"
	"testing"
	"time"

	"attendex/src-server/entity"
	"attendex/src-server/ical"
)

var stamp = time.Date(2025, time.March, 1, 12, 0, 0, 0, time.UTC)

func TestWriteEventTimed(t *testing.T) {
	var sb strings.Builder
	err := ical.WriteEvent(&sb, entity.Event{
		ID:            "e1",
		Name:          "Orientation, day camp",
		Location:      "Hall; B",
		StartDate:     entity.NewDate(2025, time.March, 10),
		EndDate:       entity.NewDate(2025, time.March, 11),
		ArrivalTime:   "08:00",
		DepartureTime: "15:30",
		Status:        entity.EventStatusActive,
	}, time.UTC, stamp)
	if err != nil {
		t.Fatal(err)
	}
	out := sb.String()
	for _, want := range []string{
		"BEGIN:VCALENDAR\r\n",
		"UID:e1-20250310@attendex\r\n",
		"UID:e1-20250311@attendex\r\n",
		"DTSTART:20250310T080000Z\r\n",
		"DTEND:20250311T153000Z\r\n",
		"SUMMARY:Orientation\\, day camp (day 2 of 2)\r\n",
		"LOCATION:Hall\\; B\r\n",
		"STATUS:CONFIRMED\r\n",
		"END:VCALENDAR\r\n",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in\n%s", want, out)
		}
	}
	if n := strings.Count(out, "BEGIN:VEVENT"); n != 2 {
		t.Errorf("%d VEVENTs, want 2", n)
	}
}

func TestWriteEventAllDay(t *testing.T) {
	var sb strings.Builder
	if err := ical.WriteEvent(&sb, entity.Event{
		ID:        "e2",
		Name:      "Sports day",
		StartDate: entity.NewDate(2025, time.March, 31),
		EndDate:   entity.NewDate(2025, time.March, 31),
		Status:    entity.EventStatusCancelled,
	}, time.UTC, stamp); err != nil {
		t.Fatal(err)
	}
	out := sb.String()
	if !strings.Contains(out, "DTSTART;VALUE=DATE:20250331\r\nDTEND;VALUE=DATE:20250401\r\n") {
		t.Errorf("all-day dates missing:\n%s", out)
	}
	if !strings.Contains(out, "SUMMARY:Sports day\r\n") || !strings.Contains(out, "STATUS:CANCELLED") {
		t.Errorf("unexpected output:\n%s", out)
	}
}

func TestLongLinesAreFolded(t *testing.T) {
	var sb strings.Builder
	if err := ical.WriteEvent(&sb, entity.Event{
		ID:          "e3",
		Name:        "Assembly",
		Description: strings.Repeat("Ünïcödé description ", 20),
		StartDate:   entity.NewDate(2025, time.March, 10),
		EndDate:     entity.NewDate(2025, time.March, 10),
	}, time.UTC, stamp); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSuffix(sb.String(), "\r\n"), "\r\n")
	folded := 0
	for _, line := range lines {
		if len(line) > 75 {
			t.Errorf("line exceeds 75 octets (%d): %q", len(line), line)
		}
		if strings.HasPrefix(line, " ") {
			folded++
		}
	}
	if folded == 0 {
		t.Error("description was not folded")
	}
	unfolded := strings.ReplaceAll(sb.String(), "\r\n ", "")
	if !strings.Contains(unfolded, "DESCRIPTION:"+strings.Repeat("Ünïcödé description ", 20)) {
		t.Error("unfolding does not restore the description")
	}
}
