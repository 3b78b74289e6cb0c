package schedule_test

import (
	"testing"
	"time"

	"attendex/src-server/entity"
	"attendex/src-server/schedule"
)

func TestDays(t *testing.T) {
	days, err := schedule.Days(entity.NewDate(2025, time.February, 27), entity.NewDate(2025, time.March, 2))
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"2025-02-27", "2025-02-28", "2025-03-01", "2025-03-02"}
	if len(days) != len(want) {
		t.Fatalf("days = %v", days)
	}
	for i, d := range days {
		if d.String() != want[i] {
			t.Errorf("day %d = %s, want %s", i, d, want[i])
		}
	}

	single, err := schedule.Days(entity.NewDate(2025, time.March, 10), entity.NewDate(2025, time.March, 10))
	if err != nil || len(single) != 1 {
		t.Fatalf("single day = %v, %v", single, err)
	}

	if _, err := schedule.Days(entity.NewDate(2025, time.March, 10), entity.NewDate(2025, time.March, 5)); err == nil {
		t.Fatal("reversed range accepted")
	}
}

func TestAt(t *testing.T) {
	loc := time.FixedZone("UTC+7", 7*3600)
	got, err := schedule.At(entity.NewDate(2025, time.March, 10), "08:30", loc)
	if err != nil {
		t.Fatal(err)
	}
	if want := time.Date(2025, time.March, 10, 1, 30, 0, 0, time.UTC); !got.Equal(want) {
		t.Fatalf("At = %s, want %s", got, want)
	}
	if _, err := schedule.At(entity.NewDate(2025, time.March, 10), "8h", loc); err == nil {
		t.Fatal("bad clock accepted")
	}
}

func TestFill(t *testing.T) {
	got, err := schedule.Fill(entity.NewDate(2025, time.March, 10), entity.NewDate(2025, time.March, 12), []entity.DailyBreakdown{
		{Date: entity.NewDate(2025, time.March, 11), Arrived: 40},
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 || got[0].Arrived != 0 || got[1].Arrived != 40 || got[2].Date.String() != "2025-03-12" {
		t.Fatalf("fill = %+v", got)
	}
}
