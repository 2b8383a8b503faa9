package triggers

import (
	"testing"
	"time"

	"github.com/ternarybob/tempo/internal/models"
)

func TestCalendarIntervalTriggerMonthlyAdvance(t *testing.T) {
	// Monthly arithmetic keeps the day-of-month, unlike fixed durations.
	start := time.Date(2026, 1, 31, 8, 0, 0, 0, time.UTC)
	trigger := NewCalendarIntervalTrigger(
		models.NewTriggerKey("monthly"),
		models.NewJobKey("job"),
		start, 1, IntervalMonth,
	)
	trigger.ComputeFirstFire(nil)

	if next := trigger.NextFireTime(); next == nil || !next.Equal(start) {
		t.Fatalf("first fire = %v, want %v", next, start)
	}

	trigger.Triggered(nil)
	// January 31 + 1 month normalizes to March 3 (2026 is not a leap year).
	want := time.Date(2026, 3, 3, 8, 0, 0, 0, time.UTC)
	if next := trigger.NextFireTime(); next == nil || !next.Equal(want) {
		t.Fatalf("next = %v, want %v", next, want)
	}
}

func TestCalendarIntervalTriggerDailyAcrossDSTBoundary(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("timezone database unavailable: %v", err)
	}

	// The US spring-forward transition in 2026 is March 8.
	start := time.Date(2026, 3, 7, 9, 0, 0, 0, loc)
	trigger := NewCalendarIntervalTrigger(
		models.NewTriggerKey("daily"),
		models.NewJobKey("job"),
		start, 1, IntervalDay,
	)
	trigger.ComputeFirstFire(nil)
	trigger.Triggered(nil)

	next := trigger.NextFireTime()
	want := time.Date(2026, 3, 8, 9, 0, 0, 0, loc)
	if next == nil || !next.Equal(want) {
		t.Fatalf("next = %v, want %v (wall clock preserved across DST)", next, want)
	}
}

func TestCalendarIntervalTriggerHourly(t *testing.T) {
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	trigger := NewCalendarIntervalTrigger(
		models.NewTriggerKey("hourly"),
		models.NewJobKey("job"),
		start, 2, IntervalHour,
	)
	trigger.ComputeFirstFire(nil)
	trigger.Triggered(nil)

	want := start.Add(2 * time.Hour)
	if next := trigger.NextFireTime(); next == nil || !next.Equal(want) {
		t.Fatalf("next = %v, want %v", next, want)
	}
}

func TestDailyTimeIntervalTriggerWithinWindow(t *testing.T) {
	// Every 30 minutes between 09:00 and 17:00.
	start := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC) // Monday
	trigger := NewDailyTimeIntervalTrigger(
		models.NewTriggerKey("office-hours"),
		models.NewJobKey("job"),
		start,
		TimeOfDay{Hour: 9}, TimeOfDay{Hour: 17},
		30*time.Minute, nil,
	)

	first := trigger.ComputeFirstFire(nil)
	want := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	if first == nil || !first.Equal(want) {
		t.Fatalf("first fire = %v, want window start %v", first, want)
	}

	trigger.Triggered(nil)
	want = want.Add(30 * time.Minute)
	if next := trigger.NextFireTime(); next == nil || !next.Equal(want) {
		t.Fatalf("next = %v, want %v", next, want)
	}
}

func TestDailyTimeIntervalTriggerRollsToNextDay(t *testing.T) {
	// After the window closes the next fire is tomorrow's window start.
	start := time.Date(2026, 3, 2, 16, 45, 0, 0, time.UTC)
	trigger := NewDailyTimeIntervalTrigger(
		models.NewTriggerKey("office-hours"),
		models.NewJobKey("job"),
		start,
		TimeOfDay{Hour: 9}, TimeOfDay{Hour: 17},
		30*time.Minute, nil,
	)
	trigger.ComputeFirstFire(nil)
	trigger.Triggered(nil) // fired at 17:00, window exhausted

	next := trigger.NextFireTime()
	want := time.Date(2026, 3, 3, 9, 0, 0, 0, time.UTC)
	if next == nil || !next.Equal(want) {
		t.Fatalf("next = %v, want next day's window start %v", next, want)
	}
}

func TestDailyTimeIntervalTriggerSkipsExcludedWeekdays(t *testing.T) {
	// Friday evening with a Mon-Fri restriction jumps to Monday.
	start := time.Date(2026, 3, 6, 18, 0, 0, 0, time.UTC) // Friday after window
	weekdays := []time.Weekday{
		time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday,
	}
	trigger := NewDailyTimeIntervalTrigger(
		models.NewTriggerKey("weekdays"),
		models.NewJobKey("job"),
		start,
		TimeOfDay{Hour: 9}, TimeOfDay{Hour: 17},
		time.Hour, weekdays,
	)

	first := trigger.ComputeFirstFire(nil)
	want := time.Date(2026, 3, 9, 9, 0, 0, 0, time.UTC) // Monday
	if first == nil || !first.Equal(want) {
		t.Fatalf("first fire = %v, want %v", first, want)
	}
}

func TestTimeOfDaySecondsRoundTrip(t *testing.T) {
	tests := []TimeOfDay{
		{},
		{Hour: 9},
		{Hour: 17, Minute: 30},
		{Hour: 23, Minute: 59, Second: 59},
	}
	for _, tod := range tests {
		got := TimeOfDayFromSeconds(tod.SecondsOfDay())
		if got != tod {
			t.Errorf("round trip of %+v produced %+v", tod, got)
		}
	}
}
