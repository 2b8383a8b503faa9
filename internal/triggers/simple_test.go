package triggers

import (
	"testing"
	"time"

	"github.com/ternarybob/tempo/internal/models"
)

func newTestSimple(start time.Time, repeatCount int, interval time.Duration) *SimpleTrigger {
	return NewSimpleTrigger(
		models.NewTriggerKey("simple-test"),
		models.NewJobKey("job"),
		start, repeatCount, interval,
	)
}

func TestSimpleTriggerFirstFireIsStartTime(t *testing.T) {
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	trigger := newTestSimple(start, 3, 10*time.Second)

	first := trigger.ComputeFirstFire(nil)
	if first == nil || !first.Equal(start) {
		t.Fatalf("first fire = %v, want %v", first, start)
	}
}

func TestSimpleTriggerAdvancesByInterval(t *testing.T) {
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	trigger := newTestSimple(start, 3, 10*time.Second)
	trigger.ComputeFirstFire(nil)

	want := []time.Time{
		start.Add(10 * time.Second),
		start.Add(20 * time.Second),
		start.Add(30 * time.Second),
	}
	for i, expected := range want {
		trigger.Triggered(nil)
		next := trigger.NextFireTime()
		if next == nil || !next.Equal(expected) {
			t.Fatalf("fire %d: next = %v, want %v", i+1, next, expected)
		}
		prev := trigger.PreviousFireTime()
		if prev == nil {
			t.Fatalf("fire %d: previous fire time not recorded", i+1)
		}
	}

	// Fourth firing exhausts the repeat count.
	trigger.Triggered(nil)
	if trigger.NextFireTime() != nil {
		t.Errorf("exhausted trigger should have nil next fire time, got %v", trigger.NextFireTime())
	}
	if trigger.TimesTriggered != 4 {
		t.Errorf("TimesTriggered = %d, want 4", trigger.TimesTriggered)
	}
}

func TestSimpleTriggerRepeatsIndefinitely(t *testing.T) {
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	trigger := newTestSimple(start, RepeatIndefinitely, time.Minute)
	trigger.ComputeFirstFire(nil)

	for i := 0; i < 100; i++ {
		trigger.Triggered(nil)
	}
	next := trigger.NextFireTime()
	want := start.Add(100 * time.Minute)
	if next == nil || !next.Equal(want) {
		t.Errorf("next = %v, want %v", next, want)
	}
}

func TestSimpleTriggerStopsAtEndTime(t *testing.T) {
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	end := start.Add(25 * time.Second)
	trigger := newTestSimple(start, RepeatIndefinitely, 10*time.Second)
	trigger.SetEndTime(&end)
	trigger.ComputeFirstFire(nil)

	trigger.Triggered(nil) // -> start+10s
	trigger.Triggered(nil) // -> start+20s
	trigger.Triggered(nil) // start+30s is past the end
	if trigger.NextFireTime() != nil {
		t.Errorf("next fire past end time should be nil, got %v", trigger.NextFireTime())
	}
}

func TestSimpleTriggerMisfireFireNow(t *testing.T) {
	start := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	trigger := newTestSimple(start, 0, 0)
	trigger.SetMisfireInstruction(MisfireSimpleFireNow)
	trigger.ComputeFirstFire(nil)

	before := time.Now()
	trigger.UpdateAfterMisfire(nil)
	after := time.Now()

	next := trigger.NextFireTime()
	if next == nil {
		t.Fatal("fire-now misfire should set a next fire time")
	}
	if next.Before(before) || next.After(after) {
		t.Errorf("next = %v, want between %v and %v", next, before, after)
	}
}

func TestSimpleTriggerMisfireSmartPolicyOneShot(t *testing.T) {
	// A one-shot trigger under the smart policy resolves to fire-now.
	start := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	trigger := newTestSimple(start, 0, 0)
	trigger.ComputeFirstFire(nil)

	trigger.UpdateAfterMisfire(nil)
	next := trigger.NextFireTime()
	if next == nil {
		t.Fatal("smart policy misfire should set a next fire time")
	}
	if !next.After(start) {
		t.Errorf("next = %v, should be moved to the present", next)
	}
}

func TestSimpleTriggerMisfireRescheduleNext(t *testing.T) {
	start := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	trigger := newTestSimple(start, RepeatIndefinitely, time.Hour)
	trigger.SetMisfireInstruction(MisfireSimpleRescheduleNextWithRemainingCount)
	trigger.ComputeFirstFire(nil)
	trigger.Triggered(nil)
	trigger.Triggered(nil)

	trigger.UpdateAfterMisfire(nil)

	next := trigger.NextFireTime()
	if next == nil || !next.After(time.Now()) {
		t.Fatalf("next = %v, want a future fire", next)
	}
	if next.Sub(start)%time.Hour != 0 {
		t.Errorf("next = %v, want a fire on the original hourly cadence", next)
	}
}

func TestSimpleTriggerMisfireExhaustedCount(t *testing.T) {
	// When the remaining repeats cannot reach the present, rescheduling
	// to the next cadence fire leaves the trigger finished.
	start := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	trigger := newTestSimple(start, 2, time.Hour)
	trigger.SetMisfireInstruction(MisfireSimpleRescheduleNextWithExistingCount)
	trigger.ComputeFirstFire(nil)

	trigger.UpdateAfterMisfire(nil)
	if trigger.NextFireTime() != nil {
		t.Errorf("next = %v, want nil for an exhausted schedule", trigger.NextFireTime())
	}
}
