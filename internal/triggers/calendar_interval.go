package triggers

import (
	"time"

	"github.com/ternarybob/tempo/internal/models"
	"go.mongodb.org/mongo-driver/bson"
)

// TypeCalendarInterval tags the calendar-interval trigger shape.
const TypeCalendarInterval = "calendar-interval"

// IntervalUnit is the unit a calendar-interval trigger repeats in.
type IntervalUnit string

const (
	IntervalSecond IntervalUnit = "SECOND"
	IntervalMinute IntervalUnit = "MINUTE"
	IntervalHour   IntervalUnit = "HOUR"
	IntervalDay    IntervalUnit = "DAY"
	IntervalWeek   IntervalUnit = "WEEK"
	IntervalMonth  IntervalUnit = "MONTH"
	IntervalYear   IntervalUnit = "YEAR"
)

// Misfire instructions shared by the interval shapes.
const (
	MisfireIntervalFireOnceNow = iota + 1
	MisfireIntervalDoNothing
)

// CalendarIntervalTrigger repeats on calendar arithmetic, so day-based
// intervals survive daylight-saving transitions and month lengths vary.
type CalendarIntervalTrigger struct {
	BaseTrigger

	RepeatInterval int
	Unit           IntervalUnit
}

// NewCalendarIntervalTrigger creates a calendar-interval trigger starting
// at start.
func NewCalendarIntervalTrigger(key models.TriggerKey, jobKey models.JobKey, start time.Time, interval int, unit IntervalUnit) *CalendarIntervalTrigger {
	t := &CalendarIntervalTrigger{
		BaseTrigger:    NewBaseTrigger(key, jobKey),
		RepeatInterval: interval,
		Unit:           unit,
	}
	t.SetStartTime(start)
	return t
}

func (t *CalendarIntervalTrigger) TypeTag() string { return TypeCalendarInterval }

func (t *CalendarIntervalTrigger) ComputeFirstFire(cal models.Calendar) *time.Time {
	first := nextIncluded(cal, timePtr(t.StartTime()), func(after time.Time) *time.Time {
		return t.fireTimeAfter(after)
	})
	t.SetNextFireTime(first)
	return t.NextFireTime()
}

func (t *CalendarIntervalTrigger) Triggered(cal models.Calendar) {
	prev := t.NextFireTime()
	t.SetPreviousFireTime(prev)
	if prev == nil {
		t.SetNextFireTime(nil)
		return
	}
	next := nextIncluded(cal, t.fireTimeAfter(*prev), func(after time.Time) *time.Time {
		return t.fireTimeAfter(after)
	})
	t.SetNextFireTime(next)
}

func (t *CalendarIntervalTrigger) UpdateAfterMisfire(cal models.Calendar) {
	instruction := t.MisfireInstruction()
	if instruction == models.MisfireInstructionIgnorePolicy {
		return
	}
	if instruction == models.MisfireInstructionSmartPolicy {
		instruction = MisfireIntervalFireOnceNow
	}

	now := time.Now()
	switch instruction {
	case MisfireIntervalFireOnceNow:
		if t.pastEnd(now) {
			t.SetNextFireTime(nil)
			return
		}
		t.SetNextFireTime(timePtr(now))
	case MisfireIntervalDoNothing:
		next := nextIncluded(cal, t.fireTimeAfter(now), func(after time.Time) *time.Time {
			return t.fireTimeAfter(after)
		})
		t.SetNextFireTime(next)
	}
}

func (t *CalendarIntervalTrigger) fireTimeAfter(after time.Time) *time.Time {
	if t.RepeatInterval <= 0 {
		return nil
	}
	next := t.StartTime()
	for !next.After(after) {
		next = t.advance(next)
	}
	if t.pastEnd(next) {
		return nil
	}
	return &next
}

func (t *CalendarIntervalTrigger) advance(from time.Time) time.Time {
	n := t.RepeatInterval
	switch t.Unit {
	case IntervalSecond:
		return from.Add(time.Duration(n) * time.Second)
	case IntervalMinute:
		return from.Add(time.Duration(n) * time.Minute)
	case IntervalHour:
		return from.Add(time.Duration(n) * time.Hour)
	case IntervalWeek:
		return from.AddDate(0, 0, 7*n)
	case IntervalMonth:
		return from.AddDate(0, n, 0)
	case IntervalYear:
		return from.AddDate(n, 0, 0)
	default:
		return from.AddDate(0, 0, n)
	}
}

func (t *CalendarIntervalTrigger) Clone() Trigger {
	clone := *t
	clone.BaseTrigger = t.cloneBase()
	return &clone
}

// calendarIntervalHelper persists the calendar-interval shape's fields.
type calendarIntervalHelper struct{}

func (calendarIntervalHelper) CanHandle(t Trigger) bool {
	_, ok := t.(*CalendarIntervalTrigger)
	return ok
}

func (calendarIntervalHelper) InjectForStorage(t Trigger, doc bson.M) bson.M {
	ct := t.(*CalendarIntervalTrigger)
	doc["repeatInterval"] = ct.RepeatInterval
	doc["repeatIntervalUnit"] = string(ct.Unit)
	return doc
}

func (calendarIntervalHelper) HydrateAfterConstruct(t Trigger, doc bson.M) error {
	ct := t.(*CalendarIntervalTrigger)
	ct.RepeatInterval = int(asInt64(doc["repeatInterval"]))
	ct.Unit = IntervalUnit(asString(doc["repeatIntervalUnit"]))
	return nil
}
