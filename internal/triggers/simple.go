package triggers

import (
	"time"

	"github.com/ternarybob/tempo/internal/models"
	"go.mongodb.org/mongo-driver/bson"
)

// TypeSimple tags the fixed-interval trigger shape.
const TypeSimple = "simple"

// RepeatIndefinitely makes a simple trigger repeat until its end time.
const RepeatIndefinitely = -1

// Misfire instructions specific to the simple shape.
const (
	MisfireSimpleFireNow = iota + 1
	MisfireSimpleRescheduleNowWithExistingCount
	MisfireSimpleRescheduleNowWithRemainingCount
	MisfireSimpleRescheduleNextWithRemainingCount
	MisfireSimpleRescheduleNextWithExistingCount
)

// SimpleTrigger fires at a fixed interval for a fixed repeat count.
type SimpleTrigger struct {
	BaseTrigger

	RepeatCount    int
	RepeatInterval time.Duration
	TimesTriggered int
}

// NewSimpleTrigger creates a simple trigger starting at start.
func NewSimpleTrigger(key models.TriggerKey, jobKey models.JobKey, start time.Time, repeatCount int, interval time.Duration) *SimpleTrigger {
	t := &SimpleTrigger{
		BaseTrigger:    NewBaseTrigger(key, jobKey),
		RepeatCount:    repeatCount,
		RepeatInterval: interval,
	}
	t.SetStartTime(start)
	return t
}

func (t *SimpleTrigger) TypeTag() string { return TypeSimple }

func (t *SimpleTrigger) ComputeFirstFire(cal models.Calendar) *time.Time {
	first := nextIncluded(cal, timePtr(t.StartTime()), func(after time.Time) *time.Time {
		return t.fireTimeAfter(after)
	})
	t.SetNextFireTime(first)
	return t.NextFireTime()
}

func (t *SimpleTrigger) Triggered(cal models.Calendar) {
	t.TimesTriggered++
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

func (t *SimpleTrigger) UpdateAfterMisfire(cal models.Calendar) {
	instruction := t.MisfireInstruction()
	if instruction == models.MisfireInstructionIgnorePolicy {
		return
	}
	if instruction == models.MisfireInstructionSmartPolicy {
		switch {
		case t.RepeatCount == 0:
			instruction = MisfireSimpleFireNow
		case t.RepeatCount == RepeatIndefinitely:
			instruction = MisfireSimpleRescheduleNextWithRemainingCount
		default:
			instruction = MisfireSimpleRescheduleNowWithExistingCount
		}
	}

	now := time.Now()
	switch instruction {
	case MisfireSimpleFireNow,
		MisfireSimpleRescheduleNowWithExistingCount,
		MisfireSimpleRescheduleNowWithRemainingCount:
		if instruction == MisfireSimpleRescheduleNowWithRemainingCount && t.RepeatCount != RepeatIndefinitely {
			t.RepeatCount -= t.TimesTriggered
			t.TimesTriggered = 0
		}
		if t.pastEnd(now) {
			t.SetNextFireTime(nil)
			return
		}
		t.SetStartTime(now)
		t.SetNextFireTime(timePtr(now))
	case MisfireSimpleRescheduleNextWithRemainingCount,
		MisfireSimpleRescheduleNextWithExistingCount:
		next := nextIncluded(cal, t.fireTimeAfter(now), func(after time.Time) *time.Time {
			return t.fireTimeAfter(after)
		})
		if instruction == MisfireSimpleRescheduleNextWithRemainingCount && t.RepeatCount != RepeatIndefinitely {
			t.RepeatCount -= t.TimesTriggered
			t.TimesTriggered = 0
		}
		t.SetNextFireTime(next)
	}
}

// fireTimeAfter computes the first scheduled fire strictly after the given
// time, or nil when the schedule is exhausted.
func (t *SimpleTrigger) fireTimeAfter(after time.Time) *time.Time {
	if t.RepeatCount != RepeatIndefinitely && t.TimesTriggered > t.RepeatCount {
		return nil
	}
	start := t.StartTime()
	var next time.Time
	if after.Before(start) {
		next = start
	} else if t.RepeatInterval <= 0 {
		return nil
	} else {
		elapsed := after.Sub(start)
		n := elapsed/t.RepeatInterval + 1
		if t.RepeatCount != RepeatIndefinitely && int64(n) > int64(t.RepeatCount) {
			return nil
		}
		next = start.Add(n * t.RepeatInterval)
	}
	if t.pastEnd(next) {
		return nil
	}
	return &next
}

func (t *SimpleTrigger) Clone() Trigger {
	clone := *t
	clone.BaseTrigger = t.cloneBase()
	return &clone
}

// simpleHelper persists the simple shape's scheduling fields.
type simpleHelper struct{}

func (simpleHelper) CanHandle(t Trigger) bool {
	_, ok := t.(*SimpleTrigger)
	return ok
}

func (simpleHelper) InjectForStorage(t Trigger, doc bson.M) bson.M {
	st := t.(*SimpleTrigger)
	doc["repeatCount"] = st.RepeatCount
	doc["repeatInterval"] = st.RepeatInterval.Milliseconds()
	doc["timesTriggered"] = st.TimesTriggered
	return doc
}

func (simpleHelper) HydrateAfterConstruct(t Trigger, doc bson.M) error {
	st := t.(*SimpleTrigger)
	st.RepeatCount = int(asInt64(doc["repeatCount"]))
	st.RepeatInterval = time.Duration(asInt64(doc["repeatInterval"])) * time.Millisecond
	st.TimesTriggered = int(asInt64(doc["timesTriggered"]))
	return nil
}
