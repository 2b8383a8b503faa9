package triggers

import (
	"time"

	"github.com/ternarybob/tempo/internal/models"
	"go.mongodb.org/mongo-driver/bson"
)

// TypeDailyTimeInterval tags the daily-time-interval trigger shape.
const TypeDailyTimeInterval = "daily-time-interval"

// TimeOfDay is a wall-clock time within a day.
type TimeOfDay struct {
	Hour   int
	Minute int
	Second int
}

// SecondsOfDay returns the offset from midnight in seconds.
func (t TimeOfDay) SecondsOfDay() int {
	return t.Hour*3600 + t.Minute*60 + t.Second
}

// TimeOfDayFromSeconds builds a TimeOfDay from an offset from midnight.
func TimeOfDayFromSeconds(seconds int) TimeOfDay {
	return TimeOfDay{Hour: seconds / 3600, Minute: (seconds % 3600) / 60, Second: seconds % 60}
}

// on anchors the time-of-day to the date of the given instant.
func (t TimeOfDay) on(day time.Time) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), t.Hour, t.Minute, t.Second, 0, day.Location())
}

// DailyTimeIntervalTrigger fires at a fixed interval within a daily window
// on selected days of the week.
type DailyTimeIntervalTrigger struct {
	BaseTrigger

	StartTimeOfDay TimeOfDay
	EndTimeOfDay   TimeOfDay
	RepeatInterval time.Duration
	DaysOfWeek     []time.Weekday
}

// NewDailyTimeIntervalTrigger creates a daily-time-interval trigger. Empty
// daysOfWeek means every day.
func NewDailyTimeIntervalTrigger(key models.TriggerKey, jobKey models.JobKey, start time.Time, windowStart, windowEnd TimeOfDay, interval time.Duration, daysOfWeek []time.Weekday) *DailyTimeIntervalTrigger {
	t := &DailyTimeIntervalTrigger{
		BaseTrigger:    NewBaseTrigger(key, jobKey),
		StartTimeOfDay: windowStart,
		EndTimeOfDay:   windowEnd,
		RepeatInterval: interval,
		DaysOfWeek:     daysOfWeek,
	}
	t.SetStartTime(start)
	return t
}

func (t *DailyTimeIntervalTrigger) TypeTag() string { return TypeDailyTimeInterval }

func (t *DailyTimeIntervalTrigger) ComputeFirstFire(cal models.Calendar) *time.Time {
	first := nextIncluded(cal, t.fireTimeAfter(t.StartTime().Add(-time.Second)), func(after time.Time) *time.Time {
		return t.fireTimeAfter(after)
	})
	t.SetNextFireTime(first)
	return t.NextFireTime()
}

func (t *DailyTimeIntervalTrigger) Triggered(cal models.Calendar) {
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

func (t *DailyTimeIntervalTrigger) UpdateAfterMisfire(cal models.Calendar) {
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

func (t *DailyTimeIntervalTrigger) fireTimeAfter(after time.Time) *time.Time {
	if t.RepeatInterval <= 0 {
		return nil
	}
	// Scan at most a full week past the candidate day before giving up.
	day := after
	for i := 0; i < 8; i++ {
		if t.dayAllowed(day.Weekday()) {
			windowStart := t.StartTimeOfDay.on(day)
			windowEnd := t.EndTimeOfDay.on(day)
			var candidate time.Time
			if after.Before(windowStart) {
				candidate = windowStart
			} else {
				elapsed := after.Sub(windowStart)
				candidate = windowStart.Add((elapsed/t.RepeatInterval + 1) * t.RepeatInterval)
			}
			if !candidate.After(windowEnd) && candidate.After(after) {
				if t.pastEnd(candidate) {
					return nil
				}
				return &candidate
			}
		}
		day = t.StartTimeOfDay.on(day).AddDate(0, 0, 1)
		after = day.Add(-time.Second)
	}
	return nil
}

func (t *DailyTimeIntervalTrigger) dayAllowed(day time.Weekday) bool {
	if len(t.DaysOfWeek) == 0 {
		return true
	}
	for _, d := range t.DaysOfWeek {
		if d == day {
			return true
		}
	}
	return false
}

func (t *DailyTimeIntervalTrigger) Clone() Trigger {
	clone := *t
	clone.BaseTrigger = t.cloneBase()
	clone.DaysOfWeek = append([]time.Weekday(nil), t.DaysOfWeek...)
	return &clone
}

// dailyIntervalHelper persists the daily-time-interval shape's fields.
type dailyIntervalHelper struct{}

func (dailyIntervalHelper) CanHandle(t Trigger) bool {
	_, ok := t.(*DailyTimeIntervalTrigger)
	return ok
}

func (dailyIntervalHelper) InjectForStorage(t Trigger, doc bson.M) bson.M {
	dt := t.(*DailyTimeIntervalTrigger)
	doc["repeatInterval"] = dt.RepeatInterval.Milliseconds()
	doc["startTimeOfDay"] = dt.StartTimeOfDay.SecondsOfDay()
	doc["endTimeOfDay"] = dt.EndTimeOfDay.SecondsOfDay()
	days := make([]int, len(dt.DaysOfWeek))
	for i, d := range dt.DaysOfWeek {
		days[i] = int(d)
	}
	doc["daysOfWeek"] = days
	return doc
}

func (dailyIntervalHelper) HydrateAfterConstruct(t Trigger, doc bson.M) error {
	dt := t.(*DailyTimeIntervalTrigger)
	dt.RepeatInterval = time.Duration(asInt64(doc["repeatInterval"])) * time.Millisecond
	dt.StartTimeOfDay = TimeOfDayFromSeconds(int(asInt64(doc["startTimeOfDay"])))
	dt.EndTimeOfDay = TimeOfDayFromSeconds(int(asInt64(doc["endTimeOfDay"])))
	dt.DaysOfWeek = nil
	for _, v := range asSlice(doc["daysOfWeek"]) {
		dt.DaysOfWeek = append(dt.DaysOfWeek, time.Weekday(asInt64(v)))
	}
	return nil
}
