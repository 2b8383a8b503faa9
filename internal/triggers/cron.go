package triggers

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/tempo/internal/models"
	"go.mongodb.org/mongo-driver/bson"
)

// TypeCron tags the cron-expression trigger shape.
const TypeCron = "cron"

// Misfire instructions specific to the cron shape.
const (
	MisfireCronFireOnceNow = iota + 1
	MisfireCronDoNothing
)

// cronParser accepts five and six field expressions (optional seconds).
var cronParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// CronTrigger fires on a cron expression evaluated in a fixed location.
type CronTrigger struct {
	BaseTrigger

	expression string
	location   *time.Location
	schedule   cron.Schedule
}

// NewCronTrigger creates a cron trigger starting at start. The expression
// is validated immediately.
func NewCronTrigger(key models.TriggerKey, jobKey models.JobKey, start time.Time, expression string) (*CronTrigger, error) {
	t := &CronTrigger{BaseTrigger: NewBaseTrigger(key, jobKey)}
	t.SetStartTime(start)
	if err := t.SetExpression(expression); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *CronTrigger) TypeTag() string { return TypeCron }

// Expression returns the cron expression.
func (t *CronTrigger) Expression() string { return t.expression }

// SetExpression parses and installs a new cron expression.
func (t *CronTrigger) SetExpression(expression string) error {
	schedule, err := cronParser.Parse(expression)
	if err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", expression, err)
	}
	t.expression = expression
	t.schedule = schedule
	return nil
}

// Location returns the timezone the expression is evaluated in.
func (t *CronTrigger) Location() *time.Location {
	if t.location == nil {
		return time.UTC
	}
	return t.location
}

// SetLocation sets the timezone the expression is evaluated in.
func (t *CronTrigger) SetLocation(loc *time.Location) { t.location = loc }

func (t *CronTrigger) ComputeFirstFire(cal models.Calendar) *time.Time {
	first := nextIncluded(cal, t.fireTimeAfter(t.StartTime().Add(-time.Millisecond)), func(after time.Time) *time.Time {
		return t.fireTimeAfter(after)
	})
	t.SetNextFireTime(first)
	return t.NextFireTime()
}

func (t *CronTrigger) Triggered(cal models.Calendar) {
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

func (t *CronTrigger) UpdateAfterMisfire(cal models.Calendar) {
	instruction := t.MisfireInstruction()
	if instruction == models.MisfireInstructionIgnorePolicy {
		return
	}
	if instruction == models.MisfireInstructionSmartPolicy {
		instruction = MisfireCronFireOnceNow
	}

	now := time.Now()
	switch instruction {
	case MisfireCronFireOnceNow:
		if t.pastEnd(now) {
			t.SetNextFireTime(nil)
			return
		}
		t.SetNextFireTime(timePtr(now))
	case MisfireCronDoNothing:
		next := nextIncluded(cal, t.fireTimeAfter(now), func(after time.Time) *time.Time {
			return t.fireTimeAfter(after)
		})
		t.SetNextFireTime(next)
	}
}

func (t *CronTrigger) fireTimeAfter(after time.Time) *time.Time {
	if t.schedule == nil {
		return nil
	}
	next := t.schedule.Next(after.In(t.Location()))
	if next.IsZero() || t.pastEnd(next) {
		return nil
	}
	return &next
}

func (t *CronTrigger) Clone() Trigger {
	clone := *t
	clone.BaseTrigger = t.cloneBase()
	return &clone
}

// cronHelper persists the cron shape's scheduling fields.
type cronHelper struct{}

func (cronHelper) CanHandle(t Trigger) bool {
	_, ok := t.(*CronTrigger)
	return ok
}

func (cronHelper) InjectForStorage(t Trigger, doc bson.M) bson.M {
	ct := t.(*CronTrigger)
	doc["cronExpression"] = ct.expression
	doc["timezone"] = ct.Location().String()
	return doc
}

func (cronHelper) HydrateAfterConstruct(t Trigger, doc bson.M) error {
	ct := t.(*CronTrigger)
	if tz := asString(doc["timezone"]); tz != "" {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			return fmt.Errorf("invalid trigger timezone %q: %w", tz, err)
		}
		ct.location = loc
	}
	expression := asString(doc["cronExpression"])
	if expression == "" {
		return fmt.Errorf("trigger %s has no cron expression", t.Key())
	}
	return ct.SetExpression(expression)
}
