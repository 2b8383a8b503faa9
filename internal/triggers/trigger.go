// -----------------------------------------------------------------------
// Trigger - schedulable firing rule referencing exactly one job
// -----------------------------------------------------------------------

package triggers

import (
	"time"

	"github.com/ternarybob/tempo/internal/models"
)

// DefaultPriority is assigned to triggers that do not set one explicitly.
const DefaultPriority = 5

// Trigger is the contract every trigger shape implements. The store treats
// triggers as opaque values: shape-specific scheduling math lives with the
// shape, shape-specific persistence lives with its PersistenceHelper.
type Trigger interface {
	Key() models.TriggerKey
	JobKey() models.JobKey
	SetJobKey(key models.JobKey)

	// TypeTag identifies the shape in storage and in the type registry.
	TypeTag() string

	Description() string
	SetDescription(description string)
	CalendarName() string
	SetCalendarName(name string)
	FireInstanceID() string
	SetFireInstanceID(id string)
	MisfireInstruction() int
	SetMisfireInstruction(instruction int)
	Priority() int
	SetPriority(priority int)

	StartTime() time.Time
	SetStartTime(t time.Time)
	EndTime() *time.Time
	SetEndTime(t *time.Time)
	NextFireTime() *time.Time
	SetNextFireTime(t *time.Time)
	PreviousFireTime() *time.Time
	SetPreviousFireTime(t *time.Time)
	FinalFireTime() *time.Time

	Data() *models.DataMap
	SetData(data *models.DataMap)

	// ComputeFirstFire computes and records the first fire time at or
	// after the start time, honoring the calendar when one is given.
	ComputeFirstFire(cal models.Calendar) *time.Time

	// Triggered advances the trigger in place after it has been fired:
	// the previous fire time becomes the fire that just happened and the
	// next fire time moves forward per the shape's schedule.
	Triggered(cal models.Calendar)

	// UpdateAfterMisfire applies the trigger's misfire instruction after a
	// missed fire was detected.
	UpdateAfterMisfire(cal models.Calendar)

	// Clone returns an independent copy of the trigger.
	Clone() Trigger
}

// BaseTrigger carries the attributes common to every shape. Shapes embed
// it and add their own scheduling fields.
type BaseTrigger struct {
	key            models.TriggerKey
	jobKey         models.JobKey
	description    string
	calendarName   string
	fireInstanceID string
	misfire        int
	priority       int
	startTime      time.Time
	endTime        *time.Time
	nextFireTime   *time.Time
	prevFireTime   *time.Time
	finalFireTime  *time.Time
	data           *models.DataMap
}

// NewBaseTrigger creates the common trigger core with default priority and
// an empty data map.
func NewBaseTrigger(key models.TriggerKey, jobKey models.JobKey) BaseTrigger {
	return BaseTrigger{
		key:      key,
		jobKey:   jobKey,
		priority: DefaultPriority,
		data:     models.NewDataMap(),
	}
}

func (b *BaseTrigger) Key() models.TriggerKey           { return b.key }
func (b *BaseTrigger) SetKey(key models.TriggerKey)     { b.key = key }
func (b *BaseTrigger) JobKey() models.JobKey            { return b.jobKey }
func (b *BaseTrigger) SetJobKey(key models.JobKey)      { b.jobKey = key }
func (b *BaseTrigger) Description() string              { return b.description }
func (b *BaseTrigger) SetDescription(description string) { b.description = description }
func (b *BaseTrigger) CalendarName() string             { return b.calendarName }
func (b *BaseTrigger) SetCalendarName(name string)      { b.calendarName = name }
func (b *BaseTrigger) FireInstanceID() string           { return b.fireInstanceID }
func (b *BaseTrigger) SetFireInstanceID(id string)      { b.fireInstanceID = id }
func (b *BaseTrigger) MisfireInstruction() int          { return b.misfire }
func (b *BaseTrigger) SetMisfireInstruction(i int)      { b.misfire = i }
func (b *BaseTrigger) Priority() int                    { return b.priority }
func (b *BaseTrigger) SetPriority(priority int)         { b.priority = priority }
func (b *BaseTrigger) StartTime() time.Time             { return b.startTime }
func (b *BaseTrigger) SetStartTime(t time.Time)         { b.startTime = t }
func (b *BaseTrigger) EndTime() *time.Time              { return b.endTime }
func (b *BaseTrigger) SetEndTime(t *time.Time)          { b.endTime = copyTime(t) }
func (b *BaseTrigger) NextFireTime() *time.Time         { return b.nextFireTime }
func (b *BaseTrigger) SetNextFireTime(t *time.Time)     { b.nextFireTime = copyTime(t) }
func (b *BaseTrigger) PreviousFireTime() *time.Time     { return b.prevFireTime }
func (b *BaseTrigger) SetPreviousFireTime(t *time.Time) { b.prevFireTime = copyTime(t) }
func (b *BaseTrigger) FinalFireTime() *time.Time        { return b.finalFireTime }
func (b *BaseTrigger) SetFinalFireTime(t *time.Time)    { b.finalFireTime = copyTime(t) }

func (b *BaseTrigger) Data() *models.DataMap {
	if b.data == nil {
		b.data = models.NewDataMap()
	}
	return b.data
}

func (b *BaseTrigger) SetData(data *models.DataMap) { b.data = data }

// cloneBase deep-copies the common core for shape Clone implementations.
func (b *BaseTrigger) cloneBase() BaseTrigger {
	clone := *b
	clone.endTime = copyTime(b.endTime)
	clone.nextFireTime = copyTime(b.nextFireTime)
	clone.prevFireTime = copyTime(b.prevFireTime)
	clone.finalFireTime = copyTime(b.finalFireTime)
	if b.data != nil {
		clone.data = b.data.Clone()
	}
	return clone
}

// pastEnd reports whether t falls after the trigger's end time.
func (b *BaseTrigger) pastEnd(t time.Time) bool {
	return b.endTime != nil && t.After(*b.endTime)
}

// nextIncluded walks next forward until the calendar includes it, using
// advance to step. A nil calendar includes every time.
func nextIncluded(cal models.Calendar, next *time.Time, advance func(time.Time) *time.Time) *time.Time {
	if cal == nil {
		return next
	}
	for next != nil && !cal.IsTimeIncluded(*next) {
		next = advance(*next)
	}
	return next
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}

func timePtr(t time.Time) *time.Time {
	return &t
}
