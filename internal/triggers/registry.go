// -----------------------------------------------------------------------
// Type registry - maps stored type tags back to trigger constructors
// -----------------------------------------------------------------------

package triggers

import (
	"fmt"

	"github.com/ternarybob/tempo/internal/models"
	"go.mongodb.org/mongo-driver/bson"
)

// PersistenceHelper adapts one trigger shape to document storage. The
// store selects helpers by first match in registration order, so no core
// code knows specific shapes.
type PersistenceHelper interface {
	// CanHandle reports whether this helper persists the given trigger.
	CanHandle(t Trigger) bool

	// InjectForStorage adds the shape-specific fields to the document.
	InjectForStorage(t Trigger, doc bson.M) bson.M

	// HydrateAfterConstruct restores the shape-specific fields onto a
	// freshly constructed trigger.
	HydrateAfterConstruct(t Trigger, doc bson.M) error
}

// Factory constructs an empty trigger of one shape, ready for hydration.
type Factory func() Trigger

type registration struct {
	tag     string
	factory Factory
	helper  PersistenceHelper
}

// Registry dispatches per-shape construction and persistence. The four
// standard shapes are pre-registered; the runtime may register more before
// the store is used.
type Registry struct {
	registrations []registration
}

// NewRegistry creates a registry with the standard shapes registered.
func NewRegistry() *Registry {
	r := &Registry{}
	r.Register(TypeSimple, func() Trigger { return &SimpleTrigger{BaseTrigger: NewBaseTrigger(models.TriggerKey{}, models.JobKey{})} }, simpleHelper{})
	r.Register(TypeCalendarInterval, func() Trigger {
		return &CalendarIntervalTrigger{BaseTrigger: NewBaseTrigger(models.TriggerKey{}, models.JobKey{})}
	}, calendarIntervalHelper{})
	r.Register(TypeCron, func() Trigger { return &CronTrigger{BaseTrigger: NewBaseTrigger(models.TriggerKey{}, models.JobKey{})} }, cronHelper{})
	r.Register(TypeDailyTimeInterval, func() Trigger {
		return &DailyTimeIntervalTrigger{BaseTrigger: NewBaseTrigger(models.TriggerKey{}, models.JobKey{})}
	}, dailyIntervalHelper{})
	return r
}

// Register adds a shape. Later registrations win only when earlier helpers
// cannot handle the trigger.
func (r *Registry) Register(tag string, factory Factory, helper PersistenceHelper) {
	r.registrations = append(r.registrations, registration{tag: tag, factory: factory, helper: helper})
}

// New constructs an empty trigger for the stored type tag.
func (r *Registry) New(tag string) (Trigger, error) {
	for _, reg := range r.registrations {
		if reg.tag == tag {
			return reg.factory(), nil
		}
	}
	return nil, fmt.Errorf("trigger type %q: %w", tag, models.ErrNotFound)
}

// HelperFor returns the first registered helper that can persist t.
func (r *Registry) HelperFor(t Trigger) (PersistenceHelper, error) {
	for _, reg := range r.registrations {
		if reg.helper.CanHandle(t) {
			return reg.helper, nil
		}
	}
	return nil, fmt.Errorf("persistence helper for trigger type %q: %w", t.TypeTag(), models.ErrNotFound)
}
