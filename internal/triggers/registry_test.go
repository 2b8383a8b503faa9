package triggers

import (
	"errors"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/ternarybob/tempo/internal/models"
)

func TestRegistryConstructsStandardShapes(t *testing.T) {
	registry := NewRegistry()

	tests := []struct {
		tag  string
		want string
	}{
		{TypeSimple, TypeSimple},
		{TypeCron, TypeCron},
		{TypeCalendarInterval, TypeCalendarInterval},
		{TypeDailyTimeInterval, TypeDailyTimeInterval},
	}
	for _, tt := range tests {
		t.Run(tt.tag, func(t *testing.T) {
			trigger, err := registry.New(tt.tag)
			if err != nil {
				t.Fatalf("New(%q) failed: %v", tt.tag, err)
			}
			if trigger.TypeTag() != tt.want {
				t.Errorf("TypeTag() = %q, want %q", trigger.TypeTag(), tt.want)
			}
		})
	}
}

func TestRegistryUnknownTag(t *testing.T) {
	registry := NewRegistry()
	_, err := registry.New("no-such-shape")
	if !errors.Is(err, models.ErrNotFound) {
		t.Errorf("New(unknown) error = %v, want ErrNotFound", err)
	}
}

func TestRegistryHelperRoundTripSimple(t *testing.T) {
	registry := NewRegistry()
	original := NewSimpleTrigger(
		models.NewTriggerKey("round-trip"),
		models.NewJobKey("job"),
		time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		5, 90*time.Second,
	)
	original.TimesTriggered = 2

	helper, err := registry.HelperFor(original)
	if err != nil {
		t.Fatalf("HelperFor failed: %v", err)
	}
	doc := helper.InjectForStorage(original, bson.M{})

	restored, err := registry.New(TypeSimple)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := helper.HydrateAfterConstruct(restored, doc); err != nil {
		t.Fatalf("HydrateAfterConstruct failed: %v", err)
	}

	st := restored.(*SimpleTrigger)
	if st.RepeatCount != 5 || st.RepeatInterval != 90*time.Second || st.TimesTriggered != 2 {
		t.Errorf("restored fields = count %d interval %v triggered %d",
			st.RepeatCount, st.RepeatInterval, st.TimesTriggered)
	}
}

func TestRegistryHelperRoundTripCron(t *testing.T) {
	registry := NewRegistry()
	original, err := NewCronTrigger(
		models.NewTriggerKey("cron-round-trip"),
		models.NewJobKey("job"),
		time.Now(), "0 6 * * *",
	)
	if err != nil {
		t.Fatalf("NewCronTrigger failed: %v", err)
	}

	helper, err := registry.HelperFor(original)
	if err != nil {
		t.Fatalf("HelperFor failed: %v", err)
	}
	doc := helper.InjectForStorage(original, bson.M{})

	restored, err := registry.New(TypeCron)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := helper.HydrateAfterConstruct(restored, doc); err != nil {
		t.Fatalf("HydrateAfterConstruct failed: %v", err)
	}
	if restored.(*CronTrigger).Expression() != "0 6 * * *" {
		t.Errorf("expression = %q", restored.(*CronTrigger).Expression())
	}
}

// stubTrigger is a custom shape used to verify registration order.
type stubTrigger struct{ SimpleTrigger }

func (t *stubTrigger) TypeTag() string { return "stub" }

type stubHelper struct{}

func (stubHelper) CanHandle(t Trigger) bool {
	_, ok := t.(*stubTrigger)
	return ok
}
func (stubHelper) InjectForStorage(t Trigger, doc bson.M) bson.M { return doc }
func (stubHelper) HydrateAfterConstruct(t Trigger, doc bson.M) error {
	return nil
}

func TestRegistryCustomShape(t *testing.T) {
	registry := NewRegistry()
	registry.Register("stub", func() Trigger {
		return &stubTrigger{}
	}, stubHelper{})

	trigger, err := registry.New("stub")
	if err != nil {
		t.Fatalf("New(stub) failed: %v", err)
	}
	helper, err := registry.HelperFor(trigger)
	if err != nil {
		t.Fatalf("HelperFor(stub) failed: %v", err)
	}
	if !helper.CanHandle(trigger) {
		t.Error("selected helper cannot handle its own trigger")
	}
}
