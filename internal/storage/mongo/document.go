package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/ternarybob/tempo/internal/codec"
	"github.com/ternarybob/tempo/internal/models"
	"github.com/ternarybob/tempo/internal/query"
	"github.com/ternarybob/tempo/internal/triggers"
)

// triggerToDocument builds the full document for a trigger, including the
// shape-specific fields injected by its persistence helper. Stored
// triggers always (re)enter the waiting state.
func (s *Store) triggerToDocument(trigger triggers.Trigger, jobID primitive.ObjectID) (bson.M, error) {
	doc := bson.M{
		models.FieldGroup:              trigger.Key().Group,
		models.FieldName:               trigger.Key().Name,
		models.FieldJobID:              jobID,
		models.FieldState:              models.StateWaiting,
		models.FieldTypeTag:            trigger.TypeTag(),
		models.FieldDescription:        trigger.Description(),
		models.FieldCalendarName:       trigger.CalendarName(),
		models.FieldFireInstanceID:     trigger.FireInstanceID(),
		models.FieldMisfireInstruction: trigger.MisfireInstruction(),
		models.FieldPriority:           trigger.Priority(),
		models.FieldStartTime:          trigger.StartTime(),
	}
	setTimeField(doc, models.FieldEndTime, trigger.EndTime())
	setTimeField(doc, models.FieldNextFireTime, trigger.NextFireTime())
	setTimeField(doc, models.FieldPreviousFireTime, trigger.PreviousFireTime())
	setTimeField(doc, models.FieldFinalFireTime, trigger.FinalFireTime())

	if trigger.Data() != nil && trigger.Data().Len() > 0 {
		encoded, err := codec.EncodeDataMap(trigger.Data(), s.serializer)
		if err != nil {
			return nil, fmt.Errorf("encode data map for trigger %s: %w", trigger.Key(), err)
		}
		doc[models.FieldDataMap] = encoded
	}

	helper, err := s.registry.HelperFor(trigger)
	if err != nil {
		return nil, err
	}
	return helper.InjectForStorage(trigger, doc), nil
}

// triggerFromDocument reconstructs a trigger and resolves its job key.
// It returns (nil, nil) for an orphaned trigger whose job no longer
// exists; callers skip those.
func (s *Store) triggerFromDocument(ctx context.Context, doc bson.M) (triggers.Trigger, error) {
	tag, _ := doc[models.FieldTypeTag].(string)
	trigger, err := s.registry.New(tag)
	if err != nil {
		return nil, err
	}

	base, ok := trigger.(interface{ SetKey(models.TriggerKey) })
	if !ok {
		return nil, fmt.Errorf("trigger type %q does not embed the common trigger core", tag)
	}
	base.SetKey(models.TriggerKey{
		Group: stringValue(doc[models.FieldGroup]),
		Name:  stringValue(doc[models.FieldName]),
	})
	trigger.SetDescription(stringValue(doc[models.FieldDescription]))
	trigger.SetCalendarName(stringValue(doc[models.FieldCalendarName]))
	trigger.SetFireInstanceID(stringValue(doc[models.FieldFireInstanceID]))
	trigger.SetMisfireInstruction(intValue(doc[models.FieldMisfireInstruction], 0))
	trigger.SetPriority(intValue(doc[models.FieldPriority], triggers.DefaultPriority))
	if start := timeValue(doc[models.FieldStartTime]); start != nil {
		trigger.SetStartTime(*start)
	}
	trigger.SetEndTime(timeValue(doc[models.FieldEndTime]))
	trigger.SetNextFireTime(timeValue(doc[models.FieldNextFireTime]))
	trigger.SetPreviousFireTime(timeValue(doc[models.FieldPreviousFireTime]))

	if encoded := stringValue(doc[models.FieldDataMap]); encoded != "" {
		data, err := codec.DecodeDataMap(encoded, s.serializer)
		if err != nil {
			return nil, fmt.Errorf("decode data map for trigger %s: %w", trigger.Key(), err)
		}
		trigger.SetData(data)
	}

	helper, err := s.registry.HelperFor(trigger)
	if err != nil {
		return nil, err
	}
	if err := helper.HydrateAfterConstruct(trigger, doc); err != nil {
		return nil, fmt.Errorf("hydrate trigger %s: %w", trigger.Key(), err)
	}

	jobID, ok := doc[models.FieldJobID].(primitive.ObjectID)
	if !ok {
		return nil, nil
	}
	jobDoc, err := s.findJobDocByID(ctx, jobID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			// The job went away underneath this trigger; treat the
			// trigger as gone too.
			return nil, nil
		}
		return nil, err
	}
	trigger.SetJobKey(models.JobKey{
		Group: stringValue(jobDoc[models.FieldGroup]),
		Name:  stringValue(jobDoc[models.FieldName]),
	})
	return trigger, nil
}

// findTriggerDoc loads the raw trigger document by key.
func (s *Store) findTriggerDoc(ctx context.Context, key models.TriggerKey) (bson.M, error) {
	var doc bson.M
	err := s.triggerCollection.FindOne(ctx, query.KeyFilter(key.Group, key.Name)).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("trigger %s: %w", key, models.ErrNotFound)
		}
		return nil, models.WrapStorage("find trigger "+key.String(), err)
	}
	return doc, nil
}

// findJobDoc loads the raw job document by key.
func (s *Store) findJobDoc(ctx context.Context, key models.JobKey) (bson.M, error) {
	var doc bson.M
	err := s.jobCollection.FindOne(ctx, query.KeyFilter(key.Group, key.Name)).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("job %s: %w", key, models.ErrNotFound)
		}
		return nil, models.WrapStorage("find job "+key.String(), err)
	}
	return doc, nil
}

// findJobDocByID loads the raw job document by storage id.
func (s *Store) findJobDocByID(ctx context.Context, id primitive.ObjectID) (bson.M, error) {
	var doc bson.M
	err := s.jobCollection.FindOne(ctx, bson.M{models.FieldID: id}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("job id %s: %w", id.Hex(), models.ErrNotFound)
		}
		return nil, models.WrapStorage("find job by id", err)
	}
	return doc, nil
}

func setTimeField(doc bson.M, field string, t *time.Time) {
	if t != nil {
		doc[field] = *t
	}
}

func stringValue(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

func intValue(v interface{}, fallback int) int {
	switch n := v.(type) {
	case int:
		return n
	case int32:
		return int(n)
	case int64:
		return int(n)
	case float64:
		return int(n)
	default:
		return fallback
	}
}

func timeValue(v interface{}) *time.Time {
	switch t := v.(type) {
	case primitive.DateTime:
		converted := t.Time()
		return &converted
	case time.Time:
		return &t
	default:
		return nil
	}
}
