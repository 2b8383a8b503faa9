package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ternarybob/tempo/internal/models"
	"github.com/ternarybob/tempo/internal/query"
	"github.com/ternarybob/tempo/internal/triggers"
)

// StoreTrigger stores a trigger. The referenced job must already exist;
// the trigger document records the job's storage id, not its key.
func (s *Store) StoreTrigger(ctx context.Context, trigger triggers.Trigger, replace bool) error {
	if trigger.JobKey().IsZero() {
		return models.NewConfigError("trigger %s has no job reference", trigger.Key())
	}
	jobDoc, err := s.findJobDoc(ctx, trigger.JobKey())
	if err != nil {
		return err
	}
	jobID := jobDoc[models.FieldID].(primitive.ObjectID)
	return s.storeTriggerWithJobID(ctx, trigger, jobID, replace)
}

func (s *Store) storeTriggerWithJobID(ctx context.Context, trigger triggers.Trigger, jobID primitive.ObjectID, replace bool) error {
	doc, err := s.triggerToDocument(trigger, jobID)
	if err != nil {
		return err
	}

	key := trigger.Key()
	if replace {
		_, err = s.triggerCollection.ReplaceOne(ctx,
			query.KeyFilter(key.Group, key.Name), doc,
			options.Replace().SetUpsert(true))
		if err != nil {
			return models.WrapStorage("replace trigger "+key.String(), err)
		}
	} else {
		if _, err = s.triggerCollection.InsertOne(ctx, doc); err != nil {
			if mongo.IsDuplicateKeyError(err) {
				return fmt.Errorf("trigger %s: %w", key, models.ErrAlreadyExists)
			}
			return models.WrapStorage("insert trigger "+key.String(), err)
		}
	}

	s.logger.Debug().
		Str("trigger", key.String()).
		Bool("replace", replace).
		Msg("Stored trigger")
	return nil
}

// RetrieveTrigger loads a trigger by key. A trigger whose job has been
// deleted reports not found.
func (s *Store) RetrieveTrigger(ctx context.Context, key models.TriggerKey) (triggers.Trigger, error) {
	doc, err := s.findTriggerDoc(ctx, key)
	if err != nil {
		return nil, err
	}
	trigger, err := s.triggerFromDocument(ctx, doc)
	if err != nil {
		return nil, err
	}
	if trigger == nil {
		return nil, fmt.Errorf("trigger %s references a deleted job: %w", key, models.ErrNotFound)
	}
	return trigger, nil
}

// RemoveTrigger deletes the trigger. When it was the only trigger of a
// non-durable job, the job is deleted with it.
func (s *Store) RemoveTrigger(ctx context.Context, key models.TriggerKey) (bool, error) {
	doc, err := s.findTriggerDoc(ctx, key)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return false, nil
		}
		return false, err
	}

	if jobID, ok := doc[models.FieldJobID].(primitive.ObjectID); ok {
		if err := s.removeOrphanedJob(ctx, jobID); err != nil {
			return false, err
		}
	}

	if _, err := s.triggerCollection.DeleteMany(ctx, query.KeyFilter(key.Group, key.Name)); err != nil {
		return false, models.WrapStorage("delete trigger "+key.String(), err)
	}
	s.logger.Debug().Str("trigger", key.String()).Msg("Removed trigger")
	return true, nil
}

// removeOrphanedJob deletes the job when it is non-durable and the
// trigger about to be removed is its last one.
func (s *Store) removeOrphanedJob(ctx context.Context, jobID primitive.ObjectID) error {
	jobDoc, err := s.findJobDocByID(ctx, jobID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil
		}
		return err
	}
	if boolValue(jobDoc[models.FieldDurable]) {
		return nil
	}

	n, err := s.triggerCollection.CountDocuments(ctx, bson.M{models.FieldJobID: jobID})
	if err != nil {
		return models.WrapStorage("count triggers for job", err)
	}
	if n > 1 {
		return nil
	}

	if _, err := s.jobCollection.DeleteOne(ctx, bson.M{models.FieldID: jobID}); err != nil {
		return models.WrapStorage("delete orphaned job", err)
	}
	s.logger.Debug().
		Str("job_id", jobID.Hex()).
		Msg("Removed non-durable job with its last trigger")
	return nil
}

// RemoveTriggers removes each trigger in turn and reports whether all of
// them existed.
func (s *Store) RemoveTriggers(ctx context.Context, keys []models.TriggerKey) (bool, error) {
	allRemoved := true
	for _, key := range keys {
		removed, err := s.RemoveTrigger(ctx, key)
		if err != nil {
			return false, err
		}
		allRemoved = allRemoved && removed
	}
	return allRemoved, nil
}

// ReplaceTrigger swaps the trigger for a new one referencing the same
// job. The old data map carries across unless the new trigger set one.
// When storing the replacement fails the old trigger is re-inserted.
func (s *Store) ReplaceTrigger(ctx context.Context, key models.TriggerKey, newTrigger triggers.Trigger) (bool, error) {
	oldTrigger, err := s.RetrieveTrigger(ctx, key)
	if err != nil {
		return false, err
	}
	if oldTrigger.JobKey() != newTrigger.JobKey() {
		return false, fmt.Errorf("replace trigger %s: new trigger references job %s, old references %s: %w",
			key, newTrigger.JobKey(), oldTrigger.JobKey(), models.ErrJobMismatch)
	}

	if newTrigger.Data() == nil || newTrigger.Data().Len() == 0 {
		newTrigger.SetData(oldTrigger.Data().Clone())
	}

	if _, err := s.triggerCollection.DeleteMany(ctx, query.KeyFilter(key.Group, key.Name)); err != nil {
		return false, models.WrapStorage("delete trigger "+key.String(), err)
	}

	if err := s.StoreTrigger(ctx, newTrigger, false); err != nil {
		// Best effort restore of the old trigger.
		if rerr := s.StoreTrigger(ctx, oldTrigger, false); rerr != nil {
			s.logger.Error().
				Err(rerr).
				Str("trigger", key.String()).
				Msg("Failed to restore trigger after a failed replacement")
		}
		return false, err
	}
	return true, nil
}

// CheckTriggerExists reports whether a trigger document exists for the
// key.
func (s *Store) CheckTriggerExists(ctx context.Context, key models.TriggerKey) (bool, error) {
	n, err := s.triggerCollection.CountDocuments(ctx, query.KeyFilter(key.Group, key.Name))
	if err != nil {
		return false, models.WrapStorage("check trigger "+key.String(), err)
	}
	return n > 0, nil
}

// GetTriggerKeys returns the keys of triggers whose group matches.
func (s *Store) GetTriggerKeys(ctx context.Context, matcher models.GroupMatcher) ([]models.TriggerKey, error) {
	cursor, err := s.triggerCollection.Find(ctx, query.MatchingKeysCondition(matcher))
	if err != nil {
		return nil, models.WrapStorage("find trigger keys", err)
	}
	defer cursor.Close(ctx)

	keys := []models.TriggerKey{}
	for cursor.Next(ctx) {
		var doc bson.M
		if err := cursor.Decode(&doc); err != nil {
			return nil, models.WrapStorage("decode trigger document", err)
		}
		keys = append(keys, models.TriggerKey{
			Group: stringValue(doc[models.FieldGroup]),
			Name:  stringValue(doc[models.FieldName]),
		})
	}
	if err := cursor.Err(); err != nil {
		return nil, models.WrapStorage("iterate trigger keys", err)
	}
	return keys, nil
}

// GetTriggerGroupNames returns every distinct trigger group.
func (s *Store) GetTriggerGroupNames(ctx context.Context) ([]string, error) {
	return query.NewGroupHelper(s.triggerCollection).AllGroups(ctx)
}

// GetTriggersForJob returns the triggers referencing the job. A missing
// job yields an empty result.
func (s *Store) GetTriggersForJob(ctx context.Context, key models.JobKey) ([]triggers.Trigger, error) {
	jobDoc, err := s.findJobDoc(ctx, key)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return []triggers.Trigger{}, nil
		}
		return nil, err
	}
	jobID := jobDoc[models.FieldID].(primitive.ObjectID)

	cursor, err := s.triggerCollection.Find(ctx, bson.M{models.FieldJobID: jobID})
	if err != nil {
		return nil, models.WrapStorage("find triggers for job "+key.String(), err)
	}
	defer cursor.Close(ctx)

	result := []triggers.Trigger{}
	for cursor.Next(ctx) {
		var doc bson.M
		if err := cursor.Decode(&doc); err != nil {
			return nil, models.WrapStorage("decode trigger document", err)
		}
		trigger, err := s.triggerFromDocument(ctx, doc)
		if err != nil {
			return nil, err
		}
		if trigger != nil {
			result = append(result, trigger)
		}
	}
	if err := cursor.Err(); err != nil {
		return nil, models.WrapStorage("iterate triggers for job", err)
	}
	return result, nil
}

// GetTriggerState reports the externally visible state of the trigger.
// A missing trigger reports the none state.
func (s *Store) GetTriggerState(ctx context.Context, key models.TriggerKey) (models.TriggerState, error) {
	doc, err := s.findTriggerDoc(ctx, key)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.TriggerStateNone, nil
		}
		return models.TriggerStateNone, err
	}
	return models.TriggerStateForSymbol(stringValue(doc[models.FieldState])), nil
}

func boolValue(v interface{}) bool {
	b, _ := v.(bool)
	return b
}
