package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/ternarybob/tempo/internal/models"
	"github.com/ternarybob/tempo/internal/query"
	"github.com/ternarybob/tempo/internal/triggers"
)

// Lock documents claim either a trigger (named by the trigger's own key)
// or a job's concurrency slot (named with a reserved prefix). The unique
// (group, name) index makes insertion the atomic claim operation.

func (s *Store) triggerLockDoc(key models.TriggerKey) bson.M {
	return bson.M{
		models.FieldGroup:          key.Group,
		models.FieldName:           key.Name,
		models.FieldLockInstanceID: s.instanceID,
		models.FieldLockTime:       s.now(),
	}
}

func (s *Store) jobLockDoc(key models.JobKey) bson.M {
	return bson.M{
		models.FieldGroup:          key.Group,
		models.FieldName:           models.JobConcurrencyLockPrefix + key.Name,
		models.FieldLockInstanceID: s.instanceID,
		models.FieldLockTime:       s.now(),
	}
}

// findLock loads a lock document by its (group, name) pair.
func (s *Store) findLock(ctx context.Context, group, name string) (*models.Lock, error) {
	var doc bson.M
	err := s.locksCollection.FindOne(ctx, query.KeyFilter(group, name)).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, models.ErrNotFound
		}
		return nil, models.WrapStorage("find lock", err)
	}
	lock := &models.Lock{
		Group:      stringValue(doc[models.FieldGroup]),
		Name:       stringValue(doc[models.FieldName]),
		InstanceID: stringValue(doc[models.FieldLockInstanceID]),
	}
	if t := timeValue(doc[models.FieldLockTime]); t != nil {
		lock.LockTime = *t
	}
	return lock, nil
}

// removeTriggerLock deletes the trigger's lock regardless of owner, so
// any node can release on behalf of a dead peer.
func (s *Store) removeTriggerLock(ctx context.Context, key models.TriggerKey) error {
	if _, err := s.locksCollection.DeleteMany(ctx, query.KeyFilter(key.Group, key.Name)); err != nil {
		return models.WrapStorage("remove trigger lock "+key.String(), err)
	}
	s.logger.Debug().Str("trigger", key.String()).Msg("Removed trigger lock")
	return nil
}

// removeJobLock deletes the job's concurrency lock regardless of owner.
func (s *Store) removeJobLock(ctx context.Context, key models.JobKey) error {
	filter := query.KeyFilter(key.Group, models.JobConcurrencyLockPrefix+key.Name)
	if _, err := s.locksCollection.DeleteMany(ctx, filter); err != nil {
		return models.WrapStorage("remove job lock "+key.String(), err)
	}
	s.logger.Debug().Str("job", key.String()).Msg("Removed job concurrency lock")
	return nil
}

// ReleaseAcquiredTrigger removes the trigger lock without touching the
// trigger document.
func (s *Store) ReleaseAcquiredTrigger(ctx context.Context, trigger triggers.Trigger) error {
	return s.removeTriggerLock(ctx, trigger.Key())
}
