package mongo

import (
	"context"
	"errors"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ternarybob/tempo/internal/models"
	"github.com/ternarybob/tempo/internal/triggers"
)

// AcquireNextTriggers claims up to maxCount due triggers for this node.
// Candidates are waiting triggers whose next fire time falls no later
// than noLaterThan+window; each is claimed by inserting a lock document,
// with unique-index contention arbitrating between nodes. The result is
// sorted ascending by next fire time.
func (s *Store) AcquireNextTriggers(ctx context.Context, noLaterThan time.Time, maxCount int, window time.Duration) ([]triggers.Trigger, error) {
	noLaterThanWithWindow := noLaterThan.Add(window)
	acquired := make(map[models.TriggerKey]triggers.Trigger)

	if err := s.acquireInto(ctx, acquired, noLaterThanWithWindow, maxCount); err != nil {
		return nil, err
	}

	result := make([]triggers.Trigger, 0, len(acquired))
	for _, trigger := range acquired {
		result = append(result, trigger)
	}
	sort.Slice(result, func(i, j int) bool {
		a, b := result[i].NextFireTime(), result[j].NextFireTime()
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return a.Before(*b)
		}
	})
	return result, nil
}

// acquireInto fills the acquired set up to maxCount. On lock contention
// against an expired lock it reclaims the lock and retries itself for the
// remaining slots.
func (s *Store) acquireInto(ctx context.Context, acquired map[models.TriggerKey]triggers.Trigger, noLaterThan time.Time, maxCount int) error {
	filter := bson.M{
		models.FieldState:        models.StateWaiting,
		models.FieldNextFireTime: bson.M{"$lte": noLaterThan},
	}
	findOpts := options.Find().SetSort(bson.D{{Key: models.FieldNextFireTime, Value: 1}})

	cursor, err := s.triggerCollection.Find(ctx, filter, findOpts)
	if err != nil {
		return models.WrapStorage("find acquirable triggers", err)
	}
	defer cursor.Close(ctx)

	for len(acquired) < maxCount && cursor.Next(ctx) {
		var doc bson.M
		if err := cursor.Decode(&doc); err != nil {
			return models.WrapStorage("decode trigger document", err)
		}
		trigger, err := s.triggerFromDocument(ctx, doc)
		if err != nil {
			return err
		}
		if trigger == nil {
			// Orphaned trigger; its job is gone.
			continue
		}
		if _, alreadyHeld := acquired[trigger.Key()]; alreadyHeld {
			continue
		}

		if trigger.NextFireTime() == nil {
			s.logger.Debug().
				Str("trigger", trigger.Key().String()).
				Msg("Removing trigger with no next fire time")
			if _, err := s.RemoveTrigger(ctx, trigger.Key()); err != nil {
				return err
			}
			continue
		}

		misfired, err := s.applyMisfire(ctx, trigger)
		if err != nil {
			return err
		}
		if misfired {
			if trigger.NextFireTime() == nil {
				if _, err := s.RemoveTrigger(ctx, trigger.Key()); err != nil {
					return err
				}
				continue
			}
			if trigger.NextFireTime().After(noLaterThan) {
				continue
			}
		}

		retry, err := s.claimTrigger(ctx, acquired, trigger)
		if err != nil {
			return err
		}
		if retry {
			// An expired lock was reclaimed; rescan for the remaining
			// slots so the freed trigger gets another chance.
			return s.acquireInto(ctx, acquired, noLaterThan, maxCount)
		}
	}
	if err := cursor.Err(); err != nil {
		return models.WrapStorage("iterate acquirable triggers", err)
	}
	return nil
}

// claimTrigger attempts the lock insert for one candidate. It reports
// retry=true when a contending lock turned out to be expired and was
// removed, meaning the caller should rescan.
func (s *Store) claimTrigger(ctx context.Context, acquired map[models.TriggerKey]triggers.Trigger, trigger triggers.Trigger) (retry bool, err error) {
	key := trigger.Key()
	_, err = s.locksCollection.InsertOne(ctx, s.triggerLockDoc(key))
	if err == nil {
		s.logger.Debug().Str("trigger", key.String()).Msg("Acquired trigger")
		acquired[key] = trigger
		return false, nil
	}
	if !mongo.IsDuplicateKeyError(err) {
		return false, models.WrapStorage("insert trigger lock "+key.String(), err)
	}

	// Another node holds the lock. If it is expired its owner is
	// presumed dead and the lock may be reclaimed.
	lock, err := s.findLock(ctx, key.Group, key.Name)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			// Released between our insert and this read; rescan.
			return true, nil
		}
		return false, err
	}
	if lock.IsExpired(s.now(), s.config.TriggerTimeout()) {
		s.logger.Warn().
			Str("trigger", key.String()).
			Str("owner", lock.InstanceID).
			Msg("Reclaiming expired trigger lock")
		if err := s.removeTriggerLock(ctx, key); err != nil {
			return false, err
		}
		return true, nil
	}
	return false, nil
}

// applyMisfire checks whether the trigger missed its fire time by more
// than the misfire threshold and, if so, applies its misfire instruction
// and persists the result. It reports whether a misfire was applied.
func (s *Store) applyMisfire(ctx context.Context, trigger triggers.Trigger) (bool, error) {
	misfireTime := s.now()
	if threshold := s.config.MisfireThreshold(); threshold > 0 {
		misfireTime = misfireTime.Add(-threshold)
	}

	next := trigger.NextFireTime()
	if next == nil || next.After(misfireTime) ||
		trigger.MisfireInstruction() == models.MisfireInstructionIgnorePolicy {
		return false, nil
	}

	if s.signaler != nil {
		s.signaler.NotifyTriggerMisfired(trigger.Clone())
	}

	trigger.UpdateAfterMisfire(nil)

	if trigger.NextFireTime() == nil {
		if s.signaler != nil {
			s.signaler.NotifyTriggerFinalized(trigger)
		}
	} else if next.Equal(*trigger.NextFireTime()) {
		return false, nil
	}

	if err := s.StoreTrigger(ctx, trigger, true); err != nil {
		return false, err
	}
	return true, nil
}
