package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/ternarybob/tempo/internal/codec"
	"github.com/ternarybob/tempo/internal/models"
	"github.com/ternarybob/tempo/internal/query"
	"github.com/ternarybob/tempo/internal/triggers"
)

// StoreJob upserts a job keyed by (group, name) and returns its storage
// id. With replace false an existing job is left untouched.
func (s *Store) StoreJob(ctx context.Context, job *models.Job, replace bool) (string, error) {
	doc, err := codec.EncodeJob(job, s.serializer)
	if err != nil {
		return "", err
	}

	keyFilter := query.KeyFilter(job.Key.Group, job.Key.Name)
	existing, err := s.findJobDoc(ctx, job.Key)
	switch {
	case err == nil:
		id := existing[models.FieldID].(primitive.ObjectID)
		if replace {
			if _, err := s.jobCollection.ReplaceOne(ctx, keyFilter, doc); err != nil {
				return "", models.WrapStorage("replace job "+job.Key.String(), err)
			}
		}
		return id.Hex(), nil
	case errors.Is(err, models.ErrNotFound):
		// fall through to insert
	default:
		return "", err
	}

	result, err := s.jobCollection.InsertOne(ctx, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			// A peer inserted the same key between our check and insert.
			existing, ferr := s.findJobDoc(ctx, job.Key)
			if ferr != nil {
				return "", ferr
			}
			return existing[models.FieldID].(primitive.ObjectID).Hex(), nil
		}
		return "", models.WrapStorage("insert job "+job.Key.String(), err)
	}
	id, _ := result.InsertedID.(primitive.ObjectID)

	s.logger.Debug().
		Str("job", job.Key.String()).
		Bool("replace", replace).
		Msg("Stored job")
	return id.Hex(), nil
}

// StoreJobAndTrigger stores the job, then the trigger referencing it.
func (s *Store) StoreJobAndTrigger(ctx context.Context, job *models.Job, trigger triggers.Trigger) error {
	id, err := s.StoreJob(ctx, job, false)
	if err != nil {
		return err
	}
	jobID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("invalid job id %q: %w", id, err)
	}
	trigger.SetJobKey(job.Key)
	return s.storeTriggerWithJobID(ctx, trigger, jobID, false)
}

// StoreJobsAndTriggers is not supported; store jobs and triggers one pair
// at a time.
func (s *Store) StoreJobsAndTriggers(ctx context.Context, jobsAndTriggers map[*models.Job][]triggers.Trigger, replace bool) error {
	return fmt.Errorf("bulk store of jobs and triggers: %w", models.ErrUnsupported)
}

// RetrieveJob loads a job by key.
func (s *Store) RetrieveJob(ctx context.Context, key models.JobKey) (*models.Job, error) {
	doc, err := s.findJobDoc(ctx, key)
	if err != nil {
		return nil, err
	}
	return codec.DecodeJob(doc, s.serializer)
}

// RemoveJob deletes the job and every trigger referencing it.
func (s *Store) RemoveJob(ctx context.Context, key models.JobKey) (bool, error) {
	doc, err := s.findJobDoc(ctx, key)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	jobID := doc[models.FieldID].(primitive.ObjectID)

	if _, err := s.jobCollection.DeleteOne(ctx, bson.M{models.FieldID: jobID}); err != nil {
		return false, models.WrapStorage("delete job "+key.String(), err)
	}
	if _, err := s.triggerCollection.DeleteMany(ctx, bson.M{models.FieldJobID: jobID}); err != nil {
		return false, models.WrapStorage("delete triggers of job "+key.String(), err)
	}

	s.logger.Debug().Str("job", key.String()).Msg("Removed job and its triggers")
	return true, nil
}

// RemoveJobs removes each job in turn and reports whether all of them
// existed.
func (s *Store) RemoveJobs(ctx context.Context, keys []models.JobKey) (bool, error) {
	allRemoved := true
	for _, key := range keys {
		removed, err := s.RemoveJob(ctx, key)
		if err != nil {
			return false, err
		}
		allRemoved = allRemoved && removed
	}
	return allRemoved, nil
}

// CheckJobExists reports whether a job document exists for the key.
func (s *Store) CheckJobExists(ctx context.Context, key models.JobKey) (bool, error) {
	n, err := s.jobCollection.CountDocuments(ctx, query.KeyFilter(key.Group, key.Name))
	if err != nil {
		return false, models.WrapStorage("check job "+key.String(), err)
	}
	return n > 0, nil
}

// GetJobKeys returns the keys of jobs whose group matches.
func (s *Store) GetJobKeys(ctx context.Context, matcher models.GroupMatcher) ([]models.JobKey, error) {
	cursor, err := s.jobCollection.Find(ctx, query.MatchingKeysCondition(matcher))
	if err != nil {
		return nil, models.WrapStorage("find job keys", err)
	}
	defer cursor.Close(ctx)

	keys := []models.JobKey{}
	for cursor.Next(ctx) {
		var doc bson.M
		if err := cursor.Decode(&doc); err != nil {
			return nil, models.WrapStorage("decode job document", err)
		}
		keys = append(keys, models.JobKey{
			Group: stringValue(doc[models.FieldGroup]),
			Name:  stringValue(doc[models.FieldName]),
		})
	}
	if err := cursor.Err(); err != nil {
		return nil, models.WrapStorage("iterate job keys", err)
	}
	return keys, nil
}

// GetJobGroupNames returns every distinct job group.
func (s *Store) GetJobGroupNames(ctx context.Context) ([]string, error) {
	return query.NewGroupHelper(s.jobCollection).AllGroups(ctx)
}
