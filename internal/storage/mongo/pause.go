package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/ternarybob/tempo/internal/models"
	"github.com/ternarybob/tempo/internal/query"
)

// Pause and resume flip trigger state symbols in bulk. Resuming does not
// recompute schedules; a resumed trigger simply becomes eligible for
// acquisition again and misfire handling catches it up.

// PauseTrigger puts the trigger into the paused state.
func (s *Store) PauseTrigger(ctx context.Context, key models.TriggerKey) error {
	return s.setStateByFilter(ctx, query.KeyFilter(key.Group, key.Name), models.StatePaused)
}

// ResumeTrigger puts the trigger back into the waiting state.
func (s *Store) ResumeTrigger(ctx context.Context, key models.TriggerKey) error {
	return s.setStateByFilter(ctx, query.KeyFilter(key.Group, key.Name), models.StateWaiting)
}

// PauseTriggers pauses every trigger whose group matches, marks the
// matched groups paused and returns them.
func (s *Store) PauseTriggers(ctx context.Context, matcher models.GroupMatcher) ([]string, error) {
	if err := s.setStateByFilter(ctx, query.MatchingKeysCondition(matcher), models.StatePaused); err != nil {
		return nil, err
	}
	groups, err := query.NewGroupHelper(s.triggerCollection).GroupsThatMatch(ctx, matcher)
	if err != nil {
		return nil, err
	}
	if err := s.markTriggerGroupsPaused(ctx, groups); err != nil {
		return nil, err
	}
	return groups, nil
}

// ResumeTriggers resumes every trigger whose group matches, unmarks the
// matched groups and returns them.
func (s *Store) ResumeTriggers(ctx context.Context, matcher models.GroupMatcher) ([]string, error) {
	if err := s.setStateByFilter(ctx, query.MatchingKeysCondition(matcher), models.StateWaiting); err != nil {
		return nil, err
	}
	groups, err := query.NewGroupHelper(s.triggerCollection).GroupsThatMatch(ctx, matcher)
	if err != nil {
		return nil, err
	}
	if err := s.unmarkTriggerGroupsPaused(ctx, groups); err != nil {
		return nil, err
	}
	return groups, nil
}

// PauseJob pauses every trigger of the job and marks their trigger
// groups paused. A missing job is a no-op.
func (s *Store) PauseJob(ctx context.Context, key models.JobKey) error {
	jobID, ok, err := s.jobIDForKey(ctx, key)
	if err != nil || !ok {
		return err
	}
	groups, err := query.NewTriggerGroupHelper(s.triggerCollection).GroupsForJobID(ctx, jobID)
	if err != nil {
		return err
	}
	if err := s.setStateByFilter(ctx, bson.M{models.FieldJobID: jobID}, models.StatePaused); err != nil {
		return err
	}
	return s.markTriggerGroupsPaused(ctx, groups)
}

// ResumeJob resumes every trigger of the job. A missing job is a no-op.
func (s *Store) ResumeJob(ctx context.Context, key models.JobKey) error {
	jobID, ok, err := s.jobIDForKey(ctx, key)
	if err != nil || !ok {
		return err
	}
	return s.setStateByFilter(ctx, bson.M{models.FieldJobID: jobID}, models.StateWaiting)
}

// PauseJobs pauses the triggers of every job whose group matches, marks
// the matched job groups paused and returns them.
func (s *Store) PauseJobs(ctx context.Context, matcher models.GroupMatcher) ([]string, error) {
	jobIDs, groups, err := s.jobIDsMatching(ctx, matcher)
	if err != nil {
		return nil, err
	}
	if len(jobIDs) > 0 {
		filter := bson.M{models.FieldJobID: bson.M{"$in": jobIDs}}
		if err := s.setStateByFilter(ctx, filter, models.StatePaused); err != nil {
			return nil, err
		}
	}
	if err := s.markJobGroupsPaused(ctx, groups); err != nil {
		return nil, err
	}
	return groups, nil
}

// ResumeJobs resumes the triggers of every job whose group matches,
// unmarks the matched job groups and returns them.
func (s *Store) ResumeJobs(ctx context.Context, matcher models.GroupMatcher) ([]string, error) {
	jobIDs, groups, err := s.jobIDsMatching(ctx, matcher)
	if err != nil {
		return nil, err
	}
	if len(jobIDs) > 0 {
		filter := bson.M{models.FieldJobID: bson.M{"$in": jobIDs}}
		if err := s.setStateByFilter(ctx, filter, models.StateWaiting); err != nil {
			return nil, err
		}
	}
	if err := s.unmarkJobGroupsPaused(ctx, groups); err != nil {
		return nil, err
	}
	return groups, nil
}

// PauseAll pauses every trigger and marks every trigger group paused.
func (s *Store) PauseAll(ctx context.Context) error {
	if err := s.setStateByFilter(ctx, bson.M{}, models.StatePaused); err != nil {
		return err
	}
	groups, err := query.NewGroupHelper(s.triggerCollection).AllGroups(ctx)
	if err != nil {
		return err
	}
	return s.markTriggerGroupsPaused(ctx, groups)
}

// ResumeAll resumes every trigger and clears every paused trigger group
// marker.
func (s *Store) ResumeAll(ctx context.Context) error {
	if err := s.setStateByFilter(ctx, bson.M{}, models.StateWaiting); err != nil {
		return err
	}
	if _, err := s.pausedTriggerGroups.DeleteMany(ctx, bson.M{}); err != nil {
		return models.WrapStorage("clear paused trigger groups", err)
	}
	return nil
}

func (s *Store) setStateByFilter(ctx context.Context, filter bson.M, state string) error {
	_, err := s.triggerCollection.UpdateMany(ctx, filter,
		bson.M{"$set": bson.M{models.FieldState: state}})
	if err != nil {
		return models.WrapStorage("set trigger state "+state, err)
	}
	return nil
}

func (s *Store) jobIDForKey(ctx context.Context, key models.JobKey) (primitive.ObjectID, bool, error) {
	doc, err := s.findJobDoc(ctx, key)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return primitive.NilObjectID, false, nil
		}
		return primitive.NilObjectID, false, err
	}
	return doc[models.FieldID].(primitive.ObjectID), true, nil
}

// jobIDsMatching returns the ids of jobs whose group matches plus the
// distinct set of matched groups.
func (s *Store) jobIDsMatching(ctx context.Context, matcher models.GroupMatcher) ([]primitive.ObjectID, []string, error) {
	cursor, err := s.jobCollection.Find(ctx, query.MatchingKeysCondition(matcher))
	if err != nil {
		return nil, nil, models.WrapStorage("find jobs by group", err)
	}
	defer cursor.Close(ctx)

	var ids []primitive.ObjectID
	groupSet := map[string]bool{}
	for cursor.Next(ctx) {
		var doc bson.M
		if err := cursor.Decode(&doc); err != nil {
			return nil, nil, models.WrapStorage("decode job document", err)
		}
		if id, ok := doc[models.FieldID].(primitive.ObjectID); ok {
			ids = append(ids, id)
		}
		groupSet[stringValue(doc[models.FieldGroup])] = true
	}
	if err := cursor.Err(); err != nil {
		return nil, nil, models.WrapStorage("iterate jobs by group", err)
	}

	groups := make([]string, 0, len(groupSet))
	for group := range groupSet {
		groups = append(groups, group)
	}
	return ids, groups, nil
}
