package mongo

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ternarybob/tempo/internal/models"
	"github.com/ternarybob/tempo/internal/query"
)

// Paused-group bookkeeping. A group is paused when a marker document with
// its name exists; marking is an upsert so repeated pauses stay
// idempotent under concurrency.

func (s *Store) markTriggerGroupsPaused(ctx context.Context, groups []string) error {
	return s.markGroupsPaused(ctx, s.pausedTriggerGroups, groups)
}

func (s *Store) unmarkTriggerGroupsPaused(ctx context.Context, groups []string) error {
	return s.unmarkGroupsPaused(ctx, s.pausedTriggerGroups, groups)
}

func (s *Store) markJobGroupsPaused(ctx context.Context, groups []string) error {
	return s.markGroupsPaused(ctx, s.pausedJobGroups, groups)
}

func (s *Store) unmarkJobGroupsPaused(ctx context.Context, groups []string) error {
	return s.unmarkGroupsPaused(ctx, s.pausedJobGroups, groups)
}

func (s *Store) markGroupsPaused(ctx context.Context, collection *mongo.Collection, groups []string) error {
	for _, group := range groups {
		_, err := collection.UpdateOne(ctx,
			bson.M{models.FieldGroup: group},
			bson.M{"$set": bson.M{models.FieldGroup: group}},
			options.Update().SetUpsert(true))
		if err != nil {
			return models.WrapStorage("mark group paused "+group, err)
		}
	}
	return nil
}

func (s *Store) unmarkGroupsPaused(ctx context.Context, collection *mongo.Collection, groups []string) error {
	if len(groups) == 0 {
		return nil
	}
	if _, err := collection.DeleteMany(ctx, query.InGroups(groups)); err != nil {
		return models.WrapStorage("unmark paused groups", err)
	}
	return nil
}

// GetPausedTriggerGroups returns the trigger groups currently marked
// paused.
func (s *Store) GetPausedTriggerGroups(ctx context.Context) ([]string, error) {
	return query.NewGroupHelper(s.pausedTriggerGroups).AllGroups(ctx)
}

// GetPausedJobGroups returns the job groups currently marked paused.
func (s *Store) GetPausedJobGroups(ctx context.Context) ([]string, error) {
	return query.NewGroupHelper(s.pausedJobGroups).AllGroups(ctx)
}
