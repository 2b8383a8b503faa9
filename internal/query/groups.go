package query

import (
	"context"
	"fmt"

	"github.com/ternarybob/tempo/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// GroupHelper answers group-level questions against one keyed collection.
type GroupHelper struct {
	collection *mongo.Collection
}

// NewGroupHelper creates a group helper over the given collection.
func NewGroupHelper(collection *mongo.Collection) *GroupHelper {
	return &GroupHelper{collection: collection}
}

// GroupsThatMatch returns the distinct groups selected by the matcher.
func (h *GroupHelper) GroupsThatMatch(ctx context.Context, matcher models.GroupMatcher) ([]string, error) {
	return h.distinctGroups(ctx, MatchingKeysCondition(matcher))
}

// AllGroups returns every distinct group in the collection.
func (h *GroupHelper) AllGroups(ctx context.Context) ([]string, error) {
	return h.distinctGroups(ctx, bson.M{})
}

func (h *GroupHelper) distinctGroups(ctx context.Context, filter bson.M) ([]string, error) {
	values, err := h.collection.Distinct(ctx, models.FieldGroup, filter)
	if err != nil {
		return nil, fmt.Errorf("distinct groups on %s: %w", h.collection.Name(), err)
	}
	groups := make([]string, 0, len(values))
	for _, v := range values {
		if s, ok := v.(string); ok {
			groups = append(groups, s)
		}
	}
	return groups, nil
}

// TriggerGroupHelper answers which trigger groups reference given jobs.
type TriggerGroupHelper struct {
	triggers *mongo.Collection
}

// NewTriggerGroupHelper creates a helper over the triggers collection.
func NewTriggerGroupHelper(triggers *mongo.Collection) *TriggerGroupHelper {
	return &TriggerGroupHelper{triggers: triggers}
}

// GroupsForJobID returns the distinct groups of triggers referencing the
// given job.
func (h *TriggerGroupHelper) GroupsForJobID(ctx context.Context, jobID primitive.ObjectID) ([]string, error) {
	return h.groupsFor(ctx, bson.M{models.FieldJobID: jobID})
}

// GroupsForJobIDs returns the distinct groups of triggers referencing any
// of the given jobs.
func (h *TriggerGroupHelper) GroupsForJobIDs(ctx context.Context, jobIDs []primitive.ObjectID) ([]string, error) {
	return h.groupsFor(ctx, bson.M{models.FieldJobID: bson.M{"$in": jobIDs}})
}

func (h *TriggerGroupHelper) groupsFor(ctx context.Context, filter bson.M) ([]string, error) {
	values, err := h.triggers.Distinct(ctx, models.FieldGroup, filter)
	if err != nil {
		return nil, fmt.Errorf("distinct trigger groups: %w", err)
	}
	groups := make([]string, 0, len(values))
	for _, v := range values {
		if s, ok := v.(string); ok {
			groups = append(groups, s)
		}
	}
	return groups, nil
}
