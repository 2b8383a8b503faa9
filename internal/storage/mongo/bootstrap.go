package mongo

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ternarybob/tempo/internal/models"
)

// Index name used by pre-rewrite deployments for the (name, group) pair.
// Dropped on startup so the current unique index can take its place.
const legacyKeyIndexName = "keyName_1_keyGroup_1"

// bootstrap ensures the unique indexes the locking protocol depends on
// and removes locks left behind by a previous run of this instance.
func (s *Store) bootstrap(ctx context.Context) error {
	if err := s.ensureIndexes(ctx); err != nil {
		return err
	}

	// A crashed process of this same instance id may have left locks
	// behind. Nothing else can hold them, so reclaim immediately instead
	// of waiting out the expiry window.
	result, err := s.locksCollection.DeleteMany(ctx, bson.M{
		models.FieldLockInstanceID: s.instanceID,
	})
	if err != nil {
		return models.WrapStorage("remove stale own locks", err)
	}
	if result.DeletedCount > 0 {
		s.logger.Warn().
			Int64("count", result.DeletedCount).
			Str("instance_id", s.instanceID).
			Msg("Removed locks left over from a previous run")
	}
	return nil
}

func (s *Store) ensureIndexes(ctx context.Context) error {
	keyIndex := mongo.IndexModel{
		Keys: bson.D{
			{Key: models.FieldGroup, Value: 1},
			{Key: models.FieldName, Value: 1},
		},
		Options: options.Index().SetUnique(true),
	}

	for _, collection := range []*mongo.Collection{
		s.jobCollection,
		s.triggerCollection,
		s.locksCollection,
	} {
		s.dropLegacyKeyIndex(ctx, collection)
		if _, err := collection.Indexes().CreateOne(ctx, keyIndex); err != nil {
			return models.WrapStorage("create key index on "+collection.Name(), err)
		}
	}

	lockInstanceIndex := mongo.IndexModel{
		Keys: bson.D{{Key: models.FieldLockInstanceID, Value: 1}},
	}
	if _, err := s.locksCollection.Indexes().CreateOne(ctx, lockInstanceIndex); err != nil {
		return models.WrapStorage("create lock instance index", err)
	}

	calendarIndex := mongo.IndexModel{
		Keys:    bson.D{{Key: models.FieldName, Value: 1}},
		Options: options.Index().SetUnique(true),
	}
	if _, err := s.calendarCollection.Indexes().CreateOne(ctx, calendarIndex); err != nil {
		return models.WrapStorage("create calendar name index", err)
	}

	return nil
}

// dropLegacyKeyIndex removes the old-format key index if present. Failure
// is expected on fresh databases and is not an error.
func (s *Store) dropLegacyKeyIndex(ctx context.Context, collection *mongo.Collection) {
	if _, err := collection.Indexes().DropOne(ctx, legacyKeyIndexName); err != nil {
		s.logger.Debug().
			Str("collection", collection.Name()).
			Msg("No legacy key index to drop")
	}
}
