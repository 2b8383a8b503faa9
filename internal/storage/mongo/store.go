// -----------------------------------------------------------------------
// Mongo-backed schedule store - shared persistence for clustered schedulers
// -----------------------------------------------------------------------

package mongo

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"

	"github.com/ternarybob/tempo/internal/codec"
	"github.com/ternarybob/tempo/internal/common"
	"github.com/ternarybob/tempo/internal/interfaces"
	"github.com/ternarybob/tempo/internal/models"
	"github.com/ternarybob/tempo/internal/triggers"
)

// Store implements the JobStore contract on MongoDB. Scheduler nodes
// sharing one database coordinate exclusively through the unique indexes
// on the collections below; the store holds no per-request mutable state,
// so one instance is safe for concurrent use by many workers.
type Store struct {
	config *common.StoreConfig
	logger arbor.ILogger

	client     *mongo.Client
	ownsClient bool

	jobCollection       *mongo.Collection
	triggerCollection   *mongo.Collection
	calendarCollection  *mongo.Collection
	locksCollection     *mongo.Collection
	pausedTriggerGroups *mongo.Collection
	pausedJobGroups     *mongo.Collection

	registry   *triggers.Registry
	serializer interfaces.Serializer
	signaler   interfaces.SchedulerSignaler
	instanceID string

	now func() time.Time
}

var _ interfaces.JobStore = (*Store)(nil)

// Option customizes store construction.
type Option func(*Store)

// WithClient injects an already-built Mongo client. Supplying connection
// parameters in the config as well is a configuration error.
func WithClient(client *mongo.Client) Option {
	return func(s *Store) { s.client = client }
}

// WithSerializer overrides the default JSON serializer for data maps and
// calendars.
func WithSerializer(serializer interfaces.Serializer) Option {
	return func(s *Store) { s.serializer = serializer }
}

// WithRegistry overrides the default trigger type registry, typically to
// add custom trigger shapes.
func WithRegistry(registry *triggers.Registry) Option {
	return func(s *Store) { s.registry = registry }
}

// withClock overrides the store's time source in tests.
func withClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// NewStore connects to MongoDB per the configuration, ensures the
// required indexes and clears this instance's stale locks.
func NewStore(ctx context.Context, logger arbor.ILogger, cfg *common.StoreConfig, signaler interfaces.SchedulerSignaler, opts ...Option) (interfaces.JobStore, error) {
	if cfg.InstanceID == "" {
		return nil, models.NewConfigError("instance_id is required for cluster safety")
	}

	store := &Store{
		config:     cfg,
		logger:     logger,
		registry:   triggers.NewRegistry(),
		serializer: codec.JSONSerializer{},
		signaler:   signaler,
		instanceID: cfg.InstanceID,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(store)
	}

	if store.client != nil {
		if cfg.HasConnectionParameters() {
			return nil, models.NewConfigError("configure either a Mongo client or MongoDB connection parameters, not both")
		}
	} else {
		client, err := connect(ctx, cfg)
		if err != nil {
			return nil, err
		}
		store.client = client
		store.ownsClient = true
	}

	db := store.client.Database(cfg.DBName, options.Database().SetWriteConcern(writeconcern.Journaled()))

	store.jobCollection = db.Collection(cfg.CollectionName("jobs"))
	store.triggerCollection = db.Collection(cfg.CollectionName("triggers"))
	store.calendarCollection = db.Collection(cfg.CollectionName("calendars"))
	// A lost lock write would break mutual exclusion across nodes, so the
	// locks collection insists on journaled durability.
	store.locksCollection = db.Collection(cfg.CollectionName("locks"),
		options.Collection().SetWriteConcern(writeconcern.Journaled()))
	store.pausedTriggerGroups = db.Collection(cfg.CollectionName("paused_trigger_groups"))
	store.pausedJobGroups = db.Collection(cfg.CollectionName("paused_job_groups"))

	if err := store.bootstrap(ctx); err != nil {
		return nil, err
	}

	logger.Info().
		Str("instance_id", store.instanceID).
		Str("db", cfg.DBName).
		Str("prefix", cfg.CollectionPrefix).
		Msg("Schedule store initialized")

	return store, nil
}

// Shutdown disconnects the client when the store created it.
func (s *Store) Shutdown(ctx context.Context) error {
	if !s.ownsClient {
		return nil
	}
	if err := s.client.Disconnect(ctx); err != nil {
		return fmt.Errorf("disconnect mongo client: %w", err)
	}
	return nil
}

// ClearAllSchedulingData wipes jobs, triggers, calendars and paused-group
// markers. Locks are left alone; they expire or belong to live nodes.
func (s *Store) ClearAllSchedulingData(ctx context.Context) error {
	for _, collection := range []*mongo.Collection{
		s.jobCollection,
		s.triggerCollection,
		s.calendarCollection,
		s.pausedTriggerGroups,
		s.pausedJobGroups,
	} {
		if _, err := collection.DeleteMany(ctx, bson.M{}); err != nil {
			return models.WrapStorage("clear "+collection.Name(), err)
		}
	}
	return nil
}

func (s *Store) GetNumberOfJobs(ctx context.Context) (int64, error) {
	return s.count(ctx, s.jobCollection)
}

func (s *Store) GetNumberOfTriggers(ctx context.Context) (int64, error) {
	return s.count(ctx, s.triggerCollection)
}

func (s *Store) GetNumberOfCalendars(ctx context.Context) (int64, error) {
	return s.count(ctx, s.calendarCollection)
}

func (s *Store) GetNumberOfLocks(ctx context.Context) (int64, error) {
	return s.count(ctx, s.locksCollection)
}

func (s *Store) count(ctx context.Context, collection *mongo.Collection) (int64, error) {
	n, err := collection.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, models.WrapStorage("count "+collection.Name(), err)
	}
	return n, nil
}
