package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"

	"github.com/ternarybob/tempo/internal/common"
	"github.com/ternarybob/tempo/internal/models"
)

// connect builds a Mongo client from the store configuration. Either a
// full connection URI or an address list (with optional credentials) must
// be given; the URI wins when both are present.
func connect(ctx context.Context, cfg *common.StoreConfig) (*mongo.Client, error) {
	if cfg.MongoURI == "" && len(cfg.Addresses) == 0 {
		return nil, models.NewConfigError("at least one MongoDB address or a MongoDB URI must be specified")
	}

	opts := options.Client()
	if cfg.MongoURI != "" {
		opts.ApplyURI(cfg.MongoURI)
	} else {
		opts.SetHosts(cfg.Addresses)
		if cfg.Username != "" {
			authSource := cfg.AuthDBName
			if authSource == "" {
				authSource = cfg.DBName
			}
			opts.SetAuth(options.Credential{
				Username:   cfg.Username,
				Password:   cfg.Password,
				AuthSource: authSource,
			})
		}
	}

	if cfg.MaxConnectionsPerHost > 0 {
		opts.SetMaxPoolSize(cfg.MaxConnectionsPerHost)
	}
	if cfg.ConnectTimeoutMillis > 0 {
		opts.SetConnectTimeout(time.Duration(cfg.ConnectTimeoutMillis) * time.Millisecond)
	}
	if cfg.SocketTimeoutMillis > 0 {
		opts.SetSocketTimeout(time.Duration(cfg.SocketTimeoutMillis) * time.Millisecond)
	}
	if cfg.ThreadsAllowedToBlockForConnectionMultiplier > 0 {
		opts.SetMaxConnecting(cfg.ThreadsAllowedToBlockForConnectionMultiplier)
	}
	opts.SetWriteConcern(writeconcern.Journaled())

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("connect to mongodb: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}
	return client, nil
}
