package mongo

import (
	"context"
	"fmt"
	"time"

	"github.com/rensmac/govassist/internal/config"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// DB wraps the mongo client and selected database
type DB struct {
	client *mongo.Client
	db     *mongo.Database
}

// NewDB connects to MongoDB and verifies the connection
func NewDB(ctx context.Context, cfg config.MongoConfig) (*DB, error) {
	clientOpts := options.Client().ApplyURI(cfg.URI)
	if cfg.ConnectTimeout > 0 {
		clientOpts.SetConnectTimeout(cfg.ConnectTimeout)
	}

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping: %w", err)
	}

	return &DB{
		client: client,
		db:     client.Database(cfg.Database),
	}, nil
}

// Database returns the underlying database handle
func (d *DB) Database() *mongo.Database {
	return d.db
}

// Ping verifies connectivity
func (d *DB) Ping(ctx context.Context) error {
	return d.client.Ping(ctx, nil)
}

// Close disconnects the client
func (d *DB) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return d.client.Disconnect(ctx)
}

// EnsureIndexes creates the indexes the repositories rely on
func (d *DB) EnsureIndexes(ctx context.Context) error {
	sessions := d.db.Collection(sessionCollection)

	_, err := sessions.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "session_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		// Secondary index backing the cross-session latest-document query
		{
			Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "last_document_at", Value: -1}},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create session indexes: %w", err)
	}

	return nil
}
