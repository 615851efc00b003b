// Package mongostore stores drug documents in a MongoDB collection.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/JakeFAU/druginfo-crawler/internal/crawler"
)

// Default database and collection names.
const (
	DefaultDatabase   = "medlineplus"
	DefaultCollection = "drug_details"
)

// Config captures the connection parameters.
type Config struct {
	URI        string
	Database   string
	Collection string
	// ConnectTimeout bounds server selection; zero keeps the driver default.
	ConnectTimeout time.Duration
}

// DocumentStore replaces documents keyed by url.
type DocumentStore struct {
	client     *mongo.Client
	collection *mongo.Collection
}

// Open connects to the deployment and pings it before returning.
func Open(ctx context.Context, cfg Config) (*DocumentStore, error) {
	if cfg.URI == "" {
		return nil, crawler.ErrMissingMongoURL
	}
	opts := options.Client().ApplyURI(cfg.URI)
	if cfg.ConnectTimeout > 0 {
		opts.SetServerSelectionTimeout(cfg.ConnectTimeout)
	}
	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	store := NewWithClient(client, cfg.Database, cfg.Collection)
	if err := store.Ping(ctx); err != nil {
		if derr := client.Disconnect(ctx); derr != nil {
			return nil, errors.Join(err, fmt.Errorf("disconnect mongo: %w", derr))
		}
		return nil, err
	}
	return store, nil
}

// NewWithClient wraps an existing client.
func NewWithClient(client *mongo.Client, database, collection string) *DocumentStore {
	if database == "" {
		database = DefaultDatabase
	}
	if collection == "" {
		collection = DefaultCollection
	}
	return &DocumentStore{
		client:     client,
		collection: client.Database(database).Collection(collection),
	}
}

// Upsert replaces the document whose url matches doc.URL, inserting it when absent.
func (s *DocumentStore) Upsert(ctx context.Context, doc crawler.Document) error {
	if doc.URL == "" {
		return fmt.Errorf("document url is required")
	}
	if doc.Details == nil {
		doc.Details = []crawler.Detail{}
	}
	_, err := s.collection.ReplaceOne(ctx,
		bson.D{{Key: "url", Value: doc.URL}},
		doc,
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("replace document %s: %w", doc.URL, err)
	}
	return nil
}

// Clear deletes every document in the collection.
func (s *DocumentStore) Clear(ctx context.Context) (int64, error) {
	res, err := s.collection.DeleteMany(ctx, bson.D{})
	if err != nil {
		return 0, fmt.Errorf("clear collection %s: %w", s.collection.Name(), err)
	}
	return res.DeletedCount, nil
}

// Ping runs the ping command against the admin database.
func (s *DocumentStore) Ping(ctx context.Context) error {
	cmd := bson.D{{Key: "ping", Value: 1}}
	if err := s.client.Database("admin").RunCommand(ctx, cmd).Err(); err != nil {
		return fmt.Errorf("ping mongo: %w", err)
	}
	return nil
}

// Close disconnects the client.
func (s *DocumentStore) Close(ctx context.Context) error {
	if err := s.client.Disconnect(ctx); err != nil {
		return fmt.Errorf("disconnect mongo: %w", err)
	}
	return nil
}
