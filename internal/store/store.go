// Squaredown - Square Point-of-Sale Data Synchronization and Accounting Reports
// Copyright 2026 Lake Anne Brewhouse
// SPDX-License-Identifier: MIT
// https://github.com/lakeannebrewhouse/squaredown

// Package store persists Square documents in MongoDB.
//
// Documents are stored verbatim as received from the API, with _id set to the
// external object id so repeated syncs are idempotent overwrites. Timestamp
// strings are decoded to time.Time before upsert, which MongoDB stores as
// BSON dates.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/lakeannebrewhouse/squaredown/internal/config"
	"github.com/lakeannebrewhouse/squaredown/internal/metrics"
)

var (
	// ErrNotFound is returned when a document does not exist.
	ErrNotFound = errors.New("store: document not found")

	// ErrOrderFixed is returned when an upsert is blocked by a document
	// whose _fixed flag is set. Manually repaired orders are never
	// overwritten by sync.
	ErrOrderFixed = errors.New("store: order is fixed, not overwritten")
)

// Datastore is the persistence surface consumed by the sync connectors and
// the report generator. Implemented by Store; tests substitute fakes.
type Datastore interface {
	UpsertByID(ctx context.Context, collection, id string, doc map[string]interface{}) error
	UpsertOrder(ctx context.Context, collection, id string, doc map[string]interface{}) error
	DeleteByID(ctx context.Context, collection, id string) error
	FindByID(ctx context.Context, collection, id string) (map[string]interface{}, error)
	FindRange(ctx context.Context, collection, timeField string, begin, end time.Time) ([]map[string]interface{}, error)
	Aggregate(ctx context.Context, collection string, pipeline mongo.Pipeline) ([]map[string]interface{}, error)
	LoadSyncState(ctx context.Context, name string) (*SyncState, error)
	SaveSyncState(ctx context.Context, state *SyncState) error
}

// Store owns the MongoDB connection and database handle.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

// Connect establishes the MongoDB connection and verifies it with a ping.
func Connect(ctx context.Context, cfg *config.MongoConfig) (*Store, error) {
	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	return &Store{
		client: client,
		db:     client.Database(cfg.Database),
	}, nil
}

// Close disconnects from MongoDB.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// Collection returns a raw collection handle.
func (s *Store) Collection(name string) *mongo.Collection {
	return s.db.Collection(name)
}

// UpsertByID replaces the document with the given id, inserting it if absent.
// The id is written into the document as _id.
func (s *Store) UpsertByID(ctx context.Context, collection, id string, doc map[string]interface{}) error {
	doc["_id"] = id

	start := time.Now()
	_, err := s.db.Collection(collection).ReplaceOne(ctx,
		bson.M{"_id": id},
		doc,
		options.Replace().SetUpsert(true),
	)
	metrics.RecordMongoOperation("upsert", collection, time.Since(start), err)
	if err != nil {
		return fmt.Errorf("failed to upsert %s/%s: %w", collection, id, err)
	}

	metrics.RecordUpsert(collection)
	return nil
}

// UpsertOrder replaces an order document unless its stored copy carries
// _fixed: true. A fixed document makes the filter match nothing, so the
// upsert attempts an insert and trips the duplicate key error on _id; that
// condition is reported as ErrOrderFixed.
func (s *Store) UpsertOrder(ctx context.Context, collection, id string, doc map[string]interface{}) error {
	doc["_id"] = id
	filter := bson.M{
		"_id": id,
		"$or": bson.A{
			bson.M{"_fixed": bson.M{"$exists": false}},
			bson.M{"_fixed": false},
		},
	}

	start := time.Now()
	_, err := s.db.Collection(collection).ReplaceOne(ctx,
		filter,
		doc,
		options.Replace().SetUpsert(true),
	)
	metrics.RecordMongoOperation("upsert", collection, time.Since(start), err)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrOrderFixed
		}
		return fmt.Errorf("failed to upsert %s/%s: %w", collection, id, err)
	}

	metrics.RecordUpsert(collection)
	return nil
}

// DeleteByID removes a document. Deleting a missing document is not an error.
func (s *Store) DeleteByID(ctx context.Context, collection, id string) error {
	start := time.Now()
	_, err := s.db.Collection(collection).DeleteOne(ctx, bson.M{"_id": id})
	metrics.RecordMongoOperation("delete", collection, time.Since(start), err)
	if err != nil {
		return fmt.Errorf("failed to delete %s/%s: %w", collection, id, err)
	}
	return nil
}

// FindByID retrieves a document by id. Returns ErrNotFound if absent.
func (s *Store) FindByID(ctx context.Context, collection, id string) (map[string]interface{}, error) {
	start := time.Now()
	var doc map[string]interface{}
	err := s.db.Collection(collection).FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	metrics.RecordMongoOperation("find", collection, time.Since(start), err)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find %s/%s: %w", collection, id, err)
	}
	return doc, nil
}

// FindRange retrieves the documents whose timeField falls in [begin, end),
// sorted ascending. Used to reprocess raw documents without calling the API.
// Raw documents keep the API's RFC3339 timestamp strings, which compare
// lexicographically in chronological order, so the bounds are formatted as
// strings rather than BSON dates.
func (s *Store) FindRange(ctx context.Context, collection, timeField string, begin, end time.Time) ([]map[string]interface{}, error) {
	filter := bson.M{timeField: bson.M{
		"$gte": begin.UTC().Format(time.RFC3339),
		"$lt":  end.UTC().Format(time.RFC3339),
	}}
	opts := options.Find().SetSort(bson.D{{Key: timeField, Value: 1}})

	start := time.Now()
	cursor, err := s.db.Collection(collection).Find(ctx, filter, opts)
	if err != nil {
		metrics.RecordMongoOperation("find_range", collection, time.Since(start), err)
		return nil, fmt.Errorf("failed to query %s: %w", collection, err)
	}

	var docs []map[string]interface{}
	err = cursor.All(ctx, &docs)
	metrics.RecordMongoOperation("find_range", collection, time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s cursor: %w", collection, err)
	}
	return docs, nil
}

// Aggregate runs an aggregation pipeline and returns all result documents.
func (s *Store) Aggregate(ctx context.Context, collection string, pipeline mongo.Pipeline) ([]map[string]interface{}, error) {
	start := time.Now()
	cursor, err := s.db.Collection(collection).Aggregate(ctx, pipeline)
	if err != nil {
		metrics.RecordMongoOperation("aggregate", collection, time.Since(start), err)
		return nil, fmt.Errorf("failed to aggregate %s: %w", collection, err)
	}

	var docs []map[string]interface{}
	err = cursor.All(ctx, &docs)
	metrics.RecordMongoOperation("aggregate", collection, time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s aggregation cursor: %w", collection, err)
	}
	return docs, nil
}
