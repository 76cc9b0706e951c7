// Squaredown - Square Point-of-Sale Data Synchronization and Accounting Reports
// Copyright 2026 Lake Anne Brewhouse
// SPDX-License-Identifier: MIT
// https://github.com/lakeannebrewhouse/squaredown

package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/lakeannebrewhouse/squaredown/internal/metrics"
)

// SyncState is the incremental-sync watermark for one connector. It records
// the last document processed so the next run resumes where the previous one
// left off. Saved after every successful record: a crashed run loses at most
// the record in flight.
type SyncState struct {
	Name        string    `bson:"_id"`
	LastID      string    `bson:"last_id,omitempty"`
	LastUpdated time.Time `bson:"last_updated,omitempty"`
}

// LoadSyncState retrieves the watermark for the named connector. A connector
// that has never run gets a zero-valued state.
func (s *Store) LoadSyncState(ctx context.Context, name string) (*SyncState, error) {
	start := time.Now()
	state := &SyncState{}
	err := s.db.Collection(ConfigCollection).FindOne(ctx, bson.M{"_id": name}).Decode(state)
	metrics.RecordMongoOperation("find", ConfigCollection, time.Since(start), err)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return &SyncState{Name: name}, nil
		}
		return nil, fmt.Errorf("failed to load sync state %s: %w", name, err)
	}
	return state, nil
}

// SaveSyncState persists the watermark for a connector.
func (s *Store) SaveSyncState(ctx context.Context, state *SyncState) error {
	start := time.Now()
	_, err := s.db.Collection(ConfigCollection).ReplaceOne(ctx,
		bson.M{"_id": state.Name},
		state,
		options.Replace().SetUpsert(true),
	)
	metrics.RecordMongoOperation("upsert", ConfigCollection, time.Since(start), err)
	if err != nil {
		return fmt.Errorf("failed to save sync state %s: %w", state.Name, err)
	}
	return nil
}
