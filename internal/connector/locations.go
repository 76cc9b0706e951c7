// Squaredown - Square Point-of-Sale Data Synchronization and Accounting Reports
// Copyright 2026 Lake Anne Brewhouse
// SPDX-License-Identifier: MIT
// https://github.com/lakeannebrewhouse/squaredown

package connector

import (
	"context"
	"fmt"

	"github.com/lakeannebrewhouse/squaredown/internal/config"
	"github.com/lakeannebrewhouse/squaredown/internal/logging"
	"github.com/lakeannebrewhouse/squaredown/internal/square"
	"github.com/lakeannebrewhouse/squaredown/internal/store"
)

// LocationsConnector syncs the seller's locations. The list is small and the
// API has no update filter, so every pull fetches all of them and no
// watermark is kept.
type LocationsConnector struct {
	Connector
}

// NewLocationsConnector creates the locations connector.
func NewLocationsConnector(api square.APIClient, db store.Datastore, cfg *config.SyncConfig) *LocationsConnector {
	return &LocationsConnector{
		Connector: Connector{
			api:  api,
			db:   db,
			cfg:  cfg,
			name: "locations",
		},
	}
}

// Pull upserts every location.
func (c *LocationsConnector) Pull(ctx context.Context, _ PullOptions) (*PullStats, error) {
	resp, err := c.api.ListLocations(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list locations: %w", err)
	}

	stats := &PullStats{}
	for _, location := range resp.Locations {
		id := stringField(location, "id")
		if id == "" {
			stats.Skipped++
			continue
		}

		decodeLocation(location)
		if err := c.db.UpsertByID(ctx, store.LocationsCollection, id, location); err != nil {
			return stats, err
		}
		stats.Pulled++
	}

	logging.Info().Str("connector", c.name).Int("pulled", stats.Pulled).Msg("Locations pull complete")
	return stats, nil
}
