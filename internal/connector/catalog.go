// Squaredown - Square Point-of-Sale Data Synchronization and Accounting Reports
// Copyright 2026 Lake Anne Brewhouse
// SPDX-License-Identifier: MIT
// https://github.com/lakeannebrewhouse/squaredown

package connector

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/lakeannebrewhouse/squaredown/internal/config"
	"github.com/lakeannebrewhouse/squaredown/internal/logging"
	"github.com/lakeannebrewhouse/squaredown/internal/metrics"
	"github.com/lakeannebrewhouse/squaredown/internal/square"
	"github.com/lakeannebrewhouse/squaredown/internal/store"
)

// catalogObjectTypes lists the synced catalog types in a stable order.
var catalogObjectTypes = []string{
	"CATEGORY",
	"ITEM",
	"ITEM_VARIATION",
	"TAX",
	"DISCOUNT",
	"MODIFIER",
	"MODIFIER_LIST",
}

// CatalogConnector syncs one catalog object type into its own collection.
// Deleted objects are included in the search so removals reach the local
// copy as documents with is_deleted set.
type CatalogConnector struct {
	Connector
	objectType string
	collection string
}

// NewCatalogConnector creates a connector for one catalog object type.
func NewCatalogConnector(api square.APIClient, db store.Datastore, cfg *config.SyncConfig, objectType string) (*CatalogConnector, error) {
	collection, ok := store.CatalogCollections[objectType]
	if !ok {
		return nil, fmt.Errorf("unknown catalog object type %q", objectType)
	}
	return &CatalogConnector{
		Connector: Connector{
			api:  api,
			db:   db,
			cfg:  cfg,
			name: "catalog_" + strings.ToLower(objectType),
		},
		objectType: objectType,
		collection: collection,
	}, nil
}

// NewCatalogConnectors creates one connector per synced catalog object type.
func NewCatalogConnectors(api square.APIClient, db store.Datastore, cfg *config.SyncConfig) ([]*CatalogConnector, error) {
	connectors := make([]*CatalogConnector, 0, len(catalogObjectTypes))
	for _, objectType := range catalogObjectTypes {
		c, err := NewCatalogConnector(api, db, cfg, objectType)
		if err != nil {
			return nil, err
		}
		connectors = append(connectors, c)
	}
	return connectors, nil
}

// Pull syncs catalog objects updated at or after the watermark. The catalog
// search API does not sort, so the full window is fetched and sorted on the
// RFC3339 updated_at string before the watermark is advanced per object.
func (c *CatalogConnector) Pull(ctx context.Context, opts PullOptions) (*PullStats, error) {
	state, err := c.db.LoadSyncState(ctx, c.name)
	if err != nil {
		return nil, err
	}
	begin, _ := c.window(opts, state)

	logging.Info().Str("connector", c.name).Time("begin", begin).Msg("Pulling catalog objects")

	objects, err := c.fetchAll(ctx, begin)
	if err != nil {
		return nil, err
	}

	// RFC3339 strings compare lexicographically in chronological order.
	sort.Slice(objects, func(i, j int) bool {
		return stringField(objects[i], "updated_at") < stringField(objects[j], "updated_at")
	})

	stats := &PullStats{}
	for _, obj := range objects {
		id := stringField(obj, "id")
		updatedAt, _ := parseTimestamp(stringField(obj, "updated_at"))

		if stats.Pulled == 0 && id == state.LastID && updatedAt.Equal(state.LastUpdated) {
			metrics.RecordSkip(c.name, "boundary_duplicate")
			stats.Skipped++
			continue
		}

		if err := c.updateObject(ctx, obj); err != nil {
			return stats, err
		}
		stats.Pulled++

		// A backfill over an old window must not rewind the watermark.
		if updatedAt.Before(state.LastUpdated) {
			continue
		}
		state.LastID = id
		state.LastUpdated = updatedAt
		if err := c.db.SaveSyncState(ctx, state); err != nil {
			return stats, err
		}
	}

	logging.Info().Str("connector", c.name).Int("pulled", stats.Pulled).Int("skipped", stats.Skipped).Msg("Catalog pull complete")
	return stats, nil
}

func (c *CatalogConnector) fetchAll(ctx context.Context, begin time.Time) ([]map[string]interface{}, error) {
	var objects []map[string]interface{}
	cursor := ""

	for {
		resp, err := c.api.SearchCatalogObjects(ctx, &square.SearchCatalogObjectsRequest{
			ObjectTypes:           []string{c.objectType},
			IncludeDeletedObjects: true,
			BeginTime:             begin.UTC().Format(time.RFC3339),
			Limit:                 c.cfg.BatchSize,
			Cursor:                cursor,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to search catalog %s: %w", c.objectType, err)
		}

		objects = append(objects, resp.Objects...)
		if resp.Cursor == "" {
			return objects, nil
		}
		cursor = resp.Cursor
	}
}

// updateObject decodes the object's timestamps, hoists the type-specific
// data block to the top level, and upserts it.
func (c *CatalogConnector) updateObject(ctx context.Context, obj map[string]interface{}) error {
	decodeCatalogObject(obj)

	dataKey := strings.ToLower(c.objectType) + "_data"
	if data := asMap(obj[dataKey]); data != nil {
		for k, v := range data {
			obj[k] = v
		}
		delete(obj, dataKey)
	}

	return c.db.UpsertByID(ctx, c.collection, stringField(obj, "id"), obj)
}
