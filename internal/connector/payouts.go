// Squaredown - Square Point-of-Sale Data Synchronization and Accounting Reports
// Copyright 2026 Lake Anne Brewhouse
// SPDX-License-Identifier: MIT
// https://github.com/lakeannebrewhouse/squaredown

package connector

import (
	"context"
	"fmt"
	"time"

	"github.com/lakeannebrewhouse/squaredown/internal/config"
	"github.com/lakeannebrewhouse/squaredown/internal/logging"
	"github.com/lakeannebrewhouse/squaredown/internal/square"
	"github.com/lakeannebrewhouse/squaredown/internal/store"
)

// PayoutsConnector syncs payouts and their entries. Payouts are listed per
// location, ascending by creation time, and the watermark advances after
// each payout together with all of its entries.
type PayoutsConnector struct {
	Connector
}

// NewPayoutsConnector creates the payouts connector.
func NewPayoutsConnector(api square.APIClient, db store.Datastore, cfg *config.SyncConfig, locationIDs []string) *PayoutsConnector {
	return &PayoutsConnector{
		Connector: Connector{
			api:         api,
			db:          db,
			cfg:         cfg,
			locationIDs: locationIDs,
			name:        "payouts",
		},
	}
}

// Pull syncs all payouts created in the window for every configured
// location.
func (c *PayoutsConnector) Pull(ctx context.Context, opts PullOptions) (*PullStats, error) {
	state, err := c.db.LoadSyncState(ctx, c.name)
	if err != nil {
		return nil, err
	}
	begin, thru := c.window(opts, state)

	logging.Info().Str("connector", c.name).Time("begin", begin).Time("thru", thru).Msg("Pulling payouts")

	stats := &PullStats{}
	for _, locationID := range c.locationIDs {
		if err := c.pullLocation(ctx, locationID, begin, thru, state, stats); err != nil {
			return stats, err
		}
	}

	logging.Info().Str("connector", c.name).Int("pulled", stats.Pulled).Msg("Payouts pull complete")
	return stats, nil
}

func (c *PayoutsConnector) pullLocation(ctx context.Context, locationID string, begin, thru time.Time, state *store.SyncState, stats *PullStats) error {
	cursor := ""
	for {
		resp, err := c.api.ListPayouts(ctx, locationID, begin, thru, cursor)
		if err != nil {
			return fmt.Errorf("failed to list payouts for %s: %w", locationID, err)
		}

		for _, payout := range resp.Payouts {
			if err := c.processPayout(ctx, payout, state); err != nil {
				return err
			}
			stats.Pulled++
		}

		if resp.Cursor == "" {
			return nil
		}
		cursor = resp.Cursor
	}
}

// processPayout upserts the payout, pulls all of its entries, then advances
// the watermark.
func (c *PayoutsConnector) processPayout(ctx context.Context, payout map[string]interface{}, state *store.SyncState) error {
	id := stringField(payout, "id")
	if id == "" {
		logging.Warn().Str("connector", c.name).Msg("Payout without id, skipping")
		return nil
	}

	createdAt, _ := parseTimestamp(stringField(payout, "created_at"))
	decodePayout(payout)

	if err := c.db.UpsertByID(ctx, store.PayoutsCollection, id, payout); err != nil {
		return err
	}
	if err := c.pullEntries(ctx, id); err != nil {
		return err
	}

	// A backfill over an old window must not rewind the watermark.
	if createdAt.Before(state.LastUpdated) {
		return nil
	}
	state.LastID = id
	state.LastUpdated = createdAt
	return c.db.SaveSyncState(ctx, state)
}

// pullEntries fetches every entry of a payout, saving a raw copy before the
// decoded document.
func (c *PayoutsConnector) pullEntries(ctx context.Context, payoutID string) error {
	cursor := ""
	for {
		resp, err := c.api.ListPayoutEntries(ctx, payoutID, cursor)
		if err != nil {
			return fmt.Errorf("failed to list entries for payout %s: %w", payoutID, err)
		}

		for _, entry := range resp.PayoutEntries {
			id := stringField(entry, "id")
			if id == "" {
				continue
			}

			if err := c.db.UpsertByID(ctx, store.RawPayoutEntriesCollection, id, copyDoc(entry)); err != nil {
				return err
			}

			decodePayoutEntry(entry)
			if err := c.db.UpsertByID(ctx, store.PayoutEntriesCollection, id, entry); err != nil {
				return err
			}
		}

		if resp.Cursor == "" {
			return nil
		}
		cursor = resp.Cursor
	}
}
