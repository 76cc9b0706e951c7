// Squaredown - Square Point-of-Sale Data Synchronization and Accounting Reports
// Copyright 2026 Lake Anne Brewhouse
// SPDX-License-Identifier: MIT
// https://github.com/lakeannebrewhouse/squaredown

// Package connector pulls Square data into MongoDB.
//
// Each connector covers one Square API surface (orders, catalog, locations,
// payouts) and advances a per-connector watermark as it goes, so an
// interrupted run resumes from the last record it finished rather than the
// start of the window. All documents are upserted by their Square id, making
// every pull idempotent.
package connector

import (
	"context"
	"errors"
	"time"

	"github.com/lakeannebrewhouse/squaredown/internal/config"
	"github.com/lakeannebrewhouse/squaredown/internal/square"
	"github.com/lakeannebrewhouse/squaredown/internal/store"
)

// errSkipRecord marks a record that cannot be processed but should not abort
// the pull. The connector logs it, counts it, and moves on.
var errSkipRecord = errors.New("connector: record skipped")

// PullOptions bounds a pull. Zero-valued fields fall back to the connector's
// watermark (Begin) and the current time (Thru). FromRaw reprocesses stored
// raw documents instead of calling the API; only the orders connector
// supports it.
type PullOptions struct {
	Begin   time.Time
	Thru    time.Time
	FromRaw bool
}

// PullStats summarizes one pull.
type PullStats struct {
	Pulled  int
	Skipped int
}

// Puller is the interface the sync manager drives. Each connector pulls one
// kind of Square object.
type Puller interface {
	Name() string
	Pull(ctx context.Context, opts PullOptions) (*PullStats, error)
}

// Connector holds the dependencies shared by every connector.
type Connector struct {
	api         square.APIClient
	db          store.Datastore
	cfg         *config.SyncConfig
	locationIDs []string
	name        string
}

// Name identifies the connector in logs, metrics, and its watermark document.
func (c *Connector) Name() string {
	return c.name
}

// window resolves the pull window. An explicit begin wins; otherwise the
// watermark's last update; otherwise the configured minimum start. Thru
// defaults to now.
func (c *Connector) window(opts PullOptions, state *store.SyncState) (time.Time, time.Time) {
	begin := opts.Begin
	if begin.IsZero() {
		begin = state.LastUpdated
	}
	if begin.IsZero() {
		begin = c.cfg.StartMin
	}

	thru := opts.Thru
	if thru.IsZero() {
		thru = time.Now().UTC()
	}
	return begin, thru
}
