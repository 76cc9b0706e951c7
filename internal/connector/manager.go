// Squaredown - Square Point-of-Sale Data Synchronization and Accounting Reports
// Copyright 2026 Lake Anne Brewhouse
// SPDX-License-Identifier: MIT
// https://github.com/lakeannebrewhouse/squaredown

package connector

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/lakeannebrewhouse/squaredown/internal/config"
	"github.com/lakeannebrewhouse/squaredown/internal/logging"
	"github.com/lakeannebrewhouse/squaredown/internal/metrics"
	"github.com/lakeannebrewhouse/squaredown/internal/square"
	"github.com/lakeannebrewhouse/squaredown/internal/store"
)

// Manager drives the connectors on a schedule. Connectors run sequentially
// in dependency order: locations and catalog first so orders and payouts can
// reference them, then orders, then payouts.
type Manager struct {
	db              store.Datastore
	connectors      []Puller
	cfg             *config.Config
	lastSync        time.Time
	running         bool
	mu              sync.RWMutex
	syncMu          sync.Mutex // Protects concurrent sync execution
	stopChan        chan struct{}
	wg              sync.WaitGroup
	onSyncCompleted func(records int, durationMs int64)
}

// NewManager creates a sync manager with the full connector set.
func NewManager(api square.APIClient, db store.Datastore, cfg *config.Config) (*Manager, error) {
	catalog, err := NewCatalogConnectors(api, db, &cfg.Sync)
	if err != nil {
		return nil, err
	}

	connectors := make([]Puller, 0, len(catalog)+3)
	connectors = append(connectors, NewLocationsConnector(api, db, &cfg.Sync))
	for _, c := range catalog {
		connectors = append(connectors, c)
	}
	connectors = append(connectors,
		NewOrdersConnector(api, db, &cfg.Sync, cfg.Square.LocationIDs),
		NewPayoutsConnector(api, db, &cfg.Sync, cfg.Square.LocationIDs),
	)

	logging.Info().
		Dur("interval", cfg.Sync.Interval).
		Int("batch_size", cfg.Sync.BatchSize).
		Int("connectors", len(connectors)).
		Strs("locations", cfg.Square.LocationIDs).
		Msg("Sync manager config loaded")

	return &Manager{
		db:         db,
		connectors: connectors,
		cfg:        cfg,
		stopChan:   make(chan struct{}),
	}, nil
}

// SetOnSyncCompleted sets the callback invoked after each successful sync.
func (m *Manager) SetOnSyncCompleted(callback func(records int, durationMs int64)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onSyncCompleted = callback
}

// Start begins the periodic synchronization process. The initial sync runs
// in the background so startup is not blocked on the Square API.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return fmt.Errorf("sync manager is already running")
	}

	logging.Info().Msg("Starting sync manager...")

	m.running = true
	m.mu.Unlock()

	m.wg.Add(2) // One for initial sync, one for sync loop

	go func() {
		defer m.wg.Done()
		if err := m.syncData(ctx, PullOptions{}); err != nil {
			logging.Warn().Err(err).Msg("Initial sync failed (will retry)")
		}
	}()

	go m.syncLoop(ctx)

	return nil
}

// Stop halts the periodic synchronization process and waits for in-flight
// work to finish.
func (m *Manager) Stop() error {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return fmt.Errorf("sync manager is not running")
	}
	m.running = false
	m.mu.Unlock()

	logging.Info().Msg("Stopping sync manager...")

	close(m.stopChan)
	m.wg.Wait()
	logging.Info().Msg("Sync manager stopped")

	return nil
}

// IsRunning reports whether the manager has been started and not stopped.
func (m *Manager) IsRunning() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.running
}

// LastSyncTime returns the timestamp of the last successful sync.
func (m *Manager) LastSyncTime() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastSync
}

// TriggerSync manually runs a full synchronization with the given window.
func (m *Manager) TriggerSync(ctx context.Context, opts PullOptions) error {
	return m.syncData(ctx, opts)
}

func (m *Manager) syncLoop(ctx context.Context) {
	defer m.wg.Done()

	ticker := time.NewTicker(m.cfg.Sync.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := m.syncData(ctx, PullOptions{}); err != nil {
				logging.Error().Err(err).Msg("Scheduled sync failed")
			}
		case <-m.stopChan:
			return
		case <-ctx.Done():
			return
		}
	}
}

// syncData runs every connector once, each wrapped in retry with backoff.
// One sync runs at a time; a trigger during a scheduled sync waits its turn.
func (m *Manager) syncData(ctx context.Context, opts PullOptions) error {
	m.syncMu.Lock()
	defer m.syncMu.Unlock()

	metrics.SyncRunning.Set(1)
	defer metrics.SyncRunning.Set(0)

	start := time.Now()
	records := 0

	for _, c := range m.connectors {
		connStart := time.Now()
		var stats *PullStats

		err := m.retryWithBackoff(ctx, func() error {
			var pullErr error
			stats, pullErr = c.Pull(ctx, opts)
			return pullErr
		})
		metrics.RecordSyncOperation(c.Name(), time.Since(connStart))
		if err != nil {
			metrics.RecordSyncError("pull_failed")
			return fmt.Errorf("connector %s failed: %w", c.Name(), err)
		}

		records += stats.Pulled
	}

	duration := time.Since(start)

	m.mu.Lock()
	m.lastSync = time.Now()
	callback := m.onSyncCompleted
	m.mu.Unlock()

	metrics.RecordSyncSuccess()
	logging.Info().Int("records", records).Dur("duration", duration).Msg("Sync complete")

	if callback != nil {
		callback(records, duration.Milliseconds())
	}
	return nil
}

// retryWithBackoff executes a function with exponential backoff on failure.
// If the context is canceled during a wait, the function returns immediately
// with the context error.
func (m *Manager) retryWithBackoff(ctx context.Context, fn func() error) error {
	var err error
	delay := m.cfg.Sync.RetryDelay

	for attempt := 0; attempt < m.cfg.Sync.RetryAttempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		err = fn()
		if err == nil {
			return nil
		}

		if attempt < m.cfg.Sync.RetryAttempts-1 {
			logging.Warn().Err(err).Int("attempt", attempt+1).Int("max_attempts", m.cfg.Sync.RetryAttempts).Dur("delay", delay).Msg("Retry attempt")
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
			delay *= 2
		}
	}

	return fmt.Errorf("max retry attempts reached: %w", err)
}
