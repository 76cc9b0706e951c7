// Squaredown - Square Point-of-Sale Data Synchronization and Accounting Reports
// Copyright 2026 Lake Anne Brewhouse
// SPDX-License-Identifier: MIT
// https://github.com/lakeannebrewhouse/squaredown

// Package services adapts the application's long-running components to
// suture's Serve lifecycle.
package services

import (
	"context"
	"fmt"
)

// StartStopManager is the Start/Stop lifecycle implemented by the connector
// manager.
type StartStopManager interface {
	Start(ctx context.Context) error
	Stop() error
}

// SyncService wraps the connector manager as a supervised service: Start on
// entry, block on the context, Stop on the way out.
type SyncService struct {
	manager StartStopManager
	name    string
}

// NewSyncService creates the sync service wrapper.
func NewSyncService(manager StartStopManager) *SyncService {
	return &SyncService{
		manager: manager,
		name:    "sync-manager",
	}
}

// Serve implements suture.Service. If Start fails the error is returned so
// suture restarts the service under its backoff policy.
func (s *SyncService) Serve(ctx context.Context) error {
	if err := s.manager.Start(ctx); err != nil {
		return fmt.Errorf("sync manager start failed: %w", err)
	}

	<-ctx.Done()

	if err := s.manager.Stop(); err != nil {
		return fmt.Errorf("sync manager stop failed: %w", err)
	}
	return ctx.Err()
}

// String identifies the service in supervisor logs.
func (s *SyncService) String() string {
	return s.name
}
