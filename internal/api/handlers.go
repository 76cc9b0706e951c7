// Squaredown - Square Point-of-Sale Data Synchronization and Accounting Reports
// Copyright 2026 Lake Anne Brewhouse
// SPDX-License-Identifier: MIT
// https://github.com/lakeannebrewhouse/squaredown

// Package api serves the administrative HTTP surface: health probes, report
// retrieval, and manual sync control.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/lakeannebrewhouse/squaredown/internal/connector"
	"github.com/lakeannebrewhouse/squaredown/internal/logging"
	"github.com/lakeannebrewhouse/squaredown/internal/report"
	"github.com/lakeannebrewhouse/squaredown/internal/timespan"
)

// SyncManager is the sync control surface the handlers drive.
type SyncManager interface {
	TriggerSync(ctx context.Context, opts connector.PullOptions) error
	LastSyncTime() time.Time
	IsRunning() bool
}

// ReportBuilder produces accounting reports.
type ReportBuilder interface {
	Build(ctx context.Context, begin, thru time.Time) (*report.Report, error)
}

// Handler holds the HTTP handlers and their dependencies.
type Handler struct {
	sync      SyncManager
	reports   ReportBuilder
	ready     func(ctx context.Context) error
	minStart  time.Time
	startedAt time.Time
}

// NewHandler creates the handler set. The ready function is called by the
// readiness probe and should verify the datastore connection.
func NewHandler(sync SyncManager, reports ReportBuilder, ready func(ctx context.Context) error, minStart time.Time) *Handler {
	return &Handler{
		sync:      sync,
		reports:   reports,
		ready:     ready,
		minStart:  minStart,
		startedAt: time.Now(),
	}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logging.Error().Err(err).Msg("Failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// Health reports overall service status.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status := map[string]interface{}{
		"status":       "ok",
		"uptime":       time.Since(h.startedAt).String(),
		"sync_running": h.sync.IsRunning(),
	}
	if last := h.sync.LastSyncTime(); !last.IsZero() {
		status["last_sync"] = last.UTC().Format(time.RFC3339)
	}
	writeJSON(w, http.StatusOK, status)
}

// HealthLive is the liveness probe.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "alive"})
}

// HealthReady is the readiness probe. Not ready until the datastore responds.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	if err := h.ready(r.Context()); err != nil {
		logging.Warn().Err(err).Msg("Readiness check failed")
		writeError(w, http.StatusServiceUnavailable, "datastore unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// Report builds and returns the accounting report for the requested window.
// begin and thru accept RFC3339 datetimes, dates, or ISO week notation
// (2023-W26); begin defaults to the configured minimum, thru to now.
func (h *Handler) Report(w http.ResponseWriter, r *http.Request) {
	begin, thru, err := timespan.Resolve(timespan.Options{
		BeginStr: r.URL.Query().Get("begin"),
		ThruStr:  r.URL.Query().Get("thru"),
		Min:      h.minStart,
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	rep, err := h.reports.Build(r.Context(), begin, thru)
	if err != nil {
		logging.Error().Err(err).Msg("Report build failed")
		writeError(w, http.StatusInternalServerError, "failed to build report")
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

// TriggerSync starts a sync run in the background. Optional begin/thru
// query parameters bound the window; from_raw=true reprocesses stored raw
// orders instead of calling the API.
func (h *Handler) TriggerSync(w http.ResponseWriter, r *http.Request) {
	begin, thru, err := timespan.Resolve(timespan.Options{
		BeginStr: r.URL.Query().Get("begin"),
		ThruStr:  r.URL.Query().Get("thru"),
		Min:      h.minStart,
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	opts := connector.PullOptions{
		FromRaw: r.URL.Query().Get("from_raw") == "true",
	}
	// Only explicit bounds override the connector watermarks.
	if r.URL.Query().Get("begin") != "" {
		opts.Begin = begin
	}
	if r.URL.Query().Get("thru") != "" {
		opts.Thru = thru
	}

	go func() {
		if err := h.sync.TriggerSync(context.Background(), opts); err != nil {
			logging.Error().Err(err).Msg("Triggered sync failed")
		}
	}()

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "triggered"})
}

// SyncStatus reports whether the manager is running and when it last
// completed a sync.
func (h *Handler) SyncStatus(w http.ResponseWriter, r *http.Request) {
	status := map[string]interface{}{
		"running": h.sync.IsRunning(),
	}
	if last := h.sync.LastSyncTime(); !last.IsZero() {
		status["last_sync"] = last.UTC().Format(time.RFC3339)
	}
	writeJSON(w, http.StatusOK, status)
}
