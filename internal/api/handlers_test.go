// Squaredown - Square Point-of-Sale Data Synchronization and Accounting Reports
// Copyright 2026 Lake Anne Brewhouse
// SPDX-License-Identifier: MIT
// https://github.com/lakeannebrewhouse/squaredown

package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/lakeannebrewhouse/squaredown/internal/config"
	"github.com/lakeannebrewhouse/squaredown/internal/connector"
	"github.com/lakeannebrewhouse/squaredown/internal/report"
)

type fakeSync struct {
	mu       sync.Mutex
	running  bool
	lastSync time.Time
	opts     []connector.PullOptions
	err      error
	done     chan struct{}
}

func (f *fakeSync) TriggerSync(_ context.Context, opts connector.PullOptions) error {
	f.mu.Lock()
	f.opts = append(f.opts, opts)
	f.mu.Unlock()
	if f.done != nil {
		close(f.done)
	}
	return f.err
}

func (f *fakeSync) LastSyncTime() time.Time { return f.lastSync }
func (f *fakeSync) IsRunning() bool         { return f.running }

type fakeReports struct {
	report *report.Report
	err    error
	begin  time.Time
	thru   time.Time
}

func (f *fakeReports) Build(_ context.Context, begin, thru time.Time) (*report.Report, error) {
	f.begin, f.thru = begin, thru
	if f.err != nil {
		return nil, f.err
	}
	return f.report, nil
}

func testServer(t *testing.T, sync *fakeSync, reports *fakeReports, ready func(context.Context) error) *httptest.Server {
	t.Helper()

	if ready == nil {
		ready = func(context.Context) error { return nil }
	}
	minStart := time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)
	h := NewHandler(sync, reports, ready, minStart)
	router := NewRouter(h, &config.ServerConfig{
		Host:            "127.0.0.1",
		Port:            8080,
		Timeout:         5 * time.Second,
		CORSOrigins:     []string{"*"},
		RateLimitReqs:   1000,
		RateLimitWindow: time.Minute,
	})

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return server
}

func TestHealth(t *testing.T) {
	t.Parallel()

	sync := &fakeSync{running: true, lastSync: time.Date(2023, 6, 1, 12, 0, 0, 0, time.UTC)}
	server := testServer(t, sync, &fakeReports{}, nil)

	resp, err := http.Get(server.URL + "/api/v1/health")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var body map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("unexpected status: %v", body["status"])
	}
	if body["sync_running"] != true {
		t.Errorf("expected sync_running true: %v", body["sync_running"])
	}
	if body["last_sync"] != "2023-06-01T12:00:00Z" {
		t.Errorf("unexpected last_sync: %v", body["last_sync"])
	}
}

func TestHealthReadyFailure(t *testing.T) {
	t.Parallel()

	server := testServer(t, &fakeSync{}, &fakeReports{}, func(context.Context) error {
		return errors.New("mongo down")
	})

	resp, err := http.Get(server.URL + "/api/v1/health/ready")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", resp.StatusCode)
	}
}

func TestReport(t *testing.T) {
	t.Parallel()

	reports := &fakeReports{report: &report.Report{ID: "rep-1"}}
	server := testServer(t, &fakeSync{}, reports, nil)

	resp, err := http.Get(server.URL + "/api/v1/report?begin=2023-06-01&thru=2023-06-08")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var body report.Report
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if body.ID != "rep-1" {
		t.Errorf("unexpected report id: %q", body.ID)
	}

	wantBegin := time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC)
	if !reports.begin.Equal(wantBegin) {
		t.Errorf("expected begin %v, got %v", wantBegin, reports.begin)
	}
}

func TestReportWeekNotation(t *testing.T) {
	t.Parallel()

	reports := &fakeReports{report: &report.Report{ID: "rep-1"}}
	server := testServer(t, &fakeSync{}, reports, nil)

	resp, err := http.Get(server.URL + "/api/v1/report?begin=2023-W22&thru=2023-W22")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	// 2023-W22 begins Monday May 29; the thru week is exclusive of the next.
	wantBegin := time.Date(2023, 5, 29, 0, 0, 0, 0, time.UTC)
	wantThru := time.Date(2023, 6, 5, 0, 0, 0, 0, time.UTC)
	if !reports.begin.Equal(wantBegin) || !reports.thru.Equal(wantThru) {
		t.Errorf("expected window [%v, %v), got [%v, %v)", wantBegin, wantThru, reports.begin, reports.thru)
	}
}

func TestReportInvalidTimespan(t *testing.T) {
	t.Parallel()

	server := testServer(t, &fakeSync{}, &fakeReports{}, nil)

	resp, err := http.Get(server.URL + "/api/v1/report?begin=yesterday-ish")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}

	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if body["error"] == "" {
		t.Error("expected error message in body")
	}
}

func TestReportBuildFailure(t *testing.T) {
	t.Parallel()

	server := testServer(t, &fakeSync{}, &fakeReports{err: errors.New("aggregation failed")}, nil)

	resp, err := http.Get(server.URL + "/api/v1/report")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", resp.StatusCode)
	}
}

func TestTriggerSync(t *testing.T) {
	t.Parallel()

	syncMgr := &fakeSync{done: make(chan struct{})}
	server := testServer(t, syncMgr, &fakeReports{}, nil)

	resp, err := http.Post(server.URL+"/api/v1/sync/trigger?from_raw=true&begin=2023-06-01", "", nil)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", resp.StatusCode)
	}

	select {
	case <-syncMgr.done:
	case <-time.After(time.Second):
		t.Fatal("sync was not triggered")
	}

	syncMgr.mu.Lock()
	defer syncMgr.mu.Unlock()
	if len(syncMgr.opts) != 1 {
		t.Fatalf("expected 1 trigger, got %d", len(syncMgr.opts))
	}
	opts := syncMgr.opts[0]
	if !opts.FromRaw {
		t.Error("from_raw not propagated")
	}
	if !opts.Begin.Equal(time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("unexpected begin: %v", opts.Begin)
	}
	if !opts.Thru.IsZero() {
		t.Errorf("thru must stay zero when not requested, got %v", opts.Thru)
	}
}

func TestSyncStatus(t *testing.T) {
	t.Parallel()

	server := testServer(t, &fakeSync{running: true}, &fakeReports{}, nil)

	resp, err := http.Get(server.URL + "/api/v1/sync/status")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	var body map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if body["running"] != true {
		t.Errorf("expected running true: %v", body["running"])
	}
	if _, ok := body["last_sync"]; ok {
		t.Error("last_sync must be omitted before the first sync")
	}
}

func TestMetricsEndpoint(t *testing.T) {
	t.Parallel()

	server := testServer(t, &fakeSync{}, &fakeReports{}, nil)

	resp, err := http.Get(server.URL + "/metrics")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}
