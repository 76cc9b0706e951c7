// Squaredown - Square Point-of-Sale Data Synchronization and Accounting Reports
// Copyright 2026 Lake Anne Brewhouse
// SPDX-License-Identifier: MIT
// https://github.com/lakeannebrewhouse/squaredown

package services

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"
)

type fakeManager struct {
	startErr error
	stopErr  error
	started  bool
	stopped  bool
}

func (f *fakeManager) Start(context.Context) error {
	f.started = true
	return f.startErr
}

func (f *fakeManager) Stop() error {
	f.stopped = true
	return f.stopErr
}

func TestSyncServiceLifecycle(t *testing.T) {
	t.Parallel()

	mgr := &fakeManager{}
	svc := NewSyncService(mgr)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- svc.Serve(ctx)
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Serve did not return after cancellation")
	}

	if !mgr.started || !mgr.stopped {
		t.Errorf("expected start and stop, got started=%v stopped=%v", mgr.started, mgr.stopped)
	}
}

func TestSyncServiceStartFailure(t *testing.T) {
	t.Parallel()

	mgr := &fakeManager{startErr: errors.New("no datastore")}
	svc := NewSyncService(mgr)

	if err := svc.Serve(context.Background()); err == nil {
		t.Fatal("expected error when start fails")
	}
	if mgr.stopped {
		t.Error("stop must not be called when start fails")
	}
}

type fakeHTTPServer struct {
	listenErr error
	closed    chan struct{}
	shutdown  bool
}

func (f *fakeHTTPServer) ListenAndServe() error {
	if f.listenErr != nil {
		return f.listenErr
	}
	<-f.closed
	return http.ErrServerClosed
}

func (f *fakeHTTPServer) Shutdown(context.Context) error {
	f.shutdown = true
	close(f.closed)
	return nil
}

func TestHTTPServiceGracefulShutdown(t *testing.T) {
	t.Parallel()

	server := &fakeHTTPServer{closed: make(chan struct{})}
	svc := NewHTTPServerService(server, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- svc.Serve(ctx)
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Serve did not return after cancellation")
	}

	if !server.shutdown {
		t.Error("expected graceful shutdown")
	}
}

func TestHTTPServiceListenFailure(t *testing.T) {
	t.Parallel()

	server := &fakeHTTPServer{listenErr: errors.New("address in use")}
	svc := NewHTTPServerService(server, time.Second)

	if err := svc.Serve(context.Background()); err == nil {
		t.Fatal("expected error when listen fails")
	}
}

func TestServiceNames(t *testing.T) {
	t.Parallel()

	if got := NewSyncService(&fakeManager{}).String(); got != "sync-manager" {
		t.Errorf("unexpected sync service name: %q", got)
	}
	if got := NewHTTPServerService(&fakeHTTPServer{}, 0).String(); got != "http-server" {
		t.Errorf("unexpected http service name: %q", got)
	}
}
