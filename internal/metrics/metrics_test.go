// Squaredown - Square Point-of-Sale Data Synchronization and Accounting Reports
// Copyright 2026 Lake Anne Brewhouse
// SPDX-License-Identifier: MIT
// https://github.com/lakeannebrewhouse/squaredown

package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordUpsert(t *testing.T) {
	before := testutil.ToFloat64(SyncRecordsUpserted.WithLabelValues("square_orders"))
	RecordUpsert("square_orders")
	after := testutil.ToFloat64(SyncRecordsUpserted.WithLabelValues("square_orders"))

	if after != before+1 {
		t.Errorf("expected counter to increment by 1, got %v -> %v", before, after)
	}
}

func TestRecordSkip(t *testing.T) {
	before := testutil.ToFloat64(SyncRecordsSkipped.WithLabelValues("orders", "boundary_duplicate"))
	RecordSkip("orders", "boundary_duplicate")
	after := testutil.ToFloat64(SyncRecordsSkipped.WithLabelValues("orders", "boundary_duplicate"))

	if after != before+1 {
		t.Errorf("expected counter to increment by 1, got %v -> %v", before, after)
	}
}

func TestRecordReportBuild(t *testing.T) {
	okBefore := testutil.ToFloat64(ReportsGenerated)
	errBefore := testutil.ToFloat64(ReportErrors)

	RecordReportBuild(120*time.Millisecond, nil)
	RecordReportBuild(50*time.Millisecond, errors.New("aggregation failed"))

	if got := testutil.ToFloat64(ReportsGenerated); got != okBefore+1 {
		t.Errorf("expected generated counter +1, got %v -> %v", okBefore, got)
	}
	if got := testutil.ToFloat64(ReportErrors); got != errBefore+1 {
		t.Errorf("expected error counter +1, got %v -> %v", errBefore, got)
	}
}

func TestRecordMongoOperation(t *testing.T) {
	before := testutil.ToFloat64(MongoOperationErrors.WithLabelValues("upsert", "square_payments"))

	RecordMongoOperation("upsert", "square_payments", 5*time.Millisecond, nil)
	RecordMongoOperation("upsert", "square_payments", 5*time.Millisecond, errors.New("boom"))

	after := testutil.ToFloat64(MongoOperationErrors.WithLabelValues("upsert", "square_payments"))
	if after != before+1 {
		t.Errorf("expected one error recorded, got %v -> %v", before, after)
	}
}

func TestRecordSyncSuccess(t *testing.T) {
	RecordSyncSuccess()

	ts := testutil.ToFloat64(SyncLastSuccess)
	if time.Since(time.Unix(int64(ts), 0)) > time.Minute {
		t.Errorf("expected recent timestamp, got %v", ts)
	}
}
