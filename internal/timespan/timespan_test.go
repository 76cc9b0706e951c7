// Squaredown - Square Point-of-Sale Data Synchronization and Accounting Reports
// Copyright 2026 Lake Anne Brewhouse
// SPDX-License-Identifier: MIT
// https://github.com/lakeannebrewhouse/squaredown

package timespan

import (
	"testing"
	"time"
)

var startMin = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)

func TestResolveDefaults(t *testing.T) {
	t.Parallel()

	begin, thru, err := Resolve(Options{Min: startMin})
	if err != nil {
		t.Fatalf("Resolve() failed: %v", err)
	}

	if !begin.Equal(startMin) {
		t.Errorf("expected begin = min, got %v", begin)
	}
	if time.Since(thru) > time.Minute {
		t.Errorf("expected thru near now, got %v", thru)
	}
}

func TestResolveExplicitTimes(t *testing.T) {
	t.Parallel()

	b := time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC)
	e := time.Date(2023, 7, 1, 0, 0, 0, 0, time.UTC)

	begin, thru, err := Resolve(Options{Begin: b, Thru: e, Min: startMin})
	if err != nil {
		t.Fatalf("Resolve() failed: %v", err)
	}
	if !begin.Equal(b) || !thru.Equal(e) {
		t.Errorf("got [%v, %v), want [%v, %v)", begin, thru, b, e)
	}
}

func TestResolveStrings(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		beginStr  string
		thruStr   string
		wantBegin time.Time
		wantThru  time.Time
	}{
		{
			name:      "rfc3339",
			beginStr:  "2023-06-01T12:00:00Z",
			thruStr:   "2023-06-02T12:00:00Z",
			wantBegin: time.Date(2023, 6, 1, 12, 0, 0, 0, time.UTC),
			wantThru:  time.Date(2023, 6, 2, 12, 0, 0, 0, time.UTC),
		},
		{
			name:      "date only",
			beginStr:  "2023-06-01",
			thruStr:   "2023-06-30",
			wantBegin: time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC),
			wantThru:  time.Date(2023, 6, 30, 0, 0, 0, 0, time.UTC),
		},
		{
			name:      "iso week",
			beginStr:  "2020-W13",
			thruStr:   "2020-W13",
			wantBegin: time.Date(2020, 3, 23, 0, 0, 0, 0, time.UTC),
			wantThru:  time.Date(2020, 3, 30, 0, 0, 0, 0, time.UTC),
		},
		{
			name:      "iso week 1 spanning year boundary",
			beginStr:  "2021-W01",
			thruStr:   "2021-W01",
			wantBegin: time.Date(2021, 1, 4, 0, 0, 0, 0, time.UTC),
			wantThru:  time.Date(2021, 1, 11, 0, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			begin, thru, err := Resolve(Options{BeginStr: tt.beginStr, ThruStr: tt.thruStr, Min: startMin})
			if err != nil {
				t.Fatalf("Resolve() failed: %v", err)
			}
			if !begin.Equal(tt.wantBegin) {
				t.Errorf("begin = %v, want %v", begin, tt.wantBegin)
			}
			if !thru.Equal(tt.wantThru) {
				t.Errorf("thru = %v, want %v", thru, tt.wantThru)
			}
		})
	}
}

func TestResolveClampsToMin(t *testing.T) {
	t.Parallel()

	begin, _, err := Resolve(Options{BeginStr: "1980-01-01", Min: startMin})
	if err != nil {
		t.Fatalf("Resolve() failed: %v", err)
	}
	if !begin.Equal(startMin) {
		t.Errorf("expected begin clamped to min, got %v", begin)
	}
}

func TestResolveErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		opts Options
	}{
		{"garbage begin", Options{BeginStr: "not-a-time", Min: startMin}},
		{"garbage thru", Options{ThruStr: "2020-W99-nope", Min: startMin}},
		{"week out of range", Options{ThruStr: "2020-W99", Min: startMin}},
		{"inverted window", Options{BeginStr: "2023-07-01", ThruStr: "2023-06-01", Min: startMin}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if _, _, err := Resolve(tt.opts); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestIsoWeekStartAlwaysMonday(t *testing.T) {
	t.Parallel()

	for year := 2018; year <= 2026; year++ {
		for _, week := range []int{1, 13, 26, 52} {
			got := isoWeekStart(year, week)
			if got.Weekday() != time.Monday {
				t.Errorf("isoWeekStart(%d, %d) = %v (%v), want Monday", year, week, got, got.Weekday())
			}
			y, w := got.ISOWeek()
			if y != year || w != week {
				t.Errorf("isoWeekStart(%d, %d) reports ISO week %d-W%02d", year, week, y, w)
			}
		}
	}
}
