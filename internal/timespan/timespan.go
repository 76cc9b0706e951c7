// Squaredown - Square Point-of-Sale Data Synchronization and Accounting Reports
// Copyright 2026 Lake Anne Brewhouse
// SPDX-License-Identifier: MIT
// https://github.com/lakeannebrewhouse/squaredown

// Package timespan resolves begin/thru boundaries for sync windows and
// report periods.
//
// Boundaries can be given as explicit times, RFC3339 or date strings, or ISO
// week notation ("2020-W13" is the Monday of ISO week 13). A week used as a
// thru bound covers the whole week: the boundary is the following Monday.
package timespan

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// weekRe matches ISO week notation, e.g. "2020-W13".
var weekRe = regexp.MustCompile(`^(\d{4})-W(\d{2})$`)

// dateLayouts are tried in order when parsing a string boundary.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// Options selects the boundaries of a timespan. Explicit times win over
// strings; when both are absent the defaults apply (begin = Min,
// thru = now).
type Options struct {
	Begin    time.Time
	BeginStr string
	Thru     time.Time
	ThruStr  string

	// Min is the earliest permissible begin time. A zero or earlier begin
	// is raised to Min.
	Min time.Time
}

// Resolve computes the [begin, thru) window described by opts.
func Resolve(opts Options) (time.Time, time.Time, error) {
	begin := opts.Begin
	if begin.IsZero() && opts.BeginStr != "" {
		t, err := parseBoundary(opts.BeginStr, false)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid begin %q: %w", opts.BeginStr, err)
		}
		begin = t
	}
	if begin.IsZero() || begin.Before(opts.Min) {
		begin = opts.Min
	}

	thru := opts.Thru
	if thru.IsZero() && opts.ThruStr != "" {
		t, err := parseBoundary(opts.ThruStr, true)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid thru %q: %w", opts.ThruStr, err)
		}
		thru = t
	}
	if thru.IsZero() {
		thru = time.Now().UTC()
	}

	if thru.Before(begin) {
		return time.Time{}, time.Time{}, fmt.Errorf("thru %s precedes begin %s", thru.Format(time.RFC3339), begin.Format(time.RFC3339))
	}

	return begin.UTC(), thru.UTC(), nil
}

// parseBoundary parses a boundary string. ISO week notation resolves to the
// Monday of that week; as a thru bound the whole week is included, so the
// boundary is the following Monday.
func parseBoundary(s string, isThru bool) (time.Time, error) {
	if m := weekRe.FindStringSubmatch(s); m != nil {
		year, _ := strconv.Atoi(m[1])
		week, _ := strconv.Atoi(m[2])
		if week < 1 || week > 53 {
			return time.Time{}, fmt.Errorf("week %02d out of range", week)
		}
		t := isoWeekStart(year, week)
		if isThru {
			t = t.AddDate(0, 0, 7)
		}
		return t, nil
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized time format")
}

// isoWeekStart returns the Monday of the given ISO week in UTC.
func isoWeekStart(year, week int) time.Time {
	// January 4 is always in ISO week 1.
	jan4 := time.Date(year, 1, 4, 0, 0, 0, 0, time.UTC)
	wd := int(jan4.Weekday())
	if wd == 0 {
		wd = 7 // Sunday
	}
	monday := jan4.AddDate(0, 0, 1-wd)
	return monday.AddDate(0, 0, (week-1)*7)
}
