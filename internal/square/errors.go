// Squaredown - Square Point-of-Sale Data Synchronization and Accounting Reports
// Copyright 2026 Lake Anne Brewhouse
// SPDX-License-Identifier: MIT
// https://github.com/lakeannebrewhouse/squaredown

package square

import (
	"errors"
	"fmt"
	"strings"
)

// Error is a single error entry from the Square API error envelope.
type Error struct {
	Category string `json:"category"`
	Code     string `json:"code"`
	Detail   string `json:"detail,omitempty"`
	Field    string `json:"field,omitempty"`
}

func (e Error) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s/%s: %s", e.Category, e.Code, e.Detail)
	}
	return fmt.Sprintf("%s/%s", e.Category, e.Code)
}

// APIError is returned when the Square API responds with a non-2xx status.
// It carries the HTTP status and the decoded error envelope.
type APIError struct {
	StatusCode int
	Endpoint   string
	Errors     []Error
}

func (e *APIError) Error() string {
	if len(e.Errors) == 0 {
		return fmt.Sprintf("square: %s returned HTTP %d", e.Endpoint, e.StatusCode)
	}
	msgs := make([]string, 0, len(e.Errors))
	for _, entry := range e.Errors {
		msgs = append(msgs, entry.Error())
	}
	return fmt.Sprintf("square: %s returned HTTP %d: %s", e.Endpoint, e.StatusCode, strings.Join(msgs, "; "))
}

// IsNotFound reports whether err represents a missing object (HTTP 404 or a
// NOT_FOUND error code). Connectors use this to tolerate payments and refunds
// that Square never created, e.g. for cash tenders.
func IsNotFound(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	if apiErr.StatusCode == 404 {
		return true
	}
	for _, entry := range apiErr.Errors {
		if entry.Code == "NOT_FOUND" {
			return true
		}
	}
	return false
}
