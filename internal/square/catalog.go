// Squaredown - Square Point-of-Sale Data Synchronization and Accounting Reports
// Copyright 2026 Lake Anne Brewhouse
// SPDX-License-Identifier: MIT
// https://github.com/lakeannebrewhouse/squaredown

package square

import (
	"context"
	"net/url"
	"time"
)

// SearchCatalogObjectsRequest is the body of POST /v2/catalog/search.
// BeginTime limits results to objects updated at or after that instant;
// deleted objects are included so removals propagate to the local copy.
type SearchCatalogObjectsRequest struct {
	ObjectTypes           []string `json:"object_types"`
	IncludeDeletedObjects bool     `json:"include_deleted_objects,omitempty"`
	BeginTime             string   `json:"begin_time,omitempty"`
	Limit                 int      `json:"limit,omitempty"`
	Cursor                string   `json:"cursor,omitempty"`
}

// SearchCatalogObjectsResponse is one page of catalog search results.
type SearchCatalogObjectsResponse struct {
	Objects []map[string]interface{} `json:"objects"`
	Cursor  string                   `json:"cursor"`
}

// SearchCatalogObjects retrieves one page of catalog objects.
func (c *Client) SearchCatalogObjects(ctx context.Context, req *SearchCatalogObjectsRequest) (*SearchCatalogObjectsResponse, error) {
	result := &SearchCatalogObjectsResponse{}
	if err := c.makeRequest(ctx, "POST", "search_catalog_objects", "/v2/catalog/search", req, result); err != nil {
		return nil, err
	}
	return result, nil
}

// ListLocationsResponse is the body of GET /v2/locations.
type ListLocationsResponse struct {
	Locations []map[string]interface{} `json:"locations"`
}

// ListLocations retrieves all of the seller's locations.
func (c *Client) ListLocations(ctx context.Context) (*ListLocationsResponse, error) {
	result := &ListLocationsResponse{}
	if err := c.makeRequest(ctx, "GET", "list_locations", "/v2/locations", nil, result); err != nil {
		return nil, err
	}
	return result, nil
}

// ListPayoutsResponse is one page of GET /v2/payouts.
type ListPayoutsResponse struct {
	Payouts []map[string]interface{} `json:"payouts"`
	Cursor  string                   `json:"cursor"`
}

// ListPayouts retrieves one page of payouts for a location created in
// [begin, end).
func (c *Client) ListPayouts(ctx context.Context, locationID string, begin, end time.Time, cursor string) (*ListPayoutsResponse, error) {
	params := url.Values{}
	params.Set("location_id", locationID)
	params.Set("begin_time", begin.UTC().Format(time.RFC3339))
	params.Set("end_time", end.UTC().Format(time.RFC3339))
	params.Set("sort_order", "ASC")
	if cursor != "" {
		params.Set("cursor", cursor)
	}

	result := &ListPayoutsResponse{}
	if err := c.makeRequest(ctx, "GET", "list_payouts", "/v2/payouts?"+params.Encode(), nil, result); err != nil {
		return nil, err
	}
	return result, nil
}

// ListPayoutEntriesResponse is one page of GET /v2/payouts/{id}/payout-entries.
type ListPayoutEntriesResponse struct {
	PayoutEntries []map[string]interface{} `json:"payout_entries"`
	Cursor        string                   `json:"cursor"`
}

// ListPayoutEntries retrieves one page of entries for a payout.
func (c *Client) ListPayoutEntries(ctx context.Context, payoutID, cursor string) (*ListPayoutEntriesResponse, error) {
	params := url.Values{}
	if cursor != "" {
		params.Set("cursor", cursor)
	}

	path := "/v2/payouts/" + payoutID + "/payout-entries"
	if encoded := params.Encode(); encoded != "" {
		path += "?" + encoded
	}

	result := &ListPayoutEntriesResponse{}
	if err := c.makeRequest(ctx, "GET", "list_payout_entries", path, nil, result); err != nil {
		return nil, err
	}
	return result, nil
}
