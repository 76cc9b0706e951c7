// Squaredown - Square Point-of-Sale Data Synchronization and Accounting Reports
// Copyright 2026 Lake Anne Brewhouse
// SPDX-License-Identifier: MIT
// https://github.com/lakeannebrewhouse/squaredown

package square

import (
	"context"
	"time"
)

// APIClient is the Square API surface consumed by the sync connectors.
// It is implemented by Client and by CircuitBreakerClient.
type APIClient interface {
	Ping(ctx context.Context) error
	SearchOrders(ctx context.Context, req *SearchOrdersRequest) (*SearchOrdersResponse, error)
	SearchCatalogObjects(ctx context.Context, req *SearchCatalogObjectsRequest) (*SearchCatalogObjectsResponse, error)
	ListLocations(ctx context.Context) (*ListLocationsResponse, error)
	GetPayment(ctx context.Context, paymentID string) (map[string]interface{}, error)
	GetPaymentRefund(ctx context.Context, refundID string) (map[string]interface{}, error)
	ListPayouts(ctx context.Context, locationID string, begin, end time.Time, cursor string) (*ListPayoutsResponse, error)
	ListPayoutEntries(ctx context.Context, payoutID, cursor string) (*ListPayoutEntriesResponse, error)
}

// TimeRange bounds a date-time filter. Both ends are RFC3339.
type TimeRange struct {
	StartAt string `json:"start_at,omitempty"`
	EndAt   string `json:"end_at,omitempty"`
}

// DateTimeFilter filters orders on one of their timestamps.
type DateTimeFilter struct {
	UpdatedAt *TimeRange `json:"updated_at,omitempty"`
}

// OrdersFilter is the filter portion of an orders search query.
type OrdersFilter struct {
	DateTimeFilter *DateTimeFilter `json:"date_time_filter,omitempty"`
}

// OrdersSort orders search results. SortField must match the timestamp used
// in the date-time filter.
type OrdersSort struct {
	SortField string `json:"sort_field"`
	SortOrder string `json:"sort_order,omitempty"`
}

// OrdersQuery combines filter and sort for an orders search.
type OrdersQuery struct {
	Filter *OrdersFilter `json:"filter,omitempty"`
	Sort   *OrdersSort   `json:"sort,omitempty"`
}

// SearchOrdersRequest is the body of POST /v2/orders/search.
type SearchOrdersRequest struct {
	LocationIDs []string     `json:"location_ids"`
	Query       *OrdersQuery `json:"query,omitempty"`
	Limit       int          `json:"limit,omitempty"`
	Cursor      string       `json:"cursor,omitempty"`
}

// SearchOrdersResponse is one page of search results. A non-empty Cursor
// means more pages remain.
type SearchOrdersResponse struct {
	Orders []map[string]interface{} `json:"orders"`
	Cursor string                   `json:"cursor"`
}

// NewUpdatedOrdersQuery builds the incremental sync query: orders whose
// updated_at falls in [begin, end), ascending so the watermark can advance
// record by record.
func NewUpdatedOrdersQuery(begin, end time.Time) *OrdersQuery {
	return &OrdersQuery{
		Filter: &OrdersFilter{
			DateTimeFilter: &DateTimeFilter{
				UpdatedAt: &TimeRange{
					StartAt: begin.UTC().Format(time.RFC3339),
					EndAt:   end.UTC().Format(time.RFC3339),
				},
			},
		},
		Sort: &OrdersSort{
			SortField: "UPDATED_AT",
			SortOrder: "ASC",
		},
	}
}

// SearchOrders retrieves one page of orders matching the request.
func (c *Client) SearchOrders(ctx context.Context, req *SearchOrdersRequest) (*SearchOrdersResponse, error) {
	result := &SearchOrdersResponse{}
	if err := c.makeRequest(ctx, "POST", "search_orders", "/v2/orders/search", req, result); err != nil {
		return nil, err
	}
	return result, nil
}

// GetPayment retrieves a single payment by id.
func (c *Client) GetPayment(ctx context.Context, paymentID string) (map[string]interface{}, error) {
	var result struct {
		Payment map[string]interface{} `json:"payment"`
	}
	if err := c.makeRequest(ctx, "GET", "get_payment", "/v2/payments/"+paymentID, nil, &result); err != nil {
		return nil, err
	}
	return result.Payment, nil
}

// GetPaymentRefund retrieves a single payment refund by id.
func (c *Client) GetPaymentRefund(ctx context.Context, refundID string) (map[string]interface{}, error) {
	var result struct {
		Refund map[string]interface{} `json:"refund"`
	}
	if err := c.makeRequest(ctx, "GET", "get_payment_refund", "/v2/refunds/"+refundID, nil, &result); err != nil {
		return nil, err
	}
	return result.Refund, nil
}
