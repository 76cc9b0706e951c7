// Squaredown - Square Point-of-Sale Data Synchronization and Accounting Reports
// Copyright 2026 Lake Anne Brewhouse
// SPDX-License-Identifier: MIT
// https://github.com/lakeannebrewhouse/squaredown

package square

import (
	"context"
	"errors"
	"fmt"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/lakeannebrewhouse/squaredown/internal/config"
	"github.com/lakeannebrewhouse/squaredown/internal/logging"
	"github.com/lakeannebrewhouse/squaredown/internal/metrics"
)

// CircuitBreakerClient wraps Client with the circuit breaker pattern so a
// persistently failing Square API does not soak up sync retries.
//
// The breaker uses real time for its interval and timeout calculations.
// Tests should exercise the wrapped client directly or mock the API surface.
type CircuitBreakerClient struct {
	client *Client
	cb     *gobreaker.CircuitBreaker[interface{}]
	name   string
}

// NewCircuitBreakerClient creates a Square client with circuit breaker.
// Breaker configuration:
//   - max 3 concurrent requests in half-open state
//   - 1 minute measurement window
//   - 2 minute timeout before attempting recovery
//   - opens after 60% failure rate with minimum 10 requests
func NewCircuitBreakerClient(cfg *config.SquareConfig) *CircuitBreakerClient {
	client := NewClient(cfg)
	cbName := "square-api"

	metrics.CircuitBreakerState.WithLabelValues(cbName).Set(0) // 0 = closed

	cb := gobreaker.NewCircuitBreaker[interface{}](gobreaker.Settings{
		Name:        cbName,
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     2 * time.Minute,

		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 10 {
				return false
			}

			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			shouldTrip := failureRatio >= 0.6

			if shouldTrip {
				logging.Warn().Uint32("failures", counts.TotalFailures).Float64("failure_rate", failureRatio*100).Msg("[CIRCUIT BREAKER] Opening circuit")
			}

			return shouldTrip
		},

		OnStateChange: func(name string, from, to gobreaker.State) {
			fromStr := stateToString(from)
			toStr := stateToString(to)

			logging.Info().Str("from", fromStr).Str("to", toStr).Msg("[CIRCUIT BREAKER] State transition")

			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, fromStr, toStr).Inc()
		},

		IsSuccessful: func(err error) bool {
			// A missing object is a data condition, not an API outage.
			return err == nil || IsNotFound(err)
		},
	})

	return &CircuitBreakerClient{
		client: client,
		cb:     cb,
		name:   cbName,
	}
}

// execute wraps a Square API call with circuit breaker protection.
func (cbc *CircuitBreakerClient) execute(fn func() (interface{}, error)) (interface{}, error) {
	result, err := cbc.cb.Execute(fn)

	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.CircuitBreakerRequests.WithLabelValues(cbc.name, "rejected").Inc()
			logging.Warn().Err(err).Msg("[CIRCUIT BREAKER] Request rejected")
		} else {
			metrics.CircuitBreakerRequests.WithLabelValues(cbc.name, "failure").Inc()
		}
		return nil, err
	}

	metrics.CircuitBreakerRequests.WithLabelValues(cbc.name, "success").Inc()
	return result, nil
}

// castResult safely type-casts the circuit breaker result.
func castResult[T any](result interface{}, err error) (*T, error) {
	if err != nil {
		return nil, err
	}
	typed, ok := result.(*T)
	if !ok {
		return nil, fmt.Errorf("circuit breaker: unexpected result type %T", result)
	}
	return typed, nil
}

// castMap casts a circuit breaker result holding a generic document.
func castMap(result interface{}, err error) (map[string]interface{}, error) {
	if err != nil {
		return nil, err
	}
	typed, ok := result.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("circuit breaker: unexpected result type %T", result)
	}
	return typed, nil
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

func stateToString(state gobreaker.State) string {
	switch state {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

// Ping verifies connectivity to the Square API with circuit breaker protection.
func (cbc *CircuitBreakerClient) Ping(ctx context.Context) error {
	_, err := cbc.execute(func() (interface{}, error) {
		return nil, cbc.client.Ping(ctx)
	})
	return err
}

// SearchOrders retrieves one page of orders with circuit breaker protection.
func (cbc *CircuitBreakerClient) SearchOrders(ctx context.Context, req *SearchOrdersRequest) (*SearchOrdersResponse, error) {
	return castResult[SearchOrdersResponse](cbc.execute(func() (interface{}, error) {
		return cbc.client.SearchOrders(ctx, req)
	}))
}

// SearchCatalogObjects retrieves one page of catalog objects with circuit breaker protection.
func (cbc *CircuitBreakerClient) SearchCatalogObjects(ctx context.Context, req *SearchCatalogObjectsRequest) (*SearchCatalogObjectsResponse, error) {
	return castResult[SearchCatalogObjectsResponse](cbc.execute(func() (interface{}, error) {
		return cbc.client.SearchCatalogObjects(ctx, req)
	}))
}

// ListLocations retrieves all locations with circuit breaker protection.
func (cbc *CircuitBreakerClient) ListLocations(ctx context.Context) (*ListLocationsResponse, error) {
	return castResult[ListLocationsResponse](cbc.execute(func() (interface{}, error) {
		return cbc.client.ListLocations(ctx)
	}))
}

// GetPayment retrieves a payment with circuit breaker protection.
func (cbc *CircuitBreakerClient) GetPayment(ctx context.Context, paymentID string) (map[string]interface{}, error) {
	return castMap(cbc.execute(func() (interface{}, error) {
		return cbc.client.GetPayment(ctx, paymentID)
	}))
}

// GetPaymentRefund retrieves a payment refund with circuit breaker protection.
func (cbc *CircuitBreakerClient) GetPaymentRefund(ctx context.Context, refundID string) (map[string]interface{}, error) {
	return castMap(cbc.execute(func() (interface{}, error) {
		return cbc.client.GetPaymentRefund(ctx, refundID)
	}))
}

// ListPayouts retrieves one page of payouts with circuit breaker protection.
func (cbc *CircuitBreakerClient) ListPayouts(ctx context.Context, locationID string, begin, end time.Time, cursor string) (*ListPayoutsResponse, error) {
	return castResult[ListPayoutsResponse](cbc.execute(func() (interface{}, error) {
		return cbc.client.ListPayouts(ctx, locationID, begin, end, cursor)
	}))
}

// ListPayoutEntries retrieves one page of payout entries with circuit breaker protection.
func (cbc *CircuitBreakerClient) ListPayoutEntries(ctx context.Context, payoutID, cursor string) (*ListPayoutEntriesResponse, error) {
	return castResult[ListPayoutEntriesResponse](cbc.execute(func() (interface{}, error) {
		return cbc.client.ListPayoutEntries(ctx, payoutID, cursor)
	}))
}
