// Squaredown - Square Point-of-Sale Data Synchronization and Accounting Reports
// Copyright 2026 Lake Anne Brewhouse
// SPDX-License-Identifier: MIT
// https://github.com/lakeannebrewhouse/squaredown

package connector

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lakeannebrewhouse/squaredown/internal/config"
	"github.com/lakeannebrewhouse/squaredown/internal/logging"
	"github.com/lakeannebrewhouse/squaredown/internal/metrics"
	"github.com/lakeannebrewhouse/squaredown/internal/square"
	"github.com/lakeannebrewhouse/squaredown/internal/store"
)

// defaultOrderSource is stamped on orders and itemizations whose source the
// API omits. Square leaves the field off for orders rung up on the register.
var defaultOrderSource = map[string]interface{}{"name": "Point of Sale"}

// Tender types whose payment records do not exist in the payments API, so a
// failed lookup for them is expected rather than an error.
var unrecordedTenderTypes = map[string]bool{
	"CASH":  true,
	"OTHER": true,
}

// OrdersConnector syncs orders and everything that hangs off them: tenders,
// payments, refunds, fulfillments, and line-item itemizations.
type OrdersConnector struct {
	Connector
}

// NewOrdersConnector creates the orders connector.
func NewOrdersConnector(api square.APIClient, db store.Datastore, cfg *config.SyncConfig, locationIDs []string) *OrdersConnector {
	return &OrdersConnector{
		Connector: Connector{
			api:         api,
			db:          db,
			cfg:         cfg,
			locationIDs: locationIDs,
			name:        "orders",
		},
	}
}

// Pull syncs all orders updated in the window. Each order is saved raw
// before any processing, so a decode or fan-out failure never loses data,
// and the watermark advances after every order so an interrupted pull
// resumes where it stopped.
func (c *OrdersConnector) Pull(ctx context.Context, opts PullOptions) (*PullStats, error) {
	state, err := c.db.LoadSyncState(ctx, c.name)
	if err != nil {
		return nil, err
	}
	begin, thru := c.window(opts, state)

	logging.Info().
		Str("connector", c.name).
		Time("begin", begin).
		Time("thru", thru).
		Bool("from_raw", opts.FromRaw).
		Msg("Pulling orders")

	if opts.FromRaw {
		return c.pullFromRaw(ctx, state, begin, thru)
	}
	return c.pullFromAPI(ctx, state, begin, thru)
}

func (c *OrdersConnector) pullFromAPI(ctx context.Context, state *store.SyncState, begin, thru time.Time) (*PullStats, error) {
	stats := &PullStats{}
	cursor := ""

	for {
		resp, err := c.api.SearchOrders(ctx, &square.SearchOrdersRequest{
			LocationIDs: c.locationIDs,
			Query:       square.NewUpdatedOrdersQuery(begin, thru),
			Limit:       c.cfg.BatchSize,
			Cursor:      cursor,
		})
		if err != nil {
			return stats, fmt.Errorf("failed to search orders: %w", err)
		}

		for _, order := range resp.Orders {
			if err := c.processOrder(ctx, order, state, stats, true); err != nil {
				return stats, err
			}
		}

		if resp.Cursor == "" {
			break
		}
		cursor = resp.Cursor
	}

	logging.Info().Str("connector", c.name).Int("pulled", stats.Pulled).Int("skipped", stats.Skipped).Msg("Orders pull complete")
	return stats, nil
}

// pullFromRaw reprocesses previously saved raw orders. Used after a schema
// or processing change to rebuild the derived collections without touching
// the API.
func (c *OrdersConnector) pullFromRaw(ctx context.Context, state *store.SyncState, begin, thru time.Time) (*PullStats, error) {
	stats := &PullStats{}

	docs, err := c.db.FindRange(ctx, store.RawOrdersCollection, "updated_at", begin, thru)
	if err != nil {
		return stats, fmt.Errorf("failed to read raw orders: %w", err)
	}

	for _, order := range docs {
		delete(order, "_id")
		if err := c.processOrder(ctx, order, state, stats, false); err != nil {
			return stats, err
		}
	}

	logging.Info().Str("connector", c.name).Int("pulled", stats.Pulled).Int("skipped", stats.Skipped).Msg("Raw orders reprocessed")
	return stats, nil
}

// processOrder handles one order end to end: boundary dedup, raw save,
// decode, fan-outs, upsert, watermark.
func (c *OrdersConnector) processOrder(ctx context.Context, order map[string]interface{}, state *store.SyncState, stats *PullStats, saveRaw bool) (err error) {
	id := stringField(order, "id")
	if id == "" {
		logging.Warn().Str("connector", c.name).Msg("Order without id, skipping")
		stats.Skipped++
		return nil
	}

	updatedAt, _ := parseTimestamp(stringField(order, "updated_at"))

	// The window's lower bound is inclusive, so the record the watermark
	// points at comes back as the first result of the next pull.
	if stats.Pulled == 0 && id == state.LastID && updatedAt.Equal(state.LastUpdated) {
		metrics.RecordSkip(c.name, "boundary_duplicate")
		stats.Skipped++
		return nil
	}

	if saveRaw {
		if err := c.db.UpsertByID(ctx, store.RawOrdersCollection, id, order); err != nil {
			return err
		}
	}

	if err := c.updateOrder(ctx, order); err != nil {
		if errors.Is(err, errSkipRecord) {
			stats.Skipped++
		} else {
			return err
		}
	} else {
		stats.Pulled++
	}

	// A backfill over an old window must not rewind the watermark.
	if updatedAt.Before(state.LastUpdated) {
		return nil
	}
	state.LastID = id
	state.LastUpdated = updatedAt
	return c.db.SaveSyncState(ctx, state)
}

// updateOrder decodes an order, derives its effective state, applies the
// default source, fans out its embedded records, and finally upserts the
// order itself. The order upsert comes last so a partially fanned-out order
// is retried in full on the next pull.
func (c *OrdersConnector) updateOrder(ctx context.Context, order map[string]interface{}) error {
	id := stringField(order, "id")
	decodeOrder(order)

	if stringField(order, "state") == "OPEN" {
		newState, err := openOrderState(order)
		if err != nil {
			logging.Error().Err(err).Str("order_id", id).Msg("Cannot derive open order state")
			metrics.RecordSkip(c.name, "api_error")
			return errSkipRecord
		}
		order["state"] = newState
	}

	if _, ok := order["source"]; !ok {
		order["source"] = defaultOrderSource
	}

	if err := c.processTenders(ctx, order); err != nil {
		return err
	}
	if err := c.processFulfillments(ctx, order); err != nil {
		return err
	}
	if err := c.processItemizations(ctx, order); err != nil {
		return err
	}
	if err := c.processRefunds(ctx, order); err != nil {
		return err
	}
	if err := c.processReturns(ctx, order); err != nil {
		return err
	}

	err := c.db.UpsertOrder(ctx, store.OrdersCollection, id, order)
	if errors.Is(err, store.ErrOrderFixed) {
		logging.Warn().Str("order_id", id).Msg("Attempted to update fixed order")
		metrics.RecordSkip(c.name, "fixed")
		return nil
	}
	return err
}

// openOrderState refines the OPEN state using the order's tenders. An open
// order with no tenders was abandoned mid-checkout; an open order whose card
// tender never reached CAPTURED is stuck at that tender status. Wallet and
// buy-now-pay-later tenders settle out of band, so they leave the order OPEN.
func openOrderState(order map[string]interface{}) (string, error) {
	tenders := asSlice(order["tenders"])
	if len(tenders) == 0 {
		return "OPEN_TENDER_MISSING", nil
	}

	for _, tender := range tenders {
		tenderType := stringField(tender, "type")
		if tenderType == "WALLET" || tenderType == "BUY_NOW_PAY_LATER" {
			break
		}

		card := asMap(tender["card_details"])
		if card == nil {
			return "", fmt.Errorf("tender %s of type %s has no card details", stringField(tender, "id"), tenderType)
		}
		if status := stringField(card, "status"); status != "CAPTURED" {
			return "OPEN_TENDER_" + status, nil
		}
	}

	return "OPEN", nil
}

// orderProps returns the order fields copied onto every fanned-out document,
// so tenders and itemizations can be queried without joining back to orders.
func orderProps(order map[string]interface{}) map[string]interface{} {
	return map[string]interface{}{
		"order_id":          order["id"],
		"order_state":       order["state"],
		"order_created_at":  order["created_at"],
		"order_updated_at":  order["updated_at"],
		"order_location_id": order["location_id"],
	}
}

// processTenders upserts each tender and pulls its payment record from the
// payments API. Cash and OTHER tenders have no payment record; a missing one
// for those types is logged at debug and ignored.
func (c *OrdersConnector) processTenders(ctx context.Context, order map[string]interface{}) error {
	props := orderProps(order)

	for _, tender := range asSlice(order["tenders"]) {
		tenderID := stringField(tender, "id")
		if tenderID == "" {
			continue
		}

		doc := make(map[string]interface{}, len(tender)+len(props))
		for k, v := range tender {
			doc[k] = v
		}
		for k, v := range props {
			doc[k] = v
		}
		if err := c.db.UpsertByID(ctx, store.TendersCollection, tenderID, doc); err != nil {
			return err
		}

		payment, err := c.api.GetPayment(ctx, tenderID)
		if err != nil {
			if tolerableTenderLookupError(tender) {
				logging.Debug().Str("tender_id", tenderID).Str("type", stringField(tender, "type")).Msg("No payment record for tender")
			} else {
				logging.Error().Err(err).Str("tender_id", tenderID).Str("order_id", stringField(order, "id")).Msg("Failed to get payment for tender")
				metrics.RecordSkip(c.name, "api_error")
			}
			continue
		}

		decodePayment(payment)
		if err := c.db.UpsertByID(ctx, store.PaymentsCollection, stringField(payment, "id"), payment); err != nil {
			return err
		}
	}
	return nil
}

// tolerableTenderLookupError reports whether a failed payment lookup for the
// tender is expected: zero-amount tenders and cash or OTHER tenders never
// have payment records.
func tolerableTenderLookupError(tender map[string]interface{}) bool {
	if unrecordedTenderTypes[stringField(tender, "type")] {
		return true
	}
	if money := asMap(tender["amount_money"]); money != nil {
		if amount, ok := int64Field(money, "amount"); ok && amount == 0 {
			return true
		}
	}
	return false
}

// processFulfillments upserts each fulfillment with the order properties
// merged in.
func (c *OrdersConnector) processFulfillments(ctx context.Context, order map[string]interface{}) error {
	props := orderProps(order)

	for _, fulfillment := range asSlice(order["fulfillments"]) {
		uid := stringField(fulfillment, "uid")
		if uid == "" {
			continue
		}

		doc := make(map[string]interface{}, len(fulfillment)+len(props))
		for k, v := range fulfillment {
			doc[k] = v
		}
		for k, v := range props {
			doc[k] = v
		}
		if err := c.db.UpsertByID(ctx, store.FulfillmentsCollection, uid, doc); err != nil {
			return err
		}
	}
	return nil
}

// processRefunds pulls the payment-refund record for each refund embedded in
// the order. Square names these records "{tender_id}_{refund_uid}". A
// missing record for a cash or OTHER tender is expected.
func (c *OrdersConnector) processRefunds(ctx context.Context, order map[string]interface{}) error {
	for _, refund := range asSlice(order["refunds"]) {
		tenderID := stringField(refund, "tender_id")
		refundID := tenderID + "_" + stringField(refund, "id")

		record, err := c.api.GetPaymentRefund(ctx, refundID)
		if err != nil {
			c.logRefundLookupError(ctx, err, refundID, tenderID)
			continue
		}

		decodeRefund(record)
		if err := c.db.UpsertByID(ctx, store.RefundsCollection, refundID, record); err != nil {
			return err
		}
	}
	return nil
}

// logRefundLookupError checks the stored tender to decide whether the missing
// refund record is expected. Cash and OTHER tenders are refunded outside the
// payments API.
func (c *OrdersConnector) logRefundLookupError(ctx context.Context, lookupErr error, refundID, tenderID string) {
	tender, err := c.db.FindByID(ctx, store.TendersCollection, tenderID)
	if err == nil && unrecordedTenderTypes[stringField(tender, "type")] {
		logging.Debug().Str("refund_id", refundID).Str("type", stringField(tender, "type")).Msg("No refund record for tender")
		return
	}

	logging.Error().Err(lookupErr).Str("refund_id", refundID).Str("tender_id", tenderID).Msg("Failed to get payment refund")
	metrics.RecordSkip(c.name, "api_error")
}
