// Squaredown - Square Point-of-Sale Data Synchronization and Accounting Reports
// Copyright 2026 Lake Anne Brewhouse
// SPDX-License-Identifier: MIT
// https://github.com/lakeannebrewhouse/squaredown

package connector

import (
	"context"
	"strconv"

	"github.com/lakeannebrewhouse/squaredown/internal/logging"
	"github.com/lakeannebrewhouse/squaredown/internal/store"
)

// Line-item uids are only unique within their order, so itemizations are
// stored under "{order_id}_{uid}". Earlier versions keyed them by bare uid;
// processItemization deletes any leftover document under that legacy key.

// processItemizations fans out the order's line items into the itemizations
// collection.
func (c *OrdersConnector) processItemizations(ctx context.Context, order map[string]interface{}) error {
	extra := map[string]interface{}{"itemization_type": "sale"}
	for _, item := range asSlice(order["line_items"]) {
		if err := c.processItemization(ctx, order, item, store.ItemizationsCollection, extra); err != nil {
			return err
		}
	}
	return nil
}

// processReturns fans out the return line items of each return into the
// return-itemizations collection, tagged with the order they reverse.
func (c *OrdersConnector) processReturns(ctx context.Context, order map[string]interface{}) error {
	for _, ret := range asSlice(order["returns"]) {
		extra := map[string]interface{}{
			"itemization_type": "return",
			"source_order_id":  ret["source_order_id"],
		}
		for _, item := range asSlice(ret["return_line_items"]) {
			if err := c.processItemization(ctx, order, item, store.ReturnItemizationsCollection, extra); err != nil {
				return err
			}
		}
	}
	return nil
}

// processItemization saves one line item: raw copy first, then the processed
// document under the composite id with order properties merged in and the
// quantity converted to a number.
func (c *OrdersConnector) processItemization(ctx context.Context, order, item map[string]interface{}, collection string, extra map[string]interface{}) error {
	orderID := stringField(order, "id")
	uid := stringField(item, "uid")
	if uid == "" {
		logging.Warn().Str("order_id", orderID).Msg("Line item without uid, skipping")
		return nil
	}
	id := orderID + "_" + uid

	if err := c.db.UpsertByID(ctx, store.RawItemizationsCollection, id, copyDoc(item)); err != nil {
		return err
	}

	doc := copyDoc(item)
	doc["id"] = id
	for k, v := range orderProps(order) {
		doc[k] = v
	}
	for k, v := range extra {
		doc[k] = v
	}

	doc["order_source"] = orderSourceName(order)

	if qty := stringField(item, "quantity"); qty != "" {
		if n, err := strconv.ParseFloat(qty, 64); err == nil {
			doc["quantity"] = int64(n)
		}
	}

	// Drop the document a pre-composite-id version stored under the bare uid.
	if err := c.db.DeleteByID(ctx, collection, uid); err != nil {
		return err
	}
	return c.db.UpsertByID(ctx, collection, id, doc)
}

// orderSourceName extracts the order's source name, falling back to the
// point-of-sale default.
func orderSourceName(order map[string]interface{}) string {
	if source := asMap(order["source"]); source != nil {
		if name := stringField(source, "name"); name != "" {
			return name
		}
	}
	return "Point of Sale"
}

func copyDoc(doc map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(doc))
	for k, v := range doc {
		out[k] = v
	}
	return out
}
