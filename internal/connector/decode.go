// Squaredown - Square Point-of-Sale Data Synchronization and Accounting Reports
// Copyright 2026 Lake Anne Brewhouse
// SPDX-License-Identifier: MIT
// https://github.com/lakeannebrewhouse/squaredown

package connector

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Square returns every timestamp as an RFC3339 string. Decoding replaces
// those strings with time.Time in place, which the store writes as BSON
// dates so range queries and aggregations can compare them natively. A
// field that is absent or fails to parse is left untouched.

var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
}

func parseTimestamp(s string) (time.Time, bool) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// decodeTimeField converts doc[field] from an RFC3339 string to time.Time.
func decodeTimeField(doc map[string]interface{}, field string) {
	s, ok := doc[field].(string)
	if !ok {
		return
	}
	if t, ok := parseTimestamp(s); ok {
		doc[field] = t
	}
}

func decodeTimeFields(doc map[string]interface{}, fields ...string) {
	for _, field := range fields {
		decodeTimeField(doc, field)
	}
}

// asMap returns v as a document, or nil when it is anything else.
func asMap(v interface{}) map[string]interface{} {
	m, _ := v.(map[string]interface{})
	return m
}

// asSlice returns v as a list of documents, dropping non-document elements.
// Arrays read back from MongoDB decode as primitive.A rather than
// []interface{}, so both shapes are accepted.
func asSlice(v interface{}) []map[string]interface{} {
	var raw []interface{}
	switch s := v.(type) {
	case []interface{}:
		raw = s
	case primitive.A:
		raw = s
	default:
		return nil
	}
	docs := make([]map[string]interface{}, 0, len(raw))
	for _, item := range raw {
		if m := asMap(item); m != nil {
			docs = append(docs, m)
		}
	}
	return docs
}

// stringField returns doc[field] as a string, empty when absent.
func stringField(doc map[string]interface{}, field string) string {
	s, _ := doc[field].(string)
	return s
}

// int64Field returns doc[field] as an int64, accepting the numeric types
// produced by both JSON decoding (float64) and BSON decoding (int32/int64).
func int64Field(doc map[string]interface{}, field string) (int64, bool) {
	switch n := doc[field].(type) {
	case float64:
		return int64(n), true
	case int64:
		return n, true
	case int32:
		return int64(n), true
	case int:
		return int64(n), true
	}
	return 0, false
}

// decodeOrder converts an order's timestamps, including those nested in its
// tenders, refunds, and fulfillments.
func decodeOrder(order map[string]interface{}) {
	decodeTimeFields(order, "created_at", "updated_at", "closed_at")

	for _, tender := range asSlice(order["tenders"]) {
		decodeTimeField(tender, "created_at")
	}
	for _, refund := range asSlice(order["refunds"]) {
		decodeRefund(refund)
	}
	for _, fulfillment := range asSlice(order["fulfillments"]) {
		decodeFulfillment(fulfillment)
	}
}

// decodePayment converts a payment's timestamps, including the effective
// times of its processing fees.
func decodePayment(payment map[string]interface{}) {
	decodeTimeFields(payment, "created_at", "updated_at", "delayed_until")
	for _, fee := range asSlice(payment["processing_fee"]) {
		decodeTimeField(fee, "effective_at")
	}
}

// decodeRefund converts a refund's timestamps.
func decodeRefund(refund map[string]interface{}) {
	decodeTimeFields(refund, "created_at", "updated_at")
	for _, fee := range asSlice(refund["processing_fee"]) {
		decodeTimeField(fee, "effective_at")
	}
}

// decodeFulfillment converts the timestamps buried in a fulfillment's pickup
// and shipment detail blocks.
func decodeFulfillment(fulfillment map[string]interface{}) {
	if pickup := asMap(fulfillment["pickup_details"]); pickup != nil {
		decodeTimeFields(pickup,
			"accepted_at",
			"canceled_at",
			"expired_at",
			"picked_up_at",
			"pickup_at",
			"placed_at",
			"ready_at",
			"rejected_at",
		)
		if curbside := asMap(pickup["curbside_pickup_details"]); curbside != nil {
			decodeTimeField(curbside, "buyer_arrived_at")
		}
	}

	if shipment := asMap(fulfillment["shipment_details"]); shipment != nil {
		decodeTimeFields(shipment,
			"canceled_at",
			"expected_shipped_at",
			"failed_at",
			"in_progress_at",
			"packaged_at",
			"placed_at",
			"shipped_at",
		)
	}
}

// decodeLocation converts a location's creation timestamp.
func decodeLocation(location map[string]interface{}) {
	decodeTimeField(location, "created_at")
}

// decodeCatalogObject converts a catalog object's update timestamp. Items
// also carry per-variation timestamps.
func decodeCatalogObject(obj map[string]interface{}) {
	decodeTimeField(obj, "updated_at")

	if stringField(obj, "type") != "ITEM" {
		return
	}
	if itemData := asMap(obj["item_data"]); itemData != nil {
		for _, variation := range asSlice(itemData["variations"]) {
			decodeTimeField(variation, "updated_at")
		}
	}
}

// decodePayout converts a payout's timestamps.
func decodePayout(payout map[string]interface{}) {
	decodeTimeFields(payout, "created_at", "updated_at")
}

// decodePayoutEntry converts a payout entry's effective timestamp.
func decodePayoutEntry(entry map[string]interface{}) {
	decodeTimeField(entry, "effective_at")
}
