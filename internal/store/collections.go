// Squaredown - Square Point-of-Sale Data Synchronization and Accounting Reports
// Copyright 2026 Lake Anne Brewhouse
// SPDX-License-Identifier: MIT
// https://github.com/lakeannebrewhouse/squaredown

package store

// Collection names. Raw collections hold the API responses untouched so
// orders and itemizations can be reprocessed without another API pull.
const (
	OrdersCollection             = "square_orders"
	RawOrdersCollection          = "raw_square_orders"
	TendersCollection            = "square_order_tenders"
	FulfillmentsCollection       = "square_order_fulfillments"
	ItemizationsCollection       = "square_order_itemizations"
	RawItemizationsCollection    = "raw_square_order_itemizations"
	ReturnItemizationsCollection = "square_order_return_itemizations"
	PaymentsCollection           = "square_payments"
	RefundsCollection            = "square_refunds"
	LocationsCollection          = "square_locations"
	PayoutsCollection            = "square_payouts"
	PayoutEntriesCollection      = "square_payout_entries"
	RawPayoutEntriesCollection   = "raw_square_payout_entries"
	ConfigCollection             = "squaredown_config"
)

// CatalogCollections maps Square catalog object types to their collections.
// Each catalog object type is synced by its own connector instance.
var CatalogCollections = map[string]string{
	"CATEGORY":       "square_catalog_categories",
	"ITEM":           "square_catalog_items",
	"ITEM_VARIATION": "square_catalog_item_variations",
	"TAX":            "square_catalog_taxes",
	"DISCOUNT":       "square_catalog_discounts",
	"MODIFIER":       "square_catalog_modifiers",
	"MODIFIER_LIST":  "square_catalog_modifier_lists",
}
