// Squaredown - Square Point-of-Sale Data Synchronization and Accounting Reports
// Copyright 2026 Lake Anne Brewhouse
// SPDX-License-Identifier: MIT
// https://github.com/lakeannebrewhouse/squaredown

package report

import (
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// The report runs fixed aggregation pipelines against the synced
// collections. Orders itemize sales; tenders show what was collected;
// payments and payout entries carry the processing fees. Tips live on the
// order rather than its line items, so pipelines that unwind line items
// zero the tip on every line after the first to count it once per order.

func timeMatch(field string, begin, thru time.Time) bson.M {
	return bson.M{field: bson.M{"$gte": begin, "$lt": thru}}
}

// itemizedOrdersPipeline totals gross sales, discounts, taxes, and tips
// across order line items. Gift card line items are reported separately, so
// giftCards selects them instead of excluding them.
func itemizedOrdersPipeline(begin, thru time.Time, giftCards bool) mongo.Pipeline {
	match := timeMatch("created_at", begin, thru)
	nameFilter := bson.M{"line_items.name": bson.M{"$nin": bson.A{"Gift Card", "eGift Card"}}}
	if giftCards {
		match["state"] = "COMPLETED"
		nameFilter = bson.M{"line_items.name": bson.M{"$in": bson.A{"Gift Card", "eGift Card"}}}
	} else {
		match["state"] = bson.M{"$in": bson.A{"COMPLETED", "OPEN"}}
	}

	return mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$unwind", Value: bson.M{
			"path":                       "$line_items",
			"includeArrayIndex":          "line_item_index",
			"preserveNullAndEmptyArrays": false,
		}}},
		{{Key: "$match", Value: nameFilter}},
		{{Key: "$addFields", Value: bson.M{
			"gross_sales_money": "$line_items.gross_sales_money",
			"discount_money":    "$line_items.total_discount_money",
			"tax_money":         "$line_items.total_tax_money",
		}}},
		{{Key: "$unset", Value: bson.A{
			"fulfillments",
			"net_amounts",
			"total_discount_money",
			"total_money",
			"total_tax_money",
		}}},
		{{Key: "$set", Value: bson.M{
			"total_tip_money.amount": bson.M{"$cond": bson.M{
				"if":   bson.M{"$gt": bson.A{"$line_item_index", 0}},
				"then": 0,
				"else": "$total_tip_money.amount",
			}},
		}}},
		{{Key: "$group", Value: bson.M{
			"_id":                             nil,
			"total_gross_sales_money_amount":  bson.M{"$sum": "$gross_sales_money.amount"},
			"total_discount_money_amount":     bson.M{"$sum": "$discount_money.amount"},
			"total_tax_money_amount":          bson.M{"$sum": "$tax_money.amount"},
			"total_tip_money_amount":          bson.M{"$sum": "$total_tip_money.amount"},
		}}},
	}
}

// processingFeePipeline sums processing fees on completed payments or
// refunds; both collections embed the fee list the same way.
func processingFeePipeline(begin, thru time.Time) mongo.Pipeline {
	match := timeMatch("created_at", begin, thru)
	match["status"] = "COMPLETED"

	return mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$unwind", Value: bson.M{"path": "$processing_fee"}}},
		{{Key: "$group", Value: bson.M{
			"_id":    nil,
			"amount": bson.M{"$sum": "$processing_fee.amount_money.amount"},
		}}},
	}
}

// giftCardLoadPipeline sums the gross amount of OTHER payout entries, which
// is how gift card load fees arrive.
func giftCardLoadPipeline(begin, thru time.Time) mongo.Pipeline {
	match := timeMatch("effective_at", begin, thru)
	match["type"] = "OTHER"

	return mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$group", Value: bson.M{
			"_id":    nil,
			"amount": bson.M{"$sum": "$gross_amount_money.amount"},
		}}},
	}
}

// categorySalesPipeline groups itemization gross sales by lower-cased
// category name.
func categorySalesPipeline(begin, thru time.Time) mongo.Pipeline {
	match := timeMatch("order_created_at", begin, thru)
	match["order_state"] = bson.M{"$in": bson.A{"COMPLETED", "OPEN"}}
	match["category_name"] = bson.M{"$exists": 1}

	return mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$addFields", Value: bson.M{
			"category_name": bson.M{"$toLower": "$category_name"},
		}}},
		{{Key: "$group", Value: bson.M{
			"_id":                      "$category_name",
			"gross_sales_money_amount": bson.M{"$sum": "$gross_sales_money.amount"},
		}}},
	}
}

// collectedSalesPipeline groups tender amounts by lower-cased tender type,
// dropping register no-sales.
func collectedSalesPipeline(begin, thru time.Time) mongo.Pipeline {
	match := timeMatch("created_at", begin, thru)
	match["order_state"] = bson.M{"$in": bson.A{"COMPLETED", "OPEN"}}

	return mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$group", Value: bson.M{
			"_id":    bson.M{"$toLower": "$type"},
			"amount": bson.M{"$sum": "$amount_money.amount"},
		}}},
		{{Key: "$match", Value: bson.M{"_id": bson.M{"$ne": "no_sale"}}}},
	}
}

// serviceChargesPipeline groups order service charges by name.
func serviceChargesPipeline(begin, thru time.Time) mongo.Pipeline {
	match := timeMatch("created_at", begin, thru)
	match["state"] = bson.M{"$in": bson.A{"COMPLETED"}}

	return mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$unwind", Value: bson.M{
			"path":                       "$service_charges",
			"preserveNullAndEmptyArrays": false,
		}}},
		{{Key: "$group", Value: bson.M{
			"_id":    "$service_charges.name",
			"amount": bson.M{"$sum": "$service_charges.total_money.amount"},
		}}},
	}
}

// returnRefundsPipeline totals refunds from returned line items: the
// variation price plus any returned modifiers, with discounts, taxes, and
// the once-per-order tip.
func returnRefundsPipeline(begin, thru time.Time) mongo.Pipeline {
	match := timeMatch("created_at", begin, thru)
	match["state"] = bson.M{"$in": bson.A{"COMPLETED"}}
	match["refunds"] = bson.M{"$exists": 1}

	return mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$unwind", Value: bson.M{"path": "$returns"}}},
		{{Key: "$unwind", Value: bson.M{
			"path":              "$returns.return_line_items",
			"includeArrayIndex": "line_item_index",
		}}},
		{{Key: "$unwind", Value: bson.M{
			"path":                       "$returns.return_line_items.return_modifiers",
			"preserveNullAndEmptyArrays": true,
		}}},
		{{Key: "$addFields", Value: bson.M{
			"base_refund_money": "$returns.return_line_items.variation_total_price_money",
			"modifier_refund_money": bson.M{"$ifNull": bson.A{
				"$returns.return_line_items.return_modifiers.total_price_money",
				bson.M{"amount": 0, "currency": "USD"},
			}},
			"discount_money": "$returns.return_line_items.total_discount_money",
			"tax_money":      "$returns.return_line_items.total_tax_money",
		}}},
		{{Key: "$addFields", Value: bson.M{
			"gross_refund_money": bson.M{
				"amount": bson.M{"$add": bson.A{
					"$base_refund_money.amount",
					"$modifier_refund_money.amount",
				}},
				"currency": "USD",
			},
		}}},
		{{Key: "$unset", Value: bson.A{
			"fulfillments",
			"net_amounts",
			"total_discount_money",
			"total_money",
			"total_tax_money",
			"total_tip_money",
		}}},
		{{Key: "$set", Value: bson.M{
			"tip_money.amount": bson.M{"$cond": bson.M{
				"if":   bson.M{"$gt": bson.A{"$line_item_index", 0}},
				"then": 0,
				"else": "$return_amounts.tip_money.amount",
			}},
		}}},
		{{Key: "$group", Value: bson.M{
			"_id":                                nil,
			"total_gross_refund_money_amount":    bson.M{"$sum": "$gross_refund_money.amount"},
			"total_discount_refund_money_amount": bson.M{"$sum": "$discount_money.amount"},
			"total_tax_refund_money_amount":      bson.M{"$sum": "$tax_money.amount"},
			"total_tip_refund_money_amount":      bson.M{"$sum": "$tip_money.amount"},
		}}},
	}
}

// customRefundsPipeline totals CUSTOM_AMOUNT return line items, which are
// partial refunds keyed in by hand.
func customRefundsPipeline(begin, thru time.Time) mongo.Pipeline {
	match := timeMatch("created_at", begin, thru)
	match["state"] = bson.M{"$in": bson.A{"COMPLETED"}}
	match["refunds"] = bson.M{"$exists": 1}

	return mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$unwind", Value: bson.M{"path": "$returns"}}},
		{{Key: "$unwind", Value: bson.M{
			"path":              "$returns.return_line_items",
			"includeArrayIndex": "line_item_index",
		}}},
		{{Key: "$match", Value: bson.M{
			"returns.return_line_items.item_type": "CUSTOM_AMOUNT",
		}}},
		{{Key: "$group", Value: bson.M{
			"_id":                             nil,
			"total_gross_refund_money_amount": bson.M{"$sum": "$returns.return_line_items.gross_return_money.amount"},
		}}},
	}
}

// tipOnlyRefundsPipeline catches the special case of a refunded tip with no
// returned items.
func tipOnlyRefundsPipeline(begin, thru time.Time) mongo.Pipeline {
	match := timeMatch("created_at", begin, thru)
	match["state"] = bson.M{"$in": bson.A{"COMPLETED"}}
	match["refunds"] = bson.M{"$exists": 1}
	match["returns.return_line_items"] = bson.M{"$exists": 0}

	return mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$group", Value: bson.M{
			"_id":                                nil,
			"total_discount_refund_money_amount": bson.M{"$sum": "$return_amounts.discount_money.amount"},
			"total_tax_refund_money_amount":      bson.M{"$sum": "$return_amounts.tax_money.amount"},
			"total_tip_refund_money_amount":      bson.M{"$sum": "$return_amounts.tip_money.amount"},
		}}},
	}
}

// categoryRefundsPipeline groups return itemizations by lower-cased
// category name.
func categoryRefundsPipeline(begin, thru time.Time) mongo.Pipeline {
	match := timeMatch("order_created_at", begin, thru)
	match["order_state"] = "COMPLETED"
	match["category_name"] = bson.M{"$exists": 1}

	return mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$addFields", Value: bson.M{
			"category_name": bson.M{"$toLower": "$category_name"},
		}}},
		{{Key: "$group", Value: bson.M{
			"_id":                       "$category_name",
			"gross_return_money_amount": bson.M{"$sum": "$gross_return_money.amount"},
		}}},
	}
}

// collectedRefundsPipeline attributes refunded amounts back to the tender
// type that originally collected them.
func collectedRefundsPipeline(begin, thru time.Time) mongo.Pipeline {
	match := timeMatch("created_at", begin, thru)
	match["state"] = "COMPLETED"
	match["return_amounts.total_money.amount"] = bson.M{"$gt": 0}

	return mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$unwind", Value: bson.M{
			"path":                       "$refunds",
			"includeArrayIndex":          "refund_index",
			"preserveNullAndEmptyArrays": false,
		}}},
		{{Key: "$lookup", Value: bson.M{
			"from":         "square_order_tenders",
			"localField":   "refunds.tender_id",
			"foreignField": "_id",
			"as":           "square_order_tenders",
		}}},
		{{Key: "$unwind", Value: bson.M{"path": "$square_order_tenders"}}},
		{{Key: "$addFields", Value: bson.M{
			"type": bson.M{"$toLower": "$square_order_tenders.type"},
		}}},
		{{Key: "$group", Value: bson.M{
			"_id":    "$type",
			"amount": bson.M{"$sum": "$return_amounts.total_money.amount"},
		}}},
	}
}

// costSalesPipeline groups the applied ingredient costs of sold line items
// by cost category.
func costSalesPipeline(begin, thru time.Time) mongo.Pipeline {
	match := timeMatch("order_created_at", begin, thru)
	match["order_state"] = "COMPLETED"

	return mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$unwind", Value: bson.M{"path": "$applied_costs"}}},
		{{Key: "$group", Value: bson.M{
			"_id":    "$applied_costs.category",
			"amount": bson.M{"$sum": "$applied_costs.applied_money.amount"},
		}}},
	}
}
