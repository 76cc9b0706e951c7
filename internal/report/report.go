// Squaredown - Square Point-of-Sale Data Synchronization and Accounting Reports
// Copyright 2026 Lake Anne Brewhouse
// SPDX-License-Identifier: MIT
// https://github.com/lakeannebrewhouse/squaredown

// Package report builds the accounting summary from the synced collections.
//
// All amounts are integer cents, signed the way an accountant reads them:
// sales positive, refunds negative, discounts and fees negative on the sales
// side. Every row's Net is Sales + Refunds.
package report

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/lakeannebrewhouse/squaredown/internal/logging"
	"github.com/lakeannebrewhouse/squaredown/internal/metrics"
	"github.com/lakeannebrewhouse/squaredown/internal/store"
)

// Row is one report line.
type Row struct {
	Sales   int64 `json:"sales"`
	Refunds int64 `json:"refunds"`
	Net     int64 `json:"net"`
}

// Section maps row names to rows. Category sections grow rows as categories
// appear in the data.
type Section map[string]*Row

// Timespan is the half-open window a report covers.
type Timespan struct {
	Begin time.Time `json:"begin"`
	Thru  time.Time `json:"thru"`
}

// Report is the accounting report for one timespan.
type Report struct {
	ID            string    `json:"id"`
	Timespan      Timespan  `json:"timespan"`
	BuiltAt       time.Time `json:"built_at"`
	Summary       Section   `json:"summary"`
	Collected     Section   `json:"collected"`
	CategorySales Section   `json:"category_sales"`
	Cost          Section   `json:"cost"`
}

// Generator builds reports from the synced collections.
type Generator struct {
	db store.Datastore
}

// NewGenerator creates a report generator.
func NewGenerator(db store.Datastore) *Generator {
	return &Generator{db: db}
}

func newReport(begin, thru time.Time) *Report {
	return &Report{
		ID:       uuid.NewString(),
		Timespan: Timespan{Begin: begin, Thru: thru},
		BuiltAt:  time.Now().UTC(),
		Summary: Section{
			"gross":          {},
			"discount":       {},
			"net":            {},
			"tax":            {},
			"tip":            {},
			"gift_card":      {},
			"partial_refund": {},
			"fee":            {},
			"gift_card_load": {},
			"net_total":      {},
		},
		Collected: Section{
			"total":             {},
			"cash":              {},
			"card":              {},
			"square_gift_card":  {},
			"buy_now_pay_later": {},
			"other":             {},
			"wallet":            {},
		},
		CategorySales: Section{
			"total":         {},
			"uncategorized": {},
		},
		Cost: Section{
			"total":         {},
			"uncategorized": {},
		},
	}
}

// row returns the named row, creating it for dynamic sections.
func (s Section) row(name string) *Row {
	if r, ok := s[name]; ok {
		return r
	}
	r := &Row{}
	s[name] = r
	return r
}

// Build produces the accounting report for [begin, thru).
func (g *Generator) Build(ctx context.Context, begin, thru time.Time) (*Report, error) {
	start := time.Now()
	r := newReport(begin, thru)

	steps := []func(context.Context, *Report) error{
		g.setSales,
		g.setGiftCardSales,
		g.setProcessingFees,
		g.setCategorySales,
		g.setCollectedSales,
		g.setServiceCharges,
		g.setReturnRefunds,
		g.setCustomRefunds,
		g.setTipOnlyRefunds,
		g.setProcessingFeeRefunds,
		g.setCategoryRefunds,
		g.setCollectedRefunds,
		g.setCostSales,
	}
	for _, step := range steps {
		if err := step(ctx, r); err != nil {
			metrics.RecordReportBuild(time.Since(start), err)
			return nil, err
		}
	}

	r.calculateNet()
	metrics.RecordReportBuild(time.Since(start), nil)

	logging.Info().
		Str("report_id", r.ID).
		Time("begin", begin).
		Time("thru", thru).
		Dur("duration", time.Since(start)).
		Msg("Report built")
	return r, nil
}

// aggregateOne runs a pipeline expected to produce at most one document.
func (g *Generator) aggregateOne(ctx context.Context, collection string, pipeline mongo.Pipeline) (map[string]interface{}, error) {
	docs, err := g.db.Aggregate(ctx, collection, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate %s: %w", collection, err)
	}
	if len(docs) == 0 {
		return nil, nil
	}
	return docs[0], nil
}

func (g *Generator) setSales(ctx context.Context, r *Report) error {
	doc, err := g.aggregateOne(ctx, store.OrdersCollection, itemizedOrdersPipeline(r.Timespan.Begin, r.Timespan.Thru, false))
	if err != nil || doc == nil {
		return err
	}

	gross := intValue(doc, "total_gross_sales_money_amount")
	discount := intValue(doc, "total_discount_money_amount")

	r.Summary.row("gross").Sales = gross
	r.Summary.row("discount").Sales = -discount
	r.Summary.row("net").Sales = gross - discount
	r.Summary.row("tax").Sales = intValue(doc, "total_tax_money_amount")
	r.Summary.row("tip").Sales = intValue(doc, "total_tip_money_amount")
	return nil
}

func (g *Generator) setGiftCardSales(ctx context.Context, r *Report) error {
	doc, err := g.aggregateOne(ctx, store.OrdersCollection, itemizedOrdersPipeline(r.Timespan.Begin, r.Timespan.Thru, true))
	if err != nil || doc == nil {
		return err
	}

	discount := intValue(doc, "total_discount_money_amount")

	r.Summary.row("gift_card").Sales = intValue(doc, "total_gross_sales_money_amount")
	r.Summary.row("tip").Sales += intValue(doc, "total_tip_money_amount")
	r.Summary.row("discount").Sales -= discount
	r.Summary.row("net").Sales -= discount
	return nil
}

func (g *Generator) setProcessingFees(ctx context.Context, r *Report) error {
	doc, err := g.aggregateOne(ctx, store.PaymentsCollection, processingFeePipeline(r.Timespan.Begin, r.Timespan.Thru))
	if err != nil {
		return err
	}
	if doc != nil {
		r.Summary.row("fee").Sales = -intValue(doc, "amount")
	}

	doc, err = g.aggregateOne(ctx, store.PayoutEntriesCollection, giftCardLoadPipeline(r.Timespan.Begin, r.Timespan.Thru))
	if err != nil {
		return err
	}
	if doc != nil {
		r.Summary.row("gift_card_load").Sales = intValue(doc, "amount")
	}
	return nil
}

func (g *Generator) setCategorySales(ctx context.Context, r *Report) error {
	docs, err := g.db.Aggregate(ctx, store.ItemizationsCollection, categorySalesPipeline(r.Timespan.Begin, r.Timespan.Thru))
	if err != nil {
		return fmt.Errorf("failed to aggregate category sales: %w", err)
	}

	var total int64
	for _, doc := range docs {
		name := categoryName(doc)
		amount := intValue(doc, "gross_sales_money_amount")
		total += amount
		r.CategorySales.row(name).Sales = amount
	}
	r.CategorySales.row("total").Sales = total
	return nil
}

func (g *Generator) setCollectedSales(ctx context.Context, r *Report) error {
	docs, err := g.db.Aggregate(ctx, store.TendersCollection, collectedSalesPipeline(r.Timespan.Begin, r.Timespan.Thru))
	if err != nil {
		return fmt.Errorf("failed to aggregate collected sales: %w", err)
	}

	var total int64
	for _, doc := range docs {
		name, _ := doc["_id"].(string)
		amount := intValue(doc, "amount")
		total += amount
		r.Collected.row(name).Sales = amount
	}
	r.Collected.row("total").Sales = total
	return nil
}

func (g *Generator) setServiceCharges(ctx context.Context, r *Report) error {
	docs, err := g.db.Aggregate(ctx, store.OrdersCollection, serviceChargesPipeline(r.Timespan.Begin, r.Timespan.Thru))
	if err != nil {
		return fmt.Errorf("failed to aggregate service charges: %w", err)
	}

	for _, doc := range docs {
		name, _ := doc["_id"].(string)
		if name == "Gratuity" {
			r.Summary.row("tip").Sales += intValue(doc, "amount")
			continue
		}
		logging.Error().Str("service_charge", name).Msg("Unhandled service charge")
	}
	return nil
}

func (g *Generator) setReturnRefunds(ctx context.Context, r *Report) error {
	doc, err := g.aggregateOne(ctx, store.OrdersCollection, returnRefundsPipeline(r.Timespan.Begin, r.Timespan.Thru))
	if err != nil || doc == nil {
		return err
	}

	gross := intValue(doc, "total_gross_refund_money_amount")
	discount := intValue(doc, "total_discount_refund_money_amount")

	r.Summary.row("gross").Refunds = -gross
	r.Summary.row("discount").Refunds = discount
	r.Summary.row("net").Refunds = -(gross - discount)
	r.Summary.row("tax").Refunds = -intValue(doc, "total_tax_refund_money_amount")
	r.Summary.row("tip").Refunds = -intValue(doc, "total_tip_refund_money_amount")
	return nil
}

func (g *Generator) setCustomRefunds(ctx context.Context, r *Report) error {
	doc, err := g.aggregateOne(ctx, store.OrdersCollection, customRefundsPipeline(r.Timespan.Begin, r.Timespan.Thru))
	if err != nil || doc == nil {
		return err
	}

	r.Summary.row("partial_refund").Refunds = -intValue(doc, "total_gross_refund_money_amount")
	return nil
}

func (g *Generator) setTipOnlyRefunds(ctx context.Context, r *Report) error {
	doc, err := g.aggregateOne(ctx, store.OrdersCollection, tipOnlyRefundsPipeline(r.Timespan.Begin, r.Timespan.Thru))
	if err != nil || doc == nil {
		return err
	}

	discount := intValue(doc, "total_discount_refund_money_amount")

	r.Summary.row("discount").Refunds += discount
	r.Summary.row("net").Refunds += discount
	r.Summary.row("tax").Refunds -= intValue(doc, "total_tax_refund_money_amount")
	r.Summary.row("tip").Refunds -= intValue(doc, "total_tip_refund_money_amount")
	return nil
}

func (g *Generator) setProcessingFeeRefunds(ctx context.Context, r *Report) error {
	doc, err := g.aggregateOne(ctx, store.RefundsCollection, processingFeePipeline(r.Timespan.Begin, r.Timespan.Thru))
	if err != nil || doc == nil {
		return err
	}

	r.Summary.row("fee").Refunds = -intValue(doc, "amount")
	return nil
}

func (g *Generator) setCategoryRefunds(ctx context.Context, r *Report) error {
	docs, err := g.db.Aggregate(ctx, store.ReturnItemizationsCollection, categoryRefundsPipeline(r.Timespan.Begin, r.Timespan.Thru))
	if err != nil {
		return fmt.Errorf("failed to aggregate category refunds: %w", err)
	}

	var total int64
	for _, doc := range docs {
		name := categoryName(doc)
		amount := intValue(doc, "gross_return_money_amount")
		total += amount
		r.CategorySales.row(name).Refunds = -amount
	}
	r.CategorySales.row("total").Refunds = -total
	return nil
}

func (g *Generator) setCollectedRefunds(ctx context.Context, r *Report) error {
	docs, err := g.db.Aggregate(ctx, store.OrdersCollection, collectedRefundsPipeline(r.Timespan.Begin, r.Timespan.Thru))
	if err != nil {
		return fmt.Errorf("failed to aggregate collected refunds: %w", err)
	}

	var total int64
	for _, doc := range docs {
		name, _ := doc["_id"].(string)
		amount := intValue(doc, "amount")
		total += amount
		r.Collected.row(name).Refunds = -amount
	}
	r.Collected.row("total").Refunds = -total
	return nil
}

func (g *Generator) setCostSales(ctx context.Context, r *Report) error {
	docs, err := g.db.Aggregate(ctx, store.ItemizationsCollection, costSalesPipeline(r.Timespan.Begin, r.Timespan.Thru))
	if err != nil {
		return fmt.Errorf("failed to aggregate cost sales: %w", err)
	}

	var total int64
	for _, doc := range docs {
		name := categoryName(doc)
		// Gift card loads carry no ingredient cost.
		if name == "gift card" {
			continue
		}
		amount := intValue(doc, "amount")
		total += amount
		r.Cost.row(name).Sales = amount
	}
	r.Cost.row("total").Sales = total
	return nil
}

// calculateNet fills in the derived rows: net_total from collected plus
// fees, then Net on every row.
func (r *Report) calculateNet() {
	r.Summary.row("net_total").Sales = r.Collected.row("total").Sales + r.Summary.row("fee").Sales
	r.Summary.row("net_total").Refunds = r.Collected.row("total").Refunds + r.Summary.row("fee").Refunds

	for _, section := range []Section{r.Summary, r.Collected, r.CategorySales, r.Cost} {
		for _, row := range section {
			row.Net = row.Sales + row.Refunds
		}
	}
}

// categoryName extracts the grouped category, mapping missing names to
// uncategorized.
func categoryName(doc map[string]interface{}) string {
	name, _ := doc["_id"].(string)
	if name == "" {
		logging.Error().Msg("Unknown category")
		return "uncategorized"
	}
	return name
}

// intValue reads an aggregation sum, which the driver may decode as any
// numeric BSON type.
func intValue(doc map[string]interface{}, field string) int64 {
	switch v := doc[field].(type) {
	case int64:
		return v
	case int32:
		return int64(v)
	case int:
		return int64(v)
	case float64:
		return int64(v)
	default:
		return 0
	}
}
