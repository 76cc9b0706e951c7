// Squaredown - Square Point-of-Sale Data Synchronization and Accounting Reports
// Copyright 2026 Lake Anne Brewhouse
// SPDX-License-Identifier: MIT
// https://github.com/lakeannebrewhouse/squaredown

package connector

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/mongo"

	"github.com/lakeannebrewhouse/squaredown/internal/square"
	"github.com/lakeannebrewhouse/squaredown/internal/store"
)

// fakeStore is an in-memory store.Datastore for connector tests.
type fakeStore struct {
	collections map[string]map[string]map[string]interface{}
	states      map[string]*store.SyncState
	fixed       map[string]bool // "collection/id" entries refuse order upserts
	deletes     []string        // "collection/id" of every DeleteByID call
	stateSaves  int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		collections: make(map[string]map[string]map[string]interface{}),
		states:      make(map[string]*store.SyncState),
		fixed:       make(map[string]bool),
	}
}

func (f *fakeStore) coll(name string) map[string]map[string]interface{} {
	if f.collections[name] == nil {
		f.collections[name] = make(map[string]map[string]interface{})
	}
	return f.collections[name]
}

func (f *fakeStore) UpsertByID(_ context.Context, collection, id string, doc map[string]interface{}) error {
	doc["_id"] = id
	f.coll(collection)[id] = doc
	return nil
}

func (f *fakeStore) UpsertOrder(_ context.Context, collection, id string, doc map[string]interface{}) error {
	if f.fixed[collection+"/"+id] {
		return store.ErrOrderFixed
	}
	return f.UpsertByID(context.Background(), collection, id, doc)
}

func (f *fakeStore) DeleteByID(_ context.Context, collection, id string) error {
	f.deletes = append(f.deletes, collection+"/"+id)
	delete(f.coll(collection), id)
	return nil
}

func (f *fakeStore) FindByID(_ context.Context, collection, id string) (map[string]interface{}, error) {
	doc, ok := f.coll(collection)[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return doc, nil
}

func (f *fakeStore) FindRange(_ context.Context, collection, timeField string, begin, end time.Time) ([]map[string]interface{}, error) {
	lo := begin.UTC().Format(time.RFC3339)
	hi := end.UTC().Format(time.RFC3339)

	var docs []map[string]interface{}
	for _, doc := range f.coll(collection) {
		ts, _ := doc[timeField].(string)
		if ts >= lo && ts < hi {
			docs = append(docs, doc)
		}
	}
	return docs, nil
}

func (f *fakeStore) Aggregate(_ context.Context, _ string, _ mongo.Pipeline) ([]map[string]interface{}, error) {
	return nil, nil
}

func (f *fakeStore) LoadSyncState(_ context.Context, name string) (*store.SyncState, error) {
	if state, ok := f.states[name]; ok {
		copied := *state
		return &copied, nil
	}
	return &store.SyncState{Name: name}, nil
}

func (f *fakeStore) SaveSyncState(_ context.Context, state *store.SyncState) error {
	copied := *state
	f.states[state.Name] = &copied
	f.stateSaves++
	return nil
}

// fakeAPI is a canned square.APIClient. Each response slice is consumed one
// page per call; the last page repeats if calls continue.
type fakeAPI struct {
	orderPages   []*square.SearchOrdersResponse
	orderCalls   int
	catalogPages []*square.SearchCatalogObjectsResponse
	catalogCalls int
	locations    *square.ListLocationsResponse
	payoutPages  []*square.ListPayoutsResponse
	payoutCalls  int
	entryPages   map[string][]*square.ListPayoutEntriesResponse
	entryCalls   map[string]int

	payments    map[string]map[string]interface{}
	refunds     map[string]map[string]interface{}
	paymentErr  error
	refundErr   error
	paymentReqs []string
	refundReqs  []string
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		payments:   make(map[string]map[string]interface{}),
		refunds:    make(map[string]map[string]interface{}),
		entryPages: make(map[string][]*square.ListPayoutEntriesResponse),
		entryCalls: make(map[string]int),
	}
}

func page[T any](pages []*T, call *int) *T {
	if len(pages) == 0 {
		return new(T)
	}
	i := *call
	if i >= len(pages) {
		i = len(pages) - 1
	}
	*call++
	return pages[i]
}

func (f *fakeAPI) Ping(context.Context) error { return nil }

func (f *fakeAPI) SearchOrders(_ context.Context, _ *square.SearchOrdersRequest) (*square.SearchOrdersResponse, error) {
	return page(f.orderPages, &f.orderCalls), nil
}

func (f *fakeAPI) SearchCatalogObjects(_ context.Context, _ *square.SearchCatalogObjectsRequest) (*square.SearchCatalogObjectsResponse, error) {
	return page(f.catalogPages, &f.catalogCalls), nil
}

func (f *fakeAPI) ListLocations(context.Context) (*square.ListLocationsResponse, error) {
	if f.locations == nil {
		return &square.ListLocationsResponse{}, nil
	}
	return f.locations, nil
}

func (f *fakeAPI) GetPayment(_ context.Context, paymentID string) (map[string]interface{}, error) {
	f.paymentReqs = append(f.paymentReqs, paymentID)
	if f.paymentErr != nil {
		return nil, f.paymentErr
	}
	if payment, ok := f.payments[paymentID]; ok {
		return copyDoc(payment), nil
	}
	return nil, &square.APIError{StatusCode: 404, Endpoint: "get_payment"}
}

func (f *fakeAPI) GetPaymentRefund(_ context.Context, refundID string) (map[string]interface{}, error) {
	f.refundReqs = append(f.refundReqs, refundID)
	if f.refundErr != nil {
		return nil, f.refundErr
	}
	if refund, ok := f.refunds[refundID]; ok {
		return copyDoc(refund), nil
	}
	return nil, &square.APIError{StatusCode: 404, Endpoint: "get_payment_refund"}
}

func (f *fakeAPI) ListPayouts(_ context.Context, _ string, _, _ time.Time, _ string) (*square.ListPayoutsResponse, error) {
	return page(f.payoutPages, &f.payoutCalls), nil
}

func (f *fakeAPI) ListPayoutEntries(_ context.Context, payoutID, _ string) (*square.ListPayoutEntriesResponse, error) {
	pages := f.entryPages[payoutID]
	if len(pages) == 0 {
		return &square.ListPayoutEntriesResponse{}, nil
	}
	call := f.entryCalls[payoutID]
	if call >= len(pages) {
		call = len(pages) - 1
	}
	f.entryCalls[payoutID] = call + 1
	return pages[call], nil
}
