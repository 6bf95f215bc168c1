package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/furima/checkout/internal/app"
	"github.com/furima/checkout/internal/clock"
	"github.com/furima/checkout/internal/payment/payjp"
	"github.com/furima/checkout/internal/storage/postgres"
	"github.com/furima/checkout/internal/testutil"
)

func TestPlaceOrder_HTTPIntegration(t *testing.T) {
	pool := testutil.NewTestPool(t)
	testutil.ApplyMigrations(t, context.Background(), pool)

	var charges atomic.Int32
	gateway := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		charges.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"ch_integration"}`))
	}))
	defer gateway.Close()

	orders := postgres.NewOrderRepository(pool)
	items := postgres.NewItemRepository(pool)
	svc := app.NewPlacementService(items, orders, payjp.New("sk_test", payjp.WithBaseURL(gateway.URL)), clock.NewSystem())
	query := app.NewOrderQueryService(orders, items)

	ctx := context.Background()
	testutil.TruncateAll(t, ctx, pool)
	itemID := testutil.InsertItem(t, ctx, pool, "seller-1", 1000)

	place := RequireUser(HandlePlaceOrder(svc, nil))

	req := httptest.NewRequest(http.MethodPost, "/items/"+itemID+"/orders", strings.NewReader(validOrderBody))
	req.Header.Set(UserIDHeader, "buyer-1")
	rec := httptest.NewRecorder()
	place.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d (%s)", rec.Code, rec.Body.String())
	}
	var created orderResponse
	if err := json.NewDecoder(rec.Body).Decode(&created); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if created.ItemID != itemID || created.ShippingAddress.PhoneNumber != "09012345678" {
		t.Fatalf("unexpected order: %+v", created)
	}

	req2 := httptest.NewRequest(http.MethodPost, "/items/"+itemID+"/orders", strings.NewReader(validOrderBody))
	req2.Header.Set(UserIDHeader, "buyer-2")
	rec2 := httptest.NewRecorder()
	place.ServeHTTP(rec2, req2)

	if rec2.Code != http.StatusConflict {
		t.Fatalf("expected status 409, got %d", rec2.Code)
	}
	if n := charges.Load(); n != 1 {
		t.Fatalf("expected exactly one charge, got %d", n)
	}

	get := RequireUser(HandleGetOrder(query))
	req3 := httptest.NewRequest(http.MethodGet, "/orders/"+created.ID, nil)
	req3.Header.Set(UserIDHeader, "seller-1")
	rec3 := httptest.NewRecorder()
	get.ServeHTTP(rec3, req3)

	if rec3.Code != http.StatusOK {
		t.Fatalf("expected status 200 for seller, got %d", rec3.Code)
	}

	var charged string
	if err := pool.QueryRow(ctx, `SELECT charge_id FROM orders WHERE item_id = $1`, itemID).Scan(&charged); err != nil {
		t.Fatalf("query order: %v", err)
	}
	if charged != "ch_integration" {
		t.Fatalf("expected charge id persisted, got %s", charged)
	}
}
