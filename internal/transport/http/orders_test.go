package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/furima/checkout/internal/app"
	"github.com/furima/checkout/internal/domain"
)

const validOrderBody = `{
	"postal_code": "123-4567",
	"prefecture_id": 13,
	"city": "Shibuya",
	"street": "1-1-1",
	"building": "Test Building",
	"phone_number": "09012345678",
	"payment_token": "tok_test_token"
}`

func TestHandlePlaceOrder(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	placed := app.PlaceOrderResult{
		Order:   domain.Order{ID: "order-1", ItemID: "item-1", BuyerID: "buyer-1", ChargeID: "ch_1", CreatedAt: now},
		Address: domain.ShippingAddress{ID: "addr-1", OrderID: "order-1", PostalCode: "123-4567", PrefectureID: 13},
		Amount:  1000,
	}

	tests := []struct {
		name           string
		method         string
		path           string
		user           string
		body           string
		result         app.PlaceOrderResult
		serviceErr     error
		expectedStatus int
		expectedCode   string
		expectedSubstr string
	}{
		{
			name:           "placed",
			path:           "/items/item-1/orders",
			result:         placed,
			expectedStatus: http.StatusCreated,
			expectedSubstr: `"item_id":"item-1"`,
		},
		{
			name:           "unauthenticated",
			path:           "/items/item-1/orders",
			user:           "-",
			expectedStatus: http.StatusUnauthorized,
			expectedCode:   codeUnauthenticated,
		},
		{
			name:           "wrong method",
			method:         http.MethodGet,
			path:           "/items/item-1/orders",
			expectedStatus: http.StatusMethodNotAllowed,
			expectedCode:   codeMethodNotAllowed,
		},
		{
			name:           "invalid path",
			path:           "/items/item-1",
			expectedStatus: http.StatusNotFound,
			expectedCode:   codeNotFound,
		},
		{
			name:           "unknown field",
			path:           "/items/item-1/orders",
			body:           `{"post_number":"123-4567"}`,
			expectedStatus: http.StatusBadRequest,
			expectedCode:   codeInvalidRequestBody,
		},
		{
			name: "validation failed",
			path: "/items/item-1/orders",
			serviceErr: &domain.ValidationError{Fields: domain.FieldErrors{
				domain.FieldPaymentToken: {Field: domain.FieldPaymentToken, Code: domain.CodeRequired, Message: "enter valid card details"},
			}},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedCode:   codeValidationFailed,
			expectedSubstr: `"payment_token":"enter valid card details"`,
		},
		{
			name:           "item not found",
			path:           "/items/item-1/orders",
			serviceErr:     domain.ErrItemNotFound,
			expectedStatus: http.StatusNotFound,
			expectedCode:   codeItemNotFound,
		},
		{
			name:           "seller buying own item",
			path:           "/items/item-1/orders",
			serviceErr:     domain.ErrForbidden,
			expectedStatus: http.StatusForbidden,
			expectedCode:   codeForbidden,
		},
		{
			name:           "already sold",
			path:           "/items/item-1/orders",
			serviceErr:     domain.ErrAlreadySold,
			expectedStatus: http.StatusConflict,
			expectedCode:   codeAlreadySold,
		},
		{
			name:           "card declined",
			path:           "/items/item-1/orders",
			serviceErr:     &domain.PaymentError{Reason: "card was declined", Cause: errors.New("payjp: status 402 code=card_declined")},
			expectedStatus: http.StatusPaymentRequired,
			expectedCode:   codePaymentFailed,
			expectedSubstr: "card was declined",
		},
		{
			name:           "gateway transient",
			path:           "/items/item-1/orders",
			serviceErr:     &domain.PaymentError{Reason: "transient", Transient: true},
			expectedStatus: http.StatusServiceUnavailable,
			expectedCode:   codePaymentUnavailable,
		},
		{
			name:           "order conflict",
			path:           "/items/item-1/orders",
			serviceErr:     &domain.UncommittedChargeError{ChargeID: "ch_1", Err: domain.ErrOrderConflict},
			expectedStatus: http.StatusConflict,
			expectedCode:   codeOrderConflict,
		},
		{
			name:           "captured but not stored",
			path:           "/items/item-1/orders",
			serviceErr:     &domain.UncommittedChargeError{ChargeID: "ch_1", Err: domain.ErrStoreUnavailable},
			expectedStatus: http.StatusInternalServerError,
			expectedCode:   codeChargePendingReview,
		},
		{
			name:           "store unavailable before charge",
			path:           "/items/item-1/orders",
			serviceErr:     domain.ErrStoreUnavailable,
			expectedStatus: http.StatusServiceUnavailable,
			expectedCode:   codeStoreUnavailable,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			svc := &stubOrderPlacer{result: tt.result, err: tt.serviceErr}

			method := tt.method
			if method == "" {
				method = http.MethodPost
			}
			body := tt.body
			if body == "" {
				body = validOrderBody
			}
			req := httptest.NewRequest(method, tt.path, strings.NewReader(body))
			switch tt.user {
			case "":
				req.Header.Set(UserIDHeader, "buyer-1")
			case "-":
			default:
				req.Header.Set(UserIDHeader, tt.user)
			}
			rec := httptest.NewRecorder()

			RequireUser(HandlePlaceOrder(svc, nil)).ServeHTTP(rec, req)

			if rec.Code != tt.expectedStatus {
				t.Fatalf("expected status %d, got %d (%s)", tt.expectedStatus, rec.Code, rec.Body.String())
			}
			if tt.expectedCode != "" {
				var resp errorResponse
				if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
					t.Fatalf("decode error response: %v", err)
				}
				if resp.Code != tt.expectedCode {
					t.Fatalf("expected code %s, got %s", tt.expectedCode, resp.Code)
				}
			}
			if tt.expectedSubstr != "" && !strings.Contains(rec.Body.String(), tt.expectedSubstr) {
				t.Fatalf("expected response to contain %q, got %q", tt.expectedSubstr, rec.Body.String())
			}
		})
	}
}

func TestHandlePlaceOrder_PassesCheckoutRequest(t *testing.T) {
	t.Parallel()

	svc := &stubOrderPlacer{}
	req := httptest.NewRequest(http.MethodPost, "/items/item-9/orders", strings.NewReader(validOrderBody))
	req.Header.Set(UserIDHeader, "buyer-7")
	rec := httptest.NewRecorder()

	RequireUser(HandlePlaceOrder(svc, nil)).ServeHTTP(rec, req)

	want := domain.CheckoutRequest{
		ItemID:       "item-9",
		BuyerID:      "buyer-7",
		PostalCode:   "123-4567",
		PrefectureID: 13,
		City:         "Shibuya",
		Street:       "1-1-1",
		Building:     "Test Building",
		PhoneNumber:  "09012345678",
		PaymentToken: "tok_test_token",
	}
	if svc.got != want {
		t.Fatalf("expected %+v, got %+v", want, svc.got)
	}
}

func TestHandleGetOrder(t *testing.T) {
	t.Parallel()

	view := app.OrderView{
		Order:   domain.Order{ID: "order-1", ItemID: "item-1", BuyerID: "buyer-1"},
		Address: domain.ShippingAddress{OrderID: "order-1", City: "Shibuya"},
		Item:    domain.Item{ID: "item-1", SellerID: "seller-1", Price: 1000},
	}

	tests := []struct {
		name           string
		err            error
		expectedStatus int
	}{
		{name: "found", expectedStatus: http.StatusOK},
		{name: "not a party", err: domain.ErrNotOrderParty, expectedStatus: http.StatusNotFound},
		{name: "missing", err: domain.ErrOrderNotFound, expectedStatus: http.StatusNotFound},
		{name: "broken store", err: errors.New("boom"), expectedStatus: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			svc := &stubOrderGetter{view: view, err: tt.err}
			req := httptest.NewRequest(http.MethodGet, "/orders/order-1", nil)
			req.Header.Set(UserIDHeader, "buyer-1")
			rec := httptest.NewRecorder()

			RequireUser(HandleGetOrder(svc)).ServeHTTP(rec, req)

			if rec.Code != tt.expectedStatus {
				t.Fatalf("expected status %d, got %d", tt.expectedStatus, rec.Code)
			}
			if tt.err == nil && !strings.Contains(rec.Body.String(), `"amount":1000`) {
				t.Fatalf("expected amount in body, got %q", rec.Body.String())
			}
			if svc.requester != "buyer-1" {
				t.Fatalf("expected requester buyer-1, got %q", svc.requester)
			}
		})
	}
}

func TestHandleCheckoutConfig(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	HandleCheckoutConfig("pk_test_123")(rec, httptest.NewRequest(http.MethodGet, "/checkout/config", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	var resp checkoutConfigResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.PublicKey != "pk_test_123" {
		t.Fatalf("expected public key, got %q", resp.PublicKey)
	}
}

type stubOrderPlacer struct {
	result app.PlaceOrderResult
	err    error
	got    domain.CheckoutRequest
}

func (s *stubOrderPlacer) PlaceOrder(_ context.Context, req domain.CheckoutRequest) (app.PlaceOrderResult, error) {
	s.got = req
	return s.result, s.err
}

type stubOrderGetter struct {
	view      app.OrderView
	err       error
	requester string
}

func (s *stubOrderGetter) GetOrder(_ context.Context, _ string, requesterID string) (app.OrderView, error) {
	s.requester = requesterID
	return s.view, s.err
}
