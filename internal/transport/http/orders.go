package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/furima/checkout/internal/app"
	"github.com/furima/checkout/internal/domain"
)

// OrderPlacer is the minimal interface needed to place an order.
type OrderPlacer interface {
	PlaceOrder(ctx context.Context, req domain.CheckoutRequest) (app.PlaceOrderResult, error)
}

// OrderGetter is the minimal interface needed to read an order.
type OrderGetter interface {
	GetOrder(ctx context.Context, orderID, requesterID string) (app.OrderView, error)
}

// HandlePlaceOrder returns an HTTP handler for POST /items/{itemID}/orders.
// The buyer is the authenticated user; see RequireUser.
func HandlePlaceOrder(svc OrderPlacer, logger *slog.Logger) http.HandlerFunc {
	if logger == nil {
		logger = slog.Default()
	}
	return func(w http.ResponseWriter, r *http.Request) {
		itemID, ok := parseItemOrdersPath(r.URL.Path)
		if !ok {
			writeError(w, http.StatusNotFound, codeNotFound, "not found")
			return
		}
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}

		var body placeOrderRequest
		dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 16<<10))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}

		res, err := svc.PlaceOrder(r.Context(), body.toCheckout(itemID, userFromContext(r.Context())))
		if err != nil {
			writePlacementError(w, r, logger, err)
			return
		}

		writeJSON(w, http.StatusCreated, newOrderResponse(res.Order, res.Address))
	}
}

// HandleGetOrder returns an HTTP handler for GET /orders/{orderID}.
func HandleGetOrder(svc OrderGetter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, ok := parseOrderPath(r.URL.Path)
		if !ok {
			writeError(w, http.StatusNotFound, codeNotFound, "not found")
			return
		}
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}

		view, err := svc.GetOrder(r.Context(), orderID, userFromContext(r.Context()))
		if err != nil {
			switch {
			case errors.Is(err, domain.ErrOrderNotFound), errors.Is(err, domain.ErrItemNotFound):
				writeError(w, http.StatusNotFound, codeOrderNotFound, domain.ErrOrderNotFound.Error())
			case errors.Is(err, domain.ErrNotOrderParty):
				// Indistinguishable from a missing order to outsiders.
				writeError(w, http.StatusNotFound, codeOrderNotFound, domain.ErrOrderNotFound.Error())
			default:
				writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
			}
			return
		}

		resp := newOrderResponse(view.Order, view.Address)
		resp.Amount = view.Item.Price
		writeJSON(w, http.StatusOK, resp)
	}
}

func writePlacementError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	var (
		validationErr  *domain.ValidationError
		paymentErr     *domain.PaymentError
		uncommittedErr *domain.UncommittedChargeError
	)
	switch {
	case errors.As(err, &validationErr):
		fields := make(map[string]string, len(validationErr.Fields))
		for name, fe := range validationErr.Fields {
			fields[name] = fe.Message
		}
		writeErrorResponse(w, http.StatusUnprocessableEntity, errorResponse{
			Error:  "checkout form has errors",
			Code:   codeValidationFailed,
			Fields: fields,
		})
	case errors.Is(err, domain.ErrItemNotFound):
		writeError(w, http.StatusNotFound, codeItemNotFound, err.Error())
	case errors.Is(err, domain.ErrForbidden):
		writeError(w, http.StatusForbidden, codeForbidden, err.Error())
	case errors.Is(err, domain.ErrAlreadySold):
		writeError(w, http.StatusConflict, codeAlreadySold, err.Error())
	case errors.As(err, &paymentErr):
		if paymentErr.Transient {
			writeError(w, http.StatusServiceUnavailable, codePaymentUnavailable, "payment service is temporarily unavailable; please try again")
			return
		}
		writeError(w, http.StatusPaymentRequired, codePaymentFailed, "payment failed: "+paymentErr.Reason)
	case errors.As(err, &uncommittedErr):
		// Resubmitting would charge again; the buyer must wait for support.
		if errors.Is(err, domain.ErrOrderConflict) {
			writeError(w, http.StatusConflict, codeOrderConflict, "item was purchased by someone else; your payment will be reviewed")
			return
		}
		writeError(w, http.StatusInternalServerError, codeChargePendingReview, "your payment was received but the order could not be recorded; it will be reviewed")
	case errors.Is(err, domain.ErrStoreUnavailable):
		writeError(w, http.StatusServiceUnavailable, codeStoreUnavailable, "service temporarily unavailable; please try again")
	default:
		logger.ErrorContext(r.Context(), "unexpected placement error", "error", err)
		writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
	}
}

type placeOrderRequest struct {
	PostalCode   string `json:"postal_code"`
	PrefectureID int    `json:"prefecture_id"`
	City         string `json:"city"`
	Street       string `json:"street"`
	Building     string `json:"building"`
	PhoneNumber  string `json:"phone_number"`
	PaymentToken string `json:"payment_token"`
}

func (b placeOrderRequest) toCheckout(itemID, buyerID string) domain.CheckoutRequest {
	return domain.CheckoutRequest{
		ItemID:       itemID,
		BuyerID:      buyerID,
		PostalCode:   b.PostalCode,
		PrefectureID: b.PrefectureID,
		City:         b.City,
		Street:       b.Street,
		Building:     b.Building,
		PhoneNumber:  b.PhoneNumber,
		PaymentToken: b.PaymentToken,
	}
}

type shippingAddressResponse struct {
	PostalCode   string `json:"postal_code"`
	PrefectureID int    `json:"prefecture_id"`
	City         string `json:"city"`
	Street       string `json:"street"`
	Building     string `json:"building,omitempty"`
	PhoneNumber  string `json:"phone_number"`
}

type orderResponse struct {
	ID              string                  `json:"id"`
	ItemID          string                  `json:"item_id"`
	BuyerID         string                  `json:"buyer_id"`
	Amount          int64                   `json:"amount,omitempty"`
	CreatedAt       time.Time               `json:"created_at"`
	ShippingAddress shippingAddressResponse `json:"shipping_address"`
}

func newOrderResponse(o domain.Order, a domain.ShippingAddress) orderResponse {
	return orderResponse{
		ID:        o.ID,
		ItemID:    o.ItemID,
		BuyerID:   o.BuyerID,
		CreatedAt: o.CreatedAt,
		ShippingAddress: shippingAddressResponse{
			PostalCode:   a.PostalCode,
			PrefectureID: a.PrefectureID,
			City:         a.City,
			Street:       a.Street,
			Building:     a.Building,
			PhoneNumber:  a.PhoneNumber,
		},
	}
}

func parseItemOrdersPath(path string) (string, bool) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) != 3 {
		return "", false
	}
	if parts[0] != "items" || parts[2] != "orders" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

func parseOrderPath(path string) (string, bool) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) != 2 || parts[0] != "orders" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}
