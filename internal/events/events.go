// Package events publishes checkout results to downstream consumers.
package events

import (
	"time"

	"github.com/furima/checkout/internal/domain"
)

const (
	RoutingOrderPlaced      = "order.placed"
	RoutingChargeEscalation = "charge.escalation"
)

type OrderPlaced struct {
	OrderID    string    `json:"order_id"`
	ItemID     string    `json:"item_id"`
	BuyerID    string    `json:"buyer_id"`
	ChargeID   string    `json:"charge_id"`
	Amount     int64     `json:"amount"`
	Currency   string    `json:"currency"`
	OccurredAt time.Time `json:"occurred_at"`
}

// ChargeEscalation asks operators to compensate a captured charge with no order.
type ChargeEscalation struct {
	ItemID     string         `json:"item_id"`
	BuyerID    string         `json:"buyer_id"`
	ChargeID   string         `json:"charge_id"`
	Outcome    domain.Outcome `json:"outcome"`
	Detail     string         `json:"detail"`
	OccurredAt time.Time      `json:"occurred_at"`
}

func newOrderPlaced(order domain.Order, amount int64) OrderPlaced {
	return OrderPlaced{
		OrderID:    order.ID,
		ItemID:     order.ItemID,
		BuyerID:    order.BuyerID,
		ChargeID:   order.ChargeID,
		Amount:     amount,
		Currency:   "jpy",
		OccurredAt: order.CreatedAt,
	}
}

func newChargeEscalation(e *domain.UncommittedChargeError, now time.Time) ChargeEscalation {
	return ChargeEscalation{
		ItemID:     e.ItemID,
		BuyerID:    e.BuyerID,
		ChargeID:   e.ChargeID,
		Outcome:    domain.OutcomeOf(e),
		Detail:     e.Err.Error(),
		OccurredAt: now,
	}
}
