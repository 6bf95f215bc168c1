package events

import (
	"context"
	"log/slog"

	"github.com/furima/checkout/internal/clock"
	"github.com/furima/checkout/internal/domain"
)

// LogPublisher writes events to the structured log when no broker is configured.
type LogPublisher struct {
	logger *slog.Logger
	clock  clock.Clock
}

func NewLogPublisher(logger *slog.Logger, clk clock.Clock) *LogPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogPublisher{logger: logger, clock: clk}
}

func (p *LogPublisher) PublishOrderPlaced(ctx context.Context, order domain.Order, amount int64) error {
	ev := newOrderPlaced(order, amount)
	p.logger.InfoContext(ctx, "event",
		"routing_key", RoutingOrderPlaced,
		"order_id", ev.OrderID,
		"item_id", ev.ItemID,
		"charge_id", ev.ChargeID,
		"amount", ev.Amount,
	)
	return nil
}

func (p *LogPublisher) PublishChargeEscalation(ctx context.Context, e *domain.UncommittedChargeError) error {
	ev := newChargeEscalation(e, p.clock.Now())
	p.logger.ErrorContext(ctx, "event",
		"routing_key", RoutingChargeEscalation,
		"item_id", ev.ItemID,
		"buyer_id", ev.BuyerID,
		"charge_id", ev.ChargeID,
		"outcome", ev.Outcome,
		"detail", ev.Detail,
	)
	return nil
}
