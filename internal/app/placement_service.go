package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/furima/checkout/internal/clock"
	"github.com/furima/checkout/internal/domain"
)

// ItemReader loads the listing read model. Missing items yield domain.ErrItemNotFound.
type ItemReader interface {
	GetItem(ctx context.Context, itemID string) (domain.Item, error)
}

// OrderStore persists an order and its shipping address as one unit.
// Commit returns domain.ErrOrderConflict when the item already has an order.
type OrderStore interface {
	HasOrderForItem(ctx context.Context, itemID string) (bool, error)
	Commit(ctx context.Context, order domain.Order, addr domain.ShippingAddress) error
}

// PaymentGateway exchanges a client-side card token for a captured charge.
type PaymentGateway interface {
	Charge(ctx context.Context, amount int64, token string) domain.ChargeResult
}

// TokenLedger remembers tokens that already produced a captured charge.
type TokenLedger interface {
	CapturedCharge(ctx context.Context, token string) (chargeID string, found bool, err error)
	RecordCapture(ctx context.Context, token, chargeID string) error
}

// EventPublisher fans placement results out to other systems.
type EventPublisher interface {
	PublishOrderPlaced(ctx context.Context, order domain.Order, amount int64) error
	PublishChargeEscalation(ctx context.Context, escalation *domain.UncommittedChargeError) error
}

const (
	defaultRetryBackoff  = 500 * time.Millisecond
	defaultCommitTimeout = 15 * time.Second
)

type PlacementService struct {
	items         ItemReader
	store         OrderStore
	gateway       PaymentGateway
	clock         clock.Clock
	logger        *slog.Logger
	ledger        TokenLedger
	events        EventPublisher
	retryBackoff  time.Duration
	commitTimeout time.Duration
}

type PlacementServiceOption func(*PlacementService)

// WithRetryBackoff sets the wait before retrying an unavailable gateway.
func WithRetryBackoff(d time.Duration) PlacementServiceOption {
	return func(s *PlacementService) {
		if d >= 0 {
			s.retryBackoff = d
		}
	}
}

// WithCommitTimeout bounds the post-capture commit, which ignores caller cancellation.
func WithCommitTimeout(d time.Duration) PlacementServiceOption {
	return func(s *PlacementService) {
		if d > 0 {
			s.commitTimeout = d
		}
	}
}

func WithLogger(l *slog.Logger) PlacementServiceOption {
	return func(s *PlacementService) {
		if l != nil {
			s.logger = l
		}
	}
}

func WithTokenLedger(l TokenLedger) PlacementServiceOption {
	return func(s *PlacementService) {
		s.ledger = l
	}
}

func WithEventPublisher(p EventPublisher) PlacementServiceOption {
	return func(s *PlacementService) {
		s.events = p
	}
}

func NewPlacementService(items ItemReader, store OrderStore, gateway PaymentGateway, clk clock.Clock, opts ...PlacementServiceOption) *PlacementService {
	svc := &PlacementService{
		items:         items,
		store:         store,
		gateway:       gateway,
		clock:         clk,
		logger:        slog.Default(),
		retryBackoff:  defaultRetryBackoff,
		commitTimeout: defaultCommitTimeout,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

type PlaceOrderResult struct {
	Order   domain.Order
	Address domain.ShippingAddress
	Amount  int64
}

// PlaceOrder runs one checkout attempt to a terminal outcome. The returned
// error classifies the outcome; see domain.OutcomeOf.
func (s *PlacementService) PlaceOrder(ctx context.Context, req domain.CheckoutRequest) (PlaceOrderResult, error) {
	logger := s.logger.With("item_id", req.ItemID, "buyer_id", req.BuyerID)

	item, err := s.items.GetItem(ctx, req.ItemID)
	if err != nil {
		if errors.Is(err, domain.ErrItemNotFound) {
			return PlaceOrderResult{}, domain.ErrItemNotFound
		}
		logger.Error("load item failed", "error", err)
		return PlaceOrderResult{}, fmt.Errorf("load item: %w: %w", domain.ErrStoreUnavailable, err)
	}

	if item.SellerID == req.BuyerID {
		return PlaceOrderResult{}, domain.ErrForbidden
	}

	// The commit's unique constraint decides races; this only avoids needless charges.
	if item.Sold {
		return PlaceOrderResult{}, domain.ErrAlreadySold
	}
	ordered, err := s.store.HasOrderForItem(ctx, item.ID)
	if err != nil {
		logger.Error("availability check failed", "error", err)
		return PlaceOrderResult{}, fmt.Errorf("check availability: %w: %w", domain.ErrStoreUnavailable, err)
	}
	if ordered {
		return PlaceOrderResult{}, domain.ErrAlreadySold
	}

	if fieldErrs := domain.ValidateCheckout(req); fieldErrs != nil {
		return PlaceOrderResult{}, &domain.ValidationError{Fields: fieldErrs}
	}

	if s.tokenAlreadyCaptured(ctx, logger, req.PaymentToken) {
		return PlaceOrderResult{}, &domain.PaymentError{Reason: "payment token already used"}
	}

	chargeID, err := s.charge(ctx, logger, item.Price, req.PaymentToken)
	if err != nil {
		return PlaceOrderResult{}, err
	}
	logger = logger.With("charge_id", chargeID)
	s.recordCapture(ctx, logger, req.PaymentToken, chargeID)

	now := s.clock.Now()
	order := domain.Order{
		ID:        newUUID(),
		ItemID:    item.ID,
		BuyerID:   req.BuyerID,
		ChargeID:  chargeID,
		CreatedAt: now,
	}
	addr := req.ShippingAddress(newUUID(), order.ID)

	// Money has moved; losing the caller must not lose the order.
	commitCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.commitTimeout)
	defer cancel()

	if err := s.store.Commit(commitCtx, order, addr); err != nil {
		cause := domain.ErrStoreUnavailable
		if errors.Is(err, domain.ErrOrderConflict) {
			cause = domain.ErrOrderConflict
		}
		escalation := &domain.UncommittedChargeError{
			ItemID:   item.ID,
			BuyerID:  req.BuyerID,
			ChargeID: chargeID,
			Err:      cause,
		}
		logger.Error("captured charge not committed; manual compensation required",
			"outcome", domain.OutcomeOf(escalation),
			"amount", item.Price,
			"error", err,
		)
		if s.events != nil {
			if perr := s.events.PublishChargeEscalation(commitCtx, escalation); perr != nil {
				logger.Error("publish charge escalation failed", "error", perr)
			}
		}
		return PlaceOrderResult{}, escalation
	}

	logger.Info("order placed", "order_id", order.ID, "amount", item.Price)
	if s.events != nil {
		if err := s.events.PublishOrderPlaced(commitCtx, order, item.Price); err != nil {
			logger.Warn("publish order placed failed", "order_id", order.ID, "error", err)
		}
	}

	return PlaceOrderResult{Order: order, Address: addr, Amount: item.Price}, nil
}

// charge calls the gateway, retrying once after a backoff when it is unavailable.
func (s *PlacementService) charge(ctx context.Context, logger *slog.Logger, amount int64, token string) (string, error) {
	res := s.gateway.Charge(ctx, amount, token)
	if res.Status == domain.ChargeUnavailable {
		logger.Warn("payment gateway unavailable, retrying", "token", domain.MaskToken(token), "error", res.Err)

		timer := time.NewTimer(s.retryBackoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return "", &domain.PaymentError{Reason: "transient", Transient: true, Cause: ctx.Err()}
		case <-timer.C:
		}
		res = s.gateway.Charge(ctx, amount, token)
	}

	switch res.Status {
	case domain.ChargeCaptured:
		return res.ChargeID, nil
	case domain.ChargeRejected:
		logger.Info("payment rejected", "token", domain.MaskToken(token), "reason", res.Reason, "error", res.Err)
		return "", &domain.PaymentError{Reason: res.Reason, Cause: res.Err}
	default:
		logger.Warn("payment gateway unavailable after retry", "token", domain.MaskToken(token), "error", res.Err)
		return "", &domain.PaymentError{Reason: "transient", Transient: true, Cause: res.Err}
	}
}

func (s *PlacementService) tokenAlreadyCaptured(ctx context.Context, logger *slog.Logger, token string) bool {
	if s.ledger == nil {
		return false
	}
	chargeID, found, err := s.ledger.CapturedCharge(ctx, token)
	if err != nil {
		logger.Warn("token ledger lookup failed", "error", err)
		return false
	}
	if found {
		logger.Warn("payment token already captured", "token", domain.MaskToken(token), "charge_id", chargeID)
	}
	return found
}

func (s *PlacementService) recordCapture(ctx context.Context, logger *slog.Logger, token, chargeID string) {
	if s.ledger == nil {
		return
	}
	if err := s.ledger.RecordCapture(context.WithoutCancel(ctx), token, chargeID); err != nil {
		logger.Warn("token ledger record failed", "error", err)
	}
}
