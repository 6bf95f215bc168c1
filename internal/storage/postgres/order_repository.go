package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/furima/checkout/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type OrderRepository struct {
	pool *pgxpool.Pool
}

func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

func (r *OrderRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, r.pool, fn)
}

func (r *OrderRepository) HasOrderForItem(ctx context.Context, itemID string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM orders WHERE item_id = $1)`

	var exists bool
	if err := queryRow(ctx, r.pool, query, itemID).Scan(&exists); err != nil {
		if isInvalidUUID(err) {
			return false, nil
		}
		return false, fmt.Errorf("check order for item: %w", err)
	}
	return exists, nil
}

// Commit writes the order and its shipping address in one transaction.
// The unique constraint on orders.item_id decides concurrent purchases.
func (r *OrderRepository) Commit(ctx context.Context, order domain.Order, addr domain.ShippingAddress) error {
	return r.WithTx(ctx, func(txCtx context.Context) error {
		if err := r.createOrder(txCtx, order); err != nil {
			return err
		}
		return r.createShippingAddress(txCtx, addr)
	})
}

func (r *OrderRepository) createOrder(ctx context.Context, order domain.Order) error {
	const stmt = `
INSERT INTO orders (id, item_id, buyer_id, charge_id, created_at)
VALUES ($1, $2, $3, $4, $5)`

	_, err := exec(ctx, r.pool, stmt, order.ID, order.ItemID, order.BuyerID, order.ChargeID, order.CreatedAt)
	if err != nil {
		if isUniqueViolation(err, constraintOrdersItemID) {
			return domain.ErrOrderConflict
		}
		return fmt.Errorf("create order: %w: %w", domain.ErrStoreUnavailable, err)
	}
	return nil
}

func (r *OrderRepository) createShippingAddress(ctx context.Context, addr domain.ShippingAddress) error {
	const stmt = `
INSERT INTO shipping_addresses (id, order_id, postal_code, prefecture_id, city, street, building, phone_number)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := exec(ctx, r.pool, stmt,
		addr.ID,
		addr.OrderID,
		addr.PostalCode,
		addr.PrefectureID,
		addr.City,
		addr.Street,
		addr.Building,
		addr.PhoneNumber,
	)
	if err != nil {
		return fmt.Errorf("create shipping address: %w: %w", domain.ErrStoreUnavailable, err)
	}
	return nil
}

func (r *OrderRepository) GetOrder(ctx context.Context, orderID string) (domain.Order, domain.ShippingAddress, error) {
	const query = `
SELECT o.id, o.item_id, o.buyer_id, o.charge_id, o.created_at,
       a.id, a.order_id, a.postal_code, a.prefecture_id, a.city, a.street, a.building, a.phone_number
FROM orders o
JOIN shipping_addresses a ON a.order_id = o.id
WHERE o.id = $1`

	var o domain.Order
	var a domain.ShippingAddress
	err := queryRow(ctx, r.pool, query, orderID).Scan(
		&o.ID, &o.ItemID, &o.BuyerID, &o.ChargeID, &o.CreatedAt,
		&a.ID, &a.OrderID, &a.PostalCode, &a.PrefectureID, &a.City, &a.Street, &a.Building, &a.PhoneNumber,
	)
	if err != nil {
		if isInvalidUUID(err) || errors.Is(err, pgx.ErrNoRows) {
			return domain.Order{}, domain.ShippingAddress{}, domain.ErrOrderNotFound
		}
		return domain.Order{}, domain.ShippingAddress{}, fmt.Errorf("get order: %w", err)
	}
	return o, a, nil
}
