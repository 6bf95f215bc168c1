package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/furima/checkout/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ItemRepository reads the listing flow's items table. An item is sold once
// an order references it.
type ItemRepository struct {
	pool *pgxpool.Pool
}

func NewItemRepository(pool *pgxpool.Pool) *ItemRepository {
	return &ItemRepository{pool: pool}
}

func (r *ItemRepository) GetItem(ctx context.Context, itemID string) (domain.Item, error) {
	const query = `
SELECT i.id, i.seller_id, i.price, EXISTS (SELECT 1 FROM orders o WHERE o.item_id = i.id)
FROM items i
WHERE i.id = $1`

	var item domain.Item
	err := queryRow(ctx, r.pool, query, itemID).Scan(&item.ID, &item.SellerID, &item.Price, &item.Sold)
	if err != nil {
		if isInvalidUUID(err) || errors.Is(err, pgx.ErrNoRows) {
			return domain.Item{}, domain.ErrItemNotFound
		}
		return domain.Item{}, fmt.Errorf("get item: %w", err)
	}
	return item, nil
}
