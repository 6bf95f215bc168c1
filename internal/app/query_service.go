package app

import (
	"context"

	"github.com/furima/checkout/internal/domain"
)

type OrderReader interface {
	GetOrder(ctx context.Context, orderID string) (domain.Order, domain.ShippingAddress, error)
}

// OrderQueryService exposes placed orders to the two parties of the sale.
type OrderQueryService struct {
	orders OrderReader
	items  ItemReader
}

func NewOrderQueryService(orders OrderReader, items ItemReader) *OrderQueryService {
	return &OrderQueryService{
		orders: orders,
		items:  items,
	}
}

type OrderView struct {
	Order   domain.Order
	Address domain.ShippingAddress
	Item    domain.Item
}

// GetOrder returns the order when requesterID is its buyer or the item's seller.
func (s *OrderQueryService) GetOrder(ctx context.Context, orderID, requesterID string) (OrderView, error) {
	order, addr, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		return OrderView{}, err
	}

	item, err := s.items.GetItem(ctx, order.ItemID)
	if err != nil {
		return OrderView{}, err
	}

	if requesterID == "" || (requesterID != order.BuyerID && requesterID != item.SellerID) {
		return OrderView{}, domain.ErrNotOrderParty
	}
	return OrderView{Order: order, Address: addr, Item: item}, nil
}
