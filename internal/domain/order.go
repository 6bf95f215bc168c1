package domain

import "time"

// Order records a completed purchase of a single item. At most one exists per item.
type Order struct {
	ID        string
	ItemID    string
	BuyerID   string
	ChargeID  string
	CreatedAt time.Time
}

// ShippingAddress is created in the same transaction as its Order.
type ShippingAddress struct {
	ID           string
	OrderID      string
	PostalCode   string
	PrefectureID int
	City         string
	Street       string
	Building     string
	PhoneNumber  string
}
