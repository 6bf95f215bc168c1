package domain

const (
	MinItemPrice = 300
	MaxItemPrice = 9_999_999
)

// Item is the read model owned by the listing flow.
type Item struct {
	ID       string
	SellerID string
	Price    int64
	Sold     bool
}
