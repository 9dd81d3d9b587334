package domain

import "time"

// Cart is a customer's open shopping cart. One active cart per customer.
type Cart struct {
	ID         string     `json:"id"`
	CustomerID string     `json:"customer_id"`
	Items      []CartItem `json:"items"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// CartItem is one product line in a cart. Name and thumbnail are captured
// when the item is added so checkout can snapshot them onto order lines.
type CartItem struct {
	ProductID        string `json:"product_id"`
	Quantity         int    `json:"quantity"`
	ProductName      string `json:"product_name"`
	ProductThumbnail string `json:"product_thumbnail,omitempty"`
}

// Empty reports whether the cart has no items.
func (c *Cart) Empty() bool {
	return len(c.Items) == 0
}
