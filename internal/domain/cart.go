package domain

import "time"

type Cart struct {
	ID        string         `bson:"_id,omitempty" json:"id,omitempty"`
	UserID    string         `bson:"user_id" json:"user_id"`
	Items     []CartLineItem `bson:"items" json:"items"`
	CreatedAt time.Time      `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time      `bson:"updated_at" json:"updated_at"`
}

// CartLineItem holds a product snapshot taken at add time. Later price
// changes on the live product never affect an existing line.
type CartLineItem struct {
	ProductID string          `bson:"product_id" json:"product_id"`
	Product   ProductSnapshot `bson:"product" json:"product"`
	Quantity  int             `bson:"quantity" json:"quantity"`
	AddedAt   time.Time       `bson:"added_at" json:"added_at"`
}

// TotalItems sums quantities across all lines. 0 for an empty cart.
func (c *Cart) TotalItems() int {
	total := 0
	for _, item := range c.Items {
		total += item.Quantity
	}
	return total
}

// TotalPrice sums snapshot price * quantity in minor units.
func (c *Cart) TotalPrice() int64 {
	var total int64
	for _, item := range c.Items {
		total += item.Product.Price * int64(item.Quantity)
	}
	return total
}

// ItemQuantity returns the line quantity for productID, 0 when absent.
func (c *Cart) ItemQuantity(productID string) int {
	for _, item := range c.Items {
		if item.ProductID == productID {
			return item.Quantity
		}
	}
	return 0
}

func (c *Cart) IsEmpty() bool {
	return len(c.Items) == 0
}
