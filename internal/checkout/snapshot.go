package checkout

import (
	"time"

	"github.com/donaldtakou/huguesfront/internal/domain"
)

type CartSnapshotItem struct {
	ProductID   string `json:"product_id"`
	ProductName string `json:"product_name"`
	Quantity    int    `json:"quantity"`
	UnitPrice   int64  `json:"unit_price"`
	Subtotal    int64  `json:"subtotal"`
}

// CartSnapshot is the full cart state frozen at checkout time.
type CartSnapshot struct {
	Items       []CartSnapshotItem `json:"items"`
	TotalAmount int64              `json:"total_amount"`
	Currency    string             `json:"currency"`
	CapturedAt  time.Time          `json:"captured_at"`
}

func SnapshotCart(c *domain.Cart, currency string) CartSnapshot {
	snap := CartSnapshot{
		Items:      make([]CartSnapshotItem, 0, len(c.Items)),
		Currency:   currency,
		CapturedAt: time.Now(),
	}
	for _, item := range c.Items {
		sub := item.Product.Price * int64(item.Quantity)
		snap.Items = append(snap.Items, CartSnapshotItem{
			ProductID:   item.ProductID,
			ProductName: item.Product.Name,
			Quantity:    item.Quantity,
			UnitPrice:   item.Product.Price,
			Subtotal:    sub,
		})
		snap.TotalAmount += sub
	}
	return snap
}
