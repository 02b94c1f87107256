package model

import "time"

// Cart is the pre-order staging area identified by the cart cookie.
type Cart struct {
	ID        string
	UserID    *string
	Items     []CartItem
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CartItem carries the unit price captured when the item was added.
type CartItem struct {
	ID        string
	CartID    string
	ProductID string
	VariantID *string
	Quantity  int
	UnitPrice int64
	Title     string
	CreatedAt time.Time
}

func (i CartItem) LineTotal() int64 { return i.UnitPrice * int64(i.Quantity) }

func (c *Cart) Total() int64 {
	var sum int64
	for _, it := range c.Items {
		sum += it.LineTotal()
	}
	return sum
}

func (c *Cart) IsEmpty() bool { return c == nil || len(c.Items) == 0 }
