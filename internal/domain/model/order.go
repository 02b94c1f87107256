package model

import (
	"fmt"
	"strings"
	"time"

	"comics-commerce/internal/domain"

	"github.com/oklog/ulid/v2"
)

type OrderStatus string

const (
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusShipped   OrderStatus = "shipped"
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusCancelled OrderStatus = "cancelled"
)

func ParseOrderStatus(s string) (OrderStatus, error) {
	switch OrderStatus(s) {
	case OrderStatusConfirmed, OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled:
		return OrderStatus(s), nil
	}
	return "", fmt.Errorf("order status %q: %w", s, domain.ErrUnknownStatus)
}

type OrderPaymentStatus string

const (
	OrderPaymentPaid     OrderPaymentStatus = "paid"
	OrderPaymentRefunded OrderPaymentStatus = "refunded"
)

func ParseOrderPaymentStatus(s string) (OrderPaymentStatus, error) {
	switch OrderPaymentStatus(s) {
	case OrderPaymentPaid, OrderPaymentRefunded:
		return OrderPaymentStatus(s), nil
	}
	return "", fmt.Errorf("order payment status %q: %w", s, domain.ErrUnknownStatus)
}

type ShippingStatus string

const (
	ShippingPending   ShippingStatus = "pending"
	ShippingInTransit ShippingStatus = "in_transit"
	ShippingDelivered ShippingStatus = "delivered"
)

func ParseShippingStatus(s string) (ShippingStatus, error) {
	switch ShippingStatus(s) {
	case ShippingPending, ShippingInTransit, ShippingDelivered:
		return ShippingStatus(s), nil
	}
	return "", fmt.Errorf("shipping status %q: %w", s, domain.ErrUnknownStatus)
}

// OrderItem is a frozen copy of a cart line.
type OrderItem struct {
	ID        string
	OrderID   string
	ProductID string
	VariantID *string
	Title     string
	Quantity  int
	UnitPrice int64
	LineTotal int64
}

type OrderStatusEntry struct {
	Status    OrderStatus
	Note      string
	CreatedAt time.Time
}

type Order struct {
	ID              string
	Number          string // ULID, shown to customers
	UserID          string
	Items           []OrderItem
	Subtotal        int64
	Discount        int64
	ShippingCost    int64
	FinalAmount     int64
	Currency        string
	Status          OrderStatus
	PaymentStatus   OrderPaymentStatus
	ShippingStatus  ShippingStatus
	ShippingAddress string
	Comment         string
	History         []OrderStatusEntry
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// NewOrderFromCart snapshots cart lines. FinalAmount = Subtotal - Discount + ShippingCost.
func NewOrderFromCart(id, userID string, items []CartItem, discount, shipping int64, currency string) (*Order, error) {
	if id == "" || userID == "" || len(items) == 0 || discount < 0 || shipping < 0 {
		return nil, domain.ErrInvalidArgument
	}
	now := time.Now()
	o := &Order{
		ID:             id,
		Number:         strings.ToUpper(ulid.Make().String()),
		UserID:         userID,
		Discount:       discount,
		ShippingCost:   shipping,
		Currency:       currency,
		Status:         OrderStatusConfirmed,
		PaymentStatus:  OrderPaymentPaid,
		ShippingStatus: ShippingPending,
		History:        []OrderStatusEntry{{Status: OrderStatusConfirmed, Note: "paid from balance", CreatedAt: now}},
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	for i, it := range items {
		if it.Quantity <= 0 || it.UnitPrice < 0 {
			return nil, domain.ErrInvalidArgument
		}
		line := it.LineTotal()
		o.Items = append(o.Items, OrderItem{
			ID:        fmt.Sprintf("%s-%d", id, i+1),
			OrderID:   id,
			ProductID: it.ProductID,
			VariantID: it.VariantID,
			Title:     it.Title,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
			LineTotal: line,
		})
		o.Subtotal += line
	}
	if discount > o.Subtotal {
		o.Discount = o.Subtotal
	}
	o.FinalAmount = o.Subtotal - o.Discount + o.ShippingCost
	return o, nil
}
