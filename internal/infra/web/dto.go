package web

import (
	"time"

	"comics-commerce/internal/domain/model"
	"comics-commerce/internal/usecase"
)

// Amounts are integer minor units (kopecks) throughout the API.

// ===== Requests =====

type addItemRequest struct {
	ProductID string  `json:"product_id" validate:"required,max=64"`
	VariantID *string `json:"variant_id,omitempty" validate:"omitempty,max=64"`
	Quantity  int     `json:"quantity" validate:"required,gt=0,lte=999"`
}

type updateItemRequest struct {
	Quantity *int `json:"quantity" validate:"required,gte=0,lte=999"`
}

type checkoutRequest struct {
	ShippingAddress string `json:"shipping_address" validate:"max=500"`
	Comment         string `json:"comment" validate:"max=1000"`
}

type subscribeRequest struct {
	PlanID string `json:"plan_id" validate:"required,max=64"`
}

type topUpRequest struct {
	Amount    int64  `json:"amount" validate:"required,gt=0"`
	ReturnURL string `json:"return_url,omitempty" validate:"omitempty,url,max=2048"`
}

// ===== Responses =====

type cartItemResponse struct {
	ID        string  `json:"id"`
	ProductID string  `json:"product_id"`
	VariantID *string `json:"variant_id,omitempty"`
	Title     string  `json:"title"`
	Quantity  int     `json:"quantity"`
	UnitPrice int64   `json:"unit_price"`
	LineTotal int64   `json:"line_total"`
}

type cartResponse struct {
	ID    string             `json:"id,omitempty"`
	Items []cartItemResponse `json:"items"`
	Total int64              `json:"total"`
}

func toCartResponse(c *model.Cart) cartResponse {
	resp := cartResponse{Items: []cartItemResponse{}}
	if c == nil {
		return resp
	}
	resp.ID = c.ID
	resp.Total = c.Total()
	for _, it := range c.Items {
		resp.Items = append(resp.Items, cartItemResponse{
			ID:        it.ID,
			ProductID: it.ProductID,
			VariantID: it.VariantID,
			Title:     it.Title,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
			LineTotal: it.LineTotal(),
		})
	}
	return resp
}

type orderItemResponse struct {
	ProductID string  `json:"product_id"`
	VariantID *string `json:"variant_id,omitempty"`
	Title     string  `json:"title"`
	Quantity  int     `json:"quantity"`
	UnitPrice int64   `json:"unit_price"`
	LineTotal int64   `json:"line_total"`
}

type orderStatusResponse struct {
	Status    string    `json:"status"`
	Note      string    `json:"note,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type orderResponse struct {
	ID              string                `json:"id"`
	Number          string                `json:"number"`
	Status          string                `json:"status"`
	PaymentStatus   string                `json:"payment_status"`
	ShippingStatus  string                `json:"shipping_status"`
	Items           []orderItemResponse   `json:"items"`
	Subtotal        int64                 `json:"subtotal"`
	Discount        int64                 `json:"discount"`
	ShippingCost    int64                 `json:"shipping_cost"`
	FinalAmount     int64                 `json:"final_amount"`
	Currency        string                `json:"currency"`
	ShippingAddress string                `json:"shipping_address,omitempty"`
	Comment         string                `json:"comment,omitempty"`
	History         []orderStatusResponse `json:"history,omitempty"`
	CreatedAt       time.Time             `json:"created_at"`
}

func toOrderResponse(o *model.Order) orderResponse {
	resp := orderResponse{
		ID:              o.ID,
		Number:          o.Number,
		Status:          string(o.Status),
		PaymentStatus:   string(o.PaymentStatus),
		ShippingStatus:  string(o.ShippingStatus),
		Items:           make([]orderItemResponse, 0, len(o.Items)),
		Subtotal:        o.Subtotal,
		Discount:        o.Discount,
		ShippingCost:    o.ShippingCost,
		FinalAmount:     o.FinalAmount,
		Currency:        o.Currency,
		ShippingAddress: o.ShippingAddress,
		Comment:         o.Comment,
		CreatedAt:       o.CreatedAt,
	}
	for _, it := range o.Items {
		resp.Items = append(resp.Items, orderItemResponse{
			ProductID: it.ProductID,
			VariantID: it.VariantID,
			Title:     it.Title,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
			LineTotal: it.LineTotal,
		})
	}
	for _, h := range o.History {
		resp.History = append(resp.History, orderStatusResponse{Status: string(h.Status), Note: h.Note, CreatedAt: h.CreatedAt})
	}
	return resp
}

type planResponse struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	DurationDays int    `json:"duration_days"`
	Price        int64  `json:"price"`
}

func toPlanResponse(p *model.SubscriptionPlan) planResponse {
	return planResponse{ID: p.ID, Name: p.Name, DurationDays: p.DurationDays, Price: p.Price}
}

type subscriptionResponse struct {
	ID      string    `json:"id"`
	PlanID  string    `json:"plan_id"`
	Price   int64     `json:"price"`
	Status  string    `json:"status"`
	StartAt time.Time `json:"start_at"`
	EndAt   time.Time `json:"end_at"`
}

func toSubscriptionResponse(s *model.UserSubscription) subscriptionResponse {
	return subscriptionResponse{
		ID:      s.ID,
		PlanID:  s.PlanID,
		Price:   s.Price,
		Status:  string(s.Status),
		StartAt: s.StartAt,
		EndAt:   s.EndAt,
	}
}

type transactionResponse struct {
	ID             string    `json:"id"`
	Type           string    `json:"type"`
	Amount         int64     `json:"amount"`
	BalanceAfter   int64     `json:"balance_after"`
	Status         string    `json:"status"`
	Description    string    `json:"description,omitempty"`
	PaymentID      *string   `json:"payment_id,omitempty"`
	OrderID        *string   `json:"order_id,omitempty"`
	SubscriptionID *string   `json:"subscription_id,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

type balanceResponse struct {
	Balance  int64                 `json:"balance"`
	Currency string                `json:"currency"`
	History  []transactionResponse `json:"history"`
	Total    int                   `json:"total"`
	Limit    int                   `json:"limit"`
	Offset   int                   `json:"offset"`
}

func toBalanceResponse(ov *usecase.BalanceOverview, limit, offset int) balanceResponse {
	resp := balanceResponse{
		Balance:  ov.Balance,
		Currency: ov.Currency,
		History:  make([]transactionResponse, 0, len(ov.History)),
		Total:    ov.Total,
		Limit:    limit,
		Offset:   offset,
	}
	for _, t := range ov.History {
		resp.History = append(resp.History, transactionResponse{
			ID:             t.ID,
			Type:           string(t.Type),
			Amount:         t.Amount,
			BalanceAfter:   t.BalanceAfter,
			Status:         string(t.Status),
			Description:    t.Description,
			PaymentID:      t.PaymentID,
			OrderID:        t.OrderID,
			SubscriptionID: t.SubscriptionID,
			CreatedAt:      t.CreatedAt,
		})
	}
	return resp
}

type paymentResponse struct {
	ID              string     `json:"id"`
	Status          string     `json:"status"`
	Amount          int64      `json:"amount"`
	Currency        string     `json:"currency"`
	Method          string     `json:"method,omitempty"`
	ConfirmationURL string     `json:"confirmation_url,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	PaidAt          *time.Time `json:"paid_at,omitempty"`
}

func toPaymentResponse(p *model.Payment) paymentResponse {
	resp := paymentResponse{
		ID:        p.ID,
		Status:    string(p.Status),
		Amount:    p.Amount,
		Currency:  p.Currency,
		CreatedAt: p.CreatedAt,
		PaidAt:    p.PaidAt,
	}
	if p.Method != model.PaymentMethodUnknown {
		resp.Method = string(p.Method)
	}
	// The confirmation link is only useful while the payer can still act on it.
	if p.Status == model.PaymentStatusPending {
		resp.ConfirmationURL = p.ConfirmationURL
	}
	return resp
}
