package domain

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	StatusCreated  OrderStatus = "created"
	StatusPaid     OrderStatus = "paid"
	StatusFailed   OrderStatus = "failed"
	StatusRefunded OrderStatus = "refunded"
)

func (s OrderStatus) Valid() bool {
	switch s {
	case StatusCreated, StatusPaid, StatusFailed, StatusRefunded:
		return true
	}
	return false
}

type OrderItem struct {
	ProductID string          `json:"productId"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

func (i OrderItem) Subtotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Order is the customer-facing projection returned by GET /orders/:id.
type Order struct {
	OrderID    string          `json:"orderId"`
	Status     OrderStatus     `json:"status"`
	Total      decimal.Decimal `json:"total"`
	Items      []OrderItem     `json:"items"`
	CreatedAt  time.Time       `json:"createdAt"`
	RefundedAt *time.Time      `json:"refundedAt,omitempty"`
}

// OrderSummary is one row of the admin order list.
type OrderSummary struct {
	ID        string          `json:"_id"`
	Total     decimal.Decimal `json:"total"`
	Status    OrderStatus     `json:"status"`
	CreatedAt time.Time       `json:"createdAt"`
}

// ShortID is the trailing eight characters shown in admin screens.
func (o OrderSummary) ShortID() string { return shortID(o.ID) }

// ProductRef accepts either a bare product id or a populated product object.
type ProductRef struct {
	ID    string `json:"_id"`
	Name  string `json:"name,omitempty"`
	Image string `json:"image,omitempty"`
}

func (r *ProductRef) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*r = ProductRef{}
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var id string
		if err := json.Unmarshal(b, &id); err != nil {
			return err
		}
		*r = ProductRef{ID: id}
		return nil
	}
	type plain ProductRef
	var p plain
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	*r = ProductRef(p)
	return nil
}

type AdminOrderItem struct {
	Product  ProductRef      `json:"productId"`
	Name     string          `json:"name"`
	Quantity int             `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
}

func (i AdminOrderItem) Subtotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

type CardSummary struct {
	CardLast4  string `json:"cardLast4"`
	CardHolder string `json:"cardHolder"`
}

// OrderDetail is the full admin view of an order.
type OrderDetail struct {
	ID              string           `json:"_id"`
	Items           []AdminOrderItem `json:"items"`
	Total           decimal.Decimal  `json:"total"`
	Status          OrderStatus      `json:"status"`
	PaymentDetails  CardSummary      `json:"paymentDetails"`
	PaymentIntentID string           `json:"paymentIntentId,omitempty"`
	CreatedAt       time.Time        `json:"createdAt"`
	RefundedAt      *time.Time       `json:"refundedAt,omitempty"`
}

func (o OrderDetail) ShortID() string { return shortID(o.ID) }

// Refundable reports whether the refund action may be offered.
func (o OrderDetail) Refundable() bool { return o.Status == StatusPaid }

func shortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[len(id)-8:]
}
