package domain

import "github.com/shopspring/decimal"

type CheckoutItem struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

// PaymentPayload is the normalized card data sent to the order service.
type PaymentPayload struct {
	CardNumber string `json:"cardNumber"`
	Expiry     string `json:"expiry"`
	CVV        string `json:"cvv"`
	CardHolder string `json:"cardHolder"`
}

// Last4 returns the trailing four digits of the card number, for logs and receipts.
func (p PaymentPayload) Last4() string {
	if len(p.CardNumber) < 4 {
		return p.CardNumber
	}
	return p.CardNumber[len(p.CardNumber)-4:]
}

type CheckoutRequest struct {
	Items   []CheckoutItem `json:"items"`
	Payment PaymentPayload `json:"payment"`
}

type CheckoutResponse struct {
	OrderID string          `json:"orderId"`
	Status  OrderStatus     `json:"status"`
	Total   decimal.Decimal `json:"total"`
	Message string          `json:"message,omitempty"`
}

func (r CheckoutResponse) Paid() bool { return r.Status == StatusPaid }
