package models

import "encoding/json"

// WebhookEvent is a verified Cashfree payment notification
type WebhookEvent struct {
	Type      string      `json:"type"`
	EventTime string      `json:"event_time"`
	Data      WebhookData `json:"data"`
}

type WebhookData struct {
	Order           WebhookOrder    `json:"order"`
	Payment         WebhookPayment  `json:"payment"`
	CustomerDetails json.RawMessage `json:"customer_details,omitempty"`
}

type WebhookOrder struct {
	OrderID       string  `json:"order_id"`
	OrderAmount   float64 `json:"order_amount"`
	OrderCurrency string  `json:"order_currency"`
}

type WebhookPayment struct {
	CFPaymentID    json.Number `json:"cf_payment_id"`
	PaymentStatus  string      `json:"payment_status"`
	PaymentAmount  float64     `json:"payment_amount"`
	PaymentMessage string      `json:"payment_message"`
	PaymentTime    string      `json:"payment_time"`
}

// StatusEvent is what the webhook handlers emit for the order persistence collaborator
type StatusEvent struct {
	EventID   string  `json:"eventId"`
	OrderID   string  `json:"orderId"`
	Status    string  `json:"status"`
	PaymentID string  `json:"paymentId,omitempty"`
	Amount    float64 `json:"amount"`
	Currency  string  `json:"currency,omitempty"`
	Message   string  `json:"message,omitempty"`
	Source    string  `json:"source"`
	Timestamp string  `json:"timestamp"`
}
