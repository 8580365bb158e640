package models

// PaymentRequest is handed to a gateway adapter, amounts are in major currency units
type PaymentRequest struct {
	OrderID       string  `json:"orderId"`
	Amount        float64 `json:"amount"`
	CustomerEmail string  `json:"customerEmail"`
	CustomerName  string  `json:"customerName"`
	CustomerPhone string  `json:"customerPhone,omitempty"`
}

// PaymentResult is the normalized outcome of a gateway call
type PaymentResult struct {
	Success         bool           `json:"success"`
	Gateway         string         `json:"gateway"`
	OrderID         string         `json:"orderId,omitempty"`
	PaymentIntentID string         `json:"paymentIntentId,omitempty"`
	PaymentID       string         `json:"paymentId,omitempty"`
	Amount          float64        `json:"amount"`
	Currency        string         `json:"currency"`
	Status          string         `json:"status,omitempty"`
	Extra           map[string]any `json:"extra,omitempty"`
}

// VerifyPaymentRequest carries gateway-specific proof of payment
type VerifyPaymentRequest struct {
	Gateway     string       `json:"gateway" binding:"required"`
	PaymentData PaymentProof `json:"paymentData"`
}

// PaymentProof holds whichever fields the selected gateway needs
type PaymentProof struct {
	RazorpayOrderID   string `json:"razorpay_order_id,omitempty"`
	RazorpayPaymentID string `json:"razorpay_payment_id,omitempty"`
	RazorpaySignature string `json:"razorpay_signature,omitempty"`
	PaymentIntentID   string `json:"paymentIntentId,omitempty"`
}

// CashfreeOrderRequest is the body of POST /api/payment/create-order
type CashfreeOrderRequest struct {
	OrderID       string  `json:"orderId"`
	OrderAmount   float64 `json:"orderAmount"`
	OrderCurrency string  `json:"orderCurrency"`
	CustomerID    string  `json:"customerId"`
	CustomerName  string  `json:"customerName"`
	CustomerEmail string  `json:"customerEmail"`
	CustomerPhone string  `json:"customerPhone"`
	ReturnURL     string  `json:"returnUrl"`
	NotifyURL     string  `json:"notifyUrl"`
	OrderNote     string  `json:"orderNote"`
}
