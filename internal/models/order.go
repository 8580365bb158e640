package models

import "time"

// PaymentMethod is how the customer pays for an order
type PaymentMethod string

const (
	PaymentMethodRazorpay PaymentMethod = "razorpay"
	PaymentMethodStripe   PaymentMethod = "stripe"
	PaymentMethodCOD      PaymentMethod = "cod"
)

// OrderStatus constants
const (
	OrderStatusPending   = "pending"
	OrderStatusPaid      = "paid"
	OrderStatusFailed    = "failed"
	OrderStatusCancelled = "cancelled"
)

// OrderItem represents an item in an order
type OrderItem struct {
	Name     string  `json:"name" binding:"required"`
	Quantity int     `json:"quantity" binding:"required,gte=1"`
	Price    float64 `json:"price" binding:"gte=0"`
	Image    string  `json:"image,omitempty"`
}

// Address is the shipping destination of an order
type Address struct {
	FullName string `json:"fullName" binding:"required"`
	Address  string `json:"address" binding:"required"`
	City     string `json:"city" binding:"required"`
	State    string `json:"state" binding:"required"`
	Pincode  string `json:"pincode" binding:"required,len=6,numeric"`
	Mobile   string `json:"mobile" binding:"required,len=10,numeric"`
}

// Order is constructed per request and returned to the caller, it is never stored here
type Order struct {
	ID                string        `json:"id"`
	CustomerEmail     string        `json:"customerEmail"`
	CustomerName      string        `json:"customerName"`
	CustomerPhone     string        `json:"customerPhone,omitempty"`
	TotalAmount       float64       `json:"totalAmount"`
	Items             []OrderItem   `json:"items"`
	ShippingAddress   *Address      `json:"shippingAddress,omitempty"`
	PaymentMethod     PaymentMethod `json:"paymentMethod"`
	Status            string        `json:"status"`
	EstimatedDelivery string        `json:"estimatedDelivery"`
	TrackingNumber    string        `json:"trackingNumber"`
	CreatedAt         time.Time     `json:"createdAt"`
}

// CreateOrderRequest represents the request to create a new order
type CreateOrderRequest struct {
	CustomerEmail   string        `json:"customerEmail" binding:"required,email"`
	CustomerName    string        `json:"customerName"`
	CustomerPhone   string        `json:"customerPhone,omitempty"`
	TotalAmount     float64       `json:"totalAmount" binding:"required,gt=0"`
	Items           []OrderItem   `json:"items" binding:"required,min=1,dive"`
	ShippingAddress *Address      `json:"shippingAddress,omitempty"`
	PaymentMethod   PaymentMethod `json:"paymentMethod" binding:"required,oneof=razorpay stripe cod"`
}

// OrderSummary is the order as reported in the create response
type OrderSummary struct {
	ID                string  `json:"id"`
	Status            string  `json:"status"`
	TotalAmount       float64 `json:"totalAmount"`
	EstimatedDelivery string  `json:"estimatedDelivery"`
	TrackingNumber    string  `json:"trackingNumber"`
	EmailSent         bool    `json:"emailSent"`
}

// CreateOrderResponse represents the response after creating an order
type CreateOrderResponse struct {
	Success        bool           `json:"success"`
	Message        string         `json:"message"`
	Order          OrderSummary   `json:"order"`
	Payment        *PaymentResult `json:"payment"`
	ProcessingTime string         `json:"processingTime"`
	Timestamp      string         `json:"timestamp"`
}

// CancelOrderRequest is the body of a cancellation
type CancelOrderRequest struct {
	Reason        string `json:"reason"`
	CustomerEmail string `json:"customerEmail" binding:"omitempty,email"`
}

// CancelOrderResponse always reports a successful cancellation
type CancelOrderResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	OrderID   string `json:"orderId"`
	Status    string `json:"status"`
	Reason    string `json:"reason"`
	EmailSent bool   `json:"emailSent"`
	Timestamp string `json:"timestamp"`
}
