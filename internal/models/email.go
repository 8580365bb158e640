package models

// EmailJob is a fully rendered message ready for a transport
type EmailJob struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	HTML    string `json:"html"`
	Text    string `json:"text"`
}

// OrderEmailData is the order view used by the email templates and the direct email endpoints
type OrderEmailData struct {
	OrderID           string      `json:"orderId" binding:"required"`
	CustomerEmail     string      `json:"customerEmail" binding:"required,email"`
	CustomerName      string      `json:"customerName"`
	TotalAmount       float64     `json:"totalAmount"`
	Items             []OrderItem `json:"items"`
	ShippingAddress   *Address    `json:"shippingAddress,omitempty"`
	PaymentMethod     string      `json:"paymentMethod"`
	EstimatedDelivery string      `json:"estimatedDelivery"`
	TrackingNumber    string      `json:"trackingNumber"`
}

type SendConfirmationRequest struct {
	OrderData OrderEmailData `json:"orderData"`
}

type SendCancellationRequest struct {
	OrderData OrderEmailData `json:"orderData"`
	Reason    string         `json:"reason"`
}

type SendStatusUpdateRequest struct {
	OrderData    OrderEmailData `json:"orderData"`
	Status       string         `json:"status" binding:"required"`
	TrackingInfo string         `json:"trackingInfo"`
}

// SendEmailResponse reports the outcome of a direct email trigger
type SendEmailResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	MessageID string `json:"messageId,omitempty"`
	Timestamp string `json:"timestamp"`
}
