package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/ashendes/commerce-api/internal/apperr"
	"github.com/ashendes/commerce-api/internal/config"
	"github.com/ashendes/commerce-api/internal/models"
	razorpay "github.com/razorpay/razorpay-go"
	rzperrors "github.com/razorpay/razorpay-go/errors"
)

// razorpayAPI is the slice of the Razorpay SDK the adapter uses
type razorpayAPI interface {
	CreateOrder(data map[string]interface{}) (map[string]interface{}, error)
	FetchPayment(paymentID string) (map[string]interface{}, error)
}

type razorpaySDK struct {
	client *razorpay.Client
}

func (s razorpaySDK) CreateOrder(data map[string]interface{}) (map[string]interface{}, error) {
	return s.client.Order.Create(data, nil)
}

func (s razorpaySDK) FetchPayment(paymentID string) (map[string]interface{}, error) {
	return s.client.Payment.Fetch(paymentID, nil, nil)
}

// Razorpay creates orders in paise and verifies checkout signatures
type Razorpay struct {
	api      razorpayAPI
	keyID    string
	secret   string
	currency string
}

func NewRazorpay(cfg config.RazorpayConfig, currency string) *Razorpay {
	r := &Razorpay{keyID: cfg.KeyID, secret: cfg.KeySecret, currency: currency}
	if cfg.Configured() {
		r.api = razorpaySDK{client: razorpay.NewClient(cfg.KeyID, cfg.KeySecret)}
	}
	return r
}

func (r *Razorpay) Name() Provider { return ProviderRazorpay }

func (r *Razorpay) Configured() bool {
	return r.api != nil && r.keyID != "" && r.secret != ""
}

func (r *Razorpay) CreateOrder(ctx context.Context, req models.PaymentRequest) (*models.PaymentResult, error) {
	if !r.Configured() {
		return nil, apperr.NotConfigured("razorpay")
	}
	data := map[string]interface{}{
		"amount":   toMinor(req.Amount),
		"currency": r.currency,
		"receipt":  req.OrderID,
		"notes": map[string]interface{}{
			"order_id":       req.OrderID,
			"customer_email": req.CustomerEmail,
			"customer_name":  req.CustomerName,
		},
	}

	body, err := callWithContext(ctx, func() (map[string]interface{}, error) {
		return r.api.CreateOrder(data)
	})
	if err != nil {
		return nil, razorpayError(err)
	}

	return &models.PaymentResult{
		Success:  true,
		Gateway:  string(ProviderRazorpay),
		OrderID:  stringField(body, "id"),
		Amount:   fromMinor(int64Field(body, "amount")),
		Currency: strings.ToUpper(stringField(body, "currency")),
		Status:   stringField(body, "status"),
		Extra: map[string]any{
			"keyId":   r.keyID,
			"receipt": stringField(body, "receipt"),
		},
	}, nil
}

// VerifyPayment checks the checkout signature before it fetches anything
func (r *Razorpay) VerifyPayment(ctx context.Context, proof models.PaymentProof) (*models.PaymentResult, error) {
	if !r.Configured() {
		return nil, apperr.NotConfigured("razorpay")
	}
	if proof.RazorpayOrderID == "" || proof.RazorpayPaymentID == "" || proof.RazorpaySignature == "" {
		return nil, apperr.Validation("razorpay_order_id, razorpay_payment_id and razorpay_signature are required")
	}
	if !VerifyRazorpaySignature(r.secret, proof.RazorpayOrderID, proof.RazorpayPaymentID, proof.RazorpaySignature) {
		return nil, apperr.InvalidSignature("invalid razorpay payment signature")
	}

	payment, err := callWithContext(ctx, func() (map[string]interface{}, error) {
		return r.api.FetchPayment(proof.RazorpayPaymentID)
	})
	if err != nil {
		return nil, razorpayError(err)
	}

	status := stringField(payment, "status")
	return &models.PaymentResult{
		Success:   status == "captured" || status == "authorized",
		Gateway:   string(ProviderRazorpay),
		OrderID:   proof.RazorpayOrderID,
		PaymentID: proof.RazorpayPaymentID,
		Amount:    fromMinor(int64Field(payment, "amount")),
		Currency:  strings.ToUpper(stringField(payment, "currency")),
		Status:    status,
		Extra: map[string]any{
			"method": stringField(payment, "method"),
		},
	}, nil
}

// razorpayError maps SDK errors onto gateway statuses. Transport failures
// carry status 0 so they count against the breaker.
func razorpayError(err error) error {
	if isTimeout(err) {
		return apperr.GatewayTimeout("razorpay", err)
	}
	var badRequest *rzperrors.BadRequestError
	var upstream *rzperrors.GatewayError
	var server *rzperrors.ServerError
	switch {
	case errors.As(err, &badRequest):
		return apperr.Gateway("razorpay", 400, err.Error(), err)
	case errors.As(err, &upstream):
		return apperr.Gateway("razorpay", 502, err.Error(), err)
	case errors.As(err, &server):
		return apperr.Gateway("razorpay", 500, err.Error(), err)
	default:
		return apperr.Gateway("razorpay", 0, err.Error(), err)
	}
}

func stringField(m map[string]interface{}, key string) string {
	switch v := m[key].(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

func int64Field(m map[string]interface{}, key string) int64 {
	switch v := m[key].(type) {
	case float64:
		return int64(v)
	case int64:
		return v
	case int:
		return int64(v)
	case json.Number:
		n, _ := v.Int64()
		return n
	default:
		return 0
	}
}
