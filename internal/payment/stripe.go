package payment

import (
	"context"
	"errors"
	"strings"

	"github.com/ashendes/commerce-api/internal/apperr"
	"github.com/ashendes/commerce-api/internal/config"
	"github.com/ashendes/commerce-api/internal/idgen"
	"github.com/ashendes/commerce-api/internal/models"
	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/client"
)

type stripeAPI interface {
	NewPaymentIntent(params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
	GetPaymentIntent(id string, params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
}

type stripeSDK struct {
	api *client.API
}

func (s stripeSDK) NewPaymentIntent(params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error) {
	return s.api.PaymentIntents.New(params)
}

func (s stripeSDK) GetPaymentIntent(id string, params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error) {
	return s.api.PaymentIntents.Get(id, params)
}

// Stripe creates payment intents, amounts go to Stripe in the currency's minor unit
type Stripe struct {
	api      stripeAPI
	currency string
	ids      *idgen.Generator
}

func NewStripe(cfg config.StripeConfig, currency string, ids *idgen.Generator) *Stripe {
	s := &Stripe{currency: strings.ToLower(currency), ids: ids}
	if cfg.Configured() {
		sc := &client.API{}
		sc.Init(cfg.SecretKey, nil)
		s.api = stripeSDK{api: sc}
	}
	return s
}

func (s *Stripe) Name() Provider { return ProviderStripe }

func (s *Stripe) Configured() bool { return s.api != nil }

func (s *Stripe) CreateOrder(ctx context.Context, req models.PaymentRequest) (*models.PaymentResult, error) {
	if !s.Configured() {
		return nil, apperr.NotConfigured("stripe")
	}
	params := &stripe.PaymentIntentParams{
		Amount:       stripe.Int64(toMinor(req.Amount)),
		Currency:     stripe.String(s.currency),
		Description:  stripe.String("Order " + req.OrderID),
		ReceiptEmail: stripe.String(req.CustomerEmail),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx
	params.SetIdempotencyKey(s.ids.IdempotencyKey(req.OrderID))
	params.AddMetadata("order_id", req.OrderID)
	params.AddMetadata("customer_name", req.CustomerName)

	pi, err := s.api.NewPaymentIntent(params)
	if err != nil {
		return nil, stripeError(err)
	}

	return &models.PaymentResult{
		Success:         true,
		Gateway:         string(ProviderStripe),
		OrderID:         req.OrderID,
		PaymentIntentID: pi.ID,
		Amount:          fromMinor(pi.Amount),
		Currency:        strings.ToUpper(string(pi.Currency)),
		Status:          string(pi.Status),
		Extra: map[string]any{
			"clientSecret": pi.ClientSecret,
		},
	}, nil
}

// VerifyPayment retrieves the intent, only a succeeded intent counts as paid
func (s *Stripe) VerifyPayment(ctx context.Context, proof models.PaymentProof) (*models.PaymentResult, error) {
	if !s.Configured() {
		return nil, apperr.NotConfigured("stripe")
	}
	if proof.PaymentIntentID == "" {
		return nil, apperr.Validation("paymentIntentId is required")
	}

	params := &stripe.PaymentIntentParams{}
	params.Context = ctx
	pi, err := s.api.GetPaymentIntent(proof.PaymentIntentID, params)
	if err != nil {
		return nil, stripeError(err)
	}

	return &models.PaymentResult{
		Success:         pi.Status == stripe.PaymentIntentStatusSucceeded,
		Gateway:         string(ProviderStripe),
		OrderID:         pi.Metadata["order_id"],
		PaymentIntentID: pi.ID,
		Amount:          fromMinor(pi.Amount),
		Currency:        strings.ToUpper(string(pi.Currency)),
		Status:          string(pi.Status),
	}, nil
}

func stripeError(err error) error {
	if isTimeout(err) {
		return apperr.GatewayTimeout("stripe", err)
	}
	var se *stripe.Error
	if errors.As(err, &se) {
		return apperr.Gateway("stripe", se.HTTPStatusCode, se.Msg, err)
	}
	return apperr.Gateway("stripe", 0, err.Error(), err)
}
