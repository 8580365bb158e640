// Package orders creates and cancels orders. Payment is a hard dependency of
// creation, the confirmation email is not.
package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ashendes/commerce-api/internal/apperr"
	"github.com/ashendes/commerce-api/internal/idgen"
	"github.com/ashendes/commerce-api/internal/metrics"
	"github.com/ashendes/commerce-api/internal/models"
	"github.com/ashendes/commerce-api/internal/notify"
	log "github.com/sirupsen/logrus"
)

const defaultCancelReason = "Customer request"

// Payments is the slice of the gateway registry the orchestrator uses
type Payments interface {
	CreateOrder(ctx context.Context, provider string, req models.PaymentRequest) (*models.PaymentResult, error)
	VerifyPayment(ctx context.Context, provider string, proof models.PaymentProof) (*models.PaymentResult, error)
}

// Finder loads an existing order. Return an apperr NotFound error for unknown ids.
type Finder interface {
	FindOrder(ctx context.Context, orderID string) (*models.Order, error)
}

// FinderFunc adapts a function to Finder
type FinderFunc func(ctx context.Context, orderID string) (*models.Order, error)

func (f FinderFunc) FindOrder(ctx context.Context, orderID string) (*models.Order, error) {
	return f(ctx, orderID)
}

// PaymentFailedError aborts order creation when the gateway rejects or errors
type PaymentFailedError struct {
	Gateway string
	Err     error
}

func (e *PaymentFailedError) Error() string {
	return fmt.Sprintf("payment via %s failed: %v", e.Gateway, e.Err)
}

func (e *PaymentFailedError) Unwrap() error {
	return e.Err
}

// CreateOutcome keeps the payment and email results apart so the email can never decide the order's fate
type CreateOutcome struct {
	Order          *models.Order
	Payment        *models.PaymentResult
	Email          notify.Result
	ProcessingTime time.Duration
}

type CancelOutcome struct {
	OrderID string
	Status  string
	Reason  string
	Email   notify.Result
}

type Service struct {
	payments Payments
	mailer   notify.Sender
	finder   Finder
	ids      *idgen.Generator
}

// NewService wires the orchestrator. finder may be nil when no order store is attached.
func NewService(payments Payments, mailer notify.Sender, finder Finder, ids *idgen.Generator) *Service {
	if ids == nil {
		ids = idgen.New()
	}
	return &Service{
		payments: payments,
		mailer:   mailer,
		finder:   finder,
		ids:      ids,
	}
}

// Create validates, charges through the gateway unless cod, then attempts the confirmation email
func (s *Service) Create(ctx context.Context, req models.CreateOrderRequest) (*CreateOutcome, error) {
	start := time.Now()

	if err := models.Validate(req); err != nil {
		metrics.OrdersTotal.WithLabelValues("validation_failed").Inc()
		return nil, apperr.Validation("Validation failed", models.ValidationMessages(err)...)
	}

	order := &models.Order{
		ID:                s.ids.OrderID(),
		CustomerEmail:     req.CustomerEmail,
		CustomerName:      req.CustomerName,
		CustomerPhone:     req.CustomerPhone,
		TotalAmount:       req.TotalAmount,
		Items:             req.Items,
		ShippingAddress:   req.ShippingAddress,
		PaymentMethod:     req.PaymentMethod,
		Status:            models.OrderStatusPending,
		EstimatedDelivery: s.ids.EstimatedDelivery(),
		TrackingNumber:    s.ids.TrackingNumber(),
		CreatedAt:         s.ids.Now().UTC(),
	}
	logger := log.WithFields(log.Fields{
		"order_id":       order.ID,
		"payment_method": string(order.PaymentMethod),
		"amount":         order.TotalAmount,
	})

	var payment *models.PaymentResult
	if order.PaymentMethod != models.PaymentMethodCOD {
		res, err := s.payments.CreateOrder(ctx, string(order.PaymentMethod), models.PaymentRequest{
			OrderID:       order.ID,
			Amount:        order.TotalAmount,
			CustomerEmail: order.CustomerEmail,
			CustomerName:  order.CustomerName,
			CustomerPhone: order.CustomerPhone,
		})
		if err != nil {
			metrics.OrdersTotal.WithLabelValues("payment_failed").Inc()
			logger.WithError(err).Warn("Order aborted, payment creation failed")
			return nil, &PaymentFailedError{Gateway: string(order.PaymentMethod), Err: err}
		}
		payment = res
	}

	email := s.mailer.Send(ctx, order.CustomerEmail, notify.KindConfirmation, notify.Payload{Order: EmailData(order)})
	if !email.Success {
		logger.WithField("email_error", email.Error).Warn("Order created without confirmation email")
	}

	metrics.OrdersTotal.WithLabelValues("created").Inc()
	logger.WithField("email_sent", email.Success).Info("Order created")

	return &CreateOutcome{
		Order:          order,
		Payment:        payment,
		Email:          email,
		ProcessingTime: time.Since(start),
	}, nil
}

// Cancel records a cancellation and attempts the cancellation email. The email outcome never fails the call.
func (s *Service) Cancel(ctx context.Context, orderID string, req models.CancelOrderRequest) (*CancelOutcome, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return nil, apperr.Validation("Validation failed", "orderId is required")
	}
	if err := models.Validate(req); err != nil {
		return nil, apperr.Validation("Validation failed", models.ValidationMessages(err)...)
	}

	order, err := s.lookup(ctx, orderID, req)
	if err != nil {
		return nil, err
	}

	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		reason = defaultCancelReason
	}

	email := s.mailer.Send(ctx, order.CustomerEmail, notify.KindCancellation, notify.Payload{
		Order:  EmailData(order),
		Reason: reason,
	})

	metrics.OrdersTotal.WithLabelValues("cancelled").Inc()
	log.WithFields(log.Fields{
		"order_id":   orderID,
		"reason":     reason,
		"email_sent": email.Success,
	}).Info("Order cancelled")

	return &CancelOutcome{
		OrderID: orderID,
		Status:  models.OrderStatusCancelled,
		Reason:  reason,
		Email:   email,
	}, nil
}

// lookup asks the finder when one is attached, otherwise the request must name the customer
func (s *Service) lookup(ctx context.Context, orderID string, req models.CancelOrderRequest) (*models.Order, error) {
	if s.finder == nil {
		if req.CustomerEmail == "" {
			return nil, apperr.Validation("Validation failed", "customerEmail is required")
		}
		return &models.Order{ID: orderID, CustomerEmail: req.CustomerEmail, Status: models.OrderStatusCancelled}, nil
	}

	order, err := s.finder.FindOrder(ctx, orderID)
	if err != nil {
		var appErr *apperr.Error
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		return nil, apperr.Internal("order lookup failed", err)
	}
	if order == nil {
		return nil, apperr.NotFound(fmt.Sprintf("order %s not found", orderID))
	}
	if order.CustomerEmail == "" {
		order.CustomerEmail = req.CustomerEmail
	}
	return order, nil
}

// VerifyPayment checks a client's payment proof with the named gateway
func (s *Service) VerifyPayment(ctx context.Context, req models.VerifyPaymentRequest) (*models.PaymentResult, error) {
	if strings.TrimSpace(req.Gateway) == "" {
		return nil, apperr.Validation("Validation failed", "gateway is required")
	}
	res, err := s.payments.VerifyPayment(ctx, req.Gateway, req.PaymentData)
	if err != nil {
		log.WithFields(log.Fields{"gateway": req.Gateway, "error": err.Error()}).Warn("Payment verification failed")
		return nil, err
	}
	return res, nil
}

// EmailData is the template view of an order
func EmailData(o *models.Order) models.OrderEmailData {
	return models.OrderEmailData{
		OrderID:           o.ID,
		CustomerEmail:     o.CustomerEmail,
		CustomerName:      o.CustomerName,
		TotalAmount:       o.TotalAmount,
		Items:             o.Items,
		ShippingAddress:   o.ShippingAddress,
		PaymentMethod:     string(o.PaymentMethod),
		EstimatedDelivery: o.EstimatedDelivery,
		TrackingNumber:    o.TrackingNumber,
	}
}
