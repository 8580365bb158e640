// Package webhook accepts signed payment notifications. Signatures are checked
// against the raw bytes before anything parses them.
package webhook

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/ashendes/commerce-api/internal/apperr"
	"github.com/ashendes/commerce-api/internal/metrics"
	"github.com/ashendes/commerce-api/internal/models"
	log "github.com/sirupsen/logrus"
)

const (
	EventPaymentSuccess     = "PAYMENT_SUCCESS"
	EventPaymentFailed      = "PAYMENT_FAILED"
	EventPaymentUserDropped = "PAYMENT_USER_DROPPED"
)

const (
	AckProcessed = "processed"
	AckDuplicate = "duplicate"
	AckIgnored   = "ignored"
)

// Verifier checks a webhook signature over the exact wire bytes
type Verifier interface {
	WebhookConfigured() bool
	VerifyWebhookSignature(rawBody []byte, signature, timestamp string) bool
}

// Ack is returned for every verified event, whether or not it was acted on
type Ack struct {
	EventID string `json:"eventId"`
	Type    string `json:"type"`
	Status  string `json:"status"`
}

// statusFor maps the event types that change an order to the resulting status
var statusFor = map[string]string{
	EventPaymentSuccess:     models.OrderStatusPaid,
	EventPaymentFailed:      models.OrderStatusFailed,
	EventPaymentUserDropped: models.OrderStatusCancelled,
}

type Ingestor struct {
	verifier  Verifier
	ledger    Ledger
	publisher Publisher
	now       func() time.Time
}

func NewIngestor(verifier Verifier, ledger Ledger, publisher Publisher) *Ingestor {
	if ledger == nil {
		ledger = NopLedger{}
	}
	if publisher == nil {
		publisher = LogPublisher{}
	}
	return &Ingestor{
		verifier:  verifier,
		ledger:    ledger,
		publisher: publisher,
		now:       time.Now,
	}
}

// Handle verifies, parses, de-duplicates and dispatches one webhook delivery
func (i *Ingestor) Handle(ctx context.Context, rawBody []byte, signature, timestamp string) (*Ack, error) {
	if !i.verifier.WebhookConfigured() {
		metrics.WebhookEvents.WithLabelValues("unknown", "rejected").Inc()
		return nil, apperr.NotConfigured("cashfree webhook secret")
	}
	if signature == "" || timestamp == "" {
		metrics.WebhookEvents.WithLabelValues("unknown", "rejected").Inc()
		return nil, apperr.InvalidSignature("missing webhook signature or timestamp")
	}
	if !i.verifier.VerifyWebhookSignature(rawBody, signature, timestamp) {
		metrics.WebhookEvents.WithLabelValues("unknown", "rejected").Inc()
		log.WithField("timestamp", timestamp).Warn("Webhook signature mismatch")
		return nil, apperr.InvalidSignature("invalid webhook signature")
	}

	var event models.WebhookEvent
	if err := json.Unmarshal(rawBody, &event); err != nil {
		metrics.WebhookEvents.WithLabelValues("unknown", "malformed").Inc()
		return nil, apperr.Validation("malformed webhook payload", err.Error())
	}
	if strings.TrimSpace(event.Type) == "" {
		metrics.WebhookEvents.WithLabelValues("unknown", "malformed").Inc()
		return nil, apperr.Validation("malformed webhook payload", "type is required")
	}

	eventType := NormalizeType(event.Type)
	ack := &Ack{EventID: EventID(event), Type: eventType}
	logger := log.WithFields(log.Fields{
		"event_id":   ack.EventID,
		"event_type": eventType,
		"order_id":   event.Data.Order.OrderID,
	})

	firstAt, seen, err := i.ledger.Seen(ack.EventID)
	if err != nil {
		logger.WithError(err).Warn("Webhook ledger unavailable, dispatching anyway")
		seen = false
	}
	if seen {
		ack.Status = AckDuplicate
		metrics.WebhookEvents.WithLabelValues(eventType, AckDuplicate).Inc()
		logger.WithField("first_processed_at", firstAt.Format(time.RFC3339)).Info("Duplicate webhook acknowledged")
		return ack, nil
	}

	status, known := statusFor[eventType]
	if !known {
		ack.Status = AckIgnored
		metrics.WebhookEvents.WithLabelValues("other", AckIgnored).Inc()
		i.mark(logger, ack.EventID)
		logger.Info("Unhandled webhook type acknowledged")
		return ack, nil
	}

	change := models.StatusEvent{
		EventID:   ack.EventID,
		OrderID:   event.Data.Order.OrderID,
		Status:    status,
		PaymentID: event.Data.Payment.CFPaymentID.String(),
		Amount:    paidAmount(event),
		Currency:  event.Data.Order.OrderCurrency,
		Message:   event.Data.Payment.PaymentMessage,
		Source:    "cashfree",
		Timestamp: i.now().UTC().Format(time.RFC3339),
	}
	// an unpublished change stays unrecorded so a provider retry delivers it again
	if err := i.publisher.Publish(ctx, change); err != nil {
		logger.WithError(err).Error("Order status change not published")
	} else {
		i.mark(logger, ack.EventID)
	}

	ack.Status = AckProcessed
	metrics.WebhookEvents.WithLabelValues(eventType, AckProcessed).Inc()
	logger.WithField("status", status).Info("Webhook processed")
	return ack, nil
}

func (i *Ingestor) mark(logger *log.Entry, id string) {
	if err := i.ledger.MarkProcessed(id); err != nil {
		logger.WithError(err).Warn("Webhook not recorded in ledger")
	}
}

// NormalizeType upper-cases the type and drops the _WEBHOOK suffix some API versions send
func NormalizeType(t string) string {
	t = strings.ToUpper(strings.TrimSpace(t))
	return strings.TrimSuffix(t, "_WEBHOOK")
}

// EventID identifies a delivery across retries
func EventID(e models.WebhookEvent) string {
	return NormalizeType(e.Type) + ":" + e.Data.Order.OrderID + ":" + e.Data.Payment.CFPaymentID.String()
}

func paidAmount(e models.WebhookEvent) float64 {
	if e.Data.Payment.PaymentAmount > 0 {
		return e.Data.Payment.PaymentAmount
	}
	return e.Data.Order.OrderAmount
}
