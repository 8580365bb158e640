// Package notify renders transactional emails and hands them to a mail transport.
// Sending is best-effort: callers get a Result, never an error.
package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/ashendes/commerce-api/internal/apperr"
	"github.com/ashendes/commerce-api/internal/config"
	"github.com/ashendes/commerce-api/internal/metrics"
	"github.com/ashendes/commerce-api/internal/models"
	"github.com/ashendes/commerce-api/internal/patterns"
	log "github.com/sirupsen/logrus"
)

// Transport delivers one rendered message and returns the provider's message id
type Transport interface {
	Name() string
	Send(ctx context.Context, job models.EmailJob) (string, error)
}

// Result is the outcome of a single send attempt
type Result struct {
	Success   bool   `json:"success"`
	MessageID string `json:"messageId,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Sender is what the order and email handlers depend on
type Sender interface {
	Send(ctx context.Context, to string, kind Kind, payload Payload) Result
}

type Dispatcher struct {
	transport Transport
	renderer  *Renderer
	timeout   time.Duration
}

func NewDispatcher(transport Transport, renderer *Renderer) *Dispatcher {
	return &Dispatcher{
		transport: transport,
		renderer:  renderer,
		timeout:   patterns.MailTimeout,
	}
}

// Configured is false when mail is switched off
func (d *Dispatcher) Configured() bool {
	_, disabled := d.transport.(DisabledTransport)
	return !disabled
}

func (d *Dispatcher) TransportName() string {
	return d.transport.Name()
}

// Send renders and delivers one email. Every failure, including a transport panic, comes back as Result.
func (d *Dispatcher) Send(ctx context.Context, to string, kind Kind, payload Payload) (res Result) {
	logger := log.WithFields(log.Fields{
		"kind":      string(kind),
		"order_id":  payload.Order.OrderID,
		"transport": d.transport.Name(),
	})

	defer func() {
		if r := recover(); r != nil {
			res = Result{Success: false, Error: fmt.Sprintf("email transport panicked: %v", r)}
			logger.WithField("panic", r).Error("Email send panicked")
		}
		outcome := "sent"
		if !res.Success {
			outcome = "failed"
		}
		metrics.EmailsTotal.WithLabelValues(string(kind), outcome).Inc()
	}()

	if to == "" {
		return Result{Error: "recipient address is required"}
	}

	job, err := d.renderer.Render(kind, payload)
	if err != nil {
		logger.WithError(err).Error("Email render failed")
		return Result{Error: err.Error()}
	}
	job.To = to

	ctx, cancel := patterns.WithTimeout(ctx, d.timeout, patterns.MailTimeout)
	defer cancel()

	messageID, err := d.transport.Send(ctx, job)
	if err != nil {
		err = apperr.Notification("email delivery failed", err)
		logger.WithError(err).Warn("Email not sent")
		return Result{Error: err.Error()}
	}

	logger.WithField("message_id", messageID).Info("Email sent")
	return Result{Success: true, MessageID: messageID}
}

// NewTransport picks the configured provider, or DisabledTransport when it has no credentials
func NewTransport(cfg config.EmailConfig) Transport {
	if !cfg.Configured() {
		return DisabledTransport{}
	}
	if cfg.Provider == "sendgrid" {
		return NewSendGridTransport(cfg)
	}
	return NewSMTPTransport(cfg)
}

// DisabledTransport stands in when no mail provider is configured
type DisabledTransport struct{}

func (DisabledTransport) Name() string { return "disabled" }

func (DisabledTransport) Send(context.Context, models.EmailJob) (string, error) {
	return "", apperr.NotConfigured("email transport")
}
