package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/ashendes/commerce-api/internal/apperr"
	"github.com/ashendes/commerce-api/internal/models"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

const (
	webhookSignatureHeader = "x-webhook-signature"
	webhookTimestampHeader = "x-webhook-timestamp"
	maxWebhookBody         = 64 << 10
)

func (h *Handler) createCashfreeOrder(c *gin.Context) {
	var req models.CashfreeOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, bindError(err))
		return
	}

	out, err := h.cashfree.CreateOrder(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{
		"success":   true,
		"message":   "Payment order created",
		"data":      out,
		"timestamp": timestamp(),
	})
}

func (h *Handler) verifyCashfreeOrder(c *gin.Context) {
	out, err := h.cashfree.VerifyOrder(c.Request.Context(), c.Param("orderId"))
	if err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{
		"success":   true,
		"data":      out,
		"timestamp": timestamp(),
	})
}

// cashfreeWebhook reads the exact wire bytes before anything parses them
func (h *Handler) cashfreeWebhook(c *gin.Context) {
	raw, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.failWith(c, http.StatusRequestEntityTooLarge, apperr.Validation("webhook payload too large"))
			return
		}
		h.fail(c, apperr.Validation("unreadable webhook body", err.Error()))
		return
	}

	ack, err := h.webhooks.Handle(c.Request.Context(), raw,
		c.GetHeader(webhookSignatureHeader), c.GetHeader(webhookTimestampHeader))
	if err != nil {
		h.fail(c, err)
		return
	}

	log.WithFields(log.Fields{
		"request_id": c.GetString(requestIDKey),
		"event_id":   ack.EventID,
		"ack":        ack.Status,
	}).Info("Webhook acknowledged")
	respond(c, http.StatusOK, gin.H{
		"success":   true,
		"message":   "Webhook received",
		"eventId":   ack.EventID,
		"type":      ack.Type,
		"status":    ack.Status,
		"timestamp": timestamp(),
	})
}

func (h *Handler) paymentStatus(c *gin.Context) {
	respond(c, http.StatusOK, gin.H{
		"success":   true,
		"data":      h.cashfree.Status(),
		"timestamp": timestamp(),
	})
}
