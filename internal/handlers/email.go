package handlers

import (
	"net/http"

	"github.com/ashendes/commerce-api/internal/apperr"
	"github.com/ashendes/commerce-api/internal/models"
	"github.com/ashendes/commerce-api/internal/notify"
	"github.com/gin-gonic/gin"
)

func (h *Handler) sendConfirmation(c *gin.Context) {
	var req models.SendConfirmationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, bindError(err))
		return
	}
	h.sendEmail(c, notify.KindConfirmation, notify.Payload{Order: req.OrderData}, "Order confirmation email")
}

func (h *Handler) sendCancellation(c *gin.Context) {
	var req models.SendCancellationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, bindError(err))
		return
	}
	h.sendEmail(c, notify.KindCancellation, notify.Payload{Order: req.OrderData, Reason: req.Reason}, "Order cancellation email")
}

func (h *Handler) sendStatusUpdate(c *gin.Context) {
	var req models.SendStatusUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, bindError(err))
		return
	}
	payload := notify.Payload{Order: req.OrderData, Status: req.Status, TrackingInfo: req.TrackingInfo}
	h.sendEmail(c, notify.KindStatusUpdate, payload, "Order status update email")
}

// sendEmail is a direct trigger, so here a failed send is the request's failure
func (h *Handler) sendEmail(c *gin.Context, kind notify.Kind, payload notify.Payload, what string) {
	res := h.mailer.Send(c.Request.Context(), payload.Order.CustomerEmail, kind, payload)
	if !res.Success {
		message := "Failed to send " + what
		if h.cfg.IsDevelopment() && res.Error != "" {
			message += ": " + res.Error
		}
		h.failWith(c, http.StatusInternalServerError, &apperr.Error{Kind: apperr.KindNotification, Message: message})
		return
	}

	respond(c, http.StatusOK, models.SendEmailResponse{
		Success:   true,
		Message:   what + " sent successfully",
		MessageID: res.MessageID,
		Timestamp: timestamp(),
	})
}
