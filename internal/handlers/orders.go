package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/ashendes/commerce-api/internal/apperr"
	"github.com/ashendes/commerce-api/internal/models"
	"github.com/ashendes/commerce-api/internal/orders"
	"github.com/gin-gonic/gin"
)

func (h *Handler) createOrder(c *gin.Context) {
	var req models.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, bindError(err))
		return
	}

	out, err := h.orders.Create(c.Request.Context(), req)
	if err != nil {
		var payErr *orders.PaymentFailedError
		if errors.As(err, &payErr) {
			cause := apperr.As(payErr.Err)
			h.failWith(c, http.StatusBadRequest, &apperr.Error{
				Kind:    cause.Kind,
				Message: "Payment initialization failed: " + cause.Message,
			})
			return
		}
		h.fail(c, err)
		return
	}

	respond(c, http.StatusCreated, models.CreateOrderResponse{
		Success: true,
		Message: "Order created successfully",
		Order: models.OrderSummary{
			ID:                out.Order.ID,
			Status:            out.Order.Status,
			TotalAmount:       out.Order.TotalAmount,
			EstimatedDelivery: out.Order.EstimatedDelivery,
			TrackingNumber:    out.Order.TrackingNumber,
			EmailSent:         out.Email.Success,
		},
		Payment:        out.Payment,
		ProcessingTime: fmt.Sprintf("%dms", out.ProcessingTime.Milliseconds()),
		Timestamp:      timestamp(),
	})
}

func (h *Handler) cancelOrder(c *gin.Context) {
	var req models.CancelOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		h.fail(c, bindError(err))
		return
	}

	out, err := h.orders.Cancel(c.Request.Context(), c.Param("orderId"), req)
	if err != nil {
		h.fail(c, err)
		return
	}

	respond(c, http.StatusOK, models.CancelOrderResponse{
		Success:   true,
		Message:   "Order cancelled successfully",
		OrderID:   out.OrderID,
		Status:    out.Status,
		Reason:    out.Reason,
		EmailSent: out.Email.Success,
		Timestamp: timestamp(),
	})
}

func (h *Handler) verifyPayment(c *gin.Context) {
	var req models.VerifyPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, bindError(err))
		return
	}

	res, err := h.orders.VerifyPayment(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	if !res.Success {
		respond(c, http.StatusBadRequest, gin.H{
			"success":   false,
			"message":   "Payment verification failed",
			"error":     "VerificationError",
			"payment":   res,
			"timestamp": timestamp(),
		})
		return
	}

	respond(c, http.StatusOK, gin.H{
		"success":   true,
		"message":   "Payment verified successfully",
		"payment":   res,
		"timestamp": timestamp(),
	})
}
