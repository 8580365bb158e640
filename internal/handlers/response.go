package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/ashendes/commerce-api/internal/apperr"
	"github.com/ashendes/commerce-api/internal/models"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	log "github.com/sirupsen/logrus"
)

// ErrorResponse is the one error shape every API route returns
type ErrorResponse struct {
	Success          bool     `json:"success"`
	Message          string   `json:"message"`
	Error            string   `json:"error"`
	ValidationErrors []string `json:"validationErrors,omitempty"`
	Timestamp        string   `json:"timestamp"`
}

func timestamp() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

// respond encodes v itself so an unencodable value becomes a plain-text 500 instead of a panic
func respond(c *gin.Context, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		log.WithFields(log.Fields{
			"request_id": c.GetString(requestIDKey),
			"error":      err.Error(),
		}).Error("Response encoding failed")
		c.Data(http.StatusInternalServerError, "text/plain; charset=utf-8", []byte("Internal Server Error"))
		return
	}
	c.Data(status, "application/json; charset=utf-8", body)
}

// fail writes err in the error shape with its mapped status
func (h *Handler) fail(c *gin.Context, err error) {
	appErr := apperr.As(err)
	h.failWith(c, appErr.HTTPStatus(), appErr)
}

func (h *Handler) failWith(c *gin.Context, status int, appErr *apperr.Error) {
	message := appErr.Message
	if appErr.Kind == apperr.KindInternal && !h.cfg.IsDevelopment() {
		message = "Internal server error"
	}

	fields := log.Fields{
		"request_id": c.GetString(requestIDKey),
		"kind":       string(appErr.Kind),
		"status":     status,
		"path":       c.Request.URL.Path,
	}
	if status >= http.StatusInternalServerError {
		log.WithFields(fields).WithError(appErr).Error("Request failed")
	} else {
		log.WithFields(fields).Warn(appErr.Message)
	}

	respond(c, status, ErrorResponse{
		Success:          false,
		Message:          message,
		Error:            string(appErr.Kind),
		ValidationErrors: appErr.Details,
		Timestamp:        timestamp(),
	})
}

// bindError converts a gin binding failure into a validation error
func bindError(err error) *apperr.Error {
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		return apperr.Validation("Validation failed", models.ValidationMessages(err)...)
	}
	return apperr.Validation("Invalid request body", err.Error())
}
