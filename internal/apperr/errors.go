package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an application error for propagation and HTTP mapping
type Kind string

const (
	KindValidation       Kind = "ValidationError"
	KindNotConfigured    Kind = "NotConfiguredError"
	KindGateway          Kind = "GatewayError"
	KindInvalidSignature Kind = "InvalidSignatureError"
	KindNotification     Kind = "NotificationError"
	KindNotFound         Kind = "NotFoundError"
	KindInternal         Kind = "InternalError"
)

// Error is the single error type carried across package boundaries
type Error struct {
	Kind    Kind
	Message string
	// Status is the upstream HTTP status for gateway errors, 0 when unknown
	Status  int
	Timeout bool
	Details []string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// HTTPStatus maps the error to the status code returned to API clients
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindValidation, KindInvalidSignature:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindNotConfigured:
		return http.StatusServiceUnavailable
	case KindGateway:
		switch {
		case e.Timeout:
			return http.StatusRequestTimeout
		case e.Status == http.StatusServiceUnavailable:
			return http.StatusServiceUnavailable
		case e.Status >= 500 || e.Status == 0:
			return http.StatusBadGateway
		default:
			return http.StatusBadRequest
		}
	default:
		return http.StatusInternalServerError
	}
}

func Validation(message string, details ...string) *Error {
	return &Error{Kind: KindValidation, Message: message, Details: details}
}

// UnsupportedGateway is a validation failure raised before any provider is contacted
func UnsupportedGateway(name string) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf("unsupported payment gateway: %q", name)}
}

func NotConfigured(what string) *Error {
	return &Error{Kind: KindNotConfigured, Message: what + " is not configured"}
}

func Gateway(gateway string, status int, message string, err error) *Error {
	return &Error{Kind: KindGateway, Message: fmt.Sprintf("%s: %s", gateway, message), Status: status, Err: err}
}

func GatewayTimeout(gateway string, err error) *Error {
	return &Error{Kind: KindGateway, Message: gateway + ": request timed out", Timeout: true, Err: err}
}

func InvalidSignature(message string) *Error {
	return &Error{Kind: KindInvalidSignature, Message: message}
}

func Notification(message string, err error) *Error {
	return &Error{Kind: KindNotification, Message: message, Err: err}
}

func NotFound(message string) *Error {
	return &Error{Kind: KindNotFound, Message: message}
}

func Internal(message string, err error) *Error {
	return &Error{Kind: KindInternal, Message: message, Err: err}
}

// As returns the *Error in err's chain, wrapping unknown errors as internal
func As(err error) *Error {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return Internal("unexpected error", err)
}

// KindOf reports the kind of err, KindInternal for foreign errors
func KindOf(err error) Kind {
	return As(err).Kind
}

// Is reports whether err carries the given kind
func Is(err error, kind Kind) bool {
	var appErr *Error
	return errors.As(err, &appErr) && appErr.Kind == kind
}
