package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatus(t *testing.T) {
	cases := []struct {
		name string
		err  *Error
		want int
	}{
		{"validation", Validation("bad"), http.StatusBadRequest},
		{"unsupported gateway", UnsupportedGateway("paypal"), http.StatusBadRequest},
		{"signature", InvalidSignature("nope"), http.StatusBadRequest},
		{"not configured", NotConfigured("stripe"), http.StatusServiceUnavailable},
		{"not found", NotFound("order"), http.StatusNotFound},
		{"gateway 4xx", Gateway("cashfree", 422, "bad amount", nil), http.StatusBadRequest},
		{"gateway 5xx", Gateway("cashfree", 500, "boom", nil), http.StatusBadGateway},
		{"gateway 503", Gateway("cashfree", 503, "down", nil), http.StatusServiceUnavailable},
		{"gateway unknown status", Gateway("stripe", 0, "malformed", nil), http.StatusBadGateway},
		{"gateway timeout", GatewayTimeout("cashfree", nil), http.StatusRequestTimeout},
		{"internal", Internal("x", nil), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.err.HTTPStatus())
		})
	}
}

func TestKindThroughWrapping(t *testing.T) {
	err := fmt.Errorf("create order: %w", NotConfigured("razorpay"))

	assert.True(t, Is(err, KindNotConfigured))
	assert.Equal(t, KindNotConfigured, KindOf(err))
	assert.Equal(t, KindInternal, KindOf(errors.New("plain")))
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("dial tcp: refused")
	err := Gateway("cashfree", 0, "request failed", cause)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "dial tcp: refused")
}
