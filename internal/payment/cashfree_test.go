package payment

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ashendes/commerce-api/internal/apperr"
	"github.com/ashendes/commerce-api/internal/config"
	"github.com/ashendes/commerce-api/internal/idgen"
	"github.com/ashendes/commerce-api/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCashfree(t *testing.T, handler http.HandlerFunc, timeout time.Duration) (*Cashfree, *int32) {
	t.Helper()
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	cfg := config.CashfreeConfig{
		AppID:         "app_id",
		SecretKey:     "cf_secret",
		Env:           "sandbox",
		APIVersion:    "2023-08-01",
		WebhookSecret: "cf_secret",
		BaseURL:       srv.URL,
	}
	return NewCashfree(cfg, timeout, idgen.New()), &hits
}

func validCashfreeRequest() models.CashfreeOrderRequest {
	return models.CashfreeOrderRequest{
		OrderID:       "ORD_cf_1",
		OrderAmount:   499.5,
		CustomerName:  "Asha",
		CustomerEmail: "asha@example.com",
		CustomerPhone: "9876543210",
	}
}

func TestValidateCashfreeOrder(t *testing.T) {
	assert.Empty(t, ValidateCashfreeOrder(validCashfreeRequest()))

	problems := ValidateCashfreeOrder(models.CashfreeOrderRequest{OrderAmount: -5, OrderID: "a b"})
	assert.Contains(t, problems, "orderAmount must be greater than 0")
	assert.Contains(t, problems, "customerName is required")
	assert.Contains(t, problems, "customerEmail must be a valid email address")
	assert.Contains(t, problems, "customerPhone must be a 10 digit number")
	assert.Len(t, problems, 5)
}

func TestCashfreeNegativeAmountFailsBeforeNetwork(t *testing.T) {
	cf, hits := newTestCashfree(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}, time.Second)

	req := validCashfreeRequest()
	req.OrderAmount = -5
	_, err := cf.CreateOrder(context.Background(), req)

	require.Error(t, err)
	appErr := apperr.As(err)
	assert.Equal(t, apperr.KindValidation, appErr.Kind)
	assert.Contains(t, appErr.Details, "orderAmount must be greater than 0")
	assert.Zero(t, atomic.LoadInt32(hits))
}

func TestCashfreeCreateOrderSignsExactBody(t *testing.T) {
	var gotBody []byte
	var gotHeaders http.Header
	cf, _ := newTestCashfree(t, func(w http.ResponseWriter, r *http.Request) {
		gotHeaders = r.Header.Clone()
		gotBody, _ = io.ReadAll(r.Body)
		assert.Equal(t, "/orders", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"cf_order_id":"123","order_id":"ORD_cf_1","order_status":"ACTIVE","payment_session_id":"sess_1"}`))
	}, time.Second)

	out, err := cf.CreateOrder(context.Background(), validCashfreeRequest())
	require.NoError(t, err)
	assert.Equal(t, "sess_1", out["payment_session_id"])

	assert.Equal(t, "app_id", gotHeaders.Get("x-client-id"))
	assert.Equal(t, "2023-08-01", gotHeaders.Get("x-api-version"))
	assert.Regexp(t, `^ORD_cf_1_\d+$`, gotHeaders.Get("x-idempotency-key"))
	ts := gotHeaders.Get("x-timestamp")
	require.NotEmpty(t, ts)
	assert.Equal(t, requestSignature("cf_secret", gotBody, ts), gotHeaders.Get("x-signature"))

	var payload map[string]any
	require.NoError(t, json.Unmarshal(gotBody, &payload))
	assert.Equal(t, 499.5, payload["order_amount"])
	assert.Equal(t, "INR", payload["order_currency"])
}

func TestCashfreeIdempotencyKeyDiffersPerCall(t *testing.T) {
	var keys []string
	cf, _ := newTestCashfree(t, func(w http.ResponseWriter, r *http.Request) {
		keys = append(keys, r.Header.Get("x-idempotency-key"))
		_, _ = w.Write([]byte(`{"order_status":"ACTIVE"}`))
	}, time.Second)
	now := time.UnixMilli(1_700_000_000_000)
	cf.ids = &idgen.Generator{Now: func() time.Time {
		now = now.Add(time.Millisecond)
		return now
	}}

	for i := 0; i < 2; i++ {
		_, err := cf.CreateOrder(context.Background(), validCashfreeRequest())
		require.NoError(t, err)
	}
	require.Len(t, keys, 2)
	assert.NotEqual(t, keys[0], keys[1])
}

func TestCashfreeUpstreamErrorCarriesStatusAndMessage(t *testing.T) {
	cf, _ := newTestCashfree(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"message":"order_amount invalid","code":"order_amount_invalid"}`))
	}, time.Second)

	_, err := cf.CreateOrder(context.Background(), validCashfreeRequest())
	appErr := apperr.As(err)
	assert.Equal(t, apperr.KindGateway, appErr.Kind)
	assert.Equal(t, http.StatusUnprocessableEntity, appErr.Status)
	assert.Contains(t, appErr.Message, "order_amount invalid")
}

func TestCashfreeMalformedBodyIsGatewayError(t *testing.T) {
	cf, _ := newTestCashfree(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>oops</html>`))
	}, time.Second)

	_, err := cf.CreateOrder(context.Background(), validCashfreeRequest())
	appErr := apperr.As(err)
	assert.Equal(t, apperr.KindGateway, appErr.Kind)
	assert.Contains(t, appErr.Message, "malformed")
}

func TestCashfreeTimeoutIsTyped(t *testing.T) {
	cf, _ := newTestCashfree(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}, 30*time.Millisecond)

	_, err := cf.CreateOrder(context.Background(), validCashfreeRequest())
	appErr := apperr.As(err)
	assert.Equal(t, apperr.KindGateway, appErr.Kind)
	assert.True(t, appErr.Timeout)
}

func TestCashfreeVerifyOrder(t *testing.T) {
	cf, _ := newTestCashfree(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/orders/ORD_cf_1":
			_, _ = w.Write([]byte(`{"order_id":"ORD_cf_1","order_status":"PAID","order_amount":499.5}`))
		case "/orders/ORD_cf_1/payments":
			_, _ = w.Write([]byte(`[{"cf_payment_id":42,"payment_status":"SUCCESS"}]`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}, time.Second)

	out, err := cf.VerifyOrder(context.Background(), "ORD_cf_1")
	require.NoError(t, err)
	assert.Equal(t, true, out["paid"])
	assert.Len(t, out["payments"], 1)
}

func TestCashfreeNotConfigured(t *testing.T) {
	cf := NewCashfree(config.CashfreeConfig{Env: "sandbox"}, time.Second, idgen.New())

	_, err := cf.CreateOrder(context.Background(), validCashfreeRequest())
	assert.True(t, apperr.Is(err, apperr.KindNotConfigured))
	assert.Equal(t, false, cf.Status()["configured"])
	assert.Equal(t, cashfreeSandboxURL, cf.Status()["baseUrl"])
}
