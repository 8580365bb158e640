package payment

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/ashendes/commerce-api/internal/apperr"
	"github.com/ashendes/commerce-api/internal/config"
	"github.com/ashendes/commerce-api/internal/idgen"
	"github.com/ashendes/commerce-api/internal/models"
	rzperrors "github.com/razorpay/razorpay-go/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGateway struct {
	name       Provider
	configured bool
	calls      int
	create     func(ctx context.Context, req models.PaymentRequest) (*models.PaymentResult, error)
}

func (f *fakeGateway) Name() Provider   { return f.name }
func (f *fakeGateway) Configured() bool { return f.configured }

func (f *fakeGateway) CreateOrder(ctx context.Context, req models.PaymentRequest) (*models.PaymentResult, error) {
	f.calls++
	return f.create(ctx, req)
}

func (f *fakeGateway) VerifyPayment(ctx context.Context, proof models.PaymentProof) (*models.PaymentResult, error) {
	f.calls++
	return &models.PaymentResult{Success: true, Gateway: string(f.name)}, nil
}

func TestParseProvider(t *testing.T) {
	p, err := ParseProvider(" Razorpay ")
	require.NoError(t, err)
	assert.Equal(t, ProviderRazorpay, p)

	_, err = ParseProvider("paypal")
	assert.True(t, apperr.Is(err, apperr.KindValidation))
	_, err = ParseProvider("cod")
	assert.Error(t, err)
}

func TestRegistryRejectsUnsupportedBeforeAnyCall(t *testing.T) {
	gw := &fakeGateway{name: ProviderStripe, configured: true}
	r := NewRegistry(time.Second, gw)

	_, err := r.CreateOrder(context.Background(), "paypal", models.PaymentRequest{OrderID: "ORD_1", Amount: 10})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported payment gateway")
	assert.Zero(t, gw.calls)
}

func TestRegistryFailsFastWhenNotConfigured(t *testing.T) {
	gw := &fakeGateway{name: ProviderRazorpay, configured: false}
	r := NewRegistry(time.Second, gw)

	_, err := r.CreateOrder(context.Background(), "razorpay", models.PaymentRequest{OrderID: "ORD_1", Amount: 10})
	assert.True(t, apperr.Is(err, apperr.KindNotConfigured))
	assert.Zero(t, gw.calls)

	_, err = r.VerifyPayment(context.Background(), "stripe", models.PaymentProof{})
	assert.True(t, apperr.Is(err, apperr.KindNotConfigured))
}

func TestRegistryConvertsTimeout(t *testing.T) {
	gw := &fakeGateway{name: ProviderStripe, configured: true, create: func(ctx context.Context, _ models.PaymentRequest) (*models.PaymentResult, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}}
	r := NewRegistry(20*time.Millisecond, gw)

	_, err := r.CreateOrder(context.Background(), "stripe", models.PaymentRequest{OrderID: "ORD_1", Amount: 10})
	require.Error(t, err)
	appErr := apperr.As(err)
	assert.Equal(t, apperr.KindGateway, appErr.Kind)
	assert.True(t, appErr.Timeout)
	assert.Equal(t, http.StatusRequestTimeout, appErr.HTTPStatus())
}

func TestRegistryOpensBreakerOnUpstreamFaults(t *testing.T) {
	gw := &fakeGateway{name: ProviderStripe, configured: true, create: func(context.Context, models.PaymentRequest) (*models.PaymentResult, error) {
		return nil, errors.New("connection reset")
	}}
	r := NewRegistry(time.Second, gw)

	for i := 0; i < 5; i++ {
		_, err := r.CreateOrder(context.Background(), "stripe", models.PaymentRequest{OrderID: "ORD_1", Amount: 10})
		require.Error(t, err)
	}
	_, err := r.CreateOrder(context.Background(), "stripe", models.PaymentRequest{OrderID: "ORD_1", Amount: 10})
	assert.Equal(t, http.StatusServiceUnavailable, apperr.As(err).HTTPStatus())
	assert.Equal(t, 5, gw.calls)
}

func TestRazorpayCreateOrderConvertsUnits(t *testing.T) {
	api := &fakeRazorpayAPI{order: map[string]interface{}{
		"id": "order_abc", "amount": float64(149700), "currency": "INR", "receipt": "ORD_1", "status": "created",
	}}
	r := &Razorpay{api: api, keyID: "rzp_test", secret: "secret", currency: "INR"}

	res, err := r.CreateOrder(context.Background(), models.PaymentRequest{OrderID: "ORD_1", Amount: 1497, CustomerEmail: "a@b.com"})
	require.NoError(t, err)

	assert.Equal(t, int64(149700), api.created["amount"])
	assert.Equal(t, "ORD_1", api.created["receipt"])
	assert.Equal(t, 1497.0, res.Amount)
	assert.Equal(t, "order_abc", res.OrderID)
	assert.Equal(t, "rzp_test", res.Extra["keyId"])
}

func TestRazorpayVerifyDoesNotFetchOnBadSignature(t *testing.T) {
	api := &fakeRazorpayAPI{}
	r := &Razorpay{api: api, keyID: "rzp_test", secret: "secret", currency: "INR"}

	_, err := r.VerifyPayment(context.Background(), models.PaymentProof{
		RazorpayOrderID:   "order_abc",
		RazorpayPaymentID: "pay_1",
		RazorpaySignature: "deadbeef",
	})
	assert.True(t, apperr.Is(err, apperr.KindInvalidSignature))
	assert.Zero(t, api.fetches)
}

func TestRazorpayVerifyFetchesOnValidSignature(t *testing.T) {
	api := &fakeRazorpayAPI{payment: map[string]interface{}{
		"status": "captured", "amount": float64(89900), "currency": "INR", "method": "upi",
	}}
	r := &Razorpay{api: api, keyID: "rzp_test", secret: "secret", currency: "INR"}

	res, err := r.VerifyPayment(context.Background(), models.PaymentProof{
		RazorpayOrderID:   "order_abc",
		RazorpayPaymentID: "pay_1",
		RazorpaySignature: RazorpaySignature("secret", "order_abc", "pay_1"),
	})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, 899.0, res.Amount)
	assert.Equal(t, 1, api.fetches)
}

func TestUnconfiguredAdapters(t *testing.T) {
	ids := idgen.New()
	assert.False(t, NewRazorpay(config.RazorpayConfig{}, "INR").Configured())
	assert.False(t, NewStripe(config.StripeConfig{}, "INR", ids).Configured())

	_, err := NewStripe(config.StripeConfig{}, "INR", ids).CreateOrder(context.Background(), models.PaymentRequest{})
	assert.True(t, apperr.Is(err, apperr.KindNotConfigured))
}

func TestMinorUnitRoundTrip(t *testing.T) {
	assert.Equal(t, int64(29999), toMinor(299.99))
	assert.Equal(t, int64(10), toMinor(0.1))
	assert.Equal(t, 299.99, fromMinor(toMinor(299.99)))
}

type fakeRazorpayAPI struct {
	order   map[string]interface{}
	payment map[string]interface{}
	created map[string]interface{}
	fetches int
	calls   int
	err     error
}

func (f *fakeRazorpayAPI) CreateOrder(data map[string]interface{}) (map[string]interface{}, error) {
	f.calls++
	f.created = data
	if f.err != nil {
		return nil, f.err
	}
	return f.order, nil
}

func (f *fakeRazorpayAPI) FetchPayment(string) (map[string]interface{}, error) {
	f.fetches++
	return f.payment, nil
}

func TestRazorpayErrorStatuses(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"bad request", &rzperrors.BadRequestError{Message: "amount invalid"}, http.StatusBadRequest},
		{"gateway", &rzperrors.GatewayError{Message: "bank down"}, http.StatusBadGateway},
		{"server", &rzperrors.ServerError{Message: "oops"}, http.StatusBadGateway},
		{"transport", &url.Error{Op: "Post", URL: "https://api.razorpay.com", Err: errors.New("connection refused")}, http.StatusBadGateway},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.status, apperr.As(razorpayError(tc.err)).HTTPStatus())
		})
	}
}

func TestRazorpayOutageOpensBreaker(t *testing.T) {
	api := &fakeRazorpayAPI{err: &url.Error{Op: "Post", URL: "https://api.razorpay.com/v1/orders", Err: errors.New("connection refused")}}
	r := NewRegistry(time.Second, &Razorpay{api: api, keyID: "rzp_test", secret: "secret", currency: "INR"})
	req := models.PaymentRequest{OrderID: "ORD_1", Amount: 10}

	for i := 0; i < 5; i++ {
		_, err := r.CreateOrder(context.Background(), "razorpay", req)
		require.Error(t, err)
		assert.Equal(t, http.StatusBadGateway, apperr.As(err).HTTPStatus())
	}
	_, err := r.CreateOrder(context.Background(), "razorpay", req)
	assert.Equal(t, http.StatusServiceUnavailable, apperr.As(err).HTTPStatus())
	assert.Equal(t, 5, api.calls)
}

func TestRazorpayRejectedRequestLeavesBreakerClosed(t *testing.T) {
	api := &fakeRazorpayAPI{err: &rzperrors.BadRequestError{Message: "amount invalid"}}
	r := NewRegistry(time.Second, &Razorpay{api: api, keyID: "rzp_test", secret: "secret", currency: "INR"})
	req := models.PaymentRequest{OrderID: "ORD_1", Amount: 10}

	for i := 0; i < 6; i++ {
		_, err := r.CreateOrder(context.Background(), "razorpay", req)
		assert.Equal(t, http.StatusBadRequest, apperr.As(err).HTTPStatus())
	}
	assert.Equal(t, 6, api.calls)
}
