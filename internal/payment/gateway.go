// Package payment normalizes the payment gateways behind one interface.
//
// Callers pass and receive amounts in major currency units. Each adapter
// converts to the provider's minor unit at its own boundary.
package payment

import (
	"context"
	"errors"
	"math"
	"net"
	"strings"
	"time"

	"github.com/ashendes/commerce-api/internal/apperr"
	"github.com/ashendes/commerce-api/internal/metrics"
	"github.com/ashendes/commerce-api/internal/models"
	"github.com/ashendes/commerce-api/internal/patterns"
	log "github.com/sirupsen/logrus"
)

// Provider is the closed set of gateways an order can be paid through
type Provider string

const (
	ProviderRazorpay Provider = "razorpay"
	ProviderStripe   Provider = "stripe"
)

// ParseProvider rejects anything outside the enumeration
func ParseProvider(name string) (Provider, error) {
	switch p := Provider(strings.ToLower(strings.TrimSpace(name))); p {
	case ProviderRazorpay, ProviderStripe:
		return p, nil
	default:
		return "", apperr.UnsupportedGateway(name)
	}
}

// Gateway is implemented once per provider
type Gateway interface {
	Name() Provider
	Configured() bool
	CreateOrder(ctx context.Context, req models.PaymentRequest) (*models.PaymentResult, error)
	VerifyPayment(ctx context.Context, proof models.PaymentProof) (*models.PaymentResult, error)
}

type guardedGateway struct {
	gateway Gateway
	breaker *patterns.CircuitBreakerWrapper
}

// Registry selects a gateway by provider and guards every call with a breaker and a timeout
type Registry struct {
	gateways map[Provider]guardedGateway
	timeout  time.Duration
}

func NewRegistry(timeout time.Duration, gateways ...Gateway) *Registry {
	r := &Registry{
		gateways: make(map[Provider]guardedGateway, len(gateways)),
		timeout:  timeout,
	}
	for _, g := range gateways {
		r.gateways[g.Name()] = guardedGateway{
			gateway: g,
			breaker: patterns.NewCircuitBreaker(string(g.Name()), "payment-gateway", tripsBreaker),
		}
	}
	return r
}

// Configured reports whether the provider has credentials
func (r *Registry) Configured(p Provider) bool {
	g, ok := r.gateways[p]
	return ok && g.gateway.Configured()
}

// CreateOrder opens an order or payment intent with the named provider
func (r *Registry) CreateOrder(ctx context.Context, provider string, req models.PaymentRequest) (*models.PaymentResult, error) {
	g, err := r.lookup(provider)
	if err != nil {
		return nil, err
	}
	metrics.PaymentAmount.WithLabelValues(string(g.gateway.Name())).Observe(req.Amount)

	return r.call(ctx, g, "create_order", func(ctx context.Context) (*models.PaymentResult, error) {
		return g.gateway.CreateOrder(ctx, req)
	})
}

// VerifyPayment checks the client-supplied proof with the named provider
func (r *Registry) VerifyPayment(ctx context.Context, provider string, proof models.PaymentProof) (*models.PaymentResult, error) {
	g, err := r.lookup(provider)
	if err != nil {
		return nil, err
	}
	return r.call(ctx, g, "verify_payment", func(ctx context.Context) (*models.PaymentResult, error) {
		return g.gateway.VerifyPayment(ctx, proof)
	})
}

func (r *Registry) lookup(provider string) (guardedGateway, error) {
	p, err := ParseProvider(provider)
	if err != nil {
		return guardedGateway{}, err
	}
	g, ok := r.gateways[p]
	if !ok || !g.gateway.Configured() {
		return guardedGateway{}, apperr.NotConfigured(string(p))
	}
	return g, nil
}

func (r *Registry) call(
	ctx context.Context,
	g guardedGateway,
	operation string,
	fn func(ctx context.Context) (*models.PaymentResult, error),
) (*models.PaymentResult, error) {
	name := string(g.gateway.Name())
	ctx, cancel := patterns.WithTimeout(ctx, r.timeout, patterns.GatewayTimeout)
	defer cancel()

	start := time.Now()
	out, err := g.breaker.Execute(func() (interface{}, error) {
		return fn(ctx)
	})
	err = classify(name, err)
	metrics.ObserveGateway(name, operation, start, err)

	if err != nil {
		log.WithFields(log.Fields{
			"gateway":   name,
			"operation": operation,
			"error":     err.Error(),
		}).Warn("Payment gateway call failed")
		return nil, err
	}
	res, _ := out.(*models.PaymentResult)
	if res == nil {
		return nil, apperr.Internal(name+" returned no result", nil)
	}
	return res, nil
}

// classify turns transport and breaker failures into gateway errors
func classify(gateway string, err error) error {
	if err == nil {
		return nil
	}
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		return appErr
	}
	if errors.Is(err, patterns.ErrCircuitOpen) {
		return apperr.Gateway(gateway, 503, "temporarily unavailable", err)
	}
	if isTimeout(err) {
		return apperr.GatewayTimeout(gateway, err)
	}
	return apperr.Gateway(gateway, 0, err.Error(), err)
}

// tripsBreaker counts only upstream faults, rejected payments and bad input leave the breaker alone
func tripsBreaker(err error) bool {
	var appErr *apperr.Error
	if !errors.As(err, &appErr) {
		return true
	}
	return appErr.Kind == apperr.KindGateway && (appErr.Timeout || appErr.Status == 0 || appErr.Status >= 500)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// toMinor converts rupees to paise (or dollars to cents)
func toMinor(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

func fromMinor(amount int64) float64 {
	return float64(amount) / 100
}

// callWithContext bounds an SDK call that takes no context
func callWithContext[T any](ctx context.Context, fn func() (T, error)) (T, error) {
	type result struct {
		value T
		err   error
	}
	ch := make(chan result, 1)
	go func() {
		v, err := fn()
		ch <- result{v, err}
	}()

	select {
	case r := <-ch:
		return r.value, r.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
