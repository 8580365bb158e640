package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/ashendes/commerce-api/internal/apperr"
	"github.com/ashendes/commerce-api/internal/config"
	"github.com/ashendes/commerce-api/internal/idgen"
	"github.com/ashendes/commerce-api/internal/metrics"
	"github.com/ashendes/commerce-api/internal/models"
	"github.com/ashendes/commerce-api/internal/patterns"
	"github.com/go-playground/validator/v10"
	"github.com/go-resty/resty/v2"
	log "github.com/sirupsen/logrus"
)

const (
	cashfreeSandboxURL    = "https://sandbox.cashfree.com/pg"
	cashfreeProductionURL = "https://api.cashfree.com/pg"
)

var (
	cashfreeOrderIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{3,50}$`)
	validate               = validator.New()
)

// Cashfree talks to the Cashfree PG REST API directly
type Cashfree struct {
	client  *resty.Client
	cfg     config.CashfreeConfig
	baseURL string
	ids     *idgen.Generator
	breaker *patterns.CircuitBreakerWrapper
}

func NewCashfree(cfg config.CashfreeConfig, timeout time.Duration, ids *idgen.Generator) *Cashfree {
	if timeout <= 0 {
		timeout = patterns.GatewayTimeout
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = cashfreeSandboxURL
		if cfg.Env == "production" {
			baseURL = cashfreeProductionURL
		}
	}

	return &Cashfree{
		client: resty.New().
			SetBaseURL(strings.TrimRight(baseURL, "/")).
			SetTimeout(timeout).
			SetRetryCount(0).
			SetHeader("Content-Type", "application/json").
			SetHeader("Accept", "application/json"),
		cfg:     cfg,
		baseURL: baseURL,
		ids:     ids,
		breaker: patterns.NewCircuitBreaker("cashfree", "payment-gateway", tripsBreaker),
	}
}

func (c *Cashfree) Configured() bool {
	return c.cfg.Configured()
}

// ValidateCashfreeOrder lists every problem with the request, nothing is sent when the list is non-empty
func ValidateCashfreeOrder(req models.CashfreeOrderRequest) []string {
	var problems []string
	if req.OrderAmount <= 0 {
		problems = append(problems, "orderAmount must be greater than 0")
	}
	if strings.TrimSpace(req.CustomerName) == "" {
		problems = append(problems, "customerName is required")
	}
	if err := validate.Var(req.CustomerEmail, "required,email"); err != nil {
		problems = append(problems, "customerEmail must be a valid email address")
	}
	if err := validate.Var(req.CustomerPhone, "required,numeric,len=10"); err != nil {
		problems = append(problems, "customerPhone must be a 10 digit number")
	}
	if req.OrderID != "" && !cashfreeOrderIDPattern.MatchString(req.OrderID) {
		problems = append(problems, "orderId must be 3-50 characters of letters, digits, '-' or '_'")
	}
	if req.OrderCurrency != "" && len(req.OrderCurrency) != 3 {
		problems = append(problems, "orderCurrency must be a 3 letter currency code")
	}
	return problems
}

type cashfreeCustomer struct {
	CustomerID    string `json:"customer_id"`
	CustomerName  string `json:"customer_name"`
	CustomerEmail string `json:"customer_email"`
	CustomerPhone string `json:"customer_phone"`
}

type cashfreeOrderMeta struct {
	ReturnURL string `json:"return_url,omitempty"`
	NotifyURL string `json:"notify_url,omitempty"`
}

type cashfreeOrderPayload struct {
	OrderID         string            `json:"order_id"`
	OrderAmount     float64           `json:"order_amount"`
	OrderCurrency   string            `json:"order_currency"`
	CustomerDetails cashfreeCustomer  `json:"customer_details"`
	OrderMeta       cashfreeOrderMeta `json:"order_meta"`
	OrderNote       string            `json:"order_note,omitempty"`
}

// CreateOrder validates, signs and posts a new order. Amounts are rupees on both sides.
func (c *Cashfree) CreateOrder(ctx context.Context, req models.CashfreeOrderRequest) (map[string]any, error) {
	if problems := ValidateCashfreeOrder(req); len(problems) > 0 {
		return nil, apperr.Validation("Validation failed", problems...)
	}
	if !c.Configured() {
		return nil, apperr.NotConfigured("cashfree")
	}

	orderID := req.OrderID
	if orderID == "" {
		orderID = c.ids.OrderID()
	}
	currency := strings.ToUpper(req.OrderCurrency)
	if currency == "" {
		currency = "INR"
	}
	customerID := req.CustomerID
	if customerID == "" {
		customerID = "CUST_" + req.CustomerPhone
	}

	body, err := json.Marshal(cashfreeOrderPayload{
		OrderID:       orderID,
		OrderAmount:   req.OrderAmount,
		OrderCurrency: currency,
		CustomerDetails: cashfreeCustomer{
			CustomerID:    customerID,
			CustomerName:  req.CustomerName,
			CustomerEmail: req.CustomerEmail,
			CustomerPhone: req.CustomerPhone,
		},
		OrderMeta: cashfreeOrderMeta{
			ReturnURL: req.ReturnURL,
			NotifyURL: req.NotifyURL,
		},
		OrderNote: req.OrderNote,
	})
	if err != nil {
		return nil, apperr.Internal("encode cashfree order", err)
	}

	var out map[string]any
	err = c.do(ctx, "create_order", http.MethodPost, "/orders", body, c.ids.IdempotencyKey(orderID), &out)
	if err != nil {
		return nil, err
	}
	log.WithFields(log.Fields{
		"order_id":     orderID,
		"amount":       req.OrderAmount,
		"cf_order_id":  out["cf_order_id"],
		"order_status": out["order_status"],
	}).Info("Cashfree order created")
	return out, nil
}

// GetOrder fetches the order as Cashfree sees it
func (c *Cashfree) GetOrder(ctx context.Context, orderID string) (map[string]any, error) {
	if err := c.checkOrderID(orderID); err != nil {
		return nil, err
	}
	var out map[string]any
	if err := c.do(ctx, "get_order", http.MethodGet, "/orders/"+url.PathEscape(orderID), nil, "", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetPayments lists payment attempts on an order
func (c *Cashfree) GetPayments(ctx context.Context, orderID string) ([]map[string]any, error) {
	if err := c.checkOrderID(orderID); err != nil {
		return nil, err
	}
	var out []map[string]any
	if err := c.do(ctx, "get_payments", http.MethodGet, "/orders/"+url.PathEscape(orderID)+"/payments", nil, "", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// VerifyOrder combines the order and its payments, paid means order_status PAID
func (c *Cashfree) VerifyOrder(ctx context.Context, orderID string) (map[string]any, error) {
	order, err := c.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	payments, err := c.GetPayments(ctx, orderID)
	if err != nil {
		return nil, err
	}
	status, _ := order["order_status"].(string)
	return map[string]any{
		"orderId":     orderID,
		"orderStatus": status,
		"paid":        status == "PAID",
		"order":       order,
		"payments":    payments,
	}, nil
}

// WebhookConfigured reports whether a secret is available to check webhook signatures
func (c *Cashfree) WebhookConfigured() bool {
	return c.cfg.WebhookSecret != ""
}

// VerifyWebhookSignature checks base64(HMAC-SHA256(webhookSecret, timestamp+rawBody))
func (c *Cashfree) VerifyWebhookSignature(rawBody []byte, signature, timestamp string) bool {
	return VerifyWebhookSignature(c.cfg.WebhookSecret, rawBody, signature, timestamp)
}

// Status describes the integration without exposing credentials
func (c *Cashfree) Status() map[string]any {
	return map[string]any{
		"gateway":     "cashfree",
		"configured":  c.Configured(),
		"environment": c.cfg.Env,
		"apiVersion":  c.cfg.APIVersion,
		"baseUrl":     c.baseURL,
		"circuit":     c.breaker.GetState(),
	}
}

func (c *Cashfree) checkOrderID(orderID string) error {
	if !cashfreeOrderIDPattern.MatchString(orderID) {
		return apperr.Validation("invalid order id", "orderId must be 3-50 characters of letters, digits, '-' or '_'")
	}
	if !c.Configured() {
		return apperr.NotConfigured("cashfree")
	}
	return nil
}

// do sends one signed request through the breaker and decodes a 2xx JSON body into out
func (c *Cashfree) do(ctx context.Context, operation, method, path string, body []byte, idempotencyKey string, out any) error {
	start := time.Now()
	_, err := c.breaker.Execute(func() (interface{}, error) {
		return nil, c.send(ctx, method, path, body, idempotencyKey, out)
	})
	err = classify("cashfree", err)
	metrics.ObserveGateway("cashfree", operation, start, err)
	if err != nil {
		log.WithFields(log.Fields{
			"operation": operation,
			"path":      path,
			"error":     err.Error(),
		}).Warn("Cashfree call failed")
	}
	return err
}

func (c *Cashfree) send(ctx context.Context, method, path string, body []byte, idempotencyKey string, out any) error {
	timestamp := strconv.FormatInt(time.Now().Unix(), 10)

	req := c.client.R().
		SetContext(ctx).
		SetHeader("x-client-id", c.cfg.AppID).
		SetHeader("x-client-secret", c.cfg.SecretKey).
		SetHeader("x-api-version", c.cfg.APIVersion).
		SetHeader("x-request-id", idgen.RequestID()).
		SetHeader("x-timestamp", timestamp).
		SetHeader("x-signature", requestSignature(c.cfg.SecretKey, body, timestamp))
	if idempotencyKey != "" {
		req.SetHeader("x-idempotency-key", idempotencyKey)
	}
	if body != nil {
		req.SetBody(body)
	}

	resp, err := req.Execute(method, path)
	if err != nil {
		if isTimeout(err) {
			return apperr.GatewayTimeout("cashfree", err)
		}
		return apperr.Gateway("cashfree", 0, "request failed", err)
	}

	if !resp.IsSuccess() {
		return apperr.Gateway("cashfree", resp.StatusCode(), upstreamMessage(resp), nil)
	}
	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return apperr.Gateway("cashfree", resp.StatusCode(), "malformed response body", err)
	}
	return nil
}

func upstreamMessage(resp *resty.Response) string {
	var body struct {
		Message string `json:"message"`
		Code    string `json:"code"`
	}
	if err := json.Unmarshal(resp.Body(), &body); err == nil && body.Message != "" {
		if body.Code != "" {
			return fmt.Sprintf("%s (%s)", body.Message, body.Code)
		}
		return body.Message
	}
	return fmt.Sprintf("upstream returned %d %s", resp.StatusCode(), http.StatusText(resp.StatusCode()))
}
