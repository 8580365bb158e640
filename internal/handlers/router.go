// Package handlers exposes the order, email and payment operations over HTTP.
package handlers

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/ashendes/commerce-api/internal/config"
	"github.com/ashendes/commerce-api/internal/metrics"
	"github.com/ashendes/commerce-api/internal/models"
	"github.com/ashendes/commerce-api/internal/notify"
	"github.com/ashendes/commerce-api/internal/orders"
	"github.com/ashendes/commerce-api/internal/payment"
	"github.com/ashendes/commerce-api/internal/webhook"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Mailer is the dispatcher as the handlers see it
type Mailer interface {
	notify.Sender
	Configured() bool
}

// Cashfree is the direct Cashfree surface
type Cashfree interface {
	Configured() bool
	CreateOrder(ctx context.Context, req models.CashfreeOrderRequest) (map[string]any, error)
	VerifyOrder(ctx context.Context, orderID string) (map[string]any, error)
	Status() map[string]any
}

// GatewayStatus reports which SDK gateways have credentials
type GatewayStatus interface {
	Configured(p payment.Provider) bool
}

type WebhookHandler interface {
	Handle(ctx context.Context, rawBody []byte, signature, timestamp string) (*webhook.Ack, error)
}

// Deps are the collaborators built once at startup
type Deps struct {
	Config   *config.Config
	Orders   *orders.Service
	Mailer   Mailer
	Gateways GatewayStatus
	Cashfree Cashfree
	Webhooks WebhookHandler
}

type Handler struct {
	cfg      *config.Config
	orders   *orders.Service
	mailer   Mailer
	gateways GatewayStatus
	cashfree Cashfree
	webhooks WebhookHandler
	started  time.Time
	engine   *gin.Engine
}

func init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterTagNameFunc(models.JSONTagName)
	}
}

// NewRouter builds the gin engine with middleware and every route
func NewRouter(d Deps) *gin.Engine {
	if !d.Config.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}

	h := &Handler{
		cfg:      d.Config,
		orders:   d.Orders,
		mailer:   d.Mailer,
		gateways: d.Gateways,
		cashfree: d.Cashfree,
		webhooks: d.Webhooks,
		started:  time.Now(),
	}

	router := gin.New()
	h.engine = router
	router.HandleMethodNotAllowed = false

	router.Use(RequestID())
	router.Use(RequestLogger())
	router.Use(metrics.PrometheusMiddleware("commerce-api"))
	router.Use(h.Recovery())
	router.Use(CORS(d.Config.HTTP.CORSOrigins))

	router.GET("/health", h.health)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api")
	api.Use(NewRateLimiter(d.Config.HTTP.RateLimitWindow, d.Config.HTTP.RateLimitMax).Middleware())
	{
		o := api.Group("/orders")
		o.POST("/create", h.createOrder)
		o.POST("/cancel/:orderId", h.cancelOrder)
		o.POST("/verify-payment", h.verifyPayment)

		e := api.Group("/email")
		e.POST("/send-confirmation", h.sendConfirmation)
		e.POST("/send-cancellation", h.sendCancellation)
		e.POST("/send-status-update", h.sendStatusUpdate)

		p := api.Group("/payment")
		p.POST("/create-order", h.createCashfreeOrder)
		p.GET("/verify/:orderId", h.verifyCashfreeOrder)
		p.POST("/webhook", h.cashfreeWebhook)
		p.GET("/status", h.paymentStatus)
	}

	router.NoRoute(h.notFound)
	return router
}

func (h *Handler) notFound(c *gin.Context) {
	endpoints := make([]string, 0)
	for _, r := range h.engine.Routes() {
		endpoints = append(endpoints, r.Method+" "+r.Path)
	}
	sort.Strings(endpoints)

	respond(c, http.StatusNotFound, gin.H{
		"success":            false,
		"message":            "Route " + c.Request.Method + " " + c.Request.URL.Path + " not found",
		"error":              "NotFoundError",
		"availableEndpoints": endpoints,
		"timestamp":          timestamp(),
	})
}

func (h *Handler) health(c *gin.Context) {
	respond(c, http.StatusOK, gin.H{
		"status":      "OK",
		"timestamp":   timestamp(),
		"uptime":      time.Since(h.started).Seconds(),
		"environment": h.cfg.App.Env,
		"services": gin.H{
			"razorpay": h.gateways.Configured(payment.ProviderRazorpay),
			"stripe":   h.gateways.Configured(payment.ProviderStripe),
			"cashfree": h.cashfree.Configured(),
			"email":    h.mailer.Configured(),
		},
	})
}
