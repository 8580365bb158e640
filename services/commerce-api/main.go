package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ashendes/commerce-api/internal/config"
	"github.com/ashendes/commerce-api/internal/handlers"
	"github.com/ashendes/commerce-api/internal/idgen"
	"github.com/ashendes/commerce-api/internal/notify"
	"github.com/ashendes/commerce-api/internal/orders"
	"github.com/ashendes/commerce-api/internal/payment"
	"github.com/ashendes/commerce-api/internal/webhook"
	log "github.com/sirupsen/logrus"
)

func init() {
	log.SetFormatter(&log.JSONFormatter{})
	log.SetLevel(log.InfoLevel)
}

func main() {
	envFile := flag.String("env", ".env", "optional dotenv file")
	flag.Parse()

	cfg, err := config.Load(*envFile)
	if err != nil {
		log.WithError(err).Fatal("Failed to load configuration")
	}
	if err := cfg.Validate(); err != nil {
		log.WithError(err).Fatal("Configuration error")
	}
	if level, err := log.ParseLevel(cfg.App.LogLevel); err == nil {
		log.SetLevel(level)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ids := idgen.New()
	registry := payment.NewRegistry(cfg.HTTP.GatewayTimeout,
		payment.NewRazorpay(cfg.Razorpay, cfg.App.Currency),
		payment.NewStripe(cfg.Stripe, cfg.App.Currency, ids),
	)
	cashfree := payment.NewCashfree(cfg.Cashfree, cfg.HTTP.GatewayTimeout, ids)

	transport := notify.NewTransport(cfg.Email)
	if smtpTransport, ok := transport.(*notify.SMTPTransport); ok {
		verifyCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
		err := smtpTransport.Verify(verifyCtx)
		cancel()
		if err != nil {
			if cfg.IsProduction() {
				log.WithError(err).Fatal("SMTP transport verification failed")
			}
			log.WithError(err).Warn("SMTP transport verification failed, emails will not be delivered")
		}
	}
	mailer := notify.NewDispatcher(transport, notify.NewRenderer(cfg.Email.FromName, cfg.App.URL))

	var ledger webhook.Ledger = webhook.NopLedger{}
	if cfg.Webhook.LedgerPath != "" {
		bolt, err := webhook.OpenBoltLedger(cfg.Webhook.LedgerPath)
		if err != nil {
			log.WithError(err).Fatal("Failed to open webhook ledger")
		}
		ledger = bolt
	}
	defer ledger.Close()

	publisher, err := webhook.NewPublisher(ctx, cfg.Events)
	if err != nil {
		log.WithError(err).Fatal("Failed to start status event publisher")
	}
	defer publisher.Close()

	router := handlers.NewRouter(handlers.Deps{
		Config:   cfg,
		Orders:   orders.NewService(registry, mailer, nil, ids),
		Mailer:   mailer,
		Gateways: registry,
		Cashfree: cashfree,
		Webhooks: webhook.NewIngestor(cashfree, ledger, publisher),
	})

	server := &http.Server{
		Addr:              ":" + cfg.HTTP.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.WithFields(log.Fields{
			"port":        cfg.HTTP.Port,
			"environment": cfg.App.Env,
			"razorpay":    cfg.Razorpay.Configured(),
			"stripe":      cfg.Stripe.Configured(),
			"cashfree":    cfg.Cashfree.Configured(),
			"email":       transport.Name(),
			"events":      cfg.Events.Backend,
		}).Info("Commerce API starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info("Received shutdown signal, gracefully shutting down")
	case err := <-serverErr:
		log.WithError(err).Error("HTTP server error")
		os.Exit(1)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("HTTP server shutdown error")
		return
	}
	log.Info("HTTP server stopped gracefully")
}
