package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// ErrInvalid marks configuration failures so callers can tell them apart from runtime errors
var ErrInvalid = errors.New("invalid configuration")

// Config holds everything read from the environment at process start
type Config struct {
	App      AppConfig
	HTTP     HTTPConfig
	Razorpay RazorpayConfig
	Stripe   StripeConfig
	Cashfree CashfreeConfig
	Email    EmailConfig
	Webhook  WebhookConfig
	Events   EventsConfig
}

type AppConfig struct {
	Env      string
	LogLevel string
	URL      string
	Currency string
}

type HTTPConfig struct {
	Port            string
	CORSOrigins     []string
	RateLimitWindow time.Duration
	RateLimitMax    int
	GatewayTimeout  time.Duration
}

type RazorpayConfig struct {
	KeyID     string
	KeySecret string
}

type StripeConfig struct {
	SecretKey string
}

type CashfreeConfig struct {
	AppID         string
	SecretKey     string
	Env           string
	APIVersion    string
	WebhookSecret string
	// BaseURL overrides the environment-derived endpoint
	BaseURL string
}

type EmailConfig struct {
	Provider       string
	SMTPHost       string
	SMTPPort       int
	SMTPUser       string
	SMTPPass       string
	SMTPSecure     bool
	SendGridAPIKey string
	FromEmail      string
	FromName       string
	MaxConcurrent  int
}

type WebhookConfig struct {
	LedgerPath string
}

type EventsConfig struct {
	Backend      string
	KafkaBrokers []string
	KafkaTopic   string
	RedisAddr    string
	RedisChannel string
}

var defaults = map[string]any{
	"PORT":                    "5000",
	"APP_ENV":                 "development",
	"LOG_LEVEL":               "info",
	"APP_URL":                 "http://localhost:3000",
	"CURRENCY":                "INR",
	"CORS_ORIGIN":             "http://localhost:3000",
	"RATE_LIMIT_WINDOW_MS":    900000,
	"RATE_LIMIT_MAX_REQUESTS": 100,
	"GATEWAY_TIMEOUT":         "30s",
	"RAZORPAY_KEY_ID":         "",
	"RAZORPAY_KEY_SECRET":     "",
	"STRIPE_SECRET_KEY":       "",
	"CASHFREE_APP_ID":         "",
	"CASHFREE_SECRET_KEY":     "",
	"CASHFREE_ENV":            "sandbox",
	"CASHFREE_API_VERSION":    "2023-08-01",
	"CASHFREE_WEBHOOK_SECRET": "",
	"CASHFREE_BASE_URL":       "",
	"EMAIL_PROVIDER":          "smtp",
	"SMTP_HOST":               "",
	"SMTP_PORT":               587,
	"SMTP_USER":               "",
	"SMTP_PASS":               "",
	"SMTP_SECURE":             false,
	"SMTP_MAX_CONCURRENT":     5,
	"SENDGRID_API_KEY":        "",
	"FROM_EMAIL":              "noreply@example.com",
	"FROM_NAME":               "Store",
	"WEBHOOK_LEDGER_PATH":     "",
	"EVENTS_BACKEND":          "log",
	"KAFKA_BROKERS":           "",
	"KAFKA_TOPIC":             "payments.status",
	"REDIS_ADDR":              "",
	"REDIS_CHANNEL":           "payments:status",
}

// Load reads an optional dotenv file, then the process environment
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s failed: %w", envFile, err)
		}
	}

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.AutomaticEnv()
	// NODE_ENV is honoured for deployments that still set it
	if err := v.BindEnv("APP_ENV", "APP_ENV", "NODE_ENV"); err != nil {
		return nil, fmt.Errorf("bind APP_ENV: %w", err)
	}

	return fromViper(v), nil
}

func fromViper(v *viper.Viper) *Config {
	cfg := &Config{
		App: AppConfig{
			Env:      strings.ToLower(v.GetString("APP_ENV")),
			LogLevel: v.GetString("LOG_LEVEL"),
			URL:      strings.TrimRight(v.GetString("APP_URL"), "/"),
			Currency: strings.ToUpper(v.GetString("CURRENCY")),
		},
		HTTP: HTTPConfig{
			Port:            v.GetString("PORT"),
			CORSOrigins:     splitList(v.GetString("CORS_ORIGIN")),
			RateLimitWindow: time.Duration(v.GetInt64("RATE_LIMIT_WINDOW_MS")) * time.Millisecond,
			RateLimitMax:    v.GetInt("RATE_LIMIT_MAX_REQUESTS"),
			GatewayTimeout:  v.GetDuration("GATEWAY_TIMEOUT"),
		},
		Razorpay: RazorpayConfig{
			KeyID:     v.GetString("RAZORPAY_KEY_ID"),
			KeySecret: v.GetString("RAZORPAY_KEY_SECRET"),
		},
		Stripe: StripeConfig{
			SecretKey: v.GetString("STRIPE_SECRET_KEY"),
		},
		Cashfree: CashfreeConfig{
			AppID:         v.GetString("CASHFREE_APP_ID"),
			SecretKey:     v.GetString("CASHFREE_SECRET_KEY"),
			Env:           strings.ToLower(v.GetString("CASHFREE_ENV")),
			APIVersion:    v.GetString("CASHFREE_API_VERSION"),
			WebhookSecret: v.GetString("CASHFREE_WEBHOOK_SECRET"),
			BaseURL:       v.GetString("CASHFREE_BASE_URL"),
		},
		Email: EmailConfig{
			Provider:       strings.ToLower(v.GetString("EMAIL_PROVIDER")),
			SMTPHost:       v.GetString("SMTP_HOST"),
			SMTPPort:       v.GetInt("SMTP_PORT"),
			SMTPUser:       v.GetString("SMTP_USER"),
			SMTPPass:       v.GetString("SMTP_PASS"),
			SMTPSecure:     v.GetBool("SMTP_SECURE"),
			SendGridAPIKey: v.GetString("SENDGRID_API_KEY"),
			FromEmail:      v.GetString("FROM_EMAIL"),
			FromName:       v.GetString("FROM_NAME"),
			MaxConcurrent:  v.GetInt("SMTP_MAX_CONCURRENT"),
		},
		Webhook: WebhookConfig{
			LedgerPath: v.GetString("WEBHOOK_LEDGER_PATH"),
		},
		Events: EventsConfig{
			Backend:      strings.ToLower(v.GetString("EVENTS_BACKEND")),
			KafkaBrokers: splitList(v.GetString("KAFKA_BROKERS")),
			KafkaTopic:   v.GetString("KAFKA_TOPIC"),
			RedisAddr:    v.GetString("REDIS_ADDR"),
			RedisChannel: v.GetString("REDIS_CHANNEL"),
		},
	}
	if cfg.Cashfree.WebhookSecret == "" {
		cfg.Cashfree.WebhookSecret = cfg.Cashfree.SecretKey
	}
	return cfg
}

// Validate checks the combinations that cannot work at runtime
func (c *Config) Validate() error {
	if c.HTTP.Port == "" {
		return fmt.Errorf("%w: PORT is required", ErrInvalid)
	}
	if c.HTTP.GatewayTimeout <= 0 {
		return fmt.Errorf("%w: GATEWAY_TIMEOUT must be positive", ErrInvalid)
	}
	if c.HTTP.RateLimitMax <= 0 || c.HTTP.RateLimitWindow <= 0 {
		return fmt.Errorf("%w: rate limit window and max requests must be positive", ErrInvalid)
	}

	switch c.Cashfree.Env {
	case "sandbox", "production":
	default:
		return fmt.Errorf("%w: CASHFREE_ENV must be sandbox or production, got %q", ErrInvalid, c.Cashfree.Env)
	}

	switch c.Email.Provider {
	case "smtp", "sendgrid":
	default:
		return fmt.Errorf("%w: EMAIL_PROVIDER must be smtp or sendgrid, got %q", ErrInvalid, c.Email.Provider)
	}
	if c.IsProduction() && !c.Email.Configured() {
		return fmt.Errorf("%w: %s email credentials are required in production", ErrInvalid, c.Email.Provider)
	}

	switch c.Events.Backend {
	case "log":
	case "kafka":
		if len(c.Events.KafkaBrokers) == 0 {
			return fmt.Errorf("%w: KAFKA_BROKERS is required when EVENTS_BACKEND=kafka", ErrInvalid)
		}
	case "redis":
		if c.Events.RedisAddr == "" {
			return fmt.Errorf("%w: REDIS_ADDR is required when EVENTS_BACKEND=redis", ErrInvalid)
		}
	default:
		return fmt.Errorf("%w: EVENTS_BACKEND must be log, kafka or redis, got %q", ErrInvalid, c.Events.Backend)
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.App.Env == "production"
}

func (c *Config) IsDevelopment() bool {
	return c.App.Env == "development"
}

func (r RazorpayConfig) Configured() bool {
	return r.KeyID != "" && r.KeySecret != ""
}

func (s StripeConfig) Configured() bool {
	return s.SecretKey != ""
}

func (c CashfreeConfig) Configured() bool {
	return c.AppID != "" && c.SecretKey != ""
}

// Configured reports whether the selected email provider has credentials
func (e EmailConfig) Configured() bool {
	switch e.Provider {
	case "sendgrid":
		return e.SendGridAPIKey != ""
	default:
		return e.SMTPHost != "" && e.SMTPUser != "" && e.SMTPPass != ""
	}
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
