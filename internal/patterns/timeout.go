package patterns

import (
	"context"
	"time"
)

// GatewayTimeout bounds every outbound payment gateway call
const GatewayTimeout = 30 * time.Second

// MailTimeout bounds a single transactional email send
const MailTimeout = 15 * time.Second

// WithTimeout derives a bounded context from the caller's, falling back to d when d is zero
func WithTimeout(ctx context.Context, d time.Duration, fallback time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		d = fallback
	}
	return context.WithTimeout(ctx, d)
}
