package patterns

import (
	"context"
	"fmt"
	"time"

	"github.com/ashendes/commerce-api/internal/metrics"
)

// Bulkhead bounds how many callers use a shared resource at once
type Bulkhead struct {
	semaphore chan struct{}
	name      string
	service   string
	wait      time.Duration
}

// NewBulkhead creates a new bulkhead with specified capacity
func NewBulkhead(size int, wait time.Duration, name, service string) *Bulkhead {
	if size < 1 {
		size = 1
	}
	return &Bulkhead{
		semaphore: make(chan struct{}, size),
		name:      name,
		service:   service,
		wait:      wait,
	}
}

// Execute runs fn once a slot is free, giving up after the bulkhead wait or when ctx ends
func (b *Bulkhead) Execute(ctx context.Context, fn func() error) error {
	timer := time.NewTimer(b.wait)
	defer timer.Stop()

	select {
	case b.semaphore <- struct{}{}:
		metrics.BulkheadActiveRequests.WithLabelValues(b.service, b.name).Inc()
		defer func() {
			<-b.semaphore
			metrics.BulkheadActiveRequests.WithLabelValues(b.service, b.name).Dec()
		}()
		return fn()

	case <-timer.C:
		metrics.BulkheadRejectedRequests.WithLabelValues(b.service, b.name).Inc()
		return fmt.Errorf("bulkhead %s: timeout acquiring resource", b.name)

	case <-ctx.Done():
		metrics.BulkheadRejectedRequests.WithLabelValues(b.service, b.name).Inc()
		return fmt.Errorf("bulkhead %s: %w", b.name, ctx.Err())
	}
}
