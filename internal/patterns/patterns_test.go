package patterns

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errUpstream = errors.New("upstream down")

func TestCircuitBreakerOpensAfterFailures(t *testing.T) {
	cb := NewCircuitBreaker("test-open", "test", nil)

	for i := 0; i < 5; i++ {
		_, err := cb.Execute(func() (interface{}, error) { return nil, errUpstream })
		require.ErrorIs(t, err, errUpstream)
	}

	_, err := cb.Execute(func() (interface{}, error) { return "ok", nil })
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.Equal(t, "open", cb.GetState())
}

func TestCircuitBreakerIgnoresNonTrippingErrors(t *testing.T) {
	errDeclined := errors.New("card declined")
	cb := NewCircuitBreaker("test-ignore", "test", func(err error) bool {
		return !errors.Is(err, errDeclined)
	})

	for i := 0; i < 10; i++ {
		_, err := cb.Execute(func() (interface{}, error) { return nil, errDeclined })
		require.ErrorIs(t, err, errDeclined)
	}
	assert.Equal(t, "closed", cb.GetState())
}

func TestBulkheadLimitsConcurrency(t *testing.T) {
	b := NewBulkhead(1, 20*time.Millisecond, "test", "test")
	release := make(chan struct{})
	started := make(chan struct{})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = b.Execute(context.Background(), func() error {
			close(started)
			<-release
			return nil
		})
	}()
	<-started

	err := b.Execute(context.Background(), func() error { return nil })
	assert.ErrorContains(t, err, "timeout acquiring resource")

	close(release)
	wg.Wait()
	assert.NoError(t, b.Execute(context.Background(), func() error { return nil }))
}

func TestBulkheadHonoursContext(t *testing.T) {
	b := NewBulkhead(1, time.Second, "ctx", "test")
	hold := make(chan struct{})
	started := make(chan struct{})
	go func() {
		_ = b.Execute(context.Background(), func() error {
			close(started)
			<-hold
			return nil
		})
	}()
	<-started
	defer close(hold)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := b.Execute(ctx, func() error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}
