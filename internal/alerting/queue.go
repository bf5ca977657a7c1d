package alerting

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"digiforge-analytics/internal/metrics"
)

var (
	ErrQueueFull   = errors.New("delivery queue full")
	ErrQueueClosed = errors.New("delivery queue closed")
)

// deliveryQueue runs network deliveries on one goroutine so a slow broker never
// holds up record processing. Deliveries are dropped when the buffer is full.
type deliveryQueue struct {
	name    string
	timeout time.Duration
	logger  *zap.Logger

	mu     sync.RWMutex
	closed bool
	items  chan func(context.Context) error
	done   chan struct{}
}

func newDeliveryQueue(name string, size int, timeout time.Duration, logger *zap.Logger) *deliveryQueue {
	q := &deliveryQueue{
		name:    name,
		timeout: timeout,
		logger:  logger,
		items:   make(chan func(context.Context) error, size),
		done:    make(chan struct{}),
	}
	go q.run()
	return q
}

func (q *deliveryQueue) enqueue(deliver func(context.Context) error) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrQueueClosed
	}
	select {
	case q.items <- deliver:
		return nil
	default:
		return ErrQueueFull
	}
}

func (q *deliveryQueue) run() {
	defer close(q.done)
	for deliver := range q.items {
		ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
		if err := deliver(ctx); err != nil {
			metrics.SinkErrors.WithLabelValues(q.name).Inc()
			q.logger.Warn("delivery failed", zap.String("sink", q.name), zap.Error(err))
		}
		cancel()
	}
}

// close stops accepting deliveries and waits for the queued ones to finish.
func (q *deliveryQueue) close() {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.items)
	}
	q.mu.Unlock()
	<-q.done
}
