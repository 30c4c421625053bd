package dispatch

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"

	"tg_concierge_bot/internal/event"
	"tg_concierge_bot/internal/logging"
	"tg_concierge_bot/internal/metrics"
)

// Handler processes one event to completion.
type Handler func(ctx context.Context, ev event.Event)

// Pool drains inbound events through a fixed set of workers over a bounded
// queue. When the queue is full the event is dropped rather than blocking the
// platform's update loop.
type Pool struct {
	workers int
	queue   chan event.Event
	handler Handler
	logger  *logrus.Entry

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// NewPool constructs a Pool. workers and queueSize fall back to sane minimums.
func NewPool(workers, queueSize int, handler Handler, logger *logrus.Entry) *Pool {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 1 {
		queueSize = workers * 4
	}
	if logger == nil {
		logger = logging.Logger()
	}

	return &Pool{
		workers: workers,
		queue:   make(chan event.Event, queueSize),
		handler: handler,
		logger:  logger,
	}
}

// Start launches the workers. They exit when the context is cancelled or the
// queue is closed and drained.
func (p *Pool) Start(ctx context.Context) {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.work(ctx)
	}

	p.logger.WithFields(logging.Fields{
		"event":   "pool_started",
		"workers": p.workers,
	}).Info("dispatch pool started")
}

func (p *Pool) work(ctx context.Context) {
	defer p.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-p.queue:
			if !ok {
				return
			}
			p.run(ctx, ev)
		}
	}
}

// run isolates handler panics so one bad event cannot take a worker down.
func (p *Pool) run(ctx context.Context, ev event.Event) {
	defer func() {
		if rec := recover(); rec != nil {
			p.logger.WithFields(logging.Fields{
				"event": "handler_panic",
				"kind":  event.Kind(ev),
				"panic": rec,
			}).Error("recovered from event handler panic")
		}
	}()

	p.handler(ctx, ev)
}

// Submit enqueues an event. It reports false when the pool is stopped or the
// queue is full; the dropped event is counted and logged.
func (p *Pool) Submit(ev event.Event) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return false
	}

	select {
	case p.queue <- ev:
		return true
	default:
		metrics.DroppedEvents.Inc()
		p.logger.WithFields(logging.Fields{
			"event": "event_dropped",
			"kind":  event.Kind(ev),
		}).Warn("dispatch queue full, dropping event")
		return false
	}
}

// Stop closes the queue and waits for in-flight events to finish.
func (p *Pool) Stop() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.queue)
	p.mu.Unlock()

	p.wg.Wait()
}
