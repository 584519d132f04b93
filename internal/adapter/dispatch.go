package adapter

import (
	"context"
	"math/rand"
	"sync/atomic"
	"time"

	"github.com/yanun0323/logs"

	"arbitragefx/internal/errors"
	"arbitragefx/internal/og"
	"arbitragefx/internal/strategy"
)

var ErrDispatchQueueFull = errors.New("adapter dispatch queue full")

// Backoff is an exponential retry schedule with jitter, grounded on the
// teacher's own hand-rolled websocket reconnect backoff rather than a
// third-party retry library (none appears anywhere in the pack).
type Backoff struct {
	Min    time.Duration
	Max    time.Duration
	Factor float64
	Jitter float64
}

// DefaultBackoff provides conservative retry defaults for a live adapter.
func DefaultBackoff() Backoff {
	return Backoff{Min: 250 * time.Millisecond, Max: 5 * time.Second, Factor: 2.0, Jitter: 0.2}
}

// Next returns the backoff duration for the given attempt (1-based).
func (b Backoff) Next(attempt int) time.Duration {
	if attempt <= 0 {
		attempt = 1
	}
	min := b.Min
	if min <= 0 {
		min = 100 * time.Millisecond
	}
	max := b.Max
	if max <= 0 {
		max = 5 * time.Second
	}
	factor := b.Factor
	if factor <= 1 {
		factor = 2.0
	}

	wait := min
	for i := 1; i < attempt; i++ {
		next := time.Duration(float64(wait) * factor)
		if next > max {
			wait = max
			break
		}
		wait = next
	}

	if b.Jitter <= 0 {
		return wait
	}
	jitter := b.Jitter
	if jitter > 1 {
		jitter = 1
	}
	delta := float64(wait) * jitter
	return wait - time.Duration(delta) + time.Duration(rand.Float64()*2*delta)
}

// Dispatcher drains intents through a bounded worker pool, calling
// Adapter.PlaceOrder off the run loop thread so a slow venue never
// blocks the reducer. Adapted from the teacher's internal/order.Usecase
// worker-pool shape (atomic running flag, N workers over one channel).
type Dispatcher struct {
	adapter Adapter
	backoff Backoff
	maxTry  int

	running atomic.Bool
	worker  int
	queue   chan strategy.Intent
	acks    chan og.Ack
}

// NewDispatcher builds a dispatcher with workerCount goroutines draining
// a queue of capacity queueCap.
func NewDispatcher(a Adapter, workerCount, queueCap int, backoff Backoff, maxTry int) *Dispatcher {
	if workerCount <= 0 {
		workerCount = 1
	}
	if maxTry <= 0 {
		maxTry = 3
	}
	return &Dispatcher{
		adapter: a,
		backoff: backoff,
		maxTry:  maxTry,
		worker:  workerCount,
		queue:   make(chan strategy.Intent, queueCap),
		acks:    make(chan og.Ack, queueCap),
	}
}

// Acks delivers PlaceOrder results back to the caller: the venue's ack,
// or a Rejected ack once every attempt has failed.
func (d *Dispatcher) Acks() <-chan og.Ack { return d.acks }

// Handle enqueues an intent without blocking.
func (d *Dispatcher) Handle(intent strategy.Intent) error {
	select {
	case d.queue <- intent:
		return nil
	default:
		return ErrDispatchQueueFull
	}
}

// Run starts the worker pool; it is idempotent, matching the teacher's
// running.Swap(true) guard.
func (d *Dispatcher) Run(ctx context.Context) {
	if d.running.Swap(true) {
		return
	}
	for i := 0; i < d.worker; i++ {
		go d.work(ctx)
	}
}

func (d *Dispatcher) work(ctx context.Context) {
	for {
		select {
		case intent := <-d.queue:
			d.placeWithRetry(ctx, intent)
		case <-ctx.Done():
			return
		}
	}
}

func (d *Dispatcher) placeWithRetry(ctx context.Context, intent strategy.Intent) {
	var lastErr error
	for attempt := 1; attempt <= d.maxTry; attempt++ {
		ack, err := d.adapter.PlaceOrder(ctx, intent)
		if err == nil {
			select {
			case d.acks <- ack:
			case <-ctx.Done():
			}
			return
		}
		lastErr = err
		select {
		case <-time.After(d.backoff.Next(attempt)):
		case <-ctx.Done():
			return
		}
	}
	logs.Errorf("place order %s exhausted %d attempts, err: %+v", intent.ClientOrderID, d.maxTry, lastErr)
	select {
	case d.acks <- og.Ack{ClientOrderID: intent.ClientOrderID, Status: og.AckStatusRejected}:
	case <-ctx.Done():
	}
}
