// Package poller re-fetches a resource on a fixed interval and publishes every
// outcome. There is no backoff and no pause on error: a failed fetch is
// published as an error result and the next tick tries again.
package poller

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// FetchFunc loads one snapshot.
type FetchFunc[T any] func(ctx context.Context) (T, error)

// Result is one settled fetch. Data is the zero value whenever Err is set.
type Result[T any] struct {
	Data      T
	Err       error
	FetchedAt time.Time
}

// Poller drives a FetchFunc. Ticks and manual refreshes that overlap an
// in-flight fetch join it instead of starting another one.
type Poller[T any] struct {
	interval time.Duration
	fetch    FetchFunc[T]
	publish  func(Result[T])
	log      zerolog.Logger
	now      func() time.Time

	group   singleflight.Group
	loading atomic.Bool
	fetches atomic.Int64

	// deliverMu serializes publish calls; mu is never held while publishing.
	deliverMu sync.Mutex

	mu      sync.Mutex
	started bool
	stopped bool
	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}
}

// New creates a stopped poller. publish is called once per settled fetch and
// never after Stop has returned.
func New[T any](interval time.Duration, fetch FetchFunc[T], publish func(Result[T]), log zerolog.Logger) *Poller[T] {
	return &Poller[T]{
		interval: interval,
		fetch:    fetch,
		publish:  publish,
		log:      log,
		now:      time.Now,
		done:     make(chan struct{}),
	}
}

// Start performs an initial fetch and then re-fetches every interval until
// Stop is called or ctx is cancelled. Calling Start twice is a no-op.
func (p *Poller[T]) Start(ctx context.Context) {
	p.mu.Lock()
	if p.started || p.stopped {
		p.mu.Unlock()
		return
	}
	p.started = true
	p.ctx, p.cancel = context.WithCancel(ctx)
	loopCtx := p.ctx
	p.mu.Unlock()

	go p.loop(loopCtx)
}

func (p *Poller[T]) loop(ctx context.Context) {
	defer close(p.done)

	go p.fetchOnce(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			go p.fetchOnce(ctx)
		}
	}
}

// Refresh fetches out of band and blocks until that fetch, or the in-flight
// one it joined, has settled. It does nothing before Start or after Stop.
func (p *Poller[T]) Refresh() {
	p.mu.Lock()
	if !p.started || p.stopped {
		p.mu.Unlock()
		return
	}
	ctx := p.ctx
	p.mu.Unlock()

	p.fetchOnce(ctx)
}

// Stop ends the loop and waits for it to exit. A fetch still in flight is
// left to finish but its result is dropped.
func (p *Poller[T]) Stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	started := p.started
	if p.cancel != nil {
		p.cancel()
	}
	p.mu.Unlock()

	if started {
		<-p.done
	}
	// Wait out a publish that passed the stopped check before we set it.
	p.deliverMu.Lock()
	p.deliverMu.Unlock()
}

// Loading reports whether a fetch is in flight.
func (p *Poller[T]) Loading() bool {
	return p.loading.Load()
}

// Fetches is the number of fetches actually issued.
func (p *Poller[T]) Fetches() int64 {
	return p.fetches.Load()
}

func (p *Poller[T]) fetchOnce(ctx context.Context) {
	_, _, _ = p.group.Do("fetch", func() (any, error) {
		if p.isStopped() {
			return nil, nil
		}
		p.fetches.Add(1)
		p.loading.Store(true)
		// Stop does not abort in-flight requests.
		data, err := p.fetch(context.WithoutCancel(ctx))
		p.loading.Store(false)

		if err != nil {
			p.log.Debug().Err(err).Msg("poll fetch failed")
			var zero T
			data = zero
		}
		p.deliver(Result[T]{Data: data, Err: err, FetchedAt: p.now()})
		return nil, nil
	})
}

func (p *Poller[T]) deliver(r Result[T]) {
	p.deliverMu.Lock()
	defer p.deliverMu.Unlock()
	if p.isStopped() {
		return
	}
	p.publish(r)
}

func (p *Poller[T]) isStopped() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stopped
}
