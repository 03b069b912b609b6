package poller

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder[T any] struct {
	mu      sync.Mutex
	results []Result[T]
}

func (r *recorder[T]) publish(res Result[T]) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results = append(r.results, res)
}

func (r *recorder[T]) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.results)
}

func (r *recorder[T]) last() Result[T] {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.results[len(r.results)-1]
}

func TestPollerInitialFetchAndTicks(t *testing.T) {
	var n atomic.Int64
	rec := &recorder[int64]{}
	p := New(20*time.Millisecond, func(ctx context.Context) (int64, error) {
		return n.Add(1), nil
	}, rec.publish, zerolog.Nop())

	p.Start(context.Background())
	defer p.Stop()

	require.Eventually(t, func() bool { return rec.len() >= 3 }, time.Second, 5*time.Millisecond)
	assert.NoError(t, rec.last().Err)
	assert.GreaterOrEqual(t, rec.last().Data, int64(3))
}

func TestPollerPublishesErrorsWithoutData(t *testing.T) {
	rec := &recorder[[]string]{}
	p := New(time.Hour, func(ctx context.Context) ([]string, error) {
		return []string{"fabricated"}, errors.New("upstream down")
	}, rec.publish, zerolog.Nop())

	p.Start(context.Background())
	defer p.Stop()

	require.Eventually(t, func() bool { return rec.len() == 1 }, time.Second, 5*time.Millisecond)
	res := rec.last()
	assert.EqualError(t, res.Err, "upstream down")
	assert.Nil(t, res.Data)
}

func TestPollerDropsResultsAfterStop(t *testing.T) {
	gate := make(chan struct{})
	entered := make(chan struct{}, 1)
	rec := &recorder[string]{}
	p := New(time.Hour, func(ctx context.Context) (string, error) {
		entered <- struct{}{}
		<-gate
		return "late", nil
	}, rec.publish, zerolog.Nop())

	p.Start(context.Background())
	<-entered

	stopped := make(chan struct{})
	go func() {
		p.Stop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("Stop blocked on an in-flight fetch")
	}

	close(gate)
	assert.Never(t, func() bool { return rec.len() > 0 }, 100*time.Millisecond, 10*time.Millisecond)

	p.Refresh()
	assert.Equal(t, 0, rec.len())
}

func TestPollerCoalescesConcurrentRefreshes(t *testing.T) {
	gate := make(chan struct{})
	entered := make(chan struct{}, 8)
	rec := &recorder[int]{}
	p := New(time.Hour, func(ctx context.Context) (int, error) {
		entered <- struct{}{}
		<-gate
		return 1, nil
	}, rec.publish, zerolog.Nop())

	p.Start(context.Background())
	defer p.Stop()
	<-entered
	assert.True(t, p.Loading())

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.Refresh()
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(gate)
	wg.Wait()

	assert.Equal(t, int64(1), p.Fetches())
	assert.Equal(t, 1, rec.len())
	assert.False(t, p.Loading())
}

func TestPollerRefreshBeforeStartIsNoop(t *testing.T) {
	called := false
	p := New(time.Hour, func(ctx context.Context) (int, error) {
		called = true
		return 0, nil
	}, func(Result[int]) {}, zerolog.Nop())

	p.Refresh()
	p.Stop()
	p.Start(context.Background())
	assert.False(t, called)
}

func TestPollerSlowPublishDoesNotBlockStopSignal(t *testing.T) {
	inPublish := make(chan struct{})
	release := make(chan struct{})
	var published atomic.Int64
	p := New(time.Hour, func(ctx context.Context) (int, error) {
		return 1, nil
	}, func(Result[int]) {
		published.Add(1)
		inPublish <- struct{}{}
		<-release
	}, zerolog.Nop())

	p.Start(context.Background())
	<-inPublish

	stopped := make(chan struct{})
	go func() {
		p.Stop()
		close(stopped)
	}()

	flagged := make(chan struct{})
	go func() {
		for !p.isStopped() {
			time.Sleep(time.Millisecond)
		}
		close(flagged)
	}()
	select {
	case <-flagged:
	case <-time.After(time.Second):
		t.Fatal("stop flag blocked behind a slow publish")
	}

	select {
	case <-stopped:
		t.Fatal("Stop returned while a publish was still running")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("Stop did not return after the publish finished")
	}
	assert.Equal(t, int64(1), published.Load())
}
