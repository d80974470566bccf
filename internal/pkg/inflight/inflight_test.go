package inflight

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDo_ConcurrentCallersShareOneCall(t *testing.T) {
	g := New[string](0)
	var calls atomic.Int32
	release := make(chan struct{})

	fn := func(context.Context) (string, error) {
		calls.Add(1)
		<-release
		return "result", nil
	}

	const n = 8
	var wg sync.WaitGroup
	results := make([]string, n)
	started := make(chan struct{}, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			started <- struct{}{}
			v, _, err := g.Do(context.Background(), "hash", fn)
			assert.NoError(t, err)
			results[i] = v
		}(i)
	}
	for i := 0; i < n; i++ {
		<-started
	}
	// Give the goroutines time to join the outstanding call.
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	for _, r := range results {
		assert.Equal(t, "result", r)
	}
}

func TestDo_FailureIsNotReplayed(t *testing.T) {
	g := New[int](0)
	var calls atomic.Int32
	boom := errors.New("boom")

	_, _, err := g.Do(context.Background(), "k", func(context.Context) (int, error) {
		calls.Add(1)
		return 0, boom
	})
	require.ErrorIs(t, err, boom)

	v, _, err := g.Do(context.Background(), "k", func(context.Context) (int, error) {
		calls.Add(1)
		return 7, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 7, v)
	assert.Equal(t, int32(2), calls.Load())
}

func TestDo_WaiterGivesUpWithoutCancellingCall(t *testing.T) {
	g := New[string](0)
	release := make(chan struct{})
	var sawCancel atomic.Bool

	fn := func(ctx context.Context) (string, error) {
		<-release
		if ctx.Err() != nil {
			sawCancel.Store(true)
		}
		return "done", nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		_, _, err := g.Do(ctx, "k", fn)
		errCh <- err
	}()

	time.Sleep(10 * time.Millisecond)
	resCh := make(chan string, 1)
	go func() {
		v, _, _ := g.Do(context.Background(), "k", fn)
		resCh <- v
	}()
	time.Sleep(10 * time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-errCh, context.Canceled)

	close(release)
	assert.Equal(t, "done", <-resCh)
	assert.False(t, sawCancel.Load())
}

func TestDo_TimeoutBoundsSharedCall(t *testing.T) {
	g := New[int](10 * time.Millisecond)
	_, _, err := g.Do(context.Background(), "k", func(ctx context.Context) (int, error) {
		<-ctx.Done()
		return 0, ctx.Err()
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestDo_DistinctKeysRunIndependently(t *testing.T) {
	g := New[string](0)
	var calls atomic.Int32
	fn := func(context.Context) (string, error) {
		calls.Add(1)
		return "x", nil
	}
	_, _, _ = g.Do(context.Background(), "a", fn)
	_, _, _ = g.Do(context.Background(), "b", fn)
	assert.Equal(t, int32(2), calls.Load())
}
