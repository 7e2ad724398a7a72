package parallel

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestForEach_RunsAll(t *testing.T) {
	var (
		done     [20]atomic.Bool
		inFlight atomic.Int32
		peak     atomic.Int32
	)
	err := ForEach(context.Background(), 3, len(done), func(_ context.Context, i int) {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(2 * time.Millisecond)
		inFlight.Add(-1)
		done[i].Store(true)
	})
	require.NoError(t, err)
	for i := range done {
		assert.True(t, done[i].Load(), "job %d", i)
	}
	assert.LessOrEqual(t, peak.Load(), int32(3))
}

func TestForEach_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var ran atomic.Int32
	err := ForEach(ctx, 1, 100, func(_ context.Context, i int) {
		if ran.Add(1) == 2 {
			cancel()
		}
		time.Sleep(time.Millisecond)
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, ran.Load(), int32(100))
}

func TestForEach_Empty(t *testing.T) {
	called := false
	require.NoError(t, ForEach(context.Background(), 4, 0, func(context.Context, int) { called = true }))
	assert.False(t, called)
}

func TestWorkerPool_SubmitAfterShutdown(t *testing.T) {
	pool := NewWorkerPool(0)
	assert.Positive(t, pool.Size())

	ran := make(chan struct{})
	require.NoError(t, pool.Submit(context.Background(), func() { close(ran) }))
	<-ran

	pool.Shutdown()
	pool.Shutdown()
	assert.ErrorIs(t, pool.Submit(context.Background(), func() {}), ErrPoolShutdown)
}
