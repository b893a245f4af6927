package dispatcher

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jobforge/forge/pkg/clock"
	"github.com/jobforge/forge/pkg/command"
	"github.com/jobforge/forge/pkg/keys"
	"github.com/jobforge/forge/pkg/options"
	"github.com/jobforge/forge/pkg/state"
	"github.com/jobforge/forge/pkg/storeerr"
)

func newTestDispatcher(t *testing.T) (*Dispatcher[uint64], *clock.Clock, context.CancelFunc) {
	t.Helper()
	c := clock.New()
	st := state.New[uint64](options.New(), keys.NewCounterProvider())
	d := New[uint64](st, c)
	ctx, cancel := context.WithCancel(context.Background())
	go d.Run(ctx)
	t.Cleanup(func() { d.Stop(); cancel() })
	return d, c, cancel
}

func TestDispatcher_Submit_RunsAgainstLiveState(t *testing.T) {
	d, c, _ := newTestDispatcher(t)
	now := c.Now()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	result, err := Submit(ctx, d, command.JobCreateCommand[uint64]{Key: 1, Now: now}.Execute)
	require.NoError(t, err)
	require.NoError(t, result.Err)
	assert.Equal(t, uint64(1), result.Job.Key)
}

func TestDispatcher_Submit_SerializesConcurrentCommands(t *testing.T) {
	d, c, _ := newTestDispatcher(t)
	now := c.Now()
	Submit(context.Background(), d, command.CounterIncrementCommand[uint64]{Key: "c", Now: now}.Execute)

	const n = 100
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			_, err := Submit(ctx, d, command.CounterIncrementCommand[uint64]{Key: "c", Delta: 1, Now: now}.Execute)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	result, err := Submit(context.Background(), d, command.CounterIncrementCommand[uint64]{Key: "c", Delta: 0, Now: now}.Execute)
	require.NoError(t, err)
	assert.Equal(t, int64(n), result.Value, "every increment must be applied exactly once despite concurrent submission")
}

func TestDispatcher_Submit_AfterStop_ReturnsServerGone(t *testing.T) {
	c := clock.New()
	st := state.New[uint64](options.New(), keys.NewCounterProvider())
	d := New[uint64](st, c)
	ctx, cancel := context.WithCancel(context.Background())
	go d.Run(ctx)
	d.Stop()
	cancel()

	_, err := Submit(context.Background(), d, command.CounterIncrementCommand[uint64]{Key: "c", Now: c.Now()}.Execute)
	assert.ErrorIs(t, err, storeerr.ErrServerGone)
}

func TestDispatcher_Submit_ContextDeadline_ReturnsCommandTimeout(t *testing.T) {
	d, c, _ := newTestDispatcher(t)
	now := c.Now()

	// Occupy the worker with a slow callback so the next Submit is still queued when its context expires.
	blockerStarted := make(chan struct{})
	unblock := make(chan struct{})
	require.NoError(t, d.submit(func(*state.MemoryState[uint64]) {
		close(blockerStarted)
		<-unblock
	}))
	<-blockerStarted
	defer close(unblock)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := Submit(ctx, d, command.JobCreateCommand[uint64]{Key: 1, Now: now}.Execute)
	assert.ErrorIs(t, err, storeerr.ErrCommandTimeout)
}

func TestDispatcher_EvictionTick_RunsAfterIdleWaitSlice(t *testing.T) {
	c := clock.New()
	st := state.New[uint64](options.New(), keys.NewCounterProvider())
	d := New[uint64](st, c)

	reports := make(chan EvictionReport, 8)
	d.OnEvict(func(r EvictionReport) { reports <- r })

	ctx, cancel := context.WithCancel(context.Background())
	go d.Run(ctx)
	t.Cleanup(func() { d.Stop(); cancel() })

	now := c.Now()
	Submit(context.Background(), d, command.JobCreateCommand[uint64]{Key: 1, Now: now, ExpireIn: time.Millisecond, HasExpireIn: true}.Execute)

	select {
	case r := <-reports:
		assert.GreaterOrEqual(t, r.Jobs, 0)
	case <-time.After(3 * time.Second):
		t.Fatal("expected at least one eviction tick within the wait slice")
	}
}
