package client

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/axondapurkita/order-notify/internal/infrastructure/logging"
)

const waitFor = 2 * time.Second
const tick = 5 * time.Millisecond

func newTestPoller(t *testing.T, fetch FetchFunc) (*Poller, *clock.Mock) {
	t.Helper()
	clk := clock.NewMock()
	p := NewPoller(PollerConfig{Fetch: fetch}, clk, logging.Discard())
	t.Cleanup(func() {
		p.Stop()
		p.Wait()
	})
	return p, clk
}

func countingFetch(n *atomic.Int32) FetchFunc {
	return func(context.Context) error {
		n.Add(1)
		return nil
	}
}

// advanceToNextPoll moves the clock to the pending fetch and waits until the
// poller has rescheduled.
func advanceToNextPoll(t *testing.T, p *Poller, clk *clock.Mock) time.Duration {
	t.Helper()
	due := p.NextPollAt()
	require.False(t, due.IsZero())
	clk.Add(due.Sub(clk.Now()))
	require.Eventually(t, func() bool { return p.NextPollAt().After(due) }, waitFor, tick)
	return p.NextPollAt().Sub(due)
}

func TestPoller_FetchesImmediatelyThenAtFirstStep(t *testing.T) {
	var fetches atomic.Int32
	p, clk := newTestPoller(t, countingFetch(&fetches))

	start := clk.Now()
	p.Start()

	require.Eventually(t, func() bool { return fetches.Load() == 1 }, waitFor, tick)
	assert.Equal(t, start.Add(30*time.Second), p.NextPollAt())
	assert.True(t, p.Running())

	advanceToNextPoll(t, p, clk)
	require.Eventually(t, func() bool { return fetches.Load() == 2 }, waitFor, tick)
}

func TestPoller_IntervalsAreMonotonicAndBounded(t *testing.T) {
	var fetches atomic.Int32
	p, clk := newTestPoller(t, countingFetch(&fetches))
	p.Start()

	var intervals []time.Duration
	for range 6 {
		intervals = append(intervals, advanceToNextPoll(t, p, clk))
	}

	assert.Equal(t, []time.Duration{
		60 * time.Second,
		120 * time.Second,
		120 * time.Second,
		120 * time.Second,
		120 * time.Second,
		120 * time.Second,
	}, intervals)
	for i := 1; i < len(intervals); i++ {
		assert.GreaterOrEqual(t, intervals[i], intervals[i-1])
		assert.LessOrEqual(t, intervals[i], 120*time.Second)
	}
	assert.Equal(t, 2, p.Step())
	require.Eventually(t, func() bool { return fetches.Load() == 7 }, waitFor, tick)
}

func TestPoller_StopResetsStep(t *testing.T) {
	var fetches atomic.Int32
	p, clk := newTestPoller(t, countingFetch(&fetches))
	p.Start()
	advanceToNextPoll(t, p, clk)
	advanceToNextPoll(t, p, clk)
	require.Equal(t, 2, p.Step())

	p.Stop()
	assert.False(t, p.Running())
	assert.False(t, p.pending())
	assert.True(t, p.NextPollAt().IsZero())
	assert.Equal(t, 0, p.Step())

	stoppedAt := fetches.Load()
	clk.Add(10 * time.Minute)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, stoppedAt, fetches.Load())

	restart := clk.Now()
	p.Start()
	assert.Equal(t, restart.Add(30*time.Second), p.NextPollAt())
}

func TestPoller_FailuresAreSwallowed(t *testing.T) {
	var calls, failures atomic.Int32
	clk := clock.NewMock()
	p := NewPoller(PollerConfig{
		Fetch: func(context.Context) error {
			calls.Add(1)
			return errors.New("gateway timeout")
		},
		OnError: func(error) { failures.Add(1) },
	}, clk, logging.Discard())
	t.Cleanup(func() { p.Stop(); p.Wait() })

	p.Start()
	advanceToNextPoll(t, p, clk)

	require.Eventually(t, func() bool { return failures.Load() == 2 }, waitFor, tick)
	assert.True(t, p.Running())
	assert.True(t, p.LastSync().IsZero())
}

func TestPoller_SlowFetchDoesNotDelaySchedule(t *testing.T) {
	release := make(chan struct{})
	var started atomic.Int32
	p, clk := newTestPoller(t, func(ctx context.Context) error {
		started.Add(1)
		select {
		case <-release:
		case <-ctx.Done():
		}
		return ctx.Err()
	})

	p.Start()
	require.Eventually(t, func() bool { return started.Load() == 1 }, waitFor, tick)

	advanceToNextPoll(t, p, clk)
	require.Eventually(t, func() bool { return started.Load() == 2 }, waitFor, tick)

	p.Stop()
	p.Wait()
	close(release)
}

func TestPoller_LastSyncOnSuccess(t *testing.T) {
	var synced atomic.Int32
	clk := clock.NewMock()
	clk.Add(time.Hour)
	p := NewPoller(PollerConfig{
		Fetch:     func(context.Context) error { return nil },
		OnSuccess: func(time.Time) { synced.Add(1) },
	}, clk, logging.Discard())
	t.Cleanup(func() { p.Stop(); p.Wait() })

	p.Start()
	require.Eventually(t, func() bool { return synced.Load() == 1 }, waitFor, tick)
	assert.Equal(t, clk.Now(), p.LastSync())
}
