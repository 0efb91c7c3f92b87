package client

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// DefaultPollSteps is the polling backoff table.
var DefaultPollSteps = []time.Duration{30 * time.Second, 60 * time.Second, 120 * time.Second}

// FetchFunc performs one recent-orders poll.
type FetchFunc func(ctx context.Context) error

// PollerConfig configures a Poller.
type PollerConfig struct {
	Steps []time.Duration
	Fetch FetchFunc
	// OnSuccess and OnError run on the fetch goroutine.
	OnSuccess func(at time.Time)
	OnError   func(err error)
}

// Poller issues recent-orders fetches while the live channel is unavailable.
// The first fetch runs on Start; each later tick schedules the following one
// before fetching, so a slow fetch never delays the schedule. The interval
// walks up the step table and stays at its last entry.
type Poller struct {
	cfg    PollerConfig
	clock  clock.Clock
	logger *slog.Logger

	mu       sync.Mutex
	running  bool
	step     int
	timer    *clock.Timer
	nextAt   time.Time
	gen      uint64
	lastSync time.Time
	cancel   context.CancelFunc

	fetches sync.WaitGroup
}

// NewPoller creates a stopped poller.
func NewPoller(cfg PollerConfig, clk clock.Clock, logger *slog.Logger) *Poller {
	if len(cfg.Steps) == 0 {
		cfg.Steps = DefaultPollSteps
	}
	if clk == nil {
		clk = clock.New()
	}
	return &Poller{
		cfg:    cfg,
		clock:  clk,
		logger: logger.With("component", "poller"),
	}
}

// intervalFor returns the interval of a step, clamped to the table.
func (p *Poller) intervalFor(step int) time.Duration {
	if step >= len(p.cfg.Steps) {
		step = len(p.cfg.Steps) - 1
	}
	return p.cfg.Steps[step]
}

// Start fetches immediately and schedules the next fetch at the current
// step. Starting a running poller is a no-op.
func (p *Poller) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return
	}

	p.running = true
	p.gen++
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel

	p.scheduleLocked(ctx)
	p.fetchLocked(ctx)
	p.logger.Info("polling started", "interval", p.intervalFor(p.step))
}

// Stop clears the pending timer, cancels in-flight fetches and resets the
// step so the next episode starts at the shortest interval.
func (p *Poller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.running {
		return
	}

	p.running = false
	p.gen++
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
	p.nextAt = time.Time{}
	p.step = 0
	p.cancel()
	p.cancel = nil
	p.logger.Info("polling stopped")
}

// Wait blocks until in-flight fetches have returned. Call after Stop.
func (p *Poller) Wait() {
	p.fetches.Wait()
}

func (p *Poller) scheduleLocked(ctx context.Context) {
	gen := p.gen
	interval := p.intervalFor(p.step)
	p.nextAt = p.clock.Now().Add(interval)
	p.timer = p.clock.AfterFunc(interval, func() { p.tick(ctx, gen) })
}

func (p *Poller) tick(ctx context.Context, gen uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.running || p.gen != gen {
		return
	}

	if p.step < len(p.cfg.Steps)-1 {
		p.step++
	}
	p.scheduleLocked(ctx)
	p.fetchLocked(ctx)
}

func (p *Poller) fetchLocked(ctx context.Context) {
	gen := p.gen
	p.fetches.Add(1)
	go func() {
		defer p.fetches.Done()

		err := p.cfg.Fetch(ctx)

		p.mu.Lock()
		current := p.running && p.gen == gen
		if err == nil && current {
			p.lastSync = p.clock.Now()
		}
		at := p.lastSync
		p.mu.Unlock()

		if !current {
			return
		}
		if err != nil {
			p.logger.Warn("poll failed", "error", err)
			if p.cfg.OnError != nil {
				p.cfg.OnError(err)
			}
			return
		}
		if p.cfg.OnSuccess != nil {
			p.cfg.OnSuccess(at)
		}
	}()
}

// Running reports whether a polling episode is active.
func (p *Poller) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// Step returns the current index into the step table.
func (p *Poller) Step() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.step
}

// NextPollAt returns when the next fetch is due, or zero when stopped.
func (p *Poller) NextPollAt() time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.nextAt
}

// LastSync returns the time of the last successful fetch.
func (p *Poller) LastSync() time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastSync
}

func (p *Poller) pending() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.timer != nil
}
