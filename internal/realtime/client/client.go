package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/cenkalti/backoff/v4"

	"github.com/axondapurkita/order-notify/internal/core/domain"
)

// ErrHandshakeTimeout is recorded when the live handshake does not finish in
// time.
var ErrHandshakeTimeout = errors.New("live handshake timed out")

// Config holds the client's timing policy.
type Config struct {
	HandshakeTimeout     time.Duration
	MaxReconnectAttempts int
	ReconnectBaseDelay   time.Duration
	ReconnectMaxDelay    time.Duration
	// ReconnectJitter is the randomization factor applied to reconnect delays.
	ReconnectJitter   float64
	PollingStartDelay time.Duration
	PollSteps         []time.Duration
}

// DefaultConfig returns the production timing policy.
func DefaultConfig() Config {
	return Config{
		HandshakeTimeout:     20 * time.Second,
		MaxReconnectAttempts: 10,
		ReconnectBaseDelay:   time.Second,
		ReconnectMaxDelay:    10 * time.Second,
		ReconnectJitter:      0.5,
		PollingStartDelay:    5 * time.Second,
		PollSteps:            DefaultPollSteps,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.HandshakeTimeout <= 0 {
		c.HandshakeTimeout = d.HandshakeTimeout
	}
	if c.MaxReconnectAttempts <= 0 {
		c.MaxReconnectAttempts = d.MaxReconnectAttempts
	}
	if c.ReconnectBaseDelay <= 0 {
		c.ReconnectBaseDelay = d.ReconnectBaseDelay
	}
	if c.ReconnectMaxDelay < c.ReconnectBaseDelay {
		c.ReconnectMaxDelay = max(d.ReconnectMaxDelay, c.ReconnectBaseDelay)
	}
	if c.PollingStartDelay <= 0 {
		c.PollingStartDelay = d.PollingStartDelay
	}
	if len(c.PollSteps) == 0 {
		c.PollSteps = d.PollSteps
	}
	return c
}

// Client keeps one live channel per session and falls back to polling when
// the channel cannot be held. Handlers run on client goroutines and must not
// call Close.
type Client struct {
	cfg     Config
	dialer  Dialer
	fetcher Fetcher
	clock   clock.Clock
	logger  *slog.Logger
	poller  *Poller
	backoff backoff.BackOff

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu             sync.Mutex
	status         Status
	started        bool
	closed         bool
	exhausted      bool
	lastSync       time.Time
	lastErr        error
	reconnectCount int

	conn    Channel
	connSeq uint64

	dialing        bool
	dialSeq        uint64
	dialCancel     context.CancelFunc
	handshakeTimer *clock.Timer

	retryTimer     *clock.Timer
	retrySeq       uint64
	pollStartTimer *clock.Timer
	pollStartSeq   uint64

	onEvent  func(domain.OrderEvent)
	onStatus func(Status)
	onSync   func([]domain.OrderSummary, time.Time)

	pendingStatus []Status
	wake          chan struct{}
}

// New creates a client in the connecting state. Nothing happens until Start.
func New(cfg Config, dialer Dialer, fetcher Fetcher, clk clock.Clock, logger *slog.Logger) *Client {
	cfg = cfg.withDefaults()
	if clk == nil {
		clk = clock.New()
	}
	logger = logger.With("component", "realtime_client")

	ctx, cancel := context.WithCancel(context.Background())
	c := &Client{
		cfg:     cfg,
		dialer:  dialer,
		fetcher: fetcher,
		clock:   clk,
		logger:  logger,
		backoff: newReconnectBackOff(cfg, clk),
		ctx:     ctx,
		cancel:  cancel,
		status:  StatusConnecting,
		wake:    make(chan struct{}, 1),
	}
	c.poller = NewPoller(PollerConfig{
		Steps:     cfg.PollSteps,
		Fetch:     c.poll,
		OnSuccess: c.pollSucceeded,
		OnError:   c.pollFailed,
	}, clk, logger)
	return c
}

func newReconnectBackOff(cfg Config, clk clock.Clock) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = cfg.ReconnectBaseDelay
	b.MaxInterval = cfg.ReconnectMaxDelay
	b.Multiplier = 2
	b.RandomizationFactor = cfg.ReconnectJitter
	b.MaxElapsedTime = 0
	b.Clock = clk
	b.Reset()
	capped := &cappedBackOff{BackOff: b, max: cfg.ReconnectMaxDelay}
	return backoff.WithMaxRetries(capped, uint64(cfg.MaxReconnectAttempts))
}

// cappedBackOff clamps jittered delays to max. ExponentialBackOff applies
// jitter after MaxInterval, so its own cap can be exceeded.
type cappedBackOff struct {
	backoff.BackOff
	max time.Duration
}

func (b *cappedBackOff) NextBackOff() time.Duration {
	d := b.BackOff.NextBackOff()
	if d > b.max {
		return b.max
	}
	return d
}

// Start begins the first handshake.
func (c *Client) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	if c.started {
		return nil
	}
	c.started = true

	c.wg.Add(1)
	go c.notifyLoop()

	c.connectLocked()
	return nil
}

// Reconnect restarts the retry budget and dials now. It is a no-op while
// connected or while a handshake is in flight.
func (c *Client) Reconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch {
	case c.closed:
		return ErrClosed
	case c.status == StatusDisconnected:
		return ErrSessionInvalid
	case c.status == StatusConnected, c.dialing:
		return nil
	}

	c.stopTimer(&c.retryTimer)
	c.backoff.Reset()
	c.exhausted = false
	c.connectLocked()
	return nil
}

// Close tears the client down. On return no timer is pending, no channel is
// open and every client goroutine has exited.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.fire(triggerTeardown)
	c.shutdownLocked()
	c.mu.Unlock()

	c.cancel()
	c.wg.Wait()
	c.poller.Wait()
	c.logger.Info("client closed")
	return nil
}

// SetHandler replaces the event handler. Listeners are not re-registered.
func (c *Client) SetHandler(fn func(domain.OrderEvent)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onEvent = fn
}

// SetStatusHandler replaces the status change handler. Changes are delivered
// in the order they happened.
func (c *Client) SetStatusHandler(fn func(Status)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onStatus = fn
}

// SetSyncHandler replaces the handler receiving each successful poll result
// and the time it was fetched. LastSync already reflects that time.
func (c *Client) SetSyncHandler(fn func([]domain.OrderSummary, time.Time)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onSync = fn
}

// Status returns the current connection status.
func (c *Client) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// LastSync returns when state was last refreshed by an event or a poll.
func (c *Client) LastSync() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastSync
}

// ReconnectCount returns the reconnect attempts since the last successful
// handshake.
func (c *Client) ReconnectCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reconnectCount
}

// LastError returns the most recent connect or channel failure. It is
// cleared by a successful handshake.
func (c *Client) LastError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// NextPollAt returns when the next poll is due, or zero when not polling.
func (c *Client) NextPollAt() time.Time {
	return c.poller.NextPollAt()
}

// fire applies a trigger and queues a status notification on change.
func (c *Client) fire(t trigger) {
	prev := c.status
	c.status = next(prev, t)
	if c.status == prev {
		return
	}
	c.logger.Info("connection status changed",
		"from", prev.String(),
		"to", c.status.String(),
		"trigger", t.String(),
	)
	c.pendingStatus = append(c.pendingStatus, c.status)
	select {
	case c.wake <- struct{}{}:
	default:
	}
}

func (c *Client) notifyLoop() {
	defer c.wg.Done()
	for {
		select {
		case <-c.wake:
			c.flushStatus()
		case <-c.ctx.Done():
			c.flushStatus()
			return
		}
	}
}

func (c *Client) flushStatus() {
	c.mu.Lock()
	pending := c.pendingStatus
	c.pendingStatus = nil
	fn := c.onStatus
	c.mu.Unlock()

	if fn == nil {
		return
	}
	for _, s := range pending {
		fn(s)
	}
}

func (c *Client) stopTimer(t **clock.Timer) {
	if *t != nil {
		(*t).Stop()
		*t = nil
	}
}

// connectLocked starts a handshake unless one is already in flight.
func (c *Client) connectLocked() {
	if c.closed || c.dialing || c.status == StatusDisconnected {
		return
	}

	c.dialing = true
	c.dialSeq++
	seq := c.dialSeq

	ctx, cancel := context.WithCancel(c.ctx)
	c.dialCancel = cancel
	c.handshakeTimer = c.clock.AfterFunc(c.cfg.HandshakeTimeout, cancel)

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		ch, err := c.dialer.Dial(ctx)
		if err != nil && ctx.Err() != nil && c.ctx.Err() == nil {
			err = fmt.Errorf("%w after %s", ErrHandshakeTimeout, c.cfg.HandshakeTimeout)
		}
		cancel()
		c.handshakeDone(seq, ch, err)
	}()
}

func (c *Client) handshakeDone(seq uint64, ch Channel, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || !c.dialing || seq != c.dialSeq {
		if ch != nil {
			_ = ch.Close()
		}
		return
	}
	c.dialing = false
	c.dialCancel = nil
	c.stopTimer(&c.handshakeTimer)

	if err != nil {
		c.connectFailedLocked(err)
		return
	}
	c.connectedLocked(ch)
}

func (c *Client) connectFailedLocked(err error) {
	c.lastErr = err
	if isIdentityError(err) {
		c.identityInvalidLocked(err)
		return
	}

	c.logger.Warn("live handshake failed",
		"error", err,
		"status", c.status.String(),
		"attempt", c.reconnectCount,
	)
	c.fire(triggerHandshakeFailed)
	c.armPollingLocked()
	c.scheduleRetryLocked()
}

// connectedLocked switches to the live channel. Polling and every pending
// fallback timer are stopped here.
func (c *Client) connectedLocked(ch Channel) {
	c.conn = ch
	c.connSeq++
	c.fire(triggerHandshakeOK)

	c.stopTimer(&c.retryTimer)
	c.stopTimer(&c.pollStartTimer)
	c.poller.Stop()

	c.backoff.Reset()
	c.exhausted = false
	c.reconnectCount = 0
	c.lastErr = nil

	c.wg.Add(1)
	go c.read(ch, c.connSeq)
}

func (c *Client) scheduleRetryLocked() {
	if c.exhausted {
		return
	}

	delay := c.backoff.NextBackOff()
	if delay == backoff.Stop {
		c.exhausted = true
		c.logger.Warn("reconnect attempts exhausted, relying on polling",
			"attempts", c.cfg.MaxReconnectAttempts,
		)
		c.fire(triggerRetriesExhausted)
		c.stopTimer(&c.pollStartTimer)
		c.poller.Start()
		return
	}

	c.reconnectCount++
	c.retrySeq++
	seq := c.retrySeq
	c.retryTimer = c.clock.AfterFunc(delay, func() { c.retryDue(seq) })
	c.logger.Debug("reconnect scheduled", "delay", delay, "attempt", c.reconnectCount)
}

func (c *Client) retryDue(seq uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.retryTimer == nil || seq != c.retrySeq {
		return
	}
	c.retryTimer = nil
	c.connectLocked()
}

// armPollingLocked schedules the start of polling unless it is already
// pending or running.
func (c *Client) armPollingLocked() {
	if c.pollStartTimer != nil || c.status == StatusPolling || c.poller.Running() {
		return
	}
	c.pollStartSeq++
	seq := c.pollStartSeq
	c.pollStartTimer = c.clock.AfterFunc(c.cfg.PollingStartDelay, func() { c.pollStartDue(seq) })
}

func (c *Client) pollStartDue(seq uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pollStartTimer == nil || seq != c.pollStartSeq {
		return
	}
	c.pollStartTimer = nil
	if c.closed || c.status == StatusConnected || c.status == StatusDisconnected {
		return
	}
	c.fire(triggerPollingStarted)
	c.poller.Start()
}

func (c *Client) identityInvalidLocked(err error) {
	c.lastErr = err
	c.logger.Warn("session rejected, live updates stopped", "error", err)
	c.fire(triggerIdentityInvalid)
	c.shutdownLocked()
}

// shutdownLocked stops every timer, cancels any handshake in flight and
// closes the live channel.
func (c *Client) shutdownLocked() {
	c.stopTimer(&c.retryTimer)
	c.stopTimer(&c.pollStartTimer)
	c.stopTimer(&c.handshakeTimer)
	c.poller.Stop()

	if c.dialCancel != nil {
		c.dialCancel()
		c.dialCancel = nil
	}
	c.dialing = false
	c.dialSeq++

	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
	c.connSeq++
}

// read delivers events from one channel in arrival order.
func (c *Client) read(ch Channel, seq uint64) {
	defer c.wg.Done()
	for {
		env, err := ch.Next()
		if err != nil {
			c.channelEnded(ch, seq, err)
			return
		}

		switch env.Type {
		case domain.MsgSessionExpired:
			c.channelEnded(ch, seq, ErrSessionInvalid)
			return
		case domain.MsgError:
			var e domain.ErrorMessage
			_ = json.Unmarshal(env.Payload, &e)
			c.logger.Warn("dispatcher reported an error", "code", e.Code, "message", e.Message)
			continue
		case domain.MsgJoinedShop, domain.MsgLeftShop, domain.MsgPong:
			continue
		}

		var payload domain.OrderPayload
		if err := json.Unmarshal(env.Payload, &payload); err != nil {
			c.logger.Warn("dropping malformed event", "type", env.Type, "error", err)
			continue
		}
		event, ok := payload.Event(env.Type)
		if !ok {
			c.logger.Debug("ignoring unknown message", "type", env.Type)
			continue
		}
		c.deliver(seq, event)
	}
}

func (c *Client) deliver(seq uint64, event domain.OrderEvent) {
	c.mu.Lock()
	if c.closed || seq != c.connSeq {
		c.mu.Unlock()
		return
	}
	c.lastSync = c.clock.Now()
	fn := c.onEvent
	c.mu.Unlock()

	if fn != nil {
		fn(event)
	}
}

func (c *Client) channelEnded(ch Channel, seq uint64, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || seq != c.connSeq {
		return
	}

	_ = ch.Close()
	c.conn = nil
	c.connSeq++

	if errors.Is(err, ErrSessionInvalid) {
		c.identityInvalidLocked(err)
		return
	}

	c.lastErr = err
	c.logger.Warn("live channel dropped", "error", err)
	c.fire(triggerChannelDropped)
	c.backoff.Reset()
	c.armPollingLocked()
	c.scheduleRetryLocked()
}

// poll is the poller's fetch. Once automatic retries are exhausted each
// poll also probes the live channel.
func (c *Client) poll(ctx context.Context) error {
	c.mu.Lock()
	if c.exhausted && !c.dialing && !c.closed {
		c.reconnectCount++
		c.connectLocked()
	}
	c.mu.Unlock()

	if c.fetcher == nil {
		return nil
	}
	orders, err := c.fetcher.FetchRecent(ctx)
	if err != nil {
		return err
	}

	at := c.clock.Now()
	c.mu.Lock()
	closed := c.closed
	if !closed && at.After(c.lastSync) {
		c.lastSync = at
	}
	fn := c.onSync
	c.mu.Unlock()
	if fn != nil && !closed {
		fn(orders, at)
	}
	return nil
}

func (c *Client) pollSucceeded(at time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if at.After(c.lastSync) {
		c.lastSync = at
	}
}

func (c *Client) pollFailed(err error) {
	if !errors.Is(err, ErrSessionInvalid) {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.status == StatusDisconnected {
		return
	}
	c.identityInvalidLocked(err)
}

// pendingTimers counts armed timers, including the poller's.
func (c *Client) pendingTimers() int {
	c.mu.Lock()
	n := 0
	for _, t := range []*clock.Timer{c.retryTimer, c.pollStartTimer, c.handshakeTimer} {
		if t != nil {
			n++
		}
	}
	c.mu.Unlock()
	if c.poller.pending() {
		n++
	}
	return n
}

// openChannel reports whether a live channel is held.
func (c *Client) openChannel() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

func isIdentityError(err error) bool {
	if errors.Is(err, ErrSessionInvalid) {
		return true
	}
	var joinErr *JoinError
	if errors.As(err, &joinErr) {
		switch joinErr.Code {
		case domain.CodeUnauthorized, domain.CodeForbidden, domain.CodeShopNotFound:
			return true
		}
	}
	return false
}
