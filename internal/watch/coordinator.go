package watch

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// DefaultFallbackInterval is the polling cadence used when the stream is
// unavailable and no override is configured.
const DefaultFallbackInterval = 30 * time.Second

// Config holds a coordinator's capabilities and tuning. Immutable after
// construction.
type Config[T any] struct {
	// OpenStream attempts to open the push stream. Nil means push is
	// unsupported and the coordinator polls from the first Connect.
	OpenStream OpenFunc[T]

	// FetchSnapshot fetches one point-in-time payload.
	FetchSnapshot FetchFunc[T]

	// FallbackInterval is the polling cadence (default 30s).
	FallbackInterval time.Duration

	// Clock is the timer source (default: system clock).
	Clock Clock

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Coordinator drives the stream-or-poll lifecycle for one endpoint and
// reports every transition to its owner through Handlers.
//
// All public methods are safe for concurrent use. Handler callbacks are
// invoked without internal locks held, so a handler may call back into
// the coordinator.
type Coordinator[T any] struct {
	cfg      Config[T]
	handlers Handlers[T]
	logger   *slog.Logger
	clock    Clock

	ctx    context.Context
	cancel context.CancelFunc

	mu         sync.Mutex
	state      State
	session    Session
	pollTimer  Timer
	retryTimer Timer
	closed     bool
	last       T
	hasLast    bool

	// attempt numbers each Connect so callbacks from a superseded or
	// still-in-flight open attempt can be told apart from the current
	// one. attemptErred records that the current attempt reported an
	// error before Connect processed its OpenResult.
	attempt      uint64
	attemptErred bool

	snapshots singleflight.Group
}

// New creates a coordinator. It does nothing until Connect is called.
func New[T any](cfg Config[T], handlers Handlers[T]) *Coordinator[T] {
	if cfg.FallbackInterval <= 0 {
		cfg.FallbackInterval = DefaultFallbackInterval
	}
	if cfg.Clock == nil {
		cfg.Clock = SystemClock()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Coordinator[T]{
		cfg:      cfg,
		handlers: handlers,
		logger:   cfg.Logger,
		clock:    cfg.Clock,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// State returns the current lifecycle state.
func (c *Coordinator[T]) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// RetryScheduled reports whether a single-shot reconnect is pending.
func (c *Coordinator[T]) RetryScheduled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.retryTimer != nil
}

// Last returns the most recent payload seen from either source.
func (c *Coordinator[T]) Last() (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last, c.hasLast
}

// Connect discards any existing stream session and starts a fresh
// connection attempt. When the stream cannot be established the
// coordinator starts fallback polling, schedules at most one retry if a
// delay was advised, and performs one immediate snapshot fetch so the
// owner is not left without data until the first poll tick.
//
// The transport may invoke the attempt's callbacks from its own
// goroutine before Connect has processed the OpenResult; an error
// delivered that way leaves fallback polling running rather than being
// undone by the session handoff. Callbacks from a superseded attempt
// are ignored.
func (c *Coordinator[T]) Connect() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.cancelRetryLocked()
	if c.session != nil {
		c.session.Close()
		c.session = nil
	}
	c.state = StateConnecting
	c.attempt++
	gen := c.attempt
	c.attemptErred = false
	open := c.cfg.OpenStream
	c.mu.Unlock()

	var res OpenResult
	if open != nil {
		res = open(StreamHandlers[T]{
			OnOpen:  func() { c.onStreamOpen(gen) },
			OnData:  func(v T) { c.onStreamData(gen, v) },
			OnError: func(err error) { c.onStreamError(gen, err) },
		})
	} else {
		res = OpenResult{Unsupported: true}
	}

	if res.Session != nil {
		c.mu.Lock()
		if c.closed || gen != c.attempt {
			c.mu.Unlock()
			res.Session.Close()
			return
		}
		c.session = res.Session
		var fire []func()
		if !c.attemptErred {
			fire = c.stopPollingLocked()
		}
		c.mu.Unlock()
		c.fire(fire...)
		return
	}

	// No stream source: degrade to polling and tell the owner why.
	c.mu.Lock()
	if c.closed || gen != c.attempt {
		c.mu.Unlock()
		return
	}
	fire := c.startPollingLocked()
	if res.RetryIn > 0 && c.retryTimer == nil {
		c.retryTimer = c.clock.AfterFunc(res.RetryIn, c.onRetryTimer)
	}
	c.mu.Unlock()
	c.fire(fire...)

	switch {
	case res.Unsupported:
		c.fire(func() {
			if c.handlers.StreamUnsupported != nil {
				c.handlers.StreamUnsupported()
			}
		})
	case res.RetryIn > 0:
		c.notifyStreamError(ErrStreamThrottled)
	default:
		c.notifyStreamError(ErrStreamUnavailable)
	}

	go func() {
		_, _ = c.RequestSnapshot(c.ctx)
	}()
}

// RequestSnapshot fetches one snapshot, de-duplicated: callers arriving
// while a fetch is in flight share its result instead of issuing a
// second request. The success or failure handler fires exactly once per
// underlying fetch. ctx bounds only this caller's wait, not the shared
// fetch itself.
func (c *Coordinator[T]) RequestSnapshot(ctx context.Context) (T, error) {
	var zero T

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return zero, ErrClosed
	}
	c.mu.Unlock()

	ch := c.snapshots.DoChan("snapshot", func() (any, error) {
		if c.cfg.FetchSnapshot == nil {
			return nil, ErrNoFetcher
		}
		v, err := c.cfg.FetchSnapshot(c.ctx)
		if err != nil {
			c.logger.Warn("snapshot fetch failed", "err", err)
			c.notifySnapshotError(err)
			return nil, err
		}
		c.notifySnapshot(v)
		return v, nil
	})

	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		return res.Val.(T), nil
	}
}

// StartFallbackPolling begins interval polling. Idempotent: a second
// call while polling is active is a no-op.
func (c *Coordinator[T]) StartFallbackPolling() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	fire := c.startPollingLocked()
	c.mu.Unlock()
	c.fire(fire...)
}

// StopFallbackPolling stops interval polling. Idempotent; fires
// FallbackStopped exactly once if polling was active.
func (c *Coordinator[T]) StopFallbackPolling() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	fire := c.stopPollingLocked()
	if c.state == StatePolling {
		c.state = StateIdle
	}
	c.mu.Unlock()
	c.fire(fire...)
}

// Cleanup tears the coordinator down: closes any stream session, stops
// polling, cancels any pending retry. Idempotent; callable from any
// state. Snapshot fetches still in flight are cancelled and their
// results are not delivered to handlers.
func (c *Coordinator[T]) Cleanup() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.state = StateClosed
	c.cancelRetryLocked()
	fire := c.stopPollingLocked()
	sess := c.session
	c.session = nil
	c.mu.Unlock()

	c.cancel()
	if sess != nil {
		sess.Close()
	}
	c.fire(fire...)
}

// onStreamOpen handles the stream's open callback.
func (c *Coordinator[T]) onStreamOpen(gen uint64) {
	c.mu.Lock()
	if c.closed || gen != c.attempt {
		c.mu.Unlock()
		return
	}
	c.attemptErred = false
	fire := c.stopPollingLocked()
	c.state = StateStreaming
	c.mu.Unlock()

	c.fire(fire...)
	c.fire(func() {
		if c.handlers.StreamOpened != nil {
			c.handlers.StreamOpened()
		}
	})
}

// onStreamData forwards a pushed payload verbatim.
func (c *Coordinator[T]) onStreamData(gen uint64, v T) {
	c.mu.Lock()
	if c.closed || gen != c.attempt {
		c.mu.Unlock()
		return
	}
	c.last = v
	c.hasLast = true
	c.mu.Unlock()

	c.fire(func() {
		if c.handlers.DataReceived != nil {
			c.handlers.DataReceived(v)
		}
	})
}

// onStreamError degrades to polling. The session is left open so the
// transport can attempt its own recovery while polling fills the gap.
func (c *Coordinator[T]) onStreamError(gen uint64, err error) {
	c.mu.Lock()
	if c.closed || gen != c.attempt {
		c.mu.Unlock()
		return
	}
	c.attemptErred = true
	fire := c.startPollingLocked()
	c.mu.Unlock()

	c.fire(fire...)
	c.notifyStreamError(err)
}

// onRetryTimer fires the single scheduled reconnect.
func (c *Coordinator[T]) onRetryTimer() {
	c.mu.Lock()
	c.retryTimer = nil
	closed := c.closed
	c.mu.Unlock()

	if closed {
		return
	}
	c.Connect()
}

// onPollTick fetches one snapshot per polling interval.
func (c *Coordinator[T]) onPollTick() {
	c.mu.Lock()
	skip := c.closed || c.pollTimer == nil
	c.mu.Unlock()
	if skip {
		return
	}
	_, _ = c.RequestSnapshot(c.ctx)
}

// startPollingLocked activates the fallback timer. Returns the handler
// to fire (outside the lock), or nothing when already polling.
func (c *Coordinator[T]) startPollingLocked() []func() {
	if c.pollTimer != nil {
		return nil
	}
	c.pollTimer = c.clock.TickerFunc(c.cfg.FallbackInterval, c.onPollTick)
	c.state = StatePolling
	return []func(){func() {
		if c.handlers.FallbackStarted != nil {
			c.handlers.FallbackStarted()
		}
	}}
}

// stopPollingLocked cancels the fallback timer if active.
func (c *Coordinator[T]) stopPollingLocked() []func() {
	if c.pollTimer == nil {
		return nil
	}
	c.pollTimer.Stop()
	c.pollTimer = nil
	return []func(){func() {
		if c.handlers.FallbackStopped != nil {
			c.handlers.FallbackStopped()
		}
	}}
}

// cancelRetryLocked cancels a pending scheduled reconnect, if any.
func (c *Coordinator[T]) cancelRetryLocked() {
	if c.retryTimer != nil {
		c.retryTimer.Stop()
		c.retryTimer = nil
	}
}

// notifySnapshot records and reports a snapshot, unless the coordinator
// was cleaned up while the fetch was in flight.
func (c *Coordinator[T]) notifySnapshot(v T) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.last = v
	c.hasLast = true
	c.mu.Unlock()

	c.fire(func() {
		if c.handlers.SnapshotSucceeded != nil {
			c.handlers.SnapshotSucceeded(v)
		}
	})
}

// notifySnapshotError reports a failed fetch, suppressed after Cleanup.
func (c *Coordinator[T]) notifySnapshotError(err error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	c.fire(func() {
		if c.handlers.SnapshotFailed != nil {
			c.handlers.SnapshotFailed(err)
		}
	})
}

// notifyStreamError reports a stream failure, suppressed after Cleanup.
func (c *Coordinator[T]) notifyStreamError(err error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	c.fire(func() {
		if c.handlers.StreamErrored != nil {
			c.handlers.StreamErrored(err)
		}
	})
}

// fire runs handler invocations outside the coordinator lock.
func (c *Coordinator[T]) fire(fns ...func()) {
	for _, fn := range fns {
		if fn != nil {
			fn()
		}
	}
}
