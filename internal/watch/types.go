package watch

import (
	"context"
	"errors"
	"time"
)

// Errors reported through the StreamErrored handler or returned by
// RequestSnapshot.
var (
	ErrClosed            = errors.New("coordinator closed")
	ErrStreamUnavailable = errors.New("stream source unavailable")
	ErrStreamThrottled   = errors.New("stream reconnect throttled")
	ErrNoFetcher         = errors.New("no snapshot fetcher configured")
)

// Session is a handle to an open push stream. Close must be idempotent.
type Session interface {
	Close() error
}

// StreamHandlers are the callbacks a stream implementation invokes.
// The coordinator supplies all three; implementations must call them
// from a single goroutine per session.
type StreamHandlers[T any] struct {
	OnOpen  func()
	OnData  func(T)
	OnError func(error)
}

// OpenResult reports the outcome of a stream-open attempt.
//
// Exactly one of the following shapes is returned, never an error:
//   - Session set: the attempt is underway; OnOpen or OnError follows.
//   - Unsupported true: push is not available in this configuration.
//   - RetryIn > 0: the attempt was refused (reconnect cooldown); a retry
//     may succeed after the given delay.
type OpenResult struct {
	Session     Session
	Unsupported bool
	RetryIn     time.Duration
}

// OpenFunc attempts to open a push stream. It must never panic and must
// report unsupportability or throttling as a non-error OpenResult.
type OpenFunc[T any] func(h StreamHandlers[T]) OpenResult

// FetchFunc fetches one point-in-time snapshot.
type FetchFunc[T any] func(ctx context.Context) (T, error)

// Handlers is the owner's event callback set. Every field is optional;
// an absent handler is a no-op.
type Handlers[T any] struct {
	// StreamOpened fires when a push stream becomes live.
	StreamOpened func()

	// DataReceived fires for every payload delivered by the stream.
	DataReceived func(T)

	// StreamErrored fires when a stream attempt or an open stream fails.
	StreamErrored func(error)

	// StreamUnsupported fires when push is unavailable in this environment.
	StreamUnsupported func()

	// FallbackStarted / FallbackStopped bracket interval polling.
	FallbackStarted func()
	FallbackStopped func()

	// SnapshotSucceeded / SnapshotFailed report snapshot fetch outcomes.
	SnapshotSucceeded func(T)
	SnapshotFailed    func(error)
}

// State is the coordinator's lifecycle state.
type State int

const (
	StateIdle State = iota
	StateConnecting
	StateStreaming
	StatePolling
	StateClosed
)

// String returns the lowercase state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateStreaming:
		return "streaming"
	case StatePolling:
		return "polling"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}
