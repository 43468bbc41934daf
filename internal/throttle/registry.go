package throttle

import (
	"log/slog"
	"sync"
	"time"
)

// DefaultRetryDelay is the cooldown enforced between stream attempts to
// the same endpoint.
const DefaultRetryDelay = 20 * time.Second

// Decision is the outcome of evaluating an endpoint against the cooldown.
type Decision struct {
	// Permitted reports whether a new stream attempt may start now.
	Permitted bool

	// Delay is how long the caller should wait before retrying.
	// Zero when Permitted is true.
	Delay time.Duration
}

// Registry enforces a reconnect cooldown per stream endpoint.
type Registry struct {
	mu         sync.Mutex
	store      Store
	retryDelay time.Duration
	now        func() time.Time
	logger     *slog.Logger
}

// Option configures a Registry.
type Option func(*Registry)

// WithRetryDelay overrides the default cooldown.
func WithRetryDelay(d time.Duration) Option {
	return func(r *Registry) {
		r.retryDelay = d
	}
}

// WithNow injects a clock for tests.
func WithNow(now func() time.Time) Option {
	return func(r *Registry) {
		r.now = now
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		r.logger = logger
	}
}

// NewRegistry creates a registry backed by store.
func NewRegistry(store Store, opts ...Option) *Registry {
	r := &Registry{
		store:      store,
		retryDelay: DefaultRetryDelay,
		now:        time.Now,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

var (
	sharedOnce sync.Once
	shared     *Registry
)

// Shared returns the process-wide registry backed by the default file
// store. Callers that need isolation (tests, embedders) should construct
// their own with NewRegistry.
func Shared() *Registry {
	sharedOnce.Do(func() {
		path, err := DefaultStorePath()
		if err != nil {
			slog.Warn("cooldown store unavailable, using in-memory store", "err", err)
			shared = NewRegistry(NewMemoryStore())
			return
		}
		shared = NewRegistry(NewFileStore(path))
	})
	return shared
}

// Evaluate decides whether a new stream attempt to endpoint is allowed.
//
// An unknown endpoint, an elapsed cooldown, or a broken store all permit
// immediately. A record with no close time means a prior session is still
// believed open and the full cooldown applies; so does a negative elapsed
// time (clock moved backwards).
func (r *Registry) Evaluate(endpoint string) Decision {
	r.mu.Lock()
	defer r.mu.Unlock()

	records, ok := r.load()
	if !ok {
		return Decision{Permitted: true}
	}

	rec, exists := records[endpoint]
	if !exists {
		return Decision{Permitted: true}
	}

	if rec.ClosedAt.IsZero() {
		return Decision{Permitted: false, Delay: r.retryDelay}
	}

	elapsed := r.now().Sub(rec.ClosedAt)
	if elapsed < 0 {
		return Decision{Permitted: false, Delay: r.retryDelay}
	}
	if elapsed >= r.retryDelay {
		return Decision{Permitted: true}
	}

	return Decision{Permitted: false, Delay: r.retryDelay - elapsed}
}

// RecordOpen marks the endpoint as having an open stream, replacing any
// prior record.
func (r *Registry) RecordOpen(endpoint string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	records, ok := r.load()
	if !ok {
		return
	}
	records[endpoint] = Record{OpenedAt: r.now()}
	r.save(records)
}

// RecordClose marks the endpoint's stream as closed, preserving the
// recorded open time.
func (r *Registry) RecordClose(endpoint string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	records, ok := r.load()
	if !ok {
		return
	}
	rec := records[endpoint]
	rec.ClosedAt = r.now()
	records[endpoint] = rec
	r.save(records)
}

// Clear forgets the endpoint entirely.
func (r *Registry) Clear(endpoint string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	records, ok := r.load()
	if !ok {
		return
	}
	if _, exists := records[endpoint]; !exists {
		return
	}
	delete(records, endpoint)
	r.save(records)
}

// load reads the store, degrading to "no records" on failure.
func (r *Registry) load() (map[string]Record, bool) {
	records, err := r.store.Load()
	if err != nil {
		r.logger.Warn("cooldown store unreadable, permitting reconnects", "err", err)
		return nil, false
	}
	return records, true
}

// save writes the store, swallowing failures.
func (r *Registry) save(records map[string]Record) {
	if err := r.store.Save(records); err != nil {
		r.logger.Warn("cooldown store unwritable, state not persisted", "err", err)
	}
}
