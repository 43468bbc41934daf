package watch

import (
	"sync"
	"time"
)

// Timer is a cancellable scheduled callback. Stop is idempotent.
type Timer interface {
	Stop()
}

// Clock abstracts timer scheduling so tests can drive time manually.
type Clock interface {
	Now() time.Time

	// AfterFunc schedules f to run once after d.
	AfterFunc(d time.Duration, f func()) Timer

	// TickerFunc schedules f to run every d until the Timer is stopped.
	TickerFunc(d time.Duration, f func()) Timer
}

// SystemClock returns the real-time clock.
func SystemClock() Clock {
	return systemClock{}
}

type systemClock struct{}

func (systemClock) Now() time.Time {
	return time.Now()
}

func (systemClock) AfterFunc(d time.Duration, f func()) Timer {
	return &onceTimer{t: time.AfterFunc(d, f)}
}

func (systemClock) TickerFunc(d time.Duration, f func()) Timer {
	t := &tickerTimer{
		ticker: time.NewTicker(d),
		done:   make(chan struct{}),
	}
	go func() {
		for {
			select {
			case <-t.done:
				return
			case <-t.ticker.C:
				f()
			}
		}
	}()
	return t
}

type onceTimer struct {
	t *time.Timer
}

func (o *onceTimer) Stop() {
	o.t.Stop()
}

type tickerTimer struct {
	ticker *time.Ticker
	done   chan struct{}
	once   sync.Once
}

func (t *tickerTimer) Stop() {
	t.once.Do(func() {
		t.ticker.Stop()
		close(t.done)
	})
}
