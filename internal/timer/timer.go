// Package timer defines the time-authority boundary consumed by seats with a
// deadline exit rule. The clearing core never reads the wall clock directly;
// it subscribes to an Authority and reacts when the subscription fires.
package timer

import (
	"sync"
	"time"
)

// Authority delivers deadline wakeups and answers point-in-time queries.
type Authority interface {
	// Wake returns a channel that is closed at or after the given deadline.
	// Each call registers a subscription; callers that only need to know
	// whether a deadline already passed use Now instead.
	Wake(deadline time.Time) <-chan struct{}

	// Now reports the authority's current instant.
	Now() time.Time
}

// Clock is the wall-clock Authority.
type Clock struct{}

// Wake implements Authority using the runtime timer.
func (Clock) Wake(deadline time.Time) <-chan struct{} {
	ch := make(chan struct{})
	d := time.Until(deadline)
	if d <= 0 {
		close(ch)
		return ch
	}
	time.AfterFunc(d, func() { close(ch) })
	return ch
}

// Now implements Authority over the wall clock.
func (Clock) Now() time.Time { return time.Now() }

// Manual is a hand-cranked Authority for tests: nothing fires until Advance
// moves its notion of now past a subscription's deadline.
type Manual struct {
	mu      sync.Mutex
	now     time.Time
	pending []manualSub
}

type manualSub struct {
	deadline time.Time
	ch       chan struct{}
}

// NewManual creates a manual authority starting at the given instant.
func NewManual(now time.Time) *Manual {
	return &Manual{now: now}
}

// Wake implements Authority.
func (m *Manual) Wake(deadline time.Time) <-chan struct{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	ch := make(chan struct{})
	if !deadline.After(m.now) {
		close(ch)
		return ch
	}
	m.pending = append(m.pending, manualSub{deadline: deadline, ch: ch})
	return ch
}

// Advance moves the manual clock forward and fires every due subscription.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = m.now.Add(d)
	rest := m.pending[:0]
	for _, sub := range m.pending {
		if !sub.deadline.After(m.now) {
			close(sub.ch)
			continue
		}
		rest = append(rest, sub)
	}
	m.pending = rest
}

// Now returns the manual clock's current instant.
func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}
