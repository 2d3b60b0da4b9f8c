package mock

import (
	"context"
	"sync"
	"time"
)

// Clock provides an interface for time operations so tests can control
// token expiry and polling deadlines without waiting for real time to pass.
type Clock interface {
	Now() time.Time
}

// RealClock implements Clock using the actual system time.
type RealClock struct{}

// Now returns the current time.
func (RealClock) Now() time.Time {
	return time.Now()
}

// MockClock implements Clock with a controllable time value. Its Wait method
// can stand in for a sleep: it records the requested duration and advances
// the clock by it instantly.
type MockClock struct {
	mu      sync.RWMutex
	current time.Time
	waits   []time.Duration
}

// NewMockClock creates a new mock clock initialized to the given time.
// If t is zero, the clock is initialized to the current time.
func NewMockClock(t time.Time) *MockClock {
	if t.IsZero() {
		t = time.Now()
	}
	return &MockClock{current: t}
}

// Now returns the current time according to this mock clock.
func (m *MockClock) Now() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Advance moves the clock forward by the given duration.
func (m *MockClock) Advance(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = m.current.Add(d)
}

// Set sets the clock to a specific time.
func (m *MockClock) Set(t time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = t
}

// Wait records d and advances the clock by it. It returns ctx.Err() without
// advancing when the context is already done.
func (m *MockClock) Wait(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.waits = append(m.waits, d)
	m.current = m.current.Add(d)
	return nil
}

// Waits returns the durations passed to Wait, in call order.
func (m *MockClock) Waits() []time.Duration {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]time.Duration, len(m.waits))
	copy(out, m.waits)
	return out
}
