package mock

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMockClock_AdvanceAndSet(t *testing.T) {
	start := time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)
	clock := NewMockClock(start)

	assert.True(t, clock.Now().Equal(start))

	clock.Advance(time.Hour)
	assert.True(t, clock.Now().Equal(start.Add(time.Hour)))

	later := start.Add(48 * time.Hour)
	clock.Set(later)
	assert.True(t, clock.Now().Equal(later))
}

func TestMockClock_ZeroStartsNow(t *testing.T) {
	before := time.Now()
	clock := NewMockClock(time.Time{})
	assert.False(t, clock.Now().Before(before))
}

func TestMockClock_Wait(t *testing.T) {
	start := time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)
	clock := NewMockClock(start)

	assert.NoError(t, clock.Wait(context.Background(), 5*time.Second))
	assert.NoError(t, clock.Wait(context.Background(), 10*time.Second))

	assert.Equal(t, []time.Duration{5 * time.Second, 10 * time.Second}, clock.Waits())
	assert.True(t, clock.Now().Equal(start.Add(15*time.Second)))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, clock.Wait(ctx, time.Second), context.Canceled)
	assert.Len(t, clock.Waits(), 2, "cancelled waits are not recorded")
}
