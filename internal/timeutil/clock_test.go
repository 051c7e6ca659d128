package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRealClockNow(t *testing.T) {
	c := RealClock{}
	before := time.Now()
	now := c.Now()
	after := time.Now()

	assert.False(t, now.Before(before))
	assert.False(t, now.After(after))
}

func TestRealClockSince(t *testing.T) {
	c := RealClock{}
	start := c.Now().Add(-time.Second)
	assert.GreaterOrEqual(t, c.Since(start), time.Second)
}

func TestMockClockAdvance(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	c := NewMockClock(base)

	assert.Equal(t, base, c.Now())

	c.Advance(90 * time.Second)
	assert.Equal(t, base.Add(90*time.Second), c.Now())
	assert.Equal(t, 90*time.Second, c.Since(base))
}

func TestMockClockSleepAdvancesTime(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	c := NewMockClock(base)

	c.Sleep(100 * time.Millisecond)
	c.Sleep(500 * time.Millisecond)

	assert.Equal(t, []time.Duration{100 * time.Millisecond, 500 * time.Millisecond}, c.Sleeps())
	assert.Equal(t, 600*time.Millisecond, c.TotalSlept())
	assert.Equal(t, base.Add(600*time.Millisecond), c.Now())
}

func TestMockClockSet(t *testing.T) {
	c := NewMockClock(time.Unix(0, 0))
	target := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	c.Set(target)
	assert.Equal(t, target, c.Now())
}
