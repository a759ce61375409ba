package trip

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPaceNeedsTwoSamples(t *testing.T) {
	pe := NewPaceEstimator(10)

	_, ok := pe.Pace()
	assert.False(t, ok)

	pe.Observe(0, time.Now())
	_, ok = pe.Pace()
	assert.False(t, ok)
}

func TestPaceFitsConstantSpeed(t *testing.T) {
	pe := NewPaceEstimator(10)
	base := time.Now()

	// 5 m/s for 10 seconds.
	for i := 0; i <= 10; i++ {
		pe.Observe(float64(i)*5, base.Add(time.Duration(i)*time.Second))
	}

	pace, ok := pe.Pace()
	require.True(t, ok)
	assert.InDelta(t, 5.0, pace, 0.01)
}

func TestPaceSlidingWindowFollowsRecentSpeed(t *testing.T) {
	pe := NewPaceEstimator(5)
	base := time.Now()

	// 2 m/s then 8 m/s; only the recent leg fits in the window.
	total := 0.0
	for i := 0; i < 10; i++ {
		total += 2
		pe.Observe(total, base.Add(time.Duration(i)*time.Second))
	}
	for i := 10; i < 20; i++ {
		total += 8
		pe.Observe(total, base.Add(time.Duration(i)*time.Second))
	}

	pace, ok := pe.Pace()
	require.True(t, ok)
	assert.InDelta(t, 8.0, pace, 0.1)
}

func TestPaceStationaryIsZero(t *testing.T) {
	pe := NewPaceEstimator(10)
	base := time.Now()

	for i := 0; i < 5; i++ {
		pe.Observe(100, base.Add(time.Duration(i)*time.Second))
	}

	pace, ok := pe.Pace()
	require.True(t, ok)
	assert.InDelta(t, 0.0, pace, 1e-6)
}

func TestPaceResetDiscardsSamples(t *testing.T) {
	pe := NewPaceEstimator(10)
	base := time.Now()
	pe.Observe(0, base)
	pe.Observe(10, base.Add(time.Second))

	pe.Reset()
	_, ok := pe.Pace()
	assert.False(t, ok)
}
