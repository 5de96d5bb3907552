package stats

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// manualClock is a Clock tests can move by hand.
type manualClock struct {
	t float64
}

func (c *manualClock) Now() float64 { return c.t }

func TestSystemMeasure_TimeWeightedMean(t *testing.T) {
	// GIVEN a signal at 1 from t=0 to t=2, then 3 until t=5
	clock := &manualClock{}
	sm := NewSystemMeasure(clock)
	sm.Update(1)
	clock.t = 2
	sm.Update(3)
	clock.t = 5

	// THEN the mean is (1*2 + 3*3) / 5
	assert.InDelta(t, 2.2, sm.Mean(), 1e-12)
	// AND E[X^2] = (1*2 + 9*3) / 5 = 5.8, variance = 5.8 - 2.2^2
	assert.InDelta(t, 5.8-2.2*2.2, sm.Variance(), 1e-12)
	assert.Equal(t, int64(2), sm.Count())
	assert.Equal(t, 3.0, sm.Current())
	assert.Equal(t, 2.0, sm.LastChanged())
}

func TestSystemMeasure_UpdateAtSameInstantAddsNothing(t *testing.T) {
	clock := &manualClock{}
	sm := NewSystemMeasure(clock)
	sm.Update(10)
	sm.Update(0) // zero-length interval at value 10
	clock.t = 4

	assert.Equal(t, 0.0, sm.Mean())
}

func TestSystemMeasure_ConstantSignalHasZeroVariance(t *testing.T) {
	clock := &manualClock{t: 1}
	sm := NewSystemMeasure(clock)
	sm.Update(4)
	clock.t = 11

	assert.InDelta(t, 4.0, sm.Mean(), 1e-12)
	assert.InDelta(t, 0.0, sm.Variance(), 1e-9)
	assert.InDelta(t, 0.0, sm.StdDev(), 1e-4)
}

func TestSystemMeasure_ZeroElapsedPanics(t *testing.T) {
	clock := &manualClock{t: 3}
	sm := NewSystemMeasure(clock)
	sm.Update(1)

	err := panicErr(func() { sm.Mean() })
	assert.True(t, errors.Is(err, ErrZeroElapsed), "got %v", err)
	err = panicErr(func() { sm.Variance() })
	assert.True(t, errors.Is(err, ErrZeroElapsed), "got %v", err)
}

func TestSystemMeasure_ResetKeepsCurrentValue(t *testing.T) {
	// GIVEN a signal at 5 for 10 time units
	clock := &manualClock{}
	sm := NewSystemMeasure(clock)
	sm.Update(5)
	clock.t = 10

	// WHEN reset at t=10 and observed until t=12 with no further updates
	sm.Reset()
	assert.Equal(t, int64(0), sm.Count())
	assert.Equal(t, 10.0, sm.ResetTime())
	clock.t = 12

	// THEN only the post-reset window counts, at the retained value
	assert.Equal(t, 5.0, sm.Current())
	assert.InDelta(t, 5.0, sm.Mean(), 1e-12)
}

func TestSystemMeasure_MomentIncludesLiveInterval(t *testing.T) {
	clock := &manualClock{}
	sm := NewSystemMeasureWithMoments(clock, 3)
	sm.Update(2)
	clock.t = 3

	require.Equal(t, 6.0, sm.Moment(1))
	require.Equal(t, 12.0, sm.Moment(2))
	require.Equal(t, 24.0, sm.Moment(3))

	// reading a moment must not fold the live interval in twice
	require.Equal(t, 6.0, sm.Moment(1))
}

func TestNewSystemMeasure_NilClockPanics(t *testing.T) {
	assert.Panics(t, func() { NewSystemMeasure(nil) })
}

func TestResource_Utilisation(t *testing.T) {
	// GIVEN a resource busy from t=1 to t=4 and from t=6 to t=7
	clock := &manualClock{}
	r := NewResource(clock)
	clock.t = 1
	r.Claim()
	assert.True(t, r.Busy())
	clock.t = 4
	r.Release()
	assert.False(t, r.Busy())
	clock.t = 6
	r.Claim()
	clock.t = 7
	r.Release()
	clock.t = 10

	// THEN it was busy 4 of 10 time units
	assert.InDelta(t, 0.4, r.Utilisation(), 1e-12)
}

func TestResource_ResetWhileBusy(t *testing.T) {
	clock := &manualClock{}
	r := NewResource(clock)
	clock.t = 2
	r.Claim()
	clock.t = 5
	r.Reset()
	clock.t = 7
	r.Release()
	clock.t = 9

	assert.True(t, !r.Busy())
	assert.InDelta(t, 0.5, r.Utilisation(), 1e-12)
}
