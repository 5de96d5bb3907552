package stats

import (
	"fmt"
	"math"
)

// SystemMeasure accumulates a piecewise-constant signal such as a queue
// population. Each value is weighted by how long it was held; mean and
// variance are normalised by the virtual time elapsed since the last reset.
type SystemMeasure struct {
	clock      Clock
	n          int64
	current    float64
	lastChange float64
	resetTime  float64
	moments    []float64 // moments[k-1] is the integral of value^k dt up to lastChange
}

// NewSystemMeasure creates a SystemMeasure tracking DefaultMoments moments,
// starting at value 0 at the clock's current time.
func NewSystemMeasure(clock Clock) *SystemMeasure {
	return NewSystemMeasureWithMoments(clock, DefaultMoments)
}

// NewSystemMeasureWithMoments creates a SystemMeasure tracking k moments.
// Values of k below 1 fall back to DefaultMoments.
func NewSystemMeasureWithMoments(clock Clock, k int) *SystemMeasure {
	if clock == nil {
		panic("NewSystemMeasure: clock must not be nil")
	}
	if k < 1 {
		k = DefaultMoments
	}
	now := clock.Now()
	return &SystemMeasure{
		clock:      clock,
		lastChange: now,
		resetTime:  now,
		moments:    make([]float64, k),
	}
}

// Update integrates the previous value over the time since it was set and
// makes v the current value.
func (sm *SystemMeasure) Update(v float64) {
	now := sm.clock.Now()
	sm.integrate(sm.moments, now)
	sm.current = v
	sm.lastChange = now
	sm.n++
}

// integrate adds current^k * (now - lastChange) to dst.
func (sm *SystemMeasure) integrate(dst []float64, now float64) {
	dt := now - sm.lastChange
	if dt <= 0 {
		return
	}
	pow := 1.0
	for i := range dst {
		pow *= sm.current
		dst[i] += pow * dt
	}
}

// Count returns the number of updates since the last reset.
func (sm *SystemMeasure) Count() int64 {
	return sm.n
}

// Current returns the value most recently passed to Update.
func (sm *SystemMeasure) Current() float64 {
	return sm.current
}

// LastChanged returns the virtual time of the most recent Update or Reset.
func (sm *SystemMeasure) LastChanged() float64 {
	return sm.lastChange
}

// ResetTime returns the virtual time of the last reset.
func (sm *SystemMeasure) ResetTime() float64 {
	return sm.resetTime
}

// elapsed returns now - resetTime, panicking when it is zero.
func (sm *SystemMeasure) elapsed(op string) float64 {
	d := sm.clock.Now() - sm.resetTime
	if d <= 0 {
		panic(fmt.Errorf("SystemMeasure.%s: %w", op, ErrZeroElapsed))
	}
	return d
}

// Moment returns the integral of value^k dt from the last reset to now,
// including the current value's contribution since its last change.
func (sm *SystemMeasure) Moment(k int) float64 {
	if k < 1 || k > len(sm.moments) {
		panic(fmt.Errorf("SystemMeasure.Moment(%d): %w (tracking %d)", k, ErrMomentOutOfRange, len(sm.moments)))
	}
	live := make([]float64, k)
	copy(live, sm.moments[:k])
	sm.integrate(live, sm.clock.Now())
	return live[k-1]
}

// Mean returns the time-average of the signal since the last reset.
func (sm *SystemMeasure) Mean() float64 {
	return sm.Moment(1) / sm.elapsed("Mean")
}

// Variance returns the time-weighted variance of the signal since the last reset.
func (sm *SystemMeasure) Variance() float64 {
	elapsed := sm.elapsed("Variance")
	mean := sm.Moment(1) / elapsed
	return sm.Moment(2)/elapsed - mean*mean
}

// StdDev returns the square root of Variance, clamped at zero against
// rounding error.
func (sm *SystemMeasure) StdDev() float64 {
	return math.Sqrt(math.Max(0, sm.Variance()))
}

// Reset discards the accumulated history and starts a new observation
// window at the current time. The current value is kept.
func (sm *SystemMeasure) Reset() {
	now := sm.clock.Now()
	sm.resetTime = now
	sm.lastChange = now
	sm.n = 0
	clear(sm.moments)
}
