// Package stats provides online accumulators for simulation output:
// discrete-sample measures, time-weighted measures over piecewise-constant
// signals, and resource utilisation trackers.
//
// Accumulators keep running sums of powers of the observed values, so means
// and variances can be reconstructed at any time without retaining samples.
// They are not safe for concurrent use; inside a simulation only one
// process runs at a time, which is all the synchronisation they need.
package stats

import (
	"errors"
	"fmt"
	"math"
)

// DefaultMoments is the number of moments tracked unless asked otherwise:
// enough for mean and variance.
const DefaultMoments = 2

var (
	// ErrNoObservations is raised by Mean on an empty Measure.
	ErrNoObservations = errors.New("no observations")
	// ErrInsufficientObservations is raised by Variance with fewer than two samples.
	ErrInsufficientObservations = errors.New("variance needs at least two observations")
	// ErrZeroElapsed is raised by time-weighted statistics when no virtual
	// time has elapsed since the last reset.
	ErrZeroElapsed = errors.New("no time elapsed since reset")
	// ErrMomentOutOfRange is raised by Moment for an untracked moment.
	ErrMomentOutOfRange = errors.New("moment out of range")
)

// Clock is a source of virtual time.
type Clock interface {
	Now() float64
}

// Measure accumulates discrete samples: waiting times, response times,
// service times.
type Measure struct {
	n       int64
	moments []float64 // moments[k-1] is the sum of x^k
}

// NewMeasure creates a Measure tracking DefaultMoments moments.
func NewMeasure() *Measure {
	return NewMeasureWithMoments(DefaultMoments)
}

// NewMeasureWithMoments creates a Measure tracking k moments.
// Values of k below 1 fall back to DefaultMoments.
func NewMeasureWithMoments(k int) *Measure {
	if k < 1 {
		k = DefaultMoments
	}
	return &Measure{moments: make([]float64, k)}
}

// Add records one sample.
func (m *Measure) Add(x float64) {
	pow := 1.0
	for i := range m.moments {
		pow *= x
		m.moments[i] += pow
	}
	m.n++
}

// Count returns the number of samples since the last reset.
func (m *Measure) Count() int64 {
	return m.n
}

// Mean returns the sample mean. It panics if there are no samples.
func (m *Measure) Mean() float64 {
	if m.n == 0 {
		panic(fmt.Errorf("Measure.Mean: %w", ErrNoObservations))
	}
	return m.moments[0] / float64(m.n)
}

// Variance returns the unbiased sample variance. It panics with fewer than
// two samples, or if the second moment is not tracked.
func (m *Measure) Variance() float64 {
	if m.n < 2 {
		panic(fmt.Errorf("Measure.Variance: %w (have %d)", ErrInsufficientObservations, m.n))
	}
	m2 := m.Moment(2)
	mean := m.Mean()
	n := float64(m.n)
	return (m2 - n*mean*mean) / (n - 1)
}

// StdDev returns the square root of Variance.
func (m *Measure) StdDev() float64 {
	return math.Sqrt(m.Variance())
}

// Moment returns the raw sum of x^k over all samples (k is 1-based).
func (m *Measure) Moment(k int) float64 {
	if k < 1 || k > len(m.moments) {
		panic(fmt.Errorf("Measure.Moment(%d): %w (tracking %d)", k, ErrMomentOutOfRange, len(m.moments)))
	}
	return m.moments[k-1]
}

// Reset discards every sample.
func (m *Measure) Reset() {
	m.n = 0
	clear(m.moments)
}
