// Package testutil provides shared test infrastructure for the psim
// simulator: closed-form queueing results that simulated runs are checked
// against, and tolerance assertions.
package testutil

import (
	"math"
	"testing"
)

// MM1 is the single-server queue with Poisson arrivals at rate Lambda and
// exponential service at rate Mu. Valid only for Lambda < Mu.
type MM1 struct {
	Lambda, Mu float64
}

// Rho returns the server utilisation.
func (q MM1) Rho() float64 { return q.Lambda / q.Mu }

// MeanResponse returns the mean time from arrival to departure.
func (q MM1) MeanResponse() float64 { return 1 / (q.Mu - q.Lambda) }

// MeanWait returns the mean time spent queued before service.
func (q MM1) MeanWait() float64 { return q.Rho() / (q.Mu - q.Lambda) }

// MeanQueueLength returns the mean number waiting, excluding the one in service.
func (q MM1) MeanQueueLength() float64 {
	rho := q.Rho()
	return rho * rho / (1 - rho)
}

// MM1K is MM1 with room for K requests in the system, service included.
// Arrivals finding K present are refused.
type MM1K struct {
	Lambda, Mu float64
	K          int
}

// Blocking returns the probability that an arrival is refused.
func (q MM1K) Blocking() float64 {
	rho := q.Lambda / q.Mu
	k := float64(q.K)
	if rho == 1 {
		return 1 / (k + 1)
	}
	return (1 - rho) * math.Pow(rho, k) / (1 - math.Pow(rho, k+1))
}

// Utilisation returns the fraction of time the server is busy.
func (q MM1K) Utilisation() float64 {
	return q.Lambda / q.Mu * (1 - q.Blocking())
}

// AssertFloat64Equal compares two float64 values with relative tolerance.
func AssertFloat64Equal(t *testing.T, name string, want, got, relTol float64) {
	t.Helper()
	if want == 0 && got == 0 {
		return
	}
	diff := math.Abs(want - got)
	maxVal := math.Max(math.Abs(want), math.Abs(got))
	if diff/maxVal > relTol {
		t.Errorf("%s: got %v, want %v (diff=%v, relDiff=%v)", name, got, want, diff, diff/maxVal)
	}
}
