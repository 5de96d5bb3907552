// Package dist provides the random variates that drive simulation models:
// interarrival times, service times and the like.
//
// Every sampler draws from a math/rand/v2 Source supplied at construction,
// normally one stream of a sim.PartitionedRNG, so runs are reproducible
// for a fixed seed.
package dist

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/stat/distuv"
)

// Sampler produces one sample per call. Successive calls are independent.
type Sampler interface {
	Next() float64
}

// ConstantSampler always returns the same value.
type ConstantSampler struct {
	value float64
}

// NewConstant creates a sampler that always returns v.
func NewConstant(v float64) *ConstantSampler {
	return &ConstantSampler{value: v}
}

func (s *ConstantSampler) Next() float64 { return s.value }

// ExponentialSampler draws from an exponential distribution with the given rate.
type ExponentialSampler struct {
	dist distuv.Exponential
}

// NewExponential creates an exponential sampler with mean 1/rate.
func NewExponential(rate float64, src rand.Source) (*ExponentialSampler, error) {
	if !(rate > 0) {
		return nil, fmt.Errorf("exponential rate must be positive, got %v", rate)
	}
	return &ExponentialSampler{dist: distuv.Exponential{Rate: rate, Src: src}}, nil
}

func (s *ExponentialSampler) Next() float64 { return s.dist.Rand() }

// UniformSampler draws uniformly from [min, max).
type UniformSampler struct {
	dist distuv.Uniform
}

// NewUniform creates a uniform sampler over [a, b).
func NewUniform(a, b float64, src rand.Source) (*UniformSampler, error) {
	if !(b > a) {
		return nil, fmt.Errorf("uniform bounds must satisfy min < max, got [%v, %v)", a, b)
	}
	return &UniformSampler{dist: distuv.Uniform{Min: a, Max: b, Src: src}}, nil
}

func (s *UniformSampler) Next() float64 { return s.dist.Rand() }

// NormalSampler draws from a normal distribution.
type NormalSampler struct {
	dist distuv.Normal
}

// NewNormal creates a normal sampler with mean mu and standard deviation sigma.
func NewNormal(mu, sigma float64, src rand.Source) (*NormalSampler, error) {
	if !(sigma >= 0) {
		return nil, fmt.Errorf("normal sigma must be non-negative, got %v", sigma)
	}
	return &NormalSampler{dist: distuv.Normal{Mu: mu, Sigma: sigma, Src: src}}, nil
}

func (s *NormalSampler) Next() float64 { return s.dist.Rand() }

// PositiveNormalSampler folds a normal distribution at zero, so durations
// drawn from it are never negative.
type PositiveNormalSampler struct {
	normal *NormalSampler
}

// NewPositiveNormal creates a sampler returning |N(mu, sigma)|.
func NewPositiveNormal(mu, sigma float64, src rand.Source) (*PositiveNormalSampler, error) {
	n, err := NewNormal(mu, sigma, src)
	if err != nil {
		return nil, err
	}
	return &PositiveNormalSampler{normal: n}, nil
}

func (s *PositiveNormalSampler) Next() float64 { return math.Abs(s.normal.Next()) }

// WeibullSampler draws alpha * (-ln U)^(1/beta).
type WeibullSampler struct {
	dist distuv.Weibull
}

// NewWeibull creates a Weibull sampler with scale alpha and shape beta.
func NewWeibull(alpha, beta float64, src rand.Source) (*WeibullSampler, error) {
	if !(alpha > 0) || !(beta > 0) {
		return nil, fmt.Errorf("weibull scale and shape must be positive, got alpha=%v beta=%v", alpha, beta)
	}
	return &WeibullSampler{dist: distuv.Weibull{K: beta, Lambda: alpha, Src: src}}, nil
}

func (s *WeibullSampler) Next() float64 { return s.dist.Rand() }

// ParetoSampler draws from a Pareto distribution shifted to start at zero
// (Lomax): (1-U)^(-1/a) - 1.
type ParetoSampler struct {
	dist distuv.Pareto
}

// NewPareto creates a shifted Pareto sampler with shape a.
func NewPareto(a float64, src rand.Source) (*ParetoSampler, error) {
	if !(a > 0) {
		return nil, fmt.Errorf("pareto shape must be positive, got %v", a)
	}
	return &ParetoSampler{dist: distuv.Pareto{Xm: 1, Alpha: a, Src: src}}, nil
}

func (s *ParetoSampler) Next() float64 { return s.dist.Rand() - 1 }

// ErlangSampler draws the sum of k exponential phases, each with rate
// k*theta, so the mean is 1/theta whatever k is.
type ErlangSampler struct {
	dist distuv.Gamma
}

// NewErlang creates an Erlang sampler with k phases and overall rate theta.
func NewErlang(k int, theta float64, src rand.Source) (*ErlangSampler, error) {
	if k < 1 {
		return nil, fmt.Errorf("erlang needs at least one phase, got k=%d", k)
	}
	if !(theta > 0) {
		return nil, fmt.Errorf("erlang rate must be positive, got %v", theta)
	}
	kf := float64(k)
	return &ErlangSampler{dist: distuv.Gamma{Alpha: kf, Beta: kf * theta, Src: src}}, nil
}

func (s *ErlangSampler) Next() float64 { return s.dist.Rand() }

// GeometricSampler draws the number of failures before the first success
// of a Bernoulli(p) trial.
type GeometricSampler struct {
	logQ float64
	rng  *rand.Rand
}

// NewGeometric creates a geometric sampler with success probability p.
func NewGeometric(p float64, src rand.Source) (*GeometricSampler, error) {
	if !(p > 0 && p <= 1) {
		return nil, fmt.Errorf("geometric probability must be in (0, 1], got %v", p)
	}
	return &GeometricSampler{logQ: math.Log1p(-p), rng: rand.New(src)}, nil
}

func (s *GeometricSampler) Next() float64 {
	if s.logQ == math.Inf(-1) { // p == 1
		return 0
	}
	u := 1 - s.rng.Float64() // (0, 1]
	return math.Floor(math.Log(u) / s.logQ)
}

// DiscreteEmpiricalSampler returns one of a fixed set of values with
// probabilities proportional to their weights.
type DiscreteEmpiricalSampler struct {
	values []float64
	cdf    []float64
	rng    *rand.Rand
}

// NewDiscreteEmpirical creates a sampler over values weighted by weights.
// Weights need not sum to one.
func NewDiscreteEmpirical(values, weights []float64, src rand.Source) (*DiscreteEmpiricalSampler, error) {
	if len(values) == 0 || len(values) != len(weights) {
		return nil, fmt.Errorf("discrete empirical needs one weight per value, got %d values and %d weights", len(values), len(weights))
	}
	cdf, err := cumulative(weights)
	if err != nil {
		return nil, fmt.Errorf("discrete empirical: %w", err)
	}
	return &DiscreteEmpiricalSampler{
		values: append([]float64(nil), values...),
		cdf:    cdf,
		rng:    rand.New(src),
	}, nil
}

func (s *DiscreteEmpiricalSampler) Next() float64 {
	u := s.rng.Float64()
	idx := sort.Search(len(s.cdf), func(i int) bool { return s.cdf[i] > u })
	if idx >= len(s.values) {
		idx = len(s.values) - 1
	}
	return s.values[idx]
}

// ContinuousEmpiricalSampler draws from a piecewise-uniform histogram:
// bin i spans [bounds[i], bounds[i+1]) and has probability proportional to
// weights[i].
type ContinuousEmpiricalSampler struct {
	bounds []float64
	cdf    []float64 // cdf[i] is P(X < bounds[i]); cdf[0] = 0
	rng    *rand.Rand
}

// NewContinuousEmpirical creates a histogram sampler. bounds must be
// non-decreasing and have exactly one more element than weights.
func NewContinuousEmpirical(bounds, weights []float64, src rand.Source) (*ContinuousEmpiricalSampler, error) {
	if len(weights) == 0 || len(bounds) != len(weights)+1 {
		return nil, fmt.Errorf("continuous empirical needs len(bounds) == len(weights)+1, got %d and %d", len(bounds), len(weights))
	}
	if !sort.Float64sAreSorted(bounds) {
		return nil, fmt.Errorf("continuous empirical bounds must be non-decreasing: %v", bounds)
	}
	binCDF, err := cumulative(weights)
	if err != nil {
		return nil, fmt.Errorf("continuous empirical: %w", err)
	}
	return &ContinuousEmpiricalSampler{
		bounds: append([]float64(nil), bounds...),
		cdf:    append([]float64{0}, binCDF...),
		rng:    rand.New(src),
	}, nil
}

func (s *ContinuousEmpiricalSampler) Next() float64 {
	u := s.rng.Float64()
	// bin i such that cdf[i] <= u < cdf[i+1]
	i := sort.Search(len(s.cdf), func(j int) bool { return s.cdf[j] > u }) - 1
	if i >= len(s.bounds)-1 {
		i = len(s.bounds) - 2
	}
	lo, hi := s.cdf[i], s.cdf[i+1]
	return s.bounds[i] + (u-lo)/(hi-lo)*(s.bounds[i+1]-s.bounds[i])
}

// cumulative normalises weights into a CDF whose last entry is exactly 1.
func cumulative(weights []float64) ([]float64, error) {
	total := 0.0
	for i, w := range weights {
		if !(w >= 0) || math.IsInf(w, 0) {
			return nil, fmt.Errorf("weight %d is %v, want a finite non-negative number", i, w)
		}
		total += w
	}
	if total <= 0 {
		return nil, fmt.Errorf("weights sum to %v, want a positive total", total)
	}
	cdf := make([]float64, len(weights))
	acc := 0.0
	for i, w := range weights {
		acc += w / total
		cdf[i] = acc
	}
	cdf[len(cdf)-1] = 1.0
	return cdf, nil
}
