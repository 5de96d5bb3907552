package dist

import (
	"fmt"
	"math"
	"math/rand/v2"
)

// DistSpec describes a sampler in YAML model files.
//
//	type: exponential
//	params: {rate: 0.5}
//
// Empirical types take their support in Values and their weights in Weights.
type DistSpec struct {
	Type    string             `yaml:"type"`
	Params  map[string]float64 `yaml:"params,omitempty"`
	Values  []float64          `yaml:"values,omitempty"`
	Weights []float64          `yaml:"weights,omitempty"`
}

// requireParam checks that all required keys exist in a params map.
func requireParam(params map[string]float64, keys ...string) error {
	for _, k := range keys {
		if _, ok := params[k]; !ok {
			return fmt.Errorf("distribution requires parameter %q", k)
		}
	}
	return nil
}

// NewSampler creates a Sampler from a DistSpec, drawing from src.
func NewSampler(spec DistSpec, src rand.Source) (Sampler, error) {
	p := spec.Params
	switch spec.Type {
	case "constant":
		if err := requireParam(p, "value"); err != nil {
			return nil, err
		}
		return NewConstant(p["value"]), nil

	case "exponential":
		// either rate or mean
		if rate, ok := p["rate"]; ok {
			return NewExponential(rate, src)
		}
		if err := requireParam(p, "mean"); err != nil {
			return nil, fmt.Errorf("exponential requires \"rate\" or \"mean\": %w", err)
		}
		if !(p["mean"] > 0) {
			return nil, fmt.Errorf("exponential mean must be positive, got %v", p["mean"])
		}
		return NewExponential(1/p["mean"], src)

	case "uniform":
		if err := requireParam(p, "min", "max"); err != nil {
			return nil, err
		}
		return NewUniform(p["min"], p["max"], src)

	case "normal":
		if err := requireParam(p, "mu", "sigma"); err != nil {
			return nil, err
		}
		return NewNormal(p["mu"], p["sigma"], src)

	case "positive_normal":
		if err := requireParam(p, "mu", "sigma"); err != nil {
			return nil, err
		}
		return NewPositiveNormal(p["mu"], p["sigma"], src)

	case "weibull":
		if err := requireParam(p, "alpha", "beta"); err != nil {
			return nil, err
		}
		return NewWeibull(p["alpha"], p["beta"], src)

	case "pareto":
		if err := requireParam(p, "a"); err != nil {
			return nil, err
		}
		return NewPareto(p["a"], src)

	case "erlang":
		if err := requireParam(p, "k", "theta"); err != nil {
			return nil, err
		}
		k := p["k"]
		if k != math.Trunc(k) || k < 1 || k > math.MaxInt32 {
			return nil, fmt.Errorf("erlang k must be a positive integer, got %v", k)
		}
		return NewErlang(int(k), p["theta"], src)

	case "geometric":
		if err := requireParam(p, "p"); err != nil {
			return nil, err
		}
		return NewGeometric(p["p"], src)

	case "discrete_empirical":
		return NewDiscreteEmpirical(spec.Values, spec.Weights, src)

	case "continuous_empirical":
		return NewContinuousEmpirical(spec.Values, spec.Weights, src)

	case "":
		return nil, fmt.Errorf("distribution type is required")

	default:
		return nil, fmt.Errorf("unknown distribution type %q", spec.Type)
	}
}
