package model

import (
	"bytes"
	"fmt"
	"math"
	"math/rand/v2"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/psim-dev/psim/sim/dist"
)

// Config describes a client/server queueing network and how long to run it.
type Config struct {
	Name          string         `yaml:"name"`
	RunTime       float64        `yaml:"run_time"`
	ResetTime     float64        `yaml:"reset_time,omitempty"`
	Seed          int64          `yaml:"seed"`
	ProgressEvery uint64         `yaml:"progress_every,omitempty"`
	Clients       []ClientConfig `yaml:"clients"`
	Servers       []ServerConfig `yaml:"servers"`
	Dump          *DumpConfig    `yaml:"dump,omitempty"`
}

// ClientConfig describes one request source.
type ClientConfig struct {
	Name         string        `yaml:"name"`
	Interarrival dist.DistSpec `yaml:"interarrival"`
	Destinations []string      `yaml:"destinations"`
}

// ServerConfig describes one server.
// QueueSize <= 0 means an unbounded queue. ThreadGrain 0 runs each service
// in a single slice.
type ServerConfig struct {
	Name        string        `yaml:"name"`
	Service     dist.DistSpec `yaml:"service"`
	Threads     int           `yaml:"threads,omitempty"`
	Processors  int           `yaml:"processors,omitempty"`
	QueueSize   int           `yaml:"queue_size,omitempty"`
	ThreadGrain float64       `yaml:"thread_grain,omitempty"`
}

// DumpConfig enables periodic CSV snapshots of queue lengths and utilisation.
// An empty File writes to stdout.
type DumpConfig struct {
	Period float64 `yaml:"period"`
	File   string  `yaml:"file,omitempty"`
}

// DefaultProgressEvery is the dispatch interval between progress log lines.
const DefaultProgressEvery = 100000

// timeSamplers are the distribution types usable for interarrival and
// service times. Their parameters are checked by validateTimeSampler.
var timeSamplers = map[string]bool{
	"constant": true, "exponential": true, "uniform": true, "positive_normal": true,
	"weibull": true, "pareto": true, "erlang": true, "geometric": true,
	"discrete_empirical": true, "continuous_empirical": true,
}

// LoadConfig reads and parses a YAML model file, applies defaults and
// validates the result. Unrecognized keys are rejected.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading model config: %w", err)
	}
	return ParseConfig(data)
}

// ParseConfig is LoadConfig for in-memory YAML.
func ParseConfig(data []byte) (*Config, error) {
	var cfg Config
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parsing model config: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid model config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.ProgressEvery == 0 {
		c.ProgressEvery = DefaultProgressEvery
	}
	for i := range c.Servers {
		if c.Servers[i].Threads == 0 {
			c.Servers[i].Threads = 1
		}
		if c.Servers[i].Processors == 0 {
			c.Servers[i].Processors = 1
		}
	}
}

// Validate checks ranges, name uniqueness and that every client destination
// names a server.
func (c *Config) Validate() error {
	if !(c.RunTime > 0) {
		return fmt.Errorf("run_time must be positive, got %v", c.RunTime)
	}
	if c.ResetTime < 0 || c.ResetTime >= c.RunTime {
		return fmt.Errorf("reset_time must be in [0, run_time), got %v", c.ResetTime)
	}
	if len(c.Clients) == 0 {
		return fmt.Errorf("at least one client required")
	}
	if len(c.Servers) == 0 {
		return fmt.Errorf("at least one server required")
	}

	names := make(map[string]bool, len(c.Clients)+len(c.Servers))
	servers := make(map[string]bool, len(c.Servers))
	for i, s := range c.Servers {
		if s.Name == "" {
			return fmt.Errorf("servers[%d]: name is required", i)
		}
		if names[s.Name] {
			return fmt.Errorf("servers[%d]: duplicate name %q", i, s.Name)
		}
		names[s.Name] = true
		servers[s.Name] = true
		if s.Threads < 1 {
			return fmt.Errorf("server %q: threads must be at least 1, got %d", s.Name, s.Threads)
		}
		if s.Processors < 1 {
			return fmt.Errorf("server %q: processors must be at least 1, got %d", s.Name, s.Processors)
		}
		if s.ThreadGrain < 0 {
			return fmt.Errorf("server %q: thread_grain must be non-negative, got %v", s.Name, s.ThreadGrain)
		}
		if err := validateTimeSampler(s.Service, false); err != nil {
			return fmt.Errorf("server %q service: %w", s.Name, err)
		}
	}
	for i, cl := range c.Clients {
		if cl.Name == "" {
			return fmt.Errorf("clients[%d]: name is required", i)
		}
		if names[cl.Name] {
			return fmt.Errorf("clients[%d]: duplicate name %q", i, cl.Name)
		}
		names[cl.Name] = true
		if len(cl.Destinations) == 0 {
			return fmt.Errorf("client %q: at least one destination required", cl.Name)
		}
		for _, d := range cl.Destinations {
			if !servers[d] {
				return fmt.Errorf("client %q: destination %q is not a server", cl.Name, d)
			}
		}
		if err := validateTimeSampler(cl.Interarrival, true); err != nil {
			return fmt.Errorf("client %q interarrival: %w", cl.Name, err)
		}
	}
	if c.Dump != nil && !(c.Dump.Period > 0) {
		return fmt.Errorf("dump period must be positive, got %v", c.Dump.Period)
	}
	return nil
}

// validateTimeSampler checks that spec builds and can never yield a negative
// duration. An interarrival time must also not be always zero: the client
// would keep the clock pinned at its current time.
func validateTimeSampler(spec dist.DistSpec, interarrival bool) error {
	if !timeSamplers[spec.Type] {
		return fmt.Errorf("distribution %q cannot be used for durations", spec.Type)
	}
	if _, err := dist.NewSampler(spec, rand.NewPCG(0, 0)); err != nil {
		return err
	}
	lo, hi := durationRange(spec)
	if !(lo >= 0) {
		return fmt.Errorf("%s can produce negative durations (minimum %v)", spec.Type, lo)
	}
	if interarrival && hi == 0 {
		return fmt.Errorf("%s interarrival time is always zero", spec.Type)
	}
	return nil
}

// durationRange returns the smallest and largest value spec can produce.
// hi is +Inf for unbounded distributions. spec must already build.
func durationRange(spec dist.DistSpec) (lo, hi float64) {
	p := spec.Params
	switch spec.Type {
	case "constant":
		return p["value"], p["value"]
	case "uniform":
		return p["min"], p["max"]
	case "geometric":
		if p["p"] == 1 {
			return 0, 0
		}
		return 0, math.Inf(1)
	case "discrete_empirical":
		lo, hi = math.Inf(1), math.Inf(-1)
		for i, v := range spec.Values {
			if math.IsNaN(v) {
				return v, v
			}
			lo = math.Min(lo, v)
			if spec.Weights[i] > 0 && v > hi {
				hi = v
			}
		}
		return lo, hi
	case "continuous_empirical":
		// bounds are sorted; the top of the last weighted bin is the maximum
		lo, hi = spec.Values[0], spec.Values[0]
		for i, w := range spec.Weights {
			if w > 0 {
				hi = spec.Values[i+1]
			}
		}
		return lo, hi
	default:
		return 0, math.Inf(1)
	}
}
