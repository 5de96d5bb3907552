package sim

import (
	"fmt"
	"hash/fnv"
	"math/rand/v2"
)

// === SimulationKey ===

// SimulationKey uniquely identifies a reproducible simulation run.
// Two simulations with the same SimulationKey and identical model
// MUST produce bit-for-bit identical results.
type SimulationKey int64

// NewSimulationKey creates a SimulationKey from a seed value.
func NewSimulationKey(seed int64) SimulationKey {
	return SimulationKey(seed)
}

// === Subsystem names ===

// SubsystemRouting is the RNG subsystem used to pick request destinations.
const SubsystemRouting = "routing"

// SubsystemClient returns the subsystem name for the named client's arrivals.
func SubsystemClient(name string) string {
	return fmt.Sprintf("client_%s", name)
}

// SubsystemServer returns the subsystem name for the named server's service times.
func SubsystemServer(name string) string {
	return fmt.Sprintf("server_%s", name)
}

// === PartitionedRNG ===

// PartitionedRNG provides deterministic, isolated random streams per
// subsystem, so adding a client does not perturb any other sampler.
//
// Derivation: stream seed = (masterSeed, masterSeed XOR fnv1a64(name)) for a PCG source.
//
// Thread-safety: NOT thread-safe. Inside a simulation only one process runs
// at a time, which is sufficient.
type PartitionedRNG struct {
	key        SimulationKey
	subsystems map[string]*rand.Rand
}

// NewPartitionedRNG creates a PartitionedRNG from a SimulationKey.
func NewPartitionedRNG(key SimulationKey) *PartitionedRNG {
	return &PartitionedRNG{
		key:        key,
		subsystems: make(map[string]*rand.Rand),
	}
}

// ForSubsystem returns a deterministically-seeded RNG for the named subsystem.
// The same subsystem name always returns the same *rand.Rand instance (cached).
// Never returns nil. The result also satisfies rand.Source.
func (p *PartitionedRNG) ForSubsystem(name string) *rand.Rand {
	if rng, ok := p.subsystems[name]; ok {
		return rng
	}
	seed := uint64(p.key)
	rng := rand.New(rand.NewPCG(seed, seed^fnv1a64(name)))
	p.subsystems[name] = rng
	return rng
}

// Key returns the SimulationKey used to create this PartitionedRNG.
func (p *PartitionedRNG) Key() SimulationKey {
	return p.key
}

// fnv1a64 computes a 64-bit FNV-1a hash of the input string.
func fnv1a64(s string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return h.Sum64()
}
