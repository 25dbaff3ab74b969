package sim

import (
	"fmt"
	"hash/fnv"
	"math/rand"
)

// === SimulationKey ===

// SimulationKey uniquely identifies a reproducible simulation run.
// Two simulations with the same SimulationKey and identical configuration
// MUST produce bit-for-bit identical results.
type SimulationKey int64

// NewSimulationKey creates a SimulationKey from a seed value.
func NewSimulationKey(seed int64) SimulationKey {
	return SimulationKey(seed)
}

// === Subsystem Constants ===

const (
	// SubsystemActivity is the RNG subsystem for hourly activity sampling.
	SubsystemActivity = "activity"

	// SubsystemSelector is the RNG subsystem for action selection and
	// per-intent seed derivation.
	SubsystemSelector = "selector"

	// SubsystemPopulation is the RNG subsystem for day-boundary follow
	// evaluation, churn draws and recruitment.
	SubsystemPopulation = "population"

	// SubsystemProfile is the RNG subsystem for generated actor profiles.
	SubsystemProfile = "profile"
)

// SubsystemActor returns the subsystem name for per-actor derived state
// such as personal activity variance.
func SubsystemActor(id int64) string {
	return fmt.Sprintf("actor_%d", id)
}

// === PartitionedRNG ===

// PartitionedRNG provides deterministic, isolated RNG instances per subsystem.
//
// Derivation formula: masterSeed XOR fnv1a64(subsystemName). Partitioning
// keeps draws in one subsystem (say, activity sampling) from perturbing the
// sequences of every other subsystem when a feature adds or removes draws.
//
// Thread-safety: NOT thread-safe. Must be called from the orchestration
// goroutine only; workers receive pre-derived seeds instead.
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
// Never returns nil.
func (p *PartitionedRNG) ForSubsystem(name string) *rand.Rand {
	if rng, ok := p.subsystems[name]; ok {
		return rng
	}

	derivedSeed := int64(p.key) ^ fnv1a64(name)
	rng := rand.New(rand.NewSource(derivedSeed))
	p.subsystems[name] = rng
	return rng
}

// Key returns the SimulationKey used to create this PartitionedRNG.
func (p *PartitionedRNG) Key() SimulationKey {
	return p.key
}

// fnv1a64 computes a 64-bit FNV-1a hash of the input string.
func fnv1a64(s string) int64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return int64(h.Sum64())
}
