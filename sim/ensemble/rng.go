package ensemble

import (
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
	"hash/fnv"
	"math/rand"
)

// === SimulationKey ===

// SimulationKey uniquely identifies a reproducible ensemble.
// Two ensembles with the same SimulationKey and identical configuration
// MUST produce bit-for-bit identical results for every repetition.
type SimulationKey int64

// NewSimulationKey creates a SimulationKey from a seed value.
// A seed of 0 draws a fresh key from OS entropy.
func NewSimulationKey(seed int64) (SimulationKey, error) {
	if seed != 0 {
		return SimulationKey(seed), nil
	}
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		return 0, fmt.Errorf("drawing seed from OS entropy: %w", err)
	}
	return SimulationKey(int64(binary.LittleEndian.Uint64(b[:]) | 1)), nil
}

// SubsystemRepetition returns the subsystem name for repetition N.
func SubsystemRepetition(n int) string {
	return fmt.Sprintf("repetition_%d", n)
}

// === PartitionedRNG ===

// PartitionedRNG provides deterministic, isolated RNG instances per subsystem.
//
// Derivation formula: masterSeed XOR fnv1a64(subsystemName)
//
// Thread-safety: NOT thread-safe. Must be called from single goroutine. The returned
// *rand.Rand values may each be handed to a different goroutine.
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
	rng := rand.New(rand.NewSource(p.Seed(name)))
	p.subsystems[name] = rng
	return rng
}

// Seed returns the derived seed of a subsystem without creating its RNG.
func (p *PartitionedRNG) Seed(name string) int64 {
	return int64(p.key) ^ fnv1a64(name)
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
