// Package montecarlo propagates per-component measurement uncertainty by
// drawing perturbed copies of a single composition.
package montecarlo

import (
	"encoding/binary"
	"fmt"
	"math"
	"math/rand"

	"github.com/aclements/go-moremath/stats"
	"github.com/minio/highwayhash"
)

// DefaultSamples is the number of draws per bootstrap trace.
const DefaultSamples = 10000

var seedKey = []byte("0123456789ABCDEF0123456789ABCDEF")

// Measurement is one component value with its one-sigma uncertainty.
type Measurement struct {
	Column string
	Value  float64
	Sigma  float64
}

// Sampler draws N normally distributed perturbations per measurement.
// A zero Seed is replaced by one derived from the measurements.
type Sampler struct {
	N    int
	Seed int64
}

// Simulation holds N draws per column, in measurement order.
type Simulation struct {
	Columns []string
	Draws   [][]float64
}

// Column returns the draws for a column name.
func (s *Simulation) Column(name string) ([]float64, bool) {
	for i, c := range s.Columns {
		if c == name {
			return s.Draws[i], true
		}
	}
	return nil, false
}

// Len returns the number of draws per column.
func (s *Simulation) Len() int {
	if len(s.Draws) == 0 {
		return 0
	}
	return len(s.Draws[0])
}

// Simulate draws N samples per measurement from Normal(value, sigma). A zero
// sigma reproduces the value exactly.
func (s Sampler) Simulate(ms []Measurement) (*Simulation, error) {
	n := s.N
	if n <= 0 {
		n = DefaultSamples
	}
	for _, m := range ms {
		if math.IsNaN(m.Value) || math.IsInf(m.Value, 0) {
			return nil, fmt.Errorf("column %q: value is not a finite number", m.Column)
		}
		if math.IsNaN(m.Sigma) || m.Sigma < 0 {
			return nil, fmt.Errorf("column %q: uncertainty must be >= 0, got %v", m.Column, m.Sigma)
		}
	}
	seed := s.Seed
	if seed == 0 {
		seed = DeriveSeed(ms)
	}
	rng := rand.New(rand.NewSource(seed))
	sim := &Simulation{Columns: make([]string, len(ms)), Draws: make([][]float64, len(ms))}
	for i, m := range ms {
		sim.Columns[i] = m.Column
		dist := stats.NormalDist{Mu: m.Value, Sigma: m.Sigma}
		draws := make([]float64, n)
		for j := range draws {
			if m.Sigma == 0 {
				draws[j] = m.Value
				continue
			}
			draws[j] = dist.Rand(rng)
		}
		sim.Draws[i] = draws
	}
	return sim, nil
}

// DeriveSeed hashes the measurements so that identical inputs always produce
// the same draws.
func DeriveSeed(ms []Measurement, extra ...string) int64 {
	h, err := highwayhash.New64(seedKey)
	if err != nil {
		return 1
	}
	var buf [8]byte
	for _, e := range extra {
		_, _ = h.Write([]byte(e))
	}
	for _, m := range ms {
		_, _ = h.Write([]byte(m.Column))
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(m.Value))
		_, _ = h.Write(buf[:])
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(m.Sigma))
		_, _ = h.Write(buf[:])
	}
	seed := int64(h.Sum64() >> 1)
	if seed == 0 {
		seed = 1
	}
	return seed
}
