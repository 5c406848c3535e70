package montecarlo

import (
	"math"
	"testing"

	"github.com/aclements/go-moremath/stats"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestZeroUncertaintyReproducesSource(t *testing.T) {
	ms := []Measurement{{"Al2O3", 15, 0}, {"CaO", 10, 0}, {"FeOT", 5, 0}}
	sim, err := Sampler{}.Simulate(ms)
	require.NoError(t, err)
	require.Equal(t, DefaultSamples, sim.Len())
	for i, m := range ms {
		for _, v := range sim.Draws[i] {
			if v != m.Value {
				t.Fatalf("column %s: got %v want %v", m.Column, v, m.Value)
			}
		}
	}
}

func TestDrawsFollowNormal(t *testing.T) {
	sim, err := Sampler{N: 10000, Seed: 42}.Simulate([]Measurement{{"SiO2", 50, 2}})
	require.NoError(t, err)
	draws, ok := sim.Column("SiO2")
	require.True(t, ok)
	s := stats.Sample{Xs: draws}
	assert.InDelta(t, 50, s.Mean(), 0.1)
	assert.InDelta(t, 2, s.StdDev(), 0.1)
}

func TestSeededRunsRepeat(t *testing.T) {
	ms := []Measurement{{"MgO", 8, 0.5}}
	a, err := Sampler{N: 100}.Simulate(ms)
	require.NoError(t, err)
	b, err := Sampler{N: 100}.Simulate(ms)
	require.NoError(t, err)
	assert.Equal(t, a.Draws, b.Draws)

	c, err := Sampler{N: 100, Seed: 9}.Simulate(ms)
	require.NoError(t, err)
	assert.NotEqual(t, a.Draws, c.Draws)
}

func TestSimulateRejectsBadInput(t *testing.T) {
	_, err := Sampler{N: 10}.Simulate([]Measurement{{"MgO", 8, -1}})
	assert.Error(t, err)
	_, err = Sampler{N: 10}.Simulate([]Measurement{{"MgO", math.NaN(), 1}})
	assert.Error(t, err)
}

func TestDeriveSeed(t *testing.T) {
	ms := []Measurement{{"MgO", 8, 0.5}}
	assert.Equal(t, DeriveSeed(ms, "t1"), DeriveSeed(ms, "t1"))
	assert.NotEqual(t, DeriveSeed(ms, "t1"), DeriveSeed(ms, "t2"))
	assert.Positive(t, DeriveSeed(nil))
}
