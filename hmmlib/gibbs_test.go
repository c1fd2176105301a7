package hmmlib

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"

	"bayeshmm/hmmsim"
)

func uniformStart(nstate int, mean []float64) Start {

	trans := make([]float64, nstate*nstate)
	init := make([]float64, nstate)
	for i := 0; i < nstate; i++ {
		init[i] = 1 / float64(nstate)
		for j := 0; j < nstate; j++ {
			trans[i*nstate+j] = 1 / float64(nstate)
		}
	}

	return Start{Trans: trans, Init: init, Mean: mean}
}

func TestDirichletViaGamma(t *testing.T) {

	m := twoStateModel(t, []float64{3, 5})
	c, err := newChain(m, uniformStart(2, []float64{2, 4}), false, 1)
	require.NoError(t, err)

	// Empirical mean of Dirichlet(N+1) draws converges to
	// (N+1)/sum(N+1).
	counts := []float64{3, 7}
	want := []float64{4.0 / 12, 8.0 / 12}

	const ndraw = 20000
	mean := make([]float64, 2)
	dst := make([]float64, 2)
	for k := 0; k < ndraw; k++ {
		c.sampleDirichlet(dst, counts)
		assert.InDelta(t, 1.0, dst[0]+dst[1], 1e-9)
		mean[0] += dst[0]
		mean[1] += dst[1]
	}

	for i := range mean {
		mean[i] /= ndraw
		assert.InDelta(t, want[i], mean[i], 0.01)
	}
}

func TestRowsStochasticAfterUpdates(t *testing.T) {

	rng := rand.New(rand.NewSource(23))
	ds := hmmsim.Generate(100,
		[]float64{0.9, 0.1, 0.1, 0.9},
		[]float64{0.5, 0.5},
		[]float64{3, 5}, []float64{1, 1}, rng)

	m := twoStateModel(t, ds.Obs)

	cfg := SamplerConfig{Iter: 200, BurnIn: 10, Thin: 1, Seed: 4}
	chains, err := m.Sample(cfg, []Start{
		uniformStart(2, []float64{2, 4}),
		uniformStart(2, []float64{1, 5}),
	})
	require.NoError(t, err)
	require.Len(t, chains, 2)

	for _, c := range chains {
		require.Len(t, c.Draws, cfg.Iter)
		for _, d := range c.Draws {
			for j := 0; j < m.NState; j++ {
				row := d.Trans[j*m.NState : (j+1)*m.NState]
				assert.InDelta(t, 1.0, row[0]+row[1], 1e-9)
				for _, v := range row {
					assert.GreaterOrEqual(t, v, 0.0)
				}
			}
			assert.InDelta(t, 1.0, d.Init[0]+d.Init[1], 1e-9)
			require.Len(t, d.State, m.NTime)
		}
	}
}

func TestSampleDeterministic(t *testing.T) {

	rng := rand.New(rand.NewSource(31))
	ds := hmmsim.Generate(50,
		[]float64{0.9, 0.1, 0.1, 0.9},
		[]float64{0.5, 0.5},
		[]float64{3, 5}, []float64{1, 1}, rng)

	m := twoStateModel(t, ds.Obs)

	cfg := SamplerConfig{Iter: 100, BurnIn: 10, Thin: 1, Seed: 99}
	starts := []Start{
		uniformStart(2, []float64{2, 4}),
		uniformStart(2, []float64{1, 5}),
	}

	a, err := m.Sample(cfg, starts)
	require.NoError(t, err)
	b, err := m.Sample(cfg, starts)
	require.NoError(t, err)

	for ic := range a {
		last := cfg.Iter - 1
		assert.Equal(t, a[ic].Draws[last].Mean, b[ic].Draws[last].Mean)
		assert.Equal(t, a[ic].Draws[last].Trans, b[ic].Draws[last].Trans)
		assert.Equal(t, a[ic].Draws[last].State, b[ic].Draws[last].State)
	}
}

func TestDegenerateCluster(t *testing.T) {

	m := twoStateModel(t, []float64{3.1, 2.9, 3.0})

	// A path that never visits state 1 leaves its mean update undefined.
	path := []int{0, 0, 0}

	c, err := newChain(m, uniformStart(2, []float64{3, 5}), false, 1)
	require.NoError(t, err)

	err = c.update(path)
	var dce *DegenerateClusterError
	require.True(t, errors.As(err, &dce))
	assert.Equal(t, 1, dce.State)

	// With the guard enabled the previous mean is retained and the
	// event is counted.
	c, err = newChain(m, uniformStart(2, []float64{3, 5}), true, 1)
	require.NoError(t, err)

	require.NoError(t, c.update(path))
	assert.Equal(t, 5.0, c.em.Mean[1])
	assert.False(t, math.IsNaN(c.em.Mean[0]))
	assert.Equal(t, 1, c.Warnings.EmptyState)
}

func TestSampleConfigErrors(t *testing.T) {

	m := twoStateModel(t, []float64{3, 5, 4})
	starts := []Start{uniformStart(2, []float64{2, 4})}

	var ce *ConfigError

	_, err := m.Sample(SamplerConfig{Iter: 0, Thin: 1}, starts)
	require.True(t, errors.As(err, &ce))

	_, err = m.Sample(SamplerConfig{Iter: 10, Thin: 1}, nil)
	require.True(t, errors.As(err, &ce))

	_, err = m.Sample(SamplerConfig{Iter: 10, BurnIn: 10, Thin: 1}, starts)
	require.True(t, errors.As(err, &ce))

	_, err = m.Sample(SamplerConfig{Iter: 10, Thin: 0}, starts)
	require.True(t, errors.As(err, &ce))

	// Invalid start values are rejected before any chain runs
	bad := uniformStart(2, []float64{2, 4})
	bad.Init = []float64{0.7, 0.7}
	var ipe *InvalidParameterError
	_, err = m.Sample(SamplerConfig{Iter: 10, Thin: 1}, []Start{bad})
	require.True(t, errors.As(err, &ipe))
}

// A single observation still yields a well-defined Gibbs cycle: the
// forward lattice has one row, the backward pass is a single categorical
// draw, and one state is necessarily empty, so the guard must be enabled.
func TestSampleLengthOne(t *testing.T) {

	m := twoStateModel(t, []float64{4.0})

	cfg := SamplerConfig{Iter: 50, BurnIn: 5, Thin: 1, Seed: 3, AllowEmptyState: true}
	chains, err := m.Sample(cfg, []Start{
		uniformStart(2, []float64{2, 4}),
		uniformStart(2, []float64{1, 5}),
	})
	require.NoError(t, err)

	for _, c := range chains {
		require.Len(t, c.Draws, cfg.Iter)
		for _, d := range c.Draws {
			require.Len(t, d.State, 1)
		}
		assert.Greater(t, c.Warnings.EmptyState, 0)
	}

	// Without the guard the same run must fail with the typed error
	_, err = m.Sample(SamplerConfig{Iter: 50, BurnIn: 5, Thin: 1, Seed: 3}, []Start{
		uniformStart(2, []float64{2, 4}),
		uniformStart(2, []float64{1, 5}),
	})
	var dce *DegenerateClusterError
	require.True(t, errors.As(err, &dce))
}

// Two chains with over-dispersed starting means must converge to a common
// posterior on well-separated data.
func TestGibbsConvergence(t *testing.T) {

	if testing.Short() {
		t.Skip("long MCMC run")
	}

	rng := rand.New(rand.NewSource(42))
	ds := hmmsim.Generate(100,
		[]float64{0.9, 0.1, 0.1, 0.9},
		[]float64{0.5, 0.5},
		[]float64{3, 5}, []float64{1, 1}, rng)

	m := twoStateModel(t, ds.Obs)

	cfg := SamplerConfig{Iter: 10000, BurnIn: 1000, Thin: 1, Seed: 7}
	chains, err := m.Sample(cfg, []Start{
		uniformStart(2, []float64{2, 4}),
		uniformStart(2, []float64{1, 5}),
	})
	require.NoError(t, err)

	var pm [][]float64
	for _, c := range chains {
		draws, err := PosteriorDraws([]*Chain{c}, cfg.BurnIn, cfg.Thin)
		require.NoError(t, err)
		pm = append(pm, PosteriorMeans(draws))
	}

	for st := 0; st < m.NState; st++ {
		assert.InDelta(t, pm[0][st], pm[1][st], 0.3,
			"chains disagree on the posterior mean of state %d", st)
	}

	// The pooled posterior means sit near the generating values
	all, err := PosteriorDraws(chains, cfg.BurnIn, cfg.Thin)
	require.NoError(t, err)
	pooled := PosteriorMeans(all)
	assert.InDelta(t, 3.0, pooled[0], 0.5)
	assert.InDelta(t, 5.0, pooled[1], 0.5)
}
