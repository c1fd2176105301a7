package hmmlib

import (
	"fmt"
	"math"
	"sync"

	"github.com/schollz/progressbar"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// Draw is one retained sample of the latent path and the parameter blocks.
type Draw struct {

	// The sampled state path
	State []int

	// The sampled transition matrix, row-major
	Trans []float64

	// The sampled initial state distribution
	Init []float64

	// The sampled emission means
	Mean []float64
}

// Start holds the starting parameter values for one chain.  Convergence
// diagnostics need the starts of different chains to be deliberately
// over-dispersed.
type Start struct {
	Trans []float64
	Init  []float64
	Mean  []float64
}

// SamplerConfig controls a run of the Gibbs sampler.
type SamplerConfig struct {

	// Number of iterations per chain
	Iter int

	// Number of leading draws discarded by PosteriorDraws
	BurnIn int

	// Stride used when thinning the retained draws
	Thin int

	// Seed for the random sources; chain c uses Seed+c
	Seed uint64

	// If true, a state with no assigned observations retains its
	// previous mean instead of failing the run.
	AllowEmptyState bool

	// Show a progress bar while the chains run
	Progress bool
}

// Warnings counts guarded numeric events during one chain's run.
type Warnings struct {

	// Mean updates skipped because the state had no observations
	EmptyState int
}

// Chain owns the evolving parameter block and the sample store for one
// Gibbs chain.  It is mutated only by its own iteration loop, so chains
// can run concurrently without synchronization.
type Chain struct {

	// All draws, in iteration order
	Draws []Draw

	Warnings Warnings

	model *Model
	trans []float64
	init  []float64
	em    *GaussianEmission

	allowEmpty bool
	src        rand.Source
	rng        *rand.Rand
}

// newChain validates the start values and prepares a chain with its own
// random source.
func newChain(m *Model, s Start, allowEmpty bool, seed uint64) (*Chain, error) {

	if len(s.Trans) != m.NState*m.NState {
		return nil, &InvalidParameterError{Name: "start trans",
			Detail: fmt.Sprintf("have %d entries, need %d", len(s.Trans), m.NState*m.NState)}
	}
	for j := 0; j < m.NState; j++ {
		row := s.Trans[j*m.NState : (j+1)*m.NState]
		if err := checkProbVec(fmt.Sprintf("start trans row %d", j), row); err != nil {
			return nil, err
		}
	}
	if len(s.Init) != m.NState {
		return nil, &InvalidParameterError{Name: "start init",
			Detail: fmt.Sprintf("have %d entries, need %d", len(s.Init), m.NState)}
	}
	if err := checkProbVec("start init", s.Init); err != nil {
		return nil, err
	}
	if len(s.Mean) != m.NState {
		return nil, &InvalidParameterError{Name: "start mean",
			Detail: fmt.Sprintf("have %d entries, need %d", len(s.Mean), m.NState)}
	}

	c := &Chain{
		model:      m,
		trans:      append([]float64(nil), s.Trans...),
		init:       append([]float64(nil), s.Init...),
		allowEmpty: allowEmpty,
		src:        rand.NewSource(seed),
	}
	c.rng = rand.New(c.src)

	// The chain samples the means; the emission SDs stay fixed at one.
	std := make([]float64, m.NState)
	for i := range std {
		std[i] = 1
	}
	em, err := NewGaussianEmission(append([]float64(nil), s.Mean...), std)
	if err != nil {
		return nil, err
	}
	c.em = em

	return c, nil
}

// step runs one full Gibbs cycle: forward filter, backward sample, then
// block updates of (trans, init, mean), appending the result to the store.
func (c *Chain) step() error {

	lat, err := c.model.forward(c.trans, c.init, c.em)
	if err != nil {
		return err
	}

	path, err := lat.SamplePath(c.trans, c.rng)
	if err != nil {
		return err
	}

	if err := c.update(path); err != nil {
		return err
	}

	c.Draws = append(c.Draws, Draw{
		State: path,
		Trans: append([]float64(nil), c.trans...),
		Init:  append([]float64(nil), c.init...),
		Mean:  append([]float64(nil), c.em.Mean...),
	})

	return nil
}

// update draws new parameter blocks from their conditional posteriors
// given the sampled path.  The previous values are overwritten.
func (c *Chain) update(path []int) error {

	ns := c.model.NState

	// Transition counts
	n := make([]float64, ns*ns)
	for t := 1; t < len(path); t++ {
		n[path[t-1]*ns+path[t]]++
	}
	for j := 0; j < ns; j++ {
		c.sampleDirichlet(c.trans[j*ns:(j+1)*ns], n[j*ns:(j+1)*ns])
	}

	// State occupancy counts
	occ := make([]float64, ns)
	for _, st := range path {
		occ[st]++
	}
	c.sampleDirichlet(c.init, occ)

	// Conjugate mean update under known unit variance and a flat prior:
	// Normal(sample mean of the assigned observations, 1/count).
	for st := 0; st < ns; st++ {

		if occ[st] == 0 {
			if !c.allowEmpty {
				return &DegenerateClusterError{State: st}
			}
			c.Warnings.EmptyState++
			continue
		}

		var sum float64
		for t, s := range path {
			if s == st {
				sum += c.model.Obs[t]
			}
		}

		nd := distuv.Normal{
			Mu:    sum / occ[st],
			Sigma: 1 / math.Sqrt(occ[st]),
			Src:   c.src,
		}
		c.em.Mean[st] = nd.Rand()
	}

	return nil
}

// sampleDirichlet overwrites dst with a draw from Dirichlet(counts+1),
// built from independent Gamma(count+1, 1) draws normalized to sum one.
func (c *Chain) sampleDirichlet(dst, counts []float64) {

	for i := range dst {
		g := distuv.Gamma{Alpha: counts[i] + 1, Beta: 1, Src: c.src}
		dst[i] = g.Rand()
	}

	normalizeSum(dst, 1/float64(len(dst)))
}

// Sample runs one Gibbs chain per start value and returns the chains with
// their complete sample stores.  The chains are independent and run
// concurrently; chain c draws from a source seeded with cfg.Seed+c, so a
// run is deterministic for a fixed configuration.
func (m *Model) Sample(cfg SamplerConfig, starts []Start) ([]*Chain, error) {

	if cfg.Iter <= 0 {
		return nil, &ConfigError{Detail: fmt.Sprintf("iteration count %d is not positive", cfg.Iter)}
	}
	if len(starts) == 0 {
		return nil, &ConfigError{Detail: "no chain start values"}
	}
	if cfg.BurnIn < 0 || cfg.BurnIn >= cfg.Iter {
		return nil, &ConfigError{Detail: fmt.Sprintf("burn-in %d outside [0, %d)", cfg.BurnIn, cfg.Iter)}
	}
	if cfg.Thin < 1 {
		return nil, &ConfigError{Detail: fmt.Sprintf("thinning stride %d is not positive", cfg.Thin)}
	}

	chains := make([]*Chain, len(starts))
	for ic, s := range starts {
		c, err := newChain(m, s, cfg.AllowEmptyState, cfg.Seed+uint64(ic))
		if err != nil {
			return nil, err
		}
		chains[ic] = c
	}

	var bar *progressbar.ProgressBar
	if cfg.Progress {
		bar = progressbar.New(cfg.Iter * len(starts))
	}

	var wg sync.WaitGroup
	errs := make([]error, len(chains))

	for ic, c := range chains {
		wg.Add(1)
		go func(ic int, c *Chain) {
			defer wg.Done()
			for k := 0; k < cfg.Iter; k++ {
				if err := c.step(); err != nil {
					errs[ic] = err
					return
				}
				if bar != nil {
					_ = bar.Add(1)
				}
			}
		}(ic, c)
	}

	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	return chains, nil
}
