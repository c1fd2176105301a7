package hmmlib

import (
	"golang.org/x/exp/rand"

	"gonum.org/v1/gonum/floats"
)

// SamplePath draws one complete state path from its exact posterior given
// the parameters that produced the lattice.  The terminal state is drawn
// proportionally to the final lattice row, then each earlier state is
// drawn proportionally to Prob[t,i] * trans[i, x[t+1]].  These are proper
// categorical draws, not argmaxes, so repeated calls trace out the
// posterior distribution of the path.
func (lat *Lattice) SamplePath(trans []float64, rng *rand.Rand) ([]int, error) {

	ns := lat.NState
	nt := lat.NTime()

	path := make([]int, nt)
	wk := make([]float64, ns)

	copy(wk, lat.Row(nt-1))
	st, ok := categorical(wk, rng)
	if !ok {
		return nil, &NumericalUnderflowError{Time: nt - 1}
	}
	path[nt-1] = st

	for t := nt - 2; t >= 0; t-- {

		row := lat.Row(t)
		for i := 0; i < ns; i++ {
			wk[i] = row[i] * trans[i*ns+path[t+1]]
		}

		st, ok := categorical(wk, rng)
		if !ok {
			return nil, &NumericalUnderflowError{Time: t}
		}
		path[t] = st
	}

	return path, nil
}

// categorical draws an index with probability proportional to the weights,
// which need not be normalized.  Returns false if the weights have no
// positive mass.
func categorical(w []float64, rng *rand.Rand) (int, bool) {

	total := floats.Sum(w)
	if !(total > 0) {
		return 0, false
	}

	u := rng.Float64() * total
	var c float64
	for i, v := range w {
		c += v
		if u < c {
			return i, true
		}
	}

	return len(w) - 1, true
}
