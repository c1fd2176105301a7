package hmmlib

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// Lattice holds the forward probabilities for one sweep over the
// observation sequence.  Each row is rescaled to have a unit maximum, with
// the accumulated log scale factor stored per row, so the true forward
// probability of state i at time t is Prob[t*NState+i] * exp(LogScale[t]).
// Within-row proportions are exact, which is all the backward sampler and
// the terminal normalization require.
type Lattice struct {
	NState int

	// The rescaled forward probabilities, row-major over time
	Prob []float64

	// Accumulated log scale factor per row
	LogScale []float64
}

// NTime returns the number of time points covered by the lattice.
func (lat *Lattice) NTime() int {
	return len(lat.LogScale)
}

// Row returns the rescaled forward probabilities at time t.
func (lat *Lattice) Row(t int) []float64 {
	return lat.Prob[t*lat.NState : (t+1)*lat.NState]
}

// LogLike returns the log of the joint density of the full observation
// sequence under the parameters that produced the lattice.
func (lat *Lattice) LogLike() float64 {
	nt := lat.NTime()
	return math.Log(floats.Sum(lat.Row(nt-1))) + lat.LogScale[nt-1]
}

// Forward computes the forward probability lattice under the model's
// current parameters.
func (m *Model) Forward() (*Lattice, error) {
	return m.forward(m.Trans, m.Init, m.Emission)
}

// forward runs the forward recursion with the given parameter block.  The
// Gibbs chains call this with their own evolving parameters.
func (m *Model) forward(trans, init []float64, em EmissionModel) (*Lattice, error) {

	ns := m.NState
	lat := &Lattice{
		NState:   ns,
		Prob:     make([]float64, m.NTime*ns),
		LogScale: make([]float64, m.NTime),
	}

	row := lat.Prob[0:ns]
	for st := 0; st < ns; st++ {
		row[st] = init[st] * em.Density(m.Obs[0], st)
	}
	mx, err := rescaleRow(row, 0)
	if err != nil {
		return nil, err
	}
	lat.LogScale[0] = math.Log(mx)

	j0 := -ns
	j1 := 0
	for t := 1; t < m.NTime; t++ {

		j0 += ns
		j1 += ns

		prev := lat.Prob[j0 : j0+ns]
		row := lat.Prob[j1 : j1+ns]

		// Sum over the possible histories, unlike the max in Viterbi
		for st2 := 0; st2 < ns; st2++ {
			var u float64
			for st1 := 0; st1 < ns; st1++ {
				u += prev[st1] * trans[st1*ns+st2]
			}
			row[st2] = u * em.Density(m.Obs[t], st2)
		}

		mx, err := rescaleRow(row, t)
		if err != nil {
			return nil, err
		}
		lat.LogScale[t] = lat.LogScale[t-1] + math.Log(mx)
	}

	return lat, nil
}

// rescaleRow scales the row to a unit maximum and returns the scale
// factor.  A row with no positive mass is a numerical underflow.
func rescaleRow(row []float64, t int) (float64, error) {

	mx := floats.Max(row)
	if !(mx > 0) {
		return 0, &NumericalUnderflowError{Time: t}
	}
	floats.Scale(1/mx, row)

	return mx, nil
}
