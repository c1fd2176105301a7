package hmmlib

import "math"

// Decode uses the Viterbi algorithm to compute the most probable state
// path for the observation sequence under the model's current parameters.
// The recursion runs on the log scale, so long sequences do not underflow.
// Ties in any argmax resolve to the lowest state index, which makes the
// result deterministic for a fixed input.
func (m *Model) Decode() ([]int, error) {

	ns := m.NState
	lpr := make([]float64, m.NTime*ns)
	lpt := make([]int, m.NTime*ns)
	wk := make([]float64, ns)

	lt := make([]float64, ns*ns)
	for j := range m.Trans {
		lt[j] = math.Log(m.Trans[j])
	}

	for st := 0; st < ns; st++ {
		lpr[st] = math.Log(m.Init[st]) + m.Emission.LogDensity(m.Obs[0], st)
	}
	if degenerateRow(lpr[0:ns]) {
		return nil, &NumericalUnderflowError{Time: 0}
	}

	j0 := -ns
	j1 := 0
	for t := 1; t < m.NTime; t++ {

		j0 += ns
		j1 += ns

		// From st1 at t-1 to st2 at t
		for st2 := 0; st2 < ns; st2++ {
			for st1 := 0; st1 < ns; st1++ {
				wk[st1] = lpr[j0+st1] + lt[st1*ns+st2]
			}

			// The best previous state
			jj := argmax(wk)
			lpt[j1+st2] = jj
			lpr[j1+st2] = wk[jj] + m.Emission.LogDensity(m.Obs[t], st2)
		}

		if degenerateRow(lpr[j1 : j1+ns]) {
			return nil, &NumericalUnderflowError{Time: t}
		}
	}

	// Traceback
	y := make([]int, m.NTime)
	jt := (m.NTime - 1) * ns
	y[m.NTime-1] = argmax(lpr[jt : jt+ns])
	for t := m.NTime - 2; t >= 0; t-- {
		jt -= ns
		y[t] = lpt[jt+ns+y[t+1]]
	}

	return y, nil
}

// degenerateRow reports whether no state in the row has positive
// probability, i.e. every log value is -Inf or NaN.
func degenerateRow(x []float64) bool {
	for _, v := range x {
		if !math.IsInf(v, -1) && !math.IsNaN(v) {
			return false
		}
	}
	return true
}
