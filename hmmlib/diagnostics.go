package hmmlib

import (
	"fmt"

	"gonum.org/v1/gonum/stat"
)

// PosteriorDraws discards the burn-in prefix of every chain, concatenates
// the remaining draws across chains, and thins by the given stride.  The
// chains' stores are not modified; the returned slice shares the
// underlying draws read-only.
func PosteriorDraws(chains []*Chain, burnin, thin int) ([]Draw, error) {

	if thin < 1 {
		return nil, &ConfigError{Detail: fmt.Sprintf("thinning stride %d is not positive", thin)}
	}

	var out []Draw
	for ic, c := range chains {
		if burnin < 0 || burnin >= len(c.Draws) {
			return nil, &ConfigError{
				Detail: fmt.Sprintf("burn-in %d outside [0, %d) for chain %d", burnin, len(c.Draws), ic)}
		}
		for i := burnin; i < len(c.Draws); i += thin {
			out = append(out, c.Draws[i])
		}
	}

	return out, nil
}

// MeanTrace extracts the sampled emission mean of one state across draws,
// in draw order.
func MeanTrace(draws []Draw, st int) []float64 {

	x := make([]float64, len(draws))
	for i, d := range draws {
		x[i] = d.Mean[st]
	}

	return x
}

// PosteriorMeans returns the across-draw average of the sampled emission
// means, one value per state.
func PosteriorMeans(draws []Draw) []float64 {

	if len(draws) == 0 {
		return nil
	}

	m := make([]float64, len(draws[0].Mean))
	for _, d := range draws {
		for i, v := range d.Mean {
			m[i] += v
		}
	}
	for i := range m {
		m[i] /= float64(len(draws))
	}

	return m
}

// Autocorrelation returns the sample autocorrelation of x at lags
// 0..maxlag.  Lag zero is always one.
func Autocorrelation(x []float64, maxlag int) []float64 {

	if maxlag >= len(x) {
		maxlag = len(x) - 1
	}

	mean := stat.Mean(x, nil)
	var denom float64
	for _, v := range x {
		denom += (v - mean) * (v - mean)
	}

	r := make([]float64, maxlag+1)
	r[0] = 1
	if denom == 0 {
		return r
	}

	for lag := 1; lag <= maxlag; lag++ {
		var num float64
		for t := 0; t+lag < len(x); t++ {
			num += (x[t] - mean) * (x[t+lag] - mean)
		}
		r[lag] = num / denom
	}

	return r
}

// SuggestThin returns the smallest stride at which the autocorrelation of
// x drops below the threshold, up to maxlag.  If no lag qualifies, maxlag
// is returned.
func SuggestThin(x []float64, threshold float64, maxlag int) int {

	r := Autocorrelation(x, maxlag)
	for lag := 1; lag < len(r); lag++ {
		if r[lag] < threshold {
			return lag
		}
	}

	if maxlag < 1 {
		return 1
	}
	return maxlag
}

// StateProb returns, for each time index, the fraction of draws whose
// sampled path visits the given state at that time.  This is the marginal
// posterior probability of the state.
func StateProb(draws []Draw, st int) []float64 {

	if len(draws) == 0 {
		return nil
	}

	p := make([]float64, len(draws[0].State))
	for _, d := range draws {
		for t, s := range d.State {
			if s == st {
				p[t]++
			}
		}
	}
	for t := range p {
		p[t] /= float64(len(draws))
	}

	return p
}
