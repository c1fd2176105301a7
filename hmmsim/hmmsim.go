// Package hmmsim generates synthetic state and observation sequences from
// known HMM parameters, for exercising the samplers in hmmlib.
package hmmsim

import (
	"compress/gzip"
	"encoding/gob"
	"os"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// Dataset is a simulated state/observation sequence together with the
// parameters that generated it.
type Dataset struct {

	// Number of states
	NState int

	// The generating transition matrix, row-major
	Trans []float64

	// The generating initial state distribution
	Init []float64

	// The generating emission means and standard deviations
	Mean []float64
	Std  []float64

	// The true state path
	State []int

	// The observations
	Obs []float64
}

// Generate simulates ntime steps of the Markov chain defined by init and
// trans, then emits one Gaussian observation per step using the per-state
// means and standard deviations.
func Generate(ntime int, trans, init, mean, std []float64, rng *rand.Rand) *Dataset {

	ds := &Dataset{
		NState: len(init),
		Trans:  trans,
		Init:   init,
		Mean:   mean,
		Std:    std,
	}

	ds.State = GenStates(ntime, trans, init, rng)
	ds.Obs = GenObs(ds.State, mean, std, rng)

	return ds
}

// GenStates simulates a state path of length ntime from the Markov chain
// defined by init and trans.
func GenStates(ntime int, trans, init []float64, rng *rand.Rand) []int {

	ns := len(init)
	state := make([]int, ntime)

	state[0] = draw(init, rng)
	for t := 1; t < ntime; t++ {
		j := state[t-1]
		state[t] = draw(trans[j*ns:(j+1)*ns], rng)
	}

	return state
}

// GenObs emits one Gaussian observation per state in the path.
func GenObs(state []int, mean, std []float64, rng *rand.Rand) []float64 {

	obs := make([]float64, len(state))
	for t, st := range state {
		nd := distuv.Normal{Mu: mean[st], Sigma: std[st], Src: rng}
		obs[t] = nd.Rand()
	}

	return obs
}

// draw samples an index from the probability vector p.
func draw(p []float64, rng *rand.Rand) int {

	u := rng.Float64()
	var c float64
	for i, v := range p {
		c += v
		if u < c {
			return i
		}
	}

	return len(p) - 1
}

// Write stores the dataset as a gzip-compressed gob file.
func (ds *Dataset) Write(fname string) error {

	fid, err := os.Create(fname)
	if err != nil {
		return err
	}
	defer fid.Close()

	gid := gzip.NewWriter(fid)
	defer gid.Close()

	enc := gob.NewEncoder(gid)

	return enc.Encode(ds)
}

// ReadDataset reads a dataset written by Write.
func ReadDataset(fname string) (*Dataset, error) {

	fid, err := os.Open(fname)
	if err != nil {
		return nil, err
	}
	defer fid.Close()

	gid, err := gzip.NewReader(fid)
	if err != nil {
		return nil, err
	}
	defer gid.Close()

	dec := gob.NewDecoder(gid)

	var ds Dataset
	if err := dec.Decode(&ds); err != nil {
		return nil, err
	}

	return &ds, nil
}
