// Command generate simulates a state/observation sequence from known HMM
// parameters and writes it as a gzip-compressed gob file for the sample
// command to consume.
package main

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"golang.org/x/exp/rand"

	"bayeshmm/hmmsim"
)

var (
	ntimeFlag int
	seedFlag  uint64
	diagFlag  float64
	meanFlag  []float64
	sdFlag    float64
	outFlag   string
)

func generate(cmd *cobra.Command) error {

	if outFlag == "" {
		return errors.New("'outname' is a required argument")
	}

	nstate := len(meanFlag)
	if nstate < 2 {
		return errors.Errorf("need at least 2 state means, have %d", nstate)
	}
	if ntimeFlag <= 0 {
		return errors.Errorf("ntime %d is not positive", ntimeFlag)
	}
	if diagFlag <= 0 || diagFlag >= 1 {
		return errors.Errorf("self-transition probability %v outside (0, 1)", diagFlag)
	}

	// Diagonally dominant transition matrix with the off-diagonal mass
	// spread evenly, and a uniform initial distribution.
	trans := make([]float64, nstate*nstate)
	for i := 0; i < nstate; i++ {
		for j := 0; j < nstate; j++ {
			if i == j {
				trans[i*nstate+j] = diagFlag
			} else {
				trans[i*nstate+j] = (1 - diagFlag) / float64(nstate-1)
			}
		}
	}

	init := make([]float64, nstate)
	std := make([]float64, nstate)
	for i := 0; i < nstate; i++ {
		init[i] = 1 / float64(nstate)
		std[i] = sdFlag
	}

	rng := rand.New(rand.NewSource(seedFlag))
	ds := hmmsim.Generate(ntimeFlag, trans, init, meanFlag, std, rng)

	if err := ds.Write(outFlag); err != nil {
		return errors.Wrapf(err, "writing dataset to %s", outFlag)
	}

	fmt.Printf("Wrote %d observations over %d states to %s\n", ntimeFlag, nstate, outFlag)
	return nil
}

func generateCMD() *cobra.Command {

	genCmd := &cobra.Command{
		Use:   "generate",
		Short: "simulate an HMM dataset",
		Long:  "simulate a hidden state path and Gaussian observations from known parameters",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return generate(cmd)
		},
	}

	flags := genCmd.Flags()
	flags.IntVar(&ntimeFlag, "ntime", 100, "Number of time points")
	flags.Uint64Var(&seedFlag, "seed", 42, "Random seed")
	flags.Float64Var(&diagFlag, "diag", 0.9, "Self-transition probability")
	flags.Float64SliceVar(&meanFlag, "means", []float64{3, 5}, "True emission mean per state")
	flags.Float64Var(&sdFlag, "sd", 1, "Emission standard deviation")
	flags.StringVar(&outFlag, "outname", "", "Output file name")

	return genCmd
}

func main() {

	if generateCMD().Execute() != nil {
		os.Exit(1)
	}
}
