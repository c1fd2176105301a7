// Command sample reads a dataset written by the generate command, decodes
// the most probable state path with Viterbi, then runs the FFBS Gibbs
// sampler with over-dispersed chains and reports posterior summaries and
// convergence diagnostics.
package main

import (
	"fmt"
	"math"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"bayeshmm/hmmlib"
	"bayeshmm/hmmsim"
)

var cfgFileFlag string

func run(cmd *cobra.Command) error {

	cfg, err := initRunConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.Gobfile == "" {
		return errors.New("'gobfile' is a required setting")
	}

	ds, err := hmmsim.ReadDataset(cfg.Gobfile)
	if err != nil {
		return errors.Wrapf(err, "reading dataset %s", cfg.Gobfile)
	}

	em, err := hmmlib.NewGaussianEmission(ds.Mean, ds.Std)
	if err != nil {
		return err
	}
	model, err := hmmlib.NewModel(ds.Obs, ds.Trans, ds.Init, em)
	if err != nil {
		return err
	}

	logger, err := model.SetLogger(cfg.Logname)
	if err != nil {
		return errors.Wrap(err, "creating log files")
	}

	model.WriteSummary(nil, "Generating parameters:")

	// MAP path under the generating parameters
	path, err := model.Decode()
	if err != nil {
		return err
	}
	e, n := hmmlib.CompareStates(path, ds.State)
	logger.Printf("Viterbi disagrees with the true path at %d/%d time points", e, n)

	lat, err := model.Forward()
	if err != nil {
		return err
	}
	logger.Printf("Log-likelihood at the generating parameters: %f", lat.LogLike())

	starts, err := buildStarts(model.NState, cfg.MeanStarts)
	if err != nil {
		return err
	}

	scfg := hmmlib.SamplerConfig{
		Iter:            cfg.Iter,
		BurnIn:          cfg.BurnIn,
		Thin:            cfg.Thin,
		Seed:            cfg.Seed,
		AllowEmptyState: cfg.AllowEmptyState,
		Progress:        cfg.Progress,
	}

	logger.Printf("Running %d chains of %d iterations...", len(starts), cfg.Iter)
	chains, err := model.Sample(scfg, starts)
	if err != nil {
		return err
	}

	// Per-chain posterior means show whether the over-dispersed starts
	// converged to a common posterior.
	var gap float64
	var first []float64
	for ic, c := range chains {
		cd, err := hmmlib.PosteriorDraws([]*hmmlib.Chain{c}, cfg.BurnIn, cfg.Thin)
		if err != nil {
			return err
		}
		pm := hmmlib.PosteriorMeans(cd)
		model.WriteVector(pm, nil, fmt.Sprintf("Chain %d posterior means:", ic))
		if c.Warnings.EmptyState > 0 {
			logger.Printf("Chain %d: %d empty-state mean updates were guarded", ic, c.Warnings.EmptyState)
		}
		if ic == 0 {
			first = pm
			continue
		}
		for i := range pm {
			if d := math.Abs(pm[i] - first[i]); d > gap {
				gap = d
			}
		}
	}
	logger.Printf("Largest cross-chain posterior mean gap: %f", gap)

	draws, err := hmmlib.PosteriorDraws(chains, cfg.BurnIn, cfg.Thin)
	if err != nil {
		return err
	}

	model.WriteVector(hmmlib.PosteriorMeans(draws), nil, "Pooled posterior means:")

	for st := 0; st < model.NState; st++ {
		trace := hmmlib.MeanTrace(draws, st)
		logger.Print(acfReport(st, trace))
		logger.Printf("State %d suggested thinning stride: %d", st, hmmlib.SuggestThin(trace, 0.1, 50))
	}

	model.WriteVector(hmmlib.StateProb(draws, cfg.RefState), nil,
		fmt.Sprintf("Marginal posterior P(state=%d) per time point:", cfg.RefState))

	if cfg.Plotfile != "" {
		if err := plotMeanTraces(draws, model.NState, cfg.Plotfile); err != nil {
			return errors.Wrapf(err, "writing trace plot %s", cfg.Plotfile)
		}
		logger.Printf("Wrote trace plot to %s", cfg.Plotfile)
	}

	return nil
}

// acfReport formats the autocorrelation summary for one state's posterior
// mean trace.  Short runs support fewer lags than the usual 1, 5, 10, 20,
// so lags at or beyond the trace length are dropped.
func acfReport(st int, trace []float64) string {

	r := hmmlib.Autocorrelation(trace, 20)

	var lags, vals string
	for _, lag := range []int{1, 5, 10, 20} {
		if lag >= len(r) {
			break
		}
		lags += fmt.Sprintf(" %d", lag)
		vals += fmt.Sprintf(" %.3f", r[lag])
	}

	if lags == "" {
		return fmt.Sprintf("State %d: trace too short for autocorrelation", st)
	}

	return fmt.Sprintf("State %d mean autocorrelation at lags%s:%s", st, lags, vals)
}

// buildStarts pairs each over-dispersed mean start with uniform transition
// rows and a uniform initial distribution.
func buildStarts(nstate int, meanStarts [][]float64) ([]hmmlib.Start, error) {

	if len(meanStarts) < 2 {
		return nil, errors.Errorf("need at least 2 chain starts for diagnostics, have %d", len(meanStarts))
	}

	starts := make([]hmmlib.Start, len(meanStarts))
	for ic, mu := range meanStarts {
		if len(mu) != nstate {
			return nil, errors.Errorf("chain %d start has %d means, need %d", ic, len(mu), nstate)
		}

		trans := make([]float64, nstate*nstate)
		init := make([]float64, nstate)
		for i := 0; i < nstate; i++ {
			init[i] = 1 / float64(nstate)
			for j := 0; j < nstate; j++ {
				trans[i*nstate+j] = 1 / float64(nstate)
			}
		}

		starts[ic] = hmmlib.Start{Trans: trans, Init: init, Mean: mu}
	}

	return starts, nil
}

func sampleCMD() *cobra.Command {

	sampleCmd := &cobra.Command{
		Use:   "sample",
		Short: "run the FFBS Gibbs sampler on a dataset",
		Long:  "decode the MAP state path and sample the posterior of the HMM parameters",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd)
		},
	}

	sampleCmd.Flags().StringVarP(&cfgFileFlag, "config", "c", "", "run config path")

	return sampleCmd
}

func main() {

	if sampleCMD().Execute() != nil {
		os.Exit(1)
	}
}
