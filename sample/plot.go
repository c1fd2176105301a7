package main

import (
	"fmt"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"bayeshmm/hmmlib"
)

// plotMeanTraces saves a line plot of the retained emission mean draws,
// one line per state.
func plotMeanTraces(draws []hmmlib.Draw, nstate int, fname string) error {

	p := plot.New()
	p.Title.Text = "Posterior mean traces"
	p.X.Label.Text = "retained draw"
	p.Y.Label.Text = "mu"

	args := make([]interface{}, 0, 2*nstate)
	for st := 0; st < nstate; st++ {
		trace := hmmlib.MeanTrace(draws, st)
		xy := make(plotter.XYs, len(trace))
		for i, v := range trace {
			xy[i].X = float64(i)
			xy[i].Y = v
		}
		args = append(args, fmt.Sprintf("mu[%d]", st), xy)
	}

	if err := plotutil.AddLines(p, args...); err != nil {
		return err
	}

	return p.Save(6*vg.Inch, 4*vg.Inch, fname)
}
