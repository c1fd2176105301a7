//

package hmmlib

import (
	"bytes"
	"fmt"
	"io"
	"log"
	"math"
	"os"

	"gonum.org/v1/gonum/floats"
)

const (
	// Tolerance when checking that a probability vector sums to one
	probTol = 1e-8

	// Minimum allowed value for the observation SD
	sdmin = 1e-8
)

// EmissionModel links a hidden state to the density of an observed value.
// Implementations must be free of side effects so that independent chains
// can evaluate them concurrently.
type EmissionModel interface {

	// LogDensity returns the log density of y emitted from state st.
	LogDensity(y float64, st int) float64

	// Density returns the density of y emitted from state st.  The
	// returned value is never negative.
	Density(y float64, st int) float64
}

// GaussianEmission is a univariate Gaussian emission model with one mean
// and one standard deviation per state.
type GaussianEmission struct {
	Mean []float64
	Std  []float64
}

// NewGaussianEmission returns a Gaussian emission model with the given
// per-state means and standard deviations.
func NewGaussianEmission(mean, std []float64) (*GaussianEmission, error) {

	if len(mean) == 0 || len(mean) != len(std) {
		return nil, &InvalidParameterError{Name: "emission",
			Detail: fmt.Sprintf("have %d means and %d standard deviations", len(mean), len(std))}
	}

	for st, sd := range std {
		if sd < sdmin {
			return nil, &InvalidParameterError{Name: "emission",
				Detail: fmt.Sprintf("standard deviation for state %d is below %g", st, sdmin)}
		}
	}

	return &GaussianEmission{Mean: mean, Std: std}, nil
}

// LogDensity returns the Gaussian log density of y under state st.
func (g *GaussianEmission) LogDensity(y float64, st int) float64 {
	z := (y - g.Mean[st]) / g.Std[st]
	return -math.Log(g.Std[st]) - z*z/2 - math.Log(2*math.Pi)/2
}

// Density returns the Gaussian density of y under state st.
func (g *GaussianEmission) Density(y float64, st int) float64 {
	return math.Exp(g.LogDensity(y, st))
}

// Model represents a hidden Markov model for a single observation
// sequence.  The transition matrix is stored row-major, so
// Trans[j*NState+k] is the probability of moving from state j to state k.
type Model struct {

	// Number of states
	NState int

	// Number of time points
	NTime int

	// The transition probability matrix
	Trans []float64

	// The initial probability distribution
	Init []float64

	// The observations
	Obs []float64

	// The emission model
	Emission EmissionModel

	// Write log messages here
	msglogger *log.Logger
	parlogger *log.Logger
}

// NewModel returns a validated model for the given observation sequence,
// transition matrix, initial distribution and emission model.  The
// parameter slices are retained, not copied.
func NewModel(obs, trans, init []float64, em EmissionModel) (*Model, error) {

	if len(obs) == 0 {
		return nil, &ConfigError{Detail: "observation sequence is empty"}
	}

	nstate := len(init)
	if nstate == 0 {
		return nil, &InvalidParameterError{Name: "init", Detail: "no states"}
	}

	m := &Model{
		NState:   nstate,
		NTime:    len(obs),
		Trans:    trans,
		Init:     init,
		Obs:      obs,
		Emission: em,
	}

	if err := m.Validate(); err != nil {
		return nil, err
	}

	return m, nil
}

// Validate checks that the current transition matrix and initial
// distribution are row-stochastic with matching dimensions.
func (m *Model) Validate() error {

	if len(m.Trans) != m.NState*m.NState {
		return &InvalidParameterError{Name: "trans",
			Detail: fmt.Sprintf("have %d entries, need %d", len(m.Trans), m.NState*m.NState)}
	}

	for j := 0; j < m.NState; j++ {
		row := m.Trans[j*m.NState : (j+1)*m.NState]
		if err := checkProbVec(fmt.Sprintf("trans row %d", j), row); err != nil {
			return err
		}
	}

	return checkProbVec("init", m.Init)
}

// checkProbVec confirms that x is a probability vector: non-negative
// entries summing to one within tolerance.
func checkProbVec(name string, x []float64) error {

	for _, v := range x {
		if v < 0 || math.IsNaN(v) {
			return &InvalidParameterError{Name: name, Detail: "negative or NaN entry"}
		}
	}

	if s := floats.Sum(x); math.Abs(s-1) > probTol {
		return &InvalidParameterError{Name: name,
			Detail: fmt.Sprintf("sums to %v, not 1", s)}
	}

	return nil
}

// SetLogger creates message and parameter log files with the given name
// prefix.  The message logger is returned so that the calling program can
// use it as well.
func (m *Model) SetLogger(logname string) (*log.Logger, error) {

	fid, err := os.Create(logname + "_msg.log")
	if err != nil {
		return nil, err
	}
	m.msglogger = log.New(fid, "", log.Ltime)

	fid, err = os.Create(logname + "_par.log")
	if err != nil {
		return nil, err
	}
	m.parlogger = log.New(fid, "", 0)

	return m.msglogger, nil
}

// Message writes a message to the message log.
func (m *Model) Message(msg string) {
	if m.msglogger != nil {
		m.msglogger.Print(msg)
	}
}

// WriteSummary writes a titled set of parameter matrices to the parameter
// logger.  The optional state labels are used if provided.
func (m *Model) WriteSummary(labels []string, title string) {

	if m.parlogger == nil {
		return
	}

	m.parlogger.Printf(title)
	m.parlogger.Printf("\n")

	m.parlogger.Printf("Initial state distribution:\n")
	m.writeMatrix(m.Init, 0, m.NState, 1, labels, nil)
	m.parlogger.Printf("\n")

	m.parlogger.Printf("Transition matrix:\n")
	m.writeMatrix(m.Trans, 0, m.NState, m.NState, labels, labels)
	m.parlogger.Printf("\n")

	if g, ok := m.Emission.(*GaussianEmission); ok {
		m.parlogger.Printf("Means:\n")
		m.writeMatrix(g.Mean, 0, m.NState, 1, labels, nil)
		m.parlogger.Printf("\n")

		m.parlogger.Printf("Standard deviations:\n")
		m.writeMatrix(g.Std, 0, m.NState, 1, labels, nil)
		m.parlogger.Printf("\n")
	}
}

// WriteVector writes a titled vector to the parameter logger.
func (m *Model) WriteVector(x []float64, labels []string, title string) {

	if m.parlogger == nil {
		return
	}

	m.parlogger.Printf(title)
	m.parlogger.Printf("\n")
	m.writeMatrix(x, 0, len(x), 1, labels, nil)
	m.parlogger.Printf("\n")
}

// writeMatrix writes a matrix in text format to the logger
func (m *Model) writeMatrix(x []float64, off, nrow, ncol int, rowlabels, collabels []string) {

	var buf bytes.Buffer

	if rowlabels != nil && nrow != len(rowlabels) {
		msg := "len(rowlabels) != nrow\n"
		_, _ = io.WriteString(os.Stderr, msg)
	}

	if collabels != nil {
		if ncol != len(collabels) {
			msg := "len(collabels) != ncol\n"
			_, _ = io.WriteString(os.Stderr, msg)
		}
		if rowlabels != nil {
			_, _ = io.WriteString(&buf, fmt.Sprintf("%20s", ""))
		}
		for _, c := range collabels {
			_, _ = io.WriteString(&buf, fmt.Sprintf("%20s", c))
		}
		m.parlogger.Printf(buf.String())
	}

	for i := 0; i < nrow; i++ {

		buf.Reset()

		if rowlabels != nil {
			_, _ = io.WriteString(&buf, fmt.Sprintf("%-20s", rowlabels[i]))
		}
		for j := 0; j < ncol; j++ {
			_, _ = io.WriteString(&buf, fmt.Sprintf("%20.4f", x[off+i*ncol+j]))
		}

		m.parlogger.Printf(buf.String())
	}
}

// normalize the values in x to have a sum of 1.
func normalizeSum(x []float64, z float64) {
	scale := floats.Sum(x)
	if scale < 1e-10 {
		for j := range x {
			x[j] = z
		}
		return
	}
	floats.Scale(1/scale, x)
}

// argmax returns the position of the largest value in x.  Ties resolve to
// the lowest position.
func argmax(x []float64) int {
	j := 0
	v := x[0]
	for i := 1; i < len(x); i++ {
		if x[i] > v {
			v = x[i]
			j = i
		}
	}

	return j
}

// CompareStates returns the number of positions where the state sequences
// x and y disagree, and the total number of positions.  Panics if the
// lengths of x and y differ.
func CompareStates(x, y []int) (int, int) {

	if len(x) != len(y) {
		panic("Lengths are not equal")
	}

	var e int
	for t := range x {
		if x[t] != y[t] {
			e++
		}
	}

	return e, len(x)
}
