package hmmlib

import "fmt"

// InvalidParameterError reports a model parameter that is not a valid
// probability distribution, or has mismatched dimensions.  It is detected
// at construction time, never deferred to the algorithms.
type InvalidParameterError struct {
	Name   string
	Detail string
}

func (e *InvalidParameterError) Error() string {
	return fmt.Sprintf("hmm: invalid parameter %s: %s", e.Name, e.Detail)
}

// NumericalUnderflowError reports a time point at which every state has
// zero likelihood, leaving the recursion with no usable row.
type NumericalUnderflowError struct {
	Time int
}

func (e *NumericalUnderflowError) Error() string {
	return fmt.Sprintf("hmm: all-zero likelihood row at time %d", e.Time)
}

// DegenerateClusterError reports a state with no assigned observations
// during a Gibbs mean update, which leaves the conditional posterior of
// its mean undefined.
type DegenerateClusterError struct {
	State int
}

func (e *DegenerateClusterError) Error() string {
	return fmt.Sprintf("hmm: no observations assigned to state %d in mean update", e.State)
}

// ConfigError reports an unusable run configuration.
type ConfigError struct {
	Detail string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("hmm: %s", e.Detail)
}
