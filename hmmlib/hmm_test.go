package hmmlib

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// twoStateModel returns a small valid model used across the tests.
func twoStateModel(t *testing.T, obs []float64) *Model {

	em, err := NewGaussianEmission([]float64{3, 5}, []float64{1, 1})
	require.NoError(t, err)

	m, err := NewModel(obs,
		[]float64{0.9, 0.1, 0.1, 0.9},
		[]float64{0.5, 0.5}, em)
	require.NoError(t, err)

	return m
}

func TestNewModelValidation(t *testing.T) {

	em, err := NewGaussianEmission([]float64{3, 5}, []float64{1, 1})
	require.NoError(t, err)

	var ipe *InvalidParameterError
	var ce *ConfigError

	_, err = NewModel(nil, []float64{0.9, 0.1, 0.1, 0.9}, []float64{0.5, 0.5}, em)
	require.True(t, errors.As(err, &ce), "empty observations must be a config error")

	// Row not summing to one
	_, err = NewModel([]float64{1}, []float64{0.9, 0.2, 0.1, 0.9}, []float64{0.5, 0.5}, em)
	require.True(t, errors.As(err, &ipe))

	// Negative entry
	_, err = NewModel([]float64{1}, []float64{1.1, -0.1, 0.1, 0.9}, []float64{0.5, 0.5}, em)
	require.True(t, errors.As(err, &ipe))

	// Initial distribution not summing to one
	_, err = NewModel([]float64{1}, []float64{0.9, 0.1, 0.1, 0.9}, []float64{0.5, 0.6}, em)
	require.True(t, errors.As(err, &ipe))

	// Dimension mismatch between init and trans
	_, err = NewModel([]float64{1}, []float64{0.9, 0.1, 0.1, 0.9}, []float64{0.3, 0.3, 0.4}, em)
	require.True(t, errors.As(err, &ipe))

	// A tiny row-sum error within tolerance is accepted
	_, err = NewModel([]float64{1}, []float64{0.9 + 1e-12, 0.1, 0.1, 0.9}, []float64{0.5, 0.5}, em)
	require.NoError(t, err)
}

func TestGaussianEmission(t *testing.T) {

	em, err := NewGaussianEmission([]float64{0, 2}, []float64{1, 2})
	require.NoError(t, err)

	// Standard normal density at its mean
	assert.InDelta(t, 1/math.Sqrt(2*math.Pi), em.Density(0, 0), 1e-12)

	// Symmetry around the mean, and positivity far out in the tail
	assert.InDelta(t, em.Density(1, 1), em.Density(3, 1), 1e-12)
	assert.GreaterOrEqual(t, em.Density(40, 0), 0.0)

	assert.InDelta(t, math.Log(em.Density(1.3, 1)), em.LogDensity(1.3, 1), 1e-12)

	_, err = NewGaussianEmission([]float64{1, 2}, []float64{1})
	require.Error(t, err)

	_, err = NewGaussianEmission([]float64{1, 2}, []float64{1, 0})
	require.Error(t, err)
}

func TestCompareStates(t *testing.T) {

	e, n := CompareStates([]int{0, 1, 1, 0}, []int{0, 1, 0, 0})
	assert.Equal(t, 1, e)
	assert.Equal(t, 4, n)

	require.Panics(t, func() {
		CompareStates([]int{0}, []int{0, 1})
	})
}
