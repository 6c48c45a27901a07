package circle

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFitPlane_RecoversLinearField(t *testing.T) {
	x := []float64{0, 1, 0, 1, 2, 1}
	y := []float64{0, 0, 1, 1, 1, 2}
	v := make([]float64, len(x))
	for i := range v {
		v[i] = 2 + 3*x[i] - y[i]
	}

	a, b, c := FitPlane(x, y, v, 3)
	assert.InDelta(t, 2.0, a, 1e-9)
	assert.InDelta(t, 3.0, b, 1e-9)
	assert.InDelta(t, -1.0, c, 1e-9)
}

func TestFitPlane_MasksNaNTriples(t *testing.T) {
	x := []float64{0, 1, 0, 1, math.NaN(), 2}
	y := []float64{0, 0, 1, 1, 5, 2}
	v := []float64{2, 5, 1, 4, math.NaN(), 6}

	a, b, c := FitPlane(x, y, v, 3)
	assert.InDelta(t, 2.0, a, 1e-9)
	assert.InDelta(t, 3.0, b, 1e-9)
	assert.InDelta(t, -1.0, c, 1e-9)
}

func TestFitPlane_TooFewPoints(t *testing.T) {
	x := []float64{0, 1, 2}
	y := []float64{0, 1, 2}
	v := []float64{1, 2, 3}

	a, b, c := FitPlane(x, y, v, 6)
	assert.True(t, math.IsNaN(a))
	assert.True(t, math.IsNaN(b))
	assert.True(t, math.IsNaN(c))
}

func TestFitPlane_CollinearPositionsAreSingular(t *testing.T) {
	// All points on the line y=x: the gradient normal to the line is
	// unconstrained and the normal equations are singular.
	x := []float64{0, 1, 2, 3}
	y := []float64{0, 1, 2, 3}
	v := []float64{1, 2, 3, 4}

	a, b, c := FitPlane(x, y, v, 3)
	assert.True(t, math.IsNaN(a))
	assert.True(t, math.IsNaN(b))
	assert.True(t, math.IsNaN(c))
}

func TestFitPlane_ConstantField(t *testing.T) {
	x := []float64{0, 1, 0, -1, 0}
	y := []float64{0, 0, 1, 0, -1}
	v := []float64{7, 7, 7, 7, 7}

	a, b, c := FitPlane(x, y, v, 3)
	assert.InDelta(t, 7.0, a, 1e-9)
	assert.InDelta(t, 0.0, b, 1e-9)
	assert.InDelta(t, 0.0, c, 1e-9)
}
