package circle

import (
	"math"

	"github.com/tropospect/sonde-data-etl/internal/domain"
)

// paPerSecToHPaPerHour converts the omega integral from Pa/s to the
// conventional hPa/hour.
const paPerSecToHPaPerHour = 3600.0 / 100.0

// ComputeDerivatives derives the circle's dynamical fields from the wind
// gradients:
//
//	divergence D = du/dx + dv/dy
//	vorticity  ζ = dv/dx - du/dy
//
// and the vertical-motion profiles by integrating mass divergence upward
// from a zero-velocity boundary at the lowest level: omega accumulates
// -D·Δp over the circle-mean pressure profile (hPa/hour), w accumulates
// -D·Δz over altitude (m/s). Both integrals are order-dependent and
// propagate NaN from any level below the level of interest.
func (c *Circle) ComputeDerivatives() {
	nLevels := c.Grid.NumBins()
	dudx := c.DDX[domain.VarU]
	dvdy := c.DDY[domain.VarV]
	dvdx := c.DDX[domain.VarV]
	dudy := c.DDY[domain.VarU]

	c.Divergence = make([]float64, nLevels)
	c.Vorticity = make([]float64, nLevels)
	for i := 0; i < nLevels; i++ {
		if dudx == nil || dvdy == nil {
			c.Divergence[i] = math.NaN()
			c.Vorticity[i] = math.NaN()
			continue
		}
		c.Divergence[i] = dudx[i] + dvdy[i]
		c.Vorticity[i] = dvdx[i] - dudy[i]
	}

	c.Omega = c.integrateUpward(c.Mean[domain.VarP], paPerSecToHPaPerHour)
	c.W = c.integrateUpward(c.Grid.Centers(), 1)
}

// integrateUpward computes the cumulative sum of -D·Δcoord from the lowest
// level up, with a zero increment at the boundary level. Grid centers
// ascend, so level order is already surface-first.
func (c *Circle) integrateUpward(coord []float64, scale float64) []float64 {
	n := len(c.Divergence)
	out := make([]float64, n)
	if coord == nil {
		for i := range out {
			out[i] = math.NaN()
		}
		return out
	}
	sum := 0.0
	for i := 0; i < n; i++ {
		delta := 0.0 // zero-velocity boundary at the lowest level
		if i > 0 {
			delta = coord[i] - coord[i-1]
		}
		sum += -c.Divergence[i] * delta * scale
		out[i] = sum
	}
	return out
}
