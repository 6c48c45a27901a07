package circle

import (
	"math"
)

// FitPlane fits value ≈ a + b*x + c*y by least squares through the given
// triples, masking any triple with a NaN component. Fewer than minCount
// valid triples — or a singular system — return NaN for all three outputs
// instead of an ill-conditioned fit.
//
// Returns (a, b, c) = (mean, zonal gradient, meridional gradient).
func FitPlane(x, y, v []float64, minCount int) (a, b, c float64) {
	var sn, sx, sy, sxx, sxy, syy, sv, sxv, syv float64
	n := 0
	for i := range v {
		if math.IsNaN(v[i]) || math.IsNaN(x[i]) || math.IsNaN(y[i]) {
			continue
		}
		sn++
		sx += x[i]
		sy += y[i]
		sxx += x[i] * x[i]
		sxy += x[i] * y[i]
		syy += y[i] * y[i]
		sv += v[i]
		sxv += x[i] * v[i]
		syv += y[i] * v[i]
		n++
	}
	if n < minCount {
		return math.NaN(), math.NaN(), math.NaN()
	}

	// Normal equations of the design matrix [1, x, y].
	a, b, c, ok := solve3x3(
		[3][3]float64{
			{sn, sx, sy},
			{sx, sxx, sxy},
			{sy, sxy, syy},
		},
		[3]float64{sv, sxv, syv},
	)
	if !ok {
		return math.NaN(), math.NaN(), math.NaN()
	}
	return a, b, c
}

// FitPlanes runs the per-level plane fit for every configured variable,
// filling Mean, DDX and DDY. Each (variable, level) fit is independent.
func (c *Circle) FitPlanes(cfg Config) {
	nLevels := c.Grid.NumBins()
	c.Mean = make(map[string][]float64, len(cfg.Variables))
	c.DDX = make(map[string][]float64, len(cfg.Variables))
	c.DDY = make(map[string][]float64, len(cfg.Variables))

	for _, name := range cfg.Variables {
		mean := make([]float64, nLevels)
		ddx := make([]float64, nLevels)
		ddy := make([]float64, nLevels)
		for level := 0; level < nLevels; level++ {
			vals := c.memberColumn(name, level)
			x := make([]float64, len(c.Members))
			y := make([]float64, len(c.Members))
			for i := range c.Members {
				x[i] = c.X[i][level]
				y[i] = c.Y[i][level]
			}
			mean[level], ddx[level], ddy[level] = FitPlane(x, y, vals, cfg.MinSondes)
		}
		c.Mean[name] = mean
		c.DDX[name] = ddx
		c.DDY[name] = ddy
	}
}

// solve3x3 solves A*x = rhs by Gaussian elimination with partial pivoting.
// ok is false when the system is singular to working precision.
func solve3x3(m [3][3]float64, rhs [3]float64) (x0, x1, x2 float64, ok bool) {
	const tiny = 1e-12
	for col := 0; col < 3; col++ {
		pivot := col
		for row := col + 1; row < 3; row++ {
			if math.Abs(m[row][col]) > math.Abs(m[pivot][col]) {
				pivot = row
			}
		}
		if math.Abs(m[pivot][col]) < tiny {
			return 0, 0, 0, false
		}
		m[col], m[pivot] = m[pivot], m[col]
		rhs[col], rhs[pivot] = rhs[pivot], rhs[col]

		for row := col + 1; row < 3; row++ {
			f := m[row][col] / m[col][col]
			for k := col; k < 3; k++ {
				m[row][k] -= f * m[col][k]
			}
			rhs[row] -= f * rhs[col]
		}
	}
	var x [3]float64
	for row := 2; row >= 0; row-- {
		sum := rhs[row]
		for k := row + 1; k < 3; k++ {
			sum -= m[row][k] * x[k]
		}
		x[row] = sum / m[row][row]
	}
	return x[0], x[1], x[2], true
}
