package circle

import (
	"math"

	"github.com/tropospect/sonde-data-etl/internal/domain"
)

// metersPerDegLat is the equirectangular scale along a meridian.
const metersPerDegLat = 111320.0

// FitGeometry determines the circle center and radius and projects every
// member's position into circle-relative x/y meters.
//
// With no supplied center, a least-squares circle is fitted through the
// member positions at each altitude level having at least cfg.MinPositions
// valid positions; levels below that threshold contribute NaN. The
// per-level centers and radii are then averaged (NaN-masked) into the
// circle-level scalars.
func (c *Circle) FitGeometry(cfg Config) {
	nLevels := c.Grid.NumBins()

	if cfg.Center != nil {
		c.Lat = cfg.Center.Lat
		c.Lon = cfg.Center.Lon
		c.Radius = c.meanRadiusAbout(cfg.Center.Lat, cfg.Center.Lon)
	} else {
		latSum, lonSum, radSum := 0.0, 0.0, 0.0
		n := 0
		for level := 0; level < nLevels; level++ {
			lat, lon, rad := c.fitLevelCircle(level, cfg.MinPositions)
			if math.IsNaN(lat) {
				continue
			}
			latSum += lat
			lonSum += lon
			radSum += rad
			n++
		}
		if n == 0 {
			c.Lat, c.Lon, c.Radius = math.NaN(), math.NaN(), math.NaN()
		} else {
			c.Lat = latSum / float64(n)
			c.Lon = lonSum / float64(n)
			c.Radius = radSum / float64(n)
		}
	}

	// Metric offsets from the circle center, per member per level.
	c.X = make([][]float64, len(c.Members))
	c.Y = make([][]float64, len(c.Members))
	for i := range c.Members {
		c.X[i] = make([]float64, nLevels)
		c.Y[i] = make([]float64, nLevels)
	}
	for level := 0; level < nLevels; level++ {
		lats := c.memberColumn(domain.VarLat, level)
		lons := c.memberColumn(domain.VarLon, level)
		for i := range c.Members {
			x, y := project(lats[i], lons[i], c.Lat, c.Lon)
			c.X[i][level] = x
			c.Y[i][level] = y
		}
	}
}

// project converts a lat/lon to metric offsets from a reference point using
// the equirectangular approximation about the reference latitude.
func project(lat, lon, refLat, refLon float64) (x, y float64) {
	if math.IsNaN(lat) || math.IsNaN(lon) || math.IsNaN(refLat) || math.IsNaN(refLon) {
		return math.NaN(), math.NaN()
	}
	x = (lon - refLon) * metersPerDegLat * math.Cos(refLat*math.Pi/180)
	y = (lat - refLat) * metersPerDegLat
	return x, y
}

// fitLevelCircle fits a least-squares circle through the member positions at
// one level. Returns NaN center and radius when fewer than minPositions
// members have a valid position.
func (c *Circle) fitLevelCircle(level, minPositions int) (lat, lon, radius float64) {
	lats := c.memberColumn(domain.VarLat, level)
	lons := c.memberColumn(domain.VarLon, level)

	var refLat, refLon float64
	n := 0
	for i := range lats {
		if math.IsNaN(lats[i]) || math.IsNaN(lons[i]) {
			continue
		}
		refLat += lats[i]
		refLon += lons[i]
		n++
	}
	if n < minPositions {
		return math.NaN(), math.NaN(), math.NaN()
	}
	refLat /= float64(n)
	refLon /= float64(n)

	// Kasa fit: x^2+y^2 + a*x + b*y + d = 0 is linear in (a, b, d).
	var sxx, sxy, syy, sx, sy, sn float64
	var sxz, syz, sz float64
	for i := range lats {
		if math.IsNaN(lats[i]) || math.IsNaN(lons[i]) {
			continue
		}
		x, y := project(lats[i], lons[i], refLat, refLon)
		z := x*x + y*y
		sxx += x * x
		sxy += x * y
		syy += y * y
		sx += x
		sy += y
		sn++
		sxz += x * z
		syz += y * z
		sz += z
	}
	a, b, d, ok := solve3x3(
		[3][3]float64{
			{sxx, sxy, sx},
			{sxy, syy, sy},
			{sx, sy, sn},
		},
		[3]float64{-sxz, -syz, -sz},
	)
	if !ok {
		return math.NaN(), math.NaN(), math.NaN()
	}
	cx, cy := -a/2, -b/2
	r2 := cx*cx + cy*cy - d
	if r2 < 0 {
		return math.NaN(), math.NaN(), math.NaN()
	}

	lat = refLat + cy/metersPerDegLat
	lon = refLon + cx/(metersPerDegLat*math.Cos(refLat*math.Pi/180))
	return lat, lon, math.Sqrt(r2)
}

// meanRadiusAbout returns the mean metric distance of all valid member
// positions from a supplied center.
func (c *Circle) meanRadiusAbout(lat, lon float64) float64 {
	var sum float64
	n := 0
	for level := 0; level < c.Grid.NumBins(); level++ {
		lats := c.memberColumn(domain.VarLat, level)
		lons := c.memberColumn(domain.VarLon, level)
		for i := range lats {
			x, y := project(lats[i], lons[i], lat, lon)
			if math.IsNaN(x) {
				continue
			}
			sum += math.Hypot(x, y)
			n++
		}
	}
	if n == 0 {
		return math.NaN()
	}
	return sum / float64(n)
}
