// Package circle turns the gridded profiles of one circular flight segment
// into circle-level products: fitted circle geometry, per-altitude
// circle-mean fields and horizontal gradients, and the derived divergence,
// vorticity and vertical-motion profiles.
package circle

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/tropospect/sonde-data-etl/internal/domain"
)

// ErrTooFewSondes is returned when a segment has fewer members than the
// configured minimum; the caller drops the circle with a logged reason
// rather than producing degenerate products.
var ErrTooFewSondes = errors.New("too few sondes for circle")

// Config gates the circle computations.
type Config struct {
	// MinPositions is the minimum valid sonde positions per altitude level
	// for the circle-geometry fit (default 5).
	MinPositions int
	// MinSondes is the minimum valid sonde values per level for the plane
	// fit, and the minimum member count for the circle itself (default 6).
	MinSondes int
	// Variables are the fields the plane fit runs over.
	Variables []string
	// Center optionally pins the circle center instead of fitting it.
	Center *Position
}

// Position is a geographic point, degrees.
type Position struct {
	Lat float64
	Lon float64
}

// DefaultConfig returns the operational defaults.
func DefaultConfig() Config {
	return Config{
		MinPositions: 5,
		MinSondes:    6,
		Variables:    []string{domain.VarU, domain.VarV, domain.VarQ, domain.VarTa, domain.VarP, "rho"},
	}
}

// Circle owns the gridded data of its member sondes for the duration of the
// spatial-fit step; members are treated as read-only.
type Circle struct {
	SegmentID  string
	FlightID   string
	PlatformID string

	Members []domain.GriddedProfile
	Grid    domain.AltitudeGrid

	// Fitted (or supplied) geometry.
	Lat    float64
	Lon    float64
	Radius float64 // m
	Time   time.Time

	// X, Y are metric offsets from the circle center, per member per level.
	X [][]float64
	Y [][]float64

	// Per-variable per-level plane-fit outputs.
	Mean map[string][]float64
	DDX  map[string][]float64
	DDY  map[string][]float64

	// Wind-gradient derivatives per level.
	Divergence []float64
	Vorticity  []float64
	Omega      []float64 // hPa/hour
	W          []float64 // m/s
}

// New assembles a circle from the gridded profiles of one flight segment.
// All members must share the altitude grid.
func New(segmentID string, members []domain.GriddedProfile, cfg Config) (*Circle, error) {
	if len(members) < cfg.MinSondes {
		return nil, fmt.Errorf("%w: segment %s has %d of %d required",
			ErrTooFewSondes, segmentID, len(members), cfg.MinSondes)
	}
	grid := members[0].Grid
	for _, m := range members[1:] {
		if m.Grid != grid {
			return nil, fmt.Errorf("segment %s: sonde %s gridded on a different altitude grid", segmentID, m.SerialID)
		}
	}

	c := &Circle{
		SegmentID:  segmentID,
		FlightID:   members[0].FlightID,
		PlatformID: members[0].PlatformID,
		Members:    members,
		Grid:       grid,
		Time:       meanLaunchTime(members),
	}
	return c, nil
}

// meanLaunchTime is the representative circle time: the mean of the member
// launch times.
func meanLaunchTime(members []domain.GriddedProfile) time.Time {
	var sum int64
	n := 0
	for _, m := range members {
		if m.LaunchTime.IsZero() {
			continue
		}
		sum += m.LaunchTime.Unix()
		n++
	}
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(sum/int64(n), 0).UTC()
}

// Process runs the full circle pipeline: geometry fit, per-level plane fits
// for every configured variable, then the wind-gradient derivatives.
func (c *Circle) Process(cfg Config) {
	c.FitGeometry(cfg)
	c.FitPlanes(cfg)
	c.ComputeDerivatives()
}

// memberColumn returns variable values at one level across members, NaN
// where a member lacks the variable.
func (c *Circle) memberColumn(name string, level int) []float64 {
	col := make([]float64, len(c.Members))
	for i, m := range c.Members {
		col[i] = math.NaN()
		if vals := m.Values[name]; level < len(vals) {
			col[i] = vals[level]
		}
	}
	return col
}
