package domain

import (
	"fmt"
	"math"
	"time"
)

// Standard Level-2 variable names. Raw instrument files use vendor names
// (u_wind, tdry, pres, ...); adapters rename them on ingest so the core only
// ever sees these.
const (
	VarU      = "u"      // eastward wind, m/s
	VarV      = "v"      // northward wind, m/s
	VarTa     = "ta"     // air temperature, K
	VarP      = "p"      // air pressure, Pa
	VarRH     = "rh"     // relative humidity, fraction
	VarQ      = "q"      // specific humidity, kg/kg
	VarLat    = "lat"    // latitude, degree north
	VarLon    = "lon"    // longitude, degree east
	VarAlt    = "alt"    // barometric altitude above MSL, m
	VarGPSAlt = "gpsalt" // GPS altitude above MSL, m
)

// AltitudeSource selects which of the two independent altitude estimates is
// authoritative for a processing step. The raw files carry both; swapping
// them is an explicit choice here, never a rename of the underlying data.
type AltitudeSource int

const (
	// PrimaryAltitude is the barometric altitude ("alt").
	PrimaryAltitude AltitudeSource = iota
	// BackupAltitude is the GPS-reported altitude ("gpsalt").
	BackupAltitude
)

// VarName returns the profile variable holding this altitude estimate.
func (s AltitudeSource) VarName() string {
	if s == BackupAltitude {
		return VarGPSAlt
	}
	return VarAlt
}

func (s AltitudeSource) String() string { return s.VarName() }

// Profile is one instrument's time series during descent. All per-variable
// sequences share the time index; Validate enforces that invariant.
//
// Transformations on profiles return new values rather than mutating in
// place, so per-sonde processing stages compose without shared state.
type Profile struct {
	SerialID   string
	FlightID   string
	PlatformID string
	LaunchTime time.Time

	// AircraftAltitude is the carrying aircraft's altitude at launch, m MSL.
	// Zero means unknown.
	AircraftAltitude float64

	IsFloater bool
	// LandingTime is the estimated landing time for floaters, in seconds
	// since launch. NaN when not estimated.
	LandingTime float64

	// Time holds sample times in seconds since launch.
	Time []float64
	Vars map[string][]float64
}

// Len returns the number of time samples.
func (p Profile) Len() int { return len(p.Time) }

// Validate checks that every variable sequence matches the time index length.
func (p Profile) Validate() error {
	for name, vals := range p.Vars {
		if len(vals) != len(p.Time) {
			return fmt.Errorf("profile %s: variable %q has %d samples, time index has %d",
				p.SerialID, name, len(vals), len(p.Time))
		}
	}
	return nil
}

// Var returns the named variable sequence, or nil if absent.
func (p Profile) Var(name string) []float64 { return p.Vars[name] }

// Altitude returns the sequence for the given altitude source.
func (p Profile) Altitude(src AltitudeSource) []float64 { return p.Vars[src.VarName()] }

// Clone returns a deep copy. Stages that rewrite samples work on the copy so
// the input profile stays untouched.
func (p Profile) Clone() Profile {
	out := p
	out.Time = append([]float64(nil), p.Time...)
	out.Vars = make(map[string][]float64, len(p.Vars))
	for name, vals := range p.Vars {
		out.Vars[name] = append([]float64(nil), vals...)
	}
	return out
}

// WithVar returns a copy of the profile with one variable replaced.
func (p Profile) WithVar(name string, vals []float64) Profile {
	out := p
	out.Vars = make(map[string][]float64, len(p.Vars)+1)
	for n, v := range p.Vars {
		out.Vars[n] = v
	}
	out.Vars[name] = vals
	return out
}

// MaskSamples returns a copy with every variable set to NaN at indices where
// drop is true. The time index keeps its length; masked samples simply stop
// contributing to any later aggregation.
func (p Profile) MaskSamples(drop []bool) Profile {
	out := p.Clone()
	for _, vals := range out.Vars {
		for i := range vals {
			if i < len(drop) && drop[i] {
				vals[i] = math.NaN()
			}
		}
	}
	return out
}

// AltitudeGrid is a fixed vertical axis of bin edges
// [Start, Start+Step, ...). It is immutable once chosen for a pipeline run.
type AltitudeGrid struct {
	Start float64
	Stop  float64
	Step  float64
}

// NumBins returns the number of bins between Start and Stop.
func (g AltitudeGrid) NumBins() int {
	if g.Step <= 0 || g.Stop <= g.Start {
		return 0
	}
	return int(math.Floor((g.Stop - g.Start) / g.Step))
}

// Edges returns the NumBins()+1 bin edges.
func (g AltitudeGrid) Edges() []float64 {
	n := g.NumBins()
	edges := make([]float64, n+1)
	for i := range edges {
		edges[i] = g.Start + float64(i)*g.Step
	}
	return edges
}

// Centers returns the bin-center labels.
func (g AltitudeGrid) Centers() []float64 {
	n := g.NumBins()
	centers := make([]float64, n)
	for i := range centers {
		centers[i] = g.Start + (float64(i)+0.5)*g.Step
	}
	return centers
}

// BinIndex assigns an altitude to a bin. Bins are left-open (e_i, e_i+1]
// except the first bin, which also includes the start edge: a sample sitting
// exactly on an interior edge belongs to the bin below it. Returns false for
// NaN or out-of-range altitudes.
func (g AltitudeGrid) BinIndex(alt float64) (int, bool) {
	n := g.NumBins()
	if n == 0 || math.IsNaN(alt) || alt < g.Start {
		return 0, false
	}
	last := g.Start + float64(n)*g.Step
	if alt > last {
		return 0, false
	}
	idx := int(math.Ceil((alt-g.Start)/g.Step)) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= n {
		idx = n - 1
	}
	return idx, true
}

// Validate rejects degenerate grids. A grid is a configuration value, so a
// bad one is an error rather than a data-quality condition.
func (g AltitudeGrid) Validate() error {
	if g.Step <= 0 {
		return fmt.Errorf("altitude grid: step must be positive, got %g", g.Step)
	}
	if g.Stop <= g.Start {
		return fmt.Errorf("altitude grid: stop (%g) must exceed start (%g)", g.Stop, g.Start)
	}
	return nil
}

// GriddedProfile is a Profile re-indexed on an AltitudeGrid. For every
// variable it carries the per-bin value, the count of contributing raw
// samples (N) and the provenance method flag (m). QC results are merged in
// as additional named fields.
type GriddedProfile struct {
	SerialID   string
	FlightID   string
	PlatformID string
	LaunchTime time.Time
	IsFloater  bool

	Grid AltitudeGrid

	Values map[string][]float64
	// Counts holds N per variable per bin. Nil when the profile was produced
	// by direct interpolation, which has no per-bin sample counts.
	Counts map[string][]int
	// Methods holds m per sensor per bin: 0 no data, 1 interpolated,
	// 2 average over raw data. Component pairs from a shared sensor are
	// deduplicated under the sensor name (see FlagProvenance).
	Methods map[string][]uint8

	// InterpTime is the bin-mean of the original sample times (seconds since
	// launch), for traceability. NaN where no samples contributed.
	InterpTime []float64

	// QC results merged into the gridded product.
	QCFlags   map[string]uint8   // "<var>_qc" byte per monitored variable
	QCStatus  map[string]string  // BAD / GOOD / UGLY per monitored variable
	QCDetails map[string]float64 // numeric check details
	SondeQC   uint8              // 0 bad, 1 fully good, 2 mixed but usable

	ProcessedAt time.Time
}

// Centers returns the altitude labels the profile is indexed on.
func (g GriddedProfile) Centers() []float64 { return g.Grid.Centers() }
