package qc

import (
	"log/slog"
	"math"

	"github.com/tropospect/sonde-data-etl/internal/domain"
)

// FloaterConfig controls floater detection. Tolerances are in the profile's
// native units for the two monitored quantities (meters, hPa or Pa —
// whatever the profile carries at this stage).
type FloaterConfig struct {
	// GPSAltThreshold is the altitude below which surface stability is
	// examined.
	GPSAltThreshold float64
	// ConsecutiveSteps is the number of consecutive stable sample-to-sample
	// differences required to call a landing.
	ConsecutiveSteps  int
	AltTolerance      float64
	PressureTolerance float64
}

// DefaultFloaterConfig returns the operational defaults.
func DefaultFloaterConfig() FloaterConfig {
	return FloaterConfig{
		GPSAltThreshold:   25,
		ConsecutiveSteps:  3,
		AltTolerance:      1,
		PressureTolerance: 1,
	}
}

// DetectFloater examines the low-altitude tail of the profile. A sonde whose
// GPS altitude and pressure both stop changing below the threshold altitude
// has landed on water and kept transmitting; the landing time is the first
// sample of the first sufficiently long stable run, falling back to the
// first surface sample when no run qualifies.
//
// Returns whether the sonde is a floater and the landing time in seconds
// since launch (NaN when not a floater).
func DetectFloater(p domain.Profile, cfg FloaterConfig, logger *slog.Logger) (bool, float64) {
	gpsalt := p.Var(domain.VarGPSAlt)
	pres := p.Var(domain.VarP)
	if gpsalt == nil || pres == nil {
		return false, math.NaN()
	}

	// Surface samples: below threshold with both quantities valid, in time
	// order.
	var times, alts, ps []float64
	for i, a := range gpsalt {
		if math.IsNaN(a) || a >= cfg.GPSAltThreshold || math.IsNaN(pres[i]) {
			continue
		}
		times = append(times, p.Time[i])
		alts = append(alts, a)
		ps = append(ps, pres[i])
	}
	if len(alts) < 2 {
		return false, math.NaN()
	}

	stable := make([]bool, len(alts)-1)
	anyStable := false
	for i := range stable {
		stable[i] = math.Abs(alts[i+1]-alts[i]) < cfg.AltTolerance &&
			math.Abs(ps[i+1]-ps[i]) < cfg.PressureTolerance
		anyStable = anyStable || stable[i]
	}
	if !anyStable {
		return false, math.NaN()
	}

	landing := times[0]
	for i := 0; i+cfg.ConsecutiveSteps <= len(stable); i++ {
		run := true
		for j := i; j < i+cfg.ConsecutiveSteps; j++ {
			if !stable[j] {
				run = false
				break
			}
		}
		if run {
			landing = times[i]
			break
		}
	}
	if logger != nil {
		logger.Info("floater detected", "sonde", p.SerialID, "landing_time_s", landing)
	}
	return true, landing
}

// CropToLanding truncates a floater's profile at its estimated landing time.
// Non-floaters and floaters without a landing estimate pass through.
func CropToLanding(p domain.Profile) domain.Profile {
	if !p.IsFloater || math.IsNaN(p.LandingTime) {
		return p
	}
	n := 0
	for _, t := range p.Time {
		if t <= p.LandingTime {
			n++
		}
	}
	out := p
	out.Time = append([]float64(nil), p.Time[:n]...)
	out.Vars = make(map[string][]float64, len(p.Vars))
	for name, vals := range p.Vars {
		out.Vars[name] = append([]float64(nil), vals[:n]...)
	}
	return out
}

// FullnessConfig controls the profile-fullness check.
type FullnessConfig struct {
	// TimestampFrequency is the sampling rate of the time index in hertz.
	TimestampFrequency float64
	// Threshold is the minimum acceptable fullness fraction.
	Threshold float64
}

// DefaultFullnessConfig returns the operational defaults (4 Hz time index,
// 0.75 fullness).
func DefaultFullnessConfig() FullnessConfig {
	return FullnessConfig{TimestampFrequency: 4, Threshold: 0.75}
}

// ProfileFullness computes the variable's coverage fraction weighted by its
// own sampling frequency: valid samples over the expected sample count
// len(time) / (timestampFrequency / samplingFrequency). Registers the flag
// "<variable>_profile_fullness" and the fraction as a detail.
func ProfileFullness(r *Registry, p domain.Profile, variable string, samplingFrequency float64, cfg FullnessConfig) error {
	vals := p.Var(variable)
	valid := 0
	for _, v := range vals {
		if !math.IsNaN(v) {
			valid++
		}
	}
	expected := float64(p.Len()) / (cfg.TimestampFrequency / samplingFrequency)
	fraction := math.NaN()
	if expected > 0 {
		fraction = float64(valid) / expected
	}
	r.SetDetail(variable+"_profile_fullness_fraction", fraction)
	return r.SetFlag(variable+"_profile_fullness", fraction >= cfg.Threshold)
}

// NearSurfaceConfig controls the near-surface coverage check.
type NearSurfaceConfig struct {
	AltMin         float64
	AltMax         float64
	CountThreshold int
	Source         domain.AltitudeSource
}

// DefaultNearSurfaceConfig returns the operational defaults (0–1000 m band,
// 50 samples, GPS altitude).
func DefaultNearSurfaceConfig() NearSurfaceConfig {
	return NearSurfaceConfig{AltMin: 0, AltMax: 1000, CountThreshold: 50, Source: domain.BackupAltitude}
}

// NearSurfaceCoverage counts the variable's valid samples inside the
// altitude band (exclusive bounds) and registers "<variable>_near_surface"
// plus the count as a detail. Running it before floater detection is a
// non-fatal advisory: a floater's surface tail would inflate the count.
func NearSurfaceCoverage(r *Registry, p domain.Profile, variable string, cfg NearSurfaceConfig, floaterChecked bool, logger *slog.Logger) error {
	if !floaterChecked && logger != nil {
		logger.Warn("near-surface coverage computed before floater detection",
			"sonde", p.SerialID, "variable", variable)
	}
	alt := p.Altitude(cfg.Source)
	vals := p.Var(variable)
	count := 0
	for i, a := range alt {
		if math.IsNaN(a) || a <= cfg.AltMin || a >= cfg.AltMax {
			continue
		}
		if i < len(vals) && !math.IsNaN(vals[i]) {
			count++
		}
	}
	r.SetDetail(variable+"_near_surface_count", float64(count))
	return r.SetFlag(variable+"_near_surface", count >= cfg.CountThreshold)
}

// AltitudeConsistency compares the two independent altitude estimates and
// registers the sonde-level "alt_near_gpsalt" flag: false when the maximum
// difference over samples where both are valid exceeds the threshold
// (default 150 m), or when the estimates never overlap.
func AltitudeConsistency(r *Registry, p domain.Profile, threshold float64) error {
	alt := p.Var(domain.VarAlt)
	gpsalt := p.Var(domain.VarGPSAlt)
	maxDiff := math.NaN()
	for i := range alt {
		if i >= len(gpsalt) || math.IsNaN(alt[i]) || math.IsNaN(gpsalt[i]) {
			continue
		}
		d := math.Abs(alt[i] - gpsalt[i])
		if math.IsNaN(maxDiff) || d > maxDiff {
			maxDiff = d
		}
	}
	r.SetDetail("alt_gpsalt_max_diff", maxDiff)
	return r.SetFlag(altConsistencyFlag, !math.IsNaN(maxDiff) && maxDiff <= threshold)
}

// DefaultAircraftCeiling is the safety ceiling for RemoveAboveAircraft when
// the aircraft altitude at launch is unknown.
const DefaultAircraftCeiling = 15000.0

// RemoveAboveAircraft masks samples recorded above the carrying aircraft's
// altitude at launch (or the safety ceiling when unknown). Such samples are
// physically invalid and must not reach the later checks or the binner.
func RemoveAboveAircraft(p domain.Profile, ceiling float64) domain.Profile {
	limit := ceiling
	if limit <= 0 {
		limit = DefaultAircraftCeiling
	}
	if p.AircraftAltitude > 0 && p.AircraftAltitude < limit {
		limit = p.AircraftAltitude
	}
	alt := p.Var(domain.VarAlt)
	gpsalt := p.Var(domain.VarGPSAlt)
	drop := make([]bool, p.Len())
	hit := false
	for i := range drop {
		a := math.NaN()
		if alt != nil && !math.IsNaN(alt[i]) {
			a = alt[i]
		} else if gpsalt != nil {
			a = gpsalt[i]
		}
		if !math.IsNaN(a) && a > limit {
			drop[i] = true
			hit = true
		}
	}
	if !hit {
		return p
	}
	return p.MaskSamples(drop)
}
