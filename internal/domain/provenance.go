package domain

import (
	"log/slog"
	"math"
)

// Method flags describing how a bin's value was obtained.
const (
	MethodNoData       uint8 = 0 // no raw samples and no interpolated value
	MethodInterpolated uint8 = 1 // no raw samples, value from gap-fill interpolation
	MethodBinned       uint8 = 2 // average over raw samples
)

// sharedSensors lists component pairs that come from one physical
// measurement stream. Their N/m pairs are identical by construction, so a
// single pair named after the sensor replaces the per-component duplicates.
var sharedSensors = []struct {
	a, b, sensor string
}{
	{VarU, VarV, "wind"},
	{VarLat, VarLon, "gps"},
}

// FlagProvenance derives the per-bin method flag m for every binned variable
// of g and stores the result in g.Methods:
//
//	m=0  N=0 and the post-fill value is still NaN
//	m=1  N=0 but the value is not NaN (gap-fill interpolation)
//	m=2  N>0
//
// Component pairs sharing a sensor are collapsed to one entry. Profiles
// produced by direct interpolation carry no counts and come back unchanged.
func FlagProvenance(g GriddedProfile, logger *slog.Logger) GriddedProfile {
	if g.Counts == nil {
		return g
	}

	g.Methods = make(map[string][]uint8, len(g.Counts))
	for name, counts := range g.Counts {
		g.Methods[name] = methodFlags(counts, g.Values[name])
	}

	counts := make(map[string][]int, len(g.Counts))
	for name, c := range g.Counts {
		counts[name] = c
	}

	for _, pair := range sharedSensors {
		ma, okA := g.Methods[pair.a]
		mb, okB := g.Methods[pair.b]
		if !okA || !okB {
			continue
		}
		if !equalUint8(ma, mb) || !equalInts(counts[pair.a], counts[pair.b]) {
			if logger != nil {
				logger.Warn("shared-sensor components disagree on provenance, keeping both",
					"sonde", g.SerialID, "components", pair.a+","+pair.b)
			}
			continue
		}
		g.Methods[pair.sensor] = ma
		counts[pair.sensor] = counts[pair.a]
		delete(g.Methods, pair.a)
		delete(g.Methods, pair.b)
		delete(counts, pair.a)
		delete(counts, pair.b)
	}
	g.Counts = counts

	return g
}

// methodFlags is the pure per-bin provenance rule: a function of N and
// whether the post-fill value is NaN, applied independently per bin.
func methodFlags(counts []int, values []float64) []uint8 {
	m := make([]uint8, len(counts))
	for i, n := range counts {
		switch {
		case n > 0:
			m[i] = MethodBinned
		case i < len(values) && !math.IsNaN(values[i]):
			m[i] = MethodInterpolated
		default:
			m[i] = MethodNoData
		}
	}
	return m
}

func equalUint8(a, b []uint8) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
