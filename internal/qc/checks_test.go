package qc

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tropospect/sonde-data-etl/internal/domain"
)

func sondeProfile(times []float64, vars map[string][]float64) domain.Profile {
	return domain.Profile{
		SerialID:   "SN-QC",
		LaunchTime: time.Date(2026, 8, 11, 12, 0, 0, 0, time.UTC),
		Time:       times,
		Vars:       vars,
	}
}

func TestDetectFloater_StableSurfaceRun(t *testing.T) {
	// Descent into a flat tail below 25 m: altitude and pressure freeze from
	// t=3 onward, giving three consecutive stable steps.
	p := sondeProfile([]float64{0, 1, 2, 3, 4, 5, 6}, map[string][]float64{
		domain.VarGPSAlt: {100, 40, 20, 10, 10, 10, 10},
		domain.VarP:      {1000, 1008, 1011, 1013, 1013, 1013, 1013},
	})

	isFloater, landing := DetectFloater(p, DefaultFloaterConfig(), nil)
	require.True(t, isFloater)
	assert.Equal(t, 3.0, landing)
}

func TestDetectFloater_ShortRunFallsBackToFirstSurfaceSample(t *testing.T) {
	// Only two stable steps with ConsecutiveSteps=3: still a floater, but the
	// landing estimate falls back to the first surface sample.
	cfg := DefaultFloaterConfig()
	p := sondeProfile([]float64{0, 1, 2, 3, 4}, map[string][]float64{
		domain.VarGPSAlt: {100, 20, 15, 15, 15},
		domain.VarP:      {1000, 1011, 1012.5, 1012.5, 1012.5},
	})

	isFloater, landing := DetectFloater(p, cfg, nil)
	require.True(t, isFloater)
	assert.Equal(t, 1.0, landing)
}

func TestDetectFloater_NormalDescentIsNotAFloater(t *testing.T) {
	p := sondeProfile([]float64{0, 1, 2, 3}, map[string][]float64{
		domain.VarGPSAlt: {100, 20, 12, 4},
		domain.VarP:      {1000, 1011, 1012, 1013},
	})

	isFloater, landing := DetectFloater(p, DefaultFloaterConfig(), nil)
	assert.False(t, isFloater)
	assert.True(t, math.IsNaN(landing))
}

func TestDetectFloater_MissingChannels(t *testing.T) {
	p := sondeProfile([]float64{0, 1}, map[string][]float64{
		domain.VarGPSAlt: {10, 10},
	})
	isFloater, _ := DetectFloater(p, DefaultFloaterConfig(), nil)
	assert.False(t, isFloater)
}

func TestCropToLanding(t *testing.T) {
	p := sondeProfile([]float64{0, 1, 2, 3, 4}, map[string][]float64{
		domain.VarTa: {300, 299, 298, 298, 298},
	})
	p.IsFloater = true
	p.LandingTime = 2

	out := CropToLanding(p)
	assert.Equal(t, 3, out.Len())
	assert.Equal(t, []float64{300, 299, 298}, out.Var(domain.VarTa))
	// Original untouched.
	assert.Equal(t, 5, p.Len())
}

func TestCropToLanding_NonFloaterPassesThrough(t *testing.T) {
	p := sondeProfile([]float64{0, 1}, map[string][]float64{domain.VarTa: {300, 299}})
	p.LandingTime = math.NaN()
	out := CropToLanding(p)
	assert.Equal(t, 2, out.Len())
}

func TestProfileFullness(t *testing.T) {
	// 8 time samples at 4 Hz; a 2 Hz variable expects 4 samples. Three valid
	// samples give fraction 0.75.
	vals := []float64{300, math.NaN(), 299, math.NaN(), 298, math.NaN(), math.NaN(), math.NaN()}
	p := sondeProfile([]float64{0, 0.25, 0.5, 0.75, 1, 1.25, 1.5, 1.75}, map[string][]float64{
		domain.VarTa: vals,
	})

	r := NewRegistry(domain.VarTa)
	cfg := FullnessConfig{TimestampFrequency: 4, Threshold: 0.75}
	require.NoError(t, ProfileFullness(r, p, domain.VarTa, 2, cfg))

	flag, ok := r.Flag("ta_profile_fullness")
	require.True(t, ok)
	assert.True(t, flag)

	fraction, ok := r.Detail("ta_profile_fullness_fraction")
	require.True(t, ok)
	assert.InDelta(t, 0.75, fraction, 1e-12)
}

func TestProfileFullness_BelowThreshold(t *testing.T) {
	p := sondeProfile([]float64{0, 0.25, 0.5, 0.75}, map[string][]float64{
		domain.VarRH: {0.8, math.NaN(), math.NaN(), math.NaN()},
	})

	r := NewRegistry(domain.VarRH)
	require.NoError(t, ProfileFullness(r, p, domain.VarRH, 2, DefaultFullnessConfig()))

	flag, _ := r.Flag("rh_profile_fullness")
	assert.False(t, flag)
}

func TestNearSurfaceCoverage(t *testing.T) {
	// Band (0, 30) exclusive: the samples at exactly 0 and 30 do not count.
	p := sondeProfile([]float64{0, 1, 2, 3, 4}, map[string][]float64{
		domain.VarGPSAlt: {40, 30, 20, 10, 0},
		domain.VarRH:     {0.8, 0.8, 0.8, math.NaN(), 0.8},
	})

	r := NewRegistry(domain.VarRH)
	cfg := NearSurfaceConfig{AltMin: 0, AltMax: 30, CountThreshold: 1, Source: domain.BackupAltitude}
	require.NoError(t, NearSurfaceCoverage(r, p, domain.VarRH, cfg, true, nil))

	count, _ := r.Detail("rh_near_surface_count")
	assert.Equal(t, 1.0, count)
	flag, _ := r.Flag("rh_near_surface")
	assert.True(t, flag)
}

func TestNearSurfaceCoverage_BelowCountThreshold(t *testing.T) {
	p := sondeProfile([]float64{0}, map[string][]float64{
		domain.VarGPSAlt: {500},
		domain.VarRH:     {0.8},
	})

	r := NewRegistry(domain.VarRH)
	cfg := DefaultNearSurfaceConfig()
	require.NoError(t, NearSurfaceCoverage(r, p, domain.VarRH, cfg, true, nil))

	flag, _ := r.Flag("rh_near_surface")
	assert.False(t, flag)
}

func TestAltitudeConsistency(t *testing.T) {
	t.Run("agreement within threshold", func(t *testing.T) {
		p := sondeProfile([]float64{0, 1, 2}, map[string][]float64{
			domain.VarAlt:    {1000, 900, 800},
			domain.VarGPSAlt: {1010, 905, 795},
		})
		r := NewRegistry()
		require.NoError(t, AltitudeConsistency(r, p, 150))

		flag, _ := r.Flag("alt_near_gpsalt")
		assert.True(t, flag)
		maxDiff, _ := r.Detail("alt_gpsalt_max_diff")
		assert.Equal(t, 10.0, maxDiff)
	})

	t.Run("one large excursion fails the sonde", func(t *testing.T) {
		p := sondeProfile([]float64{0, 1}, map[string][]float64{
			domain.VarAlt:    {1000, 900},
			domain.VarGPSAlt: {1000, 1200},
		})
		r := NewRegistry()
		require.NoError(t, AltitudeConsistency(r, p, 150))

		flag, _ := r.Flag("alt_near_gpsalt")
		assert.False(t, flag)
	})

	t.Run("no overlap fails the sonde", func(t *testing.T) {
		p := sondeProfile([]float64{0, 1}, map[string][]float64{
			domain.VarAlt:    {1000, math.NaN()},
			domain.VarGPSAlt: {math.NaN(), 900},
		})
		r := NewRegistry()
		require.NoError(t, AltitudeConsistency(r, p, 150))

		flag, _ := r.Flag("alt_near_gpsalt")
		assert.False(t, flag)
	})
}

func TestRemoveAboveAircraft(t *testing.T) {
	p := sondeProfile([]float64{0, 1, 2}, map[string][]float64{
		domain.VarAlt: {1200, 1000, 800},
		domain.VarTa:  {290, 291, 292},
	})
	p.AircraftAltitude = 1100

	out := RemoveAboveAircraft(p, DefaultAircraftCeiling)
	assert.True(t, math.IsNaN(out.Var(domain.VarTa)[0]))
	assert.Equal(t, 291.0, out.Var(domain.VarTa)[1])
	assert.Equal(t, 292.0, out.Var(domain.VarTa)[2])
}

func TestRemoveAboveAircraft_FallsBackToGPSAltitude(t *testing.T) {
	p := sondeProfile([]float64{0, 1}, map[string][]float64{
		domain.VarGPSAlt: {1200, 900},
		domain.VarTa:     {290, 291},
	})
	p.AircraftAltitude = 1000

	out := RemoveAboveAircraft(p, DefaultAircraftCeiling)
	assert.True(t, math.IsNaN(out.Var(domain.VarTa)[0]))
	assert.Equal(t, 291.0, out.Var(domain.VarTa)[1])
}

func TestRemoveAboveAircraft_UnknownAircraftUsesCeiling(t *testing.T) {
	p := sondeProfile([]float64{0, 1}, map[string][]float64{
		domain.VarAlt: {16000, 14000},
		domain.VarTa:  {200, 210},
	})

	out := RemoveAboveAircraft(p, 0)
	assert.True(t, math.IsNaN(out.Var(domain.VarTa)[0]))
	assert.Equal(t, 210.0, out.Var(domain.VarTa)[1])
}

func TestRemoveAboveAircraft_NothingToMaskReturnsInput(t *testing.T) {
	p := sondeProfile([]float64{0}, map[string][]float64{
		domain.VarAlt: {800},
		domain.VarTa:  {292},
	})
	p.AircraftAltitude = 1100

	out := RemoveAboveAircraft(p, DefaultAircraftCeiling)
	assert.Equal(t, 292.0, out.Var(domain.VarTa)[0])
}
