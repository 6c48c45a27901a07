package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvertToSI(t *testing.T) {
	p := testProfile([]float64{0, 1}, map[string][]float64{
		VarRH: {80, 60},
		VarP:  {1013.25, 900},
		VarTa: {28, 21.5},
		VarU:  {-8, -7},
	})

	out, err := ConvertToSI(p, []string{VarRH, VarP, VarTa})
	require.NoError(t, err)

	assert.InDelta(t, 0.8, out.Var(VarRH)[0], 1e-12)
	assert.InDelta(t, 101325, out.Var(VarP)[0], 1e-9)
	assert.InDelta(t, 301.15, out.Var(VarTa)[0], 1e-12)
	// Wind is already SI and untouched.
	assert.Equal(t, -8.0, out.Var(VarU)[0])
	// Input profile not mutated.
	assert.Equal(t, 80.0, p.Var(VarRH)[0])
}

func TestConvertToSI_UnknownVariable(t *testing.T) {
	p := testProfile([]float64{0}, map[string][]float64{VarU: {1}})
	_, err := ConvertToSI(p, []string{VarU})
	assert.Error(t, err)
}

func TestConvertToSI_MissingVariable(t *testing.T) {
	p := testProfile([]float64{0}, map[string][]float64{})
	_, err := ConvertToSI(p, []string{VarTa})
	assert.Error(t, err)
}

func TestSpecificHumidityFromRH(t *testing.T) {
	// Saturated surface air at 300 K, 1000 hPa: es ~ 3535 Pa, q ~ 22 g/kg.
	q := SpecificHumidityFromRH(1.0, 300, 1e5)
	assert.InDelta(t, 0.0223, q, 0.001)

	// Drier air scales roughly linearly with RH.
	half := SpecificHumidityFromRH(0.5, 300, 1e5)
	assert.Less(t, half, q)
	assert.InDelta(t, q/2, half, 0.001)

	// Cold air holds almost nothing.
	cold := SpecificHumidityFromRH(1.0, 240, 1e5)
	assert.Less(t, cold, 0.001)
}

func TestPotentialTemperature(t *testing.T) {
	// At the reference pressure theta equals ta.
	assert.InDelta(t, 300.0, PotentialTemperature(300, refPressure), 1e-9)
	// Aloft theta exceeds ta.
	assert.Greater(t, PotentialTemperature(280, 7e4), 280.0)
}

func TestAirDensity(t *testing.T) {
	// Dry air at 288.15 K and 101325 Pa is ~1.225 kg/m^3.
	assert.InDelta(t, 1.225, AirDensity(101325, 288.15, 0), 0.01)
	// Moist air is lighter than dry air at the same p and ta.
	assert.Less(t, AirDensity(101325, 288.15, 0.02), AirDensity(101325, 288.15, 0))
}

func TestWindSpeedDirection(t *testing.T) {
	cases := []struct {
		u, v       float64
		speed, dir float64
		name       string
	}{
		{u: 0, v: -10, speed: 10, dir: 0, name: "northerly"},
		{u: -10, v: 0, speed: 10, dir: 90, name: "easterly"},
		{u: 0, v: 10, speed: 10, dir: 180, name: "southerly"},
		{u: 10, v: 0, speed: 10, dir: 270, name: "westerly"},
		{u: -10, v: -10, speed: math.Sqrt(200), dir: 45, name: "northeasterly"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			speed, dir := WindSpeedDirection(tc.u, tc.v)
			assert.InDelta(t, tc.speed, speed, 1e-9)
			assert.InDelta(t, tc.dir, dir, 1e-9)
		})
	}
}

func TestIntegrateWaterVapor(t *testing.T) {
	// Uniform layer: iwv = rho_v * depth.
	q := []float64{0.01, 0.01, 0.01}
	p := []float64{1e5, 1e5, 1e5}
	ta := []float64{300, 300, 300}
	z := []float64{0, 500, 1000}

	rhoV := 0.01 * AirDensity(1e5, 300, 0.01)
	iwv := IntegrateWaterVapor(q, p, ta, z)
	assert.InDelta(t, rhoV*1000, iwv, 1e-9)

	// NaN samples are skipped, shrinking the column.
	q2 := []float64{0.01, math.NaN(), 0.01}
	iwv2 := IntegrateWaterVapor(q2, p, ta, z)
	assert.InDelta(t, rhoV*1000, iwv2, 1e-9)

	// Fewer than two valid samples: NaN.
	assert.True(t, math.IsNaN(IntegrateWaterVapor(
		[]float64{0.01}, []float64{1e5}, []float64{300}, []float64{0})))
}

func TestDeriveThermo(t *testing.T) {
	g := GriddedProfile{
		Grid: AltitudeGrid{Start: 0, Stop: 20, Step: 10},
		Values: map[string][]float64{
			VarRH: {0.8, math.NaN()},
			VarTa: {300, 295},
			VarP:  {1e5, 9e4},
		},
	}

	out := DeriveThermo(g)

	require.Len(t, out.Values[VarQ], 2)
	assert.False(t, math.IsNaN(out.Values[VarQ][0]))
	assert.False(t, math.IsNaN(out.Values["theta"][0]))
	assert.False(t, math.IsNaN(out.Values["rho"][0]))
	assert.InDelta(t, 300.0, out.Values["theta"][0], 1e-9)

	// NaN in any input propagates to every derived column of that bin.
	assert.True(t, math.IsNaN(out.Values[VarQ][1]))
	assert.True(t, math.IsNaN(out.Values["theta"][1]))
	assert.True(t, math.IsNaN(out.Values["rho"][1]))
}

func TestDeriveThermo_MissingInputsNoOp(t *testing.T) {
	g := GriddedProfile{Values: map[string][]float64{VarTa: {300}}}
	out := DeriveThermo(g)
	assert.NotContains(t, out.Values, VarQ)
}
