package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProfile_Validate(t *testing.T) {
	good := testProfile([]float64{0, 1}, map[string][]float64{VarTa: {295, 294}})
	assert.NoError(t, good.Validate())

	bad := testProfile([]float64{0, 1}, map[string][]float64{VarTa: {295}})
	assert.ErrorContains(t, bad.Validate(), "ta")
}

func TestProfile_AltitudeSource(t *testing.T) {
	p := testProfile([]float64{0}, map[string][]float64{
		VarAlt:    {100},
		VarGPSAlt: {103},
	})
	assert.Equal(t, []float64{100}, p.Altitude(PrimaryAltitude))
	assert.Equal(t, []float64{103}, p.Altitude(BackupAltitude))
	assert.Equal(t, VarGPSAlt, BackupAltitude.VarName())
}

func TestProfile_WithVarDoesNotAliasInput(t *testing.T) {
	p := testProfile([]float64{0}, map[string][]float64{VarTa: {295}})
	out := p.WithVar(VarTa, []float64{290})

	assert.Equal(t, 290.0, out.Var(VarTa)[0])
	assert.Equal(t, 295.0, p.Var(VarTa)[0])
}

func TestProfile_MaskSamples(t *testing.T) {
	p := testProfile([]float64{0, 1, 2}, map[string][]float64{
		VarTa: {295, 294, 293},
		VarRH: {0.8, 0.7, 0.6},
	})

	out := p.MaskSamples([]bool{false, true, false})

	assert.Equal(t, 3, out.Len())
	assert.True(t, math.IsNaN(out.Var(VarTa)[1]))
	assert.True(t, math.IsNaN(out.Var(VarRH)[1]))
	assert.Equal(t, 295.0, out.Var(VarTa)[0])
	// The original keeps its samples.
	assert.Equal(t, 294.0, p.Var(VarTa)[1])
}

func TestAltitudeGrid_EdgesAndCenters(t *testing.T) {
	grid := AltitudeGrid{Start: -5, Stop: 25, Step: 10}
	require.Equal(t, 3, grid.NumBins())
	assert.Equal(t, []float64{-5, 5, 15, 25}, grid.Edges())
	assert.Equal(t, []float64{0, 10, 20}, grid.Centers())
}

func TestAltitudeGrid_Validate(t *testing.T) {
	assert.NoError(t, AltitudeGrid{Start: 0, Stop: 100, Step: 10}.Validate())
	assert.Error(t, AltitudeGrid{Start: 0, Stop: 100, Step: 0}.Validate())
	assert.Error(t, AltitudeGrid{Start: 0, Stop: 100, Step: -1}.Validate())
	assert.Error(t, AltitudeGrid{Start: 100, Stop: 100, Step: 10}.Validate())
	assert.Error(t, AltitudeGrid{Start: 200, Stop: 100, Step: 10}.Validate())
}
