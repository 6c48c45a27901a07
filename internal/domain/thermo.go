package domain

import (
	"fmt"
	"math"
)

// Thermodynamic constants (SI).
const (
	dryAirGasConstant = 287.04  // J/(kg K)
	dryAirCp          = 1004.0  // J/(kg K)
	gravity           = 9.81    // m/s^2
	refPressure       = 1e5     // Pa, reference for potential temperature
	epsilonRatio      = 0.622   // Rd/Rv
)

// siConverters maps a variable name to its raw-unit → SI conversion. Raw
// instrument files report RH in percent, pressure in hPa and temperature in
// degrees Celsius. The table is fixed at compile time; asking for a variable
// without a converter is a configuration mistake.
var siConverters = map[string]func(float64) float64{
	VarRH: func(v float64) float64 { return v / 100 },
	VarP:  func(v float64) float64 { return v * 100 },
	VarTa: func(v float64) float64 { return v + 273.15 },
}

// ConvertToSI returns a copy of the profile with the named variables
// converted to SI units. An unknown variable name is an error.
func ConvertToSI(p Profile, variables []string) (Profile, error) {
	out := p
	for _, name := range variables {
		conv, ok := siConverters[name]
		if !ok {
			return Profile{}, fmt.Errorf("no SI conversion registered for variable %q", name)
		}
		vals := p.Var(name)
		if vals == nil {
			return Profile{}, fmt.Errorf("profile %s: variable %q not present for SI conversion", p.SerialID, name)
		}
		converted := make([]float64, len(vals))
		for i, v := range vals {
			converted[i] = conv(v)
		}
		out = out.WithVar(name, converted)
	}
	return out, nil
}

// saturationVaporPressure returns the saturation vapor pressure over liquid
// water in Pa for a temperature in K, after Bolton (1980).
func saturationVaporPressure(ta float64) float64 {
	tc := ta - 273.15
	return 611.2 * math.Exp(17.67*tc/(tc+243.5))
}

// SpecificHumidityFromRH estimates specific humidity (kg/kg) from relative
// humidity (fraction), temperature (K) and pressure (Pa).
func SpecificHumidityFromRH(rh, ta, p float64) float64 {
	es := saturationVaporPressure(ta)
	ws := epsilonRatio * es / (p - es)
	w := rh * ws
	return mixingRatioToSpecificHumidity(w)
}

func mixingRatioToSpecificHumidity(w float64) float64 { return w / (1 + w) }

// PotentialTemperature returns theta (K) for temperature ta (K) and pressure
// p (Pa).
func PotentialTemperature(ta, p float64) float64 {
	return ta * math.Pow(refPressure/p, dryAirGasConstant/dryAirCp)
}

// AirDensity returns moist air density (kg/m^3) from pressure (Pa),
// temperature (K) and specific humidity (kg/kg) via the virtual temperature.
func AirDensity(p, ta, q float64) float64 {
	tv := ta * (1 + 0.608*q)
	return p / (dryAirGasConstant * tv)
}

// WindSpeedDirection returns speed (m/s) and meteorological direction
// (degrees, wind from) for wind components u, v.
func WindSpeedDirection(u, v float64) (speed, dir float64) {
	speed = math.Hypot(u, v)
	dir = math.Mod(180+math.Atan2(u, v)*180/math.Pi, 360)
	if dir < 0 {
		dir += 360
	}
	return speed, dir
}

// IntegrateWaterVapor computes column water vapor (kg/m^2) by trapezoidal
// integration of vapor density over altitude. Samples with any NaN input are
// skipped; fewer than two valid samples yield NaN.
func IntegrateWaterVapor(q, p, ta, z []float64) float64 {
	type sample struct{ z, rhoV float64 }
	var samples []sample
	for i := range z {
		if math.IsNaN(q[i]) || math.IsNaN(p[i]) || math.IsNaN(ta[i]) || math.IsNaN(z[i]) {
			continue
		}
		samples = append(samples, sample{z[i], q[i] * AirDensity(p[i], ta[i], q[i])})
	}
	if len(samples) < 2 {
		return math.NaN()
	}
	var iwv float64
	for i := 1; i < len(samples); i++ {
		dz := samples[i].z - samples[i-1].z
		iwv += 0.5 * (samples[i].rhoV + samples[i-1].rhoV) * dz
	}
	return math.Abs(iwv)
}

// DeriveThermo adds specific humidity, potential temperature and air
// density columns to a gridded profile from its rh, ta and p columns. Bins
// with any NaN input stay NaN.
func DeriveThermo(g GriddedProfile) GriddedProfile {
	rh, ta, p := g.Values[VarRH], g.Values[VarTa], g.Values[VarP]
	if rh == nil || ta == nil || p == nil {
		return g
	}
	q := make([]float64, len(rh))
	theta := make([]float64, len(rh))
	rho := make([]float64, len(rh))
	for i := range rh {
		if math.IsNaN(rh[i]) || math.IsNaN(ta[i]) || math.IsNaN(p[i]) {
			q[i] = math.NaN()
			theta[i] = math.NaN()
			rho[i] = math.NaN()
			continue
		}
		q[i] = SpecificHumidityFromRH(rh[i], ta[i], p[i])
		theta[i] = PotentialTemperature(ta[i], p[i])
		rho[i] = AirDensity(p[i], ta[i], q[i])
	}
	g.Values[VarQ] = q
	g.Values["theta"] = theta
	g.Values["rho"] = rho
	return g
}
