// Package netcdfio reads Level-1 sounding files (one NetCDF file per sonde)
// into domain profiles, for the offline CLI path that bypasses Kafka.
package netcdfio

import (
	"fmt"
	"math"
	"path/filepath"
	"strings"
	"time"

	"github.com/batchatco/go-native-netcdf/netcdf"
	"github.com/batchatco/go-native-netcdf/netcdf/api"

	"github.com/tropospect/sonde-data-etl/internal/domain"
)

// candidateVars lists every variable name, vendor or canonical, a Level-1
// file may carry. Absent variables are simply skipped; files from different
// firmware revisions disagree on which names they use.
var candidateVars = []string{
	"u_wind", "v_wind", "tdry", "pres",
	"u", "v", "ta", "p",
	"rh", "lat", "lon", "alt", "gpsalt",
}

// FileMeta supplies the identifying fields a Level-1 file does not carry in
// a form this reader consumes; callers typically derive them from the flight
// manifest.
type FileMeta struct {
	SerialID         string
	FlightID         string
	PlatformID       string
	LaunchTime       time.Time
	AircraftAltitude float64
}

// ReadProfile loads one sounding file. The file must carry a "time"
// coordinate in seconds since launch; every recognized data variable sharing
// its length is picked up under its canonical name.
func ReadProfile(path string, meta FileMeta) (domain.Profile, error) {
	nc, err := netcdf.Open(path)
	if err != nil {
		return domain.Profile{}, fmt.Errorf("open sounding file %s: %w", path, err)
	}
	defer nc.Close()

	times, err := varValues(nc, "time")
	if err != nil {
		return domain.Profile{}, fmt.Errorf("sounding file %s: %w", path, err)
	}

	vars := map[string][]float64{}
	for _, name := range candidateVars {
		vals, err := varValues(nc, name)
		if err != nil {
			continue
		}
		if len(vals) != len(times) {
			return domain.Profile{}, fmt.Errorf("sounding file %s: variable %q has %d samples, time has %d",
				path, name, len(vals), len(times))
		}
		vars[domain.CanonicalName(name)] = vals
	}

	serial := meta.SerialID
	if serial == "" {
		serial = serialFromPath(path)
	}

	p := domain.Profile{
		SerialID:         serial,
		FlightID:         meta.FlightID,
		PlatformID:       meta.PlatformID,
		LaunchTime:       meta.LaunchTime,
		AircraftAltitude: meta.AircraftAltitude,
		LandingTime:      math.NaN(),
		Time:             times,
		Vars:             vars,
	}
	if err := p.Validate(); err != nil {
		return domain.Profile{}, fmt.Errorf("sounding file %s: %w", path, err)
	}
	return p, nil
}

// serialFromPath falls back to the file's base name as the sonde serial.
func serialFromPath(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func varValues(nc api.Group, name string) ([]float64, error) {
	vg, err := nc.GetVarGetter(name)
	if err != nil {
		return nil, err
	}
	v, err := vg.Values()
	if err != nil {
		return nil, err
	}
	vals, err := toFloat64(v)
	if err != nil {
		return nil, fmt.Errorf("variable %q: %w", name, err)
	}
	return vals, nil
}

// toFloat64 widens whatever numeric slice the file stored to float64.
func toFloat64(v any) ([]float64, error) {
	switch vals := v.(type) {
	case []float64:
		return vals, nil
	case []float32:
		out := make([]float64, len(vals))
		for i, x := range vals {
			out[i] = float64(x)
		}
		return out, nil
	case []int64:
		out := make([]float64, len(vals))
		for i, x := range vals {
			out[i] = float64(x)
		}
		return out, nil
	case []int32:
		out := make([]float64, len(vals))
		for i, x := range vals {
			out[i] = float64(x)
		}
		return out, nil
	case []int16:
		out := make([]float64, len(vals))
		for i, x := range vals {
			out[i] = float64(x)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported storage type %T", v)
	}
}
