// Command genmock synthesizes raw sounding fixtures for the ETL test suites.
// It simulates a plausible descent per sonde and runs the actual transform
// chain so the gridded fixture matches real pipeline behavior.
//
// Usage:
//
//	go run ./cmd/genmock \
//	  -sondes 12 \
//	  -raw-out data/mock/soundings_raw.json \
//	  -gridded-out data/mock/soundings_gridded.json
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"math"
	"math/rand"
	"os"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/tropospect/sonde-data-etl/internal/domain"
	"github.com/tropospect/sonde-data-etl/internal/pipeline"
)

var launchBase = time.Date(2026, time.August, 11, 12, 0, 0, 0, time.UTC)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	sondes := flag.Int("sondes", 12, "number of sondes to synthesize")
	seed := flag.Int64("seed", 1, "random seed, fixed for reproducible fixtures")
	rawOut := flag.String("raw-out", "", "output path for the raw JSON fixture")
	griddedOut := flag.String("gridded-out", "", "output path for the gridded JSON fixture")
	flag.Parse()

	if *rawOut == "" || *griddedOut == "" {
		flag.Usage()
		return fmt.Errorf("missing required flags: -raw-out, -gridded-out")
	}

	// Fixed clock for reproducible processed_at stamps.
	domain.SetClock(clockwork.NewFakeClockAt(launchBase.Add(2 * time.Hour)))
	defer domain.SetClock(nil)

	rng := rand.New(rand.NewSource(*seed))
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	transformer := pipeline.NewTransformer(pipeline.DefaultTransformConfig(), logger, nil)

	var raws []domain.RawSoundingRecord
	var gridded []domain.GriddedProductRecord
	for i := 0; i < *sondes; i++ {
		rec := synthesizeSounding(rng, i)
		raws = append(raws, rec)

		value, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		profile, err := domain.ParseRawSounding(domain.RawMessage{Value: value})
		if err != nil {
			return fmt.Errorf("sonde %s: %w", rec.SerialID, err)
		}
		g, err := transformer.ProcessProfile(profile)
		if err != nil {
			return fmt.Errorf("sonde %s: %w", rec.SerialID, err)
		}
		gridded = append(gridded, domain.NewGriddedProductRecord(g))
	}

	if err := writeJSON(*rawOut, raws); err != nil {
		return err
	}
	if err := writeJSON(*griddedOut, gridded); err != nil {
		return err
	}
	log.Printf("wrote %d raw and %d gridded soundings", len(raws), len(gridded))
	return nil
}

// synthesizeSounding simulates one descent: ~12 m/s fall from 14 km at 4 Hz,
// with sensor dropouts and realistic lapse rates in raw instrument units.
func synthesizeSounding(rng *rand.Rand, n int) domain.RawSoundingRecord {
	const (
		hz        = 4.0
		fallSpeed = 12.0
		top       = 14000.0
	)
	samplesPerDescent := top / fallSpeed * hz
	samples := int(samplesPerDescent)

	times := make(domain.Floats, samples)
	alt := make(domain.Floats, samples)
	gpsalt := make(domain.Floats, samples)
	pres := make(domain.Floats, samples)
	tdry := make(domain.Floats, samples)
	rh := make(domain.Floats, samples)
	u := make(domain.Floats, samples)
	v := make(domain.Floats, samples)
	lat := make(domain.Floats, samples)
	lon := make(domain.Floats, samples)

	lat0 := 13.0 + rng.Float64()
	lon0 := -57.0 - rng.Float64()
	for i := 0; i < samples; i++ {
		t := float64(i) / hz
		z := top - fallSpeed*t + rng.NormFloat64()*2

		times[i] = t
		alt[i] = z
		gpsalt[i] = z + rng.NormFloat64()*3
		// Standard-atmosphere-ish pressure in hPa, temperature in Celsius.
		pres[i] = 1013.25 * math.Exp(-math.Max(z, 0)/8000)
		tdry[i] = 28 - 6.5*z/1000 + rng.NormFloat64()*0.2
		rh[i] = math.Min(100, math.Max(2, 85-z/300+rng.NormFloat64()*4))
		u[i] = -8 + z/2000 + rng.NormFloat64()*0.5
		v[i] = -2 + rng.NormFloat64()*0.5
		lat[i] = lat0 + 1e-5*t
		lon[i] = lon0 + 2e-5*t

		// PTU sensors report at 2 Hz: every other sample is missing.
		if i%2 == 1 {
			pres[i] = math.NaN()
			tdry[i] = math.NaN()
			rh[i] = math.NaN()
		}
		// Occasional GPS dropout.
		if rng.Float64() < 0.01 {
			gpsalt[i] = math.NaN()
			u[i] = math.NaN()
			v[i] = math.NaN()
		}
	}

	return domain.RawSoundingRecord{
		SerialID:         fmt.Sprintf("SN-%03d", n+1),
		FlightID:         "FL-20260811A",
		PlatformID:       "HALO",
		LaunchTime:       launchBase.Add(time.Duration(n) * 5 * time.Minute),
		AircraftAltitude: 14200,
		Time:             times,
		Variables: map[string]domain.Floats{
			"u_wind": u,
			"v_wind": v,
			"tdry":   tdry,
			"rh":     rh,
			"pres":   pres,
			"lat":    lat,
			"lon":    lon,
			"alt":    alt,
			"gpsalt": gpsalt,
		},
	}
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
