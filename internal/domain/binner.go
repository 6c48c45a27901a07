package domain

import (
	"fmt"
	"log/slog"
	"math"
	"sort"
)

// BinMethod selects how raw samples are put onto the altitude grid.
type BinMethod int

const (
	// BinAverage bins samples into grid cells and averages them, producing
	// per-bin counts and supporting gap-limited interpolation. This is the
	// default, higher-fidelity mode.
	BinAverage BinMethod = iota
	// LinearInterpolate resamples the sparse profile directly onto the bin
	// centers with 1-D interpolation. Simpler, no per-bin counts.
	LinearInterpolate
)

func (m BinMethod) String() string {
	if m == LinearInterpolate {
		return "linear_interpolate"
	}
	return "bin"
}

// ParseBinMethod maps a configuration string to a BinMethod.
func ParseBinMethod(s string) (BinMethod, error) {
	switch s {
	case "", "bin":
		return BinAverage, nil
	case "linear_interpolate":
		return LinearInterpolate, nil
	default:
		return 0, fmt.Errorf("unknown bin method %q", s)
	}
}

// BinConfig controls the regridding of one profile.
type BinConfig struct {
	Grid      AltitudeGrid
	Source    AltitudeSource
	Variables []string

	// MaxGapFill is the longest run of missing bins, measured in altitude
	// units along the bin centers, that gap-limited interpolation will fill.
	// Zero disables gap filling.
	MaxGapFill float64

	// LogPressure averages pressure in log space. Pressure decays
	// quasi-exponentially with altitude, so the log-space mean is the more
	// representative bin value.
	LogPressure bool

	Method BinMethod
}

// BinProfile re-indexes a cleaned profile onto the configured altitude grid,
// producing per-bin means, per-variable sample counts and the bin-mean of the
// original sample times. An empty or all-NaN variable degrades to an all-NaN
// column with a warning; it is never an error.
func BinProfile(p Profile, cfg BinConfig, logger *slog.Logger) (GriddedProfile, error) {
	if err := cfg.Grid.Validate(); err != nil {
		return GriddedProfile{}, err
	}
	if err := p.Validate(); err != nil {
		return GriddedProfile{}, err
	}
	alt := p.Altitude(cfg.Source)
	if alt == nil {
		return GriddedProfile{}, fmt.Errorf("profile %s: altitude source %q not present", p.SerialID, cfg.Source)
	}

	out := GriddedProfile{
		SerialID:   p.SerialID,
		FlightID:   p.FlightID,
		PlatformID: p.PlatformID,
		LaunchTime: p.LaunchTime,
		IsFloater:  p.IsFloater,
		Grid:       cfg.Grid,
		Values:     make(map[string][]float64, len(cfg.Variables)),
		QCFlags:    map[string]uint8{},
		QCStatus:   map[string]string{},
		QCDetails:  map[string]float64{},
	}

	if cfg.Method == LinearInterpolate {
		interpolateProfile(p, alt, cfg, &out, logger)
		return out, nil
	}

	out.Counts = make(map[string][]int, len(cfg.Variables))

	centers := cfg.Grid.Centers()
	nBins := cfg.Grid.NumBins()

	// Bin assignment is shared by every variable: one pass over the altitude
	// samples.
	binOf := make([]int, p.Len())
	for i, a := range alt {
		if idx, ok := cfg.Grid.BinIndex(a); ok {
			binOf[i] = idx
		} else {
			binOf[i] = -1
		}
	}

	for _, name := range cfg.Variables {
		vals := p.Var(name)
		if vals == nil {
			if logger != nil {
				logger.Warn("variable missing from profile, gridding as empty",
					"sonde", p.SerialID, "variable", name)
			}
			vals = make([]float64, p.Len())
			for i := range vals {
				vals[i] = math.NaN()
			}
		}

		logSpace := cfg.LogPressure && name == VarP
		mean, count := binMean(vals, binOf, nBins, logSpace)
		if cfg.MaxGapFill > 0 {
			fillGaps(mean, centers, cfg.MaxGapFill)
		}
		if logSpace {
			for i, v := range mean {
				mean[i] = math.Exp(v)
			}
		}

		total := 0
		for _, n := range count {
			total += n
		}
		if total == 0 && logger != nil {
			logger.Warn("no valid samples for variable, gridded column is all NaN",
				"sonde", p.SerialID, "variable", name)
		}

		out.Values[name] = mean
		out.Counts[name] = count
	}

	interpTime, _ := binMean(p.Time, binOf, nBins, false)
	if cfg.MaxGapFill > 0 {
		fillGaps(interpTime, centers, cfg.MaxGapFill)
	}
	out.InterpTime = interpTime

	return out, nil
}

// binMean computes the NaN-masked arithmetic mean and valid-sample count per
// bin. With logSpace the mean is taken over log-transformed values and left
// in log space for the caller to exponentiate after gap filling.
func binMean(vals []float64, binOf []int, nBins int, logSpace bool) ([]float64, []int) {
	sum := make([]float64, nBins)
	count := make([]int, nBins)
	for i, v := range vals {
		b := binOf[i]
		if b < 0 || math.IsNaN(v) {
			continue
		}
		if logSpace {
			v = math.Log(v)
		}
		sum[b] += v
		count[b]++
	}
	mean := make([]float64, nBins)
	for b := range mean {
		if count[b] == 0 {
			mean[b] = math.NaN()
			continue
		}
		mean[b] = sum[b] / float64(count[b])
	}
	return mean, count
}

// fillGaps linearly interpolates runs of NaN in place, using coords as the
// interpolation coordinate. A run is filled only when the distance between
// the valid values bounding it does not exceed maxGap; runs touching either
// end of the sequence are never extrapolated.
func fillGaps(vals, coords []float64, maxGap float64) {
	left := -1
	for i := 0; i <= len(vals); i++ {
		if i < len(vals) && math.IsNaN(vals[i]) {
			continue
		}
		if i == len(vals) {
			break
		}
		if left >= 0 && i-left > 1 && coords[i]-coords[left] <= maxGap {
			for j := left + 1; j < i; j++ {
				frac := (coords[j] - coords[left]) / (coords[i] - coords[left])
				vals[j] = vals[left] + frac*(vals[i]-vals[left])
			}
		}
		left = i
	}
}

// interpolateProfile implements the linear_interpolate mode: each variable's
// valid (altitude, value) samples are resampled onto the bin centers. No
// counts are produced in this mode.
func interpolateProfile(p Profile, alt []float64, cfg BinConfig, out *GriddedProfile, logger *slog.Logger) {
	centers := cfg.Grid.Centers()
	for _, name := range cfg.Variables {
		vals := p.Var(name)
		logSpace := cfg.LogPressure && name == VarP

		xs, ys := validPairs(alt, vals, logSpace)
		col := interp1D(xs, ys, centers)
		if logSpace {
			for i, v := range col {
				col[i] = math.Exp(v)
			}
		}
		if len(xs) == 0 && logger != nil {
			logger.Warn("no valid samples for variable, gridded column is all NaN",
				"sonde", p.SerialID, "variable", name)
		}
		out.Values[name] = col
	}
	xs, ys := validPairs(alt, p.Time, false)
	out.InterpTime = interp1D(xs, ys, centers)
}

// validPairs extracts samples where both altitude and value are finite,
// sorted by altitude for interpolation.
func validPairs(alt, vals []float64, logSpace bool) ([]float64, []float64) {
	type pair struct{ x, y float64 }
	pairs := make([]pair, 0, len(alt))
	for i, a := range alt {
		if i >= len(vals) || math.IsNaN(a) || math.IsNaN(vals[i]) {
			continue
		}
		y := vals[i]
		if logSpace {
			y = math.Log(y)
		}
		pairs = append(pairs, pair{a, y})
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].x < pairs[j].x })
	xs := make([]float64, len(pairs))
	ys := make([]float64, len(pairs))
	for i, pr := range pairs {
		xs[i] = pr.x
		ys[i] = pr.y
	}
	return xs, ys
}

// interp1D evaluates piecewise-linear interpolation of (xs, ys) at targets.
// Targets outside the sample range are NaN.
func interp1D(xs, ys, targets []float64) []float64 {
	out := make([]float64, len(targets))
	for i, t := range targets {
		out[i] = math.NaN()
		if len(xs) == 0 || t < xs[0] || t > xs[len(xs)-1] {
			continue
		}
		j := sort.SearchFloat64s(xs, t)
		if j < len(xs) && xs[j] == t {
			out[i] = ys[j]
			continue
		}
		lo, hi := j-1, j
		frac := (t - xs[lo]) / (xs[hi] - xs[lo])
		out[i] = ys[lo] + frac*(ys[hi]-ys[lo])
	}
	return out
}
