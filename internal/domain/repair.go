package domain

import (
	"fmt"
	"log/slog"
	"math"
)

// ScanDirection selects where the monotonicity repair anchors its running
// altitude pointer. The two directions give different repairs around data
// gaps; which one a pipeline uses is policy, not correctness.
type ScanDirection int

const (
	// TopDown scans forward from launch, keeping samples consistent with a
	// non-increasing descent.
	TopDown ScanDirection = iota
	// BottomUp scans backward from landing, keeping samples consistent with
	// a non-decreasing climb back in time.
	BottomUp
)

func (d ScanDirection) String() string {
	if d == BottomUp {
		return "bottom_up"
	}
	return "top_down"
}

// ParseScanDirection maps a configuration string to a ScanDirection.
func ParseScanDirection(s string) (ScanDirection, error) {
	switch s {
	case "", "top_down":
		return TopDown, nil
	case "bottom_up":
		return BottomUp, nil
	default:
		return 0, fmt.Errorf("unknown scan direction %q", s)
	}
}

// RepairMonotonicAltitude returns a copy of alt where every sample that
// breaks the monotonically non-increasing descent trend is NaN. Accepted
// samples advance the running altitude pointer; NaN inputs are skipped
// without advancing it. An already-monotonic sequence comes back unchanged.
//
// This step never fails: it only emits more NaNs. An unsorted input is an
// upstream data problem and is logged as a non-fatal advisory.
func RepairMonotonicAltitude(alt []float64, dir ScanDirection, logger *slog.Logger) []float64 {
	out := append([]float64(nil), alt...)
	if len(out) == 0 {
		return out
	}

	if logger != nil && !isSortedDescending(alt) {
		logger.Warn("altitude sequence not sorted before monotonicity repair",
			"direction", dir.String())
	}

	if dir == BottomUp {
		curr := math.NaN()
		for i := len(out) - 1; i >= 0; i-- {
			v := out[i]
			if math.IsNaN(v) {
				continue
			}
			if !math.IsNaN(curr) && v < curr {
				out[i] = math.NaN()
				continue
			}
			curr = v
		}
		return out
	}

	curr := math.NaN()
	for i, v := range out {
		if math.IsNaN(v) {
			continue
		}
		if !math.IsNaN(curr) && v > curr {
			out[i] = math.NaN()
			continue
		}
		curr = v
	}
	return out
}

// isSortedDescending reports whether consecutive non-NaN samples never
// increase.
func isSortedDescending(alt []float64) bool {
	prev := math.NaN()
	for _, v := range alt {
		if math.IsNaN(v) {
			continue
		}
		if !math.IsNaN(prev) && v > prev {
			return false
		}
		prev = v
	}
	return true
}
