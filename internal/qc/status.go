package qc

// Status is the tri-state classification of a variable's packed check byte.
type Status int

const (
	Bad  Status = iota // every check failed
	Good               // every check passed
	Ugly               // mixed result
)

func (s Status) String() string {
	switch s {
	case Good:
		return "GOOD"
	case Ugly:
		return "UGLY"
	default:
		return "BAD"
	}
}

// Sonde-level aggregate status values.
const (
	SondeBad   uint8 = 0 // nothing usable
	SondeGood  uint8 = 1 // every flag across all variables passed
	SondeMixed uint8 = 2 // partially usable
)

// PackFlags packs boolean check results into one byte, bit i set when
// flags[i] is true. Callers pass flags in a stable (sorted-name) order so
// the byte is reproducible.
func PackFlags(flags []bool) uint8 {
	var b uint8
	for i, f := range flags {
		if f {
			b |= 1 << uint(i)
		}
	}
	return b
}

// Classify maps a packed byte of k checks onto the tri-state status:
// 0 is BAD, 2^k-1 is GOOD, anything else is UGLY. Zero checks classify as
// GOOD (vacuously all passed).
func Classify(b uint8, k int) Status {
	if k == 0 {
		return Good
	}
	full := uint8(1<<uint(k)) - 1
	switch b {
	case 0:
		return Bad
	case full:
		return Good
	default:
		return Ugly
	}
}

// VariableByte packs the variable's check flags, in sorted-name order, into
// one byte. The second return is the number of checks packed.
func (r *Registry) VariableByte(variable string) (uint8, int) {
	names := r.VariableFlags(variable)
	flags := make([]bool, len(names))
	for i, name := range names {
		flags[i] = r.flags[name]
	}
	return PackFlags(flags), len(names)
}

// VariableStatus classifies one monitored variable.
func (r *Registry) VariableStatus(variable string) Status {
	b, k := r.VariableByte(variable)
	return Classify(b, k)
}

// altConsistencyFlag is the sonde-level altitude-source agreement check; a
// sonde whose two altitude estimates disagree is unusable even when some
// variable checks pass.
const altConsistencyFlag = "alt_near_gpsalt"

// SondeStatus aggregates every flag across all variables into one value:
// SondeGood when all flags pass, SondeMixed when at least one passes and the
// altitude-consistency check (if present) is not violated, SondeBad
// otherwise.
func (r *Registry) SondeStatus() uint8 {
	names := r.FlagNames()
	if len(names) == 0 {
		return SondeBad
	}
	all, any := true, false
	for _, name := range names {
		if r.flags[name] {
			any = true
		} else {
			all = false
		}
	}
	if all {
		return SondeGood
	}
	if altOK, present := r.flags[altConsistencyFlag]; present && !altOK {
		return SondeBad
	}
	if any {
		return SondeMixed
	}
	return SondeBad
}
