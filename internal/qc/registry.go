// Package qc holds the per-sonde quality-control registry: named boolean
// checks, their numeric details, and the packing of check results into
// BAD/GOOD/UGLY status bytes.
//
// The registry is an explicit, typed replacement for ad-hoc dynamic
// attributes: every flag is written once under a declared name
// ("<variable>_<check>"), and filters iterate registry keys instead of
// reflecting over object attributes.
package qc

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Configuration errors. Data-quality conditions never produce errors; these
// surface programmer or config mistakes only.
var (
	ErrUnknownFlag         = errors.New("unknown qc flag")
	ErrConflictingSelector = errors.New("all_except_ selector cannot be combined with other flags")
	ErrDuplicateFlag       = errors.New("qc flag already registered")
)

// allExceptPrefix selects every flag not starting with the given prefix.
const allExceptPrefix = "all_except_"

// Registry collects QC results for one sonde. Flags are named
// "<variable>_<check>" for per-variable checks or a bare check name for
// sonde-level checks; details hold the numeric values behind the flags.
type Registry struct {
	vars    []string
	flags   map[string]bool
	details map[string]float64
}

// NewRegistry creates a registry monitoring the given variables.
func NewRegistry(variables ...string) *Registry {
	return &Registry{
		vars:    append([]string(nil), variables...),
		flags:   map[string]bool{},
		details: map[string]float64{},
	}
}

// Variables returns the monitored variable names.
func (r *Registry) Variables() []string { return r.vars }

// SetFlag records a check outcome. A check name appears once per sonde;
// re-registering is a programming error.
func (r *Registry) SetFlag(name string, value bool) error {
	if _, ok := r.flags[name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateFlag, name)
	}
	r.flags[name] = value
	return nil
}

// SetDetail records a numeric detail behind a check.
func (r *Registry) SetDetail(name string, value float64) {
	r.details[name] = value
}

// Flag returns a flag value and whether it exists.
func (r *Registry) Flag(name string) (bool, bool) {
	v, ok := r.flags[name]
	return v, ok
}

// Detail returns a numeric detail and whether it exists.
func (r *Registry) Detail(name string) (float64, bool) {
	v, ok := r.details[name]
	return v, ok
}

// FlagNames returns all registered flag names in sorted order.
func (r *Registry) FlagNames() []string {
	names := make([]string, 0, len(r.flags))
	for name := range r.flags {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DetailNames returns all registered detail names in sorted order.
func (r *Registry) DetailNames() []string {
	names := make([]string, 0, len(r.details))
	for name := range r.details {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// VariableFlags returns the sorted flag names belonging to one monitored
// variable. The stable order is what the status byte packing relies on.
func (r *Registry) VariableFlags(variable string) []string {
	prefix := variable + "_"
	var names []string
	for name := range r.flags {
		if strings.HasPrefix(name, prefix) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// CheckQC evaluates a flag filter against the registry.
//
// usedFlags may be empty (vacuous pass), a single flag name, a
// comma-separated list, "all", or "all_except_<prefix>". The all_except
// selector must stand alone; combining it with anything else is an error, as
// is referencing a flag that was never registered.
//
// With checkUgly set, every selected flag must be true; otherwise one true
// flag suffices.
func (r *Registry) CheckQC(usedFlags string, checkUgly bool) (bool, error) {
	if usedFlags == "" {
		return true, nil
	}

	var selected []string
	switch {
	case usedFlags == "all":
		selected = r.FlagNames()
	case strings.HasPrefix(usedFlags, allExceptPrefix):
		if strings.Contains(usedFlags, ",") {
			return false, ErrConflictingSelector
		}
		prefix := strings.TrimPrefix(usedFlags, allExceptPrefix)
		for _, name := range r.FlagNames() {
			if !strings.HasPrefix(name, prefix) {
				selected = append(selected, name)
			}
		}
	default:
		for _, name := range strings.Split(usedFlags, ",") {
			name = strings.TrimSpace(name)
			if strings.HasPrefix(name, allExceptPrefix) {
				return false, ErrConflictingSelector
			}
			if _, ok := r.flags[name]; !ok {
				return false, fmt.Errorf("%w: %s", ErrUnknownFlag, name)
			}
			selected = append(selected, name)
		}
	}

	if checkUgly {
		for _, name := range selected {
			if !r.flags[name] {
				return false, nil
			}
		}
		return true, nil
	}
	for _, name := range selected {
		if r.flags[name] {
			return true, nil
		}
	}
	return len(selected) == 0, nil
}
