// Command validate performs integrity checks across the mock sounding
// fixtures: the raw JSON fixture and the gridded JSON fixture produced by
// genmock. It verifies record counts, grid geometry, the provenance laws
// relating per-bin counts to method flags, and the QC verdict encoding.
//
// Usage:
//
//	go run ./cmd/validate \
//	  -raw-json data/mock/soundings_raw.json \
//	  -gridded-json data/mock/soundings_gridded.json
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"math"
	"os"

	"github.com/tropospect/sonde-data-etl/internal/domain"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func main() {
	rawPath := flag.String("raw-json", "", "path to the raw sounding fixture")
	griddedPath := flag.String("gridded-json", "", "path to the gridded fixture")
	flag.Parse()

	if *rawPath == "" || *griddedPath == "" {
		flag.Usage()
		os.Exit(2)
	}

	var raws []domain.RawSoundingRecord
	var gridded []domain.GriddedProductRecord
	if err := readJSON(*rawPath, &raws); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if err := readJSON(*griddedPath, &gridded); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	phases := []*phase{
		checkCoverage(raws, gridded),
		checkGeometry(gridded),
		checkProvenance(gridded),
		checkQC(gridded),
	}

	failed := 0
	for _, p := range phases {
		if len(p.errors) == 0 {
			fmt.Printf("PASS %s\n", p.name)
			continue
		}
		failed++
		fmt.Printf("FAIL %s\n", p.name)
		for _, e := range p.errors {
			fmt.Printf("  - %s\n", e)
		}
	}
	if failed > 0 {
		os.Exit(1)
	}
}

// checkCoverage verifies every raw sonde has a gridded product and vice versa.
func checkCoverage(raws []domain.RawSoundingRecord, gridded []domain.GriddedProductRecord) *phase {
	p := &phase{name: "coverage"}
	rawSerials := map[string]bool{}
	for _, r := range raws {
		rawSerials[r.SerialID] = true
	}
	seen := map[string]bool{}
	for _, g := range gridded {
		if !rawSerials[g.SerialID] {
			p.errorf("gridded sonde %s has no raw counterpart", g.SerialID)
		}
		if seen[g.SerialID] {
			p.errorf("duplicate gridded sonde %s", g.SerialID)
		}
		seen[g.SerialID] = true
	}
	for serial := range rawSerials {
		if !seen[serial] {
			p.errorf("raw sonde %s has no gridded counterpart", serial)
		}
	}
	return p
}

// checkGeometry verifies every column matches the declared altitude grid.
func checkGeometry(gridded []domain.GriddedProductRecord) *phase {
	p := &phase{name: "grid geometry"}
	for _, g := range gridded {
		grid := domain.AltitudeGrid{Start: g.AltStart, Stop: g.AltStop, Step: g.AltStep}
		if err := grid.Validate(); err != nil {
			p.errorf("sonde %s: %v", g.SerialID, err)
			continue
		}
		n := grid.NumBins()
		for name, col := range g.Values {
			if len(col) != n {
				p.errorf("sonde %s: variable %s has %d bins, grid has %d", g.SerialID, name, len(col), n)
			}
		}
		for name, col := range g.Values {
			if name != "p" {
				continue
			}
			for i, v := range col {
				if !math.IsNaN(v) && v <= 0 {
					p.errorf("sonde %s: non-positive pressure %g in bin %d", g.SerialID, v, i)
				}
			}
		}
	}
	return p
}

// checkProvenance verifies the laws relating N, m and the value: m=2 exactly
// when N>0, m=1 only for a non-NaN value with N=0, m=0 only for NaN with N=0.
func checkProvenance(gridded []domain.GriddedProductRecord) *phase {
	p := &phase{name: "provenance"}
	for _, g := range gridded {
		for name, methods := range g.Methods {
			counts, ok := g.Counts[name]
			if !ok {
				p.errorf("sonde %s: method flags for %s without counts", g.SerialID, name)
				continue
			}
			// Shared-sensor entries are checked against a component column.
			values := g.Values[componentFor(name)]
			for i, m := range methods {
				n := counts[i]
				valueNaN := values == nil || math.IsNaN(values[i])
				switch m {
				case 2:
					if n == 0 {
						p.errorf("sonde %s: %s bin %d flagged averaged with N=0", g.SerialID, name, i)
					}
				case 1:
					if n != 0 || valueNaN {
						p.errorf("sonde %s: %s bin %d flagged interpolated with N=%d", g.SerialID, name, i, n)
					}
				case 0:
					if n != 0 || !valueNaN {
						p.errorf("sonde %s: %s bin %d flagged no-data with N=%d", g.SerialID, name, i, n)
					}
				default:
					p.errorf("sonde %s: %s bin %d has method flag %d", g.SerialID, name, i, m)
				}
			}
		}
	}
	return p
}

// componentFor maps a deduplicated sensor name back to one of its component
// variables for value lookups.
func componentFor(name string) string {
	switch name {
	case "wind":
		return "u"
	case "gps":
		return "lat"
	default:
		return name
	}
}

// checkQC verifies the verdict encoding: known status strings and a sonde
// aggregate in {0,1,2} consistent with the per-variable verdicts.
func checkQC(gridded []domain.GriddedProductRecord) *phase {
	p := &phase{name: "qc encoding"}
	valid := map[string]bool{"BAD": true, "GOOD": true, "UGLY": true}
	for _, g := range gridded {
		for name, status := range g.QCStatus {
			if !valid[status] {
				p.errorf("sonde %s: variable %s has status %q", g.SerialID, name, status)
			}
		}
		if g.SondeQC > 2 {
			p.errorf("sonde %s: sonde_qc %d out of range", g.SerialID, g.SondeQC)
		}
		// A fully good sonde implies every variable verdict is GOOD; the
		// converse does not hold because sonde-level checks also contribute.
		if g.SondeQC == 1 {
			for name, status := range g.QCStatus {
				if status != "GOOD" {
					p.errorf("sonde %s: sonde_qc=1 but variable %s is %s", g.SerialID, name, status)
				}
			}
		}
	}
	return p
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}
