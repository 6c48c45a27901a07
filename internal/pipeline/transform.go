package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/tropospect/sonde-data-etl/internal/domain"
	"github.com/tropospect/sonde-data-etl/internal/observability"
	"github.com/tropospect/sonde-data-etl/internal/qc"
)

// TransformConfig carries every per-sonde processing knob. Values come from
// the service configuration; the defaults here match the operational
// campaign settings.
type TransformConfig struct {
	Grid          domain.AltitudeGrid
	Source        domain.AltitudeSource
	Variables     []string
	MaxGapFill    float64
	LogPressure   bool
	Method        domain.BinMethod
	ScanDirection domain.ScanDirection

	Floater     qc.FloaterConfig
	Fullness    qc.FullnessConfig
	NearSurface qc.NearSurfaceConfig
	// AltConsistencyMaxDiff is the largest tolerated disagreement between the
	// two altitude estimates, meters.
	AltConsistencyMaxDiff float64
	AircraftCeiling       float64

	// QCVariables are the variables the checks monitor;
	// SamplingFrequencies gives each one's native rate in hertz.
	QCVariables         []string
	SamplingFrequencies map[string]float64

	QCFilterFlags string
	CheckUgly     bool
}

// DefaultTransformConfig returns the operational defaults: a 10 m grid from
// -5 to 14600 m on GPS altitude, 50 m gap filling, log-space pressure, and
// the standard check set on the five measured variables.
func DefaultTransformConfig() TransformConfig {
	return TransformConfig{
		Grid:          domain.AltitudeGrid{Start: -5, Stop: 14600, Step: 10},
		Source:        domain.BackupAltitude,
		Variables:     []string{domain.VarU, domain.VarV, domain.VarTa, domain.VarP, domain.VarRH, domain.VarLat, domain.VarLon},
		MaxGapFill:    50,
		LogPressure:   true,
		Method:        domain.BinAverage,
		ScanDirection: domain.TopDown,

		Floater:               qc.DefaultFloaterConfig(),
		Fullness:              qc.DefaultFullnessConfig(),
		NearSurface:           qc.DefaultNearSurfaceConfig(),
		AltConsistencyMaxDiff: 150,
		AircraftCeiling:       qc.DefaultAircraftCeiling,

		QCVariables: []string{domain.VarU, domain.VarV, domain.VarRH, domain.VarTa, domain.VarP},
		// The wind solution updates at the full 4 Hz message rate; the PTU
		// sensors report at 2 Hz.
		SamplingFrequencies: map[string]float64{
			domain.VarU:  4,
			domain.VarV:  4,
			domain.VarRH: 2,
			domain.VarTa: 2,
			domain.VarP:  2,
		},

		QCFilterFlags: "all",
		CheckUgly:     true,
	}
}

// SondeTransformer implements Transformer: one raw sounding in, one gridded
// product out, or ErrSondeFiltered when quality control rejects the sonde.
type SondeTransformer struct {
	cfg     TransformConfig
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewTransformer creates a SondeTransformer.
func NewTransformer(cfg TransformConfig, logger *slog.Logger, metrics *observability.Metrics) *SondeTransformer {
	return &SondeTransformer{cfg: cfg, logger: logger, metrics: metrics}
}

func (t *SondeTransformer) Transform(_ context.Context, raw domain.RawMessage) (domain.Product, error) {
	profile, err := domain.ParseRawSounding(raw)
	if err != nil {
		return domain.Product{}, err
	}

	gridded, err := t.ProcessProfile(profile)
	if err != nil {
		return domain.Product{}, err
	}

	product, err := domain.MarshalProduct(gridded)
	if err != nil {
		return domain.Product{}, err
	}
	product.Headers["product_id"] = uuid.NewString()
	return product, nil
}

// ProcessProfile runs the full per-sonde chain: unit conversion, physical
// cleanup, quality control, the QC gate, altitude repair, regridding,
// provenance flagging and derived thermodynamics.
func (t *SondeTransformer) ProcessProfile(p domain.Profile) (domain.GriddedProfile, error) {
	p, err := t.prepare(p)
	if err != nil {
		return domain.GriddedProfile{}, err
	}

	reg, err := t.runChecks(p)
	if err != nil {
		return domain.GriddedProfile{}, err
	}

	ok, err := reg.CheckQC(t.cfg.QCFilterFlags, t.cfg.CheckUgly)
	if err != nil {
		return domain.GriddedProfile{}, fmt.Errorf("sonde %s: %w", p.SerialID, err)
	}
	if !ok {
		flag := firstFailingFlag(reg)
		if t.metrics != nil {
			t.metrics.SondesFiltered.WithLabelValues(flag).Inc()
		}
		return domain.GriddedProfile{}, fmt.Errorf("%w: sonde %s failed %s", ErrSondeFiltered, p.SerialID, flag)
	}

	srcVar := t.cfg.Source.VarName()
	repaired := domain.RepairMonotonicAltitude(p.Var(srcVar), t.cfg.ScanDirection, t.logger)
	p = p.WithVar(srcVar, repaired)

	gridded, err := domain.BinProfile(p, domain.BinConfig{
		Grid:        t.cfg.Grid,
		Source:      t.cfg.Source,
		Variables:   t.cfg.Variables,
		MaxGapFill:  t.cfg.MaxGapFill,
		LogPressure: t.cfg.LogPressure,
		Method:      t.cfg.Method,
	}, t.logger)
	if err != nil {
		return domain.GriddedProfile{}, err
	}

	gridded = domain.FlagProvenance(gridded, t.logger)
	gridded = domain.DeriveThermo(gridded)
	t.mergeQC(&gridded, reg)
	gridded.ProcessedAt = domain.ProcessedNow()
	return gridded, nil
}

// prepare masks physically invalid samples, including a floater's
// post-landing tail, then converts raw instrument units to SI. Floater
// detection runs before the unit conversion: its stability tolerances are in
// the raw units (hPa, m).
func (t *SondeTransformer) prepare(p domain.Profile) (domain.Profile, error) {
	if isFloater, landing := qc.DetectFloater(p, t.cfg.Floater, t.logger); isFloater {
		p.IsFloater = true
		p.LandingTime = landing
		p = qc.CropToLanding(p)
		if t.metrics != nil {
			t.metrics.FloatersFound.Inc()
		}
	}

	var si []string
	for _, name := range []string{domain.VarRH, domain.VarP, domain.VarTa} {
		if p.Var(name) != nil {
			si = append(si, name)
		}
	}
	p, err := domain.ConvertToSI(p, si)
	if err != nil {
		return domain.Profile{}, err
	}

	p = qc.RemoveAboveAircraft(p, t.cfg.AircraftCeiling)
	return p, nil
}

// runChecks populates a registry with the standard check set.
func (t *SondeTransformer) runChecks(p domain.Profile) (*qc.Registry, error) {
	reg := qc.NewRegistry(t.cfg.QCVariables...)
	for _, name := range t.cfg.QCVariables {
		freq, ok := t.cfg.SamplingFrequencies[name]
		if !ok {
			freq = t.cfg.Fullness.TimestampFrequency
		}
		if err := qc.ProfileFullness(reg, p, name, freq, t.cfg.Fullness); err != nil {
			return nil, err
		}
		if err := qc.NearSurfaceCoverage(reg, p, name, t.cfg.NearSurface, true, t.logger); err != nil {
			return nil, err
		}
	}
	if err := qc.AltitudeConsistency(reg, p, t.cfg.AltConsistencyMaxDiff); err != nil {
		return nil, err
	}
	return reg, nil
}

// mergeQC copies the registry's verdicts onto the outgoing product.
func (t *SondeTransformer) mergeQC(g *domain.GriddedProfile, reg *qc.Registry) {
	for _, name := range reg.Variables() {
		b, _ := reg.VariableByte(name)
		g.QCFlags[name+"_qc"] = b
		g.QCStatus[name] = reg.VariableStatus(name).String()
	}
	for _, name := range reg.DetailNames() {
		v, _ := reg.Detail(name)
		g.QCDetails[name] = v
	}
	g.SondeQC = reg.SondeStatus()
	if t.metrics != nil {
		t.metrics.SondeStatus.WithLabelValues(sondeStatusLabel(g.SondeQC)).Inc()
	}
}

func sondeStatusLabel(s uint8) string {
	switch s {
	case qc.SondeGood:
		return strings.ToLower(qc.Good.String())
	case qc.SondeMixed:
		return "mixed"
	default:
		return strings.ToLower(qc.Bad.String())
	}
}

// firstFailingFlag names the first (sorted) false flag, for filter metrics
// and log lines.
func firstFailingFlag(reg *qc.Registry) string {
	for _, name := range reg.FlagNames() {
		if v, _ := reg.Flag(name); !v {
			return name
		}
	}
	return "none"
}
