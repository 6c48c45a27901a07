package domain

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"
)

// Floats is a float64 sequence whose JSON form uses null for NaN. Sounding
// data is full of missing samples and encoding/json refuses bare NaN, so
// every float sequence on the wire goes through this type.
type Floats []float64

func (f Floats) MarshalJSON() ([]byte, error) {
	var b bytes.Buffer
	b.WriteByte('[')
	for i, v := range f {
		if i > 0 {
			b.WriteByte(',')
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			b.WriteString("null")
			continue
		}
		b.WriteString(strconv.FormatFloat(v, 'g', -1, 64))
	}
	b.WriteByte(']')
	return b.Bytes(), nil
}

func (f *Floats) UnmarshalJSON(data []byte) error {
	var raw []*float64
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(Floats, len(raw))
	for i, v := range raw {
		if v == nil {
			out[i] = math.NaN()
			continue
		}
		out[i] = *v
	}
	*f = out
	return nil
}

// Float is a scalar with the same null-for-NaN JSON convention as Floats.
type Float float64

func (f Float) MarshalJSON() ([]byte, error) {
	v := float64(f)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return []byte("null"), nil
	}
	return []byte(strconv.FormatFloat(v, 'g', -1, 64)), nil
}

func (f *Float) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*f = Float(math.NaN())
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*f = Float(v)
	return nil
}

func floatsMap(m map[string][]float64) map[string]Floats {
	if m == nil {
		return nil
	}
	out := make(map[string]Floats, len(m))
	for k, v := range m {
		out[k] = Floats(v)
	}
	return out
}

// RawSoundingRecord is the flat JSON structure published by the collector:
// one message per sonde, raw instrument units, vendor variable names.
type RawSoundingRecord struct {
	SerialID         string            `json:"serial_id"`
	FlightID         string            `json:"flight_id"`
	PlatformID       string            `json:"platform_id"`
	LaunchTime       time.Time         `json:"launch_time"`
	AircraftAltitude float64           `json:"aircraft_msl_altitude,omitempty"`
	Time             Floats            `json:"time"` // seconds since launch
	Variables        map[string]Floats `json:"variables"`
}

// vendorNames maps raw-file variable names to the Level-2 names the core
// uses. Variables already carrying a Level-2 name pass through unchanged.
var vendorNames = map[string]string{
	"u_wind": VarU,
	"v_wind": VarV,
	"tdry":   VarTa,
	"pres":   VarP,
}

// CanonicalName maps a vendor variable name to its Level-2 name. Names
// without a vendor alias pass through unchanged.
func CanonicalName(name string) string {
	if renamed, ok := vendorNames[name]; ok {
		return renamed
	}
	return name
}

// RawMessage is an unprocessed message from the source topic.
type RawMessage struct {
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
	Commit    func(ctx context.Context) error
}

// Product is the serialized gridded result destined for the sink topic.
type Product struct {
	Key     []byte
	Value   []byte
	Headers map[string]string
}

// GriddedProductRecord is the JSON structure written to the sink topic: one
// message per sonde, regridded onto the common altitude axis with provenance
// and QC merged in.
type GriddedProductRecord struct {
	SerialID   string    `json:"serial_id"`
	FlightID   string    `json:"flight_id,omitempty"`
	PlatformID string    `json:"platform_id,omitempty"`
	LaunchTime time.Time `json:"launch_time"`
	IsFloater  bool      `json:"is_floater,omitempty"`

	AltStart float64 `json:"alt_start"`
	AltStop  float64 `json:"alt_stop"`
	AltStep  float64 `json:"alt_step"`

	Values     map[string]Floats  `json:"values"`
	Counts     map[string][]int   `json:"counts,omitempty"`
	Methods    map[string][]uint8 `json:"methods,omitempty"`
	InterpTime Floats             `json:"interp_time,omitempty"`

	QCFlags   map[string]uint8  `json:"qc_flags,omitempty"`
	QCStatus  map[string]string `json:"qc_status,omitempty"`
	QCDetails map[string]Float  `json:"qc_details,omitempty"`
	SondeQC   uint8             `json:"sonde_qc"`

	ProcessedAt time.Time `json:"processed_at"`
}

// NewGriddedProductRecord maps a gridded profile onto its wire form.
func NewGriddedProductRecord(g GriddedProfile) GriddedProductRecord {
	details := make(map[string]Float, len(g.QCDetails))
	for k, v := range g.QCDetails {
		details[k] = Float(v)
	}
	return GriddedProductRecord{
		SerialID:    g.SerialID,
		FlightID:    g.FlightID,
		PlatformID:  g.PlatformID,
		LaunchTime:  g.LaunchTime,
		IsFloater:   g.IsFloater,
		AltStart:    g.Grid.Start,
		AltStop:     g.Grid.Stop,
		AltStep:     g.Grid.Step,
		Values:      floatsMap(g.Values),
		Counts:      g.Counts,
		Methods:     g.Methods,
		InterpTime:  Floats(g.InterpTime),
		QCFlags:     g.QCFlags,
		QCStatus:    g.QCStatus,
		QCDetails:   details,
		SondeQC:     g.SondeQC,
		ProcessedAt: g.ProcessedAt,
	}
}

// MarshalProduct serializes a gridded profile for the sink topic. The message
// key is the sonde serial so re-processing the same sonde compacts.
func MarshalProduct(g GriddedProfile) (Product, error) {
	value, err := json.Marshal(NewGriddedProductRecord(g))
	if err != nil {
		return Product{}, fmt.Errorf("marshal gridded product: %w", err)
	}
	return Product{
		Key:   []byte(g.SerialID),
		Value: value,
		Headers: map[string]string{
			"processed_at": g.ProcessedAt.UTC().Format(time.RFC3339),
		},
	}, nil
}

// ParseRawSounding deserializes a RawMessage into a Profile, renaming vendor
// variable names and enforcing the shared-time-index invariant.
func ParseRawSounding(raw RawMessage) (Profile, error) {
	var rec RawSoundingRecord
	if err := json.Unmarshal(raw.Value, &rec); err != nil {
		return Profile{}, fmt.Errorf("parse raw sounding: %w", err)
	}
	if rec.SerialID == "" {
		return Profile{}, fmt.Errorf("parse raw sounding: missing serial_id")
	}

	vars := make(map[string][]float64, len(rec.Variables))
	for name, vals := range rec.Variables {
		vars[CanonicalName(name)] = []float64(vals)
	}

	p := Profile{
		SerialID:         rec.SerialID,
		FlightID:         rec.FlightID,
		PlatformID:       rec.PlatformID,
		LaunchTime:       rec.LaunchTime,
		AircraftAltitude: rec.AircraftAltitude,
		Time:             []float64(rec.Time),
		Vars:             vars,
	}
	if err := p.Validate(); err != nil {
		return Profile{}, fmt.Errorf("parse raw sounding: %w", err)
	}
	return p, nil
}
