package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/tropospect/sonde-data-etl/internal/adapter/netcdfio"
	"github.com/tropospect/sonde-data-etl/internal/circle"
	"github.com/tropospect/sonde-data-etl/internal/domain"
	"github.com/tropospect/sonde-data-etl/internal/pipeline"
)

var circleFlags struct {
	segmentID string
	flightID  string
	out       string
	minSondes int
	centerLat float64
	centerLon float64
}

var circleCmd = &cobra.Command{
	Use:   "circle [files...]",
	Short: "Fit circle products from one flight segment's soundings",
	Long: `Grid every sounding of a circular flight segment, fit the circle
geometry and per-level horizontal gradients, and derive divergence,
vorticity and the vertical-motion profiles.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCircle,
}

func init() {
	rootCmd.AddCommand(circleCmd)
	circleCmd.Flags().StringVar(&circleFlags.segmentID, "segment", "", "segment identifier (required)")
	circleCmd.Flags().StringVar(&circleFlags.flightID, "flight", "", "flight identifier")
	circleCmd.Flags().StringVarP(&circleFlags.out, "out", "o", "-", "output file, - for stdout")
	circleCmd.Flags().IntVar(&circleFlags.minSondes, "min-sondes", 6, "minimum member sondes per circle")
	circleCmd.Flags().Float64Var(&circleFlags.centerLat, "center-lat", 0, "pin the circle center latitude instead of fitting")
	circleCmd.Flags().Float64Var(&circleFlags.centerLon, "center-lon", 0, "pin the circle center longitude instead of fitting")
	_ = circleCmd.MarkFlagRequired("segment")
}

// circleProduct is the serialized circle output.
type circleProduct struct {
	SegmentID string    `json:"segment_id"`
	FlightID  string    `json:"flight_id,omitempty"`
	Members   []string  `json:"members"`
	Time      time.Time `json:"time"`

	Lat    domain.Float `json:"lat"`
	Lon    domain.Float `json:"lon"`
	Radius domain.Float `json:"radius_m"`

	Altitude domain.Floats `json:"altitude"`

	Mean map[string]domain.Floats `json:"mean"`
	DDX  map[string]domain.Floats `json:"ddx"`
	DDY  map[string]domain.Floats `json:"ddy"`

	Divergence domain.Floats `json:"divergence"`
	Vorticity  domain.Floats `json:"vorticity"`
	Omega      domain.Floats `json:"omega_hpa_per_hour"`
	W          domain.Floats `json:"w_m_per_s"`
}

func runCircle(cmd *cobra.Command, args []string) error {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	transformer := pipeline.NewTransformer(pipeline.DefaultTransformConfig(), logger, nil)

	var mu sync.Mutex
	members := make([]domain.GriddedProfile, 0, len(args))

	g, ctx := errgroup.WithContext(cmd.Context())
	g.SetLimit(runtime.NumCPU())
	for _, path := range args {
		g.Go(func() error {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			profile, err := netcdfio.ReadProfile(path, netcdfio.FileMeta{FlightID: circleFlags.flightID})
			if err != nil {
				return err
			}
			gridded, err := transformer.ProcessProfile(profile)
			if err != nil {
				if errors.Is(err, pipeline.ErrSondeFiltered) {
					logger.Info("sonde excluded from circle by qc filter", "file", path, "error", err)
					return nil
				}
				return err
			}
			mu.Lock()
			members = append(members, gridded)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	cfg := circle.DefaultConfig()
	cfg.MinSondes = circleFlags.minSondes
	if cmd.Flags().Changed("center-lat") || cmd.Flags().Changed("center-lon") {
		cfg.Center = &circle.Position{Lat: circleFlags.centerLat, Lon: circleFlags.centerLon}
	}

	c, err := circle.New(circleFlags.segmentID, members, cfg)
	if err != nil {
		return err
	}
	c.Process(cfg)

	return writeCircle(c)
}

func writeCircle(c *circle.Circle) error {
	product := circleProduct{
		SegmentID:  c.SegmentID,
		FlightID:   c.FlightID,
		Time:       c.Time,
		Lat:        domain.Float(c.Lat),
		Lon:        domain.Float(c.Lon),
		Radius:     domain.Float(c.Radius),
		Altitude:   domain.Floats(c.Grid.Centers()),
		Mean:       toFloatsMap(c.Mean),
		DDX:        toFloatsMap(c.DDX),
		DDY:        toFloatsMap(c.DDY),
		Divergence: domain.Floats(c.Divergence),
		Vorticity:  domain.Floats(c.Vorticity),
		Omega:      domain.Floats(c.Omega),
		W:          domain.Floats(c.W),
	}
	for _, m := range c.Members {
		product.Members = append(product.Members, m.SerialID)
	}

	data, err := json.MarshalIndent(product, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal circle product: %w", err)
	}
	if circleFlags.out == "-" {
		_, err = os.Stdout.Write(append(data, '\n'))
		return err
	}
	return os.WriteFile(circleFlags.out, data, 0o644)
}

func toFloatsMap(m map[string][]float64) map[string]domain.Floats {
	out := make(map[string]domain.Floats, len(m))
	for k, v := range m {
		out[k] = domain.Floats(v)
	}
	return out
}
