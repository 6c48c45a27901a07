package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	httpadapter "github.com/tropospect/sonde-data-etl/internal/adapter/http"
	kafkaadapter "github.com/tropospect/sonde-data-etl/internal/adapter/kafka"
	"github.com/tropospect/sonde-data-etl/internal/config"
	"github.com/tropospect/sonde-data-etl/internal/domain"
	"github.com/tropospect/sonde-data-etl/internal/observability"
	"github.com/tropospect/sonde-data-etl/internal/pipeline"
	"github.com/tropospect/sonde-data-etl/internal/qc"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	tcfg, err := transformConfig(cfg)
	if err != nil {
		logger.Error("invalid transform configuration", "error", err)
		os.Exit(1)
	}

	reader := kafkaadapter.NewReader(cfg, logger)
	writer := kafkaadapter.NewWriter(cfg, logger)
	transformer := pipeline.NewTransformer(tcfg, logger, metrics)

	p := pipeline.New(reader, transformer, writer, logger, metrics, cfg.BatchSize)

	srv := httpadapter.NewServer(cfg.HTTPAddr, p, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Start ETL pipeline.
	go func() {
		if err := p.Run(ctx); err != nil {
			logger.Error("pipeline error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if err := reader.Close(); err != nil {
		logger.Error("kafka reader close error", "error", err)
	}
	if err := writer.Close(); err != nil {
		logger.Error("kafka writer close error", "error", err)
	}

	logger.Info("shutdown complete")
}

// transformConfig maps the environment configuration onto the per-sonde
// processing knobs, starting from the operational defaults.
func transformConfig(cfg *config.Config) (pipeline.TransformConfig, error) {
	tcfg := pipeline.DefaultTransformConfig()

	tcfg.Grid = domain.AltitudeGrid{Start: cfg.GridStart, Stop: cfg.GridStop, Step: cfg.GridStep}
	tcfg.MaxGapFill = cfg.MaxGapFill
	tcfg.LogPressure = cfg.LogPressure

	method, err := domain.ParseBinMethod(cfg.BinMethod)
	if err != nil {
		return pipeline.TransformConfig{}, err
	}
	tcfg.Method = method

	dir, err := domain.ParseScanDirection(cfg.ScanDirection)
	if err != nil {
		return pipeline.TransformConfig{}, err
	}
	tcfg.ScanDirection = dir

	tcfg.Floater.GPSAltThreshold = cfg.GPSAltThreshold
	tcfg.Floater.ConsecutiveSteps = cfg.ConsecutiveTimeSteps
	tcfg.Fullness = qc.FullnessConfig{
		TimestampFrequency: cfg.TimestampFrequency,
		Threshold:          cfg.FullnessThreshold,
	}
	tcfg.NearSurface.AltMin = cfg.NearSurfaceAltMin
	tcfg.NearSurface.AltMax = cfg.NearSurfaceAltMax
	tcfg.NearSurface.CountThreshold = cfg.NearSurfaceCount
	tcfg.AltConsistencyMaxDiff = cfg.AltConsistencyMaxDiff
	tcfg.AircraftCeiling = cfg.AircraftCeiling
	tcfg.QCFilterFlags = cfg.QCFilterFlags
	tcfg.CheckUgly = cfg.CheckUgly

	return tcfg, nil
}
