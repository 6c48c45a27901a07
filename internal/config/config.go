package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	KafkaBrokers     []string
	KafkaSourceTopic string
	KafkaSinkTopic   string
	KafkaGroupID     string
	HTTPAddr         string
	LogLevel         string
	LogFormat        string
	ShutdownTimeout  time.Duration
	BatchSize        int

	// Altitude regridding.
	GridStart   float64
	GridStop    float64
	GridStep    float64
	MaxGapFill  float64
	LogPressure bool
	BinMethod   string // "bin" or "linear_interpolate"
	// ScanDirection is the monotonicity-repair policy, "top_down" or
	// "bottom_up". The two repairs differ near data gaps; neither is more
	// correct, so the choice is configuration.
	ScanDirection string

	// Quality-control thresholds.
	GPSAltThreshold       float64
	ConsecutiveTimeSteps  int
	FullnessThreshold     float64
	TimestampFrequency    float64
	NearSurfaceAltMin     float64
	NearSurfaceAltMax     float64
	NearSurfaceCount      int
	AltConsistencyMaxDiff float64
	AircraftCeiling       float64
	// QCFilterFlags selects which flags gate a sonde ("", "all",
	// "all_except_<prefix>" or a comma list of flag names); CheckUgly
	// requires every selected flag to pass rather than any.
	QCFilterFlags string
	CheckUgly     bool

	// Circle products.
	CircleMinPositions int
	CircleMinSondes    int
}

// Load reads configuration from environment variables, applying defaults
// where unset and validating the result.
func Load() (*Config, error) {
	cfg := &Config{
		KafkaBrokers:     splitBrokers(envOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSourceTopic: envOrDefault("KAFKA_SOURCE_TOPIC", "raw-soundings"),
		KafkaSinkTopic:   envOrDefault("KAFKA_SINK_TOPIC", "gridded-soundings"),
		KafkaGroupID:     envOrDefault("KAFKA_GROUP_ID", "sonde-data-etl"),
		HTTPAddr:         envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:         envOrDefault("LOG_LEVEL", "info"),
		LogFormat:        envOrDefault("LOG_FORMAT", "json"),

		BinMethod:     envOrDefault("BIN_METHOD", "bin"),
		ScanDirection: envOrDefault("SCAN_DIRECTION", "top_down"),
		QCFilterFlags: envOrDefault("QC_FILTER_FLAGS", "all"),
	}

	var err error
	if cfg.ShutdownTimeout, err = envDuration("SHUTDOWN_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.BatchSize, err = envInt("BATCH_SIZE", 50); err != nil {
		return nil, err
	}

	if cfg.GridStart, err = envFloat("ALT_GRID_START", -5); err != nil {
		return nil, err
	}
	if cfg.GridStop, err = envFloat("ALT_GRID_STOP", 14600); err != nil {
		return nil, err
	}
	if cfg.GridStep, err = envFloat("ALT_GRID_STEP", 10); err != nil {
		return nil, err
	}
	if cfg.MaxGapFill, err = envFloat("MAX_GAP_FILL", 50); err != nil {
		return nil, err
	}
	if cfg.LogPressure, err = envBool("LOG_PRESSURE", true); err != nil {
		return nil, err
	}

	if cfg.GPSAltThreshold, err = envFloat("GPSALT_THRESHOLD", 25); err != nil {
		return nil, err
	}
	if cfg.ConsecutiveTimeSteps, err = envInt("CONSECUTIVE_TIME_STEPS", 3); err != nil {
		return nil, err
	}
	if cfg.FullnessThreshold, err = envFloat("FULLNESS_THRESHOLD", 0.75); err != nil {
		return nil, err
	}
	if cfg.TimestampFrequency, err = envFloat("TIMESTAMP_FREQUENCY", 4); err != nil {
		return nil, err
	}
	if cfg.NearSurfaceAltMin, err = envFloat("NEAR_SURFACE_ALT_MIN", 0); err != nil {
		return nil, err
	}
	if cfg.NearSurfaceAltMax, err = envFloat("NEAR_SURFACE_ALT_MAX", 1000); err != nil {
		return nil, err
	}
	if cfg.NearSurfaceCount, err = envInt("NEAR_SURFACE_COUNT", 50); err != nil {
		return nil, err
	}
	if cfg.AltConsistencyMaxDiff, err = envFloat("ALT_CONSISTENCY_MAX_DIFF", 150); err != nil {
		return nil, err
	}
	if cfg.AircraftCeiling, err = envFloat("AIRCRAFT_CEILING", 15000); err != nil {
		return nil, err
	}
	if cfg.CheckUgly, err = envBool("QC_CHECK_UGLY", true); err != nil {
		return nil, err
	}

	if cfg.CircleMinPositions, err = envInt("CIRCLE_MIN_POSITIONS", 5); err != nil {
		return nil, err
	}
	if cfg.CircleMinSondes, err = envInt("CIRCLE_MIN_SONDES", 6); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if len(c.KafkaBrokers) == 0 {
		return errors.New("KAFKA_BROKERS is required")
	}
	if c.KafkaSourceTopic == "" {
		return errors.New("KAFKA_SOURCE_TOPIC is required")
	}
	if c.KafkaSinkTopic == "" {
		return errors.New("KAFKA_SINK_TOPIC is required")
	}
	if c.GridStep <= 0 {
		return errors.New("ALT_GRID_STEP must be positive")
	}
	if c.GridStop <= c.GridStart {
		return errors.New("ALT_GRID_STOP must exceed ALT_GRID_START")
	}
	if c.BinMethod != "bin" && c.BinMethod != "linear_interpolate" {
		return fmt.Errorf("BIN_METHOD must be %q or %q, got %q", "bin", "linear_interpolate", c.BinMethod)
	}
	if c.ScanDirection != "top_down" && c.ScanDirection != "bottom_up" {
		return fmt.Errorf("SCAN_DIRECTION must be %q or %q, got %q", "top_down", "bottom_up", c.ScanDirection)
	}
	if c.FullnessThreshold < 0 || c.FullnessThreshold > 1 {
		return errors.New("FULLNESS_THRESHOLD must be within [0, 1]")
	}
	if c.NearSurfaceAltMax <= c.NearSurfaceAltMin {
		return errors.New("NEAR_SURFACE_ALT_MAX must exceed NEAR_SURFACE_ALT_MIN")
	}
	return nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

func envFloat(key string, fallback float64) (float64, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

func envBool(key string, fallback bool) (bool, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

func envDuration(key string, fallback time.Duration) (time.Duration, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	v, err := time.ParseDuration(s)
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return v, nil
}

func splitBrokers(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
