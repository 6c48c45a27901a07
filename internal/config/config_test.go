package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const defaultBroker = "localhost:9092"

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{defaultBroker}, cfg.KafkaBrokers)
	assert.Equal(t, "raw-soundings", cfg.KafkaSourceTopic)
	assert.Equal(t, "gridded-soundings", cfg.KafkaSinkTopic)
	assert.Equal(t, "sonde-data-etl", cfg.KafkaGroupID)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, 50, cfg.BatchSize)

	assert.Equal(t, -5.0, cfg.GridStart)
	assert.Equal(t, 14600.0, cfg.GridStop)
	assert.Equal(t, 10.0, cfg.GridStep)
	assert.Equal(t, 50.0, cfg.MaxGapFill)
	assert.True(t, cfg.LogPressure)
	assert.Equal(t, "bin", cfg.BinMethod)
	assert.Equal(t, "top_down", cfg.ScanDirection)

	assert.Equal(t, 25.0, cfg.GPSAltThreshold)
	assert.Equal(t, 3, cfg.ConsecutiveTimeSteps)
	assert.Equal(t, 0.75, cfg.FullnessThreshold)
	assert.Equal(t, 4.0, cfg.TimestampFrequency)
	assert.Equal(t, 0.0, cfg.NearSurfaceAltMin)
	assert.Equal(t, 1000.0, cfg.NearSurfaceAltMax)
	assert.Equal(t, 50, cfg.NearSurfaceCount)
	assert.Equal(t, 150.0, cfg.AltConsistencyMaxDiff)
	assert.Equal(t, 15000.0, cfg.AircraftCeiling)
	assert.Equal(t, "all", cfg.QCFilterFlags)
	assert.True(t, cfg.CheckUgly)

	assert.Equal(t, 5, cfg.CircleMinPositions)
	assert.Equal(t, 6, cfg.CircleMinSondes)
}

func TestLoad_CustomEnv(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "broker1:9092,broker2:9092")
	t.Setenv("KAFKA_SOURCE_TOPIC", "custom-source")
	t.Setenv("KAFKA_SINK_TOPIC", "custom-sink")
	t.Setenv("KAFKA_GROUP_ID", "custom-group")
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("SHUTDOWN_TIMEOUT", "30s")
	t.Setenv("BATCH_SIZE", "100")
	t.Setenv("ALT_GRID_START", "0")
	t.Setenv("ALT_GRID_STOP", "10000")
	t.Setenv("ALT_GRID_STEP", "25")
	t.Setenv("MAX_GAP_FILL", "100")
	t.Setenv("LOG_PRESSURE", "false")
	t.Setenv("BIN_METHOD", "linear_interpolate")
	t.Setenv("SCAN_DIRECTION", "bottom_up")
	t.Setenv("QC_FILTER_FLAGS", "p_profile_fullness,alt_near_gpsalt")
	t.Setenv("QC_CHECK_UGLY", "false")
	t.Setenv("CIRCLE_MIN_SONDES", "8")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "custom-source", cfg.KafkaSourceTopic)
	assert.Equal(t, "custom-sink", cfg.KafkaSinkTopic)
	assert.Equal(t, "custom-group", cfg.KafkaGroupID)
	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, 100, cfg.BatchSize)
	assert.Equal(t, 0.0, cfg.GridStart)
	assert.Equal(t, 10000.0, cfg.GridStop)
	assert.Equal(t, 25.0, cfg.GridStep)
	assert.Equal(t, 100.0, cfg.MaxGapFill)
	assert.False(t, cfg.LogPressure)
	assert.Equal(t, "linear_interpolate", cfg.BinMethod)
	assert.Equal(t, "bottom_up", cfg.ScanDirection)
	assert.Equal(t, "p_profile_fullness,alt_near_gpsalt", cfg.QCFilterFlags)
	assert.False(t, cfg.CheckUgly)
	assert.Equal(t, 8, cfg.CircleMinSondes)
}

func TestLoad_InvalidShutdownTimeout(t *testing.T) {
	t.Setenv("SHUTDOWN_TIMEOUT", "not-a-duration")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SHUTDOWN_TIMEOUT")
}

func TestLoad_NegativeShutdownTimeout(t *testing.T) {
	t.Setenv("SHUTDOWN_TIMEOUT", "-1s")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SHUTDOWN_TIMEOUT")
}

func TestLoad_InvalidGridStep(t *testing.T) {
	t.Setenv("ALT_GRID_STEP", "0")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ALT_GRID_STEP")
}

func TestLoad_GridStopBelowStart(t *testing.T) {
	t.Setenv("ALT_GRID_START", "5000")
	t.Setenv("ALT_GRID_STOP", "100")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ALT_GRID_STOP")
}

func TestLoad_UnparsableFloat(t *testing.T) {
	t.Setenv("GPSALT_THRESHOLD", "twenty-five")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GPSALT_THRESHOLD")
}

func TestLoad_InvalidBinMethod(t *testing.T) {
	t.Setenv("BIN_METHOD", "cubic_spline")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BIN_METHOD")
}

func TestLoad_InvalidScanDirection(t *testing.T) {
	t.Setenv("SCAN_DIRECTION", "sideways")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SCAN_DIRECTION")
}

func TestLoad_FullnessThresholdOutOfRange(t *testing.T) {
	t.Setenv("FULLNESS_THRESHOLD", "1.5")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "FULLNESS_THRESHOLD")
}

func TestLoad_NearSurfaceWindowInverted(t *testing.T) {
	t.Setenv("NEAR_SURFACE_ALT_MIN", "2000")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "NEAR_SURFACE_ALT_MAX")
}
