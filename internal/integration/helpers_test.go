//go:build integration

package integration_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"

	"github.com/tropospect/sonde-data-etl/internal/domain"
)

// startKafka launches a single-broker Kafka container and returns its
// bootstrap address.
func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()

	container, err := tckafka.Run(ctx, "confluentinc/confluent-local:7.6.1",
		tckafka.WithClusterID("sonde-etl-test"))
	require.NoError(t, err, "start kafka container")
	t.Cleanup(func() {
		_ = container.Terminate(context.Background())
	})

	brokers, err := container.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers)
	return brokers[0]
}

// createTopic pre-creates a topic so consumers do not race auto-creation.
func createTopic(t *testing.T, broker, topic string) {
	t.Helper()

	conn, err := kafkago.Dial("tcp", broker)
	require.NoError(t, err)
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err)

	ctrlConn, err := kafkago.Dial("tcp", fmt.Sprintf("%s:%d", controller.Host, controller.Port))
	require.NoError(t, err)
	defer ctrlConn.Close()

	require.NoError(t, ctrlConn.CreateTopics(kafkago.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	}))
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// mockSoundings synthesizes n plausible raw sounding records: 4 Hz descents
// from 1500 m in raw instrument units, dense enough to pass every QC check.
func mockSoundings(n int) []domain.RawSoundingRecord {
	const (
		hz        = 4.0
		fallSpeed = 12.0
		top       = 1500.0
	)
	samples := int(top / fallSpeed * hz)

	records := make([]domain.RawSoundingRecord, n)
	for s := range records {
		rec := domain.RawSoundingRecord{
			SerialID:         fmt.Sprintf("SN-%03d", s+1),
			FlightID:         "FL-20260811A",
			PlatformID:       "HALO",
			LaunchTime:       time.Date(2026, 8, 11, 12, 0, 0, 0, time.UTC).Add(time.Duration(s) * time.Minute),
			AircraftAltitude: 1600,
			Time:             make(domain.Floats, samples),
			Variables:        map[string]domain.Floats{},
		}
		for _, name := range []string{"u_wind", "v_wind", "tdry", "pres", "rh", "lat", "lon", "alt", "gpsalt"} {
			rec.Variables[name] = make(domain.Floats, samples)
		}
		for i := 0; i < samples; i++ {
			ts := float64(i) / hz
			z := top - fallSpeed*ts
			rec.Time[i] = ts
			rec.Variables["alt"][i] = z
			rec.Variables["gpsalt"][i] = z + 2
			rec.Variables["pres"][i] = 1013.25 * math.Exp(-z/8000)
			rec.Variables["tdry"][i] = 28 - 6.5*z/1000
			rec.Variables["rh"][i] = 80 - z/100
			rec.Variables["u_wind"][i] = -8
			rec.Variables["v_wind"][i] = -2
			rec.Variables["lat"][i] = 13.1 + 0.01*float64(s)
			rec.Variables["lon"][i] = -57.7
		}
		records[s] = rec
	}
	return records
}
