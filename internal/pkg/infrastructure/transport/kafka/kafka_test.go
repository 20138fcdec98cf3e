package kafka

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/diwise/iot-telemetry-core/internal/pkg/application/ingestion"
	"github.com/diwise/iot-telemetry-core/pkg/types"
	"github.com/matryer/is"
	kafkago "github.com/segmentio/kafka-go"
)

func TestConsumerIngestsMessages(t *testing.T) {
	is := is.New(t)

	messages := []kafkago.Message{
		{Key: []byte("meter-01"), Value: []byte(`{"variables":{"temp":20}}`)},
		{Value: []byte(`garbage`)},
		{Value: []byte(`{"deviceId":"meter-02","timestamp":"2024-01-02T03:04:05Z","variables":{"temp":21}}`)},
	}

	var mu sync.Mutex
	next := 0

	reader := &MessageReaderMock{
		ReadMessageFunc: func(ctx context.Context) (kafkago.Message, error) {
			mu.Lock()
			if next < len(messages) {
				m := messages[next]
				next++
				mu.Unlock()
				return m, nil
			}
			mu.Unlock()

			<-ctx.Done()
			return kafkago.Message{}, ctx.Err()
		},
		CloseFunc: func() error {
			return nil
		},
	}

	ingested := make(chan types.TelemetrySample, 3)
	svc := &ingestion.IngestionServiceMock{
		IngestFunc: func(ctx context.Context, sample types.TelemetrySample) (types.IngestResult, error) {
			ingested <- sample
			return types.IngestResult{}, nil
		},
	}

	c := NewConsumer(Config{Topic: "telemetry"}, svc, WithReader(reader))
	c.Start(context.Background())

	first := receive(t, ingested)
	second := receive(t, ingested)

	c.Stop()

	is.Equal("meter-01", first.DeviceID)
	is.True(!first.Timestamp.IsZero())
	is.Equal("meter-02", second.DeviceID)
	is.Equal(2024, second.Timestamp.Year())
	is.Equal(1, len(reader.CloseCalls()))
}

func TestConsumerSurvivesIngestErrors(t *testing.T) {
	is := is.New(t)

	reads := 0
	reader := &MessageReaderMock{
		ReadMessageFunc: func(ctx context.Context) (kafkago.Message, error) {
			reads++
			if reads <= 2 {
				return kafkago.Message{Value: []byte(`{"deviceId":"meter-01","variables":{"temp":20}}`)}, nil
			}
			<-ctx.Done()
			return kafkago.Message{}, ctx.Err()
		},
		CloseFunc: func() error {
			return nil
		},
	}

	done := make(chan struct{}, 2)
	svc := &ingestion.IngestionServiceMock{
		IngestFunc: func(ctx context.Context, sample types.TelemetrySample) (types.IngestResult, error) {
			done <- struct{}{}
			return types.IngestResult{}, ingestion.ErrDeviceNotFound
		},
	}

	c := NewConsumer(Config{}, svc, WithReader(reader))
	c.Start(context.Background())

	for i := 0; i < 2; i++ {
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Fatal("timed out waiting for ingest")
		}
	}

	c.Stop()
	is.Equal(2, len(svc.IngestCalls()))
}

func receive(t *testing.T, ch <-chan types.TelemetrySample) types.TelemetrySample {
	select {
	case s := <-ch:
		return s
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for sample")
	}
	return types.TelemetrySample{}
}
