package mqtt

import (
	"context"
	"errors"
	"testing"

	"github.com/diwise/iot-telemetry-core/internal/pkg/application/ingestion"
	"github.com/diwise/iot-telemetry-core/internal/pkg/infrastructure/transport"
	"github.com/diwise/iot-telemetry-core/pkg/types"
	"github.com/matryer/is"
)

func TestDeviceIDFromTopic(t *testing.T) {
	is := is.New(t)

	is.Equal("meter-01", DeviceIDFromTopic("sensorvision/devices/meter-01/telemetry"))
	is.Equal("", DeviceIDFromTopic("sensorvision/devices/meter-01"))
	is.Equal("", DeviceIDFromTopic("other/devices/meter-01/status"))
}

func TestHandleUsesTopicDeviceID(t *testing.T) {
	is := is.New(t)

	svc := &ingestion.IngestionServiceMock{
		IngestFunc: func(ctx context.Context, sample types.TelemetrySample) (types.IngestResult, error) {
			return types.IngestResult{}, nil
		},
	}

	s := NewSubscriber(Config{Broker: "tcp://localhost:1883"}, svc)

	err := s.Handle(context.Background(), "sensorvision/devices/meter-01/telemetry", []byte(`{"variables":{"temp":20}}`))
	is.NoErr(err)

	err = s.Handle(context.Background(), "sensorvision/devices/meter-01/telemetry", []byte(`{"deviceId":"meter-02","variables":{"temp":20}}`))
	is.NoErr(err)

	calls := svc.IngestCalls()
	is.Equal(2, len(calls))
	is.Equal("meter-01", calls[0].Sample.DeviceID)
	is.True(!calls[0].Sample.Timestamp.IsZero())
	is.Equal("meter-02", calls[1].Sample.DeviceID)
}

func TestHandleRejectsBadPayload(t *testing.T) {
	is := is.New(t)

	svc := &ingestion.IngestionServiceMock{}
	s := NewSubscriber(Config{}, svc)

	err := s.Handle(context.Background(), "sensorvision/devices/meter-01/telemetry", []byte(`not json`))
	is.True(errors.Is(err, transport.ErrBadPayload))
	is.Equal(0, len(svc.IngestCalls()))
}
