package transport

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/diwise/iot-telemetry-core/pkg/types"
)

var ErrBadPayload = fmt.Errorf("bad telemetry payload")

// DecodeSample parses a JSON telemetry sample. The device id falls back to deviceID when the payload
// carries none, and a missing timestamp is set to now.
func DecodeSample(payload []byte, deviceID string, now time.Time) (types.TelemetrySample, error) {
	sample := types.TelemetrySample{}

	if err := json.Unmarshal(payload, &sample); err != nil {
		return sample, fmt.Errorf("%w: %s", ErrBadPayload, err.Error())
	}

	if sample.DeviceID == "" {
		sample.DeviceID = deviceID
	}

	if sample.DeviceID == "" {
		return sample, fmt.Errorf("%w: device id missing", ErrBadPayload)
	}

	if sample.Timestamp.IsZero() {
		sample.Timestamp = now
	}

	return sample, nil
}
