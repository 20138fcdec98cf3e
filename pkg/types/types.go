package types

import (
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// decimals are written as JSON numbers, e.g. 21.5 rather than "21.5"
	decimal.MarshalJSONWithoutQuotes = true
}

// TelemetrySample is a single measurement pushed by a device.
type TelemetrySample struct {
	DeviceID  string                     `json:"deviceId"`
	Timestamp time.Time                  `json:"timestamp"`
	Variables map[string]decimal.Decimal `json:"variables"`
	Metadata  map[string]any             `json:"metadata,omitempty"`
}

type IngestResult struct {
	DeviceID   uint   `json:"deviceId"`
	ExternalID string `json:"externalId"`
	Created    bool   `json:"created"`
	Connected  bool   `json:"connected"`
	Alerts     int    `json:"alerts"`
}

const (
	VariableKwConsumption string = "kw_consumption"
	VariableVoltage       string = "voltage"
	VariableCurrent       string = "current"
	VariablePowerFactor   string = "power_factor"
	VariableFrequency     string = "frequency"
)

// LegacyTelemetryMessage is the fixed five field broadcast shape.
type LegacyTelemetryMessage struct {
	DeviceID    string              `json:"deviceId"`
	Timestamp   time.Time           `json:"timestamp"`
	Kw          decimal.NullDecimal `json:"kw"`
	Voltage     decimal.NullDecimal `json:"voltage"`
	Current     decimal.NullDecimal `json:"current"`
	PowerFactor decimal.NullDecimal `json:"powerFactor"`
	Frequency   decimal.NullDecimal `json:"frequency"`
}

// DynamicTelemetryMessage carries every variable present in a sample.
type DynamicTelemetryMessage struct {
	DeviceID  string                     `json:"deviceId"`
	Timestamp time.Time                  `json:"timestamp"`
	Variables map[string]decimal.Decimal `json:"variables"`
}

// WebhookPayload is the body posted to user configured alert webhooks.
type WebhookPayload struct {
	Event     string        `json:"event"`
	Timestamp string        `json:"timestamp"`
	Alert     *WebhookAlert `json:"alert,omitempty"`
	Message   string        `json:"message,omitempty"`
}

type WebhookAlert struct {
	ID             uint            `json:"id"`
	Severity       string          `json:"severity"`
	Message        string          `json:"message"`
	TriggeredValue decimal.Decimal `json:"triggeredValue"`
	Acknowledged   bool            `json:"acknowledged"`
	Rule           *WebhookRule    `json:"rule,omitempty"`
	Device         *WebhookDevice  `json:"device,omitempty"`
}

type WebhookRule struct {
	ID        uint            `json:"id"`
	Name      string          `json:"name"`
	Variable  string          `json:"variable"`
	Operator  string          `json:"operator"`
	Threshold decimal.Decimal `json:"threshold"`
}

type WebhookDevice struct {
	ID               uint   `json:"id"`
	ExternalID       string `json:"externalId"`
	Name             string `json:"name"`
	Location         string `json:"location,omitempty"`
	SensorType       string `json:"sensorType,omitempty"`
	OrganizationID   uint   `json:"organizationId"`
	OrganizationName string `json:"organizationName,omitempty"`
}
