package types

import (
	"encoding/json"
	"time"
)

const (
	EventDeviceConnected string = "DEVICE_CONNECTED"
	EventRuleTriggered   string = "RULE_TRIGGERED"
	EventAlertCreated    string = "ALERT_CREATED"
	EventDeviceOffline   string = "DEVICE_OFFLINE"
)

const (
	EventSeverityInfo     string = "INFO"
	EventSeverityWarning  string = "WARNING"
	EventSeverityError    string = "ERROR"
	EventSeverityCritical string = "CRITICAL"
)

// Event is a notification for the external event system.
type Event struct {
	ID             string         `json:"id"`
	Type           string         `json:"type"`
	OrganizationID uint           `json:"organizationId"`
	EntityID       string         `json:"entityId"`
	Severity       string         `json:"severity"`
	Title          string         `json:"title"`
	Description    string         `json:"description"`
	Data           map[string]any `json:"data,omitempty"`
	Timestamp      time.Time      `json:"timestamp"`
}

func (e *Event) ContentType() string {
	return "application/json"
}

func (e *Event) TopicName() string {
	switch e.Type {
	case EventDeviceConnected:
		return "telemetry.deviceConnected"
	case EventRuleTriggered:
		return "rules.ruleTriggered"
	case EventAlertCreated:
		return "alerts.alertCreated"
	case EventDeviceOffline:
		return "watchdog.deviceOffline"
	}
	return "events.unknown"
}

func (e *Event) Body() []byte {
	b, _ := json.Marshal(e)
	return b
}
