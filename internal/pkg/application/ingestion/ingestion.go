package ingestion

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/diwise/iot-telemetry-core/internal/pkg/application/events"
	"github.com/diwise/iot-telemetry-core/internal/pkg/application/variables"
	"github.com/diwise/iot-telemetry-core/internal/pkg/infrastructure/logging"
	"github.com/diwise/iot-telemetry-core/internal/pkg/infrastructure/metrics"
	"github.com/diwise/iot-telemetry-core/internal/pkg/infrastructure/repositories/database/devices"
	"github.com/diwise/iot-telemetry-core/internal/pkg/infrastructure/repositories/database/rules"
	"github.com/diwise/iot-telemetry-core/internal/pkg/infrastructure/repositories/database/telemetry"
	"github.com/diwise/iot-telemetry-core/internal/pkg/infrastructure/tracing"
	"github.com/diwise/iot-telemetry-core/internal/pkg/presentation/api/auth"
	"github.com/diwise/iot-telemetry-core/pkg/types"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("iot-telemetry-core/ingestion")

var ErrDeviceNotFound = fmt.Errorf("device not found")
var ErrInvalidSample = fmt.Errorf("invalid telemetry sample")

const DefaultOrganizationName string = "Default Organization"

//go:generate moq -rm -out ingestionservice_mock.go . IngestionService

type IngestionService interface {
	Ingest(ctx context.Context, sample types.TelemetrySample) (types.IngestResult, error)
}

//go:generate moq -rm -out broadcaster_mock.go . Broadcaster

// Broadcaster pushes samples to live subscribers of an organization.
type Broadcaster interface {
	BroadcastLegacy(organizationID uint, msg types.LegacyTelemetryMessage)
	BroadcastDynamic(organizationID uint, msg types.DynamicTelemetryMessage)
}

//go:generate moq -rm -out widgetgenerator_mock.go . WidgetGenerator

// WidgetGenerator creates the initial dashboard widgets for a device that reports for the first time.
type WidgetGenerator interface {
	GenerateInitialWidgets(ctx context.Context, device devices.Device, variables []string) error
}

//go:generate moq -rm -out ruleevaluator_mock.go . RuleEvaluator

type RuleEvaluator interface {
	Evaluate(ctx context.Context, device devices.Device, sample types.TelemetrySample) ([]rules.Alert, error)
}

type Metrics interface {
	SetDeviceStatus(deviceID string, online bool)
	SetLegacy(deviceID string, values metrics.LegacyValues)
	SetDynamic(ctx context.Context, deviceID, variable string, value float64) bool
}

type Config struct {
	AutoProvision       bool
	DefaultOrganization string
}

type service struct {
	cfg         Config
	devices     devices.DeviceRepository
	telemetry   telemetry.TelemetryRepository
	variables   variables.VariableStore
	metrics     Metrics
	publisher   events.Publisher
	broadcaster Broadcaster
	rules       RuleEvaluator
	widgets     WidgetGenerator
}

type Option func(*service)

func WithPublisher(p events.Publisher) Option {
	return func(s *service) {
		s.publisher = p
	}
}

func WithBroadcaster(b Broadcaster) Option {
	return func(s *service) {
		s.broadcaster = b
	}
}

func WithRuleEvaluator(r RuleEvaluator) Option {
	return func(s *service) {
		s.rules = r
	}
}

func WithWidgetGenerator(w WidgetGenerator) Option {
	return func(s *service) {
		s.widgets = w
	}
}

func New(cfg Config, deviceRepo devices.DeviceRepository, telemetryRepo telemetry.TelemetryRepository, store variables.VariableStore, m Metrics, opts ...Option) IngestionService {
	if cfg.DefaultOrganization == "" {
		cfg.DefaultOrganization = DefaultOrganizationName
	}

	s := &service{
		cfg:       cfg,
		devices:   deviceRepo,
		telemetry: telemetryRepo,
		variables: store,
		metrics:   m,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

func (s *service) Ingest(ctx context.Context, sample types.TelemetrySample) (result types.IngestResult, err error) {
	ctx, span := tracer.Start(ctx, "ingest-telemetry")
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	_, ctx, logger := logging.AddTraceIDToLoggerAndStoreInContext(span, logging.GetLoggerFromContext(ctx), ctx)

	if sample.DeviceID == "" {
		err = fmt.Errorf("%w: device id is required", ErrInvalidSample)
		return
	}

	if sample.Timestamp.IsZero() {
		err = fmt.Errorf("%w: timestamp is required", ErrInvalidSample)
		return
	}

	logger = logger.With().Str("externalId", sample.DeviceID).Logger()
	ctx = logging.NewContextWithLogger(ctx, logger)

	device, created, err := s.resolveDevice(ctx, sample.DeviceID)
	if err != nil {
		return
	}

	timestamp := sample.Timestamp.UTC()
	wasOnline := device.IsOnline()

	mergeMetadata(&device, sample.Metadata)
	device.Status = devices.StatusOnline
	device.LastSeenAt = &timestamp

	if err = s.devices.Save(ctx, &device); err != nil {
		err = fmt.Errorf("failed to update device: %w", err)
		return
	}

	result = types.IngestResult{
		DeviceID:   device.ID,
		ExternalID: device.ExternalID,
		Created:    created,
		Connected:  !wasOnline,
	}

	if !wasOnline {
		s.publishConnected(ctx, device)
	}

	s.metrics.SetDeviceStatus(device.ExternalID, true)

	if err = s.store(ctx, device, timestamp, sample); err != nil {
		return
	}

	s.updateMetrics(ctx, device, sample.Variables)
	s.broadcast(device, timestamp, sample.Variables)

	if s.rules != nil {
		alerts, ruleErr := s.rules.Evaluate(ctx, device, sample)
		if ruleErr != nil {
			logger.Error().Err(ruleErr).Msg("rule evaluation failed")
		}
		result.Alerts = len(alerts)
	}

	s.generateWidgets(ctx, device, sample.Variables)

	return result, nil
}

func (s *service) resolveDevice(ctx context.Context, externalID string) (devices.Device, bool, error) {
	logger := logging.GetLoggerFromContext(ctx)

	orgName, scoped := auth.OrganizationFromContext(ctx)
	if !scoped {
		orgName = s.cfg.DefaultOrganization
	}

	device, err := s.lookupDevice(ctx, externalID, orgName, scoped)
	if err == nil {
		return device, false, nil
	}

	if !errors.Is(err, devices.ErrDeviceNotFound) {
		return devices.Device{}, false, err
	}

	if !s.cfg.AutoProvision {
		logger.Debug().Msg("unknown device and auto provisioning is disabled")
		return devices.Device{}, false, fmt.Errorf("%w: %s (auto provisioning is disabled)", ErrDeviceNotFound, externalID)
	}

	// organizations are only created together with a provisioned device
	org, err := s.devices.GetOrCreateOrganization(ctx, orgName)
	if err != nil {
		return devices.Device{}, false, fmt.Errorf("failed to resolve organization %s: %w", orgName, err)
	}

	device = devices.Device{
		ExternalID:     externalID,
		OrganizationID: org.ID,
		Organization:   org,
		Name:           externalID,
		Status:         devices.StatusUnknown,
	}

	if err = s.devices.Save(ctx, &device); err != nil {
		// a concurrent ingest may have provisioned the same device
		existing, lookupErr := s.devices.GetDeviceByExternalID(ctx, externalID, org.ID)
		if lookupErr == nil {
			return existing, false, nil
		}
		return devices.Device{}, false, fmt.Errorf("failed to provision device: %w", err)
	}

	logger.Info().Str("organization", org.Name).Msg("auto provisioned new device")

	return device, true, nil
}

// lookupDevice finds a device by external id. Scoped lookups are limited to the named
// organization, and an organization that does not exist yet has no devices.
func (s *service) lookupDevice(ctx context.Context, externalID, orgName string, scoped bool) (devices.Device, error) {
	if !scoped {
		return s.devices.GetDeviceByExternalID(ctx, externalID)
	}

	org, err := s.devices.GetOrganizationByName(ctx, orgName)
	if err != nil {
		if errors.Is(err, devices.ErrOrganizationNotFound) {
			return devices.Device{}, devices.ErrDeviceNotFound
		}
		return devices.Device{}, fmt.Errorf("failed to resolve organization %s: %w", orgName, err)
	}

	return s.devices.GetDeviceByExternalID(ctx, externalID, org.ID)
}

func (s *service) publishConnected(ctx context.Context, device devices.Device) {
	if s.publisher == nil {
		return
	}

	err := s.publisher.Publish(ctx, types.Event{
		Type:           types.EventDeviceConnected,
		OrganizationID: device.OrganizationID,
		EntityID:       device.ExternalID,
		Severity:       types.EventSeverityInfo,
		Title:          "Device Connected: " + device.Name,
		Description:    fmt.Sprintf("Device %s is now online", device.ExternalID),
		Data: map[string]any{
			"deviceId": device.ExternalID,
			"name":     device.Name,
		},
	})
	if err != nil {
		logger := logging.GetLoggerFromContext(ctx)
		logger.Error().Err(err).Msg("failed to publish device connected event")
	}
}

func (s *service) store(ctx context.Context, device devices.Device, timestamp time.Time, sample types.TelemetrySample) error {
	record := telemetry.TelemetryRecord{
		DeviceID:       device.ID,
		OrganizationID: device.OrganizationID,
		Timestamp:      timestamp,
		KwConsumption:  nullable(sample.Variables, types.VariableKwConsumption),
		Voltage:        nullable(sample.Variables, types.VariableVoltage),
		Current:        nullable(sample.Variables, types.VariableCurrent),
		PowerFactor:    nullable(sample.Variables, types.VariablePowerFactor),
		Frequency:      nullable(sample.Variables, types.VariableFrequency),
	}

	if len(sample.Metadata) > 0 {
		b, err := json.Marshal(sample.Metadata)
		if err != nil {
			return fmt.Errorf("%w: metadata could not be encoded", ErrInvalidSample)
		}
		record.Metadata = string(b)
	}

	if err := s.telemetry.AddRecord(ctx, &record); err != nil {
		return fmt.Errorf("failed to store telemetry record: %w", err)
	}

	if _, err := s.variables.Append(ctx, device.OrganizationID, device.ID, timestamp, sample.Variables, sample.Metadata); err != nil {
		return fmt.Errorf("failed to store variable values: %w", err)
	}

	return nil
}

func (s *service) updateMetrics(ctx context.Context, device devices.Device, values map[string]decimal.Decimal) {
	s.metrics.SetLegacy(device.ExternalID, metrics.LegacyValues{
		KwConsumption: valueOrZero(values, types.VariableKwConsumption),
		Voltage:       valueOrZero(values, types.VariableVoltage),
		Current:       valueOrZero(values, types.VariableCurrent),
		PowerFactor:   valueOrZero(values, types.VariablePowerFactor),
		Frequency:     valueOrZero(values, types.VariableFrequency),
	})

	for name, v := range values {
		s.metrics.SetDynamic(ctx, device.ExternalID, name, v.InexactFloat64())
	}
}

func (s *service) broadcast(device devices.Device, timestamp time.Time, values map[string]decimal.Decimal) {
	if s.broadcaster == nil {
		return
	}

	s.broadcaster.BroadcastLegacy(device.OrganizationID, types.LegacyTelemetryMessage{
		DeviceID:    device.ExternalID,
		Timestamp:   timestamp,
		Kw:          nullable(values, types.VariableKwConsumption),
		Voltage:     nullable(values, types.VariableVoltage),
		Current:     nullable(values, types.VariableCurrent),
		PowerFactor: nullable(values, types.VariablePowerFactor),
		Frequency:   nullable(values, types.VariableFrequency),
	})

	s.broadcaster.BroadcastDynamic(device.OrganizationID, types.DynamicTelemetryMessage{
		DeviceID:  device.ExternalID,
		Timestamp: timestamp,
		Variables: values,
	})
}

func (s *service) generateWidgets(ctx context.Context, device devices.Device, values map[string]decimal.Decimal) {
	if s.widgets == nil || device.InitialWidgetsCreated || len(values) == 0 {
		return
	}

	logger := logging.GetLoggerFromContext(ctx)

	if err := s.widgets.GenerateInitialWidgets(ctx, device, lo.Keys(values)); err != nil {
		logger.Error().Err(err).Msg("failed to generate initial widgets")
		return
	}

	if err := s.devices.SetInitialWidgetsCreated(ctx, device.ID); err != nil {
		logger.Error().Err(err).Msg("failed to flag initial widgets as created")
	}
}

func mergeMetadata(device *devices.Device, metadata map[string]any) {
	if v := metadataString(metadata, "location"); v != "" {
		device.Location = v
	}

	if v := metadataString(metadata, "sensor_type", "sensorType"); v != "" {
		device.SensorType = v
	}

	if v := metadataString(metadata, "firmware_version", "firmwareVersion"); v != "" {
		device.FirmwareVersion = v
	}
}

func metadataString(metadata map[string]any, keys ...string) string {
	for _, k := range keys {
		if s, ok := metadata[k].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

func nullable(values map[string]decimal.Decimal, name string) decimal.NullDecimal {
	if v, ok := values[name]; ok {
		return decimal.NewNullDecimal(v)
	}
	return decimal.NullDecimal{}
}

func valueOrZero(values map[string]decimal.Decimal, name string) float64 {
	if v, ok := values[name]; ok {
		return v.InexactFloat64()
	}
	return 0
}
