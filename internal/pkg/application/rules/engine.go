package rules

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/diwise/iot-telemetry-core/internal/pkg/application/events"
	"github.com/diwise/iot-telemetry-core/internal/pkg/infrastructure/logging"
	"github.com/diwise/iot-telemetry-core/internal/pkg/infrastructure/repositories/database/devices"
	"github.com/diwise/iot-telemetry-core/internal/pkg/infrastructure/repositories/database/rules"
	"github.com/diwise/iot-telemetry-core/internal/pkg/infrastructure/tracing"
	"github.com/diwise/iot-telemetry-core/pkg/types"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
)

// CooldownWindow is the minimum time between two alerts for the same rule.
const CooldownWindow = 5 * time.Minute

var tracer = otel.Tracer("iot-telemetry-core/rules")

//go:generate moq -rm -out alertnotifier_mock.go . AlertNotifier

// AlertNotifier delivers a newly created alert to the users of its organization.
type AlertNotifier interface {
	NotifyAlert(ctx context.Context, alert rules.Alert, device devices.Device)
}

type Engine interface {
	Evaluate(ctx context.Context, device devices.Device, sample types.TelemetrySample) ([]rules.Alert, error)
}

type engine struct {
	repo      rules.RuleRepository
	publisher events.Publisher
	notifier  AlertNotifier
	now       func() time.Time
}

type Option func(*engine)

// WithClock replaces the clock used for cooldown checks and alert timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *engine) {
		e.now = now
	}
}

func New(repo rules.RuleRepository, publisher events.Publisher, notifier AlertNotifier, opts ...Option) Engine {
	e := &engine{
		repo:      repo,
		publisher: publisher,
		notifier:  notifier,
		now:       func() time.Time { return time.Now().UTC() },
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

func (e *engine) Evaluate(ctx context.Context, device devices.Device, sample types.TelemetrySample) ([]rules.Alert, error) {
	var err error
	ctx, span := tracer.Start(ctx, "evaluate-rules")
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	enabledRules, err := e.repo.GetEnabledRules(ctx, device.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch rules for device %d: %w", device.ID, err)
	}

	if len(enabledRules) == 0 {
		return nil, nil
	}

	logger := logging.GetLoggerFromContext(ctx).With().Str("externalId", device.ExternalID).Logger()
	ctx = logging.NewContextWithLogger(ctx, logger)

	var alerts []rules.Alert

	for _, rule := range enabledRules {
		alert, triggered, ruleErr := e.evaluateRule(ctx, device, rule, sample)
		if ruleErr != nil {
			logger.Error().Err(ruleErr).Uint("ruleId", rule.ID).Msg("rule evaluation failed")
			continue
		}

		if triggered {
			alerts = append(alerts, alert)
		}
	}

	return alerts, nil
}

func (e *engine) evaluateRule(ctx context.Context, device devices.Device, rule rules.Rule, sample types.TelemetrySample) (rules.Alert, bool, error) {
	logger := logging.GetLoggerFromContext(ctx).With().Str("rule", rule.Name).Logger()

	if rule.Variable == "" {
		logger.Warn().Msg("rule has no variable name, skipping evaluation")
		return rules.Alert{}, false, nil
	}

	value, ok := lookupValue(sample.Variables, rule.Variable)
	if !ok {
		logger.Debug().Str("variable", rule.Variable).Msg("no value for variable in sample")
		return rules.Alert{}, false, nil
	}

	breached, err := Compare(rule.Operator, value, rule.Threshold)
	if err != nil {
		return rules.Alert{}, false, err
	}

	if !breached {
		return rules.Alert{}, false, nil
	}

	now := e.now()

	recent, err := e.repo.HasAlertSince(ctx, rule.ID, now.Add(-CooldownWindow))
	if err != nil {
		return rules.Alert{}, false, err
	}

	if recent {
		logger.Debug().Msg("rule recently triggered, skipping")
		return rules.Alert{}, false, nil
	}

	severity := SeverityFor(value, rule.Threshold)

	alert := rules.Alert{
		RuleID:         rule.ID,
		Rule:           rule,
		DeviceID:       device.ID,
		OrganizationID: device.OrganizationID,
		Message:        AlertMessage(rule, value),
		Severity:       severity,
		TriggeredValue: value,
		TriggeredAt:    now,
	}

	if err := e.repo.AddAlert(ctx, &alert); err != nil {
		return rules.Alert{}, false, fmt.Errorf("failed to store alert: %w", err)
	}

	logger.Info().Str("severity", string(severity)).Msg(alert.Message)

	e.publish(ctx, types.Event{
		Type:           types.EventRuleTriggered,
		OrganizationID: rule.OrganizationID,
		EntityID:       strconv.FormatUint(uint64(rule.ID), 10),
		Severity:       EventSeverityFor(severity),
		Title:          "Rule Triggered: " + rule.Name,
		Description:    alert.Message,
		Data: map[string]any{
			"ruleId":   rule.ID,
			"ruleName": rule.Name,
		},
	})

	e.publish(ctx, types.Event{
		Type:           types.EventAlertCreated,
		OrganizationID: rule.OrganizationID,
		EntityID:       strconv.FormatUint(uint64(alert.ID), 10),
		Severity:       EventSeverityFor(severity),
		Title:          "Alert: " + device.ExternalID,
		Description:    alert.Message,
		Data: map[string]any{
			"alertId":  alert.ID,
			"deviceId": device.ExternalID,
			"severity": string(severity),
		},
	})

	if e.notifier != nil {
		e.notifier.NotifyAlert(ctx, alert, device)
	}

	return alert, true, nil
}

func (e *engine) publish(ctx context.Context, event types.Event) {
	if e.publisher == nil {
		return
	}

	if err := e.publisher.Publish(ctx, event); err != nil {
		logger := logging.GetLoggerFromContext(ctx)
		logger.Error().Err(err).Str("event", event.Type).Msg("failed to publish event")
	}
}

// AlertMessage renders the human readable alert text for a rule breach.
func AlertMessage(rule rules.Rule, value decimal.Decimal) string {
	return fmt.Sprintf("Rule '%s' triggered: %s %s %s (actual: %s)", rule.Name, rule.Variable, Symbol(rule.Operator), rule.Threshold.String(), value.String())
}

var legacyAliases = map[string]string{
	"kwConsumption": types.VariableKwConsumption,
	"powerFactor":   types.VariablePowerFactor,
}

func lookupValue(values map[string]decimal.Decimal, variable string) (decimal.Decimal, bool) {
	if v, ok := values[variable]; ok {
		return v, true
	}

	if alias, ok := legacyAliases[variable]; ok {
		v, ok := values[alias]
		return v, ok
	}

	return decimal.Decimal{}, false
}
