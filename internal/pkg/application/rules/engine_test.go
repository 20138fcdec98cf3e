package rules

import (
	"context"
	"testing"
	"time"

	"github.com/diwise/iot-telemetry-core/internal/pkg/application/events"
	"github.com/diwise/iot-telemetry-core/internal/pkg/infrastructure/repositories/database"
	"github.com/diwise/iot-telemetry-core/internal/pkg/infrastructure/repositories/database/devices"
	"github.com/diwise/iot-telemetry-core/internal/pkg/infrastructure/repositories/database/rules"
	"github.com/diwise/iot-telemetry-core/pkg/types"
	"github.com/matryer/is"
	"github.com/shopspring/decimal"
)

func TestSeverityBoundaries(t *testing.T) {
	is := is.New(t)

	threshold := decimal.NewFromInt(100)

	is.Equal(rules.SeverityLow, SeverityFor(decimal.NewFromInt(120), threshold))
	is.Equal(rules.SeverityLow, SeverityFor(decimal.NewFromInt(150), threshold))
	is.Equal(rules.SeverityMedium, SeverityFor(decimal.NewFromInt(151), threshold))
	is.Equal(rules.SeverityMedium, SeverityFor(decimal.NewFromInt(200), threshold))
	is.Equal(rules.SeverityHigh, SeverityFor(decimal.NewFromInt(201), threshold))
	is.Equal(rules.SeverityHigh, SeverityFor(decimal.NewFromInt(300), threshold))
	is.Equal(rules.SeverityCritical, SeverityFor(decimal.NewFromInt(301), threshold))
	is.Equal(rules.SeverityCritical, SeverityFor(decimal.NewFromInt(-500), threshold))
}

func TestSeverityIsMonotonic(t *testing.T) {
	is := is.New(t)

	threshold := decimal.NewFromInt(10)
	last := 0

	for v := int64(10); v < 60; v++ {
		rank := SeverityRank(SeverityFor(decimal.NewFromInt(v), threshold))
		is.True(rank >= last)
		last = rank
	}
}

func TestZeroThresholdIsMedium(t *testing.T) {
	is := is.New(t)

	is.Equal(rules.SeverityMedium, SeverityFor(decimal.NewFromInt(1), decimal.Zero))
	is.Equal(rules.SeverityMedium, SeverityFor(decimal.NewFromInt(-1000), decimal.Zero))
}

func TestCompare(t *testing.T) {
	is := is.New(t)

	ten := decimal.NewFromInt(10)
	eleven := decimal.NewFromInt(11)

	check := func(op rules.Operator, v, th decimal.Decimal) bool {
		ok, err := Compare(op, v, th)
		is.NoErr(err)
		return ok
	}

	is.True(check(rules.OperatorGT, eleven, ten))
	is.True(!check(rules.OperatorGT, ten, ten))
	is.True(check(rules.OperatorGTE, ten, ten))
	is.True(check(rules.OperatorLT, ten, eleven))
	is.True(check(rules.OperatorLTE, ten, ten))
	is.True(check(rules.OperatorEQ, decimal.RequireFromString("10.00"), ten))

	_, err := Compare(rules.Operator("NE"), ten, ten)
	is.True(err != nil)
}

func TestEventSeverityMapping(t *testing.T) {
	is := is.New(t)

	is.Equal(types.EventSeverityCritical, EventSeverityFor(rules.SeverityCritical))
	is.Equal(types.EventSeverityError, EventSeverityFor(rules.SeverityHigh))
	is.Equal(types.EventSeverityWarning, EventSeverityFor(rules.SeverityMedium))
	is.Equal(types.EventSeverityInfo, EventSeverityFor(rules.SeverityLow))
}

func TestAlertMessage(t *testing.T) {
	is := is.New(t)

	msg := AlertMessage(rules.Rule{Name: "Overheat", Variable: "temp", Operator: rules.OperatorGTE, Threshold: decimal.NewFromInt(30)}, decimal.RequireFromString("31.5"))
	is.Equal("Rule 'Overheat' triggered: temp ≥ 30 (actual: 31.5)", msg)
}

func TestEvaluateCreatesAlertAndNotifies(t *testing.T) {
	is, ctx, repo, publisher, notifier := testSetup(t)

	rule := saveRule(ctx, is, repo, rules.Rule{DeviceID: 1, OrganizationID: 7, Name: "Overheat", Variable: "temp", Operator: rules.OperatorGT, Threshold: decimal.NewFromInt(100), Enabled: true})

	now := time.Now().UTC()
	e := New(repo, publisher, notifier, WithClock(func() time.Time { return now }))

	alerts, err := e.Evaluate(ctx, testDevice(), sample(map[string]int64{"temp": 151}))
	is.NoErr(err)
	is.Equal(1, len(alerts))

	a := alerts[0]
	is.Equal(rule.ID, a.RuleID)
	is.Equal(rules.SeverityMedium, a.Severity)
	is.Equal("Rule 'Overheat' triggered: temp > 100 (actual: 151)", a.Message)

	is.Equal(2, len(publisher.PublishCalls()))
	is.Equal(types.EventRuleTriggered, publisher.PublishCalls()[0].Event.Type)
	is.Equal(types.EventAlertCreated, publisher.PublishCalls()[1].Event.Type)
	is.Equal(types.EventSeverityWarning, publisher.PublishCalls()[1].Event.Severity)
	is.Equal(uint(7), publisher.PublishCalls()[1].Event.OrganizationID)

	is.Equal(1, len(notifier.NotifyAlertCalls()))
	is.Equal(a.ID, notifier.NotifyAlertCalls()[0].Alert.ID)
}

func TestCooldownSuppressesRepeatedAlerts(t *testing.T) {
	is, ctx, repo, publisher, notifier := testSetup(t)

	rule := saveRule(ctx, is, repo, rules.Rule{DeviceID: 1, Name: "High", Variable: "temp", Operator: rules.OperatorGT, Threshold: decimal.NewFromInt(10), Enabled: true})

	now := time.Now().UTC()
	e := New(repo, publisher, notifier, WithClock(func() time.Time { return now }))

	_, err := e.Evaluate(ctx, testDevice(), sample(map[string]int64{"temp": 20}))
	is.NoErr(err)

	now = now.Add(1 * time.Minute)
	alerts, err := e.Evaluate(ctx, testDevice(), sample(map[string]int64{"temp": 20}))
	is.NoErr(err)
	is.Equal(0, len(alerts))

	stored, _ := repo.GetAlertsForRule(ctx, rule.ID)
	is.Equal(1, len(stored))

	now = now.Add(10 * time.Minute)
	alerts, err = e.Evaluate(ctx, testDevice(), sample(map[string]int64{"temp": 20}))
	is.NoErr(err)
	is.Equal(1, len(alerts))

	stored, _ = repo.GetAlertsForRule(ctx, rule.ID)
	is.Equal(2, len(stored))
}

func TestRulesWithoutMatchingVariableAreSkipped(t *testing.T) {
	is, ctx, repo, publisher, notifier := testSetup(t)

	saveRule(ctx, is, repo, rules.Rule{DeviceID: 1, Name: "no variable", Variable: "", Operator: rules.OperatorGT, Threshold: decimal.NewFromInt(10), Enabled: true})
	saveRule(ctx, is, repo, rules.Rule{DeviceID: 1, Name: "absent", Variable: "pressure", Operator: rules.OperatorGT, Threshold: decimal.NewFromInt(10), Enabled: true})
	saveRule(ctx, is, repo, rules.Rule{DeviceID: 1, Name: "not breached", Variable: "temp", Operator: rules.OperatorLT, Threshold: decimal.NewFromInt(10), Enabled: true})
	saveRule(ctx, is, repo, rules.Rule{DeviceID: 1, Name: "breached", Variable: "temp", Operator: rules.OperatorGT, Threshold: decimal.NewFromInt(10), Enabled: true})

	e := New(repo, publisher, notifier)

	alerts, err := e.Evaluate(ctx, testDevice(), sample(map[string]int64{"temp": 20}))
	is.NoErr(err)
	is.Equal(1, len(alerts))
	is.Equal("breached", alerts[0].Rule.Name)
}

func TestLegacyCamelCaseVariableNames(t *testing.T) {
	is, ctx, repo, publisher, notifier := testSetup(t)

	saveRule(ctx, is, repo, rules.Rule{DeviceID: 1, Name: "consumption", Variable: "kwConsumption", Operator: rules.OperatorGT, Threshold: decimal.NewFromInt(10), Enabled: true})

	e := New(repo, publisher, notifier)

	alerts, err := e.Evaluate(ctx, testDevice(), sample(map[string]int64{"kw_consumption": 50}))
	is.NoErr(err)
	is.Equal(1, len(alerts))
}

func TestNoEnabledRules(t *testing.T) {
	is, ctx, repo, publisher, notifier := testSetup(t)

	e := New(repo, publisher, notifier)

	alerts, err := e.Evaluate(ctx, testDevice(), sample(map[string]int64{"temp": 20}))
	is.NoErr(err)
	is.Equal(0, len(alerts))
	is.Equal(0, len(publisher.PublishCalls()))
}

func testDevice() devices.Device {
	return devices.Device{ID: 1, ExternalID: "meter-01", OrganizationID: 7, Name: "Meter 1"}
}

func sample(values map[string]int64) types.TelemetrySample {
	vars := map[string]decimal.Decimal{}
	for k, v := range values {
		vars[k] = decimal.NewFromInt(v)
	}

	return types.TelemetrySample{
		DeviceID:  "meter-01",
		Timestamp: time.Now().UTC(),
		Variables: vars,
	}
}

func saveRule(ctx context.Context, is *is.I, repo rules.RuleRepository, r rules.Rule) rules.Rule {
	is.NoErr(repo.SaveRule(ctx, &r))
	return r
}

func testSetup(t *testing.T) (*is.I, context.Context, rules.RuleRepository, *events.PublisherMock, *AlertNotifierMock) {
	is := is.New(t)
	ctx := context.Background()

	repo, err := rules.NewRuleRepository(database.NewSQLiteConnector(ctx))
	is.NoErr(err)

	publisher := &events.PublisherMock{
		PublishFunc: func(ctx context.Context, event types.Event) error {
			return nil
		},
	}

	notifier := &AlertNotifierMock{
		NotifyAlertFunc: func(ctx context.Context, alert rules.Alert, device devices.Device) {},
	}

	return is, ctx, repo, publisher, notifier
}
