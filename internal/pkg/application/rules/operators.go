package rules

import (
	"fmt"

	"github.com/diwise/iot-telemetry-core/internal/pkg/infrastructure/repositories/database/rules"
	"github.com/diwise/iot-telemetry-core/pkg/types"
	"github.com/shopspring/decimal"
)

func Symbol(op rules.Operator) string {
	switch op {
	case rules.OperatorGT:
		return ">"
	case rules.OperatorGTE:
		return "≥"
	case rules.OperatorLT:
		return "<"
	case rules.OperatorLTE:
		return "≤"
	case rules.OperatorEQ:
		return "="
	}
	return string(op)
}

// Compare evaluates value <op> threshold.
func Compare(op rules.Operator, value, threshold decimal.Decimal) (bool, error) {
	switch op {
	case rules.OperatorGT:
		return value.GreaterThan(threshold), nil
	case rules.OperatorGTE:
		return value.GreaterThanOrEqual(threshold), nil
	case rules.OperatorLT:
		return value.LessThan(threshold), nil
	case rules.OperatorLTE:
		return value.LessThanOrEqual(threshold), nil
	case rules.OperatorEQ:
		return value.Equal(threshold), nil
	}
	return false, fmt.Errorf("unknown operator %q", op)
}

var (
	halfDeviation   = decimal.RequireFromString("0.5")
	singleDeviation = decimal.NewFromInt(1)
	doubleDeviation = decimal.NewFromInt(2)
)

// SeverityFor grades a breach by its deviation from the threshold, |value - threshold| / |threshold|.
// A zero threshold is always MEDIUM.
func SeverityFor(value, threshold decimal.Decimal) rules.Severity {
	if threshold.IsZero() {
		return rules.SeverityMedium
	}

	deviation := value.Sub(threshold).Abs().DivRound(threshold.Abs(), 4)

	switch {
	case deviation.GreaterThan(doubleDeviation):
		return rules.SeverityCritical
	case deviation.GreaterThan(singleDeviation):
		return rules.SeverityHigh
	case deviation.GreaterThan(halfDeviation):
		return rules.SeverityMedium
	}

	return rules.SeverityLow
}

func EventSeverityFor(severity rules.Severity) string {
	switch severity {
	case rules.SeverityCritical:
		return types.EventSeverityCritical
	case rules.SeverityHigh:
		return types.EventSeverityError
	case rules.SeverityMedium:
		return types.EventSeverityWarning
	}
	return types.EventSeverityInfo
}

// SeverityRank orders severities from LOW (1) to CRITICAL (4). Unknown values rank as LOW.
func SeverityRank(severity rules.Severity) int {
	switch severity {
	case rules.SeverityCritical:
		return 4
	case rules.SeverityHigh:
		return 3
	case rules.SeverityMedium:
		return 2
	}
	return 1
}
