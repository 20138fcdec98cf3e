package notifications

import (
	"context"
	"fmt"
	"strings"

	"github.com/diwise/iot-telemetry-core/internal/pkg/infrastructure/logging"
	"github.com/diwise/iot-telemetry-core/internal/pkg/infrastructure/repositories/database/devices"
	nr "github.com/diwise/iot-telemetry-core/internal/pkg/infrastructure/repositories/database/notifications"
	"github.com/samber/lo"
)

//go:generate moq -rm -out emailsender_mock.go . EmailSender

type EmailSender interface {
	Send(ctx context.Context, to []string, subject, body string) error
}

type EmailChannel interface {
	Channel
	BudgetAlerter
}

type emailChannel struct {
	enabled bool
	sender  EmailSender
}

// NewEmailChannel returns the email strategy. A disabled channel reports every send as successful
// without contacting the sender.
func NewEmailChannel(enabled bool, sender EmailSender) EmailChannel {
	return &emailChannel{
		enabled: enabled && sender != nil,
		sender:  sender,
	}
}

func (e *emailChannel) Send(ctx context.Context, user devices.User, alert AlertContext, pref nr.NotificationPreference) bool {
	logger := logging.GetLoggerFromContext(ctx)

	if !e.enabled {
		logger.Debug().Msg("email notifications disabled")
		return true
	}

	to := lo.Ternary(pref.Destination != "", pref.Destination, user.Email)
	if to == "" {
		logger.Warn().Str("username", user.Username).Msg("no email address for user")
		return false
	}

	subject := fmt.Sprintf("[%s] Alert: %s", alert.Alert.Severity, alert.Rule.Name)

	if err := e.sender.Send(ctx, []string{to}, subject, alertEmailBody(alert)); err != nil {
		logger.Error().Err(err).Str("to", to).Msg("failed to send alert email")
		return false
	}

	return true
}

func (e *emailChannel) SendBudgetThresholdAlert(ctx context.Context, org devices.Organization, admins []devices.User, budget nr.OrganizationSmsBudget) bool {
	logger := logging.GetLoggerFromContext(ctx)

	if !e.enabled {
		return true
	}

	to := lo.FilterMap(admins, func(u devices.User, _ int) (string, bool) {
		return u.Email, u.Email != ""
	})

	if len(to) == 0 {
		logger.Warn().Uint("organizationId", org.ID).Msg("no admin email addresses for budget alert")
		return false
	}

	subject := fmt.Sprintf("SMS budget alert: %d%% of monthly budget used", budget.BudgetThresholdPercentage)

	b := strings.Builder{}
	fmt.Fprintf(&b, "Organization %s has used %d%% of its monthly SMS budget.\n\n", org.Name, budget.BudgetThresholdPercentage)
	fmt.Fprintf(&b, "Messages this month: %d\n", budget.CurrentMonthCount)
	fmt.Fprintf(&b, "Cost this month: $%s\n", budget.CurrentMonthCost.StringFixed(2))
	fmt.Fprintf(&b, "Monthly budget: $%s\n", budget.MonthlyBudget.StringFixed(2))

	if err := e.sender.Send(ctx, to, subject, b.String()); err != nil {
		logger.Error().Err(err).Msg("failed to send budget threshold email")
		return false
	}

	return true
}

func alertEmailBody(alert AlertContext) string {
	b := strings.Builder{}

	fmt.Fprintf(&b, "Alert triggered for device %s (%s)\n\n", deviceName(alert.Device), alert.Device.ExternalID)
	fmt.Fprintf(&b, "Severity: %s\n", alert.Alert.Severity)
	fmt.Fprintf(&b, "Rule: %s\n", alert.Rule.Name)
	fmt.Fprintf(&b, "Message: %s\n", alert.Alert.Message)
	fmt.Fprintf(&b, "Value: %s\n", alert.Alert.TriggeredValue.String())
	fmt.Fprintf(&b, "Triggered at: %s\n", alert.Alert.TriggeredAt.Format(timestampFormat))

	if alert.Device.Location != "" {
		fmt.Fprintf(&b, "Location: %s\n", alert.Device.Location)
	}

	return b.String()
}

func deviceName(d devices.Device) string {
	return lo.Ternary(d.Name != "", d.Name, d.ExternalID)
}
