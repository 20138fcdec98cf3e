package notifications

import (
	"context"
	"fmt"
	"time"

	engine "github.com/diwise/iot-telemetry-core/internal/pkg/application/rules"
	"github.com/diwise/iot-telemetry-core/internal/pkg/infrastructure/logging"
	"github.com/diwise/iot-telemetry-core/internal/pkg/infrastructure/repositories/database/devices"
	nr "github.com/diwise/iot-telemetry-core/internal/pkg/infrastructure/repositories/database/notifications"
	"github.com/diwise/iot-telemetry-core/internal/pkg/infrastructure/repositories/database/rules"
	"github.com/samber/lo"
)

// AlertContext is everything a channel needs to render an alert.
type AlertContext struct {
	Alert  rules.Alert
	Rule   rules.Rule
	Device devices.Device
}

//go:generate moq -rm -out channel_mock.go . Channel

// Channel delivers an alert to a single user through one medium. Implementations never
// return errors, a failed delivery is reported as false.
type Channel interface {
	Send(ctx context.Context, user devices.User, alert AlertContext, pref nr.NotificationPreference) bool
}

type Dispatcher interface {
	NotifyAlert(ctx context.Context, alert rules.Alert, device devices.Device)
	Send(ctx context.Context, user devices.User, alert AlertContext, pref nr.NotificationPreference) bool
}

type dispatcher struct {
	users    devices.DeviceRepository
	repo     nr.NotificationRepository
	sms      SmsService
	channels map[nr.Channel]Channel
	now      func() time.Time
}

// NewDispatcher creates a dispatcher from an explicit channel table. The SmsService, if not nil, is
// used for rule level SMS recipients in addition to the user preferences.
func NewDispatcher(users devices.DeviceRepository, repo nr.NotificationRepository, sms SmsService, channels map[nr.Channel]Channel) Dispatcher {
	return &dispatcher{
		users:    users,
		repo:     repo,
		sms:      sms,
		channels: channels,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (d *dispatcher) NotifyAlert(ctx context.Context, alert rules.Alert, device devices.Device) {
	logger := logging.GetLoggerFromContext(ctx).With().Uint("alertId", alert.ID).Logger()
	ctx = logging.NewContextWithLogger(ctx, logger)

	ac := AlertContext{
		Alert:  alert,
		Rule:   alert.Rule,
		Device: device,
	}

	users, err := d.users.GetUsers(ctx, device.OrganizationID)
	if err != nil {
		logger.Error().Err(err).Msg("failed to fetch users for organization")
		return
	}

	for _, user := range users {
		prefs, err := d.repo.GetPreferences(ctx, user.ID)
		if err != nil {
			logger.Error().Err(err).Str("username", user.Username).Msg("failed to fetch notification preferences")
			continue
		}

		enabled := lo.Filter(prefs, func(p nr.NotificationPreference, _ int) bool {
			return p.Enabled
		})

		for _, pref := range enabled {
			if engine.SeverityRank(alert.Severity) < engine.SeverityRank(rules.Severity(pref.MinSeverity)) {
				logger.Debug().Str("username", user.Username).Str("minSeverity", pref.MinSeverity).Msg("alert severity below user threshold")
				continue
			}

			if !pref.Immediate() {
				logger.Debug().Str("username", user.Username).Str("channel", string(pref.Channel)).Msg("preference not set for immediate delivery")
				continue
			}

			d.Send(ctx, user, ac, pref)
		}
	}

	d.sendRuleSms(ctx, ac)
}

func (d *dispatcher) Send(ctx context.Context, user devices.User, alert AlertContext, pref nr.NotificationPreference) bool {
	logger := logging.GetLoggerFromContext(ctx).With().Str("channel", string(pref.Channel)).Logger()

	var ok bool
	var errMsg string

	ch, found := d.channels[pref.Channel]
	if !found {
		errMsg = fmt.Sprintf("no handler registered for channel %s", pref.Channel)
		logger.Warn().Msg(errMsg)
	} else {
		ok, errMsg = invoke(logging.NewContextWithLogger(ctx, logger), ch, user, alert, pref)
	}

	d.record(ctx, user, alert, pref, ok, errMsg)

	return ok
}

func invoke(ctx context.Context, ch Channel, user devices.User, alert AlertContext, pref nr.NotificationPreference) (ok bool, errMsg string) {
	defer func() {
		if r := recover(); r != nil {
			logger := logging.GetLoggerFromContext(ctx)
			logger.Error().Str("username", user.Username).Msgf("channel panicked: %v", r)
			ok = false
			errMsg = fmt.Sprintf("%v", r)
		}
	}()

	return ch.Send(ctx, user, alert, pref), ""
}

func (d *dispatcher) record(ctx context.Context, user devices.User, alert AlertContext, pref nr.NotificationPreference, ok bool, errMsg string) {
	entry := nr.NotificationLog{
		AlertID:      alert.Alert.ID,
		UserID:       user.ID,
		Channel:      pref.Channel,
		Destination:  lo.Ternary(pref.Destination != "", pref.Destination, user.Email),
		Subject:      "Alert: " + alert.Rule.Name,
		Message:      alert.Alert.Message,
		Status:       lo.Ternary(ok, nr.StatusSent, nr.StatusFailed),
		ErrorMessage: errMsg,
	}

	if ok {
		entry.SentAt = d.now()
	}

	if err := d.repo.AddNotificationLog(ctx, &entry); err != nil {
		logger := logging.GetLoggerFromContext(ctx)
		logger.Error().Err(err).Msg("failed to store notification log")
	}
}

func (d *dispatcher) sendRuleSms(ctx context.Context, alert AlertContext) {
	if !alert.Rule.SendSms || d.sms == nil {
		return
	}

	logger := logging.GetLoggerFromContext(ctx)

	recipients := alert.Rule.Recipients()
	if len(recipients) == 0 {
		logger.Warn().Uint("ruleId", alert.Rule.ID).Msg("rule has sms enabled but no recipients")
		return
	}

	if !d.sms.Enabled() {
		logger.Warn().Msg("sms notifications disabled, skipping rule recipients")
		return
	}

	sent := 0
	for _, phone := range recipients {
		if entry := d.sms.SendAlert(ctx, alert, phone); !entry.Failed() {
			sent++
		}
	}

	logger.Info().Int("recipients", len(recipients)).Int("sent", sent).Msg("rule based sms notifications processed")
}
