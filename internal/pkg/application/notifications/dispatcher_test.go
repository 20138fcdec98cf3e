package notifications

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/diwise/iot-telemetry-core/internal/pkg/infrastructure/repositories/database"
	"github.com/diwise/iot-telemetry-core/internal/pkg/infrastructure/repositories/database/devices"
	nr "github.com/diwise/iot-telemetry-core/internal/pkg/infrastructure/repositories/database/notifications"
	"github.com/diwise/iot-telemetry-core/internal/pkg/infrastructure/repositories/database/rules"
	"github.com/matryer/is"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

func TestNotifyAlertUsesEnabledPreferences(t *testing.T) {
	is, ctx, deviceRepo, repo := testSetup(t)

	org, user := seedUser(ctx, is, deviceRepo, "alice")

	is.NoErr(repo.SavePreference(ctx, &nr.NotificationPreference{UserID: user.ID, Channel: nr.ChannelEmail, Enabled: true}))
	is.NoErr(repo.SavePreference(ctx, &nr.NotificationPreference{UserID: user.ID, Channel: nr.ChannelWebhook, Destination: "https://example.com/hook"}))
	is.NoErr(repo.SavePreference(ctx, &nr.NotificationPreference{UserID: user.ID, Channel: nr.ChannelSMS, Destination: "+46701234567", Enabled: true, MinSeverity: "CRITICAL"}))
	is.NoErr(repo.SavePreference(ctx, &nr.NotificationPreference{UserID: user.ID, Channel: nr.ChannelInApp, Enabled: true}))

	email, sms, webhook, inapp := okChannel(), okChannel(), okChannel(), okChannel()

	d := NewDispatcher(deviceRepo, repo, nil, map[nr.Channel]Channel{
		nr.ChannelEmail:   email,
		nr.ChannelSMS:     sms,
		nr.ChannelWebhook: webhook,
		nr.ChannelInApp:   inapp,
	})

	alert, device := testAlert(org.ID, rules.SeverityMedium)
	d.NotifyAlert(ctx, alert, device)

	is.Equal(1, len(email.SendCalls()))
	is.Equal(0, len(sms.SendCalls()))     // below min severity
	is.Equal(0, len(webhook.SendCalls())) // disabled
	is.Equal(1, len(inapp.SendCalls()))
	is.Equal("Overheat", email.SendCalls()[0].Alert.Rule.Name)

	logs, err := repo.GetNotificationLogs(ctx, alert.ID)
	is.NoErr(err)
	is.Equal(2, len(logs))
	is.Equal(nr.StatusSent, logs[0].Status)
	is.Equal("alice@example.com", logs[0].Destination)
	is.Equal("Alert: Overheat", logs[0].Subject)
}

func TestNotifyAlertSkipsDigestPreferences(t *testing.T) {
	is, ctx, deviceRepo, repo := testSetup(t)

	org, user := seedUser(ctx, is, deviceRepo, "carol")

	is.NoErr(repo.SavePreference(ctx, &nr.NotificationPreference{UserID: user.ID, Channel: nr.ChannelEmail, Enabled: true, ImmediateDelivery: lo.ToPtr(false)}))
	is.NoErr(repo.SavePreference(ctx, &nr.NotificationPreference{UserID: user.ID, Channel: nr.ChannelInApp, Enabled: true}))

	prefs, err := repo.GetPreferences(ctx, user.ID)
	is.NoErr(err)
	is.Equal(2, len(prefs))
	is.True(!prefs[0].Immediate())
	is.True(prefs[1].Immediate()) // unset means immediate

	email, inapp := okChannel(), okChannel()

	d := NewDispatcher(deviceRepo, repo, nil, map[nr.Channel]Channel{
		nr.ChannelEmail: email,
		nr.ChannelInApp: inapp,
	})

	alert, device := testAlert(org.ID, rules.SeverityHigh)
	d.NotifyAlert(ctx, alert, device)

	is.Equal(0, len(email.SendCalls()))
	is.Equal(1, len(inapp.SendCalls()))
}

func TestChannelFailuresAreIsolated(t *testing.T) {
	is, ctx, deviceRepo, repo := testSetup(t)

	org, user := seedUser(ctx, is, deviceRepo, "bob")

	is.NoErr(repo.SavePreference(ctx, &nr.NotificationPreference{UserID: user.ID, Channel: nr.ChannelEmail, Enabled: true}))
	is.NoErr(repo.SavePreference(ctx, &nr.NotificationPreference{UserID: user.ID, Channel: nr.ChannelWebhook, Destination: "https://example.com/hook", Enabled: true}))
	is.NoErr(repo.SavePreference(ctx, &nr.NotificationPreference{UserID: user.ID, Channel: nr.ChannelInApp, Enabled: true}))

	panicking := &ChannelMock{
		SendFunc: func(ctx context.Context, user devices.User, alert AlertContext, pref nr.NotificationPreference) bool {
			panic("smtp exploded")
		},
	}
	failing := &ChannelMock{
		SendFunc: func(ctx context.Context, user devices.User, alert AlertContext, pref nr.NotificationPreference) bool {
			return false
		},
	}
	inapp := okChannel()

	d := NewDispatcher(deviceRepo, repo, nil, map[nr.Channel]Channel{
		nr.ChannelEmail:   panicking,
		nr.ChannelWebhook: failing,
		nr.ChannelInApp:   inapp,
	})

	alert, device := testAlert(org.ID, rules.SeverityHigh)
	d.NotifyAlert(ctx, alert, device)

	is.Equal(1, len(inapp.SendCalls()))

	logs, _ := repo.GetNotificationLogs(ctx, alert.ID)
	is.Equal(3, len(logs))

	is.Equal(nr.ChannelEmail, logs[0].Channel)
	is.Equal(nr.StatusFailed, logs[0].Status)
	is.Equal("smtp exploded", logs[0].ErrorMessage)

	is.Equal(nr.ChannelWebhook, logs[1].Channel)
	is.Equal(nr.StatusFailed, logs[1].Status)

	is.Equal(nr.StatusSent, logs[2].Status)
}

func TestSendToUnregisteredChannelFails(t *testing.T) {
	is, ctx, deviceRepo, repo := testSetup(t)

	_, user := seedUser(ctx, is, deviceRepo, "carol")

	d := NewDispatcher(deviceRepo, repo, nil, map[nr.Channel]Channel{})

	alert, device := testAlert(user.OrganizationID, rules.SeverityLow)
	ok := d.Send(ctx, user, AlertContext{Alert: alert, Rule: alert.Rule, Device: device}, nr.NotificationPreference{Channel: nr.ChannelWebhook, Enabled: true})
	is.True(!ok)

	logs, _ := repo.GetNotificationLogs(ctx, alert.ID)
	is.Equal(1, len(logs))
	is.True(strings.Contains(logs[0].ErrorMessage, "WEBHOOK"))
}

func TestRuleRecipientsReceiveSms(t *testing.T) {
	is, ctx, deviceRepo, repo := testSetup(t)

	org, _ := seedUser(ctx, is, deviceRepo, "dave")

	provider := &SmsProviderMock{
		SendFunc: func(ctx context.Context, phoneNumber string, message string) (string, error) {
			return "msg-" + phoneNumber, nil
		},
	}

	svc := NewSmsService(SmsConfig{Enabled: true}, repo, deviceRepo, provider)
	d := NewDispatcher(deviceRepo, repo, svc, DefaultChannels(NewEmailChannel(false, nil), svc, NewWebhookChannel(0)))

	alert, device := testAlert(org.ID, rules.SeverityCritical)
	alert.Rule.SendSms = true
	alert.Rule.SmsRecipients = "+46701111111, +46702222222"

	d.NotifyAlert(ctx, alert, device)

	is.Equal(2, len(provider.SendCalls()))
	is.Equal("+46702222222", provider.SendCalls()[1].PhoneNumber)

	sent, err := repo.GetSmsDeliveryLogs(ctx, alert.ID)
	is.NoErr(err)
	is.Equal(2, len(sent))
	is.Equal(nr.StatusSent, sent[0].Status)
	is.Equal("msg-+46701111111", sent[0].MessageID)
}

func TestDisabledEmailCountsAsSuccess(t *testing.T) {
	is := is.New(t)

	sender := &EmailSenderMock{
		SendFunc: func(ctx context.Context, to []string, subject string, body string) error {
			return nil
		},
	}

	alert, device := testAlert(1, rules.SeverityHigh)
	ac := AlertContext{Alert: alert, Rule: alert.Rule, Device: device}

	ok := NewEmailChannel(false, sender).Send(context.Background(), devices.User{Email: "x@example.com"}, ac, nr.NotificationPreference{})
	is.True(ok)
	is.Equal(0, len(sender.SendCalls()))
}

func TestEmailDefaultsToAccountAddress(t *testing.T) {
	is := is.New(t)

	sender := &EmailSenderMock{
		SendFunc: func(ctx context.Context, to []string, subject string, body string) error {
			return nil
		},
	}

	alert, device := testAlert(1, rules.SeverityHigh)
	ac := AlertContext{Alert: alert, Rule: alert.Rule, Device: device}
	ch := NewEmailChannel(true, sender)

	is.True(ch.Send(context.Background(), devices.User{Email: "user@example.com"}, ac, nr.NotificationPreference{}))
	is.True(ch.Send(context.Background(), devices.User{Email: "user@example.com"}, ac, nr.NotificationPreference{Destination: "ops@example.com"}))

	calls := sender.SendCalls()
	is.Equal(2, len(calls))
	is.Equal("user@example.com", calls[0].To[0])
	is.Equal("ops@example.com", calls[1].To[0])
	is.Equal("[HIGH] Alert: Overheat", calls[0].Subject)
	is.True(strings.Contains(calls[0].Body, "Meter 1"))
}

func TestEmailSenderErrorIsFailure(t *testing.T) {
	is := is.New(t)

	sender := &EmailSenderMock{
		SendFunc: func(ctx context.Context, to []string, subject string, body string) error {
			return errors.New("connection refused")
		},
	}

	alert, device := testAlert(1, rules.SeverityHigh)
	ok := NewEmailChannel(true, sender).Send(context.Background(), devices.User{Email: "user@example.com"}, AlertContext{Alert: alert, Rule: alert.Rule, Device: device}, nr.NotificationPreference{})
	is.True(!ok)
}

func okChannel() *ChannelMock {
	return &ChannelMock{
		SendFunc: func(ctx context.Context, user devices.User, alert AlertContext, pref nr.NotificationPreference) bool {
			return true
		},
	}
}

func testAlert(orgID uint, severity rules.Severity) (rules.Alert, devices.Device) {
	rule := rules.Rule{
		ID:             1,
		DeviceID:       1,
		OrganizationID: orgID,
		Name:           "Overheat",
		Variable:       "temp",
		Operator:       rules.OperatorGT,
		Threshold:      decimal.NewFromInt(100),
		Enabled:        true,
	}

	alert := rules.Alert{
		ID:             42,
		RuleID:         rule.ID,
		Rule:           rule,
		DeviceID:       1,
		OrganizationID: orgID,
		Message:        "Rule 'Overheat' triggered: temp > 100 (actual: 151)",
		Severity:       severity,
		TriggeredValue: decimal.NewFromInt(151),
		TriggeredAt:    time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	}

	device := devices.Device{ID: 1, ExternalID: "meter-01", Name: "Meter 1", OrganizationID: orgID, Location: "Basement"}

	return alert, device
}

func seedUser(ctx context.Context, is *is.I, repo devices.DeviceRepository, username string) (devices.Organization, devices.User) {
	org, err := repo.GetOrCreateOrganization(ctx, "Acme")
	is.NoErr(err)

	user := devices.User{OrganizationID: org.ID, Username: username, Email: username + "@example.com", Admin: true}
	is.NoErr(repo.SaveUser(ctx, &user))

	return org, user
}

func testSetup(t *testing.T) (*is.I, context.Context, devices.DeviceRepository, nr.NotificationRepository) {
	is := is.New(t)
	ctx := context.Background()

	connect := database.NewSQLiteConnector(ctx)

	deviceRepo, err := devices.NewDeviceRepository(connect)
	is.NoErr(err)

	repo, err := nr.NewNotificationRepository(connect)
	is.NoErr(err)

	return is, ctx, deviceRepo, repo
}
