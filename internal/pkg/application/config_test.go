package application

import (
	"strings"
	"testing"
	"time"

	"github.com/matryer/is"
	"github.com/shopspring/decimal"
)

func TestConfig(t *testing.T) {
	is := is.New(t)
	config := strings.NewReader(`
ingestion:
  autoProvision: false
  defaultOrganization: Acme
metrics:
  maxDynamicGauges: 50
notifications:
  email:
    enabled: true
    from: alerts@example.com
  sms:
    enabled: true
    costPerMessage: "0.01"
  webhook:
    timeoutMs: 2500
watchdog:
  offlineAfter: 5m
events:
  notifications:
  - id: alerts
    name: Alert created
    type: ALERT_CREATED
    subscribers:
    - endpoint: http://api-notification:8990
`)
	cfg, err := LoadConfiguration(config)
	is.NoErr(err)

	is.True(!cfg.Ingestion.Enabled())
	is.Equal("Acme", cfg.Ingestion.DefaultOrganization)
	is.Equal(50, cfg.Metrics.MaxDynamicGauges)
	is.True(cfg.Notifications.Email.Enabled)
	is.Equal("alerts@example.com", cfg.Notifications.Email.From)
	is.True(cfg.Notifications.Sms.Cost().Equal(decimal.RequireFromString("0.01")))
	is.Equal(2500*time.Millisecond, cfg.Notifications.Webhook.Timeout())
	is.Equal(5*time.Minute, cfg.Watchdog.OfflineAfter)
	is.Equal(DefaultWatchdogInterval, cfg.Watchdog.Interval)
	is.Equal(1, len(cfg.Events.Notifications))
	is.Equal("ALERT_CREATED", cfg.Events.Notifications[0].Type)
}

func TestMissingKeysGetDefaults(t *testing.T) {
	is := is.New(t)

	cfg, err := LoadConfiguration(strings.NewReader(""))
	is.NoErr(err)

	is.True(cfg.Ingestion.Enabled())
	is.Equal(DefaultOrganization, cfg.Ingestion.DefaultOrganization)
	is.Equal(1000, cfg.Metrics.MaxDynamicGauges)
	is.True(!cfg.Notifications.Sms.Enabled)
	is.True(cfg.Notifications.Sms.Cost().Equal(decimal.RequireFromString("0.00645")))
	is.True(cfg.Notifications.Sms.MonthlyBudget().Equal(decimal.NewFromInt(50)))
	is.Equal(100, cfg.Notifications.Sms.DefaultDailyLimit)
	is.Equal(80, cfg.Notifications.Sms.AlertThresholdPercent)
	is.Equal(5*time.Second, cfg.Notifications.Webhook.Timeout())
	is.Equal(15*time.Minute, cfg.Watchdog.OfflineAfter)
}

func TestInvalidMoneyIsRejected(t *testing.T) {
	is := is.New(t)

	_, err := LoadConfiguration(strings.NewReader(`
notifications:
  sms:
    costPerMessage: cheap
`))
	is.True(err != nil)
}
