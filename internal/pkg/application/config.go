package application

import (
	"fmt"
	"io"
	"time"

	"github.com/diwise/iot-telemetry-core/internal/pkg/application/events"
	"github.com/shopspring/decimal"
	yaml "gopkg.in/yaml.v2"
)

const (
	DefaultOrganization      string        = "Default Organization"
	DefaultMaxDynamicGauges  int           = 1000
	DefaultWebhookTimeoutMs  int           = 5000
	DefaultOfflineAfter      time.Duration = 15 * time.Minute
	DefaultWatchdogInterval  time.Duration = 1 * time.Minute
	DefaultWatchdogWorkers   int           = 2
	DefaultSmsCost           string        = "0.00645"
	DefaultSmsMonthlyBudget  string        = "50.00"
	DefaultSmsDailyLimit     int           = 100
	DefaultSmsAlertThreshold int           = 80
)

type IngestionConfig struct {
	AutoProvision       *bool  `yaml:"autoProvision"`
	DefaultOrganization string `yaml:"defaultOrganization"`
}

// Enabled reports whether unknown devices should be provisioned on first contact.
func (c IngestionConfig) Enabled() bool {
	return c.AutoProvision == nil || *c.AutoProvision
}

type MetricsConfig struct {
	MaxDynamicGauges int `yaml:"maxDynamicGauges"`
}

type EmailConfig struct {
	Enabled bool   `yaml:"enabled"`
	From    string `yaml:"from"`
}

type SmsConfig struct {
	Enabled               bool   `yaml:"enabled"`
	CostPerMessage        string `yaml:"costPerMessage"`
	DefaultDailyLimit     int    `yaml:"defaultDailyLimit"`
	DefaultMonthlyBudget  string `yaml:"defaultMonthlyBudget"`
	AlertThresholdPercent int    `yaml:"alertThresholdPercent"`
}

func (c SmsConfig) Cost() decimal.Decimal {
	return decimal.RequireFromString(c.CostPerMessage)
}

func (c SmsConfig) MonthlyBudget() decimal.Decimal {
	return decimal.RequireFromString(c.DefaultMonthlyBudget)
}

type WebhookConfig struct {
	TimeoutMs int `yaml:"timeoutMs"`
}

func (c WebhookConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutMs) * time.Millisecond
}

type NotificationsConfig struct {
	Email   EmailConfig   `yaml:"email"`
	Sms     SmsConfig     `yaml:"sms"`
	Webhook WebhookConfig `yaml:"webhook"`
}

type WatchdogConfig struct {
	OfflineAfter time.Duration `yaml:"offlineAfter"`
	Interval     time.Duration `yaml:"interval"`
	Workers      int           `yaml:"workers"`
}

type Config struct {
	Ingestion     IngestionConfig     `yaml:"ingestion"`
	Metrics       MetricsConfig       `yaml:"metrics"`
	Notifications NotificationsConfig `yaml:"notifications"`
	Watchdog      WatchdogConfig      `yaml:"watchdog"`
	Events        events.Config       `yaml:"events"`
}

func LoadConfiguration(data io.Reader) (*Config, error) {
	buf, err := io.ReadAll(data)
	if err != nil {
		return nil, err
	}

	cfg := Config{}
	if err := yaml.Unmarshal(buf, &cfg); err != nil {
		return nil, err
	}

	if err := cfg.applyDefaults(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// DefaultConfig is used when the service is started without a config file.
func DefaultConfig() *Config {
	cfg := Config{}
	cfg.applyDefaults()
	return &cfg
}

func (c *Config) applyDefaults() error {
	if c.Ingestion.DefaultOrganization == "" {
		c.Ingestion.DefaultOrganization = DefaultOrganization
	}

	if c.Metrics.MaxDynamicGauges <= 0 {
		c.Metrics.MaxDynamicGauges = DefaultMaxDynamicGauges
	}

	sms := &c.Notifications.Sms
	if sms.CostPerMessage == "" {
		sms.CostPerMessage = DefaultSmsCost
	}
	if sms.DefaultMonthlyBudget == "" {
		sms.DefaultMonthlyBudget = DefaultSmsMonthlyBudget
	}
	if sms.DefaultDailyLimit <= 0 {
		sms.DefaultDailyLimit = DefaultSmsDailyLimit
	}
	if sms.AlertThresholdPercent <= 0 {
		sms.AlertThresholdPercent = DefaultSmsAlertThreshold
	}

	if _, err := decimal.NewFromString(sms.CostPerMessage); err != nil {
		return fmt.Errorf("invalid notifications.sms.costPerMessage %q: %w", sms.CostPerMessage, err)
	}
	if _, err := decimal.NewFromString(sms.DefaultMonthlyBudget); err != nil {
		return fmt.Errorf("invalid notifications.sms.defaultMonthlyBudget %q: %w", sms.DefaultMonthlyBudget, err)
	}

	if c.Notifications.Webhook.TimeoutMs <= 0 {
		c.Notifications.Webhook.TimeoutMs = DefaultWebhookTimeoutMs
	}

	if c.Watchdog.OfflineAfter <= 0 {
		c.Watchdog.OfflineAfter = DefaultOfflineAfter
	}
	if c.Watchdog.Interval <= 0 {
		c.Watchdog.Interval = DefaultWatchdogInterval
	}
	if c.Watchdog.Workers <= 0 {
		c.Watchdog.Workers = DefaultWatchdogWorkers
	}

	return nil
}
