package notifications

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/diwise/iot-telemetry-core/internal/pkg/infrastructure/logging"
	"github.com/diwise/iot-telemetry-core/internal/pkg/infrastructure/repositories/database/devices"
	nr "github.com/diwise/iot-telemetry-core/internal/pkg/infrastructure/repositories/database/notifications"
	"github.com/shopspring/decimal"
)

const (
	ErrCodeDailyLimitExceeded = "DAILY_LIMIT_EXCEEDED"
	ErrCodeBudgetExceeded     = "BUDGET_EXCEEDED"
	ErrCodeSmsDisabled        = "SMS_DISABLED"
	ErrCodeProviderError      = "SNS_ERROR"
	ErrCodeSystemError        = "SYSTEM_ERROR"
)

// MaxSmsLength keeps a message within a single SMS segment.
const MaxSmsLength = 160

const (
	DefaultDailyLimit            = 100
	DefaultAlertThresholdPercent = 80
)

var (
	DefaultCostPerMessage = decimal.RequireFromString("0.00645")
	DefaultMonthlyBudget  = decimal.RequireFromString("50.00")
)

//go:generate moq -rm -out smsprovider_mock.go . SmsProvider

// SmsProvider sends a text message through a carrier and returns the carrier message id.
type SmsProvider interface {
	Send(ctx context.Context, phoneNumber, message string) (string, error)
}

//go:generate moq -rm -out budgetalerter_mock.go . BudgetAlerter

type BudgetAlerter interface {
	SendBudgetThresholdAlert(ctx context.Context, org devices.Organization, admins []devices.User, budget nr.OrganizationSmsBudget) bool
}

type SmsMetrics interface {
	SmsSent(organizationID string)
	SmsFailed(organizationID string)
}

type SmsConfig struct {
	Enabled               bool
	CostPerMessage        decimal.Decimal
	DefaultDailyLimit     int
	DefaultMonthlyBudget  decimal.Decimal
	AlertThresholdPercent int
}

type SmsService interface {
	Enabled() bool
	SendAlert(ctx context.Context, alert AlertContext, phoneNumber string) nr.SmsDeliveryLog
}

type smsService struct {
	cfg      SmsConfig
	repo     nr.NotificationRepository
	devices  devices.DeviceRepository
	provider SmsProvider
	alerter  BudgetAlerter
	metrics  SmsMetrics
	now      func() time.Time
}

type SmsOption func(*smsService)

func WithSmsClock(now func() time.Time) SmsOption {
	return func(s *smsService) {
		s.now = now
	}
}

func WithBudgetAlerter(alerter BudgetAlerter) SmsOption {
	return func(s *smsService) {
		s.alerter = alerter
	}
}

func WithSmsMetrics(m SmsMetrics) SmsOption {
	return func(s *smsService) {
		s.metrics = m
	}
}

func NewSmsService(cfg SmsConfig, repo nr.NotificationRepository, deviceRepo devices.DeviceRepository, provider SmsProvider, opts ...SmsOption) SmsService {
	if cfg.CostPerMessage.IsZero() {
		cfg.CostPerMessage = DefaultCostPerMessage
	}

	if cfg.DefaultDailyLimit == 0 {
		cfg.DefaultDailyLimit = DefaultDailyLimit
	}

	if cfg.DefaultMonthlyBudget.IsZero() {
		cfg.DefaultMonthlyBudget = DefaultMonthlyBudget
	}

	if cfg.AlertThresholdPercent == 0 {
		cfg.AlertThresholdPercent = DefaultAlertThresholdPercent
	}

	s := &smsService{
		cfg:      cfg,
		repo:     repo,
		devices:  deviceRepo,
		provider: provider,
		now:      func() time.Time { return time.Now().UTC() },
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

func (s *smsService) Enabled() bool {
	return s.cfg.Enabled && s.provider != nil
}

// SendAlert passes the organization budget gate and sends the alert text to a single phone number.
// Every attempt, blocked or not, results in a persisted delivery log.
func (s *smsService) SendAlert(ctx context.Context, alert AlertContext, phoneNumber string) (entry nr.SmsDeliveryLog) {
	orgID := alert.Device.OrganizationID
	logger := logging.GetLoggerFromContext(ctx).With().Uint("organizationId", orgID).Str("phone", phoneNumber).Logger()

	entry = nr.SmsDeliveryLog{
		AlertID:     alert.Alert.ID,
		PhoneNumber: phoneNumber,
		MessageBody: FormatSmsMessage(alert),
		Status:      nr.StatusPending,
		SentAt:      s.now(),
	}

	reserved := false

	defer func() {
		if r := recover(); r != nil {
			logger.Error().Msgf("unexpected error sending sms: %v", r)
			if reserved {
				s.release(ctx, orgID)
			}
			entry = s.failed(ctx, entry, orgID, ErrCodeSystemError, fmt.Sprintf("%v", r))
		}
	}()

	if _, err := s.budget(ctx, orgID); err != nil {
		logger.Error().Err(err).Msg("failed to load sms budget")
		return s.failed(ctx, entry, orgID, ErrCodeSystemError, err.Error())
	}

	before, after, err := s.repo.ReserveSms(ctx, orgID, s.cfg.CostPerMessage)
	if err != nil {
		switch {
		case errors.Is(err, nr.ErrSmsDisabled):
			logger.Warn().Msg("sms not enabled for organization")
			return s.failed(ctx, entry, orgID, ErrCodeSmsDisabled, err.Error())
		case errors.Is(err, nr.ErrDailyLimitReached):
			logger.Warn().Int("dailyLimit", before.DailyLimit).Msg("daily sms limit reached")
			return s.failed(ctx, entry, orgID, ErrCodeDailyLimitExceeded, err.Error())
		case errors.Is(err, nr.ErrMonthlyBudgetExceeded):
			logger.Warn().Str("monthlyBudget", before.MonthlyBudget.String()).Msg("monthly sms budget exceeded")
			return s.failed(ctx, entry, orgID, ErrCodeBudgetExceeded, err.Error())
		default:
			logger.Error().Err(err).Msg("failed to reserve sms budget")
			return s.failed(ctx, entry, orgID, ErrCodeSystemError, err.Error())
		}
	}
	reserved = true

	messageID, err := s.provider.Send(ctx, phoneNumber, entry.MessageBody)
	if err != nil {
		logger.Error().Err(err).Msg("failed to send sms")
		s.release(ctx, orgID)
		return s.failed(ctx, entry, orgID, ErrCodeProviderError, err.Error())
	}

	entry.MessageID = messageID
	entry.Status = nr.StatusSent
	entry.Cost = s.cfg.CostPerMessage

	if err := s.repo.AddSmsDeliveryLog(ctx, &entry); err != nil {
		logger.Error().Err(err).Msg("failed to store sms delivery log")
	}

	s.checkBudgetThreshold(ctx, before, after)

	if s.metrics != nil {
		s.metrics.SmsSent(orgLabel(orgID))
	}

	logger.Info().Str("messageId", messageID).Uint("alertId", alert.Alert.ID).Msg("sms sent")

	return entry
}

func (s *smsService) release(ctx context.Context, orgID uint) {
	if err := s.repo.ReleaseSms(ctx, orgID, s.cfg.CostPerMessage); err != nil {
		logger := logging.GetLoggerFromContext(ctx)
		logger.Error().Err(err).Msg("failed to release sms reservation")
	}
}

func (s *smsService) budget(ctx context.Context, orgID uint) (nr.OrganizationSmsBudget, error) {
	now := s.now()

	budget, err := s.repo.GetOrCreateSmsBudget(ctx, orgID, nr.OrganizationSmsBudget{
		Enabled:                   true,
		DailyLimit:                s.cfg.DefaultDailyLimit,
		MonthlyBudget:             s.cfg.DefaultMonthlyBudget,
		CurrentMonthCost:          decimal.Zero,
		LastResetDate:             now,
		AlertOnBudgetThreshold:    true,
		BudgetThresholdPercentage: s.cfg.AlertThresholdPercent,
	})
	if err != nil {
		return nr.OrganizationSmsBudget{}, err
	}

	if now.Sub(budget.LastResetDate) > 24*time.Hour {
		logger := logging.GetLoggerFromContext(ctx)
		logger.Info().Uint("organizationId", orgID).Msg("resetting daily sms counter")
		return s.repo.ResetDailyCount(ctx, orgID, now)
	}

	return budget, nil
}

// checkBudgetThreshold notifies the organization admins the first time the monthly cost
// crosses the configured share of the budget.
func (s *smsService) checkBudgetThreshold(ctx context.Context, before, after nr.OrganizationSmsBudget) {
	if !after.AlertOnBudgetThreshold || s.alerter == nil {
		return
	}

	threshold := after.MonthlyBudget.
		Mul(decimal.NewFromInt(int64(after.BudgetThresholdPercentage))).
		DivRound(decimal.NewFromInt(100), 2)

	if !(before.CurrentMonthCost.LessThan(threshold) && after.CurrentMonthCost.GreaterThanOrEqual(threshold)) {
		return
	}

	logger := logging.GetLoggerFromContext(ctx)
	logger.Warn().
		Int("percent", after.BudgetThresholdPercentage).
		Str("cost", after.CurrentMonthCost.String()).
		Str("budget", after.MonthlyBudget.String()).
		Msg("organization reached sms budget threshold")

	org, err := s.devices.GetOrganizationByID(ctx, after.OrganizationID)
	if err != nil && !errors.Is(err, devices.ErrOrganizationNotFound) {
		logger.Error().Err(err).Msg("failed to fetch organization for budget alert")
		return
	}

	admins, err := s.devices.GetAdmins(ctx, after.OrganizationID)
	if err != nil {
		logger.Error().Err(err).Msg("failed to fetch organization admins")
		return
	}

	s.alerter.SendBudgetThresholdAlert(ctx, org, admins, after)
}

func (s *smsService) failed(ctx context.Context, entry nr.SmsDeliveryLog, orgID uint, code, msg string) nr.SmsDeliveryLog {
	entry.Status = nr.StatusFailed
	entry.ErrorCode = code
	entry.ErrorMessage = msg
	entry.Cost = decimal.Zero

	if err := s.repo.AddSmsDeliveryLog(ctx, &entry); err != nil {
		logger := logging.GetLoggerFromContext(ctx)
		logger.Error().Err(err).Msg("failed to store sms delivery log")
	}

	if s.metrics != nil {
		s.metrics.SmsFailed(orgLabel(orgID))
	}

	return entry
}

func orgLabel(orgID uint) string {
	return strconv.FormatUint(uint64(orgID), 10)
}

type smsChannel struct {
	svc SmsService
}

func NewSmsChannel(svc SmsService) Channel {
	return &smsChannel{svc: svc}
}

func (c *smsChannel) Send(ctx context.Context, user devices.User, alert AlertContext, pref nr.NotificationPreference) bool {
	logger := logging.GetLoggerFromContext(ctx)

	if c.svc == nil || !c.svc.Enabled() {
		logger.Warn().Msg("sms notifications disabled")
		return false
	}

	if pref.Destination == "" {
		logger.Warn().Str("username", user.Username).Msg("sms preference has no phone number")
		return false
	}

	return !c.svc.SendAlert(ctx, alert, pref.Destination).Failed()
}

// FormatSmsMessage renders "[SEVERITY] Device: Rule - Message" within MaxSmsLength characters,
// shortening the alert message first.
func FormatSmsMessage(alert AlertContext) string {
	severity := string(alert.Alert.Severity)
	device := deviceName(alert.Device)
	rule := alert.Rule.Name
	message := alert.Alert.Message

	formatted := fmt.Sprintf("[%s] %s: %s - %s", severity, device, rule, message)
	if runeLen(formatted) <= MaxSmsLength {
		return formatted
	}

	maxMessageLength := MaxSmsLength - runeLen(severity) - runeLen(device) - runeLen(rule) - 10
	if maxMessageLength <= 3 {
		return fmt.Sprintf("[%s] %s alert", severity, device)
	}

	if m := []rune(message); len(m) > maxMessageLength {
		message = string(m[:maxMessageLength-3]) + "..."
	}

	return fmt.Sprintf("[%s] %s: %s - %s", severity, device, rule, message)
}

func runeLen(s string) int {
	return len([]rune(s))
}
