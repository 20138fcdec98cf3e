package rules

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Operator string

const (
	OperatorGT  Operator = "GT"
	OperatorGTE Operator = "GTE"
	OperatorLT  Operator = "LT"
	OperatorLTE Operator = "LTE"
	OperatorEQ  Operator = "EQ"
)

type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

type Rule struct {
	ID             uint   `gorm:"primarykey"`
	DeviceID       uint   `gorm:"index"`
	OrganizationID uint   `gorm:"index"`
	Name           string
	Description    string
	Variable       string
	Operator       Operator
	Threshold      decimal.Decimal `gorm:"type:numeric(20,6)"`
	Enabled        bool

	SendSms       bool
	SmsRecipients string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Recipients returns the phone numbers configured for rule level SMS delivery.
func (r Rule) Recipients() []string {
	var recipients []string
	for _, s := range strings.Split(r.SmsRecipients, ",") {
		if s = strings.TrimSpace(s); s != "" {
			recipients = append(recipients, s)
		}
	}
	return recipients
}

type Alert struct {
	ID             uint `gorm:"primarykey"`
	RuleID         uint `gorm:"index:idx_alert_rule_triggered"`
	Rule           Rule `gorm:"constraint:OnDelete:CASCADE"`
	DeviceID       uint `gorm:"index"`
	OrganizationID uint `gorm:"index"`

	Message        string
	Severity       Severity
	TriggeredValue decimal.Decimal `gorm:"type:numeric(20,6)"`
	TriggeredAt    time.Time       `gorm:"index:idx_alert_rule_triggered"`

	Acknowledged   bool
	AcknowledgedAt *time.Time

	CreatedAt time.Time
}
