package notifications

import (
	"time"

	"github.com/shopspring/decimal"
)

type Channel string

const (
	ChannelEmail   Channel = "EMAIL"
	ChannelSMS     Channel = "SMS"
	ChannelWebhook Channel = "WEBHOOK"
	ChannelInApp   Channel = "IN_APP"
)

type NotificationPreference struct {
	ID          uint    `gorm:"primarykey"`
	UserID      uint    `gorm:"uniqueIndex:idx_pref_user_channel"`
	Channel     Channel `gorm:"uniqueIndex:idx_pref_user_channel"`
	Destination string
	Enabled     bool
	// MinSeverity is one of LOW, MEDIUM, HIGH or CRITICAL. Empty means LOW.
	MinSeverity string
	// ImmediateDelivery set to false leaves the alerts for a digest. Nil is stored as true.
	ImmediateDelivery *bool `gorm:"default:true"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (p NotificationPreference) Immediate() bool {
	return p.ImmediateDelivery == nil || *p.ImmediateDelivery
}

type DeliveryStatus string

const (
	StatusPending   DeliveryStatus = "PENDING"
	StatusSent      DeliveryStatus = "SENT"
	StatusDelivered DeliveryStatus = "DELIVERED"
	StatusFailed    DeliveryStatus = "FAILED"
)

type NotificationLog struct {
	ID           uint `gorm:"primarykey"`
	AlertID      uint `gorm:"index"`
	UserID       uint `gorm:"index"`
	Channel      Channel
	Destination  string
	Subject      string
	Message      string
	Status       DeliveryStatus
	ErrorMessage string
	SentAt       time.Time
}

type SmsDeliveryLog struct {
	ID           uint `gorm:"primarykey"`
	AlertID      uint `gorm:"index"`
	PhoneNumber  string
	MessageBody  string
	MessageID    string
	Status       DeliveryStatus
	Cost         decimal.Decimal `gorm:"type:numeric(12,5)"`
	ErrorCode    string
	ErrorMessage string
	SentAt       time.Time
}

// Failed reports whether the delivery attempt was rejected or failed at the carrier.
func (l SmsDeliveryLog) Failed() bool {
	return l.Status == StatusFailed
}

type OrganizationSmsBudget struct {
	ID             uint `gorm:"primarykey"`
	OrganizationID uint `gorm:"uniqueIndex"`
	Enabled        bool

	DailyLimit    int
	MonthlyBudget decimal.Decimal `gorm:"type:numeric(12,5)"`

	CurrentDayCount   int
	CurrentMonthCount int
	CurrentMonthCost  decimal.Decimal `gorm:"type:numeric(12,5)"`
	LastResetDate     time.Time

	AlertOnBudgetThreshold    bool
	BudgetThresholdPercentage int

	UpdatedAt time.Time
}
