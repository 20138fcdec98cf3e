package telemetry

import (
	"time"

	"github.com/shopspring/decimal"
)

// TelemetryRecord is the fixed five column form of a sample, kept for consumers that predate dynamic variables.
type TelemetryRecord struct {
	ID             uint      `gorm:"primarykey"`
	DeviceID       uint      `gorm:"index"`
	OrganizationID uint      `gorm:"index"`
	Timestamp      time.Time `gorm:"index"`

	KwConsumption decimal.NullDecimal `gorm:"type:numeric(20,6)"`
	Voltage       decimal.NullDecimal `gorm:"type:numeric(20,6)"`
	Current       decimal.NullDecimal `gorm:"type:numeric(20,6)"`
	PowerFactor   decimal.NullDecimal `gorm:"type:numeric(20,6)"`
	Frequency     decimal.NullDecimal `gorm:"type:numeric(20,6)"`

	Metadata  string
	CreatedAt time.Time
}

const DataTypeNumber string = "NUMBER"

type Variable struct {
	ID             uint   `gorm:"primarykey"`
	OrganizationID uint   `gorm:"index"`
	DeviceID       *uint  `gorm:"uniqueIndex:idx_variable_device_name"`
	Name           string `gorm:"uniqueIndex:idx_variable_device_name"`
	DisplayName    string
	Unit           string
	DataType       string

	LastValue   decimal.NullDecimal `gorm:"type:numeric(20,6)"`
	LastValueAt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

type VariableValue struct {
	ID         uint            `gorm:"primarykey"`
	VariableID uint            `gorm:"index"`
	Timestamp  time.Time       `gorm:"index"`
	Value      decimal.Decimal `gorm:"type:numeric(20,6)"`
	Metadata   string
	CreatedAt  time.Time
}
