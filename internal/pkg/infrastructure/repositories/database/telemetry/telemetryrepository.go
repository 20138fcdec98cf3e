package telemetry

import (
	"context"
	"errors"
	"fmt"
	"time"

	. "github.com/diwise/iot-telemetry-core/internal/pkg/infrastructure/repositories/database"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type TelemetryRepository interface {
	AddRecord(ctx context.Context, record *TelemetryRecord) error
	GetRecords(ctx context.Context, deviceID uint) ([]TelemetryRecord, error)

	GetVariable(ctx context.Context, deviceID uint, name string) (Variable, error)
	GetVariables(ctx context.Context, deviceID uint) ([]Variable, error)
	CreateVariable(ctx context.Context, variable *Variable) error
	UpdateLastValue(ctx context.Context, variableID uint, value decimal.Decimal, at time.Time) error

	AddValues(ctx context.Context, values []VariableValue) error
	GetValues(ctx context.Context, variableID uint) ([]VariableValue, error)
}

var ErrVariableNotFound = fmt.Errorf("variable not found")

type telemetryRepository struct {
	db *gorm.DB
}

func NewTelemetryRepository(connect ConnectorFunc) (TelemetryRepository, error) {
	impl, _, err := connect()
	if err != nil {
		return nil, err
	}

	err = impl.AutoMigrate(&TelemetryRecord{}, &Variable{}, &VariableValue{})
	if err != nil {
		return nil, err
	}

	return &telemetryRepository{
		db: impl,
	}, nil
}

func (r *telemetryRepository) AddRecord(ctx context.Context, record *TelemetryRecord) error {
	return r.db.WithContext(ctx).Create(record).Error
}

func (r *telemetryRepository) GetRecords(ctx context.Context, deviceID uint) ([]TelemetryRecord, error) {
	var records []TelemetryRecord
	result := r.db.WithContext(ctx).Where(&TelemetryRecord{DeviceID: deviceID}).Order("timestamp desc, id desc").Find(&records)
	return records, result.Error
}

func (r *telemetryRepository) GetVariable(ctx context.Context, deviceID uint, name string) (Variable, error) {
	v := Variable{}

	result := r.db.WithContext(ctx).Where("device_id = ? AND name = ?", deviceID, name).First(&v)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return Variable{}, ErrVariableNotFound
		}
		return Variable{}, result.Error
	}

	return v, nil
}

func (r *telemetryRepository) GetVariables(ctx context.Context, deviceID uint) ([]Variable, error) {
	var variables []Variable
	result := r.db.WithContext(ctx).Where("device_id = ?", deviceID).Order("name").Find(&variables)
	return variables, result.Error
}

// CreateVariable inserts the variable unless one with the same device and name already exists,
// in which case the existing row is loaded into variable.
func (r *telemetryRepository) CreateVariable(ctx context.Context, variable *Variable) error {
	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(variable)
	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		if variable.DeviceID == nil {
			return ErrVariableNotFound
		}

		existing, err := r.GetVariable(ctx, *variable.DeviceID, variable.Name)
		if err != nil {
			return err
		}
		*variable = existing
	}

	return nil
}

func (r *telemetryRepository) UpdateLastValue(ctx context.Context, variableID uint, value decimal.Decimal, at time.Time) error {
	result := r.db.WithContext(ctx).Model(&Variable{}).Where("id = ?", variableID).Updates(map[string]any{
		"last_value":    decimal.NewNullDecimal(value),
		"last_value_at": at,
	})

	return result.Error
}

func (r *telemetryRepository) AddValues(ctx context.Context, values []VariableValue) error {
	if len(values) == 0 {
		return nil
	}

	return r.db.WithContext(ctx).Create(&values).Error
}

func (r *telemetryRepository) GetValues(ctx context.Context, variableID uint) ([]VariableValue, error) {
	var values []VariableValue
	result := r.db.WithContext(ctx).Where(&VariableValue{VariableID: variableID}).Order("timestamp desc, id desc").Find(&values)
	return values, result.Error
}
