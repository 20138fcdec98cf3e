package rules

import (
	"context"
	"errors"
	"fmt"
	"time"

	. "github.com/diwise/iot-telemetry-core/internal/pkg/infrastructure/repositories/database"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type RuleRepository interface {
	GetEnabledRules(ctx context.Context, deviceID uint) ([]Rule, error)
	SaveRule(ctx context.Context, rule *Rule) error

	AddAlert(ctx context.Context, alert *Alert) error
	GetAlert(ctx context.Context, alertID uint) (Alert, error)
	GetAlertsForRule(ctx context.Context, ruleID uint) ([]Alert, error)
	HasAlertSince(ctx context.Context, ruleID uint, since time.Time) (bool, error)
	Acknowledge(ctx context.Context, alertID uint, at time.Time) error
}

var ErrAlertNotFound = fmt.Errorf("alert not found")

type ruleRepository struct {
	db *gorm.DB
}

func NewRuleRepository(connect ConnectorFunc) (RuleRepository, error) {
	impl, _, err := connect()
	if err != nil {
		return nil, err
	}

	err = impl.AutoMigrate(&Rule{}, &Alert{})
	if err != nil {
		return nil, err
	}

	return &ruleRepository{
		db: impl,
	}, nil
}

func (r *ruleRepository) GetEnabledRules(ctx context.Context, deviceID uint) ([]Rule, error) {
	var rules []Rule
	result := r.db.WithContext(ctx).Where("device_id = ? AND enabled = ?", deviceID, true).Order("id").Find(&rules)
	return rules, result.Error
}

func (r *ruleRepository) SaveRule(ctx context.Context, rule *Rule) error {
	return r.db.WithContext(ctx).Save(rule).Error
}

func (r *ruleRepository) AddAlert(ctx context.Context, alert *Alert) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(alert).Error
}

func (r *ruleRepository) GetAlert(ctx context.Context, alertID uint) (Alert, error) {
	alert := Alert{}

	result := r.db.WithContext(ctx).Preload("Rule").First(&alert, alertID)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return Alert{}, ErrAlertNotFound
		}
		return Alert{}, result.Error
	}

	return alert, nil
}

func (r *ruleRepository) GetAlertsForRule(ctx context.Context, ruleID uint) ([]Alert, error) {
	var alerts []Alert
	result := r.db.WithContext(ctx).Where(&Alert{RuleID: ruleID}).Order("triggered_at desc").Find(&alerts)
	return alerts, result.Error
}

func (r *ruleRepository) HasAlertSince(ctx context.Context, ruleID uint, since time.Time) (bool, error) {
	var count int64
	result := r.db.WithContext(ctx).Model(&Alert{}).Where("rule_id = ? AND triggered_at > ?", ruleID, since).Count(&count)
	return count > 0, result.Error
}

func (r *ruleRepository) Acknowledge(ctx context.Context, alertID uint, at time.Time) error {
	result := r.db.WithContext(ctx).Model(&Alert{}).Where("id = ?", alertID).Updates(map[string]any{
		"acknowledged":    true,
		"acknowledged_at": at,
	})
	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		return ErrAlertNotFound
	}

	return nil
}
