package notifications

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

type NotificationRepository interface {
	GetPreferences(ctx context.Context, userID uint) ([]NotificationPreference, error)
	SavePreference(ctx context.Context, pref *NotificationPreference) error

	AddNotificationLog(ctx context.Context, entry *NotificationLog) error
	GetNotificationLogs(ctx context.Context, alertID uint) ([]NotificationLog, error)

	AddSmsDeliveryLog(ctx context.Context, entry *SmsDeliveryLog) error
	GetSmsDeliveryLogs(ctx context.Context, alertID uint) ([]SmsDeliveryLog, error)

	GetSmsBudget(ctx context.Context, organizationID uint) (OrganizationSmsBudget, error)
	GetOrCreateSmsBudget(ctx context.Context, organizationID uint, defaults OrganizationSmsBudget) (OrganizationSmsBudget, error)
	SaveSmsBudget(ctx context.Context, budget *OrganizationSmsBudget) error
	ResetDailyCount(ctx context.Context, organizationID uint, at time.Time) (OrganizationSmsBudget, error)
	ReserveSms(ctx context.Context, organizationID uint, cost decimal.Decimal) (before OrganizationSmsBudget, after OrganizationSmsBudget, err error)
	ReleaseSms(ctx context.Context, organizationID uint, cost decimal.Decimal) error
}

var ErrBudgetNotFound = fmt.Errorf("sms budget not found")
var ErrSmsDisabled = fmt.Errorf("sms not enabled for organization")
var ErrDailyLimitReached = fmt.Errorf("daily sms limit reached")
var ErrMonthlyBudgetExceeded = fmt.Errorf("monthly sms budget exceeded")

type notificationRepository struct {
	db *gorm.DB
}

func NewNotificationRepository(connect ConnectorFunc) (NotificationRepository, error) {
	impl, _, err := connect()
	if err != nil {
		return nil, err
	}

	err = impl.AutoMigrate(&NotificationPreference{}, &NotificationLog{}, &SmsDeliveryLog{}, &OrganizationSmsBudget{})
	if err != nil {
		return nil, err
	}

	return &notificationRepository{
		db: impl,
	}, nil
}

func (r *notificationRepository) GetPreferences(ctx context.Context, userID uint) ([]NotificationPreference, error) {
	var prefs []NotificationPreference
	result := r.db.WithContext(ctx).Where(&NotificationPreference{UserID: userID}).Order("id").Find(&prefs)
	return prefs, result.Error
}

func (r *notificationRepository) SavePreference(ctx context.Context, pref *NotificationPreference) error {
	return r.db.WithContext(ctx).Save(pref).Error
}

func (r *notificationRepository) AddNotificationLog(ctx context.Context, entry *NotificationLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *notificationRepository) GetNotificationLogs(ctx context.Context, alertID uint) ([]NotificationLog, error) {
	var entries []NotificationLog
	result := r.db.WithContext(ctx).Where(&NotificationLog{AlertID: alertID}).Order("id").Find(&entries)
	return entries, result.Error
}

func (r *notificationRepository) AddSmsDeliveryLog(ctx context.Context, entry *SmsDeliveryLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *notificationRepository) GetSmsDeliveryLogs(ctx context.Context, alertID uint) ([]SmsDeliveryLog, error) {
	var entries []SmsDeliveryLog
	result := r.db.WithContext(ctx).Where(&SmsDeliveryLog{AlertID: alertID}).Order("id").Find(&entries)
	return entries, result.Error
}

func (r *notificationRepository) GetSmsBudget(ctx context.Context, organizationID uint) (OrganizationSmsBudget, error) {
	budget := OrganizationSmsBudget{}

	result := r.db.WithContext(ctx).Where(&OrganizationSmsBudget{OrganizationID: organizationID}).First(&budget)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return OrganizationSmsBudget{}, ErrBudgetNotFound
		}
		return OrganizationSmsBudget{}, result.Error
	}

	return budget, nil
}

func (r *notificationRepository) GetOrCreateSmsBudget(ctx context.Context, organizationID uint, defaults OrganizationSmsBudget) (OrganizationSmsBudget, error) {
	budget, err := r.GetSmsBudget(ctx, organizationID)
	if err == nil {
		return budget, nil
	}

	if !errors.Is(err, ErrBudgetNotFound) {
		return OrganizationSmsBudget{}, err
	}

	defaults.ID = 0
	defaults.OrganizationID = organizationID

	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&defaults)
	if result.Error != nil {
		return OrganizationSmsBudget{}, result.Error
	}

	return r.GetSmsBudget(ctx, organizationID)
}

func (r *notificationRepository) SaveSmsBudget(ctx context.Context, budget *OrganizationSmsBudget) error {
	return r.db.WithContext(ctx).Save(budget).Error
}

func (r *notificationRepository) ResetDailyCount(ctx context.Context, organizationID uint, at time.Time) (OrganizationSmsBudget, error) {
	result := r.db.WithContext(ctx).Model(&OrganizationSmsBudget{}).
		Where("organization_id = ?", organizationID).
		Updates(map[string]any{
			"current_day_count": 0,
			"last_reset_date":   at,
		})
	if result.Error != nil {
		return OrganizationSmsBudget{}, result.Error
	}

	return r.GetSmsBudget(ctx, organizationID)
}

// ReserveSms checks the organization limits and adds one message and its cost to the daily and
// monthly counters in the same transaction. It returns the budget as it was before and after the update.
func (r *notificationRepository) ReserveSms(ctx context.Context, organizationID uint, cost decimal.Decimal) (OrganizationSmsBudget, OrganizationSmsBudget, error) {
	var before, after OrganizationSmsBudget

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockedBudget(tx, organizationID, &before); err != nil {
			return err
		}

		if !before.Enabled {
			return ErrSmsDisabled
		}

		if before.CurrentDayCount >= before.DailyLimit {
			return ErrDailyLimitReached
		}

		if before.CurrentMonthCost.GreaterThanOrEqual(before.MonthlyBudget) {
			return ErrMonthlyBudgetExceeded
		}

		after = before
		after.CurrentDayCount++
		after.CurrentMonthCount++
		after.CurrentMonthCost = before.CurrentMonthCost.Add(cost)

		return updateCounters(tx, after)
	})

	return before, after, err
}

// ReleaseSms gives back a reservation for a message that was never delivered to the provider.
func (r *notificationRepository) ReleaseSms(ctx context.Context, organizationID uint, cost decimal.Decimal) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		budget := OrganizationSmsBudget{}
		if err := lockedBudget(tx, organizationID, &budget); err != nil {
			return err
		}

		budget.CurrentDayCount = max(budget.CurrentDayCount-1, 0)
		budget.CurrentMonthCount = max(budget.CurrentMonthCount-1, 0)
		budget.CurrentMonthCost = decimal.Max(budget.CurrentMonthCost.Sub(cost), decimal.Zero)

		return updateCounters(tx, budget)
	})
}

func lockedBudget(tx *gorm.DB, organizationID uint, budget *OrganizationSmsBudget) error {
	query := tx.Where(&OrganizationSmsBudget{OrganizationID: organizationID})
	if tx.Dialector.Name() == "postgres" {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	if err := query.First(budget).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrBudgetNotFound
		}
		return err
	}

	return nil
}

func updateCounters(tx *gorm.DB, budget OrganizationSmsBudget) error {
	return tx.Model(&OrganizationSmsBudget{}).Where("id = ?", budget.ID).Updates(map[string]any{
		"current_day_count":   budget.CurrentDayCount,
		"current_month_count": budget.CurrentMonthCount,
		"current_month_cost":  budget.CurrentMonthCost,
	}).Error
}
