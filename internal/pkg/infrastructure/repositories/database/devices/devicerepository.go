package devices

import (
	"context"
	"errors"
	"fmt"
	"time"

	. "github.com/diwise/iot-telemetry-core/internal/pkg/infrastructure/repositories/database"
	"github.com/diwise/iot-telemetry-core/internal/pkg/infrastructure/logging"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type DeviceRepository interface {
	GetOrganizationByID(ctx context.Context, organizationID uint) (Organization, error)
	GetOrganizationByName(ctx context.Context, name string) (Organization, error)
	GetOrCreateOrganization(ctx context.Context, name string) (Organization, error)

	GetDeviceByID(ctx context.Context, deviceID uint) (Device, error)
	GetDeviceByExternalID(ctx context.Context, externalID string, organizationID ...uint) (Device, error)
	GetOnlineDevicesNotSeenSince(ctx context.Context, since time.Time) ([]Device, error)

	Save(ctx context.Context, device *Device) error
	MarkOffline(ctx context.Context, deviceID uint, notSeenSince time.Time) (bool, error)
	SetInitialWidgetsCreated(ctx context.Context, deviceID uint) error

	GetUsers(ctx context.Context, organizationID uint) ([]User, error)
	GetAdmins(ctx context.Context, organizationID uint) ([]User, error)
	SaveUser(ctx context.Context, user *User) error
}

var ErrDeviceNotFound = fmt.Errorf("device not found")
var ErrOrganizationNotFound = fmt.Errorf("organization not found")
var ErrRepositoryError = fmt.Errorf("could not fetch data from repository")

type deviceRepository struct {
	db *gorm.DB
}

func NewDeviceRepository(connect ConnectorFunc) (DeviceRepository, error) {
	impl, _, err := connect()
	if err != nil {
		return nil, err
	}

	err = impl.AutoMigrate(&Organization{}, &Device{}, &User{})
	if err != nil {
		return nil, err
	}

	return &deviceRepository{
		db: impl,
	}, nil
}

func (d *deviceRepository) GetOrganizationByID(ctx context.Context, organizationID uint) (Organization, error) {
	org := Organization{}

	result := d.db.WithContext(ctx).First(&org, organizationID)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return Organization{}, ErrOrganizationNotFound
		}
		return Organization{}, fmt.Errorf("%w: %s", ErrRepositoryError, result.Error.Error())
	}

	return org, nil
}

func (d *deviceRepository) GetOrganizationByName(ctx context.Context, name string) (Organization, error) {
	org := Organization{}

	result := d.db.WithContext(ctx).Where(&Organization{Name: name}).Order("id").First(&org)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return Organization{}, ErrOrganizationNotFound
		}
		return Organization{}, fmt.Errorf("%w: %s", ErrRepositoryError, result.Error.Error())
	}

	return org, nil
}

func (d *deviceRepository) GetOrCreateOrganization(ctx context.Context, name string) (Organization, error) {
	org := Organization{}

	result := d.db.WithContext(ctx).Where(Organization{Name: name}).FirstOrCreate(&org)
	if result.Error != nil {
		return Organization{}, result.Error
	}

	return org, nil
}

func (d *deviceRepository) GetDeviceByID(ctx context.Context, deviceID uint) (Device, error) {
	device := Device{}

	result := d.db.WithContext(ctx).Joins("Organization").First(&device, "devices.id = ?", deviceID)

	return device, d.mapError(ctx, result.Error)
}

func (d *deviceRepository) GetDeviceByExternalID(ctx context.Context, externalID string, organizationID ...uint) (Device, error) {
	device := Device{}

	query := d.db.WithContext(ctx).Joins("Organization").Where("devices.external_id = ?", externalID)
	if len(organizationID) > 0 {
		query = query.Where("devices.organization_id IN ?", organizationID)
	}

	result := query.Order("devices.id").First(&device)

	return device, d.mapError(ctx, result.Error)
}

func (d *deviceRepository) GetOnlineDevicesNotSeenSince(ctx context.Context, since time.Time) ([]Device, error) {
	var devices []Device

	result := d.db.WithContext(ctx).
		Where("status = ? AND (last_seen_at IS NULL OR last_seen_at < ?)", StatusOnline, since).
		Find(&devices)

	return devices, result.Error
}

func (d *deviceRepository) Save(ctx context.Context, device *Device) error {
	if device.Status == "" {
		device.Status = StatusUnknown
	}

	result := d.db.WithContext(ctx).Omit(clause.Associations).Save(device)
	return result.Error
}

// MarkOffline flips an ONLINE device to OFFLINE unless it has been seen after notSeenSince.
// The returned bool reports whether a row was changed.
func (d *deviceRepository) MarkOffline(ctx context.Context, deviceID uint, notSeenSince time.Time) (bool, error) {
	result := d.db.WithContext(ctx).Model(&Device{}).
		Where("id = ? AND status = ? AND (last_seen_at IS NULL OR last_seen_at < ?)", deviceID, StatusOnline, notSeenSince).
		Update("status", StatusOffline)

	return result.RowsAffected > 0, result.Error
}

func (d *deviceRepository) SetInitialWidgetsCreated(ctx context.Context, deviceID uint) error {
	result := d.db.WithContext(ctx).Model(&Device{}).Where("id = ?", deviceID).Update("initial_widgets_created", true)
	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		return ErrDeviceNotFound
	}

	return nil
}

func (d *deviceRepository) GetUsers(ctx context.Context, organizationID uint) ([]User, error) {
	var users []User
	result := d.db.WithContext(ctx).Where(&User{OrganizationID: organizationID}).Order("id").Find(&users)
	return users, result.Error
}

func (d *deviceRepository) GetAdmins(ctx context.Context, organizationID uint) ([]User, error) {
	var users []User
	result := d.db.WithContext(ctx).Where("organization_id = ? AND admin = ?", organizationID, true).Order("id").Find(&users)
	return users, result.Error
}

func (d *deviceRepository) SaveUser(ctx context.Context, user *User) error {
	return d.db.WithContext(ctx).Save(user).Error
}

func (d *deviceRepository) mapError(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrDeviceNotFound
	}

	logger := logging.GetLoggerFromContext(ctx)
	logger.Error().Err(err).Msg("gorm error")

	return ErrRepositoryError
}
