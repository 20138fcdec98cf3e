package devices

import (
	"time"
)

type DeviceStatus string

const (
	StatusOnline  DeviceStatus = "ONLINE"
	StatusOffline DeviceStatus = "OFFLINE"
	StatusUnknown DeviceStatus = "UNKNOWN"
)

type Organization struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	Name      string    `gorm:"uniqueIndex" json:"name"`
	CreatedAt time.Time `json:"-"`
}

type Device struct {
	ID             uint         `gorm:"primarykey" json:"id"`
	ExternalID     string       `gorm:"uniqueIndex:idx_device_org_external" json:"externalId"`
	OrganizationID uint         `gorm:"uniqueIndex:idx_device_org_external" json:"organizationId"`
	Organization   Organization `json:"organization"`
	Name           string       `json:"name"`

	Status     DeviceStatus `gorm:"default:UNKNOWN" json:"status"`
	LastSeenAt *time.Time   `json:"lastSeenAt,omitempty"`

	Location        string `json:"location,omitempty"`
	SensorType      string `json:"sensorType,omitempty"`
	FirmwareVersion string `json:"firmwareVersion,omitempty"`

	InitialWidgetsCreated bool `json:"-"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// IsOnline reports whether the last known status of the device is ONLINE.
func (d Device) IsOnline() bool {
	return d.Status == StatusOnline
}

type User struct {
	ID             uint   `gorm:"primarykey" json:"id"`
	OrganizationID uint   `gorm:"index" json:"organizationId"`
	Username       string `gorm:"uniqueIndex" json:"username"`
	Email          string `json:"email"`
	FirstName      string `json:"firstName"`
	LastName       string `json:"lastName"`
	PhoneNumber    string `json:"phoneNumber,omitempty"`
	Admin          bool   `json:"admin"`
}
