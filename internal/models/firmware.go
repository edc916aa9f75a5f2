package models

import (
	"time"

	"gorm.io/datatypes"
)

// FirmwareInstallRecord is one firmware flash event on a unit. Append-only
// history; reflashing the same device category repeatedly is valid, every
// install gets its own row.
type FirmwareInstallRecord struct {
	ID                 uint           `gorm:"primaryKey" json:"id"`
	UnitID             string         `gorm:"type:uuid;index;not null" json:"unitId"`
	DeviceTypeCategory string         `gorm:"type:varchar(100);not null" json:"deviceTypeCategory"`
	FirmwareID         string         `gorm:"not null" json:"firmwareId"`
	InstalledAt        time.Time      `gorm:"not null" json:"installedAt"`
	InstalledBy        string         `gorm:"not null" json:"installedBy"`
	Method             *string        `gorm:"type:varchar(50)" json:"method,omitempty"`
	Notes              string         `json:"notes,omitempty"`
	StepID             *uint          `gorm:"index" json:"stepId,omitempty"`
	Metadata           datatypes.JSON `gorm:"type:jsonb" json:"metadata,omitempty"`
	CreatedAt          time.Time      `json:"createdAt"`
}

// TableName specifies the table name for FirmwareInstallRecord
func (FirmwareInstallRecord) TableName() string {
	return "firmware_install_records"
}
