package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// UnitStatus defines the provisioning lifecycle state of a unit
type UnitStatus string

const (
	UnitStatusUnprovisioned      UnitStatus = "unprovisioned"       // created at the factory, not yet provisioned
	UnitStatusFactoryProvisioned UnitStatus = "factory_provisioned" // factory firmware/config applied
	UnitStatusUserProvisioned    UnitStatus = "user_provisioned"    // claimed by an end user
	UnitStatusCompleted          UnitStatus = "completed"           // all production steps done (one-way)
)

// Unit is a tracked physical product instance.
// SerialNumber is globally unique and immutable once assigned; the
// (ProductCode, Sequence) pair backs the optimistic serial allocator, so both
// carry the same uniqueness guarantee at the database level.
// Convention: Go PascalCase -> DB snake_case (GORM auto) -> JSON camelCase
type Unit struct {
	ID            string     `gorm:"primaryKey;type:uuid" json:"id"`
	SerialNumber  string     `gorm:"unique;not null" json:"serialNumber"`
	ProductCode   string     `gorm:"not null;uniqueIndex:idx_unit_code_seq" json:"productCode"`
	Sequence      int        `gorm:"not null;uniqueIndex:idx_unit_code_seq" json:"sequence"`
	ProductID     uint       `gorm:"index;not null" json:"productId"`
	VariantID     *uint      `gorm:"index" json:"variantId,omitempty"`
	OrderID       *int64     `gorm:"index" json:"orderId,omitempty"`
	OwnerID       *string    `gorm:"type:uuid" json:"ownerId,omitempty"`
	ArtifactToken string     `gorm:"unique;not null" json:"artifactToken"`
	ArtifactRef   string     `gorm:"not null" json:"artifactRef"`
	Status        UnitStatus `gorm:"type:varchar(50);default:'unprovisioned'" json:"status"`

	// Production tracking. ProductionCompletedAt is non-null exactly when
	// Status is "completed". StepCountSnapshot freezes the auto-completion
	// denominator at the moment of the first step completion.
	ProductionStartedAt   *time.Time `json:"productionStartedAt,omitempty"`
	ProductionCompletedAt *time.Time `json:"productionCompletedAt,omitempty"`
	StepCountSnapshot     *int       `json:"stepCountSnapshot,omitempty"`

	CreatedBy string         `gorm:"not null" json:"createdBy"`
	Metadata  datatypes.JSON `gorm:"type:jsonb" json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Product     *Product         `gorm:"foreignKey:ProductID" json:"product,omitempty"`
	Completions []StepCompletion `gorm:"foreignKey:UnitID" json:"completions,omitempty"`
}

// TableName specifies the table name for Unit
func (Unit) TableName() string {
	return "units"
}

// ProductionComplete reports whether the unit has finished production
func (u *Unit) ProductionComplete() bool {
	return u.Status == UnitStatusCompleted
}
