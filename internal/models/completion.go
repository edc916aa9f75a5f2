package models

import "time"

// StepCompletion records that one production step was completed for one unit.
// Append-only; the composite unique index makes a second completion for the
// same (unit, step) pair a constraint violation, which the production engine
// surfaces as a duplicate-completion error.
type StepCompletion struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	UnitID      string    `gorm:"type:uuid;not null;uniqueIndex:idx_unit_step" json:"unitId"`
	StepID      uint      `gorm:"not null;uniqueIndex:idx_unit_step" json:"stepId"`
	CompletedAt time.Time `gorm:"not null" json:"completedAt"`
	CompletedBy string    `gorm:"not null" json:"completedBy"`
	Notes       string    `json:"notes,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`

	Step *ProductionStep `gorm:"foreignKey:StepID" json:"step,omitempty"`
}

// TableName specifies the table name for StepCompletion
func (StepCompletion) TableName() string {
	return "step_completions"
}
