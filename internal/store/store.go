// Package store is the GORM-backed record store. Every method is a single
// atomic statement as seen by the services: unique indexes arbitrate
// insert-unique operations, UPDATE ... WHERE with a RowsAffected check
// implements conditional single-writer-wins updates. No multi-row
// transactions are used or assumed.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sventech/prodline/internal/database"
	"github.com/sventech/prodline/internal/models"
	"gorm.io/gorm"
)

var (
	// ErrNotFound means the referenced record does not exist
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate means an insert lost to a uniqueness constraint
	ErrDuplicate = errors.New("duplicate record")
)

// Store executes record operations against PostgreSQL
type Store struct {
	db *database.DB
}

// New wraps a connected database
func New(db *database.DB) *Store {
	return &Store{db: db}
}

// ResolveProductCode returns the serial code token for a product
func (s *Store) ResolveProductCode(ctx context.Context, productID uint) (string, error) {
	var product models.Product
	err := s.db.WithContext(ctx).First(&product, productID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", fmt.Errorf("product %d: %w", productID, ErrNotFound)
	}
	if err != nil {
		return "", err
	}
	return product.Code, nil
}

// MaxSequence returns the highest sequence ever consumed for a product code,
// or 0 if none. Soft-deleted units still count: a sequence embedded in any
// persisted serial is never reissued.
func (s *Store) MaxSequence(ctx context.Context, productCode string) (int, error) {
	var max int
	err := s.db.WithContext(ctx).
		Model(&models.Unit{}).
		Unscoped().
		Where("product_code = ?", productCode).
		Select("COALESCE(MAX(sequence), 0)").
		Scan(&max).Error
	if err != nil {
		return 0, err
	}
	return max, nil
}

// InsertUnit creates the unit record. The unique serial/sequence indexes make
// this the arbitration point of the optimistic allocator: a lost race comes
// back as ErrDuplicate.
func (s *Store) InsertUnit(ctx context.Context, unit *models.Unit) error {
	err := s.db.WithContext(ctx).Create(unit).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("serial %s: %w", unit.SerialNumber, ErrDuplicate)
	}
	return err
}

// UnitByID loads one unit
func (s *Store) UnitByID(ctx context.Context, unitID string) (*models.Unit, error) {
	var unit models.Unit
	err := s.db.WithContext(ctx).Where("id = ?", unitID).First(&unit).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("unit %s: %w", unitID, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &unit, nil
}

// StepByID loads one production step
func (s *Store) StepByID(ctx context.Context, stepID uint) (*models.ProductionStep, error) {
	var step models.ProductionStep
	err := s.db.WithContext(ctx).First(&step, stepID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("step %d: %w", stepID, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &step, nil
}

// InsertCompletion appends one step completion. The (unit_id, step_id) unique
// index turns a repeat completion into ErrDuplicate.
func (s *Store) InsertCompletion(ctx context.Context, completion *models.StepCompletion) error {
	err := s.db.WithContext(ctx).Create(completion).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("unit %s step %d: %w", completion.UnitID, completion.StepID, ErrDuplicate)
	}
	return err
}

// CompletionCount counts recorded completions for a unit
func (s *Store) CompletionCount(ctx context.Context, unitID string) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&models.StepCompletion{}).
		Where("unit_id = ?", unitID).
		Count(&count).Error
	return count, err
}

// StepCount counts the current step catalog of a product
func (s *Store) StepCount(ctx context.Context, productID uint) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&models.ProductionStep{}).
		Where("product_id = ?", productID).
		Count(&count).Error
	return count, err
}

// StartProduction sets production_started_at and freezes the auto-completion
// denominator, but only if production has not started yet. Returns whether
// this call won the write.
func (s *Store) StartProduction(ctx context.Context, unitID string, at time.Time, totalSteps int) (bool, error) {
	res := s.db.WithContext(ctx).
		Model(&models.Unit{}).
		Where("id = ? AND production_started_at IS NULL", unitID).
		Updates(map[string]interface{}{
			"production_started_at": at,
			"step_count_snapshot":   totalSteps,
		})
	return res.RowsAffected > 0, res.Error
}

// CompleteUnit transitions the unit to completed, guarded on current status so
// the transition fires at most once regardless of racing completions.
// Returns whether this call performed the transition.
func (s *Store) CompleteUnit(ctx context.Context, unitID string, at time.Time) (bool, error) {
	res := s.db.WithContext(ctx).
		Model(&models.Unit{}).
		Where("id = ? AND status <> ?", unitID, models.UnitStatusCompleted).
		Updates(map[string]interface{}{
			"status":                  models.UnitStatusCompleted,
			"production_completed_at": at,
		})
	return res.RowsAffected > 0, res.Error
}

// InsertFirmwareInstall appends one firmware install history row
func (s *Store) InsertFirmwareInstall(ctx context.Context, record *models.FirmwareInstallRecord) error {
	return s.db.WithContext(ctx).Create(record).Error
}

// FirmwareHistory lists install events for a unit, newest first
func (s *Store) FirmwareHistory(ctx context.Context, unitID string) ([]models.FirmwareInstallRecord, error) {
	var records []models.FirmwareInstallRecord
	err := s.db.WithContext(ctx).
		Where("unit_id = ?", unitID).
		Order("installed_at DESC").
		Find(&records).Error
	return records, err
}
