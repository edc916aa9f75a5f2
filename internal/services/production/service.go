// Package production drives the per-unit step-completion state machine and
// the firmware install history. A unit moves NotStarted -> InProgress on its
// first completion and InProgress -> Completed when its completion count
// reaches the step denominator; both transitions are conditional single-row
// updates so racing completions cannot double-fire them.
package production

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/sventech/prodline/internal/models"
	"github.com/sventech/prodline/internal/store"
)

// Store is the slice of the record store the engine needs
type Store interface {
	UnitByID(ctx context.Context, unitID string) (*models.Unit, error)
	StepByID(ctx context.Context, stepID uint) (*models.ProductionStep, error)
	InsertCompletion(ctx context.Context, completion *models.StepCompletion) error
	CompletionCount(ctx context.Context, unitID string) (int64, error)
	StepCount(ctx context.Context, productID uint) (int64, error)
	StartProduction(ctx context.Context, unitID string, at time.Time, totalSteps int) (bool, error)
	CompleteUnit(ctx context.Context, unitID string, at time.Time) (bool, error)
	InsertFirmwareInstall(ctx context.Context, record *models.FirmwareInstallRecord) error
	FirmwareHistory(ctx context.Context, unitID string) ([]models.FirmwareInstallRecord, error)
}

// CompleteStepResult reports what one completion call changed
type CompleteStepResult struct {
	Completion    *models.StepCompletion `json:"completion"`
	Started       bool                   `json:"started"`       // this call set productionStartedAt
	UnitCompleted bool                   `json:"unitCompleted"` // this call fired the completion transition
}

// RecordInstallRequest carries one firmware install event
type RecordInstallRequest struct {
	UnitID             string  `json:"unitId"`
	DeviceTypeCategory string  `json:"deviceTypeCategory"`
	FirmwareID         string  `json:"firmwareId"`
	InstalledBy        string  `json:"installedBy"`
	Method             *string `json:"method,omitempty"`
	Notes              string  `json:"notes,omitempty"`
	StepID             *uint   `json:"stepId,omitempty"`
}

// Service is stateless; safe for concurrent use
type Service struct {
	store Store
	now   func() time.Time
}

// NewService wires the engine
func NewService(st Store) *Service {
	return &Service{store: st, now: func() time.Time { return time.Now().UTC() }}
}

// CompleteStep records one step completion for a unit and advances the state
// machine:
//
//  1. duplicate (unit, step) pairs are rejected by the append's unique index
//  2. the first completion ever sets productionStartedAt and freezes the
//     step-count denominator (set-once conditional update)
//  3. when the completion count reaches the denominator the unit transitions
//     to completed, guarded on current status so the transition fires at most
//     once even under concurrent completions or later catalog growth
func (s *Service) CompleteStep(ctx context.Context, unitID string, stepID uint, completedBy, notes string) (*CompleteStepResult, error) {
	unit, err := s.store.UnitByID(ctx, unitID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrUnitNotFound, unitID)
		}
		return nil, err
	}

	step, err := s.store.StepByID(ctx, stepID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: %d", ErrStepNotFound, stepID)
		}
		return nil, err
	}
	if step.ProductID != unit.ProductID {
		return nil, fmt.Errorf("%w: step %d belongs to product %d, unit is product %d",
			ErrStepNotFound, stepID, step.ProductID, unit.ProductID)
	}

	completion := &models.StepCompletion{
		UnitID:      unitID,
		StepID:      stepID,
		CompletedAt: s.now(),
		CompletedBy: completedBy,
		Notes:       notes,
	}
	if err := s.store.InsertCompletion(ctx, completion); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, fmt.Errorf("%w: unit %s step %d", ErrDuplicateCompletion, unitID, stepID)
		}
		return nil, err
	}

	result := &CompleteStepResult{Completion: completion}

	totalSteps, err := s.store.StepCount(ctx, unit.ProductID)
	if err != nil {
		return result, err
	}

	// Set-once: only the first completion wins this write and freezes the
	// denominator snapshot.
	started, err := s.store.StartProduction(ctx, unitID, completion.CompletedAt, int(totalSteps))
	if err != nil {
		return result, err
	}
	result.Started = started

	// Denominator: the snapshot frozen at first completion. When this call
	// lost the set-once write, re-read the unit to pick up the winner's value.
	denominator := totalSteps
	if !started {
		if current, err := s.store.UnitByID(ctx, unitID); err == nil && current.StepCountSnapshot != nil {
			denominator = int64(*current.StepCountSnapshot)
		}
	}

	count, err := s.store.CompletionCount(ctx, unitID)
	if err != nil {
		return result, err
	}

	if denominator > 0 && count >= denominator {
		fired, err := s.store.CompleteUnit(ctx, unitID, s.now())
		if err != nil {
			return result, err
		}
		result.UnitCompleted = fired
		if fired {
			log.Printf("🏁 Unit %s finished production (%d/%d steps)", unit.SerialNumber, count, denominator)
		}
	}

	return result, nil
}

// MarkComplete is the administrative override: force the unit to completed
// regardless of step count. Idempotent; a no-op if already complete.
func (s *Service) MarkComplete(ctx context.Context, unitID string) (*models.Unit, error) {
	if _, err := s.store.UnitByID(ctx, unitID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrUnitNotFound, unitID)
		}
		return nil, err
	}

	if _, err := s.store.CompleteUnit(ctx, unitID, s.now()); err != nil {
		return nil, err
	}

	return s.store.UnitByID(ctx, unitID)
}

// RecordInstall appends a firmware install history row and, when the install
// is tied to a production step, delegates to CompleteStep afterwards. The
// install row is durable first: a failed step completion comes back alongside
// the persisted record, the two writes are deliberately not atomic.
func (s *Service) RecordInstall(ctx context.Context, req RecordInstallRequest) (*models.FirmwareInstallRecord, *CompleteStepResult, error) {
	if _, err := s.store.UnitByID(ctx, req.UnitID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil, fmt.Errorf("%w: %s", ErrUnitNotFound, req.UnitID)
		}
		return nil, nil, err
	}

	record := &models.FirmwareInstallRecord{
		UnitID:             req.UnitID,
		DeviceTypeCategory: req.DeviceTypeCategory,
		FirmwareID:         req.FirmwareID,
		InstalledAt:        s.now(),
		InstalledBy:        req.InstalledBy,
		Method:             req.Method,
		Notes:              req.Notes,
		StepID:             req.StepID,
	}
	if err := s.store.InsertFirmwareInstall(ctx, record); err != nil {
		return nil, nil, err
	}

	if req.StepID == nil {
		return record, nil, nil
	}

	stepResult, err := s.CompleteStep(ctx, req.UnitID, *req.StepID, req.InstalledBy, req.Notes)
	if err != nil {
		// Install history is already durable; report the completion failure
		// without rolling anything back.
		return record, nil, err
	}
	return record, stepResult, nil
}

// FirmwareHistory lists install events for a unit
func (s *Service) FirmwareHistory(ctx context.Context, unitID string) ([]models.FirmwareInstallRecord, error) {
	return s.store.FirmwareHistory(ctx, unitID)
}
