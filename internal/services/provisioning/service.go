// Package provisioning creates units: serial allocation, identity artifact
// generation and upload, and the unit record insert, composed as a saga
// across the blob store and the record store with explicit compensation.
package provisioning

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/sventech/prodline/internal/models"
	"github.com/sventech/prodline/internal/store"
	"github.com/sventech/prodline/internal/utils"
)

// Store is the slice of the record store the orchestrator needs
type Store interface {
	ResolveProductCode(ctx context.Context, productID uint) (string, error)
	MaxSequence(ctx context.Context, productCode string) (int, error)
	InsertUnit(ctx context.Context, unit *models.Unit) error
}

// BlobStore holds artifact bytes; Delete must be idempotent
type BlobStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
	Delete(ctx context.Context, ref string) error
}

// ArtifactGenerator renders the identity artifact for an opaque token
type ArtifactGenerator interface {
	Generate(token string) ([]byte, error)
}

// OrderLinker links a unit back to its e-commerce order, best-effort
type OrderLinker interface {
	LinkOrderToUnit(ctx context.Context, orderID int64, unit *models.Unit) error
}

// CreateUnitRequest carries the caller's input for one provisioning run
type CreateUnitRequest struct {
	ProductID uint    `json:"productId"`
	VariantID *uint   `json:"variantId,omitempty"`
	OrderID   *int64  `json:"orderId,omitempty"`
	OwnerID   *string `json:"ownerId,omitempty"`
	CreatedBy string  `json:"createdBy"`
}

// Service orchestrates unit creation. Stateless; safe for concurrent use.
type Service struct {
	store       Store
	blobs       BlobStore
	artifacts   ArtifactGenerator
	orders      OrderLinker // nil when order linking is not configured
	prefix      string
	maxAttempts int
}

// NewService wires the orchestrator. maxAttempts bounds the allocator's
// optimistic retry loop; values < 1 fall back to 5.
func NewService(st Store, blobs BlobStore, artifacts ArtifactGenerator, orders OrderLinker, serialPrefix string, maxAttempts int) *Service {
	if maxAttempts < 1 {
		maxAttempts = 5
	}
	return &Service{
		store:       st,
		blobs:       blobs,
		artifacts:   artifacts,
		orders:      orders,
		prefix:      serialPrefix,
		maxAttempts: maxAttempts,
	}
}

// CreateUnit runs the provisioning saga:
//
//  1. resolve the product code
//  2. read the current max sequence (pure read, initial allocator candidate)
//  3. mint a fresh opaque identifier and render the identity artifact
//  4. upload the artifact to the blob store
//  5. insert the unit record, retrying with re-read sequences while the
//     serial uniqueness constraint rejects the candidate (bounded)
//  6. best-effort order link (never fails the operation)
//
// If step 5 fails, the uploaded artifact is deleted. If that compensating
// delete itself fails, the orphan is logged and the original failure is
// returned; the artifact leak is tolerated rather than retried forever.
// Either a fully valid unit is returned or a typed error; never both.
func (s *Service) CreateUnit(ctx context.Context, req CreateUnitRequest) (*models.Unit, error) {
	productCode, err := s.store.ResolveProductCode(ctx, req.ProductID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: product %d", ErrProductNotFound, req.ProductID)
		}
		return nil, err
	}

	maxSeq, err := s.store.MaxSequence(ctx, productCode)
	if err != nil {
		return nil, err
	}

	// The artifact encodes an opaque token, not the serial number, so it can
	// be rendered and uploaded once no matter how often the serial insert
	// retries.
	token := uuid.NewString()
	png, err := s.artifacts.Generate(token)
	if err != nil {
		return nil, err
	}

	ref, err := s.blobs.Put(ctx, "artifacts/"+token+".png", png, "image/png")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}

	unit, err := s.insertWithAllocation(ctx, req, productCode, maxSeq, token, ref)
	if err != nil {
		s.compensateArtifact(ctx, ref)
		return nil, err
	}

	if req.OrderID != nil && s.orders != nil {
		if err := s.orders.LinkOrderToUnit(ctx, *req.OrderID, unit); err != nil {
			log.Printf("⚠️  Order link failed for unit %s (order %d): %v", unit.SerialNumber, *req.OrderID, err)
		}
	}

	return unit, nil
}

// insertWithAllocation is the optimistic compare-and-retry allocator. The
// database's unique serial column is the only arbiter: no in-process lock,
// no separate counter row. Gaps from lost races are accepted; reuse is
// impossible because losing candidates are rejected by the constraint.
func (s *Service) insertWithAllocation(ctx context.Context, req CreateUnitRequest, productCode string, maxSeq int, token, ref string) (*models.Unit, error) {
	candidate := maxSeq + 1

	for attempt := 0; attempt < s.maxAttempts; attempt++ {
		serial, err := utils.FormatSerial(s.prefix, productCode, candidate)
		if err != nil {
			return nil, err
		}

		unit := &models.Unit{
			ID:            uuid.NewString(),
			SerialNumber:  serial,
			ProductCode:   productCode,
			Sequence:      candidate,
			ProductID:     req.ProductID,
			VariantID:     req.VariantID,
			OrderID:       req.OrderID,
			OwnerID:       req.OwnerID,
			ArtifactToken: token,
			ArtifactRef:   ref,
			Status:        models.UnitStatusUnprovisioned,
			CreatedBy:     req.CreatedBy,
		}

		err = s.store.InsertUnit(ctx, unit)
		if err == nil {
			return unit, nil
		}
		if !errors.Is(err, store.ErrDuplicate) {
			return nil, fmt.Errorf("%w: %v", ErrRecordInsertFailed, err)
		}

		// Lost the race: somebody persisted this sequence first. Re-read and
		// move past whatever is now the maximum.
		latest, readErr := s.store.MaxSequence(ctx, productCode)
		if readErr != nil {
			return nil, fmt.Errorf("%w: %v", ErrRecordInsertFailed, readErr)
		}
		if latest >= candidate {
			candidate = latest + 1
		} else {
			candidate++
		}
	}

	return nil, fmt.Errorf("%w: product code %s after %d attempts", ErrAllocationExhausted, productCode, s.maxAttempts)
}

// compensateArtifact deletes the uploaded artifact after a failed insert.
// A failed delete leaves exactly one orphan and a warning, nothing else.
func (s *Service) compensateArtifact(ctx context.Context, ref string) {
	if err := s.blobs.Delete(ctx, ref); err != nil {
		log.Printf("⚠️  Orphaned artifact at %s: compensating delete failed: %v", ref, err)
	}
}
