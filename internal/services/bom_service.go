package services

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"bomtrack/internal/models"
	"bomtrack/internal/repository"
)

// BOMService resolves bills of materials: costing, availability and version
// activation.
type BOMService struct {
	skuRepo       *repository.SKURepository
	componentRepo *repository.ComponentRepository
	ledgerRepo    *repository.LedgerRepository
}

func NewBOMService(skuRepo *repository.SKURepository, componentRepo *repository.ComponentRepository, ledgerRepo *repository.LedgerRepository) *BOMService {
	return &BOMService{skuRepo: skuRepo, componentRepo: componentRepo, ledgerRepo: ledgerRepo}
}

// ComputeCost rolls up the per-unit cost of a BOM version from the current
// component costs. Lines must have their Component preloaded.
func ComputeCost(version *models.BOMVersion) *models.BOMCostBreakdown {
	breakdown := &models.BOMCostBreakdown{
		BOMVersionID: version.ID,
		UnitCost:     decimal.Zero,
		Lines:        make([]models.BOMLineCost, 0, len(version.Lines)),
	}

	for _, line := range version.Lines {
		unitCost := decimal.Zero
		code := ""
		if line.Component != nil {
			unitCost = line.Component.CostPerUnit
			code = line.Component.Code
		}
		lineCost := unitCost.Mul(decimal.NewFromInt(int64(line.QuantityPerUnit)))
		breakdown.Lines = append(breakdown.Lines, models.BOMLineCost{
			ComponentID:     line.ComponentID,
			ComponentCode:   code,
			QuantityPerUnit: line.QuantityPerUnit,
			UnitCost:        unitCost,
			LineCost:        lineCost,
		})
		breakdown.UnitCost = breakdown.UnitCost.Add(lineCost)
	}

	return breakdown
}

// GetCostBreakdown returns the current unit cost of a BOM version.
func (s *BOMService) GetCostBreakdown(tenantID string, versionID uuid.UUID) (*models.BOMCostBreakdown, error) {
	version, err := s.skuRepo.GetBOMVersionByID(tenantID, versionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NewNotFoundError("bom version", versionID)
		}
		return nil, err
	}
	return ComputeCost(version), nil
}

// CreateVersion validates and stores a new draft BOM version for a SKU. Every
// referenced component must exist within the tenant; duplicate component
// lines are rejected.
func (s *BOMService) CreateVersion(tenantID string, skuID uuid.UUID, req *models.CreateBOMVersionRequest, createdBy *string) (*models.BOMVersion, error) {
	if _, err := s.skuRepo.GetSKUByID(tenantID, skuID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NewNotFoundError("sku", skuID)
		}
		return nil, err
	}

	seen := make(map[uuid.UUID]bool, len(req.Lines))
	lines := make([]models.BOMLine, 0, len(req.Lines))
	for _, lr := range req.Lines {
		if seen[lr.ComponentID] {
			return nil, NewValidationError("lines", "duplicate component in bom lines")
		}
		seen[lr.ComponentID] = true

		if lr.QuantityPerUnit <= 0 {
			return nil, NewValidationError("quantityPerUnit", "must be positive")
		}
		if _, err := s.componentRepo.GetComponentByID(tenantID, lr.ComponentID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, NewNotFoundError("component", lr.ComponentID)
			}
			return nil, err
		}
		lines = append(lines, models.BOMLine{
			ComponentID:     lr.ComponentID,
			QuantityPerUnit: lr.QuantityPerUnit,
		})
	}

	version := &models.BOMVersion{
		Notes:     req.Notes,
		CreatedBy: createdBy,
		Lines:     lines,
	}
	if err := s.skuRepo.CreateBOMVersion(tenantID, skuID, version); err != nil {
		return nil, err
	}
	return s.skuRepo.GetBOMVersionByID(tenantID, version.ID)
}

// Activate promotes a BOM version to active and returns it with its cost
// breakdown at activation time.
func (s *BOMService) Activate(tenantID string, versionID uuid.UUID) (*models.BOMVersion, *models.BOMCostBreakdown, error) {
	activated, err := s.skuRepo.ActivateBOMVersion(tenantID, versionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, NewNotFoundError("bom version", versionID)
		}
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, nil, NewConflictError("bom version was activated concurrently")
		}
		return nil, nil, err
	}

	full, err := s.skuRepo.GetBOMVersionByID(tenantID, activated.ID)
	if err != nil {
		return nil, nil, err
	}
	return full, ComputeCost(full), nil
}

// CheckAvailability compares required component quantities for a build
// against on-hand, and previews the lot allocation FIFO would choose.
func (s *BOMService) CheckAvailability(tenantID string, skuID uuid.UUID, units int) (*models.LotAvailabilityResponse, error) {
	if units <= 0 {
		return nil, NewValidationError("units", "must be positive")
	}

	version, err := s.skuRepo.GetActiveBOMVersion(tenantID, skuID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NewNotFoundError("active bom version for sku", skuID)
		}
		return nil, err
	}

	now := time.Now()
	resp := &models.LotAvailabilityResponse{
		Success:     true,
		SKUID:       skuID,
		Units:       units,
		Buildable:   true,
		Components:  make([]models.ComponentAvailability, 0, len(version.Lines)),
		Allocations: make([]models.LotAllocationPreview, 0),
	}

	for _, line := range version.Lines {
		required := line.QuantityPerUnit * units
		available, err := s.ledgerRepo.CurrentQuantity(tenantID, line.ComponentID, nil)
		if err != nil {
			return nil, err
		}

		shortage := 0
		if available < required {
			shortage = required - available
			resp.Buildable = false
		}

		code := ""
		if line.Component != nil {
			code = line.Component.Code
		}
		resp.Components = append(resp.Components, models.ComponentAvailability{
			ComponentID:   line.ComponentID,
			ComponentCode: code,
			Required:      required,
			Available:     available,
			Shortage:      shortage,
		})

		if line.Component == nil || !line.Component.TrackLots || shortage > 0 {
			continue
		}

		lots, err := s.componentRepo.AvailableLots(tenantID, line.ComponentID)
		if err != nil {
			return nil, err
		}
		allocations, err := AllocateLots(line.Component, lots, required, false, now)
		if err != nil {
			// Lot balances can lag on-hand when untracked receipts exist;
			// report the preview as unbuildable rather than failing the call.
			if _, ok := AsInsufficientInventory(err); ok {
				resp.Buildable = false
				continue
			}
			return nil, err
		}
		for _, a := range allocations {
			resp.Allocations = append(resp.Allocations, models.LotAllocationPreview{
				ComponentID: a.ComponentID,
				LotID:       a.Lot.ID,
				LotCode:     a.Lot.LotCode,
				ExpiryDate:  a.Lot.ExpiryDate,
				Quantity:    a.Quantity,
			})
		}
	}

	return resp, nil
}
