package services

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"bomtrack/internal/events"
	"bomtrack/internal/models"
	"bomtrack/internal/repository"
)

// TransactionService is the single write path into the inventory ledger.
// Every mutation validates everything first, then appends the transaction and
// its lines atomically. Nothing outside this service writes ledger rows.
type TransactionService struct {
	componentRepo *repository.ComponentRepository
	locationRepo  *repository.LocationRepository
	skuRepo       *repository.SKURepository
	ledgerRepo    *repository.LedgerRepository
	publisher     *events.Publisher
	logger        *logrus.Logger
}

func NewTransactionService(
	componentRepo *repository.ComponentRepository,
	locationRepo *repository.LocationRepository,
	skuRepo *repository.SKURepository,
	ledgerRepo *repository.LedgerRepository,
	publisher *events.Publisher,
	logger *logrus.Logger,
) *TransactionService {
	return &TransactionService{
		componentRepo: componentRepo,
		locationRepo:  locationRepo,
		skuRepo:       skuRepo,
		ledgerRepo:    ledgerRepo,
		publisher:     publisher,
		logger:        logger,
	}
}

// resolveLocation returns the given location or the tenant default when nil.
func (s *TransactionService) resolveLocation(tenantID string, locationID *uuid.UUID) (*models.Location, error) {
	if locationID != nil {
		location, err := s.locationRepo.GetLocationByID(tenantID, *locationID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, NewNotFoundError("location", *locationID)
			}
			return nil, err
		}
		return location, nil
	}
	location, err := s.locationRepo.GetDefaultLocation(tenantID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NewValidationError("locationId", "no location given and tenant has no default location")
		}
		return nil, err
	}
	return location, nil
}

func (s *TransactionService) getComponent(tenantID string, id uuid.UUID) (*models.Component, error) {
	component, err := s.componentRepo.GetComponentByID(tenantID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NewNotFoundError("component", id)
		}
		return nil, err
	}
	return component, nil
}

func (s *TransactionService) publishRecorded(tenantID string, txn *models.Transaction) {
	if s.publisher == nil {
		return
	}
	s.publisher.PublishTransactionRecorded(events.TransactionRecordedEvent{
		TenantID:      tenantID,
		TransactionID: txn.ID.String(),
		Type:          string(txn.Type),
		LineCount:     len(txn.Lines),
		OccurredAt:    txn.CreatedAt,
	})
}

// Receipt records incoming stock for a component.
func (s *TransactionService) Receipt(tenantID string, req *models.ReceiptRequest, createdBy *string) (*models.Transaction, error) {
	return s.receive(tenantID, models.TransactionTypeReceipt, req, createdBy)
}

// Initial records a starting balance. Same shape as a receipt but excluded
// from consumption forecasting by default.
func (s *TransactionService) Initial(tenantID string, req *models.ReceiptRequest, createdBy *string) (*models.Transaction, error) {
	return s.receive(tenantID, models.TransactionTypeInitial, req, createdBy)
}

func (s *TransactionService) receive(tenantID string, txType models.TransactionType, req *models.ReceiptRequest, createdBy *string) (*models.Transaction, error) {
	component, err := s.getComponent(tenantID, req.ComponentID)
	if err != nil {
		return nil, err
	}
	if !component.IsActive {
		return nil, NewValidationError("componentId", "component is inactive")
	}
	if req.Lot != nil && !component.TrackLots {
		return nil, NewValidationError("lot", "component does not track lots")
	}

	location, err := s.resolveLocation(tenantID, req.LocationID)
	if err != nil {
		return nil, err
	}

	txn := &models.Transaction{
		Type:      txType,
		Reference: req.Reference,
		Notes:     req.Notes,
		CreatedBy: createdBy,
	}

	err = s.ledgerRepo.DB().Transaction(func(tx *gorm.DB) error {
		var lotID *uuid.UUID
		if req.Lot != nil {
			now := time.Now()
			lot := &models.Lot{
				TenantID:    tenantID,
				ComponentID: component.ID,
				LotCode:     req.Lot.LotCode,
				ExpiryDate:  req.Lot.ExpiryDate,
				Supplier:    req.Lot.Supplier,
				ReceivedAt:  now,
				CreatedAt:   now,
				UpdatedAt:   now,
			}
			if err := tx.Create(lot).Error; err != nil {
				return err
			}
			lotID = &lot.ID
		}

		txn.Lines = []models.TransactionLine{{
			ComponentID:    &component.ID,
			LocationID:     location.ID,
			LotID:          lotID,
			QuantityChange: req.Quantity,
			UnitCost:       req.UnitCost,
		}}

		if err := s.ledgerRepo.CreateTransactionTx(tx, tenantID, txn); err != nil {
			return err
		}

		// Latest cost wins when the caller opts in; historical build
		// snapshots are unaffected.
		if req.UpdateComponentCost && req.UnitCost != nil {
			if err := tx.Model(&models.Component{}).
				Where("tenant_id = ? AND id = ?", tenantID, component.ID).
				Updates(map[string]interface{}{
					"cost_per_unit": *req.UnitCost,
					"updated_at":    time.Now(),
				}).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publishRecorded(tenantID, txn)
	return s.ledgerRepo.GetTransactionByID(tenantID, txn.ID)
}

// Build consumes components per the SKU's active BOM and produces finished
// goods. Validation, lot allocation and all ledger writes happen inside one
// database transaction so concurrent builds cannot double-spend the same
// stock.
func (s *TransactionService) Build(tenantID string, req *models.BuildRequest, createdBy *string) (*models.Transaction, error) {
	sku, err := s.skuRepo.GetSKUByID(tenantID, req.SKUID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NewNotFoundError("sku", req.SKUID)
		}
		return nil, err
	}

	version, err := s.skuRepo.GetActiveBOMVersion(tenantID, req.SKUID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NewValidationError("skuId", "sku has no active bom version")
		}
		return nil, err
	}

	consumeLocation, err := s.resolveLocation(tenantID, req.ConsumeLocationID)
	if err != nil {
		return nil, err
	}

	outputLocation := consumeLocation
	if req.OutputLocationID != nil {
		outputLocation, err = s.resolveLocation(tenantID, req.OutputLocationID)
		if err != nil {
			return nil, err
		}
	}

	produceOutput := true
	if req.OutputToFinishedGoods != nil {
		produceOutput = *req.OutputToFinishedGoods
	}

	cost := ComputeCost(version)
	unitsBuilt := req.UnitsToBuild
	now := time.Now()

	txn := &models.Transaction{
		Type:             models.TransactionTypeBuild,
		SKUID:            &sku.ID,
		UnitsBuilt:       &unitsBuilt,
		UnitCostSnapshot: &cost.UnitCost,
		Reference:        req.Reference,
		Notes:            req.Notes,
		CreatedBy:        createdBy,
	}

	err = s.ledgerRepo.DB().Transaction(func(tx *gorm.DB) error {
		lines, err := planBuildLines(version, req, consumeLocation.ID, buildLookups{
			available: func(componentID uuid.UUID) (int, error) {
				return s.ledgerRepo.CurrentQuantityTx(tx, tenantID, componentID, &consumeLocation.ID)
			},
			lots: func(componentID uuid.UUID) ([]models.Lot, error) {
				return s.componentRepo.AvailableLotsTx(tx, tenantID, componentID)
			},
		}, now)
		if err != nil {
			return err
		}

		if produceOutput {
			lines = append(lines, models.TransactionLine{
				SKUID:          &sku.ID,
				LocationID:     outputLocation.ID,
				QuantityChange: req.UnitsToBuild,
			})
		}

		txn.Lines = lines
		return s.ledgerRepo.CreateTransactionTx(tx, tenantID, txn)
	})
	if err != nil {
		return nil, err
	}

	s.publishRecorded(tenantID, txn)
	s.logger.WithFields(logrus.Fields{
		"tenant_id": tenantID,
		"sku_id":    sku.ID,
		"units":     req.UnitsToBuild,
	}).Info("Build recorded")

	return s.ledgerRepo.GetTransactionByID(tenantID, txn.ID)
}

// buildLookups supplies the inventory reads the build planner needs. The
// engine binds both to the enclosing database transaction.
type buildLookups struct {
	available func(componentID uuid.UUID) (int, error)
	lots      func(componentID uuid.UUID) ([]models.Lot, error)
}

// planBuildLines turns a BOM into the consumption lines for one build:
// per-(component,lot) negative lines for lot-tracked components, a single
// negative line otherwise. Shortages across all BOM lines are collected and
// reported together; with allowInsufficientInventory the uncovered remainder
// is booked unlotted so the ledger still balances.
func planBuildLines(version *models.BOMVersion, req *models.BuildRequest, consumeLocationID uuid.UUID, lookups buildLookups, now time.Time) ([]models.TransactionLine, error) {
	var shortages []ComponentShortage
	var lines []models.TransactionLine

	for i := range version.Lines {
		line := &version.Lines[i]
		component := line.Component
		if component == nil {
			return nil, NewNotFoundError("component", line.ComponentID)
		}
		required := line.QuantityPerUnit * req.UnitsToBuild

		available, err := lookups.available(line.ComponentID)
		if err != nil {
			return nil, err
		}
		if available < required {
			shortages = append(shortages, ComponentShortage{
				ComponentID:   line.ComponentID,
				ComponentCode: component.Code,
				Required:      required,
				Available:     available,
				Shortage:      required - available,
			})
			if !req.AllowInsufficientInventory {
				continue
			}
		}

		if component.TrackLots {
			lots, err := lookups.lots(line.ComponentID)
			if err != nil {
				return nil, err
			}

			var allocations []LotAllocation
			if hasManualAllocationsFor(req.ManualAllocations, line.ComponentID) {
				allocations, err = ValidateManualAllocations(component, lots, req.ManualAllocations, required, req.AllowExpiredLots, now)
			} else {
				allocations, err = AllocateLots(component, lots, required, req.AllowExpiredLots, now)
			}
			if err != nil {
				if ie, ok := AsInsufficientInventory(err); ok && req.AllowInsufficientInventory {
					// Consume what the lots hold, book the remainder
					// unlotted so the ledger still balances.
					covered := required - ie.Shortages[0].Shortage
					if covered > 0 {
						allocations, err = AllocateLots(component, lots, covered, req.AllowExpiredLots, now)
						if err != nil {
							return nil, err
						}
					} else {
						allocations = nil
					}
					remainder := required - covered
					lines = append(lines, models.TransactionLine{
						ComponentID:    &line.ComponentID,
						LocationID:     consumeLocationID,
						QuantityChange: -remainder,
					})
				} else {
					return nil, err
				}
			}
			for _, a := range allocations {
				lotID := a.Lot.ID
				lines = append(lines, models.TransactionLine{
					ComponentID:    &line.ComponentID,
					LocationID:     consumeLocationID,
					LotID:          &lotID,
					QuantityChange: -a.Quantity,
				})
			}
		} else {
			lines = append(lines, models.TransactionLine{
				ComponentID:    &line.ComponentID,
				LocationID:     consumeLocationID,
				QuantityChange: -required,
			})
		}
	}

	if len(shortages) > 0 && !req.AllowInsufficientInventory {
		return nil, &InsufficientInventoryError{Shortages: shortages}
	}

	return lines, nil
}

func hasManualAllocationsFor(manual []models.ManualAllocation, componentID uuid.UUID) bool {
	for _, m := range manual {
		if m.ComponentID == componentID {
			return true
		}
	}
	return false
}

// Transfer moves stock between two locations. Quantity on hand across the
// tenant is unchanged.
func (s *TransactionService) Transfer(tenantID string, req *models.TransferRequest, createdBy *string) (*models.Transaction, error) {
	if req.FromLocationID == req.ToLocationID {
		return nil, NewValidationError("toLocationId", "source and destination locations must differ")
	}

	component, err := s.getComponent(tenantID, req.ComponentID)
	if err != nil {
		return nil, err
	}

	from, err := s.resolveLocation(tenantID, &req.FromLocationID)
	if err != nil {
		return nil, err
	}
	to, err := s.resolveLocation(tenantID, &req.ToLocationID)
	if err != nil {
		return nil, err
	}

	if req.LotID != nil {
		lot, err := s.componentRepo.GetLotByID(tenantID, *req.LotID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, NewNotFoundError("lot", *req.LotID)
			}
			return nil, err
		}
		if lot.ComponentID != component.ID {
			return nil, NewValidationError("lotId", "lot belongs to a different component")
		}
	}

	txn := &models.Transaction{
		Type:      models.TransactionTypeTransfer,
		Notes:     req.Notes,
		CreatedBy: createdBy,
	}

	err = s.ledgerRepo.DB().Transaction(func(tx *gorm.DB) error {
		available, err := s.ledgerRepo.CurrentQuantityTx(tx, tenantID, component.ID, &from.ID)
		if err != nil {
			return err
		}
		if available < req.Quantity {
			return &InsufficientInventoryError{Shortages: []ComponentShortage{{
				ComponentID:   component.ID,
				ComponentCode: component.Code,
				Required:      req.Quantity,
				Available:     available,
				Shortage:      req.Quantity - available,
			}}}
		}

		// Paired lines: lot balance is location-independent, so the -/+ pair
		// nets to zero on the lot.
		txn.Lines = []models.TransactionLine{
			{
				ComponentID:    &component.ID,
				LocationID:     from.ID,
				LotID:          req.LotID,
				QuantityChange: -req.Quantity,
			},
			{
				ComponentID:    &component.ID,
				LocationID:     to.ID,
				LotID:          req.LotID,
				QuantityChange: req.Quantity,
			},
		}
		return s.ledgerRepo.CreateTransactionTx(tx, tenantID, txn)
	})
	if err != nil {
		return nil, err
	}

	s.publishRecorded(tenantID, txn)
	return s.ledgerRepo.GetTransactionByID(tenantID, txn.ID)
}

// Adjustment records a signed correction with a mandatory reason code.
// Negative adjustments cannot take on-hand below zero.
func (s *TransactionService) Adjustment(tenantID string, req *models.AdjustmentRequest, createdBy *string) (*models.Transaction, error) {
	if req.QuantityChange == 0 {
		return nil, NewValidationError("quantityChange", "must be non-zero")
	}

	component, err := s.getComponent(tenantID, req.ComponentID)
	if err != nil {
		return nil, err
	}

	location, err := s.resolveLocation(tenantID, req.LocationID)
	if err != nil {
		return nil, err
	}

	if req.LotID != nil {
		lot, err := s.componentRepo.GetLotByID(tenantID, *req.LotID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, NewNotFoundError("lot", *req.LotID)
			}
			return nil, err
		}
		if lot.ComponentID != component.ID {
			return nil, NewValidationError("lotId", "lot belongs to a different component")
		}
		if req.QuantityChange < 0 && lot.Balance+req.QuantityChange < 0 {
			return nil, NewValidationError("quantityChange", "adjustment would take lot balance below zero")
		}
	}

	reason := req.ReasonCode
	txn := &models.Transaction{
		Type:       models.TransactionTypeAdjustment,
		ReasonCode: &reason,
		Notes:      req.Notes,
		CreatedBy:  createdBy,
	}

	err = s.ledgerRepo.DB().Transaction(func(tx *gorm.DB) error {
		if req.QuantityChange < 0 {
			available, err := s.ledgerRepo.CurrentQuantityTx(tx, tenantID, component.ID, &location.ID)
			if err != nil {
				return err
			}
			if available+req.QuantityChange < 0 {
				return &InsufficientInventoryError{Shortages: []ComponentShortage{{
					ComponentID:   component.ID,
					ComponentCode: component.Code,
					Required:      -req.QuantityChange,
					Available:     available,
					Shortage:      -req.QuantityChange - available,
				}}}
			}
		}

		txn.Lines = []models.TransactionLine{{
			ComponentID:    &component.ID,
			LocationID:     location.ID,
			LotID:          req.LotID,
			QuantityChange: req.QuantityChange,
		}}
		return s.ledgerRepo.CreateTransactionTx(tx, tenantID, txn)
	})
	if err != nil {
		return nil, err
	}

	s.publishRecorded(tenantID, txn)
	return s.ledgerRepo.GetTransactionByID(tenantID, txn.ID)
}

// Outbound records finished goods leaving inventory.
func (s *TransactionService) Outbound(tenantID string, req *models.OutboundRequest, createdBy *string) (*models.Transaction, error) {
	sku, err := s.skuRepo.GetSKUByID(tenantID, req.SKUID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NewNotFoundError("sku", req.SKUID)
		}
		return nil, err
	}

	location, err := s.resolveLocation(tenantID, req.LocationID)
	if err != nil {
		return nil, err
	}

	txn := &models.Transaction{
		Type:      models.TransactionTypeOutbound,
		SKUID:     &sku.ID,
		Reference: req.Reference,
		Notes:     req.Notes,
		CreatedBy: createdBy,
	}

	err = s.ledgerRepo.DB().Transaction(func(tx *gorm.DB) error {
		available, err := s.ledgerRepo.CurrentSKUQuantityTx(tx, tenantID, sku.ID, &location.ID)
		if err != nil {
			return err
		}
		if available < req.Quantity {
			return &InsufficientInventoryError{Shortages: []ComponentShortage{{
				ComponentID: sku.ID,
				Required:    req.Quantity,
				Available:   available,
				Shortage:    req.Quantity - available,
			}}}
		}

		txn.Lines = []models.TransactionLine{{
			SKUID:          &sku.ID,
			LocationID:     location.ID,
			QuantityChange: -req.Quantity,
		}}
		return s.ledgerRepo.CreateTransactionTx(tx, tenantID, txn)
	})
	if err != nil {
		return nil, err
	}

	s.publishRecorded(tenantID, txn)
	return s.ledgerRepo.GetTransactionByID(tenantID, txn.ID)
}
