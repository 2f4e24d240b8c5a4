package repository

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"bomtrack/internal/models"
)

type ComponentRepository struct {
	db *gorm.DB
}

func NewComponentRepository(db *gorm.DB) *ComponentRepository {
	return &ComponentRepository{db: db}
}

// CreateComponent creates a new component, rejecting duplicate codes within
// the tenant.
func (r *ComponentRepository) CreateComponent(tenantID string, component *models.Component) error {
	component.TenantID = tenantID
	component.CreatedAt = time.Now()
	component.UpdatedAt = time.Now()

	var existing int64
	if err := r.db.Model(&models.Component{}).
		Where("tenant_id = ? AND code = ?", tenantID, component.Code).
		Count(&existing).Error; err != nil {
		return err
	}
	if existing > 0 {
		return fmt.Errorf("component with code '%s' already exists: %w", component.Code, gorm.ErrDuplicatedKey)
	}

	return r.db.Create(component).Error
}

// GetComponentByID retrieves a component by ID
func (r *ComponentRepository) GetComponentByID(tenantID string, id uuid.UUID) (*models.Component, error) {
	var component models.Component
	err := r.db.Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&component).Error
	return &component, err
}

// GetComponentByCode retrieves a component by its tenant-unique code.
func (r *ComponentRepository) GetComponentByCode(tenantID, code string) (*models.Component, error) {
	var component models.Component
	err := r.db.Where("tenant_id = ? AND code = ?", tenantID, code).
		First(&component).Error
	return &component, err
}

// ListComponents retrieves components with pagination
func (r *ComponentRepository) ListComponents(tenantID string, activeOnly bool, page, limit int) ([]models.Component, int64, error) {
	var components []models.Component
	var total int64
	query := r.db.Where("tenant_id = ?", tenantID)

	if activeOnly {
		query = query.Where("is_active = ?", true)
	}

	if err := query.Model(&models.Component{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if page > 0 && limit > 0 {
		offset := (page - 1) * limit
		query = query.Offset(offset).Limit(limit)
	}

	err := query.Order("code ASC").Find(&components).Error
	return components, total, err
}

// UpdateComponent updates a component
func (r *ComponentRepository) UpdateComponent(tenantID string, id uuid.UUID, updates map[string]interface{}) error {
	updates["updated_at"] = time.Now()
	return r.db.Model(&models.Component{}).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		Updates(updates).Error
}

// DeactivateComponent soft-deactivates a component. Components referenced by
// transactions or BOMs are never hard-deleted.
func (r *ComponentRepository) DeactivateComponent(tenantID string, id uuid.UUID, userID string) error {
	return r.db.Model(&models.Component{}).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		Updates(map[string]interface{}{
			"is_active":  false,
			"updated_by": userID,
			"updated_at": time.Now(),
		}).Error
}

// DeleteComponent removes a component that nothing references. Callers must
// check IsComponentReferenced first; referenced components are deactivated
// instead.
func (r *ComponentRepository) DeleteComponent(tenantID string, id uuid.UUID) error {
	return r.db.Where("tenant_id = ? AND id = ?", tenantID, id).
		Delete(&models.Component{}).Error
}

// IsComponentReferenced reports whether any transaction line or BOM line
// references the component.
func (r *ComponentRepository) IsComponentReferenced(tenantID string, id uuid.UUID) (bool, error) {
	var count int64
	if err := r.db.Model(&models.TransactionLine{}).
		Where("tenant_id = ? AND component_id = ?", tenantID, id).
		Count(&count).Error; err != nil {
		return false, err
	}
	if count > 0 {
		return true, nil
	}
	if err := r.db.Model(&models.BOMLine{}).
		Where("tenant_id = ? AND component_id = ?", tenantID, id).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// BulkCreateError represents an error for a single item in bulk create
type BulkCreateError struct {
	Index   int
	Code    string
	Message string
}

// BulkCreateComponentResult represents the result of a bulk component create
type BulkCreateComponentResult struct {
	Created []*models.Component
	Errors  []BulkCreateError
	Total   int
	Success int
	Failed  int
	Skipped int
}

// BulkCreateComponents creates multiple components in a transaction.
// Duplicate codes within the tenant are skipped, not overwritten.
// SECURITY: All components are assigned the provided tenantID.
func (r *ComponentRepository) BulkCreateComponents(tenantID string, components []*models.Component) (*BulkCreateComponentResult, error) {
	result := &BulkCreateComponentResult{
		Created: make([]*models.Component, 0, len(components)),
		Errors:  make([]BulkCreateError, 0),
		Total:   len(components),
	}

	err := r.db.Transaction(func(tx *gorm.DB) error {
		seen := make(map[string]bool)
		for i, component := range components {
			// SECURITY: Always enforce tenant isolation
			component.TenantID = tenantID
			component.CreatedAt = time.Now()
			component.UpdatedAt = time.Now()

			if seen[component.Code] {
				result.Skipped++
				continue
			}

			var existingCount int64
			if err := tx.Model(&models.Component{}).
				Where("tenant_id = ? AND code = ?", tenantID, component.Code).
				Count(&existingCount).Error; err != nil {
				result.Errors = append(result.Errors, BulkCreateError{
					Index:   i,
					Code:    "DB_ERROR",
					Message: "Failed to check for duplicate code",
				})
				continue
			}

			if existingCount > 0 {
				result.Skipped++
				seen[component.Code] = true
				continue
			}

			if err := tx.Create(component).Error; err != nil {
				result.Errors = append(result.Errors, BulkCreateError{
					Index:   i,
					Code:    "CREATE_FAILED",
					Message: err.Error(),
				})
				continue
			}

			seen[component.Code] = true
			result.Created = append(result.Created, component)
		}

		result.Success = len(result.Created)
		result.Failed = len(result.Errors)
		return nil
	})

	return result, err
}

// ========== Lot Operations ==========

// GetLotByID retrieves a lot by ID
func (r *ComponentRepository) GetLotByID(tenantID string, id uuid.UUID) (*models.Lot, error) {
	var lot models.Lot
	err := r.db.Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&lot).Error
	return &lot, err
}

// ListLots retrieves lots for a component ordered by soonest expiry first,
// lots without an expiry date last.
func (r *ComponentRepository) ListLots(tenantID string, componentID uuid.UUID, positiveOnly bool, page, limit int) ([]models.Lot, int64, error) {
	var lots []models.Lot
	var total int64
	query := r.db.Where("tenant_id = ? AND component_id = ?", tenantID, componentID)

	if positiveOnly {
		query = query.Where("balance > 0")
	}

	if err := query.Model(&models.Lot{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if page > 0 && limit > 0 {
		offset := (page - 1) * limit
		query = query.Offset(offset).Limit(limit)
	}

	err := query.Order("expiry_date ASC NULLS LAST, received_at ASC").Find(&lots).Error
	return lots, total, err
}

// AvailableLots returns lots with positive balance for a component in
// FIFO-by-expiry order, for use by the allocator.
func (r *ComponentRepository) AvailableLots(tenantID string, componentID uuid.UUID) ([]models.Lot, error) {
	return availableLots(r.db, tenantID, componentID)
}

// AvailableLotsTx is AvailableLots inside an existing database transaction,
// so build allocation reads the same snapshot its lines are written against.
func (r *ComponentRepository) AvailableLotsTx(tx *gorm.DB, tenantID string, componentID uuid.UUID) ([]models.Lot, error) {
	return availableLots(tx, tenantID, componentID)
}

func availableLots(db *gorm.DB, tenantID string, componentID uuid.UUID) ([]models.Lot, error) {
	var lots []models.Lot
	err := db.Where("tenant_id = ? AND component_id = ? AND balance > 0", tenantID, componentID).
		Order("expiry_date ASC NULLS LAST, received_at ASC").
		Find(&lots).Error
	return lots, err
}
