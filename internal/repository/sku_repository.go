package repository

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"bomtrack/internal/models"
)

type SKURepository struct {
	db *gorm.DB
}

func NewSKURepository(db *gorm.DB) *SKURepository {
	return &SKURepository{db: db}
}

// CreateSKU creates a new SKU, rejecting duplicate codes within the tenant.
func (r *SKURepository) CreateSKU(tenantID string, sku *models.SKU) error {
	sku.TenantID = tenantID
	sku.CreatedAt = time.Now()
	sku.UpdatedAt = time.Now()

	var existing int64
	if err := r.db.Model(&models.SKU{}).
		Where("tenant_id = ? AND code = ?", tenantID, sku.Code).
		Count(&existing).Error; err != nil {
		return err
	}
	if existing > 0 {
		return fmt.Errorf("sku with code '%s' already exists: %w", sku.Code, gorm.ErrDuplicatedKey)
	}

	return r.db.Create(sku).Error
}

// GetSKUByID retrieves a SKU by ID
func (r *SKURepository) GetSKUByID(tenantID string, id uuid.UUID) (*models.SKU, error) {
	var sku models.SKU
	err := r.db.Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&sku).Error
	return &sku, err
}

// ListSKUs retrieves SKUs with pagination
func (r *SKURepository) ListSKUs(tenantID string, activeOnly bool, page, limit int) ([]models.SKU, int64, error) {
	var skus []models.SKU
	var total int64
	query := r.db.Where("tenant_id = ?", tenantID)

	if activeOnly {
		query = query.Where("is_active = ?", true)
	}

	if err := query.Model(&models.SKU{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if page > 0 && limit > 0 {
		offset := (page - 1) * limit
		query = query.Offset(offset).Limit(limit)
	}

	err := query.Order("code ASC").Find(&skus).Error
	return skus, total, err
}

// UpdateSKU updates a SKU
func (r *SKURepository) UpdateSKU(tenantID string, id uuid.UUID, updates map[string]interface{}) error {
	updates["updated_at"] = time.Now()
	return r.db.Model(&models.SKU{}).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		Updates(updates).Error
}

// ========== BOM Version Operations ==========

// CreateBOMVersion creates a draft BOM version with its lines, numbered one
// past the SKU's highest existing version.
func (r *SKURepository) CreateBOMVersion(tenantID string, skuID uuid.UUID, version *models.BOMVersion) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var maxVersion int
		row := tx.Model(&models.BOMVersion{}).
			Where("tenant_id = ? AND sku_id = ?", tenantID, skuID).
			Select("COALESCE(MAX(version), 0)").
			Row()
		if err := row.Scan(&maxVersion); err != nil {
			return err
		}

		version.TenantID = tenantID
		version.SKUID = skuID
		version.Version = maxVersion + 1
		version.Status = models.BOMVersionStatusDraft
		version.CreatedAt = time.Now()
		version.UpdatedAt = time.Now()

		for i := range version.Lines {
			version.Lines[i].TenantID = tenantID
			version.Lines[i].CreatedAt = time.Now()
			version.Lines[i].UpdatedAt = time.Now()
		}

		return tx.Create(version).Error
	})
}

// GetBOMVersionByID retrieves a BOM version with its lines and components.
func (r *SKURepository) GetBOMVersionByID(tenantID string, id uuid.UUID) (*models.BOMVersion, error) {
	var version models.BOMVersion
	err := r.db.Where("tenant_id = ? AND id = ?", tenantID, id).
		Preload("Lines").
		Preload("Lines.Component").
		First(&version).Error
	return &version, err
}

// GetActiveBOMVersion retrieves the active BOM version for a SKU with lines
// and components preloaded.
func (r *SKURepository) GetActiveBOMVersion(tenantID string, skuID uuid.UUID) (*models.BOMVersion, error) {
	var version models.BOMVersion
	err := r.db.Where("tenant_id = ? AND sku_id = ? AND status = ?",
		tenantID, skuID, models.BOMVersionStatusActive).
		Preload("Lines").
		Preload("Lines.Component").
		First(&version).Error
	return &version, err
}

// ListBOMVersions retrieves all BOM versions for a SKU, newest first.
func (r *SKURepository) ListBOMVersions(tenantID string, skuID uuid.UUID) ([]models.BOMVersion, error) {
	var versions []models.BOMVersion
	err := r.db.Where("tenant_id = ? AND sku_id = ?", tenantID, skuID).
		Preload("Lines").
		Order("version DESC").
		Find(&versions).Error
	return versions, err
}

// ActivateBOMVersion promotes a draft version to active, superseding any
// previously active version of the same SKU. The swap happens in one
// transaction so exactly one version is active afterwards; the guarded
// draft->active update makes concurrent activations race safely, with the
// loser reported as already activated.
func (r *SKURepository) ActivateBOMVersion(tenantID string, id uuid.UUID) (*models.BOMVersion, error) {
	var activated *models.BOMVersion

	err := r.db.Transaction(func(tx *gorm.DB) error {
		var version models.BOMVersion
		if err := tx.Where("tenant_id = ? AND id = ?", tenantID, id).
			First(&version).Error; err != nil {
			return err
		}

		// Activating the already-active version is a no-op.
		if version.Status == models.BOMVersionStatusActive {
			activated = &version
			return nil
		}

		if version.Status == models.BOMVersionStatusSuperseded {
			return fmt.Errorf("bom version %d is superseded and cannot be activated", version.Version)
		}

		// Lock the SKU row so concurrent activations of different drafts
		// serialize; without this, two transactions could each supersede the
		// old active version and both promote under read committed.
		var sku models.SKU
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("tenant_id = ? AND id = ?", tenantID, version.SKUID).
			First(&sku).Error; err != nil {
			return err
		}

		now := time.Now()

		// Supersede the current active version, stamping when it stopped
		// being effective.
		if err := tx.Model(&models.BOMVersion{}).
			Where("tenant_id = ? AND sku_id = ? AND status = ?",
				tenantID, version.SKUID, models.BOMVersionStatusActive).
			Updates(map[string]interface{}{
				"status":             models.BOMVersionStatusSuperseded,
				"effective_end_date": &now,
				"updated_at":         now,
			}).Error; err != nil {
			return err
		}

		// Guarded promotion: only succeeds if the row is still a draft.
		result := tx.Model(&models.BOMVersion{}).
			Where("tenant_id = ? AND id = ? AND status = ?",
				tenantID, id, models.BOMVersionStatusDraft).
			Updates(map[string]interface{}{
				"status":               models.BOMVersionStatusActive,
				"effective_start_date": &now,
				"effective_end_date":   nil,
				"updated_at":           now,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("bom version was activated concurrently: %w", gorm.ErrDuplicatedKey)
		}

		version.Status = models.BOMVersionStatusActive
		version.EffectiveStartDate = &now
		version.EffectiveEndDate = nil
		version.UpdatedAt = now
		activated = &version
		return nil
	})

	if err != nil {
		return nil, err
	}
	return activated, nil
}

// BulkCreateSKUResult represents the result of a bulk SKU create
type BulkCreateSKUResult struct {
	Created []*models.SKU
	Errors  []BulkCreateError
	Total   int
	Success int
	Failed  int
	Skipped int
}

// BulkCreateSKUs creates multiple SKUs in a transaction. Duplicate codes
// within the tenant are skipped, not overwritten.
// SECURITY: All SKUs are assigned the provided tenantID.
func (r *SKURepository) BulkCreateSKUs(tenantID string, skus []*models.SKU) (*BulkCreateSKUResult, error) {
	result := &BulkCreateSKUResult{
		Created: make([]*models.SKU, 0, len(skus)),
		Errors:  make([]BulkCreateError, 0),
		Total:   len(skus),
	}

	err := r.db.Transaction(func(tx *gorm.DB) error {
		seen := make(map[string]bool)
		for i, sku := range skus {
			// SECURITY: Always enforce tenant isolation
			sku.TenantID = tenantID
			sku.CreatedAt = time.Now()
			sku.UpdatedAt = time.Now()

			if seen[sku.Code] {
				result.Skipped++
				continue
			}

			var existingCount int64
			if err := tx.Model(&models.SKU{}).
				Where("tenant_id = ? AND code = ?", tenantID, sku.Code).
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
				seen[sku.Code] = true
				continue
			}

			if err := tx.Create(sku).Error; err != nil {
				result.Errors = append(result.Errors, BulkCreateError{
					Index:   i,
					Code:    "CREATE_FAILED",
					Message: err.Error(),
				})
				continue
			}

			seen[sku.Code] = true
			result.Created = append(result.Created, sku)
		}

		result.Success = len(result.Created)
		result.Failed = len(result.Errors)
		return nil
	})

	return result, err
}
