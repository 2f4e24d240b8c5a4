package repository

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"bomtrack/internal/models"
)

// Guard errors for the single-default-location invariant.
var (
	ErrDefaultLocationDemote     = errors.New("cannot unset the default location directly; set another location as default instead")
	ErrDefaultLocationDeactivate = errors.New("cannot deactivate the default location")
	ErrDefaultLocationDelete     = errors.New("cannot delete the default location")
)

type LocationRepository struct {
	db *gorm.DB
}

func NewLocationRepository(db *gorm.DB) *LocationRepository {
	return &LocationRepository{db: db}
}

// CreateLocation creates a new location. Setting a new default unsets any
// existing default in the same transaction so at most one default exists per
// tenant at all times.
func (r *LocationRepository) CreateLocation(tenantID string, location *models.Location) error {
	location.TenantID = tenantID
	location.CreatedAt = time.Now()
	location.UpdatedAt = time.Now()

	return r.db.Transaction(func(tx *gorm.DB) error {
		var existing int64
		if err := tx.Model(&models.Location{}).
			Where("tenant_id = ? AND code = ?", tenantID, location.Code).
			Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return fmt.Errorf("location with code '%s' already exists: %w", location.Code, gorm.ErrDuplicatedKey)
		}

		// First location for a tenant becomes the default regardless
		var count int64
		if err := tx.Model(&models.Location{}).
			Where("tenant_id = ?", tenantID).
			Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			location.IsDefault = true
		}

		if location.IsDefault {
			if err := tx.Model(&models.Location{}).
				Where("tenant_id = ? AND is_default = ?", tenantID, true).
				Update("is_default", false).Error; err != nil {
				return err
			}
		}

		return tx.Create(location).Error
	})
}

// GetLocationByID retrieves a location by ID
func (r *LocationRepository) GetLocationByID(tenantID string, id uuid.UUID) (*models.Location, error) {
	var location models.Location
	err := r.db.Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&location).Error
	return &location, err
}

// GetLocationByCode retrieves a location by its tenant-unique code.
func (r *LocationRepository) GetLocationByCode(tenantID, code string) (*models.Location, error) {
	var location models.Location
	err := r.db.Where("tenant_id = ? AND code = ?", tenantID, code).
		First(&location).Error
	return &location, err
}

// GetDefaultLocation retrieves the tenant's default location.
func (r *LocationRepository) GetDefaultLocation(tenantID string) (*models.Location, error) {
	var location models.Location
	err := r.db.Where("tenant_id = ? AND is_default = ?", tenantID, true).
		First(&location).Error
	return &location, err
}

// ListLocations retrieves all locations with pagination
func (r *LocationRepository) ListLocations(tenantID string, activeOnly bool, page, limit int) ([]models.Location, int64, error) {
	var locations []models.Location
	var total int64
	query := r.db.Where("tenant_id = ?", tenantID)

	if activeOnly {
		query = query.Where("is_active = ?", true)
	}

	if err := query.Model(&models.Location{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if page > 0 && limit > 0 {
		offset := (page - 1) * limit
		query = query.Offset(offset).Limit(limit)
	}

	err := query.Order("is_default DESC, name ASC").Find(&locations).Error
	return locations, total, err
}

// UpdateLocation updates a location. Demoting or deactivating the default is
// rejected; promoting a new default demotes the old one atomically.
func (r *LocationRepository) UpdateLocation(tenantID string, id uuid.UUID, updates map[string]interface{}) error {
	updates["updated_at"] = time.Now()

	return r.db.Transaction(func(tx *gorm.DB) error {
		var current models.Location
		if err := tx.Where("tenant_id = ? AND id = ?", tenantID, id).
			First(&current).Error; err != nil {
			return err
		}

		if current.IsDefault {
			if isDefault, ok := updates["is_default"].(bool); ok && !isDefault {
				return ErrDefaultLocationDemote
			}
			if isActive, ok := updates["is_active"].(bool); ok && !isActive {
				return ErrDefaultLocationDeactivate
			}
		}

		if isDefault, ok := updates["is_default"].(bool); ok && isDefault {
			if err := tx.Model(&models.Location{}).
				Where("tenant_id = ? AND id != ?", tenantID, id).
				Update("is_default", false).Error; err != nil {
				return err
			}
		}

		return tx.Model(&models.Location{}).
			Where("tenant_id = ? AND id = ?", tenantID, id).
			Updates(updates).Error
	})
}

// DeleteLocation soft deletes a location. The default location cannot be
// deleted.
func (r *LocationRepository) DeleteLocation(tenantID string, id uuid.UUID) error {
	location, err := r.GetLocationByID(tenantID, id)
	if err != nil {
		return err
	}
	if location.IsDefault {
		return ErrDefaultLocationDelete
	}
	return r.db.Where("tenant_id = ? AND id = ?", tenantID, id).
		Delete(&models.Location{}).Error
}
