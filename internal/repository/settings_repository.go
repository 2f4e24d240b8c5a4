package repository

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"bomtrack/internal/models"
)

type SettingsRepository struct {
	db *gorm.DB
}

func NewSettingsRepository(db *gorm.DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// GetTenantSettings retrieves the settings row for a tenant. Returns nil
// without error when the tenant has never customized anything; callers merge
// defaults via Merged().
func (r *SettingsRepository) GetTenantSettings(tenantID string) (*models.TenantSettings, error) {
	var settings models.TenantSettings
	err := r.db.Where("tenant_id = ?", tenantID).First(&settings).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &settings, nil
}

// UpsertTenantSettings applies partial updates to the tenant's settings row,
// creating it on first write.
func (r *SettingsRepository) UpsertTenantSettings(tenantID string, updates map[string]interface{}) (*models.TenantSettings, error) {
	var settings models.TenantSettings

	err := r.db.Transaction(func(tx *gorm.DB) error {
		err := tx.Where("tenant_id = ?", tenantID).First(&settings).Error
		if err == gorm.ErrRecordNotFound {
			settings = models.TenantSettings{
				TenantID:  tenantID,
				CreatedAt: time.Now(),
			}
			if err := tx.Create(&settings).Error; err != nil {
				return err
			}
		} else if err != nil {
			return err
		}

		updates["updated_at"] = time.Now()
		if err := tx.Model(&models.TenantSettings{}).
			Where("tenant_id = ?", tenantID).
			Updates(updates).Error; err != nil {
			return err
		}

		return tx.Where("tenant_id = ?", tenantID).First(&settings).Error
	})

	if err != nil {
		return nil, err
	}
	return &settings, nil
}

// ListTenantIDs returns every tenant that owns at least one component. The
// alert sweep iterates this set.
func (r *SettingsRepository) ListTenantIDs() ([]string, error) {
	var tenantIDs []string
	err := r.db.Model(&models.Component{}).
		Distinct("tenant_id").
		Order("tenant_id").
		Pluck("tenant_id", &tenantIDs).Error
	return tenantIDs, err
}

// ========== Reorder Alert Operations ==========

// CreateAlert records a new reorder alert.
func (r *SettingsRepository) CreateAlert(tenantID string, alert *models.ReorderAlert) error {
	alert.TenantID = tenantID
	alert.CreatedAt = time.Now()
	alert.UpdatedAt = time.Now()
	return r.db.Create(alert).Error
}

// GetAlertByID retrieves an alert by ID
func (r *SettingsRepository) GetAlertByID(tenantID string, id uuid.UUID) (*models.ReorderAlert, error) {
	var alert models.ReorderAlert
	err := r.db.Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&alert).Error
	return &alert, err
}

// GetActiveAlertForComponent returns the open alert for a component, if any.
// At most one non-resolved alert exists per component; the sweep updates it
// in place instead of stacking duplicates.
func (r *SettingsRepository) GetActiveAlertForComponent(tenantID string, componentID uuid.UUID) (*models.ReorderAlert, error) {
	var alert models.ReorderAlert
	err := r.db.Where("tenant_id = ? AND component_id = ? AND status != ?",
		tenantID, componentID, models.AlertStatusResolved).
		First(&alert).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &alert, nil
}

// ListAlerts retrieves alerts with optional status filter, newest first.
func (r *SettingsRepository) ListAlerts(tenantID string, status *models.AlertStatus, page, limit int) ([]models.ReorderAlert, int64, error) {
	var alerts []models.ReorderAlert
	var total int64
	query := r.db.Where("tenant_id = ?", tenantID)

	if status != nil {
		query = query.Where("status = ?", *status)
	}

	if err := query.Model(&models.ReorderAlert{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if page > 0 && limit > 0 {
		offset := (page - 1) * limit
		query = query.Offset(offset).Limit(limit)
	}

	err := query.Order("created_at DESC").Find(&alerts).Error
	return alerts, total, err
}

// UpdateAlert updates an alert
func (r *SettingsRepository) UpdateAlert(tenantID string, id uuid.UUID, updates map[string]interface{}) error {
	updates["updated_at"] = time.Now()
	result := r.db.Model(&models.ReorderAlert{}).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ResolveAlertsForComponent closes any open alerts for a component that has
// recovered above its thresholds.
func (r *SettingsRepository) ResolveAlertsForComponent(tenantID string, componentID uuid.UUID) error {
	now := time.Now()
	return r.db.Model(&models.ReorderAlert{}).
		Where("tenant_id = ? AND component_id = ? AND status != ?",
			tenantID, componentID, models.AlertStatusResolved).
		Updates(map[string]interface{}{
			"status":      models.AlertStatusResolved,
			"resolved_at": &now,
			"updated_at":  now,
		}).Error
}
