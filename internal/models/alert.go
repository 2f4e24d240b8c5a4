package models

import (
	"time"

	"github.com/google/uuid"
)

// AlertStatus represents the status of an alert
type AlertStatus string

const (
	AlertStatusActive       AlertStatus = "ACTIVE"
	AlertStatusAcknowledged AlertStatus = "ACKNOWLEDGED"
	AlertStatusResolved     AlertStatus = "RESOLVED"
)

// ReorderAlert records one reorder-status finding from the alert sweep.
// One active alert per (tenant, component); replenishment resolves it.
type ReorderAlert struct {
	ID          uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	TenantID    string    `json:"tenantId" gorm:"type:varchar(255);not null;index"`
	ComponentID uuid.UUID `json:"componentId" gorm:"type:uuid;not null;index"`

	Status        AlertStatus   `json:"status" gorm:"type:varchar(20);not null;default:'ACTIVE';index"`
	ReorderStatus ReorderStatus `json:"reorderStatus" gorm:"type:varchar(20);not null"`

	Message        string  `json:"message" gorm:"type:text;not null"`
	QuantityOnHand int     `json:"quantityOnHand" gorm:"not null;default:0"`
	ReorderPoint   int     `json:"reorderPoint" gorm:"not null;default:0"`
	ComponentCode  *string `json:"componentCode,omitempty" gorm:"type:varchar(100)"`
	ComponentName  *string `json:"componentName,omitempty" gorm:"type:varchar(255)"`

	AcknowledgedBy *string    `json:"acknowledgedBy,omitempty" gorm:"type:varchar(255)"`
	AcknowledgedAt *time.Time `json:"acknowledgedAt,omitempty"`
	ResolvedAt     *time.Time `json:"resolvedAt,omitempty"`

	CreatedAt time.Time `json:"createdAt" gorm:"not null"`
	UpdatedAt time.Time `json:"updatedAt" gorm:"not null"`
}

func (ReorderAlert) TableName() string {
	return "reorder_alerts"
}

type UpdateAlertStatusRequest struct {
	Status AlertStatus `json:"status" binding:"required"`
}

type AlertResponse struct {
	Success bool          `json:"success"`
	Data    *ReorderAlert `json:"data,omitempty"`
	Message *string       `json:"message,omitempty"`
}

type AlertListResponse struct {
	Success    bool            `json:"success"`
	Data       []ReorderAlert  `json:"data"`
	Pagination *PaginationMeta `json:"pagination,omitempty"`
}
