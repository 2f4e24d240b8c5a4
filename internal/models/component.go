package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ReorderStatus classifies on-hand quantity against the reorder point.
type ReorderStatus string

const (
	ReorderStatusCritical ReorderStatus = "CRITICAL"
	ReorderStatusWarning  ReorderStatus = "WARNING"
	ReorderStatusOK       ReorderStatus = "OK"
)

// Component is a trackable inventory item. On-hand quantity is never stored
// on the row; it is derived from the transaction ledger.
type Component struct {
	ID       uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	TenantID string    `json:"tenantId" gorm:"type:varchar(255);not null;index"`
	BrandID  *string   `json:"brandId,omitempty" gorm:"type:varchar(255);index"`

	Code          string          `json:"code" gorm:"type:varchar(100);not null;uniqueIndex:idx_tenant_component_code"`
	Name          string          `json:"name" gorm:"type:varchar(255);not null"`
	UnitOfMeasure string          `json:"unitOfMeasure" gorm:"type:varchar(50);not null;default:'each'"`
	CostPerUnit   decimal.Decimal `json:"costPerUnit" gorm:"type:decimal(12,4);not null;default:0"`

	ReorderPoint int  `json:"reorderPoint" gorm:"not null;default:0"`
	LeadTimeDays int  `json:"leadTimeDays" gorm:"not null;default:0"`
	TrackLots    bool `json:"trackLots" gorm:"default:false"`
	IsActive     bool `json:"isActive" gorm:"default:true"`

	Supplier *string `json:"supplier,omitempty" gorm:"type:varchar(255)"`
	Notes    *string `json:"notes,omitempty" gorm:"type:text"`
	Metadata *JSON   `json:"metadata,omitempty" gorm:"type:jsonb"`

	// Audit fields
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
	DeletedAt *gorm.DeletedAt `json:"deletedAt,omitempty" gorm:"index"`
	CreatedBy *string         `json:"createdBy,omitempty"`
	UpdatedBy *string         `json:"updatedBy,omitempty"`
}

func (Component) TableName() string {
	return "components"
}

// LocationType describes where inventory resides.
type LocationType string

const (
	LocationTypeWarehouse     LocationType = "WAREHOUSE"
	LocationTypeThreePL       LocationType = "THREE_PL"
	LocationTypeFBA           LocationType = "FBA"
	LocationTypeFinishedGoods LocationType = "FINISHED_GOODS"
)

// Location is a place inventory can reside. Exactly one location per tenant
// is the default; the default cannot be deactivated or deleted.
type Location struct {
	ID       uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	TenantID string    `json:"tenantId" gorm:"type:varchar(255);not null;index"`

	Code      string       `json:"code" gorm:"type:varchar(50);not null;uniqueIndex:idx_tenant_location_code"`
	Name      string       `json:"name" gorm:"type:varchar(255);not null"`
	Type      LocationType `json:"type" gorm:"type:varchar(20);not null;default:'WAREHOUSE'"`
	IsDefault bool         `json:"isDefault" gorm:"default:false"`
	IsActive  bool         `json:"isActive" gorm:"default:true"`

	Notes    *string `json:"notes,omitempty" gorm:"type:text"`
	Metadata *JSON   `json:"metadata,omitempty" gorm:"type:jsonb"`

	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
	DeletedAt *gorm.DeletedAt `json:"deletedAt,omitempty" gorm:"index"`
}

func (Location) TableName() string {
	return "locations"
}

// Lot is a dated batch of a component. Balance is a maintained running total,
// decremented by consuming transaction lines and rebuildable from the ledger.
type Lot struct {
	ID          uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	TenantID    string    `json:"tenantId" gorm:"type:varchar(255);not null;index"`
	ComponentID uuid.UUID `json:"componentId" gorm:"type:uuid;not null;index"`

	LotCode    string     `json:"lotCode" gorm:"type:varchar(100);not null"`
	ExpiryDate *time.Time `json:"expiryDate,omitempty" gorm:"index"`
	Supplier   *string    `json:"supplier,omitempty" gorm:"type:varchar(255)"`
	Balance    int        `json:"balance" gorm:"not null;default:0"`
	ReceivedAt time.Time  `json:"receivedAt"`

	Component *Component `json:"component,omitempty" gorm:"foreignKey:ComponentID"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (Lot) TableName() string {
	return "lots"
}

// IsExpired reports whether the lot's expiry date is strictly before now.
func (l *Lot) IsExpired(now time.Time) bool {
	return l.ExpiryDate != nil && l.ExpiryDate.Before(now)
}

// Request/Response models

type CreateComponentRequest struct {
	Code          string           `json:"code" binding:"required,min=1,max=100"`
	Name          string           `json:"name" binding:"required,min=1,max=255"`
	UnitOfMeasure *string          `json:"unitOfMeasure,omitempty"`
	CostPerUnit   *decimal.Decimal `json:"costPerUnit,omitempty"`
	ReorderPoint  *int             `json:"reorderPoint,omitempty" binding:"omitempty,gte=0"`
	LeadTimeDays  *int             `json:"leadTimeDays,omitempty" binding:"omitempty,gte=0"`
	TrackLots     *bool            `json:"trackLots,omitempty"`
	Supplier      *string          `json:"supplier,omitempty"`
	Notes         *string          `json:"notes,omitempty"`
	Metadata      *JSON            `json:"metadata,omitempty"`
}

type CreateLocationRequest struct {
	Code      string        `json:"code" binding:"required,min=1,max=50"`
	Name      string        `json:"name" binding:"required,min=1,max=255"`
	Type      *LocationType `json:"type,omitempty"`
	IsDefault *bool         `json:"isDefault,omitempty"`
	Notes     *string       `json:"notes,omitempty"`
	Metadata  *JSON         `json:"metadata,omitempty"`
}

// ComponentWithStock is a component decorated with ledger-derived fields.
type ComponentWithStock struct {
	Component
	QuantityOnHand  int           `json:"quantityOnHand"`
	ReorderStatus   ReorderStatus `json:"reorderStatus"`
	DaysUntilRunout *float64      `json:"daysUntilRunout,omitempty"`
}

type ComponentResponse struct {
	Success bool       `json:"success"`
	Data    *Component `json:"data,omitempty"`
	Message *string    `json:"message,omitempty"`
}

type ComponentListResponse struct {
	Success    bool                 `json:"success"`
	Data       []ComponentWithStock `json:"data"`
	Pagination *PaginationMeta      `json:"pagination,omitempty"`
}

type LocationResponse struct {
	Success bool      `json:"success"`
	Data    *Location `json:"data,omitempty"`
	Message *string   `json:"message,omitempty"`
}

type LocationListResponse struct {
	Success    bool            `json:"success"`
	Data       []Location      `json:"data"`
	Pagination *PaginationMeta `json:"pagination,omitempty"`
}

type LotListResponse struct {
	Success    bool            `json:"success"`
	Data       []Lot           `json:"data"`
	Pagination *PaginationMeta `json:"pagination,omitempty"`
}
