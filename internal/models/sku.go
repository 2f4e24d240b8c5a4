package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// SKU is a sellable/buildable product, optionally composed via a BOM version.
type SKU struct {
	ID       uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	TenantID string    `json:"tenantId" gorm:"type:varchar(255);not null;index"`
	BrandID  *string   `json:"brandId,omitempty" gorm:"type:varchar(255);index"`

	Code     string `json:"code" gorm:"type:varchar(100);not null;uniqueIndex:idx_tenant_sku_code"`
	Name     string `json:"name" gorm:"type:varchar(255);not null"`
	IsActive bool   `json:"isActive" gorm:"default:true"`

	Notes    *string `json:"notes,omitempty" gorm:"type:text"`
	Metadata *JSON   `json:"metadata,omitempty" gorm:"type:jsonb"`

	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
	DeletedAt *gorm.DeletedAt `json:"deletedAt,omitempty" gorm:"index"`

	BOMVersions []BOMVersion `json:"bomVersions,omitempty" gorm:"foreignKey:SKUID"`
}

func (SKU) TableName() string {
	return "skus"
}

// BOMVersionStatus is the lifecycle state of a BOM version.
// draft -> active -> superseded; superseded is terminal and there is no way
// back from active to draft.
type BOMVersionStatus string

const (
	BOMVersionStatusDraft      BOMVersionStatus = "DRAFT"
	BOMVersionStatusActive     BOMVersionStatus = "ACTIVE"
	BOMVersionStatusSuperseded BOMVersionStatus = "SUPERSEDED"
)

// BOMVersion is a dated, versioned bill of materials for a SKU.
// At most one version per SKU is active at any time.
type BOMVersion struct {
	ID       uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	TenantID string    `json:"tenantId" gorm:"type:varchar(255);not null;index"`
	SKUID    uuid.UUID `json:"skuId" gorm:"type:uuid;not null;index"`

	Version            int              `json:"version" gorm:"not null;default:1"`
	Status             BOMVersionStatus `json:"status" gorm:"type:varchar(20);not null;default:'DRAFT';index"`
	EffectiveStartDate *time.Time       `json:"effectiveStartDate,omitempty"`
	EffectiveEndDate   *time.Time       `json:"effectiveEndDate,omitempty"`

	Notes *string `json:"notes,omitempty" gorm:"type:text"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	CreatedBy *string   `json:"createdBy,omitempty"`

	SKU   *SKU      `json:"sku,omitempty" gorm:"foreignKey:SKUID"`
	Lines []BOMLine `json:"lines,omitempty" gorm:"foreignKey:BOMVersionID"`
}

func (BOMVersion) TableName() string {
	return "bom_versions"
}

// IsActive reports whether this version is the active one for its SKU.
func (v *BOMVersion) IsActive() bool {
	return v.Status == BOMVersionStatusActive
}

// BOMLine is one component requirement within a BOM version.
type BOMLine struct {
	ID           uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	TenantID     string    `json:"tenantId" gorm:"type:varchar(255);not null;index"`
	BOMVersionID uuid.UUID `json:"bomVersionId" gorm:"type:uuid;not null;index"`
	ComponentID  uuid.UUID `json:"componentId" gorm:"type:uuid;not null;index"`

	QuantityPerUnit int `json:"quantityPerUnit" gorm:"not null"`

	Component *Component `json:"component,omitempty" gorm:"foreignKey:ComponentID"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (BOMLine) TableName() string {
	return "bom_lines"
}

// Request/Response models

type CreateSKURequest struct {
	Code     string  `json:"code" binding:"required,min=1,max=100"`
	Name     string  `json:"name" binding:"required,min=1,max=255"`
	BrandID  *string `json:"brandId,omitempty"`
	Notes    *string `json:"notes,omitempty"`
	Metadata *JSON   `json:"metadata,omitempty"`
}

type CreateBOMVersionRequest struct {
	Notes *string                `json:"notes,omitempty"`
	Lines []CreateBOMLineRequest `json:"lines" binding:"required,min=1"`
}

type CreateBOMLineRequest struct {
	ComponentID     uuid.UUID `json:"componentId" binding:"required"`
	QuantityPerUnit int       `json:"quantityPerUnit" binding:"required,gt=0"`
}

// BOMLineCost is the per-line cost contribution of a BOM version.
type BOMLineCost struct {
	ComponentID     uuid.UUID       `json:"componentId"`
	ComponentCode   string          `json:"componentCode"`
	QuantityPerUnit int             `json:"quantityPerUnit"`
	UnitCost        decimal.Decimal `json:"unitCost"`
	LineCost        decimal.Decimal `json:"lineCost"`
}

// BOMCostBreakdown is the computed cost of one built unit.
type BOMCostBreakdown struct {
	BOMVersionID uuid.UUID       `json:"bomVersionId"`
	UnitCost     decimal.Decimal `json:"unitCost"`
	Lines        []BOMLineCost   `json:"lines"`
}

// ComponentAvailability reports required vs available for one BOM line at a
// requested build quantity.
type ComponentAvailability struct {
	ComponentID   uuid.UUID `json:"componentId"`
	ComponentCode string    `json:"componentCode"`
	Required      int       `json:"required"`
	Available     int       `json:"available"`
	Shortage      int       `json:"shortage"`
}

type SKUResponse struct {
	Success bool    `json:"success"`
	Data    *SKU    `json:"data,omitempty"`
	Message *string `json:"message,omitempty"`
}

type SKUListResponse struct {
	Success    bool            `json:"success"`
	Data       []SKU           `json:"data"`
	Pagination *PaginationMeta `json:"pagination,omitempty"`
}

type BOMVersionResponse struct {
	Success bool        `json:"success"`
	Data    *BOMVersion `json:"data,omitempty"`
	Message *string     `json:"message,omitempty"`
}

type ActivateBOMVersionResponse struct {
	Success bool              `json:"success"`
	Data    *BOMVersion       `json:"data,omitempty"`
	Cost    *BOMCostBreakdown `json:"cost,omitempty"`
	Message *string           `json:"message,omitempty"`
}

// LotAvailabilityResponse combines the availability check with a lot
// allocation preview for a requested build quantity.
type LotAvailabilityResponse struct {
	Success     bool                    `json:"success"`
	SKUID       uuid.UUID               `json:"skuId"`
	Units       int                     `json:"units"`
	Buildable   bool                    `json:"buildable"`
	Components  []ComponentAvailability `json:"components"`
	Allocations []LotAllocationPreview  `json:"allocations"`
}

// LotAllocationPreview shows which lots a build would consume.
type LotAllocationPreview struct {
	ComponentID uuid.UUID  `json:"componentId"`
	LotID       uuid.UUID  `json:"lotId"`
	LotCode     string     `json:"lotCode"`
	ExpiryDate  *time.Time `json:"expiryDate,omitempty"`
	Quantity    int        `json:"quantity"`
}
