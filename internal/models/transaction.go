package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionType is the kind of inventory event recorded in the ledger.
type TransactionType string

const (
	TransactionTypeReceipt    TransactionType = "RECEIPT"
	TransactionTypeInitial    TransactionType = "INITIAL"
	TransactionTypeBuild      TransactionType = "BUILD"
	TransactionTypeTransfer   TransactionType = "TRANSFER"
	TransactionTypeAdjustment TransactionType = "ADJUSTMENT"
	TransactionTypeOutbound   TransactionType = "OUTBOUND"
)

// ValidTransactionType reports whether t is one of the known types.
func ValidTransactionType(t TransactionType) bool {
	switch t {
	case TransactionTypeReceipt, TransactionTypeInitial, TransactionTypeBuild,
		TransactionTypeTransfer, TransactionTypeAdjustment, TransactionTypeOutbound:
		return true
	}
	return false
}

// Transaction is an immutable record of one inventory event. Rows are never
// updated or deleted; corrections happen via compensating adjustments.
type Transaction struct {
	ID       uuid.UUID       `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	TenantID string          `json:"tenantId" gorm:"type:varchar(255);not null;index"`
	Type     TransactionType `json:"type" gorm:"type:varchar(20);not null;index"`

	// Build fields: cost is snapshotted at build time and never rewritten by
	// later component cost changes.
	SKUID            *uuid.UUID       `json:"skuId,omitempty" gorm:"type:uuid;index"`
	UnitsBuilt       *int             `json:"unitsBuilt,omitempty"`
	UnitCostSnapshot *decimal.Decimal `json:"unitCostSnapshot,omitempty" gorm:"type:decimal(12,4)"`

	ReasonCode *string `json:"reasonCode,omitempty" gorm:"type:varchar(50)"`
	Reference  *string `json:"reference,omitempty" gorm:"type:varchar(255)"`
	Notes      *string `json:"notes,omitempty" gorm:"type:text"`

	CreatedAt time.Time `json:"createdAt" gorm:"index"`
	CreatedBy *string   `json:"createdBy,omitempty"`

	Lines []TransactionLine `json:"lines,omitempty" gorm:"foreignKey:TransactionID"`
}

func (Transaction) TableName() string {
	return "transactions"
}

// TransactionLine is one signed quantity change. Exactly one of ComponentID
// and SKUID is set: component lines move raw inventory, SKU lines move
// finished goods.
type TransactionLine struct {
	ID            uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	TenantID      string    `json:"tenantId" gorm:"type:varchar(255);not null;index"`
	TransactionID uuid.UUID `json:"transactionId" gorm:"type:uuid;not null;index"`

	ComponentID *uuid.UUID `json:"componentId,omitempty" gorm:"type:uuid;index"`
	SKUID       *uuid.UUID `json:"skuId,omitempty" gorm:"type:uuid;index"`
	LocationID  uuid.UUID  `json:"locationId" gorm:"type:uuid;not null;index"`
	LotID       *uuid.UUID `json:"lotId,omitempty" gorm:"type:uuid;index"`

	QuantityChange int              `json:"quantityChange" gorm:"not null"`
	UnitCost       *decimal.Decimal `json:"unitCost,omitempty" gorm:"type:decimal(12,4)"`

	CreatedAt time.Time `json:"createdAt"`
}

func (TransactionLine) TableName() string {
	return "transaction_lines"
}

// Request models, one per transaction type.

type NewLotRequest struct {
	LotCode    string     `json:"lotCode" binding:"required,min=1,max=100"`
	ExpiryDate *time.Time `json:"expiryDate,omitempty"`
	Supplier   *string    `json:"supplier,omitempty"`
}

type ReceiptRequest struct {
	ComponentID         uuid.UUID        `json:"componentId" binding:"required"`
	LocationID          *uuid.UUID       `json:"locationId,omitempty"`
	Quantity            int              `json:"quantity" binding:"required,gt=0"`
	UnitCost            *decimal.Decimal `json:"unitCost,omitempty"`
	UpdateComponentCost bool             `json:"updateComponentCost,omitempty"`
	Lot                 *NewLotRequest   `json:"lot,omitempty"`
	Reference           *string          `json:"reference,omitempty"`
	Notes               *string          `json:"notes,omitempty"`
}

// ManualAllocation is an explicit per-lot allocation that bypasses FIFO
// selection during a build.
type ManualAllocation struct {
	ComponentID uuid.UUID `json:"componentId" binding:"required"`
	LotID       uuid.UUID `json:"lotId" binding:"required"`
	Quantity    int       `json:"quantity" binding:"required,gt=0"`
}

type BuildRequest struct {
	SKUID                      uuid.UUID          `json:"skuId" binding:"required"`
	UnitsToBuild               int                `json:"unitsToBuild" binding:"required,gt=0"`
	ConsumeLocationID          *uuid.UUID         `json:"consumeLocationId,omitempty"`
	OutputLocationID           *uuid.UUID         `json:"outputLocationId,omitempty"`
	OutputToFinishedGoods      *bool              `json:"outputToFinishedGoods,omitempty"`
	AllowInsufficientInventory bool               `json:"allowInsufficientInventory,omitempty"`
	AllowExpiredLots           bool               `json:"allowExpiredLots,omitempty"`
	ManualAllocations          []ManualAllocation `json:"manualAllocations,omitempty"`
	Reference                  *string            `json:"reference,omitempty"`
	Notes                      *string            `json:"notes,omitempty"`
}

type TransferRequest struct {
	ComponentID    uuid.UUID  `json:"componentId" binding:"required"`
	FromLocationID uuid.UUID  `json:"fromLocationId" binding:"required"`
	ToLocationID   uuid.UUID  `json:"toLocationId" binding:"required"`
	Quantity       int        `json:"quantity" binding:"required,gt=0"`
	LotID          *uuid.UUID `json:"lotId,omitempty"`
	Notes          *string    `json:"notes,omitempty"`
}

type AdjustmentRequest struct {
	ComponentID    uuid.UUID  `json:"componentId" binding:"required"`
	LocationID     *uuid.UUID `json:"locationId,omitempty"`
	QuantityChange int        `json:"quantityChange" binding:"required"`
	ReasonCode     string     `json:"reasonCode" binding:"required,min=1,max=50"`
	LotID          *uuid.UUID `json:"lotId,omitempty"`
	Notes          *string    `json:"notes,omitempty"`
}

type OutboundRequest struct {
	SKUID      uuid.UUID  `json:"skuId" binding:"required"`
	LocationID *uuid.UUID `json:"locationId,omitempty"`
	Quantity   int        `json:"quantity" binding:"required,gt=0"`
	Reference  *string    `json:"reference,omitempty"`
	Notes      *string    `json:"notes,omitempty"`
}

type TransactionResponse struct {
	Success bool         `json:"success"`
	Data    *Transaction `json:"data,omitempty"`
	Message *string      `json:"message,omitempty"`
}

type TransactionListResponse struct {
	Success    bool            `json:"success"`
	Data       []Transaction   `json:"data"`
	Pagination *PaginationMeta `json:"pagination,omitempty"`
}
