package services

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"bomtrack/internal/models"
)

// LotAllocation is one slice of a lot assigned to a build.
type LotAllocation struct {
	ComponentID uuid.UUID
	Lot         *models.Lot
	Quantity    int
}

// AllocateLots assigns the required quantity of a component across its
// available lots, soonest expiry first, lots without an expiry date last.
// Expired lots are skipped unless allowExpired is set. The last lot used may
// be consumed partially. Returns an InsufficientInventoryError when usable
// lot balances cannot cover the requirement.
//
// lots must already be sorted in FIFO-by-expiry order; the repository's
// AvailableLots query guarantees this.
func AllocateLots(component *models.Component, lots []models.Lot, required int, allowExpired bool, now time.Time) ([]LotAllocation, error) {
	if required <= 0 {
		return nil, NewValidationError("quantity", "must be positive")
	}

	var allocations []LotAllocation
	remaining := required
	for i := range lots {
		if remaining == 0 {
			break
		}
		lot := &lots[i]
		if lot.Balance <= 0 {
			continue
		}
		if !allowExpired && lot.IsExpired(now) {
			continue
		}

		take := lot.Balance
		if take > remaining {
			take = remaining
		}
		allocations = append(allocations, LotAllocation{
			ComponentID: component.ID,
			Lot:         lot,
			Quantity:    take,
		})
		remaining -= take
	}

	if remaining > 0 {
		return nil, &InsufficientInventoryError{
			Shortages: []ComponentShortage{{
				ComponentID:   component.ID,
				ComponentCode: component.Code,
				Required:      required,
				Available:     required - remaining,
				Shortage:      remaining,
			}},
		}
	}

	return allocations, nil
}

// ValidateManualAllocations checks explicit per-lot allocations against the
// available lots for a component. The total must match required exactly, each
// lot must belong to the component and carry enough balance, and expired lots
// are rejected unless allowExpired is set.
func ValidateManualAllocations(component *models.Component, lots []models.Lot, manual []models.ManualAllocation, required int, allowExpired bool, now time.Time) ([]LotAllocation, error) {
	byID := make(map[uuid.UUID]*models.Lot, len(lots))
	for i := range lots {
		byID[lots[i].ID] = &lots[i]
	}

	var allocations []LotAllocation
	total := 0
	for _, m := range manual {
		if m.ComponentID != component.ID {
			continue
		}
		lot, ok := byID[m.LotID]
		if !ok {
			return nil, NewNotFoundError("lot", m.LotID)
		}
		if m.Quantity <= 0 {
			return nil, NewValidationError("quantity", "manual allocation quantity must be positive")
		}
		if m.Quantity > lot.Balance {
			return nil, NewValidationError("quantity",
				fmt.Sprintf("lot %s holds %d, cannot allocate %d", lot.LotCode, lot.Balance, m.Quantity))
		}
		if !allowExpired && lot.IsExpired(now) {
			return nil, NewValidationError("lotId",
				fmt.Sprintf("lot %s expired on %s", lot.LotCode, lot.ExpiryDate.Format("2006-01-02")))
		}
		allocations = append(allocations, LotAllocation{
			ComponentID: component.ID,
			Lot:         lot,
			Quantity:    m.Quantity,
		})
		total += m.Quantity
	}

	if total != required {
		return nil, NewValidationError("manualAllocations",
			fmt.Sprintf("allocations total %d but %d is required", total, required))
	}

	return allocations, nil
}
