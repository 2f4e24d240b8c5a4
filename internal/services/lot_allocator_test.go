package services

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bomtrack/internal/models"
)

func testComponent() *models.Component {
	return &models.Component{
		ID:        uuid.New(),
		Code:      "WIDGET-01",
		Name:      "Widget",
		TrackLots: true,
	}
}

func makeLot(balance int, expiry *time.Time, received time.Time) models.Lot {
	return models.Lot{
		ID:         uuid.New(),
		LotCode:    "LOT-" + uuid.NewString()[:8],
		Balance:    balance,
		ExpiryDate: expiry,
		ReceivedAt: received,
	}
}

func datePtr(t time.Time) *time.Time {
	return &t
}

func TestAllocateLotsFIFOByExpiry(t *testing.T) {
	component := testComponent()
	now := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	soon := makeLot(30, datePtr(now.AddDate(0, 1, 0)), now.AddDate(0, 0, -10))
	later := makeLot(50, datePtr(now.AddDate(0, 6, 0)), now.AddDate(0, 0, -20))
	noExpiry := makeLot(100, nil, now.AddDate(0, 0, -30))

	// pre-sorted: soonest expiry first, no expiry last
	lots := []models.Lot{soon, later, noExpiry}

	allocations, err := AllocateLots(component, lots, 60, false, now)
	require.NoError(t, err)
	require.Len(t, allocations, 2)

	assert.Equal(t, soon.ID, allocations[0].Lot.ID)
	assert.Equal(t, 30, allocations[0].Quantity)
	assert.Equal(t, later.ID, allocations[1].Lot.ID)
	assert.Equal(t, 30, allocations[1].Quantity, "last lot should be consumed partially")
}

func TestAllocateLotsSkipsExpired(t *testing.T) {
	component := testComponent()
	now := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	expired := makeLot(40, datePtr(now.AddDate(0, 0, -1)), now.AddDate(0, -2, 0))
	fresh := makeLot(40, datePtr(now.AddDate(0, 3, 0)), now.AddDate(0, -1, 0))
	lots := []models.Lot{expired, fresh}

	allocations, err := AllocateLots(component, lots, 40, false, now)
	require.NoError(t, err)
	require.Len(t, allocations, 1)
	assert.Equal(t, fresh.ID, allocations[0].Lot.ID)
}

func TestAllocateLotsExpiredAllowedWhenOptedIn(t *testing.T) {
	component := testComponent()
	now := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	expired := makeLot(40, datePtr(now.AddDate(0, 0, -1)), now.AddDate(0, -2, 0))
	lots := []models.Lot{expired}

	allocations, err := AllocateLots(component, lots, 25, true, now)
	require.NoError(t, err)
	require.Len(t, allocations, 1)
	assert.Equal(t, 25, allocations[0].Quantity)
}

func TestAllocateLotsInsufficient(t *testing.T) {
	component := testComponent()
	now := time.Now()

	lots := []models.Lot{makeLot(10, nil, now)}

	_, err := AllocateLots(component, lots, 25, false, now)
	require.Error(t, err)

	ie, ok := AsInsufficientInventory(err)
	require.True(t, ok)
	require.Len(t, ie.Shortages, 1)
	assert.Equal(t, 25, ie.Shortages[0].Required)
	assert.Equal(t, 10, ie.Shortages[0].Available)
	assert.Equal(t, 15, ie.Shortages[0].Shortage)
	assert.Equal(t, component.Code, ie.Shortages[0].ComponentCode)
}

func TestAllocateLotsIgnoresEmptyLots(t *testing.T) {
	component := testComponent()
	now := time.Now()

	empty := makeLot(0, nil, now)
	stocked := makeLot(20, nil, now)
	lots := []models.Lot{empty, stocked}

	allocations, err := AllocateLots(component, lots, 20, false, now)
	require.NoError(t, err)
	require.Len(t, allocations, 1)
	assert.Equal(t, stocked.ID, allocations[0].Lot.ID)
}

func TestAllocateLotsRejectsNonPositiveQuantity(t *testing.T) {
	component := testComponent()
	_, err := AllocateLots(component, nil, 0, false, time.Now())
	assert.True(t, IsValidation(err))
}

func TestValidateManualAllocations(t *testing.T) {
	component := testComponent()
	now := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	lotA := makeLot(50, datePtr(now.AddDate(0, 2, 0)), now)
	lotB := makeLot(50, datePtr(now.AddDate(0, 4, 0)), now)
	lots := []models.Lot{lotA, lotB}

	t.Run("exact total accepted", func(t *testing.T) {
		manual := []models.ManualAllocation{
			{ComponentID: component.ID, LotID: lotA.ID, Quantity: 30},
			{ComponentID: component.ID, LotID: lotB.ID, Quantity: 10},
		}
		allocations, err := ValidateManualAllocations(component, lots, manual, 40, false, now)
		require.NoError(t, err)
		assert.Len(t, allocations, 2)
	})

	t.Run("total mismatch rejected", func(t *testing.T) {
		manual := []models.ManualAllocation{
			{ComponentID: component.ID, LotID: lotA.ID, Quantity: 30},
		}
		_, err := ValidateManualAllocations(component, lots, manual, 40, false, now)
		assert.True(t, IsValidation(err))
	})

	t.Run("over-draw on a lot rejected", func(t *testing.T) {
		manual := []models.ManualAllocation{
			{ComponentID: component.ID, LotID: lotA.ID, Quantity: 60},
		}
		_, err := ValidateManualAllocations(component, lots, manual, 60, false, now)
		assert.True(t, IsValidation(err))
	})

	t.Run("unknown lot rejected", func(t *testing.T) {
		manual := []models.ManualAllocation{
			{ComponentID: component.ID, LotID: uuid.New(), Quantity: 40},
		}
		_, err := ValidateManualAllocations(component, lots, manual, 40, false, now)
		assert.True(t, IsNotFound(err))
	})

	t.Run("expired lot rejected unless opted in", func(t *testing.T) {
		expired := makeLot(50, datePtr(now.AddDate(0, 0, -5)), now.AddDate(0, -3, 0))
		manual := []models.ManualAllocation{
			{ComponentID: component.ID, LotID: expired.ID, Quantity: 20},
		}

		_, err := ValidateManualAllocations(component, []models.Lot{expired}, manual, 20, false, now)
		assert.True(t, IsValidation(err))

		allocations, err := ValidateManualAllocations(component, []models.Lot{expired}, manual, 20, true, now)
		require.NoError(t, err)
		assert.Len(t, allocations, 1)
	})
}
