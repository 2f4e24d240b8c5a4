package services

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bomtrack/internal/models"
)

func TestTransferRejectsIdenticalLocations(t *testing.T) {
	svc := NewTransactionService(nil, nil, nil, nil, nil, logrus.New())

	locationID := uuid.New()
	_, err := svc.Transfer("tenant-1", &models.TransferRequest{
		ComponentID:    uuid.New(),
		FromLocationID: locationID,
		ToLocationID:   locationID,
		Quantity:       10,
	}, nil)

	assert.True(t, IsValidation(err), "identical source and destination must be rejected before any lookup")
}

func TestAdjustmentRejectsZeroChange(t *testing.T) {
	svc := NewTransactionService(nil, nil, nil, nil, nil, logrus.New())

	_, err := svc.Adjustment("tenant-1", &models.AdjustmentRequest{
		ComponentID:    uuid.New(),
		QuantityChange: 0,
		ReasonCode:     "CYCLE_COUNT",
	}, nil)

	assert.True(t, IsValidation(err))
}

func TestPlanBuildLinesShortage(t *testing.T) {
	componentID := uuid.New()
	locationID := uuid.New()
	version := &models.BOMVersion{Lines: []models.BOMLine{{
		ComponentID:     componentID,
		QuantityPerUnit: 2,
		Component:       &models.Component{ID: componentID, Code: "WIDGET", IsActive: true},
	}}}
	lookups := buildLookups{
		available: func(uuid.UUID) (int, error) { return 15, nil },
		lots:      func(uuid.UUID) ([]models.Lot, error) { return nil, nil },
	}

	t.Run("rejected with shortage detail", func(t *testing.T) {
		// 10 units x 2 per unit = 20 required against 15 on hand.
		_, err := planBuildLines(version, &models.BuildRequest{
			SKUID:        uuid.New(),
			UnitsToBuild: 10,
		}, locationID, lookups, time.Now())

		ie, ok := AsInsufficientInventory(err)
		require.True(t, ok, "expected an insufficiency error, got %v", err)
		require.Len(t, ie.Shortages, 1)
		assert.Equal(t, componentID, ie.Shortages[0].ComponentID)
		assert.Equal(t, 20, ie.Shortages[0].Required)
		assert.Equal(t, 15, ie.Shortages[0].Available)
		assert.Equal(t, 5, ie.Shortages[0].Shortage)
	})

	t.Run("override books the full consumption", func(t *testing.T) {
		lines, err := planBuildLines(version, &models.BuildRequest{
			SKUID:                      uuid.New(),
			UnitsToBuild:               10,
			AllowInsufficientInventory: true,
		}, locationID, lookups, time.Now())

		require.NoError(t, err)
		require.Len(t, lines, 1)
		assert.Equal(t, &componentID, lines[0].ComponentID)
		assert.Equal(t, locationID, lines[0].LocationID)
		assert.Equal(t, -20, lines[0].QuantityChange)
		// 15 on hand + the booked line leaves the location at -5.
		assert.Equal(t, -5, 15+lines[0].QuantityChange)
	})
}

func TestPlanBuildLinesLotRemainder(t *testing.T) {
	componentID := uuid.New()
	locationID := uuid.New()
	lotA := models.Lot{ID: uuid.New(), ComponentID: componentID, LotCode: "L-A", Balance: 8}
	lotB := models.Lot{ID: uuid.New(), ComponentID: componentID, LotCode: "L-B", Balance: 4}

	version := &models.BOMVersion{Lines: []models.BOMLine{{
		ComponentID:     componentID,
		QuantityPerUnit: 2,
		Component:       &models.Component{ID: componentID, Code: "SERUM", IsActive: true, TrackLots: true},
	}}}
	lookups := buildLookups{
		available: func(uuid.UUID) (int, error) { return 12, nil },
		lots:      func(uuid.UUID) ([]models.Lot, error) { return []models.Lot{lotA, lotB}, nil },
	}

	lines, err := planBuildLines(version, &models.BuildRequest{
		SKUID:                      uuid.New(),
		UnitsToBuild:               10,
		AllowInsufficientInventory: true,
	}, locationID, lookups, time.Now())

	require.NoError(t, err)
	require.Len(t, lines, 3)

	byLot := make(map[uuid.UUID]int)
	unlotted := 0
	total := 0
	for _, line := range lines {
		total += line.QuantityChange
		if line.LotID != nil {
			byLot[*line.LotID] = line.QuantityChange
		} else {
			unlotted += line.QuantityChange
		}
	}
	assert.Equal(t, -8, byLot[lotA.ID], "earliest lot drained first")
	assert.Equal(t, -4, byLot[lotB.ID])
	assert.Equal(t, -8, unlotted, "remainder past lot stock booked unlotted")
	assert.Equal(t, -20, total)
}

func TestHasManualAllocationsFor(t *testing.T) {
	componentID := uuid.New()
	other := uuid.New()
	manual := []models.ManualAllocation{
		{ComponentID: componentID, LotID: uuid.New(), Quantity: 5},
	}

	assert.True(t, hasManualAllocationsFor(manual, componentID))
	assert.False(t, hasManualAllocationsFor(manual, other))
	assert.False(t, hasManualAllocationsFor(nil, componentID))
}
