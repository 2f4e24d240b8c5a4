package services

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bomtrack/internal/models"
)

func bomLine(code string, cost string, qty int) models.BOMLine {
	component := &models.Component{
		ID:          uuid.New(),
		Code:        code,
		CostPerUnit: decimal.RequireFromString(cost),
	}
	return models.BOMLine{
		ID:              uuid.New(),
		ComponentID:     component.ID,
		QuantityPerUnit: qty,
		Component:       component,
	}
}

func TestComputeCost(t *testing.T) {
	version := &models.BOMVersion{
		ID: uuid.New(),
		Lines: []models.BOMLine{
			bomLine("BOTTLE", "0.45", 1),
			bomLine("CAP", "0.12", 1),
			bomLine("LABEL", "0.0750", 2),
		},
	}

	breakdown := ComputeCost(version)

	require.Len(t, breakdown.Lines, 3)
	assert.True(t, breakdown.Lines[0].LineCost.Equal(decimal.RequireFromString("0.45")))
	assert.True(t, breakdown.Lines[2].LineCost.Equal(decimal.RequireFromString("0.15")), "line cost is unit cost times quantity")
	assert.True(t, breakdown.UnitCost.Equal(decimal.RequireFromString("0.72")))
}

func TestComputeCostEmptyBOM(t *testing.T) {
	version := &models.BOMVersion{ID: uuid.New()}
	breakdown := ComputeCost(version)
	assert.True(t, breakdown.UnitCost.IsZero())
	assert.Empty(t, breakdown.Lines)
}

func TestComputeCostExactDecimalArithmetic(t *testing.T) {
	// 0.1 + 0.2 must be exactly 0.3, not a float approximation
	version := &models.BOMVersion{
		ID: uuid.New(),
		Lines: []models.BOMLine{
			bomLine("A", "0.1", 1),
			bomLine("B", "0.2", 1),
		},
	}
	breakdown := ComputeCost(version)
	assert.True(t, breakdown.UnitCost.Equal(decimal.RequireFromString("0.3")))
}
