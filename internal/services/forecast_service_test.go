package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bomtrack/internal/models"
)

func TestClassifyReorder(t *testing.T) {
	tests := []struct {
		name         string
		onHand       int
		reorderPoint int
		multiplier   float64
		want         models.ReorderStatus
	}{
		{"at reorder point is critical", 100, 100, 1.5, models.ReorderStatusCritical},
		{"below reorder point is critical", 40, 100, 1.5, models.ReorderStatusCritical},
		{"within warning band", 120, 100, 1.5, models.ReorderStatusWarning},
		{"at warning boundary", 150, 100, 1.5, models.ReorderStatusWarning},
		{"above warning band", 160, 100, 1.5, models.ReorderStatusOK},
		{"zero reorder point with empty stock is critical", 0, 0, 1.5, models.ReorderStatusCritical},
		{"zero reorder point with stock is ok", 5, 0, 1.5, models.ReorderStatusOK},
		{"negative on hand is critical", -5, 0, 1.5, models.ReorderStatusCritical},
		{"custom multiplier widens band", 180, 100, 2.0, models.ReorderStatusWarning},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyReorder(tt.onHand, tt.reorderPoint, tt.multiplier))
		})
	}
}

func TestAverageDailyConsumption(t *testing.T) {
	assert.InDelta(t, 2.0, AverageDailyConsumption(60, 30), 0.0001)
	assert.Equal(t, 0.0, AverageDailyConsumption(60, 0))
	assert.Equal(t, 0.0, AverageDailyConsumption(0, 30))
}

func TestDaysUntilRunout(t *testing.T) {
	t.Run("positive rate", func(t *testing.T) {
		days := DaysUntilRunout(90, 3.0)
		require.NotNil(t, days)
		assert.InDelta(t, 30.0, *days, 0.0001)
	})

	t.Run("zero consumption yields no estimate", func(t *testing.T) {
		assert.Nil(t, DaysUntilRunout(90, 0))
	})
}

func TestRecommendedReorderDate(t *testing.T) {
	now := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	t.Run("pulls runout forward by lead time and safety days", func(t *testing.T) {
		runout := 30.0
		got := RecommendedReorderDate(now, &runout, 14, 7)
		require.NotNil(t, got)
		// 30 - 14 - 7 = 9 days out
		assert.Equal(t, now.AddDate(0, 0, 9), got.UTC().Truncate(time.Hour))
	})

	t.Run("past date means already late", func(t *testing.T) {
		runout := 5.0
		got := RecommendedReorderDate(now, &runout, 14, 7)
		require.NotNil(t, got)
		assert.True(t, got.Before(now))
	})

	t.Run("no runout means no recommendation", func(t *testing.T) {
		assert.Nil(t, RecommendedReorderDate(now, nil, 14, 7))
	})
}
