package services

import (
	"time"

	"github.com/google/uuid"

	"bomtrack/internal/models"
	"bomtrack/internal/repository"
)

// ForecastService classifies components against their reorder points and
// estimates runout dates from recent consumption.
type ForecastService struct {
	ledgerRepo   *repository.LedgerRepository
	settingsRepo *repository.SettingsRepository
}

func NewForecastService(ledgerRepo *repository.LedgerRepository, settingsRepo *repository.SettingsRepository) *ForecastService {
	return &ForecastService{ledgerRepo: ledgerRepo, settingsRepo: settingsRepo}
}

// ClassifyReorder maps on-hand quantity to a reorder status. The thresholds
// apply uniformly, so a component with reorder point zero and nothing on hand
// is still critical; the alert sweep separately skips components without a
// configured reorder point.
func ClassifyReorder(onHand, reorderPoint int, warningMultiplier float64) models.ReorderStatus {
	if onHand <= reorderPoint {
		return models.ReorderStatusCritical
	}
	if float64(onHand) <= float64(reorderPoint)*warningMultiplier {
		return models.ReorderStatusWarning
	}
	return models.ReorderStatusOK
}

// AverageDailyConsumption converts a lookback-window consumption total into a
// per-day rate.
func AverageDailyConsumption(consumed, lookbackDays int) float64 {
	if lookbackDays <= 0 {
		return 0
	}
	return float64(consumed) / float64(lookbackDays)
}

// DaysUntilRunout estimates how many days the on-hand quantity lasts at the
// given daily rate. Returns nil when there is no consumption to extrapolate
// from.
func DaysUntilRunout(onHand int, dailyRate float64) *float64 {
	if dailyRate <= 0 {
		return nil
	}
	days := float64(onHand) / dailyRate
	return &days
}

// RecommendedReorderDate is the runout date pulled forward by lead time and
// the safety margin. Nil when runout cannot be estimated. A date in the past
// means the order is already late.
func RecommendedReorderDate(now time.Time, daysUntilRunout *float64, leadTimeDays, safetyDays int) *time.Time {
	if daysUntilRunout == nil {
		return nil
	}
	days := *daysUntilRunout - float64(leadTimeDays) - float64(safetyDays)
	date := now.Add(time.Duration(days * float64(24) * float64(time.Hour)))
	return &date
}

// ComponentForecast is the full derived picture for one component.
type ComponentForecast struct {
	QuantityOnHand       int
	ReorderStatus        models.ReorderStatus
	DailyConsumptionRate float64
	DaysUntilRunout      *float64
	RecommendedReorderAt *time.Time
}

// ForecastComponent computes on-hand, reorder status and runout estimate for
// one component using the tenant's resolved settings.
func (s *ForecastService) ForecastComponent(tenantID string, component *models.Component, settings models.ResolvedSettings) (*ComponentForecast, error) {
	onHand, err := s.ledgerRepo.CurrentQuantity(tenantID, component.ID, nil)
	if err != nil {
		return nil, err
	}

	since := time.Now().AddDate(0, 0, -settings.LookbackDays)
	consumed, err := s.ledgerRepo.ConsumptionSince(tenantID, component.ID, since, settings.ExcludedTypes)
	if err != nil {
		return nil, err
	}

	rate := AverageDailyConsumption(consumed, settings.LookbackDays)
	runout := DaysUntilRunout(onHand, rate)

	return &ComponentForecast{
		QuantityOnHand:       onHand,
		ReorderStatus:        ClassifyReorder(onHand, component.ReorderPoint, settings.WarningMultiplier),
		DailyConsumptionRate: rate,
		DaysUntilRunout:      runout,
		RecommendedReorderAt: RecommendedReorderDate(time.Now(), runout, component.LeadTimeDays, settings.SafetyDays),
	}, nil
}

// ResolveSettings loads and merges the tenant's settings with defaults.
func (s *ForecastService) ResolveSettings(tenantID string) (models.ResolvedSettings, error) {
	settings, err := s.settingsRepo.GetTenantSettings(tenantID)
	if err != nil {
		return models.ResolvedSettings{}, err
	}
	return settings.Merged(), nil
}

// quick status check used by list endpoints that do not need the runout math
func (s *ForecastService) StatusFor(tenantID string, componentID uuid.UUID, reorderPoint int, warningMultiplier float64) (int, models.ReorderStatus, error) {
	onHand, err := s.ledgerRepo.CurrentQuantity(tenantID, componentID, nil)
	if err != nil {
		return 0, "", err
	}
	return onHand, ClassifyReorder(onHand, reorderPoint, warningMultiplier), nil
}
