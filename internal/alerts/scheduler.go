package alerts

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"bomtrack/internal/events"
	"bomtrack/internal/models"
	"bomtrack/internal/repository"
	"bomtrack/internal/services"
)

// Scheduler periodically sweeps every tenant's components, maintains reorder
// alert rows, and delivers notifications. Tenants are swept sequentially so
// one sweep never floods the database; a slow tenant is cut off by the
// per-tenant timeout and the sweep moves on.
type Scheduler struct {
	componentRepo *repository.ComponentRepository
	settingsRepo  *repository.SettingsRepository
	forecast      *services.ForecastService
	notifier      *Notifier
	publisher     *events.Publisher
	logger        *logrus.Logger

	interval      time.Duration
	tenantTimeout time.Duration
}

func NewScheduler(
	componentRepo *repository.ComponentRepository,
	settingsRepo *repository.SettingsRepository,
	forecast *services.ForecastService,
	notifier *Notifier,
	publisher *events.Publisher,
	logger *logrus.Logger,
	interval, tenantTimeout time.Duration,
) *Scheduler {
	return &Scheduler{
		componentRepo: componentRepo,
		settingsRepo:  settingsRepo,
		forecast:      forecast,
		notifier:      notifier,
		publisher:     publisher,
		logger:        logger,
		interval:      interval,
		tenantTimeout: tenantTimeout,
	}
}

// Run sweeps on the configured interval until ctx is cancelled. The first
// sweep runs immediately.
func (s *Scheduler) Run(ctx context.Context) {
	s.logger.WithField("interval", s.interval.String()).Info("Alert scheduler started")

	s.Sweep(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Alert scheduler stopped")
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep runs one pass over all tenants. Per-tenant failures are logged and
// isolated; one broken tenant never blocks the rest.
func (s *Scheduler) Sweep(ctx context.Context) {
	tenantIDs, err := s.settingsRepo.ListTenantIDs()
	if err != nil {
		s.logger.WithError(err).Error("Alert sweep failed to list tenants")
		return
	}

	for _, tenantID := range tenantIDs {
		if ctx.Err() != nil {
			return
		}
		tenantCtx, cancel := context.WithTimeout(ctx, s.tenantTimeout)
		if err := s.sweepTenant(tenantCtx, tenantID); err != nil {
			s.logger.WithError(err).WithField("tenant_id", tenantID).Warn("Alert sweep failed for tenant")
		}
		cancel()
	}
}

func (s *Scheduler) sweepTenant(ctx context.Context, tenantID string) error {
	settings, err := s.forecast.ResolveSettings(tenantID)
	if err != nil {
		return err
	}

	components, _, err := s.componentRepo.ListComponents(tenantID, true, 0, 0)
	if err != nil {
		return err
	}

	var notifications []Notification
	for i := range components {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		component := &components[i]
		if component.ReorderPoint <= 0 {
			continue
		}

		forecast, err := s.forecast.ForecastComponent(tenantID, component, settings)
		if err != nil {
			s.logger.WithError(err).WithFields(logrus.Fields{
				"tenant_id":    tenantID,
				"component_id": component.ID,
			}).Warn("Failed to forecast component")
			continue
		}

		if forecast.ReorderStatus == models.ReorderStatusOK {
			if err := s.settingsRepo.ResolveAlertsForComponent(tenantID, component.ID); err != nil {
				s.logger.WithError(err).WithField("component_id", component.ID).Warn("Failed to resolve alerts")
			}
			continue
		}

		notify, err := s.upsertAlert(tenantID, component, forecast)
		if err != nil {
			s.logger.WithError(err).WithField("component_id", component.ID).Warn("Failed to record alert")
			continue
		}
		if notify {
			notifications = append(notifications, Notification{
				ComponentCode:  component.Code,
				ComponentName:  component.Name,
				ReorderStatus:  string(forecast.ReorderStatus),
				QuantityOnHand: forecast.QuantityOnHand,
				ReorderPoint:   component.ReorderPoint,
			})
			if s.publisher != nil {
				s.publisher.PublishLowStock(events.LowStockEvent{
					TenantID:       tenantID,
					ComponentID:    component.ID.String(),
					ComponentCode:  component.Code,
					QuantityOnHand: forecast.QuantityOnHand,
					ReorderPoint:   component.ReorderPoint,
					Status:         string(forecast.ReorderStatus),
					OccurredAt:     time.Now(),
				})
			}
		}
	}

	if settings.AlertsEnabled {
		s.notifier.Deliver(ctx, tenantID, settings.SlackWebhookURL, settings.AlertEmail, notifications)
	}
	return nil
}

// upsertAlert creates or refreshes the open alert for a component. Returns
// true when a notification should go out: a new alert, or an escalation from
// warning to critical. Repeat sweeps at the same severity stay silent.
func (s *Scheduler) upsertAlert(tenantID string, component *models.Component, forecast *services.ComponentForecast) (bool, error) {
	message := fmt.Sprintf("%s (%s) is at %d, reorder point %d",
		component.Name, component.Code, forecast.QuantityOnHand, component.ReorderPoint)

	existing, err := s.settingsRepo.GetActiveAlertForComponent(tenantID, component.ID)
	if err != nil {
		return false, err
	}

	if existing == nil {
		alert := &models.ReorderAlert{
			ComponentID:    component.ID,
			Status:         models.AlertStatusActive,
			ReorderStatus:  forecast.ReorderStatus,
			Message:        message,
			QuantityOnHand: forecast.QuantityOnHand,
			ReorderPoint:   component.ReorderPoint,
			ComponentCode:  &component.Code,
			ComponentName:  &component.Name,
		}
		if err := s.settingsRepo.CreateAlert(tenantID, alert); err != nil {
			return false, err
		}
		return true, nil
	}

	escalated := existing.ReorderStatus == models.ReorderStatusWarning &&
		forecast.ReorderStatus == models.ReorderStatusCritical

	err = s.settingsRepo.UpdateAlert(tenantID, existing.ID, map[string]interface{}{
		"reorder_status":   forecast.ReorderStatus,
		"message":          message,
		"quantity_on_hand": forecast.QuantityOnHand,
		"reorder_point":    component.ReorderPoint,
	})
	if err != nil {
		return false, err
	}
	return escalated, nil
}
