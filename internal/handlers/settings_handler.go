package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"bomtrack/internal/middleware"
	"bomtrack/internal/models"
	"bomtrack/internal/repository"
)

type SettingsHandler struct {
	settingsRepo    *repository.SettingsRepository
	logger          *logrus.Logger
	defaultPageSize int
	maxPageSize     int
}

func NewSettingsHandler(settingsRepo *repository.SettingsRepository, logger *logrus.Logger, defaultPageSize, maxPageSize int) *SettingsHandler {
	return &SettingsHandler{
		settingsRepo:    settingsRepo,
		logger:          logger,
		defaultPageSize: defaultPageSize,
		maxPageSize:     maxPageSize,
	}
}

// GetSettings handles GET /api/v1/settings
// Returns the resolved settings so clients see effective values, defaults
// included.
func (h *SettingsHandler) GetSettings(c *gin.Context) {
	tenantID := middleware.GetTenantID(c)

	settings, err := h.settingsRepo.GetTenantSettings(tenantID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"data":     settings,
		"resolved": settings.Merged(),
	})
}

// UpdateSettings handles PUT /api/v1/settings
func (h *SettingsHandler) UpdateSettings(c *gin.Context) {
	tenantID := middleware.GetTenantID(c)

	var req models.UpdateTenantSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	updates := map[string]interface{}{}
	if req.WarningMultiplier != nil {
		updates["warning_multiplier"] = *req.WarningMultiplier
	}
	if req.LookbackDays != nil {
		updates["lookback_days"] = *req.LookbackDays
	}
	if req.SafetyDays != nil {
		updates["safety_days"] = *req.SafetyDays
	}
	if req.ExcludedTypes != nil {
		updates["excluded_types"] = *req.ExcludedTypes
	}
	if req.AlertsEnabled != nil {
		updates["alerts_enabled"] = *req.AlertsEnabled
	}
	if req.SlackWebhookURL != nil {
		updates["slack_webhook_url"] = *req.SlackWebhookURL
	}
	if req.AlertEmail != nil {
		updates["alert_email"] = *req.AlertEmail
	}

	settings, err := h.settingsRepo.UpsertTenantSettings(tenantID, updates)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.TenantSettingsResponse{Success: true, Data: settings})
}

// ========== Alert Endpoints ==========

// ListAlerts handles GET /api/v1/alerts
func (h *SettingsHandler) ListAlerts(c *gin.Context) {
	tenantID := middleware.GetTenantID(c)
	page, limit := parsePagination(c, h.defaultPageSize, h.maxPageSize)

	var status *models.AlertStatus
	if raw := c.Query("status"); raw != "" {
		s := models.AlertStatus(raw)
		switch s {
		case models.AlertStatusActive, models.AlertStatusAcknowledged, models.AlertStatusResolved:
			status = &s
		default:
			respondBadRequest(c, "Unknown alert status: "+raw)
			return
		}
	}

	alerts, total, err := h.settingsRepo.ListAlerts(tenantID, status, page, limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.AlertListResponse{
		Success:    true,
		Data:       alerts,
		Pagination: models.NewPaginationMeta(page, limit, total),
	})
}

// UpdateAlertStatus handles PATCH /api/v1/alerts/:id
// Acknowledging stamps who and when; resolving stamps the resolution time.
func (h *SettingsHandler) UpdateAlertStatus(c *gin.Context) {
	tenantID := middleware.GetTenantID(c)
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondBadRequest(c, "Invalid alert ID")
		return
	}

	var req models.UpdateAlertStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	now := time.Now()
	updates := map[string]interface{}{"status": req.Status}
	switch req.Status {
	case models.AlertStatusAcknowledged:
		updates["acknowledged_by"] = middleware.GetUserID(c)
		updates["acknowledged_at"] = &now
	case models.AlertStatusResolved:
		updates["resolved_at"] = &now
	case models.AlertStatusActive:
		// reopening clears the acknowledgement
		updates["acknowledged_by"] = nil
		updates["acknowledged_at"] = nil
	default:
		respondBadRequest(c, "Unknown alert status")
		return
	}

	if err := h.settingsRepo.UpdateAlert(tenantID, id, updates); err != nil {
		respondError(c, err)
		return
	}

	alert, err := h.settingsRepo.GetAlertByID(tenantID, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.AlertResponse{Success: true, Data: alert})
}
