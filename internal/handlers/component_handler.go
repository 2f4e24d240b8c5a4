package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"bomtrack/internal/middleware"
	"bomtrack/internal/models"
	"bomtrack/internal/repository"
	"bomtrack/internal/services"
)

type ComponentHandler struct {
	componentRepo   *repository.ComponentRepository
	forecast        *services.ForecastService
	logger          *logrus.Logger
	defaultPageSize int
	maxPageSize     int
}

func NewComponentHandler(componentRepo *repository.ComponentRepository, forecast *services.ForecastService, logger *logrus.Logger, defaultPageSize, maxPageSize int) *ComponentHandler {
	return &ComponentHandler{
		componentRepo:   componentRepo,
		forecast:        forecast,
		logger:          logger,
		defaultPageSize: defaultPageSize,
		maxPageSize:     maxPageSize,
	}
}

// CreateComponent handles POST /api/v1/components
func (h *ComponentHandler) CreateComponent(c *gin.Context) {
	tenantID := middleware.GetTenantID(c)

	var req models.CreateComponentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	component := &models.Component{
		Code:          req.Code,
		Name:          req.Name,
		UnitOfMeasure: "each",
		CostPerUnit:   decimal.Zero,
		CreatedBy:     strPtr(middleware.GetUserID(c)),
		IsActive:      true,
	}
	if brandID := middleware.GetBrandID(c); brandID != "" {
		component.BrandID = &brandID
	}
	if req.UnitOfMeasure != nil {
		component.UnitOfMeasure = *req.UnitOfMeasure
	}
	if req.CostPerUnit != nil {
		if req.CostPerUnit.IsNegative() {
			respondBadRequest(c, "costPerUnit must not be negative")
			return
		}
		component.CostPerUnit = *req.CostPerUnit
	}
	if req.ReorderPoint != nil {
		component.ReorderPoint = *req.ReorderPoint
	}
	if req.LeadTimeDays != nil {
		component.LeadTimeDays = *req.LeadTimeDays
	}
	if req.TrackLots != nil {
		component.TrackLots = *req.TrackLots
	}
	component.Supplier = req.Supplier
	component.Notes = req.Notes
	component.Metadata = req.Metadata

	if err := h.componentRepo.CreateComponent(tenantID, component); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, models.ComponentResponse{Success: true, Data: component})
}

// GetComponent handles GET /api/v1/components/:id
func (h *ComponentHandler) GetComponent(c *gin.Context) {
	tenantID := middleware.GetTenantID(c)
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondBadRequest(c, "Invalid component ID")
		return
	}

	component, err := h.componentRepo.GetComponentByID(tenantID, id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.ComponentResponse{Success: true, Data: component})
}

// GetComponentForecast handles GET /api/v1/components/:id/forecast
func (h *ComponentHandler) GetComponentForecast(c *gin.Context) {
	tenantID := middleware.GetTenantID(c)
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondBadRequest(c, "Invalid component ID")
		return
	}

	component, err := h.componentRepo.GetComponentByID(tenantID, id)
	if err != nil {
		respondError(c, err)
		return
	}

	settings, err := h.forecast.ResolveSettings(tenantID)
	if err != nil {
		respondError(c, err)
		return
	}

	forecast, err := h.forecast.ForecastComponent(tenantID, component, settings)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"componentId":          component.ID,
			"quantityOnHand":       forecast.QuantityOnHand,
			"reorderStatus":        forecast.ReorderStatus,
			"dailyConsumptionRate": forecast.DailyConsumptionRate,
			"daysUntilRunout":      forecast.DaysUntilRunout,
			"recommendedReorderAt": forecast.RecommendedReorderAt,
		},
	})
}

// ListComponents handles GET /api/v1/components
// Each component is decorated with ledger-derived on-hand quantity and reorder
// status; ?reorderStatus=CRITICAL filters after decoration.
func (h *ComponentHandler) ListComponents(c *gin.Context) {
	tenantID := middleware.GetTenantID(c)
	page, limit := parsePagination(c, h.defaultPageSize, h.maxPageSize)
	activeOnly := c.DefaultQuery("activeOnly", "true") == "true"
	statusFilter := models.ReorderStatus(c.Query("reorderStatus"))

	components, total, err := h.componentRepo.ListComponents(tenantID, activeOnly, page, limit)
	if err != nil {
		respondError(c, err)
		return
	}

	settings, err := h.forecast.ResolveSettings(tenantID)
	if err != nil {
		respondError(c, err)
		return
	}

	decorated := make([]models.ComponentWithStock, 0, len(components))
	for i := range components {
		onHand, status, err := h.forecast.StatusFor(tenantID, components[i].ID, components[i].ReorderPoint, settings.WarningMultiplier)
		if err != nil {
			respondError(c, err)
			return
		}
		if statusFilter != "" && status != statusFilter {
			continue
		}
		decorated = append(decorated, models.ComponentWithStock{
			Component:      components[i],
			QuantityOnHand: onHand,
			ReorderStatus:  status,
		})
	}

	c.JSON(http.StatusOK, models.ComponentListResponse{
		Success:    true,
		Data:       decorated,
		Pagination: models.NewPaginationMeta(page, limit, total),
	})
}

// UpdateComponent handles PUT /api/v1/components/:id
func (h *ComponentHandler) UpdateComponent(c *gin.Context) {
	tenantID := middleware.GetTenantID(c)
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondBadRequest(c, "Invalid component ID")
		return
	}

	if _, err := h.componentRepo.GetComponentByID(tenantID, id); err != nil {
		respondError(c, err)
		return
	}

	var req models.CreateComponentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	updates := map[string]interface{}{
		"updated_by": middleware.GetUserID(c),
	}
	if req.Name != "" {
		updates["name"] = req.Name
	}
	if req.UnitOfMeasure != nil {
		updates["unit_of_measure"] = *req.UnitOfMeasure
	}
	if req.CostPerUnit != nil {
		if req.CostPerUnit.IsNegative() {
			respondBadRequest(c, "costPerUnit must not be negative")
			return
		}
		updates["cost_per_unit"] = *req.CostPerUnit
	}
	if req.ReorderPoint != nil {
		updates["reorder_point"] = *req.ReorderPoint
	}
	if req.LeadTimeDays != nil {
		updates["lead_time_days"] = *req.LeadTimeDays
	}
	if req.TrackLots != nil {
		updates["track_lots"] = *req.TrackLots
	}
	if req.Supplier != nil {
		updates["supplier"] = *req.Supplier
	}
	if req.Notes != nil {
		updates["notes"] = *req.Notes
	}

	if err := h.componentRepo.UpdateComponent(tenantID, id, updates); err != nil {
		respondError(c, err)
		return
	}

	component, err := h.componentRepo.GetComponentByID(tenantID, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.ComponentResponse{Success: true, Data: component})
}

// DeactivateComponent handles DELETE /api/v1/components/:id
// Components referenced by ledger lines or BOMs are never deleted, only
// deactivated, so history stays intact. Unreferenced components are removed.
func (h *ComponentHandler) DeactivateComponent(c *gin.Context) {
	tenantID := middleware.GetTenantID(c)
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondBadRequest(c, "Invalid component ID")
		return
	}

	if _, err := h.componentRepo.GetComponentByID(tenantID, id); err != nil {
		respondError(c, err)
		return
	}

	referenced, err := h.componentRepo.IsComponentReferenced(tenantID, id)
	if err != nil {
		respondError(c, err)
		return
	}

	msg := "Component deactivated"
	if referenced {
		err = h.componentRepo.DeactivateComponent(tenantID, id, middleware.GetUserID(c))
	} else {
		err = h.componentRepo.DeleteComponent(tenantID, id)
		msg = "Component deleted"
	}
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.SuccessResponse{Success: true, Message: &msg})
}

// ListLots handles GET /api/v1/components/:id/lots
func (h *ComponentHandler) ListLots(c *gin.Context) {
	tenantID := middleware.GetTenantID(c)
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondBadRequest(c, "Invalid component ID")
		return
	}

	if _, err := h.componentRepo.GetComponentByID(tenantID, id); err != nil {
		respondError(c, err)
		return
	}

	page, limit := parsePagination(c, h.defaultPageSize, h.maxPageSize)
	positiveOnly := c.DefaultQuery("positiveOnly", "false") == "true"

	lots, total, err := h.componentRepo.ListLots(tenantID, id, positiveOnly, page, limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.LotListResponse{
		Success:    true,
		Data:       lots,
		Pagination: models.NewPaginationMeta(page, limit, total),
	})
}
