package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"bomtrack/internal/middleware"
	"bomtrack/internal/models"
	"bomtrack/internal/repository"
)

type LocationHandler struct {
	locationRepo    *repository.LocationRepository
	logger          *logrus.Logger
	defaultPageSize int
	maxPageSize     int
}

func NewLocationHandler(locationRepo *repository.LocationRepository, logger *logrus.Logger, defaultPageSize, maxPageSize int) *LocationHandler {
	return &LocationHandler{
		locationRepo:    locationRepo,
		logger:          logger,
		defaultPageSize: defaultPageSize,
		maxPageSize:     maxPageSize,
	}
}

// CreateLocation handles POST /api/v1/locations
func (h *LocationHandler) CreateLocation(c *gin.Context) {
	tenantID := middleware.GetTenantID(c)

	var req models.CreateLocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	location := &models.Location{
		Code:     req.Code,
		Name:     req.Name,
		Type:     models.LocationTypeWarehouse,
		IsActive: true,
		Notes:    req.Notes,
		Metadata: req.Metadata,
	}
	if req.Type != nil {
		location.Type = *req.Type
	}
	if req.IsDefault != nil {
		location.IsDefault = *req.IsDefault
	}

	if err := h.locationRepo.CreateLocation(tenantID, location); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, models.LocationResponse{Success: true, Data: location})
}

// GetLocation handles GET /api/v1/locations/:id
func (h *LocationHandler) GetLocation(c *gin.Context) {
	tenantID := middleware.GetTenantID(c)
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondBadRequest(c, "Invalid location ID")
		return
	}

	location, err := h.locationRepo.GetLocationByID(tenantID, id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.LocationResponse{Success: true, Data: location})
}

// ListLocations handles GET /api/v1/locations
func (h *LocationHandler) ListLocations(c *gin.Context) {
	tenantID := middleware.GetTenantID(c)
	page, limit := parsePagination(c, h.defaultPageSize, h.maxPageSize)
	activeOnly := c.DefaultQuery("activeOnly", "true") == "true"

	locations, total, err := h.locationRepo.ListLocations(tenantID, activeOnly, page, limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.LocationListResponse{
		Success:    true,
		Data:       locations,
		Pagination: models.NewPaginationMeta(page, limit, total),
	})
}

// UpdateLocation handles PUT /api/v1/locations/:id
func (h *LocationHandler) UpdateLocation(c *gin.Context) {
	tenantID := middleware.GetTenantID(c)
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondBadRequest(c, "Invalid location ID")
		return
	}

	var req struct {
		Name      *string              `json:"name,omitempty"`
		Type      *models.LocationType `json:"type,omitempty"`
		IsDefault *bool                `json:"isDefault,omitempty"`
		IsActive  *bool                `json:"isActive,omitempty"`
		Notes     *string              `json:"notes,omitempty"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	updates := map[string]interface{}{}
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.Type != nil {
		updates["type"] = *req.Type
	}
	if req.IsDefault != nil {
		updates["is_default"] = *req.IsDefault
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}
	if req.Notes != nil {
		updates["notes"] = *req.Notes
	}

	if err := h.locationRepo.UpdateLocation(tenantID, id, updates); err != nil {
		respondError(c, err)
		return
	}

	location, err := h.locationRepo.GetLocationByID(tenantID, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.LocationResponse{Success: true, Data: location})
}

// DeleteLocation handles DELETE /api/v1/locations/:id
func (h *LocationHandler) DeleteLocation(c *gin.Context) {
	tenantID := middleware.GetTenantID(c)
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondBadRequest(c, "Invalid location ID")
		return
	}

	if err := h.locationRepo.DeleteLocation(tenantID, id); err != nil {
		respondError(c, err)
		return
	}

	msg := "Location deleted"
	c.JSON(http.StatusOK, models.SuccessResponse{Success: true, Message: &msg})
}
