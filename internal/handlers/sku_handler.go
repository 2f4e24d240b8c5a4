package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"bomtrack/internal/events"
	"bomtrack/internal/middleware"
	"bomtrack/internal/models"
	"bomtrack/internal/repository"
	"bomtrack/internal/services"
)

type SKUHandler struct {
	skuRepo         *repository.SKURepository
	bomService      *services.BOMService
	ledgerRepo      *repository.LedgerRepository
	publisher       *events.Publisher
	logger          *logrus.Logger
	defaultPageSize int
	maxPageSize     int
}

func NewSKUHandler(
	skuRepo *repository.SKURepository,
	bomService *services.BOMService,
	ledgerRepo *repository.LedgerRepository,
	publisher *events.Publisher,
	logger *logrus.Logger,
	defaultPageSize, maxPageSize int,
) *SKUHandler {
	return &SKUHandler{
		skuRepo:         skuRepo,
		bomService:      bomService,
		ledgerRepo:      ledgerRepo,
		publisher:       publisher,
		logger:          logger,
		defaultPageSize: defaultPageSize,
		maxPageSize:     maxPageSize,
	}
}

// CreateSKU handles POST /api/v1/skus
func (h *SKUHandler) CreateSKU(c *gin.Context) {
	tenantID := middleware.GetTenantID(c)

	var req models.CreateSKURequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	sku := &models.SKU{
		Code:     req.Code,
		Name:     req.Name,
		BrandID:  req.BrandID,
		Notes:    req.Notes,
		Metadata: req.Metadata,
		IsActive: true,
	}
	if sku.BrandID == nil {
		if brandID := middleware.GetBrandID(c); brandID != "" {
			sku.BrandID = &brandID
		}
	}

	if err := h.skuRepo.CreateSKU(tenantID, sku); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, models.SKUResponse{Success: true, Data: sku})
}

// GetSKU handles GET /api/v1/skus/:id
// ?includeStock=true adds the ledger-derived finished-goods quantity.
func (h *SKUHandler) GetSKU(c *gin.Context) {
	tenantID := middleware.GetTenantID(c)
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondBadRequest(c, "Invalid SKU ID")
		return
	}

	sku, err := h.skuRepo.GetSKUByID(tenantID, id)
	if err != nil {
		respondError(c, err)
		return
	}

	if c.Query("includeStock") == "true" {
		onHand, err := h.ledgerRepo.CurrentSKUQuantity(tenantID, id, nil)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"data":    sku,
			"stock":   gin.H{"quantityOnHand": onHand},
		})
		return
	}

	c.JSON(http.StatusOK, models.SKUResponse{Success: true, Data: sku})
}

// ListSKUs handles GET /api/v1/skus
func (h *SKUHandler) ListSKUs(c *gin.Context) {
	tenantID := middleware.GetTenantID(c)
	page, limit := parsePagination(c, h.defaultPageSize, h.maxPageSize)
	activeOnly := c.DefaultQuery("activeOnly", "true") == "true"

	skus, total, err := h.skuRepo.ListSKUs(tenantID, activeOnly, page, limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.SKUListResponse{
		Success:    true,
		Data:       skus,
		Pagination: models.NewPaginationMeta(page, limit, total),
	})
}

// UpdateSKU handles PUT /api/v1/skus/:id
func (h *SKUHandler) UpdateSKU(c *gin.Context) {
	tenantID := middleware.GetTenantID(c)
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondBadRequest(c, "Invalid SKU ID")
		return
	}

	if _, err := h.skuRepo.GetSKUByID(tenantID, id); err != nil {
		respondError(c, err)
		return
	}

	var req struct {
		Name     *string `json:"name,omitempty"`
		IsActive *bool   `json:"isActive,omitempty"`
		Notes    *string `json:"notes,omitempty"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	updates := map[string]interface{}{}
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}
	if req.Notes != nil {
		updates["notes"] = *req.Notes
	}

	if err := h.skuRepo.UpdateSKU(tenantID, id, updates); err != nil {
		respondError(c, err)
		return
	}

	sku, err := h.skuRepo.GetSKUByID(tenantID, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.SKUResponse{Success: true, Data: sku})
}

// ========== BOM Version Endpoints ==========

// CreateBOMVersion handles POST /api/v1/skus/:id/bom-versions
func (h *SKUHandler) CreateBOMVersion(c *gin.Context) {
	tenantID := middleware.GetTenantID(c)
	skuID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondBadRequest(c, "Invalid SKU ID")
		return
	}

	var req models.CreateBOMVersionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	version, err := h.bomService.CreateVersion(tenantID, skuID, &req, strPtr(middleware.GetUserID(c)))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, models.BOMVersionResponse{Success: true, Data: version})
}

// ListBOMVersions handles GET /api/v1/skus/:id/bom-versions
func (h *SKUHandler) ListBOMVersions(c *gin.Context) {
	tenantID := middleware.GetTenantID(c)
	skuID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondBadRequest(c, "Invalid SKU ID")
		return
	}

	if _, err := h.skuRepo.GetSKUByID(tenantID, skuID); err != nil {
		respondError(c, err)
		return
	}

	versions, err := h.skuRepo.ListBOMVersions(tenantID, skuID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": versions})
}

// GetBOMVersion handles GET /api/v1/bom-versions/:id
func (h *SKUHandler) GetBOMVersion(c *gin.Context) {
	tenantID := middleware.GetTenantID(c)
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondBadRequest(c, "Invalid BOM version ID")
		return
	}

	version, err := h.skuRepo.GetBOMVersionByID(tenantID, id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.BOMVersionResponse{Success: true, Data: version})
}

// GetBOMVersionCost handles GET /api/v1/bom-versions/:id/cost
func (h *SKUHandler) GetBOMVersionCost(c *gin.Context) {
	tenantID := middleware.GetTenantID(c)
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondBadRequest(c, "Invalid BOM version ID")
		return
	}

	breakdown, err := h.bomService.GetCostBreakdown(tenantID, id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": breakdown})
}

// ActivateBOMVersion handles POST /api/v1/bom-versions/:id/activate
func (h *SKUHandler) ActivateBOMVersion(c *gin.Context) {
	tenantID := middleware.GetTenantID(c)
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondBadRequest(c, "Invalid BOM version ID")
		return
	}

	version, cost, err := h.bomService.Activate(tenantID, id)
	if err != nil {
		respondError(c, err)
		return
	}

	if h.publisher != nil {
		h.publisher.PublishBOMActivated(events.BOMActivatedEvent{
			TenantID:     tenantID,
			SKUID:        version.SKUID.String(),
			BOMVersionID: version.ID.String(),
			Version:      version.Version,
			OccurredAt:   version.UpdatedAt,
		})
	}

	c.JSON(http.StatusOK, models.ActivateBOMVersionResponse{
		Success: true,
		Data:    version,
		Cost:    cost,
	})
}

// GetLotAvailability handles GET /api/v1/skus/:id/lot-availability?units=N
func (h *SKUHandler) GetLotAvailability(c *gin.Context) {
	tenantID := middleware.GetTenantID(c)
	skuID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondBadRequest(c, "Invalid SKU ID")
		return
	}

	units, err := strconv.Atoi(c.DefaultQuery("units", "1"))
	if err != nil || units < 1 {
		respondBadRequest(c, "units must be a positive integer")
		return
	}

	resp, err := h.bomService.CheckAvailability(tenantID, skuID, units)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
