package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"bomtrack/internal/middleware"
	"bomtrack/internal/models"
	"bomtrack/internal/repository"
	"bomtrack/internal/services"
)

type TransactionHandler struct {
	txService       *services.TransactionService
	ledgerRepo      *repository.LedgerRepository
	logger          *logrus.Logger
	defaultPageSize int
	maxPageSize     int
}

func NewTransactionHandler(txService *services.TransactionService, ledgerRepo *repository.LedgerRepository, logger *logrus.Logger, defaultPageSize, maxPageSize int) *TransactionHandler {
	return &TransactionHandler{
		txService:       txService,
		ledgerRepo:      ledgerRepo,
		logger:          logger,
		defaultPageSize: defaultPageSize,
		maxPageSize:     maxPageSize,
	}
}

// RecordTransaction handles POST /api/v1/transactions/:type
// The type segment selects the request shape and the engine path.
func (h *TransactionHandler) RecordTransaction(c *gin.Context) {
	tenantID := middleware.GetTenantID(c)
	createdBy := strPtr(middleware.GetUserID(c))
	txType := models.TransactionType(strings.ToUpper(c.Param("type")))

	var txn *models.Transaction
	var err error

	switch txType {
	case models.TransactionTypeReceipt, models.TransactionTypeInitial:
		var req models.ReceiptRequest
		if bindErr := c.ShouldBindJSON(&req); bindErr != nil {
			respondBadRequest(c, bindErr.Error())
			return
		}
		if txType == models.TransactionTypeReceipt {
			txn, err = h.txService.Receipt(tenantID, &req, createdBy)
		} else {
			txn, err = h.txService.Initial(tenantID, &req, createdBy)
		}

	case models.TransactionTypeBuild:
		var req models.BuildRequest
		if bindErr := c.ShouldBindJSON(&req); bindErr != nil {
			respondBadRequest(c, bindErr.Error())
			return
		}
		txn, err = h.txService.Build(tenantID, &req, createdBy)

	case models.TransactionTypeTransfer:
		var req models.TransferRequest
		if bindErr := c.ShouldBindJSON(&req); bindErr != nil {
			respondBadRequest(c, bindErr.Error())
			return
		}
		txn, err = h.txService.Transfer(tenantID, &req, createdBy)

	case models.TransactionTypeAdjustment:
		var req models.AdjustmentRequest
		if bindErr := c.ShouldBindJSON(&req); bindErr != nil {
			respondBadRequest(c, bindErr.Error())
			return
		}
		txn, err = h.txService.Adjustment(tenantID, &req, createdBy)

	case models.TransactionTypeOutbound:
		var req models.OutboundRequest
		if bindErr := c.ShouldBindJSON(&req); bindErr != nil {
			respondBadRequest(c, bindErr.Error())
			return
		}
		txn, err = h.txService.Outbound(tenantID, &req, createdBy)

	default:
		respondBadRequest(c, "Unknown transaction type: "+c.Param("type"))
		return
	}

	if err != nil {
		respondError(c, err)
		return
	}

	middleware.CountTransaction(string(txType))
	c.JSON(http.StatusCreated, models.TransactionResponse{Success: true, Data: txn})
}

// GetTransaction handles GET /api/v1/transactions/:id
func (h *TransactionHandler) GetTransaction(c *gin.Context) {
	tenantID := middleware.GetTenantID(c)
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondBadRequest(c, "Invalid transaction ID")
		return
	}

	txn, err := h.ledgerRepo.GetTransactionByID(tenantID, id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.TransactionResponse{Success: true, Data: txn})
}

// ListTransactions handles GET /api/v1/transactions
// Supported filters: type, componentId, skuId, locationId, since (RFC 3339).
func (h *TransactionHandler) ListTransactions(c *gin.Context) {
	tenantID := middleware.GetTenantID(c)
	page, limit := parsePagination(c, h.defaultPageSize, h.maxPageSize)

	var filter repository.TransactionFilter

	if raw := c.Query("type"); raw != "" {
		txType := models.TransactionType(strings.ToUpper(raw))
		if !models.ValidTransactionType(txType) {
			respondBadRequest(c, "Unknown transaction type: "+raw)
			return
		}
		filter.Type = &txType
	}
	if raw := c.Query("componentId"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			respondBadRequest(c, "Invalid componentId")
			return
		}
		filter.ComponentID = &id
	}
	if raw := c.Query("skuId"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			respondBadRequest(c, "Invalid skuId")
			return
		}
		filter.SKUID = &id
	}
	if raw := c.Query("locationId"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			respondBadRequest(c, "Invalid locationId")
			return
		}
		filter.LocationID = &id
	}
	if raw := c.Query("since"); raw != "" {
		since, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			respondBadRequest(c, "since must be an RFC 3339 timestamp")
			return
		}
		filter.Since = &since
	}

	transactions, total, err := h.ledgerRepo.ListTransactions(tenantID, filter, page, limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.TransactionListResponse{
		Success:    true,
		Data:       transactions,
		Pagination: models.NewPaginationMeta(page, limit, total),
	})
}
