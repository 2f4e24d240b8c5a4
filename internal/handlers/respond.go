package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"bomtrack/internal/models"
	"bomtrack/internal/repository"
	"bomtrack/internal/services"
)

// respondError maps domain errors onto the HTTP envelope. Records owned by
// another tenant and records that do not exist are indistinguishable to the
// caller: both come back as NOT_FOUND.
func respondError(c *gin.Context, err error) {
	if services.IsValidation(err) ||
		errors.Is(err, repository.ErrDefaultLocationDemote) ||
		errors.Is(err, repository.ErrDefaultLocationDeactivate) ||
		errors.Is(err, repository.ErrDefaultLocationDelete) {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Error:   models.Error{Code: "VALIDATION_ERROR", Message: err.Error()},
		})
		return
	}

	if services.IsNotFound(err) || errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, models.ErrorResponse{
			Success: false,
			Error:   models.Error{Code: "NOT_FOUND", Message: err.Error()},
		})
		return
	}

	if services.IsConflict(err) || errors.Is(err, gorm.ErrDuplicatedKey) {
		c.JSON(http.StatusConflict, models.ErrorResponse{
			Success: false,
			Error:   models.Error{Code: "CONFLICT", Message: err.Error()},
		})
		return
	}

	// Insufficiency is a 400 like any other validation failure; the
	// distinct code plus shortage details let clients tell them apart.
	if shortage, ok := services.AsInsufficientInventory(err); ok {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "INSUFFICIENT_INVENTORY",
				Message: err.Error(),
				Details: gin.H{"shortages": shortage.Shortages},
			},
		})
		return
	}

	c.JSON(http.StatusInternalServerError, models.ErrorResponse{
		Success: false,
		Error:   models.Error{Code: "INTERNAL_ERROR", Message: "An internal error occurred"},
	})
}

func respondBadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, models.ErrorResponse{
		Success: false,
		Error:   models.Error{Code: "VALIDATION_ERROR", Message: message},
	})
}

// parsePagination reads page/limit query params with bounds.
func parsePagination(c *gin.Context, defaultSize, maxSize int) (int, int) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultSize)))
	if err != nil || limit < 1 {
		limit = defaultSize
	}
	if limit > maxSize {
		limit = maxSize
	}
	return page, limit
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
