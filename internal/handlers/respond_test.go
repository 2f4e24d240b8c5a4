package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"

	"bomtrack/internal/services"
)

func recordError(err error) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	respondError(c, err)
	return w
}

func TestRespondError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{
			"validation",
			services.NewValidationError("quantity", "must be positive"),
			http.StatusBadRequest, "VALIDATION_ERROR",
		},
		{
			"not found",
			services.NewNotFoundError("component", uuid.New()),
			http.StatusNotFound, "NOT_FOUND",
		},
		{
			"gorm not found",
			gorm.ErrRecordNotFound,
			http.StatusNotFound, "NOT_FOUND",
		},
		{
			"duplicate key",
			gorm.ErrDuplicatedKey,
			http.StatusConflict, "CONFLICT",
		},
		{
			"insufficient inventory",
			&services.InsufficientInventoryError{Shortages: []services.ComponentShortage{
				{ComponentID: uuid.New(), ComponentCode: "WIDGET", Required: 20, Available: 15, Shortage: 5},
			}},
			http.StatusBadRequest, "INSUFFICIENT_INVENTORY",
		},
		{
			"unknown",
			assert.AnError,
			http.StatusInternalServerError, "INTERNAL_ERROR",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := recordError(tt.err)
			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Contains(t, w.Body.String(), tt.wantCode)
		})
	}
}

func TestRespondErrorInsufficiencyCarriesShortages(t *testing.T) {
	w := recordError(&services.InsufficientInventoryError{Shortages: []services.ComponentShortage{
		{ComponentID: uuid.New(), ComponentCode: "WIDGET", Required: 20, Available: 15, Shortage: 5},
	}})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "shortages")
	assert.Contains(t, w.Body.String(), "WIDGET")
}
