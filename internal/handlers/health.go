package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"bomtrack/internal/events"
	"bomtrack/internal/repository"
)

type HealthHandler struct {
	db         *gorm.DB
	ledgerRepo *repository.LedgerRepository
	publisher  *events.Publisher
}

func NewHealthHandler(db *gorm.DB, ledgerRepo *repository.LedgerRepository, publisher *events.Publisher) *HealthHandler {
	return &HealthHandler{db: db, ledgerRepo: ledgerRepo, publisher: publisher}
}

// Health reports liveness plus dependency status. Redis and NATS are
// optional, so a down cache or broker degrades the report without failing
// the check.
func (h *HealthHandler) Health(c *gin.Context) {
	status := http.StatusOK
	overall := "healthy"
	dbStatus := "up"

	sqlDB, err := h.db.DB()
	if err != nil || sqlDB.Ping() != nil {
		status = http.StatusServiceUnavailable
		overall = "unhealthy"
		dbStatus = "down"
	}

	redisStatus := "up"
	if err := h.ledgerRepo.RedisHealth(c.Request.Context()); err != nil {
		redisStatus = "down"
	}

	eventsStatus := "up"
	if h.publisher == nil || !h.publisher.Enabled() {
		eventsStatus = "disabled"
	}

	c.JSON(status, gin.H{
		"status":   overall,
		"service":  "bomtrack",
		"database": dbStatus,
		"redis":    redisStatus,
		"events":   eventsStatus,
	})
}

// Ready reports readiness for traffic.
func (h *HealthHandler) Ready(c *gin.Context) {
	sqlDB, err := h.db.DB()
	if err != nil || sqlDB.Ping() != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"ready": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ready": true})
}
