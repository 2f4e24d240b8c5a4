package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"bomtrack/internal/alerts"
	"bomtrack/internal/config"
	"bomtrack/internal/events"
	"bomtrack/internal/handlers"
	"bomtrack/internal/middleware"
	"bomtrack/internal/models"
	"bomtrack/internal/repository"
	"bomtrack/internal/services"
)

func main() {
	// Load .env file if present
	_ = godotenv.Load()

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	cfg := config.Load()
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
		logger.SetLevel(logrus.InfoLevel)
	} else {
		logger.SetLevel(logrus.DebugLevel)
	}

	db, err := config.InitDB(cfg)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to database")
	}

	if err := db.AutoMigrate(
		&models.Component{},
		&models.Location{},
		&models.Lot{},
		&models.SKU{},
		&models.BOMVersion{},
		&models.BOMLine{},
		&models.Transaction{},
		&models.TransactionLine{},
		&models.TenantSettings{},
		&models.ReorderAlert{},
	); err != nil {
		logger.WithError(err).Fatal("Failed to migrate database")
	}
	// Schema-level backstop for the one-active-BOM-per-SKU invariant.
	if err := db.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS idx_bom_versions_one_active
		ON bom_versions (tenant_id, sku_id) WHERE status = 'ACTIVE'`).Error; err != nil {
		logger.WithError(err).Fatal("Failed to create active BOM version index")
	}
	logger.Info("Database migrated successfully")

	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.WithError(err).Warn("Redis unreachable, on-hand cache disabled")
			redisClient = nil
		}
		cancel()
	}

	publisher := events.NewPublisher(cfg.NATSURL, logger)
	defer publisher.Close()

	// Repositories
	componentRepo := repository.NewComponentRepository(db)
	locationRepo := repository.NewLocationRepository(db)
	skuRepo := repository.NewSKURepository(db)
	ledgerRepo := repository.NewLedgerRepository(db, redisClient)
	settingsRepo := repository.NewSettingsRepository(db)

	// Services
	forecastService := services.NewForecastService(ledgerRepo, settingsRepo)
	bomService := services.NewBOMService(skuRepo, componentRepo, ledgerRepo)
	txService := services.NewTransactionService(componentRepo, locationRepo, skuRepo, ledgerRepo, publisher, logger)

	// Handlers
	healthHandler := handlers.NewHealthHandler(db, ledgerRepo, publisher)
	componentHandler := handlers.NewComponentHandler(componentRepo, forecastService, logger, cfg.DefaultPageSize, cfg.MaxPageSize)
	locationHandler := handlers.NewLocationHandler(locationRepo, logger, cfg.DefaultPageSize, cfg.MaxPageSize)
	skuHandler := handlers.NewSKUHandler(skuRepo, bomService, ledgerRepo, publisher, logger, cfg.DefaultPageSize, cfg.MaxPageSize)
	txHandler := handlers.NewTransactionHandler(txService, ledgerRepo, logger, cfg.DefaultPageSize, cfg.MaxPageSize)
	settingsHandler := handlers.NewSettingsHandler(settingsRepo, logger, cfg.DefaultPageSize, cfg.MaxPageSize)
	importHandler := handlers.NewImportHandler(componentRepo, locationRepo, skuRepo, ledgerRepo, txService, forecastService, logger)

	// Alert sweep
	notifier := alerts.NewNotifier(alerts.SMTPConfig{
		Host: cfg.SMTPHost,
		Port: strconv.Itoa(cfg.SMTPPort),
		From: cfg.SMTPFrom,
	}, logger)
	scheduler := alerts.NewScheduler(componentRepo, settingsRepo, forecastService, notifier, publisher, logger,
		cfg.AlertSweepInterval, cfg.AlertTenantTimeout)

	schedulerCtx, stopScheduler := context.WithCancel(context.Background())
	go scheduler.Run(schedulerCtx)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS())
	router.Use(middleware.Metrics())

	router.GET("/health", healthHandler.Health)
	router.GET("/ready", healthHandler.Ready)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api/v1")
	api.Use(middleware.AuthMiddleware(cfg.JWTSecret, cfg.Environment))
	api.Use(middleware.TenantMiddleware())
	api.Use(middleware.BrandMiddleware())

	read := middleware.RequireRole(middleware.RoleOps, middleware.RoleViewer)
	write := middleware.RequireRole(middleware.RoleOps)
	admin := middleware.RequireRole()

	// Components
	api.POST("/components", write, componentHandler.CreateComponent)
	api.GET("/components", read, componentHandler.ListComponents)
	api.GET("/components/:id", read, componentHandler.GetComponent)
	api.GET("/components/:id/forecast", read, componentHandler.GetComponentForecast)
	api.GET("/components/:id/lots", read, componentHandler.ListLots)
	api.PUT("/components/:id", write, componentHandler.UpdateComponent)
	api.DELETE("/components/:id", admin, componentHandler.DeactivateComponent)

	// Locations
	api.POST("/locations", admin, locationHandler.CreateLocation)
	api.GET("/locations", read, locationHandler.ListLocations)
	api.GET("/locations/:id", read, locationHandler.GetLocation)
	api.PUT("/locations/:id", admin, locationHandler.UpdateLocation)
	api.DELETE("/locations/:id", admin, locationHandler.DeleteLocation)

	// SKUs and BOMs
	api.POST("/skus", write, skuHandler.CreateSKU)
	api.GET("/skus", read, skuHandler.ListSKUs)
	api.GET("/skus/:id", read, skuHandler.GetSKU)
	api.PUT("/skus/:id", write, skuHandler.UpdateSKU)
	api.POST("/skus/:id/bom-versions", write, skuHandler.CreateBOMVersion)
	api.GET("/skus/:id/bom-versions", read, skuHandler.ListBOMVersions)
	api.GET("/skus/:id/lot-availability", read, skuHandler.GetLotAvailability)
	api.GET("/bom-versions/:id", read, skuHandler.GetBOMVersion)
	api.GET("/bom-versions/:id/cost", read, skuHandler.GetBOMVersionCost)
	api.POST("/bom-versions/:id/activate", write, skuHandler.ActivateBOMVersion)

	// Transactions
	api.GET("/transactions", read, txHandler.ListTransactions)
	api.GET("/transactions/:id", read, txHandler.GetTransaction)
	api.POST("/transactions/:type", write, txHandler.RecordTransaction)

	// Settings and alerts
	api.GET("/settings", read, settingsHandler.GetSettings)
	api.PUT("/settings", admin, settingsHandler.UpdateSettings)
	api.GET("/alerts", read, settingsHandler.ListAlerts)
	api.PATCH("/alerts/:id", write, settingsHandler.UpdateAlertStatus)

	// Import / export
	api.POST("/import/components", write, importHandler.ImportComponents)
	api.POST("/import/skus", write, importHandler.ImportSKUs)
	api.POST("/import/initial-inventory", write, importHandler.ImportInitialInventory)
	api.GET("/import/templates/:type", read, importHandler.DownloadTemplate)
	api.GET("/export/components", read, importHandler.ExportComponents)
	api.GET("/export/transactions", read, importHandler.ExportTransactions)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		logger.WithField("port", cfg.Port).Info("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("Failed to start server")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	stopScheduler()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("Server forced to shutdown")
	}

	logger.Info("Server exited")
}
