package handler

import (
	"settlement-ledger/internal/adapter/http/middleware"
	"settlement-ledger/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	Ledger         ports.LedgerReader
	ReconcileSvc   ports.ReconciliationService
	SnapshotSvc    ports.SnapshotService // nil = snapshot persistence disabled
	HealthCheckers []ports.HealthChecker
	Logger         zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.MaxBodySize(8 << 20)) // sync batches can be large

	// Health check (deep — verifies PostgreSQL + Redis)
	r.GET("/health", HealthCheck(deps.HealthCheckers...))

	// API v1 routes
	v1 := r.Group("/api/v1")

	ledgerHandler := NewLedgerHandler(deps.Ledger)
	syncHandler := NewSyncHandler(deps.ReconcileSvc)

	wallets := v1.Group("/wallets")
	{
		wallets.GET("/:name/balance", ledgerHandler.GetBalance)
	}

	transactions := v1.Group("/transactions")
	{
		transactions.GET("", ledgerHandler.ListTransactions)
		transactions.GET("/:id", ledgerHandler.GetTransaction)
		transactions.POST("/:id/confirm", syncHandler.Confirm)
		transactions.POST("/:id/revert", syncHandler.Revert)
	}

	ledger := v1.Group("/ledger")
	{
		ledger.GET("/integrity", ledgerHandler.CheckIntegrity)
	}

	v1.POST("/sync", syncHandler.Sync)

	if deps.SnapshotSvc != nil {
		snapshotHandler := NewSnapshotHandler(deps.SnapshotSvc)
		v1.POST("/snapshots", snapshotHandler.Save)
	}

	return r
}
