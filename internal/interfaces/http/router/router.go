// Package router wires the HTTP surface: middleware chain and route table.
package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/stockops/backend/internal/infrastructure/auth"
	"github.com/stockops/backend/internal/infrastructure/cache"
	"github.com/stockops/backend/internal/infrastructure/config"
	"github.com/stockops/backend/internal/infrastructure/logger"
	"github.com/stockops/backend/internal/interfaces/http/handler"
	"github.com/stockops/backend/internal/interfaces/http/middleware"
)

// Handlers bundles all route handlers
type Handlers struct {
	System    *handler.SystemHandler
	Product   *handler.ProductHandler
	Receiving *handler.ReceivingHandler
	Inventory *handler.InventoryHandler
	Sale      *handler.SaleHandler
	Waybill   *handler.WaybillHandler
	Note      *handler.NoteHandler
}

// Config carries everything the router needs to assemble the engine
type Config struct {
	AppEnv           string
	HTTP             config.HTTPConfig
	JWTService       *auth.JWTService
	IdempotencyStore cache.IdempotencyStore
	IdempotencyTTL   time.Duration
	Logger           *zap.Logger
	Handlers         Handlers
}

// New builds the gin engine with the full middleware chain and route table
func New(cfg Config) *gin.Engine {
	if cfg.AppEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(middleware.RequestID())
	engine.Use(logger.GinMiddleware(cfg.Logger))
	engine.Use(logger.Recovery(cfg.Logger))
	engine.Use(middleware.Secure())
	engine.Use(middleware.CORS(middleware.CORSConfigFromHTTP(cfg.HTTP)))

	handlers := cfg.Handlers

	engine.GET("/health", handlers.System.Health)
	engine.GET("/ready", handlers.System.Ready)

	api := engine.Group("/api/v1")
	api.Use(middleware.JWTAuth(cfg.JWTService))
	api.Use(middleware.Idempotency(middleware.IdempotencyConfig{
		Store:  cfg.IdempotencyStore,
		TTL:    cfg.IdempotencyTTL,
		Logger: cfg.Logger,
	}))

	products := api.Group("/products")
	{
		products.POST("", handlers.Product.Create)
		products.GET("", handlers.Product.List)
		products.GET("/:id", handlers.Product.Get)
		products.DELETE("/:id", handlers.Product.Deactivate)
	}

	inventory := api.Group("/inventory")
	{
		inventory.POST("/receipts", handlers.Receiving.Receive)
		inventory.GET("/lots/:id", handlers.Inventory.GetLot)
		inventory.POST("/lots/:id/adjust", handlers.Inventory.AdjustLot)
		inventory.GET("/lots/:id/transactions", handlers.Inventory.GetAuditTrail)
		inventory.GET("/products/:id/lots", handlers.Inventory.ListLotsByProduct)
		inventory.GET("/stores/:id/expiring-lots", handlers.Inventory.ListExpiringLots)
		inventory.GET("/transactions/by-reference/:id", handlers.Inventory.GetAuditByReference)
	}

	sales := api.Group("/sales")
	{
		sales.POST("", handlers.Sale.Create)
		sales.GET("/:id", handlers.Sale.Get)
		sales.PUT("/:id", handlers.Sale.Update)
		sales.DELETE("/:id", handlers.Sale.Delete)
		sales.GET("/:id/waybill-proposal", handlers.Waybill.Propose)
		sales.GET("/:id/note", handlers.Note.GetOpenForSale)
	}

	waybills := api.Group("/waybills")
	{
		waybills.POST("", handlers.Waybill.Create)
		waybills.GET("/:id", handlers.Waybill.Get)
		waybills.PUT("/:id", handlers.Waybill.Update)
		waybills.DELETE("/:id", handlers.Waybill.Cancel)
	}

	api.GET("/notes/:id", handlers.Note.Get)

	customers := api.Group("/customers")
	{
		customers.GET("/:id/notes", handlers.Note.ListByCustomer)
		customers.GET("/:id/exposure", handlers.Note.Exposure)
	}

	return engine
}
