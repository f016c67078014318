package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	catalogapp "github.com/stockops/backend/internal/application/catalog"
	creditapp "github.com/stockops/backend/internal/application/credit"
	deliveryapp "github.com/stockops/backend/internal/application/delivery"
	"github.com/stockops/backend/internal/application/fulfillment"
	inventoryapp "github.com/stockops/backend/internal/application/inventory"
	purchasingapp "github.com/stockops/backend/internal/application/purchasing"
	salesapp "github.com/stockops/backend/internal/application/sales"
	domainsales "github.com/stockops/backend/internal/domain/sales"
	"github.com/stockops/backend/internal/infrastructure/auth"
	"github.com/stockops/backend/internal/infrastructure/cache"
	"github.com/stockops/backend/internal/infrastructure/config"
	"github.com/stockops/backend/internal/infrastructure/event"
	"github.com/stockops/backend/internal/infrastructure/logger"
	"github.com/stockops/backend/internal/infrastructure/persistence"
	"github.com/stockops/backend/internal/infrastructure/telemetry"
	"github.com/stockops/backend/internal/interfaces/http/handler"
	"github.com/stockops/backend/internal/interfaces/http/router"
)

const version = "1.0.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting stockops backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("version", version),
	)

	ctx := context.Background()

	tracerProvider, err := telemetry.NewTracerProvider(ctx, cfg.Telemetry, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}
	meterProvider, err := telemetry.NewMeterProvider(ctx, cfg.Telemetry, log)
	if err != nil {
		log.Fatal("Failed to initialize meter provider", zap.Error(err))
	}

	gormLogger := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLogger)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		_ = db.Close()
	}()
	log.Info("Database connected",
		zap.String("host", cfg.Database.Host),
		zap.String("dbname", cfg.Database.DBName),
	)

	var idempotencyStore cache.IdempotencyStore
	if redisStore, err := cache.NewRedisIdempotencyStore(&cfg.Redis); err != nil {
		log.Warn("Redis unavailable, using in-memory idempotency store", zap.Error(err))
		idempotencyStore = cache.NewInMemoryIdempotencyStore()
	} else {
		log.Info("Redis connected", zap.String("addr", cfg.Redis.Addr()))
		idempotencyStore = redisStore
	}
	defer func() {
		_ = idempotencyStore.Close()
	}()

	eventBus := event.NewInMemoryEventBus(log)

	fulfillmentMetrics, err := telemetry.NewFulfillmentMetrics(meterProvider.Meter(telemetry.TracerName), log)
	if err != nil {
		log.Fatal("Failed to create fulfillment metrics", zap.Error(err))
	}
	eventBus.Subscribe(fulfillmentMetrics)

	ordering, ok := domainsales.OrderingByName(cfg.Inventory.BackorderOrdering)
	if !ok {
		log.Fatal("Unknown backorder ordering strategy",
			zap.String("name", cfg.Inventory.BackorderOrdering),
		)
	}
	coordinator := fulfillment.NewCoordinatorWithOrdering(ordering)
	coordinator.SetEventPublisher(eventBus)

	txScope := persistence.NewGormTransactionScope(db.DB)

	productService := catalogapp.NewProductService(txScope)
	receivingService := purchasingapp.NewReceivingService(txScope, coordinator)
	receivingService.SetEventPublisher(eventBus)
	inventoryService := inventoryapp.NewInventoryService(txScope, coordinator)
	saleService := salesapp.NewSaleService(txScope)
	saleService.SetEventPublisher(eventBus)
	waybillService := deliveryapp.NewWaybillService(txScope)
	noteService := creditapp.NewNoteService(txScope)

	jwtService := auth.NewJWTService(cfg.JWT)

	engine := router.New(router.Config{
		AppEnv:           cfg.App.Env,
		HTTP:             cfg.HTTP,
		JWTService:       jwtService,
		IdempotencyStore: idempotencyStore,
		IdempotencyTTL:   cfg.Inventory.IdempotencyTTL,
		Logger:           log,
		Handlers: router.Handlers{
			System:    handler.NewSystemHandler(db, version),
			Product:   handler.NewProductHandler(productService),
			Receiving: handler.NewReceivingHandler(receivingService),
			Inventory: handler.NewInventoryHandler(inventoryService),
			Sale:      handler.NewSaleHandler(saleService),
			Waybill:   handler.NewWaybillHandler(waybillService),
			Note:      handler.NewNoteHandler(noteService),
		},
	})

	server := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("HTTP server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown failed", zap.Error(err))
	}
	if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
		log.Error("Tracer provider shutdown failed", zap.Error(err))
	}
	if err := meterProvider.Shutdown(shutdownCtx); err != nil {
		log.Error("Meter provider shutdown failed", zap.Error(err))
	}

	log.Info("Shutdown complete")
}
