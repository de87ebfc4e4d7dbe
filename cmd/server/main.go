package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	_ "farmersmarket/docs" // swagger docs

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"farmersmarket/internal/audit"
	"farmersmarket/internal/auth"
	"farmersmarket/internal/cache"
	"farmersmarket/internal/config"
	"farmersmarket/internal/db"
	"farmersmarket/internal/events"
	"farmersmarket/internal/handler"
	"farmersmarket/internal/logger"
	"farmersmarket/internal/repository"
	"farmersmarket/internal/router"
	"farmersmarket/internal/service"
)

const shutdownTimeout = 10 * time.Second

// @title Farmers Market API
// @version 1.0
// @description Farmers market catalog, purchases and transaction history with JWT authentication.
// @host localhost:8080
// @BasePath /api
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	zlog, err := logger.New(cfg.LogLevel, cfg.LogEncoding)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = zlog.Sync() }()

	gormDB, err := db.Open(cfg.DBDriver, cfg.DSN())
	if err != nil {
		zlog.Fatal("database init", zap.Error(err))
	}
	if err := db.Migrate(gormDB, cfg.ResetDB, zlog); err != nil {
		zlog.Fatal("migrate", zap.Error(err))
	}

	cacheClient := cache.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	pingCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	if err := cacheClient.Ping(pingCtx); err != nil {
		zlog.Warn("redis unavailable, caching and token revocation degraded", zap.Error(err))
	}
	cancel()

	store := repository.NewStore(gormDB)

	sink, closeSink := auditSink(cfg, store, zlog)
	recorder := audit.NewWriter(sink, zlog)

	publisher := eventPublisher(cfg, zlog)

	// Initialize auth components
	jwtService := auth.NewJWTService(cfg.JWTSecret)
	tokenStore := auth.NewTokenStore(cacheClient)

	// Initialize services
	authService := service.NewAuthService(store.Users(), jwtService, tokenStore, recorder, zlog)
	userService := service.NewUserService(store.Users(), cacheClient, sink)
	catalogService := service.NewCatalogService(store.Products(), cacheClient, cfg.CatalogCacheTTL, recorder, publisher, zlog)
	purchaseService := service.NewPurchaseService(store, recorder, publisher, cacheClient, zlog, cfg.PurchaseTimeout)
	historyService := service.NewHistoryService(store.Transactions())

	e := echo.New()
	e.HideBanner = true
	router.Register(e, zlog, jwtService, tokenStore, router.Handlers{
		Auth:        handler.NewAuthHandler(authService, jwtService),
		User:        handler.NewUserHandler(userService),
		Product:     handler.NewProductHandler(catalogService),
		Purchase:    handler.NewPurchaseHandler(purchaseService),
		Transaction: handler.NewTransactionHandler(historyService),
	})

	zlog.Info("swagger documentation available", zap.String("url", swaggerURL(cfg)))

	go func() {
		addr := ":" + cfg.ServerPort
		zlog.Info("server starting", zap.String("addr", addr))
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			zlog.Fatal("server start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	zlog.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		zlog.Error("server shutdown", zap.Error(err))
	}

	// Drain audit entries before their sink goes away.
	recorder.Close()
	closeSink(ctx)
	if err := publisher.Close(); err != nil {
		zlog.Warn("close event publisher", zap.Error(err))
	}
	if err := cacheClient.Close(); err != nil {
		zlog.Warn("close redis", zap.Error(err))
	}
	if sqlDB, err := gormDB.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

func auditSink(cfg *config.Config, store repository.Store, zlog *zap.Logger) (audit.Store, func(context.Context)) {
	if cfg.AuditSink != "mongo" {
		return audit.NewSQLSink(store.ActionLogs()), func(context.Context) {}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	sink, err := audit.NewMongoSink(ctx, cfg.MongoURI, cfg.MongoDatabase, cfg.MongoCollection)
	if err != nil {
		zlog.Fatal("connect audit store", zap.Error(err))
	}
	zlog.Info("audit log stored in mongodb", zap.String("database", cfg.MongoDatabase))
	return sink, func(ctx context.Context) {
		if err := sink.Close(ctx); err != nil {
			zlog.Warn("close audit store", zap.Error(err))
		}
	}
}

func eventPublisher(cfg *config.Config, zlog *zap.Logger) events.Publisher {
	if len(cfg.KafkaBrokers) == 0 {
		return events.Noop{}
	}
	publisher, err := events.NewKafkaPublisher(cfg.KafkaBrokers, zlog)
	if err != nil {
		zlog.Fatal("connect kafka", zap.Error(err))
	}
	zlog.Info("publishing events to kafka", zap.Strings("brokers", cfg.KafkaBrokers))
	return publisher
}

func swaggerURL(cfg *config.Config) string {
	host := cfg.SwaggerHost
	if host == "" {
		host = "localhost:" + cfg.ServerPort
	}
	if !strings.HasPrefix(host, "http://") && !strings.HasPrefix(host, "https://") {
		host = "http://" + host
	}
	return host + "/swagger/index.html"
}
