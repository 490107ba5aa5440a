package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/notevault-api/api/swagger"
	"github.com/noah-isme/notevault-api/internal/handler"
	"github.com/noah-isme/notevault-api/internal/middleware"
	"github.com/noah-isme/notevault-api/internal/repository"
	"github.com/noah-isme/notevault-api/internal/service"
	"github.com/noah-isme/notevault-api/internal/store"
	"github.com/noah-isme/notevault-api/internal/store/memory"
	"github.com/noah-isme/notevault-api/internal/store/postgres"
	"github.com/noah-isme/notevault-api/pkg/config"
	"github.com/noah-isme/notevault-api/pkg/database"
	"github.com/noah-isme/notevault-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/notevault-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/notevault-api/pkg/middleware/requestid"
	"github.com/noah-isme/notevault-api/pkg/notify"
)

// @title NoteVault API
// @version 1.0.0
// @description Collections and items with soft delete, hide, password lock and live views
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	backend, checks, closeStore, err := openStore(ctx, cfg, logr)
	if err != nil {
		logr.Fatal("failed to open document store", zap.Error(err))
	}
	defer closeStore()

	st := store.WithRetry(backend, store.RetryPolicy{
		MaxAttempts: cfg.Retry.MaxAttempts,
		BaseDelay:   cfg.Retry.BaseDelay,
	}, logr.Named("store"))
	batcher, _ := st.(store.Batcher)

	metrics := service.NewMetricsService()
	collections := repository.NewCollectionRepository(st, cfg.Defaults.Color, logr.Named("collections"))
	items := repository.NewItemRepository(st, cfg.Defaults.Color, logr.Named("items"))

	cascade := service.NewCascadeService(collections, items, batcher, metrics, logr.Named("cascade"), service.CascadeServiceConfig{
		Mode:        cfg.Cascade.Mode,
		Concurrency: cfg.Cascade.Concurrency,
		Workers:     cfg.Cascade.Workers,
		Retries:     cfg.Cascade.Retries,
		RetryDelay:  cfg.Cascade.RetryDelay,
	})
	cascade.Start(context.Background())

	guard := service.NewLockGuard(cfg.Lock.MinPasswordLength)
	reaper := service.NewRetentionService(collections, items, cfg.Retention.Window, nil, metrics, logr.Named("retention"))
	views := service.NewViewService(collections, items, reaper, cfg.Retention.SweepOnRecycleBin, metrics, logr.Named("views"))
	tokens := service.NewTokenService(cfg.JWT)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS))
	r.Use(middleware.Metrics(metrics))

	metricsHandler := handler.NewMetricsHandler(metrics, checks)
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	handler.Register(r.Group(cfg.APIPrefix), handler.Handlers{
		Collections: handler.NewCollectionHandler(service.NewCollectionService(collections, cascade, guard, nil, metrics, logr.Named("collections"))),
		Items:       handler.NewItemHandler(service.NewItemService(items, guard, nil, metrics, logr.Named("items"), nil)),
		Views:       handler.NewViewHandler(views, reaper, 0),
		Metrics:     metricsHandler,
	}, middleware.JWT(tokens))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(_ net.Listener) context.Context { return ctx },
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Warn("http shutdown incomplete", zap.Error(err))
	}
	cascade.Stop(shutdownCtx)
}

// openStore builds the configured document store and the readiness checks for
// its dependencies. The returned close func releases connections.
func openStore(ctx context.Context, cfg *config.Config, logr *zap.Logger) (store.Store, map[string]handler.ReadinessCheck, func(), error) {
	switch cfg.Store.Driver {
	case config.StoreDriverMemory:
		logr.Warn("using in-memory document store, data is lost on restart")
		return memory.New(memory.WithLogger(logr.Named("memory"))), nil, func() {}, nil
	case config.StoreDriverPostgres:
	default:
		return nil, nil, nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		return nil, nil, nil, err
	}
	redisClient, err := notify.NewRedis(cfg.Redis)
	if err != nil {
		_ = db.Close()
		return nil, nil, nil, fmt.Errorf("connect redis: %w", err)
	}

	pg := postgres.New(db, notify.NewRedisNotifier(redisClient, logr.Named("notify")), logr.Named("postgres"))
	if err := pg.Migrate(ctx); err != nil {
		_ = redisClient.Close()
		_ = db.Close()
		return nil, nil, nil, fmt.Errorf("migrate documents: %w", err)
	}

	checks := map[string]handler.ReadinessCheck{
		"postgres": db.PingContext,
		"redis": func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		},
	}
	closeFn := func() {
		if err := redisClient.Close(); err != nil {
			logr.Warn("redis close failed", zap.Error(err))
		}
		if err := db.Close(); err != nil {
			logr.Warn("postgres close failed", zap.Error(err))
		}
	}
	return pg, checks, closeFn, nil
}
