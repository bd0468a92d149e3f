package main

import (
	"context"

	"identity-service/internal/claims"
	"identity-service/internal/event"
	"identity-service/internal/handler"
	"identity-service/internal/identity/local"
	"identity-service/internal/middleware"
	"identity-service/internal/ownership"
	"identity-service/internal/provision"
	"identity-service/internal/resolver"
	"identity-service/internal/store/postgres"
	"identity-service/pkg/config"
	"identity-service/pkg/database"
	"identity-service/pkg/jwtutil"
	"identity-service/pkg/logger"
	"identity-service/prometheus"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	// Load configuration from .env file and environment variables
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger with config
	logger.InitLogger(cfg)
	log := logger.GetLogger()
	log.Info("Starting identity service...", zap.String("environment", cfg.Server.Env))

	// Initialize database
	db, err := database.Initialize(database.DBConfig{
		DSN:             cfg.DB.GetDSN(),
		MaxIdleConns:    cfg.DB.MaxIdleConns,
		MaxOpenConns:    cfg.DB.MaxOpenConns,
		ConnMaxLifetime: cfg.DB.ConnMaxLifetime,
		LogLevel:        cfg.DB.LogLevel,
	})
	if err != nil {
		log.Fatal("Failed to initialize database", zap.Error(err))
	}
	log.Info("Database connection established")

	// Initialize session token signing
	jwtutil.Initialize(&cfg.JWT)

	// Redis holds the one-time activation tokens
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	// Construct the components; everything is injected, nothing is global
	st := postgres.NewStore(db)
	activations := local.NewActivationStore(rdb, cfg.Provision.ActivationTTL)
	provider := local.NewProvider(db, activations, cfg.Provision.ActivationURL)
	synchronizer := claims.NewSynchronizer(provider, st, log)
	res := resolver.NewResolver(st)
	publisher := event.NewPublisher(cfg.AMQP.URL, log)
	provisioner := provision.NewProvisioner(provider, st, st, publisher, log)
	transfer := ownership.NewService(st, func(ctx context.Context, uid string) error {
		_, err := synchronizer.SyncClaims(ctx, uid)
		return err
	}, cfg.Provision.DemotedRole, log)
	guard := middleware.NewGuard(provider, st)
	h := handler.NewHandler(provider, synchronizer, res, provisioner, transfer, st, st)

	// Initialize Echo framework
	e := echo.New()

	// Apply global middleware - order matters
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORS())
	e.Use(middleware.RequestIDMiddleware)
	e.Use(logger.Middleware(log))
	e.Use(prometheus.MetricsMiddleware())

	h.Register(e, guard)

	// Start server
	port := cfg.Server.Port
	log.Info("Starting server", zap.String("port", port))
	if err := e.Start(":" + port); err != nil {
		log.Fatal("Failed to start server", zap.Error(err))
	}
}
