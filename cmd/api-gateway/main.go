package main

import (
	"fmt"
	"log"

	"github.com/go-playground/validator/v10"

	_ "github.com/noah-isme/dorm-hub-api/api/swagger"
	"github.com/noah-isme/dorm-hub-api/internal/handler"
	"github.com/noah-isme/dorm-hub-api/internal/repository"
	"github.com/noah-isme/dorm-hub-api/internal/router"
	"github.com/noah-isme/dorm-hub-api/internal/service"
	"github.com/noah-isme/dorm-hub-api/pkg/cache"
	"github.com/noah-isme/dorm-hub-api/pkg/config"
	"github.com/noah-isme/dorm-hub-api/pkg/database"
	"github.com/noah-isme/dorm-hub-api/pkg/logger"
)

// @title Dorm Hub API
// @version 1.0.0
// @description Dormitory management API: rooms, residents, occupancy and rent payments
// @BasePath /api
// @schemes http

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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	metrics := service.NewMetricsService()

	// Redis is optional; without it the API serves uncached.
	var cacheSvc *service.CacheService
	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
		cacheSvc = service.NewCacheService(nil, metrics, cfg.Dashboard.CacheTTL, logr, false)
	} else {
		defer redisClient.Close()
		cacheRepo := repository.NewCacheRepository(redisClient, logr)
		cacheSvc = service.NewCacheService(cacheRepo, metrics, cfg.Dashboard.CacheTTL, logr, true)
	}

	validate := validator.New()

	roomRepo := repository.NewRoomRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	userRepo := repository.NewUserRepository(db)

	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             cfg.JWT.Issuer,
	})
	roomSvc := service.NewRoomService(roomRepo, validate, logr)
	studentSvc := service.NewStudentService(studentRepo, cacheSvc, validate, logr)
	occupancySvc := service.NewOccupancyService(roomRepo, studentRepo, cacheSvc, logr)
	paymentSvc := service.NewPaymentService(paymentRepo, studentRepo, roomRepo, cacheSvc, validate, logr, nil)
	rentSvc := service.NewRentService(studentRepo, roomRepo, paymentRepo, cacheSvc, cfg.Billing.RentSummaryCacheTTL, logr, nil)
	dashboardSvc := service.NewDashboardService(roomRepo, paymentRepo, studentRepo, cacheSvc, cfg.Dashboard.CacheTTL, logr)

	r := router.New(router.Deps{
		Config:    cfg,
		Logger:    logr,
		Users:     userRepo,
		Metrics:   metrics,
		Auth:      handler.NewAuthHandler(authSvc),
		Rooms:     handler.NewRoomHandler(roomSvc),
		Students:  handler.NewStudentHandler(studentSvc, occupancySvc, rentSvc),
		Payments:  handler.NewPaymentHandler(paymentSvc),
		Dashboard: handler.NewDashboardHandler(dashboardSvc),
		AuthSvc:   authSvc,
	})

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
