package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/crewplan/crew-api/api/swagger"
	"github.com/crewplan/crew-api/internal/handler"
	internalmiddleware "github.com/crewplan/crew-api/internal/middleware"
	"github.com/crewplan/crew-api/internal/repository"
	"github.com/crewplan/crew-api/internal/service"
	"github.com/crewplan/crew-api/pkg/cache"
	"github.com/crewplan/crew-api/pkg/config"
	"github.com/crewplan/crew-api/pkg/database"
	"github.com/crewplan/crew-api/pkg/jobs"
	"github.com/crewplan/crew-api/pkg/logger"
	corsmiddleware "github.com/crewplan/crew-api/pkg/middleware/cors"
	reqidmiddleware "github.com/crewplan/crew-api/pkg/middleware/requestid"
)

// @title CrewPlan API
// @version 1.0.0
// @description Shift scheduling and assignment for event staff
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

// Pending outbox rows re-driven in one pass at startup.
const notificationRecoveryBatch = 100

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
		logr.Sugar().Fatalw("failed to connect to database", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, running without cache", "error", err)
		redisClient = nil
	}

	validate := validator.New()
	metrics := service.NewMetricsService()

	// Repositories.
	userRepo := repository.NewUserRepository(db)
	staffRepo := repository.NewStaffRepository(db)
	qualificationRepo := repository.NewQualificationRepository(db)
	eventRepo := repository.NewEventRepository(db)
	shiftRepo := repository.NewShiftRepository(db)
	invitationRepo := repository.NewInvitationRepository(db)
	assignmentRepo := repository.NewAssignmentRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)

	var cacheService *service.CacheService
	if redisClient != nil {
		cacheRepo := repository.NewCacheRepository(redisClient, logr)
		cacheService = service.NewCacheService(cacheRepo, metrics, cfg.Scheduling.ListingCacheTTL, logr, true)
	} else {
		cacheService = service.NewCacheService(nil, metrics, cfg.Scheduling.ListingCacheTTL, logr, false)
	}

	// Services.
	notificationService := service.NewNotificationService(notificationRepo, service.LogSink{Logger: logr}, logr, jobs.QueueConfig{
		Workers:    cfg.Notifications.Workers,
		MaxRetries: cfg.Notifications.MaxRetries,
		RetryDelay: cfg.Notifications.RetryDelay,
		Logger:     logr,
	}, cfg.Notifications.Enabled)

	authService := service.NewAuthService(userRepo, cfg.JWT, validate, logr)
	staffService := service.NewStaffService(staffRepo, qualificationRepo, validate, logr)
	qualificationService := service.NewQualificationService(qualificationRepo, validate, logr)
	eventService := service.NewEventService(eventRepo, cacheService, validate, logr)
	shiftService := service.NewShiftService(shiftRepo, eventRepo, qualificationRepo, cacheService, validate, logr)
	invitationService := service.NewInvitationService(invitationRepo, eventRepo, staffRepo, validate, logr)
	exportService := service.NewExportService(eventRepo, assignmentRepo, logr)
	schedulingService := service.NewSchedulingService(
		staffRepo, shiftRepo, eventRepo, invitationRepo, assignmentRepo,
		notificationService, cacheService, metrics,
		service.SchedulingPolicy{
			CountInterested:      cfg.Scheduling.CountInterested,
			RequireQualification: cfg.Scheduling.RequireQualification,
		},
		validate, logr,
	)

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	notificationService.Start(rootCtx)
	defer notificationService.Stop()
	if err := notificationService.DispatchPending(rootCtx, notificationRecoveryBatch); err != nil {
		logr.Warn("failed to re-drive pending notifications", zap.Error(err))
	}

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metrics))

	router := &handler.Router{
		Auth:           handler.NewAuthHandler(authService),
		Staff:          handler.NewStaffHandler(staffService, invitationService),
		Qualifications: handler.NewQualificationHandler(qualificationService),
		Events:         handler.NewEventHandler(eventService, invitationService, exportService),
		Shifts:         handler.NewShiftHandler(shiftService),
		Scheduling:     handler.NewSchedulingHandler(schedulingService),
		AuthService:    authService,
		Metrics:        metrics,
		ExportsEnabled: cfg.Exports.Enabled,
		DB:             db,
		Redis:          redisClient,
	}
	router.Register(r, cfg.APIPrefix)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-rootCtx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
