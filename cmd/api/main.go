package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/AltamashPatel/edu-schedule-wiz/api/swagger"
	"github.com/AltamashPatel/edu-schedule-wiz/internal/handler"
	internalmiddleware "github.com/AltamashPatel/edu-schedule-wiz/internal/middleware"
	"github.com/AltamashPatel/edu-schedule-wiz/internal/models"
	"github.com/AltamashPatel/edu-schedule-wiz/internal/repository"
	"github.com/AltamashPatel/edu-schedule-wiz/internal/service"
	"github.com/AltamashPatel/edu-schedule-wiz/pkg/cache"
	"github.com/AltamashPatel/edu-schedule-wiz/pkg/config"
	"github.com/AltamashPatel/edu-schedule-wiz/pkg/database"
	"github.com/AltamashPatel/edu-schedule-wiz/pkg/events"
	"github.com/AltamashPatel/edu-schedule-wiz/pkg/jobs"
	"github.com/AltamashPatel/edu-schedule-wiz/pkg/logger"
	corsmiddleware "github.com/AltamashPatel/edu-schedule-wiz/pkg/middleware/cors"
	reqidmiddleware "github.com/AltamashPatel/edu-schedule-wiz/pkg/middleware/requestid"
	"github.com/AltamashPatel/edu-schedule-wiz/pkg/validation"
)

const shutdownTimeout = 15 * time.Second

// @title Edu Schedule Wiz API
// @version 1.0.0
// @description Timetable slot generation and lifecycle management
// @BasePath /api/v1
// @schemes http https
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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect database", zap.Error(err))
	}
	defer db.Close()

	if cfg.Database.MigrateOnStart {
		if err := database.RunMigrations(db.DB, logr); err != nil {
			logr.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	var redisClient *redis.Client
	if cfg.Cache.Enabled {
		redisClient, err = cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, slot cache disabled", zap.Error(err))
		} else {
			defer redisClient.Close()
		}
	}

	var metricsSvc *service.MetricsService
	if cfg.Metrics.Enabled {
		metricsSvc = service.NewMetricsService()
	}

	bus := events.NewBus(jobs.QueueConfig{
		Workers:    cfg.Events.Workers,
		BufferSize: cfg.Events.BufferSize,
		MaxRetries: cfg.Events.MaxRetries,
		Logger:     logr.Named("events"),
	})

	router := buildRouter(cfg, logr, db, redisClient, metricsSvc, bus)

	bus.Start(ctx)
	defer bus.Stop()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}

func buildRouter(cfg *config.Config, logr *zap.Logger, db *sqlx.DB, redisClient *redis.Client, metricsSvc *service.MetricsService, bus *events.Bus) *gin.Engine {
	validate := validation.New()

	subjectRepo := repository.NewSubjectRepository(db)
	facultyRepo := repository.NewFacultyRepository(db)
	classroomRepo := repository.NewClassroomRepository(db)
	batchRepo := repository.NewBatchRepository(db)
	timetableRepo := repository.NewTimetableRepository(db)
	slotRepo := repository.NewTimetableSlotRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, "edu-schedule", logr)

	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Cache.TTL, logr, cfg.Cache.Enabled && redisClient != nil)

	blocked := make([]service.GridCell, 0, len(cfg.Scheduler.BlockedCells))
	for _, cell := range cfg.Scheduler.BlockedCells {
		blocked = append(blocked, service.GridCell(cell))
	}

	catalog := service.NewResourceCatalog(subjectRepo, facultyRepo, classroomRepo, cfg.Scheduler.SubjectLimit)
	generatorSvc := service.NewTimetableGeneratorService(
		timetableRepo, batchRepo, slotRepo, catalog, db, bus, cacheSvc, metricsSvc, validate, logr.Named("generator"),
		service.TimetableGeneratorConfig{BlockedCells: blocked, DefaultMaxHours: cfg.Scheduler.DefaultMaxHours},
	)
	timetableSvc := service.NewTimetableService(timetableRepo, batchRepo, slotRepo, cacheSvc, bus, metricsSvc, validate, logr.Named("timetables"))
	authSvc := service.NewAuthService(logr, service.AuthConfig{AccessTokenSecret: cfg.JWT.Secret, Issuer: cfg.JWT.Issuer})

	timetableHandler := handler.NewTimetableHandler(timetableSvc, generatorSvc)
	eventsHandler := handler.NewTimetableEventsHandler(timetableSvc, bus, logr.Named("stream"), handler.EventStreamConfig{
		AllowedOrigins: cfg.Websocket.AllowedOrigins,
		PingInterval:   cfg.Websocket.PingInterval,
		WriteTimeout:   cfg.Websocket.WriteTimeout,
	})

	checks := map[string]handler.ReadinessCheck{"postgres": db.PingContext}
	if redisClient != nil {
		checks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	}
	metricsHandler := handler.NewMetricsHandler(metricsSvc, checks)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metricsSvc, "/health", "/ready", "/metrics"))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	if metricsSvc != nil {
		r.GET("/metrics", metricsHandler.Prometheus)
	}
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	editors := internalmiddleware.RequireRoles(models.RoleAdmin, models.RoleFaculty)
	admins := internalmiddleware.RequireRoles(models.RoleAdmin)

	audit := func(action string) gin.HandlerFunc { return internalmiddleware.Audit(logr, action) }

	api := r.Group(cfg.APIPrefix, internalmiddleware.JWT(authSvc))
	timetables := api.Group("/timetables")
	timetables.GET("", timetableHandler.List)
	timetables.GET("/summary", timetableHandler.Summary)
	timetables.POST("", editors, audit("timetable.create"), timetableHandler.Create)
	timetables.GET("/:id", timetableHandler.Get)
	timetables.PUT("/:id", editors, audit("timetable.update"), timetableHandler.Update)
	timetables.DELETE("/:id", admins, audit("timetable.delete"), timetableHandler.Delete)
	timetables.GET("/:id/slots", timetableHandler.Slots)
	timetables.GET("/:id/events", eventsHandler.Stream)
	timetables.POST("/:id/generate", editors, audit("timetable.generate"), timetableHandler.Generate)
	timetables.POST("/:id/submit", editors, audit("timetable.submit"), timetableHandler.Submit)
	timetables.POST("/:id/approve", admins, audit("timetable.approve"), timetableHandler.Approve)
	timetables.POST("/:id/reject", admins, audit("timetable.reject"), timetableHandler.Reject)
	timetables.POST("/:id/publish", admins, audit("timetable.publish"), timetableHandler.Publish)

	return r
}
