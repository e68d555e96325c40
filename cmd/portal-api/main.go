package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/campusworks/uniportal-api/api/swagger"
	"github.com/campusworks/uniportal-api/internal/handler"
	"github.com/campusworks/uniportal-api/internal/middleware"
	"github.com/campusworks/uniportal-api/internal/models"
	"github.com/campusworks/uniportal-api/internal/repository"
	"github.com/campusworks/uniportal-api/internal/service"
	"github.com/campusworks/uniportal-api/pkg/cache"
	"github.com/campusworks/uniportal-api/pkg/config"
	"github.com/campusworks/uniportal-api/pkg/database"
	"github.com/campusworks/uniportal-api/pkg/export"
	"github.com/campusworks/uniportal-api/pkg/jobs"
	"github.com/campusworks/uniportal-api/pkg/logger"
	corsmiddleware "github.com/campusworks/uniportal-api/pkg/middleware/cors"
	reqidmiddleware "github.com/campusworks/uniportal-api/pkg/middleware/requestid"
	"github.com/campusworks/uniportal-api/pkg/storage"
)

// @title UniPortal API
// @version 0.1.0
// @description University administration portal backend
// @BasePath /api/v1
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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close() //nolint:errcheck

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer redisClient.Close() //nolint:errcheck

	validate := validator.New()

	userRepo := repository.NewUserRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	gradeRepo := repository.NewGradeRepository(db)
	settingRepo := repository.NewSettingRepository(db)
	announcementRepo := repository.NewAnnouncementRepository(db)
	selectionRepo := repository.NewSelectionRepository(redisClient, cfg.Enrollment.SessionTTL)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	metricsSvc := service.NewMetricsService()
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Catalog.CacheTTL, logr, true)

	authSvc := service.NewAuthService(userRepo, studentRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "uniportal-api",
	})

	settingSvc := service.NewSettingService(settingRepo, cacheSvc, validate, logr, service.SettingServiceConfig{
		Semester:          cfg.Enrollment.Semester,
		DefaultMaxCredits: cfg.Enrollment.DefaultMaxCredits,
		CacheTTL:          time.Minute,
	})

	catalogSvc := service.NewCatalogService(courseRepo, selectionRepo, enrollmentRepo, cacheSvc, validate, logr, cfg.Catalog.CacheTTL)
	enrollmentSvc := service.NewEnrollmentService(selectionRepo, enrollmentRepo, courseRepo, studentRepo, settingSvc, cfg.Enrollment.RecommendationSize, metricsSvc, logr)
	studentSvc := service.NewStudentService(studentRepo, validate, logr)
	gradeSvc := service.NewGradeService(gradeRepo, validate, logr)
	announcementSvc := service.NewAnnouncementService(announcementRepo, validate, logr)
	assistanceSvc := service.NewAssistanceService(courseRepo, logr, service.AssistanceServiceConfig{
		Enabled:        cfg.Assistance.Enabled,
		MaxSuggestions: cfg.Assistance.MaxSuggestions,
		Semester:       cfg.Enrollment.Semester,
	})

	var exportJobSvc *service.ExportJobService
	var exportQueue *jobs.Queue
	if cfg.Exports.Enabled {
		store, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
		if err != nil {
			logr.Fatal("failed to init export storage", zap.Error(err))
		}
		signer := storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)
		exportSvc := service.NewExportService(enrollmentRepo, gradeSvc, store, signer, service.ExportConfig{
			APIPrefix: cfg.APIPrefix,
			ResultTTL: cfg.Exports.SignedURLTTL,
		}, logr, export.NewCSVExporter(), export.NewPDFExporter())

		exportQueue = jobs.NewQueue("exports", func(jctx context.Context, job jobs.Job) error {
			return exportJobSvc.Handle(jctx, job)
		}, jobs.QueueConfig{
			Workers:    cfg.Exports.WorkerConcurrency,
			MaxRetries: cfg.Exports.WorkerRetries,
			Logger:     logr,
		})

		exportJobSvc = service.NewExportJobService(exportQueue, exportSvc, validate, logr, service.ExportJobServiceConfig{
			ResultTTL:       cfg.Exports.SignedURLTTL,
			CleanupInterval: cfg.Exports.CleanupInterval,
			MaxRetries:      cfg.Exports.WorkerRetries,
		})

		exportQueue.Start(ctx)
		exportJobSvc.StartCleanup(ctx)
	}

	authHandler := handler.NewAuthHandler(authSvc)
	courseHandler := handler.NewCourseHandler(catalogSvc)
	enrollmentHandler := handler.NewEnrollmentHandler(enrollmentSvc)
	studentHandler := handler.NewStudentHandler(studentSvc)
	gradeHandler := handler.NewGradeHandler(gradeSvc)
	settingHandler := handler.NewSettingHandler(settingSvc)
	announcementHandler := handler.NewAnnouncementHandler(announcementSvc)
	assistanceHandler := handler.NewAssistanceHandler(assistanceSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "database unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	auth.POST("/login", authHandler.Login)
	auth.POST("/refresh", authHandler.Refresh)
	auth.POST("/logout", middleware.JWT(authSvc), authHandler.Logout)
	auth.POST("/change-password", middleware.JWT(authSvc), authHandler.ChangePassword)
	auth.GET("/me", middleware.JWT(authSvc), authHandler.Me)

	courses := api.Group("/courses")
	courses.GET("", middleware.OptionalJWT(authSvc), courseHandler.List)
	courses.GET("/:code", courseHandler.Get)
	courses.POST("", middleware.JWT(authSvc), middleware.RequireRoles(models.RoleAdmin, models.RoleStaff), courseHandler.Create)
	courses.PUT("/:code", middleware.JWT(authSvc), middleware.RequireRoles(models.RoleAdmin, models.RoleStaff), courseHandler.Update)

	selectionGroup := api.Group("/enrollment/selection", middleware.JWT(authSvc))
	selectionGroup.POST("", enrollmentHandler.StartSelection)
	selectionGroup.POST("/toggle", enrollmentHandler.Toggle)
	selectionGroup.GET("/summary", enrollmentHandler.Summary)
	selectionGroup.GET("/recommendation", enrollmentHandler.Recommendation)
	selectionGroup.POST("/drops", enrollmentHandler.ApplyDrops)
	selectionGroup.POST("/commit", enrollmentHandler.Commit)

	enrollments := api.Group("/enrollments", middleware.JWT(authSvc))
	enrollments.GET("", enrollmentHandler.List)
	enrollments.DELETE("/:id", enrollmentHandler.Drop)

	students := api.Group("/students", middleware.JWT(authSvc))
	students.GET("", middleware.RequireRoles(models.RoleAdmin, models.RoleStaff), studentHandler.List)
	students.GET("/me", studentHandler.Me)
	students.GET("/:id", middleware.RBAC("ADMIN", "STAFF", "SELF"), studentHandler.Get)
	students.PUT("/:id", middleware.RequireRoles(models.RoleAdmin, models.RoleStaff), studentHandler.Update)
	students.POST("/:id/track", middleware.RBAC("ADMIN", "STAFF", "SELF"), studentHandler.SelectTrack)
	students.GET("/:id/transcript", middleware.RBAC("ADMIN", "STAFF", "SELF"), gradeHandler.Transcript)

	api.PUT("/grades", middleware.JWT(authSvc), middleware.RequireRoles(models.RoleAdmin, models.RoleStaff), gradeHandler.Upsert)

	settings := api.Group("/settings")
	settings.GET("/enrollment", settingHandler.Current)
	settings.PUT("/enrollment", middleware.JWT(authSvc), middleware.RequireRoles(models.RoleAdmin), settingHandler.Upsert)

	announcements := api.Group("/announcements", middleware.JWT(authSvc))
	announcements.GET("", announcementHandler.List)
	announcements.GET("/:id", announcementHandler.Get)
	announcements.POST("", middleware.RequireRoles(models.RoleAdmin, models.RoleStaff), announcementHandler.Create)
	announcements.PUT("/:id", middleware.RequireRoles(models.RoleAdmin, models.RoleStaff), announcementHandler.Update)
	announcements.DELETE("/:id", middleware.RequireRoles(models.RoleAdmin, models.RoleStaff), announcementHandler.Delete)

	api.POST("/assistance/suggest", middleware.JWT(authSvc), assistanceHandler.Suggest)

	if cfg.Exports.Enabled {
		exportHandler := handler.NewExportHandler(exportJobSvc)
		exportsGroup := api.Group("/exports")
		exportsGroup.POST("", middleware.JWT(authSvc), exportHandler.Create)
		exportsGroup.GET("/:id", middleware.JWT(authSvc), exportHandler.Status)
		// Download tokens are signed and expiring, no session required.
		exportsGroup.GET("/download/:token", exportHandler.Download)
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
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
		logr.Warn("server shutdown", zap.Error(err))
	}
	if exportQueue != nil {
		exportQueue.Stop()
	}
}
