package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/placement-sarthi/placement-api/api/swagger"
	"github.com/placement-sarthi/placement-api/internal/handler"
	"github.com/placement-sarthi/placement-api/internal/middleware"
	"github.com/placement-sarthi/placement-api/internal/models"
	"github.com/placement-sarthi/placement-api/internal/repository"
	"github.com/placement-sarthi/placement-api/internal/service"
	"github.com/placement-sarthi/placement-api/migrations"
	"github.com/placement-sarthi/placement-api/pkg/cache"
	"github.com/placement-sarthi/placement-api/pkg/config"
	"github.com/placement-sarthi/placement-api/pkg/database"
	"github.com/placement-sarthi/placement-api/pkg/export"
	"github.com/placement-sarthi/placement-api/pkg/jobs"
	"github.com/placement-sarthi/placement-api/pkg/logger"
	corsmiddleware "github.com/placement-sarthi/placement-api/pkg/middleware/cors"
	reqidmiddleware "github.com/placement-sarthi/placement-api/pkg/middleware/requestid"
	"github.com/placement-sarthi/placement-api/pkg/storage"
)

// @title Placement Portal API
// @version 1.0.0
// @description Student registrations, recruitment pipeline transitions and placement reports.
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

const (
	roleAdmin   = string(models.RoleAdmin)
	roleCompany = string(models.RoleCompany)
	roleStudent = string(models.RoleStudent)
)

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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect database", zap.Error(err))
	}
	defer db.Close() //nolint:errcheck

	if err := database.Migrate(ctx, db, migrations.Files, logr); err != nil {
		logr.Fatal("failed to migrate database", zap.Error(err))
	}

	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, report cache degrades to misses", zap.Error(err))
	}
	if redisClient != nil {
		defer redisClient.Close() //nolint:errcheck
	}

	r, shutdown, err := buildRouter(ctx, cfg, db, redisClient, logr)
	if err != nil {
		logr.Fatal("failed to build router", zap.Error(err))
	}
	defer shutdown()

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
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Warn("graceful shutdown failed", zap.Error(err))
	}
	logr.Info("server stopped")
}

// buildRouter wires repositories, services and handlers. The returned func
// stops background workers.
func buildRouter(ctx context.Context, cfg *config.Config, db *sqlx.DB, redisClient *redis.Client, logr *zap.Logger) (*gin.Engine, func(), error) {
	validate := validator.New()
	apiPrefix := "/" + strings.Trim(cfg.APIPrefix, "/")

	metrics := service.NewMetricsService()

	userRepo := repository.NewUserRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	companyRepo := repository.NewCompanyRepository(db)
	eventRepo := repository.NewEventRepository(db)
	participationRepo := repository.NewParticipationRepository(db)
	messageRepo := repository.NewMessageRepository(db)
	exportJobRepo := repository.NewExportJobRepository(db)
	dashboardRepo := repository.NewDashboardRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	uploads, err := storage.OpenObjectStore(ctx, cfg.Uploads, apiPrefix+"/files")
	if err != nil {
		return nil, nil, fmt.Errorf("open upload storage: %w", err)
	}
	exportFiles, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
	if err != nil {
		return nil, nil, fmt.Errorf("open export storage: %w", err)
	}
	signer := storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)

	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.ReportCache.TTL, logr, cfg.ReportCache.Enabled && redisClient != nil)
	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             cfg.JWT.Issuer,
		SingleSession:      cfg.JWT.SingleSession,
	})
	userSvc := service.NewUserService(userRepo, validate, logr)
	studentSvc := service.NewStudentService(studentRepo, userSvc, uploads, cacheSvc, validate, logr, service.StudentServiceConfig{
		DefaultPassword: cfg.Accounts.DefaultPassword,
		MaxUploadBytes:  cfg.Uploads.MaxFileBytes,
	})
	companySvc := service.NewCompanyService(companyRepo, userSvc, validate, logr, cfg.Accounts.DefaultPassword)
	eventSvc := service.NewEventService(eventRepo, cacheSvc, validate, logr)
	participationSvc := service.NewParticipationService(participationRepo, studentRepo, eventRepo, cacheSvc, validate, logr)
	bulkSvc := service.NewBulkTransitionService(participationRepo, studentRepo, eventRepo, cacheSvc, metrics, validate, logr)
	reportingSvc := service.NewReportingService(participationRepo, studentRepo, eventRepo, cacheSvc, export.NewRenderer(), logr)
	messageSvc := service.NewMessageService(messageRepo, validate, logr)
	dashboardSvc := service.NewDashboardService(dashboardRepo, cacheSvc, logr, service.DashboardServiceConfig{
		CacheTTL: cfg.ReportCache.DashboardTTL,
	})

	exportSvc := service.NewExportService(reportingSvc, exportFiles, signer, service.ExportConfig{
		APIPrefix: apiPrefix,
		ResultTTL: cfg.Exports.SignedURLTTL,
	}, logr)
	worker := service.NewExportWorker(exportJobRepo, exportSvc, metrics, logr)
	queue := jobs.NewQueue("exports", worker.Handle, jobs.QueueConfig{
		Workers:    cfg.Exports.WorkerConcurrency,
		MaxRetries: cfg.Exports.WorkerRetries,
		Logger:     logr,
		OnGiveUp:   worker.MarkFailed,
	})
	queue.Start(ctx)
	exportJobSvc := service.NewExportJobService(exportJobRepo, queue, exportSvc, validate, logr, service.ExportJobServiceConfig{
		ResultTTL:       cfg.Exports.SignedURLTTL,
		CleanupInterval: cfg.Exports.CleanupInterval,
	})
	exportJobSvc.RecoverPendingJobs(ctx)
	exportJobSvc.StartCleanup(ctx)

	authHandler := handler.NewAuthHandler(authSvc)
	userHandler := handler.NewUserHandler(userSvc)
	studentHandler := handler.NewStudentHandler(studentSvc)
	companyHandler := handler.NewCompanyHandler(companySvc)
	eventHandler := handler.NewEventHandler(eventSvc)
	participationHandler := handler.NewParticipationHandler(participationSvc, eventSvc)
	bulkHandler := handler.NewBulkHandler(bulkSvc, eventSvc)
	reportHandler := handler.NewReportHandler(reportingSvc, eventSvc)
	exportHandler := handler.NewExportHandler(exportJobSvc)
	messageHandler := handler.NewMessageHandler(messageSvc)
	dashboardHandler := handler.NewDashboardHandler(dashboardSvc)
	metricsHandler := handler.NewMetricsHandler(metrics, map[string]handler.DependencyCheck{
		"database": db.PingContext,
		"redis": func(ctx context.Context) error {
			if redisClient == nil {
				return errors.New("not configured")
			}
			return redisClient.Ping(ctx).Err()
		},
	})

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(apiPrefix)
	if local, ok := uploads.(*storage.LocalStorage); ok {
		api.Static("/files", local.Dir())
	}

	auth := api.Group("/auth")
	auth.POST("/login", authHandler.Login)
	auth.POST("/refresh", authHandler.Refresh)
	auth.POST("/forgot-password", authHandler.ForgotPassword)
	api.POST("/messages", messageHandler.Submit)
	api.GET("/exports/download/:token", exportHandler.Download)

	secured := api.Group("")
	secured.Use(middleware.JWT(authSvc))

	secured.GET("/auth/me", authHandler.Me)
	secured.POST("/auth/logout", authHandler.Logout)
	secured.POST("/auth/change-password", authHandler.ChangePassword)

	users := secured.Group("/users", middleware.RBAC(roleAdmin))
	users.GET("", userHandler.List)
	users.GET("/:id", userHandler.Get)
	users.POST("", userHandler.Create)
	users.PATCH("/:id", userHandler.Update)

	events := secured.Group("/events")
	events.GET("", eventHandler.List)
	events.GET("/:eventId", eventHandler.Get)
	events.POST("", middleware.RBAC(roleAdmin, roleCompany), middleware.Audit(userRepo, models.AuditActionEventCreate, "events", ""), eventHandler.Create)
	events.PUT("/:eventId", middleware.RBAC(roleAdmin, roleCompany), middleware.Audit(userRepo, models.AuditActionEventUpdate, "events", "eventId"), eventHandler.Update)
	events.DELETE("/:eventId", middleware.RBAC(roleAdmin, roleCompany), middleware.Audit(userRepo, models.AuditActionEventDelete, "events", "eventId"), eventHandler.Delete)

	reports := secured.Group("", middleware.WithResponseMeta())
	reports.GET("/events/:eventId/registrations", middleware.RBAC(roleAdmin, roleCompany), reportHandler.EventRoster)
	reports.GET("/events/:eventId/registrations/count", reportHandler.RegistrationCount)
	reports.GET("/events/:eventId/registrations/export", middleware.RBAC(roleAdmin, roleCompany), reportHandler.ExportEventRoster)
	reports.GET("/reports/students/:admissionNumber", middleware.RBAC(roleAdmin, middleware.RoleSelf), reportHandler.StudentReport)
	reports.GET("/reports/students/:admissionNumber/export", middleware.RBAC(roleAdmin, middleware.RoleSelf), reportHandler.ExportStudentReport)

	participations := secured.Group("/participations")
	participations.POST("", middleware.RBAC(roleAdmin, roleStudent), participationHandler.Register)
	participations.GET("/student/:admissionNumber", middleware.RBAC(roleAdmin, middleware.RoleSelf), participationHandler.ListForStudent)
	participations.GET("/event/:eventId", middleware.RBAC(roleAdmin, roleCompany), participationHandler.ListForEvent)
	participations.GET("/:eventId/:admissionNumber", middleware.RBAC(roleAdmin, roleCompany, middleware.RoleSelf), participationHandler.Get)
	participations.PATCH("/:eventId/:admissionNumber/status", middleware.RBAC(roleAdmin, roleCompany),
		middleware.Audit(userRepo, models.AuditActionStatusUpdate, "participations", "admissionNumber"), participationHandler.UpdateStatus)

	bulk := secured.Group("/bulk", middleware.RBAC(roleAdmin, roleCompany))
	bulk.POST("/send-oa-links", middleware.Audit(userRepo, models.AuditActionSendOALinks, "participations", ""), bulkHandler.SendOALinks)
	bulk.POST("/schedule-interviews", middleware.Audit(userRepo, models.AuditActionSchedule, "participations", ""), bulkHandler.ScheduleInterviews)
	bulk.POST("/final-selection", middleware.Audit(userRepo, models.AuditActionFinalSelect, "participations", ""), bulkHandler.FinalSelection)

	students := secured.Group("/students")
	students.GET("", middleware.RBAC(roleAdmin, roleCompany), studentHandler.List)
	students.POST("", middleware.RBAC(roleAdmin), studentHandler.Create)
	students.POST("/import", middleware.RBAC(roleAdmin), middleware.Audit(userRepo, models.AuditActionStudentImport, "students", ""), studentHandler.Import)
	students.GET("/import/template", middleware.RBAC(roleAdmin), studentHandler.ImportTemplate)
	students.GET("/:admissionNumber", middleware.RBAC(roleAdmin, roleCompany, middleware.RoleSelf), studentHandler.Get)
	students.PUT("/:admissionNumber", middleware.RBAC(roleAdmin, middleware.RoleSelf), studentHandler.Update)
	students.DELETE("/:admissionNumber", middleware.RBAC(roleAdmin), middleware.Audit(userRepo, models.AuditActionStudentDelete, "students", "admissionNumber"), studentHandler.Delete)
	students.POST("/:admissionNumber/resume", middleware.RBAC(roleAdmin, middleware.RoleSelf), studentHandler.UploadResume)
	students.POST("/:admissionNumber/photo", middleware.RBAC(roleAdmin, middleware.RoleSelf), studentHandler.UploadPhoto)

	companies := secured.Group("/companies")
	companies.GET("", companyHandler.List)
	companies.GET("/:id", companyHandler.Get)
	companies.POST("", middleware.RBAC(roleAdmin), companyHandler.Create)
	companies.PUT("/:id", middleware.RBAC(roleAdmin, roleCompany), companyHandler.Update)
	companies.DELETE("/:id", middleware.RBAC(roleAdmin), middleware.Audit(userRepo, models.AuditActionCompanyDelete, "companies", "id"), companyHandler.Delete)

	messages := secured.Group("/messages", middleware.RBAC(roleAdmin))
	messages.GET("", messageHandler.List)
	messages.GET("/unread-count", messageHandler.UnreadCount)
	messages.GET("/:id", messageHandler.Get)
	messages.PATCH("/:id/status", messageHandler.UpdateStatus)
	messages.DELETE("/:id", messageHandler.Delete)

	exports := secured.Group("/exports", middleware.RBAC(roleAdmin, roleCompany, roleStudent))
	exports.POST("", exportHandler.Create)
	exports.GET("/:id", exportHandler.Get)

	dashboard := secured.Group("/dashboard", middleware.WithResponseMeta())
	dashboard.GET("", middleware.RBAC(roleAdmin), dashboardHandler.Admin)
	dashboard.GET("/company", middleware.RBAC(roleAdmin, roleCompany), dashboardHandler.Company)

	secured.GET("/metrics/summary", middleware.RBAC(roleAdmin), metricsHandler.Snapshot)

	return r, queue.Stop, nil
}
