package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/examportal/exam-portal-api/api/swagger"
	"github.com/examportal/exam-portal-api/internal/handler"
	"github.com/examportal/exam-portal-api/internal/middleware"
	"github.com/examportal/exam-portal-api/internal/models"
	"github.com/examportal/exam-portal-api/internal/repository"
	"github.com/examportal/exam-portal-api/internal/service"
	"github.com/examportal/exam-portal-api/pkg/cache"
	"github.com/examportal/exam-portal-api/pkg/config"
	"github.com/examportal/exam-portal-api/pkg/database"
	"github.com/examportal/exam-portal-api/pkg/logger"
	corsmiddleware "github.com/examportal/exam-portal-api/pkg/middleware/cors"
	reqidmiddleware "github.com/examportal/exam-portal-api/pkg/middleware/requestid"
	"github.com/examportal/exam-portal-api/pkg/storage"
)

// @title Exam Portal API
// @version 0.1.0
// @description Exam sessions, spreadsheet import/export and results reporting
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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect postgres", "error", err)
	}
	defer db.Close() //nolint:errcheck

	// A dead Redis only costs the archive/tombstone overlay, so the server
	// starts anyway and the exam service degrades per operation.
	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unreachable, exam overlay degraded", "error", err)
	}
	defer redisClient.Close() //nolint:errcheck

	localStorage, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to init export storage", "error", err)
	}
	signer := storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)

	examRepo := repository.NewExamRepository(db)
	userRepo := repository.NewUserRepository(db)
	resultRepo := repository.NewResultRepository(db)
	preferenceRepo := repository.NewPreferenceRepository(redisClient)

	validate := validator.New()

	metricsService := service.NewMetricsService()
	authService := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		TokenSecret:      cfg.JWT.Secret,
		TokenExpiry:      cfg.JWT.Expiration,
		Issuer:           cfg.JWT.Issuer,
		FailsafeUsername: cfg.Failsafe.Username,
		FailsafePassword: cfg.Failsafe.Password,
		FailsafeName:     cfg.Failsafe.Name,
	})
	examService := service.NewExamService(examRepo, preferenceRepo, validate, logr)
	userService := service.NewUserService(userRepo, logr)
	resultService := service.NewResultService(resultRepo, logr)
	attemptService := service.NewAttemptService(examService, resultRepo, logr, service.AttemptConfig{
		TTL:             cfg.Attempts.TTL,
		CleanupInterval: cfg.Attempts.CleanupInterval,
	})
	exportService := service.NewExportService(resultRepo, localStorage, signer, service.ExportConfig{
		APIPrefix: cfg.APIPrefix,
		ResultTTL: cfg.Exports.SignedURLTTL,
	}, logr)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	attemptService.StartJanitor(ctx)
	go runExportCleanup(ctx, exportService, cfg.Exports.CleanupInterval, logr)

	authHandler := handler.NewAuthHandler(authService, metricsService)
	examHandler := handler.NewExamHandler(examService)
	attemptHandler := handler.NewAttemptHandler(attemptService, metricsService)
	resultHandler := handler.NewResultHandler(resultService)
	adminHandler := handler.NewAdminHandler(examService, userService, metricsService, cfg.Imports.MaxFileSizeBytes)
	exportHandler := handler.NewExportHandler(exportService, metricsService)
	metricsHandler := handler.NewMetricsHandler(metricsService)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsService))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/metrics", metricsHandler.Metrics)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	api.POST("/auth/login", authHandler.Login)
	api.GET("/export/:token", exportHandler.Download)

	authed := api.Group("")
	authed.Use(middleware.JWT(authService))
	{
		authed.GET("/auth/me", authHandler.Me)

		authed.GET("/exams", examHandler.List)
		authed.GET("/exams/:id", examHandler.Get)
		authed.GET("/exams/:id/questions", examHandler.Questions)

		authed.POST("/attempts", attemptHandler.Start)
		authed.GET("/attempts/:id", attemptHandler.Get)
		authed.POST("/attempts/:id/select", attemptHandler.Select)
		authed.POST("/attempts/:id/submit", attemptHandler.Submit)
		authed.POST("/attempts/:id/next", attemptHandler.Next)
		authed.POST("/attempts/:id/prev", attemptHandler.Prev)
		authed.POST("/attempts/:id/retry", attemptHandler.Retry)

		authed.GET("/results", resultHandler.List)
		authed.GET("/results/keys", resultHandler.Keys)
		authed.GET("/results/count", resultHandler.Count)
		authed.GET("/results/:id", resultHandler.Get)
	}

	admin := api.Group("")
	admin.Use(middleware.JWT(authService), middleware.RequireRoles(models.RoleAdmin))
	{
		admin.PUT("/exams/:id", examHandler.Upsert)
		admin.PATCH("/exams/:id", examHandler.UpdateMetadata)
		admin.POST("/exams/:id/archive", examHandler.ToggleArchive)
		admin.DELETE("/exams/:id", examHandler.Delete)

		admin.DELETE("/results", resultHandler.Delete)

		admin.POST("/admin/imports/questions", adminHandler.ImportQuestions)
		admin.POST("/admin/imports/users", adminHandler.ImportUsers)
		admin.GET("/admin/templates/questions", adminHandler.QuestionTemplate)
		admin.GET("/admin/templates/users", adminHandler.UserTemplate)
		admin.GET("/admin/accounts", adminHandler.Accounts)
		admin.POST("/admin/exports/results", exportHandler.Create)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}

func runExportCleanup(ctx context.Context, exports *service.ExportService, interval time.Duration, logr *zap.Logger) {
	if interval <= 0 {
		interval = time.Hour
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := exports.Cleanup(0)
			if err != nil {
				logr.Warn("export cleanup failed", zap.Error(err))
				continue
			}
			if len(removed) > 0 {
				logr.Info("expired exports removed", zap.Int("count", len(removed)))
			}
		}
	}
}
