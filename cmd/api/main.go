package main

import (
	"fmt"
	"log"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/lernova/attendsheets-api/api/swagger"
	"github.com/lernova/attendsheets-api/internal/handler"
	"github.com/lernova/attendsheets-api/internal/middleware"
	"github.com/lernova/attendsheets-api/internal/models"
	"github.com/lernova/attendsheets-api/internal/repository"
	"github.com/lernova/attendsheets-api/internal/service"
	"github.com/lernova/attendsheets-api/pkg/cache"
	"github.com/lernova/attendsheets-api/pkg/config"
	"github.com/lernova/attendsheets-api/pkg/database"
	"github.com/lernova/attendsheets-api/pkg/export"
	"github.com/lernova/attendsheets-api/pkg/logger"
	corsmiddleware "github.com/lernova/attendsheets-api/pkg/middleware/cors"
	reqidmiddleware "github.com/lernova/attendsheets-api/pkg/middleware/requestid"
)

// @title AttendSheets API
// @version 1.0.0
// @description Classroom attendance service with QR sessions and statistics
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
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		// Cache and signup codes degrade gracefully without Redis.
		logr.Sugar().Warnw("redis unavailable, running without cache", "error", err)
		redisClient = nil
	}

	validate := validator.New()
	metricsSvc := service.NewMetricsService()

	userRepo := repository.NewUserRepository(db)
	rosterRepo := repository.NewRosterRepository(db)
	qrRepo := repository.NewQRSessionRepository(db)
	codeRepo := repository.NewVerificationCodeRepository(redisClient)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Stats.CacheTTL, logr, redisClient != nil)
	mailer := service.NewLogMailer(logr)
	authSvc := service.NewAuthService(userRepo, codeRepo, mailer, validate, logr, cfg.JWT, cfg.Signup.CodeTTL)
	statsSvc := service.NewStatisticsService(rosterRepo, cacheSvc, metricsSvc, logr, models.Thresholds{
		Excellent: cfg.Stats.DefaultExcellent,
		Good:      cfg.Stats.DefaultGood,
		Moderate:  cfg.Stats.DefaultModerate,
	}, cfg.Stats.CacheTTL)
	attendanceSvc := service.NewAttendanceService(rosterRepo, statsSvc, validate, logr)
	qrSvc := service.NewQRSessionService(qrRepo, rosterRepo, metricsSvc, validate, logr, cfg.QR)
	exportSvc := service.NewExportService(statsSvc, logr, export.NewCSVExporter(), export.NewPDFExporter())

	authHandler := handler.NewAuthHandler(authSvc)
	qrHandler := handler.NewQRSessionHandler(qrSvc, attendanceSvc, logr)
	classHandler := handler.NewClassHandler(rosterRepo)
	attendanceHandler := handler.NewAttendanceHandler(attendanceSvc)
	statsHandler := handler.NewStatisticsHandler(statsSvc, exportSvc)
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
	r.GET("/ready", metricsHandler.Health)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	auth.POST("/login", authHandler.Login)
	auth.POST("/signup", authHandler.Signup)
	auth.POST("/verify", authHandler.Verify)

	authed := api.Group("", middleware.JWT(authSvc))
	authed.GET("/auth/me", authHandler.Me)
	authed.POST("/qr/scan", middleware.RequireRoles(models.RoleStudent), qrHandler.Scan)

	teachers := authed.Group("", middleware.RequireRoles(models.RoleTeacher))
	teachers.POST("/qr/sessions", qrHandler.Start)
	teachers.GET("/qr/sessions/:class_id", qrHandler.Get)
	teachers.POST("/qr/sessions/:class_id/stop", qrHandler.Stop)
	teachers.GET("/qr/sessions/:class_id/history", qrHandler.Sessions)
	teachers.GET("/classes", classHandler.List)
	teachers.GET("/classes/:class_id", classHandler.Get)
	teachers.PUT("/classes/:class_id/attendance", attendanceHandler.Update)
	teachers.POST("/classes/:class_id/attendance/marks", attendanceHandler.AppendMark)
	teachers.GET("/classes/:class_id/statistics", statsHandler.ClassStatistics)
	teachers.GET("/classes/:class_id/statistics/export", statsHandler.Export)
	teachers.GET("/classes/:class_id/students/:student_id/statistics", statsHandler.StudentStatistics)
	teachers.GET("/classes/:class_id/students/:student_id/statistics/day", statsHandler.StudentDayStatistics)

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
