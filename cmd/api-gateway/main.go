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
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/campushub/registration-api/api/swagger"
	"github.com/campushub/registration-api/internal/handler"
	"github.com/campushub/registration-api/internal/middleware"
	"github.com/campushub/registration-api/internal/models"
	"github.com/campushub/registration-api/internal/repository"
	"github.com/campushub/registration-api/internal/service"
	"github.com/campushub/registration-api/pkg/cache"
	"github.com/campushub/registration-api/pkg/config"
	"github.com/campushub/registration-api/pkg/database"
	"github.com/campushub/registration-api/pkg/logger"
	corsmiddleware "github.com/campushub/registration-api/pkg/middleware/cors"
	reqidmiddleware "github.com/campushub/registration-api/pkg/middleware/requestid"
)

// @title University Registration API
// @version 1.0.0
// @description Course registration administration service
// @BasePath /api
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
		logr.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close()

	// Redis is optional: the settings cache and login limiter degrade to
	// direct reads and fail-open when it is absent.
	var redisClient *redis.Client
	if client, err := cache.NewRedis(cfg.Redis); err != nil {
		logr.Warn("redis unavailable, running without cache", zap.Error(err))
	} else {
		redisClient = client
		defer redisClient.Close()
	}

	validate := validator.New()

	departmentRepo := repository.NewDepartmentRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	groupRepo := repository.NewGroupRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	prerequisiteRepo := repository.NewPrerequisiteRepository(db)
	completedRepo := repository.NewCompletedCourseRepository(db)
	settingRepo := repository.NewSettingRepository(db)
	userRepo := repository.NewUserRepository(db)

	metricsSvc := service.NewMetricsService()
	limiter := service.NewLoginLimiter(redisClient, cfg.LoginLimiter, logr)
	authSvc := service.NewAuthService(userRepo, limiter, validate, logr, service.AuthConfig{
		Secret:     cfg.JWT.Secret,
		Expiration: cfg.JWT.Expiration,
		Issuer:     cfg.JWT.Issuer,
	})
	settingSvc := service.NewSettingService(settingRepo, redisClient, cfg.Registration, cfg.Settings.CacheTTL, logr)
	departmentSvc := service.NewDepartmentService(departmentRepo, validate, logr)
	studentSvc := service.NewStudentService(studentRepo, userRepo, departmentRepo, enrollmentRepo, validate, logr)
	courseSvc := service.NewCourseService(courseRepo, prerequisiteRepo, enrollmentRepo, departmentRepo, cfg.Registration.DefaultNewCapacity, validate, logr)
	groupSvc := service.NewGroupService(groupRepo, courseRepo, validate, logr)
	enrollmentSvc := service.NewEnrollmentService(enrollmentRepo, validate, logr)
	registrationSvc := service.NewRegistrationService(enrollmentRepo, courseRepo, prerequisiteRepo, completedRepo, settingSvc, validate, logr)
	exportSvc := service.NewExportService(enrollmentRepo, courseRepo, logr)
	userSvc := service.NewUserService(userRepo, validate, logr)

	authHandler := handler.NewAuthHandler(authSvc)
	departmentHandler := handler.NewDepartmentHandler(departmentSvc)
	studentHandler := handler.NewStudentHandler(studentSvc)
	courseHandler := handler.NewCourseHandler(courseSvc)
	groupHandler := handler.NewGroupHandler(groupSvc)
	enrollmentHandler := handler.NewEnrollmentHandler(enrollmentSvc)
	registrationHandler := handler.NewRegistrationHandler(registrationSvc, studentSvc, metricsSvc)
	settingHandler := handler.NewSettingHandler(settingSvc)
	exportHandler := handler.NewExportHandler(exportSvc)
	userHandler := handler.NewUserHandler(userSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc, db, redisClient)

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
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	api.POST("/auth/login", authHandler.Login)

	public := api.Group("/public")
	{
		public.GET("/registration-status", settingHandler.RegistrationStatus)
		public.GET("/max-courses", settingHandler.MaxCourses)
		public.GET("/auto-logout", settingHandler.AutoLogoutPolicy)
	}

	authed := api.Group("")
	authed.Use(middleware.JWT(authSvc))

	authed.GET("/auth/me", authHandler.Me)
	authed.PUT("/auth/password", authHandler.ChangePassword)

	adminOnly := middleware.RequireRoles(models.RoleAdmin)
	adminOrFinance := middleware.RequireRoles(models.RoleAdmin, models.RoleFinancialSupervisor)
	studentOnly := middleware.RequireRoles(models.RoleStudent)

	authed.GET("/departments", departmentHandler.List)
	authed.GET("/departments/:id", departmentHandler.Get)
	authed.POST("/departments", adminOnly, departmentHandler.Create)
	authed.PUT("/departments/:id", adminOnly, departmentHandler.Update)
	authed.DELETE("/departments/:id", adminOnly, departmentHandler.Delete)

	authed.GET("/students", adminOrFinance, studentHandler.List)
	authed.GET("/students/:id", adminOrFinance, studentHandler.Get)
	authed.POST("/students", adminOnly, studentHandler.Create)
	authed.PUT("/students/:id", adminOnly, studentHandler.Update)
	authed.DELETE("/students/:id", adminOnly, studentHandler.Delete)
	authed.GET("/students/:id/completed-courses", adminOrFinance, registrationHandler.ListCompletedForStudent)
	authed.POST("/students/:id/completed-courses/:courseId", adminOnly, registrationHandler.MarkCompleted)
	authed.DELETE("/completed-courses/:id", adminOnly, registrationHandler.RemoveCompleted)
	authed.POST("/students/:id/enrollments/reset", adminOnly, enrollmentHandler.ResetStudent)

	authed.GET("/courses", courseHandler.List)
	authed.GET("/courses/statistics", adminOrFinance, courseHandler.Statistics)
	authed.GET("/courses/:id", courseHandler.Get)
	authed.POST("/courses", adminOnly, courseHandler.Create)
	authed.PUT("/courses/:id", adminOnly, courseHandler.Update)
	authed.DELETE("/courses/:id", adminOnly, courseHandler.Delete)
	authed.POST("/courses/:id/recompute-capacity", adminOnly, courseHandler.RecomputeCapacity)

	authed.GET("/courses/:id/prerequisites", courseHandler.ListPrerequisites)
	authed.POST("/courses/:id/prerequisites", adminOnly, courseHandler.AddPrerequisite)
	authed.DELETE("/courses/:id/prerequisites/:prereqId", adminOnly, courseHandler.RemovePrerequisite)

	authed.GET("/courses/:id/groups", groupHandler.ListByCourse)
	authed.POST("/courses/:id/groups", adminOnly, groupHandler.Create)
	authed.GET("/groups/:id", groupHandler.Get)
	authed.PUT("/groups/:id", adminOnly, groupHandler.Update)
	authed.DELETE("/groups/:id", adminOnly, groupHandler.Delete)

	authed.GET("/enrollments", adminOrFinance, enrollmentHandler.List)
	authed.PUT("/enrollments/:id/payment", adminOrFinance, enrollmentHandler.UpdatePayment)
	authed.DELETE("/enrollments/:id", adminOnly, enrollmentHandler.Delete)
	authed.POST("/enrollments/reset", adminOnly, enrollmentHandler.ResetAll)

	registration := authed.Group("/registration", studentOnly)
	{
		registration.POST("/enroll", registrationHandler.Enroll)
		registration.DELETE("/courses/:courseId", registrationHandler.Unenroll)
		registration.GET("/courses/:courseId/prerequisites", registrationHandler.CheckPrerequisites)
		registration.GET("/enrollments", registrationHandler.MyEnrollments)
		registration.GET("/completed-courses", registrationHandler.MyCompletedCourses)
		registration.GET("/enrollment-count", registrationHandler.EnrollmentCount)
	}

	authed.GET("/settings", adminOnly, settingHandler.List)
	authed.GET("/settings/:key", adminOnly, settingHandler.Get)
	authed.PUT("/settings/:key", adminOnly, settingHandler.Update)

	authed.GET("/exports/enrollments", adminOrFinance, exportHandler.Enrollments)
	authed.GET("/exports/course-statistics", adminOrFinance, exportHandler.CourseStatistics)

	authed.GET("/users/supervisors", adminOnly, userHandler.ListSupervisors)
	authed.POST("/users/supervisors", adminOnly, userHandler.CreateSupervisor)
	authed.PUT("/users/supervisors/:id", adminOnly, userHandler.UpdateSupervisor)
	authed.PUT("/users/supervisors/:id/password", adminOnly, userHandler.ResetPassword)
	authed.DELETE("/users/supervisors/:id", adminOnly, userHandler.DeleteSupervisor)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var reconciler *service.CapacityReconciler
	if cfg.Startup.ReconcileCapacity {
		reconciler = service.NewCapacityReconciler(courseRepo, cfg.Startup.ReconcileWorkers, logr)
		if _, err := reconciler.Run(ctx); err != nil {
			logr.Error("capacity reconciliation failed to start", zap.Error(err))
		}
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: r,
	}

	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logr.Info("shutdown signal received")

	if reconciler != nil {
		reconciler.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
	logr.Info("server stopped")
}
