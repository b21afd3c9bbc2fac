package main

import (
	"context"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	sentryecho "github.com/getsentry/sentry-go/echo"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/salespipehq/salespipe/config"
	"github.com/salespipehq/salespipe/pkg/api/handlers"
	"github.com/salespipehq/salespipe/pkg/assignment"
	"github.com/salespipehq/salespipe/pkg/audit"
	"github.com/salespipehq/salespipe/pkg/cache"
	"github.com/salespipehq/salespipe/pkg/database"
	"github.com/salespipehq/salespipe/pkg/dispatch"
	"github.com/salespipehq/salespipe/pkg/email"
	"github.com/salespipehq/salespipe/pkg/jobs"
	"github.com/salespipehq/salespipe/pkg/logger"
	"github.com/salespipehq/salespipe/pkg/metrics"
	"github.com/salespipehq/salespipe/pkg/middleware"
	"github.com/salespipehq/salespipe/pkg/phone"
	"github.com/salespipehq/salespipe/pkg/pipeline"
	"github.com/salespipehq/salespipe/pkg/secrets"
	"github.com/salespipehq/salespipe/pkg/sms"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	appLog := logger.New(cfg.LogLevel)
	appLog.Info("configuration loaded", "environment", cfg.APIEnvironment)

	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			Environment:      cfg.SentryEnvironment,
			AttachStacktrace: true,
		}); err != nil {
			appLog.Warn("failed to initialize sentry", "error", err)
		} else {
			defer sentry.Flush(2 * time.Second)
		}
	}

	db, err := database.NewClient(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer db.Close()

	{
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if err := db.Migrate(ctx); err != nil {
			cancel()
			log.Fatalf("failed to run migrations: %v", err)
		}
		cancel()
	}

	redisClient, err := cache.NewClient(cfg.RedisURL)
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	defer redisClient.Close()

	stages, err := pipeline.Parse(cfg.PipelineStages)
	if err != nil {
		log.Fatalf("invalid pipeline configuration: %v", err)
	}

	normalizer, err := phone.NewNormalizer(cfg.DefaultCountryCode)
	if err != nil {
		log.Fatalf("invalid country code configuration: %v", err)
	}

	secretsManager, err := secrets.NewManager(secrets.Config{
		Backend:          cfg.SecretsBackend,
		CacheDuration:    cfg.SecretsCacheTTL,
		ConnectorBaseURL: cfg.ConnectorBaseURL,
		IdentityToken:    cfg.ConnectorToken,
	})
	if err != nil {
		log.Fatalf("failed to initialize secrets manager: %v", err)
	}

	prometheusMetrics := metrics.New()

	dispatcher := dispatch.New(dispatch.Config{
		BatchSize:    cfg.DispatchBatchSize,
		EmailDelay:   cfg.EmailBatchDelay,
		MessageDelay: cfg.MessageBatchDelay,
		FromName:     cfg.EmailFromName,
	}, secretsManager, normalizer, email.NewProvider, sms.NewProvider, appLog, prometheusMetrics)

	leadRepo := database.NewLeadRepository(db)
	userRepo := database.NewUserRepository(db)
	activityRepo := database.NewActivityRepository(db)

	auditService := audit.NewService(activityRepo, appLog)
	assignmentService := assignment.NewService(leadRepo, userRepo, auditService, stages, redisClient, appLog)

	scheduler := jobs.NewScheduler(leadRepo, userRepo, dispatcher, appLog)
	if err := scheduler.RegisterFollowUpReminders(cfg.FollowUpReminderCron); err != nil {
		log.Fatalf("failed to register jobs: %v", err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	e := echo.New()
	e.HideBanner = true
	e.Validator = handlers.NewValidator()

	rateLimiter := middleware.NewRateLimiter(float64(cfg.RateLimitRequestsPerMinute)/60.0, cfg.RateLimitBurst)

	e.Use(echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogStatus: true,
		LogURI:    true,
		LogError:  true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			appLog.Info("request", "method", c.Request().Method, "uri", v.URI, "status", v.Status)
			return nil
		},
	}))
	e.Use(echomw.Recover())
	if cfg.SentryDSN != "" {
		e.Use(sentryecho.New(sentryecho.Options{Repanic: true}))
	}
	e.Use(prometheusMetrics.Middleware())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSAllowedOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete},
	}))
	e.Use(echomw.Gzip())
	e.Use(middleware.SecurityHeaders())
	e.Use(rateLimiter.Middleware())

	e.GET("/health", func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()

		dbStatus := "up"
		if err := db.DB.PingContext(ctx); err != nil {
			dbStatus = "down"
		}
		cacheStatus := "up"
		if err := redisClient.Redis.Ping(ctx).Err(); err != nil {
			cacheStatus = "down"
		}

		status := http.StatusOK
		overall := "healthy"
		if dbStatus == "down" || cacheStatus == "down" {
			status = http.StatusServiceUnavailable
			overall = "unhealthy"
		}
		return c.JSON(status, map[string]string{
			"status":   overall,
			"database": dbStatus,
			"cache":    cacheStatus,
		})
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	leadHandler := handlers.NewLeadHandler(assignmentService, leadRepo, redisClient, prometheusMetrics, appLog)
	userHandler := handlers.NewUserHandler(userRepo)
	activityHandler := handlers.NewActivityHandler(auditService)
	notificationHandler := handlers.NewNotificationHandler(dispatcher)

	v1 := e.Group("/api/v1")

	v1.GET("/leads", leadHandler.ListLeads)
	v1.POST("/leads", leadHandler.CreateLead)
	v1.POST("/leads/auto-assign", leadHandler.AutoAssign)
	v1.GET("/leads/:id", leadHandler.GetLead)
	v1.PATCH("/leads/:id/assign", leadHandler.AssignLead)
	v1.PATCH("/leads/:id/stage", leadHandler.ChangeStage)
	v1.PATCH("/leads/:id/follow-up", leadHandler.ScheduleFollowUp)
	v1.GET("/leads/:id/activities", activityHandler.ListLeadActivities)
	v1.GET("/stages", leadHandler.Stages)

	v1.GET("/users", userHandler.ListUsers)
	v1.GET("/users/:id", userHandler.GetUser)

	v1.POST("/activities", activityHandler.CreateActivity)

	v1.POST("/notifications/email", notificationHandler.SendBulkEmail)
	v1.POST("/notifications/sms", notificationHandler.SendBulkSMS)
	v1.POST("/notifications/whatsapp", notificationHandler.SendBulkWhatsApp)

	address := net.JoinHostPort(cfg.APIHost, cfg.APIPort)
	go func() {
		if err := e.Start(address); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server stopped: %v", err)
		}
	}()
	appLog.Info("server started", "address", address)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLog.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		appLog.Error("shutdown error", "error", err)
	}
}
