package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	"storefront-svc/cache"
	"storefront-svc/config"
	"storefront-svc/database"
	"storefront-svc/handlers"
	"storefront-svc/mail"
	"storefront-svc/middleware"
	"storefront-svc/payments"
)

func main() {
	// Initialize logger
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	// Load configuration
	cfg, err := config.New()
	if err != nil {
		logger.Fatal("Failed to load configuration", zap.Error(err))
	}

	// Initialize database
	db, err := database.InitDB(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	// Initialize Redis. The cache is optional: settings reads and OTP rate
	// limiting fall back to the database without it.
	var rdb *redis.Client
	if !cfg.RedisDisabled {
		rdb, err = cache.InitRedis(cfg, logger)
		if err != nil {
			logger.Warn("Redis unavailable, continuing without cache", zap.Error(err))
			rdb = nil
		} else {
			defer rdb.Close()
		}
	}

	// Initialize OpenTelemetry
	shutdown, err := middleware.InitTracing("storefront-service")
	if err != nil {
		logger.Fatal("Failed to initialize tracing", zap.Error(err))
	}
	defer shutdown()

	gateway := payments.NewClient(cfg.RazorpayKeyID, cfg.RazorpayKeySecret, cfg.RazorpayWebhookSecret)
	mailer := mail.NewSMTPSender(cfg)

	// Setup Gin router
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware("storefront-service"))
	router.Use(middleware.LoggerMiddleware(logger))
	router.Use(middleware.MetricsMiddleware())

	// Health check endpoint
	router.GET("/health", handlers.HealthCheck)

	// Metrics endpoint
	router.GET("/metrics", middleware.PrometheusHandler())

	paymentHandler := handlers.NewPaymentHandler(db, rdb, gateway, mailer, cfg, logger)
	orderHandler := handlers.NewOrderHandler(db, mailer, logger)
	authHandler := handlers.NewAuthHandler(db, rdb, mailer, cfg.JWTSecret, logger)
	settingsHandler := handlers.NewSettingsHandler(db, rdb, logger)
	contactHandler := handlers.NewContactHandler(db, mailer, logger)
	adminHandler := handlers.NewAdminHandler(db, mailer, cfg.AdminSecretKey, logger)
	archivedHandler := handlers.NewArchivedOrderHandler(db, logger)

	api := router.Group("/api")
	{
		api.POST("/payment/create-order", paymentHandler.CreateOrder)
		api.POST("/payment/verify", paymentHandler.VerifyPayment)
		api.POST("/payment/webhook", paymentHandler.Webhook)

		api.GET("/orders", orderHandler.ListByEmail)
		api.GET("/orders/:orderID/invoice", orderHandler.Invoice)

		api.GET("/settings", settingsHandler.GetSettings)
		api.POST("/settings", middleware.AdminAuthMiddleware(cfg.JWTSecret), settingsHandler.UpsertSetting)

		api.POST("/contact", contactHandler.SubmitContact)
		api.POST("/leads", contactHandler.CaptureLead)

		api.POST("/auth/send-otp", authHandler.SendOTP)
		api.POST("/auth/verify-otp", authHandler.VerifyOTP)

		api.POST("/admin/login", authHandler.AdminLogin)

		// Legacy shared-secret endpoint, kept for old dashboard exports.
		api.GET("/admin/all-orders", adminHandler.ListOrdersLegacy)
	}

	admin := api.Group("/admin")
	admin.Use(middleware.AdminAuthMiddleware(cfg.JWTSecret))
	{
		admin.GET("/orders", adminHandler.ListOrders)
		admin.GET("/contact-requests", adminHandler.ListContactRequests)
		admin.PATCH("/contact-requests", adminHandler.UpdateContactRequest)
		admin.GET("/leads", adminHandler.ListLeads)
		admin.POST("/test-email", adminHandler.SendTestEmail)

		admin.GET("/archived-orders", archivedHandler.List)
		admin.GET("/archived-orders/:orderID", archivedHandler.Get)
		admin.POST("/import-archived-orders", archivedHandler.Import)

		admin.POST("/orders/:orderID/resend-email", orderHandler.ResendEmail)
		admin.GET("/orders/:orderID/email-logs", orderHandler.EmailLogs)
	}

	// Start server
	srv := &http.Server{
		Addr:    cfg.Address,
		Handler: router,
	}

	// Graceful shutdown
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	logger.Info("Storefront service started", zap.String("address", cfg.Address))

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}
