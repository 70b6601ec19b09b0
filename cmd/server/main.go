package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/staybridge/booking-confirmation/internal/app"
	"github.com/staybridge/booking-confirmation/internal/config"
	"github.com/staybridge/booking-confirmation/internal/database"
	"github.com/staybridge/booking-confirmation/internal/handlers"
	"github.com/staybridge/booking-confirmation/internal/middleware"
	"github.com/staybridge/booking-confirmation/pkg/jwt"
	"github.com/staybridge/booking-confirmation/pkg/supplier"
)

var (
	version   = "1.0.0"
	buildTime = "unknown"
)

// A finalize request may run the full poll window plus one supplier
// timeout per call, so the write deadline sits well above it.
const (
	serverWriteTimeout = 3 * time.Minute
	shutdownTimeout    = 3 * time.Minute
)

func main() {
	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	logger.Info("Starting booking confirmation service")
	logger.Infof("Version: %s, Build Time: %s", version, buildTime)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	// Set log level
	logLevel, err := logrus.ParseLevel(cfg.Server.LogLevel)
	if err != nil {
		logger.Warn("Invalid log level, using INFO")
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	// Set Gin mode
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	// Wire database, supplier, notifications and services
	application, err := app.New(context.Background(), cfg, logger)
	if err != nil {
		logger.Fatalf("Failed to initialize application: %v", err)
	}
	defer application.Close()
	logger.Info("Database connection established")

	// Reconciliation of timed-out bookings
	if cfg.Reconciliation.Enabled {
		if err := application.Cron.Start(); err != nil {
			logger.Fatalf("Failed to start reconciliation cron: %v", err)
		}
	}

	jwtService := jwt.NewService(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.TokenExpiry)
	bookingHandler := handlers.NewBookingOrchestratorHandler(application.Orchestrator, application.Audits, logger)
	if application.RateLimiter != nil {
		bookingHandler.WithRateLimiter(application.RateLimiter)
	}

	// Setup router
	router := gin.New()
	router.Use(gin.Recovery())
	if cfg.Security.EnableRequestLog {
		router.Use(requestLogger(logger))
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:  cfg.CORS.AllowedOrigins,
		AllowMethods:  cfg.CORS.AllowedMethods,
		AllowHeaders:  cfg.CORS.AllowedHeaders,
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}))

	// Health check endpoint
	router.GET("/health", healthCheckHandler(application.DB, application.Gateway))

	// API v1 routes
	v1 := router.Group("/api/v1")
	bookings := v1.Group("/bookings", middleware.AuthMiddleware(jwtService, logger))
	bookingHandler.RegisterRoutes(bookings)

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: serverWriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.WithFields(logrus.Fields{
			"port":          cfg.Server.Port,
			"supplier":      application.Gateway.GetName(),
			"email":         application.Mailer.GetName(),
			"sms_enabled":   application.SMS != nil,
			"events":        application.Publisher != nil,
			"reconcile":     cfg.Reconciliation.Enabled,
			"poll_interval": cfg.Polling.Interval.String(),
		}).Info("Server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	if cfg.Reconciliation.Enabled {
		application.Cron.Stop()
	}

	// In-flight finalize calls are allowed to reach a terminal state
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Errorf("Server forced to shutdown: %v", err)
	}

	logger.Info("Server exited successfully")
}

// requestLogger middleware for logging HTTP requests
func requestLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		fields := logrus.Fields{
			"status":     c.Writer.Status(),
			"method":     c.Request.Method,
			"path":       path,
			"query":      c.Request.URL.RawQuery,
			"ip":         c.ClientIP(),
			"latency_ms": time.Since(start).Milliseconds(),
			"user_agent": c.Request.UserAgent(),
		}
		if partner, ok := middleware.GetPartnerContext(c); ok {
			fields["partner_id"] = partner.PartnerID
		}

		entry := logger.WithFields(fields)

		if len(c.Errors) > 0 {
			for i, err := range c.Errors {
				entry = entry.WithField(fmt.Sprintf("error_%d", i), err.Error())
			}
			entry.Error("Request failed with errors")
			return
		}

		status := c.Writer.Status()
		switch {
		case status >= 500:
			entry.Error("Request completed with server error")
		case status >= 400:
			entry.Warn("Request completed with client error")
		default:
			entry.Info("Request completed successfully")
		}
	}
}

// healthCheckHandler returns a health check endpoint
func healthCheckHandler(db database.DB, gateway supplier.Gateway) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		if err := db.PingContext(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"database": "unhealthy",
				"error":    err.Error(),
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"database":  "healthy",
			"supplier":  gateway.GetName(),
			"version":   version,
			"timestamp": time.Now().Unix(),
		})
	}
}
