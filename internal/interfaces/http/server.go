package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/modsentry/modsentry/internal/domain/repository"
	"github.com/modsentry/modsentry/internal/domain/service"
	"github.com/modsentry/modsentry/internal/infrastructure/monitoring"
	"github.com/modsentry/modsentry/internal/interfaces/http/handlers"
)

// Server is the HTTP surface of the moderation service.
type Server struct {
	server *http.Server
	logger *zap.Logger
}

// Config configures the HTTP server.
type Config struct {
	Host string
	Port int
	Mode string // local, production
}

// NewServer wires routes and handlers.
func NewServer(
	cfg Config,
	pipeline *service.Pipeline,
	analytics *service.Analytics,
	repo repository.ModerationRepository,
	monitor *monitoring.Monitor,
	logger *zap.Logger,
) *Server {
	if cfg.Mode == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(ginLogger(logger))

	moderationHandler := handlers.NewModerationHandler(pipeline, repo, logger)
	analyticsHandler := handlers.NewAnalyticsHandler(analytics, logger)

	setupRoutes(router, moderationHandler, analyticsHandler, monitor)

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	return &Server{
		server: &http.Server{Addr: addr, Handler: router},
		logger: logger,
	}
}

// Start begins serving in the background.
func (s *Server) Start(ctx context.Context) error {
	s.logger.Info("Starting HTTP server", zap.String("address", s.server.Addr))

	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("HTTP server error", zap.Error(err))
		}
	}()

	return nil
}

// Stop shuts the server down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping HTTP server")
	return s.server.Shutdown(ctx)
}

func setupRoutes(router *gin.Engine, moderation *handlers.ModerationHandler, analytics *handlers.AnalyticsHandler, monitor *monitoring.Monitor) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"time":   time.Now().Unix(),
		})
	})

	if monitor != nil {
		router.GET("/metrics", gin.WrapH(monitor.PrometheusHandler()))
	}

	v1 := router.Group("/api/v1")
	{
		v1.POST("/text/moderate", moderation.ModerateText)
		v1.POST("/image/moderate", moderation.ModerateImage)

		v1.GET("/summary", moderation.ListSummaries)
		v1.GET("/summary/:id", moderation.GetSummary)

		v1.GET("/analytics/summary", analytics.Summary)
	}
}

func ginLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		logger.Info("HTTP request",
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("query", query),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("ip", c.ClientIP()),
		)
	}
}
