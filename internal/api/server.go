package api

import (
	"context"
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/ksred/job-tracker/internal/config"
	"github.com/ksred/job-tracker/internal/database"
	"github.com/ksred/job-tracker/internal/services"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// Version is reported by /api/status
const Version = "1.0.0"

type Server struct {
	router     *gin.Engine
	config     *config.Config
	db         *database.Database
	jobs       *services.JobService
	limiter    *IPLimiter
	logger     zerolog.Logger
	httpServer *http.Server
	startedAt  time.Time
}

func NewServer(cfg *config.Config, db *database.Database, jobs *services.JobService, logger zerolog.Logger) (*Server, error) {
	if cfg.Server.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(RequestIDMiddleware(logger))
	router.Use(RecoveryMiddleware(logger, !cfg.IsProduction()))
	router.Use(LoggerMiddleware(logger))
	router.Use(MetricsMiddleware())

	// Configure CORS
	corsConfig := cors.DefaultConfig()
	if len(cfg.HTTP.AllowOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.HTTP.AllowOrigins
	} else {
		// Default origins for development
		corsConfig.AllowOrigins = []string{"http://localhost:3000", "http://localhost:5173", "http://127.0.0.1:3000", "http://127.0.0.1:5173"}
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "X-Requested-With", requestIDHeader}
	corsConfig.ExposeHeaders = []string{"Content-Length", "Content-Type", requestIDHeader, "RateLimit-Limit", "RateLimit-Remaining", "RateLimit-Reset"}
	corsConfig.AllowCredentials = true
	corsConfig.MaxAge = 12 * time.Hour

	router.Use(cors.New(corsConfig))

	server := &Server{
		router:    router,
		config:    cfg,
		db:        db,
		jobs:      jobs,
		limiter:   NewIPLimiter(cfg.RateLimit.Window, cfg.RateLimit.MaxRequests),
		logger:    logger,
		startedAt: time.Now(),
	}

	server.setupRoutes()

	return server, nil
}

func (s *Server) setupRoutes() {
	s.router.GET("/", s.rootHandler)

	// Health check
	s.router.GET("/health", s.healthHandler)

	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Swagger documentation
	s.router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	api := s.router.Group("/api")
	api.Use(RateLimitMiddleware(s.limiter))
	{
		api.GET("/status", s.statusHandler)

		jobs := api.Group("/jobs")
		{
			jobs.GET("", s.listJobsHandler)
			jobs.POST("", s.createJobHandler)
			// static segments take precedence over :id
			jobs.GET("/search", s.searchJobsHandler)
			jobs.GET("/stats", s.jobStatsHandler)
			jobs.GET("/:id", s.getJobHandler)
			jobs.PUT("/:id", s.updateJobHandler)
			jobs.DELETE("/:id", s.deleteJobHandler)
		}
	}

	s.router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, errorEnvelope(http.StatusNotFound, "Not found"))
	})
}

// Handler exposes the router, for embedding and tests
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Start(port int) error {
	addr := fmt.Sprintf(":%d", port)
	s.httpServer = &http.Server{
		Addr:           addr,
		Handler:        s.router,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	s.logger.Info().Str("address", addr).Msg("Starting HTTP server")
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

func LoggerMiddleware(logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)
		clientIP := c.ClientIP()
		method := c.Request.Method
		statusCode := c.Writer.Status()
		errorMessage := c.Errors.ByType(gin.ErrorTypePrivate).String()

		if raw != "" {
			path = path + "?" + raw
		}

		event := logger.Info()
		if statusCode >= http.StatusInternalServerError {
			event = logger.Error()
		}
		event.
			Str("request_id", c.GetString(requestIDKey)).
			Str("client_ip", clientIP).
			Str("method", method).
			Str("path", path).
			Int("status", statusCode).
			Dur("latency", latency).
			Str("error", errorMessage).
			Msg("HTTP request")
	}
}

// @title Job Tracker API
// @version 1.0
// @description REST API for tracking job applications

// @contact.name API Support
// @contact.email support@example.com

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8070
// @BasePath /api

// rootHandler answers outside the documented /api base path
func (s *Server) rootHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "Job Tracker API is running"})
}

// healthHandler reports store health. Like rootHandler it lives outside /api
// and is not part of the swagger document.
func (s *Server) healthHandler(c *gin.Context) {
	ctx := c.Request.Context()

	// Check database health
	dbHealthy := true
	var dbError string
	if err := s.db.Health(ctx); err != nil {
		dbHealthy = false
		dbError = err.Error()
	}

	status := "healthy"
	if !dbHealthy {
		status = "unhealthy"
	}

	response := gin.H{
		"status":    status,
		"timestamp": time.Now().UTC(),
		"database": gin.H{
			"healthy": dbHealthy,
			"error":   dbError,
		},
	}

	if !dbHealthy {
		c.JSON(http.StatusServiceUnavailable, response)
		return
	}

	c.JSON(http.StatusOK, response)
}

// statusHandler godoc
// @Summary Service status
// @Description Uptime, environment, runtime and schema version
// @Tags health
// @Produce json
// @Success 200 {object} StatusResponse
// @Router /status [get]
func (s *Server) statusHandler(c *gin.Context) {
	schemaVersion := 0
	if gdb := s.db.DB(); gdb != nil {
		if v, err := database.CurrentVersion(c.Request.Context(), gdb); err == nil {
			schemaVersion = v
		} else {
			s.logger.Warn().Err(err).Msg("failed to read schema version")
		}
	}

	c.JSON(http.StatusOK, StatusResponse{
		Status:      "online",
		Uptime:      time.Since(s.startedAt).Seconds(),
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
		Environment: s.config.Server.Environment,
		Version:     Version,
		Runtime: RuntimeInfo{
			Version:  runtime.Version(),
			Platform: runtime.GOOS,
			Arch:     runtime.GOARCH,
		},
		SchemaVersion: schemaVersion,
	})
}
