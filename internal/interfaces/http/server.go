// Package http provides the HTTP adapter for the application layer. It is a
// thin translation layer: identity extraction, request binding, error
// mapping. No billing rules live here.
package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/fieldclaims/fieldclaims/internal/application/service"
)

// Logger interface for logging operations
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Server is the HTTP server adapter
type Server struct {
	config        ServerConfig
	httpServer    *http.Server
	router        *gin.Engine
	unitService   service.UnitEntryService
	claimService  service.ClaimService
	exportService service.ExportService
	logger        Logger
}

// NewServer creates a new HTTP server with the given services
func NewServer(
	config ServerConfig,
	unitService service.UnitEntryService,
	claimService service.ClaimService,
	exportService service.ExportService,
	logger Logger,
) *Server {
	gin.SetMode(gin.ReleaseMode)

	server := &Server{
		config:        config,
		router:        gin.New(),
		unitService:   unitService,
		claimService:  claimService,
		exportService: exportService,
		logger:        logger,
	}

	server.setupMiddleware()
	server.setupRoutes()

	return server
}

// setupMiddleware configures middleware for the router
func (s *Server) setupMiddleware() {
	s.router.Use(gin.Recovery())
	s.router.Use(s.loggingMiddleware())
}

// loggingMiddleware creates a logging middleware
func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		s.logger.Info("HTTP request",
			"method", method,
			"path", path,
			"status", c.Writer.Status(),
			"latency", time.Since(start).String(),
			"client_ip", c.ClientIP(),
		)
	}
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	handlers := NewHandlers(s.unitService, s.claimService, s.exportService, s.logger)

	s.router.GET("/health", handlers.HealthCheck)

	// everything under /api/v1 requires a resolved identity
	api := s.router.Group("/api/v1", identityMiddleware())
	{
		units := api.Group("/units")
		{
			units.POST("", handlers.CreateUnit)
			units.POST("/batch", handlers.BatchCreateUnits)
			units.GET("", handlers.ListUnits)
			units.GET("/:id", handlers.GetUnit)
			units.DELETE("/:id", handlers.DeleteUnit)
			units.POST("/:id/submit", handlers.SubmitUnit)
			units.POST("/:id/verify", handlers.VerifyUnit)
			units.POST("/:id/approve", handlers.ApproveUnit)
			units.POST("/:id/dispute", handlers.DisputeUnit)
			units.POST("/:id/dispute/resolve", handlers.ResolveDispute)
		}

		claims := api.Group("/claims")
		{
			claims.POST("", handlers.CreateClaim)
			claims.GET("", handlers.ListClaims)
			claims.GET("/:id", handlers.GetClaim)
			claims.PATCH("/:id", handlers.UpdateClaim)
			claims.DELETE("/:id", handlers.DeleteClaim)
			claims.POST("/:id/approve", handlers.ApproveClaim)
			claims.POST("/:id/submit", handlers.SubmitClaim)
			claims.POST("/:id/payments", handlers.RecordPayment)
			claims.GET("/:id/export/invoice", handlers.ExportInvoiceJSON)
			claims.GET("/:id/export/bulk-csv", handlers.ExportBulkCSV)
			claims.GET("/:id/export/workbook", handlers.ExportWorkbook)
		}

		api.GET("/exports/bulk-csv", handlers.ExportBulkCSVBatch)
	}
}

// Start starts the HTTP server and blocks until ctx is cancelled
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	s.logger.Info("Starting HTTP server", "address", addr)

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("HTTP server shutdown requested")
		return s.Stop()
	case err := <-errCh:
		s.logger.Error("HTTP server error", "error", err)
		return err
	}
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop() error {
	if s.httpServer == nil {
		return nil
	}

	s.logger.Info("Stopping HTTP server")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error("HTTP server shutdown error", "error", err)
		return err
	}

	s.logger.Info("HTTP server stopped")
	return nil
}

// Router returns the underlying gin router (for testing)
func (s *Server) Router() *gin.Engine {
	return s.router
}
