// Package portal serves the session model to the dashboard front-end over
// a local HTTP API.
package portal

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"

	"github.com/medrex/clinic-portal/internal/auth"
	"github.com/medrex/clinic-portal/internal/guard"
	"github.com/medrex/clinic-portal/internal/menu"
	"github.com/medrex/clinic-portal/internal/session"
	"github.com/medrex/clinic-portal/pkg/config"
	"github.com/medrex/clinic-portal/pkg/logger"
	"github.com/medrex/clinic-portal/pkg/monitoring"
	"github.com/medrex/clinic-portal/pkg/types"
)

// AllowedOrigin is the only browser origin the dashboard is served from
const AllowedOrigin = "http://localhost"

// Deps holds everything the portal serves
type Deps struct {
	Lifecycle *auth.Lifecycle
	Store     *session.Store
	Guard     *guard.Guard
	Menu      *menu.Tracker
	Redirects *RedirectRecorder
	Metrics   *monitoring.MetricsCollector
	Health    *monitoring.HealthManager
	Tracer    trace.Tracer
	Logger    *logger.Logger

	Monitoring config.MonitoringConfig
	Debug      bool
}

// Server is the local companion HTTP API
type Server struct {
	deps   Deps
	router *gin.Engine
}

// NewServer builds the router
func NewServer(deps Deps) *Server {
	if !deps.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{deps: deps}
	s.router = s.setupRouter()
	return s
}

// Handler exposes the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// HTTPServer wraps the router in an http.Server configured from cfg
func (s *Server) HTTPServer(cfg config.ServerConfig) *http.Server {
	return &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      s.router,
		ReadTimeout:  time.Duration(cfg.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.IdleTimeout) * time.Second,
	}
}

// Run serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context, cfg config.ServerConfig) error {
	server := s.HTTPServer(cfg)
	log := s.deps.Logger.WithComponent("portal")

	errCh := make(chan error, 1)
	go func() {
		log.WithField("address", server.Addr).Info("Starting HTTP server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("failed to start HTTP server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	log.Info("HTTP server stopped")
	return nil
}

func (s *Server) setupRouter() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(monitoring.GinMiddleware(s.deps.Metrics, s.deps.Tracer, s.deps.Logger))

	// Only the dashboard served from the same workstation talks to us
	router.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", AllowedOrigin)
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, "+monitoring.RequestIDHeader)

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	healthPath := s.deps.Monitoring.HealthPath
	if healthPath == "" {
		healthPath = "/health"
	}
	router.GET(healthPath, s.health)

	if s.deps.Monitoring.Enabled {
		metricsPath := s.deps.Monitoring.MetricsPath
		if metricsPath == "" {
			metricsPath = "/metrics"
		}
		router.GET(metricsPath, gin.WrapH(s.deps.Metrics.Handler()))
	}

	v1 := router.Group("/api/v1")
	v1.Use(sameOriginWrites(), s.waitReady())
	{
		sessions := v1.Group("/session")
		{
			sessions.GET("", s.getSession)
			sessions.POST("/login", s.login)
			sessions.POST("/logout", s.logout)
		}

		authenticated := v1.Group("")
		authenticated.Use(s.deps.Guard.RequireAccess(guard.Public, guard.Inline))
		{
			authenticated.GET("/menu", s.getMenu)
			authenticated.GET("/permissions", s.getPermissions)
		}

		v1.POST("/access/evaluate", s.evaluateAccess)

		admin := v1.Group("/admin")
		admin.Use(s.deps.Guard.RequireAccess(
			guard.AnyOf("PERMISSION_MANAGEMENT", "ROLE_MANAGEMENT"),
			guard.FullPage,
		))
		{
			admin.GET("/permissions", s.getPermissionCatalog)
		}
	}

	return router
}

// sameOriginWrites rejects state-changing requests sent by foreign pages.
// CORS headers only limit who reads responses, so writes must also carry a
// JSON content type, which browsers cannot send cross-origin without a
// preflight.
func sameOriginWrites() gin.HandlerFunc {
	return func(c *gin.Context) {
		switch c.Request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			c.Next()
			return
		}

		if origin := c.GetHeader("Origin"); origin != "" && origin != AllowedOrigin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error":   types.ErrCodeForbidden,
				"message": "Cross-origin requests are not allowed",
			})
			return
		}

		if c.ContentType() != gin.MIMEJSON {
			c.AbortWithStatusJSON(http.StatusUnsupportedMediaType, gin.H{
				"error":   types.ErrCodeInvalidInput,
				"message": "Content-Type must be application/json",
			})
			return
		}

		c.Next()
	}
}

// waitReady holds requests until the initial restore has settled
func (s *Server) waitReady() gin.HandlerFunc {
	return func(c *gin.Context) {
		select {
		case <-s.deps.Lifecycle.Ready():
			c.Next()
		case <-c.Request.Context().Done():
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{
				"error":   "NOT_READY",
				"message": "Session is still being restored",
			})
		}
	}
}
