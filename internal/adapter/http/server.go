// Package http serves the JSON API, health checks and Prometheus metrics.
package http

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/couchcryptid/quake-watch/internal/domain"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// QuakeStore is the state store contract required by the API.
type QuakeStore interface {
	Snapshot() domain.State
	SetMagnitudeFilter(n int) error
	CheckMagnitude(n int, checked bool) error
	ClearMagnitudeFilter()
	SetProvider(p domain.ProviderID)
	ToggleProvider()
	ToggleNearMe(ctx context.Context) bool
	SetLocationFilter(coords *domain.Coordinates)
	Refresh()
}

// FetchArchive is the read side of the fetch archive.
type FetchArchive interface {
	RecentFetches(ctx context.Context, limit int) ([]domain.FetchSummary, error)
	ProviderStats(ctx context.Context) ([]domain.ProviderStats, error)
}

// Server exposes the earthquake API plus /healthz, /readyz and /metrics.
type Server struct {
	httpServer *http.Server
	store      QuakeStore
	archive    FetchArchive
	logger     *slog.Logger
}

// NewServer builds the router. archive may be nil, in which case the fetch
// history routes answer 404.
func NewServer(addr string, store QuakeStore, archive FetchArchive, ready sharedobs.ReadinessChecker, logger *slog.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(logger))

	s := &Server{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           r,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       10 * time.Second,
			WriteTimeout:      10 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		store:   store,
		archive: archive,
		logger:  logger,
	}

	r.GET("/healthz", gin.WrapF(sharedobs.LivenessHandler()))
	r.GET("/readyz", gin.WrapF(sharedobs.ReadinessHandler(ready)))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	api.GET("/quakes", s.handleSnapshot)
	api.POST("/filters/magnitude/:n", s.handleToggleMagnitude)
	api.PUT("/filters/magnitude/:n", s.handleCheckMagnitude)
	api.DELETE("/filters/magnitude", s.handleClearMagnitude)
	api.POST("/filters/near-me", s.handleToggleNearMe)
	api.PUT("/filters/location", s.handleSetLocation)
	api.DELETE("/filters/location", s.handleClearLocation)
	api.POST("/provider/toggle", s.handleToggleProvider)
	api.POST("/provider/:name", s.handleSelectProvider)
	api.POST("/refresh", s.handleRefresh)
	api.GET("/fetches", s.handleRecentFetches)
	api.GET("/fetches/stats", s.handleProviderStats)

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleSnapshot(c *gin.Context) {
	c.JSON(http.StatusOK, s.store.Snapshot())
}

func (s *Server) handleToggleMagnitude(c *gin.Context) {
	n, ok := thresholdParam(c)
	if !ok {
		return
	}
	if err := s.store.SetMagnitudeFilter(n); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusAccepted, s.store.Snapshot())
}

// handleCheckMagnitude takes ?checked=true|false, the chip-style variant of
// the magnitude filter.
func (s *Server) handleCheckMagnitude(c *gin.Context) {
	n, ok := thresholdParam(c)
	if !ok {
		return
	}
	checked, err := strconv.ParseBool(c.DefaultQuery("checked", "true"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "checked must be true or false"})
		return
	}
	if err := s.store.CheckMagnitude(n, checked); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusAccepted, s.store.Snapshot())
}

func (s *Server) handleClearMagnitude(c *gin.Context) {
	s.store.ClearMagnitudeFilter()
	c.JSON(http.StatusAccepted, s.store.Snapshot())
}

func (s *Server) handleToggleNearMe(c *gin.Context) {
	if !s.store.ToggleNearMe(c.Request.Context()) {
		c.JSON(http.StatusConflict, gin.H{"error": "location unavailable"})
		return
	}
	c.JSON(http.StatusAccepted, s.store.Snapshot())
}

func (s *Server) handleSetLocation(c *gin.Context) {
	var coords domain.Coordinates
	if err := c.ShouldBindJSON(&coords); err != nil || !coords.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "latitude and longitude are required"})
		return
	}
	if err := coords.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	s.store.SetLocationFilter(&coords)
	c.JSON(http.StatusAccepted, s.store.Snapshot())
}

func (s *Server) handleClearLocation(c *gin.Context) {
	s.store.SetLocationFilter(nil)
	c.JSON(http.StatusAccepted, s.store.Snapshot())
}

func (s *Server) handleToggleProvider(c *gin.Context) {
	s.store.ToggleProvider()
	c.JSON(http.StatusAccepted, s.store.Snapshot())
}

func (s *Server) handleSelectProvider(c *gin.Context) {
	p, err := domain.ParseProviderID(c.Param("name"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	s.store.SetProvider(p)
	c.JSON(http.StatusAccepted, s.store.Snapshot())
}

func (s *Server) handleRefresh(c *gin.Context) {
	s.store.Refresh()
	c.JSON(http.StatusAccepted, s.store.Snapshot())
}

func (s *Server) handleRecentFetches(c *gin.Context) {
	if s.archive == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "fetch archive disabled"})
		return
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
		return
	}
	fetches, err := s.archive.RecentFetches(c.Request.Context(), limit)
	if err != nil {
		s.logger.Error("read fetch archive", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read fetch archive"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"fetches": fetches})
}

func (s *Server) handleProviderStats(c *gin.Context) {
	if s.archive == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "fetch archive disabled"})
		return
	}
	stats, err := s.archive.ProviderStats(c.Request.Context())
	if err != nil {
		s.logger.Error("read provider stats", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read fetch archive"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"providers": stats})
}

func thresholdParam(c *gin.Context) (int, bool) {
	n, err := strconv.Atoi(c.Param("n"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "threshold must be an integer"})
		return 0, false
	}
	if !domain.ValidThreshold(n) {
		c.JSON(http.StatusBadRequest, gin.H{"error": domain.ErrInvalidThreshold.Error()})
		return 0, false
	}
	return n, true
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("http request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}

