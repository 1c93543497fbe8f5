// Package server exposes the dashboard aggregates as a JSON API over gin.
// It serves a dataset built by the pipeline; it does no fetching or
// enrichment itself.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"stsdash/internal/config"
	"stsdash/pipeline"
)

// Server serves one immutable dataset. Rebuilds replace the whole process
// (run build_snapshot, restart), so no locking is needed around the data.
type Server struct {
	config  *config.Config
	dataset *pipeline.Dataset
	logger  *slog.Logger

	httpServer *http.Server
}

// New wires a Server around a built dataset.
func New(cfg *config.Config, dataset *pipeline.Dataset) *Server {
	logger := slog.Default().With("component", "server")
	return &Server{config: cfg, dataset: dataset, logger: logger}
}

// Router builds the gin engine with all routes registered.
func (s *Server) Router() *gin.Engine {
	if strings.ToUpper(s.config.LogLevel) != "DEBUG" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(s.requestLogger())

	router.GET("/healthz", s.handleHealth)

	api := router.Group("/api")
	{
		api.GET("/stats", s.handleStats)
		api.GET("/by-country", s.handleByCountry)
		api.GET("/by-asset-class", s.handleByAssetClass)
		api.GET("/by-currency", s.handleByCurrency)
		api.GET("/monthly", s.handleMonthly)
		api.GET("/cumulative", s.handleCumulative)
		api.GET("/crosstab", s.handleCrossTab)
		api.GET("/map", s.handleMap)
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	})
	return router
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Info("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}

// Start runs the HTTP server until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) Start(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%s", s.config.Port),
		Handler:      s.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.logger.Info("shutting down")
	return s.httpServer.Shutdown(shutdownCtx)
}
