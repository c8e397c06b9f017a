// Package api exposes the extraction pipeline over HTTP.
package api

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/webparser/api/handler"
	"github.com/use-agent/webparser/api/middleware"
	"github.com/use-agent/webparser/config"
	"github.com/use-agent/webparser/models"
)

// Service is everything the router needs from the pipeline.
type Service interface {
	handler.PageExtractor
	handler.TrackingExtractor
}

// NewRouter creates a configured Gin engine with all routes and middleware.
//
// Middleware chain:
//
//	Global:  Recovery → Logger → CORS
//	API:     Auth (if enabled) → RateLimit
//
// Health stays outside auth so monitoring probes always work.
func NewRouter(svc Service, stats handler.StatsSource, cfg *config.Config, startTime time.Time) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.Logger())
	r.Use(middleware.CORS())

	apiGroup := r.Group("/api")
	apiGroup.GET("/health", handler.Health(stats, startTime))

	protected := apiGroup.Group("")
	if cfg.Auth.Enabled {
		protected.Use(middleware.Auth(cfg.Auth.APIKeys))
	}
	protected.Use(middleware.RateLimit(cfg.RateLimit))

	protected.POST("/parse", handler.Parse(svc))
	protected.POST("/track", handler.Track(svc))
	protected.POST("/parse-maersk", handler.Track(svc))

	r.NoRoute(staticFallback(cfg.Server.StaticDir))

	return r
}

// staticFallback serves the browser client from dir. Paths without a matching
// file get index.html so client-side routes resolve. Unknown /api paths and
// everything when dir is unset get a JSON 404.
func staticFallback(dir string) gin.HandlerFunc {
	return func(c *gin.Context) {
		p := c.Request.URL.Path
		if dir == "" || strings.HasPrefix(p, "/api/") || p == "/api" ||
			(c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead) {
			c.JSON(http.StatusNotFound, models.ErrorDetail{
				Error: "route not found",
				Code:  "NOT_FOUND",
			})
			return
		}

		// Clean against "/" so ".." cannot escape dir.
		file := filepath.Join(dir, filepath.FromSlash(filepath.Clean("/"+p)))
		if info, err := os.Stat(file); err == nil && !info.IsDir() {
			c.File(file)
			return
		}
		c.File(filepath.Join(dir, "index.html"))
	}
}
