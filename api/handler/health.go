package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/webparser/models"
)

// Version is reported by the health endpoint.
const Version = "0.1.0"

// Health returns a handler for GET /api/health.
//
// Reports session usage and degrades status when > 80% of slots are busy.
func Health(s StatsSource, startTime time.Time) gin.HandlerFunc {
	return func(c *gin.Context) {
		stats := s.Stats()

		status := "healthy"
		if stats.MaxSessions > 0 && stats.ActiveSessions > int(float64(stats.MaxSessions)*0.8) {
			status = "degraded"
		}

		c.JSON(http.StatusOK, models.HealthResponse{
			Status:       status,
			Uptime:       time.Since(startTime).Round(time.Second).String(),
			Version:      Version,
			SessionStats: stats,
		})
	}
}
