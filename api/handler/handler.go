// Package handler implements the HTTP handlers of the extraction API.
package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/webparser/models"
	"github.com/use-agent/webparser/pipeline"
)

// PageExtractor runs the general extraction flow.
type PageExtractor interface {
	ExtractPage(ctx context.Context, url string, opts pipeline.Options) (*models.ExtractionResult, error)
}

// TrackingExtractor runs the tracking-portal flow.
type TrackingExtractor interface {
	ExtractTrackingData(ctx context.Context, trackingID string) (*models.TrackingResult, error)
	TrackingIDFromURL(url string) (string, error)
}

// StatsSource reports browser session usage.
type StatsSource interface {
	Stats() models.SessionStats
}

// respondError maps a PipelineError to the correct HTTP status code and writes
// a structured JSON error response.
func respondError(c *gin.Context, err error) {
	var pe *models.PipelineError
	if !errors.As(err, &pe) {
		pe = models.NewPipelineError(models.ErrCodeInternal, "", err.Error(), err)
	}
	c.JSON(MapErrorToStatus(pe), pe.ToDetail())
}

// badRequest writes a 400 INVALID_INPUT response.
func badRequest(c *gin.Context, msg string) {
	respondError(c, models.NewPipelineError(models.ErrCodeInvalidInput, models.StageInput, msg, nil))
}

// MapErrorToStatus translates error codes to HTTP status codes.
func MapErrorToStatus(e *models.PipelineError) int {
	switch e.Code {
	case models.ErrCodeRenderTimeout:
		return http.StatusGatewayTimeout // 504
	case models.ErrCodeFetchFailed, models.ErrCodeNavigation:
		return http.StatusBadGateway // 502
	case models.ErrCodeBrowserUnavailable, models.ErrCodeRenderLaunchFailed:
		return http.StatusServiceUnavailable // 503
	case models.ErrCodeInvalidInput:
		return http.StatusBadRequest // 400
	case models.ErrCodeRateLimited:
		return http.StatusTooManyRequests // 429
	case models.ErrCodeUnauthorized:
		return http.StatusUnauthorized // 401
	default:
		return http.StatusInternalServerError // 500
	}
}
