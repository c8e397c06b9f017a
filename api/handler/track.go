package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/webparser/models"
)

// Track returns a handler for POST /api/track and POST /api/parse-maersk.
//
// The body carries either a tracking page URL, from which the identifier is
// extracted, or the identifier itself.
func Track(t TrackingExtractor) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.TrackRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "invalid request body: "+err.Error())
			return
		}

		id := strings.TrimSpace(req.TrackingID)
		if id == "" {
			rawURL := strings.TrimSpace(req.URL)
			if rawURL == "" {
				badRequest(c, "url is required")
				return
			}
			var err error
			if id, err = t.TrackingIDFromURL(rawURL); err != nil {
				respondError(c, err)
				return
			}
		}

		result, err := t.ExtractTrackingData(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, result)
	}
}
