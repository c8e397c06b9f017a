package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/webparser/models"
	"github.com/use-agent/webparser/pipeline"
)

// Parse returns a handler for POST /api/parse.
func Parse(p PageExtractor) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.ParseRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "invalid request body: "+err.Error())
			return
		}
		req.URL = strings.TrimSpace(req.URL)
		if req.URL == "" {
			badRequest(c, "URL is required")
			return
		}

		result, err := p.ExtractPage(c.Request.Context(), req.URL, pipeline.Options{
			IncludeContent: req.IncludeContent,
		})
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, result)
	}
}
