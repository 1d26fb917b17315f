package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/modsentry/modsentry/internal/domain/service"
	apperrors "github.com/modsentry/modsentry/pkg/errors"
)

// AnalyticsHandler serves the per-submitter aggregate endpoint.
type AnalyticsHandler struct {
	analytics *service.Analytics
	logger    *zap.Logger
}

func NewAnalyticsHandler(analytics *service.Analytics, logger *zap.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{analytics: analytics, logger: logger}
}

// Summary handles GET /api/v1/analytics/summary?user=.
func (h *AnalyticsHandler) Summary(c *gin.Context) {
	user := c.Query("user")
	if user == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user query parameter is required"})
		return
	}

	summary, err := h.analytics.Summary(c.Request.Context(), user)
	if err != nil {
		if apperrors.IsNotFound(err) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		h.logger.Error("Analytics summary failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	c.JSON(http.StatusOK, summary)
}
