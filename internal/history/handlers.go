package history

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// Handler provides HTTP endpoints for prediction history.
type Handler struct {
	service *Service
}

// NewHandler creates a history handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes sets up history routes.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/predictions", h.ListPredictions)
	r.GET("/predictions/stats", h.GetStats)
	r.GET("/predictions/:id", h.GetPrediction)
	r.POST("/predictions/:id/outcome", h.LabelOutcome)
	r.GET("/users/:id/predictions", h.GetUserPredictions)
	r.GET("/training/export", h.ExportTraining)
}

// ListPredictions handles GET /predictions.
func (h *Handler) ListPredictions(c *gin.Context) {
	opts := ListOptions{
		Limit: parseLimit(c.Query("limit"), 50),
		Level: c.Query("level"),
	}

	records, err := h.service.List(c.Request.Context(), opts)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "list_failed",
			"message": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"predictions": records,
		"count":       len(records),
	})
}

// GetPrediction handles GET /predictions/:id.
func (h *Handler) GetPrediction(c *gin.Context) {
	rec, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "not_found",
			"message": "Prediction record not found",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"prediction": rec,
	})
}

// LabelOutcomeRequest marks whether the purchase was actually returned.
type LabelOutcomeRequest struct {
	Returned *bool `json:"returned" binding:"required"`
}

// LabelOutcome handles POST /predictions/:id/outcome.
func (h *Handler) LabelOutcome(c *gin.Context) {
	var req LabelOutcomeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "Invalid request body",
		})
		return
	}

	err := h.service.LabelOutcome(c.Request.Context(), c.Param("id"), *req.Returned)
	if errors.Is(err, ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "not_found",
			"message": "Prediction record not found",
		})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "label_failed",
			"message": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Outcome recorded",
	})
}

// GetUserPredictions handles GET /users/:id/predictions.
func (h *Handler) GetUserPredictions(c *gin.Context) {
	records, err := h.service.List(c.Request.Context(), ListOptions{
		UserID: c.Param("id"),
		Limit:  parseLimit(c.Query("limit"), 20),
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "list_failed",
			"message": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"predictions": records,
		"count":       len(records),
	})
}

// GetStats handles GET /predictions/stats.
func (h *Handler) GetStats(c *gin.Context) {
	stats, err := h.service.Stats(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "stats_failed",
			"message": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"stats": stats,
	})
}

// ExportTraining handles GET /training/export. Rows mirror what the
// offline trainer loads: score, level, per-feature contributions, and
// the labeled outcome.
func (h *Handler) ExportTraining(c *gin.Context) {
	limit := parseLimit(c.Query("limit"), 10000)

	records, err := h.service.TrainingRows(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "export_failed",
			"message": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"rows":  records,
		"count": len(records),
	})
}

func parseLimit(raw string, def int) int {
	if raw == "" {
		return def
	}
	if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 && parsed <= 10000 {
		return parsed
	}
	return def
}
