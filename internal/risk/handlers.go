package risk

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// MaxBatchItems caps one batch request. Larger corpora should page.
const MaxBatchItems = 250

// Handler provides HTTP endpoints for the scoring service.
type Handler struct {
	service *Service
}

// NewHandler creates a scoring handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes sets up scoring routes.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/predict", h.Predict)
	r.POST("/predict/batch", h.PredictBatch)
	r.GET("/policy", h.GetPolicy)
	r.POST("/cache/purge", h.PurgeCache)
}

// PredictRequest is the single-prediction request body.
type PredictRequest struct {
	User    UserProfile        `json:"user" binding:"required"`
	Product ProductInfo        `json:"product" binding:"required"`
	Context TransactionContext `json:"context"`
}

// Predict handles POST /predict.
func (h *Handler) Predict(c *gin.Context) {
	var req PredictRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "Invalid request body",
		})
		return
	}
	if req.User.ID == "" || req.Product.ID == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "user.id and product.id are required",
		})
		return
	}

	pred := h.service.Predict(c.Request.Context(), req.User, req.Product, req.Context)
	c.JSON(http.StatusOK, gin.H{
		"prediction": pred,
	})
}

// BatchPredictRequest is the batch request body. Output order matches
// item order.
type BatchPredictRequest struct {
	Items []PredictionInput `json:"items" binding:"required"`
}

// PredictBatch handles POST /predict/batch.
func (h *Handler) PredictBatch(c *gin.Context) {
	var req BatchPredictRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "Invalid request body",
		})
		return
	}
	if len(req.Items) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "items must not be empty",
		})
		return
	}
	if len(req.Items) > MaxBatchItems {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "batch_too_large",
			"message": "Batch requests are limited to 250 items",
		})
		return
	}
	for _, item := range req.Items {
		if item.User.ID == "" || item.Product.ID == "" {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "invalid_request",
				"message": "every item needs user.id and product.id",
			})
			return
		}
	}

	preds := h.service.PredictBatch(c.Request.Context(), req.Items)
	c.JSON(http.StatusOK, gin.H{
		"predictions": preds,
		"count":       len(preds),
	})
}

// GetPolicy handles GET /policy. It exposes the scoring policy metadata
// that explanation surfaces need to label factors.
func (h *Handler) GetPolicy(c *gin.Context) {
	policy := h.service.Model().Policy()

	groups := map[string]float64{}
	for name, w := range policy.Weights {
		groups[featureGroup(name)] += w
	}

	c.JSON(http.StatusOK, gin.H{
		"version":      policy.Version,
		"baselineRisk": policy.BaselineRisk,
		"featureCount": len(policy.Weights),
		"groupWeights": groups,
		"levels": gin.H{
			"very_low": gin.H{"max": policy.Levels.VeryLowMax},
			"low":      gin.H{"max": policy.Levels.LowMax},
			"medium":   gin.H{"max": policy.Levels.MediumMax},
			"high":     gin.H{"max": policy.Levels.HighMax},
		},
	})
}

// PurgeCache handles POST /cache/purge. Operational tooling calls this
// after rolling out a new policy version.
func (h *Handler) PurgeCache(c *gin.Context) {
	h.service.Cache().Purge()
	c.JSON(http.StatusOK, gin.H{
		"message": "Prediction cache purged",
	})
}

func featureGroup(name string) string {
	for i := 0; i < len(name); i++ {
		if name[i] == '_' {
			return name[:i]
		}
	}
	return name
}
