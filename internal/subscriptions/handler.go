package subscriptions

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/dealspot/backend/internal/analytics"
	"github.com/dealspot/backend/internal/models"
	"github.com/dealspot/backend/internal/stores"
	"github.com/dealspot/backend/pkg/response"
)

// ActivateRequest is the body for POST /stores/:id/subscription.
type ActivateRequest struct {
	Plan string `json:"plan" binding:"required"`
}

// Handler handles subscription HTTP endpoints. Routes are mounted behind
// stores.RequireOwnership, so the store in context is already authorized.
type Handler struct {
	repo     *Repository
	recorder *analytics.Recorder
	logger   *zap.Logger
}

// NewHandler creates a subscription handler.
func NewHandler(repo *Repository, recorder *analytics.Recorder, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, recorder: recorder, logger: logger}
}

// GetByStore handles GET /stores/:id/subscription.
func (h *Handler) GetByStore(c *gin.Context) {
	store := stores.StoreFromContext(c)
	if store == nil {
		response.Internal(c, "missing store context")
		return
	}
	sub, err := h.repo.GetActiveByStore(c.Request.Context(), store.ID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"subscription": sub})
}

// Activate handles POST /stores/:id/subscription. Replaces any existing
// active subscription with a fresh one on the requested plan.
func (h *Handler) Activate(c *gin.Context) {
	store := stores.StoreFromContext(c)
	if store == nil {
		response.Internal(c, "missing store context")
		return
	}

	var req ActivateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	sub, err := h.repo.Activate(c.Request.Context(), store.ID, models.Plan(req.Plan))
	if err != nil {
		response.Error(c, err)
		return
	}

	h.recorder.RecordStoreEvent(c.Request.Context(), models.EventSubscriptionChange, store.ID, nil)
	response.Created(c, gin.H{"subscription": sub})
}

// Cancel handles DELETE /stores/:id/subscription.
func (h *Handler) Cancel(c *gin.Context) {
	store := stores.StoreFromContext(c)
	if store == nil {
		response.Internal(c, "missing store context")
		return
	}
	if err := h.repo.Cancel(c.Request.Context(), store.ID); err != nil {
		response.Error(c, err)
		return
	}
	h.recorder.RecordStoreEvent(c.Request.Context(), models.EventSubscriptionChange, store.ID, nil)
	response.OK(c, gin.H{"message": "subscription cancelled"})
}
