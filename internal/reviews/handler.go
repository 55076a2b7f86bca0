package reviews

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dealspot/backend/internal/analytics"
	"github.com/dealspot/backend/internal/middleware"
	"github.com/dealspot/backend/internal/models"
	"github.com/dealspot/backend/pkg/response"
)

// CreateReviewRequest is the body for POST /stores/:id/reviews.
type CreateReviewRequest struct {
	Rating  int    `json:"rating" binding:"required,min=1,max=5"`
	Comment string `json:"comment" binding:"max=1000"`
}

// Handler handles review HTTP endpoints.
type Handler struct {
	repo     *Repository
	recorder *analytics.Recorder
	logger   *zap.Logger
}

// NewHandler creates a review handler.
func NewHandler(repo *Repository, recorder *analytics.Recorder, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, recorder: recorder, logger: logger}
}

// Create handles POST /stores/:id/reviews.
func (h *Handler) Create(c *gin.Context) {
	storeID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid store id")
		return
	}
	var req CreateReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	rev := &models.Review{
		StoreID: storeID,
		UserID:  userID,
		Rating:  req.Rating,
		Comment: req.Comment,
	}
	if err := h.repo.Create(c.Request.Context(), rev); err != nil {
		response.Error(c, err)
		return
	}
	h.recorder.RecordStoreEvent(c.Request.Context(), models.EventReview, storeID, &userID)
	response.Created(c, gin.H{"review": rev})
}

// Delete handles DELETE /stores/:id/reviews (the caller's own review).
func (h *Handler) Delete(c *gin.Context) {
	storeID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid store id")
		return
	}
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	if err := h.repo.Delete(c.Request.Context(), storeID, userID); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"message": "review deleted"})
}

// ListByStore handles GET /stores/:id/reviews.
func (h *Handler) ListByStore(c *gin.Context) {
	storeID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid store id")
		return
	}
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	list, total, err := h.repo.ListByStore(c.Request.Context(), storeID, page, limit)
	if err != nil {
		h.logger.Error("list reviews failed", zap.Error(err), zap.String("store_id", storeID.String()))
		response.Internal(c, "failed to list reviews")
		return
	}
	response.OK(c, gin.H{
		"reviews": list,
		"pagination": gin.H{
			"current_page":  page,
			"total_reviews": total,
		},
	})
}
