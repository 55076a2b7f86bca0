package users

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dealspot/backend/internal/auth"
	"github.com/dealspot/backend/internal/middleware"
	"github.com/dealspot/backend/pkg/response"
)

// UpdateProfileRequest is the body for PUT /users/me.
type UpdateProfileRequest struct {
	FullName string `json:"full_name"`
	Phone    string `json:"phone"`
	City     string `json:"city"`
}

// Handler handles user profile and list endpoints.
type Handler struct {
	repo   *Repository
	auth   *auth.Repository
	logger *zap.Logger
}

// NewHandler creates a users handler.
func NewHandler(repo *Repository, authRepo *auth.Repository, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, auth: authRepo, logger: logger}
}

// Me handles GET /users/me.
func (h *Handler) Me(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	user, err := h.auth.GetByID(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"user": user.ToPublic()})
}

// UpdateMe handles PUT /users/me.
func (h *Handler) UpdateMe(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	user, err := h.auth.UpdateProfile(c.Request.Context(), userID, req.FullName, req.Phone, req.City)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"user": user.ToPublic()})
}

// SavedDeals handles GET /users/me/saved-deals.
func (h *Handler) SavedDeals(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	list, err := h.repo.SavedDeals(c.Request.Context(), userID)
	if err != nil {
		h.logger.Error("list saved deals failed", zap.Error(err))
		response.Internal(c, "failed to list saved deals")
		return
	}
	response.OK(c, gin.H{"deals": list})
}

// AddFavoriteStore handles POST /users/me/favorite-stores/:storeID.
func (h *Handler) AddFavoriteStore(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	storeID, err := uuid.Parse(c.Param("storeID"))
	if err != nil {
		response.BadRequest(c, "invalid store id")
		return
	}
	if _, err := h.repo.AddFavoriteStore(c.Request.Context(), userID, storeID); err != nil {
		h.logger.Error("add favorite store failed", zap.Error(err), zap.String("store_id", storeID.String()))
		response.Internal(c, "failed to add favorite")
		return
	}
	response.OK(c, gin.H{"favorite": true})
}

// RemoveFavoriteStore handles DELETE /users/me/favorite-stores/:storeID.
func (h *Handler) RemoveFavoriteStore(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	storeID, err := uuid.Parse(c.Param("storeID"))
	if err != nil {
		response.BadRequest(c, "invalid store id")
		return
	}
	if err := h.repo.RemoveFavoriteStore(c.Request.Context(), userID, storeID); err != nil {
		h.logger.Error("remove favorite store failed", zap.Error(err), zap.String("store_id", storeID.String()))
		response.Internal(c, "failed to remove favorite")
		return
	}
	response.OK(c, gin.H{"favorite": false})
}

// FavoriteStores handles GET /users/me/favorite-stores.
func (h *Handler) FavoriteStores(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	list, err := h.repo.FavoriteStores(c.Request.Context(), userID)
	if err != nil {
		h.logger.Error("list favorite stores failed", zap.Error(err))
		response.Internal(c, "failed to list favorites")
		return
	}
	response.OK(c, gin.H{"stores": list})
}
