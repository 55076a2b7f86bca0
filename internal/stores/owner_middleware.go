package stores

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/dealspot/backend/internal/middleware"
	"github.com/dealspot/backend/internal/models"
	"github.com/dealspot/backend/pkg/response"
)

// ContextStore is the context key for the resolved store when ownership is enforced.
const ContextStore = "store"

// RequireOwnership validates that the user owns the store in the :id route
// param (admins always pass). Call after JWT. Sets the store in context.
func RequireOwnership(repo *Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		storeID, err := uuid.Parse(c.Param("id"))
		if err != nil {
			response.BadRequest(c, "invalid store id")
			c.Abort()
			return
		}
		store, err := repo.GetByID(c.Request.Context(), storeID)
		if err != nil {
			response.NotFound(c, "store not found")
			c.Abort()
			return
		}
		userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
		role, _ := c.MustGet(middleware.ContextUserRole).(string)
		if store.OwnerID != userID && role != string(models.RoleAdmin) {
			response.Forbidden(c, "not authorized for this store")
			c.Abort()
			return
		}
		c.Set(ContextStore, store)
		c.Next()
	}
}

// StoreFromContext returns the store set by RequireOwnership.
func StoreFromContext(c *gin.Context) *models.Store {
	v, ok := c.Get(ContextStore)
	if !ok {
		return nil
	}
	s, _ := v.(*models.Store)
	return s
}
