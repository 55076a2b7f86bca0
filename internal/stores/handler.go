package stores

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dealspot/backend/internal/middleware"
	"github.com/dealspot/backend/internal/models"
	"github.com/dealspot/backend/pkg/response"
)

// CreateStoreRequest is the body for POST /stores.
type CreateStoreRequest struct {
	Name        string  `json:"name" binding:"required"`
	Description string  `json:"description" binding:"required,max=500"`
	Category    string  `json:"category" binding:"required"`
	Email       string  `json:"email" binding:"required,email"`
	Phone       string  `json:"phone" binding:"required"`
	Website     string  `json:"website"`
	Street      string  `json:"street" binding:"required"`
	City        string  `json:"city" binding:"required"`
	State       string  `json:"state" binding:"required"`
	ZipCode     string  `json:"zip_code" binding:"required"`
	Country     string  `json:"country"`
	Lat         float64 `json:"lat"`
	Lng         float64 `json:"lng"`
	LogoURL     string  `json:"logo_url"`
	CoverURL    string  `json:"cover_url"`
}

// Handler handles store HTTP endpoints.
type Handler struct {
	repo   *Repository
	logger *zap.Logger
}

// NewHandler creates a store handler.
func NewHandler(repo *Repository, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, logger: logger}
}

// List handles GET /stores with category/city/search filters.
func (h *Handler) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	f := ListFilter{
		Category: c.Query("category"),
		City:     c.Query("city"),
		Search:   c.Query("search"),
		Page:     page,
		Limit:    limit,
	}
	list, total, err := h.repo.List(c.Request.Context(), f)
	if err != nil {
		h.logger.Error("list stores failed", zap.Error(err))
		response.Internal(c, "failed to list stores")
		return
	}
	response.OK(c, gin.H{
		"stores": list,
		"pagination": gin.H{
			"current_page": f.Page,
			"total_stores": total,
		},
	})
}

// GetByID handles GET /stores/:id and counts the view.
func (h *Handler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid store id")
		return
	}
	store, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.repo.IncrementViews(c.Request.Context(), id); err != nil {
		h.logger.Warn("increment store views failed", zap.Error(err), zap.String("store_id", id.String()))
	}
	response.OK(c, gin.H{"store": store})
}

// Click handles POST /stores/:id/click.
func (h *Handler) Click(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid store id")
		return
	}
	if err := h.repo.IncrementClicks(c.Request.Context(), id); err != nil {
		h.logger.Warn("increment store clicks failed", zap.Error(err), zap.String("store_id", id.String()))
	}
	response.OK(c, gin.H{"message": "recorded"})
}

// Create handles POST /stores (store_owner or admin).
func (h *Handler) Create(c *gin.Context) {
	var req CreateStoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if !models.ValidCategory(req.Category) {
		response.BadRequest(c, "invalid category")
		return
	}

	ownerID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	country := req.Country
	if country == "" {
		country = "USA"
	}
	store := &models.Store{
		OwnerID:     ownerID,
		Name:        req.Name,
		Description: req.Description,
		Category:    req.Category,
		Email:       req.Email,
		Phone:       req.Phone,
		Website:     req.Website,
		Street:      req.Street,
		City:        req.City,
		State:       req.State,
		ZipCode:     req.ZipCode,
		Country:     country,
		Lat:         req.Lat,
		Lng:         req.Lng,
		LogoURL:     req.LogoURL,
		CoverURL:    req.CoverURL,
	}
	if err := h.repo.Create(c.Request.Context(), store); err != nil {
		h.logger.Error("create store failed", zap.Error(err))
		response.Internal(c, "failed to create store")
		return
	}
	response.Created(c, gin.H{"store": store})
}

// Update handles PUT /stores/:id. RequireOwnership has already resolved the store.
func (h *Handler) Update(c *gin.Context) {
	store := StoreFromContext(c)
	if store == nil {
		response.Internal(c, "missing store context")
		return
	}

	var req CreateStoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if !models.ValidCategory(req.Category) {
		response.BadRequest(c, "invalid category")
		return
	}

	store.Name = req.Name
	store.Description = req.Description
	store.Category = req.Category
	store.Email = req.Email
	store.Phone = req.Phone
	store.Website = req.Website
	store.Street = req.Street
	store.City = req.City
	store.State = req.State
	store.ZipCode = req.ZipCode
	if req.Country != "" {
		store.Country = req.Country
	}
	store.Lat = req.Lat
	store.Lng = req.Lng
	store.LogoURL = req.LogoURL
	store.CoverURL = req.CoverURL

	if err := h.repo.Update(c.Request.Context(), store); err != nil {
		h.logger.Error("update store failed", zap.Error(err), zap.String("store_id", store.ID.String()))
		response.Internal(c, "failed to update store")
		return
	}
	response.OK(c, gin.H{"store": store})
}

// Deactivate handles DELETE /stores/:id as a soft toggle.
func (h *Handler) Deactivate(c *gin.Context) {
	store := StoreFromContext(c)
	if store == nil {
		response.Internal(c, "missing store context")
		return
	}
	if err := h.repo.Deactivate(c.Request.Context(), store.ID); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"message": "store deactivated"})
}

// CategoryCounts handles GET /stores/categories/counts.
func (h *Handler) CategoryCounts(c *gin.Context) {
	counts, err := h.repo.CategoryCounts(c.Request.Context())
	if err != nil {
		response.Internal(c, "failed to fetch category counts")
		return
	}
	response.OK(c, gin.H{"categories": counts})
}
