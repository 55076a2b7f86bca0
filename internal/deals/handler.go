package deals

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dealspot/backend/internal/analytics"
	"github.com/dealspot/backend/internal/middleware"
	"github.com/dealspot/backend/internal/models"
	"github.com/dealspot/backend/internal/stores"
	"github.com/dealspot/backend/internal/subscriptions"
	"github.com/dealspot/backend/pkg/apperr"
	"github.com/dealspot/backend/pkg/response"
	"github.com/dealspot/backend/pkg/storage"
)

// CreateDealRequest is the body for POST /stores/:id/deals.
type CreateDealRequest struct {
	Title          string          `json:"title" binding:"required,max=120"`
	Description    string          `json:"description" binding:"required,max=2000"`
	Category       string          `json:"category" binding:"required"`
	Type           models.DealType `json:"type" binding:"required"`
	Discount       models.Discount `json:"discount"`
	OriginalPrice  float64         `json:"original_price"`
	SalePrice      float64         `json:"sale_price"`
	Currency       string          `json:"currency"`
	MainImage      string          `json:"main_image"`
	StartDate      time.Time       `json:"start_date" binding:"required"`
	EndDate        time.Time       `json:"end_date" binding:"required"`
	Timezone       string          `json:"timezone"`
	TotalQuantity  *int            `json:"total_quantity"`
	MinPurchase    float64         `json:"min_purchase"`
	MaxPerCustomer *int            `json:"max_per_customer"`
	CustomerType   string          `json:"customer_type"`
	Tags           []string        `json:"tags"`
	Terms          string          `json:"terms"`
}

// dealView is a deal plus its derived fields for API responses.
type dealView struct {
	*models.Deal
	Status             models.DealStatus `json:"status"`
	DiscountPercentage int               `json:"discount_percentage"`
}

func viewOf(d *models.Deal, now time.Time) dealView {
	return dealView{Deal: d, Status: Status(d, now), DiscountPercentage: DiscountPercentage(d)}
}

func viewsOf(ds []*models.Deal) []dealView {
	now := time.Now()
	out := make([]dealView, 0, len(ds))
	for _, d := range ds {
		out = append(out, viewOf(d, now))
	}
	return out
}

// Handler handles deal HTTP endpoints.
type Handler struct {
	repo     *Repository
	stores   *stores.Repository
	subs     *subscriptions.Repository
	recorder *analytics.Recorder
	s3       *storage.S3
	logger   *zap.Logger
}

// NewHandler creates a deal handler. s3 may be nil, which disables image
// uploads.
func NewHandler(repo *Repository, storeRepo *stores.Repository, subs *subscriptions.Repository,
	recorder *analytics.Recorder, s3 *storage.S3, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, stores: storeRepo, subs: subs, recorder: recorder, s3: s3, logger: logger}
}

// optionalUserID returns the authenticated user's id when one is in context.
func optionalUserID(c *gin.Context) *uuid.UUID {
	if v, ok := c.Get(middleware.ContextUserID); ok {
		if id, ok := v.(uuid.UUID); ok {
			return &id
		}
	}
	return nil
}

// resolveOwnedDeal loads the deal in :id and verifies the caller owns its
// store (admins pass).
func (h *Handler) resolveOwnedDeal(c *gin.Context) *models.Deal {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid deal id")
		return nil
	}
	deal, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return nil
	}
	role, _ := c.MustGet(middleware.ContextUserRole).(string)
	if role != string(models.RoleAdmin) {
		store, err := h.stores.GetByID(c.Request.Context(), deal.StoreID)
		if err != nil {
			response.Error(c, err)
			return nil
		}
		userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
		if store.OwnerID != userID {
			response.Forbidden(c, "not authorized for this deal")
			return nil
		}
	}
	return deal
}

// List handles GET /deals: public browsing of currently live deals.
func (h *Handler) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "12"))
	f := ListFilter{
		Category:   c.Query("category"),
		Search:     c.Query("search"),
		Tag:        c.Query("tag"),
		Featured:   c.Query("featured") == "true",
		SortBy:     c.DefaultQuery("sort", "newest"),
		ActiveOnly: true,
		Page:       page,
		Limit:      limit,
	}
	list, total, err := h.repo.List(c.Request.Context(), f)
	if err != nil {
		h.logger.Error("list deals failed", zap.Error(err))
		response.Internal(c, "failed to list deals")
		return
	}
	response.OK(c, gin.H{
		"deals": viewsOf(list),
		"pagination": gin.H{
			"current_page": f.Page,
			"total_deals":  total,
		},
	})
}

// ListByStore handles GET /stores/:id/deals. Public; shows the store's live
// deals only.
func (h *Handler) ListByStore(c *gin.Context) {
	storeID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid store id")
		return
	}
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "12"))
	f := ListFilter{
		StoreID:    &storeID,
		ActiveOnly: c.Query("all") != "true",
		SortBy:     c.DefaultQuery("sort", "newest"),
		Page:       page,
		Limit:      limit,
	}
	// the full (non-live) listing is owner-only
	if !f.ActiveOnly {
		store, err := h.stores.GetByID(c.Request.Context(), storeID)
		if err != nil {
			response.Error(c, err)
			return
		}
		userID := optionalUserID(c)
		role := c.GetString(middleware.ContextUserRole)
		if role != string(models.RoleAdmin) && (userID == nil || store.OwnerID != *userID) {
			f.ActiveOnly = true
		}
	}
	list, total, err := h.repo.List(c.Request.Context(), f)
	if err != nil {
		h.logger.Error("list store deals failed", zap.Error(err), zap.String("store_id", storeID.String()))
		response.Internal(c, "failed to list deals")
		return
	}
	response.OK(c, gin.H{
		"deals": viewsOf(list),
		"pagination": gin.H{
			"current_page": f.Page,
			"total_deals":  total,
		},
	})
}

// GetByID handles GET /deals/:id, counting the view.
func (h *Handler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid deal id")
		return
	}
	deal, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.repo.IncrementCounter(c.Request.Context(), id, "views"); err != nil {
		h.logger.Warn("increment deal views failed", zap.Error(err), zap.String("deal_id", id.String()))
	}
	h.recorder.RecordDealEvent(c.Request.Context(), models.EventView, deal.ID, deal.StoreID, optionalUserID(c))
	response.OK(c, gin.H{"deal": viewOf(deal, time.Now())})
}

// Create handles POST /stores/:id/deals. Mounted behind
// stores.RequireOwnership; the subscription quota is enforced inside the
// repository transaction.
func (h *Handler) Create(c *gin.Context) {
	store := stores.StoreFromContext(c)
	if store == nil {
		response.Internal(c, "missing store context")
		return
	}

	var req CreateDealRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if !models.ValidDealType(req.Type) {
		response.BadRequest(c, "invalid deal type")
		return
	}
	if !models.ValidCategory(req.Category) {
		response.BadRequest(c, "invalid category")
		return
	}

	deal := &models.Deal{
		StoreID:        store.ID,
		Title:          req.Title,
		Description:    req.Description,
		Category:       req.Category,
		Type:           req.Type,
		Discount:       req.Discount,
		OriginalPrice:  req.OriginalPrice,
		SalePrice:      req.SalePrice,
		Currency:       req.Currency,
		MainImage:      req.MainImage,
		StartDate:      req.StartDate,
		EndDate:        req.EndDate,
		Timezone:       req.Timezone,
		TotalQuantity:  req.TotalQuantity,
		MinPurchase:    req.MinPurchase,
		MaxPerCustomer: req.MaxPerCustomer,
		CustomerType:   req.CustomerType,
		Tags:           req.Tags,
		Terms:          req.Terms,
		IsActive:       true,
		IsApproved:     store.AutoApproveDeals,
	}
	if deal.Currency == "" {
		deal.Currency = "USD"
	}
	if deal.Timezone == "" {
		deal.Timezone = "America/New_York"
	}
	if deal.CustomerType == "" {
		deal.CustomerType = models.CustomerTypeAll
	}
	if deal.TotalQuantity != nil {
		q := *deal.TotalQuantity
		deal.AvailableQuantity = &q
	}

	if err := DeriveSalePrice(deal); err != nil {
		response.Error(c, err)
		return
	}
	if err := ValidateSchedule(deal); err != nil {
		response.Error(c, err)
		return
	}

	if err := h.repo.Create(c.Request.Context(), deal); err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, gin.H{"deal": viewOf(deal, time.Now())})
}

// Update handles PUT /deals/:id with an allow-listed patch. Any field outside
// the allow-list rejects the whole request.
func (h *Handler) Update(c *gin.Context) {
	deal := h.resolveOwnedDeal(c)
	if deal == nil {
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, 1<<20))
	if err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}
	var raw map[string]interface{}
	if err := json.Unmarshal(body, &raw); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}
	if err := CheckPatchFields(raw); err != nil {
		response.Error(c, err)
		return
	}
	var patch UpdatePatch
	if err := json.Unmarshal(body, &patch); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}

	if err := ApplyPatch(deal, &patch); err != nil {
		response.Error(c, err)
		return
	}
	if err := h.repo.Update(c.Request.Context(), deal); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"deal": viewOf(deal, time.Now())})
}

// Deactivate handles DELETE /deals/:id as a soft toggle that releases the
// subscription slot.
func (h *Handler) Deactivate(c *gin.Context) {
	deal := h.resolveOwnedDeal(c)
	if deal == nil {
		return
	}
	if err := h.repo.Deactivate(c.Request.Context(), deal); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"message": "deal deactivated"})
}

// Approve handles POST /admin/deals/:id/approve (admin only).
func (h *Handler) Approve(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid deal id")
		return
	}
	adminID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	deal, err := h.repo.Approve(c.Request.Context(), id, adminID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"deal": viewOf(deal, time.Now())})
}

// PendingApproval handles GET /admin/deals/pending (admin only).
func (h *Handler) PendingApproval(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	list, total, err := h.repo.ListPending(c.Request.Context(), page, limit)
	if err != nil {
		h.logger.Error("list pending deals failed", zap.Error(err))
		response.Internal(c, "failed to list deals")
		return
	}
	response.OK(c, gin.H{
		"deals": viewsOf(list),
		"pagination": gin.H{
			"current_page": page,
			"total_deals":  total,
		},
	})
}

// Click handles POST /deals/:id/click.
func (h *Handler) Click(c *gin.Context) {
	h.trackCounter(c, "clicks", models.EventClick)
}

// Share handles POST /deals/:id/share.
func (h *Handler) Share(c *gin.Context) {
	h.trackCounter(c, "shares", models.EventShare)
}

func (h *Handler) trackCounter(c *gin.Context, column, eventType string) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid deal id")
		return
	}
	deal, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.repo.IncrementCounter(c.Request.Context(), id, column); err != nil {
		h.logger.Warn("increment deal counter failed", zap.Error(err),
			zap.String("deal_id", id.String()), zap.String("counter", column))
	}
	h.recorder.RecordDealEvent(c.Request.Context(), eventType, deal.ID, deal.StoreID, optionalUserID(c))
	response.OK(c, gin.H{"message": "recorded"})
}

// Save handles POST /deals/:id/save. Requires auth; idempotent per user.
func (h *Handler) Save(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid deal id")
		return
	}
	deal, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	inserted, err := h.repo.SaveForUser(c.Request.Context(), userID, id)
	if err != nil {
		h.logger.Error("save deal failed", zap.Error(err), zap.String("deal_id", id.String()))
		response.Internal(c, "failed to save deal")
		return
	}
	if inserted {
		if err := h.repo.IncrementCounter(c.Request.Context(), id, "saves"); err != nil {
			h.logger.Warn("increment deal saves failed", zap.Error(err), zap.String("deal_id", id.String()))
		}
		h.recorder.RecordDealEvent(c.Request.Context(), models.EventSave, deal.ID, deal.StoreID, &userID)
	}
	response.OK(c, gin.H{"saved": true})
}

// Unsave handles DELETE /deals/:id/save.
func (h *Handler) Unsave(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid deal id")
		return
	}
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	if _, err := h.repo.UnsaveForUser(c.Request.Context(), userID, id); err != nil {
		h.logger.Error("unsave deal failed", zap.Error(err), zap.String("deal_id", id.String()))
		response.Internal(c, "failed to unsave deal")
		return
	}
	response.OK(c, gin.H{"saved": false})
}

// UploadImage handles POST /deals/:id/images (multipart "image" field). The
// upload counts against the plan's image quota.
func (h *Handler) UploadImage(c *gin.Context) {
	if h.s3 == nil {
		response.Internal(c, "image uploads not configured")
		return
	}
	deal := h.resolveOwnedDeal(c)
	if deal == nil {
		return
	}

	sub, err := h.subs.GetActiveByStore(c.Request.Context(), deal.StoreID)
	if err != nil {
		response.Error(c, subscriptionGateErr(err))
		return
	}
	if !subscriptions.CanUploadImage(sub) {
		response.Error(c, apperr.QuotaExceeded(fmt.Sprintf("plan limit of %d images reached", sub.MaxImages)))
		return
	}

	file, header, err := c.Request.FormFile("image")
	if err != nil {
		response.BadRequest(c, "missing image file")
		return
	}
	defer file.Close()

	if header.Size > storage.MaxImageFileSize {
		response.BadRequest(c, "image exceeds 5MB limit")
		return
	}
	contentType := header.Header.Get("Content-Type")
	if !storage.ValidateImageType(contentType, header.Filename) {
		response.BadRequest(c, "unsupported image type")
		return
	}

	key := storage.DealImageKey(deal.StoreID.String(), deal.ID.String(), header.Filename)
	url, err := h.s3.Upload(c.Request.Context(), h.s3.ImagesBucket(), key, contentType, file)
	if err != nil {
		h.logger.Error("deal image upload failed", zap.Error(err), zap.String("deal_id", deal.ID.String()))
		response.Internal(c, "failed to upload image")
		return
	}
	if err := h.repo.AppendGalleryImage(c.Request.Context(), deal.ID, url); err != nil {
		response.Error(c, err)
		return
	}
	if err := h.subs.IncrementUsage(c.Request.Context(), sub.ID, subscriptions.UsageImage, 1); err != nil {
		h.logger.Warn("increment image usage failed", zap.Error(err), zap.String("subscription_id", sub.ID.String()))
	}
	response.Created(c, gin.H{"url": url})
}

// CategoryCounts handles GET /deals/categories/counts.
func (h *Handler) CategoryCounts(c *gin.Context) {
	counts, err := h.repo.CategoryCounts(c.Request.Context())
	if err != nil {
		response.Internal(c, "failed to fetch category counts")
		return
	}
	response.OK(c, gin.H{"categories": counts})
}
