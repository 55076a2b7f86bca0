package redemptions

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dealspot/backend/internal/analytics"
	"github.com/dealspot/backend/internal/deals"
	"github.com/dealspot/backend/internal/middleware"
	"github.com/dealspot/backend/internal/models"
	"github.com/dealspot/backend/internal/stores"
	"github.com/dealspot/backend/pkg/apperr"
	"github.com/dealspot/backend/pkg/response"
)

// ConsumeRequest is the body for POST /redemptions/consume.
type ConsumeRequest struct {
	Code    string    `json:"code" binding:"required"`
	StoreID uuid.UUID `json:"store_id" binding:"required"`
	Lat     *float64  `json:"lat"`
	Lng     *float64  `json:"lng"`
}

// Handler handles redemption HTTP endpoints.
type Handler struct {
	repo     *Repository
	deals    *deals.Repository
	stores   *stores.Repository
	recorder *analytics.Recorder
	logger   *zap.Logger
}

// NewHandler creates a redemption handler.
func NewHandler(repo *Repository, dealRepo *deals.Repository, storeRepo *stores.Repository,
	recorder *analytics.Recorder, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, deals: dealRepo, stores: storeRepo, recorder: recorder, logger: logger}
}

// Issue handles POST /deals/:id/redemptions: a customer claims a deal and
// receives a one-time code.
func (h *Handler) Issue(c *gin.Context) {
	dealID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid deal id")
		return
	}
	deal, err := h.deals.GetByID(c.Request.Context(), dealID)
	if err != nil {
		response.Error(c, err)
		return
	}

	now := time.Now()
	switch deals.Status(deal, now) {
	case models.DealStatusActive:
	case models.DealStatusExpired:
		response.Error(c, apperr.Expired("deal has ended"))
		return
	default:
		response.Error(c, apperr.InvalidState("deal is not currently redeemable"))
		return
	}
	if deal.AvailableQuantity != nil && *deal.AvailableQuantity <= 0 {
		response.Error(c, apperr.InvalidState("deal is sold out"))
		return
	}

	customerID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	if deal.MaxPerCustomer != nil {
		n, err := h.repo.CountForDealCustomer(c.Request.Context(), deal.ID, customerID)
		if err != nil {
			h.logger.Error("count customer redemptions failed", zap.Error(err), zap.String("deal_id", deal.ID.String()))
			response.Internal(c, "failed to issue redemption")
			return
		}
		if n >= *deal.MaxPerCustomer {
			response.Error(c, apperr.QuotaExceeded("per-customer redemption limit reached"))
			return
		}
	}

	red := &models.Redemption{
		DealID:        deal.ID,
		StoreID:       deal.StoreID,
		CustomerID:    customerID,
		OriginalPrice: deal.OriginalPrice,
		FinalPrice:    deal.SalePrice,
		Savings:       Savings(deal.OriginalPrice, deal.SalePrice),
		ExpiresAt:     ExpiryFor(deal, now),
	}
	if err := h.repo.Issue(c.Request.Context(), red); err != nil {
		h.logger.Error("issue redemption failed", zap.Error(err), zap.String("deal_id", deal.ID.String()))
		response.Internal(c, "failed to issue redemption")
		return
	}
	response.Created(c, gin.H{"redemption": red})
}

// requireStoreAccess verifies the caller owns the store (admins pass).
func (h *Handler) requireStoreAccess(c *gin.Context, storeID uuid.UUID) bool {
	role, _ := c.MustGet(middleware.ContextUserRole).(string)
	if role == string(models.RoleAdmin) {
		return true
	}
	store, err := h.stores.GetByID(c.Request.Context(), storeID)
	if err != nil {
		response.Error(c, err)
		return false
	}
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	if store.OwnerID != userID {
		response.Forbidden(c, "not authorized for this store")
		return false
	}
	return true
}

// Consume handles POST /redemptions/consume: the store marks a presented code
// as used. Exactly one of any concurrent calls for the same code succeeds.
func (h *Handler) Consume(c *gin.Context) {
	var req ConsumeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if !h.requireStoreAccess(c, req.StoreID) {
		return
	}

	consumerID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	red, err := h.repo.Consume(c.Request.Context(), req.Code, req.StoreID, UsageStamp{
		ConsumerID: consumerID,
		IP:         c.ClientIP(),
		Lat:        req.Lat,
		Lng:        req.Lng,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	h.recorder.RecordDealEvent(c.Request.Context(), models.EventRedemption, red.DealID, red.StoreID, &red.CustomerID)
	response.OK(c, gin.H{"redemption": red})
}

// Validate handles GET /redemptions/validate?code=&store_id=: a read-only
// point-of-sale lookup that never consumes the code.
func (h *Handler) Validate(c *gin.Context) {
	code := c.Query("code")
	storeID, err := uuid.Parse(c.Query("store_id"))
	if code == "" || err != nil {
		response.BadRequest(c, "code and store_id are required")
		return
	}
	if !h.requireStoreAccess(c, storeID) {
		return
	}

	red, err := h.repo.Validate(c.Request.Context(), code, storeID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"redemption": red})
}

// Cancel handles POST /redemptions/:id/cancel: a customer voids their own
// unused code.
func (h *Handler) Cancel(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid redemption id")
		return
	}
	customerID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	if err := h.repo.Cancel(c.Request.Context(), id, customerID); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"message": "redemption cancelled"})
}

// ListMine handles GET /redemptions/me: the customer's own redemptions.
func (h *Handler) ListMine(c *gin.Context) {
	customerID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	status := models.RedemptionStatus(c.Query("status"))

	list, total, err := h.repo.ListByCustomer(c.Request.Context(), customerID, status, page, limit)
	if err != nil {
		h.logger.Error("list redemptions failed", zap.Error(err))
		response.Internal(c, "failed to list redemptions")
		return
	}
	response.OK(c, gin.H{
		"redemptions": list,
		"pagination": gin.H{
			"current_page":      page,
			"total_redemptions": total,
		},
	})
}
