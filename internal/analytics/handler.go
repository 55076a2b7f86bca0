package analytics

import (
	"context"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dealspot/backend/internal/middleware"
	"github.com/dealspot/backend/internal/models"
	"github.com/dealspot/backend/internal/stores"
	"github.com/dealspot/backend/pkg/response"
)

// SubscriptionSource resolves the active subscription for a store. Satisfied
// by the subscriptions repository; declared here to keep the dependency
// pointing one way.
type SubscriptionSource interface {
	GetActiveByStore(ctx context.Context, storeID uuid.UUID) (*models.Subscription, error)
}

// DealSource resolves a deal by id. Satisfied by the deals repository.
type DealSource interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Deal, error)
}

// Handler serves the reporting endpoints.
type Handler struct {
	repo   *Repository
	subs   SubscriptionSource
	deals  DealSource
	logger *zap.Logger
}

// NewHandler creates an analytics handler.
func NewHandler(repo *Repository, subs SubscriptionSource, deals DealSource, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, subs: subs, deals: deals, logger: logger}
}

// analyticsAllowed reports whether the caller may read analytics for the
// store in context. Admins always may; owners need a plan with analytics.
func (h *Handler) analyticsAllowed(c *gin.Context, storeID uuid.UUID) bool {
	if role, _ := c.MustGet(middleware.ContextUserRole).(string); role == string(models.RoleAdmin) {
		return true
	}
	sub, err := h.subs.GetActiveByStore(c.Request.Context(), storeID)
	if err != nil || !sub.AnalyticsAccess {
		return false
	}
	return true
}

func sinceParam(c *gin.Context) time.Time {
	days, err := strconv.Atoi(c.DefaultQuery("days", "30"))
	if err != nil || days < 1 || days > 365 {
		days = 30
	}
	return time.Now().AddDate(0, 0, -days)
}

// StoreAnalytics handles GET /stores/:id/analytics. Mounted behind
// stores.RequireOwnership.
func (h *Handler) StoreAnalytics(c *gin.Context) {
	store := stores.StoreFromContext(c)
	if store == nil {
		response.Internal(c, "missing store context")
		return
	}
	if !h.analyticsAllowed(c, store.ID) {
		response.Forbidden(c, "current plan does not include analytics")
		return
	}

	since := sinceParam(c)
	counts, err := h.repo.EventCounts(c.Request.Context(), models.EntityStore, store.ID, since)
	if err != nil {
		h.logger.Error("store analytics failed", zap.Error(err), zap.String("store_id", store.ID.String()))
		response.Internal(c, "failed to load analytics")
		return
	}
	response.OK(c, gin.H{
		"store_id": store.ID,
		"since":    since,
		"events":   counts,
		"totals": gin.H{
			"views":  store.TotalViews,
			"clicks": store.TotalClicks,
			"deals":  store.TotalDeals,
		},
	})
}

// DealAnalytics handles GET /stores/:id/deals/:dealID/analytics. Mounted
// behind stores.RequireOwnership; verifies the deal belongs to the store.
func (h *Handler) DealAnalytics(c *gin.Context) {
	store := stores.StoreFromContext(c)
	if store == nil {
		response.Internal(c, "missing store context")
		return
	}
	dealID, err := uuid.Parse(c.Param("dealID"))
	if err != nil {
		response.BadRequest(c, "invalid deal id")
		return
	}
	deal, err := h.deals.GetByID(c.Request.Context(), dealID)
	if err != nil {
		response.Error(c, err)
		return
	}
	if deal.StoreID != store.ID {
		response.NotFound(c, "deal not found")
		return
	}
	if !h.analyticsAllowed(c, store.ID) {
		response.Forbidden(c, "current plan does not include analytics")
		return
	}

	since := sinceParam(c)
	counts, err := h.repo.EventCounts(c.Request.Context(), models.EntityDeal, deal.ID, since)
	if err != nil {
		h.logger.Error("deal analytics failed", zap.Error(err), zap.String("deal_id", deal.ID.String()))
		response.Internal(c, "failed to load analytics")
		return
	}
	series, err := h.repo.DailySeries(c.Request.Context(), models.EntityDeal, deal.ID, models.EventView, since)
	if err != nil {
		h.logger.Error("deal view series failed", zap.Error(err), zap.String("deal_id", deal.ID.String()))
		response.Internal(c, "failed to load analytics")
		return
	}
	response.OK(c, gin.H{
		"deal_id":     deal.ID,
		"since":       since,
		"events":      counts,
		"daily_views": series,
		"totals": gin.H{
			"views":       deal.Views,
			"clicks":      deal.Clicks,
			"saves":       deal.Saves,
			"shares":      deal.Shares,
			"redemptions": deal.Redemptions,
		},
	})
}

// PlatformSummary handles GET /admin/analytics (admin only).
func (h *Handler) PlatformSummary(c *gin.Context) {
	summary, err := h.repo.Summary(c.Request.Context())
	if err != nil {
		h.logger.Error("platform summary failed", zap.Error(err))
		response.Internal(c, "failed to load analytics")
		return
	}
	response.OK(c, gin.H{"summary": summary})
}
