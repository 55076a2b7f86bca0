// Package subscriptions authorizes deal creation and image uploads against a
// store's plan limits and tracks usage counters.
package subscriptions

import (
	"github.com/dealspot/backend/internal/models"
)

// UsageKind selects which usage counters an increment or decrement touches.
type UsageKind string

const (
	UsageDeal  UsageKind = "deal"
	UsageImage UsageKind = "image"
)

// PlanLimits are the feature limits granted by a plan tier.
type PlanLimits struct {
	MaxDeals        int
	MaxImages       int
	AnalyticsAccess bool
	PrioritySupport bool
}

// Plans is the fixed tier table. Limits are copied onto the subscription row
// at activation so later tier changes do not retroactively alter running
// subscriptions.
var Plans = map[models.Plan]PlanLimits{
	models.PlanStarter:      {MaxDeals: 5, MaxImages: 10},
	models.PlanProfessional: {MaxDeals: 20, MaxImages: 50, AnalyticsAccess: true},
	models.PlanEnterprise:   {MaxDeals: 100, MaxImages: 200, AnalyticsAccess: true, PrioritySupport: true},
}

// CanCreateDeal reports whether the subscription permits creating another
// deal: it must be active and below its plan's concurrent-deal limit. The
// limit is a refusal condition, not a clamp.
func CanCreateDeal(sub *models.Subscription) bool {
	return sub != nil && sub.Status == models.SubscriptionActive && sub.DealsActive < sub.MaxDeals
}

// CanUploadImage reports whether the subscription permits another image upload.
func CanUploadImage(sub *models.Subscription) bool {
	return sub != nil && sub.Status == models.SubscriptionActive && sub.ImagesUploaded < sub.MaxImages
}
