package models

import (
	"time"

	"github.com/google/uuid"
)

// Plan is a subscription tier.
type Plan string

const (
	PlanStarter      Plan = "starter"
	PlanProfessional Plan = "professional"
	PlanEnterprise   Plan = "enterprise"
)

// SubscriptionStatus is the billing state of a subscription.
type SubscriptionStatus string

const (
	SubscriptionActive    SubscriptionStatus = "active"
	SubscriptionInactive  SubscriptionStatus = "inactive"
	SubscriptionSuspended SubscriptionStatus = "suspended"
	SubscriptionCancelled SubscriptionStatus = "cancelled"
	SubscriptionPending   SubscriptionStatus = "pending"
)

// Subscription bounds how many deals a store may run concurrently.
// At most one active subscription exists per store.
type Subscription struct {
	ID      uuid.UUID          `json:"id"`
	StoreID uuid.UUID          `json:"store_id"`
	Plan    Plan               `json:"plan"`
	Status  SubscriptionStatus `json:"status"`

	// Plan feature limits, copied from the tier table at activation.
	MaxDeals        int  `json:"max_deals"`
	MaxImages       int  `json:"max_images"`
	AnalyticsAccess bool `json:"analytics_access"`
	PrioritySupport bool `json:"priority_support"`

	// Usage counters. DealsCreated is monotonic; DealsActive is floored at 0.
	DealsCreated   int       `json:"deals_created"`
	DealsActive    int       `json:"deals_active"`
	ImagesUploaded int       `json:"images_uploaded"`
	LastUpdated    time.Time `json:"last_updated"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
