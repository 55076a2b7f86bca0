package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Entity types for analytics events.
const (
	EntityDeal  = "deal"
	EntityStore = "store"
	EntityUser  = "user"
)

// Event types for analytics events.
const (
	EventView               = "view"
	EventClick              = "click"
	EventSave               = "save"
	EventShare              = "share"
	EventRedemption         = "redemption"
	EventSignup             = "signup"
	EventLogin              = "login"
	EventReview             = "review"
	EventSubscriptionChange = "subscription_change"
)

// AnalyticsEvent is one append-only record in the event log.
type AnalyticsEvent struct {
	ID         uuid.UUID       `json:"id"`
	EntityType string          `json:"entity_type"`
	EntityID   uuid.UUID       `json:"entity_id"`
	EventType  string          `json:"event_type"`
	UserID     *uuid.UUID      `json:"user_id,omitempty"`
	Metadata   json.RawMessage `json:"metadata,omitempty"`
	OccurredAt time.Time       `json:"occurred_at"`
	CreatedAt  time.Time       `json:"created_at"`
}
