package models

import (
	"time"

	"github.com/google/uuid"
)

// RedemptionStatus is the state of a redemption code.
// used, expired and cancelled are terminal.
type RedemptionStatus string

const (
	RedemptionActive    RedemptionStatus = "active"
	RedemptionUsed      RedemptionStatus = "used"
	RedemptionExpired   RedemptionStatus = "expired"
	RedemptionCancelled RedemptionStatus = "cancelled"
)

// Redemption is a single customer's claim on a deal, represented by a
// one-time-use code. The store reference is denormalized from the deal so
// point-of-sale lookups need no join.
type Redemption struct {
	ID         uuid.UUID        `json:"id"`
	DealID     uuid.UUID        `json:"deal_id"`
	StoreID    uuid.UUID        `json:"store_id"`
	CustomerID uuid.UUID        `json:"customer_id"`
	Code       string           `json:"code"`
	Status     RedemptionStatus `json:"status"`

	// Usage fields are stamped exactly once when the code is consumed.
	UsedAt  *time.Time `json:"used_at,omitempty"`
	UsedBy  *uuid.UUID `json:"used_by,omitempty"`
	UsedIP  string     `json:"used_ip,omitempty"`
	UsedLat *float64   `json:"used_lat,omitempty"`
	UsedLng *float64   `json:"used_lng,omitempty"`

	// Price snapshot at issue time.
	OriginalPrice float64 `json:"original_price"`
	FinalPrice    float64 `json:"final_price"`
	Savings       float64 `json:"savings"`

	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Terminal reports whether the status admits no further transition.
func (s RedemptionStatus) Terminal() bool {
	return s == RedemptionUsed || s == RedemptionExpired || s == RedemptionCancelled
}
