package models

import (
	"time"

	"github.com/google/uuid"
)

// DealType identifies the discount variant of a deal.
type DealType string

const (
	DealTypePercentage DealType = "percentage"
	DealTypeFixed      DealType = "fixed"
	DealTypeBogo       DealType = "bogo"
	DealTypeFlash      DealType = "flash"
	DealTypeClearance  DealType = "clearance"
)

// ValidDealType reports whether t is a known deal type.
func ValidDealType(t DealType) bool {
	switch t {
	case DealTypePercentage, DealTypeFixed, DealTypeBogo, DealTypeFlash, DealTypeClearance:
		return true
	}
	return false
}

// DealStatus is the derived lifecycle state of a deal. It is computed from
// schedule and visibility flags and never stored.
type DealStatus string

const (
	DealStatusUpcoming DealStatus = "upcoming"
	DealStatusExpired  DealStatus = "expired"
	DealStatusInactive DealStatus = "inactive"
	DealStatusPending  DealStatus = "pending"
	DealStatusActive   DealStatus = "active"
)

// Discount is the tagged discount payload. Exactly the fields for the deal's
// type are set: Percentage for percentage deals, FixedAmount for fixed,
// BuyQuantity/GetQuantity for bogo. Flash and clearance deals carry explicit
// sale pricing and no discount fields.
type Discount struct {
	Percentage  *float64 `json:"percentage,omitempty"`
	FixedAmount *float64 `json:"fixed_amount,omitempty"`
	BuyQuantity *int     `json:"buy_quantity,omitempty"`
	GetQuantity *int     `json:"get_quantity,omitempty"`
}

// CustomerType restricts which customers a deal applies to.
const (
	CustomerTypeAll       = "all"
	CustomerTypeNew       = "new"
	CustomerTypeReturning = "returning"
)

// Deal is a time-boxed, store-scoped discount offer.
type Deal struct {
	ID          uuid.UUID `json:"id"`
	StoreID     uuid.UUID `json:"store_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	Type        DealType  `json:"type"`
	Discount    Discount  `json:"discount"`

	OriginalPrice float64 `json:"original_price"`
	SalePrice     float64 `json:"sale_price"`
	Currency      string  `json:"currency"`

	MainImage string   `json:"main_image"`
	Gallery   []string `json:"gallery,omitempty"`

	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
	Timezone  string    `json:"timezone"`

	// nil TotalQuantity means unlimited inventory.
	TotalQuantity     *int `json:"total_quantity,omitempty"`
	AvailableQuantity *int `json:"available_quantity,omitempty"`
	SoldQuantity      int  `json:"sold_quantity"`

	MinPurchase    float64 `json:"min_purchase"`
	MaxPerCustomer *int    `json:"max_per_customer,omitempty"`
	CustomerType   string  `json:"customer_type"`

	IsActive   bool       `json:"is_active"`
	IsFeatured bool       `json:"is_featured"`
	IsApproved bool       `json:"is_approved"`
	ApprovedBy *uuid.UUID `json:"approved_by,omitempty"`
	ApprovedAt *time.Time `json:"approved_at,omitempty"`

	Views       int64 `json:"views"`
	Clicks      int64 `json:"clicks"`
	Saves       int64 `json:"saves"`
	Shares      int64 `json:"shares"`
	Redemptions int64 `json:"redemptions"`

	Tags  []string `json:"tags,omitempty"`
	Terms string   `json:"terms,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
