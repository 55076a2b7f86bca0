// Package deals implements deal creation, browsing, lifecycle, and engagement
// counters.
package deals

import (
	"fmt"
	"math"
	"time"

	"github.com/dealspot/backend/internal/models"
	"github.com/dealspot/backend/pkg/apperr"
)

// Status computes the derived lifecycle state of a deal at the given instant.
// Precedence: schedule window first, then the active flag, then approval.
func Status(d *models.Deal, now time.Time) models.DealStatus {
	switch {
	case now.Before(d.StartDate):
		return models.DealStatusUpcoming
	case now.After(d.EndDate):
		return models.DealStatusExpired
	case !d.IsActive:
		return models.DealStatusInactive
	case !d.IsApproved:
		return models.DealStatusPending
	default:
		return models.DealStatusActive
	}
}

// DiscountPercentage returns the effective percentage off, rounded to the
// nearest integer. Zero when the original price is not positive.
func DiscountPercentage(d *models.Deal) int {
	if d.OriginalPrice <= 0 {
		return 0
	}
	return int(math.Round((d.OriginalPrice - d.SalePrice) / d.OriginalPrice * 100))
}

// DeriveSalePrice fills in the sale price for discount variants that imply
// one. Percentage and fixed deals derive it from the original price; bogo,
// flash, and clearance deals keep the explicit sale price supplied.
func DeriveSalePrice(d *models.Deal) error {
	switch d.Type {
	case models.DealTypePercentage:
		if d.Discount.Percentage == nil {
			return apperr.Validation("percentage deals require discount.percentage")
		}
		p := *d.Discount.Percentage
		if p < 0 || p > 100 {
			return apperr.Validation("discount.percentage must be between 0 and 100")
		}
		d.SalePrice = math.Round(d.OriginalPrice*(1-p/100)*100) / 100
	case models.DealTypeFixed:
		if d.Discount.FixedAmount == nil {
			return apperr.Validation("fixed deals require discount.fixed_amount")
		}
		amt := *d.Discount.FixedAmount
		if amt < 0 || amt > d.OriginalPrice {
			return apperr.Validation("discount.fixed_amount must be between 0 and the original price")
		}
		d.SalePrice = d.OriginalPrice - amt
	case models.DealTypeBogo:
		if d.Discount.BuyQuantity == nil || d.Discount.GetQuantity == nil {
			return apperr.Validation("bogo deals require discount.buy_quantity and discount.get_quantity")
		}
		if *d.Discount.BuyQuantity < 1 || *d.Discount.GetQuantity < 1 {
			return apperr.Validation("bogo quantities must be at least 1")
		}
	case models.DealTypeFlash, models.DealTypeClearance:
		// explicit sale pricing, nothing to derive
	default:
		return apperr.Validation("unknown deal type")
	}
	return nil
}

// ValidateSchedule checks the deal's pricing and time window.
func ValidateSchedule(d *models.Deal) error {
	if d.OriginalPrice < 0 || d.SalePrice < 0 {
		return apperr.Validation("prices must be non-negative")
	}
	if !d.EndDate.After(d.StartDate) {
		return apperr.Validation("end_date must be after start_date")
	}
	if d.TotalQuantity != nil && *d.TotalQuantity < 0 {
		return apperr.Validation("total_quantity must be non-negative")
	}
	if d.MaxPerCustomer != nil && *d.MaxPerCustomer < 1 {
		return apperr.Validation("max_per_customer must be at least 1")
	}
	return nil
}

// UpdatePatch is the allow-listed set of mutable deal fields. Pointer fields
// distinguish absent from zero.
type UpdatePatch struct {
	Title          *string          `json:"title,omitempty"`
	Description    *string          `json:"description,omitempty"`
	Category       *string          `json:"category,omitempty"`
	Type           *models.DealType `json:"type,omitempty"`
	Discount       *models.Discount `json:"discount,omitempty"`
	OriginalPrice  *float64         `json:"original_price,omitempty"`
	SalePrice      *float64         `json:"sale_price,omitempty"`
	Currency       *string          `json:"currency,omitempty"`
	MainImage      *string          `json:"main_image,omitempty"`
	Gallery        *[]string        `json:"gallery,omitempty"`
	StartDate      *time.Time       `json:"start_date,omitempty"`
	EndDate        *time.Time       `json:"end_date,omitempty"`
	Timezone       *string          `json:"timezone,omitempty"`
	TotalQuantity  *int             `json:"total_quantity,omitempty"`
	MinPurchase    *float64         `json:"min_purchase,omitempty"`
	MaxPerCustomer *int             `json:"max_per_customer,omitempty"`
	CustomerType   *string          `json:"customer_type,omitempty"`
	Tags           *[]string        `json:"tags,omitempty"`
	Terms          *string          `json:"terms,omitempty"`
}

var allowedPatchFields = map[string]bool{
	"title": true, "description": true, "category": true, "type": true,
	"discount": true, "original_price": true, "sale_price": true,
	"currency": true, "main_image": true, "gallery": true,
	"start_date": true, "end_date": true, "timezone": true,
	"total_quantity": true, "min_purchase": true, "max_per_customer": true,
	"customer_type": true, "tags": true, "terms": true,
}

// CheckPatchFields rejects the whole request when the raw patch body names
// any field outside the allow-list. Visibility flags, approval, counters, and
// ownership can never be patched.
func CheckPatchFields(raw map[string]interface{}) error {
	for k := range raw {
		if !allowedPatchFields[k] {
			return apperr.Validation(fmt.Sprintf("field %q cannot be updated", k))
		}
	}
	return nil
}

// ApplyPatch copies the patch onto the deal, re-derives the sale price when
// pricing or discount changed, and re-validates the schedule.
func ApplyPatch(d *models.Deal, p *UpdatePatch) error {
	if p.Title != nil {
		d.Title = *p.Title
	}
	if p.Description != nil {
		d.Description = *p.Description
	}
	if p.Category != nil {
		if !models.ValidCategory(*p.Category) {
			return apperr.Validation("invalid category")
		}
		d.Category = *p.Category
	}
	if p.Type != nil {
		if !models.ValidDealType(*p.Type) {
			return apperr.Validation("invalid deal type")
		}
		d.Type = *p.Type
	}
	if p.Discount != nil {
		d.Discount = *p.Discount
	}
	if p.OriginalPrice != nil {
		d.OriginalPrice = *p.OriginalPrice
	}
	if p.SalePrice != nil {
		d.SalePrice = *p.SalePrice
	}
	if p.Currency != nil {
		d.Currency = *p.Currency
	}
	if p.MainImage != nil {
		d.MainImage = *p.MainImage
	}
	if p.Gallery != nil {
		d.Gallery = *p.Gallery
	}
	if p.StartDate != nil {
		d.StartDate = *p.StartDate
	}
	if p.EndDate != nil {
		d.EndDate = *p.EndDate
	}
	if p.Timezone != nil {
		d.Timezone = *p.Timezone
	}
	if p.TotalQuantity != nil {
		d.TotalQuantity = p.TotalQuantity
		remaining := *p.TotalQuantity - d.SoldQuantity
		if remaining < 0 {
			remaining = 0
		}
		d.AvailableQuantity = &remaining
	}
	if p.MinPurchase != nil {
		d.MinPurchase = *p.MinPurchase
	}
	if p.MaxPerCustomer != nil {
		d.MaxPerCustomer = p.MaxPerCustomer
	}
	if p.CustomerType != nil {
		d.CustomerType = *p.CustomerType
	}
	if p.Tags != nil {
		d.Tags = *p.Tags
	}
	if p.Terms != nil {
		d.Terms = *p.Terms
	}

	if err := DeriveSalePrice(d); err != nil {
		return err
	}
	return ValidateSchedule(d)
}
