package deals

import (
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dealspot/backend/internal/models"
	"github.com/dealspot/backend/pkg/apperr"
)

func baseDeal() *models.Deal {
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	return &models.Deal{
		Type:          models.DealTypePercentage,
		OriginalPrice: 100,
		SalePrice:     80,
		StartDate:     now.Add(-24 * time.Hour),
		EndDate:       now.Add(24 * time.Hour),
		IsActive:      true,
		IsApproved:    true,
	}
}

func TestStatusPrecedence(t *testing.T) {
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)

	d := baseDeal()
	assert.Equal(t, models.DealStatusActive, Status(d, now))

	d.StartDate = now.Add(time.Hour)
	assert.Equal(t, models.DealStatusUpcoming, Status(d, now))

	// past end date wins over every flag
	d = baseDeal()
	d.EndDate = now.Add(-time.Hour)
	d.IsActive = false
	d.IsApproved = false
	assert.Equal(t, models.DealStatusExpired, Status(d, now))

	// inactive is checked before approval
	d = baseDeal()
	d.IsActive = false
	d.IsApproved = false
	assert.Equal(t, models.DealStatusInactive, Status(d, now))

	d = baseDeal()
	d.IsApproved = false
	assert.Equal(t, models.DealStatusPending, Status(d, now))
}

func TestDiscountPercentage(t *testing.T) {
	d := &models.Deal{OriginalPrice: 100, SalePrice: 75}
	assert.Equal(t, 25, DiscountPercentage(d))

	d = &models.Deal{OriginalPrice: 0, SalePrice: 0}
	assert.Equal(t, 0, DiscountPercentage(d))

	d = &models.Deal{OriginalPrice: 3, SalePrice: 2}
	assert.Equal(t, 33, DiscountPercentage(d))
}

func TestDeriveSalePricePercentage(t *testing.T) {
	pct := 30.0
	d := &models.Deal{
		Type:          models.DealTypePercentage,
		OriginalPrice: 70,
		Discount:      models.Discount{Percentage: &pct},
	}
	require.NoError(t, DeriveSalePrice(d))
	assert.Equal(t, 49.0, d.SalePrice)
}

func TestDeriveSalePriceFixed(t *testing.T) {
	amt := 15.0
	d := &models.Deal{
		Type:          models.DealTypeFixed,
		OriginalPrice: 60,
		Discount:      models.Discount{FixedAmount: &amt},
	}
	require.NoError(t, DeriveSalePrice(d))
	assert.Equal(t, 45.0, d.SalePrice)
}

func TestDeriveSalePriceRejectsBadDiscounts(t *testing.T) {
	over := 130.0
	d := &models.Deal{Type: models.DealTypePercentage, OriginalPrice: 50, Discount: models.Discount{Percentage: &over}}
	assert.True(t, apperr.IsValidation(DeriveSalePrice(d)))

	d = &models.Deal{Type: models.DealTypePercentage, OriginalPrice: 50}
	assert.True(t, apperr.IsValidation(DeriveSalePrice(d)))

	tooBig := 80.0
	d = &models.Deal{Type: models.DealTypeFixed, OriginalPrice: 50, Discount: models.Discount{FixedAmount: &tooBig}}
	assert.True(t, apperr.IsValidation(DeriveSalePrice(d)))

	d = &models.Deal{Type: models.DealTypeBogo, OriginalPrice: 50}
	assert.True(t, apperr.IsValidation(DeriveSalePrice(d)))
}

func TestDeriveSalePriceBogoAndExplicit(t *testing.T) {
	buy, get := 2, 1
	d := &models.Deal{
		Type:          models.DealTypeBogo,
		OriginalPrice: 50,
		SalePrice:     50,
		Discount:      models.Discount{BuyQuantity: &buy, GetQuantity: &get},
	}
	require.NoError(t, DeriveSalePrice(d))
	assert.Equal(t, 50.0, d.SalePrice)

	d = &models.Deal{Type: models.DealTypeFlash, OriginalPrice: 50, SalePrice: 20}
	require.NoError(t, DeriveSalePrice(d))
	assert.Equal(t, 20.0, d.SalePrice)
}

func TestValidateSchedule(t *testing.T) {
	d := baseDeal()
	assert.NoError(t, ValidateSchedule(d))

	d.EndDate = d.StartDate
	assert.True(t, apperr.IsValidation(ValidateSchedule(d)))

	d = baseDeal()
	d.OriginalPrice = -1
	assert.True(t, apperr.IsValidation(ValidateSchedule(d)))

	d = baseDeal()
	zero := 0
	d.MaxPerCustomer = &zero
	assert.True(t, apperr.IsValidation(ValidateSchedule(d)))
}

func TestCheckPatchFields(t *testing.T) {
	assert.NoError(t, CheckPatchFields(map[string]interface{}{
		"title": "x", "sale_price": 5.0, "tags": []string{"a"},
	}))

	err := CheckPatchFields(map[string]interface{}{"is_approved": true})
	assert.True(t, apperr.IsValidation(err))

	err = CheckPatchFields(map[string]interface{}{"title": "x", "views": 99})
	assert.True(t, apperr.IsValidation(err))
}

func TestApplyPatchRederivesPrice(t *testing.T) {
	pct := 20.0
	d := baseDeal()
	d.Discount = models.Discount{Percentage: &pct}

	newPct := 50.0
	patch := &UpdatePatch{Discount: &models.Discount{Percentage: &newPct}}
	require.NoError(t, ApplyPatch(d, patch))
	assert.Equal(t, 50.0, d.SalePrice)
}

func TestApplyPatchRejectsBrokenSchedule(t *testing.T) {
	pct := 20.0
	d := baseDeal()
	d.Discount = models.Discount{Percentage: &pct}

	bad := d.StartDate.Add(-time.Hour)
	patch := &UpdatePatch{EndDate: &bad}
	assert.True(t, apperr.IsValidation(ApplyPatch(d, patch)))
}

func TestMissingSubscriptionIsQuotaFailure(t *testing.T) {
	err := subscriptionGateErr(apperr.NotFound("no active subscription for this store"))
	assert.True(t, apperr.IsQuotaExceeded(err))
	assert.Equal(t, http.StatusBadRequest, apperr.StatusCode(err))
}

func TestSubscriptionGateErrPassesThroughOtherErrors(t *testing.T) {
	boom := errors.New("connection refused")
	assert.Equal(t, boom, subscriptionGateErr(boom))
}

func TestApplyPatchRecomputesInventory(t *testing.T) {
	pct := 20.0
	d := baseDeal()
	d.Discount = models.Discount{Percentage: &pct}
	d.SoldQuantity = 3

	total := 10
	patch := &UpdatePatch{TotalQuantity: &total}
	require.NoError(t, ApplyPatch(d, patch))
	require.NotNil(t, d.AvailableQuantity)
	assert.Equal(t, 7, *d.AvailableQuantity)
}
