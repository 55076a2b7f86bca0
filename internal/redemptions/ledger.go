package redemptions

import (
	"time"

	"github.com/dealspot/backend/internal/models"
	"github.com/dealspot/backend/pkg/apperr"
)

// fallbackValidity is how long a code stays valid when the deal carries no
// usable end date.
const fallbackValidity = 30 * 24 * time.Hour

// ExpiryFor returns the expiry for a code issued now against the deal: the
// deal's end date, or a 30-day fallback when the end date is unset or already
// behind us.
func ExpiryFor(deal *models.Deal, now time.Time) time.Time {
	if deal.EndDate.IsZero() || !deal.EndDate.After(now) {
		return now.Add(fallbackValidity)
	}
	return deal.EndDate
}

// classifyState returns the error reported for a code that cannot be
// consumed or validated in its current state. An active code past its expiry
// is reported as expired; the stored status flip happens separately.
func classifyState(red *models.Redemption, now time.Time) error {
	if red.Status == models.RedemptionActive && !red.ExpiresAt.After(now) {
		return apperr.Expired("redemption code has expired")
	}
	switch red.Status {
	case models.RedemptionUsed:
		return apperr.InvalidState("redemption code already used")
	case models.RedemptionExpired:
		return apperr.Expired("redemption code has expired")
	case models.RedemptionCancelled:
		return apperr.InvalidState("redemption code was cancelled")
	default:
		return apperr.InvalidState("redemption code is not consumable")
	}
}

// Savings returns the price delta snapshot stored on the redemption, floored
// at zero.
func Savings(originalPrice, finalPrice float64) float64 {
	s := originalPrice - finalPrice
	if s < 0 {
		return 0
	}
	return s
}
