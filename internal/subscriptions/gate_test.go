package subscriptions

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dealspot/backend/internal/models"
)

func activeSub(maxDeals, dealsActive int) *models.Subscription {
	return &models.Subscription{
		Status:      models.SubscriptionActive,
		MaxDeals:    maxDeals,
		MaxImages:   10,
		DealsActive: dealsActive,
	}
}

func TestCanCreateDeal(t *testing.T) {
	assert.True(t, CanCreateDeal(activeSub(5, 0)))
	assert.True(t, CanCreateDeal(activeSub(5, 4)))
}

func TestCanCreateDealAtLimit(t *testing.T) {
	assert.False(t, CanCreateDeal(activeSub(5, 5)))
	assert.False(t, CanCreateDeal(activeSub(5, 6)))
}

func TestCanCreateDealRequiresActiveStatus(t *testing.T) {
	for _, status := range []models.SubscriptionStatus{
		models.SubscriptionInactive,
		models.SubscriptionSuspended,
		models.SubscriptionCancelled,
		models.SubscriptionPending,
	} {
		sub := activeSub(5, 0)
		sub.Status = status
		assert.False(t, CanCreateDeal(sub), "status %s", status)
	}
}

func TestCanCreateDealNilSubscription(t *testing.T) {
	assert.False(t, CanCreateDeal(nil))
}

func TestCanUploadImage(t *testing.T) {
	sub := activeSub(5, 0)
	sub.ImagesUploaded = 9
	assert.True(t, CanUploadImage(sub))

	sub.ImagesUploaded = 10
	assert.False(t, CanUploadImage(sub))

	sub.Status = models.SubscriptionCancelled
	sub.ImagesUploaded = 0
	assert.False(t, CanUploadImage(sub))
}

func TestCarriedUsage(t *testing.T) {
	created, active, images := carriedUsage(nil)
	assert.Zero(t, created)
	assert.Zero(t, active)
	assert.Zero(t, images)

	prev := activeSub(5, 4)
	prev.DealsCreated = 9
	prev.ImagesUploaded = 7
	created, active, images = carriedUsage(prev)
	assert.Equal(t, 9, created)
	assert.Equal(t, 4, active)
	assert.Equal(t, 7, images)
}

func TestReactivationCannotMintQuota(t *testing.T) {
	old := activeSub(5, 5)
	old.DealsCreated = 11

	created, active, _ := carriedUsage(old)
	renewed := activeSub(5, active)
	renewed.DealsCreated = created

	assert.False(t, CanCreateDeal(renewed))
	assert.Equal(t, 11, renewed.DealsCreated)
}

func TestPlanTiersAreOrdered(t *testing.T) {
	starter := Plans[models.PlanStarter]
	pro := Plans[models.PlanProfessional]
	ent := Plans[models.PlanEnterprise]

	assert.Less(t, starter.MaxDeals, pro.MaxDeals)
	assert.Less(t, pro.MaxDeals, ent.MaxDeals)
	assert.False(t, starter.AnalyticsAccess)
	assert.True(t, pro.AnalyticsAccess)
	assert.True(t, ent.AnalyticsAccess)
	assert.True(t, ent.PrioritySupport)
}
