package redemptions

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dealspot/backend/internal/models"
	"github.com/dealspot/backend/pkg/apperr"
)

func TestGenerateCodeUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		code, err := GenerateCode()
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(code, "RDM-"))
		assert.False(t, seen[code], "duplicate code %s", code)
		seen[code] = true
	}
}

func TestExpiryForUsesDealEndDate(t *testing.T) {
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	end := now.Add(48 * time.Hour)
	deal := &models.Deal{EndDate: end}
	assert.Equal(t, end, ExpiryFor(deal, now))
}

func TestExpiryForFallsBackThirtyDays(t *testing.T) {
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)

	deal := &models.Deal{}
	assert.Equal(t, now.Add(30*24*time.Hour), ExpiryFor(deal, now))

	deal = &models.Deal{EndDate: now.Add(-time.Hour)}
	assert.Equal(t, now.Add(30*24*time.Hour), ExpiryFor(deal, now))
}

func TestSavings(t *testing.T) {
	assert.Equal(t, 25.0, Savings(100, 75))
	assert.Equal(t, 0.0, Savings(50, 50))
	assert.Equal(t, 0.0, Savings(40, 50))
}

func TestClassifyState(t *testing.T) {
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)

	red := &models.Redemption{Status: models.RedemptionActive, ExpiresAt: now.Add(-time.Minute)}
	assert.True(t, apperr.IsExpired(classifyState(red, now)))

	red = &models.Redemption{Status: models.RedemptionUsed, ExpiresAt: now.Add(time.Hour)}
	assert.True(t, apperr.IsInvalidState(classifyState(red, now)))

	red = &models.Redemption{Status: models.RedemptionExpired, ExpiresAt: now.Add(time.Hour)}
	assert.True(t, apperr.IsExpired(classifyState(red, now)))

	red = &models.Redemption{Status: models.RedemptionCancelled, ExpiresAt: now.Add(time.Hour)}
	assert.True(t, apperr.IsInvalidState(classifyState(red, now)))
}

// fakeLedger mirrors the repository's transition rules in memory: every
// status change is a compare-and-swap on the current status, and overdue
// active codes flip to expired at most once.
type fakeLedger struct {
	mu        sync.Mutex
	red       models.Redemption
	mutations int
}

func newFakeLedger(expiresAt time.Time) *fakeLedger {
	return &fakeLedger{red: models.Redemption{
		ID:        uuid.New(),
		Code:      "RDM-TEST",
		Status:    models.RedemptionActive,
		ExpiresAt: expiresAt,
	}}
}

func (f *fakeLedger) consume(now time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.red.Status == models.RedemptionActive && f.red.ExpiresAt.After(now) {
		f.red.Status = models.RedemptionUsed
		f.mutations++
		return nil
	}
	return f.classifyLocked(now)
}

func (f *fakeLedger) validate(now time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.red.Status == models.RedemptionActive && f.red.ExpiresAt.After(now) {
		return nil
	}
	return f.classifyLocked(now)
}

func (f *fakeLedger) classifyLocked(now time.Time) error {
	if f.red.Status == models.RedemptionActive && !f.red.ExpiresAt.After(now) {
		f.red.Status = models.RedemptionExpired
		f.mutations++
	}
	return classifyState(&f.red, now)
}

func TestConcurrentConsumeSingleWinner(t *testing.T) {
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	ledger := newFakeLedger(now.Add(time.Hour))

	const callers = 32
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = ledger.consume(now)
		}(i)
	}
	wg.Wait()

	winners := 0
	for _, err := range errs {
		if err == nil {
			winners++
			continue
		}
		assert.True(t, apperr.IsInvalidState(err))
	}
	assert.Equal(t, 1, winners)
	assert.Equal(t, 1, ledger.mutations)
	assert.Equal(t, models.RedemptionUsed, ledger.red.Status)
}

func TestConsumeAfterExpiryFlipsStatusOnce(t *testing.T) {
	issued := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	ledger := newFakeLedger(issued.Add(time.Hour))

	late := issued.Add(2 * time.Hour)
	err := ledger.consume(late)
	require.True(t, apperr.IsExpired(err))
	assert.Equal(t, models.RedemptionExpired, ledger.red.Status)
	assert.Equal(t, 1, ledger.mutations)

	// the stored flip already happened; validate reports expired without
	// touching the row again
	err = ledger.validate(late.Add(time.Minute))
	require.True(t, apperr.IsExpired(err))
	assert.Equal(t, 1, ledger.mutations)
}

func TestTerminalStatuses(t *testing.T) {
	assert.False(t, models.RedemptionActive.Terminal())
	assert.True(t, models.RedemptionUsed.Terminal())
	assert.True(t, models.RedemptionExpired.Terminal())
	assert.True(t, models.RedemptionCancelled.Terminal())
}
