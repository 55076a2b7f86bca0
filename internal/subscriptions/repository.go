package subscriptions

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dealspot/backend/internal/models"
	"github.com/dealspot/backend/pkg/apperr"
)

// Repository handles subscription persistence. Usage counters are only ever
// changed through atomic SQL deltas; application code never reads, modifies
// and writes a counter.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a subscription repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const subColumns = `id, store_id, plan, status, max_deals, max_images, analytics_access, priority_support,
	deals_created, deals_active, images_uploaded, last_updated, created_at, updated_at`

func scanSubscription(row pgx.Row) (*models.Subscription, error) {
	var s models.Subscription
	err := row.Scan(&s.ID, &s.StoreID, &s.Plan, &s.Status, &s.MaxDeals, &s.MaxImages, &s.AnalyticsAccess,
		&s.PrioritySupport, &s.DealsCreated, &s.DealsActive, &s.ImagesUploaded, &s.LastUpdated, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperr.NotFound("no active subscription for this store")
		}
		return nil, err
	}
	return &s, nil
}

// GetActiveByStore returns the store's single active subscription.
func (r *Repository) GetActiveByStore(ctx context.Context, storeID uuid.UUID) (*models.Subscription, error) {
	const q = `SELECT ` + subColumns + ` FROM subscriptions WHERE store_id = $1 AND status = 'active'`
	return scanSubscription(r.pool.QueryRow(ctx, q, storeID))
}

// GetActiveByStoreForUpdate locks and returns the active subscription inside
// an open transaction. Used by the deal-create path so the quota check and
// usage increment commit as one unit.
func (r *Repository) GetActiveByStoreForUpdate(ctx context.Context, tx pgx.Tx, storeID uuid.UUID) (*models.Subscription, error) {
	const q = `SELECT ` + subColumns + ` FROM subscriptions WHERE store_id = $1 AND status = 'active' FOR UPDATE`
	return scanSubscription(tx.QueryRow(ctx, q, storeID))
}

// carriedUsage returns the usage counters a replacement subscription starts
// with: those of the subscription it replaces, or zeros for a store's first.
// Carrying them forward keeps dealsCreated monotonic across plan changes and
// stops a store at its limit from minting quota by re-activating a plan.
func carriedUsage(prev *models.Subscription) (dealsCreated, dealsActive, imagesUploaded int) {
	if prev == nil {
		return 0, 0, 0
	}
	return prev.DealsCreated, prev.DealsActive, prev.ImagesUploaded
}

// Activate cancels any existing active subscription for the store and creates
// a new active one with the plan's limits, in a single transaction. Usage
// counters survive the swap.
func (r *Repository) Activate(ctx context.Context, storeID uuid.UUID, plan models.Plan) (*models.Subscription, error) {
	limits, ok := Plans[plan]
	if !ok {
		return nil, apperr.Validation("unknown plan: " + string(plan))
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	var prev *models.Subscription
	var old models.Subscription
	err = tx.QueryRow(ctx,
		`UPDATE subscriptions SET status = 'cancelled', updated_at = NOW()
			WHERE store_id = $1 AND status = 'active'
			RETURNING deals_created, deals_active, images_uploaded`,
		storeID).Scan(&old.DealsCreated, &old.DealsActive, &old.ImagesUploaded)
	switch err {
	case nil:
		prev = &old
	case pgx.ErrNoRows:
	default:
		return nil, err
	}
	dealsCreated, dealsActive, imagesUploaded := carriedUsage(prev)

	const q = `INSERT INTO subscriptions (store_id, plan, status, max_deals, max_images, analytics_access, priority_support,
			deals_created, deals_active, images_uploaded)
		VALUES ($1, $2, 'active', $3, $4, $5, $6, $7, $8, $9)
		RETURNING ` + subColumns
	sub, err := scanSubscription(tx.QueryRow(ctx, q, storeID, plan,
		limits.MaxDeals, limits.MaxImages, limits.AnalyticsAccess, limits.PrioritySupport,
		dealsCreated, dealsActive, imagesUploaded))
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return sub, nil
}

// Cancel transitions the store's active subscription to cancelled.
func (r *Repository) Cancel(ctx context.Context, storeID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE subscriptions SET status = 'cancelled', updated_at = NOW() WHERE store_id = $1 AND status = 'active'`,
		storeID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("no active subscription for this store")
	}
	return nil
}

// IncrementUsage applies an atomic usage delta. For deals both dealsCreated
// and dealsActive move; for images only imagesUploaded.
func (r *Repository) IncrementUsage(ctx context.Context, id uuid.UUID, kind UsageKind, amount int) error {
	return incrementUsage(ctx, r.pool, id, kind, amount)
}

// IncrementUsageTx is IncrementUsage inside an open transaction.
func (r *Repository) IncrementUsageTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, kind UsageKind, amount int) error {
	return incrementUsage(ctx, tx, id, kind, amount)
}

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func incrementUsage(ctx context.Context, q querier, id uuid.UUID, kind UsageKind, amount int) error {
	var sql string
	switch kind {
	case UsageDeal:
		sql = `UPDATE subscriptions SET deals_created = deals_created + $2, deals_active = deals_active + $2,
			last_updated = NOW(), updated_at = NOW() WHERE id = $1`
	case UsageImage:
		sql = `UPDATE subscriptions SET images_uploaded = images_uploaded + $2,
			last_updated = NOW(), updated_at = NOW() WHERE id = $1`
	default:
		return apperr.Validation("unknown usage kind: " + string(kind))
	}
	_, err := q.Exec(ctx, sql, id, amount)
	return err
}

// DecrementUsage applies an atomic usage delta downward. dealsActive is
// floored at 0 and dealsCreated never moves (it is a permanent counter).
func (r *Repository) DecrementUsage(ctx context.Context, id uuid.UUID, kind UsageKind, amount int) error {
	return decrementUsage(ctx, r.pool, id, kind, amount)
}

// DecrementUsageTx is DecrementUsage inside an open transaction.
func (r *Repository) DecrementUsageTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, kind UsageKind, amount int) error {
	return decrementUsage(ctx, tx, id, kind, amount)
}

func decrementUsage(ctx context.Context, q querier, id uuid.UUID, kind UsageKind, amount int) error {
	var sql string
	switch kind {
	case UsageDeal:
		sql = `UPDATE subscriptions SET deals_active = GREATEST(deals_active - $2, 0),
			last_updated = NOW(), updated_at = NOW() WHERE id = $1`
	case UsageImage:
		sql = `UPDATE subscriptions SET images_uploaded = GREATEST(images_uploaded - $2, 0),
			last_updated = NOW(), updated_at = NOW() WHERE id = $1`
	default:
		return apperr.Validation("unknown usage kind: " + string(kind))
	}
	_, err := q.Exec(ctx, sql, id, amount)
	return err
}
