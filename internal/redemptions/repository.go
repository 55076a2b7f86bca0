package redemptions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dealspot/backend/internal/models"
	"github.com/dealspot/backend/pkg/apperr"
)

// Repository handles redemption persistence. Status transitions are always
// conditional updates on the current status, never read-then-write, so
// concurrent callers cannot both take the same transition.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a redemption repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const redemptionColumns = `id, deal_id, store_id, customer_id, code, status,
	used_at, used_by, COALESCE(used_ip, ''), used_lat, used_lng,
	original_price, final_price, savings,
	expires_at, created_at, updated_at`

func scanRedemption(row pgx.Row) (*models.Redemption, error) {
	var r models.Redemption
	err := row.Scan(&r.ID, &r.DealID, &r.StoreID, &r.CustomerID, &r.Code, &r.Status,
		&r.UsedAt, &r.UsedBy, &r.UsedIP, &r.UsedLat, &r.UsedLng,
		&r.OriginalPrice, &r.FinalPrice, &r.Savings,
		&r.ExpiresAt, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperr.NotFound("redemption not found")
		}
		return nil, err
	}
	return &r, nil
}

const uniqueViolation = "23505"

// Issue inserts a new active redemption with a freshly generated code,
// retrying on the unlikely code collision.
func (r *Repository) Issue(ctx context.Context, red *models.Redemption) error {
	const q = `INSERT INTO redemptions (deal_id, store_id, customer_id, code, original_price, final_price, savings, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING ` + redemptionColumns

	for attempt := 0; attempt < 5; attempt++ {
		code, err := GenerateCode()
		if err != nil {
			return err
		}
		created, err := scanRedemption(r.pool.QueryRow(ctx, q,
			red.DealID, red.StoreID, red.CustomerID, code,
			red.OriginalPrice, red.FinalPrice, red.Savings, red.ExpiresAt))
		if err == nil {
			*red = *created
			return nil
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			continue
		}
		return err
	}
	return errors.New("could not generate a unique redemption code")
}

// GetByCode returns the redemption for a code scoped to the issuing store.
// Cross-store codes never match.
func (r *Repository) GetByCode(ctx context.Context, code string, storeID uuid.UUID) (*models.Redemption, error) {
	const q = `SELECT ` + redemptionColumns + ` FROM redemptions WHERE code = $1 AND store_id = $2`
	return scanRedemption(r.pool.QueryRow(ctx, q, code, storeID))
}

// GetByID returns one redemption.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Redemption, error) {
	const q = `SELECT ` + redemptionColumns + ` FROM redemptions WHERE id = $1`
	return scanRedemption(r.pool.QueryRow(ctx, q, id))
}

// lazyExpire flips an active-but-overdue redemption to expired. Conditional
// on status, so only the first observer mutates.
func (r *Repository) lazyExpire(ctx context.Context, id uuid.UUID) {
	_, _ = r.pool.Exec(ctx,
		`UPDATE redemptions SET status = 'expired', updated_at = NOW()
			WHERE id = $1 AND status = 'active' AND expires_at <= NOW()`,
		id)
}

// classify turns a failed consume or validate lookup into the right error for
// the code's actual state, lazily expiring overdue codes as a side effect.
func (r *Repository) classify(ctx context.Context, code string, storeID uuid.UUID) error {
	red, err := r.GetByCode(ctx, code, storeID)
	if err != nil {
		return err
	}
	now := time.Now()
	if red.Status == models.RedemptionActive && !red.ExpiresAt.After(now) {
		r.lazyExpire(ctx, red.ID)
	}
	return classifyState(red, now)
}

// UsageStamp carries the point-of-sale context recorded at consumption.
type UsageStamp struct {
	ConsumerID uuid.UUID
	IP         string
	Lat        *float64
	Lng        *float64
}

// Consume transitions the code from active to used. The transition is a
// single compare-and-swap update: of any number of concurrent callers exactly
// one sees a row change, and only that winner's usage fields are stamped. The
// deal's redemption and inventory counters move in the same transaction.
func (r *Repository) Consume(ctx context.Context, code string, storeID uuid.UUID, stamp UsageStamp) (*models.Redemption, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	const cas = `UPDATE redemptions SET status = 'used',
			used_at = NOW(), used_by = $3, used_ip = $4, used_lat = $5, used_lng = $6,
			updated_at = NOW()
		WHERE code = $1 AND store_id = $2 AND status = 'active' AND expires_at > NOW()
		RETURNING ` + redemptionColumns
	red, err := scanRedemption(tx.QueryRow(ctx, cas, code, storeID,
		stamp.ConsumerID, stamp.IP, stamp.Lat, stamp.Lng))
	if err != nil {
		if apperr.IsNotFound(err) {
			// lost the race or the code is not consumable; report why
			return nil, r.classify(ctx, code, storeID)
		}
		return nil, err
	}

	if _, err := tx.Exec(ctx,
		`UPDATE deals SET redemptions = redemptions + 1,
			sold_quantity = sold_quantity + 1,
			available_quantity = CASE WHEN available_quantity IS NULL THEN NULL
				ELSE GREATEST(available_quantity - 1, 0) END,
			updated_at = NOW()
		WHERE id = $1`, red.DealID); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return red, nil
}

// Validate is the read-only point-of-sale lookup. It succeeds only for
// active, unexpired codes; overdue codes are lazily expired and reported as
// such.
func (r *Repository) Validate(ctx context.Context, code string, storeID uuid.UUID) (*models.Redemption, error) {
	red, err := r.GetByCode(ctx, code, storeID)
	if err != nil {
		return nil, err
	}
	if red.Status == models.RedemptionActive && red.ExpiresAt.After(time.Now()) {
		return red, nil
	}
	return nil, r.classify(ctx, code, storeID)
}

// Cancel transitions a customer's own active code to cancelled.
func (r *Repository) Cancel(ctx context.Context, id, customerID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE redemptions SET status = 'cancelled', updated_at = NOW()
			WHERE id = $1 AND customer_id = $2 AND status = 'active'`,
		id, customerID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	red, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if red.CustomerID != customerID {
		return apperr.Authorization("not your redemption")
	}
	return apperr.InvalidState("redemption is not active")
}

// CountForDealCustomer returns how many non-cancelled claims the customer
// holds on the deal. Used to enforce per-customer limits.
func (r *Repository) CountForDealCustomer(ctx context.Context, dealID, customerID uuid.UUID) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM redemptions
			WHERE deal_id = $1 AND customer_id = $2 AND status <> 'cancelled'`,
		dealID, customerID).Scan(&n)
	return n, err
}

// ListByCustomer returns a customer's redemptions, newest first, optionally
// filtered by status.
func (r *Repository) ListByCustomer(ctx context.Context, customerID uuid.UUID, status models.RedemptionStatus, page, limit int) ([]*models.Redemption, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	where := `WHERE customer_id = $1`
	args := []any{customerID}
	if status != "" {
		where += ` AND status = $2`
		args = append(args, status)
	}

	var total int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM redemptions `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, limit, (page-1)*limit)
	q := fmt.Sprintf(`SELECT %s FROM redemptions %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		redemptionColumns, where, len(args)-1, len(args))
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var list []*models.Redemption
	for rows.Next() {
		red, err := scanRedemption(rows)
		if err != nil {
			return nil, 0, err
		}
		list = append(list, red)
	}
	return list, total, rows.Err()
}
