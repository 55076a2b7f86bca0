package deals

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dealspot/backend/internal/models"
	"github.com/dealspot/backend/internal/subscriptions"
	"github.com/dealspot/backend/pkg/apperr"
)

// Repository handles deal persistence.
type Repository struct {
	pool *pgxpool.Pool
	subs *subscriptions.Repository
}

// NewRepository creates a deal repository.
func NewRepository(pool *pgxpool.Pool, subs *subscriptions.Repository) *Repository {
	return &Repository{pool: pool, subs: subs}
}

const dealColumns = `id, store_id, title, description, category, type, discount,
	original_price, sale_price, currency, main_image, gallery,
	start_date, end_date, timezone,
	total_quantity, available_quantity, sold_quantity,
	min_purchase, max_per_customer, customer_type,
	is_active, is_featured, is_approved, approved_by, approved_at,
	views, clicks, saves, shares, redemptions,
	tags, terms, created_at, updated_at`

func scanDeal(row pgx.Row) (*models.Deal, error) {
	var d models.Deal
	err := row.Scan(&d.ID, &d.StoreID, &d.Title, &d.Description, &d.Category, &d.Type, &d.Discount,
		&d.OriginalPrice, &d.SalePrice, &d.Currency, &d.MainImage, &d.Gallery,
		&d.StartDate, &d.EndDate, &d.Timezone,
		&d.TotalQuantity, &d.AvailableQuantity, &d.SoldQuantity,
		&d.MinPurchase, &d.MaxPerCustomer, &d.CustomerType,
		&d.IsActive, &d.IsFeatured, &d.IsApproved, &d.ApprovedBy, &d.ApprovedAt,
		&d.Views, &d.Clicks, &d.Saves, &d.Shares, &d.Redemptions,
		&d.Tags, &d.Terms, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperr.NotFound("deal not found")
		}
		return nil, err
	}
	return &d, nil
}

func collectDeals(rows pgx.Rows) ([]*models.Deal, error) {
	defer rows.Close()
	var out []*models.Deal
	for rows.Next() {
		d, err := scanDeal(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// subscriptionGateErr maps a failed subscription lookup to the gate's
// refusal. An absent subscription is a quota failure, same as a full one.
func subscriptionGateErr(err error) error {
	if apperr.IsNotFound(err) {
		return apperr.QuotaExceeded("store has no active subscription")
	}
	return err
}

// Create inserts the deal after re-checking the store's subscription quota
// under a row lock. The quota check, the insert, the usage increment, and the
// store deal counter all commit as one transaction, so two concurrent creates
// against a nearly-full plan cannot both slip past the limit.
func (r *Repository) Create(ctx context.Context, d *models.Deal) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	sub, err := r.subs.GetActiveByStoreForUpdate(ctx, tx, d.StoreID)
	if err != nil {
		return subscriptionGateErr(err)
	}
	if !subscriptions.CanCreateDeal(sub) {
		return apperr.QuotaExceeded(fmt.Sprintf("plan limit of %d active deals reached", sub.MaxDeals))
	}

	const q = `INSERT INTO deals (store_id, title, description, category, type, discount,
			original_price, sale_price, currency, main_image, gallery,
			start_date, end_date, timezone,
			total_quantity, available_quantity,
			min_purchase, max_per_customer, customer_type,
			is_active, is_approved, tags, terms)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
			$15, $16, $17, $18, $19, $20, $21, $22, $23)
		RETURNING ` + dealColumns
	created, err := scanDeal(tx.QueryRow(ctx, q,
		d.StoreID, d.Title, d.Description, d.Category, d.Type, d.Discount,
		d.OriginalPrice, d.SalePrice, d.Currency, d.MainImage, d.Gallery,
		d.StartDate, d.EndDate, d.Timezone,
		d.TotalQuantity, d.AvailableQuantity,
		d.MinPurchase, d.MaxPerCustomer, d.CustomerType,
		d.IsActive, d.IsApproved, d.Tags, d.Terms))
	if err != nil {
		return err
	}

	if err := r.subs.IncrementUsageTx(ctx, tx, sub.ID, subscriptions.UsageDeal, 1); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx,
		`UPDATE stores SET total_deals = total_deals + 1, updated_at = NOW() WHERE id = $1`,
		d.StoreID); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}
	*d = *created
	return nil
}

// GetByID returns one deal.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Deal, error) {
	const q = `SELECT ` + dealColumns + ` FROM deals WHERE id = $1`
	return scanDeal(r.pool.QueryRow(ctx, q, id))
}

// ListFilter narrows and orders public deal browsing.
type ListFilter struct {
	Category string
	StoreID  *uuid.UUID
	Search   string
	Tag      string
	Featured bool
	// ActiveOnly restricts to deals whose derived status is active right now.
	ActiveOnly bool
	SortBy     string // newest, ending_soon, popular, biggest_discount
	Page       int
	Limit      int
}

// List returns deals matching the filter plus the total match count.
func (r *Repository) List(ctx context.Context, f ListFilter) ([]*models.Deal, int64, error) {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 || f.Limit > 100 {
		f.Limit = 12
	}

	var where []string
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.ActiveOnly {
		where = append(where,
			"is_active = TRUE", "is_approved = TRUE",
			"start_date <= NOW()", "end_date > NOW()")
	}
	if f.Category != "" {
		where = append(where, "category = "+arg(f.Category))
	}
	if f.StoreID != nil {
		where = append(where, "store_id = "+arg(*f.StoreID))
	}
	if f.Search != "" {
		p := arg("%" + f.Search + "%")
		where = append(where, "(title ILIKE "+p+" OR description ILIKE "+p+")")
	}
	if f.Tag != "" {
		where = append(where, arg(f.Tag)+" = ANY(tags)")
	}
	if f.Featured {
		where = append(where, "is_featured = TRUE")
	}

	cond := ""
	if len(where) > 0 {
		cond = " WHERE " + strings.Join(where, " AND ")
	}

	var total int64
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM deals"+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	order := "created_at DESC"
	switch f.SortBy {
	case "ending_soon":
		order = "end_date ASC"
	case "popular":
		order = "views DESC, clicks DESC"
	case "biggest_discount":
		order = "(CASE WHEN original_price > 0 THEN (original_price - sale_price) / original_price ELSE 0 END) DESC"
	}

	q := "SELECT " + dealColumns + " FROM deals" + cond +
		" ORDER BY " + order +
		" LIMIT " + arg(f.Limit) + " OFFSET " + arg((f.Page-1)*f.Limit)
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, 0, err
	}
	list, err := collectDeals(rows)
	if err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

// ListPending returns active-but-unapproved deals for the admin review queue,
// oldest first.
func (r *Repository) ListPending(ctx context.Context, page, limit int) ([]*models.Deal, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	var total int64
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM deals WHERE is_approved = FALSE AND is_active = TRUE`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.pool.Query(ctx,
		`SELECT `+dealColumns+` FROM deals WHERE is_approved = FALSE AND is_active = TRUE
			ORDER BY created_at ASC LIMIT $1 OFFSET $2`,
		limit, (page-1)*limit)
	if err != nil {
		return nil, 0, err
	}
	list, err := collectDeals(rows)
	if err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

// Update persists the allow-listed mutable fields of the deal.
func (r *Repository) Update(ctx context.Context, d *models.Deal) error {
	const q = `UPDATE deals SET
			title = $2, description = $3, category = $4, type = $5, discount = $6,
			original_price = $7, sale_price = $8, currency = $9,
			main_image = $10, gallery = $11,
			start_date = $12, end_date = $13, timezone = $14,
			total_quantity = $15, available_quantity = $16,
			min_purchase = $17, max_per_customer = $18, customer_type = $19,
			tags = $20, terms = $21, updated_at = NOW()
		WHERE id = $1`
	tag, err := r.pool.Exec(ctx, q, d.ID,
		d.Title, d.Description, d.Category, d.Type, d.Discount,
		d.OriginalPrice, d.SalePrice, d.Currency,
		d.MainImage, d.Gallery,
		d.StartDate, d.EndDate, d.Timezone,
		d.TotalQuantity, d.AvailableQuantity,
		d.MinPurchase, d.MaxPerCustomer, d.CustomerType,
		d.Tags, d.Terms)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("deal not found")
	}
	return nil
}

// Deactivate soft-disables the deal. The conditional update makes it
// idempotent: only the call that actually flips the flag releases a slot on
// the subscription, so repeated deletes cannot over-decrement dealsActive.
func (r *Repository) Deactivate(ctx context.Context, d *models.Deal) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		`UPDATE deals SET is_active = FALSE, updated_at = NOW() WHERE id = $1 AND is_active = TRUE`,
		d.ID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() > 0 {
		sub, err := r.subs.GetActiveByStoreForUpdate(ctx, tx, d.StoreID)
		if err == nil {
			if err := r.subs.DecrementUsageTx(ctx, tx, sub.ID, subscriptions.UsageDeal, 1); err != nil {
				return err
			}
		} else if !apperr.IsNotFound(err) {
			return err
		}
	}
	return tx.Commit(ctx)
}

// Approve marks the deal approved, recording who and when. Idempotent: an
// already-approved deal keeps its original approver and timestamp.
func (r *Repository) Approve(ctx context.Context, id, adminID uuid.UUID) (*models.Deal, error) {
	const q = `UPDATE deals SET is_approved = TRUE,
			approved_by = COALESCE(approved_by, $2),
			approved_at = COALESCE(approved_at, NOW()),
			updated_at = NOW()
		WHERE id = $1
		RETURNING ` + dealColumns
	return scanDeal(r.pool.QueryRow(ctx, q, id, adminID))
}

// counter columns that may be bumped through IncrementCounter.
var counterColumns = map[string]bool{
	"views": true, "clicks": true, "saves": true, "shares": true,
}

// IncrementCounter atomically bumps one engagement counter.
func (r *Repository) IncrementCounter(ctx context.Context, id uuid.UUID, column string) error {
	if !counterColumns[column] {
		return apperr.Validation("unknown counter: " + column)
	}
	q := fmt.Sprintf(`UPDATE deals SET %s = %s + 1, updated_at = NOW() WHERE id = $1`, column, column)
	_, err := r.pool.Exec(ctx, q, id)
	return err
}

// AppendGalleryImage adds an uploaded image URL to the deal's gallery.
func (r *Repository) AppendGalleryImage(ctx context.Context, id uuid.UUID, url string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE deals SET gallery = array_append(gallery, $2), updated_at = NOW() WHERE id = $1`,
		id, url)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("deal not found")
	}
	return nil
}

// SaveForUser adds the deal to the user's saved list. Returns false when it
// was already saved.
func (r *Repository) SaveForUser(ctx context.Context, userID, dealID uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`INSERT INTO saved_deals (user_id, deal_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		userID, dealID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// UnsaveForUser removes the deal from the user's saved list.
func (r *Repository) UnsaveForUser(ctx context.Context, userID, dealID uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM saved_deals WHERE user_id = $1 AND deal_id = $2`,
		userID, dealID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// CategoryCounts returns live-deal counts per category.
func (r *Repository) CategoryCounts(ctx context.Context) (map[string]int64, error) {
	const q = `SELECT category, COUNT(*) FROM deals
		WHERE is_active = TRUE AND is_approved = TRUE AND start_date <= NOW() AND end_date > NOW()
		GROUP BY category`
	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var cat string
		var n int64
		if err := rows.Scan(&cat, &n); err != nil {
			return nil, err
		}
		counts[cat] = n
	}
	return counts, rows.Err()
}
