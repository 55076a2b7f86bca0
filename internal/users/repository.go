// Package users serves customer-facing profile data: saved deals and
// favorite stores. Account identity lives in the auth package.
package users

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dealspot/backend/internal/models"
)

// Repository handles the user's saved-deal and favorite-store lists.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a users repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// SavedDeals returns the user's saved deals, most recently saved first.
func (r *Repository) SavedDeals(ctx context.Context, userID uuid.UUID) ([]*models.Deal, error) {
	const q = `SELECT d.id, d.store_id, d.title, d.description, d.category, d.type, d.discount,
			d.original_price, d.sale_price, d.currency, d.main_image, d.gallery,
			d.start_date, d.end_date, d.timezone,
			d.total_quantity, d.available_quantity, d.sold_quantity,
			d.min_purchase, d.max_per_customer, d.customer_type,
			d.is_active, d.is_featured, d.is_approved, d.approved_by, d.approved_at,
			d.views, d.clicks, d.saves, d.shares, d.redemptions,
			d.tags, d.terms, d.created_at, d.updated_at
		FROM saved_deals s JOIN deals d ON d.id = s.deal_id
		WHERE s.user_id = $1
		ORDER BY s.saved_at DESC`
	rows, err := r.pool.Query(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.Deal
	for rows.Next() {
		var d models.Deal
		err := rows.Scan(&d.ID, &d.StoreID, &d.Title, &d.Description, &d.Category, &d.Type, &d.Discount,
			&d.OriginalPrice, &d.SalePrice, &d.Currency, &d.MainImage, &d.Gallery,
			&d.StartDate, &d.EndDate, &d.Timezone,
			&d.TotalQuantity, &d.AvailableQuantity, &d.SoldQuantity,
			&d.MinPurchase, &d.MaxPerCustomer, &d.CustomerType,
			&d.IsActive, &d.IsFeatured, &d.IsApproved, &d.ApprovedBy, &d.ApprovedAt,
			&d.Views, &d.Clicks, &d.Saves, &d.Shares, &d.Redemptions,
			&d.Tags, &d.Terms, &d.CreatedAt, &d.UpdatedAt)
		if err != nil {
			return nil, err
		}
		out = append(out, &d)
	}
	return out, rows.Err()
}

// AddFavoriteStore adds a store to the user's favorites. Returns false when
// it was already a favorite.
func (r *Repository) AddFavoriteStore(ctx context.Context, userID, storeID uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`INSERT INTO favorite_stores (user_id, store_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		userID, storeID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// RemoveFavoriteStore removes a store from the user's favorites.
func (r *Repository) RemoveFavoriteStore(ctx context.Context, userID, storeID uuid.UUID) error {
	_, err := r.pool.Exec(ctx,
		`DELETE FROM favorite_stores WHERE user_id = $1 AND store_id = $2`,
		userID, storeID)
	return err
}

// FavoriteStores returns the user's favorite stores, most recently added first.
func (r *Repository) FavoriteStores(ctx context.Context, userID uuid.UUID) ([]*models.Store, error) {
	const q = `SELECT s.id, s.owner_id, s.name, s.description, s.category,
			s.email, s.phone, COALESCE(s.website,''),
			s.street, s.city, s.state, s.zip_code, s.country, s.lat, s.lng,
			COALESCE(s.logo_url,''), COALESCE(s.cover_url,''),
			s.is_verified, s.is_active, s.auto_approve_deals,
			s.rating_average, s.rating_count,
			s.total_views, s.total_clicks, s.total_deals,
			s.created_at, s.updated_at
		FROM favorite_stores f JOIN stores s ON s.id = f.store_id
		WHERE f.user_id = $1 AND s.is_active = TRUE
		ORDER BY f.added_at DESC`
	rows, err := r.pool.Query(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.Store
	for rows.Next() {
		var s models.Store
		err := rows.Scan(&s.ID, &s.OwnerID, &s.Name, &s.Description, &s.Category,
			&s.Email, &s.Phone, &s.Website,
			&s.Street, &s.City, &s.State, &s.ZipCode, &s.Country, &s.Lat, &s.Lng,
			&s.LogoURL, &s.CoverURL,
			&s.IsVerified, &s.IsActive, &s.AutoApproveDeals,
			&s.RatingAverage, &s.RatingCount,
			&s.TotalViews, &s.TotalClicks, &s.TotalDeals,
			&s.CreatedAt, &s.UpdatedAt)
		if err != nil {
			return nil, err
		}
		out = append(out, &s)
	}
	return out, rows.Err()
}
