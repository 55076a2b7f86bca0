package stores

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dealspot/backend/internal/models"
	"github.com/dealspot/backend/pkg/apperr"
)

// Repository handles store persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a store repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const storeColumns = `id, owner_id, name, description, category, email, phone, COALESCE(website,''),
	street, city, state, zip_code, country, lat, lng, COALESCE(logo_url,''), COALESCE(cover_url,''),
	is_verified, is_active, auto_approve_deals, rating_average, rating_count,
	total_views, total_clicks, total_deals, created_at, updated_at`

func scanStore(row pgx.Row) (*models.Store, error) {
	var s models.Store
	err := row.Scan(&s.ID, &s.OwnerID, &s.Name, &s.Description, &s.Category, &s.Email, &s.Phone, &s.Website,
		&s.Street, &s.City, &s.State, &s.ZipCode, &s.Country, &s.Lat, &s.Lng, &s.LogoURL, &s.CoverURL,
		&s.IsVerified, &s.IsActive, &s.AutoApproveDeals, &s.RatingAverage, &s.RatingCount,
		&s.TotalViews, &s.TotalClicks, &s.TotalDeals, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperr.NotFound("store not found")
		}
		return nil, err
	}
	return &s, nil
}

// GetByID returns a store by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Store, error) {
	return scanStore(r.pool.QueryRow(ctx, `SELECT `+storeColumns+` FROM stores WHERE id = $1`, id))
}

// Create inserts a new store.
func (r *Repository) Create(ctx context.Context, s *models.Store) error {
	const q = `INSERT INTO stores (owner_id, name, description, category, email, phone, website,
			street, city, state, zip_code, country, lat, lng, logo_url, cover_url)
		VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7,''), $8, $9, $10, $11, $12, $13, $14, NULLIF($15,''), NULLIF($16,''))
		RETURNING id, is_verified, is_active, auto_approve_deals, rating_average, rating_count,
			total_views, total_clicks, total_deals, created_at, updated_at`
	return r.pool.QueryRow(ctx, q, s.OwnerID, s.Name, s.Description, s.Category, s.Email, s.Phone, s.Website,
		s.Street, s.City, s.State, s.ZipCode, s.Country, s.Lat, s.Lng, s.LogoURL, s.CoverURL).
		Scan(&s.ID, &s.IsVerified, &s.IsActive, &s.AutoApproveDeals, &s.RatingAverage, &s.RatingCount,
			&s.TotalViews, &s.TotalClicks, &s.TotalDeals, &s.CreatedAt, &s.UpdatedAt)
}

// ListFilter narrows List results.
type ListFilter struct {
	Category string
	City     string
	Search   string
	Page     int
	Limit    int
}

// List returns active stores with optional filters and pagination, plus the
// total match count.
func (r *Repository) List(ctx context.Context, f ListFilter) ([]models.Store, int, error) {
	where := " WHERE is_active = TRUE"
	var args []interface{}
	if f.Category != "" {
		args = append(args, f.Category)
		where += fmt.Sprintf(" AND category = $%d", len(args))
	}
	if f.City != "" {
		args = append(args, f.City)
		where += fmt.Sprintf(" AND LOWER(city) = LOWER($%d)", len(args))
	}
	if f.Search != "" {
		args = append(args, "%"+f.Search+"%")
		where += fmt.Sprintf(" AND (name ILIKE $%d OR description ILIKE $%d)", len(args), len(args))
	}

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM stores"+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := f.Limit
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	page := f.Page
	if page < 1 {
		page = 1
	}
	args = append(args, limit, (page-1)*limit)
	q := "SELECT " + storeColumns + " FROM stores" + where +
		fmt.Sprintf(" ORDER BY name LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var list []models.Store
	for rows.Next() {
		s, err := scanStore(rows)
		if err != nil {
			return nil, 0, err
		}
		list = append(list, *s)
	}
	return list, total, rows.Err()
}

// Update updates store profile fields.
func (r *Repository) Update(ctx context.Context, s *models.Store) error {
	const q = `UPDATE stores SET name = $2, description = $3, category = $4, email = $5, phone = $6,
		website = NULLIF($7,''), street = $8, city = $9, state = $10, zip_code = $11, country = $12,
		lat = $13, lng = $14, logo_url = NULLIF($15,''), cover_url = NULLIF($16,''), updated_at = NOW()
		WHERE id = $1 RETURNING updated_at`
	return r.pool.QueryRow(ctx, q, s.ID, s.Name, s.Description, s.Category, s.Email, s.Phone, s.Website,
		s.Street, s.City, s.State, s.ZipCode, s.Country, s.Lat, s.Lng, s.LogoURL, s.CoverURL).Scan(&s.UpdatedAt)
}

// Deactivate soft-disables a store. Never deletes the record.
func (r *Repository) Deactivate(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `UPDATE stores SET is_active = FALSE, updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("store not found")
	}
	return nil
}

// IncrementViews applies an atomic delta to the store's view counter.
func (r *Repository) IncrementViews(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `UPDATE stores SET total_views = total_views + 1 WHERE id = $1`, id)
	return err
}

// IncrementClicks applies an atomic delta to the store's click counter.
func (r *Repository) IncrementClicks(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `UPDATE stores SET total_clicks = total_clicks + 1 WHERE id = $1`, id)
	return err
}

// CategoryCounts returns active store counts grouped by category.
func (r *Repository) CategoryCounts(ctx context.Context) (map[string]int, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT category, COUNT(*) FROM stores WHERE is_active = TRUE GROUP BY category ORDER BY COUNT(*) DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var cat string
		var n int
		if err := rows.Scan(&cat, &n); err != nil {
			return nil, err
		}
		counts[cat] = n
	}
	return counts, rows.Err()
}
