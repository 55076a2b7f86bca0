// Package reviews lets customers rate stores and keeps the store's rating
// aggregate in sync.
package reviews

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dealspot/backend/internal/models"
	"github.com/dealspot/backend/pkg/apperr"
)

// Repository handles review persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a review repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const uniqueViolation = "23505"

// Create inserts the review and recomputes the store's rating aggregate in
// the same transaction. One review per user per store.
func (r *Repository) Create(ctx context.Context, rev *models.Review) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	const q = `INSERT INTO reviews (store_id, user_id, rating, comment)
		VALUES ($1, $2, $3, $4)
		RETURNING id, store_id, user_id, rating, comment, created_at, updated_at`
	err = tx.QueryRow(ctx, q, rev.StoreID, rev.UserID, rev.Rating, rev.Comment).
		Scan(&rev.ID, &rev.StoreID, &rev.UserID, &rev.Rating, &rev.Comment, &rev.CreatedAt, &rev.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return apperr.Validation("you have already reviewed this store")
		}
		return err
	}

	if err := refreshStoreRating(ctx, tx, rev.StoreID); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// Delete removes the user's review and recomputes the store aggregate.
func (r *Repository) Delete(ctx context.Context, storeID, userID uuid.UUID) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		`DELETE FROM reviews WHERE store_id = $1 AND user_id = $2`, storeID, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("review not found")
	}
	if err := refreshStoreRating(ctx, tx, storeID); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func refreshStoreRating(ctx context.Context, tx pgx.Tx, storeID uuid.UUID) error {
	const q = `UPDATE stores SET
			rating_average = COALESCE((SELECT AVG(rating) FROM reviews WHERE store_id = $1), 0),
			rating_count = (SELECT COUNT(*) FROM reviews WHERE store_id = $1),
			updated_at = NOW()
		WHERE id = $1`
	_, err := tx.Exec(ctx, q, storeID)
	return err
}

// ListByStore returns a store's reviews, newest first.
func (r *Repository) ListByStore(ctx context.Context, storeID uuid.UUID, page, limit int) ([]*models.Review, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	var total int64
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM reviews WHERE store_id = $1`, storeID).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT id, store_id, user_id, rating, comment, created_at, updated_at
			FROM reviews WHERE store_id = $1
			ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		storeID, limit, (page-1)*limit)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var list []*models.Review
	for rows.Next() {
		var rev models.Review
		if err := rows.Scan(&rev.ID, &rev.StoreID, &rev.UserID, &rev.Rating, &rev.Comment,
			&rev.CreatedAt, &rev.UpdatedAt); err != nil {
			return nil, 0, err
		}
		list = append(list, &rev)
	}
	return list, total, rows.Err()
}
