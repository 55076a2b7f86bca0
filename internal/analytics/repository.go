package analytics

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dealspot/backend/pkg/queue"
)

// Repository persists and aggregates analytics events.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an analytics repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// InsertEvent appends one event to the log. Called by the worker, not by
// request handlers.
func (r *Repository) InsertEvent(ctx context.Context, e queue.EventPayload) error {
	const q = `INSERT INTO analytics_events (entity_type, entity_id, event_type, user_id, metadata, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := r.pool.Exec(ctx, q, e.EntityType, e.EntityID, e.EventType, e.UserID, e.Metadata, e.OccurredAt)
	return err
}

// EventCounts returns per-event-type counts for an entity since the given time.
func (r *Repository) EventCounts(ctx context.Context, entityType string, entityID uuid.UUID, since time.Time) (map[string]int64, error) {
	const q = `SELECT event_type, COUNT(*) FROM analytics_events
		WHERE entity_type = $1 AND entity_id = $2 AND occurred_at >= $3
		GROUP BY event_type`
	rows, err := r.pool.Query(ctx, q, entityType, entityID, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var et string
		var n int64
		if err := rows.Scan(&et, &n); err != nil {
			return nil, err
		}
		counts[et] = n
	}
	return counts, rows.Err()
}

// DailyCount is one day's event total.
type DailyCount struct {
	Day   time.Time `json:"day"`
	Count int64     `json:"count"`
}

// DailySeries returns a per-day event series for an entity and event type.
func (r *Repository) DailySeries(ctx context.Context, entityType string, entityID uuid.UUID, eventType string, since time.Time) ([]DailyCount, error) {
	const q = `SELECT date_trunc('day', occurred_at) AS day, COUNT(*)
		FROM analytics_events
		WHERE entity_type = $1 AND entity_id = $2 AND event_type = $3 AND occurred_at >= $4
		GROUP BY day ORDER BY day`
	rows, err := r.pool.Query(ctx, q, entityType, entityID, eventType, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var series []DailyCount
	for rows.Next() {
		var d DailyCount
		if err := rows.Scan(&d.Day, &d.Count); err != nil {
			return nil, err
		}
		series = append(series, d)
	}
	return series, rows.Err()
}

// PlatformSummary is the admin dashboard roll-up.
type PlatformSummary struct {
	TotalUsers       int64 `json:"total_users"`
	TotalStores      int64 `json:"total_stores"`
	TotalDeals       int64 `json:"total_deals"`
	PendingDeals     int64 `json:"pending_deals"`
	TotalRedemptions int64 `json:"total_redemptions"`
}

// Summary returns platform-wide counts for the admin dashboard.
// TotalRedemptions counts consumed codes only.
func (r *Repository) Summary(ctx context.Context) (*PlatformSummary, error) {
	const q = `SELECT
		(SELECT COUNT(*) FROM users),
		(SELECT COUNT(*) FROM stores WHERE is_active = TRUE),
		(SELECT COUNT(*) FROM deals),
		(SELECT COUNT(*) FROM deals WHERE is_approved = FALSE AND is_active = TRUE),
		(SELECT COUNT(*) FROM redemptions WHERE status = 'used')`
	var s PlatformSummary
	err := r.pool.QueryRow(ctx, q).Scan(&s.TotalUsers, &s.TotalStores, &s.TotalDeals, &s.PendingDeals, &s.TotalRedemptions)
	if err != nil {
		return nil, err
	}
	return &s, nil
}
