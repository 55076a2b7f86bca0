// Package analytics records append-only engagement events and serves the
// reporting endpoints built on top of them.
package analytics

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dealspot/backend/internal/models"
	"github.com/dealspot/backend/pkg/queue"
)

// Recorder enqueues analytics events. Recording is fire-and-forget: failures
// are logged and swallowed so they never abort the primary operation.
type Recorder struct {
	queue  *queue.Queue
	logger *zap.Logger
}

// NewRecorder creates an event recorder.
func NewRecorder(q *queue.Queue, logger *zap.Logger) *Recorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Recorder{queue: q, logger: logger}
}

// Record enqueues one event, best effort.
func (r *Recorder) Record(ctx context.Context, entityType string, entityID uuid.UUID, eventType string, userID *uuid.UUID, metadata map[string]interface{}) {
	var meta json.RawMessage
	if len(metadata) > 0 {
		if b, err := json.Marshal(metadata); err == nil {
			meta = b
		}
	}
	payload := queue.EventPayload{
		EntityType: entityType,
		EntityID:   entityID,
		EventType:  eventType,
		UserID:     userID,
		Metadata:   meta,
		OccurredAt: time.Now(),
	}
	if err := r.queue.EnqueueEvent(ctx, payload); err != nil {
		r.logger.Warn("analytics event dropped",
			zap.Error(err),
			zap.String("event_type", eventType),
			zap.String("entity_id", entityID.String()))
	}
}

// RecordDealEvent records an event against a deal, tagging the owning store.
func (r *Recorder) RecordDealEvent(ctx context.Context, eventType string, dealID, storeID uuid.UUID, userID *uuid.UUID) {
	r.Record(ctx, models.EntityDeal, dealID, eventType, userID, map[string]interface{}{
		"store_id": storeID.String(),
	})
}

// RecordStoreEvent records an event against a store.
func (r *Recorder) RecordStoreEvent(ctx context.Context, eventType string, storeID uuid.UUID, userID *uuid.UUID) {
	r.Record(ctx, models.EntityStore, storeID, eventType, userID, nil)
}

// RecordUserEvent records an event against a user.
func (r *Recorder) RecordUserEvent(ctx context.Context, eventType string, userID uuid.UUID) {
	r.Record(ctx, models.EntityUser, userID, eventType, &userID, nil)
}
