// Package worker drains the analytics event queue into the event log.
package worker

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/dealspot/backend/internal/analytics"
	"github.com/dealspot/backend/pkg/queue"
)

// EventProcessor consumes analytics event jobs and appends them to the
// events table. Failed jobs are retried with backoff and eventually parked in
// the dead-letter queue.
type EventProcessor struct {
	queue  *queue.Queue
	repo   *analytics.Repository
	logger *zap.Logger
}

// NewEventProcessor creates an event processor.
func NewEventProcessor(q *queue.Queue, repo *analytics.Repository, logger *zap.Logger) *EventProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EventProcessor{queue: q, repo: repo, logger: logger}
}

// Run blocks processing jobs until ctx is cancelled.
func (p *EventProcessor) Run(ctx context.Context) {
	p.logger.Info("event processor started")
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("event processor stopping")
			return
		default:
		}

		job, err := p.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			p.logger.Error("dequeue failed", zap.Error(err))
			time.Sleep(time.Second)
			continue
		}
		if job == nil {
			continue
		}
		p.process(ctx, job)
	}
}

func (p *EventProcessor) process(ctx context.Context, job *queue.Job) {
	if job.Type != queue.JobTypeEvent {
		p.logger.Warn("unknown job type", zap.String("job_id", job.ID), zap.String("type", string(job.Type)))
		return
	}

	var payload queue.EventPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		p.logger.Warn("malformed event payload, dropping",
			zap.String("job_id", job.ID), zap.Error(err))
		return
	}

	if err := p.repo.InsertEvent(ctx, payload); err != nil {
		p.logger.Error("insert event failed",
			zap.String("job_id", job.ID),
			zap.String("event_type", payload.EventType),
			zap.Error(err))
		if rerr := p.queue.Retry(ctx, job); rerr != nil {
			p.logger.Error("retry failed", zap.String("job_id", job.ID), zap.Error(rerr))
		}
		time.Sleep(queue.RetryBackoff)
		return
	}

	p.logger.Debug("event recorded",
		zap.String("job_id", job.ID),
		zap.String("event_type", payload.EventType),
		zap.String("entity_id", payload.EntityID.String()))
}
