package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/meridian-erp/meridian/internal/outbox"
)

// OutboxDrainJob publishes pending outbox events in batches.
type OutboxDrainJob struct {
	dispatcher *outbox.Dispatcher
	logger     *slog.Logger
}

// NewOutboxDrainJob constructs the drain job.
func NewOutboxDrainJob(dispatcher *outbox.Dispatcher, logger *slog.Logger) *OutboxDrainJob {
	return &OutboxDrainJob{dispatcher: dispatcher, logger: logger}
}

// Handle processes TaskOutboxDrain tasks. It keeps draining until a batch
// comes back empty so a single tick clears a backlog.
func (j *OutboxDrainJob) Handle(ctx context.Context, t *asynq.Task) error {
	total := 0
	for {
		n, err := j.dispatcher.Drain(ctx)
		if err != nil {
			j.logger.Error("outbox drain", slog.Any("error", err))
			return err
		}
		total += n
		if n == 0 {
			break
		}
	}
	if total > 0 {
		j.logger.Info("outbox drained", slog.Int("events", total))
	}
	return nil
}

// OutboxCleanupJob prunes published events past the retention window.
type OutboxCleanupJob struct {
	repo      outbox.Repository
	logger    *slog.Logger
	retention time.Duration
	now       func() time.Time
}

// NewOutboxCleanupJob constructs the cleanup job.
func NewOutboxCleanupJob(repo outbox.Repository, retention time.Duration, logger *slog.Logger) *OutboxCleanupJob {
	return &OutboxCleanupJob{repo: repo, logger: logger, retention: retention, now: time.Now}
}

// Handle processes TaskOutboxCleanup tasks. A payload retention overrides
// the configured default.
func (j *OutboxCleanupJob) Handle(ctx context.Context, t *asynq.Task) error {
	retention := j.retention
	if len(t.Payload()) > 0 {
		var payload OutboxCleanupPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		if payload.RetentionHours > 0 {
			retention = time.Duration(payload.RetentionHours) * time.Hour
		}
	}
	cutoff := j.now().Add(-retention)
	deleted, err := j.repo.DeletePublishedBefore(ctx, cutoff)
	if err != nil {
		j.logger.Error("outbox cleanup", slog.Any("error", err))
		return err
	}
	if deleted > 0 {
		j.logger.Info("outbox cleanup", slog.Int64("deleted", deleted), slog.Time("cutoff", cutoff))
	}
	return nil
}
