package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskOutboxDrain publishes pending outbox events to their streams.
	TaskOutboxDrain = "outbox:drain"
	// TaskOutboxCleanup prunes published outbox events past retention.
	TaskOutboxCleanup = "outbox:cleanup"
	// TaskGLIntegrity verifies posted journals balance per period.
	TaskGLIntegrity = "gl:integrity"
)

// OutboxCleanupPayload bounds the cleanup window.
type OutboxCleanupPayload struct {
	RetentionHours int `json:"retentionHours"`
}

// NewOutboxDrainTask constructs a drain task. The drain job carries no
// payload; the dispatcher owns batch size and routing.
func NewOutboxDrainTask() *asynq.Task {
	return asynq.NewTask(TaskOutboxDrain, nil)
}

// NewOutboxCleanupTask constructs a cleanup task.
func NewOutboxCleanupTask(retentionHours int) (*asynq.Task, error) {
	data, err := json.Marshal(OutboxCleanupPayload{RetentionHours: retentionHours})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskOutboxCleanup, data), nil
}

// NewGLIntegrityTask constructs an integrity scan task.
func NewGLIntegrityTask() *asynq.Task {
	return asynq.NewTask(TaskGLIntegrity, nil)
}
