// Package outbox implements transactional event publication. Domain
// commands enqueue events in the same database transaction as their state
// change; a background dispatcher drains PENDING rows and pushes them to the
// configured transport.
package outbox

import (
	"time"

	"github.com/google/uuid"
)

// Status enumerates outbox event states.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusPublished Status = "PUBLISHED"
	StatusFailed    Status = "FAILED"
)

// Well-known channels. Routing for every channel must be configured at
// startup; an event on an unrouted channel is a deployment error.
const (
	ChannelJournalEvents   = "finance-journal-events-out"
	ChannelPeriodEvents    = "finance-period-events-out"
	ChannelDimensionEvents = "finance-dimension-events-out"
)

// Event types carried on those channels.
const (
	EventJournalPosted    = "finance.journal.posted"
	EventPeriodFrozen     = "finance.period.frozen"
	EventPeriodReopened   = "finance.period.reopened"
	EventPeriodClosed     = "finance.period.closed"
	EventDimensionChanged = "finance.dimension.changed"
)

const maxErrorLength = 2000

// Event is one row of the outbox table.
type Event struct {
	ID            uuid.UUID
	EventType     string
	Channel       string
	Payload       []byte
	Version       int
	OccurredAt    time.Time
	RecordedAt    time.Time
	Status        Status
	FailureCount  int
	LastError     *string
	LastAttemptAt *time.Time
	PublishedAt   *time.Time
}

// MarkPublished records a successful delivery.
func (e Event) MarkPublished(now time.Time) Event {
	e.Status = StatusPublished
	e.PublishedAt = &now
	e.LastAttemptAt = &now
	e.LastError = nil
	return e
}

// MarkForRetry records a failed attempt. Once the failure count reaches
// maxAttempts the event is parked as FAILED and left for operator review.
func (e Event) MarkForRetry(cause error, maxAttempts int, now time.Time) Event {
	e.FailureCount++
	e.LastAttemptAt = &now
	msg := cause.Error()
	if len(msg) > maxErrorLength {
		msg = msg[:maxErrorLength]
	}
	e.LastError = &msg
	if e.FailureCount >= maxAttempts {
		e.Status = StatusFailed
	} else {
		e.Status = StatusPending
	}
	return e
}
