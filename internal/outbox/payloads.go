package outbox

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// JournalLinePayload mirrors one journal line in the posted event.
type JournalLinePayload struct {
	AccountID      uuid.UUID  `json:"accountId"`
	Direction      string     `json:"direction"`
	AmountMinor    int64      `json:"amountMinor"`
	Currency       string     `json:"currency"`
	Description    *string    `json:"description"`
	CostCenterID   *uuid.UUID `json:"costCenterId,omitempty"`
	ProfitCenterID *uuid.UUID `json:"profitCenterId,omitempty"`
	DepartmentID   *uuid.UUID `json:"departmentId,omitempty"`
	ProjectID      *uuid.UUID `json:"projectId,omitempty"`
	BusinessAreaID *uuid.UUID `json:"businessAreaId,omitempty"`
}

// JournalPostedPayload is the contract for finance.journal.posted.
type JournalPostedPayload struct {
	EventID           uuid.UUID            `json:"eventId"`
	EventType         string               `json:"eventType"`
	Version           int                  `json:"version"`
	OccurredAt        time.Time            `json:"occurredAt"`
	TenantID          uuid.UUID            `json:"tenantId"`
	LedgerID          uuid.UUID            `json:"ledgerId"`
	JournalEntryID    uuid.UUID            `json:"journalEntryId"`
	PeriodID          uuid.UUID            `json:"periodId"`
	Reference         *string              `json:"reference"`
	Description       *string              `json:"description"`
	TotalDebitsMinor  int64                `json:"totalDebitsMinor"`
	TotalCreditsMinor int64                `json:"totalCreditsMinor"`
	Currency          string               `json:"currency"`
	Lines             []JournalLinePayload `json:"lines"`
}

// PeriodStatusPayload is the contract for finance.period.* events.
type PeriodStatusPayload struct {
	EventID        uuid.UUID `json:"eventId"`
	EventType      string    `json:"eventType"`
	Version        int       `json:"version"`
	OccurredAt     time.Time `json:"occurredAt"`
	TenantID       uuid.UUID `json:"tenantId"`
	LedgerID       uuid.UUID `json:"ledgerId"`
	PeriodID       uuid.UUID `json:"periodId"`
	PeriodCode     string    `json:"periodCode"`
	PreviousStatus string    `json:"previousStatus"`
	CurrentStatus  string    `json:"currentStatus"`
	FreezeOnly     bool      `json:"freezeOnly"`
}

// DimensionChangedPayload is the contract for finance.dimension.changed.
type DimensionChangedPayload struct {
	EventID       uuid.UUID  `json:"eventId"`
	EventType     string     `json:"eventType"`
	Version       int        `json:"version"`
	OccurredAt    time.Time  `json:"occurredAt"`
	TenantID      uuid.UUID  `json:"tenantId"`
	DimensionID   uuid.UUID  `json:"dimensionId"`
	CompanyCodeID uuid.UUID  `json:"companyCodeId"`
	DimensionType string     `json:"dimensionType"`
	Action        string     `json:"action"`
	Code          string     `json:"code"`
	Name          string     `json:"name"`
	Status        string     `json:"status"`
	ValidFrom     time.Time  `json:"validFrom"`
	ValidTo       *time.Time `json:"validTo"`
}

// NewJournalPostedEvent wraps a journal payload as a PENDING outbox row.
func NewJournalPostedEvent(p JournalPostedPayload, now time.Time) (Event, error) {
	p.EventID = uuid.New()
	p.EventType = EventJournalPosted
	if p.Version == 0 {
		p.Version = 1
	}
	return newEvent(p.EventType, ChannelJournalEvents, p, p.Version, p.OccurredAt, now)
}

// NewPeriodStatusEvent wraps a period payload as a PENDING outbox row. The
// event type is derived from the transition.
func NewPeriodStatusEvent(p PeriodStatusPayload, now time.Time) (Event, error) {
	p.EventID = uuid.New()
	switch p.CurrentStatus {
	case "FROZEN":
		p.EventType = EventPeriodFrozen
	case "CLOSED":
		p.EventType = EventPeriodClosed
	case "OPEN":
		p.EventType = EventPeriodReopened
	default:
		return Event{}, fmt.Errorf("outbox: unknown period status %q", p.CurrentStatus)
	}
	if p.Version == 0 {
		p.Version = 1
	}
	return newEvent(p.EventType, ChannelPeriodEvents, p, p.Version, p.OccurredAt, now)
}

// NewDimensionChangedEvent wraps a dimension payload as a PENDING outbox row.
func NewDimensionChangedEvent(p DimensionChangedPayload, now time.Time) (Event, error) {
	p.EventID = uuid.New()
	p.EventType = EventDimensionChanged
	if p.Version == 0 {
		p.Version = 1
	}
	return newEvent(p.EventType, ChannelDimensionEvents, p, p.Version, p.OccurredAt, now)
}

func newEvent(eventType, channel string, payload any, version int, occurredAt, now time.Time) (Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("outbox: marshal %s: %w", eventType, err)
	}
	if occurredAt.IsZero() {
		occurredAt = now
	}
	return Event{
		ID:         uuid.New(),
		EventType:  eventType,
		Channel:    channel,
		Payload:    raw,
		Version:    version,
		OccurredAt: occurredAt,
		RecordedAt: now,
		Status:     StatusPending,
	}, nil
}
