package outbox

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
)

// Transport delivers a claimed event to an external destination.
type Transport interface {
	Publish(ctx context.Context, destination string, event Event) error
}

// Routes maps an outbox channel to a transport destination (a Redis stream
// key in the default deployment).
type Routes map[string]string

// Metrics counts dispatcher outcomes.
type Metrics struct {
	published  *prometheus.CounterVec
	failed     *prometheus.CounterVec
	deadLetter prometheus.Counter
	pending    prometheus.Gauge
}

// NewMetrics registers dispatcher metrics on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		published: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "meridian_outbox_published_total",
			Help: "Outbox events delivered, by channel.",
		}, []string{"channel"}),
		failed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "meridian_outbox_publish_failures_total",
			Help: "Outbox delivery attempts that failed, by channel.",
		}, []string{"channel"}),
		deadLetter: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "meridian_outbox_dead_letter_total",
			Help: "Outbox events parked as FAILED after exhausting retries.",
		}),
		pending: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "meridian_outbox_pending_events",
			Help: "PENDING outbox events observed after the latest drain.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.published, m.failed, m.deadLetter, m.pending)
	}
	return m
}

// DispatcherConfig tunes the drain loop.
type DispatcherConfig struct {
	BatchSize   int
	MaxAttempts int
}

// Dispatcher drains PENDING events and pushes them through the transport.
type Dispatcher struct {
	db        *pgxpool.Pool
	repo      Repository
	routes    Routes
	transport Transport
	cfg       DispatcherConfig
	metrics   *Metrics
	log       *slog.Logger
	now       func() time.Time
}

// NewDispatcher validates the channel routing up front: every channel the
// engine emits on must have a destination, and starting without one is a
// configuration error rather than a runtime surprise.
func NewDispatcher(db *pgxpool.Pool, repo Repository, routes Routes, transport Transport, cfg DispatcherConfig, metrics *Metrics, log *slog.Logger) (*Dispatcher, error) {
	for _, channel := range []string{ChannelJournalEvents, ChannelPeriodEvents, ChannelDimensionEvents} {
		if routes[channel] == "" {
			return nil, fmt.Errorf("outbox: no destination configured for channel %s", channel)
		}
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	if log == nil {
		log = slog.Default()
	}
	return &Dispatcher{
		db:        db,
		repo:      repo,
		routes:    routes,
		transport: transport,
		cfg:       cfg,
		metrics:   metrics,
		log:       log,
		now:       time.Now,
	}, nil
}

// WithNow overrides the clock in tests.
func (d *Dispatcher) WithNow(now func() time.Time) {
	if now != nil {
		d.now = now
	}
}

// Drain claims one batch of PENDING events, attempts delivery, and records
// each outcome. It returns the number of events published.
func (d *Dispatcher) Drain(ctx context.Context) (int, error) {
	var published int
	tx, err := d.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, fmt.Errorf("outbox: begin drain: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	events, err := d.repo.FetchPendingForUpdate(ctx, tx, d.cfg.BatchSize)
	if err != nil {
		return 0, err
	}
	for _, event := range d.Deliver(ctx, events) {
		if event.Status == StatusPublished {
			published++
		}
		if err := d.repo.UpdateTx(ctx, tx, event); err != nil {
			return published, err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return published, fmt.Errorf("outbox: commit drain: %w", err)
	}
	if d.metrics != nil {
		if remaining, err := d.repo.CountByStatus(ctx, StatusPending); err == nil {
			d.metrics.pending.Set(float64(remaining))
		}
	}
	return published, nil
}

// Deliver routes each event and returns the updated rows. Routing cannot
// fail for known channels; an unknown channel on a stored row means the
// binary emitting it and the binary draining it disagree, so the event is
// marked for retry and logged loudly instead of being dropped.
func (d *Dispatcher) Deliver(ctx context.Context, events []Event) []Event {
	updated := make([]Event, 0, len(events))
	for _, event := range events {
		destination, ok := d.routes[event.Channel]
		if !ok {
			d.log.Error("outbox channel has no route",
				slog.String("channel", event.Channel),
				slog.String("event_id", event.ID.String()))
			updated = append(updated, d.recordFailure(event, fmt.Errorf("no route for channel %s", event.Channel)))
			continue
		}
		if err := d.transport.Publish(ctx, destination, event); err != nil {
			d.log.Warn("outbox publish failed",
				slog.String("channel", event.Channel),
				slog.String("event_id", event.ID.String()),
				slog.String("error", err.Error()))
			updated = append(updated, d.recordFailure(event, err))
			continue
		}
		if d.metrics != nil {
			d.metrics.published.WithLabelValues(event.Channel).Inc()
		}
		updated = append(updated, event.MarkPublished(d.now()))
	}
	return updated
}

func (d *Dispatcher) recordFailure(event Event, cause error) Event {
	if d.metrics != nil {
		d.metrics.failed.WithLabelValues(event.Channel).Inc()
	}
	retried := event.MarkForRetry(cause, d.cfg.MaxAttempts, d.now())
	if retried.Status == StatusFailed {
		if d.metrics != nil {
			d.metrics.deadLetter.Inc()
		}
		d.log.Error("outbox event dead-lettered",
			slog.String("event_id", event.ID.String()),
			slog.Int("attempts", retried.FailureCount))
	}
	return retried
}
