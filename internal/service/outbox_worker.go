package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/iyhunko/storefront-admin/internal/metrics"
	"github.com/iyhunko/storefront-admin/internal/model"
	"github.com/iyhunko/storefront-admin/internal/repository"
	"github.com/iyhunko/storefront-admin/internal/sqs"
)

const defaultOutboxBatchSize = 100

// AuditPublisher sends audit messages to the queue.
type AuditPublisher interface {
	PublishAuditMessage(ctx context.Context, msg sqs.AuditMessage) error
}

// OutboxWorker polls the events table and publishes pending events
type OutboxWorker struct {
	store     repository.EventStore
	publisher AuditPublisher
	interval  time.Duration
	batchSize int
	stopChan  chan struct{}
	stopOnce  sync.Once
}

// NewOutboxWorker creates a new OutboxWorker
func NewOutboxWorker(store repository.EventStore, publisher AuditPublisher, interval time.Duration) *OutboxWorker {
	return &OutboxWorker{
		store:     store,
		publisher: publisher,
		interval:  interval,
		batchSize: defaultOutboxBatchSize,
		stopChan:  make(chan struct{}),
	}
}

// Start begins processing events from the outbox
func (w *OutboxWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	slog.Info("Outbox worker started", slog.Duration("interval", w.interval))

	for {
		select {
		case <-ctx.Done():
			slog.Info("Outbox worker stopped by context")
			return
		case <-w.stopChan:
			slog.Info("Outbox worker stopped")
			return
		case <-ticker.C:
			if _, err := w.ProcessPending(ctx); err != nil {
				slog.Error("Failed to process pending events", slog.Any("err", err))
			}
		}
	}
}

// Stop stops the outbox worker. It is safe to call more than once.
func (w *OutboxWorker) Stop() {
	w.stopOnce.Do(func() { close(w.stopChan) })
}

// ProcessPending claims one batch of pending events, publishes them and
// marks each processed or failed. It returns the number published.
// Claimed rows stay locked until the batch commits, so concurrent workers
// never publish the same event twice.
func (w *OutboxWorker) ProcessPending(ctx context.Context) (int, error) {
	published := 0
	err := w.store.WithinTransaction(ctx, func(store repository.EventStore) error {
		query := repository.NewQuery().With(repository.StatusField, string(model.EventStatusPending))
		query.Limit = w.batchSize
		query.Ascending = true
		query.Lock = true

		resources, err := store.List(ctx, *query)
		if err != nil {
			return fmt.Errorf("failed to retrieve pending events: %w", err)
		}
		if len(resources) == 0 {
			return nil
		}

		slog.Info("Processing pending events", slog.Int("count", len(resources)))

		for _, resource := range resources {
			event, ok := resource.(*model.Event)
			if !ok {
				slog.Error("Invalid event type in outbox")
				continue
			}

			status := model.EventStatusProcessed
			if err := w.publish(ctx, event); err != nil {
				slog.Error("Failed to process event",
					slog.String("event_id", event.ID.String()),
					slog.String("event_type", event.EventType),
					slog.Any("err", err))
				status = model.EventStatusFailed
			}

			if err := store.UpdateStatus(ctx, event.ID, status); err != nil {
				return fmt.Errorf("failed to mark event %s %s: %w", event.ID, status, err)
			}
			metrics.AuditEventsPublished.WithLabelValues(string(status)).Inc()

			if status == model.EventStatusProcessed {
				published++
				slog.Info("Event processed successfully",
					slog.String("event_id", event.ID.String()),
					slog.String("event_type", event.EventType))
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return published, nil
}

// publish sends a single event to SQS
func (w *OutboxWorker) publish(ctx context.Context, event *model.Event) error {
	var msg sqs.AuditMessage
	if err := json.Unmarshal(event.EventData, &msg); err != nil {
		return fmt.Errorf("failed to decode event data: %w", err)
	}
	msg.EventID = event.ID.String()
	if msg.Action == "" {
		msg.Action = event.EventType
	}
	msg.OccurredAt = event.CreatedAt.UTC()

	return w.publisher.PublishAuditMessage(ctx, msg)
}
