package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/iyhunko/storefront-admin/internal/model"
	"github.com/iyhunko/storefront-admin/internal/repository"
	reposql "github.com/iyhunko/storefront-admin/internal/repository/sql"
	"github.com/iyhunko/storefront-admin/internal/sqs"
)

// ErrInvalidPageToken is returned when an audit page token cannot be decoded.
var ErrInvalidPageToken = repository.ErrInvalidPageToken

// AuditFilter narrows an audit listing. Empty fields match everything.
type AuditFilter struct {
	EventType string
	Status    model.EventStatus
}

// AuditLog records confirmed admin mutations into the event outbox and
// reads them back.
type AuditLog struct {
	store repository.EventStore
}

// NewAuditLog creates a new AuditLog backed by store.
func NewAuditLog(store repository.EventStore) *AuditLog {
	return &AuditLog{store: store}
}

// Record stores a pending event describing p. The outbox worker publishes it.
func (a *AuditLog) Record(ctx context.Context, eventType string, p model.Product) error {
	event, err := reposql.NewEvent(eventType, auditMessageOf(eventType, p))
	if err != nil {
		return err
	}

	if _, err := a.store.Create(ctx, event); err != nil {
		return fmt.Errorf("failed to record %s event: %w", eventType, err)
	}

	slog.Debug("Audit event recorded",
		slog.String("event_id", event.ID.String()),
		slog.String("event_type", eventType),
		slog.Int64("product_id", p.ID))
	return nil
}

// List returns one page of events, newest first, and the token of the next
// page. The token is empty on the last page.
func (a *AuditLog) List(ctx context.Context, filter AuditFilter, limit int32, token string) ([]*model.Event, string, error) {
	query := repository.NewQuery()
	if filter.EventType != "" {
		query.With(repository.EventTypeField, filter.EventType)
	}
	if filter.Status != "" {
		query.With(repository.StatusField, string(filter.Status))
	}
	if err := query.ApplyPagination(limit, token); err != nil {
		return nil, "", err
	}

	resources, err := a.store.List(ctx, *query)
	if err != nil {
		return nil, "", err
	}

	events := make([]*model.Event, 0, len(resources))
	for _, resource := range resources {
		event, ok := resource.(*model.Event)
		if !ok {
			return nil, "", repository.ErrInvalidType
		}
		events = append(events, event)
	}

	var next string
	if len(events) == query.Limit {
		last := events[len(events)-1]
		next = repository.PaginatorAfter(last.ID, last.CreatedAt).Encode()
	}
	return events, next, nil
}

// Find returns one event by id.
func (a *AuditLog) Find(ctx context.Context, id uuid.UUID) (*model.Event, error) {
	resource, err := a.store.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	event, ok := resource.(*model.Event)
	if !ok {
		return nil, repository.ErrInvalidType
	}
	return event, nil
}

func auditMessageOf(eventType string, p model.Product) sqs.AuditMessage {
	return sqs.AuditMessage{
		Action:    eventType,
		ProductID: p.ID,
		Name:      p.Name,
		Price:     p.Price.StringFixed(2),
		Quantity:  p.Quantity,
		Available: p.Available,
	}
}
