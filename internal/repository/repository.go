package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/iyhunko/storefront-admin/internal/model"
)

var (
	// ErrInvalidType is returned when a repository receives a resource of the wrong type.
	ErrInvalidType = errors.New("unexpected resource type")
	// ErrNotFound is returned when no resource has the requested id.
	ErrNotFound = errors.New("resource not found")
)

// Repository defines the interface for a generic repository that can manage resources.
type Repository interface {
	Create(ctx context.Context, resource Resource) (result Resource, err error)
	List(ctx context.Context, query Query) (result []Resource, err error)
	FindByID(ctx context.Context, id uuid.UUID) (result Resource, err error)
}

// Resource represents a generic resource that can be managed by the repository.
type Resource interface {
	InitMeta()
}

// EventStatusUpdater moves outbox events between statuses.
type EventStatusUpdater interface {
	UpdateStatus(ctx context.Context, eventID uuid.UUID, status model.EventStatus) error
}

// EventStore is the audit outbox. WithinTransaction runs fn against a store
// bound to one transaction, committed if fn returns nil.
type EventStore interface {
	Repository
	EventStatusUpdater
	WithinTransaction(ctx context.Context, fn func(store EventStore) error) error
}
