package service_test

import (
	"context"

	"github.com/google/uuid"
	"github.com/iyhunko/storefront-admin/internal/model"
	"github.com/iyhunko/storefront-admin/internal/repository"
	"github.com/iyhunko/storefront-admin/internal/sqs"
	"github.com/stretchr/testify/mock"
)

// MockEventStore is a mock implementation of repository.EventStore
type MockEventStore struct {
	mock.Mock
}

func (m *MockEventStore) Create(ctx context.Context, resource repository.Resource) (repository.Resource, error) {
	args := m.Called(ctx, resource)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(repository.Resource), args.Error(1)
}

func (m *MockEventStore) FindByID(ctx context.Context, id uuid.UUID) (repository.Resource, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(repository.Resource), args.Error(1)
}

func (m *MockEventStore) List(ctx context.Context, query repository.Query) ([]repository.Resource, error) {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]repository.Resource), args.Error(1)
}

func (m *MockEventStore) UpdateStatus(ctx context.Context, eventID uuid.UUID, status model.EventStatus) error {
	args := m.Called(ctx, eventID, status)
	return args.Error(0)
}

// WithinTransaction runs fn against the mock itself.
func (m *MockEventStore) WithinTransaction(ctx context.Context, fn func(store repository.EventStore) error) error {
	m.Called(ctx)
	return fn(m)
}

// MockPublisher is a mock implementation of the SQS audit publisher
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) PublishAuditMessage(ctx context.Context, msg sqs.AuditMessage) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}
