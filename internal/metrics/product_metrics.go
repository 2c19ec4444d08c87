package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ProductsCreated counts products created through the admin console.
	ProductsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "products_created_total",
		Help: "The total number of products created",
	})

	// ProductsUpdated counts confirmed product updates, availability toggles included.
	ProductsUpdated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "products_updated_total",
		Help: "The total number of products updated",
	})

	// ProductsDeleted counts products deleted through the admin console.
	ProductsDeleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "products_deleted_total",
		Help: "The total number of products deleted",
	})

	// StoreAPIFailures counts failed remote store calls by failure kind.
	StoreAPIFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "store_api_failures_total",
		Help: "The total number of failed remote store calls",
	}, []string{"kind"})

	// AuditEventsPublished counts outbox events handled by the outbox worker by outcome.
	AuditEventsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "audit_events_published_total",
		Help: "The total number of audit events taken from the outbox",
	}, []string{"status"})
)
