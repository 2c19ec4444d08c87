package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// EventStatus represents the status of an event in the outbox pattern.
type EventStatus string

const (
	// EventStatusPending indicates the event has been recorded but not yet published
	EventStatusPending EventStatus = "pending"
	// EventStatusProcessed indicates the event has been published
	EventStatusProcessed EventStatus = "processed"
	// EventStatusFailed indicates publishing the event has failed
	EventStatusFailed EventStatus = "failed"
)

// Audit event types recorded for confirmed admin mutations.
const (
	EventProductCreated     = "product.created"
	EventProductUpdated     = "product.updated"
	EventProductDeleted     = "product.deleted"
	EventAvailabilityToggle = "product.availability_toggled"
)

// Event is an audit record of an admin mutation waiting in the outbox.
type Event struct {
	ID          uuid.UUID
	EventType   string
	EventData   json.RawMessage
	Status      EventStatus
	CreatedAt   time.Time
	ProcessedAt *time.Time
}

// InitMeta initializes the event metadata including ID and timestamps.
func (e *Event) InitMeta() {
	e.ID = uuid.New()
	e.CreatedAt = time.Now()
	if e.Status == "" {
		e.Status = EventStatusPending
	}
}
