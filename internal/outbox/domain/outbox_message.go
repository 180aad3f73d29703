// Package domain defines the core outbox domain entities and types.
package domain

import (
	"time"

	"github.com/google/uuid"

	"github.com/allisson/food-ordering-saga/internal/saga"
)

// OutboxMessageStatus represents the status of an outbox message
type OutboxMessageStatus string

const (
	// OutboxMessageStatusStarted marks a message written in the same transaction
	// as the aggregate change, waiting to be published.
	OutboxMessageStatusStarted OutboxMessageStatus = "started"
	// OutboxMessageStatusCompleted marks a message acknowledged by the bus.
	OutboxMessageStatusCompleted OutboxMessageStatus = "completed"
	// OutboxMessageStatusFailed marks a message that exhausted its publish
	// retries and needs operator attention.
	OutboxMessageStatusFailed OutboxMessageStatus = "failed"
)

// OutboxMessage represents a message in the transactional outbox pattern.
// A row is written atomically with the aggregate mutation it describes and is
// only ever mutated by the owning service's relay.
type OutboxMessage struct {
	ID          uuid.UUID
	SagaID      uuid.UUID
	Type        saga.MessageType
	Payload     string
	Status      OutboxMessageStatus
	Retries     int
	LastError   *string
	ProcessedAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// New creates a started outbox message for the given saga and message type.
func New(sagaID uuid.UUID, messageType saga.MessageType, payload string) *OutboxMessage {
	return &OutboxMessage{
		ID:      uuid.Must(uuid.NewV7()),
		SagaID:  sagaID,
		Type:    messageType,
		Payload: payload,
		Status:  OutboxMessageStatusStarted,
	}
}
