// Package domain defines the core inbox domain entities and types.
package domain

import (
	"time"

	"github.com/google/uuid"

	"github.com/allisson/food-ordering-saga/internal/saga"
)

// InboxMessage records an inbound saga message that has been applied.
// The (SagaID, Type, SagaStatus) triple is unique: a second delivery of the
// same triple is detected at insert time and discarded without reprocessing.
// SagaStatus is part of the key because the same message type flows twice
// through a compensated saga, once on the forward path and once with the
// cancellation status.
type InboxMessage struct {
	ID         uuid.UUID
	SagaID     uuid.UUID
	Type       saga.MessageType
	Payload    string
	SagaStatus string
	CreatedAt  time.Time
}

// New creates an inbox message for the given saga step. SagaStatus captures
// the aggregate status at the time the message was accepted.
func New(sagaID uuid.UUID, messageType saga.MessageType, payload, sagaStatus string) *InboxMessage {
	return &InboxMessage{
		ID:         uuid.Must(uuid.NewV7()),
		SagaID:     sagaID,
		Type:       messageType,
		Payload:    payload,
		SagaStatus: sagaStatus,
	}
}
