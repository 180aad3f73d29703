package saga

import (
	apperrors "github.com/allisson/food-ordering-saga/internal/errors"
)

// Default topic names, one per message type. Services can override these via
// configuration; the mapping shape stays the same.
const (
	TopicPaymentRequest   = "payment-request"
	TopicPaymentResponse  = "payment-response"
	TopicApprovalRequest  = "restaurant-approval-request"
	TopicApprovalResponse = "restaurant-approval-response"
)

// topics maps every message type to its bus topic. A single table replaces
// one publisher type per topic.
var topics = map[MessageType]string{
	MessageTypePaymentRequest:   TopicPaymentRequest,
	MessageTypePaymentResponse:  TopicPaymentResponse,
	MessageTypeApprovalRequest:  TopicApprovalRequest,
	MessageTypeApprovalResponse: TopicApprovalResponse,
}

// TopicFor returns the bus topic for the given message type.
func TopicFor(t MessageType) (string, error) {
	topic, ok := topics[t]
	if !ok {
		return "", apperrors.Wrap(apperrors.ErrInvalidInput, "unknown message type: "+string(t))
	}
	return topic, nil
}
