package service

import (
	"context"
	"time"
)

// Account event types.
const (
	EventAccountSignedUp = "account.signed_up"
	EventAccountApproved = "account.approved"
	EventAccountRejected = "account.rejected"
)

// AccountEvent is published when an account changes approval state.
type AccountEvent struct {
	RequestID  string    `json:"request_id,omitempty"` // For distributed tracing
	EventID    string    `json:"event_id"`
	Type       string    `json:"type"`
	UserID     string    `json:"user_id"`
	Email      string    `json:"email"`
	ClinicID   string    `json:"clinic_id,omitempty"`
	Role       string    `json:"role,omitempty"`
	ActorID    string    `json:"actor_id,omitempty"` // Administrator who performed the action
	OccurredAt time.Time `json:"occurred_at"`
}

// EventPublisher defines the interface for publishing events to a message queue
type EventPublisher interface {
	// PublishAccountEvent publishes an account lifecycle event.
	PublishAccountEvent(ctx context.Context, event *AccountEvent) error

	// Close releases any resources held by the publisher
	Close() error
}
