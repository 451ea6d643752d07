// Package queue defines the auth event payload exchanged over RabbitMQ
// and the consumer that appends those events to the audit log.
package queue

import "time"

// AuthEventsQueue is the durable queue auth events are published to.
const AuthEventsQueue = "auth.events"

// Event types.
const (
	EventUserRegistered = "user.registered"
	EventUserLoggedIn   = "user.logged_in"
	EventTokenRevoked   = "token.revoked"
)

// AuthEvent is published after a successful register, login or logout.
// It never carries passwords or token material.
type AuthEvent struct {
	Type       string    `json:"type"`
	UserID     string    `json:"user_id"`
	Email      string    `json:"email,omitempty"`
	Role       string    `json:"role,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}
