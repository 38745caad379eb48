// Package domain contains core concepts of the direct messaging system.
// This file defines participant identities and the connections bound to them.
// No runtime, network, or UI logic should be added here.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// UserID identifies a registered user. It is issued at authentication and never mutated.
type UserID string

func (u UserID) String() string {
	return string(u)
}

// Connection is one live transport session bound to a single user.
// The binding is set at creation and never changes afterward.
type Connection struct {
	ID        uuid.UUID
	UserID    UserID
	CreatedAt time.Time
}

func NewConnection(userID UserID, at time.Time) Connection {
	return Connection{
		ID:        uuid.New(),
		UserID:    userID,
		CreatedAt: at,
	}
}

// SessionState tracks a connection through its lifecycle.
// Bound is the only steady state, Rejected and Disconnected are terminal.
type SessionState int

const (
	SessionConnecting SessionState = iota
	SessionAuthenticating
	SessionBound
	SessionRejected
	SessionDisconnected
)

func (s SessionState) String() string {
	switch s {
	case SessionConnecting:
		return "connecting"
	case SessionAuthenticating:
		return "authenticating"
	case SessionBound:
		return "bound"
	case SessionRejected:
		return "rejected"
	case SessionDisconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}
