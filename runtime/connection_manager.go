package runtime

import (
	"context"
	"direct-chat/contract"
	"direct-chat/domain"
	"direct-chat/domain/event"
	"direct-chat/errors"
	"fmt"
	"log/slog"
	"sync"
)

// ConnectionManager authenticates connections, binds them to their identity
// and announces presence changes.
type ConnectionManager struct {
	// lifecycle serializes a bind/unbind decision with its presence broadcast
	lifecycle sync.Mutex
	log       *slog.Logger
	verifier  contract.TokenVerifier
	registry  *Registry
	router    contract.IRouter
}

func NewConnectionManager(verifier contract.TokenVerifier, registry *Registry, router contract.IRouter, log *slog.Logger) *ConnectionManager {
	return &ConnectionManager{
		log:      log,
		verifier: verifier,
		registry: registry,
		router:   router,
	}
}

// Authenticate returns the identity the token was issued for.
// Any failure wraps errors.ErrAuthentication; the caller must close the connection.
func (m *ConnectionManager) Authenticate(token string) (domain.UserID, error) {
	if token == "" {
		return "", fmt.Errorf("%w: missing token", errors.ErrAuthentication)
	}
	userID, err := m.verifier.Verify(token)
	if err != nil {
		return "", fmt.Errorf("%w: %w", errors.ErrAuthentication, err)
	}
	if userID == "" {
		return "", fmt.Errorf("%w: %w", errors.ErrAuthentication, errors.ErrMissingClaim)
	}
	return userID, nil
}

// Bind registers the connection. The first connection of a user broadcasts userOnline
// to every other bound connection, then the new connection receives the presence snapshot.
func (m *ConnectionManager) Bind(ctx context.Context, conn domain.Connection, sink contract.EventSink) {
	m.lifecycle.Lock()
	defer m.lifecycle.Unlock()

	first := m.registry.Bind(conn, sink)
	m.log.Debug("Connection bound", "user_id", conn.UserID, "connection_id", conn.ID, "first", first)
	if first {
		m.router.BroadcastExcept(ctx, event.UserOnline{UserID: conn.UserID}, conn)
	}

	snapshot := event.OnlineUsers{Users: m.registry.Online(conn.UserID)}
	if err := sink.Consume(ctx, snapshot); err != nil {
		m.log.Warn("Presence snapshot not delivered", "connection_id", conn.ID, "error", err)
	}
}

// Unbind removes the connection, broadcasting userOffline when it was the last one of the user.
// It reports whether the connection was bound; calling it again is harmless.
func (m *ConnectionManager) Unbind(ctx context.Context, conn domain.Connection) bool {
	m.lifecycle.Lock()
	defer m.lifecycle.Unlock()

	userID, last, ok := m.registry.Unbind(conn.ID)
	if !ok {
		return false
	}
	m.log.Debug("Connection unbound", "user_id", userID, "connection_id", conn.ID, "last", last)
	if last {
		m.router.BroadcastAll(ctx, event.UserOffline{UserID: userID})
	}
	return true
}

var _ contract.IConnectionManager = (*ConnectionManager)(nil)
