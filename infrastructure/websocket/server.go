package websocket

import (
	"direct-chat/contract"
	"direct-chat/domain"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

// Server authenticates the HTTP request, upgrades it and serves the connection.
// An unauthenticated request is answered 401 and never upgraded.
type Server struct {
	log         *slog.Logger
	connections contract.IConnectionManager
	handler     contract.ISessionHandler
	upgrader    websocket.Upgrader
	opts        Options
}

func NewServer(log *slog.Logger, connections contract.IConnectionManager, handler contract.ISessionHandler, opts Options) *Server {
	return &Server{
		log:         log,
		connections: connections,
		handler:     handler,
		opts:        opts,
		upgrader: websocket.Upgrader{
			// Browsers authenticate with the token, not with cookies
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID, err := s.connections.Authenticate(TokenFromRequest(r))
	if err != nil {
		s.log.Debug("Connection rejected", "remote", r.RemoteAddr, "state", domain.SessionRejected, "error", err)
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// The upgrader already answered the request
		s.log.Debug("Upgrade failed", "user_id", userID, "error", err)
		return
	}

	client := NewClient(s.log, ws, domain.NewConnection(userID, time.Now().UTC()), s.handler, s.connections, s.opts)
	client.Run(r.Context())
}

// TokenFromRequest reads the bearer token from the Authorization header,
// falling back on the token query parameter for browser clients.
func TokenFromRequest(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		if token, ok := strings.CutPrefix(header, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	return r.URL.Query().Get("token")
}
