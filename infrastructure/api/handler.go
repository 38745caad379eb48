// Package api exposes the HTTP surface around the real-time core:
// account registration, login, message history and health.
package api

import (
	"direct-chat/contract"
	"direct-chat/domain"
	"direct-chat/errors"
	"direct-chat/services"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/samber/lo"
)

const maxBodyBytes = 1 << 16

type OnlineCounter interface {
	Online(exclude ...domain.UserID) []domain.UserID
}

type Handler struct {
	log      *slog.Logger
	auth     services.IAuthService
	history  services.IHistoryService
	verifier contract.TokenVerifier
	presence OnlineCounter
}

func NewHandler(
	log *slog.Logger,
	auth services.IAuthService,
	history services.IHistoryService,
	verifier contract.TokenVerifier,
	presence OnlineCounter,
) *Handler {
	return &Handler{log: log, auth: auth, history: history, verifier: verifier, presence: presence}
}

type CredentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type TokenResponse struct {
	Token string `json:"token"`
}

type MessageResponse struct {
	ID         string        `json:"id"`
	SenderID   domain.UserID `json:"senderId"`
	ReceiverID domain.UserID `json:"receiverId"`
	Timestamp  time.Time     `json:"timestamp"`
	Seen       bool          `json:"seen"`
	Text       string        `json:"text,omitempty"`
	IsFile     bool          `json:"isFile"`
	FileName   string        `json:"fileName,omitempty"`
	FileType   string        `json:"fileType,omitempty"`
	FileData   []byte        `json:"fileData,omitempty"`
}

type HistoryResponse struct {
	Messages []MessageResponse `json:"messages"`
	Cursor   *string           `json:"cursor"`
}

type HealthResponse struct {
	Status string `json:"status"`
	Online int    `json:"online"`
}

// Routes mounts the API and the WebSocket endpoint on one mux.
func (h *Handler) Routes(ws http.Handler) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("GET /ws", ws)
	mux.HandleFunc("POST /auth/register", h.register)
	mux.HandleFunc("POST /auth/login", h.login)
	mux.HandleFunc("GET /conversations/{peerId}/messages", h.messages)
	mux.HandleFunc("GET /health", h.health)
	return mux
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var req CredentialsRequest
	if err := decodeBody(w, r, &req); err != nil {
		h.sendError(w, err)
		return
	}
	token, err := h.auth.Register(req.Email, req.Password)
	if err != nil {
		h.sendError(w, err)
		return
	}
	sendJSON(w, http.StatusCreated, TokenResponse{Token: token.String()})
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req CredentialsRequest
	if err := decodeBody(w, r, &req); err != nil {
		h.sendError(w, err)
		return
	}
	token, err := h.auth.Login(req.Email, req.Password)
	if err != nil {
		h.sendError(w, err)
		return
	}
	sendJSON(w, http.StatusOK, TokenResponse{Token: token.String()})
}

func (h *Handler) messages(w http.ResponseWriter, r *http.Request) {
	userID, err := h.authenticate(r)
	if err != nil {
		h.sendError(w, err)
		return
	}

	var cursor *string
	if c := r.URL.Query().Get("cursor"); c != "" {
		cursor = &c
	}
	messages, next, err := h.history.GetMessages(userID, domain.UserID(r.PathValue("peerId")), cursor)
	if err != nil {
		h.sendError(w, err)
		return
	}
	sendJSON(w, http.StatusOK, HistoryResponse{
		Messages: lo.Map(messages, func(m domain.Message, _ int) MessageResponse { return toMessageResponse(m) }),
		Cursor:   next,
	})
}

func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	sendJSON(w, http.StatusOK, HealthResponse{Status: "ok", Online: len(h.presence.Online())})
}

func (h *Handler) authenticate(r *http.Request) (domain.UserID, error) {
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok || token == "" {
		return "", fmt.Errorf("%w: missing bearer token", errors.ErrAuthentication)
	}
	userID, err := h.verifier.Verify(strings.TrimSpace(token))
	if err != nil {
		return "", fmt.Errorf("%w: %w", errors.ErrAuthentication, err)
	}
	return userID, nil
}

func (h *Handler) sendError(w http.ResponseWriter, err error) {
	status := MapToHTTPStatus(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		h.log.Error("Request failed", "error", err)
		message = http.StatusText(status)
	}
	sendJSON(w, status, map[string]string{"error": message})
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return fmt.Errorf("%w: invalid JSON body", errors.ErrValidation)
	}
	return nil
}

func sendJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func toMessageResponse(m domain.Message) MessageResponse {
	response := MessageResponse{
		ID:         m.ID.String(),
		SenderID:   m.SenderID,
		ReceiverID: m.ReceiverID,
		Timestamp:  m.Timestamp,
		Seen:       m.Seen,
		Text:       m.Text,
		IsFile:     m.IsFile(),
	}
	if m.IsFile() {
		response.FileName = m.File.Name
		response.FileType = m.File.Type
		response.FileData = m.File.Data
	}
	return response
}
