package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"log/slog"

	"sharelooped/internal/identity"
	"sharelooped/internal/session"
)

const sessionCookieName = "sharelooped_session"

// SessionHandler exposes the session manager over HTTP: registration,
// password login, session status, live observation and logout.
type SessionHandler struct {
	manager      *session.Manager
	logger       *slog.Logger
	secureCookie bool
	cookieTTL    time.Duration
}

// NewSessionHandler creates a SessionHandler.
func NewSessionHandler(manager *session.Manager, cookieTTL time.Duration, env string, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{
		manager:      manager,
		logger:       logger,
		secureCookie: !strings.EqualFold(env, "development"),
		cookieTTL:    cookieTTL,
	}
}

// Register handles POST /api/auth/register.
func (h *SessionHandler) Register(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		FullName string `json:"fullName"`
	}
	if err := decodeJSONBody(w, r, &payload); err != nil {
		writeDecodeError(w, err)
		return
	}

	account, token, err := h.manager.Register(r.Context(), payload.Email, payload.Password, payload.FullName)
	if err != nil {
		h.writeAuthError(w, err, session.MsgRegistrationFailed, "register")
		return
	}

	http.SetCookie(w, h.sessionCookie(token, h.cookieTTL))
	writeJSON(w, http.StatusCreated, identityPayload(account))
}

// Login handles POST /api/auth/login.
func (h *SessionHandler) Login(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeJSONBody(w, r, &payload); err != nil {
		writeDecodeError(w, err)
		return
	}

	account, token, err := h.manager.Login(r.Context(), payload.Email, payload.Password)
	if err != nil {
		h.writeAuthError(w, err, session.MsgLoginFailed, "login")
		return
	}

	http.SetCookie(w, h.sessionCookie(token, h.cookieTTL))
	writeJSON(w, http.StatusOK, identityPayload(account))
}

// Status handles GET /api/auth/session: the current snapshot without subscribing.
func (h *SessionHandler) Status(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.manager.Current(r.Context(), sessionToken(r))
	if err != nil {
		h.logger.Error("session status", "error", err)
		writeError(w, http.StatusInternalServerError, "unexpected error")
		return
	}

	if !snapshot.Authenticated {
		unauthorized(w)
		return
	}
	writeJSON(w, http.StatusOK, snapshot)
}

// Watch handles GET /api/auth/session/watch: a server-sent event stream of
// session snapshots. The current state is emitted immediately, then every
// change until the client disconnects.
func (h *SessionHandler) Watch(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	sub, err := h.manager.Observe(r.Context(), sessionToken(r))
	if err != nil {
		h.logger.Error("session watch", "error", err)
		writeError(w, http.StatusInternalServerError, "unexpected error")
		return
	}
	defer sub.Unsubscribe()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case snapshot, ok := <-sub.C:
			if !ok {
				return
			}
			data, err := json.Marshal(snapshot)
			if err != nil {
				h.logger.Error("session watch: marshal snapshot", "error", err)
				return
			}
			fmt.Fprintf(w, "data: %s\n\n", data)
			flusher.Flush()
		}
	}
}

// Logout handles DELETE /api/auth/session.
func (h *SessionHandler) Logout(w http.ResponseWriter, r *http.Request) {
	token := sessionToken(r)

	if err := h.manager.Logout(r.Context(), token); err != nil {
		h.logger.Error("logout", "error", err)
		writeError(w, http.StatusInternalServerError, "Logout failed. Please try again.")
		return
	}

	clearCookie := h.sessionCookie("", 0)
	clearCookie.MaxAge = -1
	clearCookie.Expires = time.Unix(0, 0)
	http.SetCookie(w, clearCookie)

	w.WriteHeader(http.StatusNoContent)
}

// writeAuthError converts a session manager failure into the fixed
// user-facing message table plus an appropriate status code.
func (h *SessionHandler) writeAuthError(w http.ResponseWriter, err error, fallback, operation string) {
	if errors.Is(err, session.ErrValidation) {
		writeError(w, http.StatusBadRequest, "Full name is required")
		return
	}

	message := session.UserMessage(err, fallback)
	switch identity.CodeOf(err) {
	case identity.CodeInvalidCredentials:
		writeError(w, http.StatusUnauthorized, message)
	case identity.CodeTooManyRequests:
		writeError(w, http.StatusTooManyRequests, message)
	case "":
		h.logger.Error(operation+" failed", "error", err)
		writeError(w, http.StatusInternalServerError, message)
	default:
		writeError(w, http.StatusBadRequest, message)
	}
}

func (h *SessionHandler) sessionCookie(token string, ttl time.Duration) *http.Cookie {
	return &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   h.secureCookie,
		MaxAge:   int(ttl.Seconds()),
		Expires:  time.Now().Add(ttl),
	}
}

func sessionToken(r *http.Request) string {
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}

func identityPayload(account *identity.Account) map[string]any {
	return map[string]any{
		"id":          account.ID,
		"email":       account.Email,
		"displayName": account.DisplayName,
	}
}
