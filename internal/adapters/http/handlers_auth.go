package http

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/madcrow/auth-service/internal/application"
	"github.com/madcrow/auth-service/internal/domain"
	"github.com/madcrow/auth-service/internal/obs"
)

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var req application.RegisterRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "register", err)
		return
	}
	req.IPAddress = readIP(r)

	res, err := h.service.Register(r.Context(), req)
	if err != nil {
		writeMappedError(r.Context(), w, "register", err)
		return
	}
	writeSuccess(w, http.StatusOK, res)
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req application.LoginRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "login", err)
		return
	}
	req.IPAddress = readIP(r)

	res, err := h.service.Login(r.Context(), req)
	if err != nil {
		if errors.Is(err, domain.ErrRateLimited) {
			obs.ObserveRateLimited()
			info := h.service.LoginRateLimitStatus(r.Context(), req.Email)
			logHTTPOperationError(r.Context(), "login", http.StatusTooManyRequests, "RATE_LIMIT_EXCEEDED", "rate limited", err)
			writeRateLimited(w, info)
			return
		}
		obs.ObserveLogin("failure")
		writeMappedError(r.Context(), w, "login", err)
		return
	}
	obs.ObserveLogin("success")
	writeSuccess(w, http.StatusOK, res)
}

func (h *Handler) refreshToken(w http.ResponseWriter, r *http.Request) {
	var req application.RefreshRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "refresh_token", err)
		return
	}
	if strings.TrimSpace(req.RefreshToken) == "" {
		writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "refresh_token is required")
		return
	}

	pair, err := h.service.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		writeMappedError(r.Context(), w, "refresh_token", err)
		return
	}
	writeSuccess(w, http.StatusOK, pair)
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFromContext(r.Context())
	if !ok {
		writeMissingBearerError(r.Context(), w, "me")
		return
	}
	user, err := h.service.UserFromClaims(r.Context(), claims)
	if err != nil {
		writeMappedError(r.Context(), w, "me", err)
		return
	}
	writeSuccess(w, http.StatusOK, user)
}

func (h *Handler) validateSession(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFromContext(r.Context())
	if !ok {
		writeMissingBearerError(r.Context(), w, "validate_session")
		return
	}

	sessionID := strings.TrimSpace(r.URL.Query().Get("session_id"))
	if sessionID == "" {
		sessionID = strings.TrimSpace(r.Header.Get("X-Session-Id"))
	}

	result, err := h.service.ValidateSession(r.Context(), claims, sessionID)
	if err != nil {
		writeMappedError(r.Context(), w, "validate_session", err)
		return
	}
	writeSuccess(w, http.StatusOK, result)
}

type logoutRequest struct {
	SessionID string `json:"session_id"`
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFromContext(r.Context())
	if !ok {
		writeMissingBearerError(r.Context(), w, "logout")
		return
	}

	// The body is optional; a bare logout falls back to the bearer's account.
	var req logoutRequest
	if r.ContentLength > 0 {
		if err := decodeBody(r, &req); err != nil {
			writeValidationError(r.Context(), w, "logout", err)
			return
		}
	}
	if req.SessionID == "" {
		req.SessionID = strings.TrimSpace(r.Header.Get("X-Session-Id"))
	}

	if err := h.service.Logout(r.Context(), claims, req.SessionID); err != nil {
		writeMappedError(r.Context(), w, "logout", err)
		return
	}
	writeMessage(w, http.StatusOK, "logged out")
}

func (h *Handler) logoutAll(w http.ResponseWriter, r *http.Request) {
	token, ok := tokenFromContext(r)
	if !ok {
		writeMissingBearerError(r.Context(), w, "logout_all")
		return
	}

	res, err := h.service.LogoutAll(r.Context(), token)
	if err != nil {
		writeMappedError(r.Context(), w, "logout_all", err)
		return
	}
	writeSuccess(w, http.StatusOK, res)
}

func (h *Handler) loginHistory(w http.ResponseWriter, r *http.Request) {
	token, ok := tokenFromContext(r)
	if !ok {
		writeMissingBearerError(r.Context(), w, "login_history")
		return
	}

	q := application.LoginHistoryQuery{
		Limit:  parseIntDefault(r.URL.Query().Get("limit"), 20),
		Offset: parseIntDefault(r.URL.Query().Get("offset"), 0),
		Status: strings.TrimSpace(r.URL.Query().Get("status")),
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("since")); raw != "" {
		if since, err := time.Parse(time.RFC3339, raw); err == nil {
			q.Since = &since
		}
	}

	items, err := h.service.ListLoginHistory(r.Context(), token, q)
	if err != nil {
		writeMappedError(r.Context(), w, "login_history", err)
		return
	}
	writeSuccess(w, http.StatusOK, items)
}
