package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/pavelanni/assessor/internal/apperr"
	appI18n "github.com/pavelanni/assessor/internal/i18n"
	"github.com/pavelanni/assessor/internal/model"
)

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type loginResponse struct {
	Token string      `json:"token"`
	User  *model.User `json:"user"`
}

func bearerToken(r *http.Request) string {
	const prefix = "Bearer "
	h := r.Header.Get("Authorization")
	if len(h) <= len(prefix) || !strings.EqualFold(h[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(h[len(prefix):])
}

// requireAuth is middleware that checks for a valid bearer token.
func (h *Handler) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			h.writeError(w, r, apperr.New(apperr.CodeUnauthenticated, "missing bearer token"))
			return
		}

		authSess, err := h.store.GetAuthSession(r.Context(), token, h.clock.Now())
		if err != nil {
			slog.Error("failed to get auth session", "error", err)
			h.writeError(w, r, err)
			return
		}
		if authSess == nil {
			h.writeError(w, r, apperr.New(apperr.CodeUnauthenticated, "unknown or expired token"))
			return
		}

		user, err := h.store.GetUserByID(r.Context(), authSess.UserID)
		if err != nil || user == nil || !user.Active {
			h.writeError(w, r, apperr.New(apperr.CodeUnauthenticated, "user unavailable"))
			return
		}

		ctx := model.ContextWithUser(r.Context(), user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireRole returns middleware that checks the user has one of the allowed roles.
func requireRole(allowed ...model.UserRole) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := model.UserFromContext(r.Context())
			if user == nil {
				writeJSON(w, http.StatusUnauthorized, map[string]errorBody{"error": {
					Code: apperr.CodeUnauthenticated, Kind: apperr.KindUnauthorized,
					Message: appI18n.T(r.Context(), string(apperr.CodeUnauthenticated)),
				}})
				return
			}
			for _, role := range allowed {
				if user.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			slog.Warn("role check failed", "user_id", user.ID, "role", user.Role, "path", r.URL.Path)
			writeJSON(w, http.StatusForbidden, map[string]errorBody{"error": {
				Code: apperr.CodePermissionDenied, Kind: apperr.KindForbidden,
				Message: appI18n.T(r.Context(), string(apperr.CodePermissionDenied)),
			}})
		})
	}
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := h.decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	user, err := h.store.GetUserByUsername(r.Context(), req.Username)
	if err != nil {
		slog.Error("failed to get user", "error", err)
		h.writeError(w, r, err)
		return
	}
	if user == nil || !user.Active {
		h.renderLoginError(w, r)
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		h.renderLoginError(w, r)
		return
	}

	token, err := h.store.CreateAuthSession(r.Context(), user.ID, h.clock.Now())
	if err != nil {
		slog.Error("failed to create auth session", "error", err)
		h.writeError(w, r, err)
		return
	}
	slog.Info("user logged in", "user_id", user.ID, "role", user.Role)
	writeJSON(w, http.StatusOK, loginResponse{Token: token, User: user})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := h.store.DeleteAuthSession(r.Context(), bearerToken(r)); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) renderLoginError(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusUnauthorized, map[string]errorBody{"error": {
		Code:    apperr.CodeUnauthenticated,
		Kind:    apperr.KindUnauthorized,
		Message: appI18n.T(r.Context(), "LoginError"),
	}})
}
