// Package account exposes the profile and session management surface of the
// authenticated user.
package account

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/pixelsmith/pixelsmith/internal/auth"
	"github.com/pixelsmith/pixelsmith/internal/platform/httpx"
)

// Handler wires HTTP endpoints for the /user surface.
type Handler struct {
	logger        *slog.Logger
	service       *auth.Service
	authenticator *auth.Authenticator
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *auth.Service, authenticator *auth.Authenticator) *Handler {
	return &Handler{logger: logger, service: service, authenticator: authenticator}
}

// MountRoutes registers account routes on the provided router. All routes
// require an authenticated user.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Use(h.authenticator.RequireUser)
	r.Get("/profile", h.handleGetProfile)
	r.Patch("/profile", h.handleUpdateProfile)
	r.Get("/sessions", h.handleListSessions)
	r.Delete("/sessions", h.handleRevokeOtherSessions)
	r.Delete("/sessions/{sessionID}", h.handleRevokeSession)
}

func (h *Handler) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())
	profile, err := h.service.GetProfile(r.Context(), user.ID)
	if err != nil {
		if errors.Is(err, auth.ErrNotFound) {
			httpx.NotFound(w, "User not found")
			return
		}
		h.logger.Error("get profile", slog.Any("error", err))
		httpx.Internal(w)
		return
	}
	httpx.OK(w, "Successfully fetched profile", profile)
}

func (h *Handler) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())

	// Unknown body fields are dropped by the decoder; only the allow-listed
	// profile fields can ever change.
	var patch auth.ProfilePatch
	if err := httpx.DecodeJSON(r, &patch); err != nil {
		httpx.BadRequest(w, "invalid request body")
		return
	}
	updated, err := h.service.UpdateProfile(r.Context(), user.ID, patch)
	if err != nil {
		if errors.Is(err, auth.ErrNotFound) {
			httpx.NotFound(w, "User not found")
			return
		}
		h.logger.Error("update profile", slog.Any("error", err))
		httpx.Internal(w)
		return
	}
	httpx.OK(w, "Profile updated successfully", updated)
}

func (h *Handler) handleListSessions(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())
	sessions, err := h.service.ListActiveSessions(r.Context(), user.ID)
	if err != nil {
		h.logger.Error("list sessions", slog.Any("error", err))
		httpx.Internal(w)
		return
	}
	if sessions == nil {
		sessions = []auth.Session{}
	}
	httpx.OK(w, "Successfully fetched sessions", map[string]any{"sessions": sessions})
}

func (h *Handler) handleRevokeSession(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())
	sessionID, err := uuid.Parse(chi.URLParam(r, "sessionID"))
	if err != nil {
		httpx.NotFound(w, "Session not found")
		return
	}
	if err := h.service.RevokeSession(r.Context(), user.ID, sessionID); err != nil {
		if errors.Is(err, auth.ErrNotFound) {
			httpx.NotFound(w, "Session not found")
			return
		}
		h.logger.Error("revoke session", slog.Any("error", err))
		httpx.Internal(w)
		return
	}
	httpx.OK(w, "Session revoked successfully", nil)
}

func (h *Handler) handleRevokeOtherSessions(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())
	token, _ := auth.TokenFromRequest(r)

	revoked, err := h.service.RevokeOtherSessions(r.Context(), user.ID, token)
	if err != nil {
		h.logger.Error("revoke other sessions", slog.Any("error", err))
		httpx.Internal(w)
		return
	}
	httpx.OK(w, fmt.Sprintf("Revoked %d sessions", revoked), map[string]int{"revoked": revoked})
}
