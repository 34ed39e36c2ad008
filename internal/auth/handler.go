package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/pixelsmith/pixelsmith/internal/observability"
	"github.com/pixelsmith/pixelsmith/internal/platform/httpx"
)

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger        *slog.Logger
	service       *Service
	authenticator *Authenticator
	metrics       *observability.Metrics
	validator     *validator.Validate
	cookieTTL     time.Duration
	secureCookie  bool
}

// NewHandler constructs a Handler instance. The cookie TTL mirrors the token
// TTL so both credentials expire together.
func NewHandler(logger *slog.Logger, service *Service, authenticator *Authenticator, metrics *observability.Metrics, cookieTTL time.Duration, secureCookie bool) *Handler {
	return &Handler{
		logger:        logger,
		service:       service,
		authenticator: authenticator,
		metrics:       metrics,
		validator:     validator.New(),
		cookieTTL:     cookieTTL,
		secureCookie:  secureCookie,
	}
}

// MountRoutes registers auth routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/login", h.handleLogin)
	r.Group(func(r chi.Router) {
		r.Use(h.authenticator.RequireUser)
		r.Post("/logout", h.handleLogout)
		r.Get("/me", h.handleMe)
	})
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	User        *User  `json:"user"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.BadRequest(w, "invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.BadRequest(w, "email and a password of at least 8 characters are required")
		return
	}

	client := ClientContext{IP: r.RemoteAddr, UserAgent: r.UserAgent()}
	token, user, err := h.service.Login(r.Context(), req.Email, req.Password, client)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidCredentials):
			h.metrics.ObserveLogin("rejected")
			httpx.Unauthorized(w, "Invalid email or password")
		case errors.Is(err, ErrRegistrationConflict):
			h.metrics.ObserveLogin("conflict")
			httpx.Conflict(w, "Account was just created elsewhere, retry login")
		default:
			h.metrics.ObserveLogin("error")
			h.logger.Error("login", slog.Any("error", err))
			httpx.Internal(w)
		}
		return
	}
	h.metrics.ObserveLogin("ok")

	// The token travels both in the body and in an HttpOnly cookie so browser
	// and API clients share one login endpoint.
	http.SetCookie(w, h.tokenCookie(token, int(h.cookieTTL.Seconds())))
	httpx.OK(w, "Logged in successfully", tokenResponse{
		AccessToken: token,
		TokenType:   "bearer",
		User:        user,
	})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	token, _ := TokenFromRequest(r)

	if err := h.service.Logout(r.Context(), user.ID, token); err != nil {
		h.logger.Error("logout", slog.Any("error", err))
		httpx.Internal(w)
		return
	}
	http.SetCookie(w, h.tokenCookie("", -1))
	httpx.OK(w, "Successfully logged out", map[string]string{
		"detail": "Session has been invalidated",
	})
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	httpx.OK(w, "Successfully fetched user", user)
}

func (h *Handler) tokenCookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	}
}
