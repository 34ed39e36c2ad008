package generation

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/pixelsmith/pixelsmith/internal/auth"
	"github.com/pixelsmith/pixelsmith/internal/platform/httpx"
)

// Handler wires HTTP endpoints for the generation surface.
type Handler struct {
	logger        *slog.Logger
	service       *Service
	authenticator *auth.Authenticator
	validator     *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, authenticator *auth.Authenticator) *Handler {
	return &Handler{
		logger:        logger,
		service:       service,
		authenticator: authenticator,
		validator:     validator.New(),
	}
}

// MountRoutes registers generation routes on the provided router. All routes
// require an authenticated user.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Use(h.authenticator.RequireUser)
	r.Post("/", h.handleCreate)
	r.Get("/", h.handleList)
	r.Delete("/", h.handleClearHistory)
	r.Get("/{generationID}", h.handleGet)
	r.Delete("/{generationID}", h.handleDelete)
}

type createRequest struct {
	Prompt   string    `json:"prompt" validate:"required"`
	Settings *Settings `json:"settings"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())

	var req createRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.BadRequest(w, "invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.BadRequest(w, "prompt is required")
		return
	}

	gen, err := h.service.Create(r.Context(), user.ID, CreateRequest{Prompt: req.Prompt, Settings: req.Settings})
	if err != nil {
		h.logger.Error("create generation", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "Image generation failed")
		return
	}
	httpx.Created(w, "Generation created successfully", gen)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())
	list, err := h.service.List(r.Context(), user.ID)
	if err != nil {
		h.logger.Error("list generations", slog.Any("error", err))
		httpx.Internal(w)
		return
	}
	if list == nil {
		list = []Generation{}
	}
	httpx.OK(w, "Successfully fetched generations", list)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())
	id, err := uuid.Parse(chi.URLParam(r, "generationID"))
	if err != nil {
		httpx.NotFound(w, "Generation not found")
		return
	}
	gen, err := h.service.Get(r.Context(), user.ID, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			httpx.NotFound(w, "Generation not found")
			return
		}
		h.logger.Error("get generation", slog.Any("error", err))
		httpx.Internal(w)
		return
	}
	httpx.OK(w, "Successfully fetched generation", gen)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())
	id, err := uuid.Parse(chi.URLParam(r, "generationID"))
	if err != nil {
		httpx.NotFound(w, "Generation not found")
		return
	}
	if err := h.service.Delete(r.Context(), user.ID, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			httpx.NotFound(w, "Generation not found")
			return
		}
		h.logger.Error("delete generation", slog.Any("error", err))
		httpx.Internal(w)
		return
	}
	httpx.OK(w, "Generation deleted successfully", nil)
}

func (h *Handler) handleClearHistory(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())
	deleted, err := h.service.ClearHistory(r.Context(), user.ID)
	if err != nil {
		h.logger.Error("clear generation history", slog.Any("error", err))
		httpx.Internal(w)
		return
	}
	httpx.OK(w, fmt.Sprintf("Cleared %d generations", deleted), map[string]int64{"deleted_count": deleted})
}
