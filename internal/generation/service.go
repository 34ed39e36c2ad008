package generation

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/pixelsmith/pixelsmith/internal/imagegen"
	"github.com/pixelsmith/pixelsmith/internal/mediastore"
	"github.com/pixelsmith/pixelsmith/internal/observability"
)

const uploadFolder = "ai-generated"

// Service orchestrates the generation pipeline: persist, render, upload,
// persist outcome. The pipeline is strictly sequential with no retries; a
// provider or upload failure leaves the record in StatusFailed.
type Service struct {
	repo     RepositoryPort
	provider imagegen.Client
	uploader mediastore.Uploader
	cache    *Cache
	metrics  *observability.Metrics
	logger   *slog.Logger
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort, provider imagegen.Client, uploader mediastore.Uploader, cache *Cache, metrics *observability.Metrics, logger *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		provider: provider,
		uploader: uploader,
		cache:    cache,
		metrics:  metrics,
		logger:   logger,
	}
}

// CreateRequest carries the user supplied inputs of one generation.
type CreateRequest struct {
	Prompt   string
	Settings *Settings
}

// Create runs one generation end to end and returns the finished record.
func (s *Service) Create(ctx context.Context, userID uuid.UUID, req CreateRequest) (*Generation, error) {
	settings := DefaultSettings()
	if req.Settings != nil {
		settings = *req.Settings
		if settings.Width <= 0 {
			settings.Width = 512
		}
		if settings.Height <= 0 {
			settings.Height = 512
		}
		if settings.Model == "" {
			settings.Model = DefaultSettings().Model
		}
	}

	gen := &Generation{
		ID:        uuid.New(),
		UserID:    userID,
		Prompt:    req.Prompt,
		Status:    StatusProcessing,
		Settings:  settings,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.repo.Insert(ctx, gen); err != nil {
		return nil, err
	}

	url, err := s.render(ctx, gen)
	if err != nil {
		gen.Status = StatusFailed
		if updateErr := s.repo.Update(ctx, gen); updateErr != nil {
			s.logger.Error("mark generation failed", slog.Any("error", updateErr))
		}
		s.metrics.ObserveGeneration(string(StatusFailed))
		_ = s.cache.Invalidate(ctx, userID)
		return nil, fmt.Errorf("generation: %w", err)
	}

	gen.ImageURL = url
	gen.Status = StatusCompleted
	if err := s.repo.Update(ctx, gen); err != nil {
		return nil, err
	}
	s.metrics.ObserveGeneration(string(StatusCompleted))
	_ = s.cache.Invalidate(ctx, userID)
	return gen, nil
}

func (s *Service) render(ctx context.Context, gen *Generation) (string, error) {
	image, err := s.provider.TextToImage(ctx, imagegen.Request{
		Prompt: gen.Prompt,
		Width:  gen.Settings.Width,
		Height: gen.Settings.Height,
		Model:  gen.Settings.Model,
		Style:  gen.Settings.Style,
	})
	if err != nil {
		return "", err
	}
	return s.uploader.Upload(ctx, image, uploadFolder)
}

// List returns the caller's generations, newest first, through the cache.
func (s *Service) List(ctx context.Context, userID uuid.UUID) ([]Generation, error) {
	if cached, ok := s.cache.GetHistory(ctx, userID); ok {
		return cached, nil
	}
	list, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.cache.SetHistory(ctx, userID, list); err != nil {
		s.logger.Warn("cache generation history", slog.Any("error", err))
	}
	return list, nil
}

// Get fetches one generation owned by the caller. Foreign rows report the
// same ErrNotFound as absent ones.
func (s *Service) Get(ctx context.Context, userID, id uuid.UUID) (*Generation, error) {
	gen, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if gen.UserID != userID {
		return nil, ErrNotFound
	}
	return gen, nil
}

// Delete removes one generation owned by the caller.
func (s *Service) Delete(ctx context.Context, userID, id uuid.UUID) error {
	gen, err := s.Get(ctx, userID, id)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteByID(ctx, gen.ID); err != nil {
		return err
	}
	return s.cache.Invalidate(ctx, userID)
}

// ClearHistory removes every generation of the caller, returning the count.
func (s *Service) ClearHistory(ctx context.Context, userID uuid.UUID) (int64, error) {
	deleted, err := s.repo.DeleteByUser(ctx, userID)
	if err != nil {
		return 0, err
	}
	if err := s.cache.Invalidate(ctx, userID); err != nil {
		s.logger.Warn("invalidate generation history", slog.Any("error", err))
	}
	return deleted, nil
}
