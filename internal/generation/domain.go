// Package generation persists and serves image generation artifacts.
package generation

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound indicates a generation that does not exist or does not belong
// to the caller. Ownership failures share this class so the API never reveals
// whether a foreign record exists.
var ErrNotFound = errors.New("generation not found")

// Status describes the lifecycle of a generation.
type Status string

// Generation lifecycle states.
const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Settings captures the tunable parameters of one generation.
type Settings struct {
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Model  string `json:"model"`
	Style  string `json:"style,omitempty"`
}

// DefaultSettings mirrors the defaults applied when a request omits settings.
func DefaultSettings() Settings {
	return Settings{Width: 512, Height: 512, Model: "dall-e-3"}
}

// Generation is one stored text-to-image artifact.
type Generation struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	Prompt    string    `json:"prompt"`
	ImageURL  string    `json:"image_url"`
	Status    Status    `json:"status"`
	Settings  Settings  `json:"settings"`
	CreatedAt time.Time `json:"created_at"`
}
