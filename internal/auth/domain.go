package auth

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Sentinel errors returned by the auth service and its stores.
var (
	// ErrInvalidCredentials indicates login failure. It deliberately carries
	// no detail about which part of the credential pair was wrong.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrRegistrationConflict indicates a concurrent first login raced the
	// auto-registration insert. The request can be retried.
	ErrRegistrationConflict = errors.New("registration conflict")
	// ErrInvalidToken indicates a token that failed signature, structural or
	// expiry validation.
	ErrInvalidToken = errors.New("invalid token")
	// ErrUnauthenticated indicates a request without a usable identity.
	ErrUnauthenticated = errors.New("not authenticated")
	// ErrNotFound indicates a missing record, including records that exist
	// but do not belong to the caller.
	ErrNotFound = errors.New("not found")
)

// User represents a registered account.
type User struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Name         string    `json:"name"`
	Avatar       string    `json:"avatar,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"-"`
}

// Session is the server side record of one issued token. Sessions are soft
// revoked by flipping IsActive; rows are never deleted.
type Session struct {
	ID           uuid.UUID `json:"id"`
	UserID       uuid.UUID `json:"-"`
	Token        string    `json:"-"`
	ExpiresAt    time.Time `json:"expires_at"`
	IP           string    `json:"ip_address,omitempty"`
	UserAgent    string    `json:"user_agent,omitempty"`
	DeviceInfo   string    `json:"device_info,omitempty"`
	IsActive     bool      `json:"is_active"`
	LastActivity time.Time `json:"last_activity"`
	CreatedAt    time.Time `json:"created_at"`
}

// ClientContext carries best-effort request metadata captured at login.
type ClientContext struct {
	IP        string
	UserAgent string
}

// ProfilePatch lists the fields a user may change. Nil means leave as is.
type ProfilePatch struct {
	Name   *string `json:"name"`
	Avatar *string `json:"avatar"`
}

// Profile bundles a user with one of their sessions.
type Profile struct {
	User    *User    `json:"user"`
	Session *Session `json:"session,omitempty"`
}
