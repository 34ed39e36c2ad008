package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Service wraps the authentication business rules: unified login-or-register,
// session lifecycle and the profile surface built on top of it.
type Service struct {
	users    UserStore
	sessions SessionStore
	hasher   *PasswordHasher
	issuer   *TokenIssuer
	tokenTTL time.Duration
}

// NewService constructs a new Service.
func NewService(users UserStore, sessions SessionStore, hasher *PasswordHasher, issuer *TokenIssuer, tokenTTL time.Duration) *Service {
	return &Service{
		users:    users,
		sessions: sessions,
		hasher:   hasher,
		issuer:   issuer,
		tokenTTL: tokenTTL,
	}
}

// Login authenticates an email/password pair, creating the account on first
// contact. Every successful login issues a fresh token and one session record.
func (s *Service) Login(ctx context.Context, email, password string, client ClientContext) (string, *User, error) {
	user, err := s.users.FindByEmail(ctx, email)
	switch {
	case err == nil:
		if !s.hasher.Verify(password, user.PasswordHash) {
			return "", nil, ErrInvalidCredentials
		}
	case errors.Is(err, ErrNotFound):
		user, err = s.register(ctx, email, password)
		if err != nil {
			return "", nil, err
		}
	default:
		return "", nil, err
	}

	now := time.Now().UTC()
	expiresAt := now.Add(s.tokenTTL)
	token, err := s.issuer.Issue(user.ID, expiresAt)
	if err != nil {
		return "", nil, err
	}

	sess := &Session{
		ID:           uuid.New(),
		UserID:       user.ID,
		Token:        token,
		ExpiresAt:    expiresAt,
		IP:           client.IP,
		UserAgent:    client.UserAgent,
		IsActive:     true,
		LastActivity: now,
		CreatedAt:    now,
	}
	if err := s.sessions.Insert(ctx, sess); err != nil {
		return "", nil, err
	}
	return token, user, nil
}

// register creates a user for an email seen for the first time. The display
// name defaults to the local part of the email.
func (s *Service) register(ctx context.Context, email, password string) (*User, error) {
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, err
	}
	name := email
	if at := strings.Index(email, "@"); at >= 0 {
		name = email[:at]
	}
	now := time.Now().UTC()
	user := &User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: hash,
		Name:         name,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Insert(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Logout revokes the session matching token, or every session of the user when
// token is empty. Both variants are idempotent: a missing or already revoked
// session is a no-op, not an error.
func (s *Service) Logout(ctx context.Context, userID uuid.UUID, token string) error {
	if token != "" {
		sess, err := s.sessions.FindByToken(ctx, token, userID)
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return s.deactivate(ctx, sess)
	}

	active, err := s.sessions.FindActiveByUser(ctx, userID)
	if err != nil {
		return err
	}
	for i := range active {
		if err := s.deactivate(ctx, &active[i]); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) deactivate(ctx context.Context, sess *Session) error {
	if !sess.IsActive {
		return nil
	}
	sess.IsActive = false
	sess.LastActivity = time.Now().UTC()
	return s.sessions.Save(ctx, sess)
}

// CurrentUser resolves a user by identity. Covers the race where a token
// outlives its account.
func (s *Service) CurrentUser(ctx context.Context, userID uuid.UUID) (*User, error) {
	return s.users.GetByID(ctx, userID)
}

// GetProfile returns the user together with their most recent session.
func (s *Service) GetProfile(ctx context.Context, userID uuid.UUID) (*Profile, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	sess, err := s.sessions.FindLatestByUser(ctx, userID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	return &Profile{User: user, Session: sess}, nil
}

// UpdateProfile applies an allow-list patch of display name and avatar.
// Fields outside the allow list never reach this function and are ignored.
func (s *Service) UpdateProfile(ctx context.Context, userID uuid.UUID, patch ProfilePatch) (*User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if patch.Name != nil {
		user.Name = *patch.Name
	}
	if patch.Avatar != nil {
		user.Avatar = *patch.Avatar
	}
	user.UpdatedAt = time.Now().UTC()
	if err := s.users.Save(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// ListActiveSessions returns the sessions of a user that are still active.
func (s *Service) ListActiveSessions(ctx context.Context, userID uuid.UUID) ([]Session, error) {
	return s.sessions.FindActiveByUser(ctx, userID)
}

// RevokeSession revokes one session owned by the caller. A session that does
// not exist or belongs to someone else is reported as ErrNotFound; ownership
// failures never leak a distinct forbidden class.
func (s *Service) RevokeSession(ctx context.Context, userID, sessionID uuid.UUID) error {
	sess, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		return err
	}
	if sess.UserID != userID {
		return ErrNotFound
	}
	return s.deactivate(ctx, sess)
}

// RevokeOtherSessions revokes every active session of the user except the one
// matching currentToken, returning the number revoked.
func (s *Service) RevokeOtherSessions(ctx context.Context, userID uuid.UUID, currentToken string) (int, error) {
	active, err := s.sessions.FindActiveByUser(ctx, userID)
	if err != nil {
		return 0, err
	}
	revoked := 0
	for i := range active {
		if active[i].Token == currentToken {
			continue
		}
		if err := s.deactivate(ctx, &active[i]); err != nil {
			return revoked, err
		}
		revoked++
	}
	return revoked, nil
}
