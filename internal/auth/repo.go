package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// UserStore defines persistence operations for user records.
type UserStore interface {
	FindByEmail(ctx context.Context, email string) (*User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	Insert(ctx context.Context, user *User) error
	Save(ctx context.Context, user *User) error
}

// SessionStore defines persistence operations for session records.
type SessionStore interface {
	Insert(ctx context.Context, sess *Session) error
	Save(ctx context.Context, sess *Session) error
	FindByToken(ctx context.Context, token string, userID uuid.UUID) (*Session, error)
	FindByID(ctx context.Context, id uuid.UUID) (*Session, error)
	FindActiveByUser(ctx context.Context, userID uuid.UUID) ([]Session, error)
	FindLatestByUser(ctx context.Context, userID uuid.UUID) (*Session, error)
}

// PGUserStore implements UserStore using PostgreSQL.
type PGUserStore struct {
	pool *pgxpool.Pool
}

// NewUserStore constructs a PostgreSQL user store.
func NewUserStore(pool *pgxpool.Pool) *PGUserStore {
	return &PGUserStore{pool: pool}
}

const userColumns = `id, email, password_hash, name, COALESCE(avatar, ''), created_at, updated_at`

func scanUser(row pgx.Row) (*User, error) {
	var u User
	if err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Name, &u.Avatar, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("userStore: scan: %w", err)
	}
	return &u, nil
}

// FindByEmail fetches a user by exact email match.
func (s *PGUserStore) FindByEmail(ctx context.Context, email string) (*User, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	return scanUser(row)
}

// GetByID fetches a user by identity.
func (s *PGUserStore) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

// Insert persists a new user. The unique index on email serializes concurrent
// auto-registrations; a violation surfaces as ErrRegistrationConflict.
func (s *PGUserStore) Insert(ctx context.Context, user *User) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO users (id, email, password_hash, name, avatar, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, $7)`,
		user.ID, user.Email, user.PasswordHash, user.Name, user.Avatar, user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrRegistrationConflict
		}
		return fmt.Errorf("userStore: insert: %w", err)
	}
	return nil
}

// Save updates the mutable profile fields of an existing user.
func (s *PGUserStore) Save(ctx context.Context, user *User) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE users SET name = $2, avatar = NULLIF($3, ''), updated_at = $4 WHERE id = $1`,
		user.ID, user.Name, user.Avatar, user.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("userStore: save: %w", err)
	}
	return nil
}

// PGSessionStore implements SessionStore using PostgreSQL.
type PGSessionStore struct {
	pool *pgxpool.Pool
}

// NewSessionStore constructs a PostgreSQL session store.
func NewSessionStore(pool *pgxpool.Pool) *PGSessionStore {
	return &PGSessionStore{pool: pool}
}

const sessionColumns = `id, user_id, token, expires_at, COALESCE(ip_address, ''), COALESCE(user_agent, ''), COALESCE(device_info, ''), is_active, last_activity, created_at`

func scanSession(row pgx.Row) (*Session, error) {
	var s Session
	err := row.Scan(&s.ID, &s.UserID, &s.Token, &s.ExpiresAt, &s.IP, &s.UserAgent, &s.DeviceInfo, &s.IsActive, &s.LastActivity, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("sessionStore: scan: %w", err)
	}
	return &s, nil
}

// Insert persists a new session record.
func (s *PGSessionStore) Insert(ctx context.Context, sess *Session) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO sessions (id, user_id, token, expires_at, ip_address, user_agent, device_info, is_active, last_activity, created_at)
		 VALUES ($1, $2, $3, $4, NULLIF($5, ''), NULLIF($6, ''), NULLIF($7, ''), $8, $9, $10)`,
		sess.ID, sess.UserID, sess.Token, sess.ExpiresAt, sess.IP, sess.UserAgent, sess.DeviceInfo, sess.IsActive, sess.LastActivity, sess.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("sessionStore: insert: %w", err)
	}
	return nil
}

// Save updates the revocation flag and activity timestamp of a session.
func (s *PGSessionStore) Save(ctx context.Context, sess *Session) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE sessions SET is_active = $2, last_activity = $3 WHERE id = $1`,
		sess.ID, sess.IsActive, sess.LastActivity,
	)
	if err != nil {
		return fmt.Errorf("sessionStore: save: %w", err)
	}
	return nil
}

// FindByToken fetches the session matching the exact (token, user) pair.
func (s *PGSessionStore) FindByToken(ctx context.Context, token string, userID uuid.UUID) (*Session, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE token = $1 AND user_id = $2`, token, userID)
	return scanSession(row)
}

// FindByID fetches a session by identity regardless of owner or state.
func (s *PGSessionStore) FindByID(ctx context.Context, id uuid.UUID) (*Session, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE id = $1`, id)
	return scanSession(row)
}

// FindActiveByUser lists the sessions of a user that are still active.
func (s *PGSessionStore) FindActiveByUser(ctx context.Context, userID uuid.UUID) ([]Session, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE user_id = $1 AND is_active ORDER BY last_activity DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("sessionStore: findActiveByUser: %w", err)
	}
	defer rows.Close()
	var list []Session
	for rows.Next() {
		var sess Session
		if err := rows.Scan(&sess.ID, &sess.UserID, &sess.Token, &sess.ExpiresAt, &sess.IP, &sess.UserAgent, &sess.DeviceInfo, &sess.IsActive, &sess.LastActivity, &sess.CreatedAt); err != nil {
			return nil, fmt.Errorf("sessionStore: findActiveByUser: %w", err)
		}
		list = append(list, sess)
	}
	return list, rows.Err()
}

// FindLatestByUser fetches the most recently created session of a user.
func (s *PGSessionStore) FindLatestByUser(ctx context.Context, userID uuid.UUID) (*Session, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE user_id = $1 ORDER BY created_at DESC LIMIT 1`, userID)
	return scanSession(row)
}

var (
	_ UserStore    = (*PGUserStore)(nil)
	_ SessionStore = (*PGSessionStore)(nil)
)
