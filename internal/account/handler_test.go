package account

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pixelsmith/pixelsmith/internal/auth"
)

type stubUserStore struct {
	users map[uuid.UUID]*auth.User
}

func (s *stubUserStore) FindByEmail(_ context.Context, email string) (*auth.User, error) {
	for _, u := range s.users {
		if u.Email == email {
			copied := *u
			return &copied, nil
		}
	}
	return nil, auth.ErrNotFound
}

func (s *stubUserStore) GetByID(_ context.Context, id uuid.UUID) (*auth.User, error) {
	u, ok := s.users[id]
	if !ok {
		return nil, auth.ErrNotFound
	}
	copied := *u
	return &copied, nil
}

func (s *stubUserStore) Insert(_ context.Context, user *auth.User) error {
	copied := *user
	s.users[user.ID] = &copied
	return nil
}

func (s *stubUserStore) Save(_ context.Context, user *auth.User) error {
	copied := *user
	s.users[user.ID] = &copied
	return nil
}

type stubSessionStore struct {
	sessions map[uuid.UUID]*auth.Session
}

func (s *stubSessionStore) Insert(_ context.Context, sess *auth.Session) error {
	copied := *sess
	s.sessions[sess.ID] = &copied
	return nil
}

func (s *stubSessionStore) Save(_ context.Context, sess *auth.Session) error {
	copied := *sess
	s.sessions[sess.ID] = &copied
	return nil
}

func (s *stubSessionStore) FindByToken(_ context.Context, token string, userID uuid.UUID) (*auth.Session, error) {
	for _, sess := range s.sessions {
		if sess.Token == token && sess.UserID == userID {
			copied := *sess
			return &copied, nil
		}
	}
	return nil, auth.ErrNotFound
}

func (s *stubSessionStore) FindByID(_ context.Context, id uuid.UUID) (*auth.Session, error) {
	sess, ok := s.sessions[id]
	if !ok {
		return nil, auth.ErrNotFound
	}
	copied := *sess
	return &copied, nil
}

func (s *stubSessionStore) FindActiveByUser(_ context.Context, userID uuid.UUID) ([]auth.Session, error) {
	var list []auth.Session
	for _, sess := range s.sessions {
		if sess.UserID == userID && sess.IsActive {
			list = append(list, *sess)
		}
	}
	return list, nil
}

func (s *stubSessionStore) FindLatestByUser(_ context.Context, userID uuid.UUID) (*auth.Session, error) {
	var latest *auth.Session
	for _, sess := range s.sessions {
		if sess.UserID != userID {
			continue
		}
		if latest == nil || sess.CreatedAt.After(latest.CreatedAt) {
			latest = sess
		}
	}
	if latest == nil {
		return nil, auth.ErrNotFound
	}
	copied := *latest
	return &copied, nil
}

type fixture struct {
	router chi.Router
	svc    *auth.Service
}

func newFixture() *fixture {
	users := &stubUserStore{users: map[uuid.UUID]*auth.User{}}
	sessions := &stubSessionStore{sessions: map[uuid.UUID]*auth.Session{}}
	issuer := auth.NewTokenIssuer("test-secret")
	svc := auth.NewService(users, sessions, auth.NewPasswordHasher(4), issuer, time.Hour)
	authenticator := auth.NewAuthenticator(issuer, svc)
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))

	router := chi.NewRouter()
	router.Route("/user", NewHandler(logger, svc, authenticator).MountRoutes)
	return &fixture{router: router, svc: svc}
}

func (f *fixture) login(t *testing.T, email string) (string, *auth.User) {
	t.Helper()
	token, user, err := f.svc.Login(context.Background(), email, "password1", auth.ClientContext{})
	require.NoError(t, err)
	return token, user
}

func (f *fixture) do(t *testing.T, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r *http.Request
	if body != "" {
		r = httptest.NewRequest(method, path, bytes.NewBufferString(body))
		r.Header.Set("Content-Type", "application/json")
	} else {
		r = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		r.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, r)
	return rec
}

func TestGetProfile(t *testing.T) {
	f := newFixture()
	token, user := f.login(t, "a@x.com")

	rec := f.do(t, http.MethodGet, "/user/profile", token, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var envelope struct {
		Data struct {
			User struct {
				ID    uuid.UUID `json:"id"`
				Email string    `json:"email"`
			} `json:"user"`
			Session *struct {
				IsActive bool `json:"is_active"`
			} `json:"session"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, user.ID, envelope.Data.User.ID)
	assert.Equal(t, "a@x.com", envelope.Data.User.Email)
	require.NotNil(t, envelope.Data.Session)
	assert.True(t, envelope.Data.Session.IsActive)
}

func TestGetProfileUnauthenticated(t *testing.T) {
	f := newFixture()

	rec := f.do(t, http.MethodGet, "/user/profile", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestUpdateProfile(t *testing.T) {
	f := newFixture()
	token, _ := f.login(t, "a@x.com")

	rec := f.do(t, http.MethodPatch, "/user/profile", token, `{"name":"Alice","avatar":"https://cdn.example.com/a.png"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"Alice"`)
	assert.Contains(t, rec.Body.String(), "a.png")
}

func TestUpdateProfileIgnoresUnknownFields(t *testing.T) {
	f := newFixture()
	token, user := f.login(t, "a@x.com")

	rec := f.do(t, http.MethodPatch, "/user/profile", token, `{"email":"evil@x.com","id":"`+uuid.NewString()+`","name":"Alice"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	updated, err := f.svc.CurrentUser(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", updated.Email, "email is outside the patch allow list")
	assert.Equal(t, "Alice", updated.Name)
}

func TestListSessions(t *testing.T) {
	f := newFixture()
	token, _ := f.login(t, "a@x.com")
	_, _ = f.login(t, "a@x.com")

	rec := f.do(t, http.MethodGet, "/user/sessions", token, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var envelope struct {
		Data struct {
			Sessions []json.RawMessage `json:"sessions"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Len(t, envelope.Data.Sessions, 2)
	assert.NotContains(t, rec.Body.String(), `"token"`, "session tokens never serialize")
}

func TestRevokeSession(t *testing.T) {
	f := newFixture()
	token, user := f.login(t, "a@x.com")

	active, err := f.svc.ListActiveSessions(context.Background(), user.ID)
	require.NoError(t, err)
	require.Len(t, active, 1)

	rec := f.do(t, http.MethodDelete, "/user/sessions/"+active[0].ID.String(), token, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	active, err = f.svc.ListActiveSessions(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Empty(t, active)
}

func TestRevokeSessionForeignOwner(t *testing.T) {
	f := newFixture()
	token, _ := f.login(t, "alice@x.com")
	_, bob := f.login(t, "bob@x.com")

	bobSessions, err := f.svc.ListActiveSessions(context.Background(), bob.ID)
	require.NoError(t, err)
	require.Len(t, bobSessions, 1)

	rec := f.do(t, http.MethodDelete, "/user/sessions/"+bobSessions[0].ID.String(), token, "")
	assert.Equal(t, http.StatusNotFound, rec.Code, "foreign sessions report not found")
}

func TestRevokeSessionMalformedID(t *testing.T) {
	f := newFixture()
	token, _ := f.login(t, "a@x.com")

	rec := f.do(t, http.MethodDelete, "/user/sessions/not-a-uuid", token, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRevokeOtherSessions(t *testing.T) {
	f := newFixture()
	token, user := f.login(t, "a@x.com")
	_, _ = f.login(t, "a@x.com")
	_, _ = f.login(t, "a@x.com")

	rec := f.do(t, http.MethodDelete, "/user/sessions", token, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), "Revoked 2 sessions")

	active, err := f.svc.ListActiveSessions(context.Background(), user.ID)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, token, active[0].Token)
}
