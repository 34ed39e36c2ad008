package generation

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sort"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pixelsmith/pixelsmith/internal/imagegen"
)

type memRepo struct {
	generations map[uuid.UUID]*Generation
	listCalls   int
}

func newMemRepo() *memRepo {
	return &memRepo{generations: map[uuid.UUID]*Generation{}}
}

func (r *memRepo) Insert(_ context.Context, gen *Generation) error {
	copied := *gen
	r.generations[gen.ID] = &copied
	return nil
}

func (r *memRepo) Update(_ context.Context, gen *Generation) error {
	if _, ok := r.generations[gen.ID]; !ok {
		return ErrNotFound
	}
	copied := *gen
	r.generations[gen.ID] = &copied
	return nil
}

func (r *memRepo) GetByID(_ context.Context, id uuid.UUID) (*Generation, error) {
	gen, ok := r.generations[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *gen
	return &copied, nil
}

func (r *memRepo) ListByUser(_ context.Context, userID uuid.UUID) ([]Generation, error) {
	r.listCalls++
	var list []Generation
	for _, gen := range r.generations {
		if gen.UserID == userID {
			list = append(list, *gen)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].CreatedAt.After(list[j].CreatedAt) })
	return list, nil
}

func (r *memRepo) DeleteByID(_ context.Context, id uuid.UUID) error {
	delete(r.generations, id)
	return nil
}

func (r *memRepo) DeleteByUser(_ context.Context, userID uuid.UUID) (int64, error) {
	var deleted int64
	for id, gen := range r.generations {
		if gen.UserID == userID {
			delete(r.generations, id)
			deleted++
		}
	}
	return deleted, nil
}

var _ RepositoryPort = (*memRepo)(nil)

type stubProvider struct {
	image    []byte
	err      error
	requests []imagegen.Request
}

func (p *stubProvider) TextToImage(_ context.Context, req imagegen.Request) ([]byte, error) {
	p.requests = append(p.requests, req)
	if p.err != nil {
		return nil, p.err
	}
	return p.image, nil
}

type stubUploader struct {
	url     string
	err     error
	uploads [][]byte
	folders []string
}

func (u *stubUploader) Upload(_ context.Context, image []byte, folder string) (string, error) {
	u.uploads = append(u.uploads, image)
	u.folders = append(u.folders, folder)
	if u.err != nil {
		return "", u.err
	}
	return u.url, nil
}

func (u *stubUploader) Delete(_ context.Context, _ string) error { return nil }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

func newTestService(t *testing.T) (*Service, *memRepo, *stubProvider, *stubUploader) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	repo := newMemRepo()
	provider := &stubProvider{image: []byte("png-bytes")}
	uploader := &stubUploader{url: "https://cdn.example.com/img.png"}
	svc := NewService(repo, provider, uploader, NewCache(client, time.Minute), nil, testLogger())
	return svc, repo, provider, uploader
}

func TestCreateCompletes(t *testing.T) {
	svc, repo, provider, uploader := newTestService(t)
	userID := uuid.New()

	gen, err := svc.Create(context.Background(), userID, CreateRequest{Prompt: "a red fox"})
	require.NoError(t, err)

	assert.Equal(t, StatusCompleted, gen.Status)
	assert.Equal(t, "https://cdn.example.com/img.png", gen.ImageURL)
	assert.Equal(t, DefaultSettings(), gen.Settings)

	stored, err := repo.GetByID(context.Background(), gen.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, stored.Status)

	require.Len(t, provider.requests, 1)
	assert.Equal(t, "a red fox", provider.requests[0].Prompt)
	assert.Equal(t, 512, provider.requests[0].Width)

	require.Len(t, uploader.uploads, 1)
	assert.Equal(t, []byte("png-bytes"), uploader.uploads[0])
	assert.Equal(t, []string{"ai-generated"}, uploader.folders)
}

func TestCreateNormalizesSettings(t *testing.T) {
	svc, _, provider, _ := newTestService(t)

	gen, err := svc.Create(context.Background(), uuid.New(), CreateRequest{
		Prompt:   "a red fox",
		Settings: &Settings{Width: -1, Height: 0, Style: "anime"},
	})
	require.NoError(t, err)

	assert.Equal(t, 512, gen.Settings.Width)
	assert.Equal(t, 512, gen.Settings.Height)
	assert.Equal(t, "dall-e-3", gen.Settings.Model)
	assert.Equal(t, "anime", gen.Settings.Style)
	require.Len(t, provider.requests, 1)
	assert.Equal(t, "anime", provider.requests[0].Style)
}

func TestCreateProviderFailure(t *testing.T) {
	svc, repo, provider, uploader := newTestService(t)
	provider.err = errors.New("model warming up")
	userID := uuid.New()

	_, err := svc.Create(context.Background(), userID, CreateRequest{Prompt: "a red fox"})
	require.Error(t, err)
	assert.Empty(t, uploader.uploads, "nothing is uploaded when rendering fails")

	// The failed attempt stays in history.
	list, err := repo.ListByUser(context.Background(), userID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, StatusFailed, list[0].Status)
	assert.Empty(t, list[0].ImageURL)
}

func TestCreateUploadFailure(t *testing.T) {
	svc, repo, _, uploader := newTestService(t)
	uploader.err = errors.New("cloud unreachable")
	userID := uuid.New()

	_, err := svc.Create(context.Background(), userID, CreateRequest{Prompt: "a red fox"})
	require.Error(t, err)

	list, err := repo.ListByUser(context.Background(), userID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, StatusFailed, list[0].Status)
}

func TestListReadsThroughCache(t *testing.T) {
	svc, repo, _, _ := newTestService(t)
	userID := uuid.New()

	_, err := svc.Create(context.Background(), userID, CreateRequest{Prompt: "one"})
	require.NoError(t, err)

	repo.listCalls = 0
	first, err := svc.List(context.Background(), userID)
	require.NoError(t, err)
	require.Len(t, first, 1)
	assert.Equal(t, 1, repo.listCalls)

	second, err := svc.List(context.Background(), userID)
	require.NoError(t, err)
	require.Len(t, second, 1)
	assert.Equal(t, first[0].ID, second[0].ID)
	assert.Equal(t, 1, repo.listCalls, "second read is served from cache")

	// A new generation invalidates the cached history.
	_, err = svc.Create(context.Background(), userID, CreateRequest{Prompt: "two"})
	require.NoError(t, err)

	third, err := svc.List(context.Background(), userID)
	require.NoError(t, err)
	assert.Len(t, third, 2)
	assert.Equal(t, 2, repo.listCalls)
}

func TestListWithoutCache(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(repo, &stubProvider{image: []byte("x")}, &stubUploader{url: "u"}, NewCache(nil, time.Minute), nil, testLogger())
	userID := uuid.New()

	_, err := svc.Create(context.Background(), userID, CreateRequest{Prompt: "one"})
	require.NoError(t, err)

	list, err := svc.List(context.Background(), userID)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestGetEnforcesOwnership(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	owner := uuid.New()

	gen, err := svc.Create(context.Background(), owner, CreateRequest{Prompt: "one"})
	require.NoError(t, err)

	got, err := svc.Get(context.Background(), owner, gen.ID)
	require.NoError(t, err)
	assert.Equal(t, gen.ID, got.ID)

	_, err = svc.Get(context.Background(), uuid.New(), gen.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.Get(context.Background(), owner, uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteEnforcesOwnership(t *testing.T) {
	svc, repo, _, _ := newTestService(t)
	owner := uuid.New()

	gen, err := svc.Create(context.Background(), owner, CreateRequest{Prompt: "one"})
	require.NoError(t, err)

	err = svc.Delete(context.Background(), uuid.New(), gen.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Len(t, repo.generations, 1)

	require.NoError(t, svc.Delete(context.Background(), owner, gen.ID))
	assert.Empty(t, repo.generations)
}

func TestClearHistory(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	owner := uuid.New()
	other := uuid.New()

	for range 3 {
		_, err := svc.Create(context.Background(), owner, CreateRequest{Prompt: "x"})
		require.NoError(t, err)
	}
	_, err := svc.Create(context.Background(), other, CreateRequest{Prompt: "y"})
	require.NoError(t, err)

	deleted, err := svc.ClearHistory(context.Background(), owner)
	require.NoError(t, err)
	assert.Equal(t, int64(3), deleted)

	list, err := svc.List(context.Background(), other)
	require.NoError(t, err)
	assert.Len(t, list, 1, "other users keep their history")
}
