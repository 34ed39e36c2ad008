package generation

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RepositoryPort defines data access methods for generations.
type RepositoryPort interface {
	Insert(ctx context.Context, gen *Generation) error
	Update(ctx context.Context, gen *Generation) error
	GetByID(ctx context.Context, id uuid.UUID) (*Generation, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]Generation, error)
	DeleteByID(ctx context.Context, id uuid.UUID) error
	DeleteByUser(ctx context.Context, userID uuid.UUID) (int64, error)
}

// Repository provides PostgreSQL backed persistence. Settings are stored as a
// jsonb column and scanned through pgx's native JSON support.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Insert persists a new generation record.
func (r *Repository) Insert(ctx context.Context, gen *Generation) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO generations (id, user_id, prompt, image_url, status, settings, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		gen.ID, gen.UserID, gen.Prompt, gen.ImageURL, gen.Status, gen.Settings, gen.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("generationRepo: insert: %w", err)
	}
	return nil
}

// Update persists the mutable outcome fields of a generation.
func (r *Repository) Update(ctx context.Context, gen *Generation) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE generations SET image_url = $2, status = $3 WHERE id = $1`,
		gen.ID, gen.ImageURL, gen.Status,
	)
	if err != nil {
		return fmt.Errorf("generationRepo: update: %w", err)
	}
	return nil
}

// GetByID fetches one generation by identity.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Generation, error) {
	var gen Generation
	err := r.pool.QueryRow(ctx,
		`SELECT id, user_id, prompt, image_url, status, settings, created_at FROM generations WHERE id = $1`, id,
	).Scan(&gen.ID, &gen.UserID, &gen.Prompt, &gen.ImageURL, &gen.Status, &gen.Settings, &gen.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("generationRepo: getByID: %w", err)
	}
	return &gen, nil
}

// ListByUser returns the caller's generations, newest first.
func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID) ([]Generation, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, user_id, prompt, image_url, status, settings, created_at
		 FROM generations WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("generationRepo: listByUser: %w", err)
	}
	defer rows.Close()
	var list []Generation
	for rows.Next() {
		var gen Generation
		if err := rows.Scan(&gen.ID, &gen.UserID, &gen.Prompt, &gen.ImageURL, &gen.Status, &gen.Settings, &gen.CreatedAt); err != nil {
			return nil, fmt.Errorf("generationRepo: listByUser: %w", err)
		}
		list = append(list, gen)
	}
	return list, rows.Err()
}

// DeleteByID removes one generation row.
func (r *Repository) DeleteByID(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM generations WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("generationRepo: deleteByID: %w", err)
	}
	return nil
}

// DeleteByUser removes every generation of a user, returning the count.
func (r *Repository) DeleteByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM generations WHERE user_id = $1`, userID)
	if err != nil {
		return 0, fmt.Errorf("generationRepo: deleteByUser: %w", err)
	}
	return tag.RowsAffected(), nil
}

var _ RepositoryPort = (*Repository)(nil)
