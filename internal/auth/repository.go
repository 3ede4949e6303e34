package auth

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound indicates no company matched the lookup.
var ErrNotFound = errors.New("company not found")

// Repository provides access to registered companies.
type Repository interface {
	FindByKeyID(ctx context.Context, keyID string) (*Company, error)
}

type pgRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL backed repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &pgRepository{pool: pool}
}

func (r *pgRepository) FindByKeyID(ctx context.Context, keyID string) (*Company, error) {
	const query = `
		SELECT id, name, key_id, api_key_hash, is_active, created_at, updated_at
		FROM companies
		WHERE key_id = $1
	`
	var c Company
	err := r.pool.QueryRow(ctx, query, keyID).Scan(
		&c.ID, &c.Name, &c.KeyID, &c.APIKeyHash, &c.IsActive, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}
