package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/exstem-qbank/internal/model"
)

// OriginRepository reads the question origin vocabulary.
type OriginRepository struct {
	pool *pgxpool.Pool
}

// NewOriginRepository creates a new OriginRepository.
func NewOriginRepository(pool *pgxpool.Pool) *OriginRepository {
	return &OriginRepository{pool: pool}
}

// Exists reports whether name is a known origin.
func (r *OriginRepository) Exists(ctx context.Context, name string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM question_origin WHERE name = $1)`, name,
	).Scan(&exists)
	return exists, err
}

// List returns the whole vocabulary ordered by name.
func (r *OriginRepository) List(ctx context.Context) ([]model.Origin, error) {
	rows, err := r.pool.Query(ctx, `SELECT name, description FROM question_origin ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var origins []model.Origin
	for rows.Next() {
		var o model.Origin
		if err := rows.Scan(&o.Name, &o.Description); err != nil {
			return nil, err
		}
		origins = append(origins, o)
	}
	return origins, rows.Err()
}
