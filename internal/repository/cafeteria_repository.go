package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/turno-service/internal/domain"
)

// CafeteriaRepository owns cafeteria records. Pure key-value state with no
// time dependency.
type CafeteriaRepository interface {
	Create(ctx context.Context, cafeteria *domain.Cafeteria) error
	GetByID(ctx context.Context, id string) (*domain.Cafeteria, error)
	List(ctx context.Context) ([]domain.Cafeteria, error)
	SetState(ctx context.Context, id string, state domain.CafeteriaState) (*domain.Cafeteria, error)
}

type cafeteriaRepository struct {
	pool *pgxpool.Pool
}

// NewCafeteriaRepository instantiates the Postgres-backed registry.
func NewCafeteriaRepository(pool *pgxpool.Pool) CafeteriaRepository {
	return &cafeteriaRepository{pool: pool}
}

func (r *cafeteriaRepository) Create(ctx context.Context, cafeteria *domain.Cafeteria) error {
	const query = `
        INSERT INTO cafeterias (name, state)
        VALUES ($1,$2)
        RETURNING id, updated_at`
	err := r.pool.QueryRow(ctx, query, cafeteria.Name, cafeteria.State).
		Scan(&cafeteria.ID, &cafeteria.UpdatedAt)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func (r *cafeteriaRepository) GetByID(ctx context.Context, id string) (*domain.Cafeteria, error) {
	const query = `SELECT id, name, state, updated_at FROM cafeterias WHERE id=$1`
	var cafeteria domain.Cafeteria
	err := r.pool.QueryRow(ctx, query, id).
		Scan(&cafeteria.ID, &cafeteria.Name, &cafeteria.State, &cafeteria.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return &cafeteria, nil
}

func (r *cafeteriaRepository) List(ctx context.Context) ([]domain.Cafeteria, error) {
	const query = `SELECT id, name, state, updated_at FROM cafeterias ORDER BY name ASC`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer rows.Close()

	var result []domain.Cafeteria
	for rows.Next() {
		var cafeteria domain.Cafeteria
		if err := rows.Scan(&cafeteria.ID, &cafeteria.Name, &cafeteria.State, &cafeteria.UpdatedAt); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		result = append(result, cafeteria)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return result, nil
}

func (r *cafeteriaRepository) SetState(ctx context.Context, id string, state domain.CafeteriaState) (*domain.Cafeteria, error) {
	const query = `
        UPDATE cafeterias SET state=$1, updated_at=NOW()
        WHERE id=$2
        RETURNING id, name, state, updated_at`
	var cafeteria domain.Cafeteria
	err := r.pool.QueryRow(ctx, query, state, id).
		Scan(&cafeteria.ID, &cafeteria.Name, &cafeteria.State, &cafeteria.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return &cafeteria, nil
}
