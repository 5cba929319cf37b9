package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/turno-service/internal/domain"
)

// PenaltyRepository tracks penalties per owner. At most one active penalty per
// owner, enforced by the store.
type PenaltyRepository interface {
	// ActiveFor returns the owner's active penalty, or ErrNotFound.
	ActiveFor(ctx context.Context, ownerID string) (*domain.Penalty, error)
	// Issue records a penalty. Idempotent: when the owner already has an
	// active penalty the existing record is returned unchanged.
	Issue(ctx context.Context, penalty *domain.Penalty) (*domain.Penalty, error)
	// Clear deactivates the owner's active penalty, or ErrNotFound.
	Clear(ctx context.Context, ownerID string) error
	ListActive(ctx context.Context) ([]domain.Penalty, error)
	ListByOwner(ctx context.Context, ownerID string) ([]domain.Penalty, error)
}

type penaltyRepository struct {
	pool *pgxpool.Pool
}

// NewPenaltyRepository instantiates the Postgres-backed ledger.
func NewPenaltyRepository(pool *pgxpool.Pool) PenaltyRepository {
	return &penaltyRepository{pool: pool}
}

func (r *penaltyRepository) ActiveFor(ctx context.Context, ownerID string) (*domain.Penalty, error) {
	const query = `SELECT id, owner_id, reason, created_at, active FROM penalties WHERE owner_id=$1 AND active`
	return r.scanRow(r.pool.QueryRow(ctx, query, ownerID))
}

func (r *penaltyRepository) Issue(ctx context.Context, penalty *domain.Penalty) (*domain.Penalty, error) {
	const query = `
        INSERT INTO penalties (id, owner_id, reason, created_at, active)
        VALUES ($1,$2,$3,$4,TRUE)`
	_, err := r.pool.Exec(ctx, query, penalty.ID, penalty.OwnerID, penalty.Reason, penalty.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return r.ActiveFor(ctx, penalty.OwnerID)
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	penalty.Active = true
	return penalty, nil
}

func (r *penaltyRepository) Clear(ctx context.Context, ownerID string) error {
	const query = `UPDATE penalties SET active=FALSE WHERE owner_id=$1 AND active`
	cmd, err := r.pool.Exec(ctx, query, ownerID)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *penaltyRepository) ListActive(ctx context.Context) ([]domain.Penalty, error) {
	const query = `SELECT id, owner_id, reason, created_at, active FROM penalties WHERE active ORDER BY created_at DESC`
	return r.fetchMany(ctx, query)
}

func (r *penaltyRepository) ListByOwner(ctx context.Context, ownerID string) ([]domain.Penalty, error) {
	const query = `SELECT id, owner_id, reason, created_at, active FROM penalties WHERE owner_id=$1 ORDER BY created_at DESC`
	return r.fetchMany(ctx, query, ownerID)
}

func (r *penaltyRepository) scanRow(row pgx.Row) (*domain.Penalty, error) {
	var penalty domain.Penalty
	if err := row.Scan(&penalty.ID, &penalty.OwnerID, &penalty.Reason, &penalty.CreatedAt, &penalty.Active); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return &penalty, nil
}

func (r *penaltyRepository) fetchMany(ctx context.Context, query string, args ...any) ([]domain.Penalty, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer rows.Close()

	var result []domain.Penalty
	for rows.Next() {
		var penalty domain.Penalty
		if err := rows.Scan(&penalty.ID, &penalty.OwnerID, &penalty.Reason, &penalty.CreatedAt, &penalty.Active); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		result = append(result, penalty)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return result, nil
}
