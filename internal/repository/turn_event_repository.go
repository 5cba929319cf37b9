package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/turno-service/internal/domain"
)

// TurnEventRepository stores the append-only audit trail of ticket
// transitions.
type TurnEventRepository interface {
	Append(ctx context.Context, event *domain.TurnEvent) error
	ListByTicket(ctx context.Context, ticketID string) ([]domain.TurnEvent, error)
}

type turnEventRepository struct {
	pool *pgxpool.Pool
}

// NewTurnEventRepository instantiates the Postgres-backed trail.
func NewTurnEventRepository(pool *pgxpool.Pool) TurnEventRepository {
	return &turnEventRepository{pool: pool}
}

func (r *turnEventRepository) Append(ctx context.Context, event *domain.TurnEvent) error {
	const query = `
        INSERT INTO turn_events (id, ticket_id, from_state, to_state, actor, note, created_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7)`
	_, err := r.pool.Exec(ctx, query,
		event.ID,
		event.TicketID,
		event.FromState,
		event.ToState,
		event.Actor,
		event.Note,
		event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func (r *turnEventRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.TurnEvent, error) {
	const query = `
        SELECT id, ticket_id, from_state, to_state, actor, note, created_at
        FROM turn_events WHERE ticket_id=$1 ORDER BY created_at ASC`
	rows, err := r.pool.Query(ctx, query, ticketID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer rows.Close()

	var result []domain.TurnEvent
	for rows.Next() {
		var event domain.TurnEvent
		if err := rows.Scan(
			&event.ID,
			&event.TicketID,
			&event.FromState,
			&event.ToState,
			&event.Actor,
			&event.Note,
			&event.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		result = append(result, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return result, nil
}
