package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/turno-service/internal/domain"
)

// TicketRepository is the single source of truth for tickets. Mutations are
// atomic with respect to concurrent reads; state transitions go through
// UpdateState, which is a compare-and-set on the current state.
type TicketRepository interface {
	// Create inserts a pending ticket. Fails with ErrDuplicateActiveTicket if
	// the owner already holds an active ticket for that cafeteria and day.
	Create(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	// UpdateState transitions the ticket from the expected state to the next
	// one. Fails with ErrStateConflict when the ticket is in any other state,
	// which makes sweep expiration idempotent under overlapping passes.
	UpdateState(ctx context.Context, id string, from, to domain.TicketState, claimedAt *time.Time) (*domain.Ticket, error)
	// List returns every ticket, newest first.
	List(ctx context.Context) ([]domain.Ticket, error)
	ListByState(ctx context.Context, state domain.TicketState) ([]domain.Ticket, error)
	ListByOwner(ctx context.Context, ownerID string) ([]domain.Ticket, error)
	// ListByOwnerAndDate returns the owner's tickets for one service day,
	// newest first.
	ListByOwnerAndDate(ctx context.Context, ownerID string, date time.Time) ([]domain.Ticket, error)
	// ListPendingByCafeteria returns pending tickets ordered by creation time
	// ascending, id ascending on ties. The head is the "current" turn.
	ListPendingByCafeteria(ctx context.Context, cafeteriaID string) ([]domain.Ticket, error)
	// ListExpiredPending returns pending tickets created at or before cutoff.
	ListExpiredPending(ctx context.Context, cutoff time.Time) ([]domain.Ticket, error)
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates the Postgres-backed repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

const ticketColumns = `id, code, owner_id, cafeteria_id, service_date, state, created_at, claimed_at`

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (id, code, owner_id, cafeteria_id, service_date, state, created_at, claimed_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`
	_, err := r.pool.Exec(ctx, query,
		ticket.ID,
		ticket.Code,
		ticket.OwnerID,
		ticket.CafeteriaID,
		ticket.ServiceDate,
		ticket.State,
		ticket.CreatedAt,
		ticket.ClaimedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateActiveTicket
		}
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE id=$1`
	return r.fetchSingle(ctx, query, id)
}

func (r *ticketRepository) UpdateState(ctx context.Context, id string, from, to domain.TicketState, claimedAt *time.Time) (*domain.Ticket, error) {
	query := `
        UPDATE tickets SET state=$1, claimed_at=COALESCE($2, claimed_at)
        WHERE id=$3 AND state=$4
        RETURNING ` + ticketColumns
	ticket, err := r.scanRow(r.pool.QueryRow(ctx, query, to, claimedAt, id, from))
	if err == nil {
		return ticket, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	// distinguish a missing ticket from a lost compare-and-set
	if _, getErr := r.GetByID(ctx, id); getErr != nil {
		return nil, getErr
	}
	return nil, ErrStateConflict
}

func (r *ticketRepository) List(ctx context.Context) ([]domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets ORDER BY created_at DESC`
	return r.fetchMany(ctx, query)
}

func (r *ticketRepository) ListByState(ctx context.Context, state domain.TicketState) ([]domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE state=$1 ORDER BY created_at DESC`
	return r.fetchMany(ctx, query, state)
}

func (r *ticketRepository) ListByOwner(ctx context.Context, ownerID string) ([]domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE owner_id=$1 ORDER BY created_at DESC`
	return r.fetchMany(ctx, query, ownerID)
}

func (r *ticketRepository) ListByOwnerAndDate(ctx context.Context, ownerID string, date time.Time) ([]domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE owner_id=$1 AND service_date=$2 ORDER BY created_at DESC`
	return r.fetchMany(ctx, query, ownerID, domain.ServiceDate(date))
}

func (r *ticketRepository) ListPendingByCafeteria(ctx context.Context, cafeteriaID string) ([]domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + `
        FROM tickets WHERE cafeteria_id=$1 AND state=$2
        ORDER BY created_at ASC, id ASC`
	return r.fetchMany(ctx, query, cafeteriaID, domain.TicketStatePending)
}

func (r *ticketRepository) ListExpiredPending(ctx context.Context, cutoff time.Time) ([]domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + `
        FROM tickets WHERE state=$1 AND created_at <= $2
        ORDER BY created_at ASC`
	return r.fetchMany(ctx, query, domain.TicketStatePending, cutoff)
}

func (r *ticketRepository) fetchSingle(ctx context.Context, query string, args ...any) (*domain.Ticket, error) {
	return r.scanRow(r.pool.QueryRow(ctx, query, args...))
}

func (r *ticketRepository) scanRow(row pgx.Row) (*domain.Ticket, error) {
	var ticket domain.Ticket
	if err := row.Scan(
		&ticket.ID,
		&ticket.Code,
		&ticket.OwnerID,
		&ticket.CafeteriaID,
		&ticket.ServiceDate,
		&ticket.State,
		&ticket.CreatedAt,
		&ticket.ClaimedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return &ticket, nil
}

func (r *ticketRepository) fetchMany(ctx context.Context, query string, args ...any) ([]domain.Ticket, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer rows.Close()
	return scanTickets(rows)
}

func scanTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for rows.Next() {
		var ticket domain.Ticket
		if err := rows.Scan(
			&ticket.ID,
			&ticket.Code,
			&ticket.OwnerID,
			&ticket.CafeteriaID,
			&ticket.ServiceDate,
			&ticket.State,
			&ticket.CreatedAt,
			&ticket.ClaimedAt,
		); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		result = append(result, ticket)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return result, nil
}
