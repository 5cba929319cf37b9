package service

import (
	"context"
	"errors"

	"github.com/spec-kit/turno-service/internal/domain"
	"github.com/spec-kit/turno-service/internal/repository"
)

// QueryService exposes the read-only projections the polling clients consume:
// admin dashboard, student app and public displays. Every call reflects the
// latest committed store state; no caching.
type QueryService struct {
	tickets   repository.TicketRepository
	penalties repository.PenaltyRepository
}

// NewQueryService constructs the facade.
func NewQueryService(tickets repository.TicketRepository, penalties repository.PenaltyRepository) *QueryService {
	return &QueryService{tickets: tickets, penalties: penalties}
}

// CurrentTicket returns the cafeteria's current turn: the pending ticket with
// the smallest creation time, id ascending on ties. Nil when the queue is
// empty.
func (s *QueryService) CurrentTicket(ctx context.Context, cafeteriaID string) (*domain.Ticket, error) {
	pending, err := s.tickets.ListPendingByCafeteria(ctx, cafeteriaID)
	if err != nil {
		return nil, translateRepoError(err, "ticket")
	}
	if len(pending) == 0 {
		return nil, nil
	}
	return &pending[0], nil
}

// RemainingQueue returns every pending ticket behind the current one, in
// serving order.
func (s *QueryService) RemainingQueue(ctx context.Context, cafeteriaID string) ([]domain.Ticket, error) {
	pending, err := s.tickets.ListPendingByCafeteria(ctx, cafeteriaID)
	if err != nil {
		return nil, translateRepoError(err, "ticket")
	}
	if len(pending) <= 1 {
		return []domain.Ticket{}, nil
	}
	return pending[1:], nil
}

// PenalizedTickets returns every ticket that expired unclaimed.
func (s *QueryService) PenalizedTickets(ctx context.Context) ([]domain.Ticket, error) {
	tickets, err := s.tickets.ListByState(ctx, domain.TicketStatePenalized)
	if err != nil {
		return nil, translateRepoError(err, "ticket")
	}
	return tickets, nil
}

// ActivePenalties returns every owner currently blocked from creating
// tickets.
func (s *QueryService) ActivePenalties(ctx context.Context) ([]domain.Penalty, error) {
	penalties, err := s.penalties.ListActive(ctx)
	if err != nil {
		return nil, translateRepoError(err, "penalty")
	}
	return penalties, nil
}

// ActivePenaltyFor returns the owner's active penalty, or nil.
func (s *QueryService) ActivePenaltyFor(ctx context.Context, ownerID string) (*domain.Penalty, error) {
	penalty, err := s.penalties.ActiveFor(ctx, ownerID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil
		}
		return nil, translateRepoError(err, "penalty")
	}
	return penalty, nil
}

// HistoryFor returns the owner's full ticket history, newest first. Tickets
// are never deleted, so this is the complete record.
func (s *QueryService) HistoryFor(ctx context.Context, ownerID string) ([]domain.Ticket, error) {
	tickets, err := s.tickets.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, translateRepoError(err, "ticket")
	}
	return tickets, nil
}

// TicketsByState lists tickets for the admin dashboard, filtered to one state
// when given; an empty state returns every ticket.
func (s *QueryService) TicketsByState(ctx context.Context, state domain.TicketState) ([]domain.Ticket, error) {
	if state == "" {
		tickets, err := s.tickets.List(ctx)
		if err != nil {
			return nil, translateRepoError(err, "ticket")
		}
		return tickets, nil
	}
	tickets, err := s.tickets.ListByState(ctx, state)
	if err != nil {
		return nil, translateRepoError(err, "ticket")
	}
	return tickets, nil
}
