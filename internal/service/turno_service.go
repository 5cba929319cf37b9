package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/turno-service/internal/clock"
	"github.com/spec-kit/turno-service/internal/config"
	"github.com/spec-kit/turno-service/internal/domain"
	"github.com/spec-kit/turno-service/internal/events"
	"github.com/spec-kit/turno-service/internal/observability"
	"github.com/spec-kit/turno-service/internal/repository"
	apperrors "github.com/spec-kit/turno-service/pkg/util"
)

// TurnoService is the turn lifecycle engine. It holds no state itself; every
// operation orchestrates reads and writes across the stores, with state
// transitions guarded by a compare-and-set on the ticket's current state.
type TurnoService struct {
	tickets    repository.TicketRepository
	cafeterias repository.CafeteriaRepository
	penalties  repository.PenaltyRepository
	trail      repository.TurnEventRepository
	codes      repository.CodeAllocator
	clock      clock.Clock
	dispatcher events.Dispatcher
	logger     *zap.Logger
	metrics    *observability.Metrics
	cfg        config.TurnoConfig
}

// TurnoDependencies bundles collaborators for the engine.
type TurnoDependencies struct {
	TicketRepo    repository.TicketRepository
	CafeteriaRepo repository.CafeteriaRepository
	PenaltyRepo   repository.PenaltyRepository
	TurnEventRepo repository.TurnEventRepository
	CodeAllocator repository.CodeAllocator
	Clock         clock.Clock
	Dispatcher    events.Dispatcher
	Logger        *zap.Logger
	Metrics       *observability.Metrics
}

// NewTurnoService constructs the engine.
func NewTurnoService(cfg config.TurnoConfig, deps TurnoDependencies) *TurnoService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clk := deps.Clock
	if clk == nil {
		clk = clock.System()
	}
	return &TurnoService{
		tickets:    deps.TicketRepo,
		cafeterias: deps.CafeteriaRepo,
		penalties:  deps.PenaltyRepo,
		trail:      deps.TurnEventRepo,
		codes:      deps.CodeAllocator,
		clock:      clk,
		dispatcher: deps.Dispatcher,
		logger:     logger,
		metrics:    deps.Metrics,
		cfg:        cfg,
	}
}

// CreateTicket requests a new turn for the owner at the cafeteria. Fails when
// the cafeteria is not open, the owner carries an active penalty, or the owner
// already holds an active ticket for today.
func (s *TurnoService) CreateTicket(ctx context.Context, ownerID, cafeteriaID string) (*domain.Ticket, error) {
	cafeteria, err := s.cafeterias.GetByID(ctx, cafeteriaID)
	if err != nil {
		return nil, translateRepoError(err, "cafeteria")
	}
	if cafeteria.State != domain.CafeteriaStateOpen {
		return nil, apperrors.NewCafeteriaClosed(string(cafeteria.State))
	}

	if penalty, err := s.penalties.ActiveFor(ctx, ownerID); err == nil {
		return nil, apperrors.NewActivePenalty(penalty.ID)
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, translateRepoError(err, "penalty")
	}

	ticket, err := s.issueTicket(ctx, ownerID, cafeteriaID, "owner:"+ownerID, "created")
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.TurnsCreated.Inc()
	}
	s.publishEvent(ctx, events.Event{
		Type:        events.EventTurnCreated,
		TicketID:    ticket.ID,
		OwnerID:     ownerID,
		CafeteriaID: cafeteriaID,
		Actor:       "owner:" + ownerID,
		Payload: events.TurnCreatedPayload{
			Code:        ticket.Code,
			ServiceDate: ticket.ServiceDate,
		},
	})
	return ticket, nil
}

// issueTicket allocates a code and inserts a pending ticket. Shared by
// CreateTicket and Depenalize; the store enforces the one-active-per-day rule
// atomically.
func (s *TurnoService) issueTicket(ctx context.Context, ownerID, cafeteriaID, actor, note string) (*domain.Ticket, error) {
	now := s.clock.Now()
	seq, err := s.codes.Next(ctx, cafeteriaID, now)
	if err != nil {
		return nil, translateRepoError(err, "code")
	}

	ticket := &domain.Ticket{
		ID:          uuid.NewString(),
		Code:        fmt.Sprintf("%s-%03d", s.cfg.CodePrefix, seq),
		OwnerID:     ownerID,
		CafeteriaID: cafeteriaID,
		ServiceDate: domain.ServiceDate(now),
		State:       domain.TicketStatePending,
		CreatedAt:   now,
	}
	if err := s.tickets.Create(ctx, ticket); err != nil {
		if errors.Is(err, repository.ErrDuplicateActiveTicket) {
			return nil, apperrors.NewDuplicateTicket()
		}
		return nil, translateRepoError(err, "ticket")
	}
	s.recordTransition(ctx, ticket.ID, "", domain.TicketStatePending, actor, note)
	return ticket, nil
}

// Deliver marks a pending ticket as served now.
func (s *TurnoService) Deliver(ctx context.Context, ticketID, actor string) (*domain.Ticket, error) {
	now := s.clock.Now()
	ticket, err := s.tickets.UpdateState(ctx, ticketID, domain.TicketStatePending, domain.TicketStateDelivered, &now)
	if err != nil {
		return nil, s.translateTransitionError(ctx, err, ticketID)
	}
	s.recordTransition(ctx, ticket.ID, domain.TicketStatePending, domain.TicketStateDelivered, actor, "delivered")
	if s.metrics != nil {
		s.metrics.TurnsDelivered.Inc()
	}
	s.publishEvent(ctx, events.Event{
		Type:        events.EventTurnDelivered,
		TicketID:    ticket.ID,
		OwnerID:     ticket.OwnerID,
		CafeteriaID: ticket.CafeteriaID,
		Actor:       actor,
		Payload: events.TurnStateChangedPayload{
			OldState: domain.TicketStatePending,
			NewState: domain.TicketStateDelivered,
		},
	})
	return ticket, nil
}

// Advance skips a pending turn without serving it. The ticket leaves the
// queue as ADVANCED: terminal, unserved, no penalty, no claim timestamp.
func (s *TurnoService) Advance(ctx context.Context, ticketID, actor string) (*domain.Ticket, error) {
	ticket, err := s.tickets.UpdateState(ctx, ticketID, domain.TicketStatePending, domain.TicketStateAdvanced, nil)
	if err != nil {
		return nil, s.translateTransitionError(ctx, err, ticketID)
	}
	s.recordTransition(ctx, ticket.ID, domain.TicketStatePending, domain.TicketStateAdvanced, actor, "advanced")
	if s.metrics != nil {
		s.metrics.TurnsAdvanced.Inc()
	}
	s.publishEvent(ctx, events.Event{
		Type:        events.EventTurnAdvanced,
		TicketID:    ticket.ID,
		OwnerID:     ticket.OwnerID,
		CafeteriaID: ticket.CafeteriaID,
		Actor:       actor,
		Payload: events.TurnStateChangedPayload{
			OldState: domain.TicketStatePending,
			NewState: domain.TicketStateAdvanced,
		},
	})
	return ticket, nil
}

// Depenalize clears the owner's active penalty and reissues a fresh pending
// ticket dated now, so the owner re-enters the queue at the back rather than
// resuming the stale slot. Fails with NotFound when no penalty is active.
func (s *TurnoService) Depenalize(ctx context.Context, ownerID, actor string) (*domain.Ticket, error) {
	penalty, err := s.penalties.ActiveFor(ctx, ownerID)
	if err != nil {
		return nil, translateRepoError(err, "penalty")
	}
	if err := s.penalties.Clear(ctx, ownerID); err != nil {
		return nil, translateRepoError(err, "penalty")
	}

	var reissued *domain.Ticket
	if penalized := s.latestPenalizedTicket(ctx, ownerID); penalized != nil {
		reissued, err = s.issueTicket(ctx, ownerID, penalized.CafeteriaID, actor, "reissued after depenalization")
		if err != nil {
			// reinstate the penalty so a failed depenalization changes
			// nothing and the admin can retry
			restore := &domain.Penalty{
				ID:        uuid.NewString(),
				OwnerID:   ownerID,
				Reason:    penalty.Reason,
				CreatedAt: penalty.CreatedAt,
			}
			if _, restoreErr := s.penalties.Issue(ctx, restore); restoreErr != nil {
				s.logger.Error("depenalize: penalty reinstatement failed",
					zap.String("owner_id", ownerID), zap.Error(restoreErr))
			}
			s.logger.Error("depenalize: reissue failed",
				zap.String("owner_id", ownerID), zap.Error(err))
			return nil, err
		}
	}

	if s.metrics != nil {
		s.metrics.TurnsDepenalized.Inc()
	}
	payload := events.TurnDepenalizedPayload{PenaltyID: penalty.ID}
	event := events.Event{
		Type:    events.EventTurnDepenalized,
		OwnerID: ownerID,
		Actor:   actor,
		Payload: payload,
	}
	if reissued != nil {
		payload.NewTicketID = reissued.ID
		payload.NewCode = reissued.Code
		event.Payload = payload
		event.TicketID = reissued.ID
		event.CafeteriaID = reissued.CafeteriaID
	}
	s.publishEvent(ctx, event)
	return reissued, nil
}

// Sweep expires every pending ticket older than the TTL: each is moved
// through EXPIRED to PENALIZED and a penalty is issued for its owner. Safe to
// run concurrently with itself and with the admin operations; the
// compare-and-set transition guarantees a ticket expires at most once. A
// failure on one ticket is logged and does not stop the pass.
func (s *TurnoService) Sweep(ctx context.Context) (int, error) {
	now := s.clock.Now()
	cutoff := now.Add(-s.cfg.TicketTTL())
	stale, err := s.tickets.ListExpiredPending(ctx, cutoff)
	if err != nil {
		return 0, translateRepoError(err, "ticket")
	}

	if s.metrics != nil {
		s.metrics.SweepRuns.Inc()
	}

	expired := 0
	for i := range stale {
		if err := s.expireTicket(ctx, &stale[i]); err != nil {
			if errors.Is(err, repository.ErrStateConflict) {
				// another sweep pass or an admin action won the race
				continue
			}
			if s.metrics != nil {
				s.metrics.SweepErrors.Inc()
			}
			s.logger.Error("sweep: ticket expiration failed",
				zap.String("ticket_id", stale[i].ID), zap.Error(err))
			continue
		}
		expired++
	}
	return expired, nil
}

func (s *TurnoService) expireTicket(ctx context.Context, stale *domain.Ticket) error {
	// The penalty is issued before the state flip. Issue is idempotent, so a
	// pass that fails between the two steps leaves the ticket PENDING and the
	// next sweep completes the expiration; the reverse order could strand a
	// PENALIZED ticket with no penalty on record.
	penalty := &domain.Penalty{
		ID:        uuid.NewString(),
		OwnerID:   stale.OwnerID,
		Reason:    "turn not claimed in time",
		CreatedAt: s.clock.Now(),
	}
	issued, err := s.penalties.Issue(ctx, penalty)
	if err != nil {
		return err
	}

	ticket, err := s.tickets.UpdateState(ctx, stale.ID, domain.TicketStatePending, domain.TicketStatePenalized, nil)
	if err != nil {
		if errors.Is(err, repository.ErrStateConflict) {
			if current, getErr := s.tickets.GetByID(ctx, stale.ID); getErr == nil && current.State == domain.TicketStatePenalized {
				// another pass completed this expiration; its penalty stands
				return err
			}
		}
		// the flip lost to a deliver or advance; withdraw the penalty this
		// pass created, but never one that was already on record
		if issued.ID == penalty.ID {
			if clearErr := s.penalties.Clear(ctx, stale.OwnerID); clearErr != nil {
				s.logger.Error("sweep: penalty withdrawal failed",
					zap.String("owner_id", stale.OwnerID), zap.Error(clearErr))
			}
		}
		return err
	}
	// the transient EXPIRED state is visible only in the audit trail
	s.recordTransition(ctx, ticket.ID, domain.TicketStatePending, domain.TicketStateExpired, "sweep", "ticket TTL elapsed")
	s.recordTransition(ctx, ticket.ID, domain.TicketStateExpired, domain.TicketStatePenalized, "sweep", "penalty issued")

	if s.metrics != nil {
		s.metrics.TurnsPenalized.Inc()
	}
	s.publishEvent(ctx, events.Event{
		Type:        events.EventTurnPenalized,
		TicketID:    ticket.ID,
		OwnerID:     ticket.OwnerID,
		CafeteriaID: ticket.CafeteriaID,
		Actor:       "sweep",
		Payload: events.TurnPenalizedPayload{
			PenaltyID: issued.ID,
			Code:      ticket.Code,
		},
	})
	return nil
}

// TrailFor returns the audit trail of a ticket.
func (s *TurnoService) TrailFor(ctx context.Context, ticketID string) ([]domain.TurnEvent, error) {
	if _, err := s.tickets.GetByID(ctx, ticketID); err != nil {
		return nil, translateRepoError(err, "ticket")
	}
	trail, err := s.trail.ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, translateRepoError(err, "turn events")
	}
	return trail, nil
}

// latestPenalizedTicket finds the ticket behind the owner's penalty among
// today's tickets. A penalty carried over from a past day yields nil: the
// stale slot is gone and there is nothing to reissue.
func (s *TurnoService) latestPenalizedTicket(ctx context.Context, ownerID string) *domain.Ticket {
	tickets, err := s.tickets.ListByOwnerAndDate(ctx, ownerID, s.clock.Now())
	if err != nil {
		s.logger.Warn("depenalize: listing owner tickets failed",
			zap.String("owner_id", ownerID), zap.Error(err))
		return nil
	}
	for i := range tickets {
		if tickets[i].State == domain.TicketStatePenalized {
			return &tickets[i]
		}
	}
	return nil
}

func (s *TurnoService) translateTransitionError(ctx context.Context, err error, ticketID string) error {
	if errors.Is(err, repository.ErrStateConflict) {
		current := "unknown"
		if ticket, getErr := s.tickets.GetByID(ctx, ticketID); getErr == nil {
			current = string(ticket.State)
		}
		return apperrors.NewInvalidState(current)
	}
	return translateRepoError(err, "ticket")
}

func (s *TurnoService) recordTransition(ctx context.Context, ticketID string, from, to domain.TicketState, actor, note string) {
	if s.trail == nil {
		return
	}
	entry := &domain.TurnEvent{
		ID:        uuid.NewString(),
		TicketID:  ticketID,
		FromState: from,
		ToState:   to,
		Actor:     actor,
		Note:      note,
		CreatedAt: s.clock.Now(),
	}
	if err := s.trail.Append(ctx, entry); err != nil {
		s.logger.Warn("audit trail append failed",
			zap.String("ticket_id", ticketID), zap.Error(err))
	}
}

func (s *TurnoService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = s.clock.Now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}

// translateRepoError maps store sentinels onto the API error taxonomy.
func translateRepoError(err error, resource string) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return apperrors.NewNotFound(resource, nil)
	case errors.Is(err, repository.ErrUnavailable):
		return apperrors.NewUnavailable(err)
	default:
		return apperrors.MapError(err)
	}
}
