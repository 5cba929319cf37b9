package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/turno-service/internal/clock"
	"github.com/spec-kit/turno-service/internal/config"
	"github.com/spec-kit/turno-service/internal/domain"
	"github.com/spec-kit/turno-service/internal/events"
	"github.com/spec-kit/turno-service/internal/repository"
	apperrors "github.com/spec-kit/turno-service/pkg/util"
)

type engineFixture struct {
	store      *repository.MemoryStore
	clock      *clock.Manual
	dispatcher events.Dispatcher
	engine     *TurnoService
}

func newEngineFixture(t *testing.T, opts ...func(*TurnoDependencies)) *engineFixture {
	t.Helper()

	store := repository.NewMemoryStore()
	clk := clock.NewManual(time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC))
	dispatcher := events.NewInMemoryDispatcher()

	cfg := config.TurnoConfig{
		TicketTTLSeconds:     30,
		SweepIntervalSeconds: 5,
		PenaltyMinutes:       15,
		CodePrefix:           "T",
	}
	deps := TurnoDependencies{
		TicketRepo:    store.Tickets(),
		CafeteriaRepo: store.Cafeterias(),
		PenaltyRepo:   store.Penalties(),
		TurnEventRepo: store.TurnEvents(),
		CodeAllocator: repository.NewMemoryCodeAllocator(),
		Clock:         clk,
		Dispatcher:    dispatcher,
	}
	for _, opt := range opts {
		opt(&deps)
	}
	engine := NewTurnoService(cfg, deps)

	return &engineFixture{store: store, clock: clk, dispatcher: dispatcher, engine: engine}
}

// flakyPenalties fails the next failIssues calls to Issue before delegating.
type flakyPenalties struct {
	repository.PenaltyRepository
	failIssues int
}

func (p *flakyPenalties) Issue(ctx context.Context, penalty *domain.Penalty) (*domain.Penalty, error) {
	if p.failIssues > 0 {
		p.failIssues--
		return nil, repository.ErrUnavailable
	}
	return p.PenaltyRepository.Issue(ctx, penalty)
}

// flakyTickets fails the next failCreates calls to Create before delegating.
type flakyTickets struct {
	repository.TicketRepository
	failCreates int
}

func (r *flakyTickets) Create(ctx context.Context, ticket *domain.Ticket) error {
	if r.failCreates > 0 {
		r.failCreates--
		return repository.ErrUnavailable
	}
	return r.TicketRepository.Create(ctx, ticket)
}

func (f *engineFixture) openCafeteria(t *testing.T, name string) string {
	t.Helper()
	cafeteria := &domain.Cafeteria{Name: name, State: domain.CafeteriaStateOpen}
	require.NoError(t, f.store.Cafeterias().Create(context.Background(), cafeteria))
	return cafeteria.ID
}

func domainCode(t *testing.T, err error) string {
	t.Helper()
	domainErr := apperrors.ToDomainError(err)
	require.NotNil(t, domainErr)
	return domainErr.Code
}

func TestCreateTicket(t *testing.T) {
	ctx := context.Background()

	t.Run("issues sequential codes", func(t *testing.T) {
		f := newEngineFixture(t)
		cafeteriaID := f.openCafeteria(t, "Central")

		first, err := f.engine.CreateTicket(ctx, "alice", cafeteriaID)
		require.NoError(t, err)
		assert.Equal(t, "T-001", first.Code)
		assert.Equal(t, domain.TicketStatePending, first.State)
		assert.Nil(t, first.ClaimedAt)

		second, err := f.engine.CreateTicket(ctx, "bob", cafeteriaID)
		require.NoError(t, err)
		assert.Equal(t, "T-002", second.Code)
	})

	t.Run("rejects when cafeteria is not open", func(t *testing.T) {
		f := newEngineFixture(t)
		cafeteria := &domain.Cafeteria{Name: "Norte", State: domain.CafeteriaStateRestocking}
		require.NoError(t, f.store.Cafeterias().Create(ctx, cafeteria))

		_, err := f.engine.CreateTicket(ctx, "alice", cafeteria.ID)
		assert.Equal(t, "CAFETERIA_CLOSED", domainCode(t, err))
	})

	t.Run("rejects unknown cafeteria", func(t *testing.T) {
		f := newEngineFixture(t)
		_, err := f.engine.CreateTicket(ctx, "alice", "missing")
		assert.Equal(t, "NOT_FOUND", domainCode(t, err))
	})

	t.Run("rejects a second active ticket for the same day", func(t *testing.T) {
		f := newEngineFixture(t)
		cafeteriaID := f.openCafeteria(t, "Central")

		_, err := f.engine.CreateTicket(ctx, "alice", cafeteriaID)
		require.NoError(t, err)

		_, err = f.engine.CreateTicket(ctx, "alice", cafeteriaID)
		assert.Equal(t, "DUPLICATE_TICKET", domainCode(t, err))
	})

	t.Run("allows a new ticket the next day", func(t *testing.T) {
		f := newEngineFixture(t)
		cafeteriaID := f.openCafeteria(t, "Central")

		first, err := f.engine.CreateTicket(ctx, "alice", cafeteriaID)
		require.NoError(t, err)
		_, err = f.engine.Deliver(ctx, first.ID, "admin")
		require.NoError(t, err)

		f.clock.Advance(24 * time.Hour)
		_, err = f.engine.CreateTicket(ctx, "alice", cafeteriaID)
		assert.NoError(t, err)
	})

	t.Run("rejects a penalized owner", func(t *testing.T) {
		f := newEngineFixture(t)
		cafeteriaID := f.openCafeteria(t, "Central")

		_, err := f.engine.CreateTicket(ctx, "alice", cafeteriaID)
		require.NoError(t, err)

		f.clock.Advance(31 * time.Second)
		expired, err := f.engine.Sweep(ctx)
		require.NoError(t, err)
		require.Equal(t, 1, expired)

		_, err = f.engine.CreateTicket(ctx, "alice", cafeteriaID)
		assert.Equal(t, "ACTIVE_PENALTY", domainCode(t, err))
	})
}

func TestDeliver(t *testing.T) {
	ctx := context.Background()

	t.Run("marks the ticket as served and stamps the claim time", func(t *testing.T) {
		f := newEngineFixture(t)
		cafeteriaID := f.openCafeteria(t, "Central")
		ticket, err := f.engine.CreateTicket(ctx, "alice", cafeteriaID)
		require.NoError(t, err)

		f.clock.Advance(10 * time.Second)
		delivered, err := f.engine.Deliver(ctx, ticket.ID, "admin:op1")
		require.NoError(t, err)
		assert.Equal(t, domain.TicketStateDelivered, delivered.State)
		require.NotNil(t, delivered.ClaimedAt)
		assert.Equal(t, f.clock.Now(), *delivered.ClaimedAt)
	})

	t.Run("rejects a ticket that is not pending", func(t *testing.T) {
		f := newEngineFixture(t)
		cafeteriaID := f.openCafeteria(t, "Central")
		ticket, err := f.engine.CreateTicket(ctx, "alice", cafeteriaID)
		require.NoError(t, err)

		_, err = f.engine.Deliver(ctx, ticket.ID, "admin")
		require.NoError(t, err)

		_, err = f.engine.Deliver(ctx, ticket.ID, "admin")
		assert.Equal(t, "INVALID_STATE", domainCode(t, err))

		// the ticket keeps its first outcome
		stored, err := f.store.Tickets().GetByID(ctx, ticket.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.TicketStateDelivered, stored.State)
	})

	t.Run("rejects an unknown ticket", func(t *testing.T) {
		f := newEngineFixture(t)
		_, err := f.engine.Deliver(ctx, "missing", "admin")
		assert.Equal(t, "NOT_FOUND", domainCode(t, err))
	})
}

func TestAdvance(t *testing.T) {
	ctx := context.Background()

	t.Run("skips the turn without penalty or claim time", func(t *testing.T) {
		f := newEngineFixture(t)
		cafeteriaID := f.openCafeteria(t, "Central")
		ticket, err := f.engine.CreateTicket(ctx, "alice", cafeteriaID)
		require.NoError(t, err)

		advanced, err := f.engine.Advance(ctx, ticket.ID, "admin")
		require.NoError(t, err)
		assert.Equal(t, domain.TicketStateAdvanced, advanced.State)
		assert.Nil(t, advanced.ClaimedAt)

		_, err = f.store.Penalties().ActiveFor(ctx, "alice")
		assert.ErrorIs(t, err, repository.ErrNotFound)
	})

	t.Run("an advanced ticket never expires", func(t *testing.T) {
		f := newEngineFixture(t)
		cafeteriaID := f.openCafeteria(t, "Central")
		ticket, err := f.engine.CreateTicket(ctx, "alice", cafeteriaID)
		require.NoError(t, err)

		_, err = f.engine.Advance(ctx, ticket.ID, "admin")
		require.NoError(t, err)

		f.clock.Advance(time.Hour)
		expired, err := f.engine.Sweep(ctx)
		require.NoError(t, err)
		assert.Zero(t, expired)
	})

	t.Run("rejects a delivered ticket", func(t *testing.T) {
		f := newEngineFixture(t)
		cafeteriaID := f.openCafeteria(t, "Central")
		ticket, err := f.engine.CreateTicket(ctx, "alice", cafeteriaID)
		require.NoError(t, err)
		_, err = f.engine.Deliver(ctx, ticket.ID, "admin")
		require.NoError(t, err)

		_, err = f.engine.Advance(ctx, ticket.ID, "admin")
		assert.Equal(t, "INVALID_STATE", domainCode(t, err))
	})
}

func TestSweep(t *testing.T) {
	ctx := context.Background()

	t.Run("expires stale pending tickets and penalizes their owners", func(t *testing.T) {
		f := newEngineFixture(t)
		cafeteriaID := f.openCafeteria(t, "Central")
		ticket, err := f.engine.CreateTicket(ctx, "alice", cafeteriaID)
		require.NoError(t, err)

		f.clock.Advance(31 * time.Second)
		expired, err := f.engine.Sweep(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, expired)

		stored, err := f.store.Tickets().GetByID(ctx, ticket.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.TicketStatePenalized, stored.State)
		assert.Nil(t, stored.ClaimedAt)

		penalty, err := f.store.Penalties().ActiveFor(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, "turn not claimed in time", penalty.Reason)
	})

	t.Run("leaves fresh tickets alone", func(t *testing.T) {
		f := newEngineFixture(t)
		cafeteriaID := f.openCafeteria(t, "Central")
		_, err := f.engine.CreateTicket(ctx, "alice", cafeteriaID)
		require.NoError(t, err)

		f.clock.Advance(29 * time.Second)
		expired, err := f.engine.Sweep(ctx)
		require.NoError(t, err)
		assert.Zero(t, expired)
	})

	t.Run("a second pass issues no second penalty", func(t *testing.T) {
		f := newEngineFixture(t)
		cafeteriaID := f.openCafeteria(t, "Central")
		_, err := f.engine.CreateTicket(ctx, "alice", cafeteriaID)
		require.NoError(t, err)

		f.clock.Advance(31 * time.Second)
		_, err = f.engine.Sweep(ctx)
		require.NoError(t, err)
		expired, err := f.engine.Sweep(ctx)
		require.NoError(t, err)
		assert.Zero(t, expired)

		penalties, err := f.store.Penalties().ListByOwner(ctx, "alice")
		require.NoError(t, err)
		assert.Len(t, penalties, 1)
	})

	t.Run("records the transient expired state in the audit trail", func(t *testing.T) {
		f := newEngineFixture(t)
		cafeteriaID := f.openCafeteria(t, "Central")
		ticket, err := f.engine.CreateTicket(ctx, "alice", cafeteriaID)
		require.NoError(t, err)

		f.clock.Advance(31 * time.Second)
		_, err = f.engine.Sweep(ctx)
		require.NoError(t, err)

		trail, err := f.engine.TrailFor(ctx, ticket.ID)
		require.NoError(t, err)
		require.Len(t, trail, 3)
		assert.Equal(t, domain.TicketStatePending, trail[0].ToState)
		assert.Equal(t, domain.TicketStateExpired, trail[1].ToState)
		assert.Equal(t, domain.TicketStatePenalized, trail[2].ToState)
	})

	t.Run("expires multiple stale tickets in one pass", func(t *testing.T) {
		f := newEngineFixture(t)
		cafeteriaID := f.openCafeteria(t, "Central")
		for _, owner := range []string{"alice", "bob", "carol"} {
			_, err := f.engine.CreateTicket(ctx, owner, cafeteriaID)
			require.NoError(t, err)
		}

		f.clock.Advance(31 * time.Second)
		expired, err := f.engine.Sweep(ctx)
		require.NoError(t, err)
		assert.Equal(t, 3, expired)
	})

	t.Run("a failed penalty write leaves the ticket pending for the next pass", func(t *testing.T) {
		var penalties *flakyPenalties
		f := newEngineFixture(t, func(deps *TurnoDependencies) {
			penalties = &flakyPenalties{PenaltyRepository: deps.PenaltyRepo, failIssues: 1}
			deps.PenaltyRepo = penalties
		})
		cafeteriaID := f.openCafeteria(t, "Central")
		ticket, err := f.engine.CreateTicket(ctx, "alice", cafeteriaID)
		require.NoError(t, err)

		f.clock.Advance(31 * time.Second)
		expired, err := f.engine.Sweep(ctx)
		require.NoError(t, err)
		assert.Zero(t, expired)

		stored, err := f.store.Tickets().GetByID(ctx, ticket.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.TicketStatePending, stored.State)
		_, err = f.store.Penalties().ActiveFor(ctx, "alice")
		assert.ErrorIs(t, err, repository.ErrNotFound)

		expired, err = f.engine.Sweep(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, expired)

		stored, err = f.store.Tickets().GetByID(ctx, ticket.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.TicketStatePenalized, stored.State)
		owned, err := f.store.Penalties().ListByOwner(ctx, "alice")
		require.NoError(t, err)
		assert.Len(t, owned, 1)
	})
}

func TestDepenalize(t *testing.T) {
	ctx := context.Background()

	penalize := func(t *testing.T, f *engineFixture, ownerID, cafeteriaID string) {
		t.Helper()
		_, err := f.engine.CreateTicket(ctx, ownerID, cafeteriaID)
		require.NoError(t, err)
		f.clock.Advance(31 * time.Second)
		expired, err := f.engine.Sweep(ctx)
		require.NoError(t, err)
		require.Equal(t, 1, expired)
	}

	t.Run("clears the penalty and reissues at the back of the queue", func(t *testing.T) {
		f := newEngineFixture(t)
		cafeteriaID := f.openCafeteria(t, "Central")
		penalize(t, f, "alice", cafeteriaID)

		f.clock.Advance(9 * time.Second)
		reissued, err := f.engine.Depenalize(ctx, "alice", "admin:op1")
		require.NoError(t, err)
		require.NotNil(t, reissued)
		assert.Equal(t, domain.TicketStatePending, reissued.State)
		assert.Equal(t, cafeteriaID, reissued.CafeteriaID)
		assert.Equal(t, f.clock.Now(), reissued.CreatedAt)

		_, err = f.store.Penalties().ActiveFor(ctx, "alice")
		assert.ErrorIs(t, err, repository.ErrNotFound)
	})

	t.Run("the owner can queue normally after depenalization", func(t *testing.T) {
		f := newEngineFixture(t)
		cafeteriaID := f.openCafeteria(t, "Central")
		penalize(t, f, "alice", cafeteriaID)

		reissued, err := f.engine.Depenalize(ctx, "alice", "admin")
		require.NoError(t, err)
		require.NotNil(t, reissued)

		_, err = f.engine.Deliver(ctx, reissued.ID, "admin")
		assert.NoError(t, err)
	})

	t.Run("fails when no penalty is active", func(t *testing.T) {
		f := newEngineFixture(t)
		_, err := f.engine.Depenalize(ctx, "alice", "admin")
		assert.Equal(t, "NOT_FOUND", domainCode(t, err))
	})

	t.Run("a second depenalization fails", func(t *testing.T) {
		f := newEngineFixture(t)
		cafeteriaID := f.openCafeteria(t, "Central")
		penalize(t, f, "alice", cafeteriaID)

		_, err := f.engine.Depenalize(ctx, "alice", "admin")
		require.NoError(t, err)
		_, err = f.engine.Depenalize(ctx, "alice", "admin")
		assert.Equal(t, "NOT_FOUND", domainCode(t, err))
	})

	t.Run("a failed reissue keeps the penalty so the admin can retry", func(t *testing.T) {
		var tickets *flakyTickets
		f := newEngineFixture(t, func(deps *TurnoDependencies) {
			tickets = &flakyTickets{TicketRepository: deps.TicketRepo}
			deps.TicketRepo = tickets
		})
		cafeteriaID := f.openCafeteria(t, "Central")
		penalize(t, f, "alice", cafeteriaID)

		tickets.failCreates = 1
		_, err := f.engine.Depenalize(ctx, "alice", "admin")
		assert.Equal(t, "UNAVAILABLE", domainCode(t, err))

		penalty, err := f.store.Penalties().ActiveFor(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, "turn not claimed in time", penalty.Reason)

		reissued, err := f.engine.Depenalize(ctx, "alice", "admin")
		require.NoError(t, err)
		require.NotNil(t, reissued)
		assert.Equal(t, domain.TicketStatePending, reissued.State)
		_, err = f.store.Penalties().ActiveFor(ctx, "alice")
		assert.ErrorIs(t, err, repository.ErrNotFound)
	})

	t.Run("a penalty from a past day clears without a reissue", func(t *testing.T) {
		f := newEngineFixture(t)
		cafeteriaID := f.openCafeteria(t, "Central")
		penalize(t, f, "alice", cafeteriaID)

		f.clock.Advance(24 * time.Hour)
		reissued, err := f.engine.Depenalize(ctx, "alice", "admin")
		require.NoError(t, err)
		assert.Nil(t, reissued)

		_, err = f.store.Penalties().ActiveFor(ctx, "alice")
		assert.ErrorIs(t, err, repository.ErrNotFound)
	})
}

func TestLifecycleEvents(t *testing.T) {
	ctx := context.Background()

	f := newEngineFixture(t)
	var published []events.Event
	for _, eventType := range []events.EventType{
		events.EventTurnCreated,
		events.EventTurnDelivered,
		events.EventTurnPenalized,
		events.EventTurnDepenalized,
	} {
		f.dispatcher.Subscribe(eventType, func(_ context.Context, event events.Event) error {
			published = append(published, event)
			return nil
		})
	}

	cafeteriaID := f.openCafeteria(t, "Central")
	_, err := f.engine.CreateTicket(ctx, "alice", cafeteriaID)
	require.NoError(t, err)
	f.clock.Advance(31 * time.Second)
	_, err = f.engine.Sweep(ctx)
	require.NoError(t, err)
	_, err = f.engine.Depenalize(ctx, "alice", "admin")
	require.NoError(t, err)

	require.Len(t, published, 3)
	assert.Equal(t, events.EventTurnCreated, published[0].Type)
	assert.Equal(t, events.EventTurnPenalized, published[1].Type)
	assert.Equal(t, events.EventTurnDepenalized, published[2].Type)

	depenalized, ok := published[2].Payload.(events.TurnDepenalizedPayload)
	require.True(t, ok)
	assert.NotEmpty(t, depenalized.NewTicketID)
	assert.NotEmpty(t, depenalized.NewCode)
}
