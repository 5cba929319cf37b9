package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/turno-service/internal/domain"
	"github.com/spec-kit/turno-service/internal/repository"
)

func seedPending(t *testing.T, store *repository.MemoryStore, id, ownerID, cafeteriaID string, createdAt time.Time) {
	t.Helper()
	ticket := &domain.Ticket{
		ID:          id,
		Code:        "T-" + id,
		OwnerID:     ownerID,
		CafeteriaID: cafeteriaID,
		ServiceDate: domain.ServiceDate(createdAt),
		State:       domain.TicketStatePending,
		CreatedAt:   createdAt,
	}
	require.NoError(t, store.Tickets().Create(context.Background(), ticket))
}

func TestCurrentTicket(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	t.Run("returns the oldest pending ticket", func(t *testing.T) {
		store := repository.NewMemoryStore()
		query := NewQueryService(store.Tickets(), store.Penalties())

		seedPending(t, store, "b", "bob", "caf-1", base.Add(20*time.Second))
		seedPending(t, store, "a", "alice", "caf-1", base.Add(10*time.Second))

		current, err := query.CurrentTicket(ctx, "caf-1")
		require.NoError(t, err)
		require.NotNil(t, current)
		assert.Equal(t, "a", current.ID)
	})

	t.Run("breaks creation-time ties by id", func(t *testing.T) {
		store := repository.NewMemoryStore()
		query := NewQueryService(store.Tickets(), store.Penalties())

		seedPending(t, store, "z", "bob", "caf-1", base)
		seedPending(t, store, "a", "alice", "caf-1", base)

		current, err := query.CurrentTicket(ctx, "caf-1")
		require.NoError(t, err)
		require.NotNil(t, current)
		assert.Equal(t, "a", current.ID)
	})

	t.Run("nil on an empty queue", func(t *testing.T) {
		store := repository.NewMemoryStore()
		query := NewQueryService(store.Tickets(), store.Penalties())

		current, err := query.CurrentTicket(ctx, "caf-1")
		require.NoError(t, err)
		assert.Nil(t, current)
	})

	t.Run("scoped to the cafeteria", func(t *testing.T) {
		store := repository.NewMemoryStore()
		query := NewQueryService(store.Tickets(), store.Penalties())

		seedPending(t, store, "a", "alice", "caf-1", base)
		seedPending(t, store, "b", "bob", "caf-2", base.Add(-time.Minute))

		current, err := query.CurrentTicket(ctx, "caf-1")
		require.NoError(t, err)
		require.NotNil(t, current)
		assert.Equal(t, "a", current.ID)
	})
}

func TestRemainingQueue(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	t.Run("lists everything behind the current turn in serving order", func(t *testing.T) {
		store := repository.NewMemoryStore()
		query := NewQueryService(store.Tickets(), store.Penalties())

		seedPending(t, store, "c", "carol", "caf-1", base.Add(30*time.Second))
		seedPending(t, store, "a", "alice", "caf-1", base.Add(10*time.Second))
		seedPending(t, store, "b", "bob", "caf-1", base.Add(20*time.Second))

		queue, err := query.RemainingQueue(ctx, "caf-1")
		require.NoError(t, err)
		require.Len(t, queue, 2)
		assert.Equal(t, "b", queue[0].ID)
		assert.Equal(t, "c", queue[1].ID)
	})

	t.Run("the current turn advances when the head leaves the queue", func(t *testing.T) {
		store := repository.NewMemoryStore()
		query := NewQueryService(store.Tickets(), store.Penalties())

		seedPending(t, store, "a", "alice", "caf-1", base.Add(10*time.Second))
		seedPending(t, store, "b", "bob", "caf-1", base.Add(20*time.Second))

		_, err := store.Tickets().UpdateState(ctx, "a", domain.TicketStatePending, domain.TicketStateAdvanced, nil)
		require.NoError(t, err)

		current, err := query.CurrentTicket(ctx, "caf-1")
		require.NoError(t, err)
		require.NotNil(t, current)
		assert.Equal(t, "b", current.ID)

		queue, err := query.RemainingQueue(ctx, "caf-1")
		require.NoError(t, err)
		assert.Empty(t, queue)
	})

	t.Run("empty slice for a single pending ticket", func(t *testing.T) {
		store := repository.NewMemoryStore()
		query := NewQueryService(store.Tickets(), store.Penalties())

		seedPending(t, store, "a", "alice", "caf-1", base)

		queue, err := query.RemainingQueue(ctx, "caf-1")
		require.NoError(t, err)
		assert.NotNil(t, queue)
		assert.Empty(t, queue)
	})
}

func TestActivePenaltyFor(t *testing.T) {
	ctx := context.Background()

	store := repository.NewMemoryStore()
	query := NewQueryService(store.Tickets(), store.Penalties())

	penalty, err := query.ActivePenaltyFor(ctx, "alice")
	require.NoError(t, err)
	assert.Nil(t, penalty)

	_, err = store.Penalties().Issue(ctx, &domain.Penalty{
		ID:        "p1",
		OwnerID:   "alice",
		Reason:    "turn not claimed in time",
		CreatedAt: time.Now(),
	})
	require.NoError(t, err)

	penalty, err = query.ActivePenaltyFor(ctx, "alice")
	require.NoError(t, err)
	require.NotNil(t, penalty)
	assert.Equal(t, "p1", penalty.ID)
}

func TestTicketsByState(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	store := repository.NewMemoryStore()
	query := NewQueryService(store.Tickets(), store.Penalties())

	seedPending(t, store, "a", "alice", "caf-1", base)
	seedPending(t, store, "b", "bob", "caf-1", base.Add(time.Second))
	_, err := store.Tickets().UpdateState(ctx, "b", domain.TicketStatePending, domain.TicketStatePenalized, nil)
	require.NoError(t, err)

	all, err := query.TicketsByState(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "b", all[0].ID)
	assert.Equal(t, "a", all[1].ID)

	pending, err := query.TicketsByState(ctx, domain.TicketStatePending)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "a", pending[0].ID)

	penalized, err := query.TicketsByState(ctx, domain.TicketStatePenalized)
	require.NoError(t, err)
	require.Len(t, penalized, 1)
	assert.Equal(t, "b", penalized[0].ID)
}
