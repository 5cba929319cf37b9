package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/turno-service/internal/domain"
)

func pendingTicket(id, ownerID string, createdAt time.Time) *domain.Ticket {
	return &domain.Ticket{
		ID:          id,
		Code:        "T-" + id,
		OwnerID:     ownerID,
		CafeteriaID: "caf-1",
		ServiceDate: domain.ServiceDate(createdAt),
		State:       domain.TicketStatePending,
		CreatedAt:   createdAt,
	}
}

func TestMemoryTicketsCreate(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	t.Run("rejects a second active ticket for the same owner and day", func(t *testing.T) {
		store := NewMemoryStore()
		require.NoError(t, store.Tickets().Create(ctx, pendingTicket("a", "alice", base)))

		err := store.Tickets().Create(ctx, pendingTicket("b", "alice", base.Add(time.Minute)))
		assert.ErrorIs(t, err, ErrDuplicateActiveTicket)
	})

	t.Run("a delivered ticket still blocks the day", func(t *testing.T) {
		store := NewMemoryStore()
		require.NoError(t, store.Tickets().Create(ctx, pendingTicket("a", "alice", base)))
		_, err := store.Tickets().UpdateState(ctx, "a", domain.TicketStatePending, domain.TicketStateDelivered, &base)
		require.NoError(t, err)

		err = store.Tickets().Create(ctx, pendingTicket("b", "alice", base.Add(time.Minute)))
		assert.ErrorIs(t, err, ErrDuplicateActiveTicket)
	})

	t.Run("a penalized ticket frees the day", func(t *testing.T) {
		store := NewMemoryStore()
		require.NoError(t, store.Tickets().Create(ctx, pendingTicket("a", "alice", base)))
		_, err := store.Tickets().UpdateState(ctx, "a", domain.TicketStatePending, domain.TicketStatePenalized, nil)
		require.NoError(t, err)

		err = store.Tickets().Create(ctx, pendingTicket("b", "alice", base.Add(time.Minute)))
		assert.NoError(t, err)
	})

	t.Run("different days never conflict", func(t *testing.T) {
		store := NewMemoryStore()
		require.NoError(t, store.Tickets().Create(ctx, pendingTicket("a", "alice", base)))
		assert.NoError(t, store.Tickets().Create(ctx, pendingTicket("b", "alice", base.Add(24*time.Hour))))
	})
}

func TestMemoryTicketsUpdateState(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	t.Run("applies a matching transition", func(t *testing.T) {
		store := NewMemoryStore()
		require.NoError(t, store.Tickets().Create(ctx, pendingTicket("a", "alice", base)))

		claimed := base.Add(10 * time.Second)
		ticket, err := store.Tickets().UpdateState(ctx, "a", domain.TicketStatePending, domain.TicketStateDelivered, &claimed)
		require.NoError(t, err)
		assert.Equal(t, domain.TicketStateDelivered, ticket.State)
		require.NotNil(t, ticket.ClaimedAt)
		assert.Equal(t, claimed, *ticket.ClaimedAt)
	})

	t.Run("reports a conflict when the expected state lost a race", func(t *testing.T) {
		store := NewMemoryStore()
		require.NoError(t, store.Tickets().Create(ctx, pendingTicket("a", "alice", base)))

		_, err := store.Tickets().UpdateState(ctx, "a", domain.TicketStatePending, domain.TicketStateAdvanced, nil)
		require.NoError(t, err)

		_, err = store.Tickets().UpdateState(ctx, "a", domain.TicketStatePending, domain.TicketStatePenalized, nil)
		assert.ErrorIs(t, err, ErrStateConflict)
	})

	t.Run("missing tickets are not conflicts", func(t *testing.T) {
		store := NewMemoryStore()
		_, err := store.Tickets().UpdateState(ctx, "missing", domain.TicketStatePending, domain.TicketStateDelivered, nil)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestMemoryTicketsListExpiredPending(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	store := NewMemoryStore()
	require.NoError(t, store.Tickets().Create(ctx, pendingTicket("old", "alice", base)))
	require.NoError(t, store.Tickets().Create(ctx, pendingTicket("fresh", "bob", base.Add(time.Minute))))

	stale, err := store.Tickets().ListExpiredPending(ctx, base.Add(30*time.Second))
	require.NoError(t, err)
	require.Len(t, stale, 1)
	assert.Equal(t, "old", stale[0].ID)

	// cutoff is inclusive
	stale, err = store.Tickets().ListExpiredPending(ctx, base)
	require.NoError(t, err)
	require.Len(t, stale, 1)
	assert.Equal(t, "old", stale[0].ID)
}

func TestMemoryPenalties(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	t.Run("issue is idempotent per owner", func(t *testing.T) {
		store := NewMemoryStore()
		first, err := store.Penalties().Issue(ctx, &domain.Penalty{ID: "p1", OwnerID: "alice", CreatedAt: now})
		require.NoError(t, err)

		second, err := store.Penalties().Issue(ctx, &domain.Penalty{ID: "p2", OwnerID: "alice", CreatedAt: now.Add(time.Minute)})
		require.NoError(t, err)
		assert.Equal(t, first.ID, second.ID)

		active, err := store.Penalties().ListActive(ctx)
		require.NoError(t, err)
		assert.Len(t, active, 1)
	})

	t.Run("clear deactivates and allows a fresh penalty", func(t *testing.T) {
		store := NewMemoryStore()
		_, err := store.Penalties().Issue(ctx, &domain.Penalty{ID: "p1", OwnerID: "alice", CreatedAt: now})
		require.NoError(t, err)

		require.NoError(t, store.Penalties().Clear(ctx, "alice"))
		_, err = store.Penalties().ActiveFor(ctx, "alice")
		assert.ErrorIs(t, err, ErrNotFound)

		issued, err := store.Penalties().Issue(ctx, &domain.Penalty{ID: "p2", OwnerID: "alice", CreatedAt: now.Add(time.Hour)})
		require.NoError(t, err)
		assert.Equal(t, "p2", issued.ID)
	})

	t.Run("clear without an active penalty fails", func(t *testing.T) {
		store := NewMemoryStore()
		assert.ErrorIs(t, store.Penalties().Clear(ctx, "alice"), ErrNotFound)
	})
}

func TestMemoryUsers(t *testing.T) {
	ctx := context.Background()

	store := NewMemoryStore()
	user := &domain.User{Username: "alice", StudentCode: "S-1", Role: domain.RoleStudent}
	require.NoError(t, store.Users().Create(ctx, user))
	assert.NotEmpty(t, user.ID)

	err := store.Users().Create(ctx, &domain.User{Username: "alice", Role: domain.RoleStudent})
	assert.ErrorIs(t, err, ErrUsernameTaken)

	err = store.Users().Create(ctx, &domain.User{Username: "bob", StudentCode: "S-1", Role: domain.RoleStudent})
	assert.ErrorIs(t, err, ErrUsernameTaken)

	found, err := store.Users().GetByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, user.ID, found.ID)
}

func TestMemoryCodeAllocator(t *testing.T) {
	ctx := context.Background()
	day := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	allocator := NewMemoryCodeAllocator()

	seq, err := allocator.Next(ctx, "caf-1", day)
	require.NoError(t, err)
	assert.Equal(t, int64(1), seq)

	seq, err = allocator.Next(ctx, "caf-1", day)
	require.NoError(t, err)
	assert.Equal(t, int64(2), seq)

	// independent sequences per cafeteria and per day
	seq, err = allocator.Next(ctx, "caf-2", day)
	require.NoError(t, err)
	assert.Equal(t, int64(1), seq)

	seq, err = allocator.Next(ctx, "caf-1", day.Add(24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), seq)
}

func TestMemoryQRStore(t *testing.T) {
	ctx := context.Background()

	store := NewMemoryQRStore()

	code, err := store.Current(ctx, "caf-1", time.Minute)
	require.NoError(t, err)
	require.NotEmpty(t, code)

	// stable within the TTL
	again, err := store.Current(ctx, "caf-1", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, code, again)

	valid, err := store.Validate(ctx, "caf-1", code)
	require.NoError(t, err)
	assert.True(t, valid)

	valid, err = store.Validate(ctx, "caf-1", "wrong")
	require.NoError(t, err)
	assert.False(t, valid)

	other, err := store.Current(ctx, "caf-2", time.Minute)
	require.NoError(t, err)
	assert.NotEqual(t, code, other)
}
