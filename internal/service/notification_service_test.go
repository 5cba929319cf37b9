package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/turno-service/internal/config"
	"github.com/spec-kit/turno-service/internal/events"
	"github.com/spec-kit/turno-service/internal/repository"
)

func TestNotificationsFollowLifecycleEvents(t *testing.T) {
	ctx := context.Background()

	store := repository.NewMemoryStore()
	dispatcher := events.NewInMemoryDispatcher()
	svc := NewNotificationService(dispatcher, store.Notifications(), nil, config.NotificationConfig{})
	svc.RegisterHandlers()

	base := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	require.NoError(t, dispatcher.Publish(ctx, events.Event{
		ID:        "e1",
		Type:      events.EventTurnCreated,
		TicketID:  "t1",
		OwnerID:   "alice",
		Timestamp: base,
		Payload:   events.TurnCreatedPayload{Code: "T-001"},
	}))
	require.NoError(t, dispatcher.Publish(ctx, events.Event{
		ID:        "e2",
		Type:      events.EventTurnPenalized,
		TicketID:  "t1",
		OwnerID:   "alice",
		Timestamp: base.Add(31 * time.Second),
		Payload:   events.TurnPenalizedPayload{PenaltyID: "p1", Code: "T-001"},
	}))

	list, err := svc.ListForUser(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, list, 2)
	// newest first
	assert.Equal(t, "Turn expired", list[0].Title)
	assert.Equal(t, "Turn created", list[1].Title)
	assert.Contains(t, list[1].Message, "T-001")

	// other users see nothing
	other, err := svc.ListForUser(ctx, "bob")
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestMarkRead(t *testing.T) {
	ctx := context.Background()

	store := repository.NewMemoryStore()
	dispatcher := events.NewInMemoryDispatcher()
	svc := NewNotificationService(dispatcher, store.Notifications(), nil, config.NotificationConfig{})
	svc.RegisterHandlers()

	require.NoError(t, dispatcher.Publish(ctx, events.Event{
		ID:        "e1",
		Type:      events.EventTurnDelivered,
		TicketID:  "t1",
		OwnerID:   "alice",
		Timestamp: time.Now(),
	}))

	list, err := svc.ListForUser(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.False(t, list[0].Read)

	require.NoError(t, svc.MarkRead(ctx, list[0].ID, "alice"))
	list, err = svc.ListForUser(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, list[0].Read)

	// a user cannot read someone else's notification
	err = svc.MarkRead(ctx, list[0].ID, "bob")
	assert.Equal(t, "NOT_FOUND", domainCode(t, err))
}
