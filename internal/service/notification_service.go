package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/turno-service/internal/config"
	"github.com/spec-kit/turno-service/internal/domain"
	"github.com/spec-kit/turno-service/internal/events"
	"github.com/spec-kit/turno-service/internal/repository"
)

// NotificationService turns lifecycle events into per-user notifications and
// forwards them to the configured webhook.
type NotificationService struct {
	dispatcher    events.Dispatcher
	notifications repository.NotificationRepository
	logger        *zap.Logger
	cfg           config.NotificationConfig
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, notifications repository.NotificationRepository, logger *zap.Logger, cfg config.NotificationConfig) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		dispatcher:    dispatcher,
		notifications: notifications,
		logger:        logger,
		cfg:           cfg,
	}
}

// RegisterHandlers subscribes to lifecycle events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventTurnCreated, n.handleTurnCreated)
	n.dispatcher.Subscribe(events.EventTurnDelivered, n.handleTurnDelivered)
	n.dispatcher.Subscribe(events.EventTurnPenalized, n.handleTurnPenalized)
	n.dispatcher.Subscribe(events.EventTurnDepenalized, n.handleTurnDepenalized)
	n.dispatcher.Subscribe(events.EventCafeteriaStateChanged, n.handleCafeteriaStateChanged)
}

// ListForUser returns a user's notifications, newest first.
func (n *NotificationService) ListForUser(ctx context.Context, userID string) ([]domain.Notification, error) {
	list, err := n.notifications.ListByUser(ctx, userID)
	if err != nil {
		return nil, translateRepoError(err, "notification")
	}
	return list, nil
}

// MarkRead flags one of the user's notifications as read.
func (n *NotificationService) MarkRead(ctx context.Context, id, userID string) error {
	if err := n.notifications.MarkRead(ctx, id, userID); err != nil {
		return translateRepoError(err, "notification")
	}
	return nil
}

func (n *NotificationService) handleTurnCreated(ctx context.Context, event events.Event) error {
	payload, _ := event.Payload.(events.TurnCreatedPayload)
	return n.notify(ctx, event, "Turn created",
		fmt.Sprintf("Your turn %s is in the queue. Claim it before it expires.", payload.Code))
}

func (n *NotificationService) handleTurnDelivered(ctx context.Context, event events.Event) error {
	return n.notify(ctx, event, "Turn served", "Your turn was served. Enjoy your meal.")
}

func (n *NotificationService) handleTurnPenalized(ctx context.Context, event events.Event) error {
	payload, _ := event.Payload.(events.TurnPenalizedPayload)
	return n.notify(ctx, event, "Turn expired",
		fmt.Sprintf("Turn %s expired unclaimed and a penalty was issued. An admin can clear it.", payload.Code))
}

func (n *NotificationService) handleTurnDepenalized(ctx context.Context, event events.Event) error {
	payload, _ := event.Payload.(events.TurnDepenalizedPayload)
	message := "Your penalty was cleared."
	if payload.NewCode != "" {
		message = fmt.Sprintf("Your penalty was cleared and turn %s was issued at the back of the queue.", payload.NewCode)
	}
	return n.notify(ctx, event, "Penalty cleared", message)
}

func (n *NotificationService) handleCafeteriaStateChanged(ctx context.Context, event events.Event) error {
	// broadcast only to the webhook; no per-user record
	n.sendWebhookStub(event)
	return nil
}

func (n *NotificationService) notify(ctx context.Context, event events.Event, title, message string) error {
	n.sendWebhookStub(event)
	if event.OwnerID == "" {
		return nil
	}
	notification := &domain.Notification{
		ID:        uuid.NewString(),
		UserID:    event.OwnerID,
		Title:     title,
		Message:   message,
		CreatedAt: event.Timestamp,
	}
	if err := n.notifications.Create(ctx, notification); err != nil {
		n.logger.Warn("notification write failed",
			zap.String("user_id", event.OwnerID), zap.Error(err))
	}
	return nil
}

func (n *NotificationService) sendWebhookStub(event events.Event) {
	if strings.TrimSpace(n.cfg.WebhookURL) == "" {
		return
	}
	n.logger.Debug("sendWebhookStub",
		zap.String("url", n.cfg.WebhookURL),
		zap.String("event_type", string(event.Type)),
		zap.String("ticket_id", event.TicketID))
}
