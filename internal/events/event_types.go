package events

import (
	"time"

	"github.com/spec-kit/turno-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTurnCreated           EventType = "turn_created"
	EventTurnDelivered         EventType = "turn_delivered"
	EventTurnAdvanced          EventType = "turn_advanced"
	EventTurnPenalized         EventType = "turn_penalized"
	EventTurnDepenalized       EventType = "turn_depenalized"
	EventCafeteriaStateChanged EventType = "cafeteria_state_changed"
)

// Event represents a domain event emitted by the lifecycle engine.
type Event struct {
	ID          string      `json:"id"`
	Type        EventType   `json:"type"`
	TicketID    string      `json:"ticket_id,omitempty"`
	OwnerID     string      `json:"owner_id,omitempty"`
	CafeteriaID string      `json:"cafeteria_id,omitempty"`
	Actor       string      `json:"actor"`
	Timestamp   time.Time   `json:"timestamp"`
	Payload     interface{} `json:"payload"`
}

// TurnCreatedPayload payload.
type TurnCreatedPayload struct {
	Code        string    `json:"code"`
	ServiceDate time.Time `json:"service_date"`
}

// TurnStateChangedPayload payload for deliver, advance and penalize events.
type TurnStateChangedPayload struct {
	OldState domain.TicketState `json:"old_state"`
	NewState domain.TicketState `json:"new_state"`
}

// TurnPenalizedPayload payload.
type TurnPenalizedPayload struct {
	PenaltyID string `json:"penalty_id"`
	Code      string `json:"code"`
}

// TurnDepenalizedPayload payload.
type TurnDepenalizedPayload struct {
	PenaltyID   string `json:"penalty_id"`
	NewTicketID string `json:"new_ticket_id,omitempty"`
	NewCode     string `json:"new_code,omitempty"`
}

// CafeteriaStateChangedPayload payload.
type CafeteriaStateChangedPayload struct {
	OldState domain.CafeteriaState `json:"old_state"`
	NewState domain.CafeteriaState `json:"new_state"`
}
