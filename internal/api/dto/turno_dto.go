package dto

import (
	"time"

	"github.com/spec-kit/turno-service/internal/domain"
)

// CreateTurnoRequest payload.
type CreateTurnoRequest struct {
	CafeteriaID string `json:"cafeteria_id"`
	QRCode      string `json:"qr_code,omitempty"`
}

// TicketResponse represents one turn ticket. ExpiresAt is populated for
// pending tickets only; clients render countdowns from it instead of keeping
// local timers.
type TicketResponse struct {
	ID          string             `json:"id"`
	Code        string             `json:"code"`
	OwnerID     string             `json:"owner_id"`
	CafeteriaID string             `json:"cafeteria_id"`
	ServiceDate string             `json:"service_date"`
	State       domain.TicketState `json:"state"`
	CreatedAt   time.Time          `json:"created_at"`
	ClaimedAt   *time.Time         `json:"claimed_at,omitempty"`
	ExpiresAt   *time.Time         `json:"expires_at,omitempty"`
}

// QueueResponse is the public display projection for one cafeteria.
type QueueResponse struct {
	Current *TicketResponse  `json:"current"`
	Queue   []TicketResponse `json:"queue"`
}

// PenaltyResponse represents a penalty. AdvisoryClearAt is the displayed
// countdown end; clearing remains an explicit admin action.
type PenaltyResponse struct {
	ID              string    `json:"id"`
	OwnerID         string    `json:"owner_id"`
	Reason          string    `json:"reason"`
	Active          bool      `json:"active"`
	CreatedAt       time.Time `json:"created_at"`
	AdvisoryClearAt time.Time `json:"advisory_clear_at"`
}

// TurnEventResponse is one audit trail entry.
type TurnEventResponse struct {
	ID        string             `json:"id"`
	FromState domain.TicketState `json:"from_state,omitempty"`
	ToState   domain.TicketState `json:"to_state"`
	Actor     string             `json:"actor"`
	Note      string             `json:"note,omitempty"`
	CreatedAt time.Time          `json:"created_at"`
}

// SetCafeteriaStateRequest payload.
type SetCafeteriaStateRequest struct {
	State domain.CafeteriaState `json:"state"`
}
