package domain

import "time"

// TurnEvent is one entry in a ticket's audit trail. Every state transition the
// engine applies is appended here, including the transient pass through
// EXPIRED during a sweep.
type TurnEvent struct {
	ID        string
	TicketID  string
	FromState TicketState
	ToState   TicketState
	Actor     string
	Note      string
	CreatedAt time.Time
}
