package domain

import "time"

// TicketState enumerates lifecycle states for turn tickets.
type TicketState string

const (
	// TicketStatePending means the ticket is waiting in the queue.
	TicketStatePending TicketState = "PENDING"
	// TicketStateDelivered means the meal was handed over at the counter.
	TicketStateDelivered TicketState = "DELIVERED"
	// TicketStateAdvanced means an operator skipped the turn without serving
	// it. Terminal, carries no claim timestamp and issues no penalty.
	TicketStateAdvanced TicketState = "ADVANCED"
	// TicketStateExpired is the transient state a stale pending ticket passes
	// through during a sweep. It appears in the audit trail but is never
	// persisted as a ticket's final state.
	TicketStateExpired TicketState = "EXPIRED"
	// TicketStatePenalized means the ticket expired unclaimed and the owner
	// was penalized. Terminal for the ticket; the owner is unblocked only by
	// an explicit depenalization.
	TicketStatePenalized TicketState = "PENALIZED"
)

// Active reports whether the state counts against the one-ticket-per-day rule.
func (s TicketState) Active() bool {
	return s == TicketStatePending || s == TicketStateDelivered
}

// Ticket is a queue position entitling one owner to be served once, for one
// day, at one cafeteria.
type Ticket struct {
	ID          string
	Code        string
	OwnerID     string
	CafeteriaID string
	ServiceDate time.Time
	State       TicketState
	CreatedAt   time.Time
	ClaimedAt   *time.Time
}

// ServiceDate truncates an instant to the calendar day tickets are scoped to.
func ServiceDate(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
