package domain

import "time"

// Penalty blocks an owner from requesting new tickets. Issued when a pending
// ticket expires unclaimed; cleared only by explicit admin action. At most one
// penalty per owner is active at a time.
type Penalty struct {
	ID        string
	OwnerID   string
	Reason    string
	CreatedAt time.Time
	Active    bool
}
