package domain

import "time"

// Notification is a per-user message generated from turn lifecycle events.
type Notification struct {
	ID        string
	UserID    string
	Title     string
	Message   string
	Read      bool
	CreatedAt time.Time
}
