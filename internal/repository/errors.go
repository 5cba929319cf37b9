package repository

import "errors"

// Sentinel errors shared by all store implementations. Services translate
// these into DomainError codes at the boundary.
var (
	// ErrNotFound means no record matched the lookup.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicateActiveTicket means the owner already holds a pending or
	// delivered ticket for that cafeteria and day.
	ErrDuplicateActiveTicket = errors.New("active ticket already exists")
	// ErrStateConflict means a compare-and-set transition found the ticket in
	// a different state than expected.
	ErrStateConflict = errors.New("ticket state changed concurrently")
	// ErrUnavailable wraps infrastructure failures, as opposed to
	// business-rule rejections.
	ErrUnavailable = errors.New("store unavailable")
)
