package domain

import "time"

// CafeteriaState enumerates service availability for a location.
type CafeteriaState string

const (
	CafeteriaStateOpen       CafeteriaState = "OPEN"
	CafeteriaStateClosed     CafeteriaState = "CLOSED"
	CafeteriaStateRestocking CafeteriaState = "RESTOCKING"
)

// ValidCafeteriaState reports whether s is a known state value.
func ValidCafeteriaState(s CafeteriaState) bool {
	switch s {
	case CafeteriaStateOpen, CafeteriaStateClosed, CafeteriaStateRestocking:
		return true
	}
	return false
}

// Cafeteria is a serving location. Only an OPEN cafeteria accepts new tickets.
type Cafeteria struct {
	ID        string
	Name      string
	State     CafeteriaState
	UpdatedAt time.Time
}
