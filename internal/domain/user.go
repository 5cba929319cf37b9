package domain

import "time"

// Role distinguishes students from cafeteria operators.
type Role string

const (
	RoleStudent Role = "STUDENT"
	RoleAdmin   Role = "ADMIN"
)

// User is an account able to hold tickets (students) or operate the queue
// (admins).
type User struct {
	ID           string
	Username     string
	FullName     string
	StudentCode  string
	Role         Role
	PasswordHash string
	CreatedAt    time.Time
}
