package dto

import (
	"time"

	"github.com/spec-kit/turno-service/internal/domain"
)

// CreateCafeteriaRequest payload.
type CreateCafeteriaRequest struct {
	Name string `json:"name"`
}

// CafeteriaResponse represents a serving location.
type CafeteriaResponse struct {
	ID        string                `json:"id"`
	Name      string                `json:"name"`
	State     domain.CafeteriaState `json:"state"`
	UpdatedAt time.Time             `json:"updated_at"`
}

// QRCodeResponse carries the cafeteria's live rotating QR code.
type QRCodeResponse struct {
	CafeteriaID string `json:"cafeteria_id"`
	Code        string `json:"code"`
	TTLSeconds  int    `json:"ttl_seconds"`
}
