package service

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/spec-kit/turno-service/internal/domain"
	"github.com/spec-kit/turno-service/internal/events"
	"github.com/spec-kit/turno-service/internal/repository"
	apperrors "github.com/spec-kit/turno-service/pkg/util"
)

// CafeteriaService manages the cafeteria registry.
type CafeteriaService struct {
	cafeterias repository.CafeteriaRepository
	dispatcher events.Dispatcher
}

// NewCafeteriaService constructs the service.
func NewCafeteriaService(cafeterias repository.CafeteriaRepository, dispatcher events.Dispatcher) *CafeteriaService {
	return &CafeteriaService{cafeterias: cafeterias, dispatcher: dispatcher}
}

// Create registers a new cafeteria, closed until an admin opens it.
func (s *CafeteriaService) Create(ctx context.Context, name string) (*domain.Cafeteria, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.NewValidationError("name required", nil)
	}
	cafeteria := &domain.Cafeteria{
		Name:  name,
		State: domain.CafeteriaStateClosed,
	}
	if err := s.cafeterias.Create(ctx, cafeteria); err != nil {
		return nil, translateRepoError(err, "cafeteria")
	}
	return cafeteria, nil
}

// Get returns one cafeteria.
func (s *CafeteriaService) Get(ctx context.Context, id string) (*domain.Cafeteria, error) {
	cafeteria, err := s.cafeterias.GetByID(ctx, id)
	if err != nil {
		return nil, translateRepoError(err, "cafeteria")
	}
	return cafeteria, nil
}

// List returns all cafeterias.
func (s *CafeteriaService) List(ctx context.Context) ([]domain.Cafeteria, error) {
	cafeterias, err := s.cafeterias.List(ctx)
	if err != nil {
		return nil, translateRepoError(err, "cafeteria")
	}
	return cafeterias, nil
}

// SetState moves a cafeteria between OPEN, CLOSED and RESTOCKING. Ticket
// creation is gated on OPEN.
func (s *CafeteriaService) SetState(ctx context.Context, id string, state domain.CafeteriaState, actor string) (*domain.Cafeteria, error) {
	if !domain.ValidCafeteriaState(state) {
		return nil, apperrors.NewValidationError("invalid cafeteria state", map[string]any{"state": string(state)})
	}
	previous, err := s.cafeterias.GetByID(ctx, id)
	if err != nil {
		return nil, translateRepoError(err, "cafeteria")
	}
	cafeteria, err := s.cafeterias.SetState(ctx, id, state)
	if err != nil {
		return nil, translateRepoError(err, "cafeteria")
	}
	if s.dispatcher != nil && previous.State != cafeteria.State {
		_ = s.dispatcher.Publish(ctx, events.Event{
			ID:          uuid.NewString(),
			Type:        events.EventCafeteriaStateChanged,
			CafeteriaID: cafeteria.ID,
			Actor:       actor,
			Timestamp:   cafeteria.UpdatedAt,
			Payload: events.CafeteriaStateChangedPayload{
				OldState: previous.State,
				NewState: cafeteria.State,
			},
		})
	}
	return cafeteria, nil
}
