package handlers

import (
	"time"

	"github.com/spec-kit/turno-service/internal/api/dto"
	"github.com/spec-kit/turno-service/internal/domain"
)

func ticketResponse(ticket *domain.Ticket, ttl time.Duration) dto.TicketResponse {
	resp := dto.TicketResponse{
		ID:          ticket.ID,
		Code:        ticket.Code,
		OwnerID:     ticket.OwnerID,
		CafeteriaID: ticket.CafeteriaID,
		ServiceDate: ticket.ServiceDate.Format("2006-01-02"),
		State:       ticket.State,
		CreatedAt:   ticket.CreatedAt,
		ClaimedAt:   ticket.ClaimedAt,
	}
	if ticket.State == domain.TicketStatePending {
		expiresAt := ticket.CreatedAt.Add(ttl)
		resp.ExpiresAt = &expiresAt
	}
	return resp
}

func ticketResponses(tickets []domain.Ticket, ttl time.Duration) []dto.TicketResponse {
	items := make([]dto.TicketResponse, 0, len(tickets))
	for i := range tickets {
		items = append(items, ticketResponse(&tickets[i], ttl))
	}
	return items
}

func penaltyResponse(penalty *domain.Penalty, advisory time.Duration) dto.PenaltyResponse {
	return dto.PenaltyResponse{
		ID:              penalty.ID,
		OwnerID:         penalty.OwnerID,
		Reason:          penalty.Reason,
		Active:          penalty.Active,
		CreatedAt:       penalty.CreatedAt,
		AdvisoryClearAt: penalty.CreatedAt.Add(advisory),
	}
}

func penaltyResponses(penalties []domain.Penalty, advisory time.Duration) []dto.PenaltyResponse {
	items := make([]dto.PenaltyResponse, 0, len(penalties))
	for i := range penalties {
		items = append(items, penaltyResponse(&penalties[i], advisory))
	}
	return items
}

func cafeteriaResponse(cafeteria *domain.Cafeteria) dto.CafeteriaResponse {
	return dto.CafeteriaResponse{
		ID:        cafeteria.ID,
		Name:      cafeteria.Name,
		State:     cafeteria.State,
		UpdatedAt: cafeteria.UpdatedAt,
	}
}

func userResponse(user *domain.User) dto.UserResponse {
	return dto.UserResponse{
		ID:          user.ID,
		Username:    user.Username,
		FullName:    user.FullName,
		StudentCode: user.StudentCode,
		Role:        user.Role,
	}
}

func turnEventResponses(entries []domain.TurnEvent) []dto.TurnEventResponse {
	items := make([]dto.TurnEventResponse, 0, len(entries))
	for _, entry := range entries {
		items = append(items, dto.TurnEventResponse{
			ID:        entry.ID,
			FromState: entry.FromState,
			ToState:   entry.ToState,
			Actor:     entry.Actor,
			Note:      entry.Note,
			CreatedAt: entry.CreatedAt,
		})
	}
	return items
}

func notificationResponses(entries []domain.Notification) []dto.NotificationResponse {
	items := make([]dto.NotificationResponse, 0, len(entries))
	for _, entry := range entries {
		items = append(items, dto.NotificationResponse{
			ID:        entry.ID,
			Title:     entry.Title,
			Message:   entry.Message,
			Read:      entry.Read,
			CreatedAt: entry.CreatedAt,
		})
	}
	return items
}
