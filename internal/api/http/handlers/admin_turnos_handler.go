package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/turno-service/internal/auth"
	"github.com/spec-kit/turno-service/internal/config"
	"github.com/spec-kit/turno-service/internal/domain"
	"github.com/spec-kit/turno-service/internal/service"
)

// AdminTurnosHandler manages the operator endpoints of the turn lifecycle.
type AdminTurnosHandler struct {
	turnos *service.TurnoService
	query  *service.QueryService
	cfg    config.TurnoConfig
}

// NewAdminTurnosHandler constructs handler.
func NewAdminTurnosHandler(turnos *service.TurnoService, query *service.QueryService, cfg config.TurnoConfig) *AdminTurnosHandler {
	return &AdminTurnosHandler{turnos: turnos, query: query, cfg: cfg}
}

// List GET /admin/turnos?state=PENDING.
func (h *AdminTurnosHandler) List(c *fiber.Ctx) error {
	state := domain.TicketState(c.Query("state"))
	tickets, err := h.query.TicketsByState(c.UserContext(), state)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponses(tickets, h.cfg.TicketTTL())})
}

// Deliver POST /admin/turnos/:id/deliver.
func (h *AdminTurnosHandler) Deliver(c *fiber.Ctx) error {
	ticket, err := h.turnos.Deliver(c.UserContext(), c.Params("id"), adminActor(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket, h.cfg.TicketTTL())})
}

// Advance POST /admin/turnos/:id/advance.
func (h *AdminTurnosHandler) Advance(c *fiber.Ctx) error {
	ticket, err := h.turnos.Advance(c.UserContext(), c.Params("id"), adminActor(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket, h.cfg.TicketTTL())})
}

// Trail GET /admin/turnos/:id/events.
func (h *AdminTurnosHandler) Trail(c *fiber.Ctx) error {
	entries, err := h.turnos.TrailFor(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": turnEventResponses(entries)})
}

// Penalties GET /admin/penalties.
func (h *AdminTurnosHandler) Penalties(c *fiber.Ctx) error {
	penalties, err := h.query.ActivePenalties(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": penaltyResponses(penalties, h.cfg.PenaltyDuration())})
}

// PenalizedTickets GET /admin/turnos/penalized.
func (h *AdminTurnosHandler) PenalizedTickets(c *fiber.Ctx) error {
	tickets, err := h.query.PenalizedTickets(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponses(tickets, h.cfg.TicketTTL())})
}

// Depenalize POST /admin/penalties/:userID/clear.
func (h *AdminTurnosHandler) Depenalize(c *fiber.Ctx) error {
	ticket, err := h.turnos.Depenalize(c.UserContext(), c.Params("userID"), adminActor(c))
	if err != nil {
		return err
	}
	if ticket == nil {
		return c.JSON(fiber.Map{"data": nil})
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket, h.cfg.TicketTTL())})
}

func adminActor(c *fiber.Ctx) string {
	if principal, ok := auth.PrincipalFromContext(c); ok {
		return "admin:" + principal.User.ID
	}
	return "admin"
}
