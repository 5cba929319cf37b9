package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/turno-service/internal/api/dto"
	"github.com/spec-kit/turno-service/internal/auth"
	"github.com/spec-kit/turno-service/internal/config"
	"github.com/spec-kit/turno-service/internal/service"
	apperrors "github.com/spec-kit/turno-service/pkg/util"
)

// TurnosHandler manages the student-facing turn endpoints.
type TurnosHandler struct {
	turnos *service.TurnoService
	query  *service.QueryService
	qr     *service.QRService
	cfg    config.TurnoConfig
}

// NewTurnosHandler constructs handler.
func NewTurnosHandler(turnos *service.TurnoService, query *service.QueryService, qr *service.QRService, cfg config.TurnoConfig) *TurnosHandler {
	return &TurnosHandler{turnos: turnos, query: query, qr: qr, cfg: cfg}
}

// Create POST /turnos.
func (h *TurnosHandler) Create(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("user required")
	}
	var req dto.CreateTurnoRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.CafeteriaID == "" {
		return apperrors.NewValidationError("cafeteria_id required", nil)
	}

	if err := h.qr.Check(c.UserContext(), req.CafeteriaID, req.QRCode); err != nil {
		return err
	}

	ticket, err := h.turnos.CreateTicket(c.UserContext(), principal.User.ID, req.CafeteriaID)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": ticketResponse(ticket, h.cfg.TicketTTL())})
}

// History GET /turnos.
func (h *TurnosHandler) History(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("user required")
	}
	tickets, err := h.query.HistoryFor(c.UserContext(), principal.User.ID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponses(tickets, h.cfg.TicketTTL())})
}

// Penalty GET /turnos/penalty.
func (h *TurnosHandler) Penalty(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("user required")
	}
	penalty, err := h.query.ActivePenaltyFor(c.UserContext(), principal.User.ID)
	if err != nil {
		return err
	}
	if penalty == nil {
		return c.JSON(fiber.Map{"data": nil})
	}
	return c.JSON(fiber.Map{"data": penaltyResponse(penalty, h.cfg.PenaltyDuration())})
}
